package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           string `envconfig:"PORT" default:":8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	PaymentAPIURL    string        `envconfig:"PAYMENT_API_URL" default:"https://api.stripe.com"`
	PaymentSecretKey string        `envconfig:"PAYMENT_SECRET_KEY" required:"true"`
	WebhookSecret    string        `envconfig:"PAYMENT_WEBHOOK_SECRET" required:"true"`
	PaymentTimeout   time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`

	// ClientURL is the storefront origin the processor redirects back to
	// after a hosted checkout completes or is abandoned.
	ClientURL string `envconfig:"CLIENT_URL" default:"http://localhost:3000"`

	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"168h"`
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"1m"`

	SMTPHost string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort string `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser string `envconfig:"SMTP_USER"`
	SMTPPass string `envconfig:"SMTP_PASS"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			log.Println("Warning: .env file not found, using environment variables or defaults.")
		} else {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
