package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const PaymentStatusSucceeded = "succeeded"

// SettlementCurrency maps a shipping country to the charge currency.
// India settles in its local currency; everything else falls back to USD.
func SettlementCurrency(country string) string {
	if strings.EqualFold(country, "IN") {
		return "inr"
	}
	return "usd"
}

// PaymentIntent mirrors the processor's pending-charge object. Amount is in
// the processor's minor units (cents/paise).
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
}

// ToMinorUnits converts a decimal currency amount to the processor's
// integer minor-unit representation.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// HostedCheckout is the processor-hosted payment page opened for a cart.
// The client is redirected to URL; completion comes back asynchronously
// as a webhook carrying the session ID.
type HostedCheckout struct {
	ID  string
	URL string
}

// ReconciliationFailure is a dead-letter record for a webhook-originated
// order that could not be created. It carries the raw event payload so the
// attempt can be replayed.
type ReconciliationFailure struct {
	ID        int64     `json:"id" db:"id"`
	EventID   string    `json:"event_id" db:"event_id"`
	Payload   []byte    `json:"payload" db:"payload"`
	LastError string    `json:"last_error" db:"last_error"`
	Attempts  int       `json:"attempts" db:"attempts"`
	Resolved  bool      `json:"resolved" db:"resolved"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ReconciliationRepository interface {
	SaveFailure(failure *ReconciliationFailure) error
	ListUnresolved(limit int) ([]ReconciliationFailure, error)
	MarkResolved(id int64) error
	MarkRetried(id int64, lastError string) error
}
