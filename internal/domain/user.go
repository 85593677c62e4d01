package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Address is used both for the user's saved address book and as the
// shipping address value object on orders.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

// Settings holds notification and display preferences.
type Settings struct {
	EmailNotifications bool   `json:"emailNotifications"`
	OrderUpdates       bool   `json:"orderUpdates"`
	Theme              string `json:"theme"`
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Addresses    []Address `json:"addresses"`
	Settings     Settings  `json:"settings"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is the server-side record behind an opaque bearer token.
type Session struct {
	Token     string
	UserID    int64
	Role      string
	ExpiresAt time.Time
}

type AuthResult struct {
	User  *User
	Token string
}

type UserRepository interface {
	CreateUser(user *User) (*User, error)
	GetUserByEmail(email string) (*User, error)
	GetUserByID(id int64) (*User, error)
	UpdateProfile(id int64, name, email, passwordHash string) (*User, error)
	UpdateAddresses(id int64, addresses []Address) error
	UpdateSettings(id int64, settings Settings) error
	ListUsers(limit, offset int) ([]User, error)
	UpdateUserRole(id int64, role string) (*User, error)
}

type SessionRepository interface {
	CreateSession(session *Session) error
	GetSession(token string) (*Session, error)
	DeleteSession(token string) error
}
