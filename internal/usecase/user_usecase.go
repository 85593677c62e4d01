package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaddi6894/commerce/internal/domain"
)

type UserUseCase interface {
	RegisterUser(name, email, password string) (*domain.AuthResult, error)
	AuthenticateUser(email, password string) (*domain.AuthResult, error)
	// Authorize resolves a bearer token to the owning user's id and role.
	Authorize(token string) (*domain.Session, error)
	// Logout revokes the session behind the token; subsequent Authorize
	// calls with it fail.
	Logout(token string) error
	GetProfile(id int64) (*domain.User, error)
	UpdateProfile(id int64, name, email, password string) (*domain.AuthResult, error)
	ListAddresses(userID int64) ([]domain.Address, error)
	AddAddress(userID int64, address domain.Address) ([]domain.Address, error)
	UpdateAddress(userID int64, index int, address domain.Address) ([]domain.Address, error)
	DeleteAddress(userID int64, index int) ([]domain.Address, error)
	GetSettings(userID int64) (domain.Settings, error)
	UpdateSettings(userID int64, settings domain.Settings) (domain.Settings, error)
	ListUsers(limit, offset int) ([]domain.User, error)
	UpdateUserRole(id int64, role string) (*domain.User, error)
}

type userUseCase struct {
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	sessionTTL  time.Duration
	log         *logrus.Logger
}

func NewUserUseCase(userRepo domain.UserRepository, sessionRepo domain.SessionRepository, sessionTTL time.Duration, logger *logrus.Logger) UserUseCase {
	return &userUseCase{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
		log:         logger,
	}
}

func (uc *userUseCase) RegisterUser(name, email, password string) (*domain.AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	uc.log.Infof("Use Case: Attempting registration for email: %s", email)

	if name == "" {
		uc.log.Warn("Use Case: Registration failed - empty name")
		return nil, errors.New("user name cannot be empty")
	}
	if !isValidEmail(email) {
		uc.log.Warnf("Use Case: Registration failed - invalid email format: %s", email)
		return nil, errors.New("invalid email format")
	}
	if err := validatePassword(password); err != nil {
		uc.log.Warnf("Use Case: Registration failed - password validation error: %v", err)
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to hash password for %s: %v", email, err)
		return nil, fmt.Errorf("internal error processing password: %w", err)
	}

	newUser := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	createdUser, err := uc.userRepo.CreateUser(newUser)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create user %s: %v", email, err)
		return nil, err
	}

	token, err := uc.issueSession(createdUser)
	if err != nil {
		return nil, err
	}

	uc.log.Infof("Use Case: User registered successfully. ID: %d, Email: %s", createdUser.ID, createdUser.Email)
	return &domain.AuthResult{User: createdUser, Token: token}, nil
}

func (uc *userUseCase) AuthenticateUser(email, password string) (*domain.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	uc.log.Infof("Use Case: Attempting authentication for email: %s", email)

	if !isValidEmail(email) || password == "" {
		uc.log.Warnf("Use Case: Auth failed - invalid email or empty password for %s", email)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := uc.userRepo.GetUserByEmail(email)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			uc.log.Warnf("Use Case: Auth failed - user not found: %s", email)
			return nil, domain.ErrInvalidCredentials
		}
		uc.log.Errorf("Use Case: Error retrieving user %s during auth: %v", email, err)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			uc.log.Warnf("Use Case: Auth failed - incorrect password for user %s (ID: %d)", email, user.ID)
			return nil, domain.ErrInvalidCredentials
		}
		uc.log.Errorf("Use Case: Error comparing password hash for user %s: %v", email, err)
		return nil, fmt.Errorf("internal error during authentication: %w", err)
	}

	token, err := uc.issueSession(user)
	if err != nil {
		return nil, err
	}

	uc.log.Infof("Use Case: Authentication successful for user %s (ID: %d)", email, user.ID)
	return &domain.AuthResult{User: user, Token: token}, nil
}

func (uc *userUseCase) issueSession(user *domain.User) (string, error) {
	session := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(uc.sessionTTL),
	}
	if err := uc.sessionRepo.CreateSession(session); err != nil {
		uc.log.Errorf("Use Case: Failed to create session for user %d: %v", user.ID, err)
		return "", fmt.Errorf("could not issue session: %w", err)
	}
	return session.Token, nil
}

func (uc *userUseCase) Authorize(token string) (*domain.Session, error) {
	if token == "" {
		return nil, errors.New("invalid token")
	}
	session, err := uc.sessionRepo.GetSession(token)
	if err != nil {
		uc.log.Warnf("Use Case: Token rejected: %v", err)
		return nil, errors.New("invalid token")
	}
	return session, nil
}

func (uc *userUseCase) Logout(token string) error {
	if token == "" {
		return errors.New("invalid token")
	}
	if err := uc.sessionRepo.DeleteSession(token); err != nil {
		uc.log.Errorf("Use Case: Failed to delete session: %v", err)
		return fmt.Errorf("could not revoke session: %w", err)
	}
	uc.log.Info("Use Case: Session revoked")
	return nil
}

func (uc *userUseCase) GetProfile(id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, errors.New("invalid user ID")
	}
	user, err := uc.userRepo.GetUserByID(id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get user profile for ID %d: %v", id, err)
		return nil, err
	}
	return user, nil
}

func (uc *userUseCase) UpdateProfile(id int64, name, email, password string) (*domain.AuthResult, error) {
	current, err := uc.GetProfile(id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = current.Name
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = current.Email
	} else if !isValidEmail(email) {
		return nil, errors.New("invalid email format")
	}

	passwordHash := current.PasswordHash
	if password != "" {
		if err := validatePassword(password); err != nil {
			uc.log.Warnf("Use Case: Profile update failed - password validation error: %v", err)
			return nil, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			uc.log.Errorf("Use Case: Failed to hash password for user %d: %v", id, err)
			return nil, fmt.Errorf("internal error processing password: %w", err)
		}
		passwordHash = string(hashed)
	}

	updated, err := uc.userRepo.UpdateProfile(id, name, email, passwordHash)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to update profile for user %d: %v", id, err)
		return nil, err
	}

	// Credential change invalidates nothing server-side; a fresh token is
	// issued so the client can swap it in immediately.
	token, err := uc.issueSession(updated)
	if err != nil {
		return nil, err
	}

	uc.log.Infof("Use Case: Profile updated for user %d", id)
	return &domain.AuthResult{User: updated, Token: token}, nil
}

func (uc *userUseCase) ListAddresses(userID int64) ([]domain.Address, error) {
	user, err := uc.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if user.Addresses == nil {
		return []domain.Address{}, nil
	}
	return user.Addresses, nil
}

func (uc *userUseCase) AddAddress(userID int64, address domain.Address) ([]domain.Address, error) {
	user, err := uc.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	addresses := append(user.Addresses, address)
	if err := uc.userRepo.UpdateAddresses(userID, addresses); err != nil {
		uc.log.Errorf("Use Case: Failed to add address for user %d: %v", userID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Address added for user %d (%d total)", userID, len(addresses))
	return addresses, nil
}

func (uc *userUseCase) UpdateAddress(userID int64, index int, address domain.Address) ([]domain.Address, error) {
	user, err := uc.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(user.Addresses) {
		uc.log.Warnf("Use Case: Address index %d out of range for user %d", index, userID)
		return nil, errors.New("invalid address index")
	}

	user.Addresses[index] = address
	if err := uc.userRepo.UpdateAddresses(userID, user.Addresses); err != nil {
		uc.log.Errorf("Use Case: Failed to update address %d for user %d: %v", index, userID, err)
		return nil, err
	}
	return user.Addresses, nil
}

func (uc *userUseCase) DeleteAddress(userID int64, index int) ([]domain.Address, error) {
	user, err := uc.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(user.Addresses) {
		uc.log.Warnf("Use Case: Address index %d out of range for user %d", index, userID)
		return nil, errors.New("invalid address index")
	}

	addresses := append(user.Addresses[:index], user.Addresses[index+1:]...)
	if err := uc.userRepo.UpdateAddresses(userID, addresses); err != nil {
		uc.log.Errorf("Use Case: Failed to delete address %d for user %d: %v", index, userID, err)
		return nil, err
	}
	return addresses, nil
}

func (uc *userUseCase) GetSettings(userID int64) (domain.Settings, error) {
	user, err := uc.GetProfile(userID)
	if err != nil {
		return domain.Settings{}, err
	}
	return user.Settings, nil
}

func (uc *userUseCase) UpdateSettings(userID int64, settings domain.Settings) (domain.Settings, error) {
	if _, err := uc.GetProfile(userID); err != nil {
		return domain.Settings{}, err
	}
	if err := uc.userRepo.UpdateSettings(userID, settings); err != nil {
		uc.log.Errorf("Use Case: Failed to update settings for user %d: %v", userID, err)
		return domain.Settings{}, err
	}
	uc.log.Infof("Use Case: Settings updated for user %d", userID)
	return settings, nil
}

func (uc *userUseCase) ListUsers(limit, offset int) ([]domain.User, error) {
	users, err := uc.userRepo.ListUsers(limit, offset)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list users: %v", err)
		return nil, fmt.Errorf("could not retrieve users: %w", err)
	}
	return users, nil
}

func (uc *userUseCase) UpdateUserRole(id int64, role string) (*domain.User, error) {
	if id <= 0 {
		return nil, errors.New("invalid user ID")
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		uc.log.Warnf("Use Case: Invalid role '%s' for user %d", role, id)
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	user, err := uc.userRepo.UpdateUserRole(id, role)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to update role for user %d: %v", id, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Role for user %d set to '%s'", id, role)
	return user, nil
}

// isValidEmail provides a basic check for email format.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	domainParts := strings.Split(parts[1], ".")
	return len(domainParts) >= 2 && domainParts[0] != "" && domainParts[len(domainParts)-1] != ""
}

// validatePassword enforces basic password complexity rules.
func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return errors.New("password must contain at least one digit")
	}
	return nil
}
