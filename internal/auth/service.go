package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"faceattend/internal/queue"
)

var (
	// ErrInvalidCredentials is returned on any failed login. Deliberately
	// indistinct between unknown user and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidResetCode covers missing, expired and mismatched codes.
	ErrInvalidResetCode = errors.New("invalid or expired reset code")
)

// Accounts is the credential store the service uses. Satisfied by
// *Repository; tests substitute a fake.
type Accounts interface {
	AdminByUsername(ctx context.Context, username string) (Account, error)
	StudentByRoll(ctx context.Context, rollNumber string) (Account, error)
	SetPassword(ctx context.Context, role, id, hash string) error
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        string    `json:"role"`
}

// Service handles logins and password resets. Reset-code delivery is an
// external collaborator: the service only publishes a notification to the
// queue, it never returns codes to API callers.
type Service struct {
	repo    Accounts
	codes   CodeStore
	q       queue.Queue
	issuer  string
	key     string
	ttl     time.Duration
	codeTTL time.Duration
	logger  *slog.Logger
}

// NewService wires the auth service.
func NewService(repo Accounts, codes CodeStore, q queue.Queue, issuer, key string, ttl, codeTTL time.Duration, logger *slog.Logger) *Service {
	if codeTTL <= 0 {
		codeTTL = 15 * time.Minute
	}
	return &Service{repo: repo, codes: codes, q: q, issuer: issuer, key: key, ttl: ttl, codeTTL: codeTTL, logger: logger}
}

// Login verifies credentials for either principal kind and issues a token.
func (s *Service) Login(ctx context.Context, identifier, password, role string) (Token, error) {
	account, err := s.lookup(ctx, role, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return Token{}, ErrInvalidCredentials
	}
	token, exp, err := Issue(account.ID, role, s.issuer, s.key, s.ttl)
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}
	return Token{AccessToken: token, ExpiresAt: exp, Role: role}, nil
}

// ResetNotification is the payload handed to the delivery worker.
type ResetNotification struct {
	Identifier string `json:"identifier"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Code       string `json:"code"`
}

// RequestReset generates a 6-digit code, stores it with expiry and
// publishes it for delivery. Codes are keyed by role and identifier, so an
// admin username colliding with a student roll number never shares a slot.
func (s *Service) RequestReset(ctx context.Context, identifier, role string) error {
	account, err := s.lookup(ctx, role, identifier)
	if err != nil {
		return err
	}

	code, err := sixDigitCode()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}
	rc := ResetCode{
		Code:      code,
		Role:      role,
		UserID:    account.ID,
		ExpiresAt: time.Now().Add(s.codeTTL),
	}
	if err := s.codes.Put(ctx, codeKey(role, identifier), rc, s.codeTTL); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	body, _ := json.Marshal(ResetNotification{
		Identifier: identifier,
		Role:       role,
		Name:       account.Name,
		Code:       code,
	})
	if err := s.q.Publish(ctx, queue.Message{Type: "reset_code", Body: body}); err != nil {
		s.logger.ErrorContext(ctx, "reset code publish failed", "identifier", identifier, "error", err)
	}
	return nil
}

// ResetPassword consumes a live code and replaces the password. The code
// is removed on use, and on detected expiry via the store's lazy check.
func (s *Service) ResetPassword(ctx context.Context, identifier, role, code, newPassword string) error {
	key := codeKey(role, identifier)
	stored, ok, err := s.codes.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read reset code: %w", err)
	}
	if !ok || stored.Code != code {
		return ErrInvalidResetCode
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.SetPassword(ctx, stored.Role, stored.UserID, string(hash)); err != nil {
		return err
	}
	if err := s.codes.Delete(ctx, key); err != nil {
		s.logger.ErrorContext(ctx, "reset code cleanup failed", "identifier", identifier, "error", err)
	}
	return nil
}

func codeKey(role, identifier string) string {
	return role + ":" + identifier
}

func (s *Service) lookup(ctx context.Context, role, identifier string) (Account, error) {
	switch role {
	case RoleAdmin:
		return s.repo.AdminByUsername(ctx, identifier)
	case RoleStudent:
		return s.repo.StudentByRoll(ctx, identifier)
	default:
		return Account{}, fmt.Errorf("unknown role %q", role)
	}
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
