package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/couchcryptid/match-forecast-service/internal/observability"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPassword    = errors.New("password must be between 8 and 72 bytes")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit
	tokenType      = "bearer"
)

// User is a registered account.
type User struct {
	ID             int64
	Email          string
	HashedPassword string
	CreatedAt      time.Time
}

// UserStore persists accounts. Implementations return ErrEmailTaken from
// CreateUser on a duplicate email and ErrUserNotFound from GetUserByEmail.
type UserStore interface {
	CreateUser(ctx context.Context, email, hashedPassword string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// Token is the login response body.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// Service registers users and issues signed access tokens.
type Service struct {
	store   UserStore
	secret  []byte
	method  jwt.SigningMethod
	ttl     time.Duration
	cost    int
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService returns an auth service signing tokens with the named HMAC
// algorithm (HS256, HS384 or HS512).
func NewService(store UserStore, secret, algorithm string, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) (*Service, error) {
	method, err := signingMethod(algorithm)
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		store:   store,
		secret:  []byte(secret),
		method:  method,
		ttl:     ttl,
		cost:    bcrypt.DefaultCost,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}, nil
}

func signingMethod(name string) (jwt.SigningMethod, error) {
	switch name {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", name)
	}
}

// NormalizeEmail trims and lowercases an address and checks that it is a
// bare RFC 5322 address with no display name.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@'):], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return User{}, ErrInvalidPassword
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	// The unique index still guards against a concurrent registration.
	user, err := s.store.CreateUser(ctx, email, string(hashed))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	s.metrics.UsersRegistered.Inc()
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and returns a signed access token. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		s.metrics.Logins.WithLabelValues("failure").Inc()
		return Token{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.metrics.Logins.WithLabelValues("failure").Inc()
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		s.metrics.Logins.WithLabelValues("failure").Inc()
		return Token{}, ErrInvalidCredentials
	}

	token, err := s.issue(user.Email)
	if err != nil {
		return Token{}, err
	}
	s.metrics.Logins.WithLabelValues("success").Inc()
	return token, nil
}

func (s *Service) issue(subject string) (Token, error) {
	now := s.clock.Now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: tokenType, ExpiresAt: expires}, nil
}

// VerifyToken validates signature, algorithm and expiry and returns the
// token subject (the user's email).
func (s *Service) VerifyToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
