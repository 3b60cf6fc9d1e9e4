package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"nixbot/internal/apperr"
	"nixbot/internal/models"
	"nixbot/internal/redis"
)

const issuer = "nixbot"

type UserStore interface {
	Create(ctx context.Context, username, name, passwordHash string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateName(ctx context.Context, id, name string) error
	TouchLastActive(ctx context.Context, id string) error
}

// Claims is the JWT payload. Subject holds the user id and ID the token id used for revocation.
type Claims struct {
	jwt.RegisteredClaims
}

// Service registers users and issues, validates, and revokes their tokens.
type Service struct {
	users      UserStore
	revoked    denylist
	secret     []byte
	tokenTTL   time.Duration
	headerName string
	validate   *validator.Validate
	now        func() time.Time
}

// NewService constructs an auth service. A nil redis client keeps revocations in process.
func NewService(users UserStore, client *redis.Client, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	var revoked denylist = newMemoryDenylist()
	if client.Enabled() {
		revoked = &redisDenylist{client: client}
	}
	return &Service{
		users:      users,
		revoked:    revoked,
		secret:     []byte(secret),
		tokenTTL:   ttl,
		headerName: "Authorization",
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
	}
}

type registerInput struct {
	Username string `validate:"required,min=3,max=32,alphanum"`
	Password string `validate:"required,min=6,max=72"`
	Name     string `validate:"max=100"`
}

// Register creates a user with a bcrypt password hash. The display name defaults to the username.
func (s *Service) Register(ctx context.Context, username, password, name string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	name = strings.TrimSpace(name)
	if err := s.validate.Struct(registerInput{Username: username, Password: password, Name: name}); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, registerMessage(err), err)
	}
	if name == "" {
		name = username
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Persistence("failed to look up user", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, username, name, string(hash))
	if err != nil {
		return nil, apperr.Persistence("failed to create user", err)
	}
	return user, nil
}

func registerMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].Field() {
		case "Username":
			return "Username must be 3-32 letters or digits"
		case "Password":
			return "Password must be 6-72 characters"
		case "Name":
			return "Name cannot exceed 100 characters"
		}
	}
	return "invalid registration"
}

// Login checks the credentials and records the user as active.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, apperr.Validation("Username and password are required")
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Persistence("failed to look up user", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthenticated("Invalid username or password")
	}
	if err := s.users.TouchLastActive(ctx, user.ID); err == nil {
		ts := s.now().UTC()
		user.LastActiveAt = &ts
	}
	return user, nil
}

// IssueToken signs an HS256 token for the user.
func (s *Service) IssueToken(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("invalid user id")
	}
	now := s.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, expiry and revocation, returning the claims.
func (s *Service) ValidateToken(ctx context.Context, authToken string) (*Claims, error) {
	if authToken == "" {
		return nil, apperr.Unauthenticated("token required")
	}
	claims, err := s.parse(authToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.CodeUnauthenticated, "token expired", err)
		}
		return nil, apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}
	revoked, err := s.revoked.contains(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, apperr.Unauthenticated("token revoked")
	}
	return claims, nil
}

// RevokeToken denies the token until it would have expired anyway.
func (s *Service) RevokeToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return nil
	}
	claims, err := s.parse(authToken)
	if err != nil {
		// expired or forged tokens are already unusable
		return nil
	}
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	if err := s.revoked.add(ctx, claims.ID, remaining); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *Service) parse(authToken string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(authToken, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("malformed token claims")
	}
	return claims, nil
}

// Profile returns the user; a user deleted behind a valid token is NotFound.
func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("failed to load user", err)
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	if len([]rune(name)) > 100 {
		return nil, apperr.Validation("Name cannot exceed 100 characters")
	}
	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		return nil, apperr.Persistence("failed to update user", err)
	}
	return s.Profile(ctx, userID)
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
