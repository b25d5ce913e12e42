package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-socialmedia/internal/logging"
	"backend-socialmedia/internal/session"
	"backend-socialmedia/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 365 * 24 * time.Hour
)

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrAlreadyRegistered  = errors.New("user already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingRefreshAuth = errors.New("refresh token required")
)

// hashCost is lowered in tests.
var hashCost = bcrypt.DefaultCost

type Config struct {
	AccessKey    string
	RefreshKey   string
	CookieSecure bool
}

type Service struct {
	accessKey    []byte
	refreshKey   []byte
	cookieSecure bool
	users        store.UserStore
	sessions     session.Store
	now          func() time.Time
}

// NewService builds the credential service. sessions may be nil, in which
// case refresh tokens are validated by signature and expiry only.
func NewService(cfg Config, users store.UserStore, sessions session.Store) *Service {
	return &Service{
		accessKey:    []byte(cfg.AccessKey),
		refreshKey:   []byte(cfg.RefreshKey),
		cookieSecure: cfg.CookieSecure,
		users:        users,
		sessions:     sessions,
		now:          time.Now,
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) error {
	email := normalizeEmail(req.Email)
	if req.Name == "" || email == "" || req.Password == "" {
		return ErrMissingFields
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, store.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
	})
	if errors.Is(err, store.ErrDuplicateEmail) {
		return ErrAlreadyRegistered
	}
	if err != nil {
		return err
	}

	l := logging.Ctx(ctx)
	l.Info().Str(logging.FieldUserID, user.ID).Msg("user signed up")
	return nil
}

// Login checks the credentials and returns a fresh access and refresh
// token pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (string, string, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return "", "", ErrMissingFields
	}

	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", "", ErrUserNotFound
	}
	if err != nil {
		return "", "", err
	}
	if !VerifyPassword(req.Password, user.PasswordHash) {
		return "", "", ErrIncorrectPassword
	}

	access, err := s.IssueAccessToken(user.ID)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrMissingRefreshAuth
	}
	claims, err := s.verifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	return s.IssueAccessToken(claims.UserID)
}

// Logout revokes the session behind refreshToken when one is tracked.
// Unparseable tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if s.sessions == nil || refreshToken == "" {
		return nil
	}
	claims, err := s.parse(refreshToken, s.refreshKey)
	if err != nil || claims.ID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.UserID, claims.ID)
}

// RevokeAll drops every refresh session of userID.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.RevokeAll(ctx, userID)
}

func (s *Service) IssueAccessToken(userID string) (string, error) {
	return s.sign(Claims{UserID: userID, RegisteredClaims: s.registered("", AccessTokenTTL)}, s.accessKey)
}

func (s *Service) IssueRefreshToken(ctx context.Context, userID string) (string, error) {
	tokenID := uuid.NewString()
	token, err := s.sign(Claims{UserID: userID, RegisteredClaims: s.registered(tokenID, RefreshTokenTTL)}, s.refreshKey)
	if err != nil {
		return "", err
	}
	if s.sessions != nil {
		if err := s.sessions.Save(ctx, userID, tokenID, RefreshTokenTTL); err != nil {
			return "", fmt.Errorf("save session: %w", err)
		}
	}
	return token, nil
}

// VerifyAccessToken returns the subject of a valid access token.
func (s *Service) VerifyAccessToken(token string) (string, error) {
	claims, err := s.parse(token, s.accessKey)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) verifyRefreshToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token, s.refreshKey)
	if err != nil {
		return nil, err
	}
	if s.sessions == nil {
		return claims, nil
	}
	active, err := s.sessions.Active(ctx, claims.UserID, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if !active {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) registered(id string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *Service) sign(claims Claims, key []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

func (s *Service) parse(token string, key []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
