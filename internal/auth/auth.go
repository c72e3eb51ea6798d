// Package auth is the local identity provider: password accounts and opaque
// bearer tokens with refresh rotation.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/dohr-michael/todoia/internal/apperr"
)

const minPasswordLen = 8

var (
	ErrInvalidCredentials = apperr.Unauthenticated("invalid credentials")
	ErrInvalidToken       = apperr.Unauthenticated("invalid or expired token")
	ErrMissingFields      = apperr.Validation("email and password are required")
)

// User is a registered account.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Session is the token pair handed to a client.
type Session struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResult is returned by Login.
type LoginResult struct {
	User    Identity `json:"user"`
	Session Session  `json:"session"`
}

// Identity is the authenticated principal. ID is the owner identity that
// scopes tasks and chat history.
type Identity struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
}

// Service issues and validates tokens. Only SHA-256 digests of tokens are
// stored.
type Service struct {
	db         *sqlx.DB
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(db *sqlx.DB, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		db:         db,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser registers a new account.
func (s *Service) CreateUser(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.Validation("invalid email address")
	}
	if len(password) < minPasswordLen {
		return nil, apperr.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	_, err = s.db.NamedExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (:id, :email, :password_hash, :created_at)", u)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, apperr.Validation("email already registered")
		}
		return nil, apperr.Store(fmt.Errorf("insert user: %w", err))
	}
	slog.Info("user created", "user_id", u.ID)
	return u, nil
}

// UserByEmail looks an account up by email.
func (s *Service) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?", normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("get user: %w", err))
	}
	return &u, nil
}

// Login verifies a password and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.UserByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.openSession(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: Identity{ID: u.ID, Email: u.Email}, Session: *sess}, nil
}

// Authenticate resolves an access token to its identity.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	var id Identity
	err := s.db.GetContext(ctx, &id, `
		SELECT u.id, u.email FROM auth_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.access_token = ? AND s.expires_at > ?`,
		digest(accessToken), s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("authenticate: %w", err))
	}
	return &id, nil
}

// Logout ends the session owning accessToken.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE access_token = ?", digest(accessToken))
	if err != nil {
		return apperr.Store(fmt.Errorf("logout: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidToken
	}
	return nil
}

// Refresh rotates a session: the old token pair stops working.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	hashed := digest(refreshToken)
	var userID string
	err := s.db.GetContext(ctx, &userID,
		"SELECT user_id FROM auth_sessions WHERE refresh_token = ? AND refresh_expires_at > ?",
		hashed, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("refresh: %w", err))
	}

	// A concurrent refresh with the same token loses here.
	res, err := s.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE refresh_token = ?", hashed)
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("rotate session: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrInvalidToken
	}
	return s.openSession(ctx, userID)
}

// PurgeExpired removes sessions whose refresh token has expired.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE refresh_expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Service) openSession(ctx context.Context, userID string) (*Session, error) {
	access, err := newToken()
	if err != nil {
		return nil, err
	}
	refresh, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresAt:        now.Add(s.accessTTL),
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (access_token, refresh_token, user_id, expires_at, refresh_expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		digest(access), digest(refresh), userID, sess.ExpiresAt, sess.RefreshExpiresAt, now)
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("insert session: %w", err))
	}
	return sess, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
