package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutil.NewTestDB(t), time.Hour, 24*time.Hour)
}

func TestLoginAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, " Alice@Example.com ", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email not normalized: %q", u.Email)
	}

	res, err := svc.Login(ctx, "alice@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if res.User.ID != u.ID || res.Session.AccessToken == "" || res.Session.RefreshToken == "" {
		t.Fatalf("login result = %+v", res)
	}

	id, err := svc.Authenticate(ctx, res.Session.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if id.ID != u.ID || id.Email != u.Email {
		t.Errorf("identity = %+v", id)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "bob@example.com", "password123"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(ctx, "", "x"); !errors.Is(err, ErrMissingFields) {
		t.Errorf("missing email: %v", err)
	}
	if _, err := svc.Login(ctx, "bob@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: %v", err)
	}
	if apperr.StatusOf(ErrInvalidCredentials) != 401 {
		t.Error("invalid credentials must map to 401")
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "not-an-email", "password123"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("bad email: %v", err)
	}
	if _, err := svc.CreateUser(ctx, "a@b.c", "short"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("short password: %v", err)
	}
	if _, err := svc.CreateUser(ctx, "a@b.c", "password123"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateUser(ctx, "A@B.C", "password123"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("duplicate: %v", err)
	}
}

func TestExpiredAccessToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "carol@example.com", "password123"); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Login(ctx, "carol@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	if _, err := svc.Authenticate(ctx, res.Session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired token, got %v", err)
	}
}

func TestRefreshRotates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "dave@example.com", "password123"); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Login(ctx, "dave@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}

	next, err := svc.Refresh(ctx, res.Session.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if next.AccessToken == res.Session.AccessToken {
		t.Error("expected a new access token")
	}
	if _, err := svc.Authenticate(ctx, res.Session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old access token still valid: %v", err)
	}
	if _, err := svc.Refresh(ctx, res.Session.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old refresh token reusable: %v", err)
	}
	if _, err := svc.Authenticate(ctx, next.AccessToken); err != nil {
		t.Errorf("new token rejected: %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "erin@example.com", "password123"); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Login(ctx, "erin@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(ctx, res.Session.AccessToken); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, res.Session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token valid after logout: %v", err)
	}
	if err := svc.Logout(ctx, res.Session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("second logout: %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "frank@example.com", "password123"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Login(ctx, "frank@example.com", "password123"); err != nil {
			t.Fatal(err)
		}
	}

	n, err := svc.PurgeExpired(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("purged %d live sessions", n)
	}

	n, err = svc.PurgeExpired(ctx, time.Now().Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("purged %d sessions, want 2", n)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if OwnerFrom(ctx) != "" {
		t.Error("expected empty owner")
	}
	ctx = WithIdentity(ctx, &Identity{ID: "u1", Email: "u1@example.com"})
	if OwnerFrom(ctx) != "u1" {
		t.Errorf("owner = %q", OwnerFrom(ctx))
	}
}
