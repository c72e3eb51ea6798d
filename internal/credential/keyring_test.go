package credential

import (
	"errors"
	"testing"
	"time"

	"github.com/99designs/keyring"
)

func TestStore_LoadWithoutSession(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))
	if _, err := s.Load(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestStore_SaveLoadClear(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))
	exp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	err := s.Save(Session{
		Server:       "http://127.0.0.1:18430",
		Email:        "alice@example.com",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    exp,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "access" || got.Server != "http://127.0.0.1:18430" || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn after Clear, got %v", err)
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if (Session{}).Expired(now) {
		t.Error("session without expiry should not be expired")
	}
	if !(Session{ExpiresAt: now}).Expired(now) {
		t.Error("session expiring now should be expired")
	}
	if (Session{ExpiresAt: now.Add(time.Minute)}).Expired(now) {
		t.Error("future expiry should not be expired")
	}
}
