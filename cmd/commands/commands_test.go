package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dohr-michael/todoia/internal/auth"
	"github.com/dohr-michael/todoia/internal/config"
	"github.com/dohr-michael/todoia/internal/storage"
)

func withStdin(t *testing.T, content string) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	orig := os.Stdin
	os.Stdin = f
	t.Cleanup(func() {
		os.Stdin = orig
		f.Close()
	})
}

func TestMaintenanceJobs_MissingConfigUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TODOIA_PATH", home)

	args := []string{"todoia", "--config", filepath.Join(home, "missing.jsonc"), "maintenance", "jobs"}
	if err := NewRootCommand().Run(context.Background(), args); err != nil {
		t.Fatalf("maintenance jobs: %v", err)
	}
}

func TestUsersAdd_CreatesAccount(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TODOIA_PATH", home)
	withStdin(t, "correct horse battery\n")

	args := []string{"todoia", "--config", filepath.Join(home, "missing.jsonc"), "users", "add", "alice@example.com"}
	if err := NewRootCommand().Run(context.Background(), args); err != nil {
		t.Fatalf("users add: %v", err)
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, config.Default().Database.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	svc := auth.NewService(db, config.Default().Auth.AccessTTL.Duration(), config.Default().Auth.RefreshTTL.Duration())
	if _, err := svc.Login(ctx, "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("login with created account: %v", err)
	}
}

func TestUsersAdd_RequiresEmail(t *testing.T) {
	t.Setenv("TODOIA_PATH", t.TempDir())
	if err := NewRootCommand().Run(context.Background(), []string{"todoia", "users", "add"}); err == nil {
		t.Fatal("expected usage error")
	}
}
