package heartbeat

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriter_StartWritesAndStopRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "gateway.json")

	w := NewWriter(path, "127.0.0.1:18430", "test")
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status, hb, err := Check(path, time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusAlive {
		t.Fatalf("status = %s, want alive", status)
	}
	if hb.PID != os.Getpid() || hb.Addr != "127.0.0.1:18430" || hb.Environment != "test" {
		t.Errorf("unexpected heartbeat %+v", hb)
	}

	w.Stop()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should be removed on stop, stat err = %v", err)
	}
	// Stop is idempotent.
	w.Stop()
}

func TestCheck_Stale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.json")
	old := Heartbeat{
		PID:       42,
		Addr:      "127.0.0.1:1",
		StartedAt: time.Now().Add(-2 * time.Hour),
		Timestamp: time.Now().Add(-time.Hour),
	}
	data, err := json.Marshal(old)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	status, hb, err := Check(path, 30*time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusStale {
		t.Errorf("status = %s, want stale", status)
	}
	if hb.Uptime() != time.Hour {
		t.Errorf("uptime = %s", hb.Uptime())
	}
}

func TestCheck_Missing(t *testing.T) {
	status, hb, err := Check(filepath.Join(t.TempDir(), "none.json"), time.Minute)
	if err != nil || status != StatusDead || hb != nil {
		t.Fatalf("Check = %s, %v, %v", status, hb, err)
	}
}

func TestCheck_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Check(path, time.Minute); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}
