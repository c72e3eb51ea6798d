// Package heartbeat records that a gateway process is serving, so local
// commands can tell a running gateway from a dead one without a request.
package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dohr-michael/todoia/internal/config"
)

// Status represents the liveness state of the gateway.
type Status string

const (
	StatusAlive Status = "alive"
	StatusStale Status = "stale"
	StatusDead  Status = "dead"
)

// DefaultInterval is how often a Writer refreshes the file.
const DefaultInterval = 30 * time.Second

// Heartbeat is the content of the gateway file.
type Heartbeat struct {
	PID         int       `json:"pid"`
	Addr        string    `json:"addr"`
	Environment string    `json:"environment,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// Uptime is the gateway's age at the last heartbeat.
func (h Heartbeat) Uptime() time.Duration {
	return h.Timestamp.Sub(h.StartedAt).Truncate(time.Second)
}

// Path returns the gateway file: $TODOIA_PATH/gateway.json.
func Path() string {
	return filepath.Join(config.HomePath(), "gateway.json")
}

// Writer keeps the gateway file fresh while the gateway runs.
type Writer struct {
	path     string
	interval time.Duration
	info     Heartbeat

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWriter creates a writer describing a gateway listening on addr.
func NewWriter(path, addr, environment string) *Writer {
	return &Writer{
		path:     path,
		interval: DefaultInterval,
		info:     Heartbeat{PID: os.Getpid(), Addr: addr, Environment: environment},
	}
}

// Start writes the file once, failing if that write fails, then refreshes
// it every interval until ctx is done or Stop is called.
func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}

	w.info.StartedAt = time.Now()
	if err := w.write(); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := w.write(); err != nil {
					slog.Warn("heartbeat write failed", "path", w.path, "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop halts the refresh loop and removes the file.
func (w *Writer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	_ = os.Remove(w.path)
}

func (w *Writer) write() error {
	hb := w.info
	hb.Timestamp = time.Now()

	data, err := json.MarshalIndent(hb, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		return fmt.Errorf("create heartbeat dir: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return os.Rename(tmp, w.path)
}

// Check reads the gateway file. A heartbeat older than maxAge is stale; a
// missing file means no gateway runs.
func Check(path string, maxAge time.Duration) (Status, *Heartbeat, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return StatusDead, nil, nil
	}
	if err != nil {
		return StatusDead, nil, fmt.Errorf("read heartbeat: %w", err)
	}

	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return StatusDead, nil, fmt.Errorf("unmarshal heartbeat: %w", err)
	}
	if time.Since(hb.Timestamp) > maxAge {
		return StatusStale, &hb, nil
	}
	return StatusAlive, &hb, nil
}
