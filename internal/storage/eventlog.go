package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dohr-michael/todoia/internal/events"
)

// EventLogger persists bus events to JSONL files, one file per owner.
// Ownerless events go to _global.jsonl.
type EventLogger struct {
	dir         string
	mu          sync.Mutex
	unsubscribe func()
}

// NewEventLogger creates an EventLogger that subscribes to all bus events
// and writes them to dir.
func NewEventLogger(dir string, bus *events.Bus) *EventLogger {
	el := &EventLogger{dir: dir}
	el.unsubscribe = bus.Subscribe(el.handleEvent)
	return el
}

// Close unsubscribes the logger from the event bus.
func (el *EventLogger) Close() {
	if el.unsubscribe != nil {
		el.unsubscribe()
	}
}

func (el *EventLogger) handleEvent(e events.Event) {
	switch e.Type {
	case events.EventModelCall:
		// The response phase carries the same call with its usage.
		if phase, _ := e.Payload["phase"].(string); phase == events.PhaseRequest {
			return
		}
	case events.EventChatMessage:
		// Message bodies stay in chat_histories.
		e.Payload = redact(e.Payload, "content")
	}
	if err := el.writeEvent(e); err != nil {
		slog.Warn("event log write failed", "type", e.Type, "error", err)
	}
}

func redact(payload map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func (el *EventLogger) writeEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()

	if err := os.MkdirAll(el.dir, 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(el.logPath(e.Owner), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

func (el *EventLogger) logPath(owner string) string {
	if owner == "" {
		return filepath.Join(el.dir, "_global.jsonl")
	}
	return filepath.Join(el.dir, filepath.Base(owner)+".jsonl")
}
