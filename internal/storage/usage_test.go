package storage

import (
	"context"
	"testing"

	"github.com/dohr-michael/todoia/internal/events"
)

func TestUsageTracker_Accumulates(t *testing.T) {
	db := openMemory(t)
	bus := events.NewBus(64)
	defer bus.Close()

	ut := NewUsageTracker(db, bus)
	defer ut.Close()

	publish := func(owner string, p events.ModelCallPayload) {
		bus.Publish(events.NewTypedEvent(events.SourceModels, owner, p))
	}
	publish("alice", events.ModelCallPayload{Phase: events.PhaseRequest, Provider: "openai"})
	publish("alice", events.ModelCallPayload{Phase: events.PhaseResponse, Provider: "openai", TokensInput: 10, TokensOutput: 4})
	publish("alice", events.ModelCallPayload{Phase: events.PhaseResponse, Provider: "openai", TokensInput: 5, TokensOutput: 1})
	publish("bob", events.ModelCallPayload{Phase: events.PhaseResponse, Provider: "ollama", TokensInput: 2})
	publish("alice", events.ModelCallPayload{Phase: events.PhaseError, Provider: "openai", Error: "boom"})

	ctx := context.Background()
	waitFor(t, func() bool {
		rows, err := ListUsage(ctx, db, "")
		if err != nil {
			t.Fatal(err)
		}
		total := int64(0)
		for _, r := range rows {
			total += r.Calls
		}
		return total == 3
	})

	rows, err := ListUsage(ctx, db, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	r := rows[0]
	if r.Provider != "openai" || r.Calls != 2 || r.TokensInput != 15 || r.TokensOutput != 5 {
		t.Errorf("unexpected usage %+v", r)
	}
}
