package enhance

import (
	"context"
	"errors"
	"sync"
)

// Target is the draft field an improvement request writes into.
type Target string

const (
	TargetNew  Target = "new"
	TargetEdit Target = "edit"
)

// Outcome is the settled result of a request that is still current.
type Outcome struct {
	Target Target
	Text   string
	Err    error
}

type live struct {
	gen    uint64
	cancel context.CancelFunc
}

// Tracker keeps at most one live request per target. Starting a request
// cancels the previous one for the same target, and results of superseded
// or canceled requests are never reported.
type Tracker struct {
	mu   sync.Mutex
	gen  uint64
	live map[Target]live
}

func NewTracker() *Tracker {
	return &Tracker{live: make(map[Target]live)}
}

// Ticket identifies one started request.
type Ticket struct {
	tracker *Tracker
	target  Target
	gen     uint64
}

// Start registers a new request for target and returns the context it must
// run under.
func (t *Tracker) Start(parent context.Context, target Target) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.live[target]; ok {
		prev.cancel()
	}
	t.gen++
	t.live[target] = live{gen: t.gen, cancel: cancel}
	return ctx, &Ticket{tracker: t, target: target, gen: t.gen}
}

// Cancel aborts the live request for target. It reports whether one existed.
func (t *Tracker) Cancel(target Target) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.live[target]
	if ok {
		prev.cancel()
		delete(t.live, target)
	}
	return ok
}

// Busy reports whether target has a live request.
func (t *Tracker) Busy(target Target) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.live[target]
	return ok
}

// Finish settles the ticket. ok is false when the request was superseded or
// canceled; the result must then be dropped without being shown.
func (k *Ticket) Finish(text string, err error) (Outcome, bool) {
	t := k.tracker
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.live[k.target]
	if !ok || cur.gen != k.gen {
		return Outcome{}, false
	}
	delete(t.live, k.target)
	cur.cancel()

	if errors.Is(err, context.Canceled) {
		return Outcome{}, false
	}
	return Outcome{Target: k.target, Text: text, Err: err}, true
}

// Run starts a request for target, runs fn under its context and settles it.
func (t *Tracker) Run(ctx context.Context, target Target, fn func(context.Context) (string, error)) (Outcome, bool) {
	runCtx, ticket := t.Start(ctx, target)
	text, err := fn(runCtx)
	return ticket.Finish(text, err)
}
