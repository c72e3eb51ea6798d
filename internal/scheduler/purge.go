package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dohr-michael/todoia/internal/events"
)

// PurgeJobName is the name of the expired-session purge job.
const PurgeJobName = "purge-expired-sessions"

// SessionPurger deletes auth sessions whose refresh token expired before now.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeSessions returns a job removing expired auth sessions. Each purge
// that removed something is announced on bus.
func PurgeSessions(p SessionPurger, bus *events.Bus) JobFunc {
	return func(ctx context.Context) error {
		n, err := p.PurgeExpired(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		if n == 0 {
			return nil
		}
		slog.Info("expired sessions purged", "count", n)
		if bus != nil {
			bus.Publish(events.NewTypedEvent(events.SourceScheduler, "", events.SessionsPurgedPayload{Count: n}))
		}
		return nil
	}
}
