package scheduler

import (
	"fmt"
	"time"

	cron "github.com/netresearch/go-cron"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CronExpr is a parsed five-field cron schedule ("*/15 * * * *") or a
// descriptor such as "@hourly".
type CronExpr struct {
	raw      string
	schedule cron.Schedule
}

// ParseCron parses a cron expression string.
func ParseCron(expr string) (*CronExpr, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	return &CronExpr{raw: expr, schedule: schedule}, nil
}

// Next returns the next activation time after t.
func (c *CronExpr) Next(t time.Time) time.Time {
	return c.schedule.Next(t)
}

// Matches reports whether t falls within the minute of an activation.
func (c *CronExpr) Matches(t time.Time) bool {
	truncated := t.Truncate(time.Minute)
	return c.schedule.Next(truncated.Add(-time.Second)).Equal(truncated)
}

func (c *CronExpr) String() string {
	return c.raw
}
