package scheduler

import (
	"testing"
	"time"
)

func TestParseCron_Invalid(t *testing.T) {
	if _, err := ParseCron("every quarter hour"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestCronExpr_Next(t *testing.T) {
	expr, err := ParseCron("*/15 * * * *")
	if err != nil {
		t.Fatalf("ParseCron: %v", err)
	}
	if expr.String() != "*/15 * * * *" {
		t.Fatalf("unexpected raw %q", expr.String())
	}

	base := time.Date(2026, 3, 1, 10, 7, 30, 0, time.UTC)
	want := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	if got := expr.Next(base); !got.Equal(want) {
		t.Fatalf("expected next %v, got %v", want, got)
	}
}

func TestCronExpr_Descriptor(t *testing.T) {
	expr, err := ParseCron("@hourly")
	if err != nil {
		t.Fatalf("ParseCron: %v", err)
	}
	if !expr.Matches(time.Date(2026, 3, 1, 9, 0, 20, 0, time.UTC)) {
		t.Fatal("expected @hourly to match 09:00")
	}
	if expr.Matches(time.Date(2026, 3, 1, 9, 1, 0, 0, time.UTC)) {
		t.Fatal("expected @hourly not to match 09:01")
	}
}

func TestCronExpr_MatchesWholeMinute(t *testing.T) {
	expr, err := ParseCron("30 3 * * *")
	if err != nil {
		t.Fatalf("ParseCron: %v", err)
	}

	if !expr.Matches(time.Date(2026, 3, 1, 3, 30, 0, 0, time.UTC)) {
		t.Fatal("expected match at 03:30:00")
	}
	if !expr.Matches(time.Date(2026, 3, 1, 3, 30, 59, 0, time.UTC)) {
		t.Fatal("expected match at 03:30:59")
	}
	if expr.Matches(time.Date(2026, 3, 1, 3, 31, 0, 0, time.UTC)) {
		t.Fatal("expected no match at 03:31")
	}
}
