package main

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSlotsCommandRollsOverMidnight(t *testing.T) {
	out, err := run(t, "slots", "--date", "2024-01-01", "--plan", "22:30/510x1", "--tz", "UTC")
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if !strings.Contains(out, "2024-01-01T22:30:00Z") || !strings.Contains(out, "2024-01-02T07:00:00Z") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, err := run(t, "slots", "--plan", "06:00/30x48"); err == nil {
		t.Fatal("expected error without --date")
	}
}

func TestQuoteCommand(t *testing.T) {
	for _, k := range []string{"BOOKING_TIMEZONE", "DAY_CHECKIN", "DAY_CHECKOUT", "DAY_CHECKOUT_OFFSET_DAYS"} {
		t.Setenv(k, "")
	}
	t.Setenv("DEPOSIT_AMOUNT", "100")
	out, err := run(t, "quote", "--kind", "hour",
		"--start", "2024-01-01T09:00:00Z", "--end", "2024-01-01T10:01:00Z", "--hourly", "120.50")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	for _, want := range []string{"total:   241.00", "deposit: 100.00", "balance: 141.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	out, err = run(t, "quote", "--kind", "day", "--date", "2024-01-02", "--nightly", "900")
	if err != nil {
		t.Fatalf("day quote: %v", err)
	}
	if !strings.Contains(out, "total:   900.00") || !strings.Contains(out, "2024-01-03T12:00:00Z") {
		t.Fatalf("unexpected day quote:\n%s", out)
	}
}

func TestMigrateDryRun(t *testing.T) {
	out, err := run(t, "migrate", "--dry-run")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.HasPrefix(out, "001_rooms_bookings.sql") {
		t.Fatalf("unexpected output %q", out)
	}
}
