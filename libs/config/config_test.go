package config

import (
	"testing"
	"time"
)

func TestMinutes(t *testing.T) {
	t.Setenv("BUFFER_MINUTES", "45")
	d, err := Minutes("BUFFER_MINUTES", 30)
	if err != nil || d != 45*time.Minute {
		t.Fatalf("expected 45m, got %s (err=%v)", d, err)
	}

	t.Setenv("BUFFER_MINUTES", "")
	d, err = Minutes("BUFFER_MINUTES", 30)
	if err != nil || d != 30*time.Minute {
		t.Fatalf("expected fallback 30m, got %s (err=%v)", d, err)
	}

	t.Setenv("BUFFER_MINUTES", "-5")
	if _, err := Minutes("BUFFER_MINUTES", 30); err == nil {
		t.Fatal("expected error for negative minutes")
	}
	t.Setenv("BUFFER_MINUTES", "soon")
	if _, err := Minutes("BUFFER_MINUTES", 30); err == nil {
		t.Fatal("expected error for non-numeric minutes")
	}
}

func TestListAndBool(t *testing.T) {
	t.Setenv("ORIGINS", " http://a.test, ,http://b.test ")
	got := List("ORIGINS")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected list %v", got)
	}

	t.Setenv("FLAG", "off")
	if Bool("FLAG", true) {
		t.Fatal("expected false")
	}
	t.Setenv("FLAG", "maybe")
	if !Bool("FLAG", true) {
		t.Fatal("expected fallback for unknown value")
	}
}

func TestPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Port("PORT", "8083"); err == nil {
		t.Fatal("expected invalid port error")
	}
}
