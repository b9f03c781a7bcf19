package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/auth"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"BOOKING_TIMEZONE", "CUSTOMER_BUFFER_MINUTES", "STAFF_BUFFER_MINUTES",
		"CUSTOMER_SLOT_PLAN", "STAFF_SLOT_PLAN", "DAY_CHECKIN", "DAY_CHECKOUT", "DAY_CHECKOUT_OFFSET_DAYS", "DEPOSIT_AMOUNT"} {
		t.Setenv(k, "")
	}
	p, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	ctx := context.Background()

	customer, err := p.PolicyFor(ctx, auth.RoleCustomer)
	if err != nil {
		t.Fatalf("customer: %v", err)
	}
	if customer.Buffer != 30*time.Minute || customer.Plan.String() != "06:00/30x48" {
		t.Fatalf("unexpected customer policy %+v", customer)
	}
	staff, _ := p.PolicyFor(ctx, auth.RoleStaff)
	if staff.Buffer != 0 || staff.Plan.String() != "08:00/75x10,20:30/630x1" {
		t.Fatalf("unexpected staff policy %+v", staff)
	}
	admin, _ := p.PolicyFor(ctx, auth.RoleAdmin)
	if admin.Role != auth.RoleAdmin || admin.Buffer != staff.Buffer {
		t.Fatalf("admin should share staff policy, got %+v", admin)
	}
	if customer.Location != time.UTC || customer.DayShape.CheckIn.Hour != 14 {
		t.Fatalf("unexpected day shape or location %+v", customer)
	}

	if _, err := p.PolicyFor(ctx, "guest"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BOOKING_TIMEZONE", "Asia/Ho_Chi_Minh")
	t.Setenv("CUSTOMER_BUFFER_MINUTES", "45")
	t.Setenv("CUSTOMER_SLOT_PLAN", "07:00/60x12")
	t.Setenv("DEPOSIT_AMOUNT", "100000")

	p, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	customer, _ := p.PolicyFor(context.Background(), auth.RoleCustomer)
	if customer.Buffer != 45*time.Minute || customer.Plan.String() != "07:00/60x12" {
		t.Fatalf("overrides not applied: %+v", customer)
	}
	if customer.Location.String() != "Asia/Ho_Chi_Minh" || customer.Deposit.String() != "100000" {
		t.Fatalf("unexpected location/deposit %s %s", customer.Location, customer.Deposit)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"CUSTOMER_BUFFER_MINUTES":  "-1",
		"STAFF_SLOT_PLAN":          "8am",
		"DAY_CHECKIN":              "25:00",
		"DAY_CHECKOUT_OFFSET_DAYS": "0",
		"DEPOSIT_AMOUNT":           "-5",
		"BOOKING_TIMEZONE":         "Mars/Base",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
