package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/auth"
	"github.com/md-rashed-zaman/staybook/libs/config"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/shopspring/decimal"
)

var ErrUnknownRole = errors.New("unknown role")

// Policy is the booking configuration applied to one caller role.
type Policy struct {
	Role     string
	Buffer   time.Duration
	Plan     availability.Plan
	DayShape availability.DayShape
	Location *time.Location
	Deposit  decimal.Decimal
}

type Provider interface {
	PolicyFor(ctx context.Context, role string) (Policy, error)
}

type staticProvider struct {
	byRole map[string]Policy
}

func NewStaticProvider(policies ...Policy) Provider {
	p := &staticProvider{byRole: make(map[string]Policy, len(policies))}
	for _, pol := range policies {
		p.byRole[pol.Role] = pol
	}
	return p
}

func (p *staticProvider) PolicyFor(_ context.Context, role string) (Policy, error) {
	pol, ok := p.byRole[role]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return pol, nil
}

// FromEnv builds the customer, staff and admin policies. Admins share the staff policy.
func FromEnv() (Provider, error) {
	loc, err := time.LoadLocation(config.String("BOOKING_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("BOOKING_TIMEZONE: %w", err)
	}
	shape, err := dayShapeFromEnv()
	if err != nil {
		return nil, err
	}
	deposit, err := decimal.NewFromString(config.String("DEPOSIT_AMOUNT", "0"))
	if err != nil || deposit.IsNegative() {
		return nil, fmt.Errorf("DEPOSIT_AMOUNT must be a non-negative amount")
	}

	customer, err := roleFromEnv(auth.RoleCustomer, "CUSTOMER", 30, "06:00/30x48")
	if err != nil {
		return nil, err
	}
	staff, err := roleFromEnv(auth.RoleStaff, "STAFF", 0, "08:00/75x10,20:30/630x1")
	if err != nil {
		return nil, err
	}
	for _, p := range []*Policy{&customer, &staff} {
		p.DayShape = shape
		p.Location = loc
		p.Deposit = deposit
	}
	admin := staff
	admin.Role = auth.RoleAdmin
	return NewStaticProvider(customer, staff, admin), nil
}

func roleFromEnv(role, prefix string, bufferMinutes int, plan string) (Policy, error) {
	buffer, err := config.Minutes(prefix+"_BUFFER_MINUTES", bufferMinutes)
	if err != nil {
		return Policy{}, err
	}
	p, err := availability.ParsePlan(config.String(prefix+"_SLOT_PLAN", plan))
	if err != nil {
		return Policy{}, fmt.Errorf("%s_SLOT_PLAN: %w", prefix, err)
	}
	return Policy{Role: role, Buffer: buffer, Plan: p}, nil
}

func dayShapeFromEnv() (availability.DayShape, error) {
	def := availability.DefaultDayShape
	in, err := availability.ParseClock(config.String("DAY_CHECKIN", def.CheckIn.String()))
	if err != nil {
		return def, fmt.Errorf("DAY_CHECKIN: %w", err)
	}
	out, err := availability.ParseClock(config.String("DAY_CHECKOUT", def.CheckOut.String()))
	if err != nil {
		return def, fmt.Errorf("DAY_CHECKOUT: %w", err)
	}
	offset, err := config.Int("DAY_CHECKOUT_OFFSET_DAYS", def.CheckOutOffsetDays)
	if err != nil {
		return def, err
	}
	shape := availability.DayShape{CheckIn: in, CheckOut: out, CheckOutOffsetDays: offset}
	probe := availability.DayInterval(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), shape)
	if offset < 0 || !probe.End.After(probe.Start) {
		return def, fmt.Errorf("day check-out must come after check-in")
	}
	return shape, nil
}
