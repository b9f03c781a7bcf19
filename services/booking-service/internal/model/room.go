package model

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/shopspring/decimal"
)

// ParseRooms reads a comma separated room catalogue of "id:name:hourly:nightly" entries,
// e.g. "R1:Garden:120.50:900". Every parsed room is active.
func ParseRooms(raw string) ([]Room, error) {
	var rooms []Room
	seen := map[string]bool{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("room %q: want id:name:hourly:nightly", entry)
		}
		id := strings.TrimSpace(parts[0])
		if id == "" || seen[id] {
			return nil, fmt.Errorf("room %q: missing or duplicate id", entry)
		}
		hourly, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil || hourly.IsNegative() {
			return nil, fmt.Errorf("room %q: invalid hourly rate", entry)
		}
		nightly, err := decimal.NewFromString(strings.TrimSpace(parts[3]))
		if err != nil || nightly.IsNegative() {
			return nil, fmt.Errorf("room %q: invalid nightly rate", entry)
		}
		seen[id] = true
		rooms = append(rooms, Room{
			ID:     id,
			Name:   strings.TrimSpace(parts[1]),
			Rate:   availability.RoomRate{Hourly: hourly, Nightly: nightly},
			Active: true,
		})
	}
	return rooms, nil
}
