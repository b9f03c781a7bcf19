package model

import "testing"

func TestParseRooms(t *testing.T) {
	rooms, err := ParseRooms(" R1:Garden:120.50:900, R2:Loft:150:1100 ,")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != "R1" || rooms[0].Rate.Hourly.String() != "120.5" || !rooms[1].Active {
		t.Fatalf("unexpected rooms %+v", rooms)
	}

	for _, bad := range []string{"R1:Garden:120", "R1:Garden:x:900", "R1:a:1:1,R1:b:2:2", ":a:1:1", "R1:a:-1:1"} {
		if _, err := ParseRooms(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
