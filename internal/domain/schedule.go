package domain

import "time"

// ScheduleEntry records when a table-reservation pairing must flip
// occupied and available again. Retired entries (IsActive=false) are
// kept for audit, never deleted.
type ScheduleEntry struct {
	ReservationID  string
	TableID        string
	TableZone      Zone
	RestaurantID   string
	OccupiedFrom   time.Time
	AvailableAfter time.Time
	IsActive       bool
}

func (e ScheduleEntry) Window() Window {
	return Window{From: e.OccupiedFrom, Until: e.AvailableAfter}
}
