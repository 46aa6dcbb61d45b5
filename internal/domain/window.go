package domain

import "time"

// A reserved table is held for one hour before the booked time and
// considered occupied for two hours after it.
const (
	HoldBefore  = time.Hour
	OccupyAfter = 2 * time.Hour
)

// Window is the occupancy interval derived from a reservation time.
// It is half-open: [From, Until).
type Window struct {
	From  time.Time
	Until time.Time
}

func NewWindow(reservationTime time.Time) Window {
	return Window{
		From:  reservationTime.Add(-HoldBefore),
		Until: reservationTime.Add(OccupyAfter),
	}
}

func (w Window) Overlaps(other Window) bool {
	return w.From.Before(other.Until) && other.From.Before(w.Until)
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.Until)
}
