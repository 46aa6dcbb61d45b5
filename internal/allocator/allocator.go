package allocator

import (
	"fmt"
	"time"

	"github.com/Domenick1991/tablebooking/internal/domain"
)

type FailureReason string

const (
	ReasonNoZoneConfigured   FailureReason = "no_zone_configured"
	ReasonNoCapacityInZone   FailureReason = "no_capacity_in_zone"
	ReasonNoCapacityAnywhere FailureReason = "no_capacity_anywhere"
)

// Failure is the expected "no tables available" outcome. It is an
// error so callers can return it up the stack, but it is a normal
// user-facing result, not a fault.
type Failure struct {
	Reason FailureReason
	Zone   domain.Zone
	Guests int
}

func (f *Failure) Error() string {
	switch f.Reason {
	case ReasonNoZoneConfigured:
		return fmt.Sprintf("no tables configured in zone %q", f.Zone)
	case ReasonNoCapacityInZone:
		return fmt.Sprintf("no %s table available for %d guests", f.Zone, f.Guests)
	default:
		return fmt.Sprintf("no table available for %d guests", f.Guests)
	}
}

type Assignment struct {
	TableID string
	Zone    domain.Zone
}

type Request struct {
	Guests          int
	PreferredZone   *domain.Zone
	ReservationTime time.Time

	// ExcludeReservationID drops one confirmed reservation from the
	// projection, so an update does not conflict with itself.
	ExcludeReservationID string
}

// Project returns a copy of the inventory with every table flipped to
// available unless a confirmed reservation's occupancy window overlaps
// win. Stored availability flags describe "now" and are ignored here:
// the projection describes the requested instant.
func Project(inv domain.Inventory, confirmed []domain.Reservation, win domain.Window, excludeID string) domain.Inventory {
	projected := inv.Clone()
	for i := range projected.Interior {
		projected.Interior[i].IsAvailable = true
	}
	for i := range projected.Exterior {
		projected.Exterior[i].IsAvailable = true
	}
	for _, r := range confirmed {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if !r.Window().Overlaps(win) {
			continue
		}
		if t := projected.Table(r.TableZone, r.TableID); t != nil {
			t.IsAvailable = false
		}
	}
	return projected
}

// Allocate picks the best-fit table for the request, or reports a
// typed failure. Zone preference is strict: when a preferred zone is
// given and has no capacity, the other zone is never tried.
func Allocate(inv domain.Inventory, confirmed []domain.Reservation, req Request) (Assignment, error) {
	win := domain.NewWindow(req.ReservationTime)
	projected := Project(inv, confirmed, win, req.ExcludeReservationID)

	zones := []domain.Zone{domain.ZoneInterior, domain.ZoneExterior}
	if req.PreferredZone != nil {
		zones = []domain.Zone{*req.PreferredZone}
	}

	configured := false
	for _, zone := range zones {
		tables := projected.Tables(zone)
		if len(tables) == 0 {
			continue
		}
		configured = true
		if id, ok := bestFit(tables, req.Guests); ok {
			return Assignment{TableID: id, Zone: zone}, nil
		}
	}

	if !configured {
		zone := domain.Zone("")
		if req.PreferredZone != nil {
			zone = *req.PreferredZone
		}
		return Assignment{}, &Failure{Reason: ReasonNoZoneConfigured, Zone: zone, Guests: req.Guests}
	}
	if req.PreferredZone != nil {
		return Assignment{}, &Failure{Reason: ReasonNoCapacityInZone, Zone: *req.PreferredZone, Guests: req.Guests}
	}
	return Assignment{}, &Failure{Reason: ReasonNoCapacityAnywhere, Guests: req.Guests}
}

// bestFit returns the smallest adequate available table; ties go to
// the earlier table in the inventory ordering.
func bestFit(tables []domain.Table, guests int) (string, bool) {
	bestID := ""
	bestSlack := -1
	for _, t := range tables {
		if !t.IsAvailable || t.Seats < guests {
			continue
		}
		slack := t.Seats - guests
		if bestSlack < 0 || slack < bestSlack {
			bestID = t.ID
			bestSlack = slack
		}
	}
	return bestID, bestSlack >= 0
}
