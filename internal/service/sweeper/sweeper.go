package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/Domenick1991/tablebooking/internal/kafka"
	"github.com/Domenick1991/tablebooking/internal/repository"
)

type FlagWriter interface {
	SetAvailability(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) bool
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Sweeper is the periodic reconciliation job. Two independent timers
// drive it: a slower expiry pass completing reservations whose window
// has fully elapsed, and a faster schedule pass applying the ledger to
// the availability flags and healing any flag a failed write left
// stale. Both passes are idempotent fixed points: a second run with no
// intervening state change does nothing.
type Sweeper struct {
	reservations repository.ReservationRepository
	schedule     repository.ScheduleRepository
	inventory    repository.InventoryRepository
	flags        FlagWriter
	producer     Producer
	eventsTopic  string
	clock        domain.Clock

	expiryInterval   time.Duration
	scheduleInterval time.Duration
	expiryGuard      *passGuard
	scheduleGuard    *passGuard
}

type Option func(*Sweeper)

func WithClock(clock domain.Clock) Option {
	return func(s *Sweeper) {
		s.clock = clock
	}
}

func WithProducer(producer Producer, eventsTopic string) Option {
	return func(s *Sweeper) {
		s.producer = producer
		s.eventsTopic = eventsTopic
	}
}

func New(
	reservations repository.ReservationRepository,
	schedule repository.ScheduleRepository,
	inventory repository.InventoryRepository,
	flags FlagWriter,
	expiryInterval, scheduleInterval time.Duration,
	opts ...Option,
) *Sweeper {
	s := &Sweeper{
		reservations:     reservations,
		schedule:         schedule,
		inventory:        inventory,
		flags:            flags,
		clock:            domain.SystemClock{},
		expiryInterval:   expiryInterval,
		scheduleInterval: scheduleInterval,
		expiryGuard:      newPassGuard(expiryInterval / 2),
		scheduleGuard:    newPassGuard(scheduleInterval / 2),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until the context is cancelled. The two timers are not
// coordinated with each other; only same-timer overlap is guarded.
func (s *Sweeper) Run(ctx context.Context) error {
	expiry := time.NewTicker(s.expiryInterval)
	defer expiry.Stop()
	schedule := time.NewTicker(s.scheduleInterval)
	defer schedule.Stop()

	// kick immediately
	s.RunExpiryPass(ctx)
	s.RunSchedulePass(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expiry.C:
			s.RunExpiryPass(ctx)
		case <-schedule.C:
			s.RunSchedulePass(ctx)
		}
	}
}

// RunExpiryPass completes every confirmed reservation whose occupancy
// window has fully elapsed and frees its table.
func (s *Sweeper) RunExpiryPass(ctx context.Context) {
	now := s.clock.Now()
	if !s.expiryGuard.begin(now) {
		return
	}
	defer s.expiryGuard.end()

	confirmed, err := s.reservations.ListAllConfirmed(ctx)
	if err != nil {
		log.Printf("sweeper: list confirmed reservations failed: %v", err)
		return
	}

	completed := 0
	for i := range confirmed {
		r := &confirmed[i]
		if !now.After(r.Window().Until) {
			continue
		}
		if err := s.complete(ctx, r); err != nil {
			log.Printf("sweeper: complete reservation %s failed: %v", r.ID, err)
			continue
		}
		completed++
	}
	if completed > 0 {
		log.Printf("sweeper: completed %d reservations", completed)
	}
}

func (s *Sweeper) complete(ctx context.Context, r *domain.Reservation) error {
	updated, err := s.reservations.UpdateStatus(ctx, r.ID, domain.ReservationStatusCompleted)
	if err != nil {
		return err
	}
	if !s.flags.SetAvailability(ctx, updated.RestaurantID, updated.TableZone, updated.TableID, true) {
		log.Printf("sweeper: could not free table %s/%s/%s, will retry next pass", updated.RestaurantID, updated.TableZone, updated.TableID)
	}
	if err := s.schedule.RetireByReservation(ctx, updated.ID); err != nil {
		log.Printf("sweeper: retire schedule entries for %s failed: %v", updated.ID, err)
	}
	s.publish(ctx, "reservation_completed", updated)
	return nil
}

// RunSchedulePass walks every active ledger entry and reconciles the
// table flags with the clock: open windows occupy, future windows
// release an overeager flag, elapsed windows complete, and entries for
// reservations cancelled out-of-band free the table and retire. A
// single entry failing never stops the pass.
func (s *Sweeper) RunSchedulePass(ctx context.Context) {
	now := s.clock.Now()
	if !s.scheduleGuard.begin(now) {
		return
	}
	defer s.scheduleGuard.end()

	entries, err := s.schedule.ListActive(ctx)
	if err != nil {
		log.Printf("sweeper: list active schedule entries failed: %v", err)
		return
	}

	// Tables some active entry is holding right now. A future entry
	// must not release a table another reservation currently occupies.
	occupiedNow := make(map[string]bool)
	for _, e := range entries {
		if e.Window().Contains(now) {
			occupiedNow[tableKey(e)] = true
		}
	}

	inventories := make(map[string]*domain.Inventory)
	for _, e := range entries {
		if err := s.applyEntry(ctx, e, now, inventories, occupiedNow); err != nil {
			log.Printf("sweeper: schedule entry for reservation %s: %v", e.ReservationID, err)
		}
	}
}

func (s *Sweeper) applyEntry(ctx context.Context, e domain.ScheduleEntry, now time.Time, inventories map[string]*domain.Inventory, occupiedNow map[string]bool) error {
	res, err := s.reservations.GetByID(ctx, e.ReservationID)
	if err != nil {
		if !errors.Is(err, repository.ErrReservationNotFound) {
			return err
		}
		res = nil
	}

	// Reservation gone or no longer confirmed: free whatever this
	// entry is holding and retire it.
	if res == nil || res.Status != domain.ReservationStatusConfirmed {
		if e.Window().Contains(now) {
			s.setFlag(ctx, e, true, inventories)
		}
		return s.schedule.RetireByReservation(ctx, e.ReservationID)
	}

	window := e.Window()
	switch {
	case now.After(window.Until):
		return s.complete(ctx, res)

	case window.Contains(now):
		table, err := s.lookupTable(ctx, e, inventories)
		if err != nil {
			return err
		}
		// Window open but table still marked free: heals a missed or
		// failed create-time write.
		if table != nil && table.IsAvailable {
			s.setFlag(ctx, e, false, inventories)
		}

	case now.Before(window.From):
		table, err := s.lookupTable(ctx, e, inventories)
		if err != nil {
			return err
		}
		// Fully-future reservation holding the flag: release it,
		// unless some other open window occupies the table.
		if table != nil && !table.IsAvailable && !occupiedNow[tableKey(e)] {
			s.setFlag(ctx, e, true, inventories)
		}
	}
	return nil
}

func (s *Sweeper) lookupTable(ctx context.Context, e domain.ScheduleEntry, inventories map[string]*domain.Inventory) (*domain.Table, error) {
	inv, ok := inventories[e.RestaurantID]
	if !ok {
		loaded, _, err := s.inventory.GetInventory(ctx, e.RestaurantID)
		if err != nil {
			return nil, err
		}
		inv = &loaded
		inventories[e.RestaurantID] = inv
	}
	return inv.Table(e.TableZone, e.TableID), nil
}

// setFlag writes through the ladder and mirrors a successful write
// into the pass-local inventory view, so later entries in the same
// pass see the updated flag and the pass converges.
func (s *Sweeper) setFlag(ctx context.Context, e domain.ScheduleEntry, available bool, inventories map[string]*domain.Inventory) {
	if !s.flags.SetAvailability(ctx, e.RestaurantID, e.TableZone, e.TableID, available) {
		log.Printf("sweeper: availability write failed for table %s/%s/%s, will retry next pass", e.RestaurantID, e.TableZone, e.TableID)
		return
	}
	if inv, ok := inventories[e.RestaurantID]; ok {
		if table := inv.Table(e.TableZone, e.TableID); table != nil {
			table.IsAvailable = available
		}
	}
}

func (s *Sweeper) publish(ctx context.Context, eventType string, res *domain.Reservation) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.ReservationEvent{
		Type:            eventType,
		ReservationID:   res.ID,
		RestaurantID:    res.RestaurantID,
		UserID:          res.UserID,
		TableID:         res.TableID,
		TableZone:       string(res.TableZone),
		Guests:          res.Guests,
		Status:          string(res.Status),
		ReservationTime: res.ReservationTime,
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, res.ID, event); err != nil {
		log.Printf("sweeper: publish %s event for reservation %s failed: %v", eventType, res.ID, err)
	}
}

func tableKey(e domain.ScheduleEntry) string {
	return fmt.Sprintf("%s|%s|%s", e.RestaurantID, e.TableZone, e.TableID)
}
