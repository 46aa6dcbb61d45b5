package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/tablebooking/internal/allocator"
	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/Domenick1991/tablebooking/internal/kafka"
	"github.com/Domenick1991/tablebooking/internal/repository"
	"github.com/google/uuid"
)

// ErrInvalidTransition is returned for non-idempotent operations on a
// reservation whose status does not allow them.
var ErrInvalidTransition = errors.New("invalid reservation transition")

type ReservationUseCase interface {
	CreateReservation(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error)
	CancelReservation(ctx context.Context, id string) (*domain.Reservation, error)
	UpdateReservation(ctx context.Context, id string, input UpdateReservationInput) (*domain.Reservation, error)
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
}

type Cache interface {
	AcquireTableLock(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, ttl time.Duration) (bool, error)
	ReleaseTableLock(ctx context.Context, restaurantID string, zone domain.Zone, tableID string) error
	InvalidateInventory(ctx context.Context, restaurantID string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// FlagWriter is the availability flag ladder. It reports success as a
// bool: a false return is logged and absorbed, never propagated, since
// the sweeper self-heals stale flags.
type FlagWriter interface {
	SetAvailability(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) bool
}

type Service struct {
	reservations repository.ReservationRepository
	schedule     repository.ScheduleRepository
	inventory    repository.InventoryRepository
	flags        FlagWriter
	cache        Cache
	producer     Producer

	reservationTopic   string
	notificationsTopic string
	lockTTL            time.Duration
	clock              domain.Clock
}

type CreateReservationInput struct {
	RestaurantID    string       `json:"restaurant_id"`
	UserID          string       `json:"user_id"`
	ReservationTime time.Time    `json:"reservation_time"`
	Guests          int          `json:"guests"`
	PreferredZone   *domain.Zone `json:"preferred_zone,omitempty"`
	SpecialRequests string       `json:"special_requests,omitempty"`
}

type UpdateReservationInput struct {
	ReservationTime time.Time `json:"reservation_time"`
	Guests          int       `json:"guests"`
}

type ServiceOption func(*Service)

func WithNotificationsTopic(topic string) ServiceOption {
	return func(s *Service) {
		s.notificationsTopic = topic
	}
}

func WithClock(clock domain.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

func NewService(
	reservations repository.ReservationRepository,
	schedule repository.ScheduleRepository,
	inventory repository.InventoryRepository,
	flags FlagWriter,
	cache Cache,
	producer Producer,
	reservationTopic string,
	lockTTL time.Duration,
	opts ...ServiceOption,
) *Service {
	service := &Service{
		reservations:     reservations,
		schedule:         schedule,
		inventory:        inventory,
		flags:            flags,
		cache:            cache,
		producer:         producer,
		reservationTopic: reservationTopic,
		lockTTL:          lockTTL,
		clock:            domain.SystemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateReservation allocates a table and lands the reservation
// directly in CONFIRMED. After the row is persisted there is no
// rollback: ledger and flag writes are best-effort and the sweeper
// reconciles anything they miss.
func (s *Service) CreateReservation(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error) {
	if input.RestaurantID == "" {
		return nil, errors.New("restaurant id is required")
	}
	if input.UserID == "" {
		return nil, errors.New("user id is required")
	}
	if input.Guests <= 0 {
		return nil, errors.New("guests must be positive")
	}
	if input.ReservationTime.IsZero() {
		return nil, errors.New("reservation time is required")
	}

	inv, _, err := s.inventory.GetInventory(ctx, input.RestaurantID)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.reservations.ListConfirmed(ctx, input.RestaurantID)
	if err != nil {
		return nil, err
	}

	assignment, err := allocator.Allocate(inv, confirmed, allocator.Request{
		Guests:          input.Guests,
		PreferredZone:   input.PreferredZone,
		ReservationTime: input.ReservationTime,
	})
	if err != nil {
		return nil, err
	}

	locked := false
	if s.cache != nil {
		ok, err := s.cache.AcquireTableLock(ctx, input.RestaurantID, assignment.Zone, assignment.TableID, s.lockTTL)
		if err != nil {
			log.Printf("reservation: table lock failed, proceeding unlocked: %v", err)
		} else if !ok {
			return nil, fmt.Errorf("table %s is already being booked", assignment.TableID)
		} else {
			locked = true
		}
	}

	res := &domain.Reservation{
		ID:              uuid.NewString(),
		RestaurantID:    input.RestaurantID,
		UserID:          input.UserID,
		ReservationTime: input.ReservationTime,
		Guests:          input.Guests,
		Status:          domain.ReservationStatusConfirmed,
		TableID:         assignment.TableID,
		TableZone:       assignment.Zone,
		PreferredZone:   input.PreferredZone,
		SpecialRequests: input.SpecialRequests,
	}

	if err := s.reservations.Insert(ctx, res); err != nil {
		if locked {
			_ = s.cache.ReleaseTableLock(ctx, input.RestaurantID, assignment.Zone, assignment.TableID)
		}
		return nil, err
	}
	if locked {
		// Once the row is visible to ListConfirmed the lock has done its job.
		_ = s.cache.ReleaseTableLock(ctx, input.RestaurantID, assignment.Zone, assignment.TableID)
	}

	window := res.Window()
	if err := s.schedule.Upsert(ctx, domain.ScheduleEntry{
		ReservationID:  res.ID,
		TableID:        res.TableID,
		TableZone:      res.TableZone,
		RestaurantID:   res.RestaurantID,
		OccupiedFrom:   window.From,
		AvailableAfter: window.Until,
		IsActive:       true,
	}); err != nil {
		log.Printf("WARNING: schedule entry write failed for reservation %s: %v", res.ID, err)
	}

	// Walk-in style booking: the table is occupied right now, so the
	// flag flips immediately instead of waiting for the sweeper.
	if window.Contains(s.clock.Now()) {
		s.setFlag(ctx, res.RestaurantID, res.TableZone, res.TableID, false)
	}

	s.publish(ctx, "reservation_created", res)
	return res, nil
}

// CancelReservation is idempotent: cancelling an already cancelled or
// completed reservation returns the record unchanged.
func (s *Service) CancelReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	current, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.ReservationStatusCancelled || current.Status == domain.ReservationStatusCompleted {
		return current, nil
	}

	updated, err := s.reservations.UpdateStatus(ctx, id, domain.ReservationStatusCancelled)
	if err != nil {
		return nil, err
	}
	if err := s.schedule.RetireByReservation(ctx, id); err != nil {
		log.Printf("WARNING: failed to retire schedule entries for reservation %s: %v", id, err)
	}

	// Only free the table if its window is open right now; a future
	// reservation never held the flag in the first place.
	if updated.Window().Contains(s.clock.Now()) {
		s.setFlag(ctx, updated.RestaurantID, updated.TableZone, updated.TableID, true)
	}

	s.publish(ctx, "reservation_cancelled", updated)
	return updated, nil
}

// UpdateReservation moves a confirmed reservation to a new time or
// party size. Allocation is re-run against the new window with the
// reservation itself excluded, so a conflicting change is rejected
// with a typed allocation failure instead of silently accepted.
func (s *Service) UpdateReservation(ctx context.Context, id string, input UpdateReservationInput) (*domain.Reservation, error) {
	if input.Guests <= 0 {
		return nil, errors.New("guests must be positive")
	}
	if input.ReservationTime.IsZero() {
		return nil, errors.New("reservation time is required")
	}

	current, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.ReservationStatusConfirmed && current.Status != domain.ReservationStatusPending {
		return nil, fmt.Errorf("%w: cannot update %s reservation", ErrInvalidTransition, current.Status)
	}

	inv, _, err := s.inventory.GetInventory(ctx, current.RestaurantID)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.reservations.ListConfirmed(ctx, current.RestaurantID)
	if err != nil {
		return nil, err
	}

	assignment, err := allocator.Allocate(inv, confirmed, allocator.Request{
		Guests:               input.Guests,
		PreferredZone:        current.PreferredZone,
		ReservationTime:      input.ReservationTime,
		ExcludeReservationID: current.ID,
	})
	if err != nil {
		return nil, err
	}

	oldWindow := current.Window()
	oldTableID, oldZone := current.TableID, current.TableZone

	next := *current
	next.ReservationTime = input.ReservationTime
	next.Guests = input.Guests
	next.TableID = assignment.TableID
	next.TableZone = assignment.Zone

	updated, err := s.reservations.UpdateDetails(ctx, &next)
	if err != nil {
		return nil, err
	}

	if assignment.TableID != oldTableID || assignment.Zone != oldZone {
		if err := s.schedule.RetireByReservation(ctx, id); err != nil {
			log.Printf("WARNING: failed to retire schedule entries for reservation %s: %v", id, err)
		}
	}
	window := updated.Window()
	if err := s.schedule.Upsert(ctx, domain.ScheduleEntry{
		ReservationID:  updated.ID,
		TableID:        updated.TableID,
		TableZone:      updated.TableZone,
		RestaurantID:   updated.RestaurantID,
		OccupiedFrom:   window.From,
		AvailableAfter: window.Until,
		IsActive:       true,
	}); err != nil {
		log.Printf("WARNING: schedule entry write failed for reservation %s: %v", updated.ID, err)
	}

	now := s.clock.Now()
	if oldWindow.Contains(now) {
		s.setFlag(ctx, updated.RestaurantID, oldZone, oldTableID, true)
	}
	if window.Contains(now) {
		s.setFlag(ctx, updated.RestaurantID, updated.TableZone, updated.TableID, false)
	}

	s.publish(ctx, "reservation_updated", updated)
	return updated, nil
}

func (s *Service) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// setFlag absorbs flag-write failure: a stale flag is a recoverable,
// sweeper-healed inconsistency, losing the reservation record is not.
func (s *Service) setFlag(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) {
	if s.flags == nil {
		return
	}
	if !s.flags.SetAvailability(ctx, restaurantID, zone, tableID, available) {
		log.Printf("WARNING: availability write exhausted all tiers for table %s/%s/%s, sweeper will reconcile", restaurantID, zone, tableID)
		return
	}
	if s.cache != nil {
		_ = s.cache.InvalidateInventory(ctx, restaurantID)
	}
}

func (s *Service) publish(ctx context.Context, eventType string, res *domain.Reservation) {
	if s.producer == nil || s.reservationTopic == "" {
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
	if err := s.producer.Publish(ctx, s.reservationTopic, res.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for reservation %s: %v", eventType, res.ID, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, res.ID, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for reservation %s: %v", eventType, res.ID, err)
		}
	}
}

var _ ReservationUseCase = (*Service)(nil)
