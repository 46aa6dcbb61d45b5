package reservation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/tablebooking/internal/allocator"
	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/Domenick1991/tablebooking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Insert(ctx context.Context, reservation *domain.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ListConfirmed(ctx context.Context, restaurantID string) ([]domain.Reservation, error) {
	args := m.Called(ctx, restaurantID)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ListAllConfirmed(ctx context.Context) ([]domain.Reservation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (*domain.Reservation, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) UpdateDetails(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error) {
	args := m.Called(ctx, reservation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) Upsert(ctx context.Context, entry domain.ScheduleEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockScheduleRepository) RetireByReservation(ctx context.Context, reservationID string) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

func (m *MockScheduleRepository) ListActive(ctx context.Context) ([]domain.ScheduleEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.ScheduleEntry), args.Error(1)
}

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Restaurant), args.Error(1)
}

func (m *MockInventoryRepository) GetInventory(ctx context.Context, restaurantID string) (domain.Inventory, int64, error) {
	args := m.Called(ctx, restaurantID)
	return args.Get(0).(domain.Inventory), args.Get(1).(int64), args.Error(2)
}

func (m *MockInventoryRepository) SetTableAvailability(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) error {
	args := m.Called(ctx, restaurantID, zone, tableID, available)
	return args.Error(0)
}

func (m *MockInventoryRepository) ApplyInventory(ctx context.Context, restaurantID string, inv domain.Inventory, version int64) error {
	args := m.Called(ctx, restaurantID, inv, version)
	return args.Error(0)
}

func (m *MockInventoryRepository) SetInventory(ctx context.Context, restaurantID string, inv domain.Inventory) error {
	args := m.Called(ctx, restaurantID, inv)
	return args.Error(0)
}

type MockFlagWriter struct {
	mock.Mock
}

func (m *MockFlagWriter) SetAvailability(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) bool {
	args := m.Called(ctx, restaurantID, zone, tableID, available)
	return args.Bool(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireTableLock(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, restaurantID, zone, tableID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseTableLock(ctx context.Context, restaurantID string, zone domain.Zone, tableID string) error {
	args := m.Called(ctx, restaurantID, zone, tableID)
	return args.Error(0)
}

func (m *MockCache) InvalidateInventory(ctx context.Context, restaurantID string) error {
	args := m.Called(ctx, restaurantID)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

var now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestService(reservations *MockReservationRepository, schedule *MockScheduleRepository, inventory *MockInventoryRepository, flags *MockFlagWriter, cache *MockCache, producer *MockProducer) *Service {
	return &Service{
		reservations:     reservations,
		schedule:         schedule,
		inventory:        inventory,
		flags:            flags,
		cache:            cache,
		producer:         producer,
		reservationTopic: "reservation_events",
		lockTTL:          time.Minute,
		clock:            fixedClock{t: now},
	}
}

func singleTableInventory() domain.Inventory {
	return domain.Inventory{
		Interior: []domain.Table{{ID: "T1", Seats: 4, IsAvailable: true}},
	}
}

func TestService_CreateReservation_FutureBooking(t *testing.T) {
	reservations := &MockReservationRepository{}
	schedule := &MockScheduleRepository{}
	inventory := &MockInventoryRepository{}
	flags := &MockFlagWriter{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newTestService(reservations, schedule, inventory, flags, cache, producer)

	ctx := context.Background()
	at := now.Add(6 * time.Hour)

	inventory.On("GetInventory", ctx, "r1").Return(singleTableInventory(), int64(1), nil).Once()
	reservations.On("ListConfirmed", ctx, "r1").Return([]domain.Reservation{}, nil).Once()
	cache.On("AcquireTableLock", ctx, "r1", domain.ZoneInterior, "T1", time.Minute).Return(true, nil).Once()
	reservations.On("Insert", ctx, mock.AnythingOfType("*domain.Reservation")).Return(nil).Once()
	cache.On("ReleaseTableLock", ctx, "r1", domain.ZoneInterior, "T1").Return(nil).Once()
	schedule.On("Upsert", ctx, mock.AnythingOfType("domain.ScheduleEntry")).Return(nil).Once()
	producer.On("Publish", ctx, "reservation_events", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := service.CreateReservation(ctx, CreateReservationInput{
		RestaurantID:    "r1",
		UserID:          "u1",
		ReservationTime: at,
		Guests:          2,
	})

	assert.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, domain.ReservationStatusConfirmed, res.Status)
	assert.Equal(t, "T1", res.TableID)
	assert.Equal(t, domain.ZoneInterior, res.TableZone)
	assert.NotEmpty(t, res.ID)

	// The window is entirely in the future, so no flag write happens.
	flags.AssertNotCalled(t, "SetAvailability")
	reservations.AssertExpectations(t)
	schedule.AssertExpectations(t)
	cache.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestService_CreateReservation_WalkInFlipsFlag(t *testing.T) {
	reservations := &MockReservationRepository{}
	schedule := &MockScheduleRepository{}
	inventory := &MockInventoryRepository{}
	flags := &MockFlagWriter{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newTestService(reservations, schedule, inventory, flags, cache, producer)

	ctx := context.Background()

	inventory.On("GetInventory", ctx, "r1").Return(singleTableInventory(), int64(1), nil).Once()
	reservations.On("ListConfirmed", ctx, "r1").Return([]domain.Reservation{}, nil).Once()
	cache.On("AcquireTableLock", ctx, "r1", domain.ZoneInterior, "T1", time.Minute).Return(true, nil).Once()
	reservations.On("Insert", ctx, mock.Anything).Return(nil).Once()
	cache.On("ReleaseTableLock", ctx, "r1", domain.ZoneInterior, "T1").Return(nil).Once()
	schedule.On("Upsert", ctx, mock.Anything).Return(nil).Once()
	flags.On("SetAvailability", ctx, "r1", domain.ZoneInterior, "T1", false).Return(true).Once()
	cache.On("InvalidateInventory", ctx, "r1").Return(nil).Once()
	producer.On("Publish", ctx, "reservation_events", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := service.CreateReservation(ctx, CreateReservationInput{
		RestaurantID:    "r1",
		UserID:          "u1",
		ReservationTime: now.Add(30 * time.Minute), // window already open
		Guests:          2,
	})

	assert.NoError(t, err)
	assert.NotNil(t, res)
	flags.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_CreateReservation_ValidationErrors(t *testing.T) {
	service := newTestService(&MockReservationRepository{}, &MockScheduleRepository{}, &MockInventoryRepository{}, &MockFlagWriter{}, &MockCache{}, &MockProducer{})
	ctx := context.Background()

	testCases := []struct {
		name  string
		input CreateReservationInput
	}{
		{
			name:  "missing restaurant",
			input: CreateReservationInput{UserID: "u1", ReservationTime: now, Guests: 2},
		},
		{
			name:  "missing user",
			input: CreateReservationInput{RestaurantID: "r1", ReservationTime: now, Guests: 2},
		},
		{
			name:  "zero guests",
			input: CreateReservationInput{RestaurantID: "r1", UserID: "u1", ReservationTime: now},
		},
		{
			name:  "zero time",
			input: CreateReservationInput{RestaurantID: "r1", UserID: "u1", Guests: 2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := service.CreateReservation(ctx, tc.input)
			assert.Error(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestService_CreateReservation_AllocationFailure(t *testing.T) {
	reservations := &MockReservationRepository{}
	inventory := &MockInventoryRepository{}
	service := newTestService(reservations, &MockScheduleRepository{}, inventory, &MockFlagWriter{}, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	at := now.Add(6 * time.Hour)
	existing := domain.Reservation{
		ID:              "res-existing",
		RestaurantID:    "r1",
		Status:          domain.ReservationStatusConfirmed,
		TableID:         "T1",
		TableZone:       domain.ZoneInterior,
		ReservationTime: at.Add(time.Hour),
	}

	inventory.On("GetInventory", ctx, "r1").Return(singleTableInventory(), int64(1), nil).Once()
	reservations.On("ListConfirmed", ctx, "r1").Return([]domain.Reservation{existing}, nil).Once()

	res, err := service.CreateReservation(ctx, CreateReservationInput{
		RestaurantID:    "r1",
		UserID:          "u1",
		ReservationTime: at,
		Guests:          2,
	})

	assert.Nil(t, res)
	var failure *allocator.Failure
	assert.ErrorAs(t, err, &failure)
	reservations.AssertNotCalled(t, "Insert")
}

func TestService_CreateReservation_FlagWriteFailureDoesNotBlock(t *testing.T) {
	reservations := &MockReservationRepository{}
	schedule := &MockScheduleRepository{}
	inventory := &MockInventoryRepository{}
	flags := &MockFlagWriter{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newTestService(reservations, schedule, inventory, flags, cache, producer)

	ctx := context.Background()

	inventory.On("GetInventory", ctx, "r1").Return(singleTableInventory(), int64(1), nil).Once()
	reservations.On("ListConfirmed", ctx, "r1").Return([]domain.Reservation{}, nil).Once()
	cache.On("AcquireTableLock", ctx, "r1", domain.ZoneInterior, "T1", time.Minute).Return(true, nil).Once()
	reservations.On("Insert", ctx, mock.Anything).Return(nil).Once()
	cache.On("ReleaseTableLock", ctx, "r1", domain.ZoneInterior, "T1").Return(nil).Once()
	schedule.On("Upsert", ctx, mock.Anything).Return(nil).Once()
	// All tiers exhausted: the reservation still stands.
	flags.On("SetAvailability", ctx, "r1", domain.ZoneInterior, "T1", false).Return(false).Once()
	producer.On("Publish", ctx, "reservation_events", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := service.CreateReservation(ctx, CreateReservationInput{
		RestaurantID:    "r1",
		UserID:          "u1",
		ReservationTime: now,
		Guests:          2,
	})

	assert.NoError(t, err)
	assert.NotNil(t, res)
	cache.AssertNotCalled(t, "InvalidateInventory")
}

func TestService_CreateReservation_InsertErrorReleasesLock(t *testing.T) {
	reservations := &MockReservationRepository{}
	inventory := &MockInventoryRepository{}
	cache := &MockCache{}
	service := newTestService(reservations, &MockScheduleRepository{}, inventory, &MockFlagWriter{}, cache, &MockProducer{})

	ctx := context.Background()
	expectedErr := errors.New("database error")

	inventory.On("GetInventory", ctx, "r1").Return(singleTableInventory(), int64(1), nil).Once()
	reservations.On("ListConfirmed", ctx, "r1").Return([]domain.Reservation{}, nil).Once()
	cache.On("AcquireTableLock", ctx, "r1", domain.ZoneInterior, "T1", time.Minute).Return(true, nil).Once()
	reservations.On("Insert", ctx, mock.Anything).Return(expectedErr).Once()
	cache.On("ReleaseTableLock", ctx, "r1", domain.ZoneInterior, "T1").Return(nil).Once()

	res, err := service.CreateReservation(ctx, CreateReservationInput{
		RestaurantID:    "r1",
		UserID:          "u1",
		ReservationTime: now.Add(6 * time.Hour),
		Guests:          2,
	})

	assert.Nil(t, res)
	assert.Equal(t, expectedErr, err)
	cache.AssertExpectations(t)
}

func TestService_CancelReservation_CurrentWindowFreesTable(t *testing.T) {
	reservations := &MockReservationRepository{}
	schedule := &MockScheduleRepository{}
	flags := &MockFlagWriter{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newTestService(reservations, schedule, &MockInventoryRepository{}, flags, cache, producer)

	ctx := context.Background()
	current := &domain.Reservation{
		ID:              "res-1",
		RestaurantID:    "r1",
		Status:          domain.ReservationStatusConfirmed,
		TableID:         "T1",
		TableZone:       domain.ZoneInterior,
		ReservationTime: now.Add(30 * time.Minute),
	}
	cancelled := &domain.Reservation{}
	*cancelled = *current
	cancelled.Status = domain.ReservationStatusCancelled

	reservations.On("GetByID", ctx, "res-1").Return(current, nil).Once()
	reservations.On("UpdateStatus", ctx, "res-1", domain.ReservationStatusCancelled).Return(cancelled, nil).Once()
	schedule.On("RetireByReservation", ctx, "res-1").Return(nil).Once()
	flags.On("SetAvailability", ctx, "r1", domain.ZoneInterior, "T1", true).Return(true).Once()
	cache.On("InvalidateInventory", ctx, "r1").Return(nil).Once()
	producer.On("Publish", ctx, "reservation_events", "res-1", mock.Anything).Return(nil).Once()

	res, err := service.CancelReservation(ctx, "res-1")

	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusCancelled, res.Status)
	flags.AssertExpectations(t)
	schedule.AssertExpectations(t)
}

func TestService_CancelReservation_FutureWindowLeavesFlagAlone(t *testing.T) {
	reservations := &MockReservationRepository{}
	schedule := &MockScheduleRepository{}
	flags := &MockFlagWriter{}
	producer := &MockProducer{}
	service := newTestService(reservations, schedule, &MockInventoryRepository{}, flags, &MockCache{}, producer)

	ctx := context.Background()
	current := &domain.Reservation{
		ID:              "res-1",
		RestaurantID:    "r1",
		Status:          domain.ReservationStatusConfirmed,
		TableID:         "T1",
		TableZone:       domain.ZoneInterior,
		ReservationTime: now.Add(6 * time.Hour),
	}
	cancelled := &domain.Reservation{}
	*cancelled = *current
	cancelled.Status = domain.ReservationStatusCancelled

	reservations.On("GetByID", ctx, "res-1").Return(current, nil).Once()
	reservations.On("UpdateStatus", ctx, "res-1", domain.ReservationStatusCancelled).Return(cancelled, nil).Once()
	schedule.On("RetireByReservation", ctx, "res-1").Return(nil).Once()
	producer.On("Publish", ctx, "reservation_events", "res-1", mock.Anything).Return(nil).Once()

	_, err := service.CancelReservation(ctx, "res-1")

	assert.NoError(t, err)
	flags.AssertNotCalled(t, "SetAvailability")
}

func TestService_CancelReservation_Idempotent(t *testing.T) {
	reservations := &MockReservationRepository{}
	schedule := &MockScheduleRepository{}
	flags := &MockFlagWriter{}
	service := newTestService(reservations, schedule, &MockInventoryRepository{}, flags, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	already := &domain.Reservation{
		ID:              "res-1",
		RestaurantID:    "r1",
		Status:          domain.ReservationStatusCancelled,
		TableID:         "T1",
		TableZone:       domain.ZoneInterior,
		ReservationTime: now.Add(30 * time.Minute),
	}

	reservations.On("GetByID", ctx, "res-1").Return(already, nil).Once()

	res, err := service.CancelReservation(ctx, "res-1")

	assert.NoError(t, err)
	assert.Equal(t, already, res)
	reservations.AssertNotCalled(t, "UpdateStatus")
	schedule.AssertNotCalled(t, "RetireByReservation")
	flags.AssertNotCalled(t, "SetAvailability")
}

func TestService_CancelReservation_NotFound(t *testing.T) {
	reservations := &MockReservationRepository{}
	service := newTestService(reservations, &MockScheduleRepository{}, &MockInventoryRepository{}, &MockFlagWriter{}, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	reservations.On("GetByID", ctx, "missing").Return(nil, repository.ErrReservationNotFound).Once()

	res, err := service.CancelReservation(ctx, "missing")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestService_UpdateReservation_ConflictingChangeRejected(t *testing.T) {
	reservations := &MockReservationRepository{}
	inventory := &MockInventoryRepository{}
	service := newTestService(reservations, &MockScheduleRepository{}, inventory, &MockFlagWriter{}, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	at := now.Add(6 * time.Hour)
	current := &domain.Reservation{
		ID:              "res-1",
		RestaurantID:    "r1",
		Status:          domain.ReservationStatusConfirmed,
		TableID:         "T1",
		TableZone:       domain.ZoneInterior,
		ReservationTime: at,
		Guests:          2,
	}
	other := domain.Reservation{
		ID:              "res-2",
		RestaurantID:    "r1",
		Status:          domain.ReservationStatusConfirmed,
		TableID:         "T1",
		TableZone:       domain.ZoneInterior,
		ReservationTime: at.Add(12 * time.Hour),
	}

	reservations.On("GetByID", ctx, "res-1").Return(current, nil).Once()
	inventory.On("GetInventory", ctx, "r1").Return(singleTableInventory(), int64(1), nil).Once()
	reservations.On("ListConfirmed", ctx, "r1").Return([]domain.Reservation{*current, other}, nil).Once()

	// Moving onto res-2's window must fail; the old record stays.
	res, err := service.UpdateReservation(ctx, "res-1", UpdateReservationInput{
		ReservationTime: other.ReservationTime.Add(time.Hour),
		Guests:          2,
	})

	assert.Nil(t, res)
	var failure *allocator.Failure
	assert.ErrorAs(t, err, &failure)
	reservations.AssertNotCalled(t, "UpdateDetails")
}

func TestService_UpdateReservation_RewritesSchedule(t *testing.T) {
	reservations := &MockReservationRepository{}
	schedule := &MockScheduleRepository{}
	inventory := &MockInventoryRepository{}
	producer := &MockProducer{}
	service := newTestService(reservations, schedule, inventory, &MockFlagWriter{}, &MockCache{}, producer)

	ctx := context.Background()
	at := now.Add(6 * time.Hour)
	newTime := now.Add(24 * time.Hour)
	current := &domain.Reservation{
		ID:              "res-1",
		RestaurantID:    "r1",
		Status:          domain.ReservationStatusConfirmed,
		TableID:         "T1",
		TableZone:       domain.ZoneInterior,
		ReservationTime: at,
		Guests:          2,
	}
	updated := &domain.Reservation{}
	*updated = *current
	updated.ReservationTime = newTime
	updated.Guests = 3

	reservations.On("GetByID", ctx, "res-1").Return(current, nil).Once()
	inventory.On("GetInventory", ctx, "r1").Return(singleTableInventory(), int64(1), nil).Once()
	reservations.On("ListConfirmed", ctx, "r1").Return([]domain.Reservation{*current}, nil).Once()
	reservations.On("UpdateDetails", ctx, mock.AnythingOfType("*domain.Reservation")).Return(updated, nil).Once()
	schedule.On("Upsert", ctx, domain.ScheduleEntry{
		ReservationID:  "res-1",
		TableID:        "T1",
		TableZone:      domain.ZoneInterior,
		RestaurantID:   "r1",
		OccupiedFrom:   newTime.Add(-time.Hour),
		AvailableAfter: newTime.Add(2 * time.Hour),
		IsActive:       true,
	}).Return(nil).Once()
	producer.On("Publish", ctx, "reservation_events", "res-1", mock.Anything).Return(nil).Once()

	res, err := service.UpdateReservation(ctx, "res-1", UpdateReservationInput{
		ReservationTime: newTime,
		Guests:          3,
	})

	assert.NoError(t, err)
	assert.Equal(t, newTime, res.ReservationTime)
	// Same table kept, so the old entry is replaced by key, not retired.
	schedule.AssertNotCalled(t, "RetireByReservation")
	schedule.AssertExpectations(t)
}

func TestService_UpdateReservation_CancelledReservationRejected(t *testing.T) {
	reservations := &MockReservationRepository{}
	service := newTestService(reservations, &MockScheduleRepository{}, &MockInventoryRepository{}, &MockFlagWriter{}, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	current := &domain.Reservation{
		ID:     "res-1",
		Status: domain.ReservationStatusCancelled,
	}

	reservations.On("GetByID", ctx, "res-1").Return(current, nil).Once()

	res, err := service.UpdateReservation(ctx, "res-1", UpdateReservationInput{
		ReservationTime: now.Add(time.Hour),
		Guests:          2,
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
