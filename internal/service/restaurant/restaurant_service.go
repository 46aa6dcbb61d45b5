package restaurant

import (
	"context"
	"time"

	"github.com/Domenick1991/tablebooking/internal/allocator"
	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/Domenick1991/tablebooking/internal/repository"
)

type RestaurantUseCase interface {
	GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error)
	Inventory(ctx context.Context, restaurantID string) (domain.Inventory, error)
	ProjectedAvailability(ctx context.Context, restaurantID string, at time.Time) (domain.Inventory, error)
}

type Cache interface {
	GetInventory(ctx context.Context, restaurantID string) (*domain.Inventory, error)
	SetInventory(ctx context.Context, restaurantID string, inv domain.Inventory) error
}

type Service struct {
	inventory    repository.InventoryRepository
	reservations repository.ReservationRepository
	cache        Cache
}

func NewService(inventory repository.InventoryRepository, reservations repository.ReservationRepository, cache Cache) *Service {
	return &Service{inventory: inventory, reservations: reservations, cache: cache}
}

func (s *Service) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	return s.inventory.GetRestaurant(ctx, id)
}

// Inventory returns the stored inventory with its current "now" flags,
// served from cache when warm.
func (s *Service) Inventory(ctx context.Context, restaurantID string) (domain.Inventory, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetInventory(ctx, restaurantID); err == nil && cached != nil {
			return *cached, nil
		}
	}

	inv, _, err := s.inventory.GetInventory(ctx, restaurantID)
	if err != nil {
		return domain.Inventory{}, err
	}
	if s.cache != nil {
		_ = s.cache.SetInventory(ctx, restaurantID, inv)
	}
	return inv, nil
}

// ProjectedAvailability answers "which tables are free at instant t"
// from confirmed reservations, ignoring the stored flags, which only
// describe the present.
func (s *Service) ProjectedAvailability(ctx context.Context, restaurantID string, at time.Time) (domain.Inventory, error) {
	inv, _, err := s.inventory.GetInventory(ctx, restaurantID)
	if err != nil {
		return domain.Inventory{}, err
	}
	confirmed, err := s.reservations.ListConfirmed(ctx, restaurantID)
	if err != nil {
		return domain.Inventory{}, err
	}
	return allocator.Project(inv, confirmed, domain.NewWindow(at), ""), nil
}

var _ RestaurantUseCase = (*Service)(nil)
