package availability

import (
	"context"

	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/Domenick1991/tablebooking/internal/repository"
)

// atomicToggle is tier 1: a single-statement in-place update of one
// table's flag, keyed by primary key.
type atomicToggle struct {
	inventory repository.InventoryRepository
}

func NewAtomicToggle(inventory repository.InventoryRepository) WriteStrategy {
	return &atomicToggle{inventory: inventory}
}

func (s *atomicToggle) Name() string { return "atomic_toggle" }

func (s *atomicToggle) Write(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) error {
	return s.inventory.SetTableAvailability(ctx, restaurantID, zone, tableID, available)
}

// optimisticApply is tier 2: read the whole document, flip the flag
// locally and write it back through the server-side function with a
// version check.
type optimisticApply struct {
	inventory repository.InventoryRepository
}

func NewOptimisticApply(inventory repository.InventoryRepository) WriteStrategy {
	return &optimisticApply{inventory: inventory}
}

func (s *optimisticApply) Name() string { return "optimistic_apply" }

func (s *optimisticApply) Write(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) error {
	inv, version, err := s.inventory.GetInventory(ctx, restaurantID)
	if err != nil {
		return err
	}
	table := inv.Table(zone, tableID)
	if table == nil {
		return repository.ErrTableNotFound
	}
	table.IsAvailable = available
	return s.inventory.ApplyInventory(ctx, restaurantID, inv, version)
}

// overwrite is tier 3: read-modify-write with no version check. Same
// race exposure as tier 2 without the guard; used only when the first
// two tiers fail.
type overwrite struct {
	inventory repository.InventoryRepository
}

func NewOverwrite(inventory repository.InventoryRepository) WriteStrategy {
	return &overwrite{inventory: inventory}
}

func (s *overwrite) Name() string { return "overwrite" }

func (s *overwrite) Write(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) error {
	inv, _, err := s.inventory.GetInventory(ctx, restaurantID)
	if err != nil {
		return err
	}
	table := inv.Table(zone, tableID)
	if table == nil {
		return repository.ErrTableNotFound
	}
	table.IsAvailable = available
	return s.inventory.SetInventory(ctx, restaurantID, inv)
}

// DefaultLadder is the production tier ordering.
func DefaultLadder(inventory repository.InventoryRepository) []WriteStrategy {
	return []WriteStrategy{
		NewAtomicToggle(inventory),
		NewOptimisticApply(inventory),
		NewOverwrite(inventory),
	}
}
