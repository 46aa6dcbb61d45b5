package availability

import (
	"context"
	"log"
	"time"

	"github.com/Domenick1991/tablebooking/internal/domain"
)

// WriteStrategy is one tier of the flag-write ladder. Every strategy
// must be idempotent: writing the same flag value twice is a no-op.
type WriteStrategy interface {
	Name() string
	Write(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) error
}

// FlagStore writes a table's isAvailable flag through an ordered list
// of strategies, trying each in turn until one succeeds. The backing
// store has no multi-row transactions, so this is best-effort: total
// failure is reported to the caller but never stops reservation
// bookkeeping. The sweeper heals any flag left stale here.
type FlagStore struct {
	strategies  []WriteStrategy
	tierTimeout time.Duration
}

func NewFlagStore(strategies []WriteStrategy, tierTimeout time.Duration) *FlagStore {
	return &FlagStore{strategies: strategies, tierTimeout: tierTimeout}
}

// SetAvailability returns true on the first strategy that succeeds.
func (s *FlagStore) SetAvailability(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) bool {
	for _, strategy := range s.strategies {
		tierCtx, cancel := context.WithTimeout(ctx, s.tierTimeout)
		err := strategy.Write(tierCtx, restaurantID, zone, tableID, available)
		cancel()
		if err == nil {
			return true
		}
		log.Printf("availability: %s write failed for table %s/%s/%s: %v", strategy.Name(), restaurantID, zone, tableID, err)
	}
	return false
}
