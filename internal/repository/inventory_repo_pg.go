package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrTableNotFound      = errors.New("table not found in inventory")
	ErrVersionConflict    = errors.New("inventory version conflict")
)

// InventoryRepository reads and writes the per-restaurant inventory
// document. The three write methods back the availability flag
// ladder's tiers: SetTableAvailability is a single-statement in-place
// update, ApplyInventory goes through the apply_inventory SQL function
// with an optimistic version check, SetInventory overwrites the whole
// document unconditionally.
type InventoryRepository interface {
	GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error)
	GetInventory(ctx context.Context, restaurantID string) (domain.Inventory, int64, error)
	SetTableAvailability(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) error
	ApplyInventory(ctx context.Context, restaurantID string, inv domain.Inventory, version int64) error
	SetInventory(ctx context.Context, restaurantID string, inv domain.Inventory) error
}

type PGInventoryRepository struct {
	db *pgxpool.Pool
}

func NewInventoryRepository(db *pgxpool.Pool) InventoryRepository {
	return &PGInventoryRepository{db: db}
}

func (r *PGInventoryRepository) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, inventory, inventory_version, created_at, updated_at FROM restaurants WHERE id=$1`, id)
	var rest domain.Restaurant
	var doc []byte
	if err := row.Scan(&rest.ID, &rest.Name, &doc, &rest.InventoryVersion, &rest.CreatedAt, &rest.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(doc, &rest.Inventory); err != nil {
		return nil, err
	}
	return &rest, nil
}

func (r *PGInventoryRepository) GetInventory(ctx context.Context, restaurantID string) (domain.Inventory, int64, error) {
	rest, err := r.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return domain.Inventory{}, 0, err
	}
	return rest.Inventory, rest.InventoryVersion, nil
}

// SetTableAvailability flips one table's flag inside the jsonb
// document in a single statement, keyed by primary key. Race-free with
// respect to concurrent writers of other tables.
func (r *PGInventoryRepository) SetTableAvailability(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, available bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE restaurants
		SET inventory = jsonb_set(inventory, ARRAY[$2, idx.ord, 'isAvailable'], to_jsonb($4::boolean)),
		    inventory_version = inventory_version + 1,
		    updated_at = now()
		FROM (
			SELECT (t.ordinality - 1)::text AS ord
			FROM restaurants r, jsonb_array_elements(r.inventory->$2) WITH ORDINALITY AS t(tbl, ordinality)
			WHERE r.id = $1 AND t.tbl->>'id' = $3
		) AS idx
		WHERE restaurants.id = $1`,
		restaurantID, string(zone), tableID, available)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTableNotFound
	}
	return nil
}

// ApplyInventory writes the whole document through the server-side
// apply_inventory function, which rejects the write when the stored
// version moved since the caller read it.
func (r *PGInventoryRepository) ApplyInventory(ctx context.Context, restaurantID string, inv domain.Inventory, version int64) error {
	doc, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	var applied bool
	if err := r.db.QueryRow(ctx, `SELECT apply_inventory($1, $2, $3)`, restaurantID, doc, version).Scan(&applied); err != nil {
		return err
	}
	if !applied {
		return ErrVersionConflict
	}
	return nil
}

// SetInventory overwrites the document unconditionally. Last-resort
// path: it can clobber a concurrent write.
func (r *PGInventoryRepository) SetInventory(ctx context.Context, restaurantID string, inv domain.Inventory) error {
	doc, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE restaurants SET inventory=$2, inventory_version=inventory_version+1, updated_at=now() WHERE id=$1`, restaurantID, doc)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRestaurantNotFound
	}
	return nil
}

var _ InventoryRepository = (*PGInventoryRepository)(nil)
