package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS restaurants (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	inventory JSONB NOT NULL DEFAULT '{"interior":[],"exterior":[]}',
	inventory_version BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reservations (
	id UUID PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	user_id TEXT NOT NULL,
	reservation_time TIMESTAMPTZ NOT NULL,
	guests INT NOT NULL,
	status TEXT NOT NULL,
	table_id TEXT NOT NULL,
	table_zone TEXT NOT NULL,
	preferred_zone TEXT,
	special_requests TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reservations_restaurant_status ON reservations(restaurant_id, status);
CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status);

CREATE TABLE IF NOT EXISTS schedule_entries (
	table_id TEXT NOT NULL,
	reservation_id UUID NOT NULL REFERENCES reservations(id),
	table_zone TEXT NOT NULL,
	restaurant_id TEXT NOT NULL,
	occupied_from TIMESTAMPTZ NOT NULL,
	available_after TIMESTAMPTZ NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT true,
	PRIMARY KEY (table_id, reservation_id)
);

CREATE INDEX IF NOT EXISTS idx_schedule_entries_active ON schedule_entries(is_active) WHERE is_active;

CREATE OR REPLACE FUNCTION apply_inventory(p_id TEXT, p_inventory JSONB, p_version BIGINT)
RETURNS BOOLEAN AS $$
DECLARE
	updated INT;
BEGIN
	UPDATE restaurants
	SET inventory = p_inventory,
	    inventory_version = inventory_version + 1,
	    updated_at = now()
	WHERE id = p_id AND inventory_version = p_version;
	GET DIAGNOSTICS updated = ROW_COUNT;
	RETURN updated > 0;
END;
$$ LANGUAGE plpgsql;
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
