package repository

import (
	"context"

	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScheduleRepository is the append-only ledger of table occupancy
// windows. Entries are keyed (table_id, reservation_id); retiring an
// entry flips is_active off instead of deleting the row.
type ScheduleRepository interface {
	Upsert(ctx context.Context, entry domain.ScheduleEntry) error
	RetireByReservation(ctx context.Context, reservationID string) error
	ListActive(ctx context.Context) ([]domain.ScheduleEntry, error)
}

type PGScheduleRepository struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) ScheduleRepository {
	return &PGScheduleRepository{db: db}
}

func (r *PGScheduleRepository) Upsert(ctx context.Context, entry domain.ScheduleEntry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO schedule_entries (table_id, reservation_id, table_zone, restaurant_id, occupied_from, available_after, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		ON CONFLICT (table_id, reservation_id) DO UPDATE
		SET table_zone=$3, restaurant_id=$4, occupied_from=$5, available_after=$6, is_active=true`,
		entry.TableID, entry.ReservationID, entry.TableZone, entry.RestaurantID,
		entry.OccupiedFrom, entry.AvailableAfter)
	return err
}

func (r *PGScheduleRepository) RetireByReservation(ctx context.Context, reservationID string) error {
	_, err := r.db.Exec(ctx, `UPDATE schedule_entries SET is_active=false WHERE reservation_id=$1`, reservationID)
	return err
}

func (r *PGScheduleRepository) ListActive(ctx context.Context) ([]domain.ScheduleEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT reservation_id, table_id, table_zone, restaurant_id, occupied_from, available_after, is_active
		FROM schedule_entries WHERE is_active ORDER BY occupied_from`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.ScheduleEntry, 0)
	for rows.Next() {
		var e domain.ScheduleEntry
		if err := rows.Scan(&e.ReservationID, &e.TableID, &e.TableZone, &e.RestaurantID, &e.OccupiedFrom, &e.AvailableAfter, &e.IsActive); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ ScheduleRepository = (*PGScheduleRepository)(nil)
