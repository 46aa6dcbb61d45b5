package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrReservationNotFound = errors.New("reservation not found")

type ReservationRepository interface {
	Insert(ctx context.Context, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	ListConfirmed(ctx context.Context, restaurantID string) ([]domain.Reservation, error)
	ListAllConfirmed(ctx context.Context) ([]domain.Reservation, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (*domain.Reservation, error)
	UpdateDetails(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error)
}

type PGReservationRepository struct {
	db *pgxpool.Pool
}

func NewReservationRepository(db *pgxpool.Pool) ReservationRepository {
	return &PGReservationRepository{db: db}
}

const reservationColumns = `id, restaurant_id, user_id, reservation_time, guests, status, table_id, table_zone, preferred_zone, special_requests, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var r domain.Reservation
	var preferred *string
	if err := row.Scan(&r.ID, &r.RestaurantID, &r.UserID, &r.ReservationTime, &r.Guests, &r.Status,
		&r.TableID, &r.TableZone, &preferred, &r.SpecialRequests, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if preferred != nil {
		zone := domain.Zone(*preferred)
		r.PreferredZone = &zone
	}
	return &r, nil
}

func (r *PGReservationRepository) Insert(ctx context.Context, reservation *domain.Reservation) error {
	var preferred *string
	if reservation.PreferredZone != nil {
		s := string(*reservation.PreferredZone)
		preferred = &s
	}
	return r.db.QueryRow(ctx, `INSERT INTO reservations (id, restaurant_id, user_id, reservation_time, guests, status, table_id, table_zone, preferred_zone, special_requests)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		reservation.ID, reservation.RestaurantID, reservation.UserID, reservation.ReservationTime,
		reservation.Guests, reservation.Status, reservation.TableID, reservation.TableZone,
		preferred, reservation.SpecialRequests).
		Scan(&reservation.CreatedAt, &reservation.UpdatedAt)
}

func (r *PGReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1`, id)
	return scanReservation(row)
}

func (r *PGReservationRepository) ListConfirmed(ctx context.Context, restaurantID string) ([]domain.Reservation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE restaurant_id=$1 AND status=$2 ORDER BY reservation_time`,
		restaurantID, domain.ReservationStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func (r *PGReservationRepository) ListAllConfirmed(ctx context.Context) ([]domain.Reservation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE status=$1 ORDER BY reservation_time`,
		domain.ReservationStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	reservations := make([]domain.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

func (r *PGReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (*domain.Reservation, error) {
	row := r.db.QueryRow(ctx, `UPDATE reservations SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+reservationColumns, status, id)
	return scanReservation(row)
}

func (r *PGReservationRepository) UpdateDetails(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error) {
	row := r.db.QueryRow(ctx, `UPDATE reservations SET reservation_time=$1, guests=$2, table_id=$3, table_zone=$4, special_requests=$5, updated_at=now()
		WHERE id=$6 RETURNING `+reservationColumns,
		reservation.ReservationTime, reservation.Guests, reservation.TableID, reservation.TableZone,
		reservation.SpecialRequests, reservation.ID)
	return scanReservation(row)
}

var _ ReservationRepository = (*PGReservationRepository)(nil)
