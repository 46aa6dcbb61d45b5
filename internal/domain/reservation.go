package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
)

type Reservation struct {
	ID              string
	RestaurantID    string
	UserID          string
	ReservationTime time.Time
	Guests          int
	Status          ReservationStatus
	TableID         string
	TableZone       Zone
	PreferredZone   *Zone
	SpecialRequests string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *Reservation) Window() Window {
	return NewWindow(r.ReservationTime)
}
