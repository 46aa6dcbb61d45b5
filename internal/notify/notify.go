package notify

import (
	"context"
	"fmt"

	"github.com/Domenick1991/tablebooking/internal/kafka"
)

// Sink delivers reservation notifications. Delivery transport is an
// external concern; this implementation just writes to stdout.
type Sink struct{}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Send(ctx context.Context, event kafka.ReservationEvent) error {
	fmt.Printf("notify user %s: reservation %s is %s (table %s/%s at %s)\n",
		event.UserID, event.ReservationID, event.Type, event.TableZone, event.TableID,
		event.ReservationTime.Format("2006-01-02 15:04"))
	return nil
}
