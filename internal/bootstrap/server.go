package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/tablebooking/api"
	"github.com/Domenick1991/tablebooking/config"
	"github.com/Domenick1991/tablebooking/internal/service/reservation"
	"github.com/Domenick1991/tablebooking/internal/service/restaurant"
	"github.com/gin-gonic/gin"
)

// Run starts the HTTP API and blocks until the context is cancelled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, reservationSvc reservation.ReservationUseCase, restaurantSvc restaurant.RestaurantUseCase) error {
	router := gin.Default()

	api.NewReservationHandler(reservationSvc).Register(router.Group("/reservations"))
	api.NewRestaurantHandler(restaurantSvc).Register(router.Group("/restaurants"))

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
