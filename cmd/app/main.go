package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tablebooking/config"
	"github.com/Domenick1991/tablebooking/internal/availability"
	"github.com/Domenick1991/tablebooking/internal/bootstrap"
	"github.com/Domenick1991/tablebooking/internal/cache"
	"github.com/Domenick1991/tablebooking/internal/kafka"
	"github.com/Domenick1991/tablebooking/internal/repository"
	"github.com/Domenick1991/tablebooking/internal/service/reservation"
	"github.com/Domenick1991/tablebooking/internal/service/restaurant"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Reservation.InventoryCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	reservationRepo := repository.NewReservationRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	inventoryRepo := repository.NewInventoryRepository(pool)

	flagStore := availability.NewFlagStore(
		availability.DefaultLadder(inventoryRepo),
		time.Duration(cfg.Reservation.FlagWriteTimeoutSeconds)*time.Second,
	)

	reservationService := reservation.NewService(
		reservationRepo,
		scheduleRepo,
		inventoryRepo,
		flagStore,
		redisCache,
		producer,
		cfg.Kafka.ReservationTopic,
		time.Duration(cfg.Reservation.TableLockTTLSeconds)*time.Second,
		reservation.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	restaurantService := restaurant.NewService(inventoryRepo, reservationRepo, redisCache)

	if err := bootstrap.Run(ctx, cfg, reservationService, restaurantService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
