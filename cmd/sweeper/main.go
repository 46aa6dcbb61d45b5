package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tablebooking/config"
	"github.com/Domenick1991/tablebooking/internal/availability"
	"github.com/Domenick1991/tablebooking/internal/kafka"
	"github.com/Domenick1991/tablebooking/internal/notify"
	"github.com/Domenick1991/tablebooking/internal/repository"
	"github.com/Domenick1991/tablebooking/internal/service/sweeper"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
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

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	reservationRepo := repository.NewReservationRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	inventoryRepo := repository.NewInventoryRepository(pool)

	flagStore := availability.NewFlagStore(
		availability.DefaultLadder(inventoryRepo),
		time.Duration(cfg.Reservation.FlagWriteTimeoutSeconds)*time.Second,
	)

	sw := sweeper.New(
		reservationRepo,
		scheduleRepo,
		inventoryRepo,
		flagStore,
		time.Duration(cfg.Sweeper.ExpirySweepMinutes)*time.Minute,
		time.Duration(cfg.Sweeper.ScheduleSweepMinutes)*time.Minute,
		sweeper.WithProducer(producer, cfg.Kafka.ReservationTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sink := notify.NewSink()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.ReservationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			return sink.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	if err := sw.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("sweeper error: %v", err)
	}
}
