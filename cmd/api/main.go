package main

import (
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/formflux/formflux/internal/api"
	"github.com/formflux/formflux/internal/deadletter"
	"github.com/formflux/formflux/internal/deliveries"
	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/storage"
	"github.com/formflux/formflux/internal/triggers"
	"github.com/formflux/formflux/platform/events"
	"github.com/formflux/formflux/pkg/clock"
	"github.com/formflux/formflux/pkg/config"
)

func main() {
	cfg := config.FromEnv()

	logger, err := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("api: %v", err)
	}
	mysqlClient := storage.NewMySQLClient(db)

	redisStore := storage.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))

	clk := clock.RealClock{}
	gw := gateway.New(redisStore, redisStore, logger, clk, cfg.Gateway)

	bus := events.NewBus(cfg.KafkaBrokers, cfg.Queues, logger.Raw())
	defer bus.Close()

	// The API never replays in-process, it only schedules replay jobs, so no
	// action runner is bound here.
	deadLetters := deadletter.NewService(mysqlClient, mysqlClient, nil, logger)
	triggerService := triggers.NewService(mysqlClient, clk)
	deliveryService := deliveries.NewService(mysqlClient, logger, clk, cfg.Retention.PurgeSpec, cfg.Retention.MaxAge)

	server := api.NewServer(cfg, logger, api.Dependencies{
		DB:          db,
		Triggers:    triggerService,
		DeadLetters: deadLetters,
		Deliveries:  deliveryService,
		Gateway:     gw,
		Events:      bus,
		Replays:     bus,
		Clock:       clk,
	})
	if err := server.Serve(); err != nil {
		log.Fatalf("api server stopped: %v", err)
	}
}
