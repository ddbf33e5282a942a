package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/actions"
	"github.com/formflux/formflux/internal/deadletter"
	"github.com/formflux/formflux/internal/deliveries"
	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/pipeline"
	"github.com/formflux/formflux/internal/storage"
	"github.com/formflux/formflux/internal/transform"
	"github.com/formflux/formflux/internal/worker"
	"github.com/formflux/formflux/platform/events"
	"github.com/formflux/formflux/pkg/clock"
	"github.com/formflux/formflux/pkg/config"
)

const consumerGroup = "formflux-workers"

func main() {
	cfg := config.FromEnv()

	logger, err := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer db.Close()
	mysqlClient := storage.NewMySQLClient(db)

	redisStore := storage.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))

	clk := clock.RealClock{}
	gw := gateway.New(redisStore, redisStore, logger, clk, cfg.Gateway)

	executors := pipeline.NewExecutorRegistry()
	actions.RegisterProviders(executors, cfg.Providers, gw, logger)

	transforms := transform.NewEngine(transform.NewRegistry(), logger)

	bus := events.NewBus(cfg.KafkaBrokers, cfg.Queues, logger.Raw())
	defer bus.Close()

	deadLetters := deadletter.NewService(mysqlClient, mysqlClient, nil, logger)
	processor := pipeline.NewService(mysqlClient, mysqlClient, deadLetters, gw, executors, transforms, logger, clk)
	deadLetters.BindRunner(processor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := deadletter.NewSweeper(cfg.Queues.DLQSweepSpec, mysqlClient, bus, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("failed to start dead-letter sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	deliveryAudit := deliveries.NewService(mysqlClient, logger, clk, cfg.Retention.PurgeSpec, cfg.Retention.MaxAge)
	if err := deliveryAudit.StartRetention(ctx); err != nil {
		logger.Fatal("failed to start delivery retention", zap.Error(err))
	}
	defer deliveryAudit.StopRetention()

	perSecond := cfg.Queues.JobsPerSecond

	eventHandler := worker.NewEventHandler(processor, worker.EventRetryPolicy, logger)
	webhookHandler := worker.NewWebhookHandler(gw, mysqlClient, worker.WebhookRetryPolicy, logger, clk)
	pushHandler := worker.NewPushHandler(gw, mysqlClient, worker.PushRetryPolicy, logger, clk)
	dlqHandler := worker.NewDLQHandler(deadLetters, worker.DLQRetryPolicy, logger)

	pools := []*worker.Pool{
		worker.NewPool(models.QueueEvents, cfg.Queues.EventWorkers, perSecond, eventHandler.Handle, logger),
		worker.NewPool(models.QueueWebhooks, cfg.Queues.WebhookWorkers, perSecond, webhookHandler.Handle, logger),
		worker.NewPool(models.QueuePush, cfg.Queues.PushWorkers, perSecond, pushHandler.Handle, logger),
		worker.NewPool(models.QueueDLQ, cfg.Queues.DLQWorkers, perSecond, dlqHandler.Handle, logger),
	}
	topics := []string{
		cfg.Queues.EventTopic,
		cfg.Queues.WebhookTopic,
		cfg.Queues.PushTopic,
		cfg.Queues.DLQTopic,
	}

	var wg sync.WaitGroup
	consumers := make([]*events.Consumer, 0, len(pools))
	for i, pool := range pools {
		pool.Start(ctx)

		consumer := events.NewConsumer(cfg.KafkaBrokers, topics[i], consumerGroup, logger.Raw())
		consumers = append(consumers, consumer)

		wg.Add(1)
		go func(consumer *events.Consumer, pool *worker.Pool, topic string) {
			defer wg.Done()
			if err := consumer.Run(ctx, func(_ context.Context, raw []byte) {
				pool.Submit(raw)
			}); err != nil {
				logger.Error("consumer stopped", zap.String("topic", topic), zap.Error(err))
			}
		}(consumer, pool, topics[i])
	}

	logger.Info("worker started",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.Strings("topics", topics),
	)

	<-ctx.Done()
	logger.Info("shutting down worker")

	for _, consumer := range consumers {
		if err := consumer.Close(); err != nil {
			logger.Error("failed to close consumer", zap.Error(err))
		}
	}
	wg.Wait()
	for _, pool := range pools {
		pool.Stop()
	}

	logger.Info("worker exited")
}
