// cmd/order-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"orderstream/internal/pkg/bootstrap"
	"orderstream/internal/pkg/logger"
	"orderstream/internal/pkg/mq"
	"orderstream/internal/pkg/push"
	"orderstream/internal/service/order/application"
	"orderstream/internal/service/order/domain/port"
	"orderstream/internal/service/order/infrastructure"
	"orderstream/internal/service/order/infrastructure/adapter"
	"orderstream/internal/service/order/interfaces"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg, err := bootstrap.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.App.ServiceName, cfg.App.LogLevel)

	err = bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      cfg.App.ServiceName,
		Port:             cfg.App.Port,
		RegisterHandlers: registerOrderService,
	})
	if err != nil {
		logger.L().Fatal().Err(err).Msg("order-service exited with error")
	}
}

func registerOrderService(app *bootstrap.AppCtx) error {
	cfg := app.Config
	brokers := cfg.Kafka.Brokers

	// 1. 推送网关
	hub := push.NewHub()
	app.Go(func(ctx context.Context) error {
		hub.Run(ctx)
		return nil
	})
	notifier := adapter.NewNotificationHubAdapter(hub)

	// 2. 出站适配器
	publisher := infrastructure.NewOrderKafkaPublisher(mq.NewKafkaWriter(brokers, cfg.Kafka.OrdersTopic), cfg.Kafka.OrdersTopic)
	app.OnShutdown(func(context.Context) error { return publisher.Close() })

	deadLetters := adapter.NewDeadLetterKafkaAdapter(mq.NewKafkaWriter(brokers, cfg.Kafka.DeadLetterTopic))
	app.OnShutdown(func(context.Context) error { return deadLetters.Close() })

	retryStore, err := newRetryStore(app)
	if err != nil {
		return err
	}

	// 3. 应用服务
	aggregator := application.NewAggregator()
	consumerSvc := application.NewOrderConsumerService(aggregator, retryStore, deadLetters, notifier, application.RetryPolicy{
		MaxRetries: cfg.Retry.MaxAttempts,
		Delay:      cfg.Retry.Delay,
		Mode:       cfg.Retry.Mode,
	})
	if cfg.Fault.Expression != "" {
		injector, err := adapter.NewCelFaultInjector(cfg.Fault.Expression)
		if err != nil {
			return err
		}
		consumerSvc.SetFaultInjector(injector)
		logger.L().Warn().Str("expression", cfg.Fault.Expression).Msg("Fault injection enabled")
	}

	// 4. 消费者：同一个消费组内的多个 reader，每个 reader 顺序处理自己的分区
	for i := 0; i < cfg.Kafka.Workers; i++ {
		startConsumer(app, consumerSvc, deadLetters, cfg.Kafka.OrdersTopic, cfg.Kafka.GroupID, 0)
	}

	if cfg.Retry.Mode == bootstrap.RetryModeScheduled {
		scheduler := adapter.NewRetrySchedulerKafkaAdapter(mq.NewKafkaWriter(brokers, cfg.Kafka.RetryTopic))
		app.OnShutdown(func(context.Context) error { return scheduler.Close() })
		consumerSvc.SetScheduler(scheduler)
		for i := 0; i < cfg.Kafka.Workers; i++ {
			startConsumer(app, consumerSvc, deadLetters, cfg.Kafka.RetryTopic, cfg.Kafka.GroupID+"-retry", cfg.Retry.Delay)
		}
	}

	// 5. 死信观察者，配置了 MySQL 时归档
	var archive port.DeadLetterRepository
	if cfg.Infra.MySQL.DSN != "" {
		db, err := infrastructure.OpenMySQL(cfg.Infra.MySQL.DSN)
		if err != nil {
			return err
		}
		repo := infrastructure.NewGormDeadLetterRepository(db)
		app.OnShutdown(func(context.Context) error { return repo.Close() })
		archive = repo
	}
	dlt := interfaces.NewDltConsumerAdapter(mq.NewKafkaReader(brokers, cfg.Kafka.DeadLetterTopic, cfg.Kafka.GroupID+"-dlt"), archive)
	app.OnShutdown(func(context.Context) error { return dlt.Close() })
	app.Go(dlt.Run)

	// 6. HTTP 路由
	producerSvc := application.NewOrderProducerService(publisher, cfg.App.Origin)
	statsSvc := application.NewStatisticsService(aggregator, notifier)
	interfaces.NewOrderHandler(producerSvc, statsSvc, archive, cfg.App.Origin).RegisterRoutes(app.Router)

	app.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	app.Router.Handle("/metrics", promhttp.Handler())
	app.Router.Get("/ws", hub.ServeWs)

	logger.L().Info().
		Strs("brokers", brokers).
		Int("workers", cfg.Kafka.Workers).
		Str("retry_mode", cfg.Retry.Mode).
		Str("retry_store", cfg.RetryStore.Driver).
		Msg("✅ Order service wired.")
	return nil
}

func startConsumer(app *bootstrap.AppCtx, svc interfaces.OrderHandlerService, poison interfaces.PoisonSink, topic, groupID string, delay time.Duration) {
	consumer := interfaces.NewOrderConsumerAdapter(mq.NewKafkaReader(app.Config.Kafka.Brokers, topic, groupID), svc, poison)
	consumer.SetDelay(delay)
	app.OnShutdown(func(context.Context) error { return consumer.Close() })
	app.Go(consumer.Run)
}

func newRetryStore(app *bootstrap.AppCtx) (port.RetryStore, error) {
	cfg := app.Config.RetryStore
	if cfg.Driver != bootstrap.RetryStoreRedis {
		return adapter.NewMemoryRetryStore(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	app.OnShutdown(func(context.Context) error { return client.Close() })
	logger.L().Info().Str("addr", cfg.RedisAddr).Msg("✅ Successfully connected to Redis.")
	return adapter.NewRedisRetryStore(client, cfg.KeyPrefix, cfg.TTL), nil
}
