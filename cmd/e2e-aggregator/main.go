// Command e2e-aggregator consumes streamed test results and run summaries,
// stores and persists finished runs, and serves the results dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"github.com/wb-go/e2ekit/aggregator"
	"github.com/wb-go/e2ekit/config"
	pgxdriver "github.com/wb-go/e2ekit/dbpg/pgx-driver"
	"github.com/wb-go/e2ekit/dbpg/pgx-driver/transaction"
	"github.com/wb-go/e2ekit/ginext"
	"github.com/wb-go/e2ekit/kafka/dlq"
	kafkav2 "github.com/wb-go/e2ekit/kafka/kafka-v2"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/metrics"
	"github.com/wb-go/e2ekit/rabbitmq"
	"github.com/wb-go/e2ekit/redis"
	"github.com/wb-go/e2ekit/retry"
	"github.com/wb-go/e2ekit/slack"
)

const (
	appName         = "e2e-aggregator"
	summaryQueue    = "e2e.aggregator.summaries"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := pflag.String("config", "", "path to suite config file")
	envFile := pflag.String("env-file", "", "path to .env file")
	pflag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	suite, err := config.Load(configPath, envFile, config.DefaultEnvPrefix)
	if err != nil {
		return err
	}

	log, err := suite.Log.Logger(appName, suite.Slack.Environment)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	strategy := suite.Retry.Strategy(retry.WithLogger(log.With("component", "retry")))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(registry)

	store := redis.FromConfig(suite.Redis)
	defer func() { _ = store.Close() }()
	if err := store.PingWithRetry(ctx, strategy); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	opts := []aggregator.Option{
		aggregator.WithMetrics(m),
		aggregator.WithTTL(suite.Redis.TTL),
		aggregator.WithNotifier(slack.FromConfig(suite.Slack, slack.WithLogger(log))),
	}

	if suite.Postgres.DSN != "" {
		pg, err := pgxdriver.FromConfig(ctx, suite.Postgres, log)
		if err != nil {
			return err
		}
		defer pg.Close()

		tm, err := transaction.NewManager(pg, log)
		if err != nil {
			return err
		}
		repo := pgxdriver.NewResultsRepository(suite.Slack.Environment)
		opts = append(opts, aggregator.WithPersister(aggregator.NewPostgresPersister(tm, repo)))
	}

	agg := aggregator.New(store, strategy, log, opts...)

	var workers []<-chan struct{}

	if len(suite.Kafka.Brokers) > 0 {
		consumer := kafkav2.NewConsumer(suite.Kafka.Brokers, suite.Kafka.Topic, suite.Kafka.GroupID, log)
		defer func() { _ = consumer.Close() }()
		dlqProducer := kafkav2.NewProducer(suite.Kafka.Brokers, suite.Kafka.DLQTopic, log)
		defer func() { _ = dlqProducer.Close() }()

		proc, err := kafkav2.NewProcessor(consumer, dlq.New(dlqProducer, log), log,
			kafkav2.WithRetryOptions(m.Hook("kafka_result")))
		if err != nil {
			return err
		}
		workers = append(workers, proc.Start(ctx, kafkav2.ResultHandler(agg.HandleResult)))
	}

	if suite.RabbitMQ.URL != "" {
		done, err := startSummaryConsumer(ctx, suite, agg, log)
		if err != nil {
			return err
		}
		workers = append(workers, done)
	}

	srv := &http.Server{
		Addr:              suite.Dashboard.Addr,
		Handler:           ginext.NewDashboard(store, registry, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		if err != nil {
			stop()
			log.Error("dashboard failed", "error", err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("dashboard shutdown", "error", err.Error())
	}
	for _, done := range workers {
		<-done
	}
	log.Info("stopped")
	return nil
}

func startSummaryConsumer(ctx context.Context, suite config.Suite, agg *aggregator.Aggregator, log logger.Logger) (<-chan struct{}, error) {
	client, err := rabbitmq.NewClient(rabbitmq.ClientConfigFromSuite(suite.RabbitMQ, suite.Retry.Strategy(), log))
	if err != nil {
		return nil, err
	}
	if err := client.DeclareExchange(suite.RabbitMQ.Exchange, "topic", true, false, false, nil); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := client.DeclareQueue(summaryQueue, suite.RabbitMQ.Exchange, "run.*", true, false, nil); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	consumer := rabbitmq.NewConsumer(client, rabbitmq.ConsumerConfig{
		Queue:         summaryQueue,
		ConsumerTag:   appName,
		Workers:       2,
		PrefetchCount: 4,
		Nack:          rabbitmq.NackConfig{Requeue: true},
	}, rabbitmq.SummaryHandler(agg.HandleSummary))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = client.Close() }()
		_ = consumer.Start(ctx)
	}()
	return done, nil
}
