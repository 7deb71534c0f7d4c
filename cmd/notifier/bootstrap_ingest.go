package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/homevault/notifier/internal/config/notifier"
	kafkax "github.com/homevault/notifier/internal/repository/kafka"
	pg "github.com/homevault/notifier/internal/repository/postgres"
	"github.com/homevault/notifier/internal/services/ingest"
	"github.com/homevault/notifier/internal/services/notifier"
)

// startIngest wires the domain-event consumer when Kafka is enabled. Returns
// a close func for the consumer and DLQ producer.
func startIngest(ctx context.Context, cfg *config.Config, logger *zap.Logger, db *pg.DB, svc *notifier.Service, errCh chan<- error) func() {
	if !cfg.Kafka.Enable {
		logger.Info("kafka ingest disabled")
		return func() {}
	}

	cons := kafkax.BootstrapConsumer(ctx, &kafkax.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       cfg.Kafka.GroupID,
		Topic:         cfg.Kafka.Topic,
		FromBeginning: cfg.Kafka.FromBeginning,
		Logger:        logger,
	}, logger)

	dlq := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DLQTopic).WithLogger(logger)

	runner := ingest.NewRunner(logger, cons, dlq, &ingest.Handler{
		Log:        logger,
		Recipients: pg.NewRecipientRepo(db),
		Notifier:   svc,
	})
	go func() { errCh <- runner.Run(ctx) }()

	return func() {
		_ = cons.Close()
		_ = dlq.Close()
	}
}
