package ingest

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/homevault/notifier/internal/obs/retry"
	kafkax "github.com/homevault/notifier/internal/repository/kafka"
)

var (
	mConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_ingest_consumed_total",
		Help: "Domain events consumed.",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_ingest_errors_total",
		Help: "Transient handler errors (event retried).",
	})
	mDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_ingest_dead_lettered_total",
		Help: "Poison events forwarded to the DLQ topic.",
	})
)

type Runner struct {
	log     *zap.Logger
	cons    *kafkax.Consumer
	dlq     *kafkax.Producer
	handler *Handler
}

func NewRunner(log *zap.Logger, cons *kafkax.Consumer, dlq *kafkax.Producer, handler *Handler) *Runner {
	return &Runner{log: log, cons: cons, dlq: dlq, handler: handler}
}

// Run consumes until ctx is canceled. Poison messages (undecodable or
// unroutable) go to the DLQ and are committed; transient failures are left
// uncommitted so the event is retried.
func (r *Runner) Run(ctx context.Context) error {
	typed := kafkax.JSONHandler[Event](func(ctx context.Context, _ []byte, ev *Event) error {
		return r.handler.Handle(ctx, ev)
	})

	handler := func(ctx context.Context, key, value []byte) error {
		mConsumed.Inc()
		err := typed(ctx, key, value)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, kafkax.ErrDecode), errors.Is(err, ErrUnroutable):
			r.log.Warn("poison event", zap.Error(err))
			r.deadLetter(ctx, key, value)
			return nil
		default:
			mErrors.Inc()
			return err
		}
	}

	if err := r.cons.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}

func (r *Runner) deadLetter(ctx context.Context, key, value []byte) {
	if r.dlq == nil {
		return
	}
	err := retry.Do(ctx, func() error {
		return r.dlq.PublishRaw(ctx, key, value)
	}, retry.DLQPublishPolicy(r.log))
	if err == nil {
		mDeadLettered.Inc()
	}
}
