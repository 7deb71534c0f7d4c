package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DLQPublishPolicy governs forwarding of poison events to the dead-letter
// topic. A poison event must not be dropped just because the broker hiccuped.
func DLQPublishPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "dlq_publish",
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("dlq publish retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("dlq publish retries exhausted", zap.Error(err))
			}
		},
	}
}
