// Package bus is the process-local fan-out for freshly created notifications.
// It exists purely to avoid polling latency: delivery is synchronous, best
// effort, and scoped to subscribers registered in this process. Durability is
// the store's job.
package bus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/homevault/notifier/internal/domain/notification"
)

var (
	mPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_bus_published_total",
		Help: "Notifications published to the delivery bus.",
	})
	mDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_bus_delivered_total",
		Help: "Listener callbacks invoked.",
	})
	mPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_bus_listener_panics_total",
		Help: "Listener callbacks that panicked during delivery.",
	})
	mSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notifier_bus_subscribers",
		Help: "Currently registered listeners.",
	})
)

// Listener receives one persisted notification. It runs on the publisher's
// goroutine and must not block.
type Listener func(n *notification.Notification)

type entry struct {
	seq int64
	fn  Listener
}

// Bus maps recipient ids to their registered listeners. One instance is
// constructed at process start and injected wherever delivery or subscription
// happens; tests build their own instances.
type Bus struct {
	log *zap.Logger

	mu     sync.RWMutex
	seq    int64
	topics map[int64][]entry
}

var _ notification.Publisher = (*Bus)(nil)

func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		log:    log,
		topics: make(map[int64][]entry),
	}
}

// Subscribe registers fn for recipientID and returns its unsubscribe handle.
// The handle removes exactly this registration and is safe to call more than
// once.
func (b *Bus) Subscribe(recipientID int64, fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.topics[recipientID] = append(b.topics[recipientID], entry{seq: id, fn: fn})
	b.mu.Unlock()
	mSubscribers.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(recipientID, id)
			mSubscribers.Dec()
		})
	}
}

func (b *Bus) remove(recipientID, seq int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.topics[recipientID]
	for i, e := range entries {
		if e.seq == seq {
			b.topics[recipientID] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.topics[recipientID]) == 0 {
		delete(b.topics, recipientID)
	}
}

// Publish invokes every listener currently registered for recipientID, in
// registration order. No listeners is a no-op, not an error. A panic in one
// listener is logged and does not abort delivery to the rest.
func (b *Bus) Publish(recipientID int64, n *notification.Notification) {
	b.mu.RLock()
	entries := b.topics[recipientID]
	snapshot := make([]entry, len(entries))
	copy(snapshot, entries)
	b.mu.RUnlock()

	mPublished.Inc()
	for _, e := range snapshot {
		b.deliver(recipientID, e, n)
	}
}

func (b *Bus) deliver(recipientID int64, e entry, n *notification.Notification) {
	defer func() {
		if r := recover(); r != nil {
			mPanics.Inc()
			b.log.Error("bus listener panic",
				zap.Int64("recipient_id", recipientID),
				zap.Int64("notification_id", n.ID),
				zap.Any("panic", r),
			)
		}
	}()
	e.fn(n)
	mDelivered.Inc()
}
