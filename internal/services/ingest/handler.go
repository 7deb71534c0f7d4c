// Package ingest feeds the notifier from the platform's domain event topic.
// Payment, messaging, and maintenance services publish JSON events there; the
// runner lives in the same process as the stream sessions so brokered
// triggers reach live clients through the in-process bus.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/homevault/notifier/internal/domain/notification"
	"github.com/homevault/notifier/internal/domain/recipient"
	pg "github.com/homevault/notifier/internal/repository/postgres"
	"github.com/homevault/notifier/internal/services/notifier"
)

// ErrUnroutable marks events that can never be delivered no matter how often
// they are retried: unknown kinds or empty addressing.
var ErrUnroutable = errors.New("unroutable event")

// Event is the wire shape on the notification-events topic. Producers address
// platform user ids; resolution to recipient identities happens here.
type Event struct {
	Event   string         `json:"event"` // e.g. "payment.received"
	UserIDs []int64        `json:"user_ids"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Kind derives the notification kind from the event name prefix
// ("payment.received" -> "payment").
func (e *Event) Kind() (string, bool) {
	prefix, _, _ := strings.Cut(e.Event, ".")
	switch prefix {
	case notification.KindMessage, notification.KindPayment,
		notification.KindMaintenance, notification.KindLease:
		return prefix, true
	}
	return "", false
}

type Handler struct {
	Log        *zap.Logger
	Recipients recipient.Repo
	Notifier   *notifier.Service
}

// Handle resolves the addressed users to recipients and creates their
// notifications. Users without a recipient record yet are skipped; an event
// nobody can receive is not an error.
func (h *Handler) Handle(ctx context.Context, ev *Event) error {
	kind, ok := ev.Kind()
	if !ok {
		return fmt.Errorf("%w: unknown event %q", ErrUnroutable, ev.Event)
	}
	if len(ev.UserIDs) == 0 {
		return fmt.Errorf("%w: no addressees", ErrUnroutable)
	}

	rids := make([]int64, 0, len(ev.UserIDs))
	for _, uid := range ev.UserIDs {
		rec, err := h.Recipients.GetByUserID(ctx, uid)
		if err != nil {
			if errors.Is(err, pg.ErrNotFound) {
				h.Log.Warn("event addressed to user without recipient", zap.Int64("user_id", uid), zap.String("event", ev.Event))
				continue
			}
			return fmt.Errorf("resolve recipient for user %d: %w", uid, err)
		}
		rids = append(rids, rec.ID)
	}
	if len(rids) == 0 {
		return nil
	}

	if _, err := h.Notifier.NotifyMany(ctx, rids, kind, ev.Payload); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}
