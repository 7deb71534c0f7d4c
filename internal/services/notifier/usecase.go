package notifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/homevault/notifier/internal/domain/notification"
)

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrRecipientNotFound = errors.New("recipient not found")
)

// PageSize caps how many notifications a single list request returns.
const PageSize = 20

// Transactor mirrors the postgres transactor so batch creates commit
// atomically.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Overview struct {
	Notifications []*notification.Notification `json:"notifications"`
	UnreadCount   int                          `json:"unread_count"`
}

// Service orchestrates the store and the delivery bus. Creation persists
// first and publishes after; reads never touch the bus.
type Service struct {
	log   *zap.Logger
	store notification.Store
	bus   notification.Publisher
	tx    Transactor
}

func NewService(log *zap.Logger, store notification.Store, bus notification.Publisher, tx Transactor) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log, store: store, bus: bus, tx: tx}
}

// Notify persists a notification and then pushes it to any live stream for
// the recipient. The push is best effort and can never fail the call; the
// record is already durable by the time it happens.
func (s *Service) Notify(ctx context.Context, recipientID int64, kind string, payload map[string]any) (*notification.Notification, error) {
	raw, err := notification.EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	n := &notification.Notification{
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     raw,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.bus.Publish(recipientID, n)
	return n, nil
}

// NotifyMany fans one event out to several recipients. All records commit in
// a single transaction; publishing happens only after the commit so no live
// stream ever sees a record that later rolled back.
func (s *Service) NotifyMany(ctx context.Context, recipientIDs []int64, kind string, payload map[string]any) ([]*notification.Notification, error) {
	raw, err := notification.EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	out := make([]*notification.Notification, 0, len(recipientIDs))
	create := func(ctx context.Context) error {
		for _, rid := range recipientIDs {
			n := &notification.Notification{RecipientID: rid, Kind: kind, Payload: raw}
			if err := s.store.Create(ctx, n); err != nil {
				return fmt.Errorf("create notification for recipient %d: %w", rid, err)
			}
			out = append(out, n)
		}
		return nil
	}

	if s.tx != nil {
		err = s.tx.WithTx(ctx, create)
	} else {
		err = create(ctx)
	}
	if err != nil {
		return nil, err
	}

	for _, n := range out {
		s.bus.Publish(n.RecipientID, n)
	}
	return out, nil
}

// Overview returns the most recent page plus an independent unread count, so
// the count stays right even when unread records fall off the page.
func (s *Service) Overview(ctx context.Context, recipientID int64) (*Overview, error) {
	items, err := s.store.ListRecent(ctx, recipientID, PageSize)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.store.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("unread count: %w", err)
	}
	return &Overview{Notifications: items, UnreadCount: unread}, nil
}

// MarkRead flips the given notifications to read. Ids owned by someone else
// are skipped silently by the store, so a hostile caller learns nothing.
func (s *Service) MarkRead(ctx context.Context, recipientID int64, ids []int64) error {
	updated, err := s.store.MarkRead(ctx, recipientID, ids)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	s.log.Debug("notifications marked read",
		zap.Int64("recipient_id", recipientID),
		zap.Int("requested", len(ids)),
		zap.Int64("updated", updated),
	)
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID int64) error {
	updated, err := s.store.MarkAllRead(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	s.log.Debug("all notifications marked read",
		zap.Int64("recipient_id", recipientID),
		zap.Int64("updated", updated),
	)
	return nil
}
