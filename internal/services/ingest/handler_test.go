package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/homevault/notifier/internal/domain/notification"
	"github.com/homevault/notifier/internal/domain/recipient"
	pg "github.com/homevault/notifier/internal/repository/postgres"
	"github.com/homevault/notifier/internal/services/notifier"
)

type memStore struct {
	mu        sync.Mutex
	nextID    int64
	created   []*notification.Notification
	createErr error
}

func (s *memStore) Create(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	n.ID = s.nextID
	s.created = append(s.created, n)
	return nil
}

func (s *memStore) ListRecent(context.Context, int64, int) ([]*notification.Notification, error) {
	return nil, nil
}
func (s *memStore) UnreadCount(context.Context, int64) (int, error)       { return 0, nil }
func (s *memStore) MarkRead(context.Context, int64, []int64) (int64, error) { return 0, nil }
func (s *memStore) MarkAllRead(context.Context, int64) (int64, error)     { return 0, nil }

type nopPublisher struct{}

func (nopPublisher) Publish(int64, *notification.Notification) {}

type memRecipients struct {
	byUserID map[int64]*recipient.Recipient
}

func (m *memRecipients) GetByID(context.Context, int64) (*recipient.Recipient, error) {
	return nil, pg.ErrNotFound
}

func (m *memRecipients) GetByUserID(_ context.Context, userID int64) (*recipient.Recipient, error) {
	if r, ok := m.byUserID[userID]; ok {
		return r, nil
	}
	return nil, pg.ErrNotFound
}

func newIngestHandler(store *memStore, recs map[int64]*recipient.Recipient) *Handler {
	return &Handler{
		Log:        zap.NewNop(),
		Recipients: &memRecipients{byUserID: recs},
		Notifier:   notifier.NewService(zap.NewNop(), store, nopPublisher{}, nil),
	}
}

func TestEventKind(t *testing.T) {
	cases := []struct {
		event string
		kind  string
		ok    bool
	}{
		{"payment.received", notification.KindPayment, true},
		{"message.created", notification.KindMessage, true},
		{"maintenance.status_changed", notification.KindMaintenance, true},
		{"lease.expiring", notification.KindLease, true},
		{"payment", notification.KindPayment, true},
		{"billing.invoice", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		ev := &Event{Event: tc.event}
		kind, ok := ev.Kind()
		assert.Equal(t, tc.ok, ok, tc.event)
		assert.Equal(t, tc.kind, kind, tc.event)
	}
}

func TestHandle_RoutesToResolvedRecipients(t *testing.T) {
	store := &memStore{}
	h := newIngestHandler(store, map[int64]*recipient.Recipient{
		1: {ID: 10, UserID: 1},
		2: {ID: 20, UserID: 2},
	})

	err := h.Handle(context.Background(), &Event{
		Event:   "payment.received",
		UserIDs: []int64{1, 2},
		Payload: map[string]any{"amount": 1200},
	})
	require.NoError(t, err)

	require.Len(t, store.created, 2)
	assert.Equal(t, int64(10), store.created[0].RecipientID)
	assert.Equal(t, int64(20), store.created[1].RecipientID)
	for _, n := range store.created {
		assert.Equal(t, notification.KindPayment, n.Kind)
		assert.JSONEq(t, `{"amount":1200}`, string(n.Payload))
	}
}

func TestHandle_UnknownEventIsUnroutable(t *testing.T) {
	h := newIngestHandler(&memStore{}, nil)

	err := h.Handle(context.Background(), &Event{Event: "billing.invoice", UserIDs: []int64{1}})
	assert.ErrorIs(t, err, ErrUnroutable)
}

func TestHandle_NoAddresseesIsUnroutable(t *testing.T) {
	h := newIngestHandler(&memStore{}, nil)

	err := h.Handle(context.Background(), &Event{Event: "payment.received"})
	assert.ErrorIs(t, err, ErrUnroutable)
}

func TestHandle_SkipsUsersWithoutRecipient(t *testing.T) {
	store := &memStore{}
	h := newIngestHandler(store, map[int64]*recipient.Recipient{
		2: {ID: 20, UserID: 2},
	})

	err := h.Handle(context.Background(), &Event{
		Event:   "message.created",
		UserIDs: []int64{1, 2, 3},
	})
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Equal(t, int64(20), store.created[0].RecipientID)
}

func TestHandle_AllAddresseesUnknownIsNotAnError(t *testing.T) {
	store := &memStore{}
	h := newIngestHandler(store, nil)

	err := h.Handle(context.Background(), &Event{
		Event:   "lease.expiring",
		UserIDs: []int64{7, 8},
	})
	require.NoError(t, err)
	assert.Empty(t, store.created)
}

func TestHandle_StorageErrorIsTransient(t *testing.T) {
	store := &memStore{createErr: errors.New("connection reset")}
	h := newIngestHandler(store, map[int64]*recipient.Recipient{
		1: {ID: 10, UserID: 1},
	})

	err := h.Handle(context.Background(), &Event{Event: "payment.received", UserIDs: []int64{1}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnroutable)
}
