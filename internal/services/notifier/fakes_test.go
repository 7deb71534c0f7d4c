package notifier

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/homevault/notifier/internal/domain/notification"
	"github.com/homevault/notifier/internal/domain/recipient"
	pg "github.com/homevault/notifier/internal/repository/postgres"
)

// fakeStore is an in-memory notification.Store with the same ordering and
// owner-scoping semantics as the postgres repo.
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	base       time.Time
	items      []*notification.Notification
	createErr  error
	listErr    error
	countErr   error
	updateErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *fakeStore) Create(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	n.ID = s.nextID
	n.CreatedAt = s.base.Add(time.Duration(s.nextID) * time.Second)
	cp := *n
	s.items = append(s.items, &cp)
	return nil
}

func (s *fakeStore) ListRecent(_ context.Context, recipientID int64, limit int) ([]*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*notification.Notification
	for _, n := range s.items {
		if n.RecipientID == recipientID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) UnreadCount(_ context.Context, recipientID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	count := 0
	for _, n := range s.items {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) MarkRead(_ context.Context, recipientID int64, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return 0, s.updateErr
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var updated int64
	for _, n := range s.items {
		if n.RecipientID == recipientID && want[n.ID] && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (s *fakeStore) MarkAllRead(_ context.Context, recipientID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return 0, s.updateErr
	}
	var updated int64
	for _, n := range s.items {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

type published struct {
	recipientID int64
	n           *notification.Notification
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []published
}

func (p *fakePublisher) Publish(recipientID int64, n *notification.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, published{recipientID: recipientID, n: n})
}

func (p *fakePublisher) published() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.calls...)
}

type fakeRecipients struct {
	byUserID map[int64]*recipient.Recipient
}

func (f *fakeRecipients) GetByID(_ context.Context, id int64) (*recipient.Recipient, error) {
	for _, r := range f.byUserID {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, pg.ErrNotFound
}

func (f *fakeRecipients) GetByUserID(_ context.Context, userID int64) (*recipient.Recipient, error) {
	if r, ok := f.byUserID[userID]; ok {
		return r, nil
	}
	return nil, pg.ErrNotFound
}
