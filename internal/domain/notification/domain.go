package notification

import "context"

// Store is the durable source of truth for notification content and read
// state. Every query and mutation is scoped to the owning recipient.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListRecent(ctx context.Context, recipientID int64, limit int) ([]*Notification, error)
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
	// MarkRead flips read=false to true for the given ids; ids not owned by
	// recipientID are skipped silently. Returns the number of rows updated.
	MarkRead(ctx context.Context, recipientID int64, ids []int64) (int64, error)
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
}

// Publisher pushes a freshly persisted notification to whoever is watching.
// Delivery is best effort; the store remains authoritative.
type Publisher interface {
	Publish(recipientID int64, n *Notification)
}
