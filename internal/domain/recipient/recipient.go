package recipient

import (
	"context"
	"time"
)

// Recipient is the internal identity notifications are addressed to. It is
// provisioned by the platform when a user account gets its first lease or
// listing, so a valid session may exist before a recipient record does.
type Recipient struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo interface {
	GetByID(ctx context.Context, id int64) (*Recipient, error)
	GetByUserID(ctx context.Context, userID int64) (*Recipient, error)
}
