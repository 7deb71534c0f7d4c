package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/homevault/notifier/internal/domain/recipient"
)

var _ recipient.Repo = (*RecipientRepo)(nil)

type RecipientRepo struct{ db *DB }

func NewRecipientRepo(db *DB) *RecipientRepo { return &RecipientRepo{db: db} }

const (
	qRecipientByID = `
SELECT id, user_id, email, created_at
FROM recipients
WHERE id = $1;
`
	qRecipientByUserID = `
SELECT id, user_id, email, created_at
FROM recipients
WHERE user_id = $1;
`
)

func (r *RecipientRepo) GetByID(ctx context.Context, id int64) (*recipient.Recipient, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rec recipient.Recipient
	if err := scanRecipient(r.db.execQueryer(ctx).QueryRow(ctx, qRecipientByID, id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RecipientRepo) GetByUserID(ctx context.Context, userID int64) (*recipient.Recipient, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rec recipient.Recipient
	if err := scanRecipient(r.db.execQueryer(ctx).QueryRow(ctx, qRecipientByUserID, userID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanRecipient(row pgx.Row, out *recipient.Recipient) error {
	if err := row.Scan(&out.ID, &out.UserID, &out.Email, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan recipient: %w", err)
	}
	return nil
}
