package storage

import (
	"context"
	"encoding/json"

	"github.com/md-rashed-zaman/roombook/libs/db"
)

const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
	id            BIGSERIAL PRIMARY KEY,
	submission_id TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	channel       TEXT NOT NULL,
	recipient     TEXT NOT NULL,
	payload       JSONB NOT NULL,
	status        TEXT NOT NULL,
	provider_id   TEXT NOT NULL DEFAULT '',
	error_reason  TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

type Notification struct {
	SubmissionID string
	UserID       string
	Channel      string
	Recipient    string
	Payload      any
	Status       string
	ProviderID   string
	ErrorReason  string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (submission_id, user_id, channel, recipient, payload, status, provider_id, error_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.SubmissionID, n.UserID, n.Channel, n.Recipient, payload, n.Status, n.ProviderID, n.ErrorReason)
	return err
}
