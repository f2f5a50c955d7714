package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/roombook/libs/db"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

// Querier is satisfied by both the pool and a transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type SubmissionRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	UserID         string
	IdempotencyKey string
	SubmissionID   string
}

func (r IdempotencyRecord) Completed() bool { return r.SubmissionID != "" }

func NewSubmissionRepository(pool *db.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

func (r *SubmissionRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockIdempotencyKey returns the key row locked for the rest of tx, creating
// it when missing. existed is false for a freshly inserted key.
func (r *SubmissionRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, userID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, userID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO submission_idempotency_keys (user_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (user_id, idempotency_key) DO NOTHING
	`, userID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, userID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *SubmissionRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, userID, key, submissionID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE submission_idempotency_keys
		SET submission_id = $3,
			updated_at = now()
		WHERE user_id = $1 AND idempotency_key = $2
	`, userID, key, submissionID)
	return err
}

// FindIdempotency reads a key without locking it.
func (r *SubmissionRepository) FindIdempotency(ctx context.Context, userID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, idempotency_key, COALESCE(submission_id::text, '')
		FROM submission_idempotency_keys
		WHERE user_id = $1 AND idempotency_key = $2
	`, userID, key).Scan(&rec.UserID, &rec.IdempotencyKey, &rec.SubmissionID)
	return rec, err
}

func (r *SubmissionRepository) Insert(ctx context.Context, tx pgx.Tx, sub *model.Submission) error {
	slots, err := json.Marshal(sub.Slots)
	if err != nil {
		return err
	}
	conflicts, err := json.Marshal(sub.Conflicts)
	if err != nil {
		return err
	}
	return tx.QueryRow(ctx, `
		INSERT INTO submissions
			(id, draft_id, room_id, user_id, user_email, title, note, reservation_id, slots, conflicts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, sub.ID, sub.DraftID, sub.RoomID, sub.UserID, sub.UserEmail, sub.Title, sub.Note, sub.ReservationID,
		slots, conflicts).Scan(&sub.CreatedAt)
}

const submissionColumns = `id::text, draft_id, room_id, user_id, user_email, title, note, reservation_id, slots, conflicts, created_at`

func (r *SubmissionRepository) Get(ctx context.Context, q Querier, userID, id string) (model.Submission, error) {
	if q == nil {
		q = r.pool
	}
	return scanSubmission(q.QueryRow(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE id = $1 AND user_id = $2
	`, id, userID))
}

func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subs, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func scanSubmission(row pgx.Row) (model.Submission, error) {
	var sub model.Submission
	var slots, conflicts []byte
	if err := row.Scan(
		&sub.ID,
		&sub.DraftID,
		&sub.RoomID,
		&sub.UserID,
		&sub.UserEmail,
		&sub.Title,
		&sub.Note,
		&sub.ReservationID,
		&slots,
		&conflicts,
		&sub.CreatedAt,
	); err != nil {
		return model.Submission{}, err
	}
	if err := json.Unmarshal(slots, &sub.Slots); err != nil {
		return model.Submission{}, err
	}
	if err := json.Unmarshal(conflicts, &sub.Conflicts); err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

func (r *SubmissionRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, userID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := tx.QueryRow(ctx, `
		SELECT user_id, idempotency_key, COALESCE(submission_id::text, '')
		FROM submission_idempotency_keys
		WHERE user_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, userID, key).Scan(&rec.UserID, &rec.IdempotencyKey, &rec.SubmissionID)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	return rec, nil
}
