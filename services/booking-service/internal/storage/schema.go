package storage

// Schema is applied at startup with db.Pool.Migrate. Every statement is
// idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		id uuid PRIMARY KEY,
		draft_id text NOT NULL,
		room_id integer NOT NULL,
		user_id text NOT NULL,
		user_email text NOT NULL DEFAULT '',
		title text NOT NULL,
		note text NOT NULL DEFAULT '',
		reservation_id text NOT NULL,
		slots jsonb NOT NULL,
		conflicts jsonb NOT NULL DEFAULT '[]'::jsonb,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS submissions_user_created_idx ON submissions (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS submission_idempotency_keys (
		user_id text NOT NULL,
		idempotency_key text NOT NULL,
		submission_id uuid REFERENCES submissions (id),
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, idempotency_key)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id bigserial PRIMARY KEY,
		event_id uuid NOT NULL DEFAULT gen_random_uuid(),
		aggregate_type text NOT NULL,
		aggregate_id text NOT NULL,
		event_type text NOT NULL,
		payload jsonb NOT NULL,
		traceparent text NOT NULL DEFAULT '',
		tracestate text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now(),
		published_at timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_unpublished_idx ON outbox_events (id) WHERE published_at IS NULL`,
}
