package postgres

import (
	"context"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS operator_log (
	id UUID PRIMARY KEY,
	logged_at TIMESTAMPTZ NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	attrs JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_operator_log_logged_at ON operator_log(logged_at DESC);
`

func Migrate(ctx context.Context, db DBTX) error {
	_, err := db.Exec(ctx, schemaSQL)
	return err
}
