package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/bookingwidget/internal/infrastructure/oplog"
)

// DBTX is the subset of pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type OperatorLogRepo struct{ db DBTX }

func NewOperatorLogRepo(db DBTX) *OperatorLogRepo { return &OperatorLogRepo{db: db} }

func (r *OperatorLogRepo) Record(ctx context.Context, e oplog.Entry) error {
	attrs, err := json.Marshal(e.Attrs)
	if err != nil {
		return fmt.Errorf("encode attrs: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO operator_log (id, logged_at, level, message, attrs) VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.Time, e.Level, e.Message, string(attrs),
	)
	return err
}

func (r *OperatorLogRepo) List(ctx context.Context, limit int) ([]oplog.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, logged_at, level, message, attrs
		FROM operator_log
		ORDER BY logged_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []oplog.Entry
	for rows.Next() {
		var e oplog.Entry
		var loggedAt time.Time
		var attrs []byte
		if err := rows.Scan(&e.ID, &loggedAt, &e.Level, &e.Message, &attrs); err != nil {
			return nil, err
		}
		e.Time = loggedAt.UTC()
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &e.Attrs); err != nil {
				return nil, fmt.Errorf("decode attrs for %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
