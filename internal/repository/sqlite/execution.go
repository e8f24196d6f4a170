package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/thinkfirst/coderunner/internal/model"
	"github.com/thinkfirst/coderunner/internal/repository"
)

// compile-time check that *DB implements repository.ExecutionRepository
var _ repository.ExecutionRepository = (*DB)(nil)

// Create appends an execution record to the audit trail. The record's ID
// and CreatedAt are generated here; xid keys sort by creation time, which
// keeps the index append-friendly.
func (db *DB) Create(ctx context.Context, rec *model.ExecutionRecord) error {
	rec.ID = xid.New().String()
	rec.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO executions (id, user_id, language, code_snippet, outcome, success, exit_code, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.Language,
		rec.CodeSnippet,
		rec.Outcome,
		rec.Success,
		rec.ExitCode,
		rec.ElapsedMillis,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording execution for user %s: %w", rec.UserID, err)
	}

	return nil
}

// ListByUser returns a page of the user's executions, newest first.
func (db *DB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.ExecutionRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, language, code_snippet, outcome, success, exit_code, elapsed_ms, created_at
		 FROM executions
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing executions for user %s: %w", userID, err)
	}
	defer rows.Close()

	records := make([]model.ExecutionRecord, 0, limit)

	for rows.Next() {
		var r model.ExecutionRecord
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Language, &r.CodeSnippet,
			&r.Outcome, &r.Success, &r.ExitCode, &r.ElapsedMillis,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning execution row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating executions: %w", err)
	}

	return records, nil
}
