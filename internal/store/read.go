package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/halcyongames/sigil/internal/ir"
)

// IsCompleted reports whether id is marked done in persistent unlock state.
func (s *Store) IsCompleted(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM completed_unlocks WHERE id = ?`, id,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("is completed: %w", err)
	}
	return true, nil
}

// CompletedIDs returns every id marked done, ordered by id for
// deterministic output.
func (s *Store) CompletedIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM completed_unlocks ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("completed ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("completed ids: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("completed ids: %w", err)
	}
	return ids, nil
}

// ReadLog returns the achieved log ordered by seq ASC, unlock_id ASC.
// If unlockID is non-empty, only that id's events are returned.
func (s *Store) ReadLog(ctx context.Context, unlockID string) ([]ir.Achieved, error) {
	query := `
		SELECT unlock_id, display_name, reward_id, seq, session
		FROM achieved_log
	`
	var args []any
	if unlockID != "" {
		query += ` WHERE unlock_id = ?`
		args = append(args, unlockID)
	}
	query += ` ORDER BY seq ASC, unlock_id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer rows.Close()

	var events []ir.Achieved
	for rows.Next() {
		var ev ir.Achieved
		if err := rows.Scan(&ev.UnlockID, &ev.DisplayName, &ev.RewardID, &ev.Seq, &ev.Session); err != nil {
			return nil, fmt.Errorf("read log: scan: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return events, nil
}

// MaxSeq returns the highest seq in the achieved log, 0 when empty.
// Used to resume the logical clock past already-logged events.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM achieved_log`,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return max, nil
}
