package store

import (
	"context"
	"fmt"

	"github.com/halcyongames/sigil/internal/ir"
)

// MarkCompleted records id as done in persistent unlock state.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: marking a finished
// unlock twice is a silent no-op, and the original seq/session win.
func (s *Store) MarkCompleted(ctx context.Context, id string, seq int64, session string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completed_unlocks (id, seq, session)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, seq, session)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// AppendAchieved appends one Achieved event to the achieved log.
// The log is append-only; there is nothing to conflict with.
func (s *Store) AppendAchieved(ctx context.Context, ev ir.Achieved) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO achieved_log (unlock_id, display_name, reward_id, seq, session)
		VALUES (?, ?, ?, ?, ?)
	`,
		ev.UnlockID,
		ev.DisplayName,
		ev.RewardID,
		ev.Seq,
		ev.Session,
	)
	if err != nil {
		return fmt.Errorf("append achieved: %w", err)
	}
	return nil
}
