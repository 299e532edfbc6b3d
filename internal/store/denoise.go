package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/svcaudit/vigil/internal/denoise"
)

// SaveDenoiseRecords writes one audit row per removed comment so filtered
// content stays inspectable. batchID groups the rows of one analysis run.
func (s *Store) SaveDenoiseRecords(ctx context.Context, batchID uuid.UUID, workID int64, res *denoise.Result) error {
	if res == nil || len(res.Removed) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rm := range res.Removed {
		_, err := tx.Exec(ctx, `
			INSERT INTO denoise_records (id, batch_id, work_id, comment_id, content, reason, removed_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())`,
			uuid.New(), batchID, workID, rm.Comment.ID, rm.Comment.Text, rm.Reason,
		)
		if err != nil {
			return fmt.Errorf("insert denoise record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
