package store

import (
	"context"
	"fmt"
	"time"
)

// Work order lifecycle. PROCESSING is an exclusive claim: exactly one
// worker holds a work order at a time, enforced by the conditional UPDATE
// in Claim.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

type WorkOrder struct {
	WorkID     int64
	Status     string
	RetryCount int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// QueueCounts is a snapshot of the work order queue by status.
type QueueCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// EnqueueWorkOrder registers a work order for analysis. Re-enqueueing an
// order that already exists is a no-op, whatever state it is in.
func (s *Store) EnqueueWorkOrder(ctx context.Context, workID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO work_orders (work_id, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, 0, now(), now())
		ON CONFLICT (work_id) DO NOTHING`,
		workID, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("enqueue work order: %w", err)
	}
	return nil
}

// PendingWorkOrders returns up to limit claimable work orders, oldest first.
func (s *Store) PendingWorkOrders(ctx context.Context, limit int) ([]WorkOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT work_id, status, retry_count, COALESCE(last_error, ''), created_at, updated_at
		FROM work_orders
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2`,
		StatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending work orders: %w", err)
	}
	defer rows.Close()

	var orders []WorkOrder
	for rows.Next() {
		var o WorkOrder
		if err := rows.Scan(&o.WorkID, &o.Status, &o.RetryCount, &o.LastError, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Claim atomically moves a work order from PENDING to PROCESSING. It
// returns false when the order was already claimed, completed, or unknown;
// callers treat that as "someone else has it" and move on.
func (s *Store) Claim(ctx context.Context, workID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE work_orders
		SET status = $1, updated_at = now()
		WHERE work_id = $2 AND status = $3`,
		StatusProcessing, workID, StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim work order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted finishes a claimed work order. Outcome records whether the
// analysis result was persisted or discarded as low risk.
func (s *Store) MarkCompleted(ctx context.Context, workID int64, outcome string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE work_orders
		SET status = $1, outcome = $2, last_error = NULL, updated_at = now()
		WHERE work_id = $3`,
		StatusCompleted, outcome, workID,
	)
	if err != nil {
		return fmt.Errorf("mark work order completed: %w", err)
	}
	return nil
}

// MarkFailed records a failure and bumps the retry counter. The order
// stays FAILED until an operator resets it.
func (s *Store) MarkFailed(ctx context.Context, workID int64, errText string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE work_orders
		SET status = $1, last_error = $2, retry_count = retry_count + 1, updated_at = now()
		WHERE work_id = $3`,
		StatusFailed, errText, workID,
	)
	if err != nil {
		return fmt.Errorf("mark work order failed: %w", err)
	}
	return nil
}

// ResetFailed moves FAILED work orders back to PENDING, clearing their
// error. With ids it resets exactly those orders; without, it resets up to
// limit of the oldest failures. Returns how many orders were reset.
func (s *Store) ResetFailed(ctx context.Context, ids []int64, limit int) (int64, error) {
	if len(ids) > 0 {
		tag, err := s.pool.Exec(ctx, `
			UPDATE work_orders
			SET status = $1, last_error = NULL, updated_at = now()
			WHERE work_id = ANY($2) AND status = $3`,
			StatusPending, ids, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("reset failed work orders: %w", err)
		}
		return tag.RowsAffected(), nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE work_orders
		SET status = $1, last_error = NULL, updated_at = now()
		WHERE work_id IN (
			SELECT work_id FROM work_orders
			WHERE status = $2
			ORDER BY updated_at
			LIMIT $3
		)`,
		StatusPending, StatusFailed, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("reset failed work orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueueStatus counts work orders by status.
func (s *Store) QueueStatus(ctx context.Context) (QueueCounts, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, count(*) FROM work_orders GROUP BY status`)
	if err != nil {
		return QueueCounts{}, fmt.Errorf("query queue status: %w", err)
	}
	defer rows.Close()

	var counts QueueCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return QueueCounts{}, fmt.Errorf("scan queue status: %w", err)
		}
		switch status {
		case StatusPending:
			counts.Pending = n
		case StatusProcessing:
			counts.Processing = n
		case StatusCompleted:
			counts.Completed = n
		case StatusFailed:
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

// CleanupCompleted deletes completed work orders older than the retention
// window. Analysis results are kept; only the queue bookkeeping goes.
func (s *Store) CleanupCompleted(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM work_orders
		WHERE status = $1 AND updated_at < $2`,
		StatusCompleted, time.Now().Add(-retention),
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup work orders: %w", err)
	}
	return tag.RowsAffected(), nil
}
