package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// BatchSummary is the outcome tally of one batch run.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// RunBatch processes a set of work orders with bounded concurrency. A
// panic in one order is contained, marked as that order's failure, and
// never takes down the batch.
func (p *Pipeline) RunBatch(ctx context.Context, workIDs []int64) BatchSummary {
	summary := BatchSummary{Total: len(workIDs)}
	if len(workIDs) == 0 {
		return summary
	}

	p.logger.Info("starting batch analysis", "orders", len(workIDs), "max_concurrent", p.maxConcurrent)

	sem := make(chan struct{}, p.maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, workID := range workIDs {
		if ctx.Err() != nil {
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(workID int64) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("panic while processing work order", "work_id", workID, "panic", r)
					p.fail(ctx, workID, fmt.Errorf("panic: %v", r))
					mu.Lock()
					summary.Failed++
					mu.Unlock()
				}
			}()

			result, err := p.Process(ctx, workID, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
			case result == nil:
				summary.Skipped++
			default:
				summary.Succeeded++
			}
		}(workID)
	}
	wg.Wait()

	p.logger.Info("batch analysis finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary
}
