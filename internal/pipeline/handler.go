package pipeline

import (
	"context"
	"encoding/json"

	"github.com/svcaudit/vigil/internal/events"
)

// HandleWorkOrderIngested is the NATS handler for vigil.workorder.ingested.
// It registers the work order and runs it through the pipeline immediately;
// the claim step keeps duplicate deliveries harmless.
func (p *Pipeline) HandleWorkOrderIngested(subject string, data []byte) {
	ctx := context.Background()

	var evt events.IngestEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse ingest event", "error", err)
		return
	}
	if evt.WorkID == 0 {
		p.logger.Error("ingest event without work_id")
		return
	}

	p.logger.Info("work order ingested", "work_id", evt.WorkID, "comments", len(evt.Comments))

	if err := p.store.EnqueueWorkOrder(ctx, evt.WorkID); err != nil {
		p.logger.Error("failed to enqueue work order", "work_id", evt.WorkID, "error", err)
		return
	}
	if _, err := p.Process(ctx, evt.WorkID, evt.Comments); err != nil {
		p.logger.Error("ingest processing failed", "work_id", evt.WorkID, "error", err)
	}
}
