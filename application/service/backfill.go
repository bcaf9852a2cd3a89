package service

import (
	"context"
	"time"
)

// BackfillItem pairs an index request with its document source for bulk
// re-indexing.
type BackfillItem struct {
	req IndexRequest
	src DocumentSource
}

// NewBackfillItem creates a BackfillItem.
func NewBackfillItem(req IndexRequest, src DocumentSource) BackfillItem {
	return BackfillItem{req: req, src: src}
}

// BackfillReport summarizes a bulk indexing run.
type BackfillReport struct {
	indexed int
	skipped int
	failed  int
}

// Indexed returns how many entities got a new generation.
func (r BackfillReport) Indexed() int { return r.indexed }

// Skipped returns how many entities were skipped (unsupported or too short).
func (r BackfillReport) Skipped() int { return r.skipped }

// Failed returns how many entities failed to index.
func (r BackfillReport) Failed() int { return r.failed }

// Total returns the number of entities processed.
func (r BackfillReport) Total() int { return r.indexed + r.skipped + r.failed }

// Backfill indexes a batch of documents one entity at a time. A failing
// entity is counted and logged but never stops the batch; a short pause
// between entities keeps the embedding API under its rate limits. Context
// cancellation stops the batch and returns the partial report.
func (i *Indexer) Backfill(ctx context.Context, items []BackfillItem) (BackfillReport, error) {
	var report BackfillReport

	for n, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := i.IndexDocument(ctx, item.req, item.src)
		switch {
		case err != nil:
			report.failed++
			i.logger.Error("backfill entity failed",
				"entity_type", item.req.EntityType(),
				"entity_id", item.req.EntityID(),
				"error", err,
			)
		case result.Indexed():
			report.indexed++
		default:
			report.skipped++
		}

		if n < len(items)-1 && i.cfg.BackfillDelay() > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(i.cfg.BackfillDelay()):
			}
		}
	}

	i.logger.Info("backfill completed",
		"indexed", report.indexed,
		"skipped", report.skipped,
		"failed", report.failed,
	)
	return report, nil
}
