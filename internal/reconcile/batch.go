package reconcile

import (
	"context"
	"sort"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// defaultBatchWorkers bounds concurrent per-project reconciliations.
const defaultBatchWorkers = 8

// ReconcileBatch merges every project in inputs concurrently with
// partial-success semantics: one project failing is logged with its identity
// and recorded in the result's Failed map while the rest proceed. The result
// records are sorted by project name for determinism.
func (e *Engine) ReconcileBatch(ctx context.Context, inputs map[string]models.SourceSet) models.BatchResult {
	return e.ReconcileBatchN(ctx, inputs, defaultBatchWorkers)
}

// ReconcileBatchN is ReconcileBatch with an explicit worker count.
func (e *Engine) ReconcileBatchN(ctx context.Context, inputs map[string]models.SourceSet, workers int) models.BatchResult {
	if workers < 1 {
		workers = 1
	}

	type outcome struct {
		name string
		rec  *models.CanonicalProjectRecord
		err  error
	}

	jobs := make(chan string)
	// Buffered so workers never block on send if the caller's context ends
	// mid-collection.
	results := make(chan outcome, len(inputs))

	for i := 0; i < workers; i++ {
		go func() {
			for name := range jobs {
				rec, err := e.Reconcile(name, inputs[name])
				results <- outcome{name: name, rec: rec, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for name := range inputs {
			select {
			case jobs <- name:
			case <-ctx.Done():
				return
			}
		}
	}()

	res := models.BatchResult{}
	submitted := len(inputs)
	for i := 0; i < submitted; i++ {
		select {
		case o := <-results:
			if o.err != nil {
				e.logger.Error().
					Str("project", o.name).
					Err(o.err).
					Msg("batch reconciliation: project skipped")
				if res.Failed == nil {
					res.Failed = make(map[string]string)
				}
				res.Failed[o.name] = o.err.Error()
				continue
			}
			res.Records = append(res.Records, o.rec)
		case <-ctx.Done():
			// Remaining workers drain into the void; report what we have.
			sortRecords(res.Records)
			return res
		}
	}

	sortRecords(res.Records)
	return res
}

func sortRecords(recs []*models.CanonicalProjectRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
}
