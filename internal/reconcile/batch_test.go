package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/project-pulse/internal/models"
)

func TestBatchPartialSuccess(t *testing.T) {
	e := newTestEngine(t)

	inputs := map[string]models.SourceSet{
		"alpha": {Planning: &models.PlanningSnapshot{Progress: intp(50)}},
		"beta":  {VCS: &models.VCSSnapshot{Commits: intp(7)}},
		"":      {}, // invalid identity, must fail without sinking the batch
	}

	res := e.ReconcileBatch(context.Background(), inputs)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "alpha", res.Records[0].Name)
	assert.Equal(t, "beta", res.Records[1].Name)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed, "")
}

func TestBatchDeterministicOrder(t *testing.T) {
	e := newTestEngine(t)

	inputs := make(map[string]models.SourceSet)
	for i := 0; i < 20; i++ {
		inputs[fmt.Sprintf("p%02d", i)] = models.SourceSet{
			Planning: &models.PlanningSnapshot{Progress: intp(i * 5)},
		}
	}

	res := e.ReconcileBatchN(context.Background(), inputs, 4)
	require.Len(t, res.Records, 20)
	for i := 1; i < len(res.Records); i++ {
		assert.Less(t, res.Records[i-1].Name, res.Records[i].Name)
	}
}

func TestBatchEmptyInput(t *testing.T) {
	e := newTestEngine(t)

	res := e.ReconcileBatch(context.Background(), nil)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Failed)
}

func TestBatchCancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := map[string]models.SourceSet{
		"alpha": {Planning: &models.PlanningSnapshot{Progress: intp(50)}},
	}

	// A cancelled context must not hang; partial results are acceptable.
	res := e.ReconcileBatch(ctx, inputs)
	assert.LessOrEqual(t, len(res.Records), 1)
}
