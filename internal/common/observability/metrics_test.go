package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordsWithoutPanicking(t *testing.T) {
	obs, err := New("iopps-workers-test")
	require.NoError(t, err)
	defer obs.Shutdown()

	ctx := context.Background()
	assert.NotPanics(t, func() {
		obs.RecordJobProcessed(ctx, "filter-jobs", "completed")
		obs.RecordJobDuration(ctx, "filter-jobs", 25*time.Millisecond)
	})
}

func TestObservability_NilAndEmptyAreNoOps(t *testing.T) {
	var nilObs *Observability
	empty := &Observability{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		nilObs.RecordJobProcessed(ctx, "search-jobs", "failed")
		nilObs.RecordJobDuration(ctx, "search-jobs", time.Second)
		nilObs.Shutdown()
		empty.RecordJobProcessed(ctx, "search-jobs", "failed")
		empty.Shutdown()
	})
}
