package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_BeginAndComplete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Now()
	require.NoError(t, store.Begin(ctx, Record{
		ID:            "rec-1",
		CorrelationID: "abc-123",
		ToolName:      "text_upper",
		StartedAt:     started,
		InputExcerpt:  `{"item":"a"}`,
	}))

	records, err := store.ByCorrelation(ctx, "abc-123")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StatusStarted, records[0].Status)
	assert.Nil(t, records[0].CompletedAt)

	require.NoError(t, store.Complete(ctx, "rec-1", Completion{
		CompletedAt:   started.Add(15 * time.Millisecond),
		DurationMS:    15,
		Status:        StatusSuccess,
		OutputExcerpt: `"A"`,
	}))

	records, err = store.ByCorrelation(ctx, "abc-123")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, "abc-123", rec.CorrelationID)
	require.NotNil(t, rec.DurationMS)
	assert.GreaterOrEqual(t, *rec.DurationMS, int64(0))
	assert.NotNil(t, rec.CompletedAt)
}

func TestStore_CompleteIsSingleUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, Record{
		ID: "rec-1", CorrelationID: "c", ToolName: "t", StartedAt: time.Now(),
	}))
	require.NoError(t, store.Complete(ctx, "rec-1", Completion{
		CompletedAt: time.Now(), DurationMS: 3, Status: StatusSuccess,
	}))

	// A second completion must not overwrite the finalized record.
	require.NoError(t, store.Complete(ctx, "rec-1", Completion{
		CompletedAt: time.Now(), DurationMS: 99, Status: StatusError, ErrorKind: "HandlerRuntimeError",
	}))

	records, err := store.ByCorrelation(ctx, "c")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StatusSuccess, records[0].Status)
	assert.Equal(t, int64(3), *records[0].DurationMS)
}

func TestStore_ByCorrelationIncludesBatchChildren(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, corr := range []string{"parent", "parent#0", "parent#1", "other"} {
		require.NoError(t, store.Begin(ctx, Record{
			ID:            fmt.Sprintf("rec-%d", i),
			CorrelationID: corr,
			ToolName:      "text_upper",
			StartedAt:     time.Now(),
		}))
	}

	records, err := store.ByCorrelation(ctx, "parent")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestStore_ConcurrentWriters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("rec-%d", i)
			if err := store.Begin(ctx, Record{
				ID:            id,
				CorrelationID: fmt.Sprintf("batch#%d", i),
				ToolName:      "text_upper",
				StartedAt:     time.Now(),
			}); err != nil {
				errs[i] = err
				return
			}
			errs[i] = store.Complete(ctx, id, Completion{
				CompletedAt: time.Now(), DurationMS: 1, Status: StatusSuccess,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	records, err := store.Recent(ctx, n)
	require.NoError(t, err)
	assert.Len(t, records, n)
	for _, rec := range records {
		assert.Equal(t, StatusSuccess, rec.Status)
	}
}

func TestStore_Recent_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Begin(ctx, Record{
			ID:            fmt.Sprintf("rec-%d", i),
			CorrelationID: fmt.Sprintf("c-%d", i),
			ToolName:      "t",
			StartedAt:     base.Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec-2", records[0].ID)
	assert.Equal(t, "rec-1", records[1].ID)
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	outcomes := []struct {
		status   string
		duration int64
	}{
		{StatusSuccess, 10},
		{StatusSuccess, 20},
		{StatusError, 30},
	}
	for i, o := range outcomes {
		id := fmt.Sprintf("rec-%d", i)
		require.NoError(t, store.Begin(ctx, Record{
			ID: id, CorrelationID: id, ToolName: "math_add", StartedAt: time.Now(),
		}))
		require.NoError(t, store.Complete(ctx, id, Completion{
			CompletedAt: time.Now(), DurationMS: o.duration, Status: o.status,
		}))
	}

	// a started-but-never-completed record must not count
	require.NoError(t, store.Begin(ctx, Record{
		ID: "rec-open", CorrelationID: "c", ToolName: "math_add", StartedAt: time.Now(),
	}))

	stats, err := store.Stats(ctx, "math_add")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Succeeded)
	assert.Equal(t, int64(1), stats.Failed)
	assert.InDelta(t, 20.0, stats.AvgDurationMS, 0.001)
}

func TestBackendError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("disk full")
	err := &BackendError{Op: "begin", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "begin")
}
