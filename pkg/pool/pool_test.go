package pool

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tracker records how many tasks are running at once
type tracker struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	started  atomic.Int32
}

func (tr *tracker) enter() {
	tr.started.Add(1)
	n := tr.inFlight.Add(1)
	for {
		p := tr.peak.Load()
		if n <= p || tr.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (tr *tracker) leave() {
	tr.inFlight.Add(-1)
}

func TestRunBoundsConcurrency(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		limit int
	}{
		{name: "more_tasks_than_limit", n: 40, limit: 5},
		{name: "limit_of_one", n: 10, limit: 1},
		{name: "limit_equals_tasks", n: 8, limit: 8},
		{name: "limit_exceeds_tasks", n: 3, limit: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &tracker{}
			rng := rand.New(rand.NewSource(int64(tt.n)))

			tasks := make([]Task[int], tt.n)
			for i := range tasks {
				delay := time.Duration(rng.Intn(5)) * time.Millisecond
				tasks[i] = func(ctx context.Context) int {
					tr.enter()
					defer tr.leave()
					time.Sleep(delay)
					return i * 10
				}
			}

			results := Run(context.Background(), tasks, tt.limit)

			require.Len(t, results, tt.n, "should return one result per task")
			for i, r := range results {
				assert.Equal(t, i*10, r, "result %d should be aligned with its task", i)
			}
			assert.LessOrEqual(t, int(tr.peak.Load()), tt.limit, "in-flight tasks should never exceed the limit")
			assert.Equal(t, int32(tt.n), tr.started.Load(), "every task should run")
		})
	}
}

func TestRunSkewedLatencyKeepsAlignment(t *testing.T) {
	// early tasks are the slowest so completion order is the reverse of input order
	n := 12
	tasks := make([]Task[string], n)
	for i := range tasks {
		delay := time.Duration(n-i) * time.Millisecond
		tasks[i] = func(ctx context.Context) string {
			time.Sleep(delay)
			return string(rune('a' + i))
		}
	}

	results := Run(context.Background(), tasks, 4)
	for i, r := range results {
		assert.Equal(t, string(rune('a'+i)), r, "result %d should map to its own task", i)
	}
}

func TestRunTaggedFailuresDoNotAbortSiblings(t *testing.T) {
	type result struct {
		ok bool
	}

	tasks := make([]Task[result], 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) result {
			return result{ok: i%3 != 0}
		}
	}

	results := Run(context.Background(), tasks, 3)
	require.Len(t, results, 10, "should return every result")
	for i, r := range results {
		assert.Equal(t, i%3 != 0, r.ok, "task %d result should be its own", i)
	}
}

func TestRunEmpty(t *testing.T) {
	results := Run[int](context.Background(), nil, 5)
	assert.Empty(t, results, "no tasks should give no results")
}

func TestRunInvalidLimit(t *testing.T) {
	assert.Panics(t, func() {
		Run(context.Background(), []Task[int]{func(ctx context.Context) int { return 1 }}, 0)
	}, "zero limit should panic")
}

func TestRunWithRecover(t *testing.T) {
	tasks := []Task[string]{
		func(ctx context.Context) string { return "ok" },
		func(ctx context.Context) string { panic("boom") },
		func(ctx context.Context) string { return "ok" },
	}

	results := RunWithRecover(context.Background(), tasks, 2, func(i int, r any) string {
		return "recovered"
	})

	assert.Equal(t, []string{"ok", "recovered", "ok"}, results, "panicking task should resolve through the hook")
}

func TestRunRepanicsWithoutHook(t *testing.T) {
	tasks := []Task[int]{
		func(ctx context.Context) int { panic("boom") },
	}
	assert.Panics(t, func() {
		Run(context.Background(), tasks, 1)
	}, "panic should surface without a hook")
}
