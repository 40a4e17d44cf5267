package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParallel_PreservesInputOrder(t *testing.T) {
	// later units finish first
	got, err := Parallel(context.Background(), 5, 5, func(ctx context.Context, i int) (int, error) {
		time.Sleep(time.Duration(5-i) * time.Millisecond)
		return i * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 20, 30, 40}, got)
}

func TestParallel_RespectsLimit(t *testing.T) {
	for _, limit := range []int{1, 2, 4} {
		var active, peak atomic.Int64
		_, err := Parallel(context.Background(), 12, limit, func(ctx context.Context, i int) (struct{}, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			return struct{}{}, nil
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, peak.Load(), int64(limit), "limit %d", limit)
	}
}

func TestParallel_LimitBelowOneMeansSequential(t *testing.T) {
	var active atomic.Int64
	_, err := Parallel(context.Background(), 4, 0, func(ctx context.Context, i int) (int, error) {
		if active.Add(1) > 1 {
			return 0, errors.New("overlap")
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return i, nil
	})
	require.NoError(t, err)
}

func TestParallel_Empty(t *testing.T) {
	got, err := Parallel(context.Background(), 0, 3, func(ctx context.Context, i int) (string, error) {
		t.Fatal("must not be called")
		return "", nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParallel_FailureStopsNewUnits(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int64

	got, err := Parallel(context.Background(), 50, 1, func(ctx context.Context, i int) (int, error) {
		calls.Add(1)
		if i == 2 {
			return 0, boom
		}
		return i, nil
	})

	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)

	var ue *UnitError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 2, ue.Index)
	assert.LessOrEqual(t, calls.Load(), int64(4))
}

func TestParallel_InFlightUnitsDrainWithLiveContext(t *testing.T) {
	release := make(chan struct{})
	var sawCancel atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	var err error
	go func() {
		defer wg.Done()
		_, err = Parallel(context.Background(), 2, 2, func(ctx context.Context, i int) (int, error) {
			if i == 0 {
				return 0, errors.New("first fails")
			}
			<-release
			if ctx.Err() != nil {
				sawCancel.Store(true)
			}
			return 1, nil
		})
	}()

	time.Sleep(5 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Error(t, err)
	assert.False(t, sawCancel.Load(), "in-flight unit must not see a cancelled context")
}

func TestParallel_ReportsLowestFailedIndex(t *testing.T) {
	var entered sync.WaitGroup
	entered.Add(3)
	_, err := Parallel(context.Background(), 3, 3, func(ctx context.Context, i int) (int, error) {
		entered.Done()
		entered.Wait()
		if i == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		return 0, errors.New("fail")
	})

	var ue *UnitError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 0, ue.Index)
	assert.Equal(t, "unit 0: fail", err.Error())
}

func TestParallel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parallel(ctx, 3, 1, func(ctx context.Context, i int) (int, error) {
		return i, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFold_IsSequentialAndThreadsAccumulator(t *testing.T) {
	var seen []int
	got, err := Fold(context.Background(), []int{1, 2, 3}, 0, func(ctx context.Context, acc, item, i int) (int, error) {
		seen = append(seen, acc)
		return acc + item, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 6, got)
	assert.Equal(t, []int{0, 1, 3}, seen)
}

func TestFold_StopsAtFailure(t *testing.T) {
	calls := 0
	acc, err := Fold(context.Background(), []string{"a", "b", "c"}, "", func(ctx context.Context, acc, item string, i int) (string, error) {
		calls++
		if item == "b" {
			return "", errors.New("bad item")
		}
		return acc + item, nil
	})

	var ue *UnitError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 1, ue.Index)
	assert.Equal(t, "a", acc)
	assert.Equal(t, 2, calls)
}

func TestParallel_PanicBecomesUnitError(t *testing.T) {
	got, err := Parallel(context.Background(), 4, 2, func(ctx context.Context, i int) (int, error) {
		if i == 1 {
			panic("unit exploded")
		}
		return i, nil
	})
	require.Error(t, err)
	assert.Nil(t, got)

	var ue *UnitError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 1, ue.Index)
	assert.ErrorIs(t, err, ErrUnitPanic)
	assert.Contains(t, err.Error(), "unit exploded")
}

func TestFold_PanicBecomesUnitError(t *testing.T) {
	acc, err := Fold(context.Background(), []int{1, 2, 3}, 0, func(ctx context.Context, acc, item, i int) (int, error) {
		if item == 3 {
			panic("step exploded")
		}
		return acc + item, nil
	})
	assert.Equal(t, 3, acc)

	var ue *UnitError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 2, ue.Index)
	assert.ErrorIs(t, err, ErrUnitPanic)
}

func TestRecover_LeavesErrorAloneWithoutPanic(t *testing.T) {
	want := errors.New("plain failure")
	run := func() (err error) {
		defer Recover(&err)
		return want
	}
	assert.Equal(t, want, run())
}
