package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PreservesOrder(t *testing.T) {
	inputs := []string{"a", "b", "c", "d", "e"}
	results := Run(context.Background(), inputs, 3, func(_ context.Context, in string) (string, error) {
		// Later inputs finish first.
		time.Sleep(time.Duration(len(inputs)-int(in[0]-'a')) * time.Millisecond)
		if in == "c" {
			return "", errors.New("boom")
		}
		return in + in, nil
	})

	require.Len(t, results, len(inputs))
	for i, r := range results {
		assert.Equal(t, inputs[i], r.Input)
	}
	assert.Equal(t, "aa", results[0].Value)
	assert.EqualError(t, results[2].Err, "boom")
	assert.Equal(t, "ee", results[4].Value)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	inputs := make([]string, 20)
	for i := range inputs {
		inputs[i] = fmt.Sprint(i)
	}

	Run(context.Background(), inputs, 4, func(context.Context, string) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := Run(ctx, []string{"a", "b"}, 2, func(context.Context, string) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	assert.Zero(t, calls.Load())
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRun_Empty(t *testing.T) {
	results := Run(context.Background(), nil, 0, func(context.Context, string) (int, error) {
		t.Fatal("job must not run")
		return 0, nil
	})
	assert.Empty(t, results)
}
