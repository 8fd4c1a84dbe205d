package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	count int
	err   error
}

// gatedQuerier hands every call's gate to the test, which answers it.
type gatedQuerier struct {
	started chan chan result
}

func newGatedQuerier() *gatedQuerier {
	return &gatedQuerier{started: make(chan chan result, 16)}
}

func (q *gatedQuerier) wait() result {
	gate := make(chan result)
	q.started <- gate
	return <-gate
}

func (q *gatedQuerier) Count(context.Context) (int, error) {
	r := q.wait()
	return r.count, r.err
}

func (q *gatedQuerier) CountForProduct(context.Context, string) (int, error) {
	r := q.wait()
	return r.count, r.err
}

func TestCountCacheRefresh(t *testing.T) {
	errDown := errors.New("down")
	tests := []struct {
		name     string
		refresh  func(cc *CountCache) (int, error)
		result   result
		expected CountState
	}{
		{
			name:     "given total should store it",
			refresh:  func(cc *CountCache) (int, error) { return cc.RefreshTotal(context.Background()) },
			result:   result{count: 7},
			expected: CountState{TotalItemCount: 7, PerProductCount: map[string]int{}},
		},
		{
			name:     "given failed total should reset it to zero and record error",
			refresh:  func(cc *CountCache) (int, error) { return cc.RefreshTotal(context.Background()) },
			result:   result{count: 9, err: errDown},
			expected: CountState{TotalItemCount: 0, PerProductCount: map[string]int{}, LastError: errDown, LastErrorMessage: "down"},
		},
		{
			name: "given product count should store it by product",
			refresh: func(cc *CountCache) (int, error) {
				return cc.RefreshForProduct(context.Background(), "tee")
			},
			result:   result{count: 2},
			expected: CountState{TotalItemCount: 3, PerProductCount: map[string]int{"tee": 2}},
		},
		{
			name: "given failed product count should reset only that product",
			refresh: func(cc *CountCache) (int, error) {
				return cc.RefreshForProduct(context.Background(), "tee")
			},
			result:   result{err: errDown},
			expected: CountState{TotalItemCount: 3, PerProductCount: map[string]int{"tee": 0}, LastError: errDown, LastErrorMessage: "down"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			querier := newGatedQuerier()
			cc := NewCountCache(querier)
			if len(test.expected.PerProductCount) > 0 {
				cc.SetTotal(3)
				cc.SetForProduct("tee", 5)
			}

			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = test.refresh(cc)
			}()
			gate := <-querier.started
			assert.True(t, cc.Snapshot().Loading)
			gate <- test.result
			<-done

			assert.Equal(t, test.expected, cc.Snapshot())
		})
	}
}

func TestCountCacheLastToCompleteWins(t *testing.T) {
	querier := newGatedQuerier()
	cc := NewCountCache(querier)

	var wg sync.WaitGroup
	olderDone := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = cc.RefreshTotal(context.Background())
		close(olderDone)
	}()
	older := <-querier.started
	go func() {
		defer wg.Done()
		_, _ = cc.RefreshTotal(context.Background())
	}()
	newer := <-querier.started

	// The newer refresh completes first; the older one completes last and
	// its answer overwrites the newer count.
	newer <- result{count: 5}
	assert.Eventually(t, func() bool { return cc.Snapshot().TotalItemCount == 5 }, time.Second, time.Millisecond)
	assert.True(t, cc.Snapshot().Loading)
	older <- result{count: 3}
	<-olderDone
	wg.Wait()

	state := cc.Snapshot()
	assert.False(t, state.Loading)
	assert.Equal(t, 3, state.TotalItemCount)
	require.NoError(t, state.LastError)
}

func TestCountCacheSnapshotIsACopy(t *testing.T) {
	cc := NewCountCache(newGatedQuerier())
	cc.SetForProduct("tee", 1)

	state := cc.Snapshot()
	state.PerProductCount["tee"] = 99

	assert.Equal(t, 1, cc.Snapshot().PerProductCount["tee"])
}

func TestCountStateJson(t *testing.T) {
	tests := []struct {
		name     string
		result   result
		expected string
	}{
		{
			name:     "given failed refresh should print last error",
			result:   result{err: errors.New("count endpoint returned status=failed")},
			expected: `{"totalItemCount":0,"perProductCount":{},"loading":false,"lastError":"count endpoint returned status=failed"}`,
		},
		{
			name:     "given successful refresh should omit last error",
			result:   result{count: 4},
			expected: `{"totalItemCount":4,"perProductCount":{},"loading":false}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			querier := newGatedQuerier()
			cc := NewCountCache(querier)

			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = cc.RefreshTotal(context.Background())
			}()
			gate := <-querier.started
			gate <- test.result
			<-done

			actual, err := json.Marshal(cc.Snapshot())
			require.NoError(t, err)
			assert.JSONEq(t, test.expected, string(actual))
		})
	}
}
