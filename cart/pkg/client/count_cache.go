package client

import (
	"context"
	"maps"
	"sync"
)

// CountState is a point-in-time copy of a CountCache.
type CountState struct {
	TotalItemCount   int            `json:"totalItemCount"`
	PerProductCount  map[string]int `json:"perProductCount"`
	Loading          bool           `json:"loading"`
	LastError        error          `json:"-"`
	LastErrorMessage string         `json:"lastError,omitempty"`
}

// CountCache holds the cart counts shown by a storefront client. Overlapping
// refreshes are not ordered: whichever completes last wins. A failed refresh
// sets the affected count to zero and records the error; a successful one
// clears it.
type CountCache struct {
	mu         sync.Mutex
	querier    CountQuerier
	total      int
	perProduct map[string]int
	inFlight   int
	lastErr    error
}

func NewCountCache(querier CountQuerier) *CountCache {
	return &CountCache{querier: querier, perProduct: map[string]int{}}
}

func (cc *CountCache) begin() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.inFlight++
}

func (cc *CountCache) end(apply func()) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.inFlight--
	apply()
}

func (cc *CountCache) RefreshTotal(c context.Context) (int, error) {
	cc.begin()
	count, err := cc.querier.Count(c)
	if err != nil {
		count = 0
	}
	cc.end(func() {
		cc.total = count
		cc.lastErr = err
	})
	return count, err
}

func (cc *CountCache) RefreshForProduct(c context.Context, productId string) (int, error) {
	cc.begin()
	count, err := cc.querier.CountForProduct(c, productId)
	if err != nil {
		count = 0
	}
	cc.end(func() {
		cc.perProduct[productId] = count
		cc.lastErr = err
	})
	return count, err
}

func (cc *CountCache) SetTotal(count int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.total = count
}

func (cc *CountCache) SetForProduct(productId string, count int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.perProduct[productId] = count
}

func (cc *CountCache) Snapshot() CountState {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	state := CountState{
		TotalItemCount:  cc.total,
		PerProductCount: maps.Clone(cc.perProduct),
		Loading:         cc.inFlight > 0,
		LastError:       cc.lastErr,
	}
	if cc.lastErr != nil {
		state.LastErrorMessage = cc.lastErr.Error()
	}
	return state
}
