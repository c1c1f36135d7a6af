package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/hooking"
)

// SetCount is the number of evictions that happened in a set.
type SetCount struct {
	SetID      int    `json:"set_id"`
	Evictions  uint64 `json:"evictions"`
	Writebacks uint64 `json:"writebacks"`
}

// EvictionCountTracer counts evictions per set. It can be read while the
// simulation is running.
type EvictionCountTracer struct {
	lock   sync.Mutex
	counts map[int]*SetCount
}

// NewEvictionCountTracer creates a new EvictionCountTracer.
func NewEvictionCountTracer() *EvictionCountTracer {
	return &EvictionCountTracer{
		counts: make(map[int]*SetCount),
	}
}

// Func counts the eviction if the hook is triggered by an eviction.
func (t *EvictionCountTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosEvict {
		return
	}

	victim := ctx.Item.(cache.Block)
	model := ctx.Domain.(*cache.Model)

	t.lock.Lock()
	defer t.lock.Unlock()

	count, ok := t.counts[victim.SetID]
	if !ok {
		count = &SetCount{SetID: victim.SetID}
		t.counts[victim.SetID] = count
	}

	count.Evictions++

	if victim.IsDirty && model.WritePolicy() == cache.WriteBack {
		count.Writebacks++
	}
}

// Count returns the counters of one set.
func (t *EvictionCountTracer) Count(setID int) SetCount {
	t.lock.Lock()
	defer t.lock.Unlock()

	if count, ok := t.counts[setID]; ok {
		return *count
	}

	return SetCount{SetID: setID}
}

// Top returns up to n sets with the most evictions. Ties are broken by the
// lower set ID.
func (t *EvictionCountTracer) Top(n int) []SetCount {
	t.lock.Lock()

	counts := make([]SetCount, 0, len(t.counts))
	for _, c := range t.counts {
		counts = append(counts, *c)
	}

	t.lock.Unlock()

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Evictions != counts[j].Evictions {
			return counts[i].Evictions > counts[j].Evictions
		}

		return counts[i].SetID < counts[j].SetID
	})

	if n >= 0 && n < len(counts) {
		counts = counts[:n]
	}

	return counts
}
