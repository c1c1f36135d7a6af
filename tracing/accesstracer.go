// Package tracing turns cache model events into records and counters.
package tracing

import (
	"fmt"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/hooking"
)

// AccessTable is the table that the AccessTracer writes into.
const AccessTable = "cache_accesses"

// AccessEntry is the recorded form of one access.
type AccessEntry struct {
	Seq        uint64 `cachesim_data:"index"`
	Op         string
	Address    string
	BlockTag   uint64
	SetID      int `cachesim_data:"index"`
	WayID      int
	Hit        bool
	Evicted    bool
	EvictedTag uint64
	WroteBack  bool
}

// AccessTracer is a hook that records every access of a cache model.
type AccessTracer struct {
	recorder datarecording.DataRecorder
	seq      uint64
}

// NewAccessTracer creates the access table and returns a tracer that writes
// into it.
func NewAccessTracer(recorder datarecording.DataRecorder) *AccessTracer {
	recorder.CreateTable(AccessTable, AccessEntry{})

	return &AccessTracer{recorder: recorder}
}

// Func records the access if the hook is triggered after an access.
func (t *AccessTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	access := ctx.Item.(cache.AccessRecord)
	result := ctx.Detail.(cache.AccessResult)

	t.seq++

	t.recorder.InsertData(AccessTable, AccessEntry{
		Seq:        t.seq,
		Op:         access.Op.String(),
		Address:    fmt.Sprintf("0x%x", access.Address),
		BlockTag:   access.Address / cache.BlockSize,
		SetID:      result.SetID,
		WayID:      result.WayID,
		Hit:        result.Hit,
		Evicted:    result.Evicted,
		EvictedTag: result.EvictedTag,
		WroteBack:  result.WroteBack,
	})
}

// NumRecorded returns how many accesses have been recorded.
func (t *AccessTracer) NumRecorded() uint64 {
	return t.seq
}
