package cache

import (
	"github.com/sarchlab/cachesim/cache/internal/tagging"
	"github.com/sarchlab/cachesim/hooking"
)

// HookPosAccess marks the completion of an access. The hook item is an
// AccessRecord and the detail is the AccessResult.
var HookPosAccess = &hooking.HookPos{Name: "Cache Access"}

// HookPosEvict marks the eviction of a valid block, right before it is
// overwritten. The hook item is the evicted Block and the detail is the
// AccessRecord that caused the eviction.
var HookPosEvict = &hooking.HookPos{Name: "Cache Evict"}

// AccessRecord is one access of a trace.
type AccessRecord struct {
	Op      Op
	Address uint64
}

// AccessResult describes what an access did to the cache.
type AccessResult struct {
	Hit   bool
	SetID int
	WayID int

	// Evicted is set when a valid block was replaced. EvictedTag is the block
	// number it held.
	Evicted    bool
	EvictedTag uint64

	// WroteBack is set when the evicted block was dirty and written back.
	WroteBack bool
}

// Model is a set-associative cache that processes one access at a time.
//
// A Model is not safe for concurrent use.
type Model struct {
	hooking.HookableBase

	config       Config
	tags         tagging.TagArray
	victimFinder tagging.VictimFinder
	stamper      *tagging.Stamper
	stats        Statistics
}

// Config returns the organization of the cache.
func (m *Model) Config() Config {
	return m.config
}

// NumSets returns the number of sets.
func (m *Model) NumSets() int {
	return m.config.NumSets
}

// WayAssociativity returns the number of ways per set.
func (m *Model) WayAssociativity() int {
	return m.config.WayAssociativity
}

// ReplacementPolicy returns the replacement policy.
func (m *Model) ReplacementPolicy() ReplacementPolicy {
	return m.config.ReplacementPolicy
}

// WritePolicy returns the write policy.
func (m *Model) WritePolicy() WritePolicy {
	return m.config.WritePolicy
}

// Stats returns the counters accumulated so far.
func (m *Model) Stats() Statistics {
	return m.stats
}

// Blocks returns a copy of the ways of a set.
func (m *Model) Blocks(setID int) []Block {
	set := m.tags.Set(setID)
	blocks := make([]Block, len(set))
	copy(blocks, set)

	return blocks
}

// LastStamp returns the last value drawn from the replacement order counter.
func (m *Model) LastStamp() uint64 {
	return m.stamper.Last()
}

// Access runs one memory access through the cache.
func (m *Model) Access(op Op, addr uint64) AccessResult {
	if op == OpWrite {
		m.stats.WriteOps++
	} else {
		m.stats.ReadOps++
	}

	var result AccessResult

	block, hit := m.tags.Lookup(addr)
	if hit {
		result = m.handleHit(op, block)
	} else {
		result = m.handleMiss(op, addr)
	}

	if m.NumHooks() > 0 {
		m.InvokeHook(hooking.HookCtx{
			Domain: m,
			Pos:    HookPosAccess,
			Item:   AccessRecord{Op: op, Address: addr},
			Detail: result,
		})
	}

	return result
}

func (m *Model) handleHit(op Op, block *Block) AccessResult {
	m.stats.Hits++

	m.victimFinder.Visit(block)

	if op == OpWrite {
		m.write(block)
	}

	return AccessResult{
		Hit:   true,
		SetID: block.SetID,
		WayID: block.WayID,
	}
}

// handleMiss fetches the block from the backing memory. Write misses fetch
// too, since the block is allocated before it is written.
func (m *Model) handleMiss(op Op, addr uint64) AccessResult {
	m.stats.Misses++
	m.stats.Reads++

	set, _ := m.tags.GetSet(addr)
	victim := m.victimFinder.FindVictim(set)

	result := AccessResult{
		SetID: victim.SetID,
		WayID: victim.WayID,
	}

	if victim.IsValid {
		m.evict(op, addr, victim, &result)
	}

	victim.Tag = m.tags.BlockTag(addr)
	victim.IsValid = true
	victim.IsDirty = false

	m.victimFinder.Fill(victim)

	if op == OpWrite {
		m.write(victim)
	}

	return result
}

func (m *Model) evict(op Op, addr uint64, victim *Block, result *AccessResult) {
	m.stats.Evictions++

	result.Evicted = true
	result.EvictedTag = victim.Tag

	if victim.IsDirty && m.config.WritePolicy == WriteBack {
		m.stats.Writes++
		m.stats.Writebacks++
		result.WroteBack = true
	}

	if m.NumHooks() > 0 {
		m.InvokeHook(hooking.HookCtx{
			Domain: m,
			Pos:    HookPosEvict,
			Item:   *victim,
			Detail: AccessRecord{Op: op, Address: addr},
		})
	}
}

// write applies a write to a block that is present in the cache.
func (m *Model) write(block *Block) {
	if m.config.WritePolicy == WriteBack {
		block.IsDirty = true
		return
	}

	m.stats.Writes++
}
