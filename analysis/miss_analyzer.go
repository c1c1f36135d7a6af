package analysis

import (
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/hooking"
)

// MissAnalyzer periodically reports the miss ratio and the backing memory
// traffic of a cache.
type MissAnalyzer struct {
	PerfLogger

	name      string
	usePeriod bool
	period    uint64

	periodStart uint64
	numAccesses uint64
	hits        uint64
	misses      uint64
	reads       uint64
	writes      uint64
}

// Func counts the access if the hook is triggered after an access.
func (a *MissAnalyzer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	access := ctx.Item.(cache.AccessRecord)
	result := ctx.Detail.(cache.AccessResult)
	model := ctx.Domain.(*cache.Model)

	a.numAccesses++

	if result.Hit {
		a.hits++
	} else {
		a.misses++
		a.reads++
	}

	if result.WroteBack {
		a.writes++
	}

	if access.Op == cache.OpWrite && model.WritePolicy() == cache.WriteThrough {
		a.writes++
	}

	if a.usePeriod && a.numAccesses-a.periodStart == a.period {
		a.summarizePeriod()
	}
}

// Summarize reports the accesses that have not been reported yet.
func (a *MissAnalyzer) Summarize() {
	if a.numAccesses == a.periodStart {
		return
	}

	a.summarizePeriod()
}

func (a *MissAnalyzer) summarizePeriod() {
	start, end := a.periodStart, a.numAccesses
	total := a.hits + a.misses

	a.report(start, end, "MissRatio", float64(a.misses)/float64(total), "")
	a.report(start, end, "Reads", float64(a.reads), "block")
	a.report(start, end, "Writes", float64(a.writes), "block")

	a.periodStart = end
	a.hits = 0
	a.misses = 0
	a.reads = 0
	a.writes = 0
}

func (a *MissAnalyzer) report(
	start, end uint64,
	what string,
	value float64,
	unit string,
) {
	a.PerfLogger.AddDataEntry(PerfAnalyzerEntry{
		Start:     start,
		End:       end,
		Where:     a.name,
		What:      what,
		EntryType: "Cache",
		Value:     value,
		Unit:      unit,
	})
}

// MissAnalyzerBuilder can build a MissAnalyzer.
type MissAnalyzerBuilder struct {
	perfLogger PerfLogger
	name       string
	usePeriod  bool
	period     uint64
}

// MakeMissAnalyzerBuilder creates a MissAnalyzerBuilder.
func MakeMissAnalyzerBuilder() MissAnalyzerBuilder {
	return MissAnalyzerBuilder{
		name: "Cache",
	}
}

// WithPerfLogger sets the PerfLogger to use.
func (b MissAnalyzerBuilder) WithPerfLogger(
	perfLogger PerfLogger,
) MissAnalyzerBuilder {
	b.perfLogger = perfLogger
	return b
}

// WithName sets the name reported in the Where column.
func (b MissAnalyzerBuilder) WithName(name string) MissAnalyzerBuilder {
	b.name = name
	return b
}

// WithPeriod sets the number of accesses in a period.
func (b MissAnalyzerBuilder) WithPeriod(period uint64) MissAnalyzerBuilder {
	b.usePeriod = period > 0
	b.period = period

	return b
}

// Build creates a MissAnalyzer.
func (b MissAnalyzerBuilder) Build() *MissAnalyzer {
	if b.perfLogger == nil {
		panic("perfLogger is not set")
	}

	return &MissAnalyzer{
		PerfLogger: b.perfLogger,
		name:       b.name,
		usePeriod:  b.usePeriod,
		period:     b.period,
	}
}
