// Package analysis reports how the behavior of a cache changes over a run.
package analysis

import (
	"io"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/datarecording"
)

// PerfAnalyzerEntry is a single entry in the performance database. Start and
// End are access indexes; the period covers [Start, End).
type PerfAnalyzerEntry struct {
	Start     uint64
	End       uint64
	Where     string
	What      string
	EntryType string
	Value     float64
	Unit      string
}

// PerfLogger is the interface that provide the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfAnalyzerEntry)
}

// PerfAnalyzer can report performance metrics during simulation.
type PerfAnalyzer struct {
	usePeriod bool
	period    uint64
	backend   PerfAnalyzerBackend
	analyzers []*MissAnalyzer
}

// RegisterModel attaches a MissAnalyzer to the model. Entries are reported
// under the given name.
func (p *PerfAnalyzer) RegisterModel(name string, model *cache.Model) {
	builder := MakeMissAnalyzerBuilder().
		WithPerfLogger(p).
		WithName(name)

	if p.usePeriod {
		builder = builder.WithPeriod(p.period)
	}

	analyzer := builder.Build()
	model.AcceptHook(analyzer)

	p.analyzers = append(p.analyzers, analyzer)
}

// AddDataEntry passes the entry to the backend.
func (p *PerfAnalyzer) AddDataEntry(entry PerfAnalyzerEntry) {
	p.backend.AddDataEntry(entry)
}

// Summarize reports the unfinished period of every analyzer and flushes the
// backend.
func (p *PerfAnalyzer) Summarize() {
	for _, a := range p.analyzers {
		a.Summarize()
	}

	p.backend.Flush()
}

// Close summarizes and releases the backend. Recorders are owned by the
// caller and stay open.
func (p *PerfAnalyzer) Close() error {
	p.Summarize()

	if closer, ok := p.backend.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// PerfAnalyzerBuilder is a builder that can build a PerfAnalyzer.
type PerfAnalyzerBuilder struct {
	usePeriod   bool
	period      uint64
	backendType string
	csvFilename string
	recorder    datarecording.DataRecorder
}

// MakePerfAnalyzerBuilder creates a new PerfAnalyzerBuilder.
func MakePerfAnalyzerBuilder() PerfAnalyzerBuilder {
	return PerfAnalyzerBuilder{
		backendType: "csv",
		csvFilename: "perf",
	}
}

// WithPeriod sets the number of accesses in a period. Without a period only
// one entry per metric is reported for the whole run.
func (b PerfAnalyzerBuilder) WithPeriod(period uint64) PerfAnalyzerBuilder {
	b.usePeriod = period > 0
	b.period = period

	return b
}

// WithCSVBackend makes the analyzer write into <filename>.csv.
func (b PerfAnalyzerBuilder) WithCSVBackend(filename string) PerfAnalyzerBuilder {
	b.backendType = "csv"
	b.csvFilename = filename

	return b
}

// WithRecorderBackend makes the analyzer write into a table of the recorder.
func (b PerfAnalyzerBuilder) WithRecorderBackend(
	recorder datarecording.DataRecorder,
) PerfAnalyzerBuilder {
	b.backendType = "recorder"
	b.recorder = recorder

	return b
}

// Build creates a PerfAnalyzer.
func (b PerfAnalyzerBuilder) Build() *PerfAnalyzer {
	var backend PerfAnalyzerBackend

	switch b.backendType {
	case "csv":
		backend = NewCSVPerfAnalyzerBackend(b.csvFilename)
	case "recorder":
		backend = NewRecorderPerfAnalyzerBackend(b.recorder)
	default:
		panic("Unknown backend type")
	}

	return &PerfAnalyzer{
		usePeriod: b.usePeriod,
		period:    b.period,
		backend:   backend,
	}
}
