package simulation

import (
	"errors"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/analysis"
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/tracing"
)

// DefaultSnapshotInterval is the number of accesses between two statistics
// snapshots.
const DefaultSnapshotInterval = 4096

// ErrNoModel is returned when a simulation is built without a cache model.
var ErrNoModel = errors.New("simulation: no cache model")

// Builder can be used to build a simulation.
type Builder struct {
	model            *cache.Model
	log              logrus.FieldLogger
	monitor          *monitoring.Monitor
	dataRecorder     datarecording.DataRecorder
	perfAnalyzer     *analysis.PerfAnalyzer
	snapshotInterval uint64
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		log:              logrus.StandardLogger(),
		snapshotInterval: DefaultSnapshotInterval,
	}
}

// WithModel sets the cache model that the trace is replayed on.
func (b Builder) WithModel(model *cache.Model) Builder {
	b.model = model
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log logrus.FieldLogger) Builder {
	b.log = log
	return b
}

// WithMonitor makes the simulation publish its progress to the monitor.
func (b Builder) WithMonitor(monitor *monitoring.Monitor) Builder {
	b.monitor = monitor
	return b
}

// WithDataRecorder makes the simulation record every access and a summary.
func (b Builder) WithDataRecorder(recorder datarecording.DataRecorder) Builder {
	b.dataRecorder = recorder
	return b
}

// WithPerfAnalyzer makes the simulation report periodic miss ratios.
func (b Builder) WithPerfAnalyzer(p *analysis.PerfAnalyzer) Builder {
	b.perfAnalyzer = p
	return b
}

// WithSnapshotInterval sets how many accesses are processed between two
// statistics snapshots. Zero restores the default.
func (b Builder) WithSnapshotInterval(n uint64) Builder {
	if n == 0 {
		n = DefaultSnapshotInterval
	}

	b.snapshotInterval = n

	return b
}

// Build creates the simulation and attaches the tracers it needs to the
// model.
func (b Builder) Build() (*Simulation, error) {
	if b.model == nil {
		return nil, ErrNoModel
	}

	s := &Simulation{
		id:               xid.New().String(),
		model:            b.model,
		log:              b.log,
		monitor:          b.monitor,
		dataRecorder:     b.dataRecorder,
		perfAnalyzer:     b.perfAnalyzer,
		snapshotInterval: b.snapshotInterval,
	}

	if b.perfAnalyzer != nil {
		b.perfAnalyzer.RegisterModel("Cache", b.model)
	}

	if b.dataRecorder != nil {
		s.accessTracer = tracing.NewAccessTracer(b.dataRecorder)
		b.model.AcceptHook(s.accessTracer)
	}

	if b.monitor != nil {
		s.evictionCounter = tracing.NewEvictionCountTracer()
		b.model.AcceptHook(s.evictionCounter)

		b.monitor.RegisterModel(b.model)
		b.monitor.RegisterEvictionCounter(s.evictionCounter)
	}

	return s, nil
}
