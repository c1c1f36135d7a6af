// Package simulation replays a trace on a cache model.
package simulation

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/analysis"
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/trace"
	"github.com/sarchlab/cachesim/tracing"
)

// A Source provides the accesses of a trace in order.
type Source interface {
	Next() (trace.Record, bool)
	Err() error
}

// A sizedSource can tell how far into the trace it is. trace.File is one.
type sizedSource interface {
	Size() int64
	BytesRead() int64
}

// A Simulation replays a trace on one cache model. The model is only touched
// by the goroutine that calls Run.
type Simulation struct {
	id               string
	model            *cache.Model
	log              logrus.FieldLogger
	monitor          *monitoring.Monitor
	dataRecorder     datarecording.DataRecorder
	perfAnalyzer     *analysis.PerfAnalyzer
	snapshotInterval uint64

	accessTracer    *tracing.AccessTracer
	evictionCounter *tracing.EvictionCountTracer

	terminateOnce sync.Once
	terminateErr  error
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Model returns the simulated cache.
func (s *Simulation) Model() *cache.Model {
	return s.model
}

// GetDataRecorder returns the data recorder used in the simulation, or nil.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation, or nil.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// EvictionCounter returns the per-set eviction counter. It is only attached
// when the simulation is monitored.
func (s *Simulation) EvictionCounter() *tracing.EvictionCountTracer {
	return s.evictionCounter
}

// Run feeds every record of src to the model in order and returns the final
// statistics. Read errors end the trace like a malformed record does, they
// are only logged. If ctx is cancelled, Run stops at the next snapshot and
// returns the statistics so far together with the context error.
func (s *Simulation) Run(ctx context.Context, src Source) (cache.Statistics, error) {
	log := s.log.WithField("sim", s.id)
	log.WithField("config", s.model.Config()).Debug("simulation started")

	var bar *monitoring.ProgressBar
	sized, hasSize := src.(sizedSource)

	if s.monitor != nil {
		total := uint64(0)
		if hasSize {
			total = uint64(sized.Size())
		}

		bar = s.monitor.CreateProgressBar("Trace "+s.id, total)
		defer s.monitor.CompleteProgressBar(bar)
	}

	n := uint64(0)

	for {
		record, ok := src.Next()
		if !ok {
			break
		}

		s.model.Access(record.Op, record.Address)
		n++

		if n%s.snapshotInterval != 0 {
			continue
		}

		s.publish(bar, sized, hasSize, n)

		if err := ctx.Err(); err != nil {
			log.WithField("records", n).Warn("simulation cancelled")
			return s.model.Stats(), err
		}
	}

	if err := src.Err(); err != nil {
		log.WithError(err).WithField("records", n).
			Warn("trace read failed, treating it as the end of the trace")
	}

	s.publish(bar, sized, hasSize, n)

	stats := s.model.Stats()
	log.WithFields(logrus.Fields{
		"records":    n,
		"hits":       stats.Hits,
		"misses":     stats.Misses,
		"evictions":  stats.Evictions,
		"writebacks": stats.Writebacks,
	}).Debug("simulation finished")

	return stats, nil
}

func (s *Simulation) publish(
	bar *monitoring.ProgressBar,
	sized sizedSource,
	hasSize bool,
	n uint64,
) {
	if s.monitor == nil {
		return
	}

	s.monitor.UpdateStats(s.model.Stats())

	if hasSize {
		bar.SetFinished(uint64(sized.BytesRead()))
	} else {
		bar.SetFinished(n)
	}
}

// Terminate reports the last analysis period, writes the run summary and
// closes the data recorder. It can be called more than once.
func (s *Simulation) Terminate() error {
	s.terminateOnce.Do(func() {
		if s.perfAnalyzer != nil {
			s.terminateErr = s.perfAnalyzer.Close()
		}

		if s.dataRecorder == nil {
			return
		}

		tracing.RecordSummary(s.dataRecorder, s.model.Config(), s.model.Stats())

		if err := s.dataRecorder.Close(); err != nil {
			s.terminateErr = err
		}
	})

	return s.terminateErr
}
