package tracing

import (
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/datarecording"
)

// SummaryTable is the table that RecordSummary writes into.
const SummaryTable = "run_summary"

// SummaryEntry is the configuration and the final counters of one run.
type SummaryEntry struct {
	ByteSize          int
	WayAssociativity  int
	BlockSize         int
	NumSets           int
	ReplacementPolicy string
	WritePolicy       string
	Hits              uint64
	Misses            uint64
	Reads             uint64
	Writes            uint64
	Evictions         uint64
	Writebacks        uint64
	MissRatio         float64
}

// RecordSummary writes one summary row for a finished run.
func RecordSummary(
	recorder datarecording.DataRecorder,
	config cache.Config,
	stats cache.Statistics,
) {
	recorder.CreateTable(SummaryTable, SummaryEntry{})

	recorder.InsertData(SummaryTable, SummaryEntry{
		ByteSize:          config.ByteSize,
		WayAssociativity:  config.WayAssociativity,
		BlockSize:         config.BlockSize,
		NumSets:           config.NumSets,
		ReplacementPolicy: config.ReplacementPolicy.String(),
		WritePolicy:       config.WritePolicy.String(),
		Hits:              stats.Hits,
		Misses:            stats.Misses,
		Reads:             stats.Reads,
		Writes:            stats.Writes,
		Evictions:         stats.Evictions,
		Writebacks:        stats.Writebacks,
		MissRatio:         stats.MissRatio(),
	})
}
