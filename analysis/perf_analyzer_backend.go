package analysis

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/sarchlab/cachesim/datarecording"
)

// PerfTable is the table the recorder backend writes into.
const PerfTable = "perf_analysis"

// PerfAnalyzerBackend is the interface that provides the service that can
// record performance data entries.
type PerfAnalyzerBackend interface {
	AddDataEntry(entry PerfAnalyzerEntry)
	Flush()
}

// CSVBackend is a PerfAnalyzerBackend that writes data entries to
// a CSV file.
type CSVBackend struct {
	dbFile    *os.File
	csvWriter *csv.Writer
}

// NewCSVPerfAnalyzerBackend creates a new CSVPerfAnalyzerBackend.
func NewCSVPerfAnalyzerBackend(filename string) *CSVBackend {
	p := &CSVBackend{}

	var err error

	p.dbFile, err = os.OpenFile(filename+".csv",
		os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		panic(err)
	}

	p.csvWriter = csv.NewWriter(p.dbFile)

	header := []string{
		"Start", "End", "Where", "What", "EntryType", "Value", "Unit"}

	err = p.csvWriter.Write(header)
	if err != nil {
		panic(err)
	}

	return p
}

// AddDataEntry adds a data entry to the CSV file.
func (p *CSVBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	err := p.csvWriter.Write([]string{
		fmt.Sprintf("%d", entry.Start),
		fmt.Sprintf("%d", entry.End),
		entry.Where,
		entry.What,
		entry.EntryType,
		fmt.Sprintf("%.6f", entry.Value),
		entry.Unit,
	})
	if err != nil {
		panic(err)
	}
}

// Flush flushes the CSV writer.
func (p *CSVBackend) Flush() {
	p.csvWriter.Flush()

	if err := p.csvWriter.Error(); err != nil {
		panic(err)
	}
}

// Close flushes and closes the file.
func (p *CSVBackend) Close() error {
	p.Flush()
	return p.dbFile.Close()
}

// RecorderBackend is a PerfAnalyzerBackend that writes data entries into a
// DataRecorder.
type RecorderBackend struct {
	recorder datarecording.DataRecorder
}

// NewRecorderPerfAnalyzerBackend creates the perf table in the recorder.
func NewRecorderPerfAnalyzerBackend(
	recorder datarecording.DataRecorder,
) *RecorderBackend {
	if recorder == nil {
		panic("recorder is not set")
	}

	recorder.CreateTable(PerfTable, PerfAnalyzerEntry{})

	return &RecorderBackend{recorder: recorder}
}

// AddDataEntry buffers the entry in the recorder.
func (p *RecorderBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	p.recorder.InsertData(PerfTable, entry)
}

// Flush writes the buffered entries.
func (p *RecorderBackend) Flush() {
	p.recorder.Flush()
}
