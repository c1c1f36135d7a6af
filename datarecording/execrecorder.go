package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfoTable is the table that holds information about the process that
// produced a recording.
const ExecInfoTable = "exec_info"

// ExecInfo is one property of the recorded execution.
type ExecInfo struct {
	Property string
	Value    string
}

// execRecorder records when and how the program was executed.
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{
		recorder: recorder,
	}

	recorder.CreateTable(ExecInfoTable, ExecInfo{})

	return e
}

// Start remembers the start time, the command line and the working
// directory.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", timestamp()},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
}

// End writes the remembered entries together with the end time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecInfoTable, entry)
	}

	e.recorder.InsertData(ExecInfoTable, ExecInfo{"End Time", timestamp()})

	e.entries = nil
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}
