package datarecording

import (
	"os"
	"strings"
	"time"
)

// RunInfoTable stores one property per row describing the recorded run.
const RunInfoTable = "run_info"

const runTimeFormat = "2006-01-02 15:04:05.000000000"

type runInfo struct {
	Property string
	Value    string
}

// RunRecorder records metadata about the process that produced a recording.
type RunRecorder struct {
	recorder DataRecorder
	ended    bool
}

// StartRun creates the run info table and records the start time, the
// command line and the working directory.
func StartRun(recorder DataRecorder) *RunRecorder {
	r := &RunRecorder{recorder: recorder}

	recorder.CreateTable(RunInfoTable, runInfo{})

	r.Set("Start Time", time.Now().Format(runTimeFormat))
	r.Set("Command", strings.Join(os.Args, " "))

	if cwd, err := os.Getwd(); err == nil {
		r.Set("Working Directory", cwd)
	}

	return r
}

// Set records a property of the run.
func (r *RunRecorder) Set(property, value string) {
	r.recorder.InsertData(RunInfoTable, runInfo{
		Property: property,
		Value:    value,
	})
}

// End records the end time and flushes. Only the first call has effect.
func (r *RunRecorder) End() {
	if r.ended {
		return
	}

	r.ended = true
	r.Set("End Time", time.Now().Format(runTimeFormat))
	r.recorder.Flush()
}
