// Copyright 2024 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"time"

	"github.com/statefuzz/statefuzz/pkg/stat"
)

type Stats struct {
	statExecTotal    *stat.Val
	statExecSeed     *stat.Val
	statExecGenerate *stat.Val
	statExecFuzz     *stat.Val
	statExecSmash    *stat.Val
	statExecTime     *stat.Val
	statInformative  *stat.Val
	statNewInputs    *stat.Val
	statCrashes      *stat.Val
	statCrashTypes   *stat.Val
	statEpochs       *stat.Val
	statSnapshots    *stat.Val
	avgEpochTime     stat.AverageValue[time.Duration]
}

func newStats() *Stats {
	st := &Stats{
		statExecTotal: stat.New("exec total", "Total test input executions",
			stat.Console, stat.Rate{}, stat.Prometheus("stf_exec_total")),
		statExecSeed:     stat.New("exec seeds", "Executions of seed inputs"),
		statExecGenerate: stat.New("exec gen", "Executions of generated inputs", stat.Rate{}),
		statExecFuzz:     stat.New("exec fuzz", "Executions of mutated corpus inputs", stat.Rate{}),
		statExecSmash:    stat.New("exec smash", "Executions of mutated new inputs", stat.Rate{}),
		statExecTime: stat.New("exec time", "Execution time in microseconds", stat.Distribution{},
			stat.Prometheus("stf_exec_time_us")),
		statInformative: stat.New("informative", "State transitions that increased a non-saturated counter",
			stat.Simple, stat.Rate{}, stat.Prometheus("stf_informative_total")),
		statNewInputs: stat.New("new inputs", "Inputs that produced new max signal",
			stat.Simple, stat.Prometheus("stf_new_inputs")),
		statCrashes: stat.New("crashes", "Total number of target panics",
			stat.Simple, stat.Prometheus("stf_crashes")),
		statCrashTypes: stat.New("crash types", "Number of unique crashes",
			stat.Console, stat.Prometheus("stf_crash_types")),
		statEpochs:    stat.New("epochs", "Completed worker epochs", stat.Simple),
		statSnapshots: stat.New("snapshots", "Saved coverage snapshots"),
	}
	stat.New("epoch time", "Average duration of a worker epoch", stat.Simple,
		func() int { return int(st.avgEpochTime.Value() / time.Millisecond) },
		func(v int, period time.Duration) string {
			return (time.Duration(v) * time.Millisecond).String()
		})
	return st
}

// ExecTimeQuantile returns the q-quantile of execution time.
func (st *Stats) ExecTimeQuantile(q float64) time.Duration {
	return time.Duration(st.statExecTime.Quantile(q)) * time.Microsecond
}
