// Copyright 2024 The Solaris Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package bench

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gobwas/glob"
	"github.com/solarisdb/tmalloc/golibs/errors"
	"github.com/solarisdb/tmalloc/golibs/logging"
	"github.com/solarisdb/tmalloc/golibs/ulidutils"
	"github.com/solarisdb/tmalloc/pkg/bench/workload"
	"github.com/solarisdb/tmalloc/pkg/malloc"
)

type (
	// Runner executes the workload scenarios against the allocator. The
	// Alloc field is injected when the Runner is assembled by the linker
	Runner struct {
		Alloc *malloc.Allocator `inject:""`

		wl       *workload.Workload
		selector glob.Glob
		logger   logging.Logger
	}

	// ScenarioResult contains the counters collected by one executed scenario
	ScenarioResult struct {
		Scenario string
		Threads  int
		Elapsed  time.Duration
		Allocs   int64
		Callocs  int64
		Reallocs int64
		Frees    int64
		// Failures is the number of the operations the allocator refused
		Failures int64
		// Bytes is the total payload size requested by the scenario
		Bytes int64
	}

	// Result is the report of one bench run
	Result struct {
		// RunID tags the run, the later runs get the greater ids
		RunID     string
		Scenarios []ScenarioResult
	}

	// scenarioCounters are shared by all the threads of one running scenario
	scenarioCounters struct {
		allocs   atomic.Int64
		callocs  atomic.Int64
		reallocs atomic.Int64
		frees    atomic.Int64
		failures atomic.Int64
		bytes    atomic.Int64
		done     atomic.Int64
	}
)

// the number of live pointers one bench thread keeps at most
const maxLivePointers = 1024

// NewRunner creates new Runner for the workload wl. Only the scenarios with
// the names matching the selector glob pattern are executed
func NewRunner(wl *workload.Workload, selector string) (*Runner, error) {
	g, err := glob.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("could not compile the scenario selector %q: %w", selector, errors.ErrInvalid)
	}
	return &Runner{wl: wl, selector: g, logger: logging.NewLogger("bench.Runner")}, nil
}

// Init implements linker.Initializer
func (r *Runner) Init(ctx context.Context) error {
	if r.Alloc == nil {
		return fmt.Errorf("the Runner is not assembled, no allocator: %w", errors.ErrInternal)
	}
	return nil
}

// Run executes the selected scenarios one by one and returns the report. The
// run stops prematurely when the ctx is closed
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: ulidutils.NewID()}
	r.logger.Infof("run %s started", res.RunID)
	for _, sc := range r.wl.Scenarios {
		if !r.selector.Match(sc.Name) {
			r.logger.Debugf("skipping the scenario %s, doesn't match the selector", sc.Name)
			continue
		}
		if ctx.Err() != nil {
			return res, fmt.Errorf("the run %s is interrupted: %w", res.RunID, errors.ErrCanceled)
		}
		res.Scenarios = append(res.Scenarios, r.runScenario(ctx, sc))
	}
	r.logger.Infof("run %s is over, %s", res.RunID, r.Alloc)
	return res, nil
}

func (r *Runner) runScenario(ctx context.Context, sc *workload.Scenario) ScenarioResult {
	r.logger.Infof("starting %s", sc)
	st := sc.Settings()
	ops := sc.Operations()

	var cnt scenarioCounters
	start := time.Now()

	// report the progress while the threads are working
	stopProgress := make(chan struct{})
	var progressWg sync.WaitGroup
	progressWg.Add(1)
	go func() {
		defer progressWg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopProgress:
				return
			case <-ticker.C:
				r.logger.Infof("the scenario %s: %d of %d operations done", sc.Name, cnt.done.Load(), st.Threads*st.Ops)
			}
		}
	}()

	var wg sync.WaitGroup
	// every worker holds its OS thread until all the workers are started, so
	// the scenario is driven by st.Threads distinct threads
	var started sync.WaitGroup
	started.Add(st.Threads)
	for i := 0; i < st.Threads; i++ {
		wg.Add(1)
		go func(tidx int) {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			started.Done()
			started.Wait()
			r.runThread(ctx, rand.New(rand.NewSource(st.Seed+int64(tidx))), st.Ops, ops, &cnt)
		}(i)
	}
	wg.Wait()
	close(stopProgress)
	progressWg.Wait()

	res := ScenarioResult{
		Scenario: sc.Name,
		Threads:  st.Threads,
		Elapsed:  time.Since(start),
		Allocs:   cnt.allocs.Load(),
		Callocs:  cnt.callocs.Load(),
		Reallocs: cnt.reallocs.Load(),
		Frees:    cnt.frees.Load(),
		Failures: cnt.failures.Load(),
		Bytes:    cnt.bytes.Load(),
	}
	r.logger.Infof("done %s: allocs=%d, callocs=%d, reallocs=%d, frees=%d, failures=%d, bytes=%d, elapsed=%s",
		sc.Name, res.Allocs, res.Callocs, res.Reallocs, res.Frees, res.Failures, res.Bytes, res.Elapsed)
	return res
}

// runThread performs opsCount weighted operations on the calling thread. The
// pointers the thread holds are released at the end, so the thread's blocks
// are back in its free list when the scenario is over
func (r *Runner) runThread(ctx context.Context, rnd *rand.Rand, opsCount int, ops []workload.Op, cnt *scenarioCounters) {
	total := 0
	for _, op := range ops {
		total += *op.Weight
	}

	var live []unsafe.Pointer
	for i := 0; i < opsCount; i++ {
		if i%256 == 0 && ctx.Err() != nil {
			break
		}
		op := pickOp(rnd.Intn(total), ops)
		size := *op.Min
		if *op.Max > *op.Min {
			size += rnd.Intn(*op.Max - *op.Min + 1)
		}
		switch op.Kind {
		case "alloc":
			p := r.Alloc.Malloc(size)
			if r.checkPtr(p, cnt) {
				cnt.allocs.Add(1)
				cnt.bytes.Add(int64(size))
				live = r.keep(live, p, cnt)
			}
		case "calloc":
			unit := 1 << rnd.Intn(4)
			p := r.Alloc.Calloc(size/unit, unit)
			if r.checkPtr(p, cnt) {
				cnt.callocs.Add(1)
				cnt.bytes.Add(int64(size / unit * unit))
				live = r.keep(live, p, cnt)
			}
		case "realloc":
			if len(live) == 0 {
				continue
			}
			idx := rnd.Intn(len(live))
			p := r.Alloc.Realloc(live[idx], size)
			if r.checkPtr(p, cnt) {
				cnt.reallocs.Add(1)
				cnt.bytes.Add(int64(size))
				live[idx] = p
			}
		case "free":
			if len(live) == 0 {
				continue
			}
			idx := rnd.Intn(len(live))
			r.Alloc.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			cnt.frees.Add(1)
		}
		cnt.done.Add(1)
	}

	for _, p := range live {
		r.Alloc.Free(p)
		cnt.frees.Add(1)
	}
}

// keep stores the pointer in the live list, releasing a random one when the
// list is at its capacity
func (r *Runner) keep(live []unsafe.Pointer, p unsafe.Pointer, cnt *scenarioCounters) []unsafe.Pointer {
	if len(live) >= maxLivePointers {
		r.Alloc.Free(live[0])
		cnt.frees.Add(1)
		live = live[1:]
	}
	return append(live, p)
}

func (r *Runner) checkPtr(p unsafe.Pointer, cnt *scenarioCounters) bool {
	if p == nil {
		cnt.failures.Add(1)
		return false
	}
	if uintptr(p)%8 != 0 {
		// must never happen, the allocator contract is broken
		r.logger.Errorf("got the misaligned pointer %p", p)
		cnt.failures.Add(1)
		return false
	}
	return true
}

func pickOp(w int, ops []workload.Op) workload.Op {
	for _, op := range ops {
		if w < *op.Weight {
			return op
		}
		w -= *op.Weight
	}
	return ops[len(ops)-1]
}
