//  Copyright 2023 Stealth Rocket, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package trace records fiber scheduler activity and emits it as a pprof
// profile: which fiber dominated wall-clock time, and in what order switches
// happened.
//
// This package is not part of the core leydi scheduler - it is an optional
// external collaborator, wired in through leydi.WithTracer.
package trace

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"golang.org/x/exp/slices"
)

func fiberName(id uint64) string {
	if id == 0 {
		return "main"
	}
	return fmt.Sprintf("fiber-%d", id)
}

// Switch is one recorded scheduler switch: Prev was paused, Curr became
// Running, and At is when the switch happened relative to the tracer's start
// time.
type Switch struct {
	Prev, Curr uint64
	At         time.Duration
}

// Tracer implements leydi.Tracer, accumulating wall-clock time spent by each
// fiber and the order in which fibers ran, so it can be rendered as a pprof
// profile.
type Tracer struct {
	mu      sync.Mutex
	start   time.Time
	now     func() time.Time
	lastAt  time.Duration
	samples map[uint64]*fiberSample
	order   []uint64
}

type fiberSample struct {
	fiberID uint64
	count   int64
	total   int64 // nanoseconds
}

// New creates a Tracer. Pass it to leydi.New(leydi.WithTracer(t)) to start
// recording.
func New() *Tracer {
	return &Tracer{
		now:     time.Now,
		samples: make(map[uint64]*fiberSample),
	}
}

// Start resets the tracer's clock. Called implicitly by the first OnSwitch
// if never called explicitly.
func (t *Tracer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = t.now()
	t.lastAt = 0
}

// OnSwitch implements leydi.Tracer.
func (t *Tracer) OnSwitch(prev, curr uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.start.IsZero() {
		t.start = t.now()
	}

	now := time.Duration(t.now().Sub(t.start))
	if s := t.sampleFor(prev); len(t.order) > 0 {
		s.total += int64(now - t.lastAt)
	}

	s := t.sampleFor(curr)
	s.count++
	t.order = append(t.order, curr)

	t.lastAt = now
}

func (t *Tracer) sampleFor(id uint64) *fiberSample {
	s, ok := t.samples[id]
	if !ok {
		s = &fiberSample{fiberID: id}
		t.samples[id] = s
	}
	return s
}

// Profile builds a pprof profile of time spent RUNNING, one sample per
// fiber id.
func (t *Tracer) Profile() *profile.Profile {
	t.mu.Lock()
	defer t.mu.Unlock()

	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "switches", Unit: "count"},
			{Type: "running", Unit: "nanoseconds"},
		},
		TimeNanos: t.start.UnixNano(),
	}

	ids := make([]uint64, 0, len(t.samples))
	for id := range t.samples {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	funcs := make(map[uint64]*profile.Function, len(ids))
	locs := make(map[uint64]*profile.Location, len(ids))
	for i, id := range ids {
		fn := &profile.Function{
			ID:   uint64(i) + 1,
			Name: fiberName(id),
		}
		loc := &profile.Location{
			ID:   uint64(i) + 1,
			Line: []profile.Line{{Function: fn}},
		}
		funcs[id] = fn
		locs[id] = loc
		prof.Function = append(prof.Function, fn)
		prof.Location = append(prof.Location, loc)
	}

	for _, id := range ids {
		s := t.samples[id]
		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{locs[id]},
			Value:    []int64{s.count, s.total},
		})
	}

	return prof
}

// Sequence returns the order fiber ids became Running in, cloned so the
// caller may not mutate the tracer's internal state.
func (t *Tracer) Sequence() []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.order)
}
