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

// Package leydi implements a minimal stackful cooperative-coroutine runtime
// for a single OS thread on x86-64: a fixed pool of "fibers", each with its
// own stack and saved register context, cooperatively switched between
// without kernel involvement.
package leydi

const mainFiberID = 0

// Tunables, overridable via RuntimeOption.
const (
	// DefaultStackSize is the size, in bytes, of each worker fiber's stack
	// buffer.
	DefaultStackSize = 5 * 1024 * 1024
	// DefaultMaxFibers is the number of worker fibers in a Runtime's pool,
	// not counting the main fiber.
	DefaultMaxFibers = 5
	// DefaultEventBufferCapacity is how many Event records the event buffer
	// preallocates space for. The buffer still grows past this; it is never
	// capped or recycled.
	DefaultEventBufferCapacity = 1024
)

// Tracer observes scheduler activity. See package trace for a pprof-backed
// implementation.
type Tracer interface {
	// OnSwitch is called after curr becomes RUNNING and prev (if any) has
	// been marked Ready or Available.
	OnSwitch(prev, curr uint64)
}

// RuntimeOption configures a Runtime constructed by New.
type RuntimeOption func(*Runtime)

// WithStackSize overrides DefaultStackSize.
func WithStackSize(n int) RuntimeOption {
	return func(r *Runtime) { r.stackSize = n }
}

// WithMaxFibers overrides DefaultMaxFibers.
func WithMaxFibers(n int) RuntimeOption {
	return func(r *Runtime) { r.maxFibers = n }
}

// WithEventBufferCapacity overrides DefaultEventBufferCapacity.
func WithEventBufferCapacity(n int) RuntimeOption {
	return func(r *Runtime) { r.eventCap = n }
}

// WithTracer attaches a Tracer that observes every scheduler switch.
func WithTracer(t Tracer) RuntimeOption {
	return func(r *Runtime) { r.tracer = t }
}

// Runtime is a fixed pool of fibers plus the scheduler state needed to
// switch between them. The zero value is not usable; construct one with
// New.
type Runtime struct {
	fibers    []*Fiber
	curr      uint64
	events    *eventBuffer
	tracer    Tracer
	stackSize int
	maxFibers int
	eventCap  int
}

// New constructs a Runtime with MaxFibers worker slots, all Available, and
// the main fiber (id 0) Running.
func New(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		curr:      mainFiberID,
		stackSize: DefaultStackSize,
		maxFibers: DefaultMaxFibers,
		eventCap:  DefaultEventBufferCapacity,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.fibers = make([]*Fiber, r.maxFibers+1)
	r.fibers[mainFiberID] = newMainFiber()
	for id := 1; id <= r.maxFibers; id++ {
		r.fibers[id] = newWorkerFiber(uint64(id), r.stackSize)
	}
	r.events = newEventBuffer(r.eventCap)
	return r
}

// Fiber returns the pool slot for id, or nil if id is out of range.
func (r *Runtime) Fiber(id uint64) *Fiber {
	if id >= uint64(len(r.fibers)) {
		return nil
	}
	return r.fibers[id]
}

// MaxFibers returns the number of worker fibers in the pool.
func (r *Runtime) MaxFibers() int { return r.maxFibers }

// CurrentID returns the id of the fiber currently Running.
func (r *Runtime) CurrentID() uint64 { return r.curr }

// Spawn finds the first Available fiber, primes its stack so that a first
// switch-in begins executing body, arranges for a triggered resume to begin
// executing trigger instead, and marks it Ready.
//
// Spawn panics with a PoolExhaustedError if no fiber is Available - this is
// a programmer error, not a runtime condition callers are expected to
// handle.
func (r *Runtime) Spawn(body func(), trigger func(fromID, eventIndex uint64)) *Fiber {
	for _, f := range r.fibers[1:] {
		if f.state == Available {
			f.state = Ready
			primeStack(f, body, trigger)
			return f
		}
	}
	panic(PoolExhaustedError{MaxFibers: r.maxFibers})
}

// Run installs r as the process-wide runtime singleton (see api.go) and
// drives round-robin scheduling until no fiber is Ready, then clears the
// singleton and returns.
func (r *Runtime) Run() {
	installRuntime(r)
	defer installRuntime(nil)
	for r.switchStack(scheduleRR, 0) {
	}
}
