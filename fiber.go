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

package leydi

import "unsafe"

// State is one of a fiber's three lifecycle states: Available -> Ready (on
// Spawn) -> Running (once selected) -> Ready (on yield) or Available (once
// its body finishes).
type State int

const (
	// Available means the slot is free: no live stack, no meaningful saved
	// context.
	Available State = iota
	// Ready means the fiber has been primed (or yielded) and is eligible to
	// be selected by the scheduler.
	Ready
	// Running means this fiber currently owns the CPU. Exactly one fiber in
	// a Runtime is Running at any moment.
	Running
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case Ready:
		return "ready"
	case Running:
		return "running"
	default:
		return "invalid"
	}
}

// Fiber is one slot in a Runtime's fixed pool: a stable id, a lifecycle
// state, an owned stack buffer (empty for the main fiber, which runs on the
// host goroutine's own stack instead), and the saved register context the
// context-switch primitive reads and writes.
//
// Fiber 0 is always the process/main fiber; it is never Available.
type Fiber struct {
	id    uint64
	state State
	buf   []byte
	lo    uintptr // lowest address this fiber is allowed to run on
	hi    uintptr // one past the highest address, 16-byte aligned
	ctx   SavedRegisters

	body    func()
	trigger func(fromID, eventIndex uint64)
}

// ID returns the fiber's stable numeric id.
func (f *Fiber) ID() uint64 { return f.id }

// State returns the fiber's current lifecycle state.
func (f *Fiber) State() State { return f.state }

// top returns the highest 16-byte-aligned address within the fiber's buffer,
// the starting point for the synthetic call chain written by primeStack.
func (f *Fiber) top() uintptr {
	return (f.hi - 1) &^ 15
}

// inBounds reports whether sp lies within this fiber's own buffer.
func (f *Fiber) inBounds(sp uintptr) bool {
	return sp >= f.lo && sp < f.hi
}

func newMainFiber() *Fiber {
	g := getg()
	lo := *(*uintptr)(unsafe.Pointer(g + gStackLoOffset))
	hi := *(*uintptr)(unsafe.Pointer(g + gStackHiOffset))
	return &Fiber{id: mainFiberID, state: Running, lo: lo, hi: hi}
}

func newWorkerFiber(id uint64, stackSize int) *Fiber {
	buf := make([]byte, stackSize)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	return &Fiber{
		id:    id,
		state: Available,
		buf:   buf,
		lo:    base,
		hi:    base + uintptr(len(buf)),
	}
}
