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

import (
	"log"
	"sync"
)

// Event is the small fixed record conveyed from a triggering fiber to a
// triggered one: From and To identify the two fibers, and Data is the single
// payload word.
type Event struct {
	From uint64
	To   uint64
	Data uint64
}

// eventBuffer is an append-only, monotonically-indexed event log. Guarded by
// a mutex even though the scheduler itself is single-threaded, because
// Runtime.Event may be called from outside the scheduler concurrently with a
// fiber appending to it.
type eventBuffer struct {
	mu     sync.Mutex
	events []Event
}

func newEventBuffer(capacity int) *eventBuffer {
	return &eventBuffer{events: make([]Event, 0, capacity)}
}

// append adds event to the buffer and returns the index it was stored at.
// Indices are never reused.
func (b *eventBuffer) append(event Event) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := uint64(len(b.events))
	b.events = append(b.events, event)
	return idx
}

// at returns the event stored at idx, for use by trigger-entry functions
// that want to look up the event they were triggered with.
func (b *eventBuffer) at(idx uint64) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx >= uint64(len(b.events)) {
		return Event{}, false
	}
	return b.events[idx], true
}

// Event looks up the event at idx in r's event buffer. Trigger-entry
// functions receive idx as their second argument and typically call this to
// recover the Data their triggering fiber sent.
func (r *Runtime) Event(idx uint64) (Event, bool) {
	return r.events.at(idx)
}

// trigger is the implementation behind the package-level Trigger function
// (api.go): it rewrites the target's saved stack pointer so its next resume
// begins at its trigger-entry function, records the event, and switches to
// it.
func (r *Runtime) trigger(targetID uint64, event Event) bool {
	if targetID == mainFiberID || targetID >= uint64(len(r.fibers)) {
		log.Printf("leydi: trigger target %d invalid", targetID)
		return false
	}

	target := r.fibers[targetID]
	target.ctx.sp = stackPointerAt(target.top(), TriggerOffset)

	idx := r.events.append(event)

	target.ctx.arg0 = uintptr(r.curr)
	target.ctx.arg1 = uintptr(idx)

	return r.switchTo(targetID)
}
