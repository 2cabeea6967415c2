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

import "log"

// scheduleKind picks between the two selection policies switchStack
// supports.
type scheduleKind int

const (
	scheduleRR scheduleKind = iota
	scheduleTargeted
)

// switchStack selects a fiber to run next (by kind) and, if one is found,
// switches to it. It returns false when there was nothing to do: for RR,
// that means quiescence (no fiber is Ready); for a targeted switch, that
// means the target was already Running.
//
// This is the one place state transitions, curr, and the Go stack guard are
// all updated together.
func (r *Runtime) switchStack(kind scheduleKind, target uint64) bool {
	var nextID uint64

	switch kind {
	case scheduleRR:
		id, ok := r.selectRR()
		if !ok {
			return false
		}
		nextID = id
	case scheduleTargeted:
		if r.fibers[target].state == Running {
			log.Printf("leydi: fiber %d already running", target)
			return false
		}
		nextID = target
	}

	next := r.fibers[nextID]
	paused := r.fibers[r.curr]

	next.state = Running
	if paused.state != Available {
		paused.state = Ready
	}

	prevID := r.curr
	r.curr = nextID

	if r.tracer != nil {
		r.tracer.OnSwitch(prevID, nextID)
	}
	retargetGoGuard(next.lo, next.hi)
	switchContext(&paused.ctx, &next.ctx)
	return true
}

// selectRR scans the fiber table from index 0 for the first Ready fiber,
// wrapping past the end back to 0. If the scan wraps all the way back to
// curr without finding one, the system has quiesced. The scan always
// restarts at 0 rather than curr+1, a deliberate bias toward low ids rather
// than strict fairness.
func (r *Runtime) selectRR() (uint64, bool) {
	id := uint64(0)
	n := uint64(len(r.fibers))
	for r.fibers[id].state != Ready {
		id++
		if id == n {
			id = 0
		}
		if id == r.curr {
			return 0, false
		}
	}
	return id, true
}

// terminateAll forces every worker fiber to Available and the main fiber to
// Ready, then performs one RR switch - which, since main is now the only
// Ready fiber, lands on it. Used by GotoMain.
func (r *Runtime) terminateAll() bool {
	for _, f := range r.fibers {
		f.state = Available
	}
	r.fibers[mainFiberID].state = Ready
	return r.switchStack(scheduleRR, 0)
}

// switchTo performs a targeted switch to id, failing if id is out of range
// or already Running.
func (r *Runtime) switchTo(id uint64) bool {
	if id >= uint64(len(r.fibers)) {
		log.Printf("leydi: switch_to target %d out of range", id)
		return false
	}
	return r.switchStack(scheduleTargeted, id)
}

// finishAndNext is reached at the tail of every fiber's synthetic call
// chain, whether the fiber ran its body to completion or was triggered and
// ran its trigger entry to completion. On the main fiber it is a no-op -
// main does not "finish" by returning into this path, the scheduler's own
// transitions are what put it back in Running. On any other fiber it frees
// the slot and schedules the next Ready fiber.
func finishAndNext() {
	r := currentRuntime()
	if r == nil || r.curr == mainFiberID {
		return
	}
	r.fibers[r.curr].state = Available
	r.switchStack(scheduleRR, 0)
}
