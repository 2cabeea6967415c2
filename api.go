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

// runtimePtr is the process-wide runtime singleton the free functions below
// reach through. Installed by (*Runtime).Run and cleared when it returns, so
// that a fiber body can call YieldNext/GotoMain/SwitchTo/Trigger/CurrentID
// without threading a *Runtime through every function signature.
//
// This is safe without synchronization for the same reason the rest of the
// scheduler is: execution is single-threaded and cooperative, so only one
// goroutine ever touches runtimePtr, and it only ever does so between
// switches, never concurrently with itself.
var runtimePtr *Runtime

func installRuntime(r *Runtime) { runtimePtr = r }

func currentRuntime() *Runtime { return runtimePtr }

// YieldNext performs a round-robin switch to the next Ready fiber. If none
// is Ready, it returns immediately to the caller without switching.
func YieldNext() {
	if r := currentRuntime(); r != nil {
		r.switchStack(scheduleRR, 0)
	}
}

// GotoMain marks every worker fiber Available and the main fiber Ready, then
// switches. The caller's own fiber is now Available, so this call never
// returns to whatever called it - unlike every other entry point here.
func GotoMain() {
	if r := currentRuntime(); r != nil {
		r.terminateAll()
	}
}

// SwitchTo performs a targeted switch to id. It returns false, performing no
// switch, if id is out of range or already Running.
func SwitchTo(id uint64) bool {
	r := currentRuntime()
	if r == nil {
		return false
	}
	return r.switchTo(id)
}

// Trigger rewrites fiber id's saved stack pointer so its next resume begins
// at its trigger-entry function instead of continuing any in-progress body,
// appends event to the event buffer, and switches to it. It returns false,
// performing no switch, if id names the main fiber or is out of range.
//
// Trigger always overwrites the target's saved stack pointer, even if that
// fiber had previously yielded mid-body: this is intentional ("trigger
// means: restart at the trigger entry"), not a bug.
func Trigger(id uint64, event Event) bool {
	r := currentRuntime()
	if r == nil {
		return false
	}
	return r.trigger(id, event)
}

// CurrentID returns the id of the fiber currently running. Outside of a
// Run() call (or before one has installed a runtime), it returns the main
// fiber's id, 0.
func CurrentID() uint64 {
	if r := currentRuntime(); r != nil {
		return r.CurrentID()
	}
	return mainFiberID
}
