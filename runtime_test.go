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

import "testing"

// TestFourBodiesRoundRobin spawns four bodies that each append their id and
// return; run to quiescence, they should log in spawn order and leave the
// main fiber running.
func TestFourBodiesRoundRobin(t *testing.T) {
	r := New(WithMaxFibers(4))

	var log []uint64
	for i := 0; i < 4; i++ {
		id := uint64(i + 1)
		r.Spawn(func() { log = append(log, id) }, nil)
	}
	r.Run()

	want := []uint64{1, 2, 3, 4}
	if len(log) != len(want) {
		t.Fatalf("log length = %d, want %d (log=%v)", len(log), len(want), log)
	}
	for i, id := range want {
		if log[i] != id {
			t.Errorf("log[%d] = %d, want %d", i, log[i], id)
		}
	}
	if got := r.CurrentID(); got != mainFiberID {
		t.Errorf("CurrentID() after Run = %d, want %d", got, mainFiberID)
	}
}

// TestExplicitYield checks that two fibers interleave correctly via
// YieldNext.
func TestExplicitYield(t *testing.T) {
	r := New(WithMaxFibers(2))
	var log []string

	r.Spawn(func() {
		log = append(log, "A1")
		YieldNext()
		log = append(log, "A2")
	}, nil)
	r.Spawn(func() {
		log = append(log, "B1")
		YieldNext()
		log = append(log, "B2")
	}, nil)

	r.Run()

	want := []string{"A1", "B1", "A2", "B2"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q (full log %v)", i, log[i], want[i], log)
		}
	}
}

// TestTriggerBeforeBodyRuns checks that triggering a fiber before it is ever
// scheduled normally runs its trigger entry instead of its body, and the body
// never executes.
func TestTriggerBeforeBodyRuns(t *testing.T) {
	r := New(WithMaxFibers(1))
	installRuntime(r)
	defer installRuntime(nil)

	bodyRan := false
	var gotFrom uint64
	f := r.Spawn(
		func() { bodyRan = true },
		func(fromID, eventIndex uint64) { gotFrom = fromID },
	)

	if !Trigger(f.ID(), Event{To: f.ID(), Data: 42}) {
		t.Fatal("Trigger returned false")
	}
	if bodyRan {
		t.Error("body ran after trigger, want it skipped entirely")
	}
	if gotFrom != mainFiberID {
		t.Errorf("trigger entry saw fromID = %d, want %d", gotFrom, mainFiberID)
	}
	if got := f.State(); got != Available {
		t.Errorf("fiber state after trigger completes = %s, want available", got)
	}
}

// TestGotoMain checks that a fiber calling GotoMain partway through its body
// never reaches the rest of its body, and every worker ends Available.
func TestGotoMain(t *testing.T) {
	r := New(WithMaxFibers(3))
	var log []string

	r.Spawn(func() { log = append(log, "fiber1") }, nil)
	r.Spawn(func() {
		log = append(log, "fiber2-before")
		GotoMain()
		log = append(log, "fiber2-after")
	}, nil)
	r.Spawn(func() { log = append(log, "fiber3") }, nil)

	r.Run()

	want := []string{"fiber1", "fiber2-before", "fiber3"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q (full log %v)", i, log[i], want[i], log)
		}
	}

	for id := 1; id <= r.MaxFibers(); id++ {
		if got := r.Fiber(uint64(id)).State(); got != Available {
			t.Errorf("fiber %d state = %s, want available", id, got)
		}
	}
}

// TestPoolExhaustion checks that spawning one more fiber than the pool holds
// panics with PoolExhaustedError before Run is ever called.
func TestPoolExhaustion(t *testing.T) {
	const max = 2
	r := New(WithMaxFibers(max))

	for i := 0; i < max; i++ {
		r.Spawn(func() {}, nil)
	}

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected Spawn to panic on pool exhaustion")
		}
		pe, ok := rec.(PoolExhaustedError)
		if !ok {
			t.Fatalf("panic value = %#v, want PoolExhaustedError", rec)
		}
		if pe.MaxFibers != max {
			t.Errorf("PoolExhaustedError.MaxFibers = %d, want %d", pe.MaxFibers, max)
		}
	}()
	r.Spawn(func() {}, nil)
}

// TestEventIndexMonotonicity checks that successive Trigger calls hand out
// strictly increasing, gapless event indices.
func TestEventIndexMonotonicity(t *testing.T) {
	r := New(WithMaxFibers(3))
	installRuntime(r)
	defer installRuntime(nil)

	var gotIndices []uint64
	var fibers []uint64
	for i := 0; i < 3; i++ {
		f := r.Spawn(nil, func(fromID, eventIndex uint64) {
			gotIndices = append(gotIndices, eventIndex)
		})
		fibers = append(fibers, f.ID())
	}

	for _, id := range fibers {
		if !Trigger(id, Event{To: id}) {
			t.Fatalf("Trigger(%d) returned false", id)
		}
	}

	want := []uint64{0, 1, 2}
	if len(gotIndices) != len(want) {
		t.Fatalf("gotIndices = %v, want %v", gotIndices, want)
	}
	for i := range want {
		if gotIndices[i] != want[i] {
			t.Errorf("gotIndices[%d] = %d, want %d", i, gotIndices[i], want[i])
		}
	}
}

// TestTriggerRejectsMainFiber checks that triggering the main fiber is
// rejected rather than silently corrupting it.
func TestTriggerRejectsMainFiber(t *testing.T) {
	r := New(WithMaxFibers(1))
	installRuntime(r)
	defer installRuntime(nil)

	if Trigger(mainFiberID, Event{}) {
		t.Error("Trigger(mainFiberID, _) = true, want false")
	}
}

// TestTriggerRejectsOutOfRangeID checks that an out-of-range target id is
// rejected rather than indexing past the fiber table.
func TestTriggerRejectsOutOfRangeID(t *testing.T) {
	r := New(WithMaxFibers(2))
	installRuntime(r)
	defer installRuntime(nil)

	if Trigger(uint64(r.MaxFibers()+1), Event{}) {
		t.Error("Trigger(MaxFibers+1, _) = true, want false")
	}
}

// TestSwitchToSelfIsRejected checks that targeting the currently running
// fiber is a no-op rather than a switch into itself.
func TestSwitchToSelfIsRejected(t *testing.T) {
	r := New(WithMaxFibers(1))
	installRuntime(r)
	defer installRuntime(nil)

	if SwitchTo(r.CurrentID()) {
		t.Error("SwitchTo(CurrentID()) = true, want false")
	}
}

// TestFiberBoundsStayWithinOwnBuffer checks that freshly constructed,
// never-run worker fibers have a top-of-stack address within their own
// buffer.
func TestFiberBoundsStayWithinOwnBuffer(t *testing.T) {
	r := New(WithMaxFibers(3), WithStackSize(64*1024))
	for id := 1; id <= r.MaxFibers(); id++ {
		f := r.Fiber(uint64(id))
		if !f.inBounds(f.top()) {
			t.Errorf("fiber %d top() = %#x out of bounds [%#x, %#x)", id, f.top(), f.lo, f.hi)
		}
	}
}
