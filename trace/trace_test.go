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

package trace

import "testing"

func TestOnSwitchRecordsSequence(t *testing.T) {
	tr := New()
	tr.OnSwitch(0, 1)
	tr.OnSwitch(1, 2)
	tr.OnSwitch(2, 0)

	got := tr.Sequence()
	want := []uint64{1, 2, 0}
	if len(got) != len(want) {
		t.Fatalf("Sequence() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sequence()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSequenceIsClonedNotShared(t *testing.T) {
	tr := New()
	tr.OnSwitch(0, 1)

	got := tr.Sequence()
	got[0] = 99

	again := tr.Sequence()
	if again[0] != 1 {
		t.Errorf("mutating a returned Sequence() slice affected the tracer's internal state: got %d, want 1", again[0])
	}
}

func TestProfileHasOneSamplePerFiber(t *testing.T) {
	tr := New()
	tr.OnSwitch(0, 1)
	tr.OnSwitch(1, 0)
	tr.OnSwitch(0, 1)

	prof := tr.Profile()
	if len(prof.Sample) != 2 {
		t.Fatalf("len(prof.Sample) = %d, want 2 (one per distinct fiber id)", len(prof.Sample))
	}
	if len(prof.Function) != 2 {
		t.Fatalf("len(prof.Function) = %d, want 2", len(prof.Function))
	}

	names := map[string]bool{}
	for _, fn := range prof.Function {
		names[fn.Name] = true
	}
	if !names["main"] {
		t.Error(`expected a "main" function entry for fiber id 0`)
	}
	if !names["fiber-1"] {
		t.Error(`expected a "fiber-1" function entry`)
	}
}

func TestFiberNameMain(t *testing.T) {
	if got := fiberName(0); got != "main" {
		t.Errorf("fiberName(0) = %q, want %q", got, "main")
	}
	if got := fiberName(3); got != "fiber-3" {
		t.Errorf("fiberName(3) = %q, want %q", got, "fiber-3")
	}
}
