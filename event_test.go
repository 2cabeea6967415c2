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

func TestEventBufferAppendIsMonotonic(t *testing.T) {
	b := newEventBuffer(2)

	for i := 0; i < 5; i++ {
		idx := b.append(Event{Data: uint64(i)})
		if idx != uint64(i) {
			t.Fatalf("append #%d returned index %d, want %d", i, idx, i)
		}
	}

	for i := 0; i < 5; i++ {
		ev, ok := b.at(uint64(i))
		if !ok {
			t.Fatalf("at(%d) missing", i)
		}
		if ev.Data != uint64(i) {
			t.Errorf("at(%d).Data = %d, want %d", i, ev.Data, i)
		}
	}
}

func TestEventBufferAtOutOfRange(t *testing.T) {
	b := newEventBuffer(0)
	if _, ok := b.at(0); ok {
		t.Error("at(0) on empty buffer returned ok=true")
	}
}
