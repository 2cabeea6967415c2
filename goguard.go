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

// getg is implemented in goguard_amd64.s.
func getg() uintptr

// Offsets of the fields of runtime.g this package touches, pinned to the
// go1.20 layout on linux/amd64 (matches the go.mod toolchain constraint):
//
//	type stack struct { lo, hi uintptr } // g.stack, offset 0x00
//	stackguard0 uintptr                  // offset 0x10
//
// This mirrors the same fragility github.com/petermattis/goid documents for
// its own per-version offset table: there is no supported API for any of
// this, and a toolchain upgrade that reorders runtime.g invalidates these
// constants silently. Kept as a named, single-purpose constant block rather
// than scattered literals so a future bump only touches one place.
const (
	gStackLoOffset     = 0x00
	gStackHiOffset     = 0x08
	gStackguard0Offset = 0x10
	stackGuardSlack    = 1024 // bytes of headroom before stackguard0, generous vs. the runtime's own ~928
)

// retargetGoGuard points the host goroutine's compiler-checked stack bounds
// at [lo, hi), the fiber buffer that is about to become RUNNING. Every Go
// function's prologue compares SP against stackguard0 and calls morestack if
// it's lower; without this, the first function call made from inside a
// fiber running on its own raw buffer would look like a stack overflow of
// the real goroutine stack and corrupt the process.
//
// This is called once, immediately before every switchContext, and is
// one-directional: there is nothing to "restore" afterwards, because the
// fiber being paused will have this done again, for its own bounds, the next
// time anything switches back into it.
func retargetGoGuard(lo, hi uintptr) {
	g := getg()
	*(*uintptr)(unsafe.Pointer(g + gStackLoOffset)) = lo
	*(*uintptr)(unsafe.Pointer(g + gStackHiOffset)) = hi
	*(*uintptr)(unsafe.Pointer(g + gStackguard0Offset)) = lo + stackGuardSlack
}
