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

// SavedRegisters is the saved-register record written and read by
// switchContext (context_amd64.s). Its layout is an ABI shared with that
// assembly routine: every field's byte offset is asserted below at package
// initialization, and the order must never change without updating the
// assembly in lockstep.
//
// The first word is the stack pointer the fiber will resume at; the next six
// are the platform's callee-saved general-purpose registers; the last two
// hold the arguments a triggered fiber receives the first time it runs its
// trigger-entry function (see stackframe.go).
type SavedRegisters struct {
	sp   uintptr // 0x00
	r15  uintptr // 0x08
	r14  uintptr // 0x10
	r13  uintptr // 0x18
	r12  uintptr // 0x20
	bx   uintptr // 0x28
	bp   uintptr // 0x30
	arg0 uintptr // 0x38 - fromFiberID on a triggered resume
	arg1 uintptr // 0x40 - eventIndex on a triggered resume
}

// Offsets of SavedRegisters fields, asserted against unsafe.Offsetof below. context_amd64.s hard-codes these
// same constants; changing one without the other corrupts every switch.
const (
	offRSP  = 0x00
	offR15  = 0x08
	offR14  = 0x10
	offR13  = 0x18
	offR12  = 0x20
	offRBX  = 0x28
	offRBP  = 0x30
	offArg0 = 0x38
	offArg1 = 0x40

	savedRegistersSize = 0x48
)

func init() {
	var r SavedRegisters
	assertOffset("sp", unsafe.Offsetof(r.sp), offRSP)
	assertOffset("r15", unsafe.Offsetof(r.r15), offR15)
	assertOffset("r14", unsafe.Offsetof(r.r14), offR14)
	assertOffset("r13", unsafe.Offsetof(r.r13), offR13)
	assertOffset("r12", unsafe.Offsetof(r.r12), offR12)
	assertOffset("bx", unsafe.Offsetof(r.bx), offRBX)
	assertOffset("bp", unsafe.Offsetof(r.bp), offRBP)
	assertOffset("arg0", unsafe.Offsetof(r.arg0), offArg0)
	assertOffset("arg1", unsafe.Offsetof(r.arg1), offArg1)
	if unsafe.Sizeof(r) < savedRegistersSize {
		panic("leydi: SavedRegisters shrank below the size context_amd64.s assumes")
	}
}

func assertOffset(field string, got, want uintptr) {
	if got != want {
		panic("leydi: SavedRegisters." + field + " moved: the assembly ABI in context_amd64.s would silently corrupt state")
	}
}
