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
	"reflect"
	"unsafe"
)

// TriggerOffset is how far below the top of a fiber's buffer its stack
// pointer is rewritten to point when it is triggered instead of resumed
// normally (see primeStack and (*Runtime).trigger).
const TriggerOffset int = -32

// bodyOffset is how far below the top of a fiber's buffer its stack pointer
// starts out, for a fiber that has never been triggered.
const bodyOffset int = -64

// stackPointerAt returns the address offset bytes below top. offset is
// always read through a variable or parameter rather than a bare constant
// expression, since offset + top mixes a signed displacement with the
// unsigned uintptr arithmetic pointers require.
func stackPointerAt(top uintptr, offset int) uintptr {
	return top + uintptr(offset)
}

// primeStack writes a synthetic call chain onto the top of f's buffer, so
// that the next switchContext landing on it begins executing body, and - if
// body returns normally - flows into finishAndNext. The trigger-entry path
// (trigger rewrites f.ctx.sp to f.top()+TriggerOffset) shares the same
// finishAndNext tail but enters at triggerEntryAsm instead.
//
// The chain never jumps directly at the caller-supplied body/trigger
// functions: they are stored on f and invoked from bodyEntryGo/
// triggerEntryGo through an ordinary Go call, so that whatever calling
// convention the Go compiler chose for them (which, unlike the platform C
// ABI a hand-rolled synthetic chain would otherwise assume, need not match
// the registers switchContext carries trigger arguments in) is honored
// correctly. Only the fixed trampolines below - all zero-argument or
// hand-written in assembly - are ever entered by a raw jump.
func primeStack(f *Fiber, body func(), trigger func(fromID, eventIndex uint64)) {
	f.body = body
	f.trigger = trigger

	top := f.top()
	write := func(offset int, addr uintptr) {
		*(*uintptr)(unsafe.Pointer(stackPointerAt(top, offset))) = addr
	}

	bodyPC := funcPC(bodyEntryGo)
	triggerPC := funcPC(triggerEntryAsm)
	retPC := funcPC(retThunk)
	finishPC := funcPC(finishAndNext)

	write(-16, finishPC) // returned-into after the trigger entry returns
	write(-24, retPC)
	write(-32, triggerPC) // first instruction when triggered
	write(-40, retPC)
	write(-48, finishPC) // returned-into after the body returns
	write(-56, retPC)
	write(-64, bodyPC) // first instruction on a normal resume

	f.ctx = SavedRegisters{sp: stackPointerAt(top, bodyOffset)}
}

// funcPC returns the entry address of a Go function value. Used only for
// this package's own fixed trampolines, never for caller-supplied
// functions - see the note on primeStack above.
func funcPC(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// bodyEntryGo is the first slot of every fiber's synthetic call chain on a
// normal (non-triggered) resume. It takes no arguments, so it can be jumped
// into directly: a raw jump lands it exactly as if it had been called with
// zero arguments, which is all any calling convention needs to agree on.
func bodyEntryGo() {
	r := currentRuntime()
	r.fibers[r.curr].body()
}

// triggerEntryAsm is implemented in trigger_amd64.s. It is the only
// trampoline that needs hand-written assembly: it captures the fromID and
// eventIndex that switchContext loaded into DI/SI right before the final
// RET landed here, and turns them into an ordinary two-argument Go call to
// triggerEntryGo.
func triggerEntryAsm()

// triggerEntryGo looks up the current fiber's trigger function and calls it
// normally - a plain Go call, so the compiler handles argument passing
// however it sees fit.
func triggerEntryGo(fromID, eventIndex uint64) {
	r := currentRuntime()
	r.fibers[r.curr].trigger(fromID, eventIndex)
}
