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

// switchContext is implemented in context_amd64.s. It saves the calling
// fiber's callee-saved registers into *from, loads the target's from *to,
// and returns onto the target's stack.
//
//go:noescape
func switchContext(from, to *SavedRegisters)

// retThunk is implemented in context_amd64.s. It is never called from Go; its
// address is taken with funcPC and written into a fiber's stack by
// primeStack, to be returned into by the synthetic call chain.
func retThunk()
