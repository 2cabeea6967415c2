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

import "fmt"

// PoolExhaustedError is the fatal error Spawn panics with when every worker
// fiber is already Ready or Running: a programmer error (spawning more
// fibers than the pool was sized for), not a condition a caller is expected
// to recover from.
type PoolExhaustedError struct {
	MaxFibers int
}

func (e PoolExhaustedError) Error() string {
	return fmt.Sprintf("leydi: no available fiber in a pool of %d", e.MaxFibers)
}
