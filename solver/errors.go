// Copyright 2024 The pkgsolve Authors
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

package solver

import "strings"

// NoSolution is returned when no assignment of versions satisfies every
// requirement, override and marker in play. Incompatibility is the final,
// unsatisfiable-at-the-root clause conflict resolution traced the failure
// back to; walking its Cause chain (when it is a ConflictCause) reproduces
// the whole derivation.
type NoSolution struct {
	Incompatibility *Incompatibility
}

func (e *NoSolution) Error() string {
	var b strings.Builder
	b.WriteString("no set of package versions satisfies every constraint:\n")
	writeDerivation(&b, e.Incompatibility, make(map[*Incompatibility]bool), 0)
	return strings.TrimRight(b.String(), "\n")
}

func writeDerivation(b *strings.Builder, ic *Incompatibility, seen map[*Incompatibility]bool, depth int) {
	if ic == nil || seen[ic] {
		return
	}
	seen[ic] = true
	if cc, ok := ic.Cause.(ConflictCause); ok {
		writeDerivation(b, cc.Left, seen, depth)
		writeDerivation(b, cc.Right, seen, depth)
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("- ")
	b.WriteString(ic.String())
	b.WriteString("\n")
}
