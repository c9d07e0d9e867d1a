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

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkgsolve/resolve"
)

// Cause explains why an Incompatibility holds.
type Cause interface{ isCause() }

// DependencyCause marks an incompatibility derived directly from a
// package's declared dependency: Dependent at DependentVersion requires
// the other term's package to be in range.
type DependencyCause struct {
	Dependent        Package
	DependentVersion resolve.Version
}

func (DependencyCause) isCause() {}

// RootCause marks an incompatibility derived from a root-level
// requirement: the project itself requires the other term's package.
type RootCause struct{}

func (RootCause) isCause() {}

// NoVersionsCause marks an incompatibility recording that no version of
// the term's package satisfies the range the rest of the solve has
// already settled on.
type NoVersionsCause struct{}

func (NoVersionsCause) isCause() {}

// ConflictCause marks an incompatibility derived by resolving two others
// against each other during conflict resolution.
type ConflictCause struct {
	Left, Right *Incompatibility
}

func (ConflictCause) isCause() {}

// Incompatibility is a set of Terms that can never all hold simultaneously.
// A derivation is a single Term; an Incompatibility is the solver's unit of
// reasoning, read as "not (term1 and term2 and ...)".
type Incompatibility struct {
	Terms []Term
	Cause Cause
}

func (ic *Incompatibility) oneTerm() bool { return len(ic.Terms) == 1 }

// String renders the incompatibility in whichever form best fits its
// Cause; dependency and requirement incompatibilities always have two or
// one terms and read naturally as an implication.
func (ic *Incompatibility) String() string {
	switch c := ic.Cause.(type) {
	case DependencyCause:
		if len(ic.Terms) == 2 {
			dep := ic.otherTerm(c.Dependent)
			return fmt.Sprintf("%s requires %s %s", c.Dependent, dep.Package, dep.Range)
		}
	case RootCause:
		if len(ic.Terms) == 1 {
			return fmt.Sprintf("%s is required", ic.Terms[0].Package)
		}
		if len(ic.Terms) == 2 {
			dep := ic.otherTerm(Root)
			return fmt.Sprintf("the project requires %s %s", dep.Package, dep.Range)
		}
	case NoVersionsCause:
		if len(ic.Terms) == 1 {
			return fmt.Sprintf("no version of %s matches %s", ic.Terms[0].Package, ic.Terms[0].Range)
		}
	}
	parts := make([]string, len(ic.Terms))
	for i, t := range ic.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " | ")
}

func (ic *Incompatibility) otherTerm(pkg Package) Term {
	for _, t := range ic.Terms {
		if t.Package != pkg {
			return t
		}
	}
	return Term{}
}

// resolveIncompatibilities merges a and b, the two incompatibilities a
// conflict has been traced back to, dropping the shared term about pivot
// (the package whose assignment made both of them almost-satisfied at
// once) and combining any other terms the two share.
func resolveIncompatibilities(a, b *Incompatibility, pivot Package) *Incompatibility {
	merged := make(map[Package]Term)
	order := make([]Package, 0, len(a.Terms)+len(b.Terms))
	add := func(terms []Term) {
		for _, t := range terms {
			if t.Package == pivot {
				continue
			}
			if existing, ok := merged[t.Package]; ok {
				merged[t.Package] = combineTerms(existing, t)
				continue
			}
			merged[t.Package] = t
			order = append(order, t.Package)
		}
	}
	add(a.Terms)
	add(b.Terms)

	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })
	seen := make(map[Package]bool, len(order))
	terms := make([]Term, 0, len(order))
	for _, pkg := range order {
		if seen[pkg] {
			continue
		}
		seen[pkg] = true
		terms = append(terms, merged[pkg])
	}
	return &Incompatibility{Terms: terms, Cause: ConflictCause{Left: a, Right: b}}
}
