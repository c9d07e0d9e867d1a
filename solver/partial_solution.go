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
	"github.com/pkgsolve/resolve"
	"github.com/pkgsolve/resolve/pep440"
)

// assignment is one fact the partial solution has accumulated: either a
// decision (the solver picked a concrete version for a package) or a
// derivation (unit propagation forced a term to hold, with cause pointing
// at the incompatibility that forced it).
type assignment struct {
	term          Term
	decision      bool
	decisionLevel int
	cause         *Incompatibility // nil for decisions and the root seed
	version       resolve.Version  // meaningful only when decision is true
}

// partialSolution is the ordered record of every assignment made so far,
// plus the running intersection of effective ranges per package it
// implies. Decision levels increase by one at every decide() call; level
// 0 holds the synthetic root assignment plus whatever propagation derived
// before the first decision, and is never backtracked past.
type partialSolution struct {
	assignments   []assignment
	accum         map[Package]pep440.Range
	decided       map[Package]resolve.Version
	decisionLevel int
}

func newPartialSolution() *partialSolution {
	ps := &partialSolution{
		accum:   make(map[Package]pep440.Range),
		decided: make(map[Package]resolve.Version),
	}
	ps.assignments = append(ps.assignments, assignment{
		term:          Term{Package: Root, Range: pep440.All(), Positive: true},
		decision:      true,
		decisionLevel: 0,
	})
	ps.accum[Root] = pep440.All()
	ps.decided[Root] = resolve.Version{}
	return ps
}

func (ps *partialSolution) accumOf(pkg Package) pep440.Range {
	if r, ok := ps.accum[pkg]; ok {
		return r
	}
	return pep440.All()
}

func (ps *partialSolution) relationOf(t Term) termRelation {
	return relate(ps.accumOf(t.Package), t)
}

func (ps *partialSolution) append(a assignment) {
	ps.assignments = append(ps.assignments, a)
	ps.accum[a.term.Package] = ps.accumOf(a.term.Package).Intersect(a.term.effectiveRange())
	if a.decision {
		ps.decided[a.term.Package] = a.version
	}
}

// derive records a term forced by unit propagation.
func (ps *partialSolution) derive(term Term, cause *Incompatibility) {
	ps.append(assignment{term: term, decisionLevel: ps.decisionLevel, cause: cause})
}

// decide records a concrete version chosen for pkg, opening a new
// decision level.
func (ps *partialSolution) decide(pkg Package, v resolve.Version) {
	ps.decisionLevel++
	ps.append(assignment{
		term:          Term{Package: pkg, Range: pep440.Exactly(v.Version), Positive: true},
		decision:      true,
		decisionLevel: ps.decisionLevel,
		version:       v,
	})
}

// backtrackTo discards every assignment made at a decision level deeper
// than level and rebuilds the accumulated knowledge from what remains.
func (ps *partialSolution) backtrackTo(level int) {
	i := len(ps.assignments)
	for i > 0 && ps.assignments[i-1].decisionLevel > level {
		i--
	}
	ps.assignments = ps.assignments[:i]
	ps.decisionLevel = level
	ps.rebuild()
}

func (ps *partialSolution) rebuild() {
	accum := make(map[Package]pep440.Range)
	decided := make(map[Package]resolve.Version)
	get := func(pkg Package) pep440.Range {
		if r, ok := accum[pkg]; ok {
			return r
		}
		return pep440.All()
	}
	for _, a := range ps.assignments {
		accum[a.term.Package] = get(a.term.Package).Intersect(a.term.effectiveRange())
		if a.decision {
			decided[a.term.Package] = a.version
		}
	}
	ps.accum = accum
	ps.decided = decided
}

// satisfierIndex returns the index of the earliest assignment about
// t.Package whose accumulated effect, read in isolation, already
// satisfies t; -1 if no prefix does.
func (ps *partialSolution) satisfierIndex(t Term) int {
	acc := pep440.All()
	for i, a := range ps.assignments {
		if a.term.Package != t.Package {
			continue
		}
		acc = acc.Intersect(a.term.effectiveRange())
		if relate(acc, t) == relSatisfied {
			return i
		}
	}
	return -1
}

// incompatibilitySatisfier finds, among ic's terms, the one whose
// satisfierIndex is latest in the assignment history (the term whose
// assignment completed ic's satisfaction), and the decision level that
// was current just before that point considering ic's other terms.
func (ps *partialSolution) incompatibilitySatisfier(ic *Incompatibility) (satIdx int, satTerm Term, previousLevel int) {
	satIdx, prevIdx := -1, -1
	for _, t := range ic.Terms {
		idx := ps.satisfierIndex(t)
		if idx < 0 {
			continue
		}
		if idx > satIdx {
			prevIdx, satIdx, satTerm = satIdx, idx, t
		} else if idx > prevIdx {
			prevIdx = idx
		}
	}
	if prevIdx >= 0 {
		previousLevel = ps.assignments[prevIdx].decisionLevel
	}
	return satIdx, satTerm, previousLevel
}
