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

/*
Package solver implements version solving by conflict-driven clause
learning, in the shape popularized as PubGrub: a partial solution of
decided and derived facts, an append-only store of incompatibilities
(sets of facts that can never all hold at once), unit propagation to
push the consequences of each fact as far as they go, and conflict
resolution that turns a contradiction into a new incompatibility and
backjumps to the decision level where it lets the solve continue instead
of guessing blindly.

The package never talks to a registry itself; everything it knows about
candidate versions and dependencies comes through the Provider interface,
so the same engine drives resolution for any source of package data.
*/
package solver

import (
	"context"

	"github.com/pkgsolve/resolve"
	"github.com/pkgsolve/resolve/pep440"
)

// Options configures a Solve call.
type Options struct {
	// Trace, if non-nil, is called with a human-readable line for every
	// decision, derivation and conflict resolution step. It has no effect
	// on the outcome and exists for diagnosing why a resolve went the way
	// it did.
	Trace func(format string, args ...any)
}

// Solution is the result of a successful Solve: the version chosen for
// every package, and the full incompatibility store the solve produced.
// The Graph Assembler consults Incompatibilities to recover which edges
// actually participated in the final assignment.
type Solution struct {
	Versions          map[Package]resolve.Version
	Incompatibilities []*Incompatibility
}

type state struct {
	provider Provider
	trace    func(string, ...any)

	solution  *partialSolution
	byPackage map[Package][]*Incompatibility
	all       []*Incompatibility
	order     []Package
	orderSeen map[Package]bool
}

func newState(p Provider, opts Options) *state {
	trace := opts.Trace
	if trace == nil {
		trace = func(string, ...any) {}
	}
	return &state{
		provider:  p,
		trace:     trace,
		solution:  newPartialSolution(),
		byPackage: make(map[Package][]*Incompatibility),
		orderSeen: make(map[Package]bool),
	}
}

// Solve finds a version assignment satisfying every incompatibility the
// provider's dependency data implies, or returns a *NoSolution error
// describing why none exists.
func Solve(ctx context.Context, p Provider, opts Options) (*Solution, error) {
	s := newState(p, opts)
	if err := s.run(ctx); err != nil {
		return nil, err
	}
	versions := make(map[Package]resolve.Version, len(s.solution.decided))
	for pkg, v := range s.solution.decided {
		if pkg == Root {
			continue
		}
		versions[pkg] = v
	}
	return &Solution{Versions: versions, Incompatibilities: s.all}, nil
}

func (s *state) addIncompatibility(ic *Incompatibility) {
	s.all = append(s.all, ic)
	for _, t := range ic.Terms {
		s.byPackage[t.Package] = append(s.byPackage[t.Package], ic)
		if t.Package != Root && !s.orderSeen[t.Package] {
			s.orderSeen[t.Package] = true
			s.order = append(s.order, t.Package)
		}
	}
	s.trace("incompatibility: %s", ic)
}

func (s *state) run(ctx context.Context) error {
	deps, err := s.provider.GetDependencies(ctx, Root, resolve.Version{})
	if err != nil {
		return err
	}
	for _, d := range deps {
		s.addIncompatibility(&Incompatibility{
			Terms: []Term{
				{Package: Root, Range: pep440.All(), Positive: true},
				{Package: d.Package, Range: d.Constraint, Positive: false},
			},
			Cause: RootCause{},
		})
	}

	changed := Root
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.propagate(ctx, changed); err != nil {
			return err
		}
		next, ok := s.nextUndecided()
		if !ok {
			return nil
		}
		decided, err := s.makeDecision(ctx, next)
		if err != nil {
			return err
		}
		changed = decided
	}
}

// propagate repeatedly examines every incompatibility touching a changed
// package until nothing new can be derived. A conflict found mid-pass
// hands control to conflict resolution, which backjumps the partial
// solution and derives one new fact; propagation resumes from that fact.
func (s *state) propagate(ctx context.Context, start Package) error {
	queue := []Package{start}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		pkg := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		incompats := append([]*Incompatibility(nil), s.byPackage[pkg]...)
	incompatLoop:
		for _, ic := range incompats {
			rel, unsat := s.relateIncompatibility(ic)
			switch rel {
			case relIncSatisfied:
				derived, err := s.resolveConflict(ic)
				if err != nil {
					return err
				}
				queue = []Package{derived.Package}
				break incompatLoop
			case relIncAlmost:
				negated := negate(unsat)
				s.solution.derive(negated, ic)
				s.trace("derived %s (from %s)", negated, ic)
				queue = append(queue, negated.Package)
			}
		}
	}
	return nil
}

type incompatRelation int

const (
	relIncInconclusive incompatRelation = iota
	relIncAlmost
	relIncSatisfied
	relIncContradicted
)

// relateIncompatibility classifies ic against the current partial
// solution: satisfied (every term holds, a conflict), almost (every term
// but one holds, so the last must be forced false), contradicted (one
// term is already false, so ic carries no information), or inconclusive.
func (s *state) relateIncompatibility(ic *Incompatibility) (incompatRelation, Term) {
	unsatisfied := 0
	var unsatTerm Term
	for _, t := range ic.Terms {
		switch s.solution.relationOf(t) {
		case relContradicted:
			return relIncContradicted, Term{}
		case relInconclusive:
			unsatisfied++
			unsatTerm = t
		}
	}
	switch unsatisfied {
	case 0:
		return relIncSatisfied, Term{}
	case 1:
		return relIncAlmost, unsatTerm
	default:
		return relIncInconclusive, Term{}
	}
}

// resolveConflict implements PubGrub's conflict resolution: repeatedly
// merge ic with the incompatibility that caused its most recent
// satisfier until the merge isolates a single decision to blame, then
// backjump past that decision and derive the negation of what it broke.
func (s *state) resolveConflict(ic *Incompatibility) (Term, error) {
	for {
		if ic.oneTerm() {
			return Term{}, &NoSolution{Incompatibility: ic}
		}
		satIdx, satTerm, prevLevel := s.solution.incompatibilitySatisfier(ic)
		if satIdx < 0 {
			return Term{}, &NoSolution{Incompatibility: ic}
		}
		satAssignment := s.solution.assignments[satIdx]

		if satAssignment.decision || satAssignment.decisionLevel != prevLevel {
			s.solution.backtrackTo(prevLevel)
			s.addIncompatibility(ic)
			if ic.oneTerm() {
				return Term{}, &NoSolution{Incompatibility: ic}
			}
			negated := negate(satTerm)
			s.solution.derive(negated, ic)
			s.trace("conflict resolved, backjumped to level %d, derived %s", prevLevel, negated)
			return negated, nil
		}

		ic = resolveIncompatibilities(ic, satAssignment.cause, satTerm.Package)
	}
}

// nextUndecided picks the next package to decide a version for. Packages
// are tried in discovery order (the order their first incompatibility
// was recorded); this is a simpler stand-in for PubGrub's usual
// fewest-candidate-first heuristic, which needs the provider to report
// candidate counts that this Provider interface does not expose.
func (s *state) nextUndecided() (Package, bool) {
	for _, pkg := range s.order {
		if _, ok := s.solution.decided[pkg]; ok {
			continue
		}
		return pkg, true
	}
	return Package{}, false
}

func (s *state) makeDecision(ctx context.Context, pkg Package) (Package, error) {
	allowed := s.solution.accumOf(pkg)
	v, ok, err := s.provider.ChooseVersion(ctx, pkg, allowed)
	if err != nil {
		return Package{}, err
	}
	if !ok {
		s.addIncompatibility(&Incompatibility{
			Terms: []Term{{Package: pkg, Range: allowed, Positive: true}},
			Cause: NoVersionsCause{},
		})
		return pkg, nil
	}

	deps, err := s.provider.GetDependencies(ctx, pkg, v)
	if err != nil {
		return Package{}, err
	}
	for _, d := range deps {
		s.addIncompatibility(&Incompatibility{
			Terms: []Term{
				{Package: pkg, Range: pep440.Exactly(v.Version), Positive: true},
				{Package: d.Package, Range: d.Constraint, Positive: false},
			},
			Cause: DependencyCause{Dependent: pkg, DependentVersion: v},
		})
	}

	s.solution.decide(pkg, v)
	s.trace("decided %s = %s", pkg, v.Version)
	return pkg, nil
}
