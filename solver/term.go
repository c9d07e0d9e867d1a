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

	"github.com/pkgsolve/resolve/pep440"
)

// Term is an assertion about a Package: either that its version lies in
// Range (Positive) or that it does not (!Positive). Incompatibilities are
// built entirely out of Terms; there is no other way to state a fact.
type Term struct {
	Package  Package
	Range    pep440.Range
	Positive bool
}

func (t Term) String() string {
	if t.Positive {
		return fmt.Sprintf("%s %s", t.Package, t.Range)
	}
	return fmt.Sprintf("not %s %s", t.Package, t.Range)
}

func negate(t Term) Term {
	return Term{Package: t.Package, Range: t.Range, Positive: !t.Positive}
}

// effectiveRange is the range of versions t asserts are acceptable,
// whether t is stated positively or as a negation.
func (t Term) effectiveRange() pep440.Range {
	if t.Positive {
		return t.Range
	}
	return t.Range.Complement()
}

// termRelation describes how a term compares against accumulated
// knowledge about its package.
type termRelation int

const (
	relInconclusive termRelation = iota
	relSatisfied
	relContradicted
)

// relate reports how term compares to acc, the intersection of every
// effective range asserted about term.Package so far: acc implies term
// (satisfied), acc is disjoint from it (contradicted), or neither yet.
func relate(acc pep440.Range, term Term) termRelation {
	eff := term.effectiveRange()
	combined := acc.Intersect(eff)
	switch {
	case combined.Equal(acc):
		return relSatisfied
	case combined.IsEmpty():
		return relContradicted
	default:
		return relInconclusive
	}
}

// combineTerms merges two terms about the same package that both appear
// in the union of two incompatibilities being resolved against each
// other, producing the term implied by both holding at once.
func combineTerms(x, y Term) Term {
	if x.Positive && y.Positive {
		return Term{Package: x.Package, Range: x.Range.Intersect(y.Range), Positive: true}
	}
	if !x.Positive && !y.Positive {
		return Term{Package: x.Package, Range: x.Range.Union(y.Range), Positive: false}
	}
	pos, neg := x, y
	if !x.Positive {
		pos, neg = y, x
	}
	return Term{Package: pos.Package, Range: pos.Range.Intersect(neg.Range.Complement()), Positive: true}
}
