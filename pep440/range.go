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

package pep440

import (
	"fmt"
	"sort"
	"strings"
)

// bound is one edge of an interval; a nil version means unbounded.
type bound struct {
	v    *Version
	open bool
}

func (b bound) less(o bound) bool {
	if b.v == nil {
		return o.v != nil
	}
	if o.v == nil {
		return false
	}
	return b.v.Compare(*o.v) < 0
}

// interval is a half- or fully-bounded span of the version line.
type interval struct {
	lo, hi bound
}

func (iv interval) empty() bool {
	if iv.lo.v == nil || iv.hi.v == nil {
		return false
	}
	c := iv.lo.v.Compare(*iv.hi.v)
	if c > 0 {
		return true
	}
	if c == 0 && (iv.lo.open || iv.hi.open) {
		return true
	}
	return false
}

func (iv interval) contains(v Version) bool {
	if iv.lo.v != nil {
		c := v.Compare(*iv.lo.v)
		if c < 0 || (c == 0 && iv.lo.open) {
			return false
		}
	}
	if iv.hi.v != nil {
		c := v.Compare(*iv.hi.v)
		if c > 0 || (c == 0 && iv.hi.open) {
			return false
		}
	}
	return true
}

func (iv interval) String() string {
	lo := "-inf"
	if iv.lo.v != nil {
		lo = iv.lo.v.String()
	}
	hi := "+inf"
	if iv.hi.v != nil {
		hi = iv.hi.v.String()
	}
	lb, rb := "[", "]"
	if iv.lo.open {
		lb = "("
	}
	if iv.hi.open {
		rb = ")"
	}
	return lb + lo + "," + hi + rb
}

// Range is a set of acceptable versions, represented as a sorted, disjoint
// list of intervals. It is closed under Union, Intersect and Complement.
//
// The zero Range matches every version (the unconstrained range); use
// Empty() to build the range matching nothing.
type Range struct {
	intervals []interval
	exact     []Version // arbitrary-equality (===) clauses, ORed in.
}

// Empty returns the Range matching no version.
func Empty() Range { return Range{intervals: []interval{}} }

// Exactly returns the Range matching only v, equivalent to the == v
// specifier without wildcard expansion.
func Exactly(v Version) Range {
	b := bound{v: &v}
	return Range{intervals: []interval{{lo: b, hi: b}}}
}

// All returns the Range matching every version.
func All() Range { return Range{} }

func (r Range) isAllSentinel() bool { return r.intervals == nil && len(r.exact) == 0 }

// IsEmpty reports whether the range matches no version.
func (r Range) IsEmpty() bool {
	if r.isAllSentinel() {
		return false
	}
	return len(r.intervals) == 0 && len(r.exact) == 0
}

// Contains reports whether v satisfies the range. An === clause matching
// v always counts. Otherwise pre-release versions only count as contained
// when allowPrerelease is set, or when an interval that admits v has a
// pre-release version as one of its bounds.
func (r Range) Contains(v Version, allowPrerelease bool) bool {
	for _, e := range r.exact {
		if v.EqualRaw(e) {
			return true
		}
	}
	if r.isAllSentinel() {
		return allowPrerelease || !v.IsPrerelease()
	}
	in := false
	for _, iv := range r.intervals {
		if iv.contains(v) {
			in = true
			break
		}
	}
	if !in {
		return false
	}
	if !v.IsPrerelease() || allowPrerelease {
		return true
	}
	// A pre-release only matches if some bound of a containing interval
	// is itself a pre-release.
	for _, iv := range r.intervals {
		if !iv.contains(v) {
			continue
		}
		if iv.lo.v != nil && iv.lo.v.IsPrerelease() {
			return true
		}
		if iv.hi.v != nil && iv.hi.v.IsPrerelease() {
			return true
		}
	}
	return false
}

func normalize(ivs []interval) []interval {
	ivs = append([]interval(nil), ivs...)
	sort.Slice(ivs, func(i, j int) bool {
		return ivs[i].lo.less(ivs[j].lo)
	})
	out := []interval{}
	for _, iv := range ivs {
		if iv.empty() {
			continue
		}
		if len(out) == 0 {
			out = append(out, iv)
			continue
		}
		last := &out[len(out)-1]
		if overlapsOrAbuts(*last, iv) {
			if boundGreater(iv.hi, last.hi) {
				last.hi = iv.hi
			}
		} else {
			out = append(out, iv)
		}
	}
	return out
}

func overlapsOrAbuts(a, b interval) bool {
	if a.hi.v == nil || b.lo.v == nil {
		return true
	}
	c := a.hi.v.Compare(*b.lo.v)
	if c > 0 {
		return true
	}
	if c == 0 && !(a.hi.open && b.lo.open) {
		return true
	}
	return false
}

func boundGreater(a, b bound) bool {
	if a.v == nil {
		return true
	}
	if b.v == nil {
		return false
	}
	c := a.v.Compare(*b.v)
	if c != 0 {
		return c > 0
	}
	return !a.open && b.open
}

// Union returns the range matching everything either r or other matches.
func (r Range) Union(other Range) Range {
	if r.isAllSentinel() || other.isAllSentinel() {
		return All()
	}
	out := Range{
		intervals: normalize(append(append([]interval(nil), r.intervals...), other.intervals...)),
		exact:     append(append([]Version(nil), r.exact...), other.exact...),
	}
	return out
}

// Intersect returns the range matching everything both r and other match.
func (r Range) Intersect(other Range) Range {
	if r.isAllSentinel() {
		return other
	}
	if other.isAllSentinel() {
		return r
	}
	var out []interval
	for _, a := range r.intervals {
		for _, b := range other.intervals {
			if iv, ok := intersectOne(a, b); ok {
				out = append(out, iv)
			}
		}
	}
	return Range{intervals: normalize(out)}
}

func intersectOne(a, b interval) (interval, bool) {
	lo := a.lo
	if b.lo.v != nil {
		if a.lo.v == nil {
			lo = b.lo
		} else if c := b.lo.v.Compare(*a.lo.v); c > 0 || (c == 0 && b.lo.open) {
			lo = b.lo
		}
	}
	hi := a.hi
	if !boundGreater(b.hi, a.hi) {
		hi = b.hi
	}
	iv := interval{lo: lo, hi: hi}
	if iv.empty() {
		return interval{}, false
	}
	return iv, true
}

// Complement returns the range matching every version r does not match.
// Arbitrary-equality (===) clauses are not invertible and are dropped;
// only the interval structure is complemented.
func (r Range) Complement() Range {
	if r.isAllSentinel() {
		return Empty()
	}
	ivs := normalize(r.intervals)
	if len(ivs) == 0 {
		return All()
	}
	var out []interval
	cur := bound{}
	for _, iv := range ivs {
		if cur.v == nil && iv.lo.v == nil {
			cur = bound{v: iv.hi.v, open: !iv.hi.open}
			continue
		}
		out = append(out, interval{lo: cur, hi: bound{v: iv.lo.v, open: !iv.lo.open}})
		cur = bound{v: iv.hi.v, open: !iv.hi.open}
	}
	if cur.v != nil {
		out = append(out, interval{lo: cur, hi: bound{}})
	}
	return Range{intervals: normalize(out)}
}

// Equal reports whether r and other describe exactly the same normalized
// interval and exact-equality structure. Ranges built by different
// sequences of Union/Intersect that describe the same set of versions
// may still compare unequal if their structure was never normalized
// against each other; this is only reliable for ranges derived from a
// common chain of Intersect/Complement calls, which is how the solver
// uses it.
func (r Range) Equal(other Range) bool {
	if r.isAllSentinel() != other.isAllSentinel() {
		return false
	}
	if len(r.intervals) != len(other.intervals) || len(r.exact) != len(other.exact) {
		return false
	}
	for i := range r.intervals {
		if !boundEqual(r.intervals[i].lo, other.intervals[i].lo) || !boundEqual(r.intervals[i].hi, other.intervals[i].hi) {
			return false
		}
	}
	for i := range r.exact {
		if !r.exact[i].EqualRaw(other.exact[i]) {
			return false
		}
	}
	return true
}

func boundEqual(a, b bound) bool {
	if (a.v == nil) != (b.v == nil) {
		return false
	}
	if a.v == nil {
		return true
	}
	return a.v.Compare(*b.v) == 0 && a.open == b.open
}

func (r Range) String() string {
	if r.isAllSentinel() {
		return "*"
	}
	if r.IsEmpty() {
		return "{}"
	}
	parts := make([]string, 0, len(r.intervals)+len(r.exact))
	for _, iv := range r.intervals {
		parts = append(parts, iv.String())
	}
	for _, e := range r.exact {
		parts = append(parts, "==="+e.String())
	}
	return strings.Join(parts, " || ")
}

// ParseSpecifierSet parses a PEP 440 specifier set: a comma-separated
// conjunction of specifiers such as ">=1.0,!=1.5,<2.0".
func ParseSpecifierSet(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return All(), nil
	}
	r := All()
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		one, err := parseSpecifier(clause)
		if err != nil {
			return Range{}, err
		}
		r = r.Intersect(one)
	}
	return r, nil
}

var specOperators = []string{"===", "~=", "==", "!=", "<=", ">=", "<", ">"}

func parseSpecifier(s string) (Range, error) {
	for _, op := range specOperators {
		if strings.HasPrefix(s, op) {
			operand := strings.TrimSpace(s[len(op):])
			return buildSpecifier(op, operand, s)
		}
	}
	return Range{}, fmt.Errorf("pep440: unrecognized specifier %q", s)
}

func buildSpecifier(op, operand, raw string) (Range, error) {
	switch op {
	case "===":
		v, err := Parse(operand)
		if err != nil {
			return Range{}, fmt.Errorf("pep440: %q: %w", raw, err)
		}
		return Range{exact: []Version{v}}, nil
	case "!=":
		if strings.HasSuffix(operand, ".*") {
			lo, hi, err := wildcardBounds(strings.TrimSuffix(operand, ".*"))
			if err != nil {
				return Range{}, fmt.Errorf("pep440: %q: %w", raw, err)
			}
			span := interval{lo: lo.lo, hi: hi.hi}
			return Range{intervals: []interval{span}}.Complement(), nil
		}
		v, err := Parse(operand)
		if err != nil {
			return Range{}, fmt.Errorf("pep440: %q: %w", raw, err)
		}
		return excludePoint(v), nil
	case "==":
		if strings.HasSuffix(operand, ".*") {
			lo, hi, err := wildcardBounds(strings.TrimSuffix(operand, ".*"))
			if err != nil {
				return Range{}, fmt.Errorf("pep440: %q: %w", raw, err)
			}
			return Range{intervals: []interval{{lo: lo.lo, hi: hi.hi}}}, nil
		}
		v, err := Parse(operand)
		if err != nil {
			return Range{}, fmt.Errorf("pep440: %q: %w", raw, err)
		}
		b := bound{v: &v}
		return Range{intervals: []interval{{lo: b, hi: b}}}, nil
	case "<=", ">=", "<", ">":
		v, err := Parse(operand)
		if err != nil {
			return Range{}, fmt.Errorf("pep440: %q: %w", raw, err)
		}
		switch op {
		case "<=":
			return Range{intervals: []interval{{hi: bound{v: &v}}}}, nil
		case "<":
			return Range{intervals: []interval{{hi: bound{v: &v, open: true}}}}, nil
		case ">=":
			return Range{intervals: []interval{{lo: bound{v: &v}}}}, nil
		case ">":
			return Range{intervals: []interval{{lo: bound{v: &v, open: true}}}}, nil
		}
	case "~=":
		v, err := Parse(operand)
		if err != nil {
			return Range{}, fmt.Errorf("pep440: %q: %w", raw, err)
		}
		if len(v.release) < 2 {
			return Range{}, fmt.Errorf("pep440: %q: ~= requires at least two release segments", raw)
		}
		lo := bound{v: &v}
		capped := v
		capped.release = append([]int(nil), v.release[:len(v.release)-1]...)
		capped.release[len(capped.release)-1]++
		capped.preLetter, capped.preNum = "", 0
		capped.hasPost, capped.hasDev = false, false
		capped.local = nil
		hi := bound{v: &capped, open: true}
		return Range{intervals: []interval{{lo: lo, hi: hi}}}, nil
	}
	return Range{}, fmt.Errorf("pep440: unsupported operator %q", op)
}

// wildcardBounds computes the [lo, hi) interval matched by prefix.* .
func wildcardBounds(prefix string) (lo, hi interval, err error) {
	prefix = strings.TrimSuffix(prefix, ".")
	base, err := Parse(prefix)
	if err != nil {
		return interval{}, interval{}, err
	}
	loB := bound{v: &base}
	next := base
	if len(next.release) == 0 {
		next.release = []int{1}
	} else {
		next.release = append([]int(nil), base.release...)
		next.release[len(next.release)-1]++
	}
	next.preLetter, next.preNum = "", 0
	next.hasPost, next.hasDev = false, false
	next.local = nil
	hiB := bound{v: &next, open: true}
	return interval{lo: loB}, interval{hi: hiB}, nil
}

// excludePoint returns the range matching every version except v exactly.
func excludePoint(v Version) Range {
	left := interval{hi: bound{v: &v, open: true}}
	right := interval{lo: bound{v: &v, open: true}}
	return Range{intervals: normalize([]interval{left, right})}
}
