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
Package pep440 implements PEP 440 version parsing, ordering and range
matching: the epoch/release/pre/post/dev/local scheme PyPI distributions
use, trimmed down from a general multi-ecosystem version library to the
single scheme this resolver needs.
*/
package pep440

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed PEP 440 version.
//
// The zero Version is not meaningful; construct with Parse.
type Version struct {
	raw     string
	epoch   int
	release []int

	preLetter string // "a", "b" or "rc"; empty if no pre-release segment.
	preNum    int

	hasPost bool
	postNum int

	hasDev bool
	devNum int

	local []localSegment
}

type localSegment struct {
	str    string // lower-cased
	num    int
	isNum  bool
}

// String returns the normalized textual form of the version, per PEP 440's
// canonicalization rules.
func (v Version) String() string {
	var b strings.Builder
	if v.epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.epoch)
	}
	for i, r := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", r)
	}
	if v.preLetter != "" {
		fmt.Fprintf(&b, "%s%d", v.preLetter, v.preNum)
	}
	if v.hasPost {
		fmt.Fprintf(&b, ".post%d", v.postNum)
	}
	if v.hasDev {
		fmt.Fprintf(&b, ".dev%d", v.devNum)
	}
	if len(v.local) > 0 {
		b.WriteByte('+')
		for i, seg := range v.local {
			if i > 0 {
				b.WriteByte('.')
			}
			if seg.isNum {
				fmt.Fprintf(&b, "%d", seg.num)
			} else {
				b.WriteString(seg.str)
			}
		}
	}
	return b.String()
}

// Raw returns the version string exactly as parsed, before normalization.
func (v Version) Raw() string { return v.raw }

// IsPrerelease reports whether the version has a pre-release or dev
// segment; PEP 440 treats both as needing an explicit opt-in to match.
func (v Version) IsPrerelease() bool {
	return v.preLetter != "" || v.hasDev
}

// IsLocal reports whether the version carries a local version segment.
func (v Version) IsLocal() bool { return len(v.local) > 0 }

var preReleaseSpellings = map[string]string{
	"a": "a", "alpha": "a",
	"b": "b", "beta": "b",
	"rc": "rc", "c": "rc", "pre": "rc", "preview": "rc",
}

// Parse parses s as a PEP 440 version identifier.
func Parse(s string) (Version, error) {
	raw := s
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "v")

	v := Version{raw: raw}

	rest := s

	// Epoch: N!
	if i := strings.IndexByte(rest, '!'); i >= 0 {
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return Version{}, fmt.Errorf("pep440: invalid epoch in %q: %w", raw, err)
		}
		v.epoch = n
		rest = rest[i+1:]
	}

	// Local version: +segment (must come last, split off first so the
	// remaining grammar doesn't need to worry about it).
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		local := rest[i+1:]
		rest = rest[:i]
		if local == "" {
			return Version{}, fmt.Errorf("pep440: empty local version in %q", raw)
		}
		for _, part := range strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '-' || r == '_' }) {
			if n, err := strconv.Atoi(part); err == nil {
				v.local = append(v.local, localSegment{num: n, isNum: true})
			} else {
				v.local = append(v.local, localSegment{str: part})
			}
		}
	}

	// Release segment: leading run of N(.N)*
	rel, rem, err := scanRelease(rest)
	if err != nil {
		return Version{}, fmt.Errorf("pep440: %w in %q", err, raw)
	}
	v.release = rel
	rest = rem

	// Separator before pre/post/dev segments may be '.', '-', '_' or
	// nothing at all (e.g. "1.0a1").
	for rest != "" {
		rest = strings.TrimLeft(rest, ".-_")
		if rest == "" {
			break
		}
		switch {
		case strings.HasPrefix(rest, "post") || (rest[0] == 'r' && !strings.HasPrefix(rest, "rc")):
			word := "post"
			if rest[0] == 'r' {
				word = "r"
			}
			rest = rest[len(word):]
			n, rem, err := scanInt(rest)
			if err != nil {
				return Version{}, fmt.Errorf("pep440: invalid post-release in %q: %w", raw, err)
			}
			v.hasPost = true
			v.postNum = n
			rest = rem
		case strings.HasPrefix(rest, "dev"):
			rest = rest[len("dev"):]
			n, rem, err := scanInt(rest)
			if err != nil {
				return Version{}, fmt.Errorf("pep440: invalid dev-release in %q: %w", raw, err)
			}
			v.hasDev = true
			v.devNum = n
			rest = rem
		default:
			letter, rem, ok := scanPreLetter(rest)
			if !ok {
				return Version{}, fmt.Errorf("pep440: unrecognized suffix %q in %q", rest, raw)
			}
			n, rem2, err := scanInt(rem)
			if err != nil {
				return Version{}, fmt.Errorf("pep440: invalid pre-release in %q: %w", raw, err)
			}
			v.preLetter = letter
			v.preNum = n
			rest = rem2
		}
	}

	return v, nil
}

func scanRelease(s string) ([]int, string, error) {
	var rel []int
	for {
		j := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == 0 {
			if len(rel) == 0 {
				return nil, "", fmt.Errorf("missing release segment")
			}
			return rel, s, nil
		}
		n, err := strconv.Atoi(s[:j])
		if err != nil {
			return nil, "", err
		}
		rel = append(rel, n)
		s = s[j:]
		if strings.HasPrefix(s, ".") && j > 0 {
			// Only consume the '.' if another digit run follows;
			// otherwise it belongs to a later segment (e.g. ".post").
			k := 1
			for k < len(s) && s[k] >= '0' && s[k] <= '9' {
				k++
			}
			if k > 1 {
				s = s[1:]
				continue
			}
		}
		return rel, s, nil
	}
}

func scanInt(s string) (int, string, error) {
	s = strings.TrimLeft(s, ".-_")
	j := 0
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, s, nil // implicit 0, e.g. "1.0post"
	}
	n, err := strconv.Atoi(s[:j])
	return n, s[j:], err
}

func scanPreLetter(s string) (letter, rest string, ok bool) {
	for _, cand := range []string{"alpha", "beta", "preview", "pre", "rc", "a", "b", "c"} {
		if strings.HasPrefix(s, cand) {
			return preReleaseSpellings[cand], s[len(cand):], true
		}
	}
	return "", s, false
}

// Compare returns -1, 0 or 1 depending on whether v sorts before, the same
// as, or after other, per PEP 440 ordering.
func (v Version) Compare(other Version) int {
	if v.epoch != other.epoch {
		if v.epoch < other.epoch {
			return -1
		}
		return 1
	}
	if c := compareRelease(v.release, other.release); c != 0 {
		return c
	}
	if c := comparePre(v, other); c != 0 {
		return c
	}
	if c := comparePost(v, other); c != 0 {
		return c
	}
	if c := compareDev(v, other); c != 0 {
		return c
	}
	return compareLocal(v.local, other.local)
}

// Equal reports whether v and other compare equal.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// EqualRaw reports whether v and other are the arbitrary-equality match
// required by the === operator: identical normalized string form.
func (v Version) EqualRaw(other Version) bool { return v.String() == other.String() }

func compareRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

// comparePre orders the pre-release segment: a version without one sorts
// after one with a pre-release, except that a dev-only version (no pre,
// has dev, no post) sorts before any pre-release of the same release.
func comparePre(v, other Version) int {
	vHas, oHas := v.preLetter != "", other.preLetter != ""
	switch {
	case vHas && oHas:
		if v.preLetter != other.preLetter {
			// "a" < "b" < "rc" lexically matches PEP 440 ordering.
			if v.preLetter < other.preLetter {
				return -1
			}
			return 1
		}
		if v.preNum != other.preNum {
			if v.preNum < other.preNum {
				return -1
			}
			return 1
		}
		return 0
	case vHas && !oHas:
		// other is either a dev-only or final release at this release
		// segment. A dev-only release (no pre, has dev) sorts before
		// any pre-release; a final release sorts after.
		if other.hasDev && !other.hasPost {
			return 1
		}
		return -1
	case !vHas && oHas:
		return -comparePre(other, v)
	default:
		return 0
	}
}

func comparePost(v, other Version) int {
	switch {
	case v.hasPost && other.hasPost:
		if v.postNum != other.postNum {
			if v.postNum < other.postNum {
				return -1
			}
			return 1
		}
		return 0
	case v.hasPost && !other.hasPost:
		return 1
	case !v.hasPost && other.hasPost:
		return -1
	default:
		return 0
	}
}

func compareDev(v, other Version) int {
	switch {
	case v.hasDev && other.hasDev:
		if v.devNum != other.devNum {
			if v.devNum < other.devNum {
				return -1
			}
			return 1
		}
		return 0
	case v.hasDev && !other.hasDev:
		return -1
	case !v.hasDev && other.hasDev:
		return 1
	default:
		return 0
	}
}

func compareLocal(a, b []localSegment) int {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	// A version with no local segment sorts before one with a local
	// segment, all else equal.
	if len(a) == 0 {
		return -1
	}
	if len(b) == 0 {
		return 1
	}
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if i >= len(a) {
			return -1
		}
		if i >= len(b) {
			return 1
		}
		x, y := a[i], b[i]
		if x.isNum && y.isNum {
			if x.num != y.num {
				if x.num < y.num {
					return -1
				}
				return 1
			}
			continue
		}
		if x.isNum != y.isNum {
			// Numeric segments sort after alphanumeric ones.
			if x.isNum {
				return 1
			}
			return -1
		}
		if x.str != y.str {
			if x.str < y.str {
				return -1
			}
			return 1
		}
	}
	return 0
}
