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
Package resolve holds the shared data model for PyPI-style dependency
resolution: package and version identities, requirements, artifact
references and the external collaborator interfaces a resolve call is
driven through. The solver, graph assembler and related packages build
on these types rather than defining their own.
*/
package resolve

import (
	"fmt"

	"github.com/pkgsolve/resolve/dep"
	"github.com/pkgsolve/resolve/pep440"
	"github.com/pkgsolve/resolve/version"
)

// PackageName is a normalized PyPI package name: lowercased, with runs of
// "-", "_" and "." collapsed to a single "-" (PEP 503).
type PackageName string

// NormalizePackageName applies the PEP 503 normalization rule.
func NormalizePackageName(name string) PackageName {
	out := make([]byte, 0, len(name))
	lastDash := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '-' || c == '_' || c == '.':
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		case c >= 'A' && c <= 'Z':
			out = append(out, c-'A'+'a')
			lastDash = false
		default:
			out = append(out, c)
			lastDash = false
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return PackageName(out)
}

// Extra is a normalized package feature identifier (PEP 685).
type Extra string

// NormalizeExtra applies the same normalization as package names.
func NormalizeExtra(name string) Extra {
	return Extra(NormalizePackageName(name))
}

// PackageKey uniquely identifies a package. System is carried for shape
// compatibility with multi-ecosystem resolvers; only PyPI is implemented.
type PackageKey struct {
	System System
	Name   PackageName
}

func (k PackageKey) String() string { return string(k.Name) }

// Compare orders PackageKeys by System then Name.
func (k PackageKey) Compare(other PackageKey) int {
	if k.System != other.System {
		if k.System < other.System {
			return -1
		}
		return 1
	}
	if k.Name < other.Name {
		return -1
	}
	if k.Name > other.Name {
		return 1
	}
	return 0
}

// System nominates a packaging ecosystem. Only PyPI is implemented; the
// field exists so PackageKey keeps the shape a multi-ecosystem resolver
// would need.
type System byte

const (
	UnknownSystem System = iota
	PyPI
)

func (s System) String() string {
	if s == PyPI {
		return "PyPI"
	}
	return "unknown"
}

// VersionKey uniquely identifies a version of a package.
type VersionKey struct {
	PackageKey
	Version pep440.Version
}

func (k VersionKey) String() string {
	return fmt.Sprintf("%s==%s", k.PackageKey, k.Version)
}

// Compare orders VersionKeys by PackageKey then Version.
func (k VersionKey) Compare(other VersionKey) int {
	if c := k.PackageKey.Compare(other.PackageKey); c != 0 {
		return c
	}
	return k.Version.Compare(other.Version)
}

// Version combines a VersionKey with attributes the provider attached to
// it (yanked, editable, local, ...).
type Version struct {
	VersionKey
	version.AttrSet
}

func (v Version) String() string {
	return fmt.Sprintf("{%v %v}", v.VersionKey, v.AttrSet)
}

// Equal reports whether the two versions are equivalent.
func (v Version) Equal(w Version) bool {
	return v.VersionKey == w.VersionKey && v.AttrSet.Equal(w.AttrSet)
}

// RequirementVersion represents a dependency edge's target: the package it
// points at, the range of versions that satisfy the edge, and the edge
// attributes (extra, marker, optionality) that gate it.
type RequirementVersion struct {
	PackageKey
	Constraint pep440.Range
	Type       dep.Type
}

func (r RequirementVersion) String() string {
	s := fmt.Sprintf("%s%s", r.PackageKey, r.Constraint)
	if !r.Type.IsRegular() {
		s = r.Type.String() + "|" + s
	}
	return s
}
