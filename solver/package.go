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
	"context"
	"fmt"

	"github.com/pkgsolve/resolve"
	"github.com/pkgsolve/resolve/pep440"
)

// Kind distinguishes the three shapes a Package can take.
type Kind int8

const (
	// RootKind is the synthetic package representing the project being
	// resolved. There is exactly one root per resolve call, it depends
	// on every top-level requirement, and the solver always assigns it
	// first.
	RootKind Kind = iota
	// BaseKind is an ordinary package at its unqualified identity.
	BaseKind
	// ExtraKind is the "extra group" of a package: a virtual node that
	// depends on the package's BaseKind node plus whatever the extra
	// itself declares, at the same version.
	ExtraKind
)

func (k Kind) String() string {
	switch k {
	case RootKind:
		return "root"
	case ExtraKind:
		return "extra"
	default:
		return "base"
	}
}

// Package is a virtual package: the opaque, comparable identity the solver
// assigns a single Version to. Two Packages are the solver's notion of
// "the same node" iff they are == as Go values, so every field that
// distinguishes two otherwise-same-named requirements (an extra, a pinned
// URL) must be part of the identity.
type Package struct {
	Kind  Kind
	Name  resolve.PackageName
	Extra resolve.Extra // set iff Kind == ExtraKind
	URL   string        // set iff the requirement pinned a direct URL/path/VCS source
}

// Root is the single RootKind package of a resolve call.
var Root = Package{Kind: RootKind}

func (p Package) String() string {
	switch p.Kind {
	case RootKind:
		return "<root>"
	case ExtraKind:
		s := fmt.Sprintf("%s[%s]", p.Name, p.Extra)
		if p.URL != "" {
			s += "@" + p.URL
		}
		return s
	default:
		if p.URL != "" {
			return fmt.Sprintf("%s@%s", p.Name, p.URL)
		}
		return string(p.Name)
	}
}

// Base returns the BaseKind package with the same name and URL as p.
func (p Package) Base() Package {
	return Package{Kind: BaseKind, Name: p.Name, URL: p.URL}
}

// Dependency is an edge from whatever Package the Provider was asked about
// to another Package, constrained to the versions satisfying Constraint.
type Dependency struct {
	Package    Package
	Constraint pep440.Range
}

// Provider is the capability surface the Solver Core consults while
// searching for an assignment: it is never told how a candidate version
// was chosen or how dependencies were fetched, only what the answers are.
type Provider interface {
	// ChooseVersion returns the preferred version of pkg compatible with
	// allowed, or ok == false if none exists.
	ChooseVersion(ctx context.Context, pkg Package, allowed pep440.Range) (v resolve.Version, ok bool, err error)

	// GetDependencies returns pkg's dependencies at the given version,
	// already filtered by environment markers and Manifest overrides.
	GetDependencies(ctx context.Context, pkg Package, v resolve.Version) ([]Dependency, error)
}
