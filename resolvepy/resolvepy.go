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
Package resolvepy wires the whole resolve call together: it names
unnamed requirements, drives the solver over a registry/metadata pair,
assembles the resulting graph, and projects that graph into a marker
tree and a Lock.
*/
package resolvepy

import (
	"context"
	"fmt"

	"github.com/pkgsolve/resolve"
	"github.com/pkgsolve/resolve/graph"
	"github.com/pkgsolve/resolve/lock"
	"github.com/pkgsolve/resolve/marker"
	"github.com/pkgsolve/resolve/nameinfer"
	"github.com/pkgsolve/resolve/pep440"
	"github.com/pkgsolve/resolve/provider"
	"github.com/pkgsolve/resolve/solver"
)

// Result is the complete output of a Resolve call.
type Result struct {
	Graph   *graph.ResolutionGraph
	Lock    *lock.Lock
	Markers marker.Tree
}

// Resolve runs the full pipeline described by Package resolvepy's doc
// comment against manifest. versions and metadata are the caller's
// registry collaborators; env is the interpreter marker environment the
// resolution is computed for.
func Resolve(ctx context.Context, manifest resolve.Manifest, versions resolve.VersionsProvider, metadata resolve.MetadataProvider, env resolve.InterpreterMarkers, opts solver.Options) (*Result, error) {
	named, builtReqs, err := nameinfer.ResolveNames(ctx, manifest.Requirements, metadata)
	if err != nil {
		return nil, err
	}
	manifest.Requirements = named

	namedEditables, builtEditables, err := nameinfer.ResolveNames(ctx, manifest.Editables, metadata)
	if err != nil {
		return nil, err
	}
	manifest.Editables = namedEditables

	builtArchives := make(map[string]resolve.Archive, len(builtReqs)+len(builtEditables))
	for k, a := range builtReqs {
		builtArchives[k] = a
	}
	for k, a := range builtEditables {
		builtArchives[k] = a
	}

	p := provider.New(versions, metadata, env, manifest, builtArchives)

	sol, err := solver.Solve(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	g, err := graph.Assemble(ctx, sol, p, hashPreferences(manifest))
	if err != nil {
		return nil, err
	}

	tree, err := marker.Project(ctx, g, manifest, p, env)
	if err != nil {
		return nil, err
	}

	lk, err := lock.Project(g)
	if err != nil {
		return nil, err
	}

	return &Result{Graph: g, Lock: lk, Markers: tree}, nil
}

func hashPreferences(manifest resolve.Manifest) map[resolve.PackageName][]resolve.HashDigest {
	out := make(map[resolve.PackageName][]resolve.HashDigest)
	for _, pref := range manifest.Preferences {
		if len(pref.Hashes) > 0 {
			out[resolve.NormalizePackageName(string(pref.Name))] = pref.Hashes
		}
	}
	return out
}

// PreferencesFromLock converts a previously produced Lock back into the
// Preferences a later Resolve call can feed through Manifest, so that a
// re-resolve against unchanged inputs reproduces the same Lock (the
// re-lock idempotence property).
func PreferencesFromLock(lk *lock.Lock) ([]resolve.Preference, error) {
	prefs := make([]resolve.Preference, 0, len(lk.Distributions))
	for _, d := range lk.Distributions {
		v, err := pep440.Parse(d.Version)
		if err != nil {
			return nil, fmt.Errorf("resolvepy: lock entry %s has unparseable version %q: %w", d.Name, d.Version, err)
		}
		hashes := make([]resolve.HashDigest, len(d.Hashes))
		for i, h := range d.Hashes {
			hashes[i] = resolve.HashDigest{Algorithm: h.Algorithm, Hex: h.Hex}
		}
		prefs = append(prefs, resolve.Preference{Name: d.Name, Version: v, Hashes: hashes})
	}
	return prefs, nil
}
