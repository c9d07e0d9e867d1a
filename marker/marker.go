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
Package marker projects a resolved graph down to a sufficient (not
necessary) marker tree: a conjunction pinning every environment-backed
marker parameter that influenced the resolution to the value it held
while resolving. Evaluating the projected tree against a candidate
environment tells you whether this exact resolution is guaranteed valid
there — not whether it is the only one that would be.
*/
package marker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkgsolve/resolve"
	"github.com/pkgsolve/resolve/dep"
	"github.com/pkgsolve/resolve/graph"
	"github.com/pkgsolve/resolve/provider"
)

// Param is one observed marker parameter, pinned to the value it had in
// the environment the resolution was computed against.
type Param struct {
	Name  string
	Value string
}

// Tree is a conjunction of Params, read as "every Param equals the value
// it was observed at". An empty Tree is vacuously true.
type Tree struct {
	Params []Param
}

func (t Tree) String() string {
	if len(t.Params) == 0 {
		return ""
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = fmt.Sprintf("%s == %q", p.Name, p.Value)
	}
	return strings.Join(parts, " and ")
}

// metadataFetcher is the subset of provider.Provider Project needs.
type metadataFetcher interface {
	Metadata(ctx context.Context, vk resolve.VersionKey) (resolve.MetadataResult, error)
}

// Project collects every marker parameter referenced by a direct
// requirement or editable in manifest, or by the requires-dist of any
// node in g (restricted to the extras g actually enabled), and pins each
// one to its value in env.
func Project(ctx context.Context, g *graph.ResolutionGraph, manifest resolve.Manifest, fetch metadataFetcher, env resolve.InterpreterMarkers) (Tree, error) {
	var raws []string
	for _, reqs := range [][]resolve.Requirement{manifest.Requirements, manifest.Editables} {
		for _, r := range reqs {
			if r.Marker != "" {
				raws = append(raws, r.Marker)
			}
		}
	}

	for _, n := range g.Nodes {
		vk := resolve.VersionKey{
			PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: n.ID.Name},
			Version:    n.Version.Version,
		}
		res, err := fetch.Metadata(ctx, vk)
		if err != nil {
			return Tree{}, err
		}
		if !res.Found {
			continue
		}
		raws = append(raws, rawMarkersOf(res.Archive.Requires)...)
		for _, extra := range n.Extras {
			raws = append(raws, rawMarkersOf(res.Archive.Extras[extra])...)
		}
	}

	return collect(raws, env)
}

func rawMarkersOf(reqs []resolve.RequirementVersion) []string {
	var out []string
	for _, rv := range reqs {
		if raw, ok := rv.Type.GetAttr(dep.Environment); ok && raw != "" {
			out = append(out, raw)
		}
	}
	return out
}

func collect(raws []string, env resolve.InterpreterMarkers) (Tree, error) {
	seen := make(map[string]bool)
	var order []string
	for _, raw := range raws {
		m, err := provider.ParseMarker(raw)
		if err != nil {
			return Tree{}, fmt.Errorf("marker: parsing %q: %w", raw, err)
		}
		collectVars(m, seen, &order)
	}
	sort.Strings(order)

	t := Tree{}
	for _, name := range order {
		value, _ := env.Get(name)
		t.Params = append(t.Params, Param{Name: name, Value: value})
	}
	return t, nil
}

// collectVars walks a parsed marker's AST, recording every named,
// non-extra variable it references. Quoted-string operands have no
// Name and are skipped automatically; extra is excluded explicitly,
// since it names a solver decision, not an environment fact.
func collectVars(m provider.Marker, seen map[string]bool, order *[]string) {
	switch v := m.(type) {
	case provider.And:
		collectVars(v.Left, seen, order)
		collectVars(v.Right, seen, order)
	case provider.Or:
		collectVars(v.Left, seen, order)
		collectVars(v.Right, seen, order)
	case provider.Expr:
		addVar(v.Left, seen, order)
		addVar(v.Right, seen, order)
	}
}

func addVar(v provider.Var, seen map[string]bool, order *[]string) {
	if v.Name == "" || v.Name == "extra" || seen[v.Name] {
		return
	}
	seen[v.Name] = true
	*order = append(*order, v.Name)
}
