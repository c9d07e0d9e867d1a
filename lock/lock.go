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
Package lock projects a ResolutionGraph into a Lock: an ordered,
serializable record of every distribution a resolution selected, with
enough detail (source, hashes, dependency references) to reuse as the
Preferences of a later resolve without re-querying any provider.
*/
package lock

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkgsolve/resolve"
	"github.com/pkgsolve/resolve/graph"
)

// HashEntry is one algorithm/digest pair, carried through unchanged from
// the graph node it came from.
type HashEntry struct {
	Algorithm string `yaml:"algorithm" json:"algorithm"`
	Hex       string `yaml:"hex" json:"hex"`
}

// DependencyRef names an edge target: a package name, disambiguated by
// URL when the target was a direct-source distribution rather than a
// registry one.
type DependencyRef struct {
	Name resolve.PackageName `yaml:"name" json:"name"`
	URL  string               `yaml:"url,omitempty" json:"url,omitempty"`
}

// Distribution is one locked node: everything needed to reinstall it
// without resolving again.
type Distribution struct {
	Name         resolve.PackageName `yaml:"name" json:"name"`
	URL          string               `yaml:"url,omitempty" json:"url,omitempty"`
	Version      string               `yaml:"version" json:"version"`
	Source       string               `yaml:"source" json:"source"`
	Hashes       []HashEntry          `yaml:"hashes,omitempty" json:"hashes,omitempty"`
	Extras       []resolve.Extra      `yaml:"extras,omitempty" json:"extras,omitempty"`
	Dependencies []DependencyRef      `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// Lock is the canonical interchange form of a resolution: an ordered
// list of Distributions, suitable for round-tripping through YAML or
// JSON and feeding back in as Preferences.
type Lock struct {
	Distributions []Distribution `yaml:"distributions" json:"distributions"`
}

// CycleError reports that the graph contains a dependency cycle, which
// Lock Projection refuses to flatten into a list.
type CycleError struct {
	Path []graph.NodeID
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Path))
	for i, id := range e.Path {
		names[i] = id.String()
	}
	return fmt.Sprintf("lock: dependency cycle: %s", strings.Join(names, " -> "))
}

// Project walks g in node insertion order and emits the corresponding
// Lock. It fails with a *CycleError if g contains a cycle; the graph
// itself is permitted to contain one, but a Lock, being a flat list, is
// not.
func Project(g *graph.ResolutionGraph) (*Lock, error) {
	if cyc := findCycle(g); cyc != nil {
		return nil, &CycleError{Path: cyc}
	}

	edgesFrom := make(map[graph.NodeID][]graph.Edge, len(g.Nodes))
	for _, e := range g.Edges {
		edgesFrom[e.From] = append(edgesFrom[e.From], e)
	}

	l := &Lock{Distributions: make([]Distribution, 0, len(g.Nodes))}
	for _, n := range g.Nodes {
		l.Distributions = append(l.Distributions, Distribution{
			Name:         n.ID.Name,
			URL:          n.ID.URL,
			Version:      n.Version.Version.String(),
			Source:       n.Source.String(),
			Hashes:       hashEntries(n.Hashes),
			Extras:       append([]resolve.Extra(nil), n.Extras...),
			Dependencies: dependencyRefs(edgesFrom[n.ID]),
		})
	}
	return l, nil
}

func hashEntries(hs []resolve.HashDigest) []HashEntry {
	if len(hs) == 0 {
		return nil
	}
	out := make([]HashEntry, len(hs))
	for i, h := range hs {
		out[i] = HashEntry{Algorithm: h.Algorithm, Hex: h.Hex}
	}
	return out
}

func dependencyRefs(edges []graph.Edge) []DependencyRef {
	if len(edges) == 0 {
		return nil
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].To.String() < edges[j].To.String() })
	out := make([]DependencyRef, len(edges))
	for i, e := range edges {
		out[i] = DependencyRef{Name: e.To.Name, URL: e.To.URL}
	}
	return out
}

// findCycle runs a recursive depth-first search over g, returning the
// path of a cycle if one exists (root first), or nil if the graph is
// acyclic.
func findCycle(g *graph.ResolutionGraph) []graph.NodeID {
	adj := make(map[graph.NodeID][]graph.NodeID, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[graph.NodeID]int, len(g.Nodes))
	var stack []graph.NodeID

	var visit func(id graph.NodeID) []graph.NodeID
	visit = func(id graph.NodeID) []graph.NodeID {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				return append(append([]graph.NodeID(nil), stack[start:]...), next)
			case white:
				if cyc := visit(next); cyc != nil {
					return cyc
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, n := range g.Nodes {
		if color[n.ID] == white {
			if cyc := visit(n.ID); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}
