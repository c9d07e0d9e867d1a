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
Package graph assembles a solver.Solution into a ResolutionGraph: a
directed graph of concrete distributions with hashes, enabled extras and
dependency edges, ready for projection into a lock file or a marker
tree.
*/
package graph

import (
	"context"
	"sort"

	"github.com/pkgsolve/resolve"
	"github.com/pkgsolve/resolve/pep440"
	"github.com/pkgsolve/resolve/solver"
	"github.com/pkgsolve/resolve/version"
)

// NodeID identifies a ResolutionGraph node: a package name, qualified by
// URL for a direct-source distribution. Extra groups never get a NodeID
// of their own — an extra's dependencies attach to the same NodeID as
// its base package, and the extra name itself is recorded in the node's
// Extras list.
type NodeID struct {
	Name resolve.PackageName
	URL  string
}

// Source distinguishes how a node's distribution was obtained.
type Source int

const (
	Registry Source = iota
	URLSource
	EditableSource
)

func (s Source) String() string {
	switch s {
	case URLSource:
		return "url"
	case EditableSource:
		return "editable"
	default:
		return "registry"
	}
}

// Node is one resolved distribution in the graph.
type Node struct {
	ID      NodeID
	Version resolve.Version
	Source  Source
	Hashes  []resolve.HashDigest
	Extras  []resolve.Extra
}

// Edge is a directed dependency from one node to another, carrying the
// range the source distribution's metadata declared for the edge.
type Edge struct {
	From, To NodeID
	Range    pep440.Range
}

// ResolutionGraph is the output of Assemble: nodes in the order they were
// first visited, edges with duplicates resolved last-write-wins, and any
// diagnostics gathered along the way.
type ResolutionGraph struct {
	Nodes       []Node
	Edges       []Edge
	Diagnostics []resolve.MissingExtra

	nodeIndex map[NodeID]int
	edgeIndex map[[2]NodeID]int
}

// NodeByID returns the node for id, if one was assembled.
func (g *ResolutionGraph) NodeByID(id NodeID) (Node, bool) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// metadataFetcher is the subset of provider.Provider Assemble needs: a
// cached metadata lookup, so the Graph Assembler reuses whatever the
// solver already fetched instead of hitting the registry again.
type metadataFetcher interface {
	Metadata(ctx context.Context, vk resolve.VersionKey) (resolve.MetadataResult, error)
}

func nodeID(pkg solver.Package) NodeID { return NodeID{Name: pkg.Name, URL: pkg.URL} }

// Assemble builds a ResolutionGraph from a solver.Solution. preferences
// supplies hash lists carried over from a prior lock, keyed by normalized
// package name, taking priority over hashes freshly read from metadata.
func Assemble(ctx context.Context, sol *solver.Solution, fetch metadataFetcher, preferences map[resolve.PackageName][]resolve.HashDigest) (*ResolutionGraph, error) {
	g := &ResolutionGraph{
		nodeIndex: make(map[NodeID]int),
		edgeIndex: make(map[[2]NodeID]int),
	}

	var order []solver.Package
	for pkg := range sol.Versions {
		order = append(order, pkg)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })

	for _, pkg := range order {
		v := sol.Versions[pkg]
		switch pkg.Kind {
		case solver.ExtraKind:
			if err := g.addExtra(ctx, pkg, v, fetch); err != nil {
				return nil, err
			}
		default:
			if err := g.addNode(ctx, pkg, v, preferences, fetch); err != nil {
				return nil, err
			}
		}
	}

	for _, ic := range sol.Incompatibilities {
		g.addEdge(ic, sol)
	}

	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From.String() < g.Edges[j].From.String()
		}
		return g.Edges[i].To.String() < g.Edges[j].To.String()
	})
	return g, nil
}

func (id NodeID) String() string {
	if id.URL == "" {
		return string(id.Name)
	}
	return string(id.Name) + "@" + id.URL
}

func (g *ResolutionGraph) addNode(ctx context.Context, pkg solver.Package, v resolve.Version, preferences map[resolve.PackageName][]resolve.HashDigest, fetch metadataFetcher) error {
	id := nodeID(pkg)
	if _, exists := g.nodeIndex[id]; exists {
		return nil
	}

	source := Registry
	switch {
	case v.HasAttr(version.Editable):
		source = EditableSource
	case v.HasAttr(version.Local), pkg.URL != "":
		source = URLSource
	}

	vk := resolve.VersionKey{PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: pkg.Name}, Version: v.Version}
	var archiveHashes []resolve.HashDigest
	if res, err := fetch.Metadata(ctx, vk); err != nil {
		return err
	} else if res.Found {
		archiveHashes = res.Archive.Hashes
	}

	hashes := preferences[pkg.Name]
	if len(hashes) == 0 {
		hashes = append([]resolve.HashDigest(nil), archiveHashes...)
	}
	sort.Slice(hashes, func(i, j int) bool {
		if hashes[i].Algorithm != hashes[j].Algorithm {
			return hashes[i].Algorithm < hashes[j].Algorithm
		}
		return hashes[i].Hex < hashes[j].Hex
	})

	g.nodeIndex[id] = len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{ID: id, Version: v, Source: source, Hashes: hashes})
	return nil
}

// addExtra validates the extra against the base distribution's metadata
// and, if it checks out, records it on the base node instead of adding a
// node of its own.
func (g *ResolutionGraph) addExtra(ctx context.Context, pkg solver.Package, v resolve.Version, fetch metadataFetcher) error {
	id := nodeID(pkg)
	i, ok := g.nodeIndex[id]
	if !ok {
		// The base node hasn't been visited yet in iteration order; add
		// it as a bare placeholder, to be filled in when its own
		// (BaseKind, v) entry is processed. Node identity, not ordering,
		// is what Assemble guarantees.
		g.nodeIndex[id] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{ID: id, Version: v})
		i = g.nodeIndex[id]
	}

	vk := resolve.VersionKey{PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: pkg.Name}, Version: v.Version}
	res, err := fetch.Metadata(ctx, vk)
	if err != nil {
		return err
	}
	if !res.Found {
		return nil
	}
	if _, declared := res.Archive.Extras[pkg.Extra]; !declared {
		g.Diagnostics = append(g.Diagnostics, resolve.MissingExtra{Dist: pkg.Name, Extra: pkg.Extra})
		return nil
	}
	g.Nodes[i].Extras = append(g.Nodes[i].Extras, pkg.Extra)
	return nil
}

// addEdge reads a single DependencyCause incompatibility and, if it
// actually participated in the final selection, adds or overwrites the
// edge it represents. Incompatibilities the solver built while trying a
// branch it later backtracked off of are silently skipped: their
// Dependent never ends up assigned DependentVersion in sol.Versions.
func (g *ResolutionGraph) addEdge(ic *solver.Incompatibility, sol *solver.Solution) {
	cause, ok := ic.Cause.(solver.DependencyCause)
	if !ok || len(ic.Terms) != 2 {
		return
	}
	actual, ok := sol.Versions[cause.Dependent]
	if !ok || !actual.Equal(cause.DependentVersion) {
		return
	}

	var depTerm solver.Term
	for _, t := range ic.Terms {
		if t.Package != cause.Dependent {
			depTerm = t
		}
	}

	from, to := nodeID(cause.Dependent), nodeID(depTerm.Package)
	if from == to {
		return // extra-group self-edge
	}

	key := [2]NodeID{from, to}
	edge := Edge{From: from, To: to, Range: depTerm.Range}
	if i, exists := g.edgeIndex[key]; exists {
		g.Edges[i] = edge
		return
	}
	g.edgeIndex[key] = len(g.Edges)
	g.Edges = append(g.Edges, edge)
}
