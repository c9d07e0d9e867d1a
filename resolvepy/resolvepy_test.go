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

package resolvepy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pkgsolve/resolve"
	"github.com/pkgsolve/resolve/graph"
	"github.com/pkgsolve/resolve/pep440"
	"github.com/pkgsolve/resolve/solver"
)

func mustVersion(t *testing.T, name, v string) resolve.Version {
	t.Helper()
	pv, err := pep440.Parse(v)
	if err != nil {
		t.Fatalf("Parse(%q): %v", v, err)
	}
	return resolve.Version{VersionKey: resolve.VersionKey{
		PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: resolve.PackageName(name)},
		Version:    pv,
	}}
}

func mustRange(t *testing.T, s string) pep440.Range {
	t.Helper()
	r, err := pep440.ParseSpecifierSet(s)
	if err != nil {
		t.Fatalf("ParseSpecifierSet(%q): %v", s, err)
	}
	return r
}

func dependency(t *testing.T, name, rangeSpec string) resolve.RequirementVersion {
	t.Helper()
	return resolve.RequirementVersion{
		PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: resolve.PackageName(name)},
		Constraint: mustRange(t, rangeSpec),
	}
}

func requirement(t *testing.T, name, rangeSpec string) resolve.Requirement {
	t.Helper()
	return resolve.Requirement{Name: resolve.PackageName(name), Constraint: mustRange(t, rangeSpec)}
}

func nodeVersion(t *testing.T, g *graph.ResolutionGraph, name string) string {
	t.Helper()
	n, ok := g.NodeByID(graph.NodeID{Name: resolve.PackageName(name)})
	if !ok {
		t.Fatalf("no node %s in graph; nodes: %+v", name, g.Nodes)
	}
	return n.Version.Version.String()
}

func hasEdge(g *graph.ResolutionGraph, from, to string) bool {
	for _, e := range g.Edges {
		if string(e.From.Name) == from && string(e.To.Name) == to {
			return true
		}
	}
	return false
}

func TestS1SimpleChain(t *testing.T) {
	lc := resolve.NewLocalClient()
	lc.AddVersion(mustVersion(t, "flask", "2.0.0"), []resolve.RequirementVersion{
		dependency(t, "werkzeug", ">=2,<3"),
		dependency(t, "jinja2", ">=3,<4"),
	}, nil)
	lc.AddVersion(mustVersion(t, "werkzeug", "2.0.0"), nil, nil)
	lc.AddVersion(mustVersion(t, "werkzeug", "2.3.7"), nil, nil)
	lc.AddVersion(mustVersion(t, "jinja2", "3.0.0"), nil, nil)
	lc.AddVersion(mustVersion(t, "jinja2", "3.1.2"), nil, nil)

	manifest := resolve.Manifest{Requirements: []resolve.Requirement{requirement(t, "flask", "==2.0.0")}}
	res, err := Resolve(context.Background(), manifest, lc, lc, resolve.InterpreterMarkers{}, solver.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if v := nodeVersion(t, res.Graph, "werkzeug"); v != "2.3.7" {
		t.Errorf("werkzeug = %s, want 2.3.7", v)
	}
	if v := nodeVersion(t, res.Graph, "jinja2"); v != "3.1.2" {
		t.Errorf("jinja2 = %s, want 3.1.2", v)
	}
	if !hasEdge(res.Graph, "flask", "werkzeug") || !hasEdge(res.Graph, "flask", "jinja2") {
		t.Errorf("missing expected edges: %+v", res.Graph.Edges)
	}
}

func TestS2DirectConstraintNarrowsChoice(t *testing.T) {
	lc := resolve.NewLocalClient()
	lc.AddVersion(mustVersion(t, "requests", "2.31.0"), []resolve.RequirementVersion{
		dependency(t, "urllib3", ">=1.21,<3"),
	}, nil)
	lc.AddVersion(mustVersion(t, "urllib3", "1.26.18"), nil, nil)
	lc.AddVersion(mustVersion(t, "urllib3", "2.1.0"), nil, nil)

	manifest := resolve.Manifest{Requirements: []resolve.Requirement{
		requirement(t, "requests", ""),
		requirement(t, "urllib3", "<2"),
	}}

	res, err := Resolve(context.Background(), manifest, lc, lc, resolve.InterpreterMarkers{}, solver.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v := nodeVersion(t, res.Graph, "urllib3"); v != "1.26.18" {
		t.Errorf("urllib3 = %s, want 1.26.18", v)
	}
	if v := nodeVersion(t, res.Graph, "requests"); v != "2.31.0" {
		t.Errorf("requests = %s, want 2.31.0", v)
	}
}

func TestS3UnnamedDirectoryRequirement(t *testing.T) {
	dir := t.TempDir()
	pyproject := "[project]\nname = \"demo\"\ndependencies = [\"click\"]\n"
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(pyproject), 0o644); err != nil {
		t.Fatalf("writing pyproject.toml: %v", err)
	}

	urlVersion, err := pep440.Parse("0")
	if err != nil {
		t.Fatal(err)
	}
	demoVK := resolve.VersionKey{PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: "demo"}, Version: urlVersion}

	lc := resolve.NewLocalClient()
	lc.AddVersion(resolve.Version{VersionKey: demoVK}, []resolve.RequirementVersion{dependency(t, "click", "")}, nil)
	lc.AddVersion(mustVersion(t, "click", "8.1.7"), nil, nil)

	manifest := resolve.Manifest{Requirements: []resolve.Requirement{{URL: dir}}}
	res, err := Resolve(context.Background(), manifest, lc, lc, resolve.InterpreterMarkers{}, solver.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	demo, ok := res.Graph.NodeByID(graph.NodeID{Name: "demo", URL: dir})
	if !ok {
		t.Fatalf("no demo node in graph: %+v", res.Graph.Nodes)
	}
	if demo.Source != graph.URLSource {
		t.Errorf("demo.Source = %s, want url", demo.Source)
	}
	if len(demo.Hashes) != 0 {
		t.Errorf("demo.Hashes = %+v, want none", demo.Hashes)
	}
	if !hasEdge(res.Graph, "demo", "click") {
		t.Errorf("missing demo -> click edge: %+v", res.Graph.Edges)
	}
}

func TestS4ExtraPullsItsOwnDependency(t *testing.T) {
	lc := resolve.NewLocalClient()
	lc.AddVersion(mustVersion(t, "pkg-a", "1.0"),
		nil,
		map[resolve.Extra][]resolve.RequirementVersion{
			"cli": {dependency(t, "rich", ">=10")},
			"dev": {dependency(t, "pytest", "")},
		})
	lc.AddVersion(mustVersion(t, "rich", "10.0.0"), nil, nil)
	lc.AddVersion(mustVersion(t, "pytest", "7.0.0"), nil, nil)

	req := requirement(t, "pkg-a", "==1.0")
	req.Extras = []resolve.Extra{"cli"}
	manifest := resolve.Manifest{Requirements: []resolve.Requirement{req}}

	res, err := Resolve(context.Background(), manifest, lc, lc, resolve.InterpreterMarkers{}, solver.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	a, ok := res.Graph.NodeByID(graph.NodeID{Name: "pkg-a"})
	if !ok {
		t.Fatalf("no pkg-a node")
	}
	if diff := cmp.Diff([]resolve.Extra{"cli"}, a.Extras); diff != "" {
		t.Errorf("pkg-a.Extras mismatch (-want +got):\n%s", diff)
	}
	if !hasEdge(res.Graph, "pkg-a", "rich") {
		t.Errorf("missing pkg-a -> rich edge")
	}
	if _, ok := res.Graph.NodeByID(graph.NodeID{Name: "pytest"}); ok {
		t.Errorf("pytest should not be in the graph (dev extra not requested)")
	}
}

func TestS5MissingExtraIsNonFatalDiagnostic(t *testing.T) {
	lc := resolve.NewLocalClient()
	lc.AddVersion(mustVersion(t, "pkg-a", "1.0"), nil, nil)

	req := requirement(t, "pkg-a", "==1.0")
	req.Extras = []resolve.Extra{"missing"}
	manifest := resolve.Manifest{Requirements: []resolve.Requirement{req}}

	res, err := Resolve(context.Background(), manifest, lc, lc, resolve.InterpreterMarkers{}, solver.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := res.Graph.NodeByID(graph.NodeID{Name: "pkg-a"}); !ok {
		t.Fatalf("pkg-a missing from graph despite non-fatal diagnostic")
	}
	if len(res.Graph.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(res.Graph.Diagnostics), res.Graph.Diagnostics)
	}
	d := res.Graph.Diagnostics[0]
	if d.Dist != "pkg-a" || d.Extra != "missing" {
		t.Errorf("diagnostic = %+v, want {pkg-a missing}", d)
	}
}

func TestS7URLRequirementUsesBuiltArchiveDependencies(t *testing.T) {
	sourceURL := "https://example.com/mypkg/archive"

	lc := resolve.NewLocalClient()
	lc.AddBuildableArchive(sourceURL, resolve.Archive{
		Name:     "demo-built",
		Requires: []resolve.RequirementVersion{dependency(t, "click", "")},
	})
	lc.AddVersion(mustVersion(t, "click", "8.1.7"), nil, nil)

	manifest := resolve.Manifest{Requirements: []resolve.Requirement{{URL: sourceURL}}}
	res, err := Resolve(context.Background(), manifest, lc, lc, resolve.InterpreterMarkers{}, solver.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	built, ok := res.Graph.NodeByID(graph.NodeID{Name: "demo-built", URL: sourceURL})
	if !ok {
		t.Fatalf("no demo-built node in graph: %+v", res.Graph.Nodes)
	}
	if built.Source != graph.URLSource {
		t.Errorf("demo-built.Source = %s, want url", built.Source)
	}
	if !hasEdge(res.Graph, "demo-built", "click") {
		t.Errorf("missing demo-built -> click edge (dependencies from the on-demand build were discarded): %+v", res.Graph.Edges)
	}
	if _, ok := res.Graph.NodeByID(graph.NodeID{Name: "click"}); !ok {
		t.Errorf("click missing from graph entirely")
	}
}

func TestS6DisjointConstraintsYieldNoSolution(t *testing.T) {
	lc := resolve.NewLocalClient()
	lc.AddVersion(mustVersion(t, "x", "1.0.0"), []resolve.RequirementVersion{dependency(t, "z", "<2")}, nil)
	lc.AddVersion(mustVersion(t, "y", "1.0.0"), []resolve.RequirementVersion{dependency(t, "z", ">=2")}, nil)
	lc.AddVersion(mustVersion(t, "z", "1.0.0"), nil, nil)
	lc.AddVersion(mustVersion(t, "z", "2.0.0"), nil, nil)

	manifest := resolve.Manifest{Requirements: []resolve.Requirement{
		requirement(t, "x", ">=1"),
		requirement(t, "y", ""),
	}}

	_, err := Resolve(context.Background(), manifest, lc, lc, resolve.InterpreterMarkers{}, solver.Options{})
	if err == nil {
		t.Fatal("Resolve succeeded, want NoSolution")
	}
	var noSol *solver.NoSolution
	if !asNoSolution(err, &noSol) {
		t.Fatalf("err = %v (%T), want *solver.NoSolution", err, err)
	}
	msg := noSol.Error()
	for _, want := range []string{"x", "y", "z"} {
		if !contains(msg, want) {
			t.Errorf("derivation message %q does not mention %q", msg, want)
		}
	}
}

func asNoSolution(err error, target **solver.NoSolution) bool {
	ns, ok := err.(*solver.NoSolution)
	if !ok {
		return false
	}
	*target = ns
	return true
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
