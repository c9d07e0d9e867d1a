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
Package provider adapts a VersionsProvider/MetadataProvider pair and a
Manifest's side tables (preferences, editables, overrides, constraints)
into the solver.Provider capability surface: choose a version for a
package, and list a chosen version's dependencies.
*/
package provider

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/pkgsolve/resolve"
	"github.com/pkgsolve/resolve/dep"
	"github.com/pkgsolve/resolve/nameinfer"
	"github.com/pkgsolve/resolve/pep440"
	"github.com/pkgsolve/resolve/solver"
	"github.com/pkgsolve/resolve/version"
)

// urlVersion is the sentinel Version every URL-pinned or editable package
// carries: there is exactly one candidate for such a package, identified
// by its URL or local path rather than by ordering, so the version number
// itself plays no role beyond satisfying the resolve.Version shape.
var urlVersion = func() pep440.Version {
	v, err := pep440.Parse("0")
	if err != nil {
		panic(err)
	}
	return v
}()

// Provider implements solver.Provider.
type Provider struct {
	versions resolve.VersionsProvider
	metadata resolve.MetadataProvider
	env      resolve.InterpreterMarkers
	manifest resolve.Manifest

	preferences map[resolve.PackageName]pep440.Version
	editables   map[resolve.PackageName]resolve.Requirement
	overrides   map[resolve.PackageName]resolve.Requirement
	constraints map[resolve.PackageName][]resolve.Requirement

	markers  *Index[string, Marker]
	archives *Index[resolve.VersionKey, resolve.MetadataResult]

	// builtArchives holds, keyed by nameinfer.VersionIDFromURL, the
	// Archives the Name Inferer already paid to build on demand while
	// naming URL-sourced requirements. GetDependencies consults this
	// before falling through to Metadata so that build is never repeated.
	builtArchives map[string]resolve.Archive
}

// New builds a Provider over the given collaborators and Manifest. env is
// the interpreter marker environment every PEP 508 marker is evaluated
// against for the whole resolve call. builtArchives is the set of
// metadata builds the Name Inferer already performed while naming
// unnamed requirements (see nameinfer.ResolveNames); nil is fine when the
// caller named everything without an on-demand build.
func New(versions resolve.VersionsProvider, metadata resolve.MetadataProvider, env resolve.InterpreterMarkers, manifest resolve.Manifest, builtArchives map[string]resolve.Archive) *Provider {
	p := &Provider{
		versions:      versions,
		metadata:      metadata,
		env:           env,
		manifest:      manifest,
		preferences:   make(map[resolve.PackageName]pep440.Version),
		editables:     make(map[resolve.PackageName]resolve.Requirement),
		overrides:     make(map[resolve.PackageName]resolve.Requirement),
		constraints:   make(map[resolve.PackageName][]resolve.Requirement),
		markers:       NewIndex[string, Marker](),
		archives:      NewIndex[resolve.VersionKey, resolve.MetadataResult](),
		builtArchives: builtArchives,
	}
	for _, pref := range manifest.Preferences {
		p.preferences[resolve.NormalizePackageName(string(pref.Name))] = pref.Version
	}
	for _, e := range manifest.Editables {
		p.editables[resolve.NormalizePackageName(string(e.Name))] = e
	}
	for _, o := range manifest.Overrides {
		p.overrides[resolve.NormalizePackageName(string(o.Name))] = o
	}
	for _, c := range manifest.Constraints {
		name := resolve.NormalizePackageName(string(c.Name))
		p.constraints[name] = append(p.constraints[name], c)
	}
	return p
}

// Metadata fetches and caches a distribution's metadata. It is exported so
// the Graph Assembler can reuse the same compute-once cache this Provider
// built up while the solver ran, instead of re-fetching.
func (p *Provider) Metadata(ctx context.Context, vk resolve.VersionKey) (resolve.MetadataResult, error) {
	return p.archives.GetOrCompute(vk, func() (resolve.MetadataResult, error) {
		return p.metadata.MetadataOf(ctx, vk)
	})
}

// ChooseVersion implements solver.Provider.
func (p *Provider) ChooseVersion(ctx context.Context, pkg solver.Package, allowed pep440.Range) (resolve.Version, bool, error) {
	switch {
	case pkg.Kind == solver.RootKind:
		return resolve.Version{}, false, errors.New("provider: the root package has no version")
	case pkg.URL != "":
		return p.chooseURLVersion(pkg), true, nil
	default:
		if req, ok := p.editables[pkg.Name]; ok {
			return p.chooseEditableVersion(pkg, req), true, nil
		}
		return p.chooseRegistryVersion(ctx, pkg, allowed)
	}
}

func (p *Provider) chooseURLVersion(pkg solver.Package) resolve.Version {
	var attrs version.AttrSet
	attrs.SetAttr(version.Local, pkg.URL)
	return resolve.Version{
		VersionKey: resolve.VersionKey{
			PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: pkg.Name},
			Version:    urlVersion,
		},
		AttrSet: attrs,
	}
}

func (p *Provider) chooseEditableVersion(pkg solver.Package, req resolve.Requirement) resolve.Version {
	var attrs version.AttrSet
	attrs.SetAttr(version.Editable, req.URL)
	return resolve.Version{
		VersionKey: resolve.VersionKey{
			PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: pkg.Name},
			Version:    urlVersion,
		},
		AttrSet: attrs,
	}
}

// chooseRegistryVersion implements the preference order from the
// Dependency Provider contract: a preference in range, else the newest
// non-pre-release, else the newest pre-release if nothing else qualifies.
//
// Environment-marker filtering is deliberately not repeated here: a
// candidate only reaches ChooseVersion because some already-accepted
// Dependency edge named it, and GetDependencies discarded any edge whose
// marker did not hold before the solver ever saw it. Re-checking a marker
// against a package with no marker of its own would be a no-op.
func (p *Provider) chooseRegistryVersion(ctx context.Context, pkg solver.Package, allowed pep440.Range) (resolve.Version, bool, error) {
	result, err := p.versions.VersionsOf(ctx, pkg.Name)
	if err != nil {
		return resolve.Version{}, false, err
	}
	if !result.Found {
		return resolve.Version{}, false, nil
	}

	pref, hasPref := p.preferences[pkg.Name]

	var nonPre, pre []resolve.Version
	for _, v := range result.Versions {
		if !p.admissible(v, allowed) {
			continue
		}
		ok, err := p.pythonCompatible(ctx, v.VersionKey)
		if err != nil {
			return resolve.Version{}, false, err
		}
		if !ok {
			continue
		}
		if hasPref && v.Version.Equal(pref) {
			return v, true, nil
		}
		if isPrerelease(v) {
			if p.manifest.AllowPrerelease || allowed.Contains(v.Version, false) {
				pre = append(pre, v)
			}
			continue
		}
		nonPre = append(nonPre, v)
	}

	if best, ok := newest(nonPre); ok {
		return best, true, nil
	}
	if best, ok := newest(pre); ok {
		return best, true, nil
	}
	return resolve.Version{}, false, nil
}

func isPrerelease(v resolve.Version) bool {
	return v.Version.IsPrerelease() || v.HasAttr(version.PreRelease)
}

func newest(vs []resolve.Version) (resolve.Version, bool) {
	if len(vs) == 0 {
		return resolve.Version{}, false
	}
	best := vs[0]
	for _, v := range vs[1:] {
		if v.Version.Compare(best.Version) > 0 {
			best = v
		}
	}
	return best, true
}

// admissible applies the yanked-status and exclude-newer-cutoff filters,
// then the caller-supplied range. A yanked version is only admissible if
// it is pinned exactly by a preference, per PEP 592.
func (p *Provider) admissible(v resolve.Version, allowed pep440.Range) bool {
	if v.HasAttr(version.Yanked) {
		pref, ok := p.preferences[v.Name]
		if !ok || !pref.Equal(v.Version) {
			return false
		}
	}
	if p.manifest.ExcludeNewer != 0 {
		if raw, ok := v.GetAttr(version.UploadTime); ok {
			if ts, err := strconv.ParseInt(raw, 10, 64); err == nil && ts > p.manifest.ExcludeNewer {
				return false
			}
		}
	}
	return allowed.Contains(v.Version, true)
}

// pythonCompatible checks a candidate's RequiresPython declaration against
// the environment's python_version, when both are known.
func (p *Provider) pythonCompatible(ctx context.Context, vk resolve.VersionKey) (bool, error) {
	pyRaw, ok := p.env.Get("python_version")
	if !ok {
		return true, nil
	}
	py, err := pep440.Parse(pyRaw)
	if err != nil {
		return true, nil
	}
	res, err := p.Metadata(ctx, vk)
	if err != nil {
		return false, err
	}
	if !res.Found {
		return true, nil
	}
	return res.Archive.RequiresPython.Contains(py, true), nil
}

// GetDependencies implements solver.Provider.
func (p *Provider) GetDependencies(ctx context.Context, pkg solver.Package, v resolve.Version) ([]solver.Dependency, error) {
	switch pkg.Kind {
	case solver.RootKind:
		return p.rootDependencies()
	case solver.ExtraKind:
		return p.extraDependencies(ctx, pkg, v)
	default:
		if pkg.URL != "" {
			if archive, ok := p.builtArchives[nameinfer.VersionIDFromURL(pkg.URL)]; ok {
				return p.filterRequirements(archive.Requires, nil)
			}
		}
		vk := resolve.VersionKey{PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: pkg.Name}, Version: v.Version}
		res, err := p.Metadata(ctx, vk)
		if err != nil {
			return nil, err
		}
		if !res.Found {
			return nil, nil
		}
		return p.filterRequirements(res.Archive.Requires, nil)
	}
}

func (p *Provider) rootDependencies() ([]solver.Dependency, error) {
	var deps []solver.Dependency
	for _, reqs := range [][]resolve.Requirement{p.manifest.Requirements, p.manifest.Editables} {
		for _, req := range reqs {
			ok, err := p.markerHolds(req.Marker, nil)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			deps = append(deps, p.dependenciesForRequirement(req)...)
		}
	}
	return deps, nil
}

// dependenciesForRequirement expands a single Requirement into its base
// package edge plus one extra-group edge per requested extra.
func (p *Provider) dependenciesForRequirement(req resolve.Requirement) []solver.Dependency {
	name := resolve.NormalizePackageName(string(req.Name))
	constraint := p.effectiveConstraint(name, req.Constraint)

	base := solver.Package{Kind: solver.BaseKind, Name: name, URL: req.URL}
	deps := []solver.Dependency{{Package: base, Constraint: constraint}}
	for _, extra := range req.Extras {
		deps = append(deps, solver.Dependency{
			Package:    solver.Package{Kind: solver.ExtraKind, Name: name, Extra: extra, URL: req.URL},
			Constraint: constraint,
		})
	}
	return deps
}

// effectiveConstraint applies the Manifest's override and constraint
// tables: an override replaces a requirement's own range outright, a
// constraint further narrows whatever range is in force.
func (p *Provider) effectiveConstraint(name resolve.PackageName, want pep440.Range) pep440.Range {
	if o, ok := p.overrides[name]; ok {
		want = o.Constraint
	}
	for _, c := range p.constraints[name] {
		want = want.Intersect(c.Constraint)
	}
	return want
}

// extraDependencies fetches the base package's metadata and filters its
// Extras table down to pkg's own extra group, then injects the self-edge
// tying the extra group to its base package at the same version (the
// extra group and its base are always assigned the same version; see
// solver.Package's ExtraKind doc).
func (p *Provider) extraDependencies(ctx context.Context, pkg solver.Package, v resolve.Version) ([]solver.Dependency, error) {
	vk := resolve.VersionKey{PackageKey: resolve.PackageKey{System: resolve.PyPI, Name: pkg.Name}, Version: v.Version}
	res, err := p.Metadata(ctx, vk)
	if err != nil {
		return nil, err
	}
	var deps []solver.Dependency
	if res.Found {
		extras := map[resolve.Extra]bool{pkg.Extra: true}
		requires := res.Archive.Extras[pkg.Extra]
		filtered, err := p.filterRequirements(requires, extras)
		if err != nil {
			return nil, err
		}
		deps = filtered
	}
	deps = append(deps, solver.Dependency{
		Package:    pkg.Base(),
		Constraint: pep440.Exactly(v.Version),
	})
	return deps, nil
}

// filterRequirements evaluates each edge's marker against the environment
// (with extras enabled for the package the requirements were fetched on
// behalf of) and converts the surviving edges into solver.Dependency,
// routing extra-gated requirements to their ExtraKind package.
func (p *Provider) filterRequirements(reqs []resolve.RequirementVersion, extras map[resolve.Extra]bool) ([]solver.Dependency, error) {
	var deps []solver.Dependency
	for _, rv := range reqs {
		raw, _ := rv.Type.GetAttr(dep.Environment)
		ok, err := p.markerHolds(raw, extras)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		name := rv.Name
		constraint := p.effectiveConstraint(name, rv.Constraint)
		pkg := solver.Package{Kind: solver.BaseKind, Name: name}
		if extraName, ok := rv.Type.GetAttr(dep.Extra); ok && extraName != "" {
			pkg = solver.Package{Kind: solver.ExtraKind, Name: name, Extra: resolve.Extra(extraName)}
		}
		deps = append(deps, solver.Dependency{Package: pkg, Constraint: constraint})
	}
	return deps, nil
}

// markerHolds parses (and caches) raw as a PEP 508 marker and evaluates it
// against the Provider's environment. An empty marker always holds.
func (p *Provider) markerHolds(raw string, extras map[resolve.Extra]bool) (bool, error) {
	if raw == "" {
		return true, nil
	}
	m, err := p.markers.GetOrCompute(raw, func() (Marker, error) { return ParseMarker(raw) })
	if err != nil {
		return false, errors.Wrapf(err, "parsing marker %q", raw)
	}
	return m.Eval(p.env, extras), nil
}
