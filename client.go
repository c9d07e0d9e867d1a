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

package resolve

import (
	"context"
	"fmt"
	"sort"
)

// LocalClient is an in-memory VersionsProvider and MetadataProvider
// backed entirely by data added with AddVersion, for use in tests and
// examples. It never performs network or filesystem I/O.
type LocalClient struct {
	// packageVersions holds all the known Concrete versions of every
	// package, sorted in ascending version order.
	packageVersions map[PackageName][]Version
	// requirements holds the direct dependencies of every concrete
	// version, keyed by VersionKey.
	requirements map[VersionKey][]RequirementVersion
	// extras holds extra-gated dependencies, keyed by VersionKey then
	// extra name.
	extras map[VersionKey]map[Extra][]RequirementVersion
	// buildable holds the Archive BuildWheelMetadata should hand back for
	// a source URL registered with AddBuildableArchive, simulating a
	// build backend invocation for a git/direct-archive/local-path
	// requirement whose name could not be read off static files.
	buildable map[string]Archive
}

// NewLocalClient creates a new, empty LocalClient.
func NewLocalClient() *LocalClient {
	return &LocalClient{
		packageVersions: make(map[PackageName][]Version),
		requirements:    make(map[VersionKey][]RequirementVersion),
		extras:          make(map[VersionKey]map[Extra][]RequirementVersion),
		buildable:       make(map[string]Archive),
	}
}

// AddBuildableArchive registers the Archive BuildWheelMetadata(ctx, sourceURL)
// should return, for tests exercising the on-demand metadata build path
// (git checkouts, direct archive links, and local paths with no static
// project metadata to read a name from).
func (lc *LocalClient) AddBuildableArchive(sourceURL string, archive Archive) {
	lc.buildable[sourceURL] = archive
}

// AddVersion adds a version to the client along with its base dependency
// list and any extras. Any existing version with the same VersionKey is
// replaced.
func (lc *LocalClient) AddVersion(v Version, deps []RequirementVersion, extraDeps map[Extra][]RequirementVersion) {
	versions := lc.packageVersions[v.Name]
	existed := false
	for i, w := range versions {
		if w.VersionKey == v.VersionKey {
			versions[i] = v
			existed = true
			break
		}
	}
	if !existed {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version.Compare(versions[j].Version) < 0
	})
	lc.packageVersions[v.Name] = versions

	lc.requirements[v.VersionKey] = deps
	if extraDeps != nil {
		lc.extras[v.VersionKey] = extraDeps
	}

	for _, d := range deps {
		if _, ok := lc.packageVersions[d.Name]; !ok {
			lc.packageVersions[d.Name] = nil
		}
	}
}

// VersionsOf implements VersionsProvider.
func (lc *LocalClient) VersionsOf(ctx context.Context, name PackageName) (VersionsResult, error) {
	vs, ok := lc.packageVersions[name]
	if !ok {
		return VersionsResult{}, nil
	}
	return VersionsResult{Found: true, Versions: vs}, nil
}

// MetadataOf implements MetadataProvider for versions already registered
// with AddVersion.
func (lc *LocalClient) MetadataOf(ctx context.Context, vk VersionKey) (MetadataResult, error) {
	deps, ok := lc.requirements[vk]
	if !ok {
		return MetadataResult{}, nil
	}
	return MetadataResult{
		Found: true,
		Archive: Archive{
			Requires: deps,
			Extras:   lc.extras[vk],
		},
	}, nil
}

// BuildWheelMetadata implements MetadataProvider, serving any Archive
// registered with AddBuildableArchive and failing for everything else.
func (lc *LocalClient) BuildWheelMetadata(ctx context.Context, sourceURL string) (Archive, error) {
	archive, ok := lc.buildable[sourceURL]
	if !ok {
		return Archive{}, fmt.Errorf("local client: no metadata builder for %s: %w", sourceURL, ErrNotFound)
	}
	return archive, nil
}
