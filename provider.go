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

	"github.com/pkgsolve/resolve/pep440"
)

// VersionsResult is the outcome of a VersionsProvider lookup.
type VersionsResult struct {
	Found    bool
	Versions []Version
}

// VersionsProvider resolves a package name to the versions a registry
// publishes for it. Implementations are responsible for their own
// caching and for coalescing concurrent requests for the same name.
type VersionsProvider interface {
	VersionsOf(ctx context.Context, name PackageName) (VersionsResult, error)
}

// Archive is a resolved distribution's metadata and known hashes.
type Archive struct {
	// Name is the package's own identity, as declared by its metadata.
	// Only BuildWheelMetadata's caller (the Name Inferer) consults this
	// field; MetadataOf's caller already knows the name it asked for.
	Name PackageName

	Requires []RequirementVersion
	Extras   map[Extra][]RequirementVersion
	Hashes   []HashDigest

	// RequiresPython, if set, is the PEP 440 range of CPython versions
	// the distribution declares itself compatible with.
	RequiresPython pep440.Range
}

// MetadataResult is the outcome of a MetadataProvider lookup.
type MetadataResult struct {
	Found   bool
	Archive Archive
}

// MetadataProvider fetches or builds PEP 517/621 metadata for a concrete
// distribution.
type MetadataProvider interface {
	// MetadataOf returns the metadata for an already-identified
	// registry or URL version.
	MetadataOf(ctx context.Context, vk VersionKey) (MetadataResult, error)

	// BuildWheelMetadata builds metadata for a source the Name Inferer
	// could not resolve from static files alone (an sdist or a local
	// project needing its build backend invoked). May be expensive.
	BuildWheelMetadata(ctx context.Context, sourceURL string) (Archive, error)
}

// InterpreterMarkers is the PEP 508 marker environment of the interpreter
// a resolution is being computed for, plus its supported platform tags.
type InterpreterMarkers struct {
	Environment  map[string]string
	PlatformTags []string
}

// Get looks up a marker environment variable by its PEP 508 name
// (python_version, sys_platform, and so on).
func (m InterpreterMarkers) Get(name string) (string, bool) {
	v, ok := m.Environment[name]
	return v, ok
}
