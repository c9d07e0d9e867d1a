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

import "github.com/pkgsolve/resolve/pep440"

// ArtifactKind distinguishes the ways a URL-addressed requirement may
// resolve to source.
type ArtifactKind int

const (
	UnknownArtifactKind ArtifactKind = iota
	DirectArchive
	Git
	LocalPath
	LocalDirectory
)

func (k ArtifactKind) String() string {
	switch k {
	case DirectArchive:
		return "direct-archive"
	case Git:
		return "git"
	case LocalPath:
		return "local-path"
	case LocalDirectory:
		return "local-directory"
	default:
		return "unknown"
	}
}

// ArtifactRef names the source of a requirement: a registry name/version
// pair, a URL (with a kind indicating how to obtain source from it), or an
// editable (PEP 660 develop-mode) local project.
type ArtifactRef struct {
	Name PackageName

	// Registry fields. Valid when URL == "".
	Version pep440.Version

	// URL fields. Valid when URL != "".
	URL  string
	Kind ArtifactKind

	// Editable fields. Valid when Editable is true.
	Editable  bool
	LocalPath string
}

// IsRegistry reports whether the reference names a registry version.
func (a ArtifactRef) IsRegistry() bool { return a.URL == "" && !a.Editable }

// HashDigest is a single hash algorithm/value pair attached to a
// distribution, e.g. for supply-chain verification.
type HashDigest struct {
	Algorithm string
	Hex       string
}

// Requirement is a direct dependency as declared in the Manifest or in a
// distribution's metadata.
type Requirement struct {
	Name   PackageName
	Extras []Extra

	// Constraint is set for registry requirements; URL is set for
	// URL/path/VCS requirements. Exactly one should be non-empty/non-nil.
	Constraint pep440.Range
	URL        string

	// Marker is the raw PEP 508 marker expression gating this
	// requirement, if any ("" means unconditional).
	Marker string

	// Origin records where this requirement came from (e.g. the name an
	// unnamed URL requirement was spelled with), for diagnostics.
	Origin string
}

// Preference pins a package to a previously resolved version, e.g. from
// an existing lock file, so re-resolves are stable unless a constraint
// forces a change. Hashes, when carried over from that prior lock, take
// priority over hashes freshly published by the registry so that a
// re-resolve against an unchanged preference reproduces the same lock
// bytes even if the index has since added mirrors or build variants.
type Preference struct {
	Name    PackageName
	Version pep440.Version
	Hashes  []HashDigest
}

// Manifest is the complete, immutable input to a resolve call.
type Manifest struct {
	Requirements []Requirement
	Constraints  []Requirement // Additional bounds that do not themselves pull a package in.
	Overrides    []Requirement // Replace matching requirements' constraints outright.
	Editables    []Requirement
	Preferences  []Preference

	// ExcludeNewer, if non-zero, is a Unix timestamp; versions uploaded
	// after it are treated as if they did not exist.
	ExcludeNewer int64

	// AllowPrerelease enables pre-release candidates project-wide, as if
	// every requirement matched one explicitly.
	AllowPrerelease bool
}
