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
Package version provides data structures for representing version
attributes: whether a concrete version has been yanked, is a local
editable install, or other facts a provider wants to carry alongside a
version without widening the version comparison itself.
*/
package version

import (
	"strconv"
	"strings"

	"github.com/pkgsolve/resolve/internal/attr"
)

// AttrKey represents an attribute key that may be applied to an AttrSet.
type AttrKey int8

const (
	maskLen = 4

	// Yanked indicates the version has been withdrawn by its publisher
	// (PEP 592). The provider only selects a yanked version when a
	// preference pins exactly that version.
	Yanked AttrKey = -0x01

	// Editable indicates the concrete version is backed by a locally
	// developed project installed in editable mode (PEP 660).
	Editable AttrKey = -0x02

	// Local indicates the concrete version's source is a local directory
	// or archive path rather than a registry artifact. Unlike Editable
	// it carries no PEP 660 develop-mode semantics.
	Local AttrKey = -0x04

	// PreRelease overrides the version's own PEP 440 pre-release
	// determination, for versions a provider classifies as pre-release
	// through means other than the version string itself (e.g. a
	// direct URL reference to an unreleased commit).
	PreRelease AttrKey = -0x08

	// The previous AttrKey are represented compactly in the encoded form.
	// Below here are AttrKey whose values are serialized.

	// SourceIndex names the package index (URL) the version was found
	// on, when more than one index is configured.
	SourceIndex AttrKey = 1

	// UploadTime holds the upstream upload timestamp as a decimal Unix
	// seconds string, used by the exclude-newer cutoff.
	UploadTime AttrKey = 2
)

// AttrSet represents a set of version attributes.
// The zero value of AttrSet is an empty set.
type AttrSet struct {
	set attr.Set
}

// SetAttr adds an attribute to the set, replacing any existing one of the
// same key.
func (s *AttrSet) SetAttr(key AttrKey, value string) {
	if key < 0 {
		s.set.Mask |= attr.Mask(-key)
		return
	}
	s.set.SetAttr(uint8(key), value)
}

// GetAttr gets an attribute.
func (s AttrSet) GetAttr(key AttrKey) (value string, ok bool) {
	if key < 0 {
		return "", s.set.Mask&attr.Mask(-key) != 0
	}
	return s.set.GetAttr(uint8(key))
}

// HasAttr reports whether the set has the given attribute.
func (s AttrSet) HasAttr(key AttrKey) bool {
	_, ok := s.GetAttr(key)
	return ok
}

// Empty reports whether the AttrSet is equivalent to its zero value.
func (s AttrSet) Empty() bool { return s.set.IsRegular() }

// Equal reports whether the two sets carry the same attributes.
func (s AttrSet) Equal(other AttrSet) bool { return s.set.Compare(other.set) == 0 }

// Clone returns a copy of s.
func (s AttrSet) Clone() AttrSet { return AttrSet{set: s.set.Clone()} }

func (k AttrKey) String() string {
	switch k {
	case Yanked:
		return "Yanked"
	case Editable:
		return "Editable"
	case Local:
		return "Local"
	case PreRelease:
		return "PreRelease"
	case SourceIndex:
		return "SourceIndex"
	case UploadTime:
		return "UploadTime"
	default:
		return "AttrKey(unknown)"
	}
}

func (s AttrSet) String() string {
	if s.Empty() {
		return "{}"
	}
	var sb strings.Builder
	any := false
	sb.WriteByte('{')
	for m, bit := s.set.Mask, 0; m != 0 && bit < maskLen; bit++ {
		if m&(1<<bit) == 0 {
			continue
		}
		key := AttrKey(-(1 << bit))
		if any {
			sb.WriteByte(',')
		}
		any = true
		sb.WriteString(key.String())
	}
	s.set.ForEachAttr(func(k uint8, value string) {
		if any {
			sb.WriteByte(',')
		}
		any = true
		sb.WriteString(AttrKey(k).String())
		if value != "" {
			sb.WriteByte('=')
			sb.WriteString(strconv.Quote(value))
		}
	})
	sb.WriteByte('}')
	return sb.String()
}
