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
Package dep provides data structures for representing dependency edge
attributes: which extra introduced a requirement, the raw PEP 508
environment marker gating it, and whether it is optional.
*/
package dep

import (
	"fmt"
	"strings"

	"github.com/pkgsolve/resolve/internal/attr"
)

// AttrKey represents an attribute key that may be applied to a Type.
//
// Its specific values are an implementation detail of this package; only
// use the named constants in client code.
type AttrKey int8

const (
	// Use a 3 bit mask for special attributes.
	maskLen = 3

	// Optional indicates the dependency is not required for the base
	// package to function; it is only pulled in when an Extra that
	// requests it is enabled. Its value is ignored; its presence is the
	// indicator.
	Optional AttrKey = -0x01

	// Editable indicates the dependency edge was declared by a locally
	// developed project (PEP 660). Its value is ignored.
	Editable AttrKey = -0x02

	// -0x04 is reserved for future use.

	// The previous AttrKey are represented compactly in the encoded form.
	// Below here are AttrKey whose values are serialized.

	// Extra names the extra group that introduced this requirement, if
	// it was not a base requirement of the dependent.
	Extra AttrKey = 1

	// Environment holds the raw PEP 508 marker expression gating this
	// dependency, verbatim as declared in the dependent's metadata.
	Environment AttrKey = 2

	// KnownAs holds the name under which a direct requirement was
	// originally spelled (e.g. before normalization), for diagnostics.
	KnownAs AttrKey = 3
)

// Type indicates the attributes of a dependency edge.
//
// The zero value of Type is a regular, unattributed dependency.
type Type struct {
	set attr.Set
}

// NewType constructs a Type with the given flag attributes set.
func NewType(attrs ...AttrKey) Type {
	var t Type
	for _, a := range attrs {
		t.AddAttr(a, "")
	}
	return t
}

// Clone returns a clone of the given Type.
func (t *Type) Clone() Type {
	return Type{set: t.set.Clone()}
}

// AddAttr adds an attribute to the Type.
func (t *Type) AddAttr(key AttrKey, value string) {
	if key < 0 {
		t.set.Mask |= attr.Mask(-key)
		return
	}
	t.set.SetAttr(uint8(key), value)
}

// GetAttr gets an attribute from the Type.
func (t *Type) GetAttr(key AttrKey) (value string, ok bool) {
	if key < 0 {
		return "", t.set.Mask&attr.Mask(-key) != 0
	}
	return t.set.GetAttr(uint8(key))
}

// HasAttr reports whether the type has the given attribute.
func (t *Type) HasAttr(key AttrKey) bool {
	_, ok := t.GetAttr(key)
	return ok
}

// IsRegular reports whether the Type is a regular, unattributed Type.
func (t Type) IsRegular() bool { return t.set.IsRegular() }

// Equal reports whether the Type is identical to other.
func (t Type) Equal(other Type) bool { return t.Compare(other) == 0 }

// Compare returns -1, 0 or 1 depending on whether the Type is ordered
// before, equal to or after the other Type.
func (t Type) Compare(other Type) int { return t.set.Compare(other.set) }

func (t Type) String() string {
	s := "regular"
	if t.set.Mask != 0 {
		var ss []string
		if t.set.Mask&attr.Mask(-Optional) != 0 {
			ss = append(ss, "optional")
		}
		if t.set.Mask&attr.Mask(-Editable) != 0 {
			ss = append(ss, "editable")
		}
		s = strings.Join(ss, "|")
	}
	t.set.ForEachAttr(func(key uint8, value string) {
		k := AttrKey(key)
		s += fmt.Sprintf("|%s=%q", k, value)
	})
	return s
}
