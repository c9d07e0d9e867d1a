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

package version

import "testing"

func TestFlagAttrs(t *testing.T) {
	var s AttrSet
	if !s.Empty() {
		t.Error("zero AttrSet should be empty")
	}
	s.SetAttr(Yanked, "")
	if s.Empty() {
		t.Error("AttrSet with Yanked set should not be empty")
	}
	if !s.HasAttr(Yanked) {
		t.Error("HasAttr(Yanked) = false, want true")
	}
	if s.HasAttr(Editable) {
		t.Error("HasAttr(Editable) = true, want false")
	}
}

func TestValuedAttrs(t *testing.T) {
	var s AttrSet
	s.SetAttr(UploadTime, "1700000000")
	s.SetAttr(SourceIndex, "https://pypi.org/simple")

	if v, ok := s.GetAttr(UploadTime); !ok || v != "1700000000" {
		t.Errorf("GetAttr(UploadTime) = (%q, %v)", v, ok)
	}
	if v, ok := s.GetAttr(SourceIndex); !ok || v != "https://pypi.org/simple" {
		t.Errorf("GetAttr(SourceIndex) = (%q, %v)", v, ok)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var s AttrSet
	s.SetAttr(SourceIndex, "/tmp/pkg")
	c := s.Clone()
	c.SetAttr(SourceIndex, "/tmp/other")

	if v, _ := s.GetAttr(SourceIndex); v != "/tmp/pkg" {
		t.Errorf("mutating clone affected original: SourceIndex = %q", v)
	}
}

func TestEqual(t *testing.T) {
	var a, b AttrSet
	a.SetAttr(Yanked, "")
	b.SetAttr(Yanked, "")
	if !a.Equal(b) {
		t.Error("two AttrSets with the same flag should be equal")
	}

	var c AttrSet
	c.SetAttr(PreRelease, "")
	if a.Equal(c) {
		t.Error("AttrSets with different flags should not be equal")
	}
}

func TestStringListsSetAttrs(t *testing.T) {
	var s AttrSet
	if got := s.String(); got != "{}" {
		t.Errorf("zero AttrSet.String() = %q, want {}", got)
	}
	s.SetAttr(Yanked, "")
	if got := s.String(); got != "{Yanked}" {
		t.Errorf("AttrSet.String() = %q, want {Yanked}", got)
	}
}
