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

package dep

import "testing"

func TestNewTypeFlagAttrs(t *testing.T) {
	var zero Type
	if !zero.IsRegular() {
		t.Error("zero Type should be regular")
	}

	tp := NewType(Optional)
	if tp.IsRegular() {
		t.Error("Type with Optional set should not be regular")
	}
	if !tp.HasAttr(Optional) {
		t.Error("HasAttr(Optional) = false, want true")
	}
	if tp.HasAttr(Editable) {
		t.Error("HasAttr(Editable) = true, want false")
	}
}

func TestAddAttrValued(t *testing.T) {
	var tp Type
	tp.AddAttr(Extra, "cli")
	tp.AddAttr(Environment, `sys_platform == "linux"`)

	if v, ok := tp.GetAttr(Extra); !ok || v != "cli" {
		t.Errorf("GetAttr(Extra) = (%q, %v), want (cli, true)", v, ok)
	}
	if v, ok := tp.GetAttr(Environment); !ok || v != `sys_platform == "linux"` {
		t.Errorf("GetAttr(Environment) = (%q, %v)", v, ok)
	}
	if _, ok := tp.GetAttr(KnownAs); ok {
		t.Error("GetAttr(KnownAs) = ok, want not set")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var tp Type
	tp.AddAttr(Extra, "cli")
	clone := tp.Clone()
	clone.AddAttr(Extra, "dev")

	if v, _ := tp.GetAttr(Extra); v != "cli" {
		t.Errorf("mutating clone affected original: Extra = %q", v)
	}
	if v, _ := clone.GetAttr(Extra); v != "dev" {
		t.Errorf("clone.GetAttr(Extra) = %q, want dev", v)
	}
}

func TestEqualAndCompare(t *testing.T) {
	var a, b Type
	a.AddAttr(Optional, "")
	b.AddAttr(Optional, "")
	if !a.Equal(b) {
		t.Error("two Types with the same flag attr should be equal")
	}

	var c Type
	c.AddAttr(Editable, "")
	if a.Equal(c) {
		t.Error("Types with different flag attrs should not be equal")
	}
	if a.Compare(c) == 0 {
		t.Error("Compare should distinguish differing flag attrs")
	}
}

func TestStringIncludesSetAttrs(t *testing.T) {
	var tp Type
	got := tp.String()
	if got != "regular" {
		t.Errorf("zero Type.String() = %q, want %q", got, "regular")
	}

	tp.AddAttr(Optional, "")
	tp.AddAttr(Extra, "cli")
	got = tp.String()
	if got == "regular" {
		t.Errorf("attributed Type.String() should not be %q", "regular")
	}
}
