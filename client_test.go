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
	"errors"
	"testing"

	"github.com/pkgsolve/resolve/pep440"
)

func clientVersion(t *testing.T, name, v string) Version {
	t.Helper()
	pv, err := pep440.Parse(v)
	if err != nil {
		t.Fatalf("Parse(%q): %v", v, err)
	}
	return Version{VersionKey: VersionKey{
		PackageKey: PackageKey{System: PyPI, Name: PackageName(name)},
		Version:    pv,
	}}
}

func TestLocalClientVersionsOfUnknownPackage(t *testing.T) {
	lc := NewLocalClient()
	res, err := lc.VersionsOf(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("VersionsOf: %v", err)
	}
	if res.Found {
		t.Errorf("VersionsOf(unknown) = %+v, want Found=false", res)
	}
}

func TestLocalClientAddVersionSortsAscending(t *testing.T) {
	lc := NewLocalClient()
	lc.AddVersion(clientVersion(t, "a", "2.0.0"), nil, nil)
	lc.AddVersion(clientVersion(t, "a", "1.0.0"), nil, nil)
	lc.AddVersion(clientVersion(t, "a", "1.5.0"), nil, nil)

	res, err := lc.VersionsOf(context.Background(), "a")
	if err != nil {
		t.Fatalf("VersionsOf: %v", err)
	}
	want := []string{"1.0.0", "1.5.0", "2.0.0"}
	if len(res.Versions) != len(want) {
		t.Fatalf("got %d versions, want %d", len(res.Versions), len(want))
	}
	for i, w := range want {
		if got := res.Versions[i].Version.String(); got != w {
			t.Errorf("Versions[%d] = %s, want %s", i, got, w)
		}
	}
}

func TestLocalClientAddVersionReplacesExisting(t *testing.T) {
	lc := NewLocalClient()
	v := clientVersion(t, "a", "1.0.0")
	lc.AddVersion(v, []RequirementVersion{{PackageKey: PackageKey{System: PyPI, Name: "b"}, Constraint: pep440.All()}}, nil)
	lc.AddVersion(v, nil, nil) // replace with no dependencies

	res, err := lc.VersionsOf(context.Background(), "a")
	if err != nil || !res.Found || len(res.Versions) != 1 {
		t.Fatalf("VersionsOf after replace = %+v, %v", res, err)
	}

	meta, err := lc.MetadataOf(context.Background(), v.VersionKey)
	if err != nil {
		t.Fatalf("MetadataOf: %v", err)
	}
	if len(meta.Archive.Requires) != 0 {
		t.Errorf("Requires = %+v, want empty after replace", meta.Archive.Requires)
	}
}

func TestLocalClientAddVersionRegistersDependencyPackages(t *testing.T) {
	lc := NewLocalClient()
	lc.AddVersion(clientVersion(t, "a", "1.0.0"), []RequirementVersion{
		{PackageKey: PackageKey{System: PyPI, Name: "b"}, Constraint: pep440.All()},
	}, nil)

	res, err := lc.VersionsOf(context.Background(), "b")
	if err != nil {
		t.Fatalf("VersionsOf: %v", err)
	}
	if !res.Found {
		t.Errorf("VersionsOf(b) = %+v, want Found=true (registered via dependency)", res)
	}
	if len(res.Versions) != 0 {
		t.Errorf("VersionsOf(b).Versions = %+v, want empty (no version of b added directly)", res.Versions)
	}
}

func TestLocalClientMetadataOfUnknownVersion(t *testing.T) {
	lc := NewLocalClient()
	res, err := lc.MetadataOf(context.Background(), clientVersion(t, "a", "1.0.0").VersionKey)
	if err != nil {
		t.Fatalf("MetadataOf: %v", err)
	}
	if res.Found {
		t.Errorf("MetadataOf(unregistered) = %+v, want Found=false", res)
	}
}

func TestLocalClientBuildWheelMetadataFailsWithoutRegisteredArchive(t *testing.T) {
	lc := NewLocalClient()
	_, err := lc.BuildWheelMetadata(context.Background(), "https://example.com/pkg.tar.gz")
	if err == nil {
		t.Fatal("BuildWheelMetadata succeeded, want error")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want wrapping ErrNotFound", err)
	}
}

func TestLocalClientBuildWheelMetadataServesRegisteredArchive(t *testing.T) {
	lc := NewLocalClient()
	want := Archive{
		Name: "built-pkg",
		Requires: []RequirementVersion{
			{PackageKey: PackageKey{System: PyPI, Name: "dep-a"}, Constraint: pep440.All()},
		},
	}
	lc.AddBuildableArchive("https://example.com/pkg.tar.gz", want)

	got, err := lc.BuildWheelMetadata(context.Background(), "https://example.com/pkg.tar.gz")
	if err != nil {
		t.Fatalf("BuildWheelMetadata: %v", err)
	}
	if got.Name != want.Name || len(got.Requires) != 1 || got.Requires[0].Name != "dep-a" {
		t.Errorf("BuildWheelMetadata = %+v, want %+v", got, want)
	}
}
