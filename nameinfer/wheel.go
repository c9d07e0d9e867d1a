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

package nameinfer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/pkgsolve/resolve"
)

// sourceArchiveExts lists the extensions ParseSourceArchiveFilename
// recognizes, matched as filename suffixes.
var sourceArchiveExts = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tar.Z", ".tar", ".zip"}

// ParseWheelFilename extracts the package name from a wheel filename,
// per PEP 427's `{name}-{version}(-{build})?-{python}-{abi}-{platform}.whl`
// convention.
func ParseWheelFilename(filename string) (resolve.PackageName, error) {
	trimmed := strings.TrimSuffix(filename, ".whl")
	if trimmed == filename {
		return "", errors.Errorf("not a wheel filename: %s", filename)
	}
	parts := strings.Split(trimmed, "-")
	if len(parts) < 5 {
		return "", errors.Errorf("wheel filename has too few dash-separated parts: %s", filename)
	}
	if len(parts) > 6 {
		return "", errors.Errorf("wheel filename has too many dash-separated parts: %s", filename)
	}
	return resolve.NormalizePackageName(parts[0]), nil
}

// ParseSourceArchiveFilename extracts the package name from a source
// distribution archive filename of the form `{name}-{version}.{ext}`.
func ParseSourceArchiveFilename(filename string) (resolve.PackageName, error) {
	for _, ext := range sourceArchiveExts {
		if !strings.HasSuffix(filename, ext) {
			continue
		}
		trimmed := strings.TrimSuffix(filename, ext)
		i := strings.LastIndexByte(trimmed, '-')
		if i <= 0 {
			return "", errors.Errorf("source archive filename missing version separator: %s", filename)
		}
		return resolve.NormalizePackageName(trimmed[:i]), nil
	}
	return "", errors.Errorf("unrecognized source archive extension: %s", filename)
}
