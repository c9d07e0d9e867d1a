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
	"net/url"
	"os"
	"strings"

	"github.com/pkgsolve/resolve"
)

// classifyURL maps a requirement URL to the ArtifactKind describing how
// source should be obtained from it.
func classifyURL(rawURL string) (resolve.ArtifactKind, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return resolve.UnknownArtifactKind, &resolve.InvalidURL{URL: rawURL, Cause: err}
	}
	switch scheme := strings.ToLower(u.Scheme); {
	case scheme == "file":
		path := u.Path
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			return resolve.LocalDirectory, nil
		}
		return resolve.LocalPath, nil
	case strings.HasPrefix(scheme, "git+") || scheme == "git":
		return resolve.Git, nil
	case scheme == "http" || scheme == "https":
		return resolve.DirectArchive, nil
	case scheme == "":
		// A bare filesystem path with no scheme at all.
		if fi, err := os.Stat(rawURL); err == nil && fi.IsDir() {
			return resolve.LocalDirectory, nil
		}
		return resolve.LocalPath, nil
	default:
		return resolve.UnknownArtifactKind, &resolve.UnsupportedURLScheme{URL: rawURL}
	}
}
