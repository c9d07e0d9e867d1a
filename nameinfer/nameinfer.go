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
Package nameinfer resolves the package name of requirements that arrive
without one: bare URLs and local paths whose name has to be recovered
from a filename convention, on-disk metadata, or — failing that — an
on-demand metadata build.
*/
package nameinfer

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pkgsolve/resolve"
)

// VersionIDFromURL derives the cache key a built Archive is stored under
// for a URL-sourced requirement with no registry version, so a Provider
// can reuse a metadata build ResolveNames already paid for instead of
// invoking BuildWheelMetadata a second time.
func VersionIDFromURL(url string) string { return "url:" + url }

// ResolveNames names every requirement in reqs, running the recognizers
// concurrently but preserving input order in the result. If any
// requirement fails to resolve a name, the whole call fails; results for
// requirements still in flight are abandoned.
//
// The second return value holds, keyed by VersionIDFromURL, the full
// Archive for every requirement whose name could only be recovered by an
// on-demand metadata build: the caller's Provider should seed its own
// cache from it so that archive is not built a second time when the
// solver later asks for that package's dependencies.
func ResolveNames(ctx context.Context, reqs []resolve.Requirement, mp resolve.MetadataProvider) ([]resolve.Requirement, map[string]resolve.Archive, error) {
	out := make([]resolve.Requirement, len(reqs))
	built := make([]*resolve.Archive, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range reqs {
		i, r := i, r
		g.Go(func() error {
			named, archive, err := resolveOne(ctx, r, mp)
			if err != nil {
				return err
			}
			out[i] = named
			built[i] = archive
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	archives := make(map[string]resolve.Archive)
	for i, a := range built {
		if a != nil {
			archives[VersionIDFromURL(out[i].URL)] = *a
		}
	}
	return out, archives, nil
}

// resolveOne names r, returning the Archive it had to build to do so when
// the fallback metadata-build path was taken (nil otherwise).
func resolveOne(ctx context.Context, r resolve.Requirement, mp resolve.MetadataProvider) (resolve.Requirement, *resolve.Archive, error) {
	if r.Name != "" {
		return r, nil, nil
	}
	if r.URL == "" {
		return resolve.Requirement{}, nil, errors.New("requirement has neither a name nor a URL")
	}

	if name, err := nameFromFilename(r.URL); err != nil {
		return resolve.Requirement{}, nil, err
	} else if name != "" {
		r.Name = name
		return r, nil, nil
	}

	kind, err := classifyURL(r.URL)
	if err != nil {
		return resolve.Requirement{}, nil, err
	}

	if kind == resolve.LocalDirectory {
		if name, err := nameFromDirectory(localPathOf(r.URL)); err != nil {
			return resolve.Requirement{}, nil, err
		} else if name != "" {
			r.Name = name
			return r, nil, nil
		}
	}

	archive, err := mp.BuildWheelMetadata(ctx, r.URL)
	if err != nil {
		return resolve.Requirement{}, nil, &resolve.MetadataBuildFailed{URL: r.URL, Cause: err}
	}
	if archive.Name == "" {
		return resolve.Requirement{}, nil, errors.Errorf("could not determine package name for %s", r.URL)
	}
	r.Name = archive.Name
	return r, &archive, nil
}

// nameFromFilename applies the wheel and source-archive filename
// recognizers to the trailing path segment of url.
func nameFromFilename(rawURL string) (resolve.PackageName, error) {
	filename := trailingSegment(rawURL)
	if strings.HasSuffix(strings.ToLower(filename), ".whl") {
		return ParseWheelFilename(filename)
	}
	if name, err := ParseSourceArchiveFilename(filename); err == nil {
		return name, nil
	}
	return "", nil
}

func trailingSegment(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}

func localPathOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return rawURL
}
