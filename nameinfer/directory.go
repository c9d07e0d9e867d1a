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
	"bufio"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/pkgsolve/resolve"
)

// nameFromDirectory applies the local-directory static-metadata
// recognizers, in order: PKG-INFO, then pyproject.toml, then setup.cfg.
// It returns "", nil if none of the files exist or name a package,
// leaving the fallback on-demand build recognizer to take over.
func nameFromDirectory(dir string) (resolve.PackageName, error) {
	if name, err := nameFromPKGInfo(filepath.Join(dir, "PKG-INFO")); err != nil {
		return "", err
	} else if name != "" {
		return name, nil
	}
	if name, err := nameFromPyprojectTOML(filepath.Join(dir, "pyproject.toml")); err != nil {
		return "", err
	} else if name != "" {
		return name, nil
	}
	if name, err := nameFromSetupCfg(filepath.Join(dir, "setup.cfg")); err != nil {
		return "", err
	} else if name != "" {
		return name, nil
	}
	return "", nil
}

// nameFromPKGInfo reads the Name field of an RFC-822-style PKG-INFO file.
// No ecosystem library reads this specific subset of RFC 822 more
// conveniently than net/textproto's MIME header reader, so this one
// recognizer stays on the standard library.
func nameFromPKGInfo(path string) (resolve.PackageName, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	r := textproto.NewReader(bufio.NewReader(f))
	header, err := r.ReadMIMEHeader()
	if err != nil && len(header) == 0 {
		return "", errors.Wrapf(err, "parsing %s", path)
	}
	if name := header.Get("Name"); name != "" {
		return resolve.NormalizePackageName(name), nil
	}
	return "", nil
}

type pyprojectFile struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool map[string]struct {
		Name string `toml:"name"`
	} `toml:"tool"`
}

// nameFromPyprojectTOML reads `project.name`, falling back to
// `tool.<ecosystem>.name` (e.g. poetry's legacy layout) per PEP 621.
func nameFromPyprojectTOML(path string) (resolve.PackageName, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	var doc pyprojectFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", errors.Wrapf(err, "decoding %s", path)
	}
	if doc.Project.Name != "" {
		return resolve.NormalizePackageName(doc.Project.Name), nil
	}
	for _, tool := range doc.Tool {
		if tool.Name != "" {
			return resolve.NormalizePackageName(tool.Name), nil
		}
	}
	return "", nil
}

// nameFromSetupCfg reads `[metadata] name` out of a setup.cfg. setup.cfg
// is an INI file, but this recognizer only ever needs the one key, so a
// small hand-rolled scanner is used rather than pulling in a full INI
// parsing library for a single lookup.
func nameFromSetupCfg(path string) (resolve.PackageName, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	section := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}
		if section != "metadata" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			key, value, ok = strings.Cut(line, ":")
		}
		if !ok {
			continue
		}
		if strings.ToLower(strings.TrimSpace(key)) == "name" {
			return resolve.NormalizePackageName(strings.TrimSpace(value)), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrapf(err, "scanning %s", path)
	}
	return "", nil
}
