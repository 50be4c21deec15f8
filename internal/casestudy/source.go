/*
Copyright 2025 The brineworks Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package casestudy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/brineworks/treatment-network-optimizer/pkg/core"
)

// Source is the interface for pluggable case-study sources.
// Implementations include FileSource; an object-store or database source
// would satisfy the same contract.
type Source interface {
	// Name returns the unique name of this source (e.g., "file").
	Name() string

	// Load returns every case study the source provides, validated and
	// sorted by name.
	Load(ctx context.Context) ([]*core.CaseStudy, error)
}

// FileSource loads case studies from YAML on disk. The path may name a
// single file or a directory; directories are scanned non-recursively for
// .yaml and .yml entries, which are loaded concurrently.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	return &FileSource{path: path}, nil
}

// Name returns "file".
func (s *FileSource) Name() string { return "file" }

// Load reads the file or directory the source points at.
func (s *FileSource) Load(ctx context.Context) ([]*core.CaseStudy, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("case-study source: %w", err)
	}
	if !info.IsDir() {
		cs, err := LoadFile(ctx, s.path)
		if err != nil {
			return nil, err
		}
		return []*core.CaseStudy{cs}, nil
	}
	return LoadDir(ctx, s.path)
}

// LoadFile reads, decodes and validates one case study. Unknown YAML fields
// are rejected so typos in hand-written studies surface at load time rather
// than as silently missing data.
func LoadFile(ctx context.Context, path string) (*core.CaseStudy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("case study %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	cs := &core.CaseStudy{}
	if err := dec.Decode(cs); err != nil {
		return nil, fmt.Errorf("case study %s: %w", path, err)
	}
	if err := cs.Validate(); err != nil {
		return nil, fmt.Errorf("case study %s: %w", path, err)
	}
	return cs, nil
}

// LoadDir loads every .yaml/.yml case study in dir concurrently and returns
// them sorted by study name. Any bad file fails the whole load, and two
// files defining the same study name are rejected.
func LoadDir(ctx context.Context, dir string) ([]*core.CaseStudy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("case-study dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("case-study dir %s: no .yaml or .yml files", dir)
	}

	studies := make([]*core.CaseStudy, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			cs, err := LoadFile(gctx, path)
			if err != nil {
				return err
			}
			studies[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(studies))
	for i, cs := range studies {
		if prev, dup := seen[cs.Name]; dup {
			return nil, fmt.Errorf("case study %q defined in both %s and %s", cs.Name, prev, paths[i])
		}
		seen[cs.Name] = paths[i]
	}
	sort.Slice(studies, func(i, j int) bool { return studies[i].Name < studies[j].Name })
	return studies, nil
}
