// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultRulesKey is the reserved RuleCollection key for built-in patterns.
// It sorts outside the directory keys and is always consulted first.
const defaultRulesKey = "DEFAULT"

// defaultIgnorePatterns are applied to every walk, .gitignore or not.
var defaultIgnorePatterns = []string{".git/"}

// RuleSet is one compiled group of gitignore pattern lines.
type RuleSet struct {
	patterns []string
	matcher  *gitignore.GitIgnore
}

// Match reports whether any pattern in the set matches the candidate path.
func (rs *RuleSet) Match(path string) bool {
	return rs.matcher.MatchesPath(path)
}

// Patterns returns the raw pattern lines the set was compiled from.
func (rs *RuleSet) Patterns() []string { return rs.patterns }

// RuleCollection maps a contributing directory to its compiled rules, plus
// the defaultRulesKey entry. Collections are shared across walker goroutines
// and treated as immutable: Augment copies, never mutates.
type RuleCollection map[string]*RuleSet

// IgnoreResolver loads, compiles and evaluates cascading .gitignore rules.
// Compiled matchers are cached by content hash so identical .gitignore
// files across a tree compile once. Safe for concurrent use.
type IgnoreResolver struct {
	logger *slog.Logger
	extra  []string

	mu       sync.Mutex
	compiled map[string]*RuleSet

	// dir path -> RuleCollection produced by Augment for that dir
	augmented sync.Map
}

// NewIgnoreResolver creates a resolver. Extra patterns are appended to the
// built-in defaults for every walk.
func NewIgnoreResolver(extra []string, logger *slog.Logger) *IgnoreResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &IgnoreResolver{
		logger:   logger,
		extra:    extra,
		compiled: make(map[string]*RuleSet),
	}
}

// compile returns a RuleSet for the pattern lines, reusing a previously
// compiled matcher when an identical pattern list was seen before.
func (r *IgnoreResolver) compile(patterns []string) *RuleSet {
	sum := sha1.Sum([]byte(strings.Join(patterns, "\n")))
	key := hex.EncodeToString(sum[:])

	r.mu.Lock()
	defer r.mu.Unlock()
	if rs, ok := r.compiled[key]; ok {
		return rs
	}
	rs := &RuleSet{
		patterns: patterns,
		matcher:  gitignore.CompileIgnoreLines(patterns...),
	}
	r.compiled[key] = rs
	return rs
}

// readRules loads dir/.gitignore if present. A missing file is not an
// error; an unreadable one is logged and skipped.
func (r *IgnoreResolver) readRules(dir string) (*RuleSet, bool) {
	path := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("ignore.rules.unreadable", "path", path, "error", err)
		}
		return nil, false
	}
	lines := strings.Split(string(data), "\n")
	trimmed := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		trimmed = append(trimmed, line)
	}
	if len(trimmed) == 0 {
		return nil, false
	}
	return r.compile(trimmed), true
}

// Seed builds the initial collection for a walk rooted at root: the built-in
// defaults plus every .gitignore found walking from root up to the
// filesystem root. Ancestor rules apply because git itself honors them for
// any subtree of a repository.
func (r *IgnoreResolver) Seed(root string) RuleCollection {
	coll := RuleCollection{
		defaultRulesKey: r.compile(append(append([]string{}, defaultIgnorePatterns...), r.extra...)),
	}
	dir := root
	for {
		if rs, ok := r.readRules(dir); ok {
			coll[dir] = rs
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return coll
}

// Augment returns the collection extended with dir's .gitignore, if dir has
// one that is not already represented. The input collection is never
// modified. Results are memoized per directory: a directory is visited once
// per walk, but its collection is read by every child task.
func (r *IgnoreResolver) Augment(coll RuleCollection, dir string) RuleCollection {
	if cached, ok := r.augmented.Load(dir); ok {
		return cached.(RuleCollection)
	}
	out := coll
	if _, ok := coll[dir]; !ok {
		if rs, found := r.readRules(dir); found {
			out = make(RuleCollection, len(coll)+1)
			for k, v := range coll {
				out[k] = v
			}
			out[dir] = rs
		}
	}
	r.augmented.Store(dir, out)
	return out
}

// Ignored evaluates path against the collection. The default rules are
// consulted first, against both the root-relative path and the basename.
// Directory rule sets follow in descending path-length order (longest, i.e.
// most specific, first; ties broken lexicographically), each consulted only
// if it is an ancestor of path. Candidates per set are the set-relative
// path, the basename, and for directories the basename with a trailing
// slash. The first matching set wins.
func (r *IgnoreResolver) Ignored(coll RuleCollection, path, root string, isDir bool) bool {
	base := filepath.Base(path)

	if def, ok := coll[defaultRulesKey]; ok {
		if rel, err := filepath.Rel(root, path); err == nil && def.Match(filepath.ToSlash(rel)) {
			return true
		}
		if def.Match(base) {
			return true
		}
		if isDir && def.Match(base+"/") {
			return true
		}
	}

	dirs := make([]string, 0, len(coll))
	for d := range coll {
		if d != defaultRulesKey {
			dirs = append(dirs, d)
		}
	}
	sort.Slice(dirs, func(i, j int) bool {
		if len(dirs[i]) != len(dirs[j]) {
			return len(dirs[i]) > len(dirs[j])
		}
		return dirs[i] < dirs[j]
	})

	for _, d := range dirs {
		rel, err := filepath.Rel(d, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rs := coll[d]
		if rs.Match(filepath.ToSlash(rel)) || rs.Match(base) {
			return true
		}
		if isDir && rs.Match(base+"/") {
			return true
		}
	}
	return false
}
