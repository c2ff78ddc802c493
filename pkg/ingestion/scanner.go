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
	"log/slog"
	"os"
	"path/filepath"
)

// Scanner lists a directory once and partitions its entries, dropping
// anything the ignore rules exclude. Symlinks are not followed: a symlink
// to a directory is reported as neither file nor subdirectory.
type Scanner struct {
	resolver *IgnoreResolver
	logger   *slog.Logger
}

// NewScanner creates a scanner sharing the walk's resolver.
func NewScanner(resolver *IgnoreResolver, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{resolver: resolver, logger: logger}
}

// Scan returns the non-ignored subdirectory and file names of dir, in
// readdir order. An unreadable directory yields a FilterError.
func (s *Scanner) Scan(dir, root string, coll RuleCollection) (subdirs, files []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, &FilterError{Dir: dir, Err: err}
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		isDir := entry.IsDir()
		if s.resolver.Ignored(coll, full, root, isDir) {
			recordIgnored()
			s.logger.Debug("ingest.scan.skip.ignored", "path", full)
			continue
		}
		switch {
		case isDir:
			subdirs = append(subdirs, entry.Name())
		case entry.Type().IsRegular():
			files = append(files, entry.Name())
		default:
			s.logger.Debug("ingest.scan.skip.irregular", "path", full)
		}
	}
	return subdirs, files, nil
}
