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

import "fmt"

// FilterError reports a directory that could not be scanned or whose ignore
// rules could not be resolved. The subtree rooted at Dir is skipped; the
// rest of the walk continues.
type FilterError struct {
	Dir string
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %s: %v", e.Dir, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// ParseError reports a file whose content could not be parsed into a syntax
// tree. The file is skipped; no node is created for it.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreWriteError reports a failed store insert. Op is the store operation
// name (createFile, createSubEntity, ...), Path the filesystem path whose
// subtree the write belonged to.
type StoreWriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store %s for %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
