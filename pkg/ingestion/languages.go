// Copyright 2025 KrakLabs
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
//
// SPDX-License-Identifier: Apache-2.0

package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// languagesByExt maps a lowercased file extension (with dot) to its
// tree-sitter grammar. Files with any other extension are skipped as
// unsupported, which is an outcome, not an error.
var languagesByExt = map[string]*sitter.Language{
	".py":  python.GetLanguage(),
	".js":  javascript.GetLanguage(),
	".jsx": javascript.GetLanguage(),
	".mjs": javascript.GetLanguage(),
	".cjs": javascript.GetLanguage(),
	".ts":  typescript.GetLanguage(),
	".tsx": tsx.GetLanguage(),
	".rs":  rust.GetLanguage(),
	".go":  golang.GetLanguage(),
	".c":   c.GetLanguage(),
	".h":   c.GetLanguage(),
	".cpp": cpp.GetLanguage(),
	".cc":  cpp.GetLanguage(),
	".cxx": cpp.GetLanguage(),
	".hpp": cpp.GetLanguage(),
}

// LanguageForFile returns the grammar for a file name, or nil when the
// extension is not supported.
func LanguageForFile(name string) *sitter.Language {
	return languagesByExt[strings.ToLower(filepath.Ext(name))]
}

// SupportedExtensions lists the recognized extensions, sorted, for display.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(languagesByExt))
	for ext := range languagesByExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// parseSource parses content with the given grammar. A fresh parser per
// call: sitter.Parser is not safe for concurrent use and workers parse in
// parallel.
func parseSource(ctx context.Context, lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, fmt.Errorf("parser produced no tree")
	}
	return tree, nil
}
