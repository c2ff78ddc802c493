package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseTestSource parses source with the grammar registered for name.
func parseTestSource(t *testing.T, name, source string) *Entity {
	t.Helper()

	lang := LanguageForFile(name)
	require.NotNil(t, lang, "grammar should exist for %s", name)

	tree, err := parseSource(context.Background(), lang, []byte(source))
	require.NoError(t, err, "valid source should parse")
	defer tree.Close()

	return Decompose(tree.RootNode(), []byte(source), 1)
}

func TestDecompose_PythonModule(t *testing.T) {
	source := "def add(a, b):\n    return a + b\n\nx = 1\n"
	root := parseTestSource(t, "calc.py", source)

	assert.Equal(t, "module", root.Kind)
	assert.Equal(t, 1, root.Order)
	assert.Equal(t, source, root.Text)
	assert.Equal(t, uint32(0), root.StartByte)
	assert.Equal(t, uint32(len(source)), root.EndByte)

	// Top-level statements: function definition and assignment.
	require.Len(t, root.Children, 2)
	assert.Equal(t, "function_definition", root.Children[0].Kind)
	assert.Equal(t, "expression_statement", root.Children[1].Kind)
}

func TestDecompose_SiblingOrderIsOneBased(t *testing.T) {
	source := "a = 1\nb = 2\nc = 3\n"
	root := parseTestSource(t, "vars.py", source)

	require.Len(t, root.Children, 3)
	for i, child := range root.Children {
		assert.Equal(t, i+1, child.Order, "sibling order is 1-based")
	}
}

func TestDecompose_TextMatchesByteRange(t *testing.T) {
	source := "def f():\n    pass\n"
	root := parseTestSource(t, "f.py", source)

	require.NotEmpty(t, root.Children)
	fn := root.Children[0]
	assert.Equal(t, source[fn.StartByte:fn.EndByte], fn.Text)
}

func TestDecompose_GoSource(t *testing.T) {
	source := "package main\n\nfunc main() {}\n"
	root := parseTestSource(t, "main.go", source)

	assert.Equal(t, "source_file", root.Kind)
	kinds := make([]string, 0, len(root.Children))
	for _, c := range root.Children {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, "function_declaration")
}

func TestDecompose_AnonymousNodesKept(t *testing.T) {
	source := "def f():\n    pass\n"
	root := parseTestSource(t, "f.py", source)

	require.NotEmpty(t, root.Children)
	fn := root.Children[0]
	// function_definition includes anonymous children like "def", ":", so
	// the child count exceeds the named nodes alone.
	assert.Greater(t, len(fn.Children), 3)
}

func TestEntity_Payload(t *testing.T) {
	e := &Entity{
		Kind:      "function_definition",
		StartByte: 10,
		EndByte:   42,
		Order:     3,
		Text:      "def f(): pass",
		Children:  []*Entity{{Kind: "identifier"}},
	}
	p := e.Payload()
	assert.Equal(t, "function_definition", p.Kind)
	assert.Equal(t, uint32(10), p.StartByte)
	assert.Equal(t, uint32(42), p.EndByte)
	assert.Equal(t, 3, p.Order)
	assert.Equal(t, "def f(): pass", p.Text)
}

func TestLanguageForFile(t *testing.T) {
	supported := []string{"main.py", "app.js", "App.jsx", "mod.mjs", "legacy.cjs",
		"index.ts", "View.tsx", "lib.rs", "main.go", "util.c", "util.h",
		"engine.cpp", "engine.cc", "engine.cxx", "engine.hpp", "UPPER.PY"}
	for _, name := range supported {
		assert.NotNil(t, LanguageForFile(name), "%s should be supported", name)
	}

	unsupported := []string{"README.md", "data.json", "Makefile", "script.sh", "noext"}
	for _, name := range unsupported {
		assert.Nil(t, LanguageForFile(name), "%s should not be supported", name)
	}
}

func TestSupportedExtensions_Sorted(t *testing.T) {
	exts := SupportedExtensions()
	require.NotEmpty(t, exts)
	for i := 1; i < len(exts); i++ {
		assert.LessOrEqual(t, exts[i-1], exts[i], "extensions should be sorted")
	}
	assert.Contains(t, exts, ".py")
	assert.Contains(t, exts, ".go")
}
