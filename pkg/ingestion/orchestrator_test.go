package ingestion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cgtesting "github.com/kraklabs/codegraph/internal/testing"
	"github.com/kraklabs/codegraph/pkg/ingestion"
)

func runIngestion(t *testing.T, store *cgtesting.MemStore, files map[string]string, cfg ingestion.Config) *ingestion.Result {
	t.Helper()

	root := cgtesting.WriteTree(t, files)
	orch := ingestion.NewOrchestrator(store, nil, cfg)
	result, err := orch.Run(context.Background(), root)
	require.NoError(t, err)
	return result
}

func TestOrchestrator_BasicTree(t *testing.T) {
	store := cgtesting.NewMemStore()
	result := runIngestion(t, store, map[string]string{
		"main.py":          "def main():\n    pass\n",
		"pkg/util.py":      "def helper():\n    return 1\n",
		"pkg/deep/core.py": "x = 1\n",
	}, ingestion.Config{Workers: 4})

	assert.NotEmpty(t, result.RootID)
	assert.Equal(t, int64(2), result.Folders)
	assert.Equal(t, int64(3), result.Files)
	assert.Zero(t, result.ParseErrors)
	assert.Zero(t, result.StoreErrors)
	assert.Zero(t, result.TaskErrors)

	roots := store.NodesByKind(cgtesting.KindRoot)
	require.Len(t, roots, 1)

	// pkg hangs off the root as a super folder, deep off pkg as a sub folder.
	folders := store.NodesByKind(cgtesting.KindFolder)
	require.Len(t, folders, 2)
	byName := map[string]*cgtesting.Node{}
	for _, f := range folders {
		byName[f.Name] = f
	}
	require.Contains(t, byName, "pkg")
	require.Contains(t, byName, "deep")
	assert.True(t, byName["pkg"].Super)
	assert.Equal(t, roots[0].ID, byName["pkg"].ParentID)
	assert.False(t, byName["deep"].Super)
	assert.Equal(t, byName["pkg"].ID, byName["deep"].ParentID)

	// File placement follows the tree.
	fileNodes := store.NodesByKind(cgtesting.KindFile)
	require.Len(t, fileNodes, 3)
	for _, f := range fileNodes {
		assert.Equal(t, "py", f.Extension)
		switch f.Name {
		case "main.py":
			assert.Equal(t, roots[0].ID, f.ParentID)
			assert.True(t, f.Super)
		case "util.py":
			assert.Equal(t, byName["pkg"].ID, f.ParentID)
		case "core.py":
			assert.Equal(t, byName["deep"].ID, f.ParentID)
		}
	}

	assert.Positive(t, result.SuperEntities)
	assert.Positive(t, result.SubEntities)
}

func TestOrchestrator_RootName(t *testing.T) {
	store := cgtesting.NewMemStore()
	runIngestion(t, store, map[string]string{"a.py": "x = 1\n"},
		ingestion.Config{Name: "myproject"})

	roots := store.NodesByKind(cgtesting.KindRoot)
	require.Len(t, roots, 1)
	assert.Equal(t, "myproject", roots[0].Name)
}

func TestOrchestrator_DepthBound(t *testing.T) {
	store := cgtesting.NewMemStore()
	result := runIngestion(t, store, map[string]string{
		"nested.py": "class A:\n    def m(self):\n        if True:\n            return 1\n",
	}, ingestion.Config{})

	// Super entities sit at depth 0; with the default bound of 2 only one
	// level of sub-entities is created below them.
	entities := store.NodesByKind(cgtesting.KindEntity)
	require.NotEmpty(t, entities)
	for _, e := range entities {
		depth := store.EntityDepth(e.ID)
		assert.Less(t, depth, ingestion.DefaultMaxDepth, "entity %s exceeds the depth bound", e.ID)
	}
	assert.Equal(t, result.SuperEntities+result.SubEntities, int64(len(entities)))
}

func TestOrchestrator_MaxDepthOne(t *testing.T) {
	store := cgtesting.NewMemStore()
	result := runIngestion(t, store, map[string]string{
		"nested.py": "class A:\n    def m(self):\n        return 1\n",
	}, ingestion.Config{MaxDepth: 1})

	assert.Positive(t, result.SuperEntities)
	assert.Zero(t, result.SubEntities, "MaxDepth 1 leaves super entities childless")
}

func TestOrchestrator_SiblingOrderPreserved(t *testing.T) {
	store := cgtesting.NewMemStore()
	runIngestion(t, store, map[string]string{
		"mod.py": "a = 1\nb = 2\nc = 3\n",
	}, ingestion.Config{})

	files := store.NodesByKind(cgtesting.KindFile)
	require.Len(t, files, 1)

	supers := store.ChildrenOf(files[0].ID)
	require.Len(t, supers, 3)
	for i, e := range supers {
		assert.Equal(t, i+1, e.Entity.Order, "super entity order mirrors source position")
	}
}

func TestOrchestrator_DuplicateContent(t *testing.T) {
	store := cgtesting.NewMemStore()
	result := runIngestion(t, store, map[string]string{
		"a/one.py": "shared = True\n",
		"b/two.py": "shared = True\n",
		"c/new.py": "unique = True\n",
	}, ingestion.Config{Workers: 1})

	assert.Equal(t, int64(2), result.Files)
	assert.Equal(t, int64(1), result.DuplicateFiles)
	assert.Len(t, store.NodesByKind(cgtesting.KindFile), 2)
}

func TestOrchestrator_UnsupportedFilesSkipped(t *testing.T) {
	store := cgtesting.NewMemStore()
	result := runIngestion(t, store, map[string]string{
		"main.py":   "x = 1\n",
		"README.md": "# hi\n",
		"data.json": "{}\n",
	}, ingestion.Config{})

	assert.Equal(t, int64(1), result.Files)
	assert.Equal(t, int64(2), result.UnsupportedFiles)
}

func TestOrchestrator_GitignoreRules(t *testing.T) {
	store := cgtesting.NewMemStore()
	result := runIngestion(t, store, map[string]string{
		".gitignore":           "build/\n*.gen.py\n",
		"main.py":              "x = 1\n",
		"api.gen.py":           "generated = True\n",
		"build/out.py":         "built = True\n",
		"src/.gitignore":       "local.py\n",
		"src/app.py":           "app = True\n",
		"src/local.py":         "local = True\n",
		"other/local.py":       "kept = True\n",
		".git/hooks/sample.py": "hook = True\n",
	}, ingestion.Config{})

	names := map[string]bool{}
	for _, f := range store.NodesByKind(cgtesting.KindFile) {
		names[f.Name] = true
	}

	assert.True(t, names["main.py"])
	assert.True(t, names["app.py"])
	assert.False(t, names["api.gen.py"], "root .gitignore pattern should apply")
	assert.False(t, names["out.py"], "files under an ignored directory are never visited")
	assert.False(t, names["sample.py"], ".git is ignored by default")

	// src/local.py is excluded by the nested rules; other/local.py is kept
	// because those rules are scoped to src/.
	files := store.NodesByKind(cgtesting.KindFile)
	localCount := 0
	for _, f := range files {
		if f.Name == "local.py" {
			localCount++
		}
	}
	assert.Equal(t, 1, localCount)
	assert.Equal(t, int64(len(files)), result.Files)
}

func TestOrchestrator_ExtraIgnorePatterns(t *testing.T) {
	store := cgtesting.NewMemStore()
	result := runIngestion(t, store, map[string]string{
		"main.py":       "x = 1\n",
		"vendor/lib.py": "lib = True\n",
	}, ingestion.Config{ExtraIgnorePatterns: []string{"vendor/"}})

	assert.Equal(t, int64(1), result.Files)
	assert.Zero(t, result.Folders)
}

func TestOrchestrator_EmbeddingsForSuperEntities(t *testing.T) {
	store := cgtesting.NewMemStore()
	result := runIngestion(t, store, map[string]string{
		"mod.py": "def f():\n    return 42\n",
	}, ingestion.Config{})

	assert.Positive(t, result.EmbeddedChunks)
	assert.Zero(t, result.EmbedErrors)
	assert.Equal(t, int(result.EmbeddedChunks), store.VectorCount())

	// Placeholder vectors: 768 dimensions of 0.1.
	for _, e := range store.NodesByKind(cgtesting.KindEntity) {
		for _, vec := range store.Vectors(e.ID) {
			require.Len(t, vec, ingestion.DefaultEmbeddingDimensions)
			assert.Equal(t, 0.1, vec[0])
		}
	}

	// Only super entities carry vectors.
	for _, e := range store.NodesByKind(cgtesting.KindEntity) {
		if len(store.Vectors(e.ID)) > 0 {
			assert.True(t, e.Super, "vectors belong to super entities only")
		}
	}
}

func TestOrchestrator_SingleWorkerCompletes(t *testing.T) {
	store := cgtesting.NewMemStore()
	result := runIngestion(t, store, map[string]string{
		"a/b/c/deep.py": "x = 1\n",
		"a/b/mid.py":    "y = 2\n",
		"top.py":        "z = 3\n",
	}, ingestion.Config{Workers: 1, EmbedWorkers: 1})

	assert.Equal(t, int64(3), result.Files)
	assert.Equal(t, int64(3), result.Folders)
}

func TestOrchestrator_FolderFailureSkipsSubtree(t *testing.T) {
	store := cgtesting.NewMemStore()
	store.FailOn("createSuperFolder", errors.New("store down"))

	result := runIngestion(t, store, map[string]string{
		"main.py":     "x = 1\n",
		"pkg/util.py": "y = 2\n",
	}, ingestion.Config{})

	assert.Equal(t, int64(1), result.StoreErrors)
	assert.Equal(t, int64(1), result.Files, "files outside the failed subtree still ingest")
	assert.Zero(t, result.Folders)
}

func TestOrchestrator_RootCreateFailureIsFatal(t *testing.T) {
	store := cgtesting.NewMemStore()
	store.FailOn("createRoot", errors.New("store down"))

	root := cgtesting.WriteTree(t, map[string]string{"a.py": "x = 1\n"})
	orch := ingestion.NewOrchestrator(store, nil, ingestion.Config{})
	_, err := orch.Run(context.Background(), root)
	require.Error(t, err)

	var swe *ingestion.StoreWriteError
	assert.ErrorAs(t, err, &swe)
}

func TestOrchestrator_RootValidation(t *testing.T) {
	store := cgtesting.NewMemStore()
	orch := ingestion.NewOrchestrator(store, nil, ingestion.Config{})

	_, err := orch.Run(context.Background(), "/does/not/exist")
	assert.Error(t, err)

	root := cgtesting.WriteTree(t, map[string]string{"file.py": "x = 1\n"})
	_, err = orch.Run(context.Background(), root+"/file.py")
	assert.Error(t, err, "a file is not a valid ingestion root")
}

func TestOrchestrator_ParseErrorDoesNotAbort(t *testing.T) {
	store := cgtesting.NewMemStore()

	// Tree-sitter recovers from almost anything, so a hard parse error is
	// rare; unparseable bytes still produce a tree with error nodes. The
	// run must complete either way.
	result := runIngestion(t, store, map[string]string{
		"bad.py":  "\x00\x01\x02 def ???",
		"good.py": "x = 1\n",
	}, ingestion.Config{})

	assert.Equal(t, result.Files+result.ParseErrors, int64(2))
	assert.GreaterOrEqual(t, result.Files, int64(1))
}
