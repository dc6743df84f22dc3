package fs_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
)

func TestResolver_ResolveSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/scala/acme/util/A.scala", "")
	writeFile(t, root, "src/scala/acme/util/deep/B.scala", "")
	writeFile(t, root, "src/scala/acme/util/C.java", "")
	writeFile(t, root, "src/scala/acme/util/notes.txt", "")

	resolver := fs.NewResolver()

	resolved, err := resolver.ResolveSources(root, []string{
		"src/scala/acme/util/**/*.scala",
		"./src/scala/acme/util/C.java",
		"src/scala/acme/util/A.scala",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"src/scala/acme/util/A.scala",
		"src/scala/acme/util/C.java",
		"src/scala/acme/util/deep/B.scala",
	}, resolved)
}

func TestResolver_ResolveSources_EmptyGlob(t *testing.T) {
	resolver := fs.NewResolver()

	resolved, err := resolver.ResolveSources(t.TempDir(), []string{"src/**/*.scala"})

	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestResolver_ResolveSources_MissingLiteral(t *testing.T) {
	resolver := fs.NewResolver()

	_, err := resolver.ResolveSources(t.TempDir(), []string{"src/Missing.scala"})

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "source not found")
}

func TestResolver_ResolveSources_BadPattern(t *testing.T) {
	resolver := fs.NewResolver()

	_, err := resolver.ResolveSources(t.TempDir(), []string{"src/["})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to glob path")
}
