package analysis_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/analysis"
	"go.trai.ch/kiln/internal/core/domain"
)

// beforeStamps returns the export up to the stamps section.
func beforeStamps(data []byte) string {
	before, _, _ := strings.Cut(string(data), "stamps")
	return before
}

func exportFrom(t *testing.T, root string, lastModified int64) []byte {
	t.Helper()
	layout := domain.Layout{WorkDir: filepath.Join(root, ".kiln", "work")}
	store := analysis.NewStore(layout)
	ctx := context.Background()

	a := domain.NewAnalysis(target, root, layout.ClassesDir("src.scala.org.acme.util.util"), "fp-1")
	a.Sources["src/scala/org/acme/util/B.scala"] = domain.SourceAnalysis{
		Products:     []domain.Product{{Class: "org.acme.util.B", Path: "org/acme/util/B.class"}},
		Dependencies: []string{"src/scala/org/acme/util/A.scala"},
		Resources:    []string{"util-plugin.xml"},
		Binaries: []string{
			filepath.Join(layout.ClassesDir("src.scala.org.acme.core.core"), "org/acme/core/Core.class"),
			filepath.Join(root, "3rdparty", "scala-library.jar"),
		},
	}
	a.Sources["src/scala/org/acme/util/A.scala"] = domain.SourceAnalysis{
		Products: []domain.Product{
			{Class: "org.acme.util.A", Path: "org/acme/util/A.class"},
			{Class: "org.acme.util.A$", Path: "org/acme/util/A$.class"},
		},
	}
	a.Stamps["src/scala/org/acme/util/A.scala"] = domain.Stamp{Hash: "h1", LastModified: lastModified}
	a.Stamps["src/scala/org/acme/util/B.scala"] = domain.Stamp{Hash: "h2", LastModified: lastModified}

	require.NoError(t, store.Commit(ctx, a))
	data, err := store.Export(ctx, target)
	require.NoError(t, err)
	return data
}

func TestExport_Portability(t *testing.T) {
	t.Parallel()

	first := exportFrom(t, t.TempDir(), 1700000000000)
	second := exportFrom(t, t.TempDir(), 1800000000000)

	assert.Equal(t, beforeStamps(first), beforeStamps(second))
	assert.NotEqual(t, string(first), string(second), "stamps carry wall-clock values")
	assert.NotContains(t, beforeStamps(first), "lastModified")
}

func TestExport_Format(t *testing.T) {
	t.Parallel()

	data := string(exportFrom(t, t.TempDir(), 42))

	want := `format version:
1
target:
src/scala/org/acme/util:util
options:
fingerprint: fp-1
sources:
2 items
src/scala/org/acme/util/A.scala
src/scala/org/acme/util/B.scala
products:
3 items
src/scala/org/acme/util/A.scala -> org/acme/util/A$.class (org.acme.util.A$)
src/scala/org/acme/util/A.scala -> org/acme/util/A.class (org.acme.util.A)
src/scala/org/acme/util/B.scala -> org/acme/util/B.class (org.acme.util.B)
resources:
1 items
src/scala/org/acme/util/B.scala -> util-plugin.xml
dependencies:
3 items
src/scala/org/acme/util/B.scala -> binary:$BUILD_ROOT/3rdparty/scala-library.jar
src/scala/org/acme/util/B.scala -> binary:$WORKDIR/classes/src.scala.org.acme.core.core/org/acme/core/Core.class
src/scala/org/acme/util/B.scala -> src/scala/org/acme/util/A.scala
stamps:
2 items
src/scala/org/acme/util/A.scala -> hash(h1) lastModified(42)
src/scala/org/acme/util/B.scala -> hash(h2) lastModified(42)
`
	assert.Equal(t, want, data)
}

func TestExport_Missing(t *testing.T) {
	t.Parallel()
	store := analysis.NewStore(domain.Layout{WorkDir: t.TempDir()})

	_, err := store.Export(context.Background(), target)

	require.ErrorIs(t, err, domain.ErrTargetNotFound)
}
