package domain_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
)

func sharedAnalysis() *domain.Analysis {
	a := domain.NewAnalysis("src/scala/acme:shared", "/build", "/build/.kiln/work/classes/x", "fp")
	a.Sources["src/scala/acme/a/A.scala"] = domain.SourceAnalysis{
		Products: []domain.Product{{Class: "acme.a.Shared", Path: "acme/a/Shared.class"}},
	}
	a.Sources["src/scala/acme/b/B.scala"] = domain.SourceAnalysis{
		Products:     []domain.Product{{Class: "acme.b.Shared", Path: "acme/b/Shared.class"}},
		Dependencies: []string{"src/scala/acme/a/A.scala"},
	}
	a.Stamps["src/scala/acme/a/A.scala"] = domain.Stamp{Hash: "1", LastModified: 10}
	return a
}

func TestAnalysis_ProductsKeepEveryProducer(t *testing.T) {
	a := sharedAnalysis()

	products := a.Products()

	want := domain.Products{"Shared.class": {"acme/a/Shared.class", "acme/b/Shared.class"}}
	if diff := cmp.Diff(want, products); diff != "" {
		t.Errorf("Products() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, products.Count())
}

func TestAnalysis_Producers(t *testing.T) {
	a := sharedAnalysis()
	a.Sources["src/scala/acme/a/C.scala"] = domain.SourceAnalysis{
		Products: []domain.Product{{Class: "acme.a.Shared", Path: "acme/a/Shared.class"}},
	}

	producers := a.Producers()

	assert.Equal(t, []string{"src/scala/acme/a/A.scala", "src/scala/acme/a/C.scala"}, producers["acme/a/Shared.class"])
	assert.Equal(t, []string{"src/scala/acme/b/B.scala"}, producers["acme/b/Shared.class"])
}

func TestAnalysis_CloneIsDeep(t *testing.T) {
	a := sharedAnalysis()

	c := a.Clone()
	c.Stamps["new"] = domain.Stamp{Hash: "2"}
	src := c.Sources["src/scala/acme/a/A.scala"]
	src.Products[0].Path = "mutated"

	_, leaked := a.Stamps["new"]
	assert.False(t, leaked)
	assert.Equal(t, "acme/a/Shared.class", a.Sources["src/scala/acme/a/A.scala"].Products[0].Path)
}

func TestLoadResult(t *testing.T) {
	assert.Equal(t, domain.LoadAbsent, domain.Absent().Status)
	assert.Equal(t, "absent", domain.Absent().Status.String())

	loaded := domain.Loaded(sharedAnalysis())
	require.NotNil(t, loaded.Analysis)
	assert.Equal(t, "loaded", loaded.Status.String())

	corrupt := domain.Corrupt(domain.ErrCorruptAnalysis)
	assert.Nil(t, corrupt.Analysis)
	assert.ErrorIs(t, corrupt.Err, domain.ErrCorruptAnalysis)
	assert.Equal(t, "corrupt", corrupt.Status.String())
}

func TestProducts_AddMerge(t *testing.T) {
	p := domain.Products{}
	p.Add("Shared.class", "b/Shared.class")
	p.Add("Shared.class", "a/Shared.class")
	p.Add("Shared.class", "a/Shared.class")

	other := domain.Products{"Util.class": {"u/Util.class"}, "Shared.class": {"c/Shared.class"}}
	p.Merge(other)

	assert.Equal(t, []string{"Shared.class", "Util.class"}, p.Names())
	assert.Equal(t, []string{"a/Shared.class", "b/Shared.class", "c/Shared.class"}, p["Shared.class"])
	assert.Equal(t, 4, p.Count())
}

func TestLayout(t *testing.T) {
	l := domain.Layout{WorkDir: "/w", CacheDir: "/c"}

	assert.Equal(t, filepath.Join("/w", "analysis"), l.AnalysisDir())
	assert.Equal(t, filepath.Join("/w", "classes", "a.b"), l.ClassesDir("a.b"))
	assert.Equal(t, filepath.Join("/w", "staging"), l.StagingRoot())
	assert.Equal(t, filepath.Join("/w", "jars", "a.b.z.jar"), l.JarPath("a.b", ""))
	assert.Equal(t, filepath.Join("/w", "jars", "a.b.jar"), l.JarPath("a.b", "jar"))
	assert.Equal(t, filepath.Join("/c", "pool", "k"), l.PoolDir("k"))
}

func TestDiagnostic_String(t *testing.T) {
	d := domain.Diagnostic{Severity: domain.SeverityWarning, Message: "unused import", Path: "A.scala", Line: 3, Column: 7}
	assert.Equal(t, "A.scala:3:7: warning: unused import", d.String())

	cd := domain.ClassifiedDiagnostic{Diagnostic: d, Class: domain.FatalWarning}
	assert.Equal(t, "A.scala:3:7: warning-fatal: unused import", cd.String())
	assert.True(t, cd.Class.IsFatal())

	bare := domain.Diagnostic{Severity: domain.SeverityInfo, Message: "done"}
	assert.Equal(t, "info: done", bare.String())
}

func TestPathRebaser(t *testing.T) {
	r := domain.PathRebaser{BuildRoot: "/build", WorkDir: "/build/.kiln/work"}

	assert.Equal(t, "$WORKDIR/classes/a", r.Rebase("/build/.kiln/work/classes/a"))
	assert.Equal(t, "$BUILD_ROOT/3rdparty/scala-library.jar", r.Rebase("/build/3rdparty/scala-library.jar"))
	assert.Equal(t, "$BUILD_ROOT", r.Rebase("/build"))
	assert.Equal(t, "/opt/jdk/lib/rt.jar", r.Rebase("/opt/jdk/lib/rt.jar"))
	assert.Equal(t, "/buildings/x.jar", r.Rebase("/buildings/x.jar"))
	assert.Equal(t, "src/A.scala", r.Rebase("src/A.scala"))
	assert.Equal(t, []string{"$WORKDIR", "rel"}, r.RebaseAll([]string{"/build/.kiln/work", "rel"}))
}
