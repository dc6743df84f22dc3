package compile_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/compile"
)

// recorded builds an analysis where every source produces one class named after it.
func recorded(deps map[string][]string, stamps map[string]string) *domain.Analysis {
	a := domain.NewAnalysis("t", "/b", "/b/classes", "fp")
	for src, hash := range stamps {
		a.Stamps[src] = domain.Stamp{Hash: hash, LastModified: 1}
		a.Sources[src] = domain.SourceAnalysis{
			Products:     []domain.Product{{Class: src, Path: src + ".class"}},
			Dependencies: deps[src],
		}
	}
	return a
}

func stampsOf(hashes map[string]string) map[string]domain.Stamp {
	out := make(map[string]domain.Stamp, len(hashes))
	for src, hash := range hashes {
		out[src] = domain.Stamp{Hash: hash, LastModified: 1}
	}
	return out
}

func TestInvalidate(t *testing.T) {
	// C uses B, B uses A, D stands alone.
	deps := map[string][]string{"B": {"A"}, "C": {"B"}}
	prev := recorded(deps, map[string]string{"A": "1", "B": "1", "C": "1", "D": "1"})

	tests := []struct {
		name    string
		prev    *domain.Analysis
		sources []string
		hashes  map[string]string
		want    compile.Plan
	}{
		{
			name:    "no prior analysis",
			prev:    nil,
			sources: []string{"B", "A", "A"},
			hashes:  map[string]string{"A": "1", "B": "1"},
			want:    compile.Plan{Invalidated: []string{"A", "B"}, StampsChanged: true},
		},
		{
			name:    "unchanged",
			prev:    prev,
			sources: []string{"A", "B", "C", "D"},
			hashes:  map[string]string{"A": "1", "B": "1", "C": "1", "D": "1"},
			want:    compile.Plan{},
		},
		{
			name:    "changed source invalidates transitive dependents",
			prev:    prev,
			sources: []string{"A", "B", "C", "D"},
			hashes:  map[string]string{"A": "2", "B": "1", "C": "1", "D": "1"},
			want:    compile.Plan{Invalidated: []string{"A", "B", "C"}, StampsChanged: true},
		},
		{
			name:    "leaf change stays local",
			prev:    prev,
			sources: []string{"A", "B", "C", "D"},
			hashes:  map[string]string{"A": "1", "B": "1", "C": "2", "D": "1"},
			want:    compile.Plan{Invalidated: []string{"C"}, StampsChanged: true},
		},
		{
			name:    "new source",
			prev:    prev,
			sources: []string{"A", "B", "C", "D", "E"},
			hashes:  map[string]string{"A": "1", "B": "1", "C": "1", "D": "1", "E": "1"},
			want:    compile.Plan{Invalidated: []string{"E"}, StampsChanged: true},
		},
		{
			name:    "deleted source invalidates its dependents",
			prev:    prev,
			sources: []string{"A", "C", "D"},
			hashes:  map[string]string{"A": "1", "C": "1", "D": "1"},
			want:    compile.Plan{Invalidated: []string{"C"}, Deleted: []string{"B"}, StampsChanged: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compile.Invalidate(tt.prev, tt.sources, stampsOf(tt.hashes))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Invalidate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInvalidate_TouchedSourceOnlyRefreshesStamps(t *testing.T) {
	prev := recorded(nil, map[string]string{"A": "1"})
	stamps := map[string]domain.Stamp{"A": {Hash: "1", LastModified: 99}}

	plan := compile.Invalidate(prev, []string{"A"}, stamps)

	assert.True(t, plan.UpToDate())
	assert.True(t, plan.StampsChanged)
}

func TestMergeAndStale(t *testing.T) {
	prev := domain.NewAnalysis("t", "/b", "/b/classes", "fp")
	prev.Sources["a/A.scala"] = domain.SourceAnalysis{Products: []domain.Product{{Class: "p.Shared", Path: "p/Shared.class"}}}
	prev.Sources["c/C.scala"] = domain.SourceAnalysis{Products: []domain.Product{{Class: "p.Shared", Path: "p/Shared.class"}}}
	prev.Sources["d/D.scala"] = domain.SourceAnalysis{Products: []domain.Product{{Class: "p.Gone", Path: "p/Gone.class"}}}
	prev.Sources["e/E.scala"] = domain.SourceAnalysis{Products: []domain.Product{{Class: "p.Old", Path: "p/Old.class"}}}

	plan := compile.Plan{Invalidated: []string{"e/E.scala"}, Deleted: []string{"a/A.scala", "d/D.scala"}}
	compiled := map[string]domain.SourceAnalysis{
		"e/E.scala": {Products: []domain.Product{{Class: "p.New", Path: "p/New.class"}}},
	}
	stamps := map[string]domain.Stamp{"c/C.scala": {Hash: "c"}, "e/E.scala": {Hash: "e2"}}
	base := domain.NewAnalysis("t", "/b", "/b/classes", "fp2")

	next := compile.Merge(prev, plan, compiled, stamps, base)

	assert.Equal(t, []string{"c/C.scala", "e/E.scala"}, next.SourceNames())
	assert.Equal(t, "fp2", next.OptionsFingerprint)
	assert.Equal(t, stamps, next.Stamps)
	assert.Len(t, prev.Sources, 4, "merge must not modify the prior analysis")

	// p/Shared.class survives because C.scala still produces it.
	assert.Equal(t, []string{"p/Gone.class", "p/Old.class"}, compile.Stale(prev, next))
	assert.Nil(t, compile.Stale(nil, next))
}

func TestFingerprint_IgnoresBuildLocation(t *testing.T) {
	at := func(root string) string {
		r := domain.PathRebaser{BuildRoot: root, WorkDir: root + "/.kiln/work"}
		return compile.Fingerprint(r, []string{root + "/3rdparty/lib.jar", root + "/.kiln/work/classes/dep"}, []string{"-S-deprecation"})
	}

	assert.Equal(t, at("/home/a/build"), at("/tmp/ci/build"))

	r := domain.PathRebaser{BuildRoot: "/b"}
	assert.NotEqual(t,
		compile.Fingerprint(r, nil, []string{"-S-Xfatal-warnings"}),
		compile.Fingerprint(r, nil, nil))
}
