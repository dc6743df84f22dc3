package packager_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/packager"
	"go.trai.ch/kiln/internal/core/domain"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func newPackager() *packager.Packager {
	return packager.New(fs.NewWalker())
}

func TestPromote_MovesOutputAndRemovesStale(t *testing.T) {
	work := t.TempDir()
	staging := filepath.Join(work, "staging", "t-1")
	classes := filepath.Join(work, "classes", "t")

	writeFile(t, classes, "org/acme/Old.class", "old")
	writeFile(t, classes, "org/gone/Gone.class", "gone")
	writeFile(t, classes, "org/acme/Kept.class", "kept")
	writeFile(t, staging, "org/acme/New.class", "new")
	writeFile(t, staging, "org/acme/Old.class", "recompiled")

	err := newPackager().Promote(context.Background(), &domain.PromoteRequest{
		StagingDir: staging,
		ClassesDir: classes,
		Stale:      []string{"org/acme/Old.class", "org/gone/Gone.class", "org/missing/Missing.class"},
	})
	require.NoError(t, err)

	files, err := fs.NewWalker().RelativeFiles(classes)
	require.NoError(t, err)
	assert.Equal(t, []string{"org/acme/Kept.class", "org/acme/New.class", "org/acme/Old.class"}, files)
	assert.NoDirExists(t, filepath.Join(classes, "org", "gone"))
	assert.NoDirExists(t, staging)

	data, err := os.ReadFile(filepath.Join(classes, "org", "acme", "Old.class"))
	require.NoError(t, err)
	assert.Equal(t, "recompiled", string(data))
}

func TestPromote_PluginMetadataPlacement(t *testing.T) {
	work := t.TempDir()
	staging := filepath.Join(work, "staging")
	classes := filepath.Join(work, "classes")

	writeFile(t, staging, "org/acme/plugin/Plugin.class", "p")
	writeFile(t, staging, "org/acme/plugin/acme-plugin.xml", "<meta/>")

	err := newPackager().Promote(context.Background(), &domain.PromoteRequest{
		StagingDir: staging,
		ClassesDir: classes,
		Plugin:     &domain.PluginInfo{Name: "acme", Classname: "org.acme.plugin.Plugin"},
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(classes, "acme-plugin.xml"))
	assert.NoFileExists(t, filepath.Join(classes, "org", "acme", "plugin", "acme-plugin.xml"))

	descriptor, err := os.ReadFile(filepath.Join(classes, domain.PluginDescriptorName))
	require.NoError(t, err)
	assert.Equal(t,
		"<plugin>\n  <name>acme</name>\n  <classname>org.acme.plugin.Plugin</classname>\n</plugin>\n",
		string(descriptor))
}

func TestPromote_Failure(t *testing.T) {
	work := t.TempDir()
	classes := filepath.Join(work, "classes")
	require.NoError(t, os.WriteFile(classes, []byte("not a directory"), 0o600))

	err := newPackager().Promote(context.Background(), &domain.PromoteRequest{
		StagingDir: filepath.Join(work, "staging"),
		ClassesDir: classes,
	})

	require.ErrorIs(t, err, domain.ErrPackagingFailed)
}

func TestPromote_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newPackager().Promote(ctx, &domain.PromoteRequest{StagingDir: t.TempDir(), ClassesDir: t.TempDir()})

	require.ErrorIs(t, err, context.Canceled)
}

func TestCollect(t *testing.T) {
	classes := t.TempDir()
	writeFile(t, classes, "acme/a/Shared.class", "a")
	writeFile(t, classes, "acme/b/Shared.class", "b")
	writeFile(t, classes, "acme/Util.class", "u")
	writeFile(t, classes, domain.PluginDescriptorName, "<plugin/>")

	products, err := newPackager().Collect(classes)
	require.NoError(t, err)

	assert.Equal(t, domain.Products{
		"Shared.class": {"acme/a/Shared.class", "acme/b/Shared.class"},
		"Util.class":   {"acme/Util.class"},
	}, products)
}

func TestJar_EntryOrder(t *testing.T) {
	classes := t.TempDir()
	writeFile(t, classes, "org/acme/B.class", "b")
	writeFile(t, classes, "org/acme/A.class", "a")
	writeFile(t, classes, "acme-plugin.xml", "<meta/>")
	jar := filepath.Join(t.TempDir(), "jars", "org.acme.z.jar")

	require.NoError(t, newPackager().Jar(context.Background(), classes, jar))

	r, err := zip.OpenReader(jar)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		assert.True(t, f.Modified.Equal(time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)), f.Name)
	}
	assert.Equal(t, []string{
		"META-INF/MANIFEST.MF",
		"acme-plugin.xml",
		"org/",
		"org/acme/",
		"org/acme/A.class",
		"org/acme/B.class",
	}, names)
}

func TestJar_Deterministic(t *testing.T) {
	build := func(mtime time.Time) []byte {
		classes := t.TempDir()
		writeFile(t, classes, "org/acme/A.class", "a")
		writeFile(t, classes, "org/acme/util/U.class", "u")
		for _, rel := range []string{"org/acme/A.class", "org/acme/util/U.class"} {
			p := filepath.Join(classes, filepath.FromSlash(rel))
			require.NoError(t, os.Chtimes(p, mtime, mtime))
		}

		jar := filepath.Join(t.TempDir(), "out.jar")
		require.NoError(t, newPackager().Jar(context.Background(), classes, jar))
		data, err := os.ReadFile(jar)
		require.NoError(t, err)
		return data
	}

	first := build(time.Unix(1_600_000_000, 0))
	second := build(time.Unix(1_700_000_000, 0))

	assert.True(t, bytes.Equal(first, second), "jar bytes differ between identical inputs")
}

func TestJar_ReplacesExisting(t *testing.T) {
	classes := t.TempDir()
	writeFile(t, classes, "A.class", "a")
	jar := filepath.Join(t.TempDir(), "out.jar")
	require.NoError(t, os.WriteFile(jar, []byte("stale"), 0o600))

	require.NoError(t, newPackager().Jar(context.Background(), classes, jar))

	r, err := zip.OpenReader(jar)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	assert.Len(t, r.File, 2)

	entries, err := os.ReadDir(filepath.Dir(jar))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
