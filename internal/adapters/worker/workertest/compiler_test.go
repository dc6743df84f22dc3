package workertest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/worker/workertest"
	"go.trai.ch/kiln/internal/core/domain"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestCompile_ExitCodeFollowsFatalArgs(t *testing.T) {
	root := t.TempDir()
	write(t, root, "A.scala", "warn deprecated\n")
	write(t, root, "B.java", "warn raw type\n")

	tests := []struct {
		name   string
		source string
		args   []string
		want   int
	}{
		{"scala lenient", "A.scala", nil, 0},
		{"scala strict", "A.scala", []string{"-S-Xfatal-warnings"}, 1},
		{"scala ignores javac flag", "A.scala", []string{"-C-Werror"}, 0},
		{"java strict", "B.java", []string{"-C-Werror"}, 1},
		{"java ignores scalac flag", "B.java", []string{"-S-Xfatal-warnings"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := workertest.Compile(context.Background(), &domain.CompileRequest{
				BuildRoot: root, Sources: []string{tt.source}, OutputDir: t.TempDir(), Args: tt.args,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.ExitCode)
		})
	}
}

func TestCompile_OutputsAndDebugMarker(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/P.scala", "package org.acme\nclass Plugin\nobject Plugin\nresource acme-plugin.xml\n")
	out := t.TempDir()

	res, err := workertest.Compile(context.Background(), &domain.CompileRequest{
		BuildRoot: root,
		Sources:   []string{"src/P.scala"},
		Classpath: []string{"/deps/scala-library.jar", "/deps/classes"},
		OutputDir: out,
		Args:      []string{"-S-g:vars"},
	})
	require.NoError(t, err)

	analysis := res.Sources["src/P.scala"]
	assert.Equal(t, []domain.Product{
		{Class: "org.acme.Plugin", Path: "org/acme/Plugin.class"},
		{Class: "org.acme.Plugin$", Path: "org/acme/Plugin$.class"},
	}, analysis.Products)
	assert.Equal(t, []string{"/deps/scala-library.jar"}, analysis.Binaries)
	assert.Equal(t, []string{"org/acme/acme-plugin.xml"}, analysis.Resources)
	assert.FileExists(t, filepath.Join(out, "org", "acme", "acme-plugin.xml"))

	data, err := os.ReadFile(filepath.Join(out, "org", "acme", "Plugin.class"))
	require.NoError(t, err)
	assert.Contains(t, string(data), workertest.DebugMarker)
}

func TestWorker_CrashAndCancel(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Crash.scala", "crash\n")
	write(t, root, "Hang.scala", "hang\n")

	f := workertest.NewFactory("test")
	require.NoError(t, f.Bootstrap(context.Background(), t.TempDir()))
	assert.Equal(t, 1, f.Bootstraps())

	w, err := f.New(context.Background(), t.TempDir())
	require.NoError(t, err)
	_, err = w.Compile(context.Background(), &domain.CompileRequest{BuildRoot: root, Sources: []string{"Crash.scala"}})
	require.ErrorIs(t, err, workertest.ErrCrashed)
	assert.False(t, w.Healthy())

	w, err = f.New(context.Background(), t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Compile(ctx, &domain.CompileRequest{BuildRoot: root, Sources: []string{"Hang.scala"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, w.Healthy())
	assert.Equal(t, 2, f.Created())
}
