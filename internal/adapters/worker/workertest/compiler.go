// Package workertest provides a small line-oriented toy compiler and an in-process worker factory
// for tests that need real compiler output without a JVM.
//
// Every source file is read line by line:
//
//	package a.b        sets the package of following declarations
//	class Name         emits a/b/Name.class (also trait and interface)
//	object Name        emits a/b/Name$.class
//	uses path          records a dependency on another build-root relative source
//	resource name      writes a/b/name next to the classes
//	warn message       reports a warning on that line
//	error message      reports an error on that line
//	hang               blocks until the request is canceled
//	crash              kills the worker
package workertest

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// ErrCrashed is returned by Compile for a source containing a crash directive.
var ErrCrashed = zerr.New("compiler crashed")

const (
	scalaFatal = "-S-Xfatal-warnings"
	javaFatal  = "-C-Werror"
)

// DebugMarker is appended to every class file compiled with debug symbols.
const DebugMarker = "debug-symbols"

// Compile compiles req.Sources into req.OutputDir.
func Compile(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error) {
	result := &domain.CompileResult{Sources: make(map[string]domain.SourceAnalysis, len(req.Sources))}
	debug := slices.Contains(req.Args, "-C-g") || slices.Contains(req.Args, "-S-g:vars")

	var binaries []string
	for _, entry := range req.Classpath {
		if strings.HasSuffix(entry, ".jar") {
			binaries = append(binaries, entry)
		}
	}

	for _, src := range req.Sources {
		analysis, diags, err := compileSource(ctx, req, src, debug)
		if err != nil {
			return nil, err
		}
		analysis.Binaries = binaries
		result.Sources[src] = analysis
		result.Diagnostics = append(result.Diagnostics, diags...)
	}

	result.ExitCode = exitCode(result.Diagnostics, req.Args)
	return result, nil
}

func compileSource(
	ctx context.Context,
	req *domain.CompileRequest,
	src string,
	debug bool,
) (domain.SourceAnalysis, []domain.Diagnostic, error) {
	var analysis domain.SourceAnalysis
	var diags []domain.Diagnostic

	data, err := os.ReadFile(filepath.Join(req.BuildRoot, filepath.FromSlash(src)))
	if err != nil {
		return analysis, nil, zerr.With(zerr.Wrap(err, "failed to read source"), "source", src)
	}

	pkg := ""
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; scanner.Scan(); line++ {
		directive, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)

		switch directive {
		case "package":
			pkg = arg
		case "class", "trait", "interface", "object":
			name := arg
			if directive == "object" {
				name += "$"
			}
			rel := path.Join(strings.ReplaceAll(pkg, ".", "/"), name+".class")
			content := "compiled " + qualify(pkg, arg) + " from " + src + "\n"
			if debug {
				content += DebugMarker + "\n"
			}
			if err := write(req.OutputDir, rel, content); err != nil {
				return analysis, nil, err
			}
			analysis.Products = append(analysis.Products, domain.Product{Class: qualify(pkg, name), Path: rel})
		case "resource":
			rel := path.Join(strings.ReplaceAll(pkg, ".", "/"), arg)
			if err := write(req.OutputDir, rel, "resource from "+src+"\n"); err != nil {
				return analysis, nil, err
			}
			analysis.Resources = append(analysis.Resources, rel)
		case "uses":
			analysis.Dependencies = append(analysis.Dependencies, arg)
		case "warn":
			diags = append(diags, diagnostic(domain.SeverityWarning, arg, src, line))
		case "error":
			diags = append(diags, diagnostic(domain.SeverityError, arg, src, line))
		case "hang":
			<-ctx.Done()
			return analysis, nil, ctx.Err()
		case "crash":
			return analysis, nil, zerr.With(zerr.Wrap(ErrCrashed, "crash directive"), "source", src)
		}
	}
	return analysis, diags, scanner.Err()
}

func exitCode(diags []domain.Diagnostic, args []string) int {
	scalaStrict := slices.Contains(args, scalaFatal)
	javaStrict := slices.Contains(args, javaFatal)
	for _, d := range diags {
		switch {
		case d.Severity == domain.SeverityError:
			return 1
		case d.Severity != domain.SeverityWarning:
		case strings.HasSuffix(d.Path, ".java") && javaStrict:
			return 1
		case !strings.HasSuffix(d.Path, ".java") && scalaStrict:
			return 1
		}
	}
	return 0
}

func diagnostic(severity domain.Severity, msg, src string, line int) domain.Diagnostic {
	return domain.Diagnostic{Severity: severity, Message: msg, Path: src, Line: line, Column: 1}
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func write(root, rel, content string) error {
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", p)
	}
	if err := os.WriteFile(p, []byte(content), domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write output"), "path", p)
	}
	return nil
}
