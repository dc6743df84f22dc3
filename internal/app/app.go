// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/compile"
	"go.trai.ch/kiln/internal/engine/pool"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	deps         compile.Deps
	newFactory   ports.WorkerFactoryProvider
	newStore     ports.AnalysisStoreFactory
	dir          string
}

// New creates a new App instance. The project configuration is searched from the working directory.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	deps compile.Deps,
	newFactory ports.WorkerFactoryProvider,
	newStore ports.AnalysisStoreFactory,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		deps:         deps,
		newFactory:   newFactory,
		newStore:     newStore,
		dir:          ".",
	}
}

// WithDir sets the directory the project configuration is searched from.
func (a *App) WithDir(dir string) *App {
	a.dir = dir
	return a
}

// RunOptions holds command line overrides of the project configuration.
type RunOptions struct {
	// FatalWarnings replaces the platform default when set.
	FatalWarnings *bool
	DebugSymbols  bool
	// CompilerArgs are appended to the configured compiler arguments.
	CompilerArgs   []string
	PoolSize       int
	Parallelism    int
	Jar            bool
	ExportPortable bool
	WorkDir        string
	CacheDir       string
	Timeout        time.Duration
}

// Build compiles the named targets and everything they depend on. Without names every target of the
// project is compiled. The result is returned even when the build fails.
func (a *App) Build(ctx context.Context, targetNames []string, opts RunOptions) (*domain.BuildResult, error) {
	project, err := a.load(opts)
	if err != nil {
		return nil, err
	}

	graph := project.Graph
	if len(targetNames) > 0 {
		graph, err = graph.Subgraph(domain.NewInternedStrings(targetNames))
		if err != nil {
			return nil, err
		}
	}
	if graph.TargetCount() == 0 {
		return nil, domain.ErrNoTargetsSpecified
	}

	factory, err := a.newFactory(project.Compile)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create compiler worker factory")
	}
	workers := pool.New(factory, project.Layout.CacheDir, project.Compile.PoolSize, a.logger)
	defer func() {
		if err := workers.Close(); err != nil {
			a.logger.Warn("failed to close compiler workers: " + err.Error())
		}
	}()

	cfg := compile.Config{
		BuildRoot: project.Root,
		Layout:    project.Layout,
		Platform:  project.Platform,
		Settings:  project.Compile,
	}
	build, err := compile.NewOrchestrator(cfg, a.deps, a.newStore(project.Layout), workers).Run(ctx, graph)
	a.report(build)
	return build, err
}

// Export writes the portable analysis of a target to w.
func (a *App) Export(ctx context.Context, target string, w io.Writer, opts RunOptions) error {
	project, err := a.load(opts)
	if err != nil {
		return err
	}
	if _, ok := project.Graph.Get(domain.NewInternedString(target)); !ok {
		return zerr.With(zerr.Wrap(domain.ErrTargetNotFound, "export analysis"), "target", target)
	}

	data, err := a.newStore(project.Layout).Export(ctx, target)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return zerr.Wrap(err, "failed to write analysis")
	}
	return nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Work removes analysis records, class directories and jars.
	Work bool
	// Cache removes bootstrapped compiler state shared between builds.
	Cache bool
}

// Clean removes build outputs and caches based on the provided options.
func (a *App) Clean(_ context.Context, options CleanOptions, opts RunOptions) error {
	project, err := a.load(opts)
	if err != nil {
		return err
	}

	var errs error
	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Work {
		remove(project.Layout.WorkDir, "work directory")
	}
	if options.Cache {
		remove(project.Layout.CacheDir, "compiler cache")
	}
	return errs
}

func (a *App) load(opts RunOptions) (*domain.Project, error) {
	project, err := a.configLoader.Load(a.dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if err := opts.apply(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (o *RunOptions) apply(p *domain.Project) error {
	if o.FatalWarnings != nil {
		p.Platform.FatalWarnings = *o.FatalWarnings
	}
	if o.DebugSymbols {
		p.Compile.DebugSymbols = true
	}
	p.Compile.Args = append(p.Compile.Args, o.CompilerArgs...)
	if o.PoolSize > 0 {
		p.Compile.PoolSize = o.PoolSize
	}
	if o.Parallelism > 0 {
		p.Compile.Parallelism = o.Parallelism
	}
	if o.Jar {
		p.Compile.Jar = true
	}
	if o.ExportPortable {
		p.Compile.ExportPortable = true
	}
	if o.Timeout > 0 {
		p.Compile.Timeout = o.Timeout
	}
	var err error
	if p.Layout.WorkDir, err = absOr(o.WorkDir, p.Layout.WorkDir); err != nil {
		return err
	}
	if p.Layout.CacheDir, err = absOr(o.CacheDir, p.Layout.CacheDir); err != nil {
		return err
	}
	return nil
}

// absOr returns dir made absolute, or fallback when dir is empty.
func absOr(dir, fallback string) (string, error) {
	if dir == "" {
		return fallback, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to resolve directory"), "path", dir)
	}
	return abs, nil
}

// report logs the per-build summary.
func (a *App) report(build *domain.BuildResult) {
	if build == nil {
		return
	}
	counts := map[domain.CompileState]int{}
	compiled := 0
	for _, res := range build.Targets {
		counts[res.State]++
		compiled += len(res.Invalidated)
	}
	a.logger.Info(fmt.Sprintf(
		"built %d target(s): %d succeeded, %d failed, %d skipped; %d source(s) compiled, %d class file(s)",
		len(build.Targets),
		counts[domain.StateSucceeded], counts[domain.StateFailed], counts[domain.StateSkipped],
		compiled, build.Products.Count(),
	))
	a.logger.Info(fmt.Sprintf(
		"compiler workers: %d bootstrap(s), %d created, %d discarded",
		build.Stats.Bootstraps, build.Stats.Created, build.Stats.Discarded,
	))
}
