// Package compile drives incremental compilation of targets: the per-target task state machine and the
// dependency-ordered build orchestrator.
package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/warnings"
	"go.trai.ch/zerr"
)

const (
	// JavaDebugArg makes javac emit full debug information.
	JavaDebugArg = "-C-g"
	// ScalaDebugArg makes scalac emit local variable debug information.
	ScalaDebugArg = "-S-g:vars"
	// PluginRequireArgPrefix is followed by the name of a compiler plugin that must be loaded.
	PluginRequireArgPrefix = "-S-Xplugin-require:"
)

// Config holds the build-wide settings a task compiles with.
type Config struct {
	BuildRoot string
	Layout    domain.Layout
	Platform  domain.PlatformSettings
	Settings  domain.CompileSettings
}

// Deps holds the stateless collaborators shared by every task of a build.
type Deps struct {
	Stamper   ports.SourceStamper
	Packager  ports.Packager
	Verifier  ports.OutputVerifier
	Logger    ports.Logger
	Telemetry ports.Telemetry
}

// Task compiles one target. It moves through PENDING, ANALYZING and COMPILING to SUCCEEDED or FAILED
// and never leaves an analysis on disk that disagrees with the class files next to it.
type Task struct {
	cfg    Config
	deps   Deps
	store  ports.AnalysisStore
	pool   ports.WorkerPool
	target domain.Target
	// depClassDirs are the class directories of the target's dependencies.
	depClassDirs []string

	mu    sync.Mutex
	state domain.CompileState
}

// NewTask creates a task for target in the PENDING state.
func NewTask(
	cfg Config,
	deps Deps,
	store ports.AnalysisStore,
	pool ports.WorkerPool,
	target domain.Target,
	depClassDirs []string,
) *Task {
	return &Task{
		cfg:          cfg,
		deps:         deps,
		store:        store,
		pool:         pool,
		target:       target,
		depClassDirs: depClassDirs,
		state:        domain.StatePending,
	}
}

// State returns the current state of the task.
func (t *Task) State() domain.CompileState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) setState(s domain.CompileState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// ClassesDir returns the class directory of the task's target.
func (t *Task) ClassesDir() string {
	return t.cfg.Layout.ClassesDir(t.target.NormalizedName())
}

// attempt is the state of a single run of a task. It is never persisted.
type attempt struct {
	name      string
	policy    warnings.Policy
	args      []string
	classpath []string
	// fingerprint identifies the classpath and arguments the attempt compiles with.
	fingerprint string
	stamps      map[string]domain.Stamp
	// prev is the record incremental compilation builds on; nil forces a full compile.
	prev *domain.Analysis
	// old is the valid record on disk, trusted or not. It describes the class directory until a commit
	// replaces it.
	old        *domain.Analysis
	plan       Plan
	staging    string
	vertex     ports.Vertex
	result     domain.TargetResult
	classesDir string
}

// Run executes the task and reports its outcome. It does not return an error: failures are recorded in
// the result, whose Err wraps domain.ErrCompileFailed for compile errors and fatal warnings.
func (t *Task) Run(ctx context.Context) domain.TargetResult {
	start := time.Now()
	a := &attempt{
		name:       t.target.Name.String(),
		classesDir: t.ClassesDir(),
	}
	a.result = domain.TargetResult{Target: a.name, ClassesDir: a.classesDir}

	if t.deps.Telemetry != nil {
		ctx, a.vertex = t.deps.Telemetry.Record(ctx, a.name)
	}

	if s := t.cfg.Settings.Timeout; s > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s)
		defer cancel()
	}

	err := t.run(ctx, a)
	if err != nil {
		t.setState(domain.StateFailed)
		a.result.Err = zerr.With(zerr.Wrap(err, "failed to compile target"), "target", a.name)
		a.result.Products = nil
		a.result.Jar = ""
	} else {
		t.setState(domain.StateSucceeded)
	}

	a.result.State = t.State()
	a.result.Duration = time.Since(start)
	if a.vertex != nil {
		if err == nil && a.plan.UpToDate() && a.prev != nil {
			a.vertex.Cached()
		} else {
			a.vertex.Complete(err)
		}
	}
	return a.result
}

func (t *Task) run(ctx context.Context, a *attempt) error {
	t.setState(domain.StateAnalyzing)
	if err := t.analyze(ctx, a); err != nil {
		return err
	}

	if a.prev != nil && a.plan.UpToDate() {
		return t.upToDate(ctx, a)
	}

	if a.old == nil {
		// Nothing on disk describes the class directory: start from an empty one.
		if err := t.reset(ctx, a); err != nil {
			return err
		}
	}

	compiled := map[string]domain.SourceAnalysis{}
	if len(a.plan.Invalidated) > 0 {
		t.setState(domain.StateCompiling)
		res, err := t.compile(ctx, a)
		if err != nil {
			t.cleanupFailed(a)
			return err
		}
		compiled = res.Sources
	} else if err := t.makeStaging(a); err != nil {
		return err
	}

	return t.commit(ctx, a, compiled)
}

// analyze resolves the compiler arguments, stamps the sources and loads the prior analysis.
func (t *Task) analyze(ctx context.Context, a *attempt) error {
	opts := t.target.Options
	policy, err := warnings.Resolve(warnings.PolicyInput{
		PlatformFatal: t.cfg.Platform.FatalWarnings,
		TargetFatal:   opts.FatalWarnings,
		EnabledArgs:   t.cfg.Settings.FatalWarningsEnabledArgs,
		DisabledArgs:  t.cfg.Settings.FatalWarningsDisabledArgs,
	})
	if err != nil {
		return err
	}
	a.policy = policy
	a.args = t.compilerArgs(policy)

	for _, advisory := range warnings.CheckArgs(t.rawArgs()) {
		t.log(a, domain.LogLevelWarn, advisory.Message)
		a.result.Diagnostics = append(a.result.Diagnostics, advisory)
	}

	a.classpath = t.classpath(a.classesDir)

	sources := t.target.SourcePaths()
	a.stamps, err = t.deps.Stamper.Stamp(ctx, t.cfg.BuildRoot, sources)
	if err != nil {
		return zerr.Wrap(err, "stamp sources")
	}

	a.fingerprint = Fingerprint(t.rebaser(), a.classpath, a.args)
	a.prev, a.old = t.loadPrevious(ctx, a, a.fingerprint)
	a.plan = Invalidate(a.prev, sources, a.stamps)
	a.result.Invalidated = a.plan.Invalidated

	a.result.Products = domain.Products{}
	if a.prev != nil {
		a.result.Products = a.prev.Products()
	}
	return nil
}

// loadPrevious returns the prior analysis when it can be trusted, or nil to force a full compile,
// together with the valid record on disk. An untrusted record stays on disk until a commit replaces it,
// so a failed full compile leaves the previous outputs in place.
func (t *Task) loadPrevious(ctx context.Context, a *attempt, fingerprint string) (prev, old *domain.Analysis) {
	loaded := t.store.Load(ctx, a.name)
	switch loaded.Status {
	case domain.LoadAbsent:
		return nil, nil
	case domain.LoadCorrupt:
		t.warn(a, "discarding corrupt analysis: "+loaded.Err.Error())
		return nil, nil
	}

	old = loaded.Analysis
	if old.OptionsFingerprint != fingerprint {
		t.log(a, domain.LogLevelInfo, "compiler options changed, recompiling all sources")
		return nil, old
	}

	if t.deps.Verifier != nil {
		ok, err := t.deps.Verifier.VerifyOutputs(a.classesDir, old.Outputs())
		if err != nil || !ok {
			t.warn(a, "outputs recorded in the analysis are missing, recompiling all sources")
			return nil, old
		}
	}
	return old, old
}

// upToDate finishes a task whose sources did not change. Only refreshed stamps are committed.
func (t *Task) upToDate(ctx context.Context, a *attempt) error {
	if a.plan.StampsChanged {
		next := a.prev.Clone()
		next.Stamps = a.stamps
		if err := t.store.Commit(context.WithoutCancel(ctx), next); err != nil {
			return err
		}
	}
	return t.finish(ctx, a, false)
}

func (t *Task) reset(ctx context.Context, a *attempt) error {
	if err := t.store.Delete(ctx, a.name); err != nil {
		return err
	}
	if err := os.RemoveAll(a.classesDir); err != nil {
		return zerr.With(errors.Join(domain.ErrPackagingFailed, err), "path", a.classesDir)
	}
	if t.cfg.Settings.Jar {
		_ = os.Remove(t.jarPath())
	}
	return nil
}

func (t *Task) makeStaging(a *attempt) error {
	root := t.cfg.Layout.StagingRoot()
	if err := os.MkdirAll(root, domain.DirPerm); err != nil {
		return zerr.With(errors.Join(domain.ErrPackagingFailed, err), "path", root)
	}
	dir, err := os.MkdirTemp(root, t.target.NormalizedName()+"-")
	if err != nil {
		return zerr.With(errors.Join(domain.ErrPackagingFailed, err), "path", root)
	}
	a.staging = dir
	return nil
}

// compile runs the invalidated sources through a pooled worker into a fresh staging directory.
func (t *Task) compile(ctx context.Context, a *attempt) (*domain.CompileResult, error) {
	if err := t.makeStaging(a); err != nil {
		return nil, err
	}

	t.log(a, domain.LogLevelInfo, fmt.Sprintf("compiling %d source(s)", len(a.plan.Invalidated)))
	res, err := t.withWorker(ctx, &domain.CompileRequest{
		Target:    a.name,
		BuildRoot: t.cfg.BuildRoot,
		Sources:   a.plan.Invalidated,
		Classpath: a.classpath,
		OutputDir: a.staging,
		Args:      a.args,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, zerr.Wrap(err, "compile interrupted")
	}

	classified := warnings.Evaluate(res.Diagnostics, a.policy)
	for _, d := range classified {
		t.log(a, levelOf(d.Class), d.String())
	}
	a.result.Diagnostics = append(a.result.Diagnostics, classified...)

	if failed, summary := warnings.Outcome(classified, res.ExitCode); failed {
		return nil, summary
	}
	return res, nil
}

// withWorker holds a pool slot for the duration of one request. The slot is returned on every path.
func (t *Task) withWorker(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error) {
	w, err := t.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer t.pool.Release(w)
	return w.Compile(ctx, req)
}

// commit promotes the staged output, then writes the merged analysis, the portable export and the jar.
func (t *Task) commit(ctx context.Context, a *attempt, compiled map[string]domain.SourceAnalysis) error {
	base := domain.NewAnalysis(a.name, t.cfg.BuildRoot, a.classesDir, a.fingerprint)
	next := Merge(a.prev, a.plan, Promoted(compiled), a.stamps, base)

	err := t.deps.Packager.Promote(ctx, &domain.PromoteRequest{
		StagingDir: a.staging,
		ClassesDir: a.classesDir,
		Stale:      Stale(a.old, next),
		Plugin:     t.target.Options.ScalacPlugin,
	})
	if err != nil {
		// The record stays. Outputs it lists that are now missing force a full compile on the next run.
		t.cleanupFailed(a)
		return err
	}

	if err := t.store.Commit(context.WithoutCancel(ctx), next); err != nil {
		// The old record no longer matches the class directory; removing it makes the next run verify
		// missing outputs and compile everything.
		_ = os.RemoveAll(a.classesDir)
		return err
	}
	a.result.Products = next.Products()
	return t.finish(ctx, a, true)
}

// finish writes the outputs derived from a committed analysis.
func (t *Task) finish(ctx context.Context, a *attempt, changed bool) error {
	if t.cfg.Settings.ExportPortable {
		if _, err := t.store.ExportTo(ctx, a.name); err != nil {
			return err
		}
	}

	if t.cfg.Settings.Jar {
		jar := t.jarPath()
		_, statErr := os.Stat(jar)
		if changed || statErr != nil {
			if err := t.deps.Packager.Jar(ctx, a.classesDir, jar); err != nil {
				return err
			}
		}
		a.result.Jar = jar
	}
	return nil
}

// cleanupFailed removes the staging directory of a failed attempt. Without a record on disk the class
// directory and jar go too, so a failed first compile leaves nothing behind.
func (t *Task) cleanupFailed(a *attempt) {
	if a.staging != "" {
		_ = os.RemoveAll(a.staging)
	}
	if a.old == nil {
		_ = os.RemoveAll(a.classesDir)
		if t.cfg.Settings.Jar {
			_ = os.Remove(t.jarPath())
		}
	}
}

// compilerArgs returns the arguments passed to the compiler, in order: warning policy, debug symbols,
// plugins and raw arguments.
func (t *Task) compilerArgs(policy warnings.Policy) []string {
	args := slices.Clone(policy.Args)
	if t.cfg.Settings.DebugSymbols || t.target.Options.DebugSymbols {
		args = append(args, JavaDebugArg, ScalaDebugArg)
	}
	for _, plugin := range t.target.Options.Plugins {
		args = append(args, PluginRequireArgPrefix+plugin)
	}
	return append(args, t.rawArgs()...)
}

func (t *Task) rawArgs() []string {
	return slices.Concat(t.cfg.Settings.Args, t.target.Options.Args)
}

// classpath is the target classpath followed by the dependency class directories and the target's own
// class directory, which holds the classes of sources that are not recompiled.
func (t *Task) classpath(classesDir string) []string {
	return slices.Concat(t.target.Classpath, t.depClassDirs, []string{classesDir})
}

func (t *Task) rebaser() domain.PathRebaser {
	return domain.PathRebaser{BuildRoot: t.cfg.BuildRoot, WorkDir: t.cfg.Layout.WorkDir}
}

func (t *Task) jarPath() string {
	return t.cfg.Layout.JarPath(t.target.NormalizedName(), t.cfg.Settings.JarSuffix)
}

func (t *Task) log(a *attempt, level domain.LogLevel, msg string) {
	if a.vertex != nil {
		a.vertex.Log(level, msg)
	}
	if level >= domain.LogLevelWarn && t.deps.Logger != nil {
		t.deps.Logger.Warn(a.name + ": " + msg)
	}
}

func (t *Task) warn(a *attempt, msg string) {
	t.log(a, domain.LogLevelWarn, msg)
}

func levelOf(c domain.Classification) domain.LogLevel {
	switch c {
	case domain.Error, domain.FatalWarning:
		return domain.LogLevelError
	case domain.Warning, domain.Advisory:
		return domain.LogLevelWarn
	default:
		return domain.LogLevelInfo
	}
}
