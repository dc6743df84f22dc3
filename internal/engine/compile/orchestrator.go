package compile

import (
	"cmp"
	"context"
	"errors"
	"path"
	"path/filepath"
	"runtime"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// targetLocks serializes attempts on the same class directory within the process.
var targetLocks keyLock[string]

// Orchestrator compiles the targets of a graph in dependency order, running independent targets in
// parallel. The worker pool is the only resource the targets share.
type Orchestrator struct {
	cfg         Config
	deps        Deps
	store       ports.AnalysisStore
	pool        ports.WorkerPool
	parallelism int
}

// NewOrchestrator creates an Orchestrator. Parallelism comes from the compile settings and defaults to
// the number of CPUs.
func NewOrchestrator(cfg Config, deps Deps, store ports.AnalysisStore, pool ports.WorkerPool) *Orchestrator {
	parallelism := cfg.Settings.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &Orchestrator{
		cfg:         cfg,
		deps:        deps,
		store:       store,
		pool:        pool,
		parallelism: parallelism,
	}
}

type outcome struct {
	target domain.InternedString
	result domain.TargetResult
}

type runState struct {
	o         *Orchestrator
	ctx       context.Context
	graph     *domain.Graph
	inDegree  map[domain.InternedString]int
	ready     []domain.InternedString
	active    int
	resultsCh chan outcome
	results   map[domain.InternedString]domain.TargetResult
}

// Run compiles every target of graph, which must have been validated. Targets whose dependencies failed
// are SKIPPED. The merged products of the build name class files by their full path, so a class produced
// by two targets keeps both entries. The returned error wraps domain.ErrBuildFailed when any target did not succeed; the
// result is complete either way.
func (o *Orchestrator) Run(ctx context.Context, graph *domain.Graph) (*domain.BuildResult, error) {
	state := o.newRunState(ctx, graph)

	for !state.isDone() {
		state.schedule()
		if state.isDone() {
			break
		}
		if state.active == 0 {
			// Canceled with nothing in flight.
			break
		}
		state.handle(<-state.resultsCh)
	}

	return state.finish()
}

func (o *Orchestrator) newRunState(ctx context.Context, graph *domain.Graph) *runState {
	state := &runState{
		o:         o,
		ctx:       ctx,
		graph:     graph,
		inDegree:  make(map[domain.InternedString]int, graph.TargetCount()),
		resultsCh: make(chan outcome, o.parallelism),
		results:   make(map[domain.InternedString]domain.TargetResult, graph.TargetCount()),
	}
	for target := range graph.Walk() {
		state.inDegree[target.Name] = len(target.Dependencies)
		if len(target.Dependencies) == 0 {
			state.ready = append(state.ready, target.Name)
		}
	}
	return state
}

func (s *runState) isDone() bool {
	return s.active == 0 && len(s.ready) == 0
}

func (s *runState) schedule() {
	for len(s.ready) > 0 && s.active < s.o.parallelism && s.ctx.Err() == nil {
		name := s.ready[0]
		s.ready = s.ready[1:]
		target, _ := s.graph.Get(name)

		s.active++
		go func() {
			s.resultsCh <- outcome{target: name, result: s.o.compileTarget(s.ctx, target)}
		}()
	}
}

func (s *runState) handle(out outcome) {
	s.active--
	s.results[out.target] = out.result
	if out.result.Failed() {
		s.skipDependents(out.target)
		return
	}
	for _, dependent := range s.graph.Dependents(out.target) {
		s.inDegree[dependent]--
		if s.inDegree[dependent] == 0 {
			s.ready = append(s.ready, dependent)
		}
	}
}

// skipDependents marks every transitive dependent of a failed target as SKIPPED.
func (s *runState) skipDependents(failed domain.InternedString) {
	for _, dependent := range s.graph.Dependents(failed) {
		if _, done := s.results[dependent]; done {
			continue
		}
		err := zerr.With(zerr.Wrap(domain.ErrDependencyFailed, "dependency did not compile"), "dependency", failed.String())
		s.results[dependent] = domain.TargetResult{
			Target: dependent.String(),
			State:  domain.StateSkipped,
			Err:    zerr.With(err, "target", dependent.String()),
		}
		s.skipDependents(dependent)
	}
}

func (s *runState) finish() (*domain.BuildResult, error) {
	build := &domain.BuildResult{Products: domain.Products{}}
	var errs []error

	for target := range s.graph.Walk() {
		res, ok := s.results[target.Name]
		if !ok {
			// Never started because the build was canceled.
			res = domain.TargetResult{
				Target: target.Name.String(),
				State:  domain.StateSkipped,
				Err:    zerr.With(zerr.Wrap(s.ctx.Err(), "build canceled"), "target", target.Name.String()),
			}
		}
		build.Targets = append(build.Targets, res)
		for name, paths := range res.Products {
			for _, p := range paths {
				build.Products.Add(name, path.Join(filepath.ToSlash(res.ClassesDir), p))
			}
		}
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	slices.SortStableFunc(build.Targets, func(a, b domain.TargetResult) int {
		return cmp.Compare(a.Target, b.Target)
	})

	if stats, ok := s.o.pool.(interface{ Stats() domain.PoolStats }); ok {
		build.Stats = stats.Stats()
	}

	if len(errs) > 0 {
		err := errors.Join(append([]error{domain.ErrBuildFailed}, errs...)...)
		return build, zerr.With(err, "failed_targets", len(errs))
	}
	return build, nil
}

// compileTarget runs one target while holding its class directory lock.
func (o *Orchestrator) compileTarget(ctx context.Context, target domain.Target) domain.TargetResult {
	depDirs := make([]string, 0, len(target.Dependencies))
	for _, dep := range target.Dependencies {
		depDirs = append(depDirs, o.cfg.Layout.ClassesDir(domain.NormalizeTargetName(dep.String())))
	}

	task := NewTask(o.cfg, o.deps, o.store, o.pool, target, depDirs)
	unlock, err := targetLocks.lock(ctx, task.ClassesDir())
	if err != nil {
		return domain.TargetResult{
			Target: target.Name.String(),
			State:  domain.StateFailed,
			Err:    zerr.With(zerr.Wrap(err, "wait for concurrent compile"), "target", target.Name.String()),
		}
	}
	defer unlock()
	return task.Run(ctx)
}
