// Package config provides the configuration loader for kiln.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only kiln.yaml schema version understood by the loader.
const SupportedVersion = "1"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader by reading kiln.yaml.
type Loader struct {
	logger   ports.Logger
	resolver *fs.Resolver
}

// NewLoader creates a new Loader.
func NewLoader(logger ports.Logger, resolver *fs.Resolver) *Loader {
	return &Loader{logger: logger, resolver: resolver}
}

// Load finds kiln.yaml in dir or the nearest parent directory and reads it into a project.
func (l *Loader) Load(dir string) (*domain.Project, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}
	return l.LoadFile(path)
}

// FindConfig returns the path of the kiln.yaml in dir or the nearest parent that has one.
func FindConfig(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", zerr.With(errors.Join(domain.ErrConfigReadFailed, err), "dir", dir)
	}
	for current := abs; ; {
		candidate := filepath.Join(current, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	err = zerr.Wrap(domain.ErrConfigReadFailed, "no "+domain.ConfigFileName+" found")
	return "", zerr.With(err, "dir", abs)
}

// LoadFile reads the configuration file at path.
func (l *Loader) LoadFile(path string) (*domain.Project, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrConfigReadFailed, err), "path", path)
	}

	var file Kilnfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "path", path)
	}

	project, err := l.build(filepath.Dir(path), &file)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return project, nil
}

func (l *Loader) build(configDir string, file *Kilnfile) (*domain.Project, error) {
	if file.Version != "" && file.Version != SupportedVersion {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, "unsupported config version"), "version", file.Version)
	}

	root := resolvePath(configDir, file.Root, ".")
	compile, err := compileSettings(root, &file.Compile)
	if err != nil {
		return nil, err
	}

	project := &domain.Project{
		Root: root,
		Layout: domain.Layout{
			WorkDir:  resolvePath(root, file.WorkDir, domain.DefaultWorkDir),
			CacheDir: resolvePath(root, file.CacheDir, domain.DefaultCacheDir),
		},
		Platform: domain.PlatformSettings{FatalWarnings: file.Platform.FatalWarnings},
		Compile:  compile,
		Graph:    domain.NewGraph(),
	}

	names := make([]string, 0, len(file.Targets))
	for name := range file.Targets {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		target, err := l.target(root, name, file.Targets[name])
		if err != nil {
			return nil, err
		}
		if err := project.Graph.AddTarget(target); err != nil {
			return nil, err
		}
	}

	if err := project.Graph.Validate(); err != nil {
		return nil, err
	}
	return project, nil
}

func (l *Loader) target(root, name string, dto TargetDTO) (*domain.Target, error) {
	if strings.TrimSpace(name) == "" {
		return nil, zerr.Wrap(domain.ErrConfigParseFailed, "target name must not be empty")
	}

	sources, err := l.resolver.ResolveSources(root, dto.Sources)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "target", name)
	}
	if len(sources) == 0 && l.logger != nil {
		l.logger.Warn("target " + name + " has no sources")
	}

	classpath := make([]string, len(dto.Classpath))
	for i, entry := range dto.Classpath {
		classpath[i] = resolvePath(root, entry, ".")
	}

	target := &domain.Target{
		Name:         domain.NewInternedString(name),
		Sources:      domain.NewInternedStrings(sources),
		Classpath:    classpath,
		Dependencies: domain.CanonicalInternedStrings(dto.Dependencies),
		Options: domain.TargetOptions{
			FatalWarnings: dto.FatalWarnings,
			DebugSymbols:  dto.DebugSymbols,
			Plugins:       dto.Plugins,
			Args:          dto.Args,
		},
	}
	if dto.ScalacPlugin != nil {
		if dto.ScalacPlugin.Name == "" || dto.ScalacPlugin.Classname == "" {
			err := zerr.Wrap(domain.ErrConfigParseFailed, "scalac_plugin needs a name and a classname")
			return nil, zerr.With(err, "target", name)
		}
		target.Options.ScalacPlugin = &domain.PluginInfo{Name: dto.ScalacPlugin.Name, Classname: dto.ScalacPlugin.Classname}
	}
	return target, nil
}

func compileSettings(root string, dto *CompileDTO) (domain.CompileSettings, error) {
	if dto.PoolSize < 0 || dto.Parallelism < 0 {
		err := zerr.Wrap(domain.ErrConfigParseFailed, "pool_size and parallelism must not be negative")
		return domain.CompileSettings{}, zerr.With(zerr.With(err, "pool_size", dto.PoolSize), "parallelism", dto.Parallelism)
	}

	var timeout time.Duration
	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err != nil {
			return domain.CompileSettings{}, zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "timeout", dto.Timeout)
		}
		timeout = d
	}

	compiler := slices.Clone(dto.Compiler)
	if len(compiler) > 0 && strings.ContainsRune(compiler[0], '/') {
		compiler[0] = resolvePath(root, compiler[0], "")
	}

	return domain.CompileSettings{
		Compiler:                  compiler,
		PoolSize:                  dto.PoolSize,
		Parallelism:               dto.Parallelism,
		Jar:                       dto.Jar,
		JarSuffix:                 dto.JarSuffix,
		ExportPortable:            dto.ExportPortableAnalysis,
		DebugSymbols:              dto.DebugSymbols,
		Args:                      dto.Args,
		FatalWarningsEnabledArgs:  dto.FatalWarningsEnabledArgs,
		FatalWarningsDisabledArgs: dto.FatalWarningsDisabledArgs,
		Timeout:                   timeout,
	}, nil
}

// resolvePath makes p absolute relative to base, using def when p is empty.
func resolvePath(base, p, def string) string {
	if p == "" {
		p = def
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, filepath.FromSlash(p))
}
