package config

// Kilnfile represents the structure of the kiln.yaml configuration file.
type Kilnfile struct {
	Version  string               `yaml:"version"`
	Root     string               `yaml:"root"`
	WorkDir  string               `yaml:"workdir"`
	CacheDir string               `yaml:"cache_dir"`
	Platform PlatformDTO          `yaml:"platform"`
	Compile  CompileDTO           `yaml:"compile"`
	Targets  map[string]TargetDTO `yaml:"targets"`
}

// PlatformDTO represents the language platform defaults.
type PlatformDTO struct {
	FatalWarnings bool `yaml:"fatal_warnings"`
}

// CompileDTO represents the build-wide compile settings.
type CompileDTO struct {
	Compiler                  []string `yaml:"compiler"`
	PoolSize                  int      `yaml:"pool_size"`
	Parallelism               int      `yaml:"parallelism"`
	Jar                       bool     `yaml:"jar"`
	JarSuffix                 string   `yaml:"jar_suffix"`
	ExportPortableAnalysis    bool     `yaml:"export_portable_analysis"`
	DebugSymbols              bool     `yaml:"debug_symbols"`
	Args                      []string `yaml:"args"`
	FatalWarningsEnabledArgs  []string `yaml:"fatal_warnings_enabled_args"`
	FatalWarningsDisabledArgs []string `yaml:"fatal_warnings_disabled_args"`
	Timeout                   string   `yaml:"timeout"`
}

// TargetDTO represents a target definition in the configuration.
type TargetDTO struct {
	Sources       []string   `yaml:"sources"`
	Classpath     []string   `yaml:"classpath"`
	Dependencies  []string   `yaml:"dependencies"`
	FatalWarnings *bool      `yaml:"fatal_warnings"`
	DebugSymbols  bool       `yaml:"debug_symbols"`
	Plugins       []string   `yaml:"plugins"`
	ScalacPlugin  *PluginDTO `yaml:"scalac_plugin"`
	Args          []string   `yaml:"args"`
}

// PluginDTO describes the compiler plugin a target provides.
type PluginDTO struct {
	Name      string `yaml:"name"`
	Classname string `yaml:"classname"`
}
