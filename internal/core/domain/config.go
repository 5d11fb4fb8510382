package domain

// Config is the resolved workspace configuration.
type Config struct {
	// Root is the workspace root. Relative paths in the build file are relative to it.
	Root string
	// SearchPaths are the directories scanned for unit scripts.
	SearchPaths []string
	// BuildFile is the generated build file, relative to Root unless absolute.
	BuildFile string
	// NinjaBinary is the external executor.
	NinjaBinary string
	// NinjaArgs are passed to every executor invocation.
	NinjaArgs []string
	// Defines are global pre-evaluated values.
	Defines map[string]string
	// Macros are global raw macro strings.
	Macros map[string]string
	// EnvironmentFallback makes process environment variables visible as a last lookup resort.
	EnvironmentFallback bool
}
