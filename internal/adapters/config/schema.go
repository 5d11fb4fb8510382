package config

// Creatorfile represents the structure of the creator.yaml configuration file.
type Creatorfile struct {
	Version             string            `yaml:"version"`
	Root                string            `yaml:"root"`
	SearchPaths         []string          `yaml:"search_paths"`
	BuildFile           string            `yaml:"build_file"`
	Ninja               NinjaDTO          `yaml:"ninja"`
	Defines             map[string]string `yaml:"defines"`
	Macros              map[string]string `yaml:"macros"`
	EnvironmentFallback *bool             `yaml:"environment_fallback"`
}

// NinjaDTO configures the external build executor.
type NinjaDTO struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
}
