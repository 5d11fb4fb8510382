// Package config provides the configuration loader for creator.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the configuration format understood by this loader.
const SupportedVersion = "1"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load discovers creator.yaml by walking up from cwd.
// Without a configuration file the defaults apply and cwd is the workspace root.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "cannot resolve working directory"), "path", cwd)
	}

	configPath, found := findConfiguration(cwd)
	if !found {
		return defaults(cwd), nil
	}

	var file Creatorfile
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, err
	}
	if file.Version != "" && file.Version != SupportedVersion {
		l.Logger.Warn(fmt.Sprintf("%s declares unknown version %q, reading it as version %s",
			domain.ConfigFileName, file.Version, SupportedVersion))
	}

	cfg := defaults(resolveRoot(configPath, file.Root))
	configDir := filepath.Dir(configPath)
	for _, p := range file.SearchPaths {
		path := resolvePath(configDir, p)
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			l.Logger.Warn(fmt.Sprintf("search path %s does not exist, skipping", p))
			continue
		}
		cfg.SearchPaths = append(cfg.SearchPaths, path)
	}
	if file.BuildFile != "" {
		cfg.BuildFile = file.BuildFile
	}
	if file.Ninja.Binary != "" {
		cfg.NinjaBinary = file.Ninja.Binary
	}
	cfg.NinjaArgs = file.Ninja.Args
	cfg.Defines = file.Defines
	cfg.Macros = file.Macros
	if file.EnvironmentFallback != nil {
		cfg.EnvironmentFallback = *file.EnvironmentFallback
	}
	return cfg, nil
}

func defaults(root string) *domain.Config {
	return &domain.Config{
		Root:                root,
		BuildFile:           domain.DefaultBuildFile,
		NinjaBinary:         domain.DefaultNinjaBinary,
		EnvironmentFallback: true,
	}
}

func findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		configPath := filepath.Join(currentDir, domain.ConfigFileName)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false
		}
		currentDir = parentDir
	}
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	return resolvePath(configDir, configuredRoot)
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(base, path))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered by the loader
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", configPath)
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, parseErr.Error()), "path", configPath)
	}

	return nil
}
