package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/creator/internal/adapters/config"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), domain.FilePerm))
}

func TestLoader_Load_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	dir := t.TempDir()
	cfg, err := loader.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, domain.DefaultBuildFile, cfg.BuildFile)
	assert.Equal(t, domain.DefaultNinjaBinary, cfg.NinjaBinary)
	assert.True(t, cfg.EnvironmentFallback)
	assert.Empty(t, cfg.SearchPaths)
}

func TestLoader_Load_WalksUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "third_party", "units"), domain.DirPerm))
	deep := filepath.Join(root, "src", "app")
	require.NoError(t, os.MkdirAll(deep, domain.DirPerm))

	createFile(t, root, domain.ConfigFileName, `
version: "1"
search_paths:
  - third_party/units
build_file: out/build.ninja
ninja:
  binary: samu
  args: ["-k", "0"]
defines:
  Mode: release
macros:
  Opt: "-O2 ${Mode}"
environment_fallback: false
`)

	cfg, err := loader.Load(deep)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, []string{filepath.Join(root, "third_party", "units")}, cfg.SearchPaths)
	assert.Equal(t, "out/build.ninja", cfg.BuildFile)
	assert.Equal(t, "samu", cfg.NinjaBinary)
	assert.Equal(t, []string{"-k", "0"}, cfg.NinjaArgs)
	assert.Equal(t, map[string]string{"Mode": "release"}, cfg.Defines)
	assert.Equal(t, map[string]string{"Opt": "-O2 ${Mode}"}, cfg.Macros)
	assert.False(t, cfg.EnvironmentFallback)
}

func TestLoader_Load_Root(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "workspace"), domain.DirPerm))
	createFile(t, dir, domain.ConfigFileName, "root: workspace\n")

	cfg, err := loader.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "workspace"), cfg.Root)
}

func TestLoader_Load_Warnings(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(`creator.yaml declares unknown version "2", reading it as version 1`).Times(1)
	mockLogger.EXPECT().Warn("search path missing does not exist, skipping").Times(1)
	loader := config.NewLoader(mockLogger)

	dir := t.TempDir()
	createFile(t, dir, domain.ConfigFileName, `
version: "2"
search_paths: [missing]
`)

	cfg, err := loader.Load(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.SearchPaths)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		setup   func(t *testing.T, dir string)
		wantErr error
	}{
		{
			name:    "invalid yaml",
			content: "search_paths: [unterminated\n",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "wrong type",
			content: "ninja: just-a-string\n",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name: "unreadable",
			setup: func(t *testing.T, dir string) {
				t.Helper()
				path := filepath.Join(dir, domain.ConfigFileName)
				require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\n"), 0o000))
				if f, err := os.Open(path); err == nil {
					_ = f.Close()
					t.Skip("running with permissions that ignore file modes")
				}
			},
			wantErr: domain.ErrConfigReadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			loader := config.NewLoader(mocks.NewMockLogger(ctrl))

			dir := t.TempDir()
			if tt.setup != nil {
				tt.setup(t, dir)
			} else {
				createFile(t, dir, domain.ConfigFileName, tt.content)
			}

			_, err := loader.Load(dir)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
