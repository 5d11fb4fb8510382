package app_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/creator/internal/adapters/cas"
	"go.trai.ch/creator/internal/adapters/fs"
	"go.trai.ch/creator/internal/adapters/telemetry"
	"go.trai.ch/creator/internal/app"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports/mocks"
	"go.trai.ch/creator/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

const appUnit = `
unit "app" {}

define {
  Out = "build"
}

target "bin" {
  inputs  = "main.c"
  outputs = "$Out/app"
  command = "cc $< -o $@"
}

task "hello" {
  requires = ["bin"]
  run      = "echo hello"
}
`

type appTestMocks struct {
	executor *mocks.MockExecutor
	logger   *mocks.MockLogger
	root     string
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// setupApp creates an App over a temporary workspace with real filesystem adapters.
func setupApp(t *testing.T, env map[string]string) (*app.App, appTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	m := appTestMocks{
		executor: mocks.NewMockExecutor(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
		root:     root,
	}

	configLoader := mocks.NewMockConfigLoader(ctrl)
	configLoader.EXPECT().Load(gomock.Any()).Return(&domain.Config{
		Root:        root,
		BuildFile:   domain.DefaultBuildFile,
		NinjaBinary: domain.DefaultNinjaBinary,
	}, nil).AnyTimes()

	tracer := telemetry.NewNoOpTracer()
	a := app.New(
		configLoader,
		fs.NewLocator(),
		fs.NewSnapshotter(fs.NewWalker()),
		fs.NewHasher(),
		cas.NewStore(),
		cas.NewAtomicWriter(),
		fs.NewCleaner(),
		m.logger,
		tracer,
		scheduler.NewScheduler(m.executor, tracer),
	).WithEnv(func(key string) string { return env[key] })

	return a, m
}

func loadOptions(m appTestMocks) app.LoadOptions {
	return app.LoadOptions{Dir: m.root}
}

func TestApp_Export(t *testing.T) {
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), appUnit)
	ctx := context.Background()
	buildFile := filepath.Join(m.root, "build.ninja")

	m.logger.EXPECT().Info("wrote build.ninja").Times(1)
	require.NoError(t, a.Export(ctx, app.ExportOptions{LoadOptions: loadOptions(m)}))

	data, err := os.ReadFile(buildFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "build/app")
	assert.FileExists(t, domain.DefaultStatePath(m.root))

	t.Run("unchanged", func(t *testing.T) {
		m.logger.EXPECT().Info("build.ninja is up to date").Times(1)
		require.NoError(t, a.Export(ctx, app.ExportOptions{LoadOptions: loadOptions(m)}))
	})

	t.Run("modified on disk", func(t *testing.T) {
		require.NoError(t, os.WriteFile(buildFile, []byte("# edited\n"), 0o600))
		m.logger.EXPECT().Info("wrote build.ninja").Times(1)
		require.NoError(t, a.Export(ctx, app.ExportOptions{LoadOptions: loadOptions(m)}))

		rewritten, err := os.ReadFile(buildFile)
		require.NoError(t, err)
		assert.Equal(t, data, rewritten)
	})
}

func TestApp_Export_Output(t *testing.T) {
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), appUnit)

	m.logger.EXPECT().Info("wrote out/custom.ninja").Times(1)
	require.NoError(t, a.Export(context.Background(), app.ExportOptions{
		LoadOptions: loadOptions(m),
		Output:      "out/custom.ninja",
	}))
	assert.FileExists(t, filepath.Join(m.root, "out", "custom.ninja"))
	assert.NoFileExists(t, filepath.Join(m.root, "build.ninja"))
}

func TestApp_Run(t *testing.T) {
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), appUnit)

	m.logger.EXPECT().Info("wrote build.ninja").Times(1)
	gomock.InOrder(
		m.executor.EXPECT().Execute(gomock.Any(), domain.Command{
			Name: "ninja",
			Args: []string{"ninja", "-f", "build.ninja", "-k", "0", "app.hello"},
			Dir:  m.root,
		}, gomock.Any(), gomock.Any()).Return(nil),
		m.executor.EXPECT().Execute(gomock.Any(), domain.Command{
			Name:     "app.hello",
			Args:     []string{"echo", "hello"},
			Dir:      m.root,
			Terminal: true,
		}, gomock.Any(), gomock.Any()).Return(nil),
	)

	err := a.Run(context.Background(), []string{"hello"}, app.RunOptions{
		LoadOptions: loadOptions(m),
		NinjaArgs:   []string{"-k", "0"},
	})
	require.NoError(t, err)
}

func TestApp_Run_Defaults(t *testing.T) {
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), appUnit)

	m.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	m.executor.EXPECT().Execute(gomock.Any(), domain.Command{
		Name: "ninja",
		Args: []string{"ninja", "-f", "build.ninja"},
		Dir:  m.root,
	}, gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, a.Run(context.Background(), nil, app.RunOptions{LoadOptions: loadOptions(m)}))
}

func TestApp_Run_Dry(t *testing.T) {
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), appUnit)

	gomock.InOrder(
		m.logger.EXPECT().Info("build app.hello"),
		m.logger.EXPECT().Info("task app.hello"),
	)

	err := a.Run(context.Background(), []string{"hello"}, app.RunOptions{
		LoadOptions: loadOptions(m),
		NoExport:    true,
		Dry:         true,
	})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(m.root, "build.ninja"))
}

func TestApp_Run_Progress(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), appUnit)

	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Command, stdout, _ io.Writer) error {
			_, err := io.WriteString(stdout, "ok\n")
			return err
		}).Times(2)

	progress := &syncBuffer{}
	err := a.Run(context.Background(), []string{"hello"}, app.RunOptions{
		LoadOptions: loadOptions(m),
		NoExport:    true,
		Progress:    progress,
	})
	require.NoError(t, err)
	assert.Contains(t, progress.String(), "● 2 step(s) planned")
}

func TestApp_Run_UnknownName(t *testing.T) {
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), appUnit)

	err := a.Run(context.Background(), []string{"nope"}, app.RunOptions{
		LoadOptions: loadOptions(m),
		NoExport:    true,
	})
	require.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestApp_EntryUnit(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		a, m := setupApp(t, nil)
		err := a.Export(context.Background(), app.ExportOptions{LoadOptions: loadOptions(m)})
		require.ErrorIs(t, err, domain.ErrNoEntryUnit)
	})

	t.Run("ambiguous", func(t *testing.T) {
		a, m := setupApp(t, nil)
		writeFile(t, filepath.Join(m.root, "a.crunit"), `unit "a" {}`)
		writeFile(t, filepath.Join(m.root, "b.crunit"), `unit "b" {}`)

		err := a.Export(context.Background(), app.ExportOptions{LoadOptions: loadOptions(m)})
		require.ErrorIs(t, err, domain.ErrAmbiguousEntryUnit)

		var zErr *zerr.Error
		require.ErrorAs(t, err, &zErr)
		assert.Equal(t, "a.crunit, b.crunit", zErr.Metadata()["units"])
	})

	t.Run("by identity", func(t *testing.T) {
		a, m := setupApp(t, nil)
		writeFile(t, filepath.Join(m.root, "a.crunit"), `unit "a" {}`)
		writeFile(t, filepath.Join(m.root, "b.crunit"), appUnit)

		m.logger.EXPECT().Info("wrote build.ninja")
		opts := loadOptions(m)
		opts.Unit = "app"
		require.NoError(t, a.Export(context.Background(), app.ExportOptions{LoadOptions: opts}))
	})

	t.Run("by path", func(t *testing.T) {
		a, m := setupApp(t, nil)
		writeFile(t, filepath.Join(m.root, "a.crunit"), `unit "a" {}`)
		writeFile(t, filepath.Join(m.root, "b.crunit"), appUnit)

		m.logger.EXPECT().Info("wrote build.ninja")
		opts := loadOptions(m)
		opts.Unit = "b.crunit"
		require.NoError(t, a.Export(context.Background(), app.ExportOptions{LoadOptions: opts}))
	})
}

func TestApp_Defines(t *testing.T) {
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), `
unit "app" {}

target "bin" {
  outputs = "$Out/app $Mode"
  command = "touch $@"
}
`)

	m.logger.EXPECT().Info("wrote build.ninja")
	opts := loadOptions(m)
	opts.Defines = map[string]string{"Out": "dist"}
	opts.Macros = map[string]string{"Mode": "$Out/mode"}
	require.NoError(t, a.Export(context.Background(), app.ExportOptions{LoadOptions: opts}))

	data, err := os.ReadFile(filepath.Join(m.root, "build.ninja"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "dist/app")
	assert.Contains(t, string(data), "dist/mode")
}

func TestApp_RedefineAfterLoadExpand(t *testing.T) {
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), `
unit "app" {}

define {
  A = "one"
}

define {
  when = contains(expand("$A"), "one")
  B    = "x"
}

define {
  A = "two"
}

target "bin" {
  outputs = "$A"
  command = "touch $@"
}
`)

	m.logger.EXPECT().Info("wrote build.ninja")
	require.NoError(t, a.Export(context.Background(), app.ExportOptions{LoadOptions: loadOptions(m)}))

	data, err := os.ReadFile(filepath.Join(m.root, "build.ninja"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "build two: ")
	assert.NotContains(t, string(data), "build one: ")
}

func TestApp_SearchPathEnv(t *testing.T) {
	libs := t.TempDir()
	writeFile(t, filepath.Join(libs, "core", "core.crunit"), `
unit "libs.core" {}

target "lib" {
  outputs = "libcore.a"
  command = "ar rcs $@"
}
`)

	a, m := setupApp(t, map[string]string{domain.SearchPathEnv: libs})
	writeFile(t, filepath.Join(m.root, "app.crunit"), `
unit "app" {}

import "libs.core" { as = "core" }

target "bin" {
  requires = ["core:lib"]
  outputs  = "app"
  command  = "cc -o $@"
}
`)

	m.logger.EXPECT().Info("wrote build.ninja")
	require.NoError(t, a.Export(context.Background(), app.ExportOptions{LoadOptions: loadOptions(m)}))

	data, err := os.ReadFile(filepath.Join(m.root, "build.ninja"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "libcore.a")
}

func TestApp_Clean(t *testing.T) {
	a, m := setupApp(t, nil)
	writeFile(t, filepath.Join(m.root, "app.crunit"), appUnit)
	writeFile(t, filepath.Join(m.root, "build", "app"), "binary")

	t.Run("named", func(t *testing.T) {
		m.logger.EXPECT().Info("removed 1 path")
		require.NoError(t, a.Clean(context.Background(), []string{"bin", "hello"},
			app.CleanOptions{LoadOptions: loadOptions(m)}))
		assert.NoFileExists(t, filepath.Join(m.root, "build", "app"))
		assert.FileExists(t, filepath.Join(m.root, "app.crunit"))
	})

	t.Run("nothing left", func(t *testing.T) {
		m.logger.EXPECT().Info("nothing to clean")
		require.NoError(t, a.Clean(context.Background(), []string{"bin"},
			app.CleanOptions{LoadOptions: loadOptions(m)}))
	})

	t.Run("everything", func(t *testing.T) {
		writeFile(t, filepath.Join(m.root, "build", "app"), "binary")
		m.logger.EXPECT().Info("wrote build.ninja")
		require.NoError(t, a.Export(context.Background(), app.ExportOptions{LoadOptions: loadOptions(m)}))

		m.logger.EXPECT().Info("removed 3 paths")
		require.NoError(t, a.Clean(context.Background(), nil, app.CleanOptions{LoadOptions: loadOptions(m)}))
		assert.NoFileExists(t, filepath.Join(m.root, "build.ninja"))
		assert.NoDirExists(t, filepath.Join(m.root, domain.CreatorDirName))
	})

	t.Run("unknown", func(t *testing.T) {
		err := a.Clean(context.Background(), []string{"nope"}, app.CleanOptions{LoadOptions: loadOptions(m)})
		require.ErrorIs(t, err, domain.ErrNodeNotFound)
	})
}
