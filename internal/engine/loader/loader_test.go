package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports/mocks"
	"go.trai.ch/creator/internal/engine/loader"
	"go.trai.ch/creator/internal/engine/macro"
	"go.trai.ch/creator/internal/engine/namespace"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newLoader(t *testing.T, root string, locator *mocks.MockUnitLocator) (*loader.Loader, *macro.Evaluator) {
	t.Helper()
	eval := macro.New(nil)
	l := loader.New(locator, namespace.NewStore(), eval, loader.Options{Root: root, SearchPaths: []string{root}})
	return l, eval
}

func TestLoader_LoadFile(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, filepath.Join(root, "app.crunit"), `
unit "app" {}

define {
  CC      = "cc"
  Flags   = ["-O2", "-Wall"]
  Sources = "src/a.c src/b.c"
}

default {
  CC  = "gcc"
  Out = "build"
}

append {
  Flags = "-g"
}

function "obj" {
  params = ["ext"]
  body   = "$(move $<, src, $Out/obj, $ext)"
  export = true
}

target "objects" {
  inputs  = "$Sources"
  outputs = "$(obj .o)"
  command = "$CC $Flags -c $< -o $@"
  each    = true
}

target "bin" {
  requires = ["objects"]
  inputs   = "$(setsuffix $Sources, .o)"
  outputs  = "$Out/app"
  command  = "$CC $< -o $@"

  build {
    outputs = "$Out/app.map"
    command = "touch $@"
  }
}

task "run" {
  requires = ["bin"]
  run      = ["./$Out/app", "echo done"]
}

task "hello" {
  run = "echo hello from ${self}"
}
`)

	l, eval := newLoader(t, root, nil)
	unit, err := l.LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "app", unit.Identity)
	assert.Equal(t, "app.crunit", unit.Path)
	assert.Equal(t, ".", unit.Dir)
	assert.Equal(t, []string{"objects", "bin", "run", "hello"}, unit.Declared())

	require.Len(t, unit.Targets, 2)
	objects := unit.Targets[0]
	require.Len(t, objects.Templates, 1)
	assert.Equal(t, domain.BuildTemplate{
		Inputs:   "$Sources",
		Outputs:  "$(obj .o)",
		Command:  "$CC $Flags -c $< -o $@",
		Each:     true,
		Location: domain.Location{File: "app.crunit", Line: 25},
	}, objects.Templates[0])

	bin := unit.Targets[1]
	assert.Equal(t, []string{"objects"}, bin.Requires)
	require.Len(t, bin.Templates, 2)
	assert.Equal(t, "$Out/app.map", bin.Templates[1].Outputs)
	assert.Empty(t, bin.Templates[1].Inputs)

	require.Len(t, unit.Tasks, 2)
	assert.Equal(t, []string{"./$Out/app", "echo done"}, unit.Tasks[0].Body)
	assert.Equal(t, []string{"echo hello from app"}, unit.Tasks[1].Body)

	scope, ok := l.Store().Unit("app")
	require.True(t, ok)

	cc, err := eval.Expand(scope, "$CC $Out", macro.Sequence, domain.Location{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cc", "build"}, cc)

	flags, err := eval.Expand(scope, "$Flags", macro.Sequence, domain.Location{})
	require.NoError(t, err)
	assert.Equal(t, []string{"-O2", "-Wall", "-g"}, flags)

	_, err = scope.LookupFunction("", "obj")
	require.NoError(t, err)

	_, loaded := l.Graph().Unit("app")
	assert.True(t, loaded)
}

func TestLoader_Imports(t *testing.T) {
	root := t.TempDir()
	corePath := writeFile(t, filepath.Join(root, "libs", "core", "core.crunit"), `
unit "libs.core" {}

define {
  Include = "$ProjectPath/include"
  Flags   = "-I$Include"
}

function "hidden" {
  body = "x"
}

target "lib" {
  inputs  = "$ProjectPath/core.c"
  outputs = "build/libcore.a"
  command = "ar rcs $@ $<"
}
`)
	appPath := writeFile(t, filepath.Join(root, "app.crunit"), `
unit "app" {}

import "libs.core" {}
import "libs.core" { as = "c" }

define {
  Include = "app/include"
  Flags   = expand("$core:Flags -I$Include")
  Loaded  = defined("core:Flags")
}

target "bin" {
  requires = ["core:lib", "c:lib", "libs.core.lib"]
  inputs   = "main.c"
  outputs  = "app"
  command  = "cc $Flags $< -o $@"
}
`)

	ctrl := gomock.NewController(t)
	locator := mocks.NewMockUnitLocator(ctrl)
	locator.EXPECT().Locate([]string{root}, "libs.core").Return(corePath, nil).Times(1)

	l, eval := newLoader(t, root, locator)
	unit, err := l.LoadFile(context.Background(), appPath)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"self": "app", "core": "libs.core", "c": "libs.core"}, unit.Aliases)

	units := l.Graph().Units()
	require.Len(t, units, 2)
	assert.Equal(t, "libs.core", units[0].Identity)
	assert.Equal(t, "libs/core", units[0].Dir)
	assert.Equal(t, "app", units[1].Identity)

	scope, _ := l.Store().Unit("app")
	flags, err := eval.Expand(scope, "$Flags", macro.Sequence, domain.Location{})
	require.NoError(t, err)
	assert.Equal(t, []string{"-Ilibs/core/include", "-Iapp/include"}, flags)

	loaded, err := eval.Expand(scope, "$Loaded", macro.Sequence, domain.Location{})
	require.NoError(t, err)
	assert.Equal(t, []string{"true"}, loaded)

	_, err = scope.LookupFunction("core", "hidden")
	assert.ErrorIs(t, err, domain.ErrUnknownFunction)

	require.NoError(t, l.Graph().Validate())
}

func TestLoader_When(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, filepath.Join(root, "app.crunit"), `
unit "app" {}

define {
  Mode = "debug"
}

define {
  when = false
  Mode = "$Undefined"
}

target "never" {
  when    = platform == "no-such-os"
  outputs = "x"
  command = "touch $@"
}

task "only-if-defined" {
  when = defined("Mode")
  run  = ["echo $Mode"]
}
`)

	l, eval := newLoader(t, root, nil)
	unit, err := l.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"only-if-defined"}, unit.Declared())

	scope, _ := l.Store().Unit("app")
	mode, err := eval.Expand(scope, "$Mode", macro.Sequence, domain.Location{})
	require.NoError(t, err)
	assert.Equal(t, []string{"debug"}, mode)
}

func TestLoader_RedefineAfterExpand(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, filepath.Join(root, "app.crunit"), `
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

function "pick" {
  body = "first"
}

define {
  when = contains(expand("$(pick)"), "first")
  C    = "y"
}

function "pick" {
  body = "second"
}
`)

	l, eval := newLoader(t, root, nil)
	_, err := l.LoadFile(context.Background(), path)
	require.NoError(t, err)

	scope, _ := l.Store().Unit("app")
	got, err := eval.Expand(scope, "$A $B $(pick) $C", macro.Sequence, domain.Location{})
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "x", "second", "y"}, got)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantErr  error
		location string
	}{
		{
			name:     "missing identity",
			script:   "define {\n  A = \"b\"\n}\nunit \"app\" {}\n",
			wantErr:  domain.ErrMissingIdentity,
			location: "app.crunit:1",
		},
		{
			name:     "empty script",
			script:   "",
			wantErr:  domain.ErrMissingIdentity,
			location: "app.crunit:1",
		},
		{
			name:     "syntax error",
			script:   "unit \"app\" {}\n\ndefine {\n  A = \n}\n",
			wantErr:  domain.ErrSyntax,
			location: "app.crunit:4",
		},
		{
			name:     "unknown block",
			script:   "unit \"app\" {}\nrule \"x\" {}\n",
			wantErr:  domain.ErrSyntax,
			location: "app.crunit:2",
		},
		{
			name:     "duplicate target",
			script:   "unit \"app\" {}\ntask \"a\" {}\ntarget \"a\" {\n  outputs = \"x\"\n  command = \"y\"\n}\n",
			wantErr:  domain.ErrDuplicateNode,
			location: "app.crunit:3",
		},
		{
			name:     "invalid node name",
			script:   "unit \"app\" {}\ntask \"a.b\" {}\n",
			wantErr:  domain.ErrInvalidNodeName,
			location: "app.crunit:2",
		},
		{
			name:     "build without command",
			script:   "unit \"app\" {}\ntarget \"a\" {\n  outputs = \"x\"\n}\n",
			wantErr:  domain.ErrSyntax,
			location: "app.crunit:2",
		},
		{
			name:     "expand failure keeps its cause",
			script:   "unit \"app\" {}\ndefine {\n  A = expand(\"$Nope\")\n}\n",
			wantErr:  domain.ErrUndefinedVariable,
			location: "app.crunit:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			path := writeFile(t, filepath.Join(root, "app.crunit"), tt.script)

			l, _ := newLoader(t, root, nil)
			_, err := l.LoadFile(context.Background(), path)
			require.ErrorIs(t, err, tt.wantErr)

			zErr, ok := err.(*zerr.Error)
			require.True(t, ok, "expected *zerr.Error, got %T", err)
			assert.Equal(t, tt.location, zErr.Metadata()["location"])
			assert.Empty(t, l.Graph().Units())
		})
	}
}

func TestLoader_DuplicateUnitName(t *testing.T) {
	root := t.TempDir()
	first := writeFile(t, filepath.Join(root, "a", "app.crunit"), "unit \"app\" {}\n")
	second := writeFile(t, filepath.Join(root, "b", "app.crunit"), "unit \"app\" {}\n")

	l, _ := newLoader(t, root, nil)
	_, err := l.LoadFile(context.Background(), first)
	require.NoError(t, err)

	_, err = l.LoadFile(context.Background(), second)
	require.ErrorIs(t, err, domain.ErrDuplicateUnitName)

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok)
	assert.Equal(t, "a/app.crunit", zErr.Metadata()["location"])
}

func TestLoader_CyclicImport(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a.crunit"), "unit \"a\" {}\nimport \"b\" {}\ntask \"t\" {}\n")
	b := writeFile(t, filepath.Join(root, "b.crunit"), "unit \"b\" {}\nimport \"c\" {}\ntask \"t\" {}\n")
	c := writeFile(t, filepath.Join(root, "c.crunit"), "unit \"c\" {}\nimport \"a\" {}\ntask \"t\" {}\n")

	ctrl := gomock.NewController(t)
	locator := mocks.NewMockUnitLocator(ctrl)
	locator.EXPECT().Locate(gomock.Any(), "b").Return(b, nil)
	locator.EXPECT().Locate(gomock.Any(), "c").Return(c, nil)

	l, _ := newLoader(t, root, locator)
	_, err := l.LoadFile(context.Background(), a)
	require.ErrorIs(t, err, domain.ErrCyclicImport)

	var cycle any
	for cur := error(err); cur != nil; {
		z, ok := cur.(*zerr.Error)
		if !ok {
			break
		}
		if v, found := z.Metadata()["cycle"]; found {
			cycle = v
			break
		}
		cur = z.Unwrap()
	}
	assert.Equal(t, "a -> b -> c -> a", cycle)
	assert.Empty(t, l.Graph().Units())
}

func TestLoader_UnitNotFound(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, filepath.Join(root, "app.crunit"), "unit \"app\" {}\nimport \"nope\" {}\n")

	ctrl := gomock.NewController(t)
	locator := mocks.NewMockUnitLocator(ctrl)
	locator.EXPECT().Locate(gomock.Any(), "nope").
		Return("", zerr.With(zerr.Wrap(domain.ErrUnitNotFound, "cannot locate nope"), "unit", "nope"))

	l, _ := newLoader(t, root, locator)
	_, err := l.LoadFile(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
}

func TestLoader_IdentityMismatch(t *testing.T) {
	root := t.TempDir()
	app := writeFile(t, filepath.Join(root, "app.crunit"), "unit \"app\" {}\nimport \"lib\" {}\n")
	other := writeFile(t, filepath.Join(root, "lib.crunit"), "unit \"other\" {}\n")

	ctrl := gomock.NewController(t)
	locator := mocks.NewMockUnitLocator(ctrl)
	locator.EXPECT().Locate(gomock.Any(), "lib").Return(other, nil)

	l, _ := newLoader(t, root, locator)
	_, err := l.LoadFile(context.Background(), app)
	assert.ErrorIs(t, err, domain.ErrIdentityMismatch)
}

func TestLoader_Cancelled(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, filepath.Join(root, "app.crunit"), "unit \"app\" {}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l, _ := newLoader(t, root, nil)
	_, err := l.LoadFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
