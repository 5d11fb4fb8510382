package macro_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports/mocks"
	"go.trai.ch/creator/internal/engine/macro"
	"go.trai.ch/creator/internal/engine/namespace"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

var loc = domain.Location{File: "app.crunit", Line: 1}

func newScope(t *testing.T, vars map[string]string) (*namespace.Store, *namespace.Scope) {
	t.Helper()
	store := namespace.NewStore()
	scope, err := store.NewUnitScope("app", ".")
	require.NoError(t, err)
	for k, v := range vars {
		scope.Define(k, v, loc)
	}
	return store, scope
}

func TestEvaluator_SequenceMode(t *testing.T) {
	_, scope := newScope(t, map[string]string{
		"Name":    "core",
		"Sources": "a.c  b.c\n c.c",
		"Empty":   "",
		"Pair":    "x y",
	})
	e := macro.New(nil)

	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "$Sources", want: []string{"a.c", "b.c", "c.c"}},
		{raw: "lib$Name.a", want: []string{"libcore.a"}},
		{raw: "lib${Name}.a -lm", want: []string{"libcore.a", "-lm"}},
		{raw: "pre$Pair", want: []string{"prex", "y"}},
		{raw: "$Pair.o", want: []string{"x", "y.o"}},
		{raw: "$Pair$Pair", want: []string{"x", "yx", "y"}},
		{raw: "a$Empty b", want: []string{"a", "b"}},
		{raw: "$Empty", want: nil},
		{raw: "  ", want: nil},
		{raw: "$$HOME", want: []string{"$HOME"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := e.Expand(scope, tt.raw, macro.Sequence, loc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_TextMode(t *testing.T) {
	_, scope := newScope(t, map[string]string{
		"CC":    "cc",
		"Flags": "-O2   -Wall",
	})
	e := macro.New(nil)

	got, err := e.ExpandText(scope, "$CC  $Flags -c file.c", loc)
	require.NoError(t, err)
	assert.Equal(t, "cc  -O2 -Wall -c file.c", got)
}

func TestEvaluator_Bindings(t *testing.T) {
	_, scope := newScope(t, map[string]string{"CC": "cc"})
	e := macro.New(nil)

	b := &macro.Bindings{Inputs: []string{"a.c", "b.c"}, Outputs: []string{"app"}, HasOutputs: true}
	got, read, err := e.ExpandWith(scope, "$CC $< -o $@", macro.Joined, loc, b)
	require.NoError(t, err)
	assert.True(t, read)
	assert.Equal(t, []string{"cc a.c b.c -o app"}, got)

	got, read, err = e.ExpandWith(scope, "$CC", macro.Sequence, loc, b)
	require.NoError(t, err)
	assert.False(t, read)
	assert.Equal(t, []string{"cc"}, got)

	t.Run("outputs unbound while deriving outputs", func(t *testing.T) {
		_, _, err := e.ExpandWith(scope, "$@", macro.Sequence, loc, &macro.Bindings{Inputs: []string{"a"}})
		assert.ErrorIs(t, err, domain.ErrUndefinedVariable)
	})

	t.Run("no bindings outside a build", func(t *testing.T) {
		_, err := e.Expand(scope, "$<", macro.Sequence, loc)
		assert.ErrorIs(t, err, domain.ErrUndefinedVariable)
	})

	t.Run("binding dependent values are not shared", func(t *testing.T) {
		scope.Define("Obj", "$(setsuffix $<, .o)", loc)
		first, _, err := e.ExpandWith(scope, "$Obj", macro.Sequence, loc, &macro.Bindings{Inputs: []string{"a.c"}})
		require.NoError(t, err)
		second, _, err := e.ExpandWith(scope, "$Obj", macro.Sequence, loc, &macro.Bindings{Inputs: []string{"b.c"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.o"}, first)
		assert.Equal(t, []string{"b.o"}, second)
	})
}

func TestEvaluator_ClosureScoping(t *testing.T) {
	store := namespace.NewStore()
	lib, err := store.NewUnitScope("libs.core", "libs/core")
	require.NoError(t, err)
	app, err := store.NewUnitScope("app", ".")
	require.NoError(t, err)

	lib.Define("Include", "$ProjectPath/include", loc)
	lib.Define("Flags", "-I$Include", loc)
	app.Define("Include", "app/include", loc)
	app.Define("ProjectPath", "elsewhere", loc)
	app.Import("libs.core", "core")

	e := macro.New(nil)
	got, err := e.Expand(app, "$core:Flags -I$Include", macro.Sequence, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"-Ilibs/core/include", "-Iapp/include"}, got)
}

func TestEvaluator_Append(t *testing.T) {
	store := namespace.NewStore(namespace.WithMacros(map[string]string{"Flags": "-O$Level"}))
	scope, err := store.NewUnitScope("app", ".")
	require.NoError(t, err)
	store.Global().DefineValue("Level", []string{"2"})

	scope.Append("Flags", "-g", loc)
	scope.Append("Flags", "-Wall", loc)

	e := macro.New(nil)
	got, err := e.Expand(scope, "$Flags", macro.Sequence, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"-O2", "-g", "-Wall"}, got)
}

func TestEvaluator_RecursiveExpansion(t *testing.T) {
	t.Run("mutual", func(t *testing.T) {
		_, scope := newScope(t, map[string]string{"A": "x $B", "B": "$A"})
		_, err := macro.New(nil).Expand(scope, "$A", macro.Sequence, loc)
		require.ErrorIs(t, err, domain.ErrRecursiveExpansion)

		zErr, ok := err.(*zerr.Error)
		require.True(t, ok)
		assert.Equal(t, "app:A -> app:B -> app:A", zErr.Metadata()["cycle"])
	})

	t.Run("self reference", func(t *testing.T) {
		_, scope := newScope(t, map[string]string{"Flags": "$Flags -g"})
		_, err := macro.New(nil).Expand(scope, "$Flags", macro.Sequence, loc)
		assert.ErrorIs(t, err, domain.ErrRecursiveExpansion)
	})

	t.Run("same name in different scopes", func(t *testing.T) {
		store := namespace.NewStore(namespace.WithMacros(map[string]string{"Flags": "-O2"}))
		scope, err := store.NewUnitScope("app", ".")
		require.NoError(t, err)
		scope.Define("Local", "$Flags", loc)
		child := scope.Child()
		child.Define("Flags", "$Local -g", loc)

		got, err := macro.New(nil).Expand(child, "$Flags", macro.Sequence, loc)
		require.NoError(t, err)
		assert.Equal(t, []string{"-O2", "-g"}, got)
	})
}

func TestEvaluator_Functions(t *testing.T) {
	store := namespace.NewStore()
	lib, err := store.NewUnitScope("toolchain", ".")
	require.NoError(t, err)
	app, err := store.NewUnitScope("app", ".")
	require.NoError(t, err)
	app.Import("toolchain", "c")

	lib.Define("Ext", ".o", loc)
	lib.DefineFunction(&namespace.Function{
		Name:     "obj",
		Params:   []string{"dir"},
		Body:     "$(move $<, src, $dir, $Ext)",
		Exported: true,
		Origin:   loc,
	})
	lib.DefineFunction(&namespace.Function{Name: "hidden", Body: "x"})
	app.DefineFunction(&namespace.Function{Name: "twice", Params: []string{"a", "b"}, Body: "$a $b $a"})
	app.DefineFunction(&namespace.Function{Name: "loop", Body: "$(loop)"})

	e := macro.New(nil)

	got, _, err := e.ExpandWith(app, "$(c:obj build/obj)", macro.Sequence, loc,
		&macro.Bindings{Inputs: []string{"src/a.c", "src/sub/b.c"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"build/obj/a.o", "build/obj/sub/b.o"}, got)

	got, err = e.Expand(app, "$(twice 1, 2 3)", macro.Sequence, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "1"}, got)

	_, err = e.Expand(app, "$(c:hidden)", macro.Sequence, loc)
	assert.ErrorIs(t, err, domain.ErrUnknownFunction)

	_, err = e.Expand(app, "$(nope x)", macro.Sequence, loc)
	assert.ErrorIs(t, err, domain.ErrUnknownFunction)

	_, err = e.Expand(app, "$(twice 1)", macro.Sequence, loc)
	assert.ErrorIs(t, err, domain.ErrArityError)

	_, err = e.Expand(app, "$(move a)", macro.Sequence, loc)
	assert.ErrorIs(t, err, domain.ErrArityError)

	_, err = e.Expand(app, "$(loop)", macro.Sequence, loc)
	assert.ErrorIs(t, err, domain.ErrRecursiveExpansion)
}

func TestEvaluator_Conditional(t *testing.T) {
	_, scope := newScope(t, map[string]string{"Mode": "release"})
	e := macro.New(nil)

	got, err := e.Expand(scope, "$(if $(defined Missing), $Missing, fallback)", macro.Sequence, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, got)

	got, err = e.Expand(scope, "$(if $(eq $Mode, release), -O2, -O0)", macro.Sequence, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"-O2"}, got)

	got, err = e.Expand(scope, "$(if $(ne $Mode, release), -g)", macro.Sequence, loc)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEvaluator_ErrorLocation(t *testing.T) {
	_, scope := newScope(t, nil)
	scope.Define("Broken", "$Missing", domain.Location{File: "lib.crunit", Line: 12})

	_, err := macro.New(nil).Expand(scope, "$Broken", macro.Sequence, loc)
	require.ErrorIs(t, err, domain.ErrUndefinedVariable)

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok)
	assert.Equal(t, "lib.crunit:12", zErr.Metadata()["location"])
	assert.Equal(t, "Missing", zErr.Metadata()["name"])
}

func TestEvaluator_MemoizedPerPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockFileSnapshot(ctrl)
	second := mocks.NewMockFileSnapshot(ctrl)

	first.EXPECT().Glob("src/*.cpp").Return([]string{"src/a.cpp", "src/b.cpp"}, nil).Times(1)
	second.EXPECT().Glob("src/*.cpp").Return([]string{"src/a.cpp"}, nil).Times(1)

	_, scope := newScope(t, map[string]string{"Sources": "$(wildcard src/*.cpp)"})
	e := macro.New(first)
	e.Reset(1, first)

	for range 3 {
		got, err := e.Expand(scope, "$Sources", macro.Sequence, loc)
		require.NoError(t, err)
		assert.Equal(t, []string{"src/a.cpp", "src/b.cpp"}, got)
	}

	e.Reset(2, second)
	assert.Equal(t, uint64(2), e.Pass())
	got, err := e.Expand(scope, "$Sources", macro.Sequence, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.cpp"}, got)
}

func TestEvaluator_Invalidate(t *testing.T) {
	_, scope := newScope(t, map[string]string{"A": "one"})
	e := macro.New(nil)

	got, err := e.Expand(scope, "$A", macro.Sequence, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, got)

	scope.Define("A", "two", loc)
	e.Invalidate()

	got, err = e.Expand(scope, "$A", macro.Sequence, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, got)
	assert.Equal(t, uint64(0), e.Pass())
}
