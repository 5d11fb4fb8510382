package ninja_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/creator/internal/engine/ninja"
)

func TestWriter(t *testing.T) {
	tests := []struct {
		name   string
		input  func(w *ninja.Writer)
		output string
	}{
		{
			name:   "comment",
			input:  func(w *ninja.Writer) { w.Comment("foo\n\nbar") },
			output: "# foo\n#\n# bar\n",
		},
		{
			name:   "assign",
			input:  func(w *ninja.Writer) { w.Assign("foo", "bar") },
			output: "foo = bar\n",
		},
		{
			name:   "rule",
			input:  func(w *ninja.Writer) { w.Rule("cc", "command", "cc $in -o $out", "description", "CC $out") },
			output: "rule cc\n    command = cc $in -o $out\n    description = CC $out\n",
		},
		{
			name: "build",
			input: func(w *ninja.Writer) {
				w.Build(ninja.Build{Outputs: []string{"out"}, Rule: "cc", Inputs: []string{"in"}})
			},
			output: "build out: cc in\n",
		},
		{
			name: "build all sections",
			input: func(w *ninja.Writer) {
				w.Build(ninja.Build{
					Outputs:         []string{"out1", "out2"},
					ImplicitOutputs: []string{"io1"},
					Rule:            "cc",
					Inputs:          []string{"in1", "in2"},
					Implicit:        []string{"imp1"},
					OrderOnly:       []string{"oo1"},
				})
			},
			output: "build out1 out2 | io1: cc in1 in2 | imp1 || oo1\n",
		},
		{
			name: "build escapes paths",
			input: func(w *ninja.Writer) {
				w.Build(ninja.Build{Outputs: []string{"c:/my out"}, Rule: "cc", Inputs: []string{"a b:c", "$x"}})
			},
			output: "build c$:/my$ out: cc a$ b:c $$x\n",
		},
		{
			name:   "default",
			input:  func(w *ninja.Writer) { w.Default("app.bin", "app.docs") },
			output: "default app.bin app.docs\n",
		},
		{
			name:   "default without targets",
			input:  func(w *ninja.Writer) { w.Default() },
			output: "",
		},
		{
			name: "blank lines collapse",
			input: func(w *ninja.Writer) {
				w.Assign("a", "1")
				w.BlankLine()
				w.BlankLine()
				w.Assign("b", "2")
			},
			output: "a = 1\n\nb = 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := ninja.NewWriter(&buf)
			tt.input(w)
			require.NoError(t, w.Err())
			assert.Equal(t, tt.output, buf.String())
		})
	}
}

type failingWriter struct {
	calls int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestWriter_LatchesFirstError(t *testing.T) {
	fw := &failingWriter{}
	w := ninja.NewWriter(fw)

	w.Assign("a", "1")
	w.Assign("b", "2")
	w.Default("x")

	require.EqualError(t, w.Err(), "disk full")
	assert.Equal(t, 1, fw.calls)
}

func TestEscapeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cc -c a.c", "cc -c a.c"},
		{"echo $HOME", "echo $$HOME"},
		{"cp a\n    b", "cp a b"},
		{"  one\r\n\ntwo  \n", "one two"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ninja.EscapeCommand(tt.in), tt.in)
	}
}

func TestRuleName(t *testing.T) {
	assert.Equal(t, "libs_core_headers_0000", ninja.RuleName("libs.core_headers_0000"))
	assert.Equal(t, "a_b_c", ninja.RuleName("a-b c"))
}
