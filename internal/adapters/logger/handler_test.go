package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/creator/internal/adapters/logger"
)

func TestPrettyHandler(t *testing.T) {
	tests := []struct {
		name string
		log  func(l *slog.Logger)
		want string
	}{
		{
			name: "attributes",
			log:  func(l *slog.Logger) { l.Info("loaded", "units", 3) },
			want: "loaded units=3\n",
		},
		{
			name: "handler attributes come first",
			log:  func(l *slog.Logger) { l.With("pass", 1).Warn("stale", "file", "build.ninja") },
			want: "! stale pass=1 file=build.ninja\n",
		},
		{
			name: "group prefixes keys",
			log:  func(l *slog.Logger) { l.WithGroup("ninja").Error("failed", "exit_code", 1) },
			want: "✗ failed ninja.exit_code=1\n",
		},
		{
			name: "below level is dropped",
			log:  func(l *slog.Logger) { l.Debug("noise") },
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")
			var buf bytes.Buffer
			tt.log(slog.New(logger.NewPrettyHandler(&buf, nil)))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
