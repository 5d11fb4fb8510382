package telemetry

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/creator/internal/ui/output"
	"go.trai.ch/creator/internal/ui/style"
)

var _ sdktrace.SpanProcessor = (*Bridge)(nil)

// Bridge implements sdktrace.SpanProcessor and prints one line when a step starts
// and one when it completes.
type Bridge struct {
	mu  sync.Mutex
	out *termenv.Output
}

// NewBridge returns a Bridge that writes to w. A nil writer means os.Stderr.
func NewBridge(w io.Writer) *Bridge {
	return &Bridge{out: output.New(w)}
}

// OnPlanEmit prints the planned steps.
func (b *Bridge) OnPlanEmit(steps []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.println(string(style.Iris), fmt.Sprintf("%s %d step(s) planned", style.Dot, len(steps)))
	for _, step := range steps {
		b.println(string(style.Slate), "  "+step)
	}
}

// OnStart is called when a span starts.
func (b *Bridge) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	if !s.SpanContext().IsValid() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.println(string(style.Slate), style.Arrow+" "+s.Name())
}

// OnEnd is called when a span ends.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if !s.SpanContext().IsValid() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := s.EndTime().Sub(s.StartTime()).Round(time.Millisecond)
	if s.Status().Code == codes.Error {
		desc := s.Status().Description
		if desc == "" {
			desc = "step failed"
		}
		b.println(string(style.Red), fmt.Sprintf("%s %s failed after %s: %s", style.Cross, s.Name(), elapsed, desc))
		return
	}
	b.println(string(style.Green), fmt.Sprintf("%s %s (%s)", style.Check, s.Name(), elapsed))
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}

func (b *Bridge) println(color, s string) {
	_, _ = b.out.WriteString(output.Paint(b.out, color, s) + "\n")
}
