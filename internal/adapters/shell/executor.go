// Package shell runs external processes for the scheduler.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/creack/pty"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.Executor = (*Executor)(nil)

// exitNotFound is reported when the program cannot be started at all.
const exitNotFound = 127

// Executor implements ports.Executor using os/exec. Commands that ask for a terminal
// run in a pseudo-terminal when the platform provides one.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Execute runs cmd and waits for it to complete.
func (e *Executor) Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error {
	if len(cmd.Args) == 0 {
		return zerr.With(zerr.Wrap(domain.ErrEmptyCommand, "nothing to run"), "command", cmd.Name)
	}

	stdoutLog := &logWriter{log: e.logger.Info}
	stderrLog := &logWriter{log: e.logger.Warn}
	defer func() {
		_ = stdoutLog.Close()
		_ = stderrLog.Close()
	}()

	outs := writers(stdoutLog, stdout)
	errs := writers(stderrLog, stderr)
	env := resolveEnvironment(os.Environ(), cmd.Environment)

	var err error
	if cmd.Terminal {
		err = e.runTerminal(ctx, cmd, env, outs)
		if errors.Is(err, errNoTerminal) {
			err = e.runPipes(ctx, cmd, env, outs, errs)
		}
	} else {
		err = e.runPipes(ctx, cmd, env, outs, errs)
	}
	if err != nil {
		return zerr.With(err, "command", cmd.Name)
	}
	return nil
}

var errNoTerminal = errors.New("pseudo-terminal unavailable")

// runTerminal merges stdout and stderr of the process into out.
func (e *Executor) runTerminal(ctx context.Context, cmd domain.Command, env []string, out io.Writer) error {
	proc := command(ctx, cmd, env)

	ptmx, err := pty.Start(proc)
	if err != nil {
		if proc.Process == nil {
			return errNoTerminal
		}
		return zerr.With(zerr.Wrap(err, "failed to start "+cmd.Args[0]), "exit_code", exitNotFound)
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		// Reading the master fails with EIO once the process side is closed.
		_, _ = io.Copy(out, ptmx)
	}()

	waitErr := proc.Wait()
	<-ioDone
	_ = ptmx.Close()
	return exitError(waitErr)
}

func (e *Executor) runPipes(ctx context.Context, cmd domain.Command, env []string, stdout, stderr io.Writer) error {
	proc := command(ctx, cmd, env)

	outPipe, err := proc.StdoutPipe()
	if err != nil {
		return zerr.Wrap(err, "failed to open stdout")
	}
	errPipe, err := proc.StderrPipe()
	if err != nil {
		return zerr.Wrap(err, "failed to open stderr")
	}

	if err := proc.Start(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to start "+cmd.Args[0]), "exit_code", exitNotFound)
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(stdout, outPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(stderr, errPipe)
		return err
	})
	copyErr := g.Wait()

	if err := exitError(proc.Wait()); err != nil {
		return err
	}
	if copyErr != nil && !errors.Is(copyErr, os.ErrClosed) {
		return zerr.Wrap(copyErr, "failed to read output")
	}
	return nil
}

func command(ctx context.Context, cmd domain.Command, env []string) *exec.Cmd {
	name := cmd.Args[0]

	executable := name
	if !filepath.IsAbs(name) && !strings.ContainsRune(name, filepath.Separator) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	proc := exec.CommandContext(ctx, executable, cmd.Args[1:]...) //nolint:gosec // user provided command
	proc.Args[0] = name
	proc.Dir = cmd.Dir
	proc.Env = env
	return proc
}

func exitError(err error) error {
	if err == nil {
		return nil
	}
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode)
}

func writers(log, extra io.Writer) io.Writer {
	if extra == nil {
		return log
	}
	return io.MultiWriter(log, extra)
}

// logWriter forwards complete lines of process output to a log function.
type logWriter struct {
	mu  sync.Mutex
	log func(string)
	buf []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *logWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	// PTYs terminate lines with \r\n.
	w.log(strings.TrimSuffix(string(line), "\r"))
}

// resolveEnvironment applies overrides on top of the inherited environment.
// The result is sorted by variable name.
func resolveEnvironment(sysEnv []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(overrides))
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range overrides {
		envMap[k] = v
	}

	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	result := make([]string, 0, len(keys))
	for _, k := range keys {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
