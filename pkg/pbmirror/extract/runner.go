package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrLaunch marks a process that could not be started.
var ErrLaunch = errors.New("failed to launch process")

// ErrToolNotFound is returned when the extraction tool cannot be resolved.
var ErrToolNotFound = errors.New("extraction tool not found")

// Command is one external process invocation.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Timeout time.Duration // zero means no timeout
}

// String renders the command line with every argument quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, fmt.Sprintf("%q", c.Path))
	for _, a := range c.Args {
		parts = append(parts, fmt.Sprintf("%q", a))
	}
	return strings.Join(parts, " ")
}

// Status is the outcome of a finished process.
type Status struct {
	// ExitCode is the process exit code, -1 when it was killed or never ran.
	ExitCode int

	// TimedOut is set when the process was killed after Command.Timeout.
	TimedOut bool

	// Pid is the process id, 0 when the process never started.
	Pid int
}

// Runner starts a command and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Status, error)
}

// Resolver is implemented by runners that can check a tool exists before
// a batch starts.
type Resolver interface {
	Resolve(tool string) (string, error)
}

// ExecRunner runs commands as child processes with all output discarded.
// On unix each child gets its own process group so a timeout kills
// everything it spawned.
type ExecRunner struct{}

// Resolve returns the absolute path of tool, searching PATH when tool has
// no directory component.
func (ExecRunner) Resolve(tool string) (string, error) {
	if strings.ContainsRune(tool, os.PathSeparator) || strings.ContainsRune(tool, '/') {
		info, err := os.Stat(tool)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrToolNotFound, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", ErrToolNotFound, tool)
		}
		return filepath.Abs(tool)
	}

	path, err := exec.LookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrToolNotFound, err)
	}
	return path, nil
}

// Run starts c and waits for it to exit, the timeout to expire or ctx to be
// cancelled. On timeout or cancellation the process group is killed and the
// child reaped before Run returns. A timeout is reported in Status, not as
// an error.
func (ExecRunner) Run(ctx context.Context, c Command) (Status, error) {
	st := Status{ExitCode: -1}

	// Nil stdio connects the child to the null device.
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return st, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	st.Pid = cmd.Process.Pid

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var expired <-chan time.Time
	if c.Timeout > 0 {
		timer := time.NewTimer(c.Timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err := <-done:
		return exitStatus(st, err)
	case <-expired:
		st.TimedOut = true
		_ = killGroup(cmd)
		<-done
		return st, nil
	case <-ctx.Done():
		_ = killGroup(cmd)
		<-done
		return st, ctx.Err()
	}
}

func exitStatus(st Status, err error) (Status, error) {
	if err == nil {
		st.ExitCode = 0
		return st, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		st.ExitCode = exitErr.ExitCode()
		return st, nil
	}
	return st, err
}
