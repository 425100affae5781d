package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout matches the configuration default of 300 seconds.
	DefaultTimeout = 300 * time.Second

	// DefaultWaitDelay bounds how long Run waits for output pipes after the
	// process tree has been killed.
	DefaultWaitDelay = 5 * time.Second

	// DefaultMaxOutput caps each captured stream. Lines past the cap are
	// still delivered to callbacks.
	DefaultMaxOutput = 32 << 20
)

// ErrEmptyCommand is returned when Run is called without an executable.
var ErrEmptyCommand = errors.New("empty command")

// Command describes a single external invocation.
type Command struct {
	// Args holds the executable path followed by its arguments.
	Args []string
	// Dir is the working directory. It is created when missing.
	// Empty means the current directory.
	Dir string
	// Timeout overrides the runner default. Zero uses the default.
	Timeout time.Duration
	// Env entries are appended to the current environment.
	Env []string
	// OnLine receives each stdout line as it is produced.
	OnLine func(line string)
	// OnErrLine receives each stderr line as it is produced.
	OnErrLine func(line string)
}

// Result is the outcome of a finished or killed process.
type Result struct {
	RunID       string
	Args        []string
	ExitCode    int
	Success     bool
	Output      string
	ErrorOutput string
	TimedOut    bool
	Truncated   bool
	Duration    time.Duration
}

// Err converts an unsuccessful result into an *ExitError. It returns nil
// when the process succeeded.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	name := ""
	if len(r.Args) > 0 {
		name = r.Args[0]
	}
	return &ExitError{
		Command:  name,
		ExitCode: r.ExitCode,
		TimedOut: r.TimedOut,
		Timeout:  r.Duration,
		Stderr:   r.ErrorOutput,
	}
}

// ExitError reports a process that exited non-zero or was killed on timeout.
type ExitError struct {
	Command  string
	ExitCode int
	TimedOut bool
	Timeout  time.Duration
	Stderr   string
}

func (e *ExitError) Error() string {
	var msg string
	if e.TimedOut {
		msg = fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout.Round(time.Millisecond))
	} else {
		msg = fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	}
	if tail := stderrTail(e.Stderr, 20); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func stderrTail(s string, maxLines int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}

// Runner executes external commands with a timeout and whole-tree kill.
type Runner struct {
	defaultTimeout time.Duration
	waitDelay      time.Duration
	maxOutput      int
	logger         *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithDefaultTimeout sets the timeout used when Command.Timeout is zero.
// A non-positive value disables the default.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Runner) { r.defaultTimeout = d }
}

// WithWaitDelay sets how long to wait for inherited pipes after a kill.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.waitDelay = d
		}
	}
}

// WithMaxOutput caps the bytes captured per stream.
func WithMaxOutput(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxOutput = n
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		defaultTimeout: DefaultTimeout,
		waitDelay:      DefaultWaitDelay,
		maxOutput:      DefaultMaxOutput,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the command and waits for it to finish, time out, or be
// cancelled through ctx. A non-zero exit code is reported in the Result and
// is not an error. Errors are returned only when the command cannot be
// started or ctx is cancelled; in the latter case the partial Result is
// returned as well.
func (r *Runner) Run(ctx context.Context, c Command) (Result, error) {
	if len(c.Args) == 0 || c.Args[0] == "" {
		return Result{ExitCode: -1}, ErrEmptyCommand
	}

	res := Result{
		RunID:    uuid.NewString(),
		Args:     append([]string(nil), c.Args...),
		ExitCode: -1,
	}
	logger := r.logger.With("run_id", res.RunID, "command", c.Args[0])

	if c.Dir != "" {
		if err := os.MkdirAll(c.Dir, 0o755); err != nil {
			return res, fmt.Errorf("failed to create working directory %s: %w", c.Dir, err)
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stdout := newLineWriter(c.OnLine, r.maxOutput, logger)
	stderr := newLineWriter(c.OnErrLine, r.maxOutput, logger)

	cmd := exec.CommandContext(runCtx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	configureCommand(cmd)
	var killed atomic.Bool
	cmd.Cancel = func() error {
		killed.Store(true)
		return killTree(cmd.Process, logger)
	}
	cmd.WaitDelay = r.waitDelay

	logger.Debug("starting process", "args", c.Args[1:], "dir", c.Dir, "timeout", timeout)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("failed to start %s: %w", c.Args[0], err)
	}

	waitErr := cmd.Wait()
	res.Duration = time.Since(start)

	stdout.Flush()
	stderr.Flush()

	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	res.Output = stdout.String()
	res.ErrorOutput = stderr.String()
	res.Truncated = stdout.Truncated() || stderr.Truncated()
	// A process that exited cleanly before the kill landed did not time out,
	// even when Wait itself outlived the deadline.
	res.TimedOut = killed.Load() && ctx.Err() == nil &&
		errors.Is(runCtx.Err(), context.DeadlineExceeded) &&
		(cmd.ProcessState == nil || !cmd.ProcessState.Success())
	res.Success = res.ExitCode == 0 && !res.TimedOut

	if errors.Is(waitErr, exec.ErrWaitDelay) {
		logger.Warn("output pipes still open after wait delay", "wait_delay", r.waitDelay)
	}

	logger.Debug("process finished",
		"exit_code", res.ExitCode,
		"timed_out", res.TimedOut,
		"duration", res.Duration)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%s cancelled: %w", c.Args[0], err)
	}
	if res.TimedOut {
		logger.Warn("process timed out", "timeout", timeout)
	}
	return res, nil
}
