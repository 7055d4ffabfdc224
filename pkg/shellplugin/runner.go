package shellplugin

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/aidarkhanov/nanoid"
	"github.com/panjf2000/ants/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/valyala/bytebufferpool"
)

// DefaultStderrTail is the tail size used by hosts that enable stderr capturing
const DefaultStderrTail = 4096

// Runner spawns script entries as child processes. Run returns as soon as the process has been
// started; a background worker waits for it and logs failures.
type Runner struct {
	logger   *zerolog.Logger
	pool     *ants.Pool
	pending  sync.WaitGroup
	workers  int
	tailSize int

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// replaced in tests
	commandFunc func(name string, args ...string) *exec.Cmd
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithWorkers limits the number of background workers waiting for scripts. Values <= 0 mean
// unlimited. If all workers are busy, an extra goroutine is used instead of blocking the caller.
func WithWorkers(size int) RunnerOption {
	return func(r *Runner) {
		r.workers = size
	}
}

// WithStdio overrides the streams passed to spawned processes (os.Stdin, os.Stdout and os.Stderr
// by default). A nil value keeps the default.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		if stdin != nil {
			r.stdin = stdin
		}
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
	}
}

// WithStderrTail keeps the last size bytes of a script's stderr and attaches them to the failure
// log. Capturing puts a pipe between the script and the stderr stream passed to WithStdio, so
// it's off (0) by default.
func WithStderrTail(size int) RunnerOption {
	return func(r *Runner) {
		r.tailSize = size
	}
}

// WithLogger replaces the logger taken from the context passed to NewRunner
func WithLogger(logger *zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCommandFunc replaces exec.Command
func WithCommandFunc(fn func(name string, args ...string) *exec.Cmd) RunnerOption {
	return func(r *Runner) {
		r.commandFunc = fn
	}
}

// NewRunner creates a Runner that logs through the logger attached to ctx (or to stderr if there
// is none)
func NewRunner(ctx context.Context, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		logger:      log(ctx),
		workers:     -1,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		commandFunc: exec.Command,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.workers <= 0 {
		r.workers = -1
	}

	pool, err := ants.NewPool(r.workers, ants.WithNonblocking(true), ants.WithPanicHandler(func(p interface{}) {
		r.logger.Error().Msgf("script observer panicked: %v", p)
	}))
	if err != nil {
		return nil, eris.Wrap(err, "failed to create worker pool")
	}

	r.pool = pool
	return r, nil
}

// Run starts the given entry and returns immediately. Errors are never returned, they're logged
// once the process exits (or immediately if it couldn't be started).
func (r *Runner) Run(entry ScriptEntry) {
	desc := Normalize(entry)
	logger := r.logger.With().
		Str("run", nanoid.New()).
		Str("command", desc.Command).
		Logger()

	cmd := r.commandFunc(desc.Command, desc.Args...)
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	var tail *tailBuffer
	if r.tailSize > 0 {
		tail = newTailBuffer(r.tailSize)
		cmd.Stderr = io.MultiWriter(r.stderr, tail)
	}

	logger.Debug().Strs("args", desc.Args).Msg("starting script")
	startErr := cmd.Start()

	r.pending.Add(1)
	observe := func() {
		defer r.pending.Done()
		defer tail.release()

		var err error
		if startErr != nil {
			err = eris.Wrapf(startErr, "failed to start %s", desc.Command)
		} else if err = cmd.Wait(); err != nil {
			err = eris.Wrapf(err, "%s failed", desc)
		}

		if err != nil {
			logger.Error().
				Err(err).
				Str("stderr", tail.String()).
				Msg("script failed")
			return
		}

		logger.Debug().Msg("script finished")
	}

	if err := r.pool.Submit(observe); err != nil {
		// overloaded or released; the observer must run regardless
		go observe()
	}
}

// Wait blocks until every started script has exited and its outcome was logged. The hooks never
// call this; it's meant for hosts that want to keep the process alive until all scripts are done.
func (r *Runner) Wait() {
	r.pending.Wait()
}

// Close releases the worker pool. Observers that are already running finish normally.
func (r *Runner) Close() {
	r.pool.Release()
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	buf   *bytebufferpool.ByteBuffer
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{
		buf:   bytebufferpool.Get(),
		limit: limit,
	}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if t.limit <= 0 {
		return n, nil
	}

	if len(p) >= t.limit {
		t.buf.Reset()
		p = p[len(p)-t.limit:]
	}

	_, _ = t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.B = append(t.buf.B[:0], t.buf.B[over:]...)
	}

	return n, nil
}

func (t *tailBuffer) String() string {
	if t == nil || t.buf == nil {
		return ""
	}

	return strings.TrimRight(t.buf.String(), "\r\n")
}

func (t *tailBuffer) release() {
	if t != nil && t.buf != nil {
		bytebufferpool.Put(t.buf)
		t.buf = nil
	}
}
