package buildsys

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
)

// Version is the hook API version reported to plugins
const Version = "1.2.0"

// Compilation describes a single build run
type Compilation struct {
	ID      string
	Dir     string
	Steps   []string
	Started time.Time
}

// String returns a short description of the compilation
func (c *Compilation) String() string {
	return fmt.Sprintf("<Compilation %s: %d steps in %s>", c.ID, len(c.Steps), c.Dir)
}

// Stats is passed to the done hook
type Stats struct {
	Compilation *Compilation
	Duration    time.Duration
	Err         error
}

// Compiler runs the build steps of a build script and fires the lifecycle hooks around them
type Compiler struct {
	Hooks  Hooks
	DryRun bool

	dir    string
	steps  []string
	env    map[string]string
	stdout io.Writer
	stderr io.Writer
}

// NewCompiler creates a compiler that runs steps inside dir with env added to the process
// environment
func NewCompiler(dir string, steps []string, env map[string]string) *Compiler {
	if dir == "" {
		dir = "."
	}

	if env == nil {
		env = map[string]string{}
	}

	return &Compiler{
		dir:    dir,
		steps:  steps,
		env:    env,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetOutput changes the streams the build steps write to
func (c *Compiler) SetOutput(stdout, stderr io.Writer) {
	c.stdout = stdout
	c.stderr = stderr
}

// Version returns the hook API version
func (c *Compiler) Version() string {
	return Version
}

// TapCompile registers fn on the compile hook
func (c *Compiler) TapCompile(name string, fn func(fmt.Stringer)) {
	c.Hooks.Compile.Tap(name, func(compilation *Compilation) {
		fn(compilation)
	})
}

// TapEmit registers fn on the emit hook
func (c *Compiler) TapEmit(name string, fn func(fmt.Stringer, func())) {
	c.Hooks.Emit.TapAsync(name, func(compilation *Compilation, done func()) {
		fn(compilation, done)
	})
}

// TapDone registers fn on the done hook
func (c *Compiler) TapDone(name string, fn func()) {
	c.Hooks.Done.Tap(name, func(*Stats) {
		fn()
	})
}

// Run executes a single build: compile hook, build steps, emit hook and done hook. The emit hook
// is skipped if a step fails; the done hook always runs.
func (c *Compiler) Run(ctx context.Context) (*Stats, error) {
	compilation := &Compilation{
		ID:      nanoid.New(),
		Dir:     c.dir,
		Steps:   c.steps,
		Started: time.Now(),
	}

	log(ctx).Debug().
		Str("compilation", compilation.ID).
		Msgf("starting build with %d steps", len(c.steps))

	c.Hooks.Compile.Call(compilation)

	err := c.runSteps(ctx, compilation)
	if err == nil {
		emitted := make(chan struct{})
		c.Hooks.Emit.CallAsync(compilation, func() {
			close(emitted)
		})

		select {
		case <-emitted:
		case <-ctx.Done():
			err = eris.Wrap(ctx.Err(), "interrupted while waiting for the emit hook")
		}
	}

	stats := &Stats{
		Compilation: compilation,
		Duration:    time.Since(compilation.Started),
		Err:         err,
	}
	c.Hooks.Done.Call(stats)

	return stats, err
}
