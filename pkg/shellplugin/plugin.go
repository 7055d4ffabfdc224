package shellplugin

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
)

// Name is used when registering with a host's hooks
const Name = "ShellPlugin"

// SupportedHosts is the range of host hook API versions this plugin was written against
const SupportedHosts = ">= 1.0.0, < 2.0.0"

var supportedHosts = mustConstraint(SupportedHosts)

func mustConstraint(constraint string) *semver.Constraints {
	result, err := semver.NewConstraint(constraint)
	if err != nil {
		panic(err)
	}
	return result
}

// Host is implemented by build systems that expose the three lifecycle hooks used by the plugin.
type Host interface {
	// Version returns the host's hook API version (semver)
	Version() string
	// TapCompile registers fn to run before compilation starts
	TapCompile(name string, fn func(compilation fmt.Stringer))
	// TapEmit registers fn to run before output is written. fn has to call done exactly once.
	TapEmit(name string, fn func(compilation fmt.Stringer, done func()))
	// TapDone registers fn to run after the build has finished
	TapDone(name string, fn func())
}

// Plugin runs the configured scripts at each lifecycle point of a Host.
type Plugin struct {
	options Options
	runner  *Runner
	logger  *zerolog.Logger
}

// New resolves the raw user options (see Resolve) and creates the plugin. The logger attached to
// ctx is used for all output; without one, messages are written to stderr (see WithLogger).
func New(ctx context.Context, user map[string]interface{}, opts ...RunnerOption) (*Plugin, error) {
	return NewFromOptions(ctx, Resolve(ctx, user), opts...)
}

// NewFromOptions creates the plugin from already resolved options
func NewFromOptions(ctx context.Context, options Options, opts ...RunnerOption) (*Plugin, error) {
	runner, err := NewRunner(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &Plugin{
		options: options,
		runner:  runner,
		logger:  runner.logger,
	}, nil
}

// Options returns the resolved configuration
func (p *Plugin) Options() Options {
	return p.options
}

// Apply registers exactly one callback on each of host's hooks
func (p *Plugin) Apply(host Host) {
	p.checkHost(host.Version())

	host.TapCompile(Name, p.OnCompileStart)
	host.TapEmit(Name, p.OnEmit)
	host.TapDone(Name, p.OnDone)
}

func (p *Plugin) checkHost(version string) {
	hostVersion, err := semver.NewVersion(version)
	if err != nil {
		p.logger.Warn().Str("version", version).Msg("host reported an invalid version")
		return
	}

	if !supportedHosts.Check(hostVersion) {
		p.logger.Warn().
			Str("version", version).
			Msgf("host version is outside of the supported range %s", SupportedHosts)
	}
}

// OnCompileStart runs the onBuildStart scripts
func (p *Plugin) OnCompileStart(compilation fmt.Stringer) {
	if p.options.Verbose {
		p.logger.Info().Msgf("Report compilation: %v", compilation)
	}

	p.runAll(KeyOnBuildStart, "Executing pre-build scripts")
}

// OnEmit runs the onBuildEnd scripts and calls done without waiting for them
func (p *Plugin) OnEmit(compilation fmt.Stringer, done func()) {
	p.runAll(KeyOnBuildEnd, "Executing post-build scripts")
	done()
}

// OnDone runs the onBuildExit scripts
func (p *Plugin) OnDone() {
	p.runAll(KeyOnBuildExit, "Executing additional scripts before exit")
}

func (p *Plugin) runAll(key, msg string) {
	entries := p.options.Entries(key)
	if len(entries) == 0 {
		return
	}

	p.logger.Info().Str("hook", key).Msg(msg)
	for _, entry := range entries {
		p.runner.Run(entry)
	}
}

// Wait blocks until every script started so far has exited
func (p *Plugin) Wait() {
	p.runner.Wait()
}

// Close releases the plugin's worker pool
func (p *Plugin) Close() {
	p.runner.Close()
}
