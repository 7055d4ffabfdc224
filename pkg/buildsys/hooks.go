package buildsys

import "sync"

// Hook names as reported by Taps
const (
	HookCompile = "compile"
	HookEmit    = "emit"
	HookDone    = "done"
)

type (
	compileTap struct {
		name string
		fn   func(*Compilation)
	}
	emitTap struct {
		name string
		fn   func(*Compilation, func())
	}
	doneTap struct {
		name string
		fn   func(*Stats)
	}
)

// CompileHook is called once per build before any step runs
type CompileHook struct {
	taps []compileTap
}

// Tap registers fn under the given plugin name
func (h *CompileHook) Tap(name string, fn func(*Compilation)) {
	h.taps = append(h.taps, compileTap{name: name, fn: fn})
}

// Call invokes all taps in registration order
func (h *CompileHook) Call(compilation *Compilation) {
	for _, tap := range h.taps {
		tap.fn(compilation)
	}
}

// Taps returns the names of all registered taps
func (h *CompileHook) Taps() []string {
	names := make([]string, len(h.taps))
	for idx, tap := range h.taps {
		names[idx] = tap.name
	}
	return names
}

// EmitHook is called after all steps succeeded. Taps run in series; each one receives a
// continuation which starts the next tap.
type EmitHook struct {
	taps []emitTap
}

// TapAsync registers fn under the given plugin name. fn must call its continuation once it's done.
func (h *EmitHook) TapAsync(name string, fn func(*Compilation, func())) {
	h.taps = append(h.taps, emitTap{name: name, fn: fn})
}

// CallAsync runs the taps in series and calls done after the last one finished. Calling a
// continuation more than once has no effect.
func (h *EmitHook) CallAsync(compilation *Compilation, done func()) {
	taps := make([]emitTap, len(h.taps))
	copy(taps, h.taps)
	callEmitTaps(taps, compilation, done)
}

func callEmitTaps(taps []emitTap, compilation *Compilation, done func()) {
	if len(taps) == 0 {
		done()
		return
	}

	var once sync.Once
	taps[0].fn(compilation, func() {
		once.Do(func() {
			callEmitTaps(taps[1:], compilation, done)
		})
	})
}

// Taps returns the names of all registered taps
func (h *EmitHook) Taps() []string {
	names := make([]string, len(h.taps))
	for idx, tap := range h.taps {
		names[idx] = tap.name
	}
	return names
}

// DoneHook is called once per build after everything else, even if a step failed
type DoneHook struct {
	taps []doneTap
}

// Tap registers fn under the given plugin name
func (h *DoneHook) Tap(name string, fn func(*Stats)) {
	h.taps = append(h.taps, doneTap{name: name, fn: fn})
}

// Call invokes all taps in registration order
func (h *DoneHook) Call(stats *Stats) {
	for _, tap := range h.taps {
		tap.fn(stats)
	}
}

// Taps returns the names of all registered taps
func (h *DoneHook) Taps() []string {
	names := make([]string, len(h.taps))
	for idx, tap := range h.taps {
		names[idx] = tap.name
	}
	return names
}

// Hooks bundles the lifecycle hooks of a Compiler
type Hooks struct {
	Compile CompileHook
	Emit    EmitHook
	Done    DoneHook
}
