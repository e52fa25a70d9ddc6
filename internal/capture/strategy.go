package capture

// Environment reports the system capabilities the window capture chain
// branches on. Each method is only called when the chain reaches the
// strategy that depends on it.
type Environment interface {
	// SupportsFullContent reports whether the OS can render a window's
	// full composed content off-screen.
	SupportsFullContent() bool

	// CompositionEnabled reports whether a compositor is active.
	CompositionEnabled() bool
}

// RenderTarget renders a window into an off-screen surface. Each method
// returns true when the surface now holds the window's pixels.
type RenderTarget interface {
	RenderFullContent() bool
	RenderDefault() bool
	RenderAlternate() bool
	CopyFrontBuffer() bool
}

// Strategy is one step of the window capture fallback chain.
type Strategy struct {
	Name       string
	Applicable func(Environment) bool
	Attempt    func(RenderTarget) bool
}

func always(Environment) bool { return true }

// WindowChain is the ordered fallback chain for window capture. Cheaper,
// higher fidelity renders come first and a raw front-buffer copy is the
// last resort.
var WindowChain = []Strategy{
	{
		Name:       "full-content",
		Applicable: Environment.SupportsFullContent,
		Attempt:    RenderTarget.RenderFullContent,
	},
	{
		Name:       "default-render",
		Applicable: Environment.CompositionEnabled,
		Attempt:    RenderTarget.RenderDefault,
	},
	{
		Name:       "alternate-render",
		Applicable: always,
		Attempt:    RenderTarget.RenderAlternate,
	},
	{
		Name:       "front-buffer",
		Applicable: always,
		Attempt:    RenderTarget.CopyFrontBuffer,
	},
}

// Attempt is the trace of a single strategy in a chain run.
type Attempt struct {
	Strategy   string
	Applicable bool
	Succeeded  bool
}

// RunChain walks chain in order and stops at the first strategy that
// succeeds. It returns that strategy's name and the trace of every step
// visited, or false when the chain is exhausted.
func RunChain(chain []Strategy, env Environment, target RenderTarget) (string, []Attempt, bool) {
	trace := make([]Attempt, 0, len(chain))
	for _, s := range chain {
		step := Attempt{Strategy: s.Name}
		if s.Applicable != nil && !s.Applicable(env) {
			trace = append(trace, step)
			continue
		}
		step.Applicable = true
		step.Succeeded = s.Attempt(target)
		trace = append(trace, step)
		if step.Succeeded {
			return s.Name, trace, true
		}
	}
	return "", trace, false
}
