package capture

import "strings"

// Exclusion records why the filter pipeline dropped a window.
type Exclusion int

const (
	Included Exclusion = iota
	ExcludedHidden
	ExcludedCloaked
	ExcludedSelf
	ExcludedToolWindow
	ExcludedSystemClass
	ExcludedNoGeometry
)

func (e Exclusion) String() string {
	switch e {
	case Included:
		return "included"
	case ExcludedHidden:
		return "hidden"
	case ExcludedCloaked:
		return "cloaked"
	case ExcludedSelf:
		return "own-process"
	case ExcludedToolWindow:
		return "tool-window"
	case ExcludedSystemClass:
		return "system-class"
	case ExcludedNoGeometry:
		return "no-geometry"
	default:
		return "unknown"
	}
}

// DefaultToolWindowAllowClasses are tool windows that are still useful
// capture targets: the primary and secondary taskbars.
var DefaultToolWindowAllowClasses = []string{"Shell_TrayWnd", "Shell_SecondaryTrayWnd"}

// DefaultDenyClasses are shell surfaces that are never capture targets.
var DefaultDenyClasses = []string{"Progman", "Button", "Windows.UI.Core.CoreWindow"}

// FilterPolicy holds the class lists used by the tool-window and deny steps.
// Class matching is exact and case sensitive, as window classes are.
type FilterPolicy struct {
	toolAllow map[string]struct{}
	deny      map[string]struct{}
}

// NewFilterPolicy returns the default policy extended by extra classes.
func NewFilterPolicy(extraToolAllow, extraDeny []string) FilterPolicy {
	p := FilterPolicy{
		toolAllow: make(map[string]struct{}),
		deny:      make(map[string]struct{}),
	}
	for _, c := range append(append([]string{}, DefaultToolWindowAllowClasses...), extraToolAllow...) {
		if c = strings.TrimSpace(c); c != "" {
			p.toolAllow[c] = struct{}{}
		}
	}
	for _, c := range append(append([]string{}, DefaultDenyClasses...), extraDeny...) {
		if c = strings.TrimSpace(c); c != "" {
			p.deny[c] = struct{}{}
		}
	}
	return p
}

// ToolWindowAllowed reports whether a tool window of this class is kept.
func (p FilterPolicy) ToolWindowAllowed(class string) bool {
	_, ok := p.toolAllow[class]
	return ok
}

// Denied reports whether windows of this class are always dropped.
func (p FilterPolicy) Denied(class string) bool {
	_, ok := p.deny[class]
	return ok
}

// Candidate is the outcome of evaluating one window.
type Candidate struct {
	Handle    Handle
	PID       uint32
	Bounds    Rect
	Exclusion Exclusion
}

// Evaluate runs the filter pipeline for h. Steps run in a fixed order and
// stop at the first exclusion, so later probes are never issued for a window
// that is already out.
func (p FilterPolicy) Evaluate(src WindowSource, h Handle, selfPID uint32, excludeSelf bool) Candidate {
	c := Candidate{Handle: h}

	if !src.IsVisible(h) {
		c.Exclusion = ExcludedHidden
		return c
	}
	if src.IsCloaked(h) {
		c.Exclusion = ExcludedCloaked
		return c
	}

	c.PID = src.ProcessID(h)
	if excludeSelf && c.PID == selfPID {
		c.Exclusion = ExcludedSelf
		return c
	}

	// The class is only needed from here on; fetch it once for both steps.
	tool := src.IsToolWindow(h)
	class := src.ClassName(h)
	if tool && !p.ToolWindowAllowed(class) {
		c.Exclusion = ExcludedToolWindow
		return c
	}
	if p.Denied(class) {
		c.Exclusion = ExcludedSystemClass
		return c
	}

	bounds, ok := ResolveGeometry(src, h)
	if !ok || bounds.Empty() {
		c.Exclusion = ExcludedNoGeometry
		return c
	}
	c.Bounds = bounds
	return c
}

// ResolveGeometry returns the basic frame rectangle, replaced by the
// compositor's extended frame bounds when those are available. The extended
// bounds exclude the invisible resize borders.
func ResolveGeometry(src WindowSource, h Handle) (Rect, bool) {
	r, ok := src.WindowRect(h)
	if !ok {
		return Rect{}, false
	}
	if ext, ok := src.ExtendedFrameBounds(h); ok {
		r = ext
	}
	return r, true
}
