package capture

import (
	"errors"
	"fmt"
)

// Code is the closed set of outcomes every operation reports.
type Code int32

const (
	OK Code = iota
	NoMonitors
	NoWindows
	CaptureFailed
	AllocFailed
	NotFound
)

var codeNames = map[Code]string{
	OK:            "OK",
	NoMonitors:    "NO_MONITORS",
	NoWindows:     "NO_WINDOWS",
	CaptureFailed: "CAPTURE_FAILED",
	AllocFailed:   "ALLOC_FAILED",
	NotFound:      "NOT_FOUND",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int32(c))
}

// rank orders codes by specificity. NO_WINDOWS and NO_MONITORS share a rank.
func (c Code) rank() int {
	switch c {
	case NotFound:
		return 4
	case AllocFailed:
		return 3
	case CaptureFailed:
		return 2
	case NoWindows, NoMonitors:
		return 1
	default:
		return 0
	}
}

// Dominant returns the code that wins when several conditions apply at
// once. Ties keep the first code given.
func Dominant(codes ...Code) Code {
	best := OK
	for _, c := range codes {
		if c.rank() > best.rank() {
			best = c
		}
	}
	return best
}

// Error carries a Code through Go error chains.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return e.Code.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound)
// works regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrNoMonitors    = &Error{Code: NoMonitors}
	ErrNoWindows     = &Error{Code: NoWindows}
	ErrCaptureFailed = &Error{Code: CaptureFailed}
	ErrAllocFailed   = &Error{Code: AllocFailed}
	ErrNotFound      = &Error{Code: NotFound}

	// ErrReleased is returned by a second CaptureBuffer.Release.
	ErrReleased = errors.New("capture buffer already released")
)

// CodeOf maps err onto the taxonomy. Errors that never passed through an
// *Error are treated as capture failures.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CaptureFailed
}

func newError(op string, code Code, err error) error {
	return &Error{Code: code, Op: op, Err: err}
}
