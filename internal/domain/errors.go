package domain

// ErrKind classifies engine errors so callers can distinguish aborted
// operations from degraded ones without parsing message text.
type ErrKind string

const (
	// ErrKindPrecondition: raised before any mutation, operation performed
	// zero side effects (target running, keep path missing/invalid).
	ErrKindPrecondition ErrKind = "precondition"

	// ErrKindPartial: an individual delete/lock/blocker step failed.
	// Recorded as a warning, remaining steps still execute.
	ErrKindPartial ErrKind = "partial"

	// ErrKindPersistence: the state file is unreadable or unwritable.
	ErrKindPersistence ErrKind = "persistence"
)

// OpError is a classified engine error. The message text is preserved
// verbatim for log displays.
type OpError struct {
	Kind ErrKind
	Msg  string
}

func (e *OpError) Error() string {
	return e.Msg
}

// KindOf returns the error kind, or empty if err is not an OpError.
func KindOf(err error) ErrKind {
	if oe, ok := err.(*OpError); ok {
		return oe.Kind
	}
	return ""
}
