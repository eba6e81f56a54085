package errext

import "errors"

// HasHint is an error that also suggests a fix to the user, such as relaxing
// a section's alignment or picking an output format that keeps imports open.
// The CLI prints the hint on its own line below the diagnostic.
type HasHint interface {
	error
	Hint() string
}

// WithHint attaches hint to err. A nil err stays nil. Hints stack: wrapping an
// error that already has one yields "outer (inner)".
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return hinted{err: err, hint: hint}
}

type hinted struct {
	err  error
	hint string
}

func (h hinted) Error() string { return h.err.Error() }
func (h hinted) Unwrap() error { return h.err }

func (h hinted) Hint() string {
	if inner := HintOf(h.err); inner != "" {
		return h.hint + " (" + inner + ")"
	}
	return h.hint
}

// HintOf returns the hint carried anywhere in err's chain, or "".
func HintOf(err error) string {
	var herr HasHint
	if errors.As(err, &herr) {
		return herr.Hint()
	}
	return ""
}

var _ HasHint = hinted{}
