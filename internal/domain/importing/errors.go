package importing

import "fmt"

// ParseError reports that a source document does not match the expected
// layout. It carries the offending fragment so the caller can correct the
// document and resubmit. A ParseError is always raised before any store
// transaction begins, so it never leaves partial state behind.
type ParseError struct {
	Stage    string // "segment", "extract" or "map"
	Fragment string // the text or entry that could not be parsed
	Reason   string
}

func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %q", e.Stage, e.Reason, e.Fragment)
}

// NewParseError builds a ParseError for the given pipeline stage.
func NewParseError(stage, reason, fragment string) *ParseError {
	return &ParseError{Stage: stage, Reason: reason, Fragment: fragment}
}

// IntegrityError reports that a create lost a uniqueness race and the
// follow-up lookup still found no row. This means the store's uniqueness
// constraint and its visibility rules disagree, which is never expected.
type IntegrityError struct {
	Kind        string
	Fingerprint Fingerprint
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s with fingerprint %s vanished after uniqueness conflict", e.Kind, e.Fingerprint)
}
