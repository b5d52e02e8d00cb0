// Package validate implements the identifier and statement guardrails that
// sit between proposer output and any data system. Everything here is
// fail-closed: anything not provably safe is rejected, never sanitized.
package validate

import "fmt"

// InvalidIdentifierError reports a name that fails the identifier grammar.
// Not retryable without changing the input.
type InvalidIdentifierError struct {
	Name   string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Name, e.Reason)
}

// UnsafeStatementError reports a statement that failed grammar or safety
// checks. Not retryable without changing the input.
type UnsafeStatementError struct {
	Reason string
}

func (e *UnsafeStatementError) Error() string {
	return "unsafe statement rejected: " + e.Reason
}

// HallucinatedReferenceError reports a reference to a schema element that
// does not exist in the captured catalog.
type HallucinatedReferenceError struct {
	Kind string // "table" or "column"
	Name string
}

func (e *HallucinatedReferenceError) Error() string {
	return fmt.Sprintf("unknown %s %q: not present in the captured schema", e.Kind, e.Name)
}
