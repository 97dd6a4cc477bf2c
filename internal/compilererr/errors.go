// Package compilererr defines the structured error kinds produced by the
// SSA middle-end and back-end: the builder, the pass manager, and the
// assembler. These are distinct from internal/errors, which formats
// source-level diagnostics for the front end; the back end never produces
// a source-level diagnostic, only one of the kinds below.
package compilererr

import "fmt"

// IRErrorKind enumerates builder-time failures.
type IRErrorKind string

const (
	IRErrBlockClosed    IRErrorKind = "block_closed"
	IRErrScopeViolation IRErrorKind = "scope_violation"
	IRErrParseError     IRErrorKind = "parse_error"
)

// IRError is returned by the IR builder.
type IRError struct {
	Kind   IRErrorKind
	Detail string
}

func (e *IRError) Error() string {
	return fmt.Sprintf("IRError(%s): %s", e.Kind, e.Detail)
}

// AssemblerErrorKind enumerates assembler failures.
type AssemblerErrorKind string

const (
	ErrUnresolvedSymbol    AssemblerErrorKind = "unresolved_symbol"
	ErrPushSizeDidNotConverge AssemblerErrorKind = "push_size_did_not_converge"
	ErrUnresolvedJumpDest  AssemblerErrorKind = "unresolved_jumpdest"
)

// AssemblerError is returned by the assembler.
type AssemblerError struct {
	Kind   AssemblerErrorKind
	Detail string
}

func (e *AssemblerError) Error() string {
	return fmt.Sprintf("AssemblerError(%s): %s", e.Kind, e.Detail)
}

// InvariantViolation is raised by any pass that detects a broken IR
// invariant. No partial IR is emitted when this occurs.
type InvariantViolation struct {
	Pass        string
	Description string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("InvariantViolation in %s: %s", e.Pass, e.Description)
}

// PassError is raised when a pass declares a required analysis that the
// pass manager could not produce.
type PassError struct {
	Pass     string
	Analysis string
	Cause    error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("PassError in %s: could not produce analysis %s: %v", e.Pass, e.Analysis, e.Cause)
}

func (e *PassError) Unwrap() error { return e.Cause }
