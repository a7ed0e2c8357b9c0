package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every decoding layer. Container level errors abort the
// whole request; the rest are reported per item.
var (
	// ErrMalformedContainer reports an unparseable header, allocation table or a
	// sector chain that loops or leaves the file.
	ErrMalformedContainer = errors.New("malformed compound file")

	// ErrStreamNotFound reports a directory lookup for a name that does not exist.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrTruncatedStream reports a sector chain ending before the declared size.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrStringPoolCorrupt reports string data shorter than the pool declares, or a
	// reference past the end of the pool.
	ErrStringPoolCorrupt = errors.New("string pool corrupt")

	// ErrColumnWidthMismatch reports a row stream whose length is not a multiple of
	// the declared row width.
	ErrColumnWidthMismatch = errors.New("column width mismatch")

	// ErrMalformedPropertySet reports a property set whose header or section table
	// cannot be read.
	ErrMalformedPropertySet = errors.New("malformed property set")

	// ErrNoSignaturePresent reports a package without a DigitalSignature stream.
	// It is an expected outcome, not a read failure.
	ErrNoSignaturePresent = errors.New("no digital signature present")

	// ErrFileTooLarge reports an input above the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
)

// DiagnosticScope names the kind of item a diagnostic refers to.
type DiagnosticScope string

const (
	ScopeDirectoryEntry DiagnosticScope = "directory_entry"
	ScopeStream         DiagnosticScope = "stream"
	ScopeTable          DiagnosticScope = "table"
	ScopeProperty       DiagnosticScope = "property"
	ScopeStringPool     DiagnosticScope = "string_pool"
)

// Diagnostic records a per-item failure that did not abort the request.
type Diagnostic struct {
	Scope  DiagnosticScope `json:"scope" yaml:"scope"`
	Name   string          `json:"name" yaml:"name"`
	Reason string          `json:"reason" yaml:"reason"`
	Err    error           `json:"-" yaml:"-"`
}

// NewDiagnostic builds a diagnostic whose reason is the error text.
func NewDiagnostic(scope DiagnosticScope, name string, err error) Diagnostic {
	return Diagnostic{Scope: scope, Name: name, Reason: err.Error(), Err: err}
}

// Error implements the error interface so diagnostics can be wrapped and inspected.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s %q: %s", d.Scope, d.Name, d.Reason)
}

// Unwrap returns the underlying error.
func (d Diagnostic) Unwrap() error {
	return d.Err
}
