package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/deploymenttheory/go-msi/pkg/msi"
)

// PackageTarget names the installer package a command works on
type PackageTarget struct {
	Path string
}

// Validate ensures the target names an existing regular file
func (pt PackageTarget) Validate() error {
	if pt.Path == "" {
		return NewError(ErrCodeInvalidInput, "package path is required", nil)
	}
	info, err := os.Stat(pt.Path)
	if err != nil {
		return NewError(ErrCodeContainerAccess, "cannot access "+pt.Path, err)
	}
	if info.IsDir() {
		return NewError(ErrCodeInvalidInput, pt.Path+" is a directory", nil)
	}
	return nil
}

// String returns a string representation of the target
func (pt PackageTarget) String() string {
	return "Package: " + pt.Path
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeContainerAccess    = "CONTAINER_ACCESS"
	ErrCodeMalformedContainer = "MALFORMED_CONTAINER"
	ErrCodeStreamNotFound     = "STREAM_NOT_FOUND"
	ErrCodeTruncatedStream    = "TRUNCATED_STREAM"
	ErrCodeNotPresent         = "NOT_PRESENT"
	ErrCodeTimeout            = "TIMEOUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapEngineError maps an engine error onto an error code. An error that already is a
// CommonError is returned unchanged.
func WrapEngineError(message string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce
	}

	code := ErrCodeContainerAccess
	switch {
	case errors.Is(err, msi.ErrMalformedContainer):
		code = ErrCodeMalformedContainer
	case errors.Is(err, msi.ErrStreamNotFound):
		code = ErrCodeStreamNotFound
	case errors.Is(err, msi.ErrTruncatedStream):
		code = ErrCodeTruncatedStream
	case errors.Is(err, msi.ErrNoSignaturePresent):
		code = ErrCodeNotPresent
	case errors.Is(err, msi.ErrFileTooLarge):
		code = ErrCodeInvalidInput
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	}
	return NewError(code, message, err)
}

// ErrorCode returns the code of a CommonError anywhere in err's chain, or "" when
// there is none
func ErrorCode(err error) string {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
