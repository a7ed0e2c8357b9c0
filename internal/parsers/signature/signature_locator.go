// Package signature locates the Authenticode material of an installer package. The
// blobs are returned as stored; nothing is verified.
package signature

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-msi/internal/interfaces"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Locate reads \005DigitalSignature and, when present, \005MsiDigitalSignatureEx. An
// unsigned package yields an absent signature and no error. A truncated stream keeps
// its readable prefix and records a diagnostic. Locate fails only when the
// DigitalSignature stream exists but none of it can be read; the signature is still
// reported present.
func Locate(src interfaces.StreamSource) (types.Signature, error) {
	blob, err := src.Stream(types.DigitalSignatureStream)
	if errors.Is(err, types.ErrStreamNotFound) {
		return types.Signature{Status: types.SignatureAbsent}, nil
	}

	sig := types.Signature{Status: types.SignaturePresent}
	if err != nil {
		sig.Diagnostics = append(sig.Diagnostics, types.NewDiagnostic(types.ScopeStream, types.DigitalSignatureStream, err))
		if !recoverable(blob, err) {
			return sig, fmt.Errorf("failed to read digital signature: %w", err)
		}
	}
	sig.Blob = blob

	ext, err := src.Stream(types.MsiDigitalSignatureExStream)
	switch {
	case errors.Is(err, types.ErrStreamNotFound):
	case err != nil:
		sig.Diagnostics = append(sig.Diagnostics, types.NewDiagnostic(types.ScopeStream, types.MsiDigitalSignatureExStream, err))
		if recoverable(ext, err) {
			sig.Extended = ext
		}
	default:
		sig.Extended = ext
	}
	return sig, nil
}

// recoverable reports whether a failed read still produced a usable prefix
func recoverable(data []byte, err error) bool {
	return errors.Is(err, types.ErrTruncatedStream) && len(data) > 0
}

// Require is Locate for callers that treat an unsigned package as an error; it
// returns types.ErrNoSignaturePresent in that case.
func Require(src interfaces.StreamSource) (types.Signature, error) {
	sig, err := Locate(src)
	if err != nil {
		return sig, err
	}
	if !sig.Present() {
		return sig, types.ErrNoSignaturePresent
	}
	return sig, nil
}
