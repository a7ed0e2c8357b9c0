package msi

import (
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Errors returned by the engine. Compare with errors.Is.
var (
	ErrMalformedContainer   = types.ErrMalformedContainer
	ErrStreamNotFound       = types.ErrStreamNotFound
	ErrTruncatedStream      = types.ErrTruncatedStream
	ErrStringPoolCorrupt    = types.ErrStringPoolCorrupt
	ErrColumnWidthMismatch  = types.ErrColumnWidthMismatch
	ErrMalformedPropertySet = types.ErrMalformedPropertySet
	ErrNoSignaturePresent   = types.ErrNoSignaturePresent
	ErrFileTooLarge         = types.ErrFileTooLarge
)

// Result types shared with the decoding layers.
type (
	Table              = types.Table
	Row                = types.Row
	Value              = types.Value
	ColumnDefinition   = types.ColumnDefinition
	StreamInfo         = types.StreamInfo
	StreamKind         = types.StreamKind
	Signature          = types.Signature
	ExtractedStream    = types.ExtractedStream
	Diagnostic         = types.Diagnostic
	SummaryInformation = types.SummaryInformation
	Property           = types.Property
	SignatureStatus    = types.SignatureStatus
	ExtractStatus      = types.ExtractStatus
)

// Stream kinds
const (
	StreamKindTable    = types.StreamKindTable
	StreamKindSystem   = types.StreamKindSystem
	StreamKindEmbedded = types.StreamKindEmbedded
)

// Signature states
const (
	SignaturePresent = types.SignaturePresent
	SignatureAbsent  = types.SignatureAbsent
)

// Extraction outcomes
const (
	ExtractWritten   = types.ExtractWritten
	ExtractTruncated = types.ExtractTruncated
	ExtractFailed    = types.ExtractFailed
)

// Metadata is the summary information of a package plus whether it is signed.
type Metadata struct {
	types.SummaryInformation `yaml:",inline"`
	IsSigned                 bool                  `json:"is_signed" yaml:"is_signed"`
	Signature                types.SignatureStatus `json:"signature" yaml:"signature"`
	Diagnostics              []types.Diagnostic    `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// StreamOptions selects what Streams reports
type StreamOptions struct {
	// All includes table and system streams, not only embedded payloads
	All bool
	// Digests computes sha256 and BLAKE3 fingerprints of each stream
	Digests bool
	// Identify sniffs each stream's content type
	Identify bool
}

// StreamListing is the result of Streams
type StreamListing struct {
	Streams     []types.StreamInfo `json:"streams" yaml:"streams"`
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// TableListing is the result of Tables. Tables that could not be decoded are absent
// from Tables and described in Diagnostics.
type TableListing struct {
	Tables      []*types.Table     `json:"tables" yaml:"tables"`
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// ExtractionReport is the result of ExtractAll and ExtractCertificate
type ExtractionReport struct {
	Directory string                  `json:"directory,omitempty" yaml:"directory,omitempty"`
	Archive   string                  `json:"archive,omitempty" yaml:"archive,omitempty"`
	Signature types.SignatureStatus   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Streams   []types.ExtractedStream `json:"streams" yaml:"streams"`
}
