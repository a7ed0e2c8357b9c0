package types

// StreamKind classifies a stream by how the installer database uses it.
type StreamKind string

const (
	// StreamKindTable marks a table row stream (name carries the 0x4840 prefix).
	StreamKindTable StreamKind = "table"

	// StreamKindSystem marks property sets, signatures and _-prefixed bookkeeping streams.
	StreamKindSystem StreamKind = "system"

	// StreamKindEmbedded marks everything else: Binary/Icon payloads, cabinets, nested storages.
	StreamKindEmbedded StreamKind = "embedded"
)

// StreamInfo describes one stream of the container.
type StreamInfo struct {
	ID          int        `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	RawName     string     `json:"raw_name,omitempty" yaml:"raw_name,omitempty"`
	Size        uint64     `json:"size" yaml:"size"`
	Kind        StreamKind `json:"kind" yaml:"kind"`
	Group       string     `json:"group,omitempty" yaml:"group,omitempty"`
	ContentType string     `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Digest      string     `json:"digest,omitempty" yaml:"digest,omitempty"`
	BLAKE3      string     `json:"blake3,omitempty" yaml:"blake3,omitempty"`
}

// SignatureStatus tells apart an unsigned package from a signed one.
type SignatureStatus string

const (
	SignaturePresent SignatureStatus = "present"
	SignatureAbsent  SignatureStatus = "absent"
)

// Signature is the opaque Authenticode material of a package.
// Diagnostics hold read faults of either stream; a truncated stream keeps its prefix.
type Signature struct {
	Status      SignatureStatus `json:"status" yaml:"status"`
	Blob        []byte          `json:"-" yaml:"-"`
	Extended    []byte          `json:"-" yaml:"-"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Present reports whether a DigitalSignature stream exists.
func (s Signature) Present() bool {
	return s.Status == SignaturePresent
}

// HasExtended reports whether a MsiDigitalSignatureEx stream exists, readable or not.
func (s Signature) HasExtended() bool {
	if s.Extended != nil {
		return true
	}
	for _, d := range s.Diagnostics {
		if d.Name == MsiDigitalSignatureExStream {
			return true
		}
	}
	return false
}

// ExtractStatus is the per-stream outcome of an extraction.
type ExtractStatus string

const (
	ExtractWritten   ExtractStatus = "written"
	ExtractTruncated ExtractStatus = "truncated"
	ExtractFailed    ExtractStatus = "failed"
)

// ExtractedStream reports what happened to one stream during extraction.
type ExtractedStream struct {
	Name   string        `json:"name" yaml:"name"`
	Path   string        `json:"path,omitempty" yaml:"path,omitempty"`
	Size   int           `json:"size" yaml:"size"`
	Digest string        `json:"digest,omitempty" yaml:"digest,omitempty"`
	Status ExtractStatus `json:"status" yaml:"status"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}
