package services

import (
	"encoding/hex"

	"github.com/opencontainers/go-digest"
	"github.com/zeebo/blake3"
)

// Digests holds the fingerprints of one stream
type Digests struct {
	SHA256 digest.Digest `json:"sha256"`
	BLAKE3 string        `json:"blake3"`
}

// DigestService fingerprints stream content. SHA-256 digests use the algorithm:hex form
// of OCI content addressing; BLAKE3 is a plain hex string.
type DigestService struct{}

// NewDigestService creates a new digest service
func NewDigestService() *DigestService {
	return &DigestService{}
}

// SHA256 returns the sha256 digest of data
func (ds *DigestService) SHA256(data []byte) digest.Digest {
	return digest.FromBytes(data)
}

// BLAKE3 returns the hex BLAKE3-256 hash of data
func (ds *DigestService) BLAKE3(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Compute returns both fingerprints
func (ds *DigestService) Compute(data []byte) Digests {
	return Digests{SHA256: ds.SHA256(data), BLAKE3: ds.BLAKE3(data)}
}

// Verify reports whether data matches a previously computed sha256 digest
func (ds *DigestService) Verify(expected digest.Digest, data []byte) (bool, error) {
	if err := expected.Validate(); err != nil {
		return false, err
	}
	verifier := expected.Verifier()
	if _, err := verifier.Write(data); err != nil {
		return false, err
	}
	return verifier.Verified(), nil
}
