package signature

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-msi/internal/types"
)

type mapSource map[string][]byte

func (m mapSource) Stream(name string) ([]byte, error) {
	if data, ok := m[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrStreamNotFound, name)
}

func (m mapSource) TableStream(table string) ([]byte, error) {
	return nil, types.ErrStreamNotFound
}

// damagedSource returns the readable prefix of a stream together with a read error
type damagedSource struct {
	streams map[string][]byte
	errs    map[string]error
}

func (d damagedSource) Stream(name string) ([]byte, error) {
	data, ok := d.streams[name]
	if err := d.errs[name]; err != nil {
		return data, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrStreamNotFound, name)
	}
	return data, nil
}

func (damagedSource) TableStream(string) ([]byte, error) {
	return nil, types.ErrStreamNotFound
}

var errChainCut = fmt.Errorf("chain cut short: %w", types.ErrTruncatedStream)

func TestLocate(t *testing.T) {
	tests := []struct {
		name         string
		src          mapSource
		wantStatus   types.SignatureStatus
		wantBlob     []byte
		wantExtended []byte
	}{
		{"unsigned", mapSource{}, types.SignatureAbsent, nil, nil},
		{"signed", mapSource{types.DigitalSignatureStream: {0x30, 0x82, 1, 2}}, types.SignaturePresent, []byte{0x30, 0x82, 1, 2}, nil},
		{
			"signed with extended",
			mapSource{
				types.DigitalSignatureStream:      {0x30, 0x82},
				types.MsiDigitalSignatureExStream: {9, 9, 9},
			},
			types.SignaturePresent, []byte{0x30, 0x82}, []byte{9, 9, 9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Locate(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, sig.Status)
			assert.Equal(t, tt.wantBlob, sig.Blob)
			assert.Equal(t, tt.wantExtended, sig.Extended)
		})
	}
}

func TestLocateDamagedStreams(t *testing.T) {
	tests := []struct {
		name         string
		src          damagedSource
		wantErr      error
		wantBlob     []byte
		wantExtended []byte
		wantHasExt   bool
		wantDiags    []string
	}{
		{
			name: "truncated signature keeps prefix",
			src: damagedSource{
				streams: map[string][]byte{types.DigitalSignatureStream: {0x30, 0x82, 1}},
				errs:    map[string]error{types.DigitalSignatureStream: errChainCut},
			},
			wantBlob:  []byte{0x30, 0x82, 1},
			wantDiags: []string{types.DigitalSignatureStream},
		},
		{
			name: "unreadable signature",
			src: damagedSource{
				errs: map[string]error{types.DigitalSignatureStream: errChainCut},
			},
			wantErr:   types.ErrTruncatedStream,
			wantDiags: []string{types.DigitalSignatureStream},
		},
		{
			name: "malformed signature chain",
			src: damagedSource{
				streams: map[string][]byte{types.DigitalSignatureStream: {1, 2}},
				errs:    map[string]error{types.DigitalSignatureStream: fmt.Errorf("loop: %w", types.ErrMalformedContainer)},
			},
			wantErr:   types.ErrMalformedContainer,
			wantDiags: []string{types.DigitalSignatureStream},
		},
		{
			name: "truncated extended signature keeps prefix",
			src: damagedSource{
				streams: map[string][]byte{
					types.DigitalSignatureStream:      {0x30, 0x82},
					types.MsiDigitalSignatureExStream: {9, 9},
				},
				errs: map[string]error{types.MsiDigitalSignatureExStream: errChainCut},
			},
			wantBlob:     []byte{0x30, 0x82},
			wantExtended: []byte{9, 9},
			wantHasExt:   true,
			wantDiags:    []string{types.MsiDigitalSignatureExStream},
		},
		{
			name: "unreadable extended signature",
			src: damagedSource{
				streams: map[string][]byte{types.DigitalSignatureStream: {0x30, 0x82}},
				errs:    map[string]error{types.MsiDigitalSignatureExStream: errChainCut},
			},
			wantBlob:   []byte{0x30, 0x82},
			wantHasExt: true,
			wantDiags:  []string{types.MsiDigitalSignatureExStream},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Locate(tt.src)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, types.SignaturePresent, sig.Status)
			assert.Equal(t, tt.wantBlob, sig.Blob)
			assert.Equal(t, tt.wantExtended, sig.Extended)
			assert.Equal(t, tt.wantHasExt, sig.HasExtended())

			var names []string
			for _, d := range sig.Diagnostics {
				assert.Equal(t, types.ScopeStream, d.Scope)
				names = append(names, d.Name)
			}
			assert.Equal(t, tt.wantDiags, names)
		})
	}
}

func TestRequire(t *testing.T) {
	sig, err := Require(mapSource{})
	assert.ErrorIs(t, err, types.ErrNoSignaturePresent)
	assert.False(t, sig.Present())

	sig, err = Require(mapSource{types.DigitalSignatureStream: {1}})
	require.NoError(t, err)
	assert.True(t, sig.Present())
}
