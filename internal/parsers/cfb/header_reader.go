package cfb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-msi/internal/types"
)

// ReadHeader parses and validates the compound file header at the start of data
func ReadHeader(data []byte) (*types.CFBHeader, error) {
	if len(data) < types.HeaderSize {
		return nil, fmt.Errorf("%w: file too small for header: %d bytes", types.ErrMalformedContainer, len(data))
	}

	h := parseHeader(data, binary.LittleEndian)

	if !bytes.Equal(h.Signature[:], types.CFBSignature[:]) {
		return nil, fmt.Errorf("%w: invalid signature % X", types.ErrMalformedContainer, h.Signature)
	}
	if h.ByteOrder != types.ByteOrderMark {
		return nil, fmt.Errorf("%w: invalid byte order 0x%04X", types.ErrMalformedContainer, h.ByteOrder)
	}
	if h.SectorShift != types.SectorShiftV3 && h.SectorShift != types.SectorShiftV4 {
		return nil, fmt.Errorf("%w: unsupported sector shift %d", types.ErrMalformedContainer, h.SectorShift)
	}
	if h.MiniSectorShift != types.MiniSectorShift {
		return nil, fmt.Errorf("%w: unsupported mini sector shift %d", types.ErrMalformedContainer, h.MiniSectorShift)
	}
	if len(data) < h.SectorSize() {
		return nil, fmt.Errorf("%w: file shorter than its header sector", types.ErrMalformedContainer)
	}

	return h, nil
}

// parseHeader decodes the fixed header fields without validating them
func parseHeader(data []byte, endian binary.ByteOrder) *types.CFBHeader {
	h := &types.CFBHeader{}

	copy(h.Signature[:], data[0:8])
	copy(h.CLSID[:], data[8:24])
	h.MinorVersion = endian.Uint16(data[24:26])
	h.MajorVersion = endian.Uint16(data[26:28])
	h.ByteOrder = endian.Uint16(data[28:30])
	h.SectorShift = endian.Uint16(data[30:32])
	h.MiniSectorShift = endian.Uint16(data[32:34])
	copy(h.Reserved[:], data[34:40])
	h.NumDirectorySectors = endian.Uint32(data[40:44])
	h.NumFATSectors = endian.Uint32(data[44:48])
	h.FirstDirectorySector = endian.Uint32(data[48:52])
	h.TransactionSignature = endian.Uint32(data[52:56])
	h.MiniStreamCutoffSize = endian.Uint32(data[56:60])
	h.FirstMiniFATSector = endian.Uint32(data[60:64])
	h.NumMiniFATSectors = endian.Uint32(data[64:68])
	h.FirstDIFATSector = endian.Uint32(data[68:72])
	h.NumDIFATSectors = endian.Uint32(data[72:76])

	for i := 0; i < types.HeaderDIFATEntries; i++ {
		off := types.HeaderDIFATOffset + i*4
		h.DIFAT[i] = endian.Uint32(data[off : off+4])
	}

	return h
}
