package msitest

import (
	"encoding/binary"
	"time"

	"github.com/deploymenttheory/go-msi/internal/types"
)

// Property is one entry of a test property set. Value is int16, int32, string,
// time.Time, bool, nil (VT_EMPTY) or []byte (payload written verbatim after Type).
type Property struct {
	ID    uint32
	Type  uint32
	Value interface{}
}

// SummaryInformation encodes a single section property set with the summary
// information FMTID.
func SummaryInformation(props ...Property) []byte {
	out := make([]byte, types.PropertySetHeaderSize)
	binary.LittleEndian.PutUint16(out[0:], 0xFFFE)
	binary.LittleEndian.PutUint16(out[2:], 0)
	binary.LittleEndian.PutUint32(out[4:], 0x00020006)
	binary.LittleEndian.PutUint32(out[24:], 1)

	fmtid := types.SummaryInformationFMTID
	out = append(out, windowsGUID(fmtid)...)
	sectionOffset := uint32(types.PropertySetHeaderSize + types.PropertySetSectionEntrySize)
	out = binary.LittleEndian.AppendUint32(out, sectionOffset)

	table := 8 + 8*len(props)
	var values []byte
	offsets := make([]uint32, len(props))
	for i, p := range props {
		offsets[i] = uint32(table + len(values))
		values = append(values, encodeProperty(p)...)
	}

	section := binary.LittleEndian.AppendUint32(nil, uint32(table+len(values)))
	section = binary.LittleEndian.AppendUint32(section, uint32(len(props)))
	for i, p := range props {
		section = binary.LittleEndian.AppendUint32(section, p.ID)
		section = binary.LittleEndian.AppendUint32(section, offsets[i])
	}
	section = append(section, values...)
	return append(out, section...)
}

func encodeProperty(p Property) []byte {
	out := binary.LittleEndian.AppendUint32(nil, p.Type)
	switch v := p.Value.(type) {
	case int16:
		out = binary.LittleEndian.AppendUint16(out, uint16(v))
	case int32:
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	case bool:
		var b uint16
		if v {
			b = 0xFFFF
		}
		out = binary.LittleEndian.AppendUint16(out, b)
	case string:
		out = binary.LittleEndian.AppendUint32(out, uint32(len(v)+1))
		out = append(out, v...)
		out = append(out, 0)
	case time.Time:
		out = binary.LittleEndian.AppendUint64(out, Filetime(v))
	case []byte:
		out = append(out, v...)
	}
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// Filetime converts t to 100ns ticks since 1601.
func Filetime(t time.Time) uint64 {
	return uint64(t.Unix()+11644473600)*10000000 + uint64(t.Nanosecond()/100)
}

// windowsGUID lays out a UUID in the mixed endian GUID byte order
func windowsGUID(u [16]byte) []byte {
	return []byte{
		u[3], u[2], u[1], u[0],
		u[5], u[4],
		u[7], u[6],
		u[8], u[9], u[10], u[11], u[12], u[13], u[14], u[15],
	}
}
