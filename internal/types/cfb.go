// Package types implements the on-disk structures and decoded domain types of
// Compound File Binary (CFB) containers and the Windows Installer database stored in them.
// Layouts follow [MS-CFB] Compound File Binary File Format, v20221115.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Compound File Header (MS-CFB 2.2)

// CFBSignature is the identification signature every compound file begins with.
var CFBSignature = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const (
	// HeaderSize is the number of meaningful header bytes; version 4 files pad the
	// header sector to 4096 bytes with zeroes.
	HeaderSize = 512

	// HeaderDIFATOffset is the offset of the first DIFAT slot in the header.
	HeaderDIFATOffset = 76

	// HeaderDIFATEntries is the number of DIFAT slots carried by the header.
	HeaderDIFATEntries = 109

	// ByteOrderMark is the only valid value of the header byte order field.
	ByteOrderMark uint16 = 0xFFFE

	// SectorShiftV3 selects 512 byte sectors.
	SectorShiftV3 uint16 = 9

	// SectorShiftV4 selects 4096 byte sectors.
	SectorShiftV4 uint16 = 12

	// MiniSectorShift selects 64 byte mini sectors, the only size allowed.
	MiniSectorShift uint16 = 6

	// MiniStreamCutoff is the size below which user streams live in the mini stream.
	MiniStreamCutoff uint64 = 4096

	// DirectoryEntrySize is the fixed size of a directory entry.
	DirectoryEntrySize = 128
)

// Special sector numbers (MS-CFB 2.1)
const (
	MaxRegularSector uint32 = 0xFFFFFFFA // largest addressable sector id
	ReservedSector   uint32 = 0xFFFFFFFB
	DIFATSector      uint32 = 0xFFFFFFFC // marks a DIFAT sector in the FAT
	FATSector        uint32 = 0xFFFFFFFD // marks a FAT sector in the FAT
	EndOfChain       uint32 = 0xFFFFFFFE // terminates a sector chain
	FreeSector       uint32 = 0xFFFFFFFF // unallocated sector
)

// Special stream ids (MS-CFB 2.6.1)
const (
	MaxRegularStreamID uint32 = 0xFFFFFFFA
	NoStream           uint32 = 0xFFFFFFFF
)

// CFBHeader represents the compound file header.
// Reference: MS-CFB 2.2
type CFBHeader struct {
	Signature            [8]byte
	CLSID                [16]byte
	MinorVersion         uint16
	MajorVersion         uint16
	ByteOrder            uint16
	SectorShift          uint16
	MiniSectorShift      uint16
	Reserved             [6]byte
	NumDirectorySectors  uint32
	NumFATSectors        uint32
	FirstDirectorySector uint32
	TransactionSignature uint32
	MiniStreamCutoffSize uint32
	FirstMiniFATSector   uint32
	NumMiniFATSectors    uint32
	FirstDIFATSector     uint32
	NumDIFATSectors      uint32
	DIFAT                [HeaderDIFATEntries]uint32
}

// SectorSize returns the size in bytes of a regular sector.
func (h *CFBHeader) SectorSize() int {
	return 1 << h.SectorShift
}

// MiniSectorSize returns the size in bytes of a mini sector.
func (h *CFBHeader) MiniSectorSize() int {
	return 1 << h.MiniSectorShift
}

// ObjectType is the type of a directory entry.
// Reference: MS-CFB 2.6.1
type ObjectType uint8

const (
	ObjectTypeUnallocated ObjectType = 0x00
	ObjectTypeStorage     ObjectType = 0x01
	ObjectTypeStream      ObjectType = 0x02
	ObjectTypeRoot        ObjectType = 0x05
)

// String returns a human readable name for the object type.
func (t ObjectType) String() string {
	switch t {
	case ObjectTypeUnallocated:
		return "unallocated"
	case ObjectTypeStorage:
		return "storage"
	case ObjectTypeStream:
		return "stream"
	case ObjectTypeRoot:
		return "root"
	default:
		return "unknown"
	}
}

// MarshalText renders the type by name in JSON and YAML output.
func (t ObjectType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Valid reports whether the type is one a directory entry may carry.
func (t ObjectType) Valid() bool {
	switch t {
	case ObjectTypeUnallocated, ObjectTypeStorage, ObjectTypeStream, ObjectTypeRoot:
		return true
	}
	return false
}

// RawDirectoryEntry is the 128 byte on-disk directory entry.
// Reference: MS-CFB 2.6.1
type RawDirectoryEntry struct {
	Name           [32]uint16
	NameLength     uint16
	ObjectType     ObjectType
	ColorFlag      uint8
	LeftSiblingID  uint32
	RightSiblingID uint32
	ChildID        uint32
	CLSID          [16]byte
	StateBits      uint32
	CreationTime   uint64
	ModifiedTime   uint64
	StartSector    uint32
	StreamSize     uint64
}

// DirectoryEntry is a decoded directory entry. Entries live in an arena owned by the
// container and refer to each other by stream id, never by pointer.
type DirectoryEntry struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	Type        ObjectType `json:"type"`
	Parent      int        `json:"parent"`
	Left        uint32     `json:"-"`
	Right       uint32     `json:"-"`
	Child       uint32     `json:"-"`
	CLSID       uuid.UUID  `json:"clsid"`
	StateBits   uint32     `json:"state_bits"`
	Created     time.Time  `json:"created"`
	Modified    time.Time  `json:"modified"`
	StartSector uint32     `json:"start_sector"`
	Size        uint64     `json:"size"`
}

// IsStream reports whether the entry is a stream object.
func (e DirectoryEntry) IsStream() bool {
	return e.Type == ObjectTypeStream
}

// IsStorage reports whether the entry can hold children.
func (e DirectoryEntry) IsStorage() bool {
	return e.Type == ObjectTypeStorage || e.Type == ObjectTypeRoot
}

// filetimeUnixOffset is the number of seconds between 1601-01-01 and 1970-01-01.
const filetimeUnixOffset = 11644473600

// FiletimeToTime converts a Windows FILETIME (100ns ticks since 1601) to a UTC time.
// Zero maps to the zero time.
func FiletimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	secs := int64(ft/10000000) - filetimeUnixOffset
	nanos := int64(ft%10000000) * 100
	return time.Unix(secs, nanos).UTC()
}

// GUIDFromBytes converts a mixed-endian Windows GUID to a uuid.UUID.
func GUIDFromBytes(b [16]byte) uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:])
	return u
}
