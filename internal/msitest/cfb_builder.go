// Package msitest builds compound files and installer databases in memory for tests.
package msitest

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/deploymenttheory/go-msi/internal/types"
)

var le = binary.LittleEndian

type node struct {
	name     string
	storage  bool
	data     []byte
	parent   int
	children []int
	clsid    [16]byte
}

// Builder lays out a compound file. Entries are added in order and receive stream ids
// in that order, starting at 1.
type Builder struct {
	sectorShift uint16
	nodes       []node
}

// NewBuilder returns a builder for a version 3 file with 512 byte sectors.
func NewBuilder() *Builder {
	return &Builder{
		sectorShift: types.SectorShiftV3,
		nodes:       []node{{name: "Root Entry", storage: true, parent: -1}},
	}
}

// Version4 switches to 4096 byte sectors.
func (b *Builder) Version4() *Builder {
	b.sectorShift = types.SectorShiftV4
	return b
}

// AddStream adds a stream under the root and returns its stream id.
func (b *Builder) AddStream(name string, data []byte) int {
	return b.add(0, node{name: name, data: data})
}

// AddStorage adds a storage under the root and returns its stream id.
func (b *Builder) AddStorage(name string) int {
	return b.add(0, node{name: name, storage: true})
}

// AddStreamIn adds a stream under the storage with the given id.
func (b *Builder) AddStreamIn(parent int, name string, data []byte) int {
	return b.add(parent, node{name: name, data: data})
}

func (b *Builder) add(parent int, n node) int {
	n.parent = parent
	id := len(b.nodes)
	b.nodes = append(b.nodes, n)
	b.nodes[parent].children = append(b.nodes[parent].children, id)
	return id
}

// Image is a built compound file plus the layout facts tests need to corrupt it.
type Image struct {
	Data           []byte
	SectorSize     int
	FATSectors     []uint32
	DirectoryStart uint32
	MiniFATStart   uint32
	MiniStreamSize int

	starts map[int]uint32
	mini   map[int]bool
	ids    map[string]int
}

// Bytes lays out the file and returns its bytes.
func (b *Builder) Bytes() []byte {
	return b.Build().Data
}

// Build lays out the file: header, FAT, DIFAT, directory, mini-FAT, mini stream and
// then every regular stream, each chain contiguous.
func (b *Builder) Build() *Image {
	ss := 1 << b.sectorShift
	perSector := uint32(ss / 4)
	sectorsFor := func(n int, size int) uint32 { return uint32((n + size - 1) / size) }

	img := &Image{
		SectorSize: ss,
		starts:     map[int]uint32{},
		mini:       map[int]bool{},
		ids:        map[string]int{},
	}

	// mini stream
	var miniStream []byte
	var miniFAT []uint32
	for id := 1; id < len(b.nodes); id++ {
		n := b.nodes[id]
		img.ids[b.path(id)] = id
		if n.storage || len(n.data) == 0 || uint64(len(n.data)) >= types.MiniStreamCutoff {
			continue
		}
		start := uint32(len(miniStream) / 64)
		count := sectorsFor(len(n.data), 64)
		for i := uint32(0); i < count; i++ {
			if i+1 < count {
				miniFAT = append(miniFAT, start+i+1)
			} else {
				miniFAT = append(miniFAT, types.EndOfChain)
			}
		}
		img.starts[id] = start
		img.mini[id] = true
		padded := make([]byte, int(count)*64)
		copy(padded, n.data)
		miniStream = append(miniStream, padded...)
	}
	img.MiniStreamSize = len(miniStream)

	dirSectors := sectorsFor(len(b.nodes)*types.DirectoryEntrySize, ss)
	miniFATSectors := sectorsFor(len(miniFAT)*4, ss)
	miniStreamSectors := sectorsFor(len(miniStream), ss)
	var bigSectors uint32
	for id := 1; id < len(b.nodes); id++ {
		n := b.nodes[id]
		if !n.storage && uint64(len(n.data)) >= types.MiniStreamCutoff {
			bigSectors += sectorsFor(len(n.data), ss)
		}
	}
	payload := dirSectors + miniFATSectors + miniStreamSectors + bigSectors

	var fatSectors, difatSectors uint32
	for {
		difatSectors = 0
		if fatSectors > types.HeaderDIFATEntries {
			difatSectors = sectorsFor(int(fatSectors-types.HeaderDIFATEntries), int(perSector-1))
		}
		if payload+fatSectors+difatSectors <= fatSectors*perSector {
			break
		}
		fatSectors++
	}
	total := payload + fatSectors + difatSectors

	fat := make([]uint32, fatSectors*perSector)
	for i := range fat {
		fat[i] = types.FreeSector
	}
	next := uint32(0)
	alloc := func(count uint32, marker uint32) uint32 {
		start := next
		for i := uint32(0); i < count; i++ {
			switch {
			case marker != 0:
				fat[start+i] = marker
			case i+1 < count:
				fat[start+i] = start + i + 1
			default:
				fat[start+i] = types.EndOfChain
			}
		}
		next += count
		return start
	}

	fatStart := alloc(fatSectors, types.FATSector)
	for i := uint32(0); i < fatSectors; i++ {
		img.FATSectors = append(img.FATSectors, fatStart+i)
	}
	difatStart := alloc(difatSectors, types.DIFATSector)
	img.DirectoryStart = alloc(dirSectors, 0)
	img.MiniFATStart = types.EndOfChain
	if miniFATSectors > 0 {
		img.MiniFATStart = alloc(miniFATSectors, 0)
	}
	rootStart := types.EndOfChain
	if miniStreamSectors > 0 {
		rootStart = alloc(miniStreamSectors, 0)
	}
	for id := 1; id < len(b.nodes); id++ {
		n := b.nodes[id]
		if !n.storage && uint64(len(n.data)) >= types.MiniStreamCutoff {
			img.starts[id] = alloc(sectorsFor(len(n.data), ss), 0)
		}
	}

	img.Data = make([]byte, ss+int(total)*ss)
	sector := func(id uint32) []byte {
		off := ss + int(id)*ss
		return img.Data[off : off+ss]
	}

	// header
	h := img.Data[:types.HeaderSize]
	copy(h[0:8], types.CFBSignature[:])
	le.PutUint16(h[24:], 0x003E)
	if b.sectorShift == types.SectorShiftV4 {
		le.PutUint16(h[26:], 4)
		le.PutUint32(h[40:], dirSectors)
	} else {
		le.PutUint16(h[26:], 3)
	}
	le.PutUint16(h[28:], types.ByteOrderMark)
	le.PutUint16(h[30:], b.sectorShift)
	le.PutUint16(h[32:], types.MiniSectorShift)
	le.PutUint32(h[44:], fatSectors)
	le.PutUint32(h[48:], img.DirectoryStart)
	le.PutUint32(h[56:], uint32(types.MiniStreamCutoff))
	le.PutUint32(h[60:], img.MiniFATStart)
	le.PutUint32(h[64:], miniFATSectors)
	if difatSectors > 0 {
		le.PutUint32(h[68:], difatStart)
	} else {
		le.PutUint32(h[68:], types.EndOfChain)
	}
	le.PutUint32(h[72:], difatSectors)
	for i := 0; i < types.HeaderDIFATEntries; i++ {
		v := types.FreeSector
		if uint32(i) < fatSectors {
			v = img.FATSectors[i]
		}
		le.PutUint32(h[types.HeaderDIFATOffset+i*4:], v)
	}

	// DIFAT sectors
	rest := img.FATSectors
	if len(rest) > types.HeaderDIFATEntries {
		rest = rest[types.HeaderDIFATEntries:]
	} else {
		rest = nil
	}
	for d := uint32(0); d < difatSectors; d++ {
		sec := sector(difatStart + d)
		for i := uint32(0); i < perSector-1; i++ {
			v := types.FreeSector
			if len(rest) > 0 {
				v, rest = rest[0], rest[1:]
			}
			le.PutUint32(sec[i*4:], v)
		}
		link := types.EndOfChain
		if d+1 < difatSectors {
			link = difatStart + d + 1
		}
		le.PutUint32(sec[(perSector-1)*4:], link)
	}

	// FAT
	for i, v := range fat {
		le.PutUint32(sector(fatStart + uint32(i)/perSector)[(uint32(i)%perSector)*4:], v)
	}

	// directory
	dir := make([]byte, int(dirSectors)*ss)
	for id := range b.nodes {
		b.writeEntry(dir[id*types.DirectoryEntrySize:], id, img, rootStart, uint64(len(miniStream)))
	}
	for id := len(b.nodes); id*types.DirectoryEntrySize < len(dir); id++ {
		e := dir[id*types.DirectoryEntrySize:]
		le.PutUint32(e[68:], types.NoStream)
		le.PutUint32(e[72:], types.NoStream)
		le.PutUint32(e[76:], types.NoStream)
	}
	writeRun(img, img.DirectoryStart, dir)

	// mini-FAT, mini stream, regular streams
	if miniFATSectors > 0 {
		raw := make([]byte, int(miniFATSectors)*ss)
		for i := range raw {
			raw[i] = 0xFF
		}
		for i, v := range miniFAT {
			le.PutUint32(raw[i*4:], v)
		}
		writeRun(img, img.MiniFATStart, raw)
	}
	if miniStreamSectors > 0 {
		writeRun(img, rootStart, miniStream)
	}
	for id := 1; id < len(b.nodes); id++ {
		n := b.nodes[id]
		if !n.storage && uint64(len(n.data)) >= types.MiniStreamCutoff {
			writeRun(img, img.starts[id], n.data)
		}
	}

	return img
}

func (b *Builder) writeEntry(e []byte, id int, img *Image, rootStart uint32, rootSize uint64) {
	n := b.nodes[id]
	name := utf16.Encode([]rune(n.name))
	for i, u := range name {
		if i >= 31 {
			break
		}
		le.PutUint16(e[i*2:], u)
	}
	nameUnits := len(name)
	if nameUnits > 31 {
		nameUnits = 31
	}
	le.PutUint16(e[64:], uint16((nameUnits+1)*2))

	switch {
	case id == 0:
		e[66] = byte(types.ObjectTypeRoot)
	case n.storage:
		e[66] = byte(types.ObjectTypeStorage)
	default:
		e[66] = byte(types.ObjectTypeStream)
	}
	e[67] = 1 // black

	left, right, child := types.NoStream, types.NoStream, types.NoStream
	if id != 0 {
		siblings := b.nodes[n.parent].children
		for i, s := range siblings {
			if s == id && i+1 < len(siblings) {
				right = uint32(siblings[i+1])
			}
		}
	}
	if len(n.children) > 0 {
		child = uint32(n.children[0])
	}
	le.PutUint32(e[68:], left)
	le.PutUint32(e[72:], right)
	le.PutUint32(e[76:], child)
	copy(e[80:96], n.clsid[:])

	switch {
	case id == 0:
		le.PutUint32(e[116:], rootStart)
		le.PutUint64(e[120:], rootSize)
	case n.storage:
		le.PutUint32(e[116:], 0)
	case len(n.data) == 0:
		le.PutUint32(e[116:], types.EndOfChain)
	default:
		le.PutUint32(e[116:], img.starts[id])
		le.PutUint64(e[120:], uint64(len(n.data)))
	}
}

// writeRun copies data into consecutive sectors starting at start
func writeRun(img *Image, start uint32, data []byte) {
	off := img.SectorSize + int(start)*img.SectorSize
	copy(img.Data[off:], data)
}

func (b *Builder) path(id int) string {
	n := b.nodes[id]
	if n.parent <= 0 {
		return n.name
	}
	return b.path(n.parent) + "/" + n.name
}

// StreamStart returns the first sector (or mini sector) of the stream at path.
func (img *Image) StreamStart(path string) (uint32, bool) {
	id, ok := img.ids[path]
	if !ok {
		return 0, false
	}
	start, ok := img.starts[id]
	return start, ok
}

// InMiniStream reports whether the stream at path was placed in the mini stream.
func (img *Image) InMiniStream(path string) bool {
	return img.mini[img.ids[path]]
}

// EntryID returns the stream id of the entry at path.
func (img *Image) EntryID(path string) int {
	return img.ids[path]
}

// FAT returns the FAT entry of sector.
func (img *Image) FAT(sector uint32) uint32 {
	return le.Uint32(img.Data[img.fatOffset(sector):])
}

// SetFAT overwrites the FAT entry of sector.
func (img *Image) SetFAT(sector, value uint32) {
	le.PutUint32(img.Data[img.fatOffset(sector):], value)
}

func (img *Image) fatOffset(sector uint32) int {
	perSector := uint32(img.SectorSize / 4)
	fatSector := img.FATSectors[sector/perSector]
	return img.SectorSize + int(fatSector)*img.SectorSize + int(sector%perSector)*4
}

// SetMiniFAT overwrites the mini-FAT entry of a mini sector. The mini-FAT is laid out
// contiguously, so this addresses it directly.
func (img *Image) SetMiniFAT(miniSector, value uint32) {
	off := img.SectorSize + int(img.MiniFATStart)*img.SectorSize + int(miniSector)*4
	le.PutUint32(img.Data[off:], value)
}

// EntryBytes returns the 128 byte directory entry with the given stream id for in place
// corruption. The directory is laid out contiguously.
func (img *Image) EntryBytes(id int) []byte {
	off := img.SectorSize + int(img.DirectoryStart)*img.SectorSize + id*types.DirectoryEntrySize
	return img.Data[off : off+types.DirectoryEntrySize]
}

// SetEntrySize overwrites the declared size of the entry with the given stream id.
func (img *Image) SetEntrySize(id int, size uint64) {
	le.PutUint64(img.EntryBytes(id)[120:], size)
}

// SetEntryLinks overwrites the sibling and child links of an entry.
func (img *Image) SetEntryLinks(id int, left, right, child uint32) {
	e := img.EntryBytes(id)
	le.PutUint32(e[68:], left)
	le.PutUint32(e[72:], right)
	le.PutUint32(e[76:], child)
}
