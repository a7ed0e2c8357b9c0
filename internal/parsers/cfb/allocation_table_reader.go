package cfb

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-msi/internal/interfaces"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// sectorStore addresses fixed size sectors inside a byte buffer. Regular sectors start
// after the header sector; mini sectors start at the beginning of the mini stream.
type sectorStore struct {
	data  []byte
	base  int
	size  int
	count uint32
}

// newSectorStore creates a store over data[base:] with the given sector size
func newSectorStore(data []byte, base, size int) *sectorStore {
	available := len(data) - base
	if available < 0 {
		available = 0
	}
	return &sectorStore{
		data:  data,
		base:  base,
		size:  size,
		count: uint32((available + size - 1) / size),
	}
}

// sector returns the bytes of sector id; the last sector of a file may be short
func (s *sectorStore) sector(id uint32) []byte {
	if id >= s.count {
		return nil
	}
	start := s.base + int(id)*s.size
	end := start + s.size
	if end > len(s.data) {
		end = len(s.data)
	}
	return s.data[start:end]
}

// available returns the number of bytes the store can address
func (s *sectorStore) available() uint64 {
	if len(s.data) <= s.base {
		return 0
	}
	return uint64(len(s.data) - s.base)
}

// chainReader follows an allocation table over a sector store
type chainReader struct {
	store *sectorStore
	table []uint32
}

var _ interfaces.SectorChainReader = (*chainReader)(nil)

// SectorCount returns the number of addressable sectors
func (r *chainReader) SectorCount() uint32 {
	return r.store.count
}

// ReadChain concatenates sector payloads from start until size bytes are collected.
// The result never exceeds min(size, addressable bytes). A chain that ends early yields
// the prefix and ErrTruncatedStream; a loop or an out of range link yields the prefix
// and ErrMalformedContainer.
func (r *chainReader) ReadChain(start uint32, size uint64) ([]byte, error) {
	capacity := size
	if avail := r.store.available(); capacity > avail {
		capacity = avail
	}
	out := make([]byte, 0, capacity)
	if size == 0 {
		return out, nil
	}

	visited := newBitmap(r.store.count)
	cur := start
	for uint64(len(out)) < size {
		switch {
		case cur == types.EndOfChain || cur == types.FreeSector:
			return out, fmt.Errorf("%w: chain ended after %d of %d bytes", types.ErrTruncatedStream, len(out), size)
		case cur >= r.store.count || int(cur) >= len(r.table):
			return out, fmt.Errorf("%w: sector %d out of range (%d sectors)", types.ErrMalformedContainer, cur, r.store.count)
		case visited.get(cur):
			return out, fmt.Errorf("%w: sector chain loops at sector %d", types.ErrMalformedContainer, cur)
		}
		visited.set(cur)

		payload := r.store.sector(cur)
		if need := size - uint64(len(out)); uint64(len(payload)) > need {
			payload = payload[:need]
		}
		out = append(out, payload...)
		if len(payload) < r.store.size && uint64(len(out)) < size {
			return out, fmt.Errorf("%w: sector %d is cut short by the end of file", types.ErrTruncatedStream, cur)
		}
		cur = r.table[cur]
	}
	return out, nil
}

// collectChain returns the sector ids of a chain up to its end marker
func (r *chainReader) collectChain(start uint32) ([]uint32, error) {
	var ids []uint32
	visited := newBitmap(r.store.count)
	for cur := start; cur != types.EndOfChain; cur = r.table[cur] {
		if cur >= r.store.count || int(cur) >= len(r.table) {
			return ids, fmt.Errorf("%w: sector %d out of range (%d sectors)", types.ErrMalformedContainer, cur, r.store.count)
		}
		if visited.get(cur) {
			return ids, fmt.Errorf("%w: sector chain loops at sector %d", types.ErrMalformedContainer, cur)
		}
		visited.set(cur)
		ids = append(ids, cur)
	}
	return ids, nil
}

// readTable concatenates whole sectors of a chain as little endian uint32 entries
func (r *chainReader) readTable(start uint32) ([]uint32, error) {
	ids, err := r.collectChain(start)
	if err != nil {
		return nil, err
	}
	table := make([]uint32, 0, len(ids)*r.store.size/4)
	for _, id := range ids {
		sec := r.store.sector(id)
		if len(sec) < r.store.size {
			return nil, fmt.Errorf("%w: allocation sector %d is cut short by the end of file", types.ErrMalformedContainer, id)
		}
		table = appendEntries(table, sec)
	}
	return table, nil
}

// buildFAT assembles the sector allocation table from the header DIFAT slots and the
// DIFAT sector chain, trimmed to the number of sectors in the file
func buildFAT(h *types.CFBHeader, store *sectorStore) ([]uint32, error) {
	ids := make([]uint32, 0, types.HeaderDIFATEntries)
	for _, id := range h.DIFAT {
		if id != types.FreeSector {
			ids = append(ids, id)
		}
	}

	perSector := store.size/4 - 1
	visited := newBitmap(store.count)
	next := h.FirstDIFATSector
	for n := uint32(0); next != types.EndOfChain && next != types.FreeSector; n++ {
		if n >= h.NumDIFATSectors {
			break
		}
		if next >= store.count {
			return nil, fmt.Errorf("%w: DIFAT sector %d out of range", types.ErrMalformedContainer, next)
		}
		if visited.get(next) {
			return nil, fmt.Errorf("%w: DIFAT chain loops at sector %d", types.ErrMalformedContainer, next)
		}
		visited.set(next)

		sec := store.sector(next)
		if len(sec) < store.size {
			return nil, fmt.Errorf("%w: DIFAT sector %d is cut short by the end of file", types.ErrMalformedContainer, next)
		}
		for i := 0; i < perSector; i++ {
			if id := binary.LittleEndian.Uint32(sec[i*4:]); id != types.FreeSector {
				ids = append(ids, id)
			}
		}
		next = binary.LittleEndian.Uint32(sec[perSector*4:])
	}

	if h.NumFATSectors > 0 && uint32(len(ids)) > h.NumFATSectors {
		ids = ids[:h.NumFATSectors]
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no FAT sectors", types.ErrMalformedContainer)
	}

	fat := make([]uint32, 0, len(ids)*store.size/4)
	for _, id := range ids {
		if id >= store.count {
			return nil, fmt.Errorf("%w: FAT sector %d out of range (%d sectors)", types.ErrMalformedContainer, id, store.count)
		}
		sec := store.sector(id)
		if len(sec) < store.size {
			return nil, fmt.Errorf("%w: FAT sector %d is cut short by the end of file", types.ErrMalformedContainer, id)
		}
		fat = appendEntries(fat, sec)
	}
	if uint32(len(fat)) > store.count {
		fat = fat[:store.count]
	}
	return fat, nil
}

// appendEntries decodes a sector of little endian uint32 values
func appendEntries(table []uint32, sec []byte) []uint32 {
	for i := 0; i+4 <= len(sec); i += 4 {
		table = append(table, binary.LittleEndian.Uint32(sec[i:]))
	}
	return table
}

// bitmap is a fixed size visited set indexed by sector id
type bitmap []uint64

func newBitmap(n uint32) bitmap {
	return make(bitmap, (uint64(n)+63)/64)
}

func (b bitmap) get(i uint32) bool {
	return b[i/64]&(1<<(i%64)) != 0
}

func (b bitmap) set(i uint32) {
	b[i/64] |= 1 << (i % 64)
}
