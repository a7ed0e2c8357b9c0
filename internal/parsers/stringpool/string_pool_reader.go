// Package stringpool decodes the interned string table of an installer database.
package stringpool

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-msi/internal/interfaces"
	"github.com/deploymenttheory/go-msi/internal/parsers/codepage"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Layout selects how extended length entries (strings of 64 KiB or more) are read.
type Layout int

const (
	// LayoutHighWord reads a zero length slot with a non-zero reference count as an
	// escape: the count is the high 16 bits of the length, and the following slot holds
	// the low 16 bits and the real reference count. Both slots form one string id.
	LayoutHighWord Layout = iota

	// LayoutSentinel reads a fully zero slot followed by another slot as one entry whose
	// 32 bit length is stored in the second slot.
	LayoutSentinel
)

func (l Layout) String() string {
	if l == LayoutSentinel {
		return "sentinel"
	}
	return "high-word"
}

type slot struct {
	length   uint32
	refCount uint32
}

// Pool is a decoded string pool. Ids start at 1; id 0 is null.
type Pool struct {
	codepage int
	longRefs bool
	layout   Layout
	entries  []types.StringPoolEntry
	warning  error
}

var _ interfaces.StringPoolReader = (*Pool)(nil)

// Decode reads the _StringPool and _StringData streams. Extended length entries are
// read with the high-word layout; when its lengths do not add up to the string data
// and the sentinel layout's do, the sentinel reading is used instead.
func Decode(pool, data []byte) (*Pool, error) {
	if len(pool) < 4 {
		return nil, fmt.Errorf("%w: pool header is %d bytes", types.ErrStringPoolCorrupt, len(pool))
	}
	if (len(pool)-4)%4 != 0 {
		return nil, fmt.Errorf("%w: pool length %d is not a whole number of entries", types.ErrStringPoolCorrupt, len(pool))
	}

	header := binary.LittleEndian.Uint32(pool[0:4])
	p := &Pool{
		codepage: int(header &^ types.LongStringRefsBit),
		longRefs: header&types.LongStringRefsBit != 0,
	}

	body := pool[4:]
	slots, total := readSlots(body, LayoutHighWord)
	p.layout = LayoutHighWord
	if total != uint64(len(data)) {
		if alt, altTotal := readSlots(body, LayoutSentinel); altTotal == uint64(len(data)) {
			slots, total, p.layout = alt, altTotal, LayoutSentinel
		}
	}
	if total > uint64(len(data)) {
		return nil, fmt.Errorf("%w: pool declares %d bytes of string data, stream holds %d", types.ErrStringPoolCorrupt, total, len(data))
	}

	decoder, err := codepage.NewDecoder(p.codepage)
	if err != nil {
		p.warning = err
	}

	p.entries = make([]types.StringPoolEntry, len(slots))
	var off uint64
	for i, s := range slots {
		raw := data[off : off+uint64(s.length)]
		off += uint64(s.length)
		p.entries[i] = types.StringPoolEntry{Value: decoder.Decode(raw), RefCount: s.refCount}
	}
	return p, nil
}

// readSlots interprets the pool body under a layout and sums the declared lengths
func readSlots(body []byte, layout Layout) ([]slot, uint64) {
	n := len(body) / 4
	slots := make([]slot, 0, n)
	var total uint64
	for i := 0; i < n; i++ {
		length := uint32(binary.LittleEndian.Uint16(body[i*4:]))
		refs := uint32(binary.LittleEndian.Uint16(body[i*4+2:]))

		if length == 0 && i+1 < n {
			next := body[(i+1)*4:]
			switch {
			case refs > 0:
				s := slot{
					length:   refs<<16 | uint32(binary.LittleEndian.Uint16(next)),
					refCount: uint32(binary.LittleEndian.Uint16(next[2:])),
				}
				slots = append(slots, s)
				total += uint64(s.length)
				i++
				continue
			case layout == LayoutSentinel:
				s := slot{length: binary.LittleEndian.Uint32(next)}
				slots = append(slots, s)
				total += uint64(s.length)
				i++
				continue
			}
		}

		slots = append(slots, slot{length: length, refCount: refs})
		total += uint64(length)
	}
	return slots, total
}

// Codepage returns the code page string data is encoded in
func (p *Pool) Codepage() int {
	return p.codepage
}

// LongRefs reports whether string references in table rows are 3 bytes wide
func (p *Pool) LongRefs() bool {
	return p.longRefs
}

// Layout reports how extended length entries were read
func (p *Pool) Layout() Layout {
	return p.layout
}

// Warning returns a non-fatal decoding problem, such as an unknown code page
func (p *Pool) Warning() error {
	return p.warning
}

// Len returns the number of pool slots
func (p *Pool) Len() int {
	return len(p.entries)
}

// Lookup returns the string with the given id. Id 0 is null.
func (p *Pool) Lookup(id uint32) (string, bool, error) {
	if id == 0 {
		return "", true, nil
	}
	if uint64(id) > uint64(len(p.entries)) {
		return "", false, fmt.Errorf("%w: string id %d out of range (%d strings)", types.ErrStringPoolCorrupt, id, len(p.entries))
	}
	return p.entries[id-1].Value, false, nil
}

// Entries returns a copy of every pool slot in id order
func (p *Pool) Entries() []types.StringPoolEntry {
	return append([]types.StringPoolEntry(nil), p.entries...)
}

// Empty returns a pool with no strings, used when a database carries no string pool
func Empty() *Pool {
	return &Pool{codepage: codepage.Default}
}
