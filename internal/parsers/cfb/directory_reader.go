package cfb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"unicode/utf16"

	"github.com/deploymenttheory/go-msi/internal/types"
)

var (
	errEmptyName      = errors.New("empty entry name")
	errBadNameLength  = errors.New("invalid name length")
	errBadObjectType  = errors.New("invalid object type")
	errLinkOutOfRange = errors.New("sibling or child link out of range")
	errRevisited      = errors.New("entry reached twice in directory tree")
)

// parseDirectoryEntry decodes one 128 byte directory entry
func parseDirectoryEntry(data []byte, endian binary.ByteOrder) *types.RawDirectoryEntry {
	e := &types.RawDirectoryEntry{}
	for i := range e.Name {
		e.Name[i] = endian.Uint16(data[i*2 : i*2+2])
	}
	e.NameLength = endian.Uint16(data[64:66])
	e.ObjectType = types.ObjectType(data[66])
	e.ColorFlag = data[67]
	e.LeftSiblingID = endian.Uint32(data[68:72])
	e.RightSiblingID = endian.Uint32(data[72:76])
	e.ChildID = endian.Uint32(data[76:80])
	copy(e.CLSID[:], data[80:96])
	e.StateBits = endian.Uint32(data[96:100])
	e.CreationTime = endian.Uint64(data[100:108])
	e.ModifiedTime = endian.Uint64(data[108:116])
	e.StartSector = endian.Uint32(data[116:120])
	e.StreamSize = endian.Uint64(data[120:128])
	return e
}

// decodeEntryName converts the UTF-16 name field using its declared byte length,
// which includes the terminating NUL
func decodeEntryName(e *types.RawDirectoryEntry) (string, error) {
	if e.NameLength == 0 {
		return "", errEmptyName
	}
	if e.NameLength%2 != 0 || e.NameLength > 64 {
		return "", fmt.Errorf("%w: %d", errBadNameLength, e.NameLength)
	}
	units := int(e.NameLength)/2 - 1
	if units == 0 {
		return "", errEmptyName
	}
	name := e.Name[:units]
	for i, u := range name {
		if u == 0 {
			name = name[:i]
			break
		}
	}
	if len(name) == 0 {
		return "", errEmptyName
	}
	return string(utf16.Decode(name)), nil
}

// toDirectoryEntry converts a raw entry, masking version 3 sizes to 32 bits
func toDirectoryEntry(id int, raw *types.RawDirectoryEntry, name string, majorVersion uint16) types.DirectoryEntry {
	size := raw.StreamSize
	if majorVersion == 3 {
		size &= 0xFFFFFFFF
	}
	return types.DirectoryEntry{
		ID:          id,
		Name:        name,
		Type:        raw.ObjectType,
		Parent:      -1,
		Left:        raw.LeftSiblingID,
		Right:       raw.RightSiblingID,
		Child:       raw.ChildID,
		CLSID:       types.GUIDFromBytes(raw.CLSID),
		StateBits:   raw.StateBits,
		Created:     types.FiletimeToTime(raw.CreationTime),
		Modified:    types.FiletimeToTime(raw.ModifiedTime),
		StartSector: raw.StartSector,
		Size:        size,
	}
}

// directory is the arena of entries reachable from the root, indexed by stream id
type directory struct {
	entries     []types.DirectoryEntry
	reachable   []bool
	children    map[int][]int
	diagnostics []types.Diagnostic
}

// parseDirectory decodes the directory stream and walks the tree from the root.
// Corrupt entries are reported and skipped without aborting the walk of their siblings.
func parseDirectory(data []byte, majorVersion uint16) (*directory, error) {
	count := len(data) / types.DirectoryEntrySize
	if count == 0 {
		return nil, fmt.Errorf("%w: empty directory stream", types.ErrMalformedContainer)
	}

	raws := make([]*types.RawDirectoryEntry, count)
	for i := range raws {
		off := i * types.DirectoryEntrySize
		raws[i] = parseDirectoryEntry(data[off:off+types.DirectoryEntrySize], binary.LittleEndian)
	}

	root := raws[0]
	if root.ObjectType != types.ObjectTypeRoot {
		return nil, fmt.Errorf("%w: first directory entry is %s, not root", types.ErrMalformedContainer, root.ObjectType)
	}
	rootName, err := decodeEntryName(root)
	if err != nil {
		rootName = "Root Entry"
	}

	d := &directory{
		entries:   make([]types.DirectoryEntry, count),
		reachable: make([]bool, count),
		children:  make(map[int][]int),
	}
	d.entries[0] = toDirectoryEntry(0, root, rootName, majorVersion)
	d.reachable[0] = true

	type pending struct {
		id     uint32
		parent int
	}
	visited := make([]bool, count)
	visited[0] = true
	stack := []pending{{id: root.ChildID, parent: 0}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.id == types.NoStream {
			continue
		}
		label := fmt.Sprintf("#%d", p.id)
		if p.id > types.MaxRegularStreamID || int(p.id) >= count {
			d.report(label, fmt.Errorf("%w: %d (%d entries)", errLinkOutOfRange, p.id, count))
			continue
		}
		id := int(p.id)
		if visited[id] {
			d.report(label, errRevisited)
			continue
		}
		visited[id] = true

		raw := raws[id]
		stack = append(stack, pending{id: raw.RightSiblingID, parent: p.parent}, pending{id: raw.LeftSiblingID, parent: p.parent})

		name, err := decodeEntryName(raw)
		if err != nil {
			d.report(label, err)
			continue
		}
		if raw.ObjectType != types.ObjectTypeStorage && raw.ObjectType != types.ObjectTypeStream {
			d.report(name, fmt.Errorf("%w: %d", errBadObjectType, raw.ObjectType))
			continue
		}

		entry := toDirectoryEntry(id, raw, name, majorVersion)
		entry.Parent = p.parent
		if p.parent == 0 {
			entry.Path = name
		} else {
			entry.Path = d.entries[p.parent].Path + "/" + name
		}
		d.entries[id] = entry
		d.reachable[id] = true
		d.children[p.parent] = append(d.children[p.parent], id)

		if entry.IsStorage() {
			stack = append(stack, pending{id: raw.ChildID, parent: id})
		}
	}

	for _, ids := range d.children {
		sort.Ints(ids)
	}
	return d, nil
}

func (d *directory) report(name string, err error) {
	d.diagnostics = append(d.diagnostics, types.NewDiagnostic(types.ScopeDirectoryEntry, name, err))
}
