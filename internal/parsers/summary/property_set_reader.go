// Package summary decodes the OLE property set stored in \005SummaryInformation.
package summary

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-msi/internal/interfaces"
	"github.com/deploymenttheory/go-msi/internal/parsers/codepage"
	"github.com/deploymenttheory/go-msi/internal/types"
)

const byteOrderMark = 0xFFFE

// Reader holds a decoded summary information property set.
type Reader struct {
	summary     *types.SummaryInformation
	properties  map[uint32]types.Property
	diagnostics []types.Diagnostic
	endian      binary.ByteOrder
}

var _ interfaces.SummaryInformationReader = (*Reader)(nil)

type propertyEntry struct {
	id     uint32
	offset uint32
}

// NewReader decodes a property set stream. Only a broken header or section table is an
// error; properties that cannot be decoded keep their raw bytes and are reported as
// diagnostics.
func NewReader(data []byte) (*Reader, error) {
	r := &Reader{
		properties: make(map[uint32]types.Property),
		endian:     binary.LittleEndian,
	}

	section, err := r.locateSection(data)
	if err != nil {
		return nil, err
	}
	entries, err := r.parseSectionTable(section)
	if err != nil {
		return nil, err
	}

	// the code page governs every string property, so it is decoded first
	cp := codepage.Default
	for _, e := range entries {
		if e.id != types.PIDCodepage {
			continue
		}
		if p, err := r.decodeProperty(section, e, uint32(len(section)), nil); err == nil {
			if v, ok := p.Value.(int32); ok {
				cp = int(uint16(v))
			}
		}
	}
	decoder, cpErr := codepage.NewDecoder(cp)
	if cpErr != nil {
		r.diagnostics = append(r.diagnostics, types.NewDiagnostic(types.ScopeProperty, "codepage", cpErr))
	}

	ends := payloadEnds(entries, uint32(len(section)))
	for _, e := range entries {
		p, err := r.decodeProperty(section, e, ends[e.offset], decoder)
		if err != nil {
			r.diagnostics = append(r.diagnostics, types.NewDiagnostic(types.ScopeProperty, strconv.FormatUint(uint64(e.id), 10), err))
		}
		r.properties[e.id] = p
	}

	r.summary = buildSummary(r.properties, cp)
	return r, nil
}

// locateSection validates the property set header and returns the first section
func (r *Reader) locateSection(data []byte) ([]byte, error) {
	headerEnd := types.PropertySetHeaderSize + types.PropertySetSectionEntrySize
	if len(data) < headerEnd {
		return nil, fmt.Errorf("%w: %d bytes is too small for a property set header", types.ErrMalformedPropertySet, len(data))
	}
	if bom := r.endian.Uint16(data[0:2]); bom != byteOrderMark {
		return nil, fmt.Errorf("%w: byte order 0x%04x", types.ErrMalformedPropertySet, bom)
	}
	if count := r.endian.Uint32(data[24:28]); count < 1 {
		return nil, fmt.Errorf("%w: no sections", types.ErrMalformedPropertySet)
	}

	offset := r.endian.Uint32(data[44:48])
	if uint64(offset)+8 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: section offset %d beyond %d byte stream", types.ErrMalformedPropertySet, offset, len(data))
	}
	section := data[offset:]
	size := r.endian.Uint32(section[0:4])
	if uint64(size) < uint64(len(section)) && size >= 8 {
		section = section[:size]
	}
	return section, nil
}

// parseSectionTable reads the (id, offset) pairs of a section
func (r *Reader) parseSectionTable(section []byte) ([]propertyEntry, error) {
	count := r.endian.Uint32(section[4:8])
	if uint64(count)*8+8 > uint64(len(section)) {
		return nil, fmt.Errorf("%w: %d properties do not fit a %d byte section", types.ErrMalformedPropertySet, count, len(section))
	}
	entries := make([]propertyEntry, count)
	for i := range entries {
		off := 8 + i*8
		entries[i] = propertyEntry{
			id:     r.endian.Uint32(section[off : off+4]),
			offset: r.endian.Uint32(section[off+4 : off+8]),
		}
	}
	return entries, nil
}

// payloadEnds maps each property offset to where its payload can extend: the next
// higher property offset or the end of the section
func payloadEnds(entries []propertyEntry, sectionSize uint32) map[uint32]uint32 {
	offsets := make([]uint32, 0, len(entries))
	for _, e := range entries {
		offsets = append(offsets, e.offset)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	ends := make(map[uint32]uint32, len(offsets))
	for i, off := range offsets {
		end := sectionSize
		for _, next := range offsets[i+1:] {
			if next > off {
				end = next
				break
			}
		}
		if end > sectionSize {
			end = sectionSize
		}
		ends[off] = end
	}
	return ends
}

// decodeProperty reads the typed value at e.offset. A nil decoder skips strings.
func (r *Reader) decodeProperty(section []byte, e propertyEntry, end uint32, decoder *codepage.Decoder) (types.Property, error) {
	p := types.Property{ID: e.id}
	if uint64(e.offset)+4 > uint64(len(section)) || e.offset+4 > end {
		p.Raw = []byte{}
		return p, fmt.Errorf("property offset %d is outside the section", e.offset)
	}
	p.Type = r.endian.Uint32(section[e.offset : e.offset+4])
	payload := section[e.offset+4 : end]

	need := func(n int) error {
		if len(payload) < n {
			return fmt.Errorf("property type 0x%x needs %d bytes, %d available", p.Type, n, len(payload))
		}
		return nil
	}
	raw := func(err error) (types.Property, error) {
		p.Value = nil
		p.Raw = append([]byte{}, payload...)
		return p, err
	}

	switch p.Type {
	case types.VTEmpty, types.VTNull:
		return p, nil

	case types.VTI2:
		if err := need(2); err != nil {
			return raw(err)
		}
		p.Value = int32(int16(r.endian.Uint16(payload)))

	case types.VTI4:
		if err := need(4); err != nil {
			return raw(err)
		}
		p.Value = int32(r.endian.Uint32(payload))

	case types.VTBool:
		if err := need(2); err != nil {
			return raw(err)
		}
		p.Value = r.endian.Uint16(payload) != 0

	case types.VTFiletime:
		if err := need(8); err != nil {
			return raw(err)
		}
		p.Value = types.FiletimeToTime(r.endian.Uint64(payload))

	case types.VTLPSTR:
		if err := need(4); err != nil {
			return raw(err)
		}
		n := r.endian.Uint32(payload)
		if uint64(n) > uint64(len(payload)-4) {
			return raw(fmt.Errorf("string of %d bytes overruns its property", n))
		}
		if decoder == nil {
			return raw(nil)
		}
		text := strings.TrimRight(string(payload[4:4+n]), "\x00")
		p.Value = decoder.Decode([]byte(text))

	default:
		return raw(nil)
	}
	return p, nil
}

// buildSummary maps well-known ids onto named fields
func buildSummary(props map[uint32]types.Property, cp int) *types.SummaryInformation {
	s := &types.SummaryInformation{
		Codepage:     cp,
		CodepageName: codepage.Name(cp),
		Properties:   props,
	}

	str := func(id uint32) string {
		v, _ := props[id].Value.(string)
		return v
	}
	num := func(id uint32) *int32 {
		if v, ok := props[id].Value.(int32); ok {
			return &v
		}
		return nil
	}
	when := func(id uint32) *time.Time {
		if v, ok := props[id].Value.(time.Time); ok && !v.IsZero() {
			return &v
		}
		return nil
	}

	s.Title = str(types.PIDTitle)
	s.Subject = str(types.PIDSubject)
	s.Author = str(types.PIDAuthor)
	s.Keywords = str(types.PIDKeywords)
	s.Comments = str(types.PIDComments)
	s.Template = str(types.PIDTemplate)
	s.Architecture, s.Languages = ParseTemplate(s.Template)
	s.LanguageTags = LanguageTags(s.Languages)
	s.LastSavedBy = str(types.PIDLastAuthor)
	s.RevisionNumber = str(types.PIDRevNumber)
	s.PackageCode = ParsePackageCode(s.RevisionNumber)
	s.LastPrinted = when(types.PIDLastPrinted)
	s.Created = when(types.PIDCreateDTM)
	s.LastSaved = when(types.PIDLastSaveDTM)
	s.PageCount = num(types.PIDPageCount)
	s.WordCount = num(types.PIDWordCount)
	s.CharCount = num(types.PIDCharCount)
	s.CreatingApplication = str(types.PIDAppName)
	s.Security = num(types.PIDDocSecurity)
	return s
}

// ParseTemplate splits a template property such as "x64;1033,1031" into the platform
// and the language ids. Entries that are not numbers are skipped.
func ParseTemplate(template string) (string, []int) {
	arch, langs, found := strings.Cut(template, ";")
	if !found {
		langs, arch = arch, ""
	}
	var ids []int
	for _, field := range strings.Split(langs, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(field)); err == nil {
			ids = append(ids, id)
		}
	}
	return strings.TrimSpace(arch), ids
}

// ParsePackageCode reads the package code GUID held in the revision number. Patches
// append further GUIDs, only the first is the package code.
func ParsePackageCode(revision string) *uuid.UUID {
	if len(revision) < 38 || revision[0] != '{' {
		return nil
	}
	u, err := uuid.Parse(revision[:38])
	if err != nil {
		return nil
	}
	return &u
}

// Summary returns the named mapping
func (r *Reader) Summary() *types.SummaryInformation {
	return r.summary
}

// Properties returns every property keyed by id
func (r *Reader) Properties() map[uint32]types.Property {
	return r.properties
}

// Diagnostics returns properties that could not be decoded
func (r *Reader) Diagnostics() []types.Diagnostic {
	return append([]types.Diagnostic(nil), r.diagnostics...)
}
