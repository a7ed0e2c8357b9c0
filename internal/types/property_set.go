package types

import (
	"time"

	"github.com/google/uuid"
)

// OLE property set layout ([MS-OLEPS] 2.21).

const (
	// PropertySetHeaderSize covers byte order, version, system identifier, CLSID and
	// the section count.
	PropertySetHeaderSize = 28

	// PropertySetSectionEntrySize is one FMTID/offset pair following the header.
	PropertySetSectionEntrySize = 20
)

// Property value types ([MS-OLEPS] 2.15). Only the ones summary information uses are decoded.
const (
	VTEmpty    uint32 = 0x0000
	VTNull     uint32 = 0x0001
	VTI2       uint32 = 0x0002
	VTI4       uint32 = 0x0003
	VTBool     uint32 = 0x000B
	VTLPSTR    uint32 = 0x001E
	VTFiletime uint32 = 0x0040
)

// Summary information property ids ([MS-OLEPS] 2.25.1), with their installer meaning.
const (
	PIDCodepage    uint32 = 1
	PIDTitle       uint32 = 2
	PIDSubject     uint32 = 3
	PIDAuthor      uint32 = 4
	PIDKeywords    uint32 = 5
	PIDComments    uint32 = 6
	PIDTemplate    uint32 = 7  // platform and languages, e.g. "x64;1033"
	PIDLastAuthor  uint32 = 8  // last saved by
	PIDRevNumber   uint32 = 9  // package code
	PIDLastPrinted uint32 = 11 // creation time of an administrative image
	PIDCreateDTM   uint32 = 12
	PIDLastSaveDTM uint32 = 13
	PIDPageCount   uint32 = 14 // minimum installer schema
	PIDWordCount   uint32 = 15 // source image flags
	PIDCharCount   uint32 = 16
	PIDAppName     uint32 = 18
	PIDDocSecurity uint32 = 19
)

// SummaryInformationFMTID identifies the summary information property set.
var SummaryInformationFMTID = uuid.MustParse("f29f85e0-4ff9-1068-ab91-08002b27b3d9")

// Property is one decoded entry of a property set section. Value holds a string,
// int32, bool, time.Time or nil; Raw holds the undecoded payload of any property whose
// type is not understood or whose payload is malformed.
type Property struct {
	ID    uint32      `json:"id" yaml:"id"`
	Type  uint32      `json:"type" yaml:"type"`
	Value interface{} `json:"value" yaml:"value"`
	Raw   []byte      `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Decoded reports whether the property carries a typed value rather than raw bytes.
func (p Property) Decoded() bool {
	return p.Raw == nil
}

// SummaryInformation is the named view over the summary information property set.
// Properties keeps every entry keyed by id, including unknown ones.
type SummaryInformation struct {
	Codepage            int                 `json:"codepage" yaml:"codepage"`
	CodepageName        string              `json:"codepage_name,omitempty" yaml:"codepage_name,omitempty"`
	Title               string              `json:"title,omitempty" yaml:"title,omitempty"`
	Subject             string              `json:"subject,omitempty" yaml:"subject,omitempty"`
	Author              string              `json:"author,omitempty" yaml:"author,omitempty"`
	Keywords            string              `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Comments            string              `json:"comments,omitempty" yaml:"comments,omitempty"`
	Template            string              `json:"template,omitempty" yaml:"template,omitempty"`
	Architecture        string              `json:"arch,omitempty" yaml:"arch,omitempty"`
	Languages           []int               `json:"languages,omitempty" yaml:"languages,omitempty"`
	LanguageTags        []string            `json:"language_tags,omitempty" yaml:"language_tags,omitempty"`
	LastSavedBy         string              `json:"last_saved_by,omitempty" yaml:"last_saved_by,omitempty"`
	RevisionNumber      string              `json:"revision_number,omitempty" yaml:"revision_number,omitempty"`
	PackageCode         *uuid.UUID          `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	LastPrinted         *time.Time          `json:"last_printed,omitempty" yaml:"last_printed,omitempty"`
	Created             *time.Time          `json:"creation_time,omitempty" yaml:"creation_time,omitempty"`
	LastSaved           *time.Time          `json:"last_saved,omitempty" yaml:"last_saved,omitempty"`
	PageCount           *int32              `json:"page_count,omitempty" yaml:"page_count,omitempty"`
	WordCount           *int32              `json:"word_count,omitempty" yaml:"word_count,omitempty"`
	CharCount           *int32              `json:"char_count,omitempty" yaml:"char_count,omitempty"`
	CreatingApplication string              `json:"creating_application,omitempty" yaml:"creating_application,omitempty"`
	Security            *int32              `json:"security,omitempty" yaml:"security,omitempty"`
	Properties          map[uint32]Property `json:"properties" yaml:"properties"`
}
