// Package codepage decodes text stored in Windows code pages.
package codepage

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Default is the code page assumed for language neutral databases.
const Default = 1252

// UTF8 is the code page id for UTF-8.
const UTF8 = 65001

type entry struct {
	name string
	enc  encoding.Encoding
}

var codepages = map[int]entry{
	437:   {"IBM437", charmap.CodePage437},
	850:   {"IBM850", charmap.CodePage850},
	852:   {"IBM852", charmap.CodePage852},
	855:   {"IBM855", charmap.CodePage855},
	858:   {"IBM00858", charmap.CodePage858},
	860:   {"IBM860", charmap.CodePage860},
	862:   {"IBM862", charmap.CodePage862},
	863:   {"IBM863", charmap.CodePage863},
	865:   {"IBM865", charmap.CodePage865},
	866:   {"IBM866", charmap.CodePage866},
	874:   {"Windows-874", charmap.Windows874},
	932:   {"Shift_JIS", japanese.ShiftJIS},
	936:   {"GBK", simplifiedchinese.GBK},
	949:   {"EUC-KR", korean.EUCKR},
	950:   {"Big5", traditionalchinese.Big5},
	1200:  {"UTF-16LE", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	1250:  {"Windows-1250", charmap.Windows1250},
	1251:  {"Windows-1251", charmap.Windows1251},
	1252:  {"Windows-1252", charmap.Windows1252},
	1253:  {"Windows-1253", charmap.Windows1253},
	1254:  {"Windows-1254", charmap.Windows1254},
	1255:  {"Windows-1255", charmap.Windows1255},
	1256:  {"Windows-1256", charmap.Windows1256},
	1257:  {"Windows-1257", charmap.Windows1257},
	1258:  {"Windows-1258", charmap.Windows1258},
	10000: {"macintosh", charmap.Macintosh},
	20866: {"KOI8-R", charmap.KOI8R},
	21866: {"KOI8-U", charmap.KOI8U},
	28591: {"ISO-8859-1", charmap.ISO8859_1},
	28592: {"ISO-8859-2", charmap.ISO8859_2},
	28595: {"ISO-8859-5", charmap.ISO8859_5},
	28597: {"ISO-8859-7", charmap.ISO8859_7},
	28599: {"ISO-8859-9", charmap.ISO8859_9},
	28605: {"ISO-8859-15", charmap.ISO8859_15},
	UTF8:  {"UTF-8", nil},
}

// normalize maps the language neutral code page 0 to the default
func normalize(id int) int {
	if id == 0 {
		return Default
	}
	return id
}

// Supported reports whether id has a decoder.
func Supported(id int) bool {
	_, ok := codepages[normalize(id)]
	return ok
}

// Name returns the conventional name of a code page, or "cp<id>" when unknown.
func Name(id int) string {
	if e, ok := codepages[normalize(id)]; ok {
		return e.name
	}
	return fmt.Sprintf("cp%d", id)
}

// Decoder turns code page bytes into Go strings.
type Decoder struct {
	id  int
	enc encoding.Encoding
}

// NewDecoder returns a decoder for id. Unknown code pages fall back to Windows-1252
// and are reported through the returned error so callers can record it.
func NewDecoder(id int) (*Decoder, error) {
	e, ok := codepages[normalize(id)]
	if !ok {
		return &Decoder{id: Default, enc: charmap.Windows1252}, fmt.Errorf("unsupported code page %d, decoding as Windows-1252", id)
	}
	return &Decoder{id: normalize(id), enc: e.enc}, nil
}

// ID returns the code page the decoder applies.
func (d *Decoder) ID() int {
	return d.id
}

// Decode converts raw bytes. Invalid sequences become U+FFFD rather than failing.
func (d *Decoder) Decode(raw []byte) string {
	if d.enc == nil {
		if utf8.Valid(raw) {
			return string(raw)
		}
		return string([]rune(string(raw)))
	}
	out, err := d.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string([]rune(string(raw)))
	}
	return string(out)
}
