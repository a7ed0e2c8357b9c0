package streams

import (
	"bytes"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Identification is the sniffed type of a stream's content.
type Identification struct {
	Group    string `json:"group"`
	MIMEType string `json:"mime_type"`
}

type signature struct {
	offset int
	magic  []byte
	id     Identification
}

// Payloads commonly found in installer streams, most specific first.
var signatures = []signature{
	{0, []byte("MSCF"), Identification{"archive", "application/vnd.ms-cab-compressed"}},
	{0, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, Identification{"document", "application/x-ole-storage"}},
	{0, []byte("PK\x03\x04"), Identification{"archive", "application/zip"}},
	{0, []byte("7z\xBC\xAF\x27\x1C"), Identification{"archive", "application/x-7z-compressed"}},
	{0, []byte("Rar!\x1A\x07"), Identification{"archive", "application/vnd.rar"}},
	{0, []byte{0x1F, 0x8B}, Identification{"archive", "application/gzip"}},
	{0, []byte("\x89PNG\r\n\x1A\n"), Identification{"image", "image/png"}},
	{0, []byte("GIF87a"), Identification{"image", "image/gif"}},
	{0, []byte("GIF89a"), Identification{"image", "image/gif"}},
	{0, []byte{0xFF, 0xD8, 0xFF}, Identification{"image", "image/jpeg"}},
	{0, []byte{0x00, 0x00, 0x01, 0x00}, Identification{"image", "image/vnd.microsoft.icon"}},
	{0, []byte("%PDF-"), Identification{"document", "application/pdf"}},
	{0, []byte("{\\rtf"), Identification{"document", "application/rtf"}},
	{0, []byte{0x30, 0x82}, Identification{"certificate", "application/pkcs7-signature"}},
}

// Identify sniffs the content type of a stream from its leading bytes. Portable
// executables are told apart as DLLs or executables from their COFF characteristics;
// text is further split into scripts by common keywords.
func Identify(data []byte) Identification {
	if len(data) == 0 {
		return Identification{"unknown", "application/x-empty"}
	}
	if id, ok := identifyPE(data); ok {
		return id
	}
	if bytes.HasPrefix(data, []byte("BM")) && len(data) >= 14 {
		return Identification{"image", "image/bmp"}
	}
	for _, sig := range signatures {
		if len(data) >= sig.offset+len(sig.magic) && bytes.Equal(data[sig.offset:sig.offset+len(sig.magic)], sig.magic) {
			return sig.id
		}
	}

	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	if isText(head) {
		return identifyText(head)
	}
	return Identification{"binary", "application/octet-stream"}
}

// identifyPE checks for an MZ header pointing at a PE signature
func identifyPE(data []byte) (Identification, bool) {
	if len(data) < 0x40 || data[0] != 'M' || data[1] != 'Z' {
		return Identification{}, false
	}
	peOff := int(uint32(data[0x3C]) | uint32(data[0x3D])<<8 | uint32(data[0x3E])<<16 | uint32(data[0x3F])<<24)
	if peOff < 0 || peOff+24 > len(data) || !bytes.Equal(data[peOff:peOff+4], []byte("PE\x00\x00")) {
		return Identification{"executable", "application/x-msdownload"}, true
	}
	characteristics := uint16(data[peOff+22]) | uint16(data[peOff+23])<<8
	if characteristics&0x2000 != 0 {
		return Identification{"executable", "application/x-msdownload; format=pe-dll"}, true
	}
	return Identification{"executable", "application/vnd.microsoft.portable-executable"}, true
}

// isText reports whether data looks like text: valid UTF-8 (or UTF-16 with a BOM)
// without NUL bytes
func isText(data []byte) bool {
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return true
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	// a cut multi-byte sequence at the end of the sample is fine
	for i := 0; i < utf8.UTFMax && len(data) > 0; i++ {
		if utf8.Valid(data) {
			return true
		}
		data = data[:len(data)-1]
	}
	return false
}

var scriptMarkers = []struct {
	needles []string
	id      Identification
}{
	{[]string{"param(", "write-host", "get-item", "$env:", "[cmdletbinding"}, Identification{"code", "text/x-powershell"}},
	{[]string{"createobject(", "wscript.", "dim ", "end sub", "end function", "on error resume next"}, Identification{"code", "text/vbscript"}},
	{[]string{"function(", "var ", "activexobject", "wscript.echo"}, Identification{"code", "text/jscript"}},
	{[]string{"@echo off", "goto ", "setlocal"}, Identification{"code", "text/x-msdos-batch"}},
}

// identifyText classifies a text sample
func identifyText(head []byte) Identification {
	trimmed := bytes.TrimLeft(head, " \t\r\n\xEF\xBB\xBF")
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return Identification{"text", "text/xml"}
	}
	lower := strings.ToLower(string(head))
	for _, m := range scriptMarkers {
		for _, needle := range m.needles {
			if strings.Contains(lower, needle) {
				return m.id
			}
		}
	}
	mime := http.DetectContentType(head)
	return Identification{"text", mime}
}
