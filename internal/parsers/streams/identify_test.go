package streams

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func portableExecutable(characteristics uint16) []byte {
	data := make([]byte, 0x100)
	copy(data, "MZ")
	binary.LittleEndian.PutUint32(data[0x3C:], 0x80)
	copy(data[0x80:], "PE\x00\x00")
	binary.LittleEndian.PutUint16(data[0x80+22:], characteristics)
	return data
}

func TestIdentify(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantGroup string
		wantMIME  string
	}{
		{"empty", nil, "unknown", "application/x-empty"},
		{"exe", portableExecutable(0x0102), "executable", "application/vnd.microsoft.portable-executable"},
		{"dll", portableExecutable(0x2102), "executable", "application/x-msdownload; format=pe-dll"},
		{"dos stub", append([]byte("MZ"), make([]byte, 0x40)...), "executable", "application/x-msdownload"},
		{"cabinet", []byte("MSCF\x00\x00\x00\x00"), "archive", "application/vnd.ms-cab-compressed"},
		{"ole", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0}, "document", "application/x-ole-storage"},
		{"zip", []byte("PK\x03\x04rest"), "archive", "application/zip"},
		{"png", []byte("\x89PNG\r\n\x1A\n...."), "image", "image/png"},
		{"icon", []byte{0, 0, 1, 0, 1, 0, 16, 16}, "image", "image/vnd.microsoft.icon"},
		{"bitmap", append([]byte("BM"), make([]byte, 20)...), "image", "image/bmp"},
		{"rtf", []byte("{\\rtf1\\ansi License}"), "document", "application/rtf"},
		{"xml", []byte("\xEF\xBB\xBF<?xml version=\"1.0\"?><a/>"), "text", "text/xml"},
		{"vbscript", []byte("Dim shell\r\nSet shell = CreateObject(\"WScript.Shell\")\r\n"), "code", "text/vbscript"},
		{"powershell", []byte("param($Path)\nWrite-Host $Path\n"), "code", "text/x-powershell"},
		{"plain text", []byte("just some words"), "text", "text/plain; charset=utf-8"},
		{"binary", []byte{0x01, 0x00, 0x02, 0xFF}, "binary", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Identify(tt.data)
			assert.Equal(t, tt.wantGroup, got.Group)
			assert.Equal(t, tt.wantMIME, got.MIMEType)
		})
	}
}
