// Package streamname converts between installer stream names and the packed form
// stored in compound file directory entries.
//
// Installer databases squeeze two characters of the set [0-9A-Za-z._] into one UTF-16
// code unit so long table and stream names fit the 31 unit directory name limit.
// Pairs land in 0x3800-0x47FF, single characters in 0x4800-0x483F, and table row
// streams carry a leading 0x4840.
package streamname

import (
	"strings"
	"unicode/utf16"
)

const (
	pairBase   = 0x3800
	singleBase = 0x4800
	tableMark  = 0x4840

	// MaxLength is the longest encoded name, in UTF-16 units, a directory entry holds.
	MaxLength = 31
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz._"

// index returns the alphabet position of r
func index(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10, true
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 36, true
	case r == '.':
		return 62, true
	case r == '_':
		return 63, true
	}
	return 0, false
}

// Encode packs name into its stored form. Table row streams get the table marker.
func Encode(name string, table bool) string {
	runes := []rune(name)
	var b strings.Builder
	if table {
		b.WriteRune(tableMark)
	}
	for i := 0; i < len(runes); i++ {
		first, ok := index(runes[i])
		if !ok {
			b.WriteRune(runes[i])
			continue
		}
		if i+1 < len(runes) {
			if second, ok := index(runes[i+1]); ok {
				b.WriteRune(rune(pairBase + first + second<<6))
				i++
				continue
			}
		}
		b.WriteRune(rune(singleBase + first))
	}
	return b.String()
}

// Decode unpacks a stored name. It reports whether the name carried the table marker.
// Characters outside the packed ranges pass through unchanged.
func Decode(stored string) (name string, table bool) {
	runes := []rune(stored)
	if len(runes) > 0 && runes[0] == tableMark {
		table = true
		runes = runes[1:]
	}
	var b strings.Builder
	for _, r := range runes {
		switch {
		case r >= pairBase && r < singleBase:
			v := int(r - pairBase)
			b.WriteByte(alphabet[v&0x3F])
			b.WriteByte(alphabet[v>>6])
		case r >= singleBase && r < tableMark:
			b.WriteByte(alphabet[r-singleBase])
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), table
}

// Fits reports whether the encoded form of name fits a directory entry.
func Fits(name string, table bool) bool {
	return len(utf16.Encode([]rune(Encode(name, table)))) <= MaxLength
}
