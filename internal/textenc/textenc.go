// Package textenc turns bytes of unknown encoding into text. Layout CSVs
// are frequently re-saved by spreadsheet tools in a local code page, so the
// decoder guesses instead of failing.
package textenc

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported by Decode.
const (
	UTF8        = "utf-8"
	UTF8BOM     = "utf-8-sig"
	UTF16LE     = "utf-16le"
	UTF16BE     = "utf-16be"
	ShiftJIS    = "shift_jis"
	EUCJP       = "euc-jp"
	UTF8Lenient = "utf-8 (invalid bytes replaced)"
)

const replacement = "\uFFFD"

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

type candidate struct {
	name string
	enc  encoding.Encoding
}

// legacy encodings tried, in preference order, when the input is not UTF-8.
var legacy = []candidate{
	{name: ShiftJIS, enc: japanese.ShiftJIS},
	{name: EUCJP, enc: japanese.EUCJP},
}

// Decode returns b as text together with the name of the encoding it was
// read as. It never fails: undecodable sequences become U+FFFD.
func Decode(b []byte) (string, string) {
	switch {
	case bytes.HasPrefix(b, bomUTF8):
		return strings.ToValidUTF8(string(b[len(bomUTF8):]), replacement), UTF8BOM
	case bytes.HasPrefix(b, bomUTF16LE):
		if s, ok := decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), b); ok {
			return s, UTF16LE
		}
	case bytes.HasPrefix(b, bomUTF16BE):
		if s, ok := decodeWith(unicode.UTF16(unicode.BigEndian, unicode.UseBOM), b); ok {
			return s, UTF16BE
		}
	}

	if utf8.Valid(b) {
		return string(b), UTF8
	}

	best, bestName, bestBad := "", "", -1
	for _, c := range legacy {
		s, ok := decodeWith(c.enc, b)
		if !ok {
			continue
		}
		bad := strings.Count(s, replacement)
		if bestBad < 0 || bad < bestBad {
			best, bestName, bestBad = s, c.name, bad
		}
	}
	lenient := strings.ToValidUTF8(string(b), replacement)
	if bestBad >= 0 && bestBad < strings.Count(lenient, replacement) {
		return best, bestName
	}
	return lenient, UTF8Lenient
}

func decodeWith(enc encoding.Encoding, b []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(out), true
}
