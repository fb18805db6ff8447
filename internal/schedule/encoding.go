package schedule

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DefaultLegacyEncoding is used for input that is neither BOM-marked nor
// valid UTF-8. EUC-KR in x/text decodes the CP949 extension as well.
var DefaultLegacyEncoding encoding.Encoding = korean.EUCKR

// decodeText detects the encoding of data and returns it as UTF-8 text
// together with a short label for the detected encoding.
func decodeText(data []byte, legacy encoding.Encoding) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), "utf-8-bom", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", "", fmt.Errorf("decoding utf-16le: %w", err)
		}
		return string(out), "utf-16le", nil
	case bytes.HasPrefix(data, bomUTF16BE):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", "", fmt.Errorf("decoding utf-16be: %w", err)
		}
		return string(out), "utf-16be", nil
	case utf8.Valid(data):
		return string(data), "utf-8", nil
	}

	if legacy == nil {
		legacy = DefaultLegacyEncoding
	}
	out, err := legacy.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("decoding legacy code page: %w", err)
	}
	return string(out), "legacy", nil
}
