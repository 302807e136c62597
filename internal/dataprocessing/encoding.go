package dataprocessing

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported by DetectAndDecode.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-bom"
	EncodingUTF16LE     = "utf-16le"
	EncodingUTF16BE     = "utf-16be"
	EncodingWindows1252 = "windows-1252"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectAndDecode detects the text encoding of a whole file, strips any BOM
// and returns UTF-8 bytes along with the detected encoding name.
//
// Files without a BOM that are not valid UTF-8 are decoded as Windows-1252,
// which is what the pre-2019 BAAC exports use.
func DetectAndDecode(data []byte) ([]byte, string, error) {
	switch {
	case len(data) == 0:
		return data, EncodingUTF8, nil
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], EncodingUTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		out, err := decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data)
		if err != nil {
			return nil, "", fmt.Errorf("UTF-16 LE decode failed: %w", err)
		}
		return out, EncodingUTF16LE, nil
	case bytes.HasPrefix(data, bomUTF16BE):
		out, err := decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), data)
		if err != nil {
			return nil, "", fmt.Errorf("UTF-16 BE decode failed: %w", err)
		}
		return out, EncodingUTF16BE, nil
	case utf8.Valid(data):
		return data, EncodingUTF8, nil
	}

	out, err := decodeWith(charmap.Windows1252, data)
	if err != nil {
		return nil, "", fmt.Errorf("windows-1252 decode failed: %w", err)
	}
	return out, EncodingWindows1252, nil
}

func decodeWith(enc encoding.Encoding, data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	return out, err
}
