package core

import (
	"bytes"
	"unicode/utf8"
)

// utf8BOM is the byte order mark Windows programs put in front of UTF-8 files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM removes a leading UTF-8 BOM.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD.
// Valid input is returned as-is without copying.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.Write(data[:size])
		}
		data = data[size:]
	}

	return buf.Bytes()
}
