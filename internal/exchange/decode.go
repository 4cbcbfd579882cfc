package exchange

// decode.go normalises the bytes of a delimited upload into UTF-8 text.
//
// Spreadsheet apps save "CSV" in several encodings:
//   - UTF-8 with or without a BOM (the BOM is stripped)
//   - UTF-16 LE/BE with a BOM ("Unicode text" exports)
//   - Windows-1252 for legacy Excel on Windows
//
// Text containing NUL bytes after decoding is treated as binary, not as rows.

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var errBinaryContent = errors.New("file contains binary data")

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText converts data to UTF-8 text.
func decodeText(data []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)

	switch {
	case bytes.HasPrefix(data, utf8BOM),
		bytes.HasPrefix(data, bomUTF16LE),
		bytes.HasPrefix(data, bomUTF16BE),
		utf8.Valid(data):
		out, _, err = transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	default:
		out, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	}
	if err != nil {
		return nil, err
	}

	if bytes.IndexByte(out, 0) >= 0 {
		return nil, errBinaryContent
	}
	return out, nil
}
