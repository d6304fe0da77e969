package naxml

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// charsetReader resolves the encoding declared in the XML prolog (ISO-8859-1, windows-1252, Shift_JIS...).
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if strings.EqualFold(label, "utf-8") || label == "" {
		return input, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// normalizeBOM converts UTF-16 content to UTF-8 and strips a UTF-8 BOM.
// Some back-office exports write UTF-16 with a BOM, which encoding/xml cannot read.
func normalizeBOM(content []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return content[len(bomUTF8):], nil
	case bytes.HasPrefix(content, bomUTF16LE), bytes.HasPrefix(content, bomUTF16BE):
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(decoder, content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode UTF-16 content: %w", err)
		}
		// The prolog still declares UTF-16; the bytes are UTF-8 now.
		return bytes.Replace(out, []byte(`encoding="UTF-16"`), []byte(`encoding="UTF-8"`), 1), nil
	default:
		return content, nil
	}
}
