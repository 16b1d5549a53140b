package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// textDecoders are tried in order when the raw bytes are not valid UTF-8.
var textDecoders = []struct {
	name string
	enc  encoding.Encoding
}{
	{"iso-8859-1", charmap.ISO8859_1},
	{"windows-1252", charmap.Windows1252},
}

// readTXT reads a plain text file and decodes it to UTF-8.
func readTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return decodeText(data)
}

// decodeText converts raw bytes to a UTF-8 string, falling through the
// decoder chain until one produces valid output.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	for _, dec := range textDecoders {
		r := transform.NewReader(bytes.NewReader(data), dec.enc.NewDecoder())
		decoded, err := io.ReadAll(r)
		if err != nil || !utf8.Valid(decoded) {
			continue
		}
		return string(decoded), nil
	}

	return "", ErrDecodeFailure
}
