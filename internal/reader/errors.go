package reader

import "errors"

// Sentinel errors for document extraction failures. They are wrapped with the
// format name and source path when returned, and matched with errors.Is.
var (
	// ErrUnsupportedFormat indicates the source has no reader (unknown
	// extension or scheme).
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCorruptInput indicates the file could not be parsed as its claimed
	// format.
	ErrCorruptInput = errors.New("document is corrupt or unreadable")

	// ErrDecodeFailure indicates no known text encoding could decode the
	// input bytes.
	ErrDecodeFailure = errors.New("text encoding could not be decoded")

	// ErrResourceExhausted indicates the input exceeds the absolute size cap
	// and was rejected before parsing.
	ErrResourceExhausted = errors.New("document exceeds the maximum input size")
)
