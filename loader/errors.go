package loader

import (
	"errors"
)

// ---------------------------------------------------------------------------
// Load Error Types
// ---------------------------------------------------------------------------

// The three error classes a load can fail with. Every more specific
// sentinel below wraps exactly one of them.
var (
	ErrNoMemory           = errors.New("allocation failure")
	ErrFormat             = errors.New("format error")
	ErrUnsupportedFeature = errors.New("unsupported feature")
)

var (
	ErrInvalidMagic           = wrapClass(ErrFormat, "invalid format tag: expected RITE0004")
	ErrInvalidProducer        = wrapClass(ErrFormat, "invalid producer tag: expected MATZ")
	ErrInvalidProducerVersion = wrapClass(ErrFormat, "invalid producer version: expected 0000")
	ErrInvalidSectionVersion  = wrapClass(ErrFormat, "invalid irep section version")
	ErrTruncated              = wrapClass(ErrFormat, "unexpected end of image data")
	ErrBadSectionSize         = wrapClass(ErrFormat, "bad section size")
	ErrSizeMismatch           = wrapClass(ErrFormat, "declared size does not match content")
	ErrDuplicateSection       = wrapClass(ErrFormat, "duplicate irep section")
	ErrMissingIrep            = wrapClass(ErrFormat, "image has no irep section")
	ErrUnknownLiteralTag      = wrapClass(ErrFormat, "unknown literal type tag")
	ErrInvalidLiteral         = wrapClass(ErrFormat, "invalid literal payload")
	ErrDepthExceeded          = wrapClass(ErrFormat, "irep nesting too deep")
)

var (
	ErrNilIrep    = errors.New("attach: nil irep")
	ErrNilRuntime = errors.New("attach: nil runtime")
)

// classError is a sentinel that belongs to one of the error classes.
type classError struct {
	class error
	msg   string
}

func wrapClass(class error, msg string) error {
	return &classError{class: class, msg: msg}
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Unwrap() error { return e.class }

// Classify names the error class of err, or returns "" when err is nil
// or does not come from the loader.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoMemory):
		return "AllocationFailure"
	case errors.Is(err, ErrFormat):
		return "FormatError"
	case errors.Is(err, ErrUnsupportedFeature):
		return "UnsupportedFeature"
	}
	return ""
}
