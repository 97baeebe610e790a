// Package loader parses RITE bytecode images into trees of irep records.
//
// A parse is a single left-to-right pass over the image: the fixed header
// is validated, top-level sections are scanned, and the IREP section is
// decoded recursively into an Irep tree. The resulting tree holds views
// into the image rather than copies; see Irep.
package loader

import (
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("rite.loader")

// Runtime is the executor a parsed tree is handed to. The loader only
// stores into it.
type Runtime interface {
	AttachIrep(r *Irep)
}

// Image is the result of a successful parse.
type Image struct {
	Header    Header
	Sections  []Section
	Root      *Irep
	Allocated int // bytes approved by the allocator
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type options struct {
	maxDepth         int
	allocator        Allocator
	disableStrings   bool
	disableFloats    bool
	verifyRecordSize bool
	log              commonlog.Logger
}

// Option configures a parse.
type Option func(*options)

// WithMaxDepth bounds record nesting. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithAllocator routes every allocation through a.
func WithAllocator(a Allocator) Option {
	return func(o *options) { o.allocator = a }
}

// WithoutStrings rejects string literals with ErrUnsupportedFeature.
func WithoutStrings() Option {
	return func(o *options) { o.disableStrings = true }
}

// WithoutFloats rejects float literals with ErrUnsupportedFeature.
func WithoutFloats() Option {
	return func(o *options) { o.disableFloats = true }
}

// WithRecordSizeCheck makes each record's declared size a checked field.
func WithRecordSizeCheck() Option {
	return func(o *options) { o.verifyRecordSize = true }
}

// WithLogger replaces the package logger for one parse.
func WithLogger(l commonlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		maxDepth: DefaultMaxDepth,
		log:      log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// ParseImage parses a complete image. On failure every allocation made
// so far is released back to the allocator.
func ParseImage(data []byte, opts ...Option) (*Image, error) {
	o := newOptions(opts)

	h, err := ReadHeader(data)
	if err != nil {
		o.log.Debugf("header rejected: %v", err)
		return nil, err
	}

	limit := int(h.Size)
	if limit < HeaderSize {
		return nil, fmt.Errorf("%w: declared image size %d is smaller than the header", ErrSizeMismatch, h.Size)
	}
	if limit > len(data) {
		return nil, fmt.Errorf("%w: declared image size %d, have %d bytes", ErrTruncated, h.Size, len(data))
	}

	ar := newArena(o.allocator)
	root, sections, err := scanSections(data, limit, ar, o)
	if err != nil {
		ar.release()
		o.log.Debugf("parse failed: %v", err)
		return nil, err
	}

	o.log.Debugf("parsed image: %d bytes, %d sections, %d records", limit, len(sections), root.Count())
	return &Image{
		Header:    h,
		Sections:  sections,
		Root:      root,
		Allocated: ar.bytes,
	}, nil
}

// Parse parses an image and returns the root record of its IREP section.
func Parse(data []byte, opts ...Option) (*Irep, error) {
	img, err := ParseImage(data, opts...)
	if err != nil {
		return nil, err
	}
	return img.Root, nil
}

// Attach makes r the runtime's program.
func Attach(rt Runtime, r *Irep) error {
	if rt == nil {
		return ErrNilRuntime
	}
	if r == nil {
		return ErrNilIrep
	}
	rt.AttachIrep(r)
	return nil
}

// Load parses data and attaches the result to rt. A parse error is
// returned unchanged and leaves rt untouched.
func Load(rt Runtime, data []byte, opts ...Option) error {
	r, err := Parse(data, opts...)
	if err != nil {
		return err
	}
	return Attach(rt, r)
}
