package loader

import (
	"bytes"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Writer: serializes an irep tree to a RITE image
// ---------------------------------------------------------------------------

// Writer emits RITE0004 images. The output always parses back to an
// equal tree, with record sizes that pass WithRecordSizeCheck.
type Writer struct {
	buf   *bytes.Buffer
	extra []rawSection
}

type rawSection struct {
	tag  [4]byte
	body []byte
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSection adds a section of arbitrary kind ahead of the IREP section.
func WithSection(tag [4]byte, body []byte) WriterOption {
	return func(w *Writer) {
		w.extra = append(w.extra, rawSection{tag: tag, body: body})
	}
}

// NewWriter creates a new image writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{buf: bytes.NewBuffer(nil)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteImage serializes root with a fresh Writer.
func WriteImage(root *Irep, opts ...WriterOption) ([]byte, error) {
	return NewWriter(opts...).Write(root)
}

// Write serializes root and returns the complete image.
func (w *Writer) Write(root *Irep) ([]byte, error) {
	if root == nil {
		return nil, ErrNilIrep
	}
	w.buf.Reset()

	// Header; the checksum is left zero and the size is patched below.
	w.buf.Write(FormatTag[:])
	w.writeUint16(0)
	w.writeUint32(0)
	w.buf.Write(ProducerTag[:])
	w.buf.Write(ProducerVersion[:])

	for _, s := range w.extra {
		if s.tag == SectionEnd || s.tag == SectionIrep {
			return nil, fmt.Errorf("section %q cannot be added as an extra section", s.tag[:])
		}
		w.buf.Write(s.tag[:])
		w.writeUint32(uint32(sectionHeaderSize + len(s.body)))
		w.buf.Write(s.body)
	}

	irepStart := w.buf.Len()
	w.buf.Write(SectionIrep[:])
	w.writeUint32(0)
	w.buf.Write(IrepVersion[:])
	if err := w.writeTree(root); err != nil {
		return nil, err
	}
	w.patchUint32(irepStart+4, uint32(w.buf.Len()-irepStart))

	w.buf.Write(SectionEnd[:])
	w.writeUint32(sectionHeaderSize)

	w.patchUint32(headerSizeOffset, uint32(w.buf.Len()))

	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out, nil
}

func (w *Writer) writeTree(r *Irep) error {
	if err := w.writeRecord(r); err != nil {
		return err
	}
	for i, c := range r.Children {
		if c == nil {
			return fmt.Errorf("child %d: %w", i, ErrNilIrep)
		}
		if err := w.writeTree(c); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeRecord(r *Irep) error {
	if len(r.Instructions)%4 != 0 {
		return fmt.Errorf("instruction stream of %d bytes is not a whole number of words", len(r.Instructions))
	}
	if len(r.Children) > math.MaxUint16 {
		return fmt.Errorf("%d children do not fit a record", len(r.Children))
	}

	start := w.buf.Len()
	w.writeUint32(0)
	w.writeUint16(r.Locals)
	w.writeUint16(r.Registers)
	w.writeUint16(uint16(len(r.Children)))
	w.writeUint32(uint32(len(r.Instructions) / 4))
	for pad := -w.buf.Len() & 3; pad > 0; pad-- {
		w.buf.WriteByte(0)
	}
	w.buf.Write(r.Instructions)

	w.writeUint32(uint32(len(r.Pool)))
	for i, l := range r.Pool {
		payload := l.payload()
		if len(payload) > math.MaxUint16 {
			return fmt.Errorf("pool entry %d: payload of %d bytes is too long", i, len(payload))
		}
		w.buf.WriteByte(l.tag())
		w.writeUint16(uint16(len(payload)))
		w.buf.Write(payload)
	}

	w.buf.Write(r.Symbols.Bytes())

	w.patchUint32(start, uint32(w.buf.Len()-start))
	return nil
}

func (w *Writer) writeUint16(v uint16) {
	var b [2]byte
	WriteUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) writeUint32(v uint32) {
	var b [4]byte
	WriteUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) patchUint32(off int, v uint32) {
	WriteUint32(w.buf.Bytes()[off:], v)
}
