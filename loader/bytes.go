package loader

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Binary decoding helpers
// ---------------------------------------------------------------------------

// ReadUint16 reads a big-endian uint16 at off. No alignment is required.
func ReadUint16(buf []byte, off int) uint16 {
	return binary.BigEndian.Uint16(buf[off:])
}

// ReadUint32 reads a big-endian uint32 at off. No alignment is required.
func ReadUint32(buf []byte, off int) uint32 {
	return binary.BigEndian.Uint32(buf[off:])
}

// WriteUint16 writes a uint16 in big-endian format.
func WriteUint16(buf []byte, v uint16) {
	binary.BigEndian.PutUint16(buf, v)
}

// WriteUint32 writes a uint32 in big-endian format.
func WriteUint32(buf []byte, v uint32) {
	binary.BigEndian.PutUint32(buf, v)
}

// cursor walks an image left to right. Reads never go past limit, which
// is the declared image size; running out of bytes is ErrTruncated.
type cursor struct {
	data   []byte
	offset int
	limit  int
}

func (c *cursor) need(n int, what string) error {
	if n < 0 || c.offset+n > c.limit {
		return fmt.Errorf("%w: %s needs %d bytes at offset %d", ErrTruncated, what, n, c.offset)
	}
	return nil
}

func (c *cursor) readUint8(what string) (uint8, error) {
	if err := c.need(1, what); err != nil {
		return 0, err
	}
	v := c.data[c.offset]
	c.offset++
	return v, nil
}

func (c *cursor) readUint16(what string) (uint16, error) {
	if err := c.need(2, what); err != nil {
		return 0, err
	}
	v := ReadUint16(c.data, c.offset)
	c.offset += 2
	return v, nil
}

func (c *cursor) readUint32(what string) (uint32, error) {
	if err := c.need(4, what); err != nil {
		return 0, err
	}
	v := ReadUint32(c.data, c.offset)
	c.offset += 4
	return v, nil
}

// readBytes returns a view of the next n bytes without copying.
func (c *cursor) readBytes(n int, what string) ([]byte, error) {
	if err := c.need(n, what); err != nil {
		return nil, err
	}
	// Capacity is clipped so appending to a view never writes into the image.
	b := c.data[c.offset : c.offset+n : c.offset+n]
	c.offset += n
	return b, nil
}

func (c *cursor) skip(n int, what string) error {
	if err := c.need(n, what); err != nil {
		return err
	}
	c.offset += n
	return nil
}

// align pads the offset forward to the next multiple of 4 relative to
// the image start.
func (c *cursor) align() error {
	pad := -c.offset & 3
	return c.skip(pad, "alignment padding")
}
