package loader

import "math"

// SymbolBlock is a record's local symbol names, kept in their encoded
// form and decoded on demand:
//
//	0000_0000   n of symbols
//	(loop n)
//	  0000      length
//	  ...       name bytes
//	  00        terminator
//
// The block aliases the image it was parsed from.
type SymbolBlock struct {
	data  []byte
	count int
}

// EncodeSymbols builds a symbol block holding names. Names longer than
// 65535 bytes are cut to that length.
func EncodeSymbols(names ...string) SymbolBlock {
	size := 4
	for _, n := range names {
		size += 2 + min(len(n), math.MaxUint16) + 1
	}
	buf := make([]byte, size)
	WriteUint32(buf, uint32(len(names)))
	off := 4
	for _, n := range names {
		if len(n) > math.MaxUint16 {
			n = n[:math.MaxUint16]
		}
		WriteUint16(buf[off:], uint16(len(n)))
		off += 2
		off += copy(buf[off:], n)
		buf[off] = 0
		off++
	}
	return SymbolBlock{data: buf, count: len(names)}
}

// scanSymbols walks the symbol block at the cursor and leaves the cursor
// just past it. Names are skipped, not copied.
func scanSymbols(c *cursor) (SymbolBlock, error) {
	start := c.offset
	n, err := c.readUint32("symbol count")
	if err != nil {
		return SymbolBlock{}, err
	}
	for i := uint32(0); i < n; i++ {
		l, err := c.readUint16("symbol length")
		if err != nil {
			return SymbolBlock{}, err
		}
		if err := c.skip(int(l)+1, "symbol name"); err != nil {
			return SymbolBlock{}, err
		}
	}
	return SymbolBlock{data: c.data[start:c.offset:c.offset], count: int(n)}, nil
}

// Len returns the number of symbols in the block.
func (s SymbolBlock) Len() int {
	return s.count
}

// Bytes returns the encoded block, count field included.
func (s SymbolBlock) Bytes() []byte {
	if s.data == nil {
		return []byte{0, 0, 0, 0}
	}
	return s.data
}

// Each calls fn for every name in order until fn returns false. The name
// slice aliases the block.
func (s SymbolBlock) Each(fn func(i int, name []byte) bool) {
	off := 4
	for i := 0; i < s.count; i++ {
		l := int(ReadUint16(s.data, off))
		off += 2
		if !fn(i, s.data[off:off+l:off+l]) {
			return
		}
		off += l + 1
	}
}

// Name returns the i'th name. The second result is false when i is out
// of range.
func (s SymbolBlock) Name(i int) ([]byte, bool) {
	if i < 0 || i >= s.count {
		return nil, false
	}
	var out []byte
	s.Each(func(j int, name []byte) bool {
		if j == i {
			out = name
			return false
		}
		return true
	})
	return out, true
}

// Names returns copies of every name.
func (s SymbolBlock) Names() []string {
	names := make([]string, 0, s.count)
	s.Each(func(_ int, name []byte) bool {
		names = append(names, string(name))
		return true
	})
	return names
}

// clone returns a block that owns its bytes.
func (s SymbolBlock) clone() SymbolBlock {
	if s.data == nil {
		return s
	}
	return SymbolBlock{data: append([]byte(nil), s.data...), count: s.count}
}
