package loader

import (
	"bytes"
	"fmt"
	"unsafe"
)

// Irep is one compiled code unit: an instruction sequence, its literal
// pool, its local symbol names and the records nested inside it.
//
// Instructions, string literals and Symbols are views into the image the
// record was parsed from. The image must stay alive and unmodified for as
// long as the tree is in use; call Clone to detach a tree from it.
type Irep struct {
	Locals       uint16
	Registers    uint16
	Instructions []byte // 4 bytes per instruction word
	Pool         []Literal
	Children     []*Irep
	Symbols      SymbolBlock
}

// Sizes charged to the Allocator.
var (
	irepSize    = int(unsafe.Sizeof(Irep{}))
	pointerSize = int(unsafe.Sizeof((*Irep)(nil)))
	literalSize = int(unsafe.Sizeof(Literal{}))
)

// Smallest encodings, used to reject counts the remaining bytes cannot
// possibly hold before anything is allocated for them.
const (
	minPoolEntrySize = 1 + 2                     // tag, length
	minRecordSize    = 4 + 2 + 2 + 2 + 4 + 4 + 4 // header, empty pool, empty symbols
)

// InstructionWords returns the number of 4-byte instruction words.
func (r *Irep) InstructionWords() int {
	return len(r.Instructions) / 4
}

// Word returns instruction word i as a big-endian uint32.
func (r *Irep) Word(i int) uint32 {
	return ReadUint32(r.Instructions, i*4)
}

// Count returns the number of records in the tree rooted at r.
func (r *Irep) Count() int {
	n := 1
	for _, c := range r.Children {
		n += c.Count()
	}
	return n
}

// Depth returns the nesting depth of the tree rooted at r; a record
// without children has depth 1.
func (r *Irep) Depth() int {
	d := 0
	for _, c := range r.Children {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	return d + 1
}

// Walk visits r and its descendants in pre-order.
func (r *Irep) Walk(fn func(r *Irep, depth int)) {
	r.walk(fn, 0)
}

func (r *Irep) walk(fn func(*Irep, int), depth int) {
	fn(r, depth)
	for _, c := range r.Children {
		c.walk(fn, depth+1)
	}
}

// Clone returns a deep copy of the tree that owns all of its bytes and
// can outlive the image.
func (r *Irep) Clone() *Irep {
	out := &Irep{
		Locals:       r.Locals,
		Registers:    r.Registers,
		Instructions: cloneBytes(r.Instructions),
		Symbols:      r.Symbols.clone(),
	}
	if r.Pool != nil {
		out.Pool = make([]Literal, len(r.Pool))
		for i, l := range r.Pool {
			l.Str = cloneBytes(l.Str)
			out.Pool[i] = l
		}
	}
	if r.Children != nil {
		out.Children = make([]*Irep, len(r.Children))
		for i, c := range r.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}

// parseRecord decodes the record at the cursor, not including its
// children, and leaves the cursor at the first byte after it.
//
//	0000_0000   record size
//	0000        n of local variables
//	0000        n of registers
//	0000        n of child ireps
//	0000_0000   n of instruction words
//	...         padding to 4-byte alignment
//	...         instruction words
//	0000_0000   n of pool entries
//	(loop n)
//	  00        type tag
//	  0000      payload length
//	  ...       payload
//	...         symbol block
func parseRecord(c *cursor, ar *arena, o *options) (*Irep, error) {
	start := c.offset

	declared, err := c.readUint32("record size")
	if err != nil {
		return nil, err
	}

	if err := ar.allocate(TagIrep, irepSize); err != nil {
		return nil, err
	}
	r := &Irep{}

	if r.Locals, err = c.readUint16("local count"); err != nil {
		return nil, err
	}
	if r.Registers, err = c.readUint16("register count"); err != nil {
		return nil, err
	}
	nchildren, err := c.readUint16("child count")
	if err != nil {
		return nil, err
	}
	ilen, err := c.readUint32("instruction count")
	if err != nil {
		return nil, err
	}

	if err := c.align(); err != nil {
		return nil, err
	}

	if nchildren > 0 {
		if err := c.need(int(nchildren)*minRecordSize, "child records"); err != nil {
			return nil, err
		}
		if err := ar.allocate(TagChildren, int(nchildren)*pointerSize); err != nil {
			return nil, err
		}
		r.Children = make([]*Irep, nchildren)
	}

	// ISEQ block
	if r.Instructions, err = c.readBytes(int(ilen)*4, "instructions"); err != nil {
		return nil, err
	}

	// POOL block
	plen, err := c.readUint32("pool count")
	if err != nil {
		return nil, err
	}
	if plen > 0 {
		if err := c.need(int(plen)*minPoolEntrySize, "pool entries"); err != nil {
			return nil, err
		}
		if err := ar.allocate(TagPool, int(plen)*pointerSize); err != nil {
			return nil, err
		}
		r.Pool = make([]Literal, plen)
	}
	for i := range r.Pool {
		tag, err := c.readUint8("pool type tag")
		if err != nil {
			return nil, err
		}
		size, err := c.readUint16("pool payload length")
		if err != nil {
			return nil, err
		}
		payload, err := c.readBytes(int(size), "pool payload")
		if err != nil {
			return nil, err
		}
		lit, err := decodeLiteral(tag, payload, o)
		if err != nil {
			return nil, fmt.Errorf("pool entry %d: %w", i, err)
		}
		if err := ar.allocate(TagLiteral, literalSize); err != nil {
			return nil, err
		}
		r.Pool[i] = lit
	}

	// SYMS block
	if r.Symbols, err = scanSymbols(c); err != nil {
		return nil, err
	}

	if o.verifyRecordSize {
		if consumed := c.offset - start; uint32(consumed) != declared {
			return nil, fmt.Errorf("%w: record at offset %d declares %d bytes, has %d", ErrSizeMismatch, start, declared, consumed)
		}
	}

	return r, nil
}

// Equal reports whether two trees have the same shape and content,
// regardless of which buffers their views point into.
func Equal(a, b *Irep) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Locals != b.Locals || a.Registers != b.Registers {
		return false
	}
	if !bytes.Equal(a.Instructions, b.Instructions) || !bytes.Equal(a.Symbols.Bytes(), b.Symbols.Bytes()) {
		return false
	}
	if len(a.Pool) != len(b.Pool) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Pool {
		if !a.Pool[i].equal(b.Pool[i]) {
			return false
		}
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
