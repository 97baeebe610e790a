// Package wire encodes loaded program trees as canonical CBOR snapshots.
//
// A Snapshot owns all of its bytes, so it outlives the image the tree
// was parsed from. Canonical encoding makes the snapshot of an image a
// stable fingerprint: two parses of the same bytes encode identically.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/rite/loader"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is one record and its subtree.
type Snapshot struct {
	Locals    uint16      `cbor:"1,keyasint"`
	Registers uint16      `cbor:"2,keyasint"`
	Code      []byte      `cbor:"3,keyasint,omitempty"`
	Pool      []Literal   `cbor:"4,keyasint,omitempty"`
	Symbols   [][]byte    `cbor:"5,keyasint,omitempty"`
	Children  []*Snapshot `cbor:"6,keyasint,omitempty"`
}

// Literal is a pool entry. Kind uses the loader.LiteralKind values.
type Literal struct {
	Kind  uint8   `cbor:"1,keyasint"`
	Str   []byte  `cbor:"2,keyasint,omitempty"`
	Int   int64   `cbor:"3,keyasint,omitempty"`
	Float float64 `cbor:"4,keyasint"`
}

// FromIrep copies r and its subtree into a Snapshot.
func FromIrep(r *loader.Irep) *Snapshot {
	if r == nil {
		return nil
	}
	s := &Snapshot{
		Locals:    r.Locals,
		Registers: r.Registers,
		Code:      append([]byte(nil), r.Instructions...),
	}
	if len(r.Pool) > 0 {
		s.Pool = make([]Literal, len(r.Pool))
		for i, lit := range r.Pool {
			s.Pool[i] = Literal{
				Kind:  uint8(lit.Kind),
				Str:   append([]byte(nil), lit.Str...),
				Int:   lit.Int,
				Float: lit.Float,
			}
		}
	}
	r.Symbols.Each(func(_ int, name []byte) bool {
		s.Symbols = append(s.Symbols, append([]byte(nil), name...))
		return true
	})
	for _, c := range r.Children {
		s.Children = append(s.Children, FromIrep(c))
	}
	return s
}

// Irep rebuilds a tree from the snapshot. The result owns its bytes and
// can be passed to loader.WriteImage.
func (s *Snapshot) Irep() (*loader.Irep, error) {
	if s == nil {
		return nil, loader.ErrNilIrep
	}
	if len(s.Code)%4 != 0 {
		return nil, fmt.Errorf("wire: code length %d is not a multiple of 4", len(s.Code))
	}
	r := &loader.Irep{
		Locals:       s.Locals,
		Registers:    s.Registers,
		Instructions: append([]byte(nil), s.Code...),
	}
	for i, lit := range s.Pool {
		switch k := loader.LiteralKind(lit.Kind); k {
		case loader.LiteralString:
			r.Pool = append(r.Pool, loader.Literal{Kind: k, Str: append([]byte(nil), lit.Str...)})
		case loader.LiteralInteger:
			r.Pool = append(r.Pool, loader.IntLiteral(lit.Int))
		case loader.LiteralFloat:
			r.Pool = append(r.Pool, loader.FloatLiteral(lit.Float))
		default:
			return nil, fmt.Errorf("wire: pool entry %d: unknown literal kind %d", i, lit.Kind)
		}
	}
	names := make([]string, len(s.Symbols))
	for i, n := range s.Symbols {
		names[i] = string(n)
	}
	r.Symbols = loader.EncodeSymbols(names...)
	for i, c := range s.Children {
		child, err := c.Irep()
		if err != nil {
			return nil, fmt.Errorf("wire: child %d: %w", i, err)
		}
		r.Children = append(r.Children, child)
	}
	return r, nil
}

// Marshal serializes a Snapshot to canonical CBOR bytes.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a Snapshot from CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("wire: unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// Encode snapshots r and marshals the result.
func Encode(r *loader.Irep) ([]byte, error) {
	if r == nil {
		return nil, loader.ErrNilIrep
	}
	return Marshal(FromIrep(r))
}
