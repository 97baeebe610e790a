package loader

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Pool entry type tags as stored in the image.
const (
	poolTagString  byte = 0
	poolTagInteger byte = 1
	poolTagFloat   byte = 2
)

// LiteralKind is the decoded type of a literal pool entry.
type LiteralKind uint8

const (
	LiteralString LiteralKind = iota
	LiteralInteger
	LiteralFloat
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralInteger:
		return "integer"
	case LiteralFloat:
		return "float"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Literal is one entry of a record's literal pool. Only the field
// matching Kind is meaningful. Str aliases the image it was parsed from.
type Literal struct {
	Kind  LiteralKind
	Str   []byte
	Int   int64
	Float float64
}

// StringLiteral returns a string literal holding a copy of s.
func StringLiteral(s string) Literal {
	return Literal{Kind: LiteralString, Str: []byte(s)}
}

// IntLiteral returns an integer literal.
func IntLiteral(v int64) Literal {
	return Literal{Kind: LiteralInteger, Int: v}
}

// FloatLiteral returns a floating-point literal.
func FloatLiteral(v float64) Literal {
	return Literal{Kind: LiteralFloat, Float: v}
}

// String formats the literal the way the dump listing shows it.
func (l Literal) String() string {
	switch l.Kind {
	case LiteralString:
		return strconv.Quote(string(l.Str))
	case LiteralInteger:
		return strconv.FormatInt(l.Int, 10)
	case LiteralFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	}
	return "?"
}

func (l Literal) equal(o Literal) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case LiteralString:
		return bytes.Equal(l.Str, o.Str)
	case LiteralInteger:
		return l.Int == o.Int
	case LiteralFloat:
		return l.Float == o.Float || (math.IsNaN(l.Float) && math.IsNaN(o.Float))
	}
	return true
}

// tag returns the image type tag for the literal.
func (l Literal) tag() byte {
	switch l.Kind {
	case LiteralInteger:
		return poolTagInteger
	case LiteralFloat:
		return poolTagFloat
	}
	return poolTagString
}

// payload returns the bytes stored in the image for the literal.
func (l Literal) payload() []byte {
	switch l.Kind {
	case LiteralInteger:
		return strconv.AppendInt(nil, l.Int, 10)
	case LiteralFloat:
		return strconv.AppendFloat(nil, l.Float, 'g', -1, 64)
	}
	return l.Str
}

// decodeLiteral turns one pool entry into a Literal. Numeric payloads are
// ASCII decimal and are copied into native values; string payloads are
// returned as a view of the image.
func decodeLiteral(tag byte, payload []byte, o *options) (Literal, error) {
	switch tag {
	case poolTagString:
		if o.disableStrings {
			return Literal{}, fmt.Errorf("%w: string literals are disabled", ErrUnsupportedFeature)
		}
		return Literal{Kind: LiteralString, Str: payload}, nil

	case poolTagInteger:
		v, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return Literal{}, fmt.Errorf("%w: integer %q: %v", ErrInvalidLiteral, payload, err)
		}
		return Literal{Kind: LiteralInteger, Int: v}, nil

	case poolTagFloat:
		if o.disableFloats {
			return Literal{}, fmt.Errorf("%w: float literals are disabled", ErrUnsupportedFeature)
		}
		v, err := strconv.ParseFloat(string(payload), 64)
		if err != nil {
			return Literal{}, fmt.Errorf("%w: float %q: %v", ErrInvalidLiteral, payload, err)
		}
		return Literal{Kind: LiteralFloat, Float: v}, nil
	}

	return Literal{}, fmt.Errorf("%w: %d", ErrUnknownLiteralTag, tag)
}
