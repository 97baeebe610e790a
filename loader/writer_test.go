package loader

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterMinimalMatchesHandBuilt(t *testing.T) {
	data := mustWrite(t, &Irep{})
	want := minimalImage()

	// The hand-built image leaves record sizes at zero.
	WriteUint32(want[HeaderSize+irepBodyOffset:], 22)
	assert.Equal(t, want, data)
}

func TestWriterLayout(t *testing.T) {
	data := mustWrite(t, &Irep{Symbols: EncodeSymbols()})

	assert.True(t, bytes.HasPrefix(data, []byte("RITE0004")))
	assert.Equal(t, "MATZ0000", string(data[headerProducerOffset:HeaderSize]))
	assert.Equal(t, uint32(len(data)), ReadUint32(data, headerSizeOffset))
	assert.Equal(t, "IREP", string(data[HeaderSize:HeaderSize+4]))
	assert.Equal(t, "END\x00", string(data[len(data)-8:len(data)-4]))
	assert.Equal(t, uint32(8), ReadUint32(data, len(data)-4))
}

func TestWriterRoundTrip(t *testing.T) {
	root := &Irep{
		Locals:       4,
		Registers:    9,
		Instructions: bytes.Repeat([]byte{0, 1, 2, 3}, 7),
		Pool: []Literal{
			StringLiteral("hello, world"),
			IntLiteral(1 << 40),
			FloatLiteral(-2.75),
			StringLiteral(""),
		},
		Symbols: EncodeSymbols("a", "b", "initialize"),
		Children: []*Irep{
			{Locals: 1, Instructions: []byte{1, 1, 1, 1}, Symbols: EncodeSymbols("blk")},
			chain(4),
		},
	}

	data := mustWrite(t, root)
	parsed, err := Parse(data, WithRecordSizeCheck())
	require.NoError(t, err)
	assert.True(t, Equal(root, parsed))
	assert.Equal(t, Dump(root), Dump(parsed))

	again := mustWrite(t, parsed)
	assert.Equal(t, data, again)
}

func TestWriterErrors(t *testing.T) {
	_, err := WriteImage(nil)
	assert.ErrorIs(t, err, ErrNilIrep)

	_, err = WriteImage(&Irep{Instructions: []byte{1, 2, 3}})
	assert.Error(t, err)

	_, err = WriteImage(&Irep{Children: []*Irep{nil}})
	assert.ErrorIs(t, err, ErrNilIrep)

	_, err = WriteImage(&Irep{}, WithSection(SectionEnd, nil))
	assert.Error(t, err)

	_, err = WriteImage(&Irep{Pool: []Literal{StringLiteral(string(make([]byte, 1<<16)))}})
	assert.Error(t, err)
}

func TestWriterReuse(t *testing.T) {
	w := NewWriter()
	a, err := w.Write(&Irep{Locals: 1})
	require.NoError(t, err)
	b, err := w.Write(&Irep{Locals: 2})
	require.NoError(t, err)

	ra, err := Parse(a)
	require.NoError(t, err)
	rb, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), ra.Locals)
	assert.Equal(t, uint16(2), rb.Locals)
}
