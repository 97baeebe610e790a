package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadHeaderValid(t *testing.T) {
	data := minimalImage()
	WriteUint16(data[headerChecksumOffset:], 0xBEEF)

	h, err := ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(data)), h.Size)
	assert.Equal(t, uint16(0xBEEF), h.Checksum)
}

func TestReadHeaderIgnoresChecksum(t *testing.T) {
	data := minimalImage()
	data[headerChecksumOffset] = 0x12
	data[headerChecksumOffset+1] = 0x34

	_, err := Parse(data)
	assert.NoError(t, err)
}

func TestReadHeaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"short", func(d []byte) []byte { return d[:HeaderSize-1] }, ErrTruncated},
		{"empty", func(d []byte) []byte { return nil }, ErrTruncated},
		{"format version", func(d []byte) []byte { d[7] = '3'; return d }, ErrInvalidMagic},
		{"producer", func(d []byte) []byte { copy(d[headerProducerOffset:], "ABCD"); return d }, ErrInvalidProducer},
		{"producer version", func(d []byte) []byte { d[headerProducerVersionOffset+3] = '1'; return d }, ErrInvalidProducerVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(tt.mutate(minimalImage()))
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestReadHeaderDoesNotCheckSize(t *testing.T) {
	data := minimalImage()
	WriteUint32(data[headerSizeOffset:], 1<<30)

	h, err := ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(1<<30), h.Size)

	_, err = Parse(data)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseDeclaredSizeSmallerThanHeader(t *testing.T) {
	data := minimalImage()
	WriteUint32(data[headerSizeOffset:], HeaderSize-1)

	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestByteDecoderUnaligned(t *testing.T) {
	buf := []byte{0xFF, 0x01, 0x02, 0x03, 0x04, 0x05}

	assert.Equal(t, uint16(0x0102), ReadUint16(buf, 1))
	assert.Equal(t, uint32(0x01020304), ReadUint32(buf, 1))
	assert.Equal(t, uint32(0x02030405), ReadUint32(buf, 2))
}

func TestCursorAlign(t *testing.T) {
	for off := 0; off < 8; off++ {
		c := &cursor{data: make([]byte, 16), offset: off, limit: 16}
		require.NoError(t, c.align())
		assert.Zero(t, c.offset%4)
		assert.Less(t, c.offset-off, 4)
	}

	c := &cursor{data: make([]byte, 6), offset: 5, limit: 6}
	assert.ErrorIs(t, c.align(), ErrTruncated)
}
