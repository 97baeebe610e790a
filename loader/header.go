package loader

import (
	"bytes"
	"fmt"
)

// ---------------------------------------------------------------------------
// Image Format Constants
// ---------------------------------------------------------------------------

// FormatTag identifies a RITE image and its format version.
var FormatTag = [8]byte{'R', 'I', 'T', 'E', '0', '0', '0', '4'}

// ProducerTag and ProducerVersion identify the compiler that wrote the image.
var (
	ProducerTag     = [4]byte{'M', 'A', 'T', 'Z'}
	ProducerVersion = [4]byte{'0', '0', '0', '0'}
)

// HeaderSize is the size of the fixed file header in bytes.
// format tag(8) + checksum(2) + total size(4) + producer(4) + producer version(4) = 22
const HeaderSize = 22

// Header field offsets
const (
	headerChecksumOffset        = 8
	headerSizeOffset            = 10
	headerProducerOffset        = 14
	headerProducerVersionOffset = 18
)

// Header contains the parsed file header.
type Header struct {
	Checksum uint16 // Present in the image but never verified
	Size     uint32 // Declared total image size
}

// ReadHeader validates the fixed 22-byte header and returns the declared
// image size. The size is not compared with len(data) here.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrTruncated, HeaderSize, len(data))
	}

	if !bytes.Equal(data[:len(FormatTag)], FormatTag[:]) {
		return Header{}, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[:len(FormatTag)])
	}

	h := Header{
		Checksum: ReadUint16(data, headerChecksumOffset),
		Size:     ReadUint32(data, headerSizeOffset),
	}

	producer := data[headerProducerOffset : headerProducerOffset+4]
	if !bytes.Equal(producer, ProducerTag[:]) {
		return Header{}, fmt.Errorf("%w: got %q", ErrInvalidProducer, producer)
	}

	version := data[headerProducerVersionOffset : headerProducerVersionOffset+4]
	if !bytes.Equal(version, ProducerVersion[:]) {
		return Header{}, fmt.Errorf("%w: got %q", ErrInvalidProducerVersion, version)
	}

	return h, nil
}
