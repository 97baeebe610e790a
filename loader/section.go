package loader

import (
	"bytes"
	"fmt"
)

// Section tags
var (
	SectionIrep = [4]byte{'I', 'R', 'E', 'P'}
	SectionEnd  = [4]byte{'E', 'N', 'D', 0}
)

// IrepVersion is the format version every IREP section body starts with.
var IrepVersion = [4]byte{'0', '0', '0', '0'}

// sectionHeaderSize is tag(4) + size(4).
const sectionHeaderSize = 8

// irepBodyOffset is where the first record starts inside an IREP section.
const irepBodyOffset = sectionHeaderSize + len(IrepVersion)

// Section describes one top-level section found while scanning.
type Section struct {
	Tag    [4]byte
	Offset int
	Size   uint32
}

// Name returns the tag with trailing NULs removed.
func (s Section) Name() string {
	return string(bytes.TrimRight(s.Tag[:], "\x00"))
}

// scanSections walks the sections after the header until the END
// section. Sections of unknown kind are skipped using their size field.
// limit is the declared image size and is never read past.
func scanSections(data []byte, limit int, ar *arena, o *options) (*Irep, []Section, error) {
	var root *Irep
	var sections []Section

	off := HeaderSize
	for {
		if off+len(SectionEnd) > limit {
			return nil, nil, fmt.Errorf("%w: no END section before offset %d", ErrTruncated, limit)
		}
		tag := data[off : off+4]

		if bytes.Equal(tag, SectionEnd[:]) {
			s := Section{Tag: SectionEnd, Offset: off}
			if off+sectionHeaderSize <= limit {
				s.Size = ReadUint32(data, off+4)
			}
			sections = append(sections, s)
			o.log.Debugf("END section at offset %d", off)
			break
		}

		if off+sectionHeaderSize > limit {
			return nil, nil, fmt.Errorf("%w: section header at offset %d", ErrTruncated, off)
		}
		size := ReadUint32(data, off+4)
		if size < sectionHeaderSize {
			return nil, nil, fmt.Errorf("%w: section %q at offset %d declares %d bytes", ErrBadSectionSize, tag, off, size)
		}
		end := off + int(size)
		if end > limit {
			return nil, nil, fmt.Errorf("%w: section %q at offset %d runs to %d, image ends at %d", ErrTruncated, tag, off, end, limit)
		}

		s := Section{Offset: off, Size: size}
		copy(s.Tag[:], tag)
		o.log.Debugf("section %q at offset %d, %d bytes", s.Name(), off, size)

		if s.Tag == SectionIrep {
			if root != nil {
				return nil, nil, fmt.Errorf("%w: second IREP section at offset %d", ErrDuplicateSection, off)
			}
			r, err := loadIrepSection(data, off, end, ar, o)
			if err != nil {
				return nil, nil, err
			}
			root = r
		}

		sections = append(sections, s)
		off = end
	}

	if root == nil {
		return nil, nil, ErrMissingIrep
	}
	return root, sections, nil
}

// loadIrepSection checks the section version and builds the record tree
// from the section body. The tree may not run past the section end.
//
//	"IREP"      section identifier
//	0000_0000   section size
//	"0000"      rite version
func loadIrepSection(data []byte, off, end int, ar *arena, o *options) (*Irep, error) {
	if off+irepBodyOffset > end {
		return nil, fmt.Errorf("%w: IREP section at offset %d has no version", ErrBadSectionSize, off)
	}
	version := data[off+sectionHeaderSize : off+irepBodyOffset]
	if !bytes.Equal(version, IrepVersion[:]) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidSectionVersion, version)
	}

	c := &cursor{data: data, offset: off + irepBodyOffset, limit: end}
	root, err := buildTree(c, ar, o, 1)
	if err != nil {
		return nil, err
	}
	o.log.Debugf("irep tree: %d records, ends at offset %d of section ending at %d", root.Count(), c.offset, end)
	return root, nil
}
