package loader

import "fmt"

// DefaultMaxDepth bounds irep nesting when no WithMaxDepth option is given.
const DefaultMaxDepth = 128

// buildTree parses the record at the cursor followed by all of its
// descendants in pre-order. On return the cursor is just past the last
// descendant. depth is 1 for the root.
func buildTree(c *cursor, ar *arena, o *options, depth int) (*Irep, error) {
	if depth > o.maxDepth {
		return nil, fmt.Errorf("%w: more than %d levels at offset %d", ErrDepthExceeded, o.maxDepth, c.offset)
	}

	r, err := parseRecord(c, ar, o)
	if err != nil {
		return nil, err
	}

	for i := range r.Children {
		child, err := buildTree(c, ar, o, depth+1)
		if err != nil {
			return nil, err
		}
		r.Children[i] = child
	}

	return r, nil
}
