package loader

import (
	"errors"
	"fmt"
	"sync"
)

// Tag says what an allocation is for.
type Tag uint8

const (
	TagIrep     Tag = iota // one record
	TagChildren            // a record's child pointer array
	TagPool                // a record's literal pool array
	TagLiteral             // one literal pool entry
)

func (t Tag) String() string {
	switch t {
	case TagIrep:
		return "irep"
	case TagChildren:
		return "children"
	case TagPool:
		return "pool"
	case TagLiteral:
		return "literal"
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Allocator approves memory use during a load. Returning an error fails
// the load with ErrNoMemory.
type Allocator interface {
	Allocate(tag Tag, size int) error
}

// Releaser is implemented by allocators that want allocations handed
// back when a load fails part way through.
type Releaser interface {
	Release(tag Tag, size int)
}

// unlimited approves everything.
type unlimited struct{}

func (unlimited) Allocate(Tag, int) error { return nil }

// ---------------------------------------------------------------------------
// Budget: a byte-limited allocator
// ---------------------------------------------------------------------------

// Budget is an Allocator that fails once more than limit bytes are in
// use. A zero limit never fails. Safe for concurrent use.
type Budget struct {
	mu    sync.Mutex
	limit int64
	used  int64
}

// NewBudget returns a budget of limit bytes.
func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

func (b *Budget) Limit() int64 {
	return b.limit
}

func (b *Budget) Used() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Allocate charges size bytes against the budget.
func (b *Budget) Allocate(tag Tag, size int) error {
	if size <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit != 0 && b.used+int64(size) > b.limit {
		return fmt.Errorf("%w: %s needs %d bytes, %d of %d in use", ErrNoMemory, tag, size, b.used, b.limit)
	}
	b.used += int64(size)
	return nil
}

// Release returns size bytes to the budget.
func (b *Budget) Release(_ Tag, size int) {
	if size <= 0 {
		return
	}
	b.mu.Lock()
	b.used -= int64(size)
	if b.used < 0 {
		b.used = 0
	}
	b.mu.Unlock()
}

// ---------------------------------------------------------------------------
// arena: per-load allocation record
// ---------------------------------------------------------------------------

type allocation struct {
	tag  Tag
	size int
}

// arena forwards to an Allocator and remembers every approved
// allocation so a failed load can hand all of them back at once.
type arena struct {
	alloc Allocator
	log   []allocation
	bytes int
}

func newArena(a Allocator) *arena {
	if a == nil {
		a = unlimited{}
	}
	return &arena{alloc: a}
}

func (a *arena) allocate(tag Tag, size int) error {
	if err := a.alloc.Allocate(tag, size); err != nil {
		return wrapNoMemory(err)
	}
	a.log = append(a.log, allocation{tag: tag, size: size})
	a.bytes += size
	return nil
}

// release hands back everything in reverse order of allocation.
func (a *arena) release() {
	r, ok := a.alloc.(Releaser)
	if ok {
		for i := len(a.log) - 1; i >= 0; i-- {
			r.Release(a.log[i].tag, a.log[i].size)
		}
	}
	a.log = nil
	a.bytes = 0
}

func wrapNoMemory(err error) error {
	if errors.Is(err, ErrNoMemory) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNoMemory, err)
}
