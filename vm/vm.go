package vm

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/rite/loader"
)

var log = commonlog.GetLogger("rite.vm")

// VM owns one program tree for its lifetime. The tree's views point into
// the image it was loaded from, which must stay unmodified until Teardown.
type VM struct {
	Symbols *SymbolTable

	mu       sync.Mutex
	program  *loader.Irep
	image    []byte
	resolved map[*loader.Irep][]SymbolID
}

// New creates a VM with an empty symbol table and no program.
func New() *VM {
	return NewWithSymbols(NewSymbolTable())
}

// NewWithSymbols creates a VM that interns into st, so several VMs can
// share symbol IDs.
func NewWithSymbols(st *SymbolTable) *VM {
	return &VM{
		Symbols:  st,
		resolved: make(map[*loader.Irep][]SymbolID),
	}
}

// AttachIrep makes r the program. Symbols resolved for a previous
// program are forgotten.
func (vm *VM) AttachIrep(r *loader.Irep) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.program = r
	vm.resolved = make(map[*loader.Irep][]SymbolID)
}

// LoadImage parses data and attaches the result. The VM keeps a
// reference to data for as long as the program is attached.
func (vm *VM) LoadImage(data []byte, opts ...loader.Option) error {
	if err := loader.Load(vm, data, opts...); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.image = data
	vm.mu.Unlock()
	log.Debugf("loaded image of %d bytes", len(data))
	return nil
}

// Program returns the attached root record, or nil.
func (vm *VM) Program() *loader.Irep {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.program
}

// Image returns the buffer the program was loaded from, if it was loaded
// through LoadImage.
func (vm *VM) Image() []byte {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.image
}

// Symbol returns the interned ID of symbol i of record r. The record's
// whole symbol block is interned on first use.
func (vm *VM) Symbol(r *loader.Irep, i int) (SymbolID, error) {
	if r == nil {
		return 0, loader.ErrNilIrep
	}
	if i < 0 || i >= r.Symbols.Len() {
		return 0, fmt.Errorf("symbol index %d out of range [0, %d)", i, r.Symbols.Len())
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	ids, ok := vm.resolved[r]
	if !ok {
		ids = make([]SymbolID, 0, r.Symbols.Len())
		r.Symbols.Each(func(_ int, name []byte) bool {
			ids = append(ids, vm.Symbols.Intern(string(name)))
			return true
		})
		vm.resolved[r] = ids
	}
	return ids[i], nil
}

// SymbolName is shorthand for resolving symbol i of r to its name.
func (vm *VM) SymbolName(r *loader.Irep, i int) (string, error) {
	id, err := vm.Symbol(r, i)
	if err != nil {
		return "", err
	}
	return vm.Symbols.Name(id), nil
}

// ResolvedRecords returns how many records have had their symbol blocks
// interned so far.
func (vm *VM) ResolvedRecords() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.resolved)
}

// Teardown drops the program and the image reference.
func (vm *VM) Teardown() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.program = nil
	vm.image = nil
	vm.resolved = make(map[*loader.Irep][]SymbolID)
}
