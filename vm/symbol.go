package vm

import "sync"

// ---------------------------------------------------------------------------
// SymbolTable: Interned symbols
// ---------------------------------------------------------------------------

// SymbolID identifies an interned symbol.
type SymbolID uint32

// SymbolTable interns symbol strings to unique IDs. Lookups go through a
// 16-bit name hash with per-hash buckets, the same hash the runtime's
// built-in symbol index is generated with.
type SymbolTable struct {
	mu     sync.RWMutex
	byHash map[uint16][]SymbolID // hash -> IDs with that hash
	byID   []string              // ID -> name
}

// NewSymbolTable creates a new empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byHash: make(map[uint16][]SymbolID),
		byID:   make([]string, 0, 256),
	}
}

// Hash returns the 16-bit symbol hash of name.
func Hash(name string) uint16 {
	var h uint16
	for i := 0; i < len(name); i++ {
		h = h*17 + uint16(name[i])
	}
	return h
}

// Intern returns the ID for a symbol, creating a new one if needed.
func (st *SymbolTable) Intern(name string) SymbolID {
	h := Hash(name)

	// Fast path: read-only lookup
	st.mu.RLock()
	if id, ok := st.lookup(h, name); ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.lookup(h, name); ok {
		return id
	}

	id := SymbolID(len(st.byID))
	st.byID = append(st.byID, name)
	st.byHash[h] = append(st.byHash[h], id)
	return id
}

// Lookup returns the ID for a symbol, or 0 and false if not found.
func (st *SymbolTable) Lookup(name string) (SymbolID, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.lookup(Hash(name), name)
}

func (st *SymbolTable) lookup(h uint16, name string) (SymbolID, bool) {
	for _, id := range st.byHash[h] {
		if st.byID[id] == name {
			return id, true
		}
	}
	return 0, false
}

// Name returns the symbol name for an ID, or "" if invalid.
func (st *SymbolTable) Name(id SymbolID) string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}

// All returns all symbol names in ID order.
func (st *SymbolTable) All() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result := make([]string, len(st.byID))
	copy(result, st.byID)
	return result
}
