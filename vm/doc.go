// Package vm is the runtime instance a loaded program is attached to.
//
// It holds the program tree produced by the loader and resolves each
// record's symbol block into interned symbol IDs the first time an
// instruction asks for one. Executing instructions is not part of this
// package.
package vm
