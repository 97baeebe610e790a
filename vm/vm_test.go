package vm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/rite/loader"
)

func sampleProgram() *loader.Irep {
	return &loader.Irep{
		Locals:       2,
		Registers:    4,
		Instructions: []byte{0x01, 0x02, 0x03, 0x04},
		Pool:         []loader.Literal{loader.StringLiteral("hi"), loader.IntLiteral(7)},
		Symbols:      loader.EncodeSymbols("puts", "each"),
		Children: []*loader.Irep{
			{Symbols: loader.EncodeSymbols("each", "map")},
		},
	}
}

func mustImage(t *testing.T, root *loader.Irep) []byte {
	t.Helper()
	data, err := loader.WriteImage(root)
	require.NoError(t, err)
	return data
}

func TestLoadImageAttachesProgram(t *testing.T) {
	data := mustImage(t, sampleProgram())

	vm := New()
	require.NoError(t, vm.LoadImage(data))

	prog := vm.Program()
	require.NotNil(t, prog)
	assert.True(t, loader.Equal(sampleProgram(), prog))
	assert.Equal(t, data, vm.Image())
}

func TestLoadImageErrorLeavesVMUntouched(t *testing.T) {
	vm := New()
	require.NoError(t, vm.LoadImage(mustImage(t, sampleProgram())))
	before := vm.Program()

	err := vm.LoadImage([]byte("RITE0003"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrFormat))
	assert.Same(t, before, vm.Program())
}

func TestLoadImagePassesOptions(t *testing.T) {
	data := mustImage(t, sampleProgram())

	vm := New()
	err := vm.LoadImage(data, loader.WithoutStrings())
	assert.ErrorIs(t, err, loader.ErrUnsupportedFeature)
	assert.Nil(t, vm.Program())
}

func TestSymbolResolvesLazily(t *testing.T) {
	vm := New()
	require.NoError(t, vm.LoadImage(mustImage(t, sampleProgram())))
	assert.Equal(t, 0, vm.ResolvedRecords())
	assert.Equal(t, 0, vm.Symbols.Len())

	root := vm.Program()
	name, err := vm.SymbolName(root, 1)
	require.NoError(t, err)
	assert.Equal(t, "each", name)
	assert.Equal(t, 1, vm.ResolvedRecords())
	assert.Equal(t, 2, vm.Symbols.Len())

	child := root.Children[0]
	childEach, err := vm.Symbol(child, 0)
	require.NoError(t, err)
	rootEach, err := vm.Symbol(root, 1)
	require.NoError(t, err)
	assert.Equal(t, rootEach, childEach)
	assert.Equal(t, 2, vm.ResolvedRecords())
	assert.Equal(t, 3, vm.Symbols.Len())
}

func TestSymbolErrors(t *testing.T) {
	vm := New()
	prog := sampleProgram()
	vm.AttachIrep(prog)

	_, err := vm.Symbol(nil, 0)
	assert.ErrorIs(t, err, loader.ErrNilIrep)

	_, err = vm.Symbol(prog, 2)
	assert.Error(t, err)
	_, err = vm.Symbol(prog, -1)
	assert.Error(t, err)
}

func TestAttachIrepResetsResolution(t *testing.T) {
	vm := New()
	first := sampleProgram()
	vm.AttachIrep(first)
	_, err := vm.Symbol(first, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, vm.ResolvedRecords())

	vm.AttachIrep(sampleProgram())
	assert.Equal(t, 0, vm.ResolvedRecords())
	// interned names survive
	assert.Equal(t, 2, vm.Symbols.Len())
}

func TestLoadThroughLoaderAttach(t *testing.T) {
	vm := New()
	prog := sampleProgram()
	require.NoError(t, loader.Attach(vm, prog))
	assert.Same(t, prog, vm.Program())
	assert.Nil(t, vm.Image())
}

func TestSharedSymbolTable(t *testing.T) {
	st := NewSymbolTable()
	a, b := NewWithSymbols(st), NewWithSymbols(st)
	a.AttachIrep(sampleProgram())
	b.AttachIrep(sampleProgram())

	ida, err := a.Symbol(a.Program(), 0)
	require.NoError(t, err)
	idb, err := b.Symbol(b.Program(), 0)
	require.NoError(t, err)
	assert.Equal(t, ida, idb)
}

func TestTeardown(t *testing.T) {
	vm := New()
	require.NoError(t, vm.LoadImage(mustImage(t, sampleProgram())))
	_, err := vm.Symbol(vm.Program(), 0)
	require.NoError(t, err)

	vm.Teardown()
	assert.Nil(t, vm.Program())
	assert.Nil(t, vm.Image())
	assert.Equal(t, 0, vm.ResolvedRecords())
}
