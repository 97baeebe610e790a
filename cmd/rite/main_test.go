package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/rite/loader"
	"github.com/chazu/rite/wire"
)

type fixture struct {
	dir    string
	config string
	image  string
	bad    string
	data   []byte
}

func newFixture(t *testing.T, configBody string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:    dir,
		config: filepath.Join(dir, "rite.toml"),
		image:  filepath.Join(dir, "prog.mrb"),
		bad:    filepath.Join(dir, "bad.mrb"),
	}

	tree := &loader.Irep{
		Locals:       1,
		Registers:    2,
		Instructions: []byte{0x11, 0x01, 0x00, 0x00},
		Pool:         []loader.Literal{loader.StringLiteral("hello"), loader.IntLiteral(3)},
		Symbols:      loader.EncodeSymbols("puts", "times"),
		Children: []*loader.Irep{
			{Symbols: loader.EncodeSymbols("puts")},
		},
	}
	data, err := loader.WriteImage(tree)
	require.NoError(t, err)
	f.data = data

	require.NoError(t, os.WriteFile(f.image, data, 0644))
	require.NoError(t, os.WriteFile(f.bad, []byte("RITE0003 not an image"), 0644))

	body := "[catalog]\npath = \"catalog.db\"\n" + configBody
	require.NoError(t, os.WriteFile(f.config, []byte(body), 0644))
	return f
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", f.config}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestInspect(t *testing.T) {
	f := newFixture(t, "")

	out, err := f.run(t, "inspect", f.image)
	require.NoError(t, err)
	assert.Contains(t, out, "2 records, depth 2")
	assert.Contains(t, out, "; section IREP")
	assert.Contains(t, out, "; section END")
	assert.Contains(t, out, "; irep 0: locals=1 regs=2 children=1")
	assert.Contains(t, out, `"hello"`)
}

func TestInspectRejectsBadImage(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.run(t, "inspect", f.bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrInvalidMagic)
}

func TestCheck(t *testing.T) {
	f := newFixture(t, "")

	out, err := f.run(t, "check", f.image)
	require.NoError(t, err)
	assert.Contains(t, out, "OK (2 records)")

	out, err = f.run(t, "check", f.image, f.bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out, "FormatError")
}

func TestCheckHonorsConfig(t *testing.T) {
	f := newFixture(t, "[loader]\nstrings = false\n")

	out, err := f.run(t, "check", f.image)
	require.Error(t, err)
	assert.Contains(t, out, "UnsupportedFeature")
}

func TestDumpText(t *testing.T) {
	f := newFixture(t, "")
	root, err := loader.Parse(f.data)
	require.NoError(t, err)

	out, err := f.run(t, "dump", f.image)
	require.NoError(t, err)
	assert.Equal(t, loader.Dump(root), out)
}

func TestDumpInvalidFormat(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.run(t, "dump", "--format", "json", f.image)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestDumpAndBuildRoundTrip(t *testing.T) {
	f := newFixture(t, "")

	out, err := f.run(t, "dump", "--format", "cbor", f.image)
	require.NoError(t, err)
	_, err = wire.Unmarshal([]byte(out))
	require.NoError(t, err)

	snap := filepath.Join(f.dir, "prog.cbor")
	require.NoError(t, os.WriteFile(snap, []byte(out), 0644))

	rebuilt := filepath.Join(f.dir, "rebuilt.mrb")
	_, err = f.run(t, "build", snap, "-o", rebuilt)
	require.NoError(t, err)

	got, err := os.ReadFile(rebuilt)
	require.NoError(t, err)
	assert.Equal(t, f.data, got)
}

func TestCatalogAddAndList(t *testing.T) {
	f := newFixture(t, "")

	out, err := f.run(t, "catalog", "add", f.image)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), f.image))

	_, err = os.Stat(filepath.Join(f.dir, "catalog.db"))
	require.NoError(t, err)

	out, err = f.run(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "records=2")
	assert.Contains(t, out, f.image)
}

func TestCatalogAddRejectsBadImage(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.run(t, "catalog", "add", f.bad)
	require.Error(t, err)

	out, err := f.run(t, "catalog", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoadSharesImages(t *testing.T) {
	f := newFixture(t, "")

	out, err := f.run(t, "load", f.image, f.image)
	require.NoError(t, err)
	assert.Contains(t, out, "records=2 symbols=3")
	assert.Contains(t, out, "images=2 distinct=1 interned=2")
}

func TestMissingConfigFile(t *testing.T) {
	f := newFixture(t, "")
	f.config = filepath.Join(f.dir, "missing.toml")

	_, err := f.run(t, "check", f.image)
	require.Error(t, err)
}
