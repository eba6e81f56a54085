package objfile

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"bankld/pkg/errext"
	"bankld/pkg/errext/exitcodes"
	"bankld/pkg/linker"
)

const bootModule = `
name: boot.o
sections:
  - name: boot
    group: CODE
    address: 0x100
    root: true
    data: "cd 00 00  c3 00 00"
    symbols:
      - {name: reset, kind: export}
      - {name: draw, kind: import}
      - {name: entry, kind: export, alias: reset}
    patches:
      - {offset: 1, width: 16le, expr: ["sym draw"], line: 3}
      - {offset: 4, width: 16le, expr: ["sym reset", "const 0x10", "add"]}
  - name: vars
    group: BSS
    size: 4
    symbols:
      - {name: counter, kind: local, value: 2}
equates:
  - {name: LCDC, kind: export, value: 0xff40}
`

const gfxModule = `
sections:
  - name: gfx
    group: CODE
    bank: 1
    align: 0x10
    page: 0x100
    size: 8
    data: "00 11"
    symbols:
      - {name: draw, kind: export, value: 0}
    patches:
      - {offset: 0, width: "8", expr: ["bank draw"]}
      - {offset: 1, width: "8", expr: ["const -1", "sym LCDC", "and", "low"]}
equates:
  - {name: LCDC, kind: local, value: 0xff40}
`

func testContext() *linker.Context {
	cfg := linker.NewConfig()
	cfg.AddGroup(&linker.Group{Name: "CODE", Kind: linker.GroupCode, Pools: []*linker.Pool{linker.NewPool("ROM", 0, 0x8000)}})
	cfg.AddGroup(&linker.Group{Name: "BSS", Kind: linker.GroupBSS, Pools: []*linker.Pool{linker.NewPool("RAM", 0xc000, 0x2000)}})
	return linker.NewContext(cfg, linker.FormatBinary, nil)
}

func symbolNamed(t *testing.T, ctx *linker.Context, sec linker.SectionID, name string) linker.SymbolID {
	t.Helper()
	for _, id := range ctx.Section(sec).Symbols {
		if ctx.Symbol(id).Name == name {
			return id
		}
	}
	t.Fatalf("no symbol %s in section %d", name, sec)
	return linker.NoSymbol
}

func TestReadInputFiles(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/boot.yaml", []byte(bootModule), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/gfx.yaml", []byte(gfxModule), 0o644))

	ctx := testContext()
	require.NoError(t, ReadInputFiles(ctx, fs, []string{"/src/boot.yaml", "/src/gfx.yaml"}))

	assert.Equal(t, []string{"boot.o", "/src/gfx.yaml"}, ctx.Files)
	require.Len(t, ctx.Sections, 3)

	boot := ctx.Section(0)
	assert.Equal(t, "boot", boot.Name)
	assert.Equal(t, 0, boot.File)
	assert.Equal(t, null.IntFrom(0x100), boot.Address)
	assert.True(t, boot.Root)
	assert.Equal(t, int64(6), boot.Size)
	assert.Equal(t, []byte{0xcd, 0, 0, 0xc3, 0, 0}, boot.Data)

	reset := symbolNamed(t, ctx, 0, "reset")
	draw := symbolNamed(t, ctx, 0, "draw")
	entry := symbolNamed(t, ctx, 0, "entry")
	assert.Equal(t, reset, ctx.Symbol(entry).Alias)
	assert.Equal(t, linker.SymImport, ctx.Symbol(draw).Kind)

	require.Len(t, boot.Patches, 2)
	assert.Equal(t, []linker.Op{{Code: linker.OpSymbol, Arg: int32(draw)}}, boot.Patches[0].Expr)
	assert.Equal(t, 3, boot.Patches[0].Line)
	assert.Equal(t, []int32{0x10}, boot.Patches[1].Constants)
	assert.Equal(t, []linker.Op{
		{Code: linker.OpSymbol, Arg: int32(reset)},
		{Code: linker.OpConst, Arg: 0},
		{Code: linker.OpAdd},
	}, boot.Patches[1].Expr)

	vars := ctx.Section(1)
	assert.Nil(t, vars.Data)
	assert.Equal(t, int64(4), vars.Size)

	gfx := ctx.Section(2)
	assert.Equal(t, 1, gfx.File)
	assert.Equal(t, null.IntFrom(1), gfx.Bank)
	assert.Equal(t, null.IntFrom(0x10), gfx.Align)
	assert.Equal(t, null.IntFrom(0x100), gfx.PageSize)
	assert.Equal(t, []byte{0, 0x11, 0, 0, 0, 0, 0, 0}, gfx.Data)
	assert.Equal(t, []int32{-1}, gfx.Patches[1].Constants)

	// each module sees its own equate
	lcdc := linker.SymbolID(gfx.Patches[1].Expr[1].Arg)
	assert.Equal(t, linker.SymLocal, ctx.Symbol(lcdc).Kind)
	assert.Equal(t, 1, ctx.Symbol(lcdc).File)
	assert.Equal(t, linker.NoSection, ctx.Symbol(lcdc).Section)

	require.NoError(t, linker.Link(ctx))
	assert.Equal(t, []byte{0x01, 0x40}, gfx.Data[:2])
}

func TestModuleErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name, doc, msg string
	}{
		{"unknown symbol", `sections: [{name: a, group: CODE, size: 2, patches: [{offset: 0, width: "8", expr: ["sym nope"]}]}]`, "unknown symbol nope"},
		{"unknown op", `sections: [{name: a, group: CODE, size: 2, patches: [{offset: 0, width: "8", expr: ["frob"]}]}]`, "unknown operation"},
		{"bad width", `sections: [{name: a, group: CODE, size: 2, patches: [{offset: 0, width: "9", expr: ["const 1"]}]}]`, "unknown patch width"},
		{"bad constant", `sections: [{name: a, group: CODE, size: 2, patches: [{offset: 0, width: "8", expr: ["const 0x1_0000_0000"]}]}]`, "does not fit 32 bits"},
		{"extra argument", `sections: [{name: a, group: CODE, size: 2, patches: [{offset: 0, width: "8", expr: ["add 3"]}]}]`, "takes no argument"},
		{"data too long", `sections: [{name: a, group: CODE, size: 1, data: "0102"}]`, "do not fit"},
		{"bad hex", `sections: [{name: a, group: CODE, data: "0g"}]`, "bad data"},
		{"data in bss", `sections: [{name: a, group: BSS, data: "00"}]`, "cannot hold data"},
		{"duplicate section", `sections: [{name: a, group: CODE}, {name: a, group: CODE}]`, "duplicate section a"},
		{"duplicate symbol", `sections: [{name: a, group: CODE, symbols: [{name: x, kind: local}, {name: x, kind: export}]}]`, "duplicate symbol"},
		{"no group", `sections: [{name: a}]`, "has no group"},
		{"bad kind", `sections: [{name: a, group: CODE, symbols: [{name: x, kind: global}]}]`, "unknown symbol kind"},
		{"alias from import", `sections: [{name: a, group: CODE, symbols: [{name: x, kind: import, alias: y}]}]`, "only exports may alias"},
		{"dangling alias", `sections: [{name: a, group: CODE, symbols: [{name: x, kind: export, alias: y}]}]`, "unknown symbol y"},
		{"import equate", `equates: [{name: x, kind: import}]`, "plain definition"},
		{"unknown field", `sections: [{name: a, group: CODE, colour: red}]`, "malformed"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ReadFile(testContext(), &File{Name: "bad.yaml", Contents: []byte(tc.doc)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
			assert.True(t, strings.HasPrefix(err.Error(), "bad.yaml: "), err.Error())
			assert.Equal(t, exitcodes.InvalidInput, errext.ExitCodeOf(err))
		})
	}
}

// arMember renders one ar member: header, contents and padding.
func arMember(name string, contents []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-16s%-12s%-6s%-6s%-8s%-10d`\n", name, "0", "0", "0", "644", len(contents))
	sb.Write(contents)
	if len(contents)%2 == 1 {
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestReadArchive(t *testing.T) {
	t.Parallel()

	longName := "a_rather_long_module_name.yaml"
	lib := arMagic +
		arMember("/", []byte{0, 0, 0, 0}) +
		arMember("//", []byte(longName+"/\n")) +
		arMember("boot.yaml/", []byte(bootModule)) +
		arMember("/0", []byte(gfxModule))

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/lib/libgame.a", []byte(lib), 0o644))

	file, err := NewFile(fs, "/lib/libgame.a")
	require.NoError(t, err)
	assert.Equal(t, FileTypeArchive, GetFileType(file.Contents))

	members, err := ReadArchiveMembers(file)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "boot.yaml", members[0].Name)
	assert.Equal(t, longName, members[1].Name)
	assert.Equal(t, "/lib/libgame.a("+longName+")", members[1].Path())

	ctx := testContext()
	require.NoError(t, ReadInputFiles(ctx, fs, []string{"/lib/libgame.a"}))
	assert.Equal(t, []string{"boot.o", "/lib/libgame.a(" + longName + ")"}, ctx.Files)
	assert.Len(t, ctx.Sections, 3)
}

func TestReadArchiveErrors(t *testing.T) {
	t.Parallel()

	for name, lib := range map[string]string{
		"truncated header": arMagic + "boot.yaml/  0",
		"bad magic":        arMagic + strings.Replace(arMember("x/", []byte("ab")), "`\n", "!!", 1),
		"overlong member":  arMagic + strings.Replace(arMember("x/", []byte("ab")), "2         `", "99        `", 1),
		"bad long name":    arMagic + arMember("/7", []byte(bootModule)),
		"not a module":     arMagic + arMember("x/", []byte("  \n")),
	} {
		lib := lib
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := ReadFile(testContext(), &File{Name: "lib.a", Contents: []byte(lib)})
			require.Error(t, err)
			assert.Equal(t, exitcodes.InvalidInput, errext.ExitCodeOf(err))
		})
	}
}

func TestReadInputFilesMissing(t *testing.T) {
	t.Parallel()

	err := ReadInputFiles(testContext(), afero.NewMemMapFs(), []string{"/nowhere.yaml"})
	require.Error(t, err)
	assert.Equal(t, exitcodes.IO, errext.ExitCodeOf(err))

	err = ReadFile(testContext(), &File{Name: "empty.yaml"})
	require.Error(t, err)
	assert.Equal(t, exitcodes.InvalidInput, errext.ExitCodeOf(err))
}
