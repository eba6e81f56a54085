package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

func TestResolvePlacedSymbols(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(FormatBinary)
	aID, a := addSection(ctx, "A", "CODE", 0, 0x10)
	a.Address = null.IntFrom(0x150)
	entry := addSymbol(ctx, aID, "entry", SymExport, 0x4)
	imp := addSymbol(ctx, aID, "vars", SymImport, 0)

	bID, _ := addSection(ctx, "B", "BSS", 1, 0x10)
	vars := addSymbol(ctx, bID, "vars", SymExport, 0x2)

	eq := NewSymbol("SCREEN_W", SymExport)
	eq.Offset = 160
	width := ctx.AddSymbol(eq)

	require.NoError(t, Link(ctx))

	assert.True(t, ctx.Symbol(entry).Absolute())
	assert.Equal(t, int32(0x154), ctx.Symbol(entry).Value())
	assert.Equal(t, int32(0xc002), ctx.Symbol(vars).Value())
	assert.Equal(t, int32(0xc002), ctx.Symbol(imp).Value())
	assert.Equal(t, vars, ctx.Symbol(imp).Anchor())
	assert.Equal(t, int32(160), ctx.Symbol(width).Value())
	assert.Equal(t, NoSection, ctx.Symbol(width).Home())
}

func TestResolveAliasExport(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(FormatBinary)
	aID, _ := addSection(ctx, "A", "CODE", 0, 4)
	start := addSymbol(ctx, aID, "start", SymImport, 0)
	alias := NewSymbol("entry", SymExport)
	alias.Section = aID
	alias.Alias = start
	entry := ctx.AddSymbol(alias)

	bID, b := addSection(ctx, "B", "CODE", 1, 0x20)
	b.Address = null.IntFrom(0x1000)
	addSymbol(ctx, bID, "start", SymExport, 0x10)

	require.NoError(t, Link(ctx))
	assert.Equal(t, int32(0x1010), ctx.Symbol(entry).Value())
	assert.Equal(t, bID, ctx.Symbol(entry).Home())
}

func TestResolveCycle(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(FormatBinary)
	link := func(file int, name, exported, imported string) {
		id, _ := addSection(ctx, name, "CODE", file, 1)
		imp := addSymbol(ctx, id, imported, SymImport, 0)
		sym := NewSymbol(exported, SymExport)
		sym.Section = id
		sym.Alias = imp
		ctx.AddSymbol(sym)
	}
	link(0, "A", "x", "y")
	link(1, "B", "y", "x")

	lerr := requireKind(t, Link(ctx), ErrSymbol)
	assert.Equal(t, "circular symbol reference: y -> x -> y", lerr.Msg)
}

func TestResolveLocalImportUndefined(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(FormatObject)
	aID, a := addSection(ctx, "A", "CODE", 0, 2)
	buf := addSymbol(ctx, aID, "buf", SymLocalImport, 0)
	addPatch(a, 0, Width16LE, (&expr{}).sym(buf))

	bID, _ := addSection(ctx, "B", "BSS", 1, 2)
	addSymbol(ctx, bID, "buf", SymLocalExport, 0)

	lerr := requireKind(t, Link(ctx), ErrSymbol)
	assert.Contains(t, lerr.Msg, "no local export in the same file")
}

func TestResolveIgnoresPrunedDefinitions(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(FormatBinary)
	aID, _ := addSection(ctx, "A", "CODE", 0, 2)
	addSymbol(ctx, aID, "helper", SymImport, 0)
	bID, b := addSection(ctx, "B", "CODE", 1, 2)
	addSymbol(ctx, bID, "helper", SymExport, 0)

	ctx.Section(aID).Used = true
	require.NoError(t, AllocateSections(ctx))
	assert.False(t, b.Used)
	requireKind(t, ResolveSymbols(ctx), ErrSymbol)
}

func TestResolveMemoized(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(FormatObject)
	aID, a := addSection(ctx, "A", "CODE", 0, 4)
	x := addSymbol(ctx, aID, "x", SymLocal, 1)
	addPatch(a, 0, Width8, (&expr{}).sym(x).sym(x).op(OpSub))
	addPatch(a, 1, Width8, (&expr{}).sym(x).c(0).op(OpAdd).sym(x).op(OpSub))

	require.NoError(t, Link(ctx))
	assert.True(t, ctx.Symbol(x).Resolved())
	assert.False(t, ctx.Symbol(x).Absolute())
	assert.Equal(t, []byte{0, 0}, a.Data[:2])
}

func TestSymbolTable(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(FormatBinary)
	farID, far := addSection(ctx, "far", "CODE", 0, 4)
	far.Bank = null.IntFrom(1)
	nearID, _ := addSection(ctx, "near", "CODE", 0, 4)
	addSymbol(ctx, farID, "far_fn", SymExport, 0)
	addSymbol(ctx, nearID, "b_label", SymLocal, 2)
	addSymbol(ctx, nearID, "a_label", SymLocal, 2)
	addSymbol(ctx, farID, "near_ref", SymImport, 0)
	addSymbol(ctx, nearID, "near_ref", SymExport, 0)
	_, dropped := addSection(ctx, "dropped", "CODE", 1, 4)
	addSymbol(ctx, 2, "gone", SymExport, 0)

	eq := NewSymbol("K", SymExport)
	eq.Offset = 7
	ctx.AddSymbol(eq)

	require.NoError(t, MarkLiveSections(ctx))
	dropped.Used = false
	require.NoError(t, AllocateSections(ctx))
	require.NoError(t, ResolveSymbols(ctx))

	var names []string
	for _, id := range ctx.SymbolTable() {
		names = append(names, ctx.Symbol(id).Name)
	}
	assert.Equal(t, []string{"K", "near_ref", "a_label", "b_label", "far_fn"}, names)
}
