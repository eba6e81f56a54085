package linker

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

// testConfig is a small banked target: a fixed bank, a switchable bank that
// shares the CPU window at 0x4000, and work RAM that is not imaged.
func testConfig() *Config {
	cfg := NewConfig()

	rom0 := NewPool("ROM0", 0x0000, 0x4000)
	rom0.Bank = null.IntFrom(0)
	rom0.ImageOffset = null.IntFrom(0)

	romx := NewPool("ROMX", 0x4000, 0x4000)
	romx.Bank = null.IntFrom(1)
	romx.ImageOffset = null.IntFrom(0x4000)

	wram := NewPool("WRAM", 0xc000, 0x2000)
	wram.Bank = null.IntFrom(0)

	cfg.AddGroup(&Group{Name: "CODE", Kind: GroupCode, Pools: []*Pool{rom0, romx}})
	cfg.AddGroup(&Group{Name: "DATA", Kind: GroupData, Pools: []*Pool{rom0, romx}})
	cfg.AddGroup(&Group{Name: "BSS", Kind: GroupBSS, Pools: []*Pool{wram}})
	return cfg
}

func newTestContext(format Format) *Context {
	return NewContext(testConfig(), format, nil)
}

func addSection(ctx *Context, name, group string, file int, size int64) (SectionID, *Section) {
	sec := NewSection(name, group, file, size)
	if g, ok := ctx.Config.Groups[group]; !ok || g.Kind.HasData() {
		sec.Data = make([]byte, size)
	}
	id := ctx.AddSection(sec)
	return id, sec
}

func addSymbol(ctx *Context, sec SectionID, name string, kind SymbolKind, offset int32) SymbolID {
	sym := NewSymbol(name, kind)
	sym.Section = sec
	sym.Offset = offset
	return ctx.AddSymbol(sym)
}

// expr is a tiny builder for patch expressions.
type expr struct {
	consts []int32
	ops    []Op
}

func (e *expr) c(v int32) *expr {
	e.ops = append(e.ops, Op{Code: OpConst, Arg: int32(len(e.consts))})
	e.consts = append(e.consts, v)
	return e
}

func (e *expr) sym(id SymbolID) *expr {
	e.ops = append(e.ops, Op{Code: OpSymbol, Arg: int32(id)})
	return e
}

func (e *expr) op(code OpCode) *expr {
	e.ops = append(e.ops, Op{Code: code})
	return e
}

func (e *expr) bank(id SymbolID) *expr {
	e.ops = append(e.ops, Op{Code: OpBank, Arg: int32(id)})
	return e
}

func addPatch(sec *Section, offset int64, width Width, e *expr) *Patch {
	sec.Patches = append(sec.Patches, Patch{
		Offset:    offset,
		Width:     width,
		Constants: e.consts,
		Expr:      e.ops,
	})
	return &sec.Patches[len(sec.Patches)-1]
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)
	require.True(t, IsKind(err, kind), "expected %s, got %v", kind, err)
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	return lerr
}
