package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperandArithmetic(t *testing.T) {
	t.Parallel()

	homes := map[SymbolID]SectionID{0: 0, 1: 0, 2: 1}
	home := func(id SymbolID) (SectionID, int32, bool) {
		sec, ok := homes[id]
		return sec, int32(id) * 0x10, ok
	}

	var zero Operand
	assert.True(t, zero.IsConstant())
	assert.Equal(t, int32(0), zero.Value())
	assert.Equal(t, NoSymbol, zero.Anchor())

	res, ok := Constant(3).plus(Anchored(2, 4))
	assert.True(t, ok)
	assert.Equal(t, Anchored(2, 7), res)

	_, ok = Anchored(0, 0).plus(Anchored(1, 0))
	assert.False(t, ok)

	res, ok = Anchored(1, 2).minus(Anchored(0, 1), home)
	assert.True(t, ok)
	assert.Equal(t, Constant(0x10+2-1), res)

	res, ok = Anchored(1, 2).minus(Constant(2), home)
	assert.True(t, ok)
	assert.Equal(t, Anchored(1, 0), res)

	_, ok = Anchored(2, 0).minus(Anchored(0, 0), home)
	assert.False(t, ok, "different sections")

	_, ok = Anchored(9, 0).minus(Anchored(9, 0), home)
	assert.False(t, ok, "no known home")

	_, ok = Constant(1).minus(Anchored(0, 0), home)
	assert.False(t, ok)
}

func TestFixedPoint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int32(0x8000), fixedMul(0x10000, 0x8000))
	assert.Equal(t, int32(-0x18000), fixedMul(-0x30000, 0x8000))

	q, ok := fixedDiv(0x10000, 0x40000)
	assert.True(t, ok)
	assert.Equal(t, int32(0x4000), q)
	_, ok = fixedDiv(1, 0)
	assert.False(t, ok)
	_, ok = fixedDiv(0x7fff0000, 1)
	assert.False(t, ok)

	v, ok := fixedUnary(OpCos, 0x8000)
	assert.True(t, ok)
	assert.Equal(t, int32(-0x10000), v, "half a turn")

	v, ok = fixedUnary(OpAcos, 0)
	assert.True(t, ok)
	assert.Equal(t, int32(0x4000), v)

	_, ok = fixedUnary(OpAsin, 0x20000)
	assert.False(t, ok)

	v, ok = fixedUnary(OpAtan, 0x10000)
	assert.True(t, ok)
	assert.Equal(t, int32(0x2000), v)

	assert.Equal(t, int32(0x8000), fixedAtan2(0, -0x10000))
	assert.Equal(t, int32(0x7fffffff), fromFloat(1e12))
}

func TestNamesRoundTrip(t *testing.T) {
	t.Parallel()

	for code, info := range opTable {
		got, ok := LookupOp(info.name)
		assert.True(t, ok, info.name)
		assert.Equal(t, code, got)
		assert.Equal(t, info.arity, code.Arity())
	}
	_, ok := LookupOp("frobnicate")
	assert.False(t, ok)
	assert.Equal(t, "op(250)", OpCode(250).String())

	for w, name := range widthNames {
		got, err := ParseWidth(name)
		assert.NoError(t, err)
		assert.Equal(t, w, got)
	}
	_, err := ParseWidth("12")
	assert.Error(t, err)

	for _, name := range []string{"export", "import", "local", "local-export", "local-import"} {
		k, err := ParseSymbolKind(name)
		assert.NoError(t, err)
		assert.Equal(t, name, k.String())
	}
	assert.True(t, SymLocalImport.IsImport())
	assert.True(t, SymLocalImport.IsLocal())
	assert.False(t, SymExport.IsLocal())
}

func TestFormatCapabilities(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want Capabilities
	}{
		{"bin", Capabilities{}},
		{"binary", Capabilities{}},
		{"reloc", Capabilities{AllowRelocation: true, OnlySectionRelativeRelocation: true}},
		{"obj", Capabilities{AllowRelocation: true, AllowUnresolvedImports: true}},
	}
	for _, tc := range testCases {
		f, err := ParseFormat(tc.name)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, f.Capabilities(), tc.name)
	}

	f, err := ParseFormat("hunk")
	assert.Error(t, err)
	assert.Equal(t, FormatNone, f)
	assert.Equal(t, "object", FormatObject.String())
}
