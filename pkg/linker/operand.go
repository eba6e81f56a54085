package linker

// Operand is an entry of the evaluator stack: either a plain constant or a
// value anchored to a symbol whose final address is not known yet. The zero
// value is Constant(0).
type Operand struct {
	anchored bool
	sym      SymbolID
	off      int32
}

func Constant(v int32) Operand {
	return Operand{off: v}
}

func Anchored(sym SymbolID, off int32) Operand {
	return Operand{anchored: true, sym: sym, off: off}
}

func (o Operand) IsConstant() bool {
	return !o.anchored
}

// Value is the constant, or the offset added to the anchor.
func (o Operand) Value() int32 {
	return o.off
}

// Anchor is the symbol an anchored operand hangs off, or NoSymbol.
func (o Operand) Anchor() SymbolID {
	if !o.anchored {
		return NoSymbol
	}
	return o.sym
}

// homeFunc reports where an anchor symbol lives: its section and its offset
// in it. ok is false for anchors with no known section (deferred imports).
type homeFunc func(SymbolID) (home SectionID, value int32, ok bool)

// plus adds two operands. At most one of them may be anchored.
func (o Operand) plus(r Operand) (Operand, bool) {
	switch {
	case !o.anchored && !r.anchored:
		return Constant(o.off + r.off), true
	case o.anchored && !r.anchored:
		return Anchored(o.sym, o.off+r.off), true
	case !o.anchored && r.anchored:
		return Anchored(r.sym, o.off+r.off), true
	}
	return Operand{}, false
}

// minus subtracts r from o. Two anchored operands may only be subtracted when
// both live in the same section, which yields a constant.
func (o Operand) minus(r Operand, home homeFunc) (Operand, bool) {
	switch {
	case !r.anchored:
		if !o.anchored {
			return Constant(o.off - r.off), true
		}
		return Anchored(o.sym, o.off-r.off), true
	case o.anchored:
		lhome, lval, lok := home(o.sym)
		rhome, rval, rok := home(r.sym)
		if !lok || !rok || lhome != rhome {
			return Operand{}, false
		}
		return Constant((lval + o.off) - (rval + r.off)), true
	}
	return Operand{}, false
}
