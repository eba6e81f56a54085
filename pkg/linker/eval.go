package linker

import (
	"math"
)

// evaluator reduces one patch expression. It holds no state beyond the
// operand stack, so patches can be visited in any order.
type evaluator struct {
	ctx   *Context
	secID SectionID
	sec   *Section
	p     *Patch
	stack []Operand
}

func (ctx *Context) evalPatch(secID SectionID, p *Patch) (Operand, error) {
	e := &evaluator{
		ctx:   ctx,
		secID: secID,
		sec:   ctx.Sections[secID],
		p:     p,
		stack: make([]Operand, 0, 8),
	}
	for _, op := range p.Expr {
		if err := e.step(op); err != nil {
			return Operand{}, err
		}
	}
	if len(e.stack) != 1 {
		return Operand{}, newError(ErrUnsupported, "malformed expression leaves %d values on the stack", len(e.stack))
	}
	return e.stack[0], nil
}

func (e *evaluator) push(o Operand) {
	e.stack = append(e.stack, o)
}

func (e *evaluator) pop(code OpCode) (Operand, error) {
	if len(e.stack) == 0 {
		return Operand{}, newError(ErrUnsupported, "malformed expression: %s is missing an operand", code)
	}
	o := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return o, nil
}

func (e *evaluator) step(op Op) error {
	switch op.Code {
	case OpConst:
		if op.Arg < 0 || int(op.Arg) >= len(e.p.Constants) {
			return newError(ErrUnsupported, "malformed expression: constant #%d does not exist", op.Arg)
		}
		e.push(Constant(e.p.Constants[op.Arg]))
		return nil
	case OpSymbol:
		o, err := e.symbol(SymbolID(op.Arg))
		if err != nil {
			return err
		}
		e.push(o)
		return nil
	case OpBank:
		o, err := e.bank(SymbolID(op.Arg))
		if err != nil {
			return err
		}
		e.push(o)
		return nil
	}

	info, ok := opTable[op.Code]
	if !ok {
		return newError(ErrUnsupported, "unknown operation %s", op.Code)
	}

	if info.arity == 1 {
		v, err := e.pop(op.Code)
		if err != nil {
			return err
		}
		res, err := e.unary(op.Code, v)
		if err != nil {
			return err
		}
		e.push(res)
		return nil
	}

	rhs, err := e.pop(op.Code)
	if err != nil {
		return err
	}
	lhs, err := e.pop(op.Code)
	if err != nil {
		return err
	}
	res, err := e.binary(op.Code, lhs, rhs)
	if err != nil {
		return err
	}
	e.push(res)
	return nil
}

func (e *evaluator) checkSymbolID(id SymbolID) error {
	if id < 0 || int(id) >= len(e.ctx.Symbols) {
		return newError(ErrUnsupported, "malformed expression: symbol #%d does not exist", id)
	}
	return nil
}

// symbol pushes a placed symbol as a constant and anything else anchored to
// the symbol itself.
func (e *evaluator) symbol(id SymbolID) (Operand, error) {
	if err := e.checkSymbolID(id); err != nil {
		return Operand{}, err
	}
	if err := e.ctx.resolveSymbol(id); err != nil {
		return Operand{}, err
	}
	sym := e.ctx.Symbols[id]
	if sym.absolute {
		return Constant(sym.value), nil
	}
	return Anchored(id, 0), nil
}

func (e *evaluator) bank(id SymbolID) (Operand, error) {
	if err := e.checkSymbolID(id); err != nil {
		return Operand{}, err
	}
	if err := e.ctx.resolveSymbol(id); err != nil {
		return Operand{}, err
	}
	sym := e.ctx.Symbols[id]
	switch {
	case sym.deferred:
		return Operand{}, newError(ErrUnsupported, "bank of unresolved import %s", sym.Name)
	case sym.home == NoSection:
		return Operand{}, newError(ErrSymbol, "%s is not in a section and has no bank", sym.Name)
	}
	home := e.ctx.Sections[sym.home]
	if !home.Assigned {
		return Operand{}, newError(ErrUnsupported, "bank of %s is unknown before placement", sym.Name)
	}
	return Constant(int32(home.FinalBank)), nil
}

func (e *evaluator) home(id SymbolID) (SectionID, int32, bool) {
	sym := e.ctx.Symbols[id]
	if sym.deferred || sym.home == NoSection {
		return NoSection, 0, false
	}
	return sym.home, sym.value, true
}

func (e *evaluator) unary(code OpCode, v Operand) (Operand, error) {
	if !v.IsConstant() {
		return Operand{}, newError(ErrUnsupported, "%s cannot be applied to a value relative to %s",
			code, e.ctx.symbolName(v.Anchor()))
	}
	x := v.Value()
	switch code {
	case OpNeg:
		return Constant(-x), nil
	case OpCpl:
		return Constant(^x), nil
	case OpLogNot:
		return Constant(boolValue(x == 0)), nil
	case OpLow:
		return Constant(x & 0xff), nil
	case OpHigh:
		return Constant((x >> 8) & 0xff), nil
	}
	res, ok := fixedUnary(code, x)
	if !ok {
		return Operand{}, newError(ErrRange, "%s(%d) is undefined", code, x)
	}
	return Constant(res), nil
}

func (e *evaluator) binary(code OpCode, lhs, rhs Operand) (Operand, error) {
	switch code {
	case OpAdd:
		res, ok := lhs.plus(rhs)
		if !ok {
			return Operand{}, newError(ErrSymbol, "cannot add %s and %s, both are symbol-relative",
				e.ctx.symbolName(lhs.Anchor()), e.ctx.symbolName(rhs.Anchor()))
		}
		return res, nil
	case OpSub:
		res, ok := lhs.minus(rhs, e.home)
		if !ok {
			return Operand{}, e.subtractError(lhs, rhs)
		}
		return res, nil
	case OpPCRel:
		return e.pcRel(lhs, rhs)
	case OpLimitLow, OpLimitHigh:
		return e.limit(code, lhs, rhs)
	}

	if !lhs.IsConstant() || !rhs.IsConstant() {
		anchor := lhs.Anchor()
		if anchor == NoSymbol {
			anchor = rhs.Anchor()
		}
		kind := ErrSymbol
		if code == OpFixedMul || code == OpFixedDiv || code == OpAtan2 {
			kind = ErrUnsupported
		}
		return Operand{}, newError(kind, "%s cannot take a value relative to %s", code, e.ctx.symbolName(anchor))
	}

	res, err := constBinary(code, lhs.Value(), rhs.Value())
	if err != nil {
		return Operand{}, err
	}
	return Constant(res), nil
}

func (e *evaluator) subtractError(lhs, rhs Operand) error {
	if lhs.IsConstant() {
		return newError(ErrSymbol, "cannot subtract value relative to %s from a constant",
			e.ctx.symbolName(rhs.Anchor()))
	}
	return newError(ErrSymbol, "cannot subtract %s from %s, they are not in the same section",
		e.ctx.symbolName(rhs.Anchor()), e.ctx.symbolName(lhs.Anchor()))
}

// pcRel turns target+adjust into a distance from the patch site.
func (e *evaluator) pcRel(target, adjust Operand) (Operand, error) {
	if !adjust.IsConstant() {
		return Operand{}, newError(ErrSymbol, "pc-relative adjustment relative to %s must be constant",
			e.ctx.symbolName(adjust.Anchor()))
	}
	if !target.IsConstant() {
		home, val, ok := e.home(target.Anchor())
		if !ok || home != e.secID {
			return Operand{}, newError(ErrSymbol, "pc-relative reference to %s outside section %s",
				e.ctx.symbolName(target.Anchor()), e.sec.Name)
		}
		return Constant(val + target.Value() + adjust.Value() - int32(e.p.Offset)), nil
	}
	if !e.sec.Assigned {
		return Operand{}, newError(ErrUnsupported, "pc-relative reference to an absolute value needs a placed section")
	}
	return Constant(target.Value() + adjust.Value() - int32(e.sec.FinalAddr+e.p.Offset)), nil
}

// limit asserts a bound when both sides are known and always yields lhs.
func (e *evaluator) limit(code OpCode, lhs, rhs Operand) (Operand, error) {
	if !lhs.IsConstant() || !rhs.IsConstant() {
		return lhs, nil
	}
	v, bound := lhs.Value(), rhs.Value()
	if code == OpLimitLow && v < bound {
		return Operand{}, newError(ErrRange, "value %d out of range: below %d", v, bound)
	}
	if code == OpLimitHigh && v > bound {
		return Operand{}, newError(ErrRange, "value %d out of range: above %d", v, bound)
	}
	return lhs, nil
}

func constBinary(code OpCode, a, b int32) (int32, error) {
	switch code {
	case OpMul:
		return a * b, nil
	case OpDiv, OpMod:
		if b == 0 {
			return 0, newError(ErrRange, "division by zero")
		}
		if a == math.MinInt32 && b == -1 {
			if code == OpDiv {
				return a, nil
			}
			return 0, nil
		}
		if code == OpDiv {
			return a / b, nil
		}
		return a % b, nil
	case OpShl:
		if b < 0 || b > 31 {
			return 0, nil
		}
		return a << uint(b), nil
	case OpShr:
		if b < 0 || b > 31 {
			return a >> 31, nil
		}
		return a >> uint(b), nil
	case OpAnd:
		return a & b, nil
	case OpOr:
		return a | b, nil
	case OpXor:
		return a ^ b, nil
	case OpLogAnd:
		return boolValue(a != 0 && b != 0), nil
	case OpLogOr:
		return boolValue(a != 0 || b != 0), nil
	case OpEq:
		return boolValue(a == b), nil
	case OpNe:
		return boolValue(a != b), nil
	case OpLt:
		return boolValue(a < b), nil
	case OpGt:
		return boolValue(a > b), nil
	case OpLe:
		return boolValue(a <= b), nil
	case OpGe:
		return boolValue(a >= b), nil
	case OpFixedMul:
		return fixedMul(a, b), nil
	case OpFixedDiv:
		q, ok := fixedDiv(a, b)
		if !ok {
			return 0, newError(ErrRange, "fixed-point division %d / %d out of range", a, b)
		}
		return q, nil
	case OpAtan2:
		return fixedAtan2(a, b), nil
	}
	return 0, newError(ErrUnsupported, "unknown operation %s", code)
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
