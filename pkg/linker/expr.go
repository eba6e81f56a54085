package linker

import (
	"fmt"
	"strconv"
	"strings"
)

type OpCode uint8

const (
	OpConst OpCode = iota
	OpSymbol
	OpBank

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpLogAnd
	OpLogOr
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpFixedMul
	OpFixedDiv
	OpAtan2
	OpLimitLow
	OpLimitHigh
	OpPCRel

	OpNeg
	OpCpl
	OpLogNot
	OpLow
	OpHigh
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
)

type opInfo struct {
	name  string
	infix string
	arity int
}

var opTable = map[OpCode]opInfo{
	OpConst:  {"const", "", 0},
	OpSymbol: {"sym", "", 0},
	OpBank:   {"bank", "", 0},

	OpAdd:       {"add", "+", 2},
	OpSub:       {"sub", "-", 2},
	OpMul:       {"mul", "*", 2},
	OpDiv:       {"div", "/", 2},
	OpMod:       {"mod", "%", 2},
	OpShl:       {"shl", "<<", 2},
	OpShr:       {"shr", ">>", 2},
	OpAnd:       {"and", "&", 2},
	OpOr:        {"or", "|", 2},
	OpXor:       {"xor", "^", 2},
	OpLogAnd:    {"land", "&&", 2},
	OpLogOr:     {"lor", "||", 2},
	OpEq:        {"eq", "==", 2},
	OpNe:        {"ne", "!=", 2},
	OpLt:        {"lt", "<", 2},
	OpGt:        {"gt", ">", 2},
	OpLe:        {"le", "<=", 2},
	OpGe:        {"ge", ">=", 2},
	OpFixedMul:  {"fmul", "", 2},
	OpFixedDiv:  {"fdiv", "", 2},
	OpAtan2:     {"atan2", "", 2},
	OpLimitLow:  {"limlo", "", 2},
	OpLimitHigh: {"limhi", "", 2},
	OpPCRel:     {"pcrel", "", 2},

	OpNeg:    {"neg", "-", 1},
	OpCpl:    {"cpl", "~", 1},
	OpLogNot: {"not", "!", 1},
	OpLow:    {"low", "", 1},
	OpHigh:   {"high", "", 1},
	OpSin:    {"sin", "", 1},
	OpCos:    {"cos", "", 1},
	OpTan:    {"tan", "", 1},
	OpAsin:   {"asin", "", 1},
	OpAcos:   {"acos", "", 1},
	OpAtan:   {"atan", "", 1},
}

var opByName = func() map[string]OpCode {
	m := make(map[string]OpCode, len(opTable))
	for code, info := range opTable {
		m[info.name] = code
	}
	return m
}()

// LookupOp returns the operation with the given mnemonic.
func LookupOp(name string) (OpCode, bool) {
	code, ok := opByName[name]
	return code, ok
}

func (c OpCode) String() string {
	if info, ok := opTable[c]; ok {
		return info.name
	}
	return "op(" + strconv.Itoa(int(c)) + ")"
}

// Arity is the number of operands the operation pops.
func (c OpCode) Arity() int {
	return opTable[c].arity
}

// RenderExpr renders a patch expression in infix form for diagnostics. It
// never fails: malformed expressions render with "?" placeholders.
func (ctx *Context) RenderExpr(p *Patch) string {
	stack := make([]string, 0, len(p.Expr))
	pop := func() string {
		if len(stack) == 0 {
			return "?"
		}
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return s
	}

	for _, op := range p.Expr {
		info, ok := opTable[op.Code]
		if !ok {
			stack = append(stack, "?")
			continue
		}
		switch {
		case op.Code == OpConst:
			stack = append(stack, ctx.renderConst(p, op.Arg))
		case op.Code == OpSymbol:
			stack = append(stack, ctx.symbolName(SymbolID(op.Arg)))
		case op.Code == OpBank:
			stack = append(stack, "bank("+ctx.symbolName(SymbolID(op.Arg))+")")
		case info.arity == 2:
			rhs, lhs := pop(), pop()
			if info.infix != "" {
				stack = append(stack, "("+lhs+" "+info.infix+" "+rhs+")")
			} else {
				stack = append(stack, info.name+"("+lhs+", "+rhs+")")
			}
		default:
			arg := pop()
			if info.infix != "" {
				stack = append(stack, info.infix+arg)
			} else {
				stack = append(stack, info.name+"("+arg+")")
			}
		}
	}

	switch len(stack) {
	case 0:
		return "?"
	case 1:
		return stack[0]
	}
	return strings.Join(stack, ", ")
}

func (ctx *Context) renderConst(p *Patch, idx int32) string {
	if idx < 0 || int(idx) >= len(p.Constants) {
		return "?"
	}
	return strconv.FormatInt(int64(p.Constants[idx]), 10)
}

func (ctx *Context) symbolName(id SymbolID) string {
	if id < 0 || int(id) >= len(ctx.Symbols) {
		return fmt.Sprintf("<symbol %d>", id)
	}
	return ctx.Symbols[id].Name
}
