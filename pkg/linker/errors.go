package linker

import (
	"errors"
	"fmt"
	"strings"

	"bankld/pkg/errext/exitcodes"
)

type ErrorKind uint8

const (
	ErrConfig ErrorKind = iota
	ErrPlacement
	ErrSymbol
	ErrRange
	ErrUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case ErrConfig:
		return "configuration error"
	case ErrPlacement:
		return "placement error"
	case ErrSymbol:
		return "symbol error"
	case ErrRange:
		return "range error"
	case ErrUnsupported:
		return "unsupported operation"
	}
	return "error"
}

// Error is the single diagnostic a failed link produces. Section, Offset and
// Expr are filled in when the failure can be pinned to a patch site.
type Error struct {
	Kind    ErrorKind
	Section string
	Offset  int64
	Expr    string
	Msg     string
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: -1, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Section != "" {
		fmt.Fprintf(&sb, " in section %q", e.Section)
		if e.Offset >= 0 {
			fmt.Fprintf(&sb, " at offset 0x%x", e.Offset)
		}
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if e.Expr != "" {
		fmt.Fprintf(&sb, " (expression: %s)", e.Expr)
	}
	return sb.String()
}

func (e *Error) ExitCode() exitcodes.ExitCode {
	switch e.Kind {
	case ErrConfig:
		return exitcodes.InvalidConfig
	case ErrPlacement:
		return exitcodes.Placement
	case ErrSymbol:
		return exitcodes.Symbol
	case ErrRange:
		return exitcodes.Range
	case ErrUnsupported:
		return exitcodes.Unsupported
	}
	return exitcodes.Generic
}

// IsKind reports whether err is a link error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var lerr *Error
	return errors.As(err, &lerr) && lerr.Kind == kind
}

// atPatch pins err to a patch site unless it already names another one.
func atPatch(err error, sec *Section, p *Patch, ctx *Context) error {
	var lerr *Error
	if !errors.As(err, &lerr) {
		return err
	}
	if lerr.Section == "" {
		lerr.Section = sec.Name
	}
	if lerr.Section == sec.Name && lerr.Offset < 0 {
		lerr.Offset = p.Offset
	}
	if lerr.Expr == "" {
		lerr.Expr = ctx.RenderExpr(p)
	}
	return err
}
