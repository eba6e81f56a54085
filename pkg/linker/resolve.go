package linker

import (
	"strings"
)

// findDefinition returns the first defining symbol named name. Sections are
// scanned in input order, absolute equates after them. fileScoped limits the
// scan to file; usedOnly skips sections the pruner dropped.
func (ctx *Context) findDefinition(name string, file int, fileScoped, usedOnly bool) (SymbolID, bool) {
	for _, sec := range ctx.Sections {
		if usedOnly && !sec.Used {
			continue
		}
		if fileScoped && sec.File != file {
			continue
		}
		for _, id := range sec.Symbols {
			sym := ctx.Symbols[id]
			if sym.Name == name && sym.Kind.IsExport() {
				return id, true
			}
		}
	}

	for i, sym := range ctx.Symbols {
		if sym.Section != NoSection || sym.Name != name || !sym.Kind.IsExport() {
			continue
		}
		if fileScoped && sym.File != file {
			continue
		}
		return SymbolID(i), true
	}
	return NoSymbol, false
}

// resolveSymbol resolves id on first use and memoizes the result on the
// symbol. Re-entering a symbol that is still being resolved is an error.
func (ctx *Context) resolveSymbol(id SymbolID) error {
	sym := ctx.Symbols[id]
	if sym.resolved || sym.deferred {
		return nil
	}
	for i, pending := range ctx.resolving {
		if pending == id {
			return ctx.cycleError(ctx.resolving[i:], id)
		}
	}
	ctx.resolving = append(ctx.resolving, id)
	defer func() { ctx.resolving = ctx.resolving[:len(ctx.resolving)-1] }()

	switch {
	case sym.Kind.IsImport():
		return ctx.resolveImport(id, sym)
	case sym.Alias != NoSymbol:
		if err := ctx.resolveSymbol(sym.Alias); err != nil {
			return err
		}
		bindTo(sym, ctx.Symbols[sym.Alias])
	case sym.Section == NoSection:
		sym.bind(sym.Offset, NoSection, true, id)
	default:
		sec := ctx.Sections[sym.Section]
		if sec.Assigned {
			sym.bind(int32(sec.FinalAddr)+sym.Offset, sym.Section, true, id)
		} else {
			sym.bind(sym.Offset, sym.Section, false, id)
		}
	}
	return nil
}

func (ctx *Context) resolveImport(id SymbolID, sym *Symbol) error {
	def, ok := ctx.findDefinition(sym.Name, sym.File, sym.Kind == SymLocalImport, true)
	if !ok {
		if sym.Kind == SymImport && ctx.Format.Capabilities().AllowUnresolvedImports {
			sym.markDeferred(id)
			ctx.Logger.WithField("symbol", sym.Name).Debug("Import left for the output format")
			return nil
		}
		err := newError(ErrSymbol, "undefined symbol %s", sym.Name)
		if sym.Kind == SymLocalImport {
			err.Msg += " (no local export in the same file)"
		}
		if sym.Section != NoSection {
			err.Section = ctx.Sections[sym.Section].Name
		}
		return err
	}

	if err := ctx.resolveSymbol(def); err != nil {
		return err
	}
	bindTo(sym, ctx.Symbols[def])
	return nil
}

func bindTo(sym, target *Symbol) {
	if target.deferred {
		sym.markDeferred(target.anchor)
		return
	}
	sym.bind(target.value, target.home, target.absolute, target.anchor)
}

func (ctx *Context) cycleError(chain []SymbolID, back SymbolID) error {
	// an alias export and the import it wraps share a name; list it once
	names := make([]string, 0, len(chain)+1)
	for _, id := range append(chain[:len(chain):len(chain)], back) {
		name := ctx.Symbols[id].Name
		if len(names) == 0 || names[len(names)-1] != name {
			names = append(names, name)
		}
	}
	return newError(ErrSymbol, "circular symbol reference: %s", strings.Join(names, " -> "))
}

// ResolveSymbols resolves every symbol of the used sections and every
// absolute equate, failing on the first one that cannot be resolved.
func ResolveSymbols(ctx *Context) error {
	for _, secID := range ctx.UsedSections() {
		for _, id := range ctx.Sections[secID].Symbols {
			if err := ctx.resolveSymbol(id); err != nil {
				return err
			}
		}
	}
	for i, sym := range ctx.Symbols {
		if sym.Section != NoSection {
			continue
		}
		if err := ctx.resolveSymbol(SymbolID(i)); err != nil {
			return err
		}
	}
	return nil
}
