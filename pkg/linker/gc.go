package linker

import (
	"github.com/sirupsen/logrus"
)

// MarkLiveSections decides which sections make it into the program. Without a
// root symbol everything is kept. Otherwise sections are marked from the one
// exporting the root symbol and from every section flagged Root, following
// imports to their defining sections.
func MarkLiveSections(ctx *Context) error {
	if !ctx.Config.RootSymbol.Valid {
		for _, sec := range ctx.Sections {
			sec.Used = true
		}
		return nil
	}

	rootName := ctx.Config.RootSymbol.String
	def, ok := ctx.findExport(rootName)
	if !ok {
		return newError(ErrSymbol, "root symbol %s is not exported by any section", rootName)
	}

	roots := make([]SectionID, 0)
	if home := ctx.Symbols[def].Section; home != NoSection {
		roots = append(roots, home)
	}
	for i, sec := range ctx.Sections {
		if sec.Root {
			roots = append(roots, SectionID(i))
		}
	}

	for len(roots) > 0 {
		id := roots[0]
		roots = roots[1:]
		sec := ctx.Sections[id]
		if sec.Used {
			continue
		}
		sec.Used = true
		roots = append(roots, ctx.referencedSections(id)...)
	}

	if ctx.isDebug() {
		entry := ctx.Logger.WithField("root", rootName)
		dropped := 0
		for _, sec := range ctx.Sections {
			if !sec.Used {
				dropped++
				entry.WithField("section", sec.Name).Debug("Section dropped")
			}
		}
		entry.WithFields(logrus.Fields{"kept": len(ctx.Sections) - dropped, "dropped": dropped}).Debug("Sections marked")
	}
	return nil
}

// findExport looks for a program-wide export named name in any section,
// used or not, then among the equates.
func (ctx *Context) findExport(name string) (SymbolID, bool) {
	for i, sym := range ctx.Symbols {
		if sym.Name == name && sym.Kind == SymExport {
			return SymbolID(i), true
		}
	}
	return NoSymbol, false
}

// referencedSections lists the sections id depends on: the definitions of
// its imports, and the owners of symbols its patches name directly.
func (ctx *Context) referencedSections(id SectionID) []SectionID {
	sec := ctx.Sections[id]
	refs := make([]SectionID, 0)
	add := func(target SectionID) {
		if target != NoSection && target != id && !ctx.Sections[target].Used {
			refs = append(refs, target)
		}
	}

	for _, symID := range sec.Symbols {
		sym := ctx.Symbols[symID]
		if !sym.Kind.IsImport() {
			continue
		}
		def, ok := ctx.findDefinition(sym.Name, sym.File, sym.Kind == SymLocalImport, false)
		if ok {
			add(ctx.Symbols[def].Section)
		}
	}

	for _, p := range sec.Patches {
		for _, op := range p.Expr {
			if op.Code != OpSymbol && op.Code != OpBank {
				continue
			}
			if op.Arg >= 0 && int(op.Arg) < len(ctx.Symbols) {
				add(ctx.Symbols[op.Arg].Section)
			}
		}
	}
	return refs
}

func (ctx *Context) isDebug() bool {
	if l, ok := ctx.Logger.(*logrus.Logger); ok {
		return l.IsLevelEnabled(logrus.DebugLevel)
	}
	return true
}
