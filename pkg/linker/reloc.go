package linker

import "github.com/sirupsen/logrus"

// EvaluatePatches reduces every patch of every used section, either writing
// the bytes into the section payload or recording a relocation for the
// output format to carry.
func EvaluatePatches(ctx *Context) error {
	for _, secID := range ctx.UsedSections() {
		sec := ctx.Sections[secID]
		for i := range sec.Patches {
			p := &sec.Patches[i]
			if err := ctx.applyPatch(secID, sec, p); err != nil {
				return atPatch(err, sec, p, ctx)
			}
		}
		if len(sec.Relocs) > 0 {
			ctx.Logger.WithFields(logrus.Fields{
				"section": sec.Name,
				"relocs":  len(sec.Relocs),
			}).Debug("Relocations recorded")
		}
	}
	return nil
}

func (ctx *Context) applyPatch(secID SectionID, sec *Section, p *Patch) error {
	if sec.Data == nil {
		return newError(ErrUnsupported, "patch in a section without data")
	}
	if p.Offset < 0 || p.Offset+int64(p.Width.Bytes()) > int64(len(sec.Data)) {
		return newError(ErrRange, "patch site lies outside the %d bytes of the section", len(sec.Data))
	}

	result, err := ctx.evalPatch(secID, p)
	if err != nil {
		return err
	}
	return ctx.finalize(sec, p, result)
}

func (ctx *Context) finalize(sec *Section, p *Patch, result Operand) error {
	if result.IsConstant() && p.Width != WidthReloc {
		return p.Width.Encode(sec.Data[p.Offset:], result.Value())
	}

	caps := ctx.Format.Capabilities()
	if !caps.AllowRelocation {
		if result.IsConstant() {
			return newError(ErrUnsupported, "relocation record requested, but format %s has no relocations", ctx.Format)
		}
		return newError(ErrUnsupported, "value relative to %s needs a relocation, but format %s has none",
			ctx.symbolName(result.Anchor()), ctx.Format)
	}

	rec := Reloc{
		Offset:  p.Offset,
		Width:   p.Width,
		Symbol:  NoSymbol,
		Section: NoSection,
		Addend:  result.Value(),
	}
	if !result.IsConstant() {
		sym := ctx.Symbols[result.Anchor()]
		target := ctx.Symbols[sym.anchor]
		switch {
		case sym.deferred:
			if caps.OnlySectionRelativeRelocation {
				return newError(ErrUnsupported, "format %s cannot carry a relocation against unresolved import %s",
					ctx.Format, target.Name)
			}
			rec.Symbol = sym.anchor
		case caps.OnlySectionRelativeRelocation || target.Kind.IsLocal():
			rec.Section = sym.home
			rec.Addend = sym.value + result.Value()
		default:
			rec.Symbol = sym.anchor
		}
	}

	// the addend also goes in place, truncated to the field, for formats that
	// read it from there
	if p.Width != WidthReloc {
		if err := p.Width.put(sec.Data[p.Offset:], rec.Addend); err != nil {
			return err
		}
	}
	sec.Relocs = append(sec.Relocs, rec)
	return nil
}
