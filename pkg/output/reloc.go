package output

import (
	"encoding/hex"
	"io"

	"gopkg.in/yaml.v3"

	"bankld/pkg/linker"
)

type relocImage struct {
	Format   string         `yaml:"format"`
	Sections []relocSection `yaml:"sections"`
	Imports  []string       `yaml:"imports,omitempty"`
}

type relocSection struct {
	Name    string        `yaml:"name"`
	Group   string        `yaml:"group"`
	File    string        `yaml:"file"`
	Size    int64         `yaml:"size"`
	Bank    *int64        `yaml:"bank,omitempty"`
	Address *int64        `yaml:"address,omitempty"`
	Align   *int64        `yaml:"align,omitempty"`
	Data    string        `yaml:"data,omitempty"`
	Symbols []relocSymbol `yaml:"symbols,omitempty"`
	Relocs  []relocEntry  `yaml:"relocs,omitempty"`
}

type relocSymbol struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Offset int32  `yaml:"offset"`
}

type relocEntry struct {
	Offset int64  `yaml:"offset"`
	Width  string `yaml:"width"`
	Symbol string `yaml:"symbol,omitempty"`
	// Section indexes the image's own section list.
	Section *int  `yaml:"section,omitempty"`
	Addend  int32 `yaml:"addend"`
}

// WriteRelocImage writes the used sections, unplaced, with their patched
// payloads and the relocation records a loader or a later link applies.
func WriteRelocImage(w io.Writer, ctx *linker.Context) error {
	img := relocImage{Format: ctx.Format.String()}

	index := make(map[linker.SectionID]int)
	for _, id := range ctx.UsedSections() {
		index[id] = len(index)
	}

	imported := make(map[string]bool)
	for _, id := range ctx.UsedSections() {
		sec := ctx.Section(id)
		out := relocSection{
			Name:    sec.Name,
			Group:   sec.Group,
			File:    ctx.FileName(sec.File),
			Size:    sec.Size,
			Bank:    sec.Bank.Ptr(),
			Address: sec.Address.Ptr(),
			Align:   sec.Align.Ptr(),
			Data:    hex.EncodeToString(sec.Data),
		}

		for _, symID := range sec.Symbols {
			sym := ctx.Symbol(symID)
			if sym.Kind.IsImport() || sym.Kind == linker.SymLocal {
				continue
			}
			offset := sym.Offset
			if sym.Resolved() && sym.Home() == id {
				offset = sym.Value()
			} else if sym.Alias != linker.NoSymbol {
				// re-exports of another section's symbol have no offset here
				continue
			}
			out.Symbols = append(out.Symbols, relocSymbol{Name: sym.Name, Kind: sym.Kind.String(), Offset: offset})
		}

		for _, rec := range sec.Relocs {
			entry := relocEntry{Offset: rec.Offset, Width: rec.Width.String(), Addend: rec.Addend}
			switch {
			case rec.Symbol != linker.NoSymbol:
				sym := ctx.Symbol(rec.Symbol)
				entry.Symbol = sym.Name
				if sym.Deferred() && !imported[sym.Name] {
					imported[sym.Name] = true
					img.Imports = append(img.Imports, sym.Name)
				}
			case rec.Section != linker.NoSection:
				i := index[rec.Section]
				entry.Section = &i
			}
			out.Relocs = append(out.Relocs, entry)
		}
		img.Sections = append(img.Sections, out)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&img); err != nil {
		return err
	}
	return enc.Close()
}
