package output

import (
	"bufio"
	"fmt"
	"io"

	"bankld/pkg/linker"
	"bankld/pkg/utils"
)

// WriteMap writes a human-readable listing of the pools, the placed sections,
// the symbol table and the patch sites that carry a source line.
func WriteMap(w io.Writer, ctx *linker.Context) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "; format %s\n\n", ctx.Format)

	fmt.Fprintln(bw, "POOLS")
	seen := make(map[*linker.Pool]bool)
	for _, name := range utils.SortedKeys(ctx.Config.Groups) {
		for _, p := range ctx.Config.Groups[name].Pools {
			if seen[p] {
				continue
			}
			seen[p] = true
			bank := "--"
			if p.Bank.Valid {
				bank = fmt.Sprintf("%02x", p.Bank.Int64)
			}
			fmt.Fprintf(bw, "  %-12s bank %s  %04x-%04x  free %5d / %d\n",
				p.Name, bank, p.Base, p.Base+p.Size-1, p.FreeBytes(), p.Size)
		}
	}

	fmt.Fprintln(bw, "\nSECTIONS")
	for _, sec := range ctx.Placed() {
		where := "unplaced"
		if sec.Assigned {
			where = linker.FormatAddr(sec.FinalBank, sec.FinalAddr)
		}
		image := "-"
		if sec.ImageOffset.Valid {
			image = fmt.Sprintf("0x%x", sec.ImageOffset.Int64)
		}
		fmt.Fprintf(bw, "  %-8s %6d  %-8s %-8s %s (%s)\n",
			where, sec.Size, image, sec.Group, sec.Name, ctx.FileName(sec.File))
	}

	fmt.Fprintln(bw, "\nSYMBOLS")
	for _, id := range ctx.SymbolTable() {
		sym := ctx.Symbol(id)
		where := fmt.Sprintf("%04x", uint32(sym.Value()))
		switch {
		case sym.Home() == linker.NoSection:
			where = "   =" + where
		case sym.Absolute():
			where = fmt.Sprintf("%02x:", ctx.Section(sym.Home()).FinalBank) + where
		default:
			where = "  +" + where
		}
		fmt.Fprintf(bw, "  %s  %-12s %s\n", where, sym.Kind, sym.Name)
	}

	fmt.Fprintln(bw, "\nLINES")
	for _, sec := range ctx.Placed() {
		for i := range sec.Patches {
			p := &sec.Patches[i]
			if p.Line <= 0 {
				continue
			}
			where := fmt.Sprintf("%s+%x", sec.Name, p.Offset)
			if sec.Assigned {
				where = linker.FormatAddr(sec.FinalBank, sec.FinalAddr+p.Offset)
			}
			fmt.Fprintf(bw, "  %-8s %-5s line %-5d %s\n", where, p.Width, p.Line, ctx.RenderExpr(p))
		}
	}

	return bw.Flush()
}
