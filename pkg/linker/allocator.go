package linker

import (
	"github.com/sirupsen/logrus"

	"bankld/pkg/errext"
)

// partition is one of the mutually exclusive section classes dynamic
// placement walks through, in this order.
type partition uint8

const (
	partSharedCode partition = iota
	partCode
	partSharedData
	partData
	partSharedBSS
	partBSS
	partOther
	numPartitions
)

// tier orders requests by how constrained they are, hardest first.
type tier uint8

const (
	tierBankAlignPage tier = iota
	tierBankAlign
	tierBankPage
	tierBank
	tierAlignPage
	tierAlign
	tierPage
	tierNone
	numTiers
)

func partitionOf(kind GroupKind, shared bool) partition {
	switch kind {
	case GroupCode:
		if shared {
			return partSharedCode
		}
		return partCode
	case GroupData:
		if shared {
			return partSharedData
		}
		return partData
	case GroupBSS:
		if shared {
			return partSharedBSS
		}
		return partBSS
	}
	return partOther
}

func tierOf(sec *Section) tier {
	bank := sec.Bank.Valid
	align := sec.alignment() > 1
	page := sec.pageSize() > 0
	switch {
	case bank && align && page:
		return tierBankAlignPage
	case bank && align:
		return tierBankAlign
	case bank && page:
		return tierBankPage
	case bank:
		return tierBank
	case align && page:
		return tierAlignPage
	case align:
		return tierAlign
	case page:
		return tierPage
	}
	return tierNone
}

// AllocateSections gives every used, unassigned section a final placement:
// fixed sections first, then the rest partition by partition and tier by
// tier. Used sections are left sorted by (bank, address).
func AllocateSections(ctx *Context) error {
	if err := placeFixedSections(ctx); err != nil {
		return err
	}

	var buckets [numPartitions][numTiers][]SectionID
	for _, id := range ctx.UsedSections() {
		sec := ctx.Sections[id]
		if sec.Assigned {
			continue
		}
		g, err := ctx.group(sec)
		if err != nil {
			return err
		}
		p := partitionOf(g.Kind, sec.Shared)
		t := tierOf(sec)
		buckets[p][t] = append(buckets[p][t], id)
	}

	for p := range buckets {
		for t := range buckets[p] {
			for _, id := range buckets[p][t] {
				if err := placeDynamic(ctx, ctx.Sections[id]); err != nil {
					return err
				}
			}
		}
	}

	ctx.sortPlaced()
	return nil
}

func placeFixedSections(ctx *Context) error {
	fixed := make([]*Section, 0)
	for _, id := range ctx.UsedSections() {
		sec := ctx.Sections[id]
		if sec.Assigned || !sec.IsFixed() {
			continue
		}
		g, err := ctx.group(sec)
		if err != nil {
			return err
		}

		pl, ok := g.AllocateAbsolute(sec.Size, sec.Bank, sec.Address.Int64)
		if !ok {
			for _, other := range fixed {
				if claimsSameBytes(sec, other) {
					return &Error{
						Kind:    ErrPlacement,
						Section: sec.Name,
						Offset:  -1,
						Msg: "overlaps fixed section " + other.Name + " at " +
							FormatAddr(other.FinalBank, other.FinalAddr),
					}
				}
			}
			return errext.WithHint(&Error{
				Kind:    ErrPlacement,
				Section: sec.Name,
				Offset:  -1,
				Msg:     "section does not fit at " + FormatAddr(sec.Bank.Int64, sec.Address.Int64) + " in group " + g.Name,
			}, "check the address against the pools of the group")
		}
		sec.assign(pl)
		fixed = append(fixed, sec)
		logPlacement(ctx, sec, "Fixed section placed")
	}
	return nil
}

// claimsSameBytes reports whether the fixed request of sec collides with the
// already placed other.
func claimsSameBytes(sec, other *Section) bool {
	if sec.Bank.Valid && sec.Bank.Int64 != other.FinalBank {
		return false
	}
	addr := sec.Address.Int64
	return addr < other.FinalAddr+other.Size && other.FinalAddr < addr+sec.Size
}

func placeDynamic(ctx *Context, sec *Section) error {
	g, err := ctx.group(sec)
	if err != nil {
		return err
	}
	pl, ok := g.AllocateAligned(sec.Size, sec.Bank, sec.alignment(), sec.pageSize())
	if !ok {
		return errext.WithHint(&Error{
			Kind:    ErrPlacement,
			Section: sec.Name,
			Offset:  -1,
			Msg:     "no space for section " + sec.Name + " in group " + g.Name,
		}, "relax the alignment, page or bank wishes of the section, or enlarge the group's pools")
	}
	sec.assign(pl)
	logPlacement(ctx, sec, "Section placed")
	return nil
}

func logPlacement(ctx *Context, sec *Section, msg string) {
	ctx.Logger.WithFields(logrus.Fields{
		"section": sec.Name,
		"pool":    sec.Pool,
		"bank":    sec.FinalBank,
		"address": FormatAddr(sec.FinalBank, sec.FinalAddr),
		"size":    sec.Size,
	}).Debug(msg)
}
