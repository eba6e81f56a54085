package linker

import (
	"fmt"

	"gopkg.in/guregu/null.v3"

	"bankld/pkg/utils"
)

type SectionID int32

const NoSection SectionID = -1

// Section is a contiguous chunk of code or data from one input module, placed
// into exactly one Group.
type Section struct {
	Name   string
	File   int
	Group  string
	Shared bool
	Size   int64
	Data   []byte

	// Placement wishes from the source module.
	Bank     null.Int
	Address  null.Int
	Align    null.Int
	PageSize null.Int

	Root     bool
	Used     bool
	Assigned bool

	// Final placement, valid once Assigned.
	FinalBank   int64
	FinalAddr   int64
	ImageOffset null.Int
	Overlay     null.Int
	Pool        string

	Symbols []SymbolID
	Patches []Patch
	Relocs  []Reloc
}

func NewSection(name, group string, file int, size int64) *Section {
	return &Section{
		Name:  name,
		Group: group,
		File:  file,
		Size:  size,
	}
}

// IsFixed reports whether the source module pinned the section to an address.
func (s *Section) IsFixed() bool {
	return s.Address.Valid
}

func (s *Section) alignment() int64 {
	if s.Align.Valid && s.Align.Int64 > 1 {
		return s.Align.Int64
	}
	return 1
}

func (s *Section) pageSize() int64 {
	if s.PageSize.Valid && s.PageSize.Int64 > 0 {
		return s.PageSize.Int64
	}
	return 0
}

// assign records the final placement. Placement is write-once.
func (s *Section) assign(pl Placement) {
	utils.Assert(!s.Assigned)
	s.Assigned = true
	s.FinalBank = pl.Bank
	s.FinalAddr = pl.Address
	s.ImageOffset = pl.ImageOffset
	s.Overlay = pl.Overlay
	s.Pool = pl.Pool.Name
}

// FormatAddr renders a banked address the way diagnostics and map files
// show it.
func FormatAddr(bank, addr int64) string {
	return fmt.Sprintf("%02x:%04x", bank, addr)
}
