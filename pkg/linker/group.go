package linker

import (
	"fmt"

	"gopkg.in/guregu/null.v3"
)

type GroupKind uint8

const (
	GroupOther GroupKind = iota
	GroupCode
	GroupData
	GroupBSS
)

func ParseGroupKind(name string) (GroupKind, error) {
	switch name {
	case "code":
		return GroupCode, nil
	case "data":
		return GroupData, nil
	case "bss":
		return GroupBSS, nil
	case "", "other":
		return GroupOther, nil
	}
	return GroupOther, fmt.Errorf("unknown group kind %q", name)
}

func (k GroupKind) String() string {
	switch k {
	case GroupCode:
		return "code"
	case GroupData:
		return "data"
	case GroupBSS:
		return "bss"
	}
	return "other"
}

// HasData reports whether sections of this kind carry a byte payload.
func (k GroupKind) HasData() bool {
	return k != GroupBSS
}

// Group is a named placement target: an ordered list of Pools tried in turn.
type Group struct {
	Name  string
	Kind  GroupKind
	Pools []*Pool
}

// Placement is where a Group put a block.
type Placement struct {
	Pool        *Pool
	Bank        int64
	Address     int64
	ImageOffset null.Int
	Overlay     null.Int
}

func newPlacement(pool *Pool, bank null.Int, address int64) Placement {
	pl := Placement{
		Pool:    pool,
		Address: address,
		Overlay: pool.Overlay,
	}
	switch {
	case pool.Bank.Valid:
		pl.Bank = pool.Bank.Int64
	case bank.Valid:
		pl.Bank = bank.Int64
	}
	if pool.ImageOffset.Valid {
		pl.ImageOffset = null.IntFrom(pool.ImageOffset.Int64 + address - pool.Base)
	}
	return pl
}

// AllocateAbsolute places size bytes at address in the first pool of the
// requested bank that has the block free.
func (g *Group) AllocateAbsolute(size int64, bank null.Int, address int64) (Placement, bool) {
	for _, pool := range g.Pools {
		if !pool.MatchesBank(bank) {
			continue
		}
		if pool.CarveAbsolute(address, size) {
			return newPlacement(pool, bank, address), true
		}
	}
	return Placement{}, false
}

// AllocateAligned places size bytes first-fit in the first pool of the
// requested bank able to honour align and pageSize. Absolute-only pools are
// skipped.
func (g *Group) AllocateAligned(size int64, bank null.Int, align, pageSize int64) (Placement, bool) {
	for _, pool := range g.Pools {
		if pool.AbsoluteOnly || !pool.MatchesBank(bank) {
			continue
		}
		if addr, ok := pool.CarveFirstFit(size, align, pageSize); ok {
			return newPlacement(pool, bank, addr), true
		}
	}
	return Placement{}, false
}
