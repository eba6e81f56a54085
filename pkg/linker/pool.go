package linker

import (
	"gopkg.in/guregu/null.v3"

	"bankld/pkg/utils"
)

// FreeRange is an unallocated block of a Pool, relative to the pool base.
type FreeRange struct {
	Offset int64
	Size   int64
}

func (r FreeRange) End() int64 {
	return r.Offset + r.Size
}

// Pool is a contiguous CPU-visible address range in one bank. Free is kept in
// ascending offset order and scanned from the front, which makes allocation
// first-fit and reproducible.
type Pool struct {
	Name         string
	Bank         null.Int
	Base         int64
	Size         int64
	ImageOffset  null.Int
	Overlay      null.Int
	AbsoluteOnly bool
	Free         []FreeRange
}

func NewPool(name string, base, size int64) *Pool {
	return &Pool{
		Name: name,
		Base: base,
		Size: size,
		Free: []FreeRange{{Offset: 0, Size: size}},
	}
}

// MatchesBank reports whether a request for bank can be served by this pool.
// An invalid bank on either side means "any".
func (p *Pool) MatchesBank(bank null.Int) bool {
	if !bank.Valid || !p.Bank.Valid {
		return true
	}
	return bank.Int64 == p.Bank.Int64
}

// Contains reports whether [address, address+size) lies inside the pool.
func (p *Pool) Contains(address, size int64) bool {
	return address >= p.Base && size >= 0 && address+size <= p.Base+p.Size
}

// FreeBytes returns the total amount of unallocated space.
func (p *Pool) FreeBytes() int64 {
	total := int64(0)
	for _, r := range p.Free {
		total += r.Size
	}
	return total
}

// CarveAbsolute removes [address, address+size) from the free list. It fails
// if no single free range covers the whole block.
func (p *Pool) CarveAbsolute(address, size int64) bool {
	if !p.Contains(address, size) {
		return false
	}
	off := address - p.Base
	for i, r := range p.Free {
		if off >= r.Offset && off+size <= r.End() {
			p.split(i, off, size)
			return true
		}
	}
	// an empty block takes no space, so a full pool still holds it
	return size == 0
}

// CarveFirstFit finds the lowest address satisfying the size, byte alignment
// and page constraints, carves it and returns it. An align of 0 or 1 and a
// pageSize of 0 mean "unconstrained". A zero size falls back to the aligned
// pool base when no free range is left.
func (p *Pool) CarveFirstFit(size, align, pageSize int64) (int64, bool) {
	if pageSize > 0 && size > pageSize {
		return 0, false
	}

	for i, r := range p.Free {
		if r.Size < size {
			continue
		}
		if align <= 1 && pageSize <= 0 {
			p.split(i, r.Offset, size)
			return p.Base + r.Offset, true
		}

		start := p.Base + r.Offset
		end := p.Base + r.End()
		if addr, ok := fitInRange(start, end, size, align, pageSize); ok {
			p.split(i, addr-p.Base, size)
			return addr, true
		}
	}
	if size == 0 {
		if addr := utils.AlignTo(p.Base, align); p.Contains(addr, 0) {
			return addr, true
		}
	}
	return 0, false
}

// fitInRange returns the first aligned address in [start, end) that holds
// size bytes without crossing a pageSize boundary.
func fitInRange(start, end, size, align, pageSize int64) (int64, bool) {
	addr := utils.AlignTo(start, align)
	for addr+size <= end {
		if pageSize <= 0 || size == 0 || addr/pageSize == (addr+size-1)/pageSize {
			return addr, true
		}
		next := utils.AlignTo((addr/pageSize+1)*pageSize, align)
		if next <= addr {
			break
		}
		addr = next
	}
	return 0, false
}

// split replaces free range i with the head and tail left over after taking
// [off, off+size) out of it.
func (p *Pool) split(i int, off, size int64) {
	if size == 0 {
		return
	}
	r := p.Free[i]
	rest := make([]FreeRange, 0, 2)
	if off > r.Offset {
		rest = append(rest, FreeRange{Offset: r.Offset, Size: off - r.Offset})
	}
	if end := off + size; end < r.End() {
		rest = append(rest, FreeRange{Offset: end, Size: r.End() - end})
	}
	p.Free = append(p.Free[:i], append(rest, p.Free[i+1:]...)...)
}
