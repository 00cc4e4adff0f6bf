// Package matrix tracks committed assignments and answers interference
// queries along two dimensions: program points and register units.
package matrix

import (
	"github.com/slowlang/regalloc/allocator/live"
	"github.com/slowlang/regalloc/allocator/regfile"
	"github.com/slowlang/regalloc/allocator/set"
)

type (
	// Kind classifies interference of a live range with a candidate register.
	Kind int

	// seg is one committed [start, end) span on a unit.
	seg struct {
		r   live.Range
		reg live.VReg
	}

	query struct {
		reg  live.VReg
		phys regfile.PhysReg
	}

	cached struct {
		kind  Kind
		epoch int
	}

	Matrix struct {
		file *regfile.File

		units [][]seg // Unit -> committed segments
		reg   map[live.VReg]regfile.PhysReg
		lr    map[live.VReg]*live.LiveRange

		epoch int
		cache map[query]cached
	}
)

const (
	// Free: no committed assignment overlaps any unit of the candidate.
	Free Kind = iota

	// Virt: an assigned virtual register overlaps. Eviction is possible.
	Virt

	// Unit: the candidate is reserved. Never an eviction target.
	Unit
)

func New(f *regfile.File) *Matrix {
	return &Matrix{
		file:  f,
		units: make([][]seg, f.NumUnits()),
		reg:   make(map[live.VReg]regfile.PhysReg),
		lr:    make(map[live.VReg]*live.LiveRange),
		cache: make(map[query]cached),
	}
}

// Check classifies interference of lr with the candidate register.
// For Virt it also returns every assigned virtual register in the way;
// the set is needed to price and execute an eviction.
func (m *Matrix) Check(lr *live.LiveRange, r regfile.PhysReg) (Kind, []live.VReg) {
	if m.file.Reserved(r) {
		m.remember(lr.Reg, r, Unit)
		return Unit, nil
	}

	in := set.MakeBits(live.VReg(0))
	found := false

	for _, u := range m.file.Units(r) {
		for _, s := range m.units[u] {
			if !lr.OverlapsRange(s.r) {
				continue
			}

			in.Set(s.reg)
			found = true
		}
	}

	if !found {
		m.remember(lr.Reg, r, Free)
		return Free, nil
	}

	regs := make([]live.VReg, 0, in.Size())

	in.Range(func(v live.VReg) bool {
		regs = append(regs, v)
		return true
	})

	m.remember(lr.Reg, r, Virt)

	return Virt, regs
}

// Cached returns the last Check result for (lr, r) if it is still valid.
func (m *Matrix) Cached(v live.VReg, r regfile.PhysReg) (Kind, bool) {
	c, ok := m.cache[query{reg: v, phys: r}]
	if !ok || c.epoch != m.epoch {
		return Free, false
	}

	return c.kind, true
}

// Invalidate drops cached query results. Must be called after any
// assignment changed.
func (m *Matrix) Invalidate() {
	m.epoch++
}

// Assign commits lr to r. Assigning over an existing assignment or to a
// reserved register is a contract violation.
func (m *Matrix) Assign(lr *live.LiveRange, r regfile.PhysReg) {
	if _, ok := m.reg[lr.Reg]; ok {
		panic(lr.Reg)
	}

	if m.file.Reserved(r) {
		panic(r)
	}

	for _, u := range m.file.Units(r) {
		for _, rr := range lr.Ranges {
			m.units[u] = append(m.units[u], seg{r: rr, reg: lr.Reg})
		}
	}

	m.reg[lr.Reg] = r
	m.lr[lr.Reg] = lr
}

// Unassign takes back a committed assignment.
func (m *Matrix) Unassign(v live.VReg) {
	r, ok := m.reg[v]
	if !ok {
		panic(v)
	}

	for _, u := range m.file.Units(r) {
		l := m.units[u][:0]

		for _, s := range m.units[u] {
			if s.reg == v {
				continue
			}

			l = append(l, s)
		}

		m.units[u] = l
	}

	delete(m.reg, v)
	delete(m.lr, v)
}

// RegOf returns the committed register of v, if any.
func (m *Matrix) RegOf(v live.VReg) (regfile.PhysReg, bool) {
	r, ok := m.reg[v]
	return r, ok
}

// RangeOf returns the live range v was committed with.
func (m *Matrix) RangeOf(v live.VReg) *live.LiveRange {
	lr, ok := m.lr[v]
	if !ok {
		panic(v)
	}

	return lr
}

func (m *Matrix) remember(v live.VReg, r regfile.PhysReg, k Kind) {
	m.cache[query{reg: v, phys: r}] = cached{kind: k, epoch: m.epoch}
}

func (k Kind) String() string {
	switch k {
	case Free:
		return "free"
	case Virt:
		return "virt"
	case Unit:
		return "unit"
	default:
		return "unknown"
	}
}
