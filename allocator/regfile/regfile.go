// Package regfile models the physical register file of a target: named
// registers, aliasing through shared register units, register classes with
// a default allocation order, and a reserved set frozen per allocation run.
package regfile

import (
	"github.com/slowlang/regalloc/allocator/set"
)

type (
	// PhysReg is a physical register number. 0 means no register.
	PhysReg int

	// Unit is the finest granularity of physical storage. Two registers
	// alias iff they share at least one unit.
	Unit int

	// Class is a register class index.
	Class int

	desc struct {
		name  string
		units []Unit
	}

	class struct {
		name  string
		order []PhysReg
	}

	File struct {
		regs    []desc  // PhysReg-1 -> desc
		classes []class // Class -> default order

		reserved set.Bits[PhysReg]
		frozen   bool

		units int
	}
)

const NoReg PhysReg = 0

func New() *File {
	return &File{
		reserved: set.MakeBits(PhysReg(0)),
	}
}

// AddReg defines a physical register aliasing the given units.
// Units it has not seen before are created on the fly.
func (f *File) AddReg(name string, units ...Unit) PhysReg {
	if f.frozen {
		panic("register file is frozen")
	}

	for _, u := range units {
		if int(u) >= f.units {
			f.units = int(u) + 1
		}
	}

	f.regs = append(f.regs, desc{name: name, units: units})

	return PhysReg(len(f.regs))
}

// AddClass defines a register class with its default allocation order.
// The order matters: the first register is the most preferred one.
func (f *File) AddClass(name string, order ...PhysReg) Class {
	if f.frozen {
		panic("register file is frozen")
	}

	for _, r := range order {
		f.check(r)
	}

	f.classes = append(f.classes, class{name: name, order: order})

	return Class(len(f.classes) - 1)
}

// Reserve permanently excludes a register from allocation.
func (f *File) Reserve(r PhysReg) {
	if f.frozen {
		panic("register file is frozen")
	}

	f.check(r)

	f.reserved.Set(r)
}

// Freeze fixes the reserved set. The file is read-only afterwards.
func (f *File) Freeze() {
	f.frozen = true
}

// Order is the class's default allocation order with reserved registers
// removed. Unknown class is a contract violation.
func (f *File) Order(c Class) []PhysReg {
	if int(c) < 0 || int(c) >= len(f.classes) {
		panic(c)
	}

	full := f.classes[c].order
	order := make([]PhysReg, 0, len(full))

	for _, r := range full {
		if f.reserved.IsSet(r) {
			continue
		}

		order = append(order, r)
	}

	return order
}

func (f *File) Reserved(r PhysReg) bool {
	f.check(r)

	return f.reserved.IsSet(r)
}

func (f *File) Units(r PhysReg) []Unit {
	f.check(r)

	return f.regs[r-1].units
}

// Alias reports whether two registers share a unit.
func (f *File) Alias(a, b PhysReg) bool {
	for _, ua := range f.Units(a) {
		for _, ub := range f.Units(b) {
			if ua == ub {
				return true
			}
		}
	}

	return false
}

func (f *File) Name(r PhysReg) string {
	if r == NoReg {
		return "<none>"
	}

	f.check(r)

	return f.regs[r-1].name
}

func (f *File) ClassName(c Class) string {
	if int(c) < 0 || int(c) >= len(f.classes) {
		panic(c)
	}

	return f.classes[c].name
}

func (f *File) NumRegs() int  { return len(f.regs) }
func (f *File) NumUnits() int { return f.units }

func (f *File) check(r PhysReg) {
	if r <= 0 || int(r) > len(f.regs) {
		panic(r)
	}
}
