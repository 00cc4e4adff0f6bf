// Package unit bundles everything the allocator needs for one allocation
// unit (one function body): the register file, virtual registers with
// their live ranges, hints and debug-only marks.
package unit

import (
	"strconv"

	"github.com/slowlang/regalloc/allocator/live"
	"github.com/slowlang/regalloc/allocator/regfile"
	"github.com/slowlang/regalloc/allocator/set"
)

type (
	Hint struct {
		Regs []regfile.PhysReg
		Hard bool
	}

	Unit struct {
		Name string
		File *regfile.File

		ranges []*live.LiveRange // live.VReg -> range
		names  []string
		class  []regfile.Class
		hints  map[live.VReg]Hint

		debug   set.Bits[live.VReg]
		dropped set.Bits[live.VReg]
	}
)

func New(name string, f *regfile.File) *Unit {
	return &Unit{
		Name:    name,
		File:    f,
		hints:   make(map[live.VReg]Hint),
		debug:   set.MakeBits(live.VReg(0)),
		dropped: set.MakeBits(live.VReg(0)),
	}
}

// AddVReg defines the next virtual register with its computed liveness.
// Ranges must be ordered and disjoint.
func (u *Unit) AddVReg(name string, c regfile.Class, weight float64, ranges ...live.Range) live.VReg {
	v := live.VReg(len(u.ranges))

	u.ranges = append(u.ranges, &live.LiveRange{
		Reg:    v,
		Ranges: ranges,
		Weight: weight,
	})

	u.names = append(u.names, name)
	u.class = append(u.class, c)

	return v
}

func (u *Unit) NameOf(v live.VReg) string {
	u.check(v)

	if u.names[v] != "" {
		return u.names[v]
	}

	return "v" + strconv.Itoa(int(v))
}

// MarkDebugOnly records that no real instruction references v.
func (u *Unit) MarkDebugOnly(v live.VReg) {
	u.check(v)

	u.debug.Set(v)
}

func (u *Unit) SetHint(v live.VReg, hard bool, regs ...regfile.PhysReg) {
	u.check(v)

	u.hints[v] = Hint{Regs: regs, Hard: hard}
}

// live.Provider

func (u *Unit) NumVirtRegs() int {
	return len(u.ranges)
}

func (u *Unit) DebugOnly(v live.VReg) bool {
	u.check(v)

	return u.debug.IsSet(v)
}

func (u *Unit) Class(v live.VReg) regfile.Class {
	u.check(v)

	return u.class[v]
}

func (u *Unit) Range(v live.VReg) *live.LiveRange {
	u.check(v)

	if u.dropped.IsSet(v) {
		panic(v)
	}

	return u.ranges[v]
}

// Drop releases liveness bookkeeping for a discarded register.
func (u *Unit) Drop(v live.VReg) {
	u.check(v)

	u.dropped.Set(v)
}

func (u *Unit) Dropped(v live.VReg) bool {
	u.check(v)

	return u.dropped.IsSet(v)
}

// alloc.HintSource

func (u *Unit) Hints(v live.VReg, order []regfile.PhysReg) ([]regfile.PhysReg, bool) {
	u.check(v)

	h, ok := u.hints[v]
	if !ok {
		return nil, false
	}

	return h.Regs, h.Hard
}

func (u *Unit) check(v live.VReg) {
	if v < 0 || int(v) >= len(u.ranges) {
		panic(v)
	}
}
