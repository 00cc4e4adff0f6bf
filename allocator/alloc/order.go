package alloc

import (
	"github.com/slowlang/regalloc/allocator/live"
	"github.com/slowlang/regalloc/allocator/regfile"
	"github.com/slowlang/regalloc/allocator/set"
)

type (
	// HintSource suggests preferred registers for a virtual register.
	// Hints come in best-first order. hard means the search must be
	// restricted to the hints, accepting spill over a non-hinted register.
	HintSource interface {
		Hints(r live.VReg, order []regfile.PhysReg) (hints []regfile.PhysReg, hard bool)
	}

	// NoHints is a HintSource with nothing to say.
	NoHints struct{}
)

func (NoHints) Hints(live.VReg, []regfile.PhysReg) ([]regfile.PhysReg, bool) {
	return nil, false
}

// resolveOrder combines the class order with hints into the probe sequence.
// Hints go first, de-duplicated, dropped if not part of the class order
// (reserved registers are already excluded from it). A hard hint cuts the
// default tail entirely.
func resolveOrder(order, hints []regfile.PhysReg, hard bool) []regfile.PhysReg {
	probe := make([]regfile.PhysReg, 0, len(order)+len(hints))
	seen := set.MakeBits(regfile.NoReg)

	for _, h := range hints {
		if seen.IsSet(h) || !regIn(h, order) {
			continue
		}

		seen.Set(h)
		probe = append(probe, h)
	}

	if hard {
		return probe
	}

	for _, r := range order {
		if seen.IsSet(r) {
			continue
		}

		probe = append(probe, r)
	}

	return probe
}

func regIn(r regfile.PhysReg, l []regfile.PhysReg) bool {
	for _, x := range l {
		if x == r {
			return true
		}
	}

	return false
}
