// Package live defines virtual registers and their live ranges.
//
// Ranges are computed by an external liveness analysis and handed to the
// allocator through the Provider interface. The allocator only reads them.
package live

import (
	"math"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/regalloc/allocator/regfile"
)

type (
	// VReg is a virtual register index. The supply is unbounded.
	VReg int

	// Point is a program point. Instructions are numbered densely.
	Point int32

	// Range is a half-open [Start, End) span of program points.
	Range struct {
		Start, End Point
	}

	// LiveRange is the liveness of a single virtual register: an ordered
	// sequence of disjoint ranges plus the cost of spilling it.
	//
	// Weight of +Inf marks a range which must not be spilled.
	LiveRange struct {
		Reg    VReg
		Ranges []Range
		Weight float64
	}

	// Provider supplies live ranges per virtual register on demand.
	Provider interface {
		NumVirtRegs() int
		DebugOnly(r VReg) bool
		Class(r VReg) regfile.Class
		Range(r VReg) *LiveRange
		Drop(r VReg)
	}
)

func (r Range) Empty() bool {
	return r.End <= r.Start
}

func (r Range) Overlaps(q Range) bool {
	return r.Start < q.End && q.Start < r.End
}

// Overlaps reports whether two live ranges are both live at some point.
// Both Ranges sequences are ordered and disjoint, so a merge walk is enough.
func (l *LiveRange) Overlaps(q *LiveRange) bool {
	i, j := 0, 0

	for i < len(l.Ranges) && j < len(q.Ranges) {
		if l.Ranges[i].Overlaps(q.Ranges[j]) {
			return true
		}

		if l.Ranges[i].End <= q.Ranges[j].End {
			i++
		} else {
			j++
		}
	}

	return false
}

// OverlapsRange reports whether the live range covers any point of q.
func (l *LiveRange) OverlapsRange(q Range) bool {
	for _, r := range l.Ranges {
		if r.Start >= q.End {
			break
		}

		if r.Overlaps(q) {
			return true
		}
	}

	return false
}

func (l *LiveRange) Unspillable() bool {
	return math.IsInf(l.Weight, 1)
}

func (l *LiveRange) Start() Point {
	if len(l.Ranges) == 0 {
		return 0
	}

	return l.Ranges[0].Start
}

func (l *LiveRange) End() Point {
	if len(l.Ranges) == 0 {
		return 0
	}

	return l.Ranges[len(l.Ranges)-1].End
}

func (l LiveRange) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)

	b = e.AppendKeyInt(b, "reg", int(l.Reg))

	b = e.AppendKey(b, "weight")
	b = e.AppendFloat(b, l.Weight)

	b = e.AppendKey(b, "live")
	b = e.AppendTag(b, tlwire.Array, len(l.Ranges))

	for _, r := range l.Ranges {
		b = e.AppendTag(b, tlwire.Array, 2)
		b = e.AppendInt(b, int(r.Start))
		b = e.AppendInt(b, int(r.End))
	}

	return b
}
