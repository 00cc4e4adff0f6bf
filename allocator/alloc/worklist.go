package alloc

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/regalloc/allocator/live"
	"github.com/slowlang/regalloc/allocator/set"
)

type (
	// worklist is a FIFO queue of live ranges awaiting assignment.
	// A range is in the queue at most once.
	worklist struct {
		q  []*live.LiveRange
		in set.Bits[live.VReg]
	}
)

func newWorklist() worklist {
	return worklist{
		in: set.MakeBits(live.VReg(0)),
	}
}

func (w *worklist) push(lr *live.LiveRange) bool {
	if w.in.IsSet(lr.Reg) {
		return false
	}

	tlog.V("worklist").Printw("enqueue", "reg", lr.Reg, "weight", lr.Weight, "from", loc.Caller(1))

	w.in.Set(lr.Reg)
	w.q = append(w.q, lr)

	return true
}

func (w *worklist) pop() *live.LiveRange {
	if len(w.q) == 0 {
		return nil
	}

	lr := w.q[0]
	w.q = w.q[1:]
	w.in.Clear(lr.Reg)

	return lr
}

func (w *worklist) len() int {
	return len(w.q)
}
