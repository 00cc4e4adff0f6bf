// Package alloc is the allocation decision engine: a worklist over live
// ranges, a first-fit probe of the resolved allocation order, and a
// lowest-weight eviction policy when nothing is free.
package alloc

import (
	"context"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/regalloc/allocator/live"
	"github.com/slowlang/regalloc/allocator/matrix"
	"github.com/slowlang/regalloc/allocator/regfile"
)

type (
	// Spiller materializes a spill: it rewrites the unit so the value
	// lives in memory and returns the slot it chose.
	Spiller interface {
		Spill(ctx context.Context, r live.VReg) (slot int, err error)
	}

	AssignKind int

	// Assignment is the final state of one virtual register.
	Assignment struct {
		Kind AssignKind
		Reg  regfile.PhysReg
		Slot int
	}

	Result struct {
		Assignments []Assignment // indexed by live.VReg
	}

	Alloc struct {
		file    *regfile.File
		prov    live.Provider
		hints   HintSource
		spiller Spiller

		mat *matrix.Matrix
		q   worklist

		res []Assignment
	}

	// cand is a register occupied by evictable assignments.
	// cost is the highest spill weight among them.
	cand struct {
		reg  regfile.PhysReg
		pos  int
		cost float64
		in   []live.VReg
	}

	// decision is what the engine tells the scheduler to do.
	// reg == NoReg means spill the incoming range.
	decision struct {
		reg   regfile.PhysReg
		evict []live.VReg
	}
)

const (
	Unassigned AssignKind = iota
	Assigned
	Spilled
	Discarded
)

// ErrUnableToAllocate is the explicit exhaustion outcome: no free register,
// no strictly cheaper eviction, and the range itself must not be spilled.
var ErrUnableToAllocate = errors.New("unable to allocate")

func New(f *regfile.File, prov live.Provider, hints HintSource, sp Spiller) *Alloc {
	if hints == nil {
		hints = NoHints{}
	}

	return &Alloc{
		file:    f,
		prov:    prov,
		hints:   hints,
		spiller: sp,
		mat:     matrix.New(f),
		q:       newWorklist(),
	}
}

// Run allocates every virtual register of the unit.
//
// Each range ends Assigned, Spilled or Discarded; the first failure
// (exhaustion, spiller error) aborts the unit.
func (a *Alloc) Run(ctx context.Context) (_ Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "alloc: run", "vregs", a.prov.NumVirtRegs())
	defer tr.Finish("err", &err)

	n := a.prov.NumVirtRegs()
	a.res = make([]Assignment, n)

	// Initial pass in ascending index order. Keeps output reproducible.
	for v := live.VReg(0); v < live.VReg(n); v++ {
		if a.prov.DebugOnly(v) {
			continue
		}

		a.q.push(a.prov.Range(v))
	}

	for a.q.len() != 0 {
		lr := a.q.pop()

		if a.prov.DebugOnly(lr.Reg) {
			// Became debug-only while queued. No assignment needed.
			a.res[lr.Reg] = Assignment{Kind: Discarded}
			a.prov.Drop(lr.Reg)

			tr.V("discard").Printw("discard debug-only", "reg", lr.Reg)

			continue
		}

		a.mat.Invalidate()

		d, err := a.selectOrSpill(ctx, lr)
		if err != nil {
			return Result{}, errors.Wrap(err, "reg %v", lr.Reg)
		}

		for _, v := range d.evict {
			a.mat.Unassign(v)
			a.res[v] = Assignment{}

			a.q.push(a.prov.Range(v))

			tr.Printw("evicted", "reg", v, "for", lr.Reg)
		}

		if d.reg != regfile.NoReg {
			a.mat.Assign(lr, d.reg)
			a.res[lr.Reg] = Assignment{Kind: Assigned, Reg: d.reg}

			tr.Printw("assigned", "reg", lr.Reg, "phys", a.file.Name(d.reg))

			continue
		}

		slot, err := a.spiller.Spill(ctx, lr.Reg)
		if err != nil {
			return Result{}, errors.Wrap(err, "spill reg %v", lr.Reg)
		}

		a.res[lr.Reg] = Assignment{Kind: Spilled, Slot: slot}

		tr.Printw("spilled", "reg", lr.Reg, "slot", slot)
	}

	return Result{Assignments: a.res}, nil
}

// selectOrSpill decides the fate of one live range. First-fit over the
// resolved order; occupied candidates are collected across the whole order
// and the cheapest one is evicted only if its cost is strictly below the
// incoming weight. The scheduler executes the decision.
func (a *Alloc) selectOrSpill(ctx context.Context, lr *live.LiveRange) (d decision, err error) {
	tr := tlog.SpanFromContext(ctx)

	base := a.file.Order(a.prov.Class(lr.Reg))
	hints, hard := a.hints.Hints(lr.Reg, base)
	probe := resolveOrder(base, hints, hard)

	if tr.If("order") {
		names := make([]string, len(probe))
		for i, r := range probe {
			names[i] = a.file.Name(r)
		}

		tr.Printw("allocation order", "reg", lr.Reg, "order", names, "hard", hard)
	}

	cands := heap.Heap[cand]{Less: candLess}

	for pos, p := range probe {
		kind, in := a.mat.Check(lr, p)

		tr.V("probe").Printw("probe", "reg", lr.Reg, "phys", a.file.Name(p), "kind", kind)

		switch kind {
		case matrix.Free:
			return decision{reg: p}, nil
		case matrix.Virt:
			cost := 0.0

			for _, v := range in {
				if w := a.mat.RangeOf(v).Weight; w > cost {
					cost = w
				}
			}

			cands.Push(cand{reg: p, pos: pos, cost: cost, in: in})
		default:
			// reserved or unit-level overlap, never evictable
		}
	}

	if cands.Len() != 0 {
		c := cands.Pop()

		// Strict less: an evicted range can never evict its evictor back,
		// so eviction chains descend in weight and terminate.
		if c.cost < lr.Weight {
			return decision{reg: c.reg, evict: c.in}, nil
		}
	}

	if lr.Unspillable() {
		return d, errors.Wrap(ErrUnableToAllocate, "probed %v registers", len(probe))
	}

	return decision{}, nil
}

func candLess(d []cand, i, j int) bool {
	if d[i].cost != d[j].cost {
		return d[i].cost < d[j].cost
	}

	return d[i].pos < d[j].pos
}

// Of returns the assignment of v.
func (r Result) Of(v live.VReg) Assignment {
	return r.Assignments[v]
}

func (k AssignKind) String() string {
	switch k {
	case Unassigned:
		return "unassigned"
	case Assigned:
		return "assigned"
	case Spilled:
		return "spilled"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}
