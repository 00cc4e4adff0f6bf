// Package allocator is the driver: it reads a unit description, runs the
// allocation core over it and renders the resulting assignment.
//
// Units are independent; callers may process several in parallel as long as
// each gets its own Allocate call.
package allocator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/regalloc/allocator/alloc"
	"github.com/slowlang/regalloc/allocator/live"
	"github.com/slowlang/regalloc/allocator/parse"
	"github.com/slowlang/regalloc/allocator/unit"
)

type (
	// Report is the outcome of one unit.
	Report struct {
		Unit   *unit.Unit
		Result alloc.Result
	}

	// SlotSpiller hands out stack slots in spill order.
	SlotSpiller struct {
		next int
	}
)

func AllocateFile(ctx context.Context, name string) (*Report, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Allocate(ctx, name, text)
}

func Allocate(ctx context.Context, name string, text []byte) (rep *Report, err error) {
	u, err := parse.Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse unit")
	}

	return AllocateUnit(ctx, u)
}

func AllocateUnit(ctx context.Context, u *unit.Unit) (rep *Report, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "allocate unit", "name", u.Name)
	defer tr.Finish("err", &err)

	a := alloc.New(u.File, u, u, &SlotSpiller{})

	res, err := a.Run(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "alloc")
	}

	return &Report{Unit: u, Result: res}, nil
}

func (s *SlotSpiller) Spill(ctx context.Context, r live.VReg) (int, error) {
	slot := s.next
	s.next++

	tlog.SpanFromContext(ctx).V("spill").Printw("spill to slot", "reg", r, "slot", slot)

	return slot, nil
}

func (r *Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "unit %v\n", r.Unit.Name)

	for v, as := range r.Result.Assignments {
		v := live.VReg(v)

		switch as.Kind {
		case alloc.Assigned:
			fmt.Fprintf(&b, "%v\t%v\t%v\n", r.Unit.NameOf(v), as.Kind, r.Unit.File.Name(as.Reg))
		case alloc.Spilled:
			fmt.Fprintf(&b, "%v\t%v\tslot %d\n", r.Unit.NameOf(v), as.Kind, as.Slot)
		default:
			fmt.Fprintf(&b, "%v\t%v\n", r.Unit.NameOf(v), as.Kind)
		}
	}

	return b.String()
}
