package matrix

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/regalloc/allocator/live"
	"github.com/slowlang/regalloc/allocator/regfile"
)

func testFile(t *testing.T) (f *regfile.File, x0, w0, x1, sp regfile.PhysReg) {
	t.Helper()

	f = regfile.New()

	x0 = f.AddReg("x0", 0)
	w0 = f.AddReg("w0", 0)
	x1 = f.AddReg("x1", 1)
	sp = f.AddReg("sp", 2)

	f.AddClass("gpr", x0, x1)
	f.Reserve(sp)
	f.Freeze()

	return
}

func lr(v live.VReg, ranges ...live.Range) *live.LiveRange {
	return &live.LiveRange{Reg: v, Ranges: ranges, Weight: 1}
}

func TestCheckFree(t *testing.T) {
	f, x0, _, x1, _ := testFile(t)
	m := New(f)

	a := lr(0, live.Range{Start: 0, End: 10})

	kind, in := m.Check(a, x0)
	require.Equal(t, Free, kind)
	require.Empty(t, in)

	m.Assign(a, x0)

	// different unit stays free
	kind, _ = m.Check(lr(1, live.Range{Start: 5, End: 15}), x1)
	require.Equal(t, Free, kind)
}

func TestCheckVirtThroughAlias(t *testing.T) {
	f, x0, w0, _, _ := testFile(t)
	m := New(f)

	a := lr(0, live.Range{Start: 0, End: 10})
	m.Assign(a, x0)

	// w0 shares the unit with x0
	kind, in := m.Check(lr(1, live.Range{Start: 5, End: 15}), w0)
	require.Equal(t, Virt, kind)
	require.Equal(t, []live.VReg{0}, in)

	// no overlap in time, no interference
	kind, _ = m.Check(lr(2, live.Range{Start: 10, End: 20}), w0)
	require.Equal(t, Free, kind)
}

func TestCheckReserved(t *testing.T) {
	f, _, _, _, sp := testFile(t)
	m := New(f)

	kind, in := m.Check(lr(0, live.Range{Start: 0, End: 10}), sp)
	require.Equal(t, Unit, kind)
	require.Empty(t, in)
}

func TestUnassign(t *testing.T) {
	f, x0, _, _, _ := testFile(t)
	m := New(f)

	a := lr(0, live.Range{Start: 0, End: 10})
	m.Assign(a, x0)

	r, ok := m.RegOf(0)
	require.True(t, ok)
	require.Equal(t, x0, r)

	m.Unassign(0)

	_, ok = m.RegOf(0)
	require.False(t, ok)

	kind, _ := m.Check(lr(1, live.Range{Start: 0, End: 10}), x0)
	require.Equal(t, Free, kind)
}

func TestCollectsAllInterferers(t *testing.T) {
	f, x0, w0, _, _ := testFile(t)
	m := New(f)

	m.Assign(lr(0, live.Range{Start: 0, End: 4}), x0)
	m.Assign(lr(1, live.Range{Start: 6, End: 10}), w0)

	kind, in := m.Check(lr(2, live.Range{Start: 0, End: 20}), x0)
	require.Equal(t, Virt, kind)
	require.Equal(t, []live.VReg{0, 1}, in)
}

func TestCacheInvalidation(t *testing.T) {
	f, x0, _, _, _ := testFile(t)
	m := New(f)

	a := lr(0, live.Range{Start: 0, End: 10})

	m.Check(a, x0)

	kind, ok := m.Cached(0, x0)
	require.True(t, ok)
	require.Equal(t, Free, kind)

	m.Invalidate()

	_, ok = m.Cached(0, x0)
	require.False(t, ok)
}

func TestContractViolations(t *testing.T) {
	f, x0, _, _, sp := testFile(t)
	m := New(f)

	a := lr(0, live.Range{Start: 0, End: 10})
	m.Assign(a, x0)

	require.Panics(t, func() { m.Assign(a, x0) })
	require.Panics(t, func() { m.Assign(lr(1, live.Range{Start: 0, End: 4}), sp) })
	require.Panics(t, func() { m.Unassign(7) })
	require.Panics(t, func() { m.RangeOf(7) })
}
