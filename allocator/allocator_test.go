package allocator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/regalloc/allocator/alloc"
	"github.com/slowlang/regalloc/allocator/live"
)

const sample = `
unit smoke

reg x0 units q0
reg x1 units q1
reg sp units qsp
reserve sp

class gpr = x0 x1

vreg a class gpr weight 10 live 0:20
vreg b class gpr weight 5 live 5:15
vreg c class gpr weight 1 live 8:12
vreg dbg class gpr weight 1 debug live 0:4
`

func TestAllocate(t *testing.T) {
	ctx := context.Background()

	rep, err := Allocate(ctx, "sample", []byte(sample))
	require.NoError(t, err)

	res := rep.Result

	require.Equal(t, alloc.Assigned, res.Of(0).Kind)
	require.Equal(t, alloc.Assigned, res.Of(1).Kind)

	// both registers taken by heavier ranges
	require.Equal(t, alloc.Assignment{Kind: alloc.Spilled, Slot: 0}, res.Of(2))
	require.Equal(t, alloc.Discarded, res.Of(3).Kind)

	require.True(t, rep.Unit.Dropped(live.VReg(3)))

	t.Logf("report:\n%s", rep)
}

func TestReportString(t *testing.T) {
	rep, err := Allocate(context.Background(), "sample", []byte(sample))
	require.NoError(t, err)

	s := rep.String()

	require.True(t, strings.HasPrefix(s, "unit smoke\n"))
	require.Contains(t, s, "a\tassigned\tx0\n")
	require.Contains(t, s, "b\tassigned\tx1\n")
	require.Contains(t, s, "c\tspilled\tslot 0\n")
	require.Contains(t, s, "dbg\tdiscarded\n")
}

func TestAllocateParseError(t *testing.T) {
	_, err := Allocate(context.Background(), "bad", []byte("frob\n"))
	require.Error(t, err)
}

func TestAllocateFile(t *testing.T) {
	rep, err := AllocateFile(context.Background(), "testdata/fib.unit")
	require.NoError(t, err)

	res := rep.Result

	// hint honored
	require.Equal(t, "x0", rep.Unit.File.Name(res.Of(0).Reg))

	require.Equal(t, alloc.Assigned, res.Of(1).Kind)
	require.Equal(t, alloc.Assigned, res.Of(2).Kind)

	// w0 aliases x0 which is taken by the heavier n
	require.Equal(t, alloc.Spilled, res.Of(3).Kind)

	t.Logf("report:\n%s", rep)
}

func TestAllocateFileMissing(t *testing.T) {
	_, err := AllocateFile(context.Background(), "does-not-exist.unit")
	require.Error(t, err)
}
