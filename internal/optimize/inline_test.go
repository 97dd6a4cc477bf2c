package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// buildCallerCallee constructs:
//
//	double: entry: %d = add %x, %x; ret %d
//	caller: entry: %r = invoke @double, 21; return %r, 32
func buildCallerCallee(t *testing.T) (*ir.Context, *ir.Function, *ir.Function) {
	t.Helper()
	x := &ir.Value{ID: 1, Name: "x"}
	d := &ir.Value{ID: 2, Name: "d"}
	calleeEntry := &ir.BasicBlock{
		Label:        "entry",
		Instructions: []*ir.Instruction{mustInst(t, 1, ir.OpAdd, []ir.Operand{x, x}, d)},
		Terminator:   mustInst(t, 2, ir.OpRet, []ir.Operand{d}, nil),
	}
	callee := &ir.Function{
		Name:   "double",
		Entry:  calleeEntry,
		Params: []*ir.Parameter{{Name: "x", Value: x}},
		Blocks: []*ir.BasicBlock{calleeEntry},
	}

	r := &ir.Value{ID: 3, Name: "r"}
	callerEntry := &ir.BasicBlock{
		Label:        "entry",
		Instructions: []*ir.Instruction{mustInst(t, 3, ir.OpInvoke, []ir.Operand{ir.Label{Name: "double"}, ir.U256FromUint64(21)}, r)},
		Terminator:   mustInst(t, 4, ir.OpReturn, []ir.Operand{r, ir.U256FromUint64(32)}, nil),
	}
	caller := &ir.Function{Name: "caller", Entry: callerEntry, Blocks: []*ir.BasicBlock{callerEntry}}

	ctx := ir.NewContext("Test")
	ctx.AddFunction(callee)
	ctx.AddFunction(caller)
	return ctx, caller, callee
}

func TestInlineSplicesCalleeAndBindsLiteralArgument(t *testing.T) {
	ctx, caller, _ := buildCallerCallee(t)

	mgr := passmgr.NewManager(nil, Inline{Threshold: 24})
	require.NoError(t, mgr.RunToFixedPoint(ctx))

	// The invoke is gone; the caller entry jumps into the callee copy.
	require.Empty(t, caller.Entry.Instructions)
	require.Equal(t, ir.OpJmp, caller.Entry.Terminator.Op)

	// Somewhere in the caller, the cloned add consumes the literal 21 in
	// both operand slots (the parameter was bound to the call argument,
	// not to a dangling copy of the callee's param value).
	var add *ir.Instruction
	var ret *ir.Instruction
	for _, blk := range caller.Blocks {
		for _, inst := range blk.AllInstructions() {
			if inst.Op == ir.OpAdd {
				add = inst
			}
			if inst.Op == ir.OpReturn {
				ret = inst
			}
		}
	}
	require.NotNil(t, add, "the callee body must be spliced into the caller")
	for _, operand := range add.Operands {
		lit, ok := operand.(ir.Literal)
		require.True(t, ok, "parameter uses must be rewritten to the literal argument")
		assert.Equal(t, uint64(21), lit.Value.Uint64())
	}

	// The continuation still returns, and its operand is the cloned add's
	// result rather than the dead invoke result.
	require.NotNil(t, ret)
	assert.Same(t, add.Result, ret.Operands[0])

	require.NoError(t, ir.Verify(ctx))
}

func TestInlineSkipsRecursiveCallee(t *testing.T) {
	x := &ir.Value{ID: 1, Name: "x"}
	r := &ir.Value{ID: 2, Name: "r"}
	entry := &ir.BasicBlock{
		Label:        "entry",
		Instructions: []*ir.Instruction{mustInst(t, 1, ir.OpInvoke, []ir.Operand{ir.Label{Name: "loop"}, x}, r)},
		Terminator:   mustInst(t, 2, ir.OpRet, []ir.Operand{r}, nil),
	}
	fn := &ir.Function{Name: "loop", Entry: entry, Params: []*ir.Parameter{{Name: "x", Value: x}}, Blocks: []*ir.BasicBlock{entry}}
	ctx := ctxWithFunction(fn)

	mgr := passmgr.NewManager(nil, Inline{Threshold: 100})
	require.NoError(t, mgr.RunToFixedPoint(ctx))

	// Inlining a self-recursive callee must be a silent no-op.
	require.Len(t, fn.Blocks, 1)
	require.Len(t, entry.Instructions, 1)
	assert.Equal(t, ir.OpInvoke, entry.Instructions[0].Op)
}

func TestInlineSingleCallSiteIgnoresThreshold(t *testing.T) {
	ctx, caller, _ := buildCallerCallee(t)

	mgr := passmgr.NewManager(nil, Inline{Threshold: 0})
	require.NoError(t, mgr.RunToFixedPoint(ctx))

	require.Empty(t, caller.Entry.Instructions, "a single-call-site callee inlines even over the threshold")
	require.Equal(t, ir.OpJmp, caller.Entry.Terminator.Op)
}
