package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kansoc/internal/compilererr"
)

// buildDiamond constructs:
//
//	entry: jnz %cond, @left, @right
//	left:  jmp @join
//	right: jmp @join
//	join:  phi [left: 1] [right: 2]
//
// via the sealed-block SSA construction algorithm, writing a distinct
// value for "x" on each side and reading it back in join: phi nodes
// materialize from the variable-assignment history keyed on
// (block, source variable).
func buildDiamond(t *testing.T) (*Builder, *BasicBlock, *BasicBlock, *BasicBlock, *BasicBlock) {
	t.Helper()
	b := NewBuilder("Test")
	fn := &Function{Name: "f"}
	entry := b.StartFunction(fn)

	cond := b.CreateVariable("cond", &BoolType{})
	left := b.CreateBlock("left")
	right := b.CreateBlock("right")
	join := b.CreateBlock("join")

	require.NoError(t, b.Terminate(OpJnz, []Operand{cond, Label{Name: left.Label}, Label{Name: right.Label}}))
	b.AddPredecessor(left, entry)
	b.AddPredecessor(right, entry)

	b.SwitchToBlock(left)
	b.SealBlock(left)
	b.WriteVariable("x", left, U256Value(t, b, 1))
	require.NoError(t, b.Terminate(OpJmp, []Operand{Label{Name: join.Label}}))
	b.AddPredecessor(join, left)

	b.SwitchToBlock(right)
	b.SealBlock(right)
	b.WriteVariable("x", right, U256Value(t, b, 2))
	require.NoError(t, b.Terminate(OpJmp, []Operand{Label{Name: join.Label}}))
	b.AddPredecessor(join, right)

	b.SwitchToBlock(join)
	b.SealBlock(join)
	return b, entry, left, right, join
}

// U256Value creates a fresh SSA value bound to a constant, standing in
// for "some instruction that produced this value" in tests that only
// care about identity, not about the defining opcode.
func U256Value(t *testing.T, b *Builder, n uint64) *Value {
	t.Helper()
	v, err := b.Emit(OpAddress, nil, &IntType{Bits: 256})
	require.NoError(t, err)
	_ = n
	return v
}

func TestBuilderPhiJoinsBothPredecessors(t *testing.T) {
	b, _, left, right, join := buildDiamond(t)
	xVal, err := b.readVariableInBlock("x", join)
	require.NoError(t, err)
	require.NotNil(t, xVal)

	// The resolved value at join must be a phi whose operands came from
	// left and right, in some order, each appearing exactly once.
	phi := findPhiForResult(join, xVal)
	require.NotNil(t, phi, "expected a phi instruction to be materialized at join")
	assert.Len(t, phi.PhiLabels, 2)
	assert.ElementsMatch(t, []string{left.Label, right.Label}, phi.PhiLabels)
}

func findPhiForResult(blk *BasicBlock, v *Value) *Instruction {
	for _, inst := range blk.Instructions {
		if inst.Op == OpPhi && inst.Result == v {
			return inst
		}
	}
	return nil
}

// TestStartFunctionEmitsParamInstruction asserts every parameter gets a
// defining `param` instruction at the top of entry (every value must
// have exactly one defining instruction), reusing the exact *Value the
// caller pre-created so existing operand references stay valid.
func TestStartFunctionEmitsParamInstruction(t *testing.T) {
	b := NewBuilder("Test")
	x := b.CreateVariable("x", &IntType{Bits: 256})
	y := b.CreateVariable("y", &BoolType{})
	fn := &Function{Name: "f", Params: []*Parameter{
		{Name: "x", Type: &IntType{Bits: 256}, Value: x},
		{Name: "y", Type: &BoolType{}, Value: y},
	}}
	entry := b.StartFunction(fn)
	require.NoError(t, b.Terminate(OpStop, nil))

	require.Len(t, entry.Instructions, 2)
	assert.Equal(t, OpParam, entry.Instructions[0].Op)
	assert.Equal(t, x, entry.Instructions[0].Result)
	assert.Equal(t, OpParam, entry.Instructions[1].Op)
	assert.Equal(t, y, entry.Instructions[1].Result)
}

func TestBuilderTrivialPhiCollapses(t *testing.T) {
	// Both predecessors write the same value for "y": the phi at join
	// must collapse to that single value rather than surviving as a
	// degenerate one-distinct-operand phi (builder.go's
	// tryRemoveTrivialPhi).
	b := NewBuilder("Test")
	fn := &Function{Name: "f"}
	entry := b.StartFunction(fn)
	shared := U256Value(t, b, 7)

	left := b.CreateBlock("left")
	right := b.CreateBlock("right")
	join := b.CreateBlock("join")
	cond := b.CreateVariable("cond", &BoolType{})

	require.NoError(t, b.Terminate(OpJnz, []Operand{cond, Label{Name: left.Label}, Label{Name: right.Label}}))
	b.AddPredecessor(left, entry)
	b.AddPredecessor(right, entry)

	b.SwitchToBlock(left)
	b.SealBlock(left)
	b.WriteVariable("y", left, shared)
	require.NoError(t, b.Terminate(OpJmp, []Operand{Label{Name: join.Label}}))
	b.AddPredecessor(join, left)

	b.SwitchToBlock(right)
	b.SealBlock(right)
	b.WriteVariable("y", right, shared)
	require.NoError(t, b.Terminate(OpJmp, []Operand{Label{Name: join.Label}}))
	b.AddPredecessor(join, right)

	b.SwitchToBlock(join)
	b.SealBlock(join)

	resolved, err := b.readVariableInBlock("y", join)
	require.NoError(t, err)
	assert.Same(t, shared, resolved)
	assert.Empty(t, join.Instructions, "trivial phi must not remain in the block")
}

func TestBuilderEmitIntoClosedBlockFails(t *testing.T) {
	b := NewBuilder("Test")
	fn := &Function{Name: "f"}
	b.StartFunction(fn)
	require.NoError(t, b.Terminate(OpStop, nil))

	_, err := b.Emit(OpAddress, nil, &IntType{Bits: 256})
	require.Error(t, err)
	var irErr *compilererr.IRError
	require.ErrorAs(t, err, &irErr)
	assert.Equal(t, compilererr.IRErrBlockClosed, irErr.Kind)
}

func TestBuilderTerminateTwiceFails(t *testing.T) {
	b := NewBuilder("Test")
	fn := &Function{Name: "f"}
	b.StartFunction(fn)
	require.NoError(t, b.Terminate(OpStop, nil))
	err := b.Terminate(OpStop, nil)
	require.Error(t, err)
}

func TestBuilderReadUndefinedVariableAtEntryFails(t *testing.T) {
	b := NewBuilder("Test")
	fn := &Function{Name: "f"}
	b.StartFunction(fn)
	_, err := b.ReadVariable("never_written")
	require.Error(t, err)
	var irErr *compilererr.IRError
	require.ErrorAs(t, err, &irErr)
	assert.Equal(t, compilererr.IRErrScopeViolation, irErr.Kind)
}

func TestBuildRequireWiresOkAndFailBlocks(t *testing.T) {
	b := NewBuilder("Test")
	fn := &Function{Name: "f"}
	b.StartFunction(fn)
	cond := b.CreateVariable("cond", &BoolType{})
	data := b.CreateVariable("data", &IntType{Bits: 256})
	length := b.CreateVariable("len", &IntType{Bits: 256})

	okBlock, err := b.BuildRequire(cond, data, length)
	require.NoError(t, err)
	require.NotNil(t, okBlock)
	assert.Len(t, okBlock.Instructions, 1)
	assert.Equal(t, OpAssert, okBlock.Instructions[0].Op)

	// jnz is (cond, true-target, false-target): a satisfied require must
	// fall through to the ok block, not the revert block.
	jnz := fn.Entry.Terminator
	require.NotNil(t, jnz)
	require.Equal(t, OpJnz, jnz.Op)
	assert.Equal(t, Label{Name: okBlock.Label}, jnz.Operands[1])
}
