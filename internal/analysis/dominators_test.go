package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kansoc/internal/ir"
)

func TestDominatorsOnDiamond(t *testing.T) {
	fn := buildDiamondFunc(t)
	cfg := BuildCFG(fn)
	dom := BuildDominators(fn, cfg)

	assert.True(t, dom.Dominates("entry", "left"))
	assert.True(t, dom.Dominates("entry", "right"))
	assert.True(t, dom.Dominates("entry", "join"), "entry dominates join through both paths")
	assert.False(t, dom.Dominates("left", "right"))
	assert.False(t, dom.Dominates("left", "join"), "join is reachable via right too, so left alone does not dominate it")
	assert.True(t, dom.Dominates("join", "join"), "a block dominates itself")
	assert.Equal(t, "entry", dom.IDom("join"))
}

func TestDominanceFrontierAtDiamondJoin(t *testing.T) {
	fn := buildDiamondFunc(t)
	cfg := BuildCFG(fn)
	dom := BuildDominators(fn, cfg)
	frontier := dom.Frontier()

	assert.Contains(t, frontier["left"], "join")
	assert.Contains(t, frontier["right"], "join")
	assert.NotContains(t, frontier["entry"], "join", "entry strictly dominates join, so join is not on entry's frontier")
}

func TestDominatorsOnLinearChain(t *testing.T) {
	fn := buildLinearChainFunc(t)
	cfg := BuildCFG(fn)
	dom := BuildDominators(fn, cfg)

	assert.True(t, dom.Dominates("a", "b"))
	assert.True(t, dom.Dominates("a", "c"))
	assert.True(t, dom.Dominates("b", "c"))
	assert.False(t, dom.Dominates("c", "a"))
}

// buildLinearChainFunc builds: a: jmp @b; b: jmp @c; c: stop
func buildLinearChainFunc(t *testing.T) *ir.Function {
	t.Helper()
	a := &ir.BasicBlock{Label: "a", Terminator: mustInst(t, 1, ir.OpJmp, []ir.Operand{ir.Label{Name: "b"}}, nil)}
	b := &ir.BasicBlock{Label: "b", Terminator: mustInst(t, 2, ir.OpJmp, []ir.Operand{ir.Label{Name: "c"}}, nil)}
	c := &ir.BasicBlock{Label: "c", Terminator: mustInst(t, 3, ir.OpStop, nil, nil)}
	return &ir.Function{Name: "f", Entry: a, Blocks: []*ir.BasicBlock{a, b, c}}
}
