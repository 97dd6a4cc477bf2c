package optimize

import (
	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// lattice cell state for one SSA value.
type cellState int

const (
	cellUnknown cellState = iota // bottom: not yet proven anything
	cellConst
	cellOverdefined // top: proven non-constant
)

type cell struct {
	state cellState
	value *ir.U256
}

// SCCP is sparse conditional constant propagation: a worklist
// algorithm propagating lattice facts over both SSA def-use
// edges and CFG edges simultaneously, so a block proven unreachable
// never contributes its (possibly bogus) facts to the lattice. On
// convergence, every value proven constant is replaced by its literal
// and unreachable blocks are dropped. Only pure opcodes are folded;
// anything with a side effect or an environment read stays overdefined
// unconditionally.
type SCCP struct{ passmgr.FunctionPass }

func (SCCP) Name() string        { return "sparse-conditional-constant-propagation" }
func (SCCP) Description() string { return "folds provably-constant values and prunes unreachable blocks" }
func (SCCP) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDFG}
}
func (SCCP) Preserves() []passmgr.AnalysisKind { return nil }

func (SCCP) RunFunction(fn *ir.Function, a *passmgr.Analyses) (bool, error) {
	cells := make(map[*ir.Value]*cell)
	blockReachable := make(map[string]bool)
	if fn.Entry != nil {
		blockReachable[fn.Entry.Label] = true
	}

	cfg := a.CFG()
	worklist := []string{}
	if fn.Entry != nil {
		worklist = append(worklist, fn.Entry.Label)
	}
	visitedBlockEdge := make(map[string]bool)

	for len(worklist) > 0 {
		label := worklist[0]
		worklist = worklist[1:]
		blk := fn.BlockByLabel(label)
		if blk == nil || !blockReachable[label] {
			continue
		}
		for _, inst := range blk.AllInstructions() {
			evalInstruction(inst, cells)
		}
		var succs []string
		if blk.Terminator != nil && blk.Terminator.Op == ir.OpJnz {
			if cond, ok := constOperand(blk.Terminator.Operands[0], cells); ok {
				targetIdx := 1
				if cond.IsZero() {
					targetIdx = 2
				}
				if lbl, ok := blk.Terminator.Operands[targetIdx].(ir.Label); ok {
					succs = []string{lbl.Name}
				}
			} else {
				succs = cfg.Successors(label)
			}
		} else {
			succs = cfg.Successors(label)
		}
		for _, s := range succs {
			if !blockReachable[s] {
				blockReachable[s] = true
				worklist = append(worklist, s)
			} else if !visitedBlockEdge[label+"->"+s] {
				worklist = append(worklist, s)
			}
			visitedBlockEdge[label+"->"+s] = true
		}
	}

	changed := false
	dfg := a.DFG()
	for v, c := range cells {
		if c.state == cellConst {
			lit := ir.Literal{Value: c.value}
			for _, use := range dfg.Uses(v) {
				use.Inst.Operands[use.Index] = lit
			}
			changed = true
		}
	}

	kept := fn.Blocks[:0]
	for _, blk := range fn.Blocks {
		if blk == fn.Entry || blockReachable[blk.Label] {
			kept = append(kept, blk)
			continue
		}
		changed = true
	}
	fn.Blocks = kept

	return changed, nil
}

func constOperand(op ir.Operand, cells map[*ir.Value]*cell) (*ir.U256, bool) {
	switch v := op.(type) {
	case ir.Literal:
		return v.Value, v.Value != nil
	case *ir.Value:
		if c, ok := cells[v]; ok && c.state == cellConst {
			return c.value, true
		}
	}
	return nil, false
}

func evalInstruction(inst *ir.Instruction, cells map[*ir.Value]*cell) {
	if inst.Result == nil {
		return
	}
	sig := ir.OpSignatures[inst.Op]
	if !sig.Pure {
		cells[inst.Result] = &cell{state: cellOverdefined}
		return
	}
	operands := make([]*ir.U256, len(inst.Operands))
	for i, op := range inst.Operands {
		v, ok := constOperand(op, cells)
		if !ok {
			cells[inst.Result] = &cell{state: cellOverdefined}
			return
		}
		operands[i] = v
	}
	result, ok := foldPure(inst.Op, operands)
	if !ok {
		cells[inst.Result] = &cell{state: cellOverdefined}
		return
	}
	cells[inst.Result] = &cell{state: cellConst, value: result}
}

// foldPure evaluates a pure opcode over constant operands, covering
// the full pure arithmetic/comparison/bitwise subset.
func foldPure(op ir.Opcode, ops []*ir.U256) (*ir.U256, bool) {
	if len(ops) == 0 {
		return nil, false
	}
	a := ops[0]
	var b *ir.U256
	if len(ops) > 1 {
		b = ops[1]
	}
	r := new(ir.U256)
	switch op {
	case ir.OpStore:
		return r.Set(a), true
	case ir.OpAdd:
		return r.Add(a, b), true
	case ir.OpSub:
		return r.Sub(a, b), true
	case ir.OpMul:
		return r.Mul(a, b), true
	case ir.OpDiv:
		if b.IsZero() {
			return new(ir.U256), true
		}
		return r.Div(a, b), true
	case ir.OpSDiv:
		return ir.SDiv(a, b), true
	case ir.OpMod:
		if b.IsZero() {
			return new(ir.U256), true
		}
		return r.Mod(a, b), true
	case ir.OpSMod:
		return ir.SMod(a, b), true
	case ir.OpAddMod:
		return r.AddMod(a, b, ops[2]), true
	case ir.OpMulMod:
		return r.MulMod(a, b, ops[2]), true
	case ir.OpAnd:
		return r.And(a, b), true
	case ir.OpOr:
		return r.Or(a, b), true
	case ir.OpXor:
		return r.Xor(a, b), true
	case ir.OpNot:
		return r.Not(a), true
	case ir.OpIsZero:
		if a.IsZero() {
			return ir.U256FromUint64(1).Value, true
		}
		return new(ir.U256), true
	case ir.OpEq:
		if a.Eq(b) {
			return ir.U256FromUint64(1).Value, true
		}
		return new(ir.U256), true
	case ir.OpLt:
		if a.Lt(b) {
			return ir.U256FromUint64(1).Value, true
		}
		return new(ir.U256), true
	case ir.OpGt:
		if a.Gt(b) {
			return ir.U256FromUint64(1).Value, true
		}
		return new(ir.U256), true
	case ir.OpSLt:
		if ir.SLt(a, b) {
			return ir.U256FromUint64(1).Value, true
		}
		return new(ir.U256), true
	case ir.OpSGt:
		if ir.SGt(a, b) {
			return ir.U256FromUint64(1).Value, true
		}
		return new(ir.U256), true
	case ir.OpShl:
		return r.Lsh(b, uint(a.Uint64())), true
	case ir.OpShr:
		return r.Rsh(b, uint(a.Uint64())), true
	case ir.OpSar:
		return ir.SAR(b, a.Uint64()), true
	case ir.OpExp:
		return r.Exp(a, b), true
	case ir.OpSignExtend:
		// operand order is (byte position, value), matching the target op
		return r.ExtendSign(b, a), true
	default:
		return nil, false
	}
}
