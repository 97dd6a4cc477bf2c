package codegen

import (
	"kansoc/internal/analysis"
	"kansoc/internal/ir"
)

// Schedule lowers one function to a flat Item stream: layout-in for the
// entry block is empty; a single-predecessor block inherits its
// predecessor's layout-out filtered to live-in values; a block with
// multiple predecessors (only possible post-normalization at a split
// block's own single-predecessor join, since normalize.Normalize already
// split every true critical edge) takes the intersection of predecessor
// layout-outs. Each predecessor's own prologue shuffling happens when
// that predecessor's layout-out is computed, not retroactively.
func Schedule(fn *ir.Function, liveness *analysis.Liveness, cfg *analysis.CFG) []Item {
	var out []Item
	layoutOut := make(map[string][]*ir.Value)
	assertFail := ""

	for _, label := range cfg.ReversePostorder() {
		blk := fn.BlockByLabel(label)
		if blk == nil {
			continue
		}
		layoutIn := computeLayoutIn(blk, cfg, layoutOut, liveness)
		out = append(out, Item{Kind: KindLabelDef, Label: blk.Label})
		model := NewStackModel(layoutIn)

		for _, inst := range blk.AllInstructions() {
			switch inst.Op {
			case ir.OpPhi:
				// Already resolved into layoutIn by resolvePhis: the
				// phi's Result is the value actually sitting on the
				// model stack at this point, so nothing more to emit.
				continue
			case ir.OpParam:
				// Parameters arrive on the stack per the calling
				// convention before the entry block executes; `param`
				// is a defining marker, not bytecode.
				model.Push(inst.Result)
				continue
			case ir.OpNop:
				continue
			case ir.OpAssert:
				if assertFail == "" {
					assertFail = fn.Name + "$assert_fail"
				}
				scheduleAssert(inst, model, assertFail, &out)
				continue
			}
			scheduleInstruction(inst, model, liveness, blk.Label, &out)
		}
		layoutOut[blk.Label] = model.Snapshot()
	}

	// Shared trap target for every assert in the function: the condition
	// already failed, so execution lands on INVALID.
	if assertFail != "" {
		out = append(out, Item{Kind: KindLabelDef, Label: assertFail})
		out = append(out, Item{Kind: KindOpcode, Opcode: 0xfe}) // INVALID
	}
	return out
}

// scheduleAssert lowers `assert cond` to a conditional trap: the
// negated condition jumps to the function's shared INVALID block.
func scheduleAssert(inst *ir.Instruction, model *StackModel, failLabel string, out *[]Item) {
	emit := func(it Item) { *out = append(*out, it) }
	modeled := false
	switch v := inst.Operands[0].(type) {
	case *ir.Value:
		model.Materialize(v, false, emit)
		modeled = true
	case ir.Literal:
		emit(Item{Kind: KindPushLiteral, Literal: literalBytes(v)})
	}
	emit(Item{Kind: KindOpcode, Opcode: 0x15}) // ISZERO
	emit(Item{Kind: KindPushLabel, Label: failLabel})
	emit(Item{Kind: KindOpcode, Opcode: 0x57}) // JUMPI
	if modeled {
		model.Pop()
	}
}

func computeLayoutIn(blk *ir.BasicBlock, cfg *analysis.CFG, layoutOut map[string][]*ir.Value, liveness *analysis.Liveness) []*ir.Value {
	preds := cfg.Predecessors(blk.Label)
	if len(preds) == 0 {
		return nil
	}
	if len(preds) == 1 {
		return filterLiveIn(layoutOut[preds[0]], blk.Label, liveness)
	}
	// Intersection of predecessor layout-outs, order taken from the
	// first predecessor; real stack-shuffle reconciliation across
	// multiple predecessors belongs to each predecessor's own
	// layout-out-to-layout-in transition, synthesized when that edge is
	// not already uniform (future work: per-edge shuffle insertion).
	// A variable merged by a phi in blk holds a different SSA value on
	// each predecessor path, so it never survives a raw identity
	// intersection; phiReplacements maps each predecessor-side value
	// (keyed off the first predecessor, same convention as the rest of
	// this function) to the phi's own Result. A substituted position is
	// kept unconditionally rather than run through filterLiveIn: the
	// phi's Result is defined inside blk itself, so plain liveness
	// correctly excludes it from LiveIn[blk] even though it is exactly
	// what must already be on the stack the moment blk starts.
	repl := phiReplacements(blk, preds[0])
	base := layoutOut[preds[0]]
	var out []*ir.Value
	for _, v := range base {
		if r, ok := repl[v]; ok {
			out = append(out, r)
			continue
		}
		if !presentInAllOthers(v, preds[1:], layoutOut) {
			continue
		}
		if liveness.IsLiveIn(blk.Label, v) {
			out = append(out, v)
		}
	}
	return out
}

// phiReplacements maps, for every phi in blk, the value it receives from
// firstPred to the phi's own Result.
func phiReplacements(blk *ir.BasicBlock, firstPred string) map[*ir.Value]*ir.Value {
	repl := make(map[*ir.Value]*ir.Value)
	for _, inst := range blk.AllInstructions() {
		if inst.Op != ir.OpPhi {
			continue
		}
		for i, label := range inst.PhiLabels {
			if label == firstPred {
				if v, ok := inst.Operands[i].(*ir.Value); ok {
					repl[v] = inst.Result
				}
				break
			}
		}
	}
	return repl
}

func presentInAllOthers(v *ir.Value, others []string, layoutOut map[string][]*ir.Value) bool {
	for _, p := range others {
		found := false
		for _, ov := range layoutOut[p] {
			if ov == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func filterLiveIn(values []*ir.Value, block string, liveness *analysis.Liveness) []*ir.Value {
	var out []*ir.Value
	for _, v := range values {
		if liveness.IsLiveIn(block, v) {
			out = append(out, v)
		}
	}
	return out
}

func scheduleInstruction(inst *ir.Instruction, model *StackModel, liveness *analysis.Liveness, block string, out *[]Item) {
	emit := func(it Item) { *out = append(*out, it) }

	if inst.IsTerminator() {
		scheduleTerminator(inst, model, emit)
		return
	}

	if inst.Op == ir.OpStore {
		scheduleCopy(inst, model, liveness, block, emit)
		return
	}

	for i, op := range inst.Operands {
		switch v := op.(type) {
		case *ir.Value:
			lastUse := isLastOperandUse(inst, i, v)
			model.Materialize(v, lastUse, emit)
			if lastUse {
				model.Pop()
			}
		case ir.Literal:
			emit(Item{Kind: KindPushLiteral, Literal: literalBytes(v)})
		case ir.Label:
			emit(Item{Kind: KindPushLabel, Label: v.Name})
		}
	}
	emit(Item{Kind: KindOpcode, Opcode: targetOpcode(inst.Op)})
	if inst.Result != nil {
		model.Push(inst.Result)
		if !isLiveAfter(inst, block, liveness) {
			emit(Item{Kind: KindOpcode, Opcode: 0x50}) // POP
			model.Pop()
		}
	}
}

// scheduleCopy lowers the `store` SSA copy with no opcode of its own:
// the operand lands on top of the stack and is simply rebound to the
// result slot. Optimization normally folds every store away before
// codegen; this path exists so optimization_level=none still assembles.
func scheduleCopy(inst *ir.Instruction, model *StackModel, liveness *analysis.Liveness, block string, emit func(Item)) {
	switch v := inst.Operands[0].(type) {
	case *ir.Value:
		model.Materialize(v, false, emit)
		model.Pop()
	case ir.Literal:
		emit(Item{Kind: KindPushLiteral, Literal: literalBytes(v)})
	}
	model.Push(inst.Result)
	if !isLiveAfter(inst, block, liveness) {
		emit(Item{Kind: KindOpcode, Opcode: 0x50}) // POP
		model.Pop()
	}
}

// isLastOperandUse is a conservative, instruction-local check: it only
// recognizes "this is the only place v appears in this instruction's own
// operand list", not the function-wide last use. Whole-program
// last-use tracking lives in the liveness analysis and is consulted via
// isLiveAfter for the result value; operand reuse within one
// instruction (e.g. `mul %x, %x`) intentionally always DUPs so the
// first occurrence survives for the second.
func isLastOperandUse(inst *ir.Instruction, idx int, v *ir.Value) bool {
	count := 0
	for _, op := range inst.Operands {
		if other, ok := op.(*ir.Value); ok && other == v {
			count++
		}
	}
	return count == 1
}

func isLiveAfter(inst *ir.Instruction, block string, liveness *analysis.Liveness) bool {
	if inst.Result == nil {
		return false
	}
	return liveness.IsLiveOut(block, inst.Result)
}

func scheduleTerminator(inst *ir.Instruction, model *StackModel, emit func(Item)) {
	switch inst.Op {
	case ir.OpJmp:
		lbl := inst.Operands[0].(ir.Label)
		emit(Item{Kind: KindPushLabel, Label: lbl.Name})
		emit(Item{Kind: KindOpcode, Opcode: 0x56}) // JUMP
	case ir.OpJnz:
		cond := inst.Operands[0]
		trueLbl := inst.Operands[1].(ir.Label)
		falseLbl := inst.Operands[2].(ir.Label)
		materializeOperand(cond, model, emit)
		emit(Item{Kind: KindPushLabel, Label: trueLbl.Name})
		emit(Item{Kind: KindOpcode, Opcode: 0x57}) // JUMPI
		emit(Item{Kind: KindPushLabel, Label: falseLbl.Name})
		emit(Item{Kind: KindOpcode, Opcode: 0x56}) // JUMP
	case ir.OpDjmp:
		materializeOperand(inst.Operands[0], model, emit)
		emit(Item{Kind: KindOpcode, Opcode: 0x56}) // JUMP
	case ir.OpReturn, ir.OpRevert:
		for _, op := range inst.Operands {
			materializeOperand(op, model, emit)
		}
		opcode := byte(0xf3)
		if inst.Op == ir.OpRevert {
			opcode = 0xfd
		}
		emit(Item{Kind: KindOpcode, Opcode: opcode})
	case ir.OpStop:
		emit(Item{Kind: KindOpcode, Opcode: 0x00})
	case ir.OpInvalid, ir.OpAssertUnreachable:
		emit(Item{Kind: KindOpcode, Opcode: 0xfe})
	case ir.OpRet, ir.OpExit:
		emit(Item{Kind: KindOpcode, Opcode: 0x00})
	}
}

func materializeOperand(op ir.Operand, model *StackModel, emit func(Item)) {
	switch v := op.(type) {
	case *ir.Value:
		model.Materialize(v, false, emit)
	case ir.Literal:
		emit(Item{Kind: KindPushLiteral, Literal: literalBytes(v)})
	case ir.Label:
		emit(Item{Kind: KindPushLabel, Label: v.Name})
	}
}

func literalBytes(l ir.Literal) []byte {
	if l.Value == nil {
		return []byte{0}
	}
	b := l.Value.Bytes()
	if len(b) == 0 {
		return []byte{0}
	}
	return b
}

// targetOpcode maps a pure/environment-read/effectful opcode to its
// target-VM byte. Control and pseudo opcodes are handled by
// scheduleTerminator or never reach codegen (mem2var/verify strip them
// earlier).
func targetOpcode(op ir.Opcode) byte {
	table := map[ir.Opcode]byte{
		ir.OpAdd: 0x01, ir.OpMul: 0x02, ir.OpSub: 0x03, ir.OpDiv: 0x04,
		ir.OpSDiv: 0x05, ir.OpMod: 0x06, ir.OpSMod: 0x07, ir.OpAddMod: 0x08,
		ir.OpMulMod: 0x09, ir.OpExp: 0x0a, ir.OpSignExtend: 0x0b,
		ir.OpLt: 0x10, ir.OpGt: 0x11, ir.OpSLt: 0x12, ir.OpSGt: 0x13,
		ir.OpEq: 0x14, ir.OpIsZero: 0x15, ir.OpAnd: 0x16, ir.OpOr: 0x17,
		ir.OpXor: 0x18, ir.OpNot: 0x19, ir.OpShl: 0x1b, ir.OpShr: 0x1c,
		ir.OpSar: 0x1d, ir.OpSha3: 0x20,
		ir.OpAddress: 0x30, ir.OpBalance: 0x31, ir.OpOrigin: 0x32,
		ir.OpCaller: 0x33, ir.OpCallValue: 0x34, ir.OpCalldataLoad: 0x35,
		ir.OpCalldataSize: 0x36, ir.OpCalldataCopy: 0x37, ir.OpCodeSize: 0x38,
		ir.OpCodeCopy: 0x39, ir.OpGasPrice: 0x3a, ir.OpExtCodeSize: 0x3b,
		ir.OpExtCodeCopy: 0x3c, ir.OpReturndataSize: 0x3d, ir.OpReturndataCopy: 0x3e,
		ir.OpExtCodeHash: 0x3f, ir.OpBlockHash: 0x40, ir.OpCoinbase: 0x41,
		ir.OpTimestamp: 0x42, ir.OpNumber: 0x43, ir.OpPrevRandao: 0x44,
		ir.OpDifficulty: 0x44, // same slot as prevrandao, pre-merge name
		ir.OpGasLimit: 0x45, ir.OpChainID: 0x46, ir.OpSelfBalance: 0x47,
		ir.OpBaseFee: 0x48, ir.OpBlobHash: 0x49, ir.OpBlobBaseFee: 0x4a,
		ir.OpMLoad: 0x51, ir.OpMStore: 0x52, ir.OpSLoad: 0x54,
		ir.OpSStore: 0x55, ir.OpMSize: 0x59, ir.OpGas: 0x5a,
		ir.OpTLoad: 0x5c, ir.OpTStore: 0x5d, ir.OpMCopy: 0x5e,
		ir.OpLog0: 0xa0, ir.OpLog1: 0xa1, ir.OpLog2: 0xa2, ir.OpLog3: 0xa3, ir.OpLog4: 0xa4,
		ir.OpCreate: 0xf0, ir.OpCall: 0xf1, ir.OpCreate2: 0xf5,
		ir.OpStaticCall: 0xfa, ir.OpDelegateCall: 0xf4, ir.OpSelfDestruct: 0xff,
	}
	if b, ok := table[op]; ok {
		return b
	}
	return 0xfe // INVALID: unmapped opcode should never reach codegen
}
