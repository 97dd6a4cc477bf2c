package optimize

import (
	"fmt"

	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// Inline substitutes a callee's body at its call site when the callee's
// instruction count (terminator included) is at or below Threshold, or
// when the call site is the callee's only one. The callee's values and
// labels are alpha-renamed before splicing; its entry block is stitched
// into the caller via a new edge, and every `ret` becomes a `jmp` to a
// freshly created continuation block that phi-merges the return values.
// Recursive callees (any cycle through the static call graph) are
// skipped silently.
type Inline struct {
	passmgr.ContextPass
	Threshold int
}

func (Inline) Name() string        { return "function-inlining" }
func (Inline) Description() string { return "inlines small or single-call-site callees" }
func (Inline) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG}
}
func (Inline) Preserves() []passmgr.AnalysisKind { return nil }

func (p Inline) RunContext(ctx *ir.Context, a *passmgr.Analyses) (bool, error) {
	sizes := make(map[string]int)
	for _, fn := range ctx.OrderedFunctions() {
		sizes[fn.Name] = instructionCount(fn)
	}
	callSites := countCallSites(ctx)
	recursive := recursiveFunctions(ctx)

	// One site per function per sweep: the pass manager re-runs to a
	// fixed point, and inlining invalidates the block list mid-scan.
	changed := false
	for _, fn := range ctx.OrderedFunctions() {
		if inlineFirstEligible(ctx, fn, sizes, callSites, recursive, p.Threshold) {
			changed = true
		}
	}
	return changed, nil
}

func instructionCount(fn *ir.Function) int {
	n := 0
	for _, blk := range fn.Blocks {
		n += len(blk.Instructions)
		if blk.Terminator != nil {
			n++
		}
	}
	return n
}

// countCallSites tallies invoke sites per callee across the whole
// context, for the "single call site" eligibility rule.
func countCallSites(ctx *ir.Context) map[string]int {
	counts := make(map[string]int)
	for _, fn := range ctx.OrderedFunctions() {
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Instructions {
				if callee, ok := invokeTarget(inst); ok {
					counts[callee]++
				}
			}
		}
	}
	return counts
}

// recursiveFunctions returns every function that can reach itself
// through the static call graph; inlining such a callee would diverge.
func recursiveFunctions(ctx *ir.Context) map[string]bool {
	edges := make(map[string][]string)
	for _, fn := range ctx.OrderedFunctions() {
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Instructions {
				if callee, ok := invokeTarget(inst); ok {
					edges[fn.Name] = append(edges[fn.Name], callee)
				}
			}
		}
	}
	result := make(map[string]bool)
	for name := range ctx.Functions {
		seen := make(map[string]bool)
		stack := append([]string(nil), edges[name]...)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if cur == name {
				result[name] = true
				break
			}
			if seen[cur] {
				continue
			}
			seen[cur] = true
			stack = append(stack, edges[cur]...)
		}
	}
	return result
}

func invokeTarget(inst *ir.Instruction) (string, bool) {
	if inst.Op != ir.OpInvoke || len(inst.Operands) == 0 {
		return "", false
	}
	lbl, ok := inst.Operands[0].(ir.Label)
	if !ok {
		return "", false
	}
	return lbl.Name, true
}

func inlineFirstEligible(ctx *ir.Context, fn *ir.Function, sizes, callSites map[string]int, recursive map[string]bool, threshold int) bool {
	for _, blk := range fn.Blocks {
		for i, inst := range blk.Instructions {
			calleeName, ok := invokeTarget(inst)
			if !ok {
				continue
			}
			callee, exists := ctx.Functions[calleeName]
			if !exists || callee == fn || callee.Entry == nil || recursive[calleeName] {
				continue
			}
			if sizes[calleeName] > threshold && callSites[calleeName] != 1 {
				continue
			}
			inlineCallSite(fn, blk, i, callee)
			return true
		}
	}
	return false
}

// inlineCallSite splices an alpha-renamed copy of callee in place of the
// invoke at blk.Instructions[idx]. The caller block is split: everything
// after the call moves to a continuation block, the caller jumps into
// the callee copy's entry, and each copied `ret` jumps to the
// continuation, whose phi merges the return values when there is more
// than one returning path.
func inlineCallSite(fn *ir.Function, blk *ir.BasicBlock, idx int, callee *ir.Function) {
	call := blk.Instructions[idx]

	cont := &ir.BasicBlock{Label: uniqueLabel(fn, blk.Label+"_cont"), Func: fn}
	cont.Instructions = append(cont.Instructions, blk.Instructions[idx+1:]...)
	for _, inst := range cont.Instructions {
		inst.Parent = cont
	}
	cont.Terminator = blk.Terminator
	if cont.Terminator != nil {
		cont.Terminator.Parent = cont
		for _, succLabel := range cont.Terminator.Successors() {
			if succ := fn.BlockByLabel(succLabel); succ != nil {
				retargetPhiLabel(succ, blk.Label, cont.Label)
			}
		}
	}
	blk.Instructions = blk.Instructions[:idx]
	blk.Terminator = nil

	// Bind parameters to the call-site arguments (values or literals),
	// and pre-mint a fresh value for every result the copy will define,
	// so forward references (loop back-edge phis) resolve in one pass.
	subst := make(map[*ir.Value]ir.Operand)
	for pi, p := range callee.Params {
		if pi+1 < len(call.Operands) && p.Value != nil {
			subst[p.Value] = call.Operands[pi+1]
		}
	}
	prefix := fmt.Sprintf("%s.%d", callee.Name, len(fn.Blocks))
	for _, cb := range callee.Blocks {
		for _, inst := range cb.AllInstructions() {
			if inst.Op == ir.OpParam || inst.Result == nil {
				continue
			}
			subst[inst.Result] = &ir.Value{
				ID:   inst.Result.ID,
				Name: fmt.Sprintf("%s.%s", prefix, valueName(inst.Result)),
				Type: inst.Result.Type,
			}
		}
	}

	labelMap := make(map[string]string, len(callee.Blocks))
	for _, cb := range callee.Blocks {
		labelMap[cb.Label] = uniqueLabel(fn, prefix+"_"+cb.Label)
	}

	var rets []retEdge
	var cloned []*ir.BasicBlock
	for _, cb := range callee.Blocks {
		nb := &ir.BasicBlock{Label: labelMap[cb.Label], Func: fn}
		for _, inst := range cb.Instructions {
			if inst.Op == ir.OpParam {
				continue
			}
			nb.Instructions = append(nb.Instructions, cloneInstruction(inst, subst, labelMap, nb))
		}
		t := cb.Terminator
		if t != nil && t.Op == ir.OpRet {
			edge := retEdge{label: nb.Label}
			if len(t.Operands) > 0 {
				edge.value = substituteOperand(t.Operands[0], subst)
			}
			rets = append(rets, edge)
			nb.Terminator = mustJmp(t.ID, ir.Label{Name: cont.Label})
			nb.Terminator.Parent = nb
		} else if t != nil {
			nb.Terminator = cloneInstruction(t, subst, labelMap, nb)
		}
		cloned = append(cloned, nb)
	}

	fn.Blocks = append(fn.Blocks, cloned...)
	fn.Blocks = append(fn.Blocks, cont)
	wireReturnValue(fn, cont, call, rets)

	blk.Terminator = mustJmp(call.ID, ir.Label{Name: labelMap[callee.Entry.Label]})
	blk.Terminator.Parent = blk
}

// retEdge records one returning path out of an inlined callee copy: the
// cloned block that ended in ret, and the operand it returned (nil for a
// void ret).
type retEdge struct {
	label string
	value ir.Operand
}

// wireReturnValue routes the callee's returned operand(s) into every use
// of the call's result: a single returning path substitutes directly, two
// or more merge through a phi at the top of the continuation block.
func wireReturnValue(fn *ir.Function, cont *ir.BasicBlock, call *ir.Instruction, rets []retEdge) {
	if call.Result == nil {
		return
	}
	var valued []retEdge
	for _, r := range rets {
		if r.value != nil {
			valued = append(valued, r)
		}
	}
	switch len(valued) {
	case 0:
		// Void callee: the call result has no defining ret, so it must
		// have no uses either (the front end never reads a void call).
	case 1:
		replaceOperandEverywhere(fn, call.Result, valued[0].value)
	default:
		labels := make([]string, len(valued))
		values := make([]ir.Operand, len(valued))
		for i, r := range valued {
			labels[i] = r.label
			values[i] = r.value
		}
		phi, err := ir.NewPhi(call.ID, call.Result, labels, values)
		if err != nil {
			return
		}
		phi.Parent = cont
		cont.Instructions = append([]*ir.Instruction{phi}, cont.Instructions...)
	}
}

func cloneInstruction(inst *ir.Instruction, subst map[*ir.Value]ir.Operand, labelMap map[string]string, parent *ir.BasicBlock) *ir.Instruction {
	clone := &ir.Instruction{ID: inst.ID, Op: inst.Op, Annotations: inst.Annotations, Parent: parent}
	if inst.Result != nil {
		if fresh, ok := subst[inst.Result].(*ir.Value); ok {
			clone.Result = fresh
		} else {
			clone.Result = inst.Result
		}
	}
	for _, op := range inst.Operands {
		op = substituteOperand(op, subst)
		if lbl, ok := op.(ir.Label); ok {
			if renamed, ok := labelMap[lbl.Name]; ok {
				op = ir.Label{Name: renamed}
			}
		}
		clone.Operands = append(clone.Operands, op)
	}
	for _, label := range inst.PhiLabels {
		if renamed, ok := labelMap[label]; ok {
			label = renamed
		}
		clone.PhiLabels = append(clone.PhiLabels, label)
	}
	return clone
}

func substituteOperand(op ir.Operand, subst map[*ir.Value]ir.Operand) ir.Operand {
	if v, ok := op.(*ir.Value); ok {
		if r, ok := subst[v]; ok {
			return r
		}
	}
	return op
}

// replaceOperandEverywhere rewrites every operand slot holding old with
// any replacement operand (value or literal), the inliner's counterpart
// to mem2var's value-only replaceValueEverywhere.
func replaceOperandEverywhere(fn *ir.Function, old *ir.Value, replacement ir.Operand) {
	for _, blk := range fn.Blocks {
		for _, inst := range blk.AllInstructions() {
			for i, op := range inst.Operands {
				if v, ok := op.(*ir.Value); ok && v == old {
					inst.Operands[i] = replacement
				}
			}
		}
	}
}

func retargetPhiLabel(blk *ir.BasicBlock, from, to string) {
	for _, inst := range blk.Instructions {
		if inst.Op != ir.OpPhi {
			continue
		}
		for i, label := range inst.PhiLabels {
			if label == from {
				inst.PhiLabels[i] = to
			}
		}
	}
}

func uniqueLabel(fn *ir.Function, base string) string {
	if fn.BlockByLabel(base) == nil {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if fn.BlockByLabel(candidate) == nil {
			return candidate
		}
	}
}

func valueName(v *ir.Value) string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("v%d", v.ID)
}
