package optimize

import (
	"fmt"
	"sort"
	"strings"

	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// CSE value-numbers pure instructions by (opcode, canonicalized-operand-
// tuple); when a duplicate is found in a dominating block, uses of the
// later instruction's result are rewritten to the earlier one's.
// Commutative opcodes canonicalize operand order first; side-effectful
// opcodes are never considered.
type CSE struct{ passmgr.FunctionPass }

func (CSE) Name() string        { return "common-subexpression-elimination" }
func (CSE) Description() string { return "deduplicates pure instructions with identical operands" }
func (CSE) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDFG, passmgr.AnalysisDominators}
}
func (CSE) Preserves() []passmgr.AnalysisKind { return nil }

func (CSE) RunFunction(fn *ir.Function, a *passmgr.Analyses) (bool, error) {
	changed := false
	dom := a.Dominators()
	dfg := a.DFG()

	// seen[key] = list of (block label, result value) seen so far, in an
	// order consistent with dominance because we walk blocks in RPO.
	type entry struct {
		block  string
		result *ir.Value
	}
	seen := make(map[string][]entry)

	for _, label := range a.CFG().ReversePostorder() {
		blk := fn.BlockByLabel(label)
		if blk == nil {
			continue
		}
		for _, inst := range blk.Instructions {
			sig := ir.OpSignatures[inst.Op]
			if !sig.Pure || inst.Result == nil {
				continue
			}
			key := valueNumberKey(inst)
			var replaced bool
			for _, e := range seen[key] {
				if dom.Dominates(e.block, blk.Label) {
					dfg.ReplaceAllUsesWith(inst.Result, e.result)
					inst.Result = nil // marks it dead for DCE; operand slot already rewritten
					changed = true
					replaced = true
					break
				}
			}
			if !replaced {
				seen[key] = append(seen[key], entry{block: blk.Label, result: inst.Result})
			}
		}
	}
	if changed {
		removeNilResultDuplicates(fn)
	}
	return changed, nil
}

// removeNilResultDuplicates drops the now-pointless instructions CSE
// marked by nulling their Result; done in a follow-up sweep rather than
// in-loop so the block's instruction slice isn't mutated mid-range.
func removeNilResultDuplicates(fn *ir.Function) {
	for _, blk := range fn.Blocks {
		out := blk.Instructions[:0]
		for _, inst := range blk.Instructions {
			if ir.OpSignatures[inst.Op].Pure && inst.Result == nil && !isVoidPure(inst.Op) {
				continue
			}
			out = append(out, inst)
		}
		blk.Instructions = out
	}
}

// isVoidPure guards against stripping the rare pure-and-void opcode
// (there are none today, but a future addition to the catalog shouldn't
// silently vanish because of CSE's result-nulling convention).
func isVoidPure(op ir.Opcode) bool {
	return !ir.OpSignatures[op].HasResult
}

func valueNumberKey(inst *ir.Instruction) string {
	operands := make([]string, len(inst.Operands))
	for i, op := range inst.Operands {
		operands[i] = op.String()
	}
	if ir.CommutativeOpcodes[inst.Op] && len(operands) == 2 {
		sort.Strings(operands)
	}
	return fmt.Sprintf("%d(%s)", inst.Op, strings.Join(operands, ","))
}
