// Package normalize prepares a function's CFG for the stack scheduler:
// every critical edge (a predecessor with multiple successors feeding a
// successor with multiple predecessors) is split with an inserted block,
// and every phi's label list is fixed up to match.
package normalize

import (
	"fmt"

	"kansoc/internal/analysis"
	"kansoc/internal/ir"
)

// Normalize splits every critical edge in fn and repoints phi labels and
// terminator targets accordingly. Must run after the optimizer's fixed
// point, since later mem2var/SCCP passes operate on a cleaner IR without
// normalization's synthetic blocks cluttering value numbering.
func Normalize(fn *ir.Function) {
	cfg := analysis.BuildCFG(fn)
	blockCounter := len(fn.Blocks)

	type edge struct{ from, to string }
	var critical []edge
	for _, blk := range fn.Blocks {
		succs := cfg.Successors(blk.Label)
		if len(succs) < 2 {
			continue
		}
		for _, s := range succs {
			if len(cfg.Predecessors(s)) >= 2 {
				critical = append(critical, edge{from: blk.Label, to: s})
			}
		}
	}

	for _, e := range critical {
		blockCounter++
		splitLabel := fmt.Sprintf("split%d", blockCounter)
		from := fn.BlockByLabel(e.from)
		to := fn.BlockByLabel(e.to)
		if from == nil || to == nil {
			continue
		}
		split := &ir.BasicBlock{Label: splitLabel, Func: fn}
		jmp, err := ir.NewInstruction(0, ir.OpJmp, []ir.Operand{ir.Label{Name: e.to}}, nil)
		if err != nil {
			continue
		}
		split.Terminator = jmp
		fn.Blocks = append(fn.Blocks, split)

		retarget(from.Terminator, e.to, splitLabel)
		retargetPhiLabels(to, e.from, splitLabel)
	}
}

func retarget(term *ir.Instruction, from, to string) {
	if term == nil {
		return
	}
	for i, op := range term.Operands {
		if lbl, ok := op.(ir.Label); ok && lbl.Name == from {
			term.Operands[i] = ir.Label{Name: to}
		}
	}
}

func retargetPhiLabels(blk *ir.BasicBlock, from, to string) {
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
