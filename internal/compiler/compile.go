package compiler

import (
	"kansoc/internal/analysis"
	"kansoc/internal/asm"
	"kansoc/internal/codegen"
	"kansoc/internal/compilererr"
	"kansoc/internal/ir"
	"kansoc/internal/normalize"
	"kansoc/internal/optimize"
	"kansoc/internal/passmgr"
)

// Compile is the downstream-driver entry point. Runs: verify ->
// optimize to a fixed point -> per-function normalize -> per-function
// schedule -> whole-context assemble. Any stage failure aborts with no
// partial bytecode.
func (s *Session) Compile(opts passmgr.Options) (*asm.Bytecode, error) {
	items, err := s.Assembly(opts)
	if err != nil {
		return nil, err
	}
	bytecode, err := asm.Assemble(items)
	if err != nil {
		return nil, err
	}
	return bytecode, nil
}

// Assembly runs the pipeline up to (but not including) label resolution,
// returning the flat pre-assembly item stream: verify, optimize to a
// fixed point, normalize each function, then schedule it.
func (s *Session) Assembly(opts passmgr.Options) ([]codegen.Item, error) {
	if err := ir.Verify(s.ctx); err != nil {
		return nil, err
	}

	mgr := optimize.DefaultPipeline(opts, s.log)
	if err := mgr.RunToFixedPoint(s.ctx); err != nil {
		return nil, err
	}

	var items []codegen.Item
	for _, fn := range s.ctx.OrderedFunctions() {
		// The scheduler has no cross-function call convention; every
		// internal call must have been inlined away by now.
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Instructions {
				if inst.Op == ir.OpInvoke {
					return nil, &compilererr.InvariantViolation{
						Pass:        "codegen",
						Description: "internal call in " + fn.Name + " was not inlined; raise inline_threshold or enable inlining",
					}
				}
			}
		}
		normalize.Normalize(fn)
		if err := verifyNormalized(fn); err != nil {
			return nil, err
		}
		cfg := analysis.BuildCFG(fn)
		liveness := analysis.ComputeLiveness(fn, cfg)
		items = append(items, codegen.Item{Kind: codegen.KindLabelDef, Label: functionEntryLabel(fn)})
		items = append(items, codegen.Schedule(fn, liveness, cfg)...)
	}
	return items, nil
}

func functionEntryLabel(fn *ir.Function) string { return "fn$" + fn.Name }

// verifyNormalized checks the normalizer's post-conditions: phi nodes
// only in blocks with >=2 predecessors, and every phi operand's label
// is an actual CFG predecessor.
func verifyNormalized(fn *ir.Function) error {
	cfg := analysis.BuildCFG(fn)
	for _, blk := range fn.Blocks {
		preds := cfg.Predecessors(blk.Label)
		for _, inst := range blk.Instructions {
			if inst.Op != ir.OpPhi {
				continue
			}
			if len(preds) < 2 {
				return &compilererr.InvariantViolation{Pass: "normalize", Description: "phi in block with fewer than two predecessors: " + blk.Label}
			}
			for _, label := range inst.PhiLabels {
				found := false
				for _, p := range preds {
					if p == label {
						found = true
						break
					}
				}
				if !found {
					return &compilererr.InvariantViolation{Pass: "normalize", Description: "phi operand label " + label + " is not a predecessor of " + blk.Label}
				}
			}
		}
	}
	return nil
}
