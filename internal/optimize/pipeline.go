package optimize

import (
	"github.com/sirupsen/logrus"

	"kansoc/internal/passmgr"
)

// DefaultPipeline builds the ordered pass list for a given
// passmgr.Options, honoring every disable toggle. Order
// matters: mem2var must run before the rest of the optimizer sees
// alloca-backed variables as real SSA values; SCCP before branch
// optimization so constant conditions are already folded; DCE last in
// each sweep so every other pass's garbage gets swept before the next
// fixed-point iteration re-evaluates convergence.
func DefaultPipeline(opts passmgr.Options, log *logrus.Logger) *passmgr.Manager {
	var passes []passmgr.Pass

	if !opts.DisableMem2Var {
		passes = append(passes, Mem2Var{})
	}
	if !opts.DisableSCCP {
		passes = append(passes, SCCP{})
	}
	if !opts.DisableAlgebraicOptimization {
		passes = append(passes, AlgebraicSimplification{})
	}
	if !opts.DisableBranchOptimization {
		passes = append(passes, BranchOptimization{})
	}
	if !opts.DisableSimplifyCFG {
		passes = append(passes, SimplifyCFG{})
	}
	if !opts.DisableCSE {
		passes = append(passes, CSE{})
	}
	if !opts.DisableLoadElimination {
		passes = append(passes, LoadElimination{})
	}
	if !opts.DisableDeadStoreElimination {
		passes = append(passes, DeadStoreElimination{})
	}
	if !opts.DisableInlining {
		passes = append(passes, Inline{Threshold: opts.InlineThreshold})
	}
	if !opts.DisableRemoveUnusedVariables {
		passes = append(passes, RemoveUnusedVariables{})
	}
	passes = append(passes, DCE{})

	if opts.OptimizationLevel == passmgr.OptNone {
		passes = []passmgr.Pass{DCE{}}
	}

	m := passmgr.NewManager(log, passes...)
	if opts.OptimizationLevel == passmgr.OptCodesize {
		m.MaxIterations = 64
	}
	return m
}
