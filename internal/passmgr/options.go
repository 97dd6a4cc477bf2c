package passmgr

// OptimizationLevel selects the enabled pass set and iteration bound:
// none, gas, or codesize.
type OptimizationLevel string

const (
	OptNone     OptimizationLevel = "none"
	OptGas      OptimizationLevel = "gas"
	OptCodesize OptimizationLevel = "codesize"
)

// Options holds the pass toggles, one key per field, each defaulting
// to the enabled/zero value so a zero-value Options struct runs the
// full default pipeline.
type Options struct {
	OptimizationLevel OptimizationLevel

	DisableInlining               bool
	DisableCSE                    bool
	DisableSCCP                   bool
	DisableLoadElimination        bool
	DisableDeadStoreElimination   bool
	DisableAlgebraicOptimization  bool
	DisableBranchOptimization     bool
	DisableMem2Var                bool
	DisableSimplifyCFG            bool
	DisableRemoveUnusedVariables  bool

	// InlineThreshold is the callee instruction-count ceiling for
	// inlining: the callee's total instruction count including its
	// terminator, measured once before any inlining in the current fixed-point
	// iteration (so a callee doesn't shrink mid-iteration and become
	// inlinable only because an earlier inlining already gutted it).
	InlineThreshold int
}

// DefaultOptions matches optimization_level=gas: every pass enabled,
// a conservative inline threshold.
func DefaultOptions() Options {
	return Options{OptimizationLevel: OptGas, InlineThreshold: 24}
}
