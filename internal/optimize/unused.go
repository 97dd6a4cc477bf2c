package optimize

import (
	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// RemoveUnusedVariables drops parameters that no instruction in the
// function body reads. Unlike DCE (which removes dead instructions),
// this only trims the function's own parameter list and is scoped
// narrowly so it never changes a function's external calling
// convention for an `ext fn` (public ABI parameters are load-bearing
// even when unread, since callers still must supply them).
type RemoveUnusedVariables struct{ passmgr.FunctionPass }

func (RemoveUnusedVariables) Name() string { return "remove-unused-variables" }
func (RemoveUnusedVariables) Description() string {
	return "drops internal-function parameters with no remaining reads"
}
func (RemoveUnusedVariables) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisDFG}
}
func (RemoveUnusedVariables) Preserves() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDominators}
}

func (RemoveUnusedVariables) RunFunction(fn *ir.Function, a *passmgr.Analyses) (bool, error) {
	if fn.External || fn.Create || len(fn.Params) == 0 {
		return false, nil
	}
	dfg := a.DFG()
	changed := false
	kept := fn.Params[:0]
	for _, p := range fn.Params {
		if p.Value != nil && dfg.IsUnused(p.Value) {
			changed = true
			continue
		}
		kept = append(kept, p)
	}
	fn.Params = kept
	return changed, nil
}
