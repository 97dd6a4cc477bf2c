package passmgr

import (
	"github.com/sirupsen/logrus"

	"kansoc/internal/analysis"
	"kansoc/internal/compilererr"
	"kansoc/internal/ir"
)

// Analyses is the view of analysis.Cache a Pass is handed: a thin
// per-function accessor so passes never import internal/analysis's
// Cache construction details directly.
type Analyses struct {
	cache *analysis.Cache
	fn    *ir.Function
}

func (a *Analyses) CFG() *analysis.CFG               { return a.cache.CFG(a.fn) }
func (a *Analyses) DFG() *analysis.DFG               { return a.cache.DFG(a.fn) }
func (a *Analyses) Liveness() *analysis.Liveness     { return a.cache.Liveness(a.fn) }
func (a *Analyses) Dominators() *analysis.Dominators { return a.cache.Dominators(a.fn) }
func (a *Analyses) For(fn *ir.Function) *Analyses    { return &Analyses{cache: a.cache, fn: fn} }

// Manager runs a fixed ordered list of passes to a fixed point: repeat
// the full pass list until a complete sweep over the list makes no
// change.
type Manager struct {
	passes []Pass
	cache  *analysis.Cache
	log    *logrus.Logger

	// MaxIterations bounds the fixed-point loop; a correctly-converging
	// pipeline never needs more than a handful, but runaway oscillation
	// between two passes (one undoing the other's rewrite) must not hang
	// the compiler.
	MaxIterations int
}

func NewManager(log *logrus.Logger, passes ...Pass) *Manager {
	if log == nil {
		log = logrus.New()
	}
	return &Manager{passes: passes, cache: analysis.NewCache(), log: log, MaxIterations: 32}
}

// RunToFixedPoint runs every pass over every function (or the whole
// context, for context-scoped passes) repeatedly until no pass in a full
// sweep reports a change, then runs ir.Verify once more as a final
// sanity check.
func (m *Manager) RunToFixedPoint(ctx *ir.Context) error {
	for iter := 0; iter < m.MaxIterations; iter++ {
		anyChanged := false
		for _, pass := range m.passes {
			changed, err := m.runOne(ctx, pass)
			if err != nil {
				return &compilererr.PassError{Pass: pass.Name(), Cause: err}
			}
			if changed {
				anyChanged = true
				m.log.WithField("pass", pass.Name()).Debug("applied changes")
			}
		}
		if !anyChanged {
			m.log.WithField("iterations", iter+1).Info("optimization pipeline converged")
			return ir.Verify(ctx)
		}
	}
	m.log.WithField("max_iterations", m.MaxIterations).Warn("optimization pipeline did not converge; stopping")
	return ir.Verify(ctx)
}

func (m *Manager) runOne(ctx *ir.Context, pass Pass) (bool, error) {
	changed := false
	switch pass.Scope() {
	case ScopeContext:
		a := &Analyses{cache: m.cache}
		c, err := pass.RunContext(ctx, a)
		if err != nil {
			return false, err
		}
		changed = c
	default:
		for _, fn := range ctx.OrderedFunctions() {
			a := &Analyses{cache: m.cache, fn: fn}
			c, err := pass.RunFunction(fn, a)
			if err != nil {
				return false, err
			}
			if c {
				changed = true
				m.invalidate(pass, fn)
			}
		}
	}
	if changed && pass.Scope() == ScopeContext {
		m.cache.InvalidateAll()
	}
	return changed, nil
}

func (m *Manager) invalidate(pass Pass, fn *ir.Function) {
	preserved := make(map[AnalysisKind]bool)
	for _, k := range pass.Preserves() {
		preserved[k] = true
	}
	if len(preserved) == 0 {
		m.cache.Invalidate(fn)
		return
	}
	// A pass that preserves every analysis it could invalidate is rare
	// enough (algebraic simplification on pure arithmetic, say) that we
	// only special-case "preserves everything"; any partial preservation
	// still forces a full recompute, since our cache has no per-analysis
	// granularity finer than per-function.
	all := []AnalysisKind{AnalysisCFG, AnalysisDFG, AnalysisLiveness, AnalysisDominators}
	for _, k := range all {
		if !preserved[k] {
			m.cache.Invalidate(fn)
			return
		}
	}
}
