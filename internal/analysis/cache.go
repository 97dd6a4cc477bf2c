package analysis

import "kansoc/internal/ir"

// Cache memoizes per-function analyses so a pass declaring "requires
// CFG, DFG" doesn't recompute them if an earlier pass in the same
// fixed-point iteration already did; mutation invalidates.
type Cache struct {
	cfg        map[*ir.Function]*CFG
	dfg        map[*ir.Function]*DFG
	liveness   map[*ir.Function]*Liveness
	dominators map[*ir.Function]*Dominators
}

func NewCache() *Cache {
	return &Cache{
		cfg:        make(map[*ir.Function]*CFG),
		dfg:        make(map[*ir.Function]*DFG),
		liveness:   make(map[*ir.Function]*Liveness),
		dominators: make(map[*ir.Function]*Dominators),
	}
}

func (c *Cache) CFG(fn *ir.Function) *CFG {
	if v, ok := c.cfg[fn]; ok {
		return v
	}
	v := BuildCFG(fn)
	c.cfg[fn] = v
	return v
}

func (c *Cache) DFG(fn *ir.Function) *DFG {
	if v, ok := c.dfg[fn]; ok {
		return v
	}
	v := BuildDFG(fn)
	c.dfg[fn] = v
	return v
}

func (c *Cache) Liveness(fn *ir.Function) *Liveness {
	if v, ok := c.liveness[fn]; ok {
		return v
	}
	v := ComputeLiveness(fn, c.CFG(fn))
	c.liveness[fn] = v
	return v
}

func (c *Cache) Dominators(fn *ir.Function) *Dominators {
	if v, ok := c.dominators[fn]; ok {
		return v
	}
	v := BuildDominators(fn, c.CFG(fn))
	c.dominators[fn] = v
	return v
}

// Invalidate drops every cached analysis for fn. Any pass that mutates
// the CFG shape (branch folding, inlining, normalization) must call this
// before the next pass runs.
func (c *Cache) Invalidate(fn *ir.Function) {
	delete(c.cfg, fn)
	delete(c.dfg, fn)
	delete(c.liveness, fn)
	delete(c.dominators, fn)
}

// InvalidateAll drops every cached analysis for every function, used
// between fixed-point pipeline iterations where tracking per-function
// dirtiness isn't worth the bookkeeping.
func (c *Cache) InvalidateAll() {
	c.cfg = make(map[*ir.Function]*CFG)
	c.dfg = make(map[*ir.Function]*DFG)
	c.liveness = make(map[*ir.Function]*Liveness)
	c.dominators = make(map[*ir.Function]*Dominators)
}
