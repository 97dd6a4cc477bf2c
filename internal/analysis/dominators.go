package analysis

import "kansoc/internal/ir"

// Dominators implements the Cooper-Harvey-Kennedy "A Simple, Fast
// Dominance Algorithm" (2001) engineer's algorithm: an iterative
// fixed-point over reverse postorder that converges in a handful of
// passes on typical CFGs, avoiding the Lengauer-Tarjan algorithm's
// bookkeeping for a modest constant-factor cost. CSE uses this to know
// whether a dominating duplicate is safe to reuse; mem2var uses its
// dominance frontiers to place phis.
type Dominators struct {
	idom  map[string]string
	order map[string]int // position in RPO, for the "intersect" walk
	cfg   *CFG
}

func BuildDominators(fn *ir.Function, cfg *CFG) *Dominators {
	rpo := cfg.ReversePostorder()
	order := make(map[string]int, len(rpo))
	for i, l := range rpo {
		order[l] = i
	}
	idom := map[string]string{rpo[0]: rpo[0]}

	changed := true
	for changed {
		changed = false
		for _, label := range rpo[1:] {
			var newIdom string
			first := true
			for _, p := range cfg.Predecessors(label) {
				if _, ok := idom[p]; !ok {
					continue
				}
				if first {
					newIdom = p
					first = false
					continue
				}
				newIdom = intersect(newIdom, p, idom, order)
			}
			if idom[label] != newIdom {
				idom[label] = newIdom
				changed = true
			}
		}
	}
	return &Dominators{idom: idom, order: order, cfg: cfg}
}

func intersect(a, b string, idom map[string]string, order map[string]int) string {
	for a != b {
		for order[a] > order[b] {
			a = idom[a]
		}
		for order[b] > order[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b (every path from entry to b
// passes through a), reflexively (a dominates a).
func (d *Dominators) Dominates(a, b string) bool {
	for b != "" {
		if b == a {
			return true
		}
		next := d.idom[b]
		if next == b {
			return a == b
		}
		b = next
	}
	return false
}

func (d *Dominators) IDom(label string) string { return d.idom[label] }

// Frontier computes the dominance frontier of every block: the set of
// blocks where two or more control paths reconverge right after passing
// through it. mem2var uses this (Cytron et al., "Efficiently Computing
// Static Single Assignment Form", 1991) to place exactly the phi nodes
// alloca promotion needs, rather than one per block.
func (d *Dominators) Frontier() map[string][]string {
	frontier := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for label, preds := range invert(d.cfg) {
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			runner := p
			for runner != d.idom[label] {
				if seen[runner] == nil {
					seen[runner] = make(map[string]bool)
				}
				if !seen[runner][label] {
					seen[runner][label] = true
					frontier[runner] = append(frontier[runner], label)
				}
				if d.idom[runner] == runner {
					break
				}
				runner = d.idom[runner]
			}
		}
	}
	return frontier
}

func invert(cfg *CFG) map[string][]string {
	out := make(map[string][]string)
	for label := range cfg.pred {
		out[label] = cfg.pred[label]
	}
	return out
}
