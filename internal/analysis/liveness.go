package analysis

import "kansoc/internal/ir"

// Liveness is a classic backward fixed-point dataflow analysis:
// LiveOut[b] = union of LiveIn[s] for s in succ(b);
// LiveIn[b] = Use[b] U (LiveOut[b] - Def[b]). Used by the stack
// scheduler to know which values must survive a block boundary.
type Liveness struct {
	LiveIn  map[string]map[*ir.Value]bool
	LiveOut map[string]map[*ir.Value]bool
}

func ComputeLiveness(fn *ir.Function, cfg *CFG) *Liveness {
	l := &Liveness{LiveIn: make(map[string]map[*ir.Value]bool), LiveOut: make(map[string]map[*ir.Value]bool)}
	use := make(map[string]map[*ir.Value]bool)
	def := make(map[string]map[*ir.Value]bool)
	for _, blk := range fn.Blocks {
		u := make(map[*ir.Value]bool)
		df := make(map[*ir.Value]bool)
		for _, inst := range blk.AllInstructions() {
			for _, op := range inst.Operands {
				if v, ok := op.(*ir.Value); ok && !df[v] {
					u[v] = true
				}
			}
			if inst.Result != nil {
				df[inst.Result] = true
			}
		}
		use[blk.Label] = u
		def[blk.Label] = df
		l.LiveIn[blk.Label] = make(map[*ir.Value]bool)
		l.LiveOut[blk.Label] = make(map[*ir.Value]bool)
	}

	changed := true
	for changed {
		changed = false
		for _, label := range fn.Blocks {
			out := make(map[*ir.Value]bool)
			for _, s := range cfg.Successors(label.Label) {
				for v := range l.LiveIn[s] {
					out[v] = true
				}
			}
			in := make(map[*ir.Value]bool)
			for v := range use[label.Label] {
				in[v] = true
			}
			for v := range out {
				if !def[label.Label][v] {
					in[v] = true
				}
			}
			if !sameSet(in, l.LiveIn[label.Label]) || !sameSet(out, l.LiveOut[label.Label]) {
				changed = true
			}
			l.LiveIn[label.Label] = in
			l.LiveOut[label.Label] = out
		}
	}
	return l
}

func sameSet(a, b map[*ir.Value]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}

func (l *Liveness) IsLiveOut(block string, v *ir.Value) bool { return l.LiveOut[block][v] }
func (l *Liveness) IsLiveIn(block string, v *ir.Value) bool  { return l.LiveIn[block][v] }
