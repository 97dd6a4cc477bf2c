package codegen

import "kansoc/internal/ir"

// StackModel tracks the compile-time-known contents of the operand
// stack during scheduling, bottom-to-top, so DUP/SWAP/POP synthesis
// never has to search the real machine state (there isn't one yet).
type StackModel struct {
	slots []*ir.Value
}

func NewStackModel(layoutIn []*ir.Value) *StackModel {
	return &StackModel{slots: append([]*ir.Value(nil), layoutIn...)}
}

func (s *StackModel) Push(v *ir.Value) { s.slots = append(s.slots, v) }

func (s *StackModel) Pop() *ir.Value {
	if len(s.slots) == 0 {
		return nil
	}
	v := s.slots[len(s.slots)-1]
	s.slots = s.slots[:len(s.slots)-1]
	return v
}

// depthOf returns the 0-based distance from the top of the stack to v's
// nearest occurrence, or -1 if v isn't present.
func (s *StackModel) depthOf(v *ir.Value) int {
	for i := len(s.slots) - 1; i >= 0; i-- {
		if s.slots[i] == v {
			return len(s.slots) - 1 - i
		}
	}
	return -1
}

// Snapshot returns the current stack contents bottom-to-top, the
// layout-out a block hands to its successors.
func (s *StackModel) Snapshot() []*ir.Value { return append([]*ir.Value(nil), s.slots...) }

// dup duplicates the value at depth d (0 = top) to the top, matching
// the target VM's DUP1..DUP16.
func (s *StackModel) dup(d int) {
	v := s.slots[len(s.slots)-1-d]
	s.slots = append(s.slots, v)
}

// swap exchanges the top of stack with the value at depth d (d>=1),
// matching the target VM's SWAP1..SWAP16.
func (s *StackModel) swap(d int) {
	top := len(s.slots) - 1
	other := top - d
	s.slots[top], s.slots[other] = s.slots[other], s.slots[top]
}

// Materialize emits whatever DUP/SWAP/POP sequence brings v to the
// stack top. If consume is true and v has no remaining uses, the
// existing occurrence is moved (via SWAP-to-top) rather than duplicated;
// otherwise it is DUP'd, preserving the original for later uses.
func (s *StackModel) Materialize(v *ir.Value, consume bool, emit func(Item)) {
	d := s.depthOf(v)
	if d < 0 {
		return // literal/label operands never live on the model stack
	}
	if consume {
		if d == 0 {
			return // already on top and being consumed; nothing to emit
		}
		s.swap(d)
		emitSwap(d, emit)
		return
	}
	// Preserving a value that's already on top still needs a DUP: the
	// original must survive underneath for its later use, e.g. the first
	// operand of `mul %x, %x` when %x was just produced by the prior
	// instruction.
	s.dup(d)
	emitDup(d, emit)
}

func emitDup(depth int, emit func(Item)) {
	emit(Item{Kind: KindOpcode, Opcode: dupOpcode(depth)})
}

func emitSwap(depth int, emit func(Item)) {
	emit(Item{Kind: KindOpcode, Opcode: swapOpcode(depth)})
}

// dupOpcode/swapOpcode return the target VM's DUP<n>/SWAP<n> byte for a
// 0-based depth (DUP1 duplicates the current top, i.e. depth 0).
func dupOpcode(depth int) byte { return 0x80 + byte(depth) }
func swapOpcode(depth int) byte { return 0x90 + byte(depth-1) }
