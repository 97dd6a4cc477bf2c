package ir

import (
	"fmt"

	"kansoc/internal/compilererr"
)

// Builder converts typed HIR into an IRContext one function at a time.
// It is the sole mechanism by which phi nodes are created: variable
// reads are resolved through a per-block definition map using the
// sealed-block / incomplete-phi algorithm of Braun et al., "Simple and
// Efficient Construction of Static Single Assignment Form" (2013).
type Builder struct {
	ctx *Context

	currentFunc  *Function
	currentBlock *BasicBlock

	valueCounter int
	blockCounter int
	instCounter  int

	// currentDefs[block][varName] = the SSA value live for varName at
	// the end of block, or a not-yet-resolved phi while being computed.
	currentDefs map[*BasicBlock]map[string]*Value

	// incompletePhis holds, for blocks not yet sealed (i.e. blocks whose
	// predecessor set isn't final yet), the phis that must be back-filled
	// once the block is sealed.
	incompletePhis map[*BasicBlock]map[string]*Instruction

	sealedBlocks map[*BasicBlock]bool

	// preds records predecessor blocks as they are wired by the caller
	// via AddPredecessor; the builder has no CFG analysis of its own.
	preds map[*BasicBlock][]*BasicBlock
}

func NewBuilder(contract string) *Builder {
	return &Builder{
		ctx:            NewContext(contract),
		currentDefs:    make(map[*BasicBlock]map[string]*Value),
		incompletePhis: make(map[*BasicBlock]map[string]*Instruction),
		sealedBlocks:   make(map[*BasicBlock]bool),
		preds:          make(map[*BasicBlock][]*BasicBlock),
	}
}

func (b *Builder) Context() *Context { return b.ctx }

// StartFunction begins a new function and positions the insertion point
// at its entry block, which is created sealed (entry has no predecessors
// to wait on). Each parameter gets a `param` instruction at the top of
// entry binding its index to its SSA value, so parameters satisfy
// the every-value-has-one-defining-instruction invariant instead of
// arriving as a value with no instruction behind it; the stack
// scheduler (internal/codegen) treats `param` as a
// calling-convention marker rather than something it emits bytecode for.
func (b *Builder) StartFunction(fn *Function) *BasicBlock {
	b.currentFunc = fn
	entry := b.CreateBlock("entry")
	fn.Entry = entry
	fn.Blocks = append(fn.Blocks, entry)
	b.currentBlock = entry
	b.SealBlock(entry)
	for i, p := range fn.Params {
		if p.Value == nil {
			p.Value = b.CreateVariable(p.Name, p.Type)
		}
		inst, err := NewInstruction(b.nextInstID(), OpParam, []Operand{U256FromUint64(uint64(i))}, p.Value)
		if err != nil {
			panic(err) // unreachable: param's signature is fixed and always satisfied here
		}
		inst.Parent = entry
		entry.Instructions = append(entry.Instructions, inst)
		b.WriteVariable(p.Name, entry, p.Value)
	}
	return entry
}

func (b *Builder) FinishFunction() {
	b.ctx.AddFunction(b.currentFunc)
	b.currentFunc = nil
	b.currentBlock = nil
}

// CreateVariable allocates a fresh SSA value. Identity is (ID, Name,
// Type); name is advisory and used only for IR-text readability.
func (b *Builder) CreateVariable(name string, t Type) *Value {
	b.valueCounter++
	return &Value{ID: b.valueCounter, Name: name, Type: t}
}

// createPhiValue mints the value a phi defines. The source-variable name
// is suffixed with the value id so two phis merging the same variable in
// different join blocks stay distinguishable in the printed IR.
func (b *Builder) createPhiValue(varName string) *Value {
	b.valueCounter++
	return &Value{ID: b.valueCounter, Name: fmt.Sprintf("%s_%d", varName, b.valueCounter)}
}

// CreateBlock allocates a new, initially-unsealed block in the current
// function. The caller wires predecessors with AddPredecessor before
// sealing it with SealBlock.
func (b *Builder) CreateBlock(label string) *BasicBlock {
	b.blockCounter++
	full := fmt.Sprintf("%s%d", label, b.blockCounter)
	blk := &BasicBlock{Label: full, Func: b.currentFunc}
	b.currentDefs[blk] = make(map[string]*Value)
	return blk
}

// AddPredecessor records a CFG edge pred -> blk prior to sealing blk.
// The builder has no independent CFG; this is how the front end (or a
// direct IR-construction test) tells it what analysis.CFG will later
// derive from terminators.
func (b *Builder) AddPredecessor(blk, pred *BasicBlock) {
	b.preds[blk] = append(b.preds[blk], pred)
}

// SealBlock finalizes a block's predecessor set, resolving every phi
// that had been left incomplete pending that information.
func (b *Builder) SealBlock(blk *BasicBlock) {
	for varName, phi := range b.incompletePhis[blk] {
		b.addPhiOperands(varName, blk, phi)
	}
	delete(b.incompletePhis, blk)
	b.sealedBlocks[blk] = true
}

// SwitchToBlock moves the insertion point.
func (b *Builder) SwitchToBlock(blk *BasicBlock) {
	b.currentBlock = blk
	if b.currentFunc != nil {
		found := false
		for _, existing := range b.currentFunc.Blocks {
			if existing == blk {
				found = true
				break
			}
		}
		if !found {
			b.currentFunc.Blocks = append(b.currentFunc.Blocks, blk)
		}
	}
}

// WriteVariable records that varName holds value val at the end of blk,
// the single mutation point the SSA construction algorithm needs.
func (b *Builder) WriteVariable(varName string, blk *BasicBlock, val *Value) {
	b.currentDefs[blk][varName] = val
}

// ReadVariable resolves the current SSA value bound to varName visible
// at the end of the current insertion block.
func (b *Builder) ReadVariable(varName string) (*Value, error) {
	return b.readVariableInBlock(varName, b.currentBlock)
}

func (b *Builder) readVariableInBlock(varName string, blk *BasicBlock) (*Value, error) {
	if val, ok := b.currentDefs[blk][varName]; ok {
		return val, nil
	}
	return b.readVariableRecursive(varName, blk)
}

func (b *Builder) readVariableRecursive(varName string, blk *BasicBlock) (*Value, error) {
	var val *Value
	if !b.sealedBlocks[blk] {
		// Predecessors aren't final yet: emit an incomplete phi as a
		// placeholder and record it for back-filling at SealBlock time.
		phiVal := b.createPhiValue(varName)
		phi, err := NewPhi(b.nextInstID(), phiVal, nil, nil)
		if err != nil {
			return nil, err
		}
		phi.Parent = blk
		b.prependPhi(blk, phi)
		if b.incompletePhis[blk] == nil {
			b.incompletePhis[blk] = make(map[string]*Instruction)
		}
		b.incompletePhis[blk][varName] = phi
		val = phiVal
	} else if len(b.preds[blk]) == 1 {
		var err error
		val, err = b.readVariableInBlock(varName, b.preds[blk][0])
		if err != nil {
			return nil, err
		}
	} else if len(b.preds[blk]) == 0 {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("undefined variable %q reaches entry of %s", varName, blk.Label)}
	} else {
		phiVal := b.createPhiValue(varName)
		phi, err := NewPhi(b.nextInstID(), phiVal, nil, nil)
		if err != nil {
			return nil, err
		}
		phi.Parent = blk
		b.WriteVariable(varName, blk, phiVal)
		b.prependPhi(blk, phi)
		val = phiVal
		if err := b.addPhiOperands(varName, blk, phi); err != nil {
			return nil, err
		}
		return val, nil
	}
	b.WriteVariable(varName, blk, val)
	return val, nil
}

func (b *Builder) addPhiOperands(varName string, blk *BasicBlock, phi *Instruction) error {
	for _, pred := range b.preds[blk] {
		v, err := b.readVariableInBlock(varName, pred)
		if err != nil {
			return err
		}
		phi.Operands = append(phi.Operands, v)
		phi.PhiLabels = append(phi.PhiLabels, pred.Label)
	}
	return b.tryRemoveTrivialPhi(phi)
}

// tryRemoveTrivialPhi collapses a phi whose operands are all the same
// value (or itself) to that value. This is the one optimization Braun
// et al. fold directly into construction because deferring it would
// leave degenerate single-operand phis all over straight-line code.
func (b *Builder) tryRemoveTrivialPhi(phi *Instruction) error {
	var same *Value
	for _, op := range phi.Operands {
		v, ok := op.(*Value)
		if !ok {
			return nil
		}
		if same != nil && v == same {
			continue
		}
		if v == phi.Result {
			continue
		}
		if same != nil {
			return nil // genuinely non-trivial
		}
		same = v
	}
	if same == nil {
		return nil
	}
	if phi.Parent != nil {
		for varName, def := range b.currentDefs[phi.Parent] {
			if def == phi.Result {
				b.currentDefs[phi.Parent][varName] = same
			}
		}
		removeInstruction(phi.Parent, phi)
	}
	return nil
}

func removeInstruction(blk *BasicBlock, inst *Instruction) {
	out := blk.Instructions[:0]
	for _, existing := range blk.Instructions {
		if existing != inst {
			out = append(out, existing)
		}
	}
	blk.Instructions = out
}

func (b *Builder) prependPhi(blk *BasicBlock, phi *Instruction) {
	blk.Instructions = append([]*Instruction{phi}, blk.Instructions...)
}

func (b *Builder) nextInstID() int {
	b.instCounter++
	return b.instCounter
}

// Emit validates and appends a non-terminator instruction to the
// current block, returning its result value (nil for void opcodes).
func (b *Builder) Emit(op Opcode, operands []Operand, resultType Type) (*Value, error) {
	if b.currentBlock == nil {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "emit with no current block"}
	}
	if b.currentBlock.Terminator != nil {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrBlockClosed, Detail: fmt.Sprintf("block %s already terminated", b.currentBlock.Label)}
	}
	sig := OpSignatures[op]
	var result *Value
	if sig.HasResult {
		result = b.CreateVariable("", resultType)
	}
	inst, err := NewInstruction(b.nextInstID(), op, operands, result)
	if err != nil {
		return nil, err
	}
	inst.Parent = b.currentBlock
	b.currentBlock.Instructions = append(b.currentBlock.Instructions, inst)
	return result, nil
}

// Terminate closes the current block with a validated terminator
// instruction and clears the insertion point.
func (b *Builder) Terminate(op Opcode, operands []Operand) error {
	if b.currentBlock == nil {
		return &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "terminate with no current block"}
	}
	if b.currentBlock.Terminator != nil {
		return &compilererr.IRError{Kind: compilererr.IRErrBlockClosed, Detail: fmt.Sprintf("block %s already terminated", b.currentBlock.Label)}
	}
	inst, err := NewInstruction(b.nextInstID(), op, operands, nil)
	if err != nil {
		return err
	}
	if !inst.IsTerminator() {
		return &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("%s is not a terminator", OpSignatures[op].Name)}
	}
	inst.Parent = b.currentBlock
	b.currentBlock.Terminator = inst
	b.currentBlock = nil
	return nil
}

// BuildRequire lowers a `require!(cond, code)` statement into the
// branch-to-revert pattern the front end already relies on: the true
// path falls through, the false path reverts with the error code
// encoded as return data. The ok and fail blocks each have the current
// block as their only predecessor and are sealed as soon as that edge is
// added. jnz's operand order is
// (cond, true-target, false-target) throughout this IR, so the ok
// block rides in slot 1.
func (b *Builder) BuildRequire(cond *Value, revertData, revertLen Operand) (*BasicBlock, error) {
	src := b.currentBlock
	okBlock := b.CreateBlock("require_ok")
	failBlock := b.CreateBlock("require_fail")

	if err := b.Terminate(OpJnz, []Operand{cond, Label{Name: okBlock.Label}, Label{Name: failBlock.Label}}); err != nil {
		return nil, err
	}

	b.AddPredecessor(failBlock, src)
	b.SwitchToBlock(failBlock)
	b.SealBlock(failBlock)
	if err := b.Terminate(OpRevert, []Operand{revertData, revertLen}); err != nil {
		return nil, err
	}

	b.AddPredecessor(okBlock, src)
	b.SwitchToBlock(okBlock)
	b.SealBlock(okBlock)

	// The assert restates at the top of okBlock that cond holds there;
	// codegen lowers it to a runtime check like any other assert.
	if _, err := b.Emit(OpAssert, []Operand{cond}, nil); err != nil {
		return nil, err
	}
	return okBlock, nil
}
