package ir

import (
	"fmt"

	"kansoc/internal/compilererr"
)

// Verify checks the universal invariants every pass must leave intact:
// every block ends in exactly one terminator, every
// opcode's arity matches its signature, and phi operand/label lists
// stay in lockstep. The pass manager calls it once, after the
// fixed-point loop converges or reaches its iteration bound.
func Verify(ctx *Context) error {
	for _, fn := range ctx.OrderedFunctions() {
		if err := verifyFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func verifyFunction(fn *Function) error {
	if fn.Entry == nil {
		return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("function %s has no entry block", fn.Name)}
	}
	labels := make(map[string]bool)
	for _, blk := range fn.Blocks {
		if labels[blk.Label] {
			return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("duplicate block label %s in %s", blk.Label, fn.Name)}
		}
		labels[blk.Label] = true
		if blk.Terminator == nil {
			return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("block %s in %s has no terminator", blk.Label, fn.Name)}
		}
		if !blk.Terminator.IsTerminator() {
			return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("block %s terminator opcode %s is not a terminator", blk.Label, blk.Terminator.Op)}
		}
		for _, inst := range blk.Instructions {
			if inst.IsTerminator() {
				return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("terminator opcode %s found mid-block in %s", inst.Op, blk.Label)}
			}
			if err := verifyArity(inst); err != nil {
				return err
			}
		}
		if err := verifyArity(blk.Terminator); err != nil {
			return err
		}
		for _, target := range blk.Terminator.Successors() {
			if !labels[target] && fn.BlockByLabel(target) == nil {
				return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("block %s jumps to undefined label %s", blk.Label, target)}
			}
		}
	}
	return nil
}

func verifyArity(inst *Instruction) error {
	sig, ok := OpSignatures[inst.Op]
	if !ok {
		return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("unknown opcode %d", inst.Op)}
	}
	if sig.NumOperands >= 0 && len(inst.Operands) != sig.NumOperands {
		return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("%s has %d operands, want %d", sig.Name, len(inst.Operands), sig.NumOperands)}
	}
	if sig.NumOperands < 0 && len(inst.Operands) < sig.MinOperands {
		return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("%s has %d operands, want at least %d", sig.Name, len(inst.Operands), sig.MinOperands)}
	}
	if inst.Op == OpPhi && len(inst.PhiLabels) != len(inst.Operands) {
		return &compilererr.InvariantViolation{Pass: "verify", Description: "phi operand count does not match label count"}
	}
	if sig.HasResult && inst.Result == nil {
		return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("%s missing required result", sig.Name)}
	}
	if !sig.HasResult && inst.Result != nil {
		return &compilererr.InvariantViolation{Pass: "verify", Description: fmt.Sprintf("%s must not have a result", sig.Name)}
	}
	return nil
}
