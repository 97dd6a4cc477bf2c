package ir

import (
	"fmt"
	"strings"

	"kansoc/internal/compilererr"
)

// NewInstruction validates operand count against the opcode's signature
// before constructing the instruction, so a malformed instruction never
// enters a BasicBlock. id and result are supplied by the caller (the
// builder owns numbering).
func NewInstruction(id int, op Opcode, operands []Operand, result *Value) (*Instruction, error) {
	sig, ok := OpSignatures[op]
	if !ok {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("unknown opcode %d", op)}
	}
	if sig.NumOperands >= 0 && len(operands) != sig.NumOperands {
		return nil, &compilererr.IRError{
			Kind:   compilererr.IRErrScopeViolation,
			Detail: fmt.Sprintf("%s expects %d operands, got %d", sig.Name, sig.NumOperands, len(operands)),
		}
	}
	if sig.NumOperands < 0 && len(operands) < sig.MinOperands {
		return nil, &compilererr.IRError{
			Kind:   compilererr.IRErrScopeViolation,
			Detail: fmt.Sprintf("%s expects at least %d operands, got %d", sig.Name, sig.MinOperands, len(operands)),
		}
	}
	if sig.HasResult && result == nil {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("%s must produce a result", sig.Name)}
	}
	if !sig.HasResult && result != nil {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("%s must not produce a result", sig.Name)}
	}
	return &Instruction{ID: id, Op: op, Operands: operands, Result: result}, nil
}

// NewPhi builds a phi node directly: its operand/label correspondence is
// established up front rather than via the generic arity check, since
// phi is the one opcode whose "arity" is really "one operand per
// predecessor block", not a fixed or simply-bounded count.
func NewPhi(id int, result *Value, labels []string, values []Operand) (*Instruction, error) {
	if len(labels) != len(values) {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "phi labels and values must be equal length"}
	}
	if result == nil {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "phi must produce a result"}
	}
	return &Instruction{ID: id, Op: OpPhi, Operands: values, Result: result, PhiLabels: append([]string(nil), labels...)}, nil
}

// instructionString renders one line of the IR text format:
// "%out = opcode op1, op2, ..." when the opcode produces a value,
// or "opcode op1, op2, ..." otherwise. Phi additionally tags each operand
// with its source label.
func instructionString(i *Instruction) string {
	var b strings.Builder
	if i.Result != nil {
		b.WriteString(i.Result.String())
		b.WriteString(" = ")
	}
	b.WriteString(OpSignatures[i.Op].Name)
	if i.Op == OpPhi {
		parts := make([]string, len(i.Operands))
		for idx, operand := range i.Operands {
			label := ""
			if idx < len(i.PhiLabels) {
				label = i.PhiLabels[idx]
			}
			parts[idx] = fmt.Sprintf("[%s: %s]", label, operand.String())
		}
		if len(parts) > 0 {
			b.WriteString(" ")
			b.WriteString(strings.Join(parts, ", "))
		}
		return b.String()
	}
	if len(i.Operands) > 0 {
		parts := make([]string, len(i.Operands))
		for idx, operand := range i.Operands {
			parts[idx] = operand.String()
		}
		b.WriteString(" ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}
