package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kansoc/internal/compilererr"
)

func TestNewInstructionArityEnforced(t *testing.T) {
	x := &Value{ID: 1, Name: "x"}
	y := &Value{ID: 2, Name: "y"}

	inst, err := NewInstruction(1, OpAdd, []Operand{x, y}, &Value{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, OpAdd, inst.Op)

	_, err = NewInstruction(2, OpAdd, []Operand{x}, &Value{ID: 4})
	assert.Error(t, err)
	var irErr *compilererr.IRError
	assert.ErrorAs(t, err, &irErr)
}

func TestNewInstructionResultPresenceEnforced(t *testing.T) {
	// mstore has no result; supplying one is rejected.
	_, err := NewInstruction(1, OpMStore, []Operand{Literal{Value: U256FromUint64(0).Value}, Literal{Value: U256FromUint64(1).Value}}, &Value{ID: 1})
	assert.Error(t, err)

	// add must have a result; omitting one is rejected.
	_, err = NewInstruction(2, OpAdd, []Operand{Literal{Value: U256FromUint64(0).Value}, Literal{Value: U256FromUint64(1).Value}}, nil)
	assert.Error(t, err)
}

func TestNewInstructionVariadicMinOperands(t *testing.T) {
	// log0 requires at least 2 operands (offset, length).
	_, err := NewInstruction(1, OpLog0, []Operand{Literal{Value: U256FromUint64(0).Value}}, nil)
	assert.Error(t, err)

	_, err = NewInstruction(2, OpLog0, []Operand{Literal{Value: U256FromUint64(0).Value}, Literal{Value: U256FromUint64(32).Value}}, nil)
	assert.NoError(t, err)
}

func TestNewPhiRequiresMatchedLabelsAndValues(t *testing.T) {
	result := &Value{ID: 1}
	x := &Value{ID: 2}

	_, err := NewPhi(1, result, []string{"L1", "L2"}, []Operand{x})
	assert.Error(t, err)

	phi, err := NewPhi(2, result, []string{"L1", "L2"}, []Operand{x, x})
	require.NoError(t, err)
	assert.Equal(t, OpPhi, phi.Op)
	assert.True(t, phi.IsTerminator() == false)
}

func TestInstructionStringFormatsOutputAndOperands(t *testing.T) {
	out := &Value{ID: 1, Name: "a"}
	x := &Value{ID: 2, Name: "x"}
	inst, err := NewInstruction(1, OpAdd, []Operand{x, Literal{Value: U256FromUint64(2).Value}}, out)
	require.NoError(t, err)
	assert.Equal(t, "%a = add %x, 2", inst.String())
}

func TestInstructionSuccessorsOnlyForTerminators(t *testing.T) {
	jmp, err := NewInstruction(1, OpJmp, []Operand{Label{Name: "L1"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, jmp.Successors())

	jnz, err := NewInstruction(2, OpJnz, []Operand{&Value{ID: 1}, Label{Name: "Lfalse"}, Label{Name: "Ltrue"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lfalse", "Ltrue"}, jnz.Successors())

	add, err := NewInstruction(3, OpAdd, []Operand{Literal{Value: U256FromUint64(1).Value}, Literal{Value: U256FromUint64(2).Value}}, &Value{ID: 2})
	require.NoError(t, err)
	assert.Nil(t, add.Successors())
}
