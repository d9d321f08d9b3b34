package bytecode

import (
	"testing"

	"sabr/internal/token"
)

func TestEmitValueRoundTrip(t *testing.T) {
	var b Bytecode
	b.EmitValue(OpValue, token.FromInt(-42))

	op, operand, next, ok := b.Decode(0)
	if !ok {
		t.Fatal("Decode failed")
	}
	if op != OpValue {
		t.Errorf("op = %v, want OpValue", op)
	}
	if token.FromUint(operand).Int() != -42 {
		t.Errorf("operand = %d, want -42", token.FromUint(operand).Int())
	}
	if next != len(b.Code) {
		t.Errorf("next = %d, want %d", next, len(b.Code))
	}
}

func TestEmitIndexAndPatch(t *testing.T) {
	var b Bytecode
	b.Emit(OpNone)
	operandOffset := b.EmitIndex(OpJump, -1)
	b.Emit(OpExit)

	b.PatchIndex(operandOffset, b.Offset())

	_, operand, _, ok := b.Decode(1)
	if !ok {
		t.Fatal("Decode failed")
	}
	if int(operand) != b.Offset() {
		t.Errorf("patched operand = %d, want %d", operand, b.Offset())
	}
}

func TestHasOperand(t *testing.T) {
	operandCases := []Op{OpValue, OpIf, OpJump, OpFor, OpForCheck, OpForNext, OpLambda, OpExec, OpDatagroup}
	for _, op := range operandCases {
		if !HasOperand(op) {
			t.Errorf("HasOperand(%v) = false, want true", op)
		}
	}

	noOperandCases := []Op{OpAdd, OpSub, OpDup, OpReturn, OpCallBIF}
	for _, op := range noOperandCases {
		if HasOperand(op) {
			t.Errorf("HasOperand(%v) = true, want false", op)
		}
	}
}

func TestHasIndexOperand(t *testing.T) {
	if !HasIndexOperand(OpIf) || !HasIndexOperand(OpJump) || !HasIndexOperand(OpForCheck) ||
		!HasIndexOperand(OpForNext) || !HasIndexOperand(OpLambda) {
		t.Error("expected index-operand opcodes to be flagged")
	}
	if HasIndexOperand(OpValue) || HasIndexOperand(OpDatagroup) || HasIndexOperand(OpExec) {
		t.Error("OP_VALUE/DATAGROUP/EXEC carry Value operands, not index operands")
	}
}

func TestOpcodeStringRoundTrip(t *testing.T) {
	if Op(OpValue).String() != "OP_VALUE" {
		t.Errorf("String() = %q, want OP_VALUE", OpValue.String())
	}
	if Op(OpShow).String() != "OP_SHOW" {
		t.Errorf("String() = %q, want OP_SHOW", OpShow.String())
	}
}

func TestDisassembleDoesNotPanic(t *testing.T) {
	var b Bytecode
	b.EmitValue(OpValue, token.FromInt(1))
	b.EmitValue(OpValue, token.FromInt(2))
	b.Emit(OpAdd)
	b.Emit(OpExit)

	out := b.Disassemble()
	if out == "" {
		t.Error("Disassemble() returned empty output")
	}
}
