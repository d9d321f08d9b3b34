package compiler

import (
	"testing"

	"sabr/internal/bytecode"
	"sabr/internal/lexer"
	"sabr/internal/token"
)

func compileSrc(t *testing.T, src string) *bytecode.Bytecode {
	t.Helper()
	lx := lexer.New([]byte(src+" \n"), 0, "<test>", token.Position{Line: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan(%q): %v", src, err)
	}
	bc, err := New().Compile(toks)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return bc
}

func ops(t *testing.T, bc *bytecode.Bytecode) []bytecode.Op {
	t.Helper()
	var out []bytecode.Op
	for pc := 0; pc < len(bc.Code); {
		op, _, next, ok := bc.Decode(pc)
		if !ok {
			t.Fatalf("Decode failed at pc=%d", pc)
		}
		out = append(out, op)
		pc = next
	}
	return out
}

func wantOps(t *testing.T, got []bytecode.Op, want ...bytecode.Op) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op %d = %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	bc := compileSrc(t, "0x1F 0o17 0b101 -5 3.5")
	wantOps(t, ops(t, bc),
		bytecode.OpValue, bytecode.OpValue, bytecode.OpValue, bytecode.OpValue, bytecode.OpValue)
}

func TestUserIdentifierEmitsExec(t *testing.T) {
	bc := compileSrc(t, "foo")
	wantOps(t, ops(t, bc), bytecode.OpExec)
}

func TestIdentifierLiteral(t *testing.T) {
	bc := compileSrc(t, "$foo")
	wantOps(t, ops(t, bc), bytecode.OpValue)
}

func TestCharStringReverseEmission(t *testing.T) {
	bc := compileSrc(t, "'ab'")
	got := ops(t, bc)
	wantOps(t, got, bytecode.OpValue, bytecode.OpValue)
	// 'ab' -> push 'b' then 'a', so popping restores "ab".
	_, bOperand, next, _ := bc.Decode(0)
	_, aOperand, _, _ := bc.Decode(next)
	if rune(bOperand) != 'b' || rune(aOperand) != 'a' {
		t.Errorf("operands = %d, %d, want 'b'=%d then 'a'=%d", bOperand, aOperand, 'b', 'a')
	}
}

func TestArrayString(t *testing.T) {
	bc := compileSrc(t, `"hi"`)
	wantOps(t, ops(t, bc),
		bytecode.OpArray,
		bytecode.OpValue, bytecode.OpArrayComma,
		bytecode.OpValue, bytecode.OpArrayComma,
		bytecode.OpArrayEnd)
}

// instructionOffsets returns the byte offset of each decoded instruction, in
// order, for tests that need to check a jump's target against a specific
// instruction's position.
func instructionOffsets(t *testing.T, bc *bytecode.Bytecode) []int {
	t.Helper()
	var offs []int
	for pc := 0; pc < len(bc.Code); {
		offs = append(offs, pc)
		_, _, next, ok := bc.Decode(pc)
		if !ok {
			t.Fatalf("Decode failed at pc=%d", pc)
		}
		pc = next
	}
	return offs
}

func TestIfElseEnd(t *testing.T) {
	bc := compileSrc(t, "1 if a else b end")
	got := ops(t, bc)
	wantOps(t, got,
		bytecode.OpValue, // 1
		bytecode.OpIf,
		bytecode.OpExec, // a
		bytecode.OpJump,
		bytecode.OpExec, // b
	)
	offs := instructionOffsets(t, bc)
	_, ifTarget, _, _ := bc.Decode(offs[1])
	if int(ifTarget) != offs[4] {
		t.Errorf("OP_IF target = %d, want else start %d", ifTarget, offs[4])
	}
}

func TestLoopBreak(t *testing.T) {
	bc := compileSrc(t, "loop a break b end")
	wantOps(t, ops(t, bc),
		bytecode.OpExec, // a
		bytecode.OpJump, // break
		bytecode.OpExec, // b
		bytecode.OpJump, // end's back-edge
	)
}

func TestWhileLoop(t *testing.T) {
	bc := compileSrc(t, "loop 1 while a end")
	wantOps(t, ops(t, bc),
		bytecode.OpValue,
		bytecode.OpIf,
		bytecode.OpExec,
		bytecode.OpJump,
	)
}

func TestForLoop(t *testing.T) {
	bc := compileSrc(t, "for 0 from 10 to body end")
	got := ops(t, bc)
	wantOps(t, got,
		bytecode.OpFor,
		bytecode.OpNone, // placeholder reserved by `for`, superseded below
		bytecode.OpValue, bytecode.OpForFrom,
		bytecode.OpNone, // placeholder reserved by `from`, superseded below
		bytecode.OpValue, bytecode.OpForTo,
		bytecode.OpForCheck, // the last-reserved placeholder, promoted at `end`
		bytecode.OpExec,     // body
		bytecode.OpForNext,
		bytecode.OpForEnd,
	)
}

func TestForDuplicateFrom(t *testing.T) {
	lx := lexer.New([]byte("for 0 from 1 from end \n"), 0, "<t>", token.Position{Line: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	_, err = New().Compile(toks)
	if err == nil {
		t.Fatal("expected a DuplicateFromToStep error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != DuplicateFromToStep {
		t.Errorf("got %v, want DuplicateFromToStep", err)
	}
}

func TestSwitchCasePass(t *testing.T) {
	bc := compileSrc(t, "x switch 1 case a pass 2 case b pass end")
	got := ops(t, bc)
	wantOps(t, got,
		bytecode.OpExec, // x
		bytecode.OpSwitch,
		bytecode.OpValue, bytecode.OpSwitchCase, bytecode.OpEqu, bytecode.OpIf,
		bytecode.OpExec, // a
		bytecode.OpJump, // pass
		bytecode.OpValue, bytecode.OpSwitchCase, bytecode.OpEqu, bytecode.OpIf,
		bytecode.OpExec, // b
		bytecode.OpJump, // pass
		bytecode.OpSwitchEnd,
	)
}

// TestSwitchChainedCasesShareBody covers multiple case values stacked ahead
// of one pass with no body between them (`1 case 2 case 3 case pass BODY`):
// all but the last case in the chain have their OP_EQU rewritten to OP_NEQ
// and jump straight to the pass on a hit (mirroring a C switch's
// `case 1: case 2: case 3: break;` falling out immediately), while the
// chain's terminal case keeps OP_EQU and, on a miss, falls through into the
// shared body that starts right after the pass.
func TestSwitchChainedCasesShareBody(t *testing.T) {
	bc := compileSrc(t, `x switch 1 case 2 case 3 case pass "h" log end`)
	got := ops(t, bc)
	wantOps(t, got,
		bytecode.OpExec, // x
		bytecode.OpSwitch,
		bytecode.OpValue, bytecode.OpSwitchCase, bytecode.OpNeq, bytecode.OpIf, // 1 case (chained)
		bytecode.OpValue, bytecode.OpSwitchCase, bytecode.OpNeq, bytecode.OpIf, // 2 case (chained)
		bytecode.OpValue, bytecode.OpSwitchCase, bytecode.OpEqu, bytecode.OpIf, // 3 case (terminal)
		bytecode.OpJump, // pass
		bytecode.OpArray, bytecode.OpValue, bytecode.OpArrayComma, bytecode.OpArrayEnd, // "h"
		bytecode.OpExec, // log
		bytecode.OpSwitchEnd,
	)

	offs := instructionOffsets(t, bc)
	// case1's and case2's IF (indices 5, 9) jump to the pass instruction
	// itself (index 14) on a hit — falling straight out of the switch.
	_, case1Target, _, _ := bc.Decode(offs[5])
	_, case2Target, _, _ := bc.Decode(offs[9])
	if int(case1Target) != offs[14] || int(case2Target) != offs[14] {
		t.Errorf("chained case targets = %d, %d, want pass at %d", case1Target, case2Target, offs[14])
	}
	// case3's IF (index 13) misses into the shared body, which starts right
	// after the pass's own jump (index 15).
	_, case3Target, _, _ := bc.Decode(offs[13])
	if int(case3Target) != offs[15] {
		t.Errorf("terminal case target = %d, want body start %d", case3Target, offs[15])
	}
}

func TestFuncDefineAndCall(t *testing.T) {
	bc := compileSrc(t, "func square a b end square")
	got := ops(t, bc)
	wantOps(t, got,
		bytecode.OpJump, // skip-over
		bytecode.OpValue, bytecode.OpDefine, // bind name
		bytecode.OpLocal,
		bytecode.OpExec, bytecode.OpExec, // a, b
		bytecode.OpLocalEnd,
		bytecode.OpReturn,
		bytecode.OpExec, // square (the call)
	)
}

func TestReturnOutsideFunction(t *testing.T) {
	lx := lexer.New([]byte("return \n"), 0, "<t>", token.Position{Line: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	_, err = New().Compile(toks)
	if err == nil {
		t.Fatal("expected ReturnOutsideFunction error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != ReturnOutsideFunction {
		t.Errorf("got %v, want ReturnOutsideFunction", err)
	}
}

func TestMacroOmitsLocalFrame(t *testing.T) {
	bc := compileSrc(t, "macro greet hi end")
	got := ops(t, bc)
	wantOps(t, got,
		bytecode.OpJump,
		bytecode.OpValue, bytecode.OpDefine,
		bytecode.OpExec, // hi — no OP_LOCAL/OP_LOCAL_END around it
		bytecode.OpReturn,
	)
}

func TestFuncReturnJumpsToEpilogue(t *testing.T) {
	bc := compileSrc(t, "func f return end")
	got := ops(t, bc)
	wantOps(t, got,
		bytecode.OpJump,
		bytecode.OpValue, bytecode.OpDefine,
		bytecode.OpLocal,
		bytecode.OpJump, // return
		bytecode.OpLocalEnd,
		bytecode.OpReturn,
	)
	// the `return` jump (index 4) must target the OP_LOCAL_END at index 5.
	offsets := instructionOffsets(t, bc)
	_, target, _, _ := bc.Decode(offsets[4])
	if int(target) != offsets[5] {
		t.Errorf("return target = %d, want %d", target, offsets[5])
	}
}

func TestStructMember(t *testing.T) {
	bc := compileSrc(t, "struct point member x member y end")
	wantOps(t, ops(t, bc),
		bytecode.OpDatagroup,
		bytecode.OpValue, bytecode.OpDefine, // bind "point"
		bytecode.OpValue, bytecode.OpMember, // x
		bytecode.OpValue, bytecode.OpMember, // y
		bytecode.OpDatagroupExec,
		bytecode.OpDatagroupEnd,
	)
}

func TestDeferRunsBeforeEpilogue(t *testing.T) {
	bc := compileSrc(t, "func f body defer { cleanup } end")
	wantOps(t, ops(t, bc),
		bytecode.OpJump,
		bytecode.OpValue, bytecode.OpDefine,
		bytecode.OpLocal,
		bytecode.OpExec, // body
		bytecode.OpExec, // cleanup (from defer, compiled before the epilogue)
		bytecode.OpLocalEnd,
		bytecode.OpReturn,
	)
}

func TestUnmatchedEnd(t *testing.T) {
	lx := lexer.New([]byte("end \n"), 0, "<t>", token.Position{Line: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	_, err = New().Compile(toks)
	if err == nil {
		t.Fatal("expected UnmatchedEnd error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != UnmatchedEnd {
		t.Errorf("got %v, want UnmatchedEnd", err)
	}
}

func TestUnterminatedBlockIsUnmatchedEnd(t *testing.T) {
	lx := lexer.New([]byte("if a \n"), 0, "<t>", token.Position{Line: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	_, err = New().Compile(toks)
	if err == nil {
		t.Fatal("expected UnmatchedEnd error for a never-closed if")
	}
}

func TestInvalidNumeric(t *testing.T) {
	lx := lexer.New([]byte("0x \n"), 0, "<t>", token.Position{Line: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	_, err = New().Compile(toks)
	if err == nil {
		t.Fatal("expected InvalidNumeric error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != InvalidNumeric {
		t.Errorf("got %v, want InvalidNumeric", err)
	}
}

func TestElseWithoutIf(t *testing.T) {
	lx := lexer.New([]byte("else \n"), 0, "<t>", token.Position{Line: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	_, err = New().Compile(toks)
	if err == nil {
		t.Fatal("expected UnmatchedIntermediate error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != UnmatchedIntermediate {
		t.Errorf("got %v, want UnmatchedIntermediate", err)
	}
}

func TestEmptySwitchIsMalformed(t *testing.T) {
	lx := lexer.New([]byte("x switch end \n"), 0, "<t>", token.Position{Line: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	_, err = New().Compile(toks)
	if err == nil {
		t.Fatal("expected MalformedSwitch error for a switch with no case")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != MalformedSwitch {
		t.Errorf("got %v, want MalformedSwitch", err)
	}
}

func TestInternIsStable(t *testing.T) {
	c := New()
	a := c.Intern("foo")
	b := c.Intern("bar")
	c2 := c.Intern("foo")
	if a != c2 {
		t.Errorf("Intern(foo) changed across calls: %d vs %d", a, c2)
	}
	if a == b {
		t.Errorf("distinct names interned to the same index")
	}
	if got := c.Identifiers(); len(got) != 2 || got[0] != "foo" || got[1] != "bar" {
		t.Errorf("Identifiers() = %v, want [foo bar]", got)
	}
}
