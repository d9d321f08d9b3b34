package vm

import (
	"strings"
	"testing"

	"sabr/internal/compiler"
	"sabr/internal/lexer"
	"sabr/internal/token"
)

func mustRun(t *testing.T, src string) *VM {
	t.Helper()
	lx := lexer.New([]byte(src+" \n"), 0, "<test>", token.Position{Line: 1, Column: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan(%q): %v", src, err)
	}
	bc, err := compiler.New().Compile(toks)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	v := New(bc)
	if err := v.Run(); err != nil {
		t.Fatalf("Run(%q): %v", src, err)
	}
	return v
}

func wantInt(t *testing.T, v *VM, want int64) {
	t.Helper()
	got, ok := v.data.Pop()
	if !ok {
		t.Fatalf("data stack empty, want %d", want)
	}
	if got.Int() != want {
		t.Errorf("top = %d, want %d", got.Int(), want)
	}
}

func TestArithmeticAddition(t *testing.T) {
	v := mustRun(t, "2 3 +")
	wantInt(t, v, 5)
}

func TestArithmeticDivisionByZero(t *testing.T) {
	lx := lexer.New([]byte("1 0 / \n"), 0, "<test>", token.Position{Line: 1, Column: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	bc, err := compiler.New().Compile(toks)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v := New(bc)
	err = v.Run()
	if err == nil {
		t.Fatal("want DivisionByZero error, got nil")
	}
	rerr, ok := err.(*Error)
	if !ok || rerr.Kind != DivisionByZero {
		t.Errorf("got %v, want DivisionByZero", err)
	}
}

func TestDataStackUnderflow(t *testing.T) {
	lx := lexer.New([]byte("+ \n"), 0, "<test>", token.Position{Line: 1, Column: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	bc, err := compiler.New().Compile(toks)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v := New(bc)
	err = v.Run()
	rerr, ok := err.(*Error)
	if !ok || rerr.Kind != DataStackUnderflow {
		t.Errorf("got %v, want DataStackUnderflow", err)
	}
}

func TestIfElseTakesThenBranch(t *testing.T) {
	v := mustRun(t, "1 if 10 else 20 end")
	wantInt(t, v, 10)
}

func TestIfElseTakesElseBranch(t *testing.T) {
	v := mustRun(t, "0 if 10 else 20 end")
	wantInt(t, v, 20)
}

func TestLoopWhileBreak(t *testing.T) {
	// Count to 3, one increment per iteration, then break.
	v := mustRun(t, "0 loop 1 + dup 3 = if break end 1 while end")
	wantInt(t, v, 3)
}

func TestForLoopSum(t *testing.T) {
	v := mustRun(t, "0 for 0 from 5 to + end")
	wantInt(t, v, 0+1+2+3+4)
}

func TestSwitchCasePass(t *testing.T) {
	v := mustRun(t, "3 switch 1 case 100 pass 2 case 200 pass 3 case 300 pass end")
	wantInt(t, v, 300)
}

func TestSwitchFallThroughChain(t *testing.T) {
	v := mustRun(t, "3 switch 1 case 2 case 3 case 999 pass end")
	wantInt(t, v, 999)
}

func TestFuncCallReturnsValue(t *testing.T) {
	v := mustRun(t, "func sq dup * return end 5 sq")
	wantInt(t, v, 25)
}

func TestMacroSharesCallerScopeAtRuntime(t *testing.T) {
	v := mustRun(t, "macro dbl dup + end 21 dbl")
	wantInt(t, v, 42)
}

func TestStructMemberAddressing(t *testing.T) {
	// point allocates a 2-cell struct; `y` (offset 1) turns its base address
	// into the field address. tuck keeps a copy of that address under the
	// value being stored, so it's still on top after `!` for the `@` to read.
	v := mustRun(t, "struct point member x member y end 77 point y tuck ! @")
	wantInt(t, v, 77)
}

func TestMemoryAllocFetchStore(t *testing.T) {
	v := mustRun(t, "1 alloc 42 over ! @")
	wantInt(t, v, 42)
}

func TestBalancedProgramEndsWithEmptyStack(t *testing.T) {
	v := mustRun(t, "1 2 + drop")
	if v.data.Len() != 0 {
		t.Errorf("data stack len = %d, want 0", v.data.Len())
	}
}

func TestArrayStringLiteralRoundTrip(t *testing.T) {
	var out strings.Builder
	lx := lexer.New([]byte(`"ab" puts`+" \n"), 0, "<test>", token.Position{Line: 1, Column: 1}, false, 0)
	toks, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	bc, err := compiler.New().Compile(toks)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v := New(bc, WithOutput(&out))
	if err := v.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "ab" {
		t.Errorf("output = %q, want %q", out.String(), "ab")
	}
}

func TestUnknownOpcodeIsReported(t *testing.T) {
	bc, err := compiler.New().Compile(nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	bc.Code = append(bc.Code, 0xFF)
	v := New(bc)
	err = v.Run()
	rerr, ok := err.(*Error)
	if !ok || rerr.Kind != UnknownOpcode {
		t.Errorf("got %v, want UnknownOpcode", err)
	}
}
