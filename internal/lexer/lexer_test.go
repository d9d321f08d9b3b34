package lexer

import (
	"reflect"
	"testing"

	"sabr/internal/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New([]byte(src), 0, "<test>", token.Position{Line: 1, Column: 0}, false, 0)
	toks, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan(%q) returned error: %v", src, err)
	}
	return toks
}

func texts(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.Text
	}
	return out
}

func TestScanSimpleWords(t *testing.T) {
	got := texts(scanAll(t, "1 2 add print"))
	want := []string{"1", "2", "add", "print"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScanStringLiterals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"single", `'hello' print`, []string{`'hello'`, "print"}},
		{"double", `"hi there" print`, []string{`"hi there"`, "print"}},
		{"brace", `{ a b c } func`, []string{"{ a b c }", "func"}},
		{"nested brace", `{ { x } y }`, []string{"{ { x } y }"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(scanAll(t, tt.src))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanComments(t *testing.T) {
	got := texts(scanAll(t, "1 \\ this is a line comment\n2"))
	want := []string{"1", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got = texts(scanAll(t, "1 ( a stack comment ) 2"))
	want = []string{"1", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScanPositions(t *testing.T) {
	toks := scanAll(t, "ab cd\nef")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3", len(toks))
	}
	if toks[0].Origin != (token.Position{Line: 1, Column: 0}) {
		t.Errorf("toks[0].Origin = %v", toks[0].Origin)
	}
	if toks[2].Origin.Line != 2 {
		t.Errorf("toks[2].Origin.Line = %d, want 2", toks[2].Origin.Line)
	}
}

func TestScanUnterminatedString(t *testing.T) {
	l := New([]byte(`'never closes`), 0, "<test>", token.Position{Line: 1}, false, 0)
	_, err := l.Scan()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	lexErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lexErr.Kind != UnterminatedString {
		t.Errorf("Kind = %v, want UnterminatedString", lexErr.Kind)
	}
}

func TestScanMisplacedStringDelimiter(t *testing.T) {
	l := New([]byte(`abc'def`), 0, "<test>", token.Position{Line: 1}, false, 0)
	_, err := l.Scan()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	lexErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lexErr.Kind != MisplacedStringDelimiter {
		t.Errorf("Kind = %v, want MisplacedStringDelimiter", lexErr.Kind)
	}
}

func TestScanGeneratedTokensInheritPosition(t *testing.T) {
	origin := token.Position{Line: 7, Column: 3}
	l := New([]byte("x y"), 2, "<generated>", origin, true, 0)
	toks, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	for _, tok := range toks {
		if !tok.Generated {
			t.Errorf("token %q: Generated = false, want true", tok.Text)
		}
		if tok.FileIndex != 2 {
			t.Errorf("token %q: FileIndex = %d, want 2", tok.Text, tok.FileIndex)
		}
		if tok.Origin != origin {
			t.Errorf("token %q: Origin = %v, want %v", tok.Text, tok.Origin, origin)
		}
	}
}
