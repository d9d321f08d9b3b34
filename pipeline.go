package main

import (
	"os"
	"strconv"

	"sabr/internal/bytecode"
	"sabr/internal/compiler"
	"sabr/internal/lexer"
	"sabr/internal/loader"
	"sabr/internal/preproc"
	"sabr/internal/token"
)

// tabWidth returns SABR_TAB's value, clamped to at least 1, or
// token.DefaultTabWidth if it's unset or not a positive integer.
func tabWidth() int {
	v := os.Getenv("SABR_TAB")
	if v == "" {
		return token.DefaultTabWidth
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return token.DefaultTabWidth
	}
	return n
}

// compileIndex runs one source file already interned in ld (at fileIndex)
// through lex -> preprocess -> compile, the full front end of the compile
// subcommand (repl runs the same stages itself, one line at a time).
func compileIndex(ld *loader.Loader, fileIndex int) (*bytecode.Bytecode, error) {
	tw := tabWidth()
	text := ld.Text(fileIndex)
	lx := lexer.New([]byte(text), uint32(fileIndex), ld.Filename(fileIndex), token.Position{Line: 1, Column: 1}, false, tw)
	tokens, err := lx.Scan()
	if err != nil {
		return nil, err
	}

	pp := preproc.New(ld, tw)
	expanded, err := pp.Process(tokens)
	if err != nil {
		return nil, err
	}

	return compiler.New().Compile(expanded)
}

// compileFile loads path from disk and compiles it.
func compileFile(ld *loader.Loader, path string) (*bytecode.Bytecode, error) {
	idx, err := ld.Load(path)
	if err != nil {
		return nil, err
	}
	return compileIndex(ld, idx)
}

// isCompileError reports whether err came from the lex/preprocess/compile
// stages rather than the loader, distinguishing exit code 1 from 3.
func isCompileError(err error) bool {
	switch err.(type) {
	case *lexer.Error, *preproc.Error, *compiler.Error:
		return true
	}
	return false
}
