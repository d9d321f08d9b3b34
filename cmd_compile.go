package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"sabr/internal/loader"
)

// compileCmd implements the compile subcommand: source -> .bcb bytecode file.
type compileCmd struct {
	output      string
	disassemble bool
}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "Compile a sabr source file to bytecode" }
func (*compileCmd) Usage() string {
	return `compile <input> [-o output.bcb]:
  Lex, preprocess, and compile sabr source into a flat bytecode file.
`
}

func (c *compileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output bytecode path (default: input with .bcb extension)")
	f.BoolVar(&c.disassemble, "disassemble", false, "print the compiled bytecode listing to stderr")
}

func (c *compileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "💥 input file not provided")
		return exitCompileError
	}
	input := args[0]

	ld := loader.New()
	bc, err := compileFile(ld, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %s\n", err.Error())
		if isCompileError(err) {
			return exitCompileError
		}
		return exitIOError
	}

	if c.disassemble {
		fmt.Fprint(os.Stderr, bc.Disassemble())
	}

	output := c.output
	if output == "" {
		output = withExt(input, ".bcb")
	}
	if err := os.WriteFile(output, bc.Code, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to write %s: %v\n", output, err)
		return exitIOError
	}
	return exitSuccess
}

func withExt(path, ext string) string {
	if dot := strings.LastIndexByte(path, '.'); dot >= 0 {
		return path[:dot] + ext
	}
	return path + ext
}
