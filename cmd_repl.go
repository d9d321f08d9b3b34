package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"sabr/internal/compiler"
	"sabr/internal/lexer"
	"sabr/internal/loader"
	"sabr/internal/preproc"
	"sabr/internal/token"
	"sabr/internal/vm"
)

// replCmd implements the repl subcommand: an interactive sabr session. One
// Compiler and one VM live for the whole session, so identifiers keep
// stable indices and words/structs/the data stack persist across lines.
// Each line is compiled on its own; an unmatched closing keyword (the
// compiler's UnmatchedEnd) means the construct is still open, so the line
// is folded into the next prompt instead of being reported as an error.
type replCmd struct {
	poolLimit int
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive sabr session" }
func (*replCmd) Usage() string {
	return `repl:
  Read, compile, and execute sabr source one line at a time. An
  unterminated construct (if, loop, func, struct, ...) continues onto
  the next line until its matching end.
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&r.poolLimit, "pool-limit", 0, "cap each memory pool at this many cells (0 = unbounded)")
}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sabr> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to start readline: %v\n", err)
		return exitIOError
	}
	defer rl.Close()

	ld := loader.New()
	comp := compiler.New()
	bc, err := comp.Compile(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %s\n", err.Error())
		return exitCompileError
	}

	out := bufio.NewWriter(os.Stdout)
	opts := []vm.Option{vm.WithOutput(out), vm.WithInput(bufio.NewReader(os.Stdin))}
	if r.poolLimit > 0 {
		opts = append(opts, vm.WithPoolLimit(r.poolLimit))
	}
	machine := vm.New(bc, opts...)

	fmt.Println("sabr REPL — type 'exit' or press Ctrl-D to quit.")

	const freshPrompt = "sabr> "
	const openPrompt = "   .. "
	open := false
	start := 0
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				open = false
				rl.SetPrompt(freshPrompt)
				continue
			}
			break
		}
		if !open {
			if line == "exit" {
				break
			}
			if line == "" {
				continue
			}
		}

		idx := ld.LoadString("<repl>", line)
		tw := tabWidth()
		toks, err := lexer.New([]byte(ld.Text(idx)), uint32(idx), ld.Filename(idx), token.Position{Line: 1, Column: 1}, false, tw).Scan()
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 %s\n", err.Error())
			open = false
			rl.SetPrompt(freshPrompt)
			continue
		}

		expanded, err := preproc.New(ld, tw).Process(toks)
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 %s\n", err.Error())
			open = false
			rl.SetPrompt(freshPrompt)
			continue
		}

		// A construct left open on an earlier line runs from where that
		// line's code began, not just from this line's.
		if !open {
			start = bc.Offset()
		}
		_, compErr := comp.Compile(expanded)
		if compErr != nil {
			var cerr *compiler.Error
			if errors.As(compErr, &cerr) && cerr.Kind == compiler.UnmatchedEnd {
				open = true
				rl.SetPrompt(openPrompt)
				continue
			}
			fmt.Fprintf(os.Stderr, "💥 %s\n", compErr.Error())
			open = false
			rl.SetPrompt(freshPrompt)
			continue
		}
		open = false
		rl.SetPrompt(freshPrompt)

		if runErr := machine.RunFrom(start); runErr != nil {
			fmt.Fprintf(os.Stderr, "💥 %s\n", runErr.Error())
		}
		out.Flush()
	}
	out.Flush()
	return exitSuccess
}
