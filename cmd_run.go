package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"sabr/internal/bytecode"
	"sabr/internal/vm"
)

// runCmd implements the run subcommand: execute a compiled .bcb bytecode file.
type runCmd struct {
	poolLimit int
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute a compiled sabr bytecode file" }
func (*runCmd) Usage() string {
	return `run <input.bcb>:
  Execute a bytecode file produced by the compile subcommand.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&r.poolLimit, "pool-limit", 0, "cap each memory pool at this many cells (0 = unbounded)")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "💥 bytecode file not provided")
		return exitIOError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to read %s: %v\n", args[0], err)
		return exitIOError
	}

	bc := &bytecode.Bytecode{Code: data}
	out := bufio.NewWriter(os.Stdout)
	in := bufio.NewReader(os.Stdin)
	opts := []vm.Option{vm.WithOutput(out), vm.WithInput(in)}
	if r.poolLimit > 0 {
		opts = append(opts, vm.WithPoolLimit(r.poolLimit))
	}
	machine := vm.New(bc, opts...)

	runErr := machine.Run()
	out.Flush()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "💥 %s\n", runErr.Error())
		return exitRuntimeError
	}
	return exitSuccess
}
