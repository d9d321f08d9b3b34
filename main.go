package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

// Exit codes match the interpreter's own convention: 0 success, 1 compile
// failure, 2 runtime failure, 3 I/O failure. These are distinct from
// subcommands' own ExitSuccess/ExitFailure/ExitUsageError, so the CLI
// defines its own subcommands.ExitStatus values rather than reusing them.
const (
	exitSuccess      subcommands.ExitStatus = 0
	exitCompileError subcommands.ExitStatus = 1
	exitRuntimeError subcommands.ExitStatus = 2
	exitIOError      subcommands.ExitStatus = 3
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&compileCmd{}, "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
