package builtin

import (
	"fmt"

	"github.com/pborman/getopt/v2"
)

// parseHelp handles the -h/--help flag every built-in accepts. done is
// true if the caller already printed everything that needs printing
// (a usage error or the help text itself) and should return result
// without doing any more work.
func parseHelp(ctx *Context, usage string, argv []string) (rest []string, result Result, done bool) {
	opts := getopt.New()
	help := opts.BoolLong("help", 'h', "show this help message")

	if err := opts.Getopt(argv, nil); err != nil {
		fmt.Fprintf(ctx.Stderr, "%s: %s\n", argv[0], err)
		fmt.Fprintln(ctx.Stderr, usage)
		return nil, Failure, true
	}

	if *help {
		fmt.Fprintln(ctx.Stdout, usage)
		return nil, Success, true
	}

	return opts.Args(), Success, false
}
