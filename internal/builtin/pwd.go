package builtin

import (
	"fmt"
	"os"
)

func pwdBuiltin(ctx *Context, argv []string) Result {
	rest, res, done := parseHelp(ctx, "usage: pwd", argv)
	if done {
		return res
	}
	if len(rest) != 0 {
		fmt.Fprintln(ctx.Stderr, "pwd: too many arguments")
		return Failure
	}

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(ctx.Stderr, "pwd: %s\n", err)
		return Failure
	}
	fmt.Fprintln(ctx.Stdout, wd)
	return Success
}
