package builtin

import "fmt"

func exitBuiltin(ctx *Context, argv []string) Result {
	rest, res, done := parseHelp(ctx, "usage: exit", argv)
	if done {
		return res
	}
	if len(rest) != 0 {
		fmt.Fprintln(ctx.Stderr, "exit: too many arguments")
		return Failure
	}
	return ExitShell
}
