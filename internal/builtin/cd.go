package builtin

import (
	"fmt"
	"os"
)

func cdBuiltin(ctx *Context, argv []string) Result {
	rest, res, done := parseHelp(ctx, "usage: cd [DIR]", argv)
	if done {
		return res
	}

	var target string
	switch len(rest) {
	case 0:
		if !ctx.Env.Exists("HOME") {
			fmt.Fprintln(ctx.Stderr, "cd: HOME not set")
			return Failure
		}
		target = ctx.Env.Get("HOME")
	case 1:
		target = rest[0]
	default:
		fmt.Fprintln(ctx.Stderr, "cd: too many arguments")
		return Failure
	}

	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(ctx.Stderr, "cd: %s\n", err)
		return Failure
	}

	if wd, err := os.Getwd(); err == nil {
		ctx.Env.Set("PWD", wd)
	}
	return Success
}
