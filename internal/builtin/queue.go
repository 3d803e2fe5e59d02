package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"sush/internal/pipeline"
)

// queueBuiltin hands its trailing words to the pipeline assembler as a
// single command and enqueues the result. It deliberately does not
// run the shared -h/--help flag parser over its full argument list:
// the wrapped command's own flags (queue sleep -10, say) would
// otherwise be consumed as queue's flags instead of the wrapped
// command's.
func queueBuiltin(ctx *Context, argv []string) Result {
	if len(argv) >= 2 && (argv[1] == "-h" || argv[1] == "--help") {
		fmt.Fprintln(ctx.Stdout, "usage: queue CMD [ARG...]")
		return Success
	}
	if len(argv) < 2 {
		fmt.Fprintln(ctx.Stderr, "queue: expected a command to run")
		return Failure
	}
	if ctx.Piped {
		fmt.Fprintln(ctx.Stderr, "queue: piped commands cannot be queued")
		return Failure
	}
	if ctx.Redirected {
		fmt.Fprintln(ctx.Stderr, "queue: redirected commands cannot be queued")
		return Failure
	}

	line := strings.Join(argv[1:], " ")
	pl, err := pipeline.Build(line)
	if err != nil {
		fmt.Fprintf(ctx.Stderr, "queue: %s\n", err)
		return Failure
	}
	if len(pl) != 1 {
		fmt.Fprintln(ctx.Stderr, "queue: piped commands cannot be queued")
		return Failure
	}

	id, err := ctx.Queue.Enqueue(pl[0])
	if err != nil {
		fmt.Fprintf(ctx.Stderr, "queue: %s\n", err)
		return Failure
	}
	fmt.Fprintf(ctx.Stdout, "queued job %d\n", id)
	return Success
}

func statusBuiltin(ctx *Context, argv []string) Result {
	rest, res, done := parseHelp(ctx, "usage: status", argv)
	if done {
		return res
	}
	if len(rest) != 0 {
		fmt.Fprintln(ctx.Stderr, "status: too many arguments")
		return Failure
	}
	ctx.Queue.Status(ctx.Stdout)
	return Success
}

func outputBuiltin(ctx *Context, argv []string) Result {
	rest, res, done := parseHelp(ctx, "usage: output JOB_ID", argv)
	if done {
		return res
	}
	if len(rest) != 1 {
		fmt.Fprintln(ctx.Stderr, "output: expected a job id")
		return Failure
	}

	id, err := strconv.Atoi(rest[0])
	if err != nil {
		fmt.Fprintf(ctx.Stderr, "output: %s: not a job id\n", rest[0])
		return Failure
	}
	if err := ctx.Queue.Output(ctx.Stdout, id); err != nil {
		fmt.Fprintf(ctx.Stderr, "output: %s\n", err)
		return Failure
	}
	return Success
}

func cancelBuiltin(ctx *Context, argv []string) Result {
	rest, res, done := parseHelp(ctx, "usage: cancel JOB_ID", argv)
	if done {
		return res
	}
	if len(rest) != 1 {
		fmt.Fprintln(ctx.Stderr, "cancel: expected a job id")
		return Failure
	}

	id, err := strconv.Atoi(rest[0])
	if err != nil {
		fmt.Fprintf(ctx.Stderr, "cancel: %s: not a job id\n", rest[0])
		return Failure
	}
	if err := ctx.Queue.Cancel(id); err != nil {
		fmt.Fprintf(ctx.Stderr, "cancel: %s\n", err)
		return Failure
	}
	return Success
}
