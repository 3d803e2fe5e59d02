// Package builtin implements the shell's built-in commands: the
// handful of operations (changing environment variables, the working
// directory, and the background job queue) that have to run inside
// the shell process itself rather than as a forked child.
package builtin

import (
	"fmt"
	"io"

	"sush/internal/diag"
	"sush/internal/environment"
	"sush/internal/pipeline"
)

// Result is what a built-in handler reports back to its caller.
type Result int

const (
	Success Result = iota
	Failure
	ExitShell
)

// QueueService is the subset of the background job queue that
// built-ins need. It is satisfied by *queue.Manager; defining it here
// instead of importing package queue keeps queue free to depend on
// nothing from builtin.
type QueueService interface {
	Enqueue(d *pipeline.Descriptor) (int, error)
	Status(w io.Writer)
	Output(w io.Writer, id int) error
	Cancel(id int) error
}

// Context is the environment a built-in handler runs in.
type Context struct {
	Env    *environment.Store
	Queue  QueueService
	Stdout io.Writer
	Stderr io.Writer
	Diag   *diag.Logger

	// Piped reports whether the raw command line this built-in was
	// invoked from had more than one "|"-separated segment, i.e. the
	// built-in is not the whole line by itself. queue uses this to
	// reject "queue CMD | other" up front, the way is_background_command
	// inspects the whole line before it gets split into segments.
	Piped bool

	// Redirected reports whether the outer command descriptor this
	// built-in was invoked from carries its own file redirection, e.g.
	// "queue CMD > FILE": the assembler binds ">FILE" to queue's own
	// descriptor, not to CMD's, so queue can never see it by re-parsing
	// its trailing words and has to be told here instead.
	Redirected bool
}

// Handler implements one built-in command. argv[0] is the command
// name itself, matching os.Args/exec.Cmd.Args convention.
type Handler func(ctx *Context, argv []string) Result

// Dispatcher is the closed, name-indexed table of built-in commands.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher returns a Dispatcher pre-loaded with every built-in.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]Handler)}
	d.register("setenv", setenvBuiltin)
	d.register("getenv", getenvBuiltin)
	d.register("unsetenv", unsetenvBuiltin)
	d.register("cd", cdBuiltin)
	d.register("pwd", pwdBuiltin)
	d.register("exit", exitBuiltin)
	d.register("queue", queueBuiltin)
	d.register("status", statusBuiltin)
	d.register("output", outputBuiltin)
	d.register("cancel", cancelBuiltin)
	return d
}

func (d *Dispatcher) register(name string, h Handler) {
	d.handlers[name] = h
}

// IsBuiltin reports whether name names a built-in command.
func (d *Dispatcher) IsBuiltin(name string) bool {
	_, ok := d.handlers[name]
	return ok
}

// Dispatch runs the built-in named by argv[0].
func (d *Dispatcher) Dispatch(ctx *Context, argv []string) Result {
	h, ok := d.handlers[argv[0]]
	if !ok {
		fmt.Fprintf(ctx.Stderr, "%s: command not found\n", argv[0])
		return Failure
	}
	return h(ctx, argv)
}
