package shell

import (
	"io"
	"strings"

	"github.com/abiosoft/readline"
	"go.uber.org/zap"
)

// Interactive wraps a Shell with the readline instance driving its
// REPL. It is only built when sush runs without -c: sush -c runs
// RunOnce instead.
type Interactive struct {
	*Shell
	rl *readline.Instance
}

// NewInteractive wraps sh with a readline-driven REPL reading from in
// and writing to out.
func NewInteractive(sh *Shell, in io.ReadCloser, out io.Writer) (*Interactive, error) {
	cfg := &readline.Config{
		Stdin:       readline.NewCancelableStdin(in),
		Stdout:      out,
		Stderr:      out,
		HistoryFile: sh.Config.HistoryFile,
	}
	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return &Interactive{Shell: sh, rl: rl}, nil
}

// Run drives the read-eval-print loop until EOF or the "exit"
// built-in, returning the exit status of the last command run.
func (i *Interactive) Run() int {
	status := 0
	for {
		i.rl.SetPrompt(i.Prompt())
		line, err := i.rl.Readline()

		switch {
		case err == io.EOF:
			return status
		case err == readline.ErrInterrupt:
			continue
		case err != nil:
			if i.Diag != nil {
				i.Diag.Warn("readline-error", zap.Error(err))
			}
			continue
		case strings.TrimSpace(line) == "":
			continue
		}

		outcome := i.RunLine(line)
		status = outcome.Status
		if outcome.Exit {
			return status
		}
	}
}
