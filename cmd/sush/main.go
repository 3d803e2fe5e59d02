// Command sush is an interactive Unix-style shell: a tokenizer, a
// pipeline assembler, a small built-in dispatcher, and a real
// fork/exec/pipe execution engine, plus a single-worker background
// job queue.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
