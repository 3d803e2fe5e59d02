package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pborman/getopt/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"sush/internal/config"
	"sush/internal/diag"
	"sush/internal/shell"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "sush",
		Short:              "sush is an interactive Unix-style command shell.",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true, // flags are parsed by getopt below, matching the built-in flag style
		RunE:               runShell,
	}
}

type cliFlags struct {
	command    string
	configPath string
	rcFile     string
	debug      bool
	help       bool
}

func parseCLIFlags(argv []string) (*cliFlags, error) {
	opts := getopt.New()

	commandPtr := opts.StringLong("command", 'c', "", "run CMDLINE and exit, instead of starting a REPL")
	configPtr := opts.StringLong("config", 0, "", "path to the shell's configuration file")
	rcFilePtr := opts.StringLong("rcfile", 0, "", "path to the startup file (default $SUSHHOME/.sushrc)")
	debugPtr := opts.BoolLong("debug", 'v', "enable verbose diagnostics")
	helpPtr := opts.BoolLong("help", 'h', "show this help message")

	if err := opts.Getopt(append([]string{"sush"}, argv...), nil); err != nil {
		return nil, err
	}

	return &cliFlags{
		command:    *commandPtr,
		configPath: *configPtr,
		rcFile:     *rcFilePtr,
		debug:      *debugPtr,
		help:       *helpPtr,
	}, nil
}

func runShell(cmd *cobra.Command, args []string) error {
	flags, err := parseCLIFlags(args)
	if err != nil {
		return fmt.Errorf("sush: %w", err)
	}
	if flags.help {
		fmt.Println("usage: sush [-c CMDLINE] [--config PATH] [--rcfile PATH] [-v]")
		return nil
	}

	logger, err := diag.New(flags.debug)
	if err != nil {
		return fmt.Errorf("sush: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(afero.NewOsFs(), flags.configPath)
	if err != nil {
		return err
	}

	sh, err := shell.New(cfg, logger, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	defer sh.Close()

	if flags.command != "" {
		os.Exit(sh.RunOnce(flags.command))
		return nil
	}

	startup := flags.rcFile
	if startup == "" {
		startup = filepath.Join(sh.Env.Get("SUSHHOME"), ".sushrc")
	}
	sh.RunStartupFile(startup)

	repl, err := shell.NewInteractive(sh, os.Stdin, os.Stdout)
	if err != nil {
		return fmt.Errorf("sush: %w", err)
	}

	os.Exit(repl.Run())
	return nil
}
