// Package diag provides the shell's structured diagnostic logging.
// Malformed command lines, execution-engine failures, and queued jobs
// that fail to start also get a structured log event here alongside
// the user-facing line. Errors reported by the built-ins themselves
// are written to the user only and are not logged.
package diag

import "go.uber.org/zap"

// Logger is a thin wrapper around a zap logger so callers never need
// to import zap directly.
type Logger struct {
	*zap.Logger
}

// New builds a Logger. In debug mode it logs human-readable console
// lines to stderr; otherwise it logs structured JSON.
func New(debug bool) (*Logger, error) {
	var zl *zap.Logger
	var err error
	if debug {
		zl, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		zl, err = cfg.Build()
	}
	if err != nil {
		return nil, err
	}
	return &Logger{zl}, nil
}

// Noop returns a Logger that discards everything, for tests and for
// callers that have not set up logging yet.
func Noop() *Logger {
	return &Logger{zap.NewNop()}
}
