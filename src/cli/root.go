// Package cli provides the cobra root command wrapper grafeoctl builds
// its subcommands onto.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes per spec.md §6's admin CLI contract.
const (
	ExitSuccess         = 0
	ExitOperationFailure = 1
	ExitUsageError       = 2
)

type Options struct {
	ConfigPath string
	Debug      bool
}

type RootCommand struct {
	*cobra.Command
	Options Options
}

func Init(name string) *RootCommand {
	cmd := &RootCommand{
		Command: &cobra.Command{Use: name},
	}
	cmd.initFlags()
	return cmd
}

func (c *RootCommand) initFlags() {
	c.PersistentFlags().StringVarP(
		&c.Options.ConfigPath, "config", "c", "",
		"Path to the .env configuration file",
	)
	c.PersistentFlags().BoolVar(
		&c.Options.Debug, "debug", false,
		"Use a development (human-readable) logger instead of JSON",
	)
}

func (c *RootCommand) Execute(ctx context.Context) error {
	return c.ExecuteContext(ctx)
}

// MustExecute runs the command tree and exits the process with the exit
// code the failing subcommand attached via ExitError, or ExitUsageError
// for a plain cobra usage failure.
func (c *RootCommand) MustExecute(ctx context.Context) {
	if err := c.Execute(ctx); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}

		log := NewLogger(c.Options.Debug)
		defer func() { _ = log.Sync() }()

		if exitErr, ok := err.(*ExitError); ok {
			log.Errorw("command failed", "error", exitErr.Err)
			os.Exit(exitErr.Code)
		}
		log.Errorw("usage error", "error", err)
		os.Exit(ExitUsageError)
	}
}

// ExitError pins the process exit code a subcommand wants on failure,
// distinguishing an operational failure (validate found a corruption, a
// backup was refused) from a plain usage error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func OperationalFailure(err error) *ExitError { return &ExitError{Code: ExitOperationFailure, Err: err} }
