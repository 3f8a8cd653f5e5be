// Package main implements the torma CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "torma: %v\n", err)
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "torma",
	Short: "Torma - kanban board for print design orders",
	Long: `Torma tracks customer design orders on a three column board:
Proses Desain, Proses ACC and Selesai.

Task IDs may be abbreviated to any unique prefix. Status arguments accept
the full value or the aliases desain, acc and selesai.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	globalConfigPath string
	globalStorage    string
	globalDataPath   string
	globalLogLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&globalConfigPath, "config", "", "Config file (default ./torma.toml)")
	rootCmd.PersistentFlags().StringVar(&globalStorage, "storage", "", "Storage backend (file, sqlite, redis, memory)")
	rootCmd.PersistentFlags().StringVar(&globalDataPath, "data", "", "Storage directory (file) or database file (sqlite)")
	rootCmd.PersistentFlags().StringVar(&globalLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cobra.OnFinalize(closeApp)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: fmt.Errorf("%w\n\n%s", err, cmd.UsageString())}
	})
}

// usageError exits with status 2 like flag parse failures do.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }
func (e usageError) ExitCode() int { return 2 }
