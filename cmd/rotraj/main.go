// Command rotraj reads ROTRAJ trajectory files and derives from them the
// data behind Hovmoller diagrams, time series and trajectory maps. It also
// converts the files to stf, NetCDF and SQLite.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rmera/rotraj/config"
)

type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "rotraj",
		Short: "Tools for ROTRAJ trajectory files",
		Long: `rotraj decodes the text output of the ROTRAJ trajectory model and builds,
from one file or a range of daily files, pivot tables, time series summaries
and map tracks. Tables can be exported to stf, NetCDF and SQLite.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")

	root.AddCommand(
		a.readCmd(),
		a.rangeCmd(),
		a.hovmollerCmd(),
		a.summaryCmd(),
		a.tracksCmd(),
		a.exportCmd(),
		a.catalogCmd(),
		a.equpotCmd(),
	)
	return root
}

// setup loads the config and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if strings.TrimSpace(a.configPath) != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		a.cfg.LogLevel = a.logLevel
	}
	level, err := a.cfg.Level()
	if err != nil {
		return err
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
