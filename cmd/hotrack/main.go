// Command hotrack runs, inspects and drives hotrack optimizations from the
// command line.
//
// Trial programs written in Go use the hotrack package directly. Programs
// written in other languages use the suggest and record subcommands, and
// any program can be run many times in parallel with the run subcommand.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"github.com/thalesfsp/hotrack"
	"github.com/thalesfsp/hotrack/internal/config"
	"github.com/thalesfsp/hotrack/internal/logx"
)

// Options contains the global options you can set from the CLI.
type Options struct {
	ConfigFile string
	Dir        string
	Tag        string
	Protocol   string
	Verbose    bool

	// config is the loaded configuration file.
	config *config.Config
}

// main is the main function of hotrack.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("hotrack failed")
		os.Exit(1)
	}
}

// newRootCommand creates the hotrack command with all its subcommands.
func newRootCommand() *cobra.Command {
	globalOptions := &Options{}
	rootCmd := &cobra.Command{
		Use:           "hotrack",
		Short:         "hotrack tracks and tunes the parameters of your programs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return globalOptions.setup(cmd)
		},
	}
	flags := rootCmd.PersistentFlags()

	flags.StringVar(
		&globalOptions.ConfigFile,
		"config",
		"",
		"read defaults from the given HuJSON configuration file",
	)

	flags.StringVar(
		&globalOptions.Dir,
		"dir",
		"",
		"directory containing the data files",
	)

	flags.StringVar(
		&globalOptions.Tag,
		"tag",
		"",
		"suffix of the data file base name",
	)

	flags.StringVar(
		&globalOptions.Protocol,
		"protocol",
		"json",
		"data file encoding (one of: json, yaml)",
	)

	flags.BoolVarP(
		&globalOptions.Verbose,
		"verbose",
		"v",
		false,
		"increase verbosity level",
	)

	registerRun(rootCmd, globalOptions)
	registerShow(rootCmd, globalOptions)
	registerBest(rootCmd, globalOptions)
	registerPlot(rootCmd, globalOptions)
	registerExport(rootCmd, globalOptions)
	registerSuggest(rootCmd, globalOptions)
	registerRecord(rootCmd, globalOptions)
	registerAlgs(rootCmd)

	return rootCmd
}

// setup loads the configuration file, lets it fill the flags the user did
// not set and configures logging.
func (o *Options) setup(cmd *cobra.Command) error {
	c, err := config.Load(o.ConfigFile)
	if err != nil {
		return err
	}
	o.config = c

	flags := cmd.Flags()
	if !flags.Changed("dir") && c.Dir != "" {
		o.Dir = c.Dir
	}
	if !flags.Changed("tag") && c.Tag != "" {
		o.Tag = c.Tag
	}
	if !flags.Changed("protocol") && c.Protocol != "" {
		o.Protocol = c.Protocol
	}
	if !flags.Changed("verbose") && c.Verbose {
		o.Verbose = true
	}

	logx.Setup(o.Verbose)
	return nil
}

// newOptimizer opens the data file of base.
func (o *Options) newOptimizer(base string) (*hotrack.Optimizer, error) {
	return hotrack.New(
		base,
		hotrack.WithDir(o.Dir),
		hotrack.WithTag(o.Tag),
		hotrack.WithProtocol(o.Protocol),
		hotrack.WithLogger(log.Log),
	)
}
