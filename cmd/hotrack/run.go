package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"github.com/thalesfsp/hotrack/internal/runner"
)

// runOptions contains the options of the run subcommand.
type runOptions struct {
	Trials      int
	Jobs        int
	StopOnError bool
	Env         []string
}

// registerRun registers the run subcommand.
func registerRun(rootCmd *cobra.Command, globalOptions *Options) {
	options := &runOptions{}
	subCmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Runs a trial program many times",
		Long: `Runs a trial program many times, possibly in parallel.

Each process gets the HOTRACK_TRIAL and HOTRACK_TRIALS environment
variables. A single argument is split like a shell would do.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.main(cmd, globalOptions, args)
		},
	}
	rootCmd.AddCommand(subCmd)
	flags := subCmd.Flags()

	flags.IntVarP(
		&options.Trials,
		"trials",
		"n",
		1,
		"number of times to run the program",
	)

	flags.IntVarP(
		&options.Jobs,
		"jobs",
		"j",
		1,
		"maximum number of programs running at the same time",
	)

	flags.BoolVar(
		&options.StopOnError,
		"stop-on-error",
		false,
		"stop at the first failing trial",
	)

	flags.StringSliceVar(
		&options.Env,
		"env",
		[]string{},
		"add KEY=VALUE to the environment of the program (may be specified multiple times)",
	)
}

// main is the main function of the run subcommand.
func (o *runOptions) main(cmd *cobra.Command, globalOptions *Options, args []string) error {
	if c := globalOptions.config; c != nil {
		if !cmd.Flags().Changed("trials") && c.Trials > 0 {
			o.Trials = c.Trials
		}
		if !cmd.Flags().Changed("jobs") && c.Jobs > 0 {
			o.Jobs = c.Jobs
		}
	}

	argv := args
	if len(args) == 1 {
		var err error
		if argv, err = runner.ParseCommand(args[0]); err != nil {
			return err
		}
	}

	r := &runner.Runner{
		Command:     argv,
		Trials:      o.Trials,
		Jobs:        o.Jobs,
		Env:         o.Env,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Logger:      log.Log,
		StopOnError: o.StopOnError,
	}
	if !globalOptions.Verbose {
		r.Progress = os.Stderr
	}

	results, err := r.Run(cmd.Context())
	if err != nil {
		return err
	}
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d trials failed", failed, len(results))
	}
	log.Infof("%d trials done", len(results))
	return nil
}
