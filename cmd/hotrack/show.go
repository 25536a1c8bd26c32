package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"github.com/thalesfsp/hotrack/backend"
	"github.com/thalesfsp/hotrack/internal/report"
	"github.com/thalesfsp/hotrack/model"
)

// errNothingToExport indicates export was called without destinations.
var errNothingToExport = errors.New("nothing to export: use --csv and/or --sqlite")

// loadData reads the data file of base.
func (o *Options) loadData(base string) (*model.Data, error) {
	opt, err := o.newOptimizer(base)
	if err != nil {
		return nil, err
	}
	log.Debugf("reading %s", opt.DataFile())
	return opt.Data(), nil
}

// registerShow registers the show subcommand.
func registerShow(rootCmd *cobra.Command, globalOptions *Options) {
	var limit int
	subCmd := &cobra.Command{
		Use:   "show <base>",
		Short: "Shows a summary and the best runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := globalOptions.loadData(args[0])
			if err != nil {
				return err
			}
			summary, err := report.Summarize(data)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if err := summary.Write(w); err != nil {
				return err
			}
			fmt.Fprintln(w)
			return report.WriteTable(w, data, limit)
		},
	}
	rootCmd.AddCommand(subCmd)
	subCmd.Flags().IntVar(
		&limit,
		"limit",
		10,
		"maximum number of runs to show (zero means all)",
	)
}

// registerBest registers the best subcommand.
func registerBest(rootCmd *cobra.Command, globalOptions *Options) {
	subCmd := &cobra.Command{
		Use:   "best <base>",
		Short: "Prints the best run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := globalOptions.loadData(args[0])
			if err != nil {
				return err
			}
			best, err := data.Best()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(best)
		},
	}
	rootCmd.AddCommand(subCmd)
}

// registerPlot registers the plot subcommand.
func registerPlot(rootCmd *cobra.Command, globalOptions *Options) {
	var (
		kind          string
		width, height int
	)
	subCmd := &cobra.Command{
		Use:   "plot <base>",
		Short: "Draws a text chart of the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := globalOptions.loadData(args[0])
			if err != nil {
				return err
			}
			switch kind {
			case "convergence":
				return report.PlotConvergence(cmd.OutOrStdout(), data, width, height)
			case "history":
				return report.PlotHistory(cmd.OutOrStdout(), data, width, height)
			default:
				return fmt.Errorf("unknown plot kind %q", kind)
			}
		},
	}
	rootCmd.AddCommand(subCmd)
	flags := subCmd.Flags()

	flags.StringVar(
		&kind,
		"kind",
		"convergence",
		"chart to draw (one of: convergence, history)",
	)

	flags.IntVar(
		&width,
		"width",
		60,
		"chart width in columns",
	)

	flags.IntVar(
		&height,
		"height",
		15,
		"chart height in rows",
	)
}

// registerExport registers the export subcommand.
func registerExport(rootCmd *cobra.Command, globalOptions *Options) {
	var csvPath, sqlitePath string
	subCmd := &cobra.Command{
		Use:   "export <base>",
		Short: "Exports the history to CSV and/or SQLite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath == "" && sqlitePath == "" {
				return errNothingToExport
			}
			data, err := globalOptions.loadData(args[0])
			if err != nil {
				return err
			}
			if csvPath != "" {
				if err := exportCSV(csvPath, data); err != nil {
					return err
				}
				log.Infof("wrote %s", csvPath)
			}
			if sqlitePath != "" {
				if err := report.ExportSQLite(cmd.Context(), sqlitePath, data); err != nil {
					return err
				}
				log.Infof("wrote %s", sqlitePath)
			}
			return nil
		},
	}
	rootCmd.AddCommand(subCmd)
	flags := subCmd.Flags()

	flags.StringVar(
		&csvPath,
		"csv",
		"",
		"write the history to the given CSV file",
	)

	flags.StringVar(
		&sqlitePath,
		"sqlite",
		"",
		"write the history to the given SQLite database",
	)
}

// exportCSV writes data to the CSV file at path.
func exportCSV(path string, data *model.Data) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// registerAlgs registers the algs subcommand.
func registerAlgs(rootCmd *cobra.Command) {
	subCmd := &cobra.Command{
		Use:   "algs",
		Short: "Lists the available algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, alg := range backend.Default.Algs() {
				options := ""
				if len(alg.Options) > 0 {
					raw, err := json.Marshal(alg.Options)
					if err != nil {
						return err
					}
					options = string(raw)
				}
				line := fmt.Sprintf("%-36s %-34s min=%d %s", alg.Name, alg.Backend, alg.MinExamples, options)
				fmt.Fprintln(w, strings.TrimRight(line, " "))
			}
			return nil
		},
	}
	rootCmd.AddCommand(subCmd)
}
