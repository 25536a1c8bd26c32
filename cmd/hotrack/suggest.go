package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/thalesfsp/hotrack/model"
)

// errInvalidDefinition indicates a malformed --param or --value flag.
var errInvalidDefinition = errors.New("invalid definition")

// paramDefinition is a parameter declared on the command line.
type paramDefinition struct {
	Name string
	Spec model.ParamSpec
}

// parseParamDefinitions parses parameter definitions such as
//
//	lr=loguniform:1e-4,1@1e-3 act=choice:relu,tanh,"leaky relu"@tanh flag=randbool
//
// Definitions are separated by spaces and quoted like in a shell, so a
// choice of the string "1" is written '"1"'. The optional guess follows
// the last '@'; for a choice it must be one of the options, which lets
// options contain '@'.
func parseParamDefinitions(s string) ([]paramDefinition, error) {
	tokens, err := shlex.Split(s)
	if err != nil {
		return nil, err
	}
	var out []paramDefinition
	for _, token := range tokens {
		def, err := parseParamDefinition(token)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

// parseParamDefinition parses a single name=kind:args@guess definition.
func parseParamDefinition(token string) (paramDefinition, error) {
	name, rest, found := strings.Cut(token, "=")
	if !found || name == "" || rest == "" {
		return paramDefinition{}, fmt.Errorf("%w: %q: expected name=kind:args", errInvalidDefinition, token)
	}
	var spec model.ParamSpec
	kindEnd := len(rest)
	if idx := strings.IndexAny(rest, ":@"); idx >= 0 {
		kindEnd = idx
	}
	spec.Kind = model.Kind(rest[:kindEnd])
	rest = rest[kindEnd:]

	if spec.Kind == model.KindChoice {
		spec.Choices, spec.Guess = parseChoices(strings.TrimPrefix(rest, ":"))
	} else {
		if idx := strings.LastIndex(rest, "@"); idx >= 0 {
			spec.Guess = parseScalar(rest[idx+1:])
			rest = rest[:idx]
		}
		if args := strings.TrimPrefix(rest, ":"); args != "" {
			for _, item := range strings.Split(args, ",") {
				v, err := strconv.ParseFloat(strings.TrimSpace(item), 64)
				if err != nil {
					return paramDefinition{}, fmt.Errorf("%w: %q: %s", errInvalidDefinition, token, err.Error())
				}
				spec.Args = append(spec.Args, v)
			}
		}
	}
	if err := spec.Validate(); err != nil {
		return paramDefinition{}, fmt.Errorf("%s: %w", name, err)
	}
	return paramDefinition{Name: name, Spec: spec}, nil
}

// parseChoices parses the options of a choice and its optional guess. The
// guess is the text after the rightmost '@' that names one of the options
// before it; any other '@' belongs to an option.
func parseChoices(args string) (choices []any, guess any) {
	split := func(s string) []any {
		var out []any
		if s == "" {
			return out
		}
		for _, item := range strings.Split(s, ",") {
			out = append(out, parseScalar(item))
		}
		return out
	}
	for idx := strings.LastIndex(args, "@"); idx >= 0; idx = strings.LastIndex(args[:idx], "@") {
		options := split(args[:idx])
		candidate := parseScalar(args[idx+1:])
		spec := model.ParamSpec{Kind: model.KindChoice, Choices: options}
		if _, err := spec.Normalize(candidate); err == nil {
			return options, candidate
		}
	}
	return split(args), nil
}

// parseScalar decodes s as a JSON scalar, falling back to the string
// itself.
func parseScalar(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case map[string]any, []any:
		return s
	}
	return v
}

// parseAssignments parses name=value flags, keeping values undecoded.
func parseAssignments(entries []string) (map[string]string, error) {
	out := map[string]string{}
	for _, entry := range entries {
		name, value, found := strings.Cut(entry, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("%w: %q: expected name=value", errInvalidDefinition, entry)
		}
		out[name] = value
	}
	return out, nil
}

// decodeValues decodes raw values as scalars. A value of a known parameter
// that the parameter rejects as a scalar but accepts as a plain string is
// kept as a string, so "1" records the string option of choice:"1","2".
func decodeValues(raw map[string]string, params map[string]model.ParamSpec) map[string]any {
	out := make(map[string]any, len(raw))
	for name, s := range raw {
		v := parseScalar(s)
		if spec, known := params[name]; known {
			if _, err := spec.Normalize(v); err != nil {
				if _, err := spec.Normalize(s); err == nil {
					v = s
				}
			}
		}
		out[name] = v
	}
	return out
}

// suggestion is the output of the suggest subcommand.
type suggestion struct {
	RunID   string         `json:"run_id"`
	Alg     string         `json:"alg"`
	Backend string         `json:"backend"`
	Values  map[string]any `json:"values"`
}

// registerSuggest registers the suggest subcommand.
func registerSuggest(rootCmd *cobra.Command, globalOptions *Options) {
	var (
		alg    string
		params []string
	)
	subCmd := &cobra.Command{
		Use:   "suggest <base>",
		Short: "Prints parameter values to try as JSON",
		Long: `Prints parameter values to try as JSON, together with a run id.

Score the run later with "hotrack record --run-id". Parameters are
declared with --param name=kind:args[@guess], for example:

  hotrack suggest train --param 'lr=loguniform:1e-4,1@1e-3 layers=randint:1,8'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("alg") && globalOptions.config != nil && globalOptions.config.Alg != "" {
				alg = globalOptions.config.Alg
			}
			var defs []paramDefinition
			for _, entry := range params {
				parsed, err := parseParamDefinitions(entry)
				if err != nil {
					return err
				}
				defs = append(defs, parsed...)
			}

			opt, err := globalOptions.newOptimizer(args[0])
			if err != nil {
				return err
			}
			if err := opt.Run(cmd.Context(), alg); err != nil {
				return err
			}
			for _, def := range defs {
				if _, err := opt.Param(def.Name, def.Spec); err != nil {
					return err
				}
			}
			if err := opt.SaveParams(); err != nil {
				return err
			}

			run, _ := opt.CurrentRun()
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(suggestion{
				RunID:   run.RunID,
				Alg:     run.Alg,
				Backend: opt.Backend(),
				Values:  run.Values,
			})
		},
	}
	rootCmd.AddCommand(subCmd)
	flags := subCmd.Flags()

	flags.StringVar(
		&alg,
		"alg",
		"",
		"algorithm to use (see the algs subcommand)",
	)

	flags.StringArrayVarP(
		&params,
		"param",
		"p",
		[]string{},
		"declare parameters as name=kind:args[@guess] (may be specified multiple times)",
	)
}

// registerRecord registers the record subcommand.
func registerRecord(rootCmd *cobra.Command, globalOptions *Options) {
	var (
		values, memo []string
		gain, loss   float64
		runID, alg   string
	)
	subCmd := &cobra.Command{
		Use:   "record <base>",
		Short: "Records a scored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawValues, err := parseAssignments(values)
			if err != nil {
				return err
			}
			rawMemo, err := parseAssignments(memo)
			if err != nil {
				return err
			}

			opt, err := globalOptions.newOptimizer(args[0])
			if err != nil {
				return err
			}
			example := model.Example{
				RunID:  runID,
				Alg:    alg,
				Values: decodeValues(rawValues, opt.Data().Params),
			}
			if len(rawMemo) > 0 {
				example.Memo = decodeValues(rawMemo, nil)
			}
			if cmd.Flags().Changed("gain") {
				example.Gain = &gain
			}
			if cmd.Flags().Changed("loss") {
				example.Loss = &loss
			}
			return opt.TellExamples(example)
		},
	}
	rootCmd.AddCommand(subCmd)
	flags := subCmd.Flags()

	flags.StringArrayVar(
		&values,
		"value",
		[]string{},
		"parameter value as name=value (may be specified multiple times)",
	)

	flags.StringArrayVar(
		&memo,
		"memo",
		[]string{},
		"information to remember as key=value (may be specified multiple times)",
	)

	flags.Float64Var(
		&gain,
		"gain",
		0,
		"reward of the run when maximizing",
	)

	flags.Float64Var(
		&loss,
		"loss",
		0,
		"reward of the run when minimizing",
	)

	flags.StringVar(
		&runID,
		"run-id",
		"",
		"run id printed by suggest (default: a new one)",
	)

	flags.StringVar(
		&alg,
		"alg",
		"",
		"algorithm that chose the values",
	)

	subCmd.MarkFlagsMutuallyExclusive("gain", "loss")
	subCmd.MarkFlagsOneRequired("gain", "loss")
}
