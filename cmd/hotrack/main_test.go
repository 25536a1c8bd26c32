package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalesfsp/hotrack/model"
)

// execute runs the hotrack command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd := newRootCommand()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseParamDefinitions(t *testing.T) {
	defs, err := parseParamDefinitions(`lr=loguniform:1e-4,1@1e-3 act=choice:relu,"leaky relu",1 flag=randbool`)
	require.NoError(t, err)
	expect := []paramDefinition{{
		Name: "lr",
		Spec: model.ParamSpec{Kind: model.KindLogUniform, Args: []float64{1e-4, 1}, Guess: 1e-3},
	}, {
		Name: "act",
		Spec: model.ParamSpec{Kind: model.KindChoice, Choices: []any{"relu", "leaky relu", 1.0}},
	}, {
		Name: "flag",
		Spec: model.ParamSpec{Kind: model.KindRandBool},
	}}
	if diff := cmp.Diff(expect, defs); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseParamDefinitionErrors(t *testing.T) {
	for _, input := range []string{
		"lr",
		"=uniform:0,1",
		"lr=uniform:0,abc",
		"lr=uniform:1,0",
		"lr=gamma:1,2",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := parseParamDefinitions(input)
			assert.Error(t, err)
		})
	}
}

func TestParseChoiceDefinitions(t *testing.T) {
	defs, err := parseParamDefinitions(`act=choice:relu,tanh@tanh mail=choice:a@x.org,b@y.org mix=choice:a@b,c@c n=choice:'"1"',2@2`)
	require.NoError(t, err)
	expect := []paramDefinition{{
		Name: "act",
		Spec: model.ParamSpec{Kind: model.KindChoice, Choices: []any{"relu", "tanh"}, Guess: "tanh"},
	}, {
		Name: "mail",
		Spec: model.ParamSpec{Kind: model.KindChoice, Choices: []any{"a@x.org", "b@y.org"}},
	}, {
		Name: "mix",
		Spec: model.ParamSpec{Kind: model.KindChoice, Choices: []any{"a@b", "c"}, Guess: "c"},
	}, {
		Name: "n",
		Spec: model.ParamSpec{Kind: model.KindChoice, Choices: []any{"1", 2.0}, Guess: 2.0},
	}}
	if diff := cmp.Diff(expect, defs); diff != "" {
		t.Fatal(diff)
	}

	defs, err = parseParamDefinitions("flag=randbool@true")
	require.NoError(t, err)
	assert.Equal(t, true, defs[0].Spec.Guess)
}

func TestParseAssignments(t *testing.T) {
	raw, err := parseAssignments([]string{"n=3", "act=relu", "on=true", "note=a=b"})
	require.NoError(t, err)
	values := decodeValues(raw, nil)
	expect := map[string]any{"n": 3.0, "act": "relu", "on": true, "note": "a=b"}
	if diff := cmp.Diff(expect, values); diff != "" {
		t.Fatal(diff)
	}

	_, err = parseAssignments([]string{"novalue"})
	assert.ErrorIs(t, err, errInvalidDefinition)

	// known parameters keep strings their definition needs
	params := map[string]model.ParamSpec{
		"s": {Kind: model.KindChoice, Choices: []any{"1", "2"}},
		"f": {Kind: model.KindChoice, Choices: []any{1, 2}},
	}
	values = decodeValues(map[string]string{"s": "1", "f": "1"}, params)
	assert.Equal(t, map[string]any{"s": "1", "f": 1.0}, values)
}

func TestRecordStringChoice(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--dir", dir, "suggest", "train", "--alg", "random",
		"--param", `n=choice:'"1"','"2"'`)
	require.NoError(t, err)
	var s suggestion
	require.NoError(t, json.Unmarshal([]byte(out), &s))

	_, err = execute(t, "--dir", dir, "record", "train", "--run-id", s.RunID,
		"--value", "n=1", "--loss", "0.5")
	require.NoError(t, err)

	out, err = execute(t, "--dir", dir, "best", "train")
	require.NoError(t, err)
	var best model.Example
	require.NoError(t, json.Unmarshal([]byte(out), &best))
	assert.Equal(t, "1", best.Values["n"])
}

func TestSuggestRecordBest(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--dir", dir, "suggest", "train", "--alg", "random",
		"--param", "x=uniform:0,1 n=randint:1,5@2")
	require.NoError(t, err)
	var s suggestion
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, "random", s.Backend)
	assert.Equal(t, 2.0, s.Values["n"])

	_, err = execute(t, "--dir", dir, "record", "train", "--run-id", s.RunID,
		"--value", "x=0.5", "--value", "n=2", "--gain", "7")
	require.NoError(t, err)

	out, err = execute(t, "--dir", dir, "best", "train")
	require.NoError(t, err)
	var best model.Example
	require.NoError(t, json.Unmarshal([]byte(out), &best))
	assert.Equal(t, s.RunID, best.RunID)
	require.NotNil(t, best.Gain)
	assert.Equal(t, 7.0, *best.Gain)

	out, err = execute(t, "--dir", dir, "show", "train")
	require.NoError(t, err)
	assert.Contains(t, out, "runs: 1")

	out, err = execute(t, "--dir", dir, "plot", "train", "--kind", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "reward per run (1 runs)")

	csvPath := filepath.Join(dir, "train.csv")
	_, err = execute(t, "--dir", dir, "export", "train", "--csv", csvPath)
	require.NoError(t, err)
	_, err = os.Stat(csvPath)
	assert.NoError(t, err)
}

func TestRecordNeedsReward(t *testing.T) {
	_, err := execute(t, "--dir", t.TempDir(), "record", "train", "--value", "x=1")
	assert.Error(t, err)

	_, err = execute(t, "--dir", t.TempDir(), "record", "train", "--gain", "1", "--loss", "1")
	assert.Error(t, err)
}

func TestExportNeedsDestination(t *testing.T) {
	_, err := execute(t, "--dir", t.TempDir(), "export", "train")
	assert.ErrorIs(t, err, errNothingToExport)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hotrack.hujson")
	content := `{
	// keep data next to the config
	"dir": "` + filepath.ToSlash(dir) + `",
	"protocol": "yaml",
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := execute(t, "--config", path, "record", "train", "--value", "x=1", "--loss", "0.5")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "train.hotrack.yaml"))
	assert.NoError(t, err)
}

func TestRunCommand(t *testing.T) {
	_, err := execute(t, "run", "-n", "3", "-j", "2", "--", "sh", "-c", "exit 0")
	assert.NoError(t, err)

	_, err = execute(t, "run", "-n", "2", "sh -c 'exit 1'")
	assert.ErrorContains(t, err, "2 of 2 trials failed")
}

func TestAlgs(t *testing.T) {
	out, err := execute(t, "algs")
	require.NoError(t, err)
	assert.Contains(t, out, "tpe_or_gp")
	assert.Contains(t, out, "gaussian_process")
}
