// Package runner runs a trial program many times, possibly in parallel.
//
// Every trial is a separate process running the same command. Trials
// coordinate through the data file of the program they run, so the runner
// only needs to tell each process which trial it is.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
	"github.com/schollz/progressbar/v3"
	"github.com/thalesfsp/hotrack/internal/logx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/execabs"
)

const (
	// EnvTrial is the environment variable holding the zero-based index
	// of the trial.
	EnvTrial = "HOTRACK_TRIAL"

	// EnvTrials is the environment variable holding the number of trials.
	EnvTrials = "HOTRACK_TRIALS"
)

// ErrNoCommandToExecute indicates an empty command.
var ErrNoCommandToExecute = errors.New("runner: no command to execute")

// ParseCommand splits a shell-like command line into its argv.
func ParseCommand(cmdline string) ([]string, error) {
	argv, err := shlex.Split(cmdline)
	if err != nil {
		return nil, err
	}
	if len(argv) < 1 {
		return nil, ErrNoCommandToExecute
	}
	return argv, nil
}

// TrialResult is the outcome of one trial.
type TrialResult struct {
	// Index is the zero-based trial index.
	Index int

	// Err is nil when the process exited successfully. Trials that never
	// started because the run was canceled carry the context error.
	Err error

	// Duration is the wall time of the process.
	Duration time.Duration
}

// Runner runs Command Trials times with at most Jobs processes at once.
// The zero value is invalid; Command is MANDATORY.
type Runner struct {
	// Command is the MANDATORY argv of the trial program.
	Command []string

	// Trials is the number of runs. Zero means one.
	Trials int

	// Jobs is the maximum number of concurrent runs. Zero means one.
	Jobs int

	// Env contains OPTIONAL KEY=VALUE entries added to the current
	// environment.
	Env []string

	// Stdout and Stderr receive the output of every trial. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// Progress is the OPTIONAL writer of the progress bar.
	Progress io.Writer

	// Logger is the OPTIONAL logger.
	Logger logx.Logger

	// StopOnError cancels the remaining trials after the first failure.
	StopOnError bool
}

// Run runs the trials and returns one result per trial, in index order.
// The error is the first trial failure when StopOnError is set, or the
// context error when ctx is done before all trials ran.
func (r *Runner) Run(ctx context.Context) ([]TrialResult, error) {
	if len(r.Command) < 1 {
		return nil, ErrNoCommandToExecute
	}
	program, err := execabs.LookPath(r.Command[0])
	if err != nil {
		return nil, err
	}
	trials := max(r.Trials, 1)
	jobs := max(r.Jobs, 1)
	logger := logx.ValidLoggerOrDefault(r.Logger)

	group, gctx := &errgroup.Group{}, ctx
	if r.StopOnError {
		group, gctx = errgroup.WithContext(ctx)
	}
	group.SetLimit(jobs)

	stdout, stderr := syncWriter(r.Stdout), syncWriter(r.Stderr)
	bar := r.newProgressBar(trials)
	results := make([]TrialResult, trials)

	logger.Infof("runner: %d trials of %s, %d at a time", trials, quotedCommandLine(r.Command), jobs)
	for idx := 0; idx < trials; idx++ {
		results[idx].Index = idx
		if err := gctx.Err(); err != nil {
			results[idx].Err = err
			continue
		}
		group.Go(func() error {
			// the slot may have been granted after cancellation
			if err := gctx.Err(); err != nil {
				results[idx].Err = err
				return nil
			}
			start := time.Now()
			err := r.trial(gctx, program, idx, trials, stdout, stderr)
			results[idx].Err = err
			results[idx].Duration = time.Since(start)
			_ = bar.Add(1)
			if err != nil {
				logger.Warnf("runner: trial %d failed: %s", idx, err.Error())
				if r.StopOnError {
					return fmt.Errorf("trial %d: %w", idx, err)
				}
				return nil
			}
			logger.Debugf("runner: trial %d done in %s", idx, results[idx].Duration)
			return nil
		})
	}

	err = group.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return results, err
}

// trial runs a single process.
func (r *Runner) trial(ctx context.Context, program string, idx, trials int, stdout, stderr io.Writer) error {
	cmd := execabs.CommandContext(ctx, program, r.Command[1:]...)
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Env = append(cmd.Env,
		EnvTrial+"="+strconv.Itoa(idx),
		EnvTrials+"="+strconv.Itoa(trials),
	)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// newProgressBar creates the progress bar, silent when no writer is set.
func (r *Runner) newProgressBar(trials int) *progressbar.ProgressBar {
	if r.Progress == nil {
		return progressbar.NewOptions(trials, progressbar.OptionSetWriter(io.Discard))
	}
	return progressbar.NewOptions(
		trials,
		progressbar.OptionSetDescription("trials"),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(r.Progress, "\n")
		}),
		progressbar.OptionSetWriter(r.Progress),
	)
}

// lockedWriter serializes writes coming from concurrent processes.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// syncWriter wraps w so concurrent trials can share it. Files are passed
// to the child processes directly.
func syncWriter(w io.Writer) io.Writer {
	switch w := w.(type) {
	case nil:
		return nil
	case *os.File:
		return w
	default:
		return &lockedWriter{w: w}
	}
}

// quotedCommandLine renders argv for logging.
func quotedCommandLine(argv []string) string {
	var v []string
	for _, arg := range argv {
		if strings.ContainsAny(arg, " \t\"'") {
			arg = strconv.Quote(arg)
		}
		v = append(v, arg)
	}
	return strings.Join(v, " ")
}
