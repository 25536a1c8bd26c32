package hotrack

import (
	"errors"
	"math/rand"

	"github.com/thalesfsp/hotrack/backend"
	"github.com/thalesfsp/hotrack/internal/logx"
)

var (
	// ErrNotRunning indicates a call that needs Run first.
	ErrNotRunning = errors.New("hotrack: no current run, call Run first")

	// ErrAlreadyScored indicates a second Maximize or Minimize for a run.
	ErrAlreadyScored = errors.New("hotrack: current run already scored")
)

// Logger is the logging interface the optimizer writes to. The apex/log
// package-level logger satisfies it.
type Logger = logx.Logger

// Progress represents the state of the optimization after a scored run.
type Progress struct {
	// RunID identifies the run that was just scored
	RunID string

	// Alg is the algorithm requested for the run
	Alg string

	// Backend is the backend that actually chose the values
	Backend string

	// Values holds the parameter values of the run
	Values map[string]any

	// Reward is the gain or loss of the run
	Reward float64

	// BestReward is the best gain or loss found so far
	BestReward float64

	// Examples is the number of examples in the data file
	Examples int

	// Iteration is the 1-based position of the run in Optimize, zero for
	// runs started with Run
	Iteration int

	// Iterations is the number of runs Optimize was asked for
	Iterations int
}

// Option configures an Optimizer.
type Option func(*config)

// config holds the Optimizer settings.
type config struct {
	// dir is the OPTIONAL directory of the data file.
	dir string

	// tag distinguishes several data files for the same base name.
	tag string

	// protocol is the data file encoding.
	protocol string

	// logger receives debug and info messages.
	logger Logger

	// rng is the random source for sampling and backends.
	rng *rand.Rand

	// registry resolves algorithms and backends.
	registry *backend.Registry

	// progress receives an update after each scored run. If nil, no
	// updates are sent.
	progress chan<- Progress
}

// WithDir puts the data file in dir instead of next to base.
func WithDir(dir string) Option {
	return func(c *config) { c.dir = dir }
}

// WithTag appends tag to the data file name, so one program can keep
// several independent histories.
func WithTag(tag string) Option {
	return func(c *config) { c.tag = tag }
}

// WithProtocol selects the data file encoding: "json" (default) or "yaml".
func WithProtocol(protocol string) Option {
	return func(c *config) { c.protocol = protocol }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithRand sets the random source. Do NOT share it with other goroutines.
func WithRand(rng *rand.Rand) Option {
	return func(c *config) { c.rng = rng }
}

// WithRegistry sets the backend registry. The default is backend.Default.
func WithRegistry(reg *backend.Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithProgress sends a Progress after each scored run. Sends never block:
// an update is skipped when the channel is full.
func WithProgress(ch chan<- Progress) Option {
	return func(c *config) { c.progress = ch }
}

// ParamOption configures a single parameter declaration.
type ParamOption func(*paramConfig)

// paramConfig holds per-declaration settings.
type paramConfig struct {
	guess any
}

// Guess sets the value to use while no run has recorded this parameter.
func Guess(v any) ParamOption {
	return func(c *paramConfig) { c.guess = v }
}
