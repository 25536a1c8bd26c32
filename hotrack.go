package hotrack

import (
	"context"
	"fmt"
	"maps"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thalesfsp/hotrack/backend"
	"github.com/thalesfsp/hotrack/internal/logx"
	"github.com/thalesfsp/hotrack/internal/store"
	"github.com/thalesfsp/hotrack/model"
)

// Optimizer tracks the parameters of one program across runs. It is safe
// for concurrent use, although a program usually drives it from a single
// goroutine.
type Optimizer struct {
	mu sync.Mutex

	config config
	store  *store.Store

	// data is the last content read from or written to the data file.
	data *model.Data

	// now allows mocking time.Now for testing.
	now func() time.Time

	// state of the current run
	running    bool
	scored     bool
	alg        string
	backend    string
	current    model.Example
	suggestion map[string]any
	declared   map[string]model.ParamSpec
	err        error

	// position of the current run in Optimize, zero outside of it
	iteration  int
	iterations int
}

//////
// Factory.
//////

// New creates an Optimizer whose data file is derived from base, usually
// the program name: "train" gives "train.hotrack.json". Existing data is
// loaded right away.
//
// Usage example:
//
//	opt, err := hotrack.New("train",
//	    hotrack.WithTag("_small"),
//	    hotrack.WithProtocol("yaml"),
//	    hotrack.WithLogger(log.Log),
//	)
func New(base string, opts ...Option) (*Optimizer, error) {
	c := config{
		logger:   logx.DiscardLogger,
		registry: backend.Default,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = logx.ValidLoggerOrDefault(c.logger)
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	protocol, err := store.ParseProtocol(c.protocol)
	if err != nil {
		return nil, err
	}
	path := store.Path(base, c.tag, protocol)
	if c.dir != "" {
		path = filepath.Join(c.dir, path)
	}
	s, err := store.New(path, protocol)
	if err != nil {
		return nil, err
	}
	data, err := s.Load()
	if err != nil {
		return nil, err
	}

	return &Optimizer{
		config: c,
		store:  s,
		data:   data,
		now:    time.Now,
	}, nil
}

//////
// Exported functionalities.
//////

// Run starts a new run using the named algorithm, or backend.DefaultAlg
// when alg is empty. It reloads the data file, asks the backend for values
// of the parameters used by the latest scored run, and resets the current
// run. Parameters must be declared after Run.
//
// How it works:
// 1. Reloads the data file, picking up runs scored by other processes
// 2. Keeps the examples that used every parameter of the latest scored run
// 3. Falls back to random sampling while those are fewer than the
// algorithm requires
// 4. Stores the suggestion; declarations consume it
func (o *Optimizer) Run(ctx context.Context, alg string) error {
	if alg == "" {
		alg = backend.DefaultAlg
	}
	a, err := o.config.registry.LookupAlg(alg)
	if err != nil {
		return err
	}
	return o.run(ctx, a)
}

// RunBackend is like Run with an explicit backend and options instead of
// a registered algorithm.
func (o *Optimizer) RunBackend(ctx context.Context, name string, options backend.Options) error {
	return o.run(ctx, backend.Alg{Name: name, Backend: name, Options: options})
}

func (o *Optimizer) run(ctx context.Context, alg backend.Alg) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running && !o.scored {
		o.config.logger.Warnf("hotrack: run %s was never scored, discarding it", o.current.RunID)
	}

	data, err := o.store.Load()
	if err != nil {
		return err
	}
	o.data = data

	active := data.Active()
	req := &backend.Request{
		Params:   active,
		Examples: data.Usable(active),
		Rand:     o.config.rng,
	}
	suggestion, used, err := o.config.registry.Dispatch(ctx, alg, req)
	if err != nil {
		return err
	}

	o.running = true
	o.scored = false
	o.err = nil
	o.alg = alg.Name
	o.backend = used
	o.suggestion = suggestion
	o.declared = map[string]model.ParamSpec{}
	o.current = model.Example{
		RunID:  uuid.NewString(),
		Values: map[string]any{},
		Alg:    alg.Name,
	}

	o.config.logger.Debugf("hotrack: run %s: alg %s via %s backend, %d usable examples",
		o.current.RunID, alg.Name, used, len(req.Examples))
	return nil
}

// Param declares a parameter and returns the value to use for this run.
// Declaring the same name twice in a run returns the same value.
//
// Value resolution order:
// 1. The value already chosen in this run
// 2. The backend suggestion
// 3. The guess, while no scored run has used the parameter
// 4. A random draw
func (o *Optimizer) Param(name string, spec model.ParamSpec) (any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	v, err := o.param(name, spec)
	if err != nil && o.err == nil {
		o.err = err
	}
	return v, err
}

func (o *Optimizer) param(name string, spec model.ParamSpec) (any, error) {
	if !o.running {
		return nil, ErrNotRunning
	}
	if o.scored {
		return nil, ErrAlreadyScored
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}
	if prev, found := o.declared[name]; found {
		if !prev.Compatible(spec) {
			return nil, fmt.Errorf("%w: %q declared twice with different definitions", model.ErrParamConflict, name)
		}
		return o.current.Values[name], nil
	}
	if err := o.data.DefineParam(name, spec); err != nil {
		return nil, err
	}

	value, source := o.resolve(name, spec)
	o.declared[name] = spec
	o.current.Values[name] = value

	o.config.logger.Debugf("hotrack: %s = %v (%s)", name, value, source)
	return value, nil
}

// resolve picks the value of a newly declared parameter.
func (o *Optimizer) resolve(name string, spec model.ParamSpec) (any, string) {
	if raw, found := o.suggestion[name]; found {
		if v, err := spec.Normalize(raw); err == nil {
			return v, o.backend
		}
	}
	if spec.Guess != nil && !o.seen(name) {
		if v, err := spec.Normalize(spec.Guess); err == nil {
			return v, "guess"
		}
	}
	return spec.Sample(o.config.rng), "random"
}

// seen tells whether any scored example has a value for name.
func (o *Optimizer) seen(name string) bool {
	for _, e := range o.data.Examples {
		if _, scored := e.Objective(); !scored {
			continue
		}
		if _, found := e.Values[name]; found {
			return true
		}
	}
	return false
}

// Maximize records gain as the reward of the current run and saves it. A
// NaN or infinite gain fails with model.ErrInvalidReward and leaves the run
// unscored.
func (o *Optimizer) Maximize(gain float64) error {
	return o.score(&gain, nil)
}

// Minimize records loss as the reward of the current run and saves it.
func (o *Optimizer) Minimize(loss float64) error {
	return o.score(nil, &loss)
}

func (o *Optimizer) score(gain, loss *float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return o.err
	}
	if !o.running {
		return ErrNotRunning
	}
	if o.scored {
		return ErrAlreadyScored
	}
	for _, v := range []*float64{gain, loss} {
		if v != nil && !model.IsFinite(*v) {
			return fmt.Errorf("run %s: %w: %v", o.current.RunID, model.ErrInvalidReward, *v)
		}
	}

	o.current.Gain, o.current.Loss = gain, loss
	o.current.Timestamp = o.now()

	delta := &model.Data{
		Params:   maps.Clone(o.declared),
		Examples: []model.Example{o.current},
	}
	merged, err := o.store.Save(delta)
	if err != nil {
		o.current.Gain, o.current.Loss = nil, nil
		return err
	}
	o.data = merged
	o.scored = true

	o.config.logger.Infof("hotrack: run %s scored %v with %v", o.current.RunID, o.current.Reward(), o.current.Values)
	o.sendProgress()
	return nil
}

// sendProgress emits a Progress without blocking. Callers hold o.mu.
func (o *Optimizer) sendProgress() {
	if o.config.progress == nil {
		return
	}

	update := Progress{
		RunID:      o.current.RunID,
		Alg:        o.alg,
		Backend:    o.backend,
		Values:     maps.Clone(o.current.Values),
		Reward:     o.current.Reward(),
		Examples:   len(o.data.Examples),
		Iteration:  o.iteration,
		Iterations: o.iterations,
	}
	if best, err := o.data.Best(); err == nil {
		update.BestReward = best.Reward()
	}

	select {
	case o.config.progress <- update:
	default:
		// Skip update if channel is full.
	}
}

// Remember attaches information to the current run. It is saved with the
// run when it is scored; later keys overwrite earlier ones.
func (o *Optimizer) Remember(memo map[string]any) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return ErrNotRunning
	}
	if o.scored {
		return ErrAlreadyScored
	}
	if o.current.Memo == nil {
		o.current.Memo = map[string]any{}
	}
	maps.Copy(o.current.Memo, memo)
	return nil
}

// SaveParams writes the definitions of the parameters declared in the
// current run without scoring it. This lets external programs score the
// run later through TellExamples.
func (o *Optimizer) SaveParams() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return o.err
	}
	if !o.running {
		return ErrNotRunning
	}
	merged, err := o.store.Save(&model.Data{Params: maps.Clone(o.declared)})
	if err != nil {
		return err
	}
	o.data = merged
	return nil
}

// TellExamples adds examples produced elsewhere to the data file. Missing
// run ids and timestamps are filled in, and values of known parameters
// must lie in their domain.
func (o *Optimizer) TellExamples(examples ...model.Example) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	delta := model.NewData()
	for _, e := range examples {
		e = e.Clone()
		if e.RunID == "" {
			e.RunID = uuid.NewString()
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = o.now()
		}
		for name, raw := range e.Values {
			spec, known := o.data.Params[name]
			if !known {
				continue
			}
			v, err := spec.Normalize(raw)
			if err != nil {
				return fmt.Errorf("example %s: parameter %q: %w", e.RunID, name, err)
			}
			e.Values[name] = v
		}
		if _, err := delta.AddExample(e); err != nil {
			return err
		}
	}

	merged, err := o.store.Save(delta)
	if err != nil {
		return err
	}
	o.data = merged
	return nil
}

// Reload rereads the data file.
func (o *Optimizer) Reload() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, err := o.store.Load()
	if err != nil {
		return err
	}
	o.data = data
	return nil
}

// Err returns the first declaration error of the current run.
func (o *Optimizer) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// CurrentRun returns a copy of the current run. ok is false before Run.
func (o *Optimizer) CurrentRun() (run model.Example, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return model.Example{}, false
	}
	return o.current.Clone(), true
}

// BestRun returns the best scored run in the data last read or written.
func (o *Optimizer) BestRun() (model.Example, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.data.Best()
}

// Data returns a copy of the data last read or written.
func (o *Optimizer) Data() *model.Data {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.data.Clone()
}

// DataFile returns the data file path.
func (o *Optimizer) DataFile() string {
	return o.store.Path()
}

// Backend returns the name of the backend that chose the current run.
func (o *Optimizer) Backend() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.backend
}

// IsServing tells whether the current run replays the best run rather
// than exploring.
func (o *Optimizer) IsServing() bool {
	return o.Backend() == backend.ServingName
}
