package model

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
)

// Data is the content of a data file: the parameter definitions seen so
// far and the history of scored examples.
type Data struct {
	// Params maps parameter names to their definitions.
	Params map[string]ParamSpec `json:"params" yaml:"params"`

	// Examples is the history, ordered by timestamp.
	Examples []Example `json:"examples" yaml:"examples"`
}

// NewData creates empty data.
func NewData() *Data {
	return &Data{Params: map[string]ParamSpec{}}
}

// Clone returns a deep copy of d.
func (d *Data) Clone() *Data {
	out := &Data{
		Params:   maps.Clone(d.Params),
		Examples: make([]Example, 0, len(d.Examples)),
	}
	if out.Params == nil {
		out.Params = map[string]ParamSpec{}
	}
	for _, e := range d.Examples {
		out.Examples = append(out.Examples, e.Clone())
	}
	return out
}

// DefineParam records a parameter definition. Redefining a parameter with
// an incompatible definition fails with ErrParamConflict.
func (d *Data) DefineParam(name string, spec ParamSpec) error {
	if d.Params == nil {
		d.Params = map[string]ParamSpec{}
	}
	if old, found := d.Params[name]; found {
		if !old.Compatible(spec) {
			return fmt.Errorf("%w: %q was %s%v, now %s%v",
				ErrParamConflict, name, old.Kind, old.describe(), spec.Kind, spec.describe())
		}
		// A newer guess replaces the old one.
		if spec.Guess != nil {
			old.Guess = spec.Guess
			d.Params[name] = old
		}
		return nil
	}
	d.Params[name] = spec
	return nil
}

// AddExample appends e unless an example with the same RunID exists.
// It returns whether e was added.
func (d *Data) AddExample(e Example) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	if slices.ContainsFunc(d.Examples, func(x Example) bool { return x.RunID == e.RunID }) {
		return false, nil
	}
	d.Examples = append(d.Examples, e.Clone())
	return true, nil
}

// Merge folds other into d. Params are unioned and must not conflict;
// examples are deduplicated by RunID and kept in timestamp order.
func (d *Data) Merge(other *Data) error {
	if other == nil {
		return nil
	}
	names := slices.Sorted(maps.Keys(other.Params))
	for _, name := range names {
		if err := d.DefineParam(name, other.Params[name]); err != nil {
			return err
		}
	}
	for _, e := range other.Examples {
		if _, err := d.AddExample(e); err != nil {
			return err
		}
	}
	sort.SliceStable(d.Examples, func(i, j int) bool {
		return d.Examples[i].Timestamp.Before(d.Examples[j].Timestamp)
	})
	return nil
}

// Best returns the example with the lowest objective. Examples with a
// non-finite reward are ignored.
func (d *Data) Best() (Example, error) {
	best, bestObj := -1, math.Inf(1)
	for i, e := range d.Examples {
		if obj, ok := e.Objective(); ok && (best < 0 || obj < bestObj) {
			best, bestObj = i, obj
		}
	}
	if best < 0 {
		return Example{}, ErrNoExamples
	}
	return d.Examples[best].Clone(), nil
}

// Convergence returns, for each example in order, the best objective seen
// up to and including it. Before the first scored example it is +Inf.
func (d *Data) Convergence() []float64 {
	out := make([]float64, 0, len(d.Examples))
	best := math.Inf(1)
	for _, e := range d.Examples {
		if obj, ok := e.Objective(); ok && obj < best {
			best = obj
		}
		out = append(out, best)
	}
	return out
}

// Maximizing tells whether the history is expressed as gains. An empty
// history counts as maximizing.
func (d *Data) Maximizing() bool {
	for _, e := range d.Examples {
		if e.Loss != nil {
			return false
		}
		if e.Gain != nil {
			return true
		}
	}
	return true
}

// Active returns the definitions of the parameters used by the most
// recent scored example. A program that stops declaring a parameter stops
// sending it, so older runs that had it do not hide the newer ones. The
// result is empty while no example is scored.
func (d *Data) Active() map[string]ParamSpec {
	out := map[string]ParamSpec{}
	for i := len(d.Examples) - 1; i >= 0; i-- {
		e := d.Examples[i]
		if _, ok := e.Objective(); !ok {
			continue
		}
		for name := range e.Values {
			if spec, known := d.Params[name]; known {
				out[name] = spec
			}
		}
		break
	}
	return out
}

// Usable returns the scored examples whose values cover every parameter in
// params, with values normalized by the given definitions. Examples from
// runs that used a different parameter set are skipped.
func (d *Data) Usable(params map[string]ParamSpec) []Example {
	var out []Example
	for _, e := range d.Examples {
		if _, ok := e.Objective(); !ok {
			continue
		}
		values := make(map[string]any, len(params))
		usable := true
		for name, spec := range params {
			raw, found := e.Values[name]
			if !found {
				usable = false
				break
			}
			v, err := spec.Normalize(raw)
			if err != nil {
				usable = false
				break
			}
			values[name] = v
		}
		if !usable {
			continue
		}
		c := e.Clone()
		c.Values = values
		out = append(out, c)
	}
	return out
}

// describe renders the definition for error messages.
func (p ParamSpec) describe() string {
	if p.Kind == KindChoice {
		return fmt.Sprint(p.Choices)
	}
	return fmt.Sprint(p.Args)
}
