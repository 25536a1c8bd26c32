package model

import (
	"fmt"
	"maps"
	"math"
	"time"
)

// Example is one scored run: the parameter values it used and the reward
// it obtained.
type Example struct {
	// RunID uniquely identifies the run; it is how concurrent writers
	// deduplicate examples when merging.
	RunID string `json:"run_id" yaml:"run_id"`

	// Values maps parameter names to the values used by the run.
	Values map[string]any `json:"values" yaml:"values"`

	// Gain is the reward when maximizing.
	Gain *float64 `json:"gain,omitempty" yaml:"gain,omitempty"`

	// Loss is the reward when minimizing.
	Loss *float64 `json:"loss,omitempty" yaml:"loss,omitempty"`

	// Memo holds OPTIONAL free-form information about the run.
	Memo map[string]any `json:"memo,omitempty" yaml:"memo,omitempty"`

	// Alg is the algorithm that selected the values.
	Alg string `json:"alg,omitempty" yaml:"alg,omitempty"`

	// Timestamp is when the run was scored.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Validate checks that exactly one of gain and loss is set and that it is
// a finite number.
func (e Example) Validate() error {
	if (e.Gain == nil) == (e.Loss == nil) {
		return fmt.Errorf("%w (run %q)", ErrInvalidExample, e.RunID)
	}
	if !IsFinite(e.Reward()) {
		return fmt.Errorf("%w: %v (run %q)", ErrInvalidReward, e.Reward(), e.RunID)
	}
	return nil
}

// Objective returns the value to minimize: the loss, or the negated gain.
// ok is false for an unscored example and for a non-finite reward.
func (e Example) Objective() (value float64, ok bool) {
	switch {
	case e.Loss != nil:
		value = *e.Loss
	case e.Gain != nil:
		value = -*e.Gain
	default:
		return 0, false
	}
	if !IsFinite(value) {
		return 0, false
	}
	return value, true
}

// IsFinite tells whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Reward returns the gain or the loss, whichever is set.
func (e Example) Reward() float64 {
	if e.Gain != nil {
		return *e.Gain
	}
	if e.Loss != nil {
		return *e.Loss
	}
	return 0
}

// Clone returns a deep copy of the top-level maps and pointers.
func (e Example) Clone() Example {
	out := e
	out.Values = maps.Clone(e.Values)
	out.Memo = maps.Clone(e.Memo)
	if e.Gain != nil {
		g := *e.Gain
		out.Gain = &g
	}
	if e.Loss != nil {
		l := *e.Loss
		out.Loss = &l
	}
	return out
}
