package model

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
)

//////
// Const, vars, types.
//////

// Kind names the distribution a parameter is drawn from.
type Kind string

const (
	// KindRandrange draws integers from [start, stop) with a step.
	// Args: start, stop, step.
	KindRandrange Kind = "randrange"

	// KindRandInt draws integers from [a, b]. Args: a, b.
	KindRandInt Kind = "randint"

	// KindUniform draws floats from [a, b]. Args: a, b.
	KindUniform Kind = "uniform"

	// KindLogUniform draws floats from [a, b] uniformly in log space.
	// Args: a, b with a > 0.
	KindLogUniform Kind = "loguniform"

	// KindNormalVariate draws floats from a normal distribution.
	// Args: mu, sigma.
	KindNormalVariate Kind = "normalvariate"

	// KindChoice draws one of Choices.
	KindChoice Kind = "choice"

	// KindRandBool draws true or false.
	KindRandBool Kind = "randbool"
)

// normalUnitEpsilon keeps the normal quantile away from infinities.
const normalUnitEpsilon = 1e-6

// ParamSpec defines a tunable parameter. Two definitions are compatible
// when kind, args and choices match; the guess does not take part in the
// comparison.
//
// Usage:
//
//	// Learning rate between 1e-4 and 1e-1, sampled in log space, first
//	// run tries 1e-3.
//	spec := ParamSpec{
//	    Kind:  KindLogUniform,
//	    Args:  []float64{1e-4, 1e-1},
//	    Guess: 1e-3,
//	}
type ParamSpec struct {
	// Kind is the distribution.
	Kind Kind `json:"kind" yaml:"kind"`

	// Args are the numeric arguments of the distribution, see Kind.
	Args []float64 `json:"args,omitempty" yaml:"args,omitempty"`

	// Choices are the options of a KindChoice parameter. They must be
	// strings, booleans, numbers or nil.
	Choices []any `json:"choices,omitempty" yaml:"choices,omitempty"`

	// Guess is an OPTIONAL value to use while there is no history.
	Guess any `json:"guess,omitempty" yaml:"guess,omitempty"`
}

//////
// Methods.
//////

// Validate checks that the definition can be sampled.
func (p ParamSpec) Validate() error {
	want := map[Kind]int{
		KindRandrange:     3,
		KindRandInt:       2,
		KindUniform:       2,
		KindLogUniform:    2,
		KindNormalVariate: 2,
		KindChoice:        0,
		KindRandBool:      0,
	}
	n, ok := want[p.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidParam, p.Kind)
	}
	if len(p.Args) != n {
		return fmt.Errorf("%w: %s takes %d args, got %d", ErrInvalidParam, p.Kind, n, len(p.Args))
	}
	for _, a := range p.Args {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return fmt.Errorf("%w: %s args must be finite", ErrInvalidParam, p.Kind)
		}
	}

	switch p.Kind {
	case KindRandrange:
		for _, a := range p.Args {
			if a != math.Trunc(a) {
				return fmt.Errorf("%w: randrange args must be integers", ErrInvalidParam)
			}
		}
		if p.Args[2] <= 0 {
			return fmt.Errorf("%w: randrange step must be positive", ErrInvalidParam)
		}
		if p.Args[0] >= p.Args[1] {
			return fmt.Errorf("%w: empty randrange [%v, %v)", ErrInvalidParam, p.Args[0], p.Args[1])
		}
	case KindRandInt:
		if p.Args[0] != math.Trunc(p.Args[0]) || p.Args[1] != math.Trunc(p.Args[1]) {
			return fmt.Errorf("%w: randint args must be integers", ErrInvalidParam)
		}
		if p.Args[0] > p.Args[1] {
			return fmt.Errorf("%w: empty randint [%v, %v]", ErrInvalidParam, p.Args[0], p.Args[1])
		}
	case KindUniform:
		if p.Args[0] > p.Args[1] {
			return fmt.Errorf("%w: empty uniform [%v, %v]", ErrInvalidParam, p.Args[0], p.Args[1])
		}
	case KindLogUniform:
		if p.Args[0] <= 0 || p.Args[1] <= 0 {
			return fmt.Errorf("%w: loguniform bounds must be positive", ErrInvalidParam)
		}
		if p.Args[0] > p.Args[1] {
			return fmt.Errorf("%w: empty loguniform [%v, %v]", ErrInvalidParam, p.Args[0], p.Args[1])
		}
	case KindNormalVariate:
		if p.Args[1] <= 0 {
			return fmt.Errorf("%w: normalvariate sigma must be positive", ErrInvalidParam)
		}
	case KindChoice:
		if len(p.Choices) == 0 {
			return fmt.Errorf("%w: choice needs at least one option", ErrInvalidParam)
		}
		for _, c := range p.Choices {
			if !isScalar(c) {
				return fmt.Errorf("%w: choice option %v is not a scalar", ErrInvalidParam, c)
			}
		}
	}

	if p.Guess != nil {
		if _, err := p.Normalize(p.Guess); err != nil {
			return fmt.Errorf("%w: guess: %v", ErrInvalidParam, err)
		}
	}

	return nil
}

// Compatible tells whether p and other define the same parameter.
func (p ParamSpec) Compatible(other ParamSpec) bool {
	if p.Kind != other.Kind || !slices.Equal(p.Args, other.Args) {
		return false
	}
	return slices.EqualFunc(p.Choices, other.Choices, scalarEqual)
}

// Sample draws a random value.
func (p ParamSpec) Sample(rng *rand.Rand) any {
	switch p.Kind {
	case KindRandrange, KindRandInt, KindChoice, KindRandBool:
		return p.fromIndex(rng.Intn(p.size()))
	case KindUniform:
		return p.Args[0] + rng.Float64()*(p.Args[1]-p.Args[0])
	case KindLogUniform:
		lo, hi := math.Log(p.Args[0]), math.Log(p.Args[1])
		return Clamp(math.Exp(lo+rng.Float64()*(hi-lo)), p.Args[0], p.Args[1])
	case KindNormalVariate:
		return p.Args[0] + p.Args[1]*rng.NormFloat64()
	default:
		return nil
	}
}

// Normalize coerces a decoded value into the Go type the parameter
// produces: int for integer kinds, float64, bool, or the declared
// choice. It fails when v is outside the parameter domain.
func (p ParamSpec) Normalize(v any) (any, error) {
	switch p.Kind {
	case KindRandrange, KindRandInt, KindChoice, KindRandBool:
		idx, err := p.index(v)
		if err != nil {
			return nil, err
		}
		return p.fromIndex(idx), nil
	case KindUniform, KindLogUniform:
		f, ok := ToFloat(v)
		if !ok || f < p.Args[0] || f > p.Args[1] {
			return nil, fmt.Errorf("%w: %v not in %s[%v, %v]", ErrValueOutOfDomain, v, p.Kind, p.Args[0], p.Args[1])
		}
		return f, nil
	case KindNormalVariate:
		f, ok := ToFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %v is not a finite number", ErrValueOutOfDomain, v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidParam, p.Kind)
	}
}

// ToUnit maps a value of the parameter to [0, 1].
func (p ParamSpec) ToUnit(v any) (float64, error) {
	switch p.Kind {
	case KindRandrange, KindRandInt, KindChoice, KindRandBool:
		idx, err := p.index(v)
		if err != nil {
			return 0, err
		}
		return (float64(idx) + 0.5) / float64(p.size()), nil
	case KindUniform:
		f, err := p.Normalize(v)
		if err != nil {
			return 0, err
		}
		if p.Args[1] == p.Args[0] {
			return 0.5, nil
		}
		return (f.(float64) - p.Args[0]) / (p.Args[1] - p.Args[0]), nil
	case KindLogUniform:
		f, err := p.Normalize(v)
		if err != nil {
			return 0, err
		}
		if p.Args[1] == p.Args[0] {
			return 0.5, nil
		}
		lo, hi := math.Log(p.Args[0]), math.Log(p.Args[1])
		return (math.Log(f.(float64)) - lo) / (hi - lo), nil
	case KindNormalVariate:
		f, err := p.Normalize(v)
		if err != nil {
			return 0, err
		}
		return NormalCDF((f.(float64) - p.Args[0]) / p.Args[1]), nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidParam, p.Kind)
	}
}

// FromUnit maps u, clamped to [0, 1], back to a value of the parameter.
func (p ParamSpec) FromUnit(u float64) any {
	u = Clamp(u, 0, 1)
	switch p.Kind {
	case KindRandrange, KindRandInt, KindChoice, KindRandBool:
		n := p.size()
		return p.fromIndex(Clamp(int(u*float64(n)), 0, n-1))
	case KindUniform:
		return p.Args[0] + u*(p.Args[1]-p.Args[0])
	case KindLogUniform:
		lo, hi := math.Log(p.Args[0]), math.Log(p.Args[1])
		return Clamp(math.Exp(lo+u*(hi-lo)), p.Args[0], p.Args[1])
	case KindNormalVariate:
		u = Clamp(u, normalUnitEpsilon, 1-normalUnitEpsilon)
		return p.Args[0] + p.Args[1]*NormalQuantile(u)
	default:
		return nil
	}
}

// size is the number of values of a discrete parameter.
func (p ParamSpec) size() int {
	switch p.Kind {
	case KindRandrange:
		return int(math.Ceil((p.Args[1] - p.Args[0]) / p.Args[2]))
	case KindRandInt:
		return int(p.Args[1]-p.Args[0]) + 1
	case KindChoice:
		return len(p.Choices)
	case KindRandBool:
		return 2
	default:
		return 0
	}
}

// fromIndex returns the idx-th value of a discrete parameter.
func (p ParamSpec) fromIndex(idx int) any {
	switch p.Kind {
	case KindRandrange:
		return int(p.Args[0]) + idx*int(p.Args[2])
	case KindRandInt:
		return int(p.Args[0]) + idx
	case KindChoice:
		return p.Choices[idx]
	case KindRandBool:
		return idx == 1
	default:
		return nil
	}
}

// index is the inverse of fromIndex.
func (p ParamSpec) index(v any) (int, error) {
	switch p.Kind {
	case KindRandrange:
		n, ok := toInt(v)
		start, step := int(p.Args[0]), int(p.Args[2])
		if !ok || n < start || float64(n) >= p.Args[1] || (n-start)%step != 0 {
			return 0, fmt.Errorf("%w: %v not in randrange(%v, %v, %v)",
				ErrValueOutOfDomain, v, p.Args[0], p.Args[1], p.Args[2])
		}
		return (n - start) / step, nil
	case KindRandInt:
		n, ok := toInt(v)
		if !ok || float64(n) < p.Args[0] || float64(n) > p.Args[1] {
			return 0, fmt.Errorf("%w: %v not in randint(%v, %v)", ErrValueOutOfDomain, v, p.Args[0], p.Args[1])
		}
		return n - int(p.Args[0]), nil
	case KindChoice:
		for i, c := range p.Choices {
			if scalarEqual(c, v) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: %v not among choices %v", ErrValueOutOfDomain, v, p.Choices)
	case KindRandBool:
		b, ok := v.(bool)
		if !ok {
			return 0, fmt.Errorf("%w: %v is not a bool", ErrValueOutOfDomain, v)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %s is not discrete", ErrInvalidParam, p.Kind)
	}
}
