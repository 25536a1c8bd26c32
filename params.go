package hotrack

import "github.com/thalesfsp/hotrack/model"

//////
// Parameter declaration helpers.
//
// Each helper declares a parameter and returns its value for the current
// run. On error the zero value is returned and the error is remembered,
// see Err.
//////

// declare builds the spec and calls Param.
func (o *Optimizer) declare(name string, spec model.ParamSpec, opts []ParamOption) any {
	var c paramConfig
	for _, opt := range opts {
		opt(&c)
	}
	spec.Guess = c.guess
	v, _ := o.Param(name, spec)
	return v
}

// Randrange returns an integer in [start, stop) that is start plus a
// multiple of step.
//
// Usage example:
//
//	batch := opt.Randrange("batch", 16, 257, 16) // 16, 32, ..., 256
func (o *Optimizer) Randrange(name string, start, stop, step int, opts ...ParamOption) int {
	spec := model.ParamSpec{
		Kind: model.KindRandrange,
		Args: []float64{float64(start), float64(stop), float64(step)},
	}
	v, _ := o.declare(name, spec, opts).(int)
	return v
}

// RandInt returns an integer in [a, b].
func (o *Optimizer) RandInt(name string, a, b int, opts ...ParamOption) int {
	spec := model.ParamSpec{
		Kind: model.KindRandInt,
		Args: []float64{float64(a), float64(b)},
	}
	v, _ := o.declare(name, spec, opts).(int)
	return v
}

// Uniform returns a float in [a, b].
func (o *Optimizer) Uniform(name string, a, b float64, opts ...ParamOption) float64 {
	spec := model.ParamSpec{
		Kind: model.KindUniform,
		Args: []float64{a, b},
	}
	v, _ := o.declare(name, spec, opts).(float64)
	return v
}

// LogUniform returns a float in [a, b] drawn uniformly in log space. Use it
// for scale parameters such as learning rates.
func (o *Optimizer) LogUniform(name string, a, b float64, opts ...ParamOption) float64 {
	spec := model.ParamSpec{
		Kind: model.KindLogUniform,
		Args: []float64{a, b},
	}
	v, _ := o.declare(name, spec, opts).(float64)
	return v
}

// NormalVariate returns a float drawn from a normal distribution with mean
// mu and standard deviation sigma.
func (o *Optimizer) NormalVariate(name string, mu, sigma float64, opts ...ParamOption) float64 {
	spec := model.ParamSpec{
		Kind: model.KindNormalVariate,
		Args: []float64{mu, sigma},
	}
	v, _ := o.declare(name, spec, opts).(float64)
	return v
}

// Choice returns one of options, which must be strings, booleans, numbers
// or nil.
func (o *Optimizer) Choice(name string, options []any, opts ...ParamOption) any {
	spec := model.ParamSpec{
		Kind:    model.KindChoice,
		Choices: options,
	}
	return o.declare(name, spec, opts)
}

// RandBool returns true or false.
func (o *Optimizer) RandBool(name string, opts ...ParamOption) bool {
	v, _ := o.declare(name, model.ParamSpec{Kind: model.KindRandBool}, opts).(bool)
	return v
}

// ChoiceOf is the typed form of Choice.
//
// Usage example:
//
//	act := hotrack.ChoiceOf(opt, "activation", []string{"relu", "tanh"})
func ChoiceOf[T comparable](o *Optimizer, name string, options []T, opts ...ParamOption) T {
	anys := make([]any, len(options))
	for i, v := range options {
		anys[i] = v
	}
	v, _ := o.Choice(name, anys, opts...).(T)
	return v
}
