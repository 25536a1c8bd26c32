package backend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/thalesfsp/hotrack/model"
)

var (
	// ErrUnknownBackend indicates a backend name missing from the registry.
	ErrUnknownBackend = errors.New("backend: unknown backend")

	// ErrUnknownAlg indicates an algorithm name missing from the registry.
	ErrUnknownAlg = errors.New("backend: unknown algorithm")

	// ErrDuplicate indicates a name registered twice.
	ErrDuplicate = errors.New("backend: already registered")

	// ErrInvalidOption indicates a backend option with the wrong type or value.
	ErrInvalidOption = errors.New("backend: invalid option")
)

// Backend suggests the parameter values of the next run.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string

	// Suggest returns values for some or all of req.Params. Returned values
	// must be valid for their definitions.
	Suggest(ctx context.Context, req *Request) (map[string]any, error)
}

// Factory creates a backend. The registry is passed along so composite
// backends can dispatch to other algorithms.
type Factory func(reg *Registry) (Backend, error)

// Request is what a backend gets to work with. The zero value is invalid;
// make sure you initialize all the fields marked as MANDATORY.
type Request struct {
	// Params is the MANDATORY set of parameter definitions to suggest for.
	Params map[string]model.ParamSpec

	// Examples is the OPTIONAL usable history; values are normalized and
	// cover every entry of Params (see model.Data.Usable).
	Examples []model.Example

	// Options are the OPTIONAL backend options.
	Options Options

	// Rand is the MANDATORY random source.
	Rand *rand.Rand
}

// withOptions returns a shallow copy of req with different options.
func (req *Request) withOptions(opts Options) *Request {
	out := *req
	out.Options = opts
	return &out
}

// Options are free-form backend options. Numbers may arrive as any Go
// numeric type since options can come from decoded configuration.
type Options map[string]any

// Float returns the option as float64, or def when unset.
func (o Options) Float(key string, def float64) (float64, error) {
	v, found := o[key]
	if !found {
		return def, nil
	}
	f, ok := model.ToFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s=%v is not a number", ErrInvalidOption, key, v)
	}
	return f, nil
}

// Int returns the option as int, or def when unset.
func (o Options) Int(key string, def int) (int, error) {
	f, err := o.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidOption, key, f)
	}
	return int(f), nil
}

// String returns the option as string, or def when unset.
func (o Options) String(key, def string) (string, error) {
	v, found := o[key]
	if !found {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s=%v is not a string", ErrInvalidOption, key, v)
	}
	return s, nil
}
