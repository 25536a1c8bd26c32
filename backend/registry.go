package backend

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/thalesfsp/hotrack/model"
)

// Registry maps names to backend factories and algorithms. It is safe
// for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	algs      map[string]Alg
}

// Default is the registry holding the built-in backends and algorithms.
var Default = NewDefaultRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{},
		algs:      map[string]Alg{},
	}
}

// NewDefaultRegistry creates a registry holding the built-in backends
// and algorithms.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	builtins := map[string]Factory{
		RandomName:          newRandom,
		ServingName:         newServing,
		GaussianProcessName: newGaussianProcessBackend,
		TPEName:             newTPE,
		MixtureName:         newMixture,
	}
	for name, factory := range builtins {
		if err := reg.Register(name, factory); err != nil {
			panic(err)
		}
	}
	for _, alg := range builtinAlgs() {
		if err := reg.RegisterAlg(alg); err != nil {
			panic(err)
		}
	}
	return reg
}

// Register adds a backend factory.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.factories[name]; found {
		return fmt.Errorf("%w: backend %q", ErrDuplicate, name)
	}
	r.factories[name] = factory
	return nil
}

// RegisterAlg adds an algorithm. Its backend must already be registered.
func (r *Registry) RegisterAlg(alg Alg) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.algs[alg.Name]; found {
		return fmt.Errorf("%w: algorithm %q", ErrDuplicate, alg.Name)
	}
	if _, found := r.factories[alg.Backend]; !found {
		return fmt.Errorf("%w: %q (needed by algorithm %q)", ErrUnknownBackend, alg.Backend, alg.Name)
	}
	r.algs[alg.Name] = alg
	return nil
}

// New creates the backend registered under name.
func (r *Registry) New(name string) (Backend, error) {
	r.mu.RLock()
	factory, found := r.factories[name]
	r.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return factory(r)
}

// LookupAlg returns the algorithm registered under name.
func (r *Registry) LookupAlg(name string) (Alg, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alg, found := r.algs[name]
	if !found {
		return Alg{}, fmt.Errorf("%w: %q", ErrUnknownAlg, name)
	}
	return alg, nil
}

// Names returns the sorted backend names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Algs returns the registered algorithms sorted by name.
func (r *Registry) Algs() []Alg {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Alg, 0, len(r.algs))
	for _, name := range slices.Sorted(maps.Keys(r.algs)) {
		out = append(out, r.algs[name])
	}
	return out
}

// Dispatch runs alg against req and returns the suggestion together with
// the name of the backend that produced it. Mixtures report the backend
// of the algorithm they picked. It falls back to the random
// backend while the history is shorter than alg.MinExamples, or when the
// chosen backend reports it has no history to work with.
func (r *Registry) Dispatch(ctx context.Context, alg Alg, req *Request) (map[string]any, string, error) {
	name := alg.Backend
	if len(req.Examples) < alg.MinExamples {
		name = RandomName
	}
	b, err := r.New(name)
	if err != nil {
		return nil, "", err
	}
	if m, ok := b.(*mixture); ok {
		// Dispatch the chosen algorithm directly so the caller learns
		// which backend actually produced the values.
		sub, err := m.choose(req.withOptions(alg.Options))
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", name, err)
		}
		return r.Dispatch(ctx, sub, req)
	}
	values, err := b.Suggest(ctx, req.withOptions(alg.Options))
	if errors.Is(err, model.ErrNoExamples) && name != RandomName {
		return r.Dispatch(ctx, Alg{Name: alg.Name, Backend: RandomName}, req)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", name, err)
	}
	return values, b.Name(), nil
}
