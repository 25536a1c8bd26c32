package backend

import (
	"context"
	"fmt"
)

// MixtureName is the registry name of the mixture backend.
const MixtureName = "mixture"

// mixture picks one algorithm at random, by weight, and delegates to it.
//
// Options:
//
//	"distribution": [][alg, weight]
type mixture struct {
	reg *Registry
}

func newMixture(reg *Registry) (Backend, error) {
	return &mixture{reg: reg}, nil
}

// Name implements Backend.
func (*mixture) Name() string {
	return MixtureName
}

// weightedAlg is one entry of the distribution option.
type weightedAlg struct {
	alg    string
	weight float64
}

// parseDistribution decodes the distribution option.
func parseDistribution(opts Options) ([]weightedAlg, error) {
	raw, ok := opts["distribution"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("%w: distribution must be a non-empty list", ErrInvalidOption)
	}
	var (
		out   []weightedAlg
		total float64
	)
	for _, entry := range raw {
		pair, ok := entry.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: distribution entry %v is not [alg, weight]", ErrInvalidOption, entry)
		}
		name, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: distribution alg %v is not a string", ErrInvalidOption, pair[0])
		}
		weight, err := Options{"weight": pair[1]}.Float("weight", 0)
		if err != nil {
			return nil, err
		}
		if weight < 0 {
			return nil, fmt.Errorf("%w: negative weight for %q", ErrInvalidOption, name)
		}
		total += weight
		out = append(out, weightedAlg{alg: name, weight: weight})
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: distribution weights sum to zero", ErrInvalidOption)
	}
	return out, nil
}

// Suggest implements Backend.
func (m *mixture) Suggest(ctx context.Context, req *Request) (map[string]any, error) {
	alg, err := m.choose(req)
	if err != nil {
		return nil, err
	}
	values, _, err := m.reg.Dispatch(ctx, alg, req)
	return values, err
}

// choose draws one algorithm of the distribution by weight.
func (m *mixture) choose(req *Request) (Alg, error) {
	dist, err := parseDistribution(req.Options)
	if err != nil {
		return Alg{}, err
	}

	var total float64
	for _, w := range dist {
		total += w.weight
	}
	pick := req.Rand.Float64() * total
	chosen := dist[len(dist)-1].alg
	for _, w := range dist {
		if pick < w.weight {
			chosen = w.alg
			break
		}
		pick -= w.weight
	}

	alg, err := m.reg.LookupAlg(chosen)
	if err != nil {
		return Alg{}, err
	}
	if alg.Backend == MixtureName {
		return Alg{}, fmt.Errorf("%w: mixture cannot contain mixture %q", ErrInvalidOption, alg.Name)
	}
	return alg, nil
}
