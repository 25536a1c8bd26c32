package backend

import "context"

// RandomName is the registry name of the random backend.
const RandomName = "random"

// random samples every parameter independently.
type random struct{}

func newRandom(*Registry) (Backend, error) {
	return random{}, nil
}

// Name implements Backend.
func (random) Name() string {
	return RandomName
}

// Suggest implements Backend.
func (random) Suggest(ctx context.Context, req *Request) (map[string]any, error) {
	out := make(map[string]any, len(req.Params))
	for _, name := range sortedNames(req.Params) {
		out[name] = req.Params[name].Sample(req.Rand)
	}
	return out, nil
}
