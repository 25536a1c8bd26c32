package backend

import (
	"context"
	"maps"

	"github.com/thalesfsp/hotrack/model"
)

// ServingName is the registry name of the serving backend.
const ServingName = "serving"

// serving replays the values of the best run.
type serving struct{}

func newServing(*Registry) (Backend, error) {
	return serving{}, nil
}

// Name implements Backend.
func (serving) Name() string {
	return ServingName
}

// Suggest implements Backend.
func (serving) Suggest(ctx context.Context, req *Request) (map[string]any, error) {
	data := model.Data{Examples: req.Examples}
	best, err := data.Best()
	if err != nil {
		return nil, err
	}
	return maps.Clone(best.Values), nil
}
