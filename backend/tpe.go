package backend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/thalesfsp/hotrack/model"
)

// TPEName is the registry name of the tree-structured Parzen estimator.
const TPEName = "tree_structured_parzen_estimator"

// tpeConfig holds the options of the TPE backend.
type tpeConfig struct {
	// gamma is the fraction of the history considered good.
	gamma float64

	// candidates is how many points are drawn from the good density.
	candidates int

	// bandwidth is the Parzen kernel width; zero picks one from the
	// number of observations.
	bandwidth float64
}

func parseTPEConfig(opts Options) (tpeConfig, error) {
	config := tpeConfig{gamma: 0.25, candidates: 64}
	var err error
	if config.gamma, err = opts.Float("gamma", config.gamma); err != nil {
		return config, err
	}
	if config.gamma <= 0 || config.gamma >= 1 {
		return config, fmt.Errorf("%w: gamma must be in (0, 1)", ErrInvalidOption)
	}
	if config.candidates, err = opts.Int("candidates", config.candidates); err != nil {
		return config, err
	}
	if config.candidates <= 0 {
		return config, fmt.Errorf("%w: candidates must be positive", ErrInvalidOption)
	}
	if config.bandwidth, err = opts.Float("bandwidth", 0); err != nil {
		return config, err
	}
	if config.bandwidth < 0 {
		return config, fmt.Errorf("%w: bandwidth must not be negative", ErrInvalidOption)
	}
	return config, nil
}

// tpe splits the history into good and bad runs, models each dimension of
// both groups with a Parzen density, and picks the candidate that
// maximizes the density ratio good/bad.
type tpe struct{}

func newTPE(*Registry) (Backend, error) {
	return tpe{}, nil
}

// Name implements Backend.
func (tpe) Name() string {
	return TPEName
}

// Suggest implements Backend.
func (tpe) Suggest(ctx context.Context, req *Request) (map[string]any, error) {
	config, err := parseTPEConfig(req.Options)
	if err != nil {
		return nil, err
	}

	names := sortedNames(req.Params)
	points, objectives := encodeExamples(names, req)
	if len(points) == 0 {
		return nil, model.ErrNoExamples
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return objectives[order[a]] < objectives[order[b]]
	})
	nGood := max(1, int(math.Ceil(config.gamma*float64(len(points)))))

	var best []float64
	bestScore := math.Inf(-1)

	for j := 0; j < config.candidates; j++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate := make([]float64, len(names))
		var score float64
		for d := range names {
			good := column(points, order[:nGood], d)
			bad := column(points, order[nGood:], d)
			goodBW := autoBandwidthOr(config.bandwidth, len(good))
			badBW := autoBandwidthOr(config.bandwidth, len(bad))
			x := sampleParzen(req, good, goodBW)
			candidate[d] = x
			score += math.Log(parzenDensity(x, good, goodBW)) - math.Log(parzenDensity(x, bad, badBW))
		}

		if best == nil || score > bestScore {
			best, bestScore = candidate, score
		}
	}

	return decodePoint(names, req.Params, best), nil
}

// column extracts dimension d of the selected points.
func column(points [][]float64, idx []int, d int) []float64 {
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = points[k][d]
	}
	return out
}

// autoBandwidth narrows the kernels as observations accumulate.
func autoBandwidth(n int) float64 {
	return model.Clamp(1/float64(n+1), 0.05, 0.5)
}

// autoBandwidthOr returns bw unless it is zero.
func autoBandwidthOr(bw float64, n int) float64 {
	if bw > 0 {
		return bw
	}
	return autoBandwidth(n)
}

// sampleParzen draws from the mixture of one Gaussian per observation
// plus a uniform prior component, each with equal weight.
func sampleParzen(req *Request, centers []float64, bw float64) float64 {
	k := req.Rand.Intn(len(centers) + 1)
	if k == len(centers) {
		return req.Rand.Float64()
	}
	return model.Clamp(centers[k]+bw*req.Rand.NormFloat64(), 0, 1)
}

// parzenDensity evaluates the mixture sampled by sampleParzen at x.
// The uniform prior keeps it strictly positive.
func parzenDensity(x float64, centers []float64, bw float64) float64 {
	sum := 1.0
	for _, c := range centers {
		sum += model.NormalPDF((x-c)/bw) / bw
	}
	return sum / float64(len(centers)+1)
}
