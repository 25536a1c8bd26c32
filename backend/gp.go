package backend

import (
	"context"
	"fmt"
	"math"

	"github.com/thalesfsp/hotrack/model"
)

// GaussianProcessName is the registry name of the Gaussian-process backend.
const GaussianProcessName = "gaussian_process"

// gpConfig holds the options of the Gaussian-process backend.
type gpConfig struct {
	// acquisition selects the next point among the candidates.
	acquisition AcquisitionFunc

	// params configures the acquisition function.
	params AcquisitionParams

	// candidates is how many random candidates are scored per suggestion.
	candidates int

	// kernelWidth is the RBF sigma in unit-hypercube coordinates.
	kernelWidth float64
}

// defaultGPConfig mirrors the usual Bayesian optimization defaults, with
// a kernel width suited to the unit hypercube.
func defaultGPConfig() gpConfig {
	return gpConfig{
		acquisition: UCB,
		params: AcquisitionParams{
			Beta: 2.0,
			Xi:   0.01,
		},
		candidates:  200,
		kernelWidth: 0.2,
	}
}

// parseGPConfig reads the backend options on top of the defaults.
//
// Options:
// - acquisition: ucb, ei, pi or thompson
// - beta, xi: acquisition parameters
// - candidates: random candidates per suggestion
// - kernel_width: RBF sigma
func parseGPConfig(opts Options) (gpConfig, error) {
	config := defaultGPConfig()

	name, err := opts.String("acquisition", "ucb")
	if err != nil {
		return config, err
	}
	if config.acquisition, err = acquisitionByName(name); err != nil {
		return config, err
	}
	if config.params.Beta, err = opts.Float("beta", config.params.Beta); err != nil {
		return config, err
	}
	if config.params.Xi, err = opts.Float("xi", config.params.Xi); err != nil {
		return config, err
	}
	if config.candidates, err = opts.Int("candidates", config.candidates); err != nil {
		return config, err
	}
	if config.candidates <= 0 {
		return config, fmt.Errorf("%w: candidates must be positive", ErrInvalidOption)
	}
	if config.kernelWidth, err = opts.Float("kernel_width", config.kernelWidth); err != nil {
		return config, err
	}
	if config.kernelWidth <= 0 {
		return config, fmt.Errorf("%w: kernel_width must be positive", ErrInvalidOption)
	}
	return config, nil
}

// gaussianProcessBackend fits a Gaussian-process surrogate to the history
// and picks the candidate with the best acquisition score.
type gaussianProcessBackend struct{}

func newGaussianProcessBackend(*Registry) (Backend, error) {
	return gaussianProcessBackend{}, nil
}

// Name implements Backend.
func (gaussianProcessBackend) Name() string {
	return GaussianProcessName
}

// Suggest implements Backend.
//
// How it works:
// 1. Maps the history to the unit hypercube and standardizes objectives
// 2. Fits the surrogate to the history
// 3. Generates random candidate points
// 4. Predicts mean and variance at each candidate
// 5. Returns the candidate with the lowest acquisition score
func (gaussianProcessBackend) Suggest(ctx context.Context, req *Request) (map[string]any, error) {
	config, err := parseGPConfig(req.Options)
	if err != nil {
		return nil, err
	}

	names := sortedNames(req.Params)
	points, objectives := encodeExamples(names, req)
	if len(points) == 0 {
		return nil, model.ErrNoExamples
	}

	gp := newGaussianProcess(config.kernelWidth)

	// Standardize so that the prior mean (zero) is the average run.
	scaled := standardize(objectives)
	config.params.BestSoFar = math.MaxFloat64
	for i, point := range points {
		gp.Update(point, scaled[i])
		config.params.BestSoFar = math.Min(config.params.BestSoFar, scaled[i])
	}
	config.params.RandomState = req.Rand

	var nextPoint []float64
	bestAcquisition := math.Inf(1)

	for j := 0; j < config.candidates; j++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate := randomPoint(req.Rand, len(names))

		mean, variance := gp.Predict(candidate)

		acquisition := config.acquisition(mean, variance, config.params)

		if nextPoint == nil || acquisition < bestAcquisition {
			bestAcquisition = acquisition
			nextPoint = candidate
		}
	}

	return decodePoint(names, req.Params, nextPoint), nil
}
