package backend

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/thalesfsp/hotrack/model"
)

//////
// Const, vars, types.
//////

// AcquisitionFunc scores a candidate point from the surrogate's prediction
// at that point. Lower values indicate more promising points, matching
// the "lower objective is better" convention of the whole module.
//
// Parameters:
// - mean: The predicted (standardized) objective at the point
// - variance: The predicted variance/uncertainty at that point
// - params: Additional parameters needed by specific acquisition functions
//
// Implementation notes for custom acquisition functions:
// - Should handle zero variance
// - Should return lower values for more promising points
type AcquisitionFunc func(mean, variance float64, params AcquisitionParams) float64

// AcquisitionParams holds parameters used by the acquisition functions to
// balance exploring new areas against exploiting known good areas.
type AcquisitionParams struct {
	// Beta controls the exploration-exploitation trade-off of UCB.
	// Typical values range from 0.1 to 5.0, with 2.0 being a good default.
	Beta float64

	// Xi is the minimum improvement over BestSoFar that PI and EI look
	// for. Typical values range from 0.01 to 0.1.
	Xi float64

	// BestSoFar is the best (lowest) standardized objective observed. The
	// backend sets it before scoring candidates.
	BestSoFar float64

	// RandomState is the random number generator used by Thompson
	// Sampling. Do NOT share it between concurrent suggestions.
	RandomState *rand.Rand
}

// minVariance keeps PI and EI away from a division by zero.
const minVariance = 1e-12

//////
// Available acquisition functions.
//////

// UCB implements the Upper Confidence Bound acquisition function, in its
// minimizing form: the lower confidence bound of the objective.
//
// Example:
//
//	params := AcquisitionParams{Beta: 2.0}
//	value := UCB(0.5, 0.2, params)
func UCB(mean, variance float64, params AcquisitionParams) float64 {
	return mean - params.Beta*math.Sqrt(math.Max(variance, 0))
}

// ProbabilityOfImprovement returns the probability that a point does NOT
// improve upon BestSoFar by at least Xi, so that lower is better.
//
// When to use:
// - When you want to be conservative in exploring new points
// - When small but likely improvements are what matters
func ProbabilityOfImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(math.Max(variance, minVariance))

	z := (mean - params.BestSoFar + params.Xi) / sigma

	return model.NormalCDF(z)
}

// ExpectedImprovement returns the negated expected improvement over
// BestSoFar, so that lower is better.
//
// When to use:
// - Most commonly used acquisition function
// - When the size of the improvement matters, not only its likelihood
func ExpectedImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(math.Max(variance, minVariance))

	improvement := params.BestSoFar - params.Xi - mean
	z := improvement / sigma

	return -(improvement*model.NormalCDF(z) + sigma*model.NormalPDF(z))
}

// ThompsonSampling draws a sample from the posterior at the point.
//
// Warning:
// - RandomState must not be nil
func ThompsonSampling(mean, variance float64, params AcquisitionParams) float64 {
	return mean + math.Sqrt(math.Max(variance, 0))*params.RandomState.NormFloat64()
}

// acquisitionByName maps the "acquisition" backend option to a function.
func acquisitionByName(name string) (AcquisitionFunc, error) {
	switch name {
	case "ucb":
		return UCB, nil
	case "pi":
		return ProbabilityOfImprovement, nil
	case "ei":
		return ExpectedImprovement, nil
	case "thompson":
		return ThompsonSampling, nil
	default:
		return nil, fmt.Errorf("%w: unknown acquisition %q", ErrInvalidOption, name)
	}
}
