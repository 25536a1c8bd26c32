package backend

import "math"

//////
// Const, vars, types.
//////

// gaussianProcess is a kernel regression surrogate over points of the
// unit hypercube. It predicts the standardized objective of untried
// parameter combinations from the observed ones. It is built for a single
// suggestion and is not safe for concurrent use.
//
// The prediction shrinks toward the prior mean (zero, since objectives
// are standardized) with weight 1, and the variance falls as the total
// kernel weight of nearby observations grows.
type gaussianProcess struct {
	// X stores the observed points
	X [][]float64

	// Y stores the observed objective at each point in X
	Y []float64

	// sigma is the kernel width. Larger values interpolate more smoothly.
	sigma float64
}

// gpPriorWeight is the kernel weight given to the prior mean.
const gpPriorWeight = 1.0

//////
// Methods.
//////

// Predict estimates the objective and its uncertainty at x. It returns
// (0, 1), the prior, when there are no observations.
func (gp *gaussianProcess) Predict(x []float64) (mean, variance float64) {
	if len(gp.X) == 0 {
		return 0, 1
	}

	var weight, sum float64

	for i := range gp.X {
		k := rbf(x, gp.X[i], gp.sigma)

		weight += k
		sum += k * gp.Y[i]
	}

	mean = sum / (weight + gpPriorWeight)
	variance = gpPriorWeight / (weight + gpPriorWeight)

	return mean, variance
}

// Update adds an observation. x is copied.
func (gp *gaussianProcess) Update(x []float64, y float64) {
	newX := make([]float64, len(x))
	copy(newX, x)

	gp.X = append(gp.X, newX)
	gp.Y = append(gp.Y, y)
}

// rbf implements the Radial Basis Function kernel:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * sigma^2))
//
// It returns 1.0 for identical points and values close to 0.0 for distant
// points. Both points must have the same dimension.
func rbf(x1, x2 []float64, sigma float64) float64 {
	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return math.Exp(-sum / (2 * sigma * sigma))
}

//////
// Factory.
//////

// newGaussianProcess creates a model with the given kernel width and no
// observations.
func newGaussianProcess(sigma float64) *gaussianProcess {
	return &gaussianProcess{
		sigma: sigma,
	}
}
