package backend

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUCB(t *testing.T) {
	params := AcquisitionParams{Beta: 2.0}
	assert.InDelta(t, 0.5-2*0.5, UCB(0.5, 0.25, params), 1e-12)

	// more uncertainty is more attractive
	assert.Less(t, UCB(0, 1, params), UCB(0, 0.1, params))
}

func TestImprovementFunctionsPreferLowerMean(t *testing.T) {
	params := AcquisitionParams{BestSoFar: 0, Xi: 0.01}
	for name, f := range map[string]AcquisitionFunc{
		"pi": ProbabilityOfImprovement,
		"ei": ExpectedImprovement,
	} {
		assert.Less(t, f(-1, 0.2, params), f(1, 0.2, params), name)
		// zero variance does not divide by zero
		assert.False(t, math.IsNaN(f(1, 0, params)), name)
	}
}

func TestThompsonSampling(t *testing.T) {
	params := AcquisitionParams{RandomState: rand.New(rand.NewSource(1))}
	assert.Equal(t, 3.0, ThompsonSampling(3, 0, params))

	var sum float64
	for i := 0; i < 1000; i++ {
		sum += ThompsonSampling(3, 1, params)
	}
	assert.InDelta(t, 3.0, sum/1000, 0.2)
}

func TestAcquisitionByName(t *testing.T) {
	for _, name := range []string{"ucb", "ei", "pi", "thompson"} {
		f, err := acquisitionByName(name)
		assert.NoError(t, err)
		assert.NotNil(t, f)
	}
	_, err := acquisitionByName("lcb")
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestGaussianProcess(t *testing.T) {
	gp := newGaussianProcess(0.1)

	mean, variance := gp.Predict([]float64{0.5})
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 1.0, variance)

	point := []float64{0.5}
	gp.Update(point, -2)
	// observations are copied
	point[0] = 0.9

	mean, variance = gp.Predict([]float64{0.5})
	assert.InDelta(t, -1.0, mean, 1e-12)
	assert.InDelta(t, 0.5, variance, 1e-12)

	// far from any observation the prior dominates
	mean, variance = gp.Predict([]float64{5})
	assert.InDelta(t, 0.0, mean, 1e-9)
	assert.InDelta(t, 1.0, variance, 1e-9)
}

func TestRBF(t *testing.T) {
	assert.Equal(t, 1.0, rbf([]float64{1, 2}, []float64{1, 2}, 0.5))
	assert.InDelta(t, math.Exp(-0.5), rbf([]float64{0}, []float64{1}, 1), 1e-12)
	assert.Less(t, rbf([]float64{0}, []float64{1}, 0.1), rbf([]float64{0}, []float64{1}, 1))
}
