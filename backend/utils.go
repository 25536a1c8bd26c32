package backend

import (
	"maps"
	"math"
	"math/rand"
	"slices"

	"github.com/thalesfsp/hotrack/model"
)

//////
// Helper functions.
//////

// sortedNames returns the parameter names in a stable order, which fixes
// the meaning of each dimension of the unit hypercube.
func sortedNames(params map[string]model.ParamSpec) []string {
	return slices.Sorted(maps.Keys(params))
}

// encodeExamples maps every example to a point in the unit hypercube and
// returns the points together with their objectives (lower is better).
// Examples that fail to encode are skipped.
func encodeExamples(names []string, req *Request) (points [][]float64, objectives []float64) {
	for _, e := range req.Examples {
		obj, ok := e.Objective()
		if !ok || math.IsNaN(obj) || math.IsInf(obj, 0) {
			continue
		}
		point := make([]float64, len(names))
		usable := true
		for i, name := range names {
			u, err := req.Params[name].ToUnit(e.Values[name])
			if err != nil {
				usable = false
				break
			}
			point[i] = u
		}
		if usable {
			points = append(points, point)
			objectives = append(objectives, obj)
		}
	}
	return points, objectives
}

// decodePoint maps a point of the unit hypercube back to values.
func decodePoint(names []string, params map[string]model.ParamSpec, point []float64) map[string]any {
	out := make(map[string]any, len(names))
	for i, name := range names {
		out[name] = params[name].FromUnit(point[i])
	}
	return out
}

// randomPoint draws a uniform point of the unit hypercube.
func randomPoint(rng *rand.Rand, dim int) []float64 {
	point := make([]float64, dim)
	for i := range point {
		point[i] = rng.Float64()
	}
	return point
}

// standardize rescales values to zero mean and unit variance. A constant
// series becomes all zeros.
func standardize(values []float64) []float64 {
	n := float64(len(values))
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= n

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / n)

	out := make([]float64, len(values))
	for i, v := range values {
		if std > 0 {
			out[i] = (v - mean) / std
		}
	}
	return out
}
