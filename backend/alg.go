package backend

// Alg is a named way of choosing the next run: a backend, its options and
// how much history it needs before it is consulted.
type Alg struct {
	// Name is the algorithm name users pass to Run.
	Name string

	// Backend is the registry name of the backend.
	Backend string

	// Options are passed to the backend.
	Options Options

	// MinExamples is the number of usable examples below which the random
	// backend is used instead.
	MinExamples int
}

// DefaultAlg is the algorithm used when none is given.
const DefaultAlg = "tpe_or_gp"

// defaultMinExamples mirrors the initial random sampling phase of
// surrogate-based optimization.
const defaultMinExamples = 5

func builtinAlgs() []Alg {
	gp := func(name, acquisition string) Alg {
		return Alg{
			Name:        name,
			Backend:     GaussianProcessName,
			Options:     Options{"acquisition": acquisition},
			MinExamples: defaultMinExamples,
		}
	}
	return []Alg{
		{Name: RandomName, Backend: RandomName},
		{Name: ServingName, Backend: ServingName, MinExamples: 1},
		{Name: "max_greedy", Backend: ServingName, MinExamples: 1},
		gp(GaussianProcessName, "ucb"),
		gp("gp", "ucb"),
		gp("gp_ei", "ei"),
		gp("gp_pi", "pi"),
		gp("gp_thompson", "thompson"),
		{Name: TPEName, Backend: TPEName, MinExamples: defaultMinExamples},
		{Name: "tpe", Backend: TPEName, MinExamples: defaultMinExamples},
		{
			Name:    "epsilon_greedy",
			Backend: MixtureName,
			Options: Options{"distribution": []any{
				[]any{ServingName, 0.9},
				[]any{RandomName, 0.1},
			}},
		},
		{
			Name:    DefaultAlg,
			Backend: MixtureName,
			Options: Options{"distribution": []any{
				[]any{"tpe", 0.5},
				[]any{"gp", 0.5},
			}},
		},
	}
}
