// Package backend decides which parameter values the next run should try.
//
// A [Backend] receives the parameter definitions known so far and the
// usable history of scored examples, and returns a suggestion for some or
// all of the parameters. Parameters a backend leaves out are sampled at
// random by the caller.
//
// Backends are looked up by name in a [Registry]. On top of backends the
// registry knows algorithms ([Alg]): named combinations of a backend,
// its options, and the minimum amount of history the backend needs.
// While the history is shorter than that, the random backend is used
// instead, which is the usual initial-sampling phase of Bayesian
// optimization.
//
// # Built-in algorithms
//
//   - random: independent random sampling.
//   - serving, max_greedy: replay the best run seen so far.
//   - gaussian_process (gp), gp_ei, gp_pi, gp_thompson: a Gaussian-process
//     surrogate scored with UCB, Expected Improvement, Probability of
//     Improvement or Thompson Sampling.
//   - tree_structured_parzen_estimator (tpe): Parzen densities of the good
//     and bad runs, maximizing their ratio.
//   - epsilon_greedy: serving 90% of the time, random otherwise.
//   - tpe_or_gp: tpe or gp with equal probability. This is the default.
//
// # Custom backends
//
//	reg := backend.NewDefaultRegistry()
//	err := reg.Register("grid", func(*backend.Registry) (backend.Backend, error) {
//	    return &gridBackend{}, nil
//	})
//	err = reg.RegisterAlg(backend.Alg{Name: "grid", Backend: "grid"})
package backend
