// Package hotrack tracks black-box parameters declared inline by a program,
// records each run's parameter values and reward to a local data file, and
// delegates the choice of the next values to pluggable backends.
//
// # Features
//
// The package includes the following key features:
//
//   - Inline declaration: parameters are declared where they are used, with
//     the distribution they should be drawn from
//   - Persistent history: every scored run is appended to a JSON or YAML
//     data file next to the program
//   - Safe for concurrent trial processes: data files are updated with a
//     locked load-merge-save cycle, so parallel runs never lose examples
//   - Pluggable backends: random sampling, serving the best run, a
//     Gaussian-process surrogate, a tree-structured Parzen estimator, and
//     weighted mixtures of those (see package backend)
//   - Guesses: a parameter can carry the value to try before any history
//     exists
//   - Progress Monitoring: optional updates on a channel after each run
//
// # Usage
//
//	opt, err := hotrack.New("train")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := opt.Run(ctx, "tpe"); err != nil {
//	    log.Fatal(err)
//	}
//
//	lr := opt.LogUniform("lr", 1e-4, 1e-1, hotrack.Guess(1e-3))
//	layers := opt.RandInt("layers", 1, 8)
//	act := opt.Choice("activation", []any{"relu", "tanh", "gelu"})
//
//	accuracy := trainAndEvaluate(lr, layers, act)
//
//	if err := opt.Maximize(accuracy); err != nil {
//	    log.Fatal(err)
//	}
//
// Running the program many times, possibly in parallel with the hotrack
// command, grows the history in train.hotrack.json and lets the backend
// make increasingly informed choices. Run the program with the "serving"
// algorithm to replay the best parameters found so far.
//
// A program can also drive every run itself with Optimize:
//
//	best, err := opt.Optimize(ctx, hotrack.DefaultOptimizeConfig(),
//	    func(ctx context.Context, o *hotrack.Optimizer) (float64, error) {
//	        return benchmark(o.RandInt("workers", 1, 32))
//	    })
//
// # Errors
//
// Declaration helpers such as Uniform return plain values to keep programs
// readable. The first error they hit is remembered: Err reports it and
// Maximize and Minimize return it instead of recording the run.
package hotrack
