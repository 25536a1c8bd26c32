package hotrack

import (
	"context"
	"errors"
	"fmt"

	"github.com/thalesfsp/hotrack/backend"
	"github.com/thalesfsp/hotrack/model"
)

// defaultIterations is the number of runs of DefaultOptimizeConfig.
const defaultIterations = 50

// OptimizeConfig controls Optimize.
type OptimizeConfig struct {
	// Alg is the algorithm of every run. Empty means backend.DefaultAlg.
	Alg string

	// Iterations is the number of runs to evaluate.
	Iterations int

	// Maximize scores the evaluation result as a gain instead of a loss.
	Maximize bool
}

// DefaultOptimizeConfig returns a default configuration.
func DefaultOptimizeConfig() OptimizeConfig {
	return OptimizeConfig{
		Alg:        backend.DefaultAlg,
		Iterations: defaultIterations,
	}
}

// EvalFunc evaluates one run. It declares its parameters on o and returns
// the reward of the run, or an error if the run failed.
type EvalFunc func(ctx context.Context, o *Optimizer) (float64, error)

// Optimize runs eval config.Iterations times in this process and returns
// the best run of the data file.
//
// Usage example:
//
//	best, err := opt.Optimize(ctx, hotrack.DefaultOptimizeConfig(),
//	    func(ctx context.Context, o *hotrack.Optimizer) (float64, error) {
//	        lr := o.LogUniform("lr", 1e-4, 1)
//	        layers := o.RandInt("layers", 1, 8)
//	        return train(ctx, lr, layers)
//	    })
//
// How it works:
// 1. Starts a run with config.Alg
// 2. Calls eval, which declares the parameters and measures the reward
// 3. Scores the run with the reward
// 4. Logs and leaves unscored the runs whose evaluation failed or whose
// reward is not a finite number
//
// A declaration error stops the loop since every later run would repeat
// it, as do a cancelled context and a failure to save.
func (o *Optimizer) Optimize(ctx context.Context, config OptimizeConfig, eval EvalFunc) (model.Example, error) {
	iterations := config.Iterations
	if iterations <= 0 {
		iterations = defaultIterations
	}
	defer o.setIteration(0, 0)

	for i := 1; i <= iterations; i++ {
		if err := ctx.Err(); err != nil {
			return model.Example{}, err
		}
		if err := o.Run(ctx, config.Alg); err != nil {
			return model.Example{}, err
		}
		o.setIteration(i, iterations)

		reward, err := eval(ctx, o)
		if declErr := o.Err(); declErr != nil {
			return model.Example{}, fmt.Errorf("iteration %d: %w", i, declErr)
		}
		if err != nil {
			o.config.logger.Warnf("hotrack: iteration %d/%d failed: %s", i, iterations, err.Error())
			o.abandon()
			continue
		}

		if config.Maximize {
			err = o.Maximize(reward)
		} else {
			err = o.Minimize(reward)
		}
		switch {
		case errors.Is(err, model.ErrInvalidReward):
			o.config.logger.Warnf("hotrack: iteration %d/%d: %s", i, iterations, err.Error())
			o.abandon()
		case err != nil:
			return model.Example{}, err
		}
	}
	return o.BestRun()
}

// setIteration records the position of the current run in Optimize.
func (o *Optimizer) setIteration(iteration, iterations int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.iteration, o.iterations = iteration, iterations
}

// abandon ends the current run without scoring it.
func (o *Optimizer) abandon() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
}
