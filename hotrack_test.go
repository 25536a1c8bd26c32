package hotrack

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalesfsp/hotrack/backend"
	"github.com/thalesfsp/hotrack/model"
)

// newTestOptimizer creates an Optimizer with a seeded random source and a
// data file in a temporary directory.
func newTestOptimizer(t *testing.T, dir string, opts ...Option) *Optimizer {
	t.Helper()
	opts = append([]Option{WithDir(dir), WithRand(rand.New(rand.NewSource(42)))}, opts...)
	opt, err := New("train", opts...)
	require.NoError(t, err)
	return opt
}

// Sample function to be optimized: best at lr=0.01, layers=4, act=tanh.
func testObjective(lr float64, layers int, act string) float64 {
	score := -math.Abs(math.Log10(lr)+2) - math.Abs(float64(layers-4))/4
	if act == "tanh" {
		score += 0.5
	}
	return score
}

func TestOptimizeLoop(t *testing.T) {
	dir := t.TempDir()
	opt := newTestOptimizer(t, dir)

	for i := 0; i < 15; i++ {
		require.NoError(t, opt.Run(context.Background(), "tpe"))

		lr := opt.LogUniform("lr", 1e-4, 1, Guess(1e-3))
		layers := opt.RandInt("layers", 1, 8)
		act := ChoiceOf(opt, "act", []string{"relu", "tanh"})

		assert.GreaterOrEqual(t, lr, 1e-4)
		assert.LessOrEqual(t, lr, 1.0)
		assert.GreaterOrEqual(t, layers, 1)
		assert.LessOrEqual(t, layers, 8)
		assert.Contains(t, []string{"relu", "tanh"}, act)

		require.NoError(t, opt.Remember(map[string]any{"iteration": i}))
		require.NoError(t, opt.Maximize(testObjective(lr, layers, act)))
	}

	data := opt.Data()
	assert.Len(t, data.Examples, 15)
	assert.Len(t, data.Params, 3)

	// the first run used the guess
	assert.Equal(t, 1e-3, data.Examples[0].Values["lr"])

	best, err := opt.BestRun()
	require.NoError(t, err)
	for _, e := range data.Examples {
		assert.LessOrEqual(t, e.Reward(), best.Reward())
	}

	_, err = os.Stat(filepath.Join(dir, "train.hotrack.json"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "train.hotrack.json"), opt.DataFile())
}

func TestOptimizeLoopChannel(t *testing.T) {
	const runs = 5

	// Create a bidirectional channel for progress updates
	progressChan := make(chan Progress, runs)
	defer close(progressChan)

	opt := newTestOptimizer(t, t.TempDir(), WithProgress(progressChan))

	var counter int32
	var wg sync.WaitGroup
	wg.Add(runs)

	go func() {
		for update := range progressChan {
			atomic.AddInt32(&counter, int32(update.Examples))
			wg.Done()
		}
	}()

	for i := 0; i < runs; i++ {
		require.NoError(t, opt.Run(context.Background(), backend.RandomName))
		x := opt.Uniform("x", 0, 1)
		require.NoError(t, opt.Minimize(x))
	}
	wg.Wait()

	// 1 + 2 + 3 + 4 + 5 examples were reported
	assert.Equal(t, int32(15), atomic.LoadInt32(&counter))
}

func TestServingReplaysBest(t *testing.T) {
	dir := t.TempDir()
	opt := newTestOptimizer(t, dir)

	for i := 0; i < 6; i++ {
		require.NoError(t, opt.Run(context.Background(), backend.RandomName))
		n := opt.RandInt("n", 0, 100)
		require.NoError(t, opt.Minimize(float64(n)))
	}
	best, err := opt.BestRun()
	require.NoError(t, err)

	require.NoError(t, opt.Run(context.Background(), "serving"))
	assert.True(t, opt.IsServing())
	assert.EqualValues(t, best.Values["n"], opt.RandInt("n", 0, 100))
}

func TestDeclarationErrors(t *testing.T) {
	opt := newTestOptimizer(t, t.TempDir())

	// before Run
	_, err := opt.Param("x", model.ParamSpec{Kind: model.KindRandBool})
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.ErrorIs(t, opt.Maximize(1), ErrNotRunning)
	assert.ErrorIs(t, opt.Remember(nil), ErrNotRunning)

	require.NoError(t, opt.Run(context.Background(), backend.RandomName))

	// invalid definition is sticky and blocks scoring
	assert.Equal(t, 0.0, opt.Uniform("bad", 2, 1))
	assert.ErrorIs(t, opt.Err(), model.ErrInvalidParam)
	assert.ErrorIs(t, opt.Maximize(1), model.ErrInvalidParam)

	// a new run clears the error
	require.NoError(t, opt.Run(context.Background(), backend.RandomName))
	assert.NoError(t, opt.Err())

	first := opt.RandInt("k", 1, 3)
	assert.Equal(t, first, opt.RandInt("k", 1, 3))

	_, err = opt.Param("k", model.ParamSpec{Kind: model.KindRandInt, Args: []float64{1, 4}})
	assert.ErrorIs(t, err, model.ErrParamConflict)
}

func TestConflictWithStoredDefinition(t *testing.T) {
	dir := t.TempDir()
	opt := newTestOptimizer(t, dir)
	require.NoError(t, opt.Run(context.Background(), backend.RandomName))
	opt.Uniform("x", 0, 1)
	require.NoError(t, opt.Maximize(1))

	other := newTestOptimizer(t, dir)
	require.NoError(t, other.Run(context.Background(), backend.RandomName))
	other.Uniform("x", 0, 2)
	assert.ErrorIs(t, other.Err(), model.ErrParamConflict)
}

func TestScoreTwice(t *testing.T) {
	opt := newTestOptimizer(t, t.TempDir())
	require.NoError(t, opt.Run(context.Background(), ""))
	opt.RandBool("flag")
	require.NoError(t, opt.Maximize(1))
	assert.ErrorIs(t, opt.Minimize(1), ErrAlreadyScored)
	assert.ErrorIs(t, opt.Remember(map[string]any{"a": 1}), ErrAlreadyScored)

	run, ok := opt.CurrentRun()
	require.True(t, ok)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, 1.0, *run.Gain)
	assert.Equal(t, backend.DefaultAlg, run.Alg)
}

func TestUnknownAlg(t *testing.T) {
	opt := newTestOptimizer(t, t.TempDir())
	assert.ErrorIs(t, opt.Run(context.Background(), "simulated_annealing"), backend.ErrUnknownAlg)
}

func TestRunBackend(t *testing.T) {
	opt := newTestOptimizer(t, t.TempDir())
	for i := 0; i < 6; i++ {
		require.NoError(t, opt.RunBackend(context.Background(), backend.GaussianProcessName, backend.Options{
			"acquisition": "ei",
		}))
		x := opt.Uniform("x", -1, 1)
		require.NoError(t, opt.Minimize(x*x))
	}
	assert.Equal(t, backend.GaussianProcessName, opt.Backend())
}

func TestConcurrentOptimizersShareHistory(t *testing.T) {
	dir := t.TempDir()
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			opt, err := New("train", WithDir(dir), WithRand(rand.New(rand.NewSource(seed))))
			if err != nil {
				errs <- err
				return
			}
			if err := opt.Run(context.Background(), backend.RandomName); err != nil {
				errs <- err
				return
			}
			errs <- opt.Maximize(opt.Uniform("x", 0, 1))
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	opt := newTestOptimizer(t, dir)
	assert.Len(t, opt.Data().Examples, workers)
}

func TestTellExamplesAndSaveParams(t *testing.T) {
	dir := t.TempDir()
	opt := newTestOptimizer(t, dir, WithProtocol("yaml"))
	assert.Equal(t, filepath.Join(dir, "train.hotrack.yaml"), opt.DataFile())

	require.NoError(t, opt.Run(context.Background(), backend.RandomName))
	opt.RandInt("n", 1, 10)
	require.NoError(t, opt.SaveParams())

	g := 3.0
	require.NoError(t, opt.TellExamples(model.Example{Values: map[string]any{"n": 7.0}, Gain: &g}))

	bad := 1.0
	err := opt.TellExamples(model.Example{Values: map[string]any{"n": 70}, Gain: &bad})
	assert.ErrorIs(t, err, model.ErrValueOutOfDomain)

	require.NoError(t, opt.Reload())
	data := opt.Data()
	require.Len(t, data.Examples, 1)
	assert.Equal(t, 7, data.Examples[0].Values["n"])
	assert.NotEmpty(t, data.Examples[0].RunID)
	assert.False(t, data.Examples[0].Timestamp.IsZero())
}

func TestInvalidProtocol(t *testing.T) {
	_, err := New("train", WithDir(t.TempDir()), WithProtocol("pickle"))
	assert.Error(t, err)
}

func TestDroppedParamKeepsModelBackend(t *testing.T) {
	opt := newTestOptimizer(t, t.TempDir())

	require.NoError(t, opt.Run(context.Background(), backend.GaussianProcessName))
	x, y := opt.Uniform("x", 0, 1), opt.Uniform("y", 0, 1)
	require.NoError(t, opt.Minimize(x+y))

	// y is no longer declared
	for i := 0; i < 10; i++ {
		require.NoError(t, opt.Run(context.Background(), backend.GaussianProcessName))
		x := opt.Uniform("x", 0, 1)
		require.NoError(t, opt.Minimize(x))
	}
	assert.Equal(t, backend.GaussianProcessName, opt.Backend())
	assert.NotContains(t, opt.suggestion, "y")
}

func TestNonFiniteRewardIsRejected(t *testing.T) {
	opt := newTestOptimizer(t, t.TempDir(), WithProtocol("yaml"))
	require.NoError(t, opt.Run(context.Background(), backend.RandomName))
	opt.Uniform("x", 0, 1)

	assert.ErrorIs(t, opt.Maximize(math.NaN()), model.ErrInvalidReward)
	assert.ErrorIs(t, opt.Maximize(math.Inf(1)), model.ErrInvalidReward)
	assert.Empty(t, opt.Data().Examples)

	// the run is still open
	require.NoError(t, opt.Maximize(5))
	best, err := opt.BestRun()
	require.NoError(t, err)
	assert.Equal(t, 5.0, best.Reward())

	nan := math.NaN()
	err = opt.TellExamples(model.Example{Values: map[string]any{"x": 0.5}, Loss: &nan})
	assert.ErrorIs(t, err, model.ErrInvalidReward)

	require.NoError(t, opt.Reload())
	assert.Len(t, opt.Data().Examples, 1)
}

func TestOptimize(t *testing.T) {
	const iterations = 8
	progressChan := make(chan Progress, iterations)
	opt := newTestOptimizer(t, t.TempDir(), WithProgress(progressChan))

	config := DefaultOptimizeConfig()
	config.Alg = "tpe"
	config.Iterations = iterations

	var calls int
	best, err := opt.Optimize(context.Background(), config, func(ctx context.Context, o *Optimizer) (float64, error) {
		calls++
		x := o.Uniform("x", -1, 1)
		switch calls {
		case 3:
			return 0, errors.New("out of memory")
		case 5:
			return math.NaN(), nil
		}
		return x * x, nil
	})
	require.NoError(t, err)
	assert.Equal(t, iterations, calls)
	require.NotNil(t, best.Loss)

	// failed evaluations are left unscored
	data := opt.Data()
	assert.Len(t, data.Examples, iterations-2)
	for _, e := range data.Examples {
		assert.GreaterOrEqual(t, *e.Loss, *best.Loss)
	}

	close(progressChan)
	var seen []int
	for update := range progressChan {
		assert.Equal(t, iterations, update.Iterations)
		seen = append(seen, update.Iteration)
	}
	assert.Equal(t, []int{1, 2, 4, 6, 7, 8}, seen)

	// plain runs report no iteration
	progressChan2 := make(chan Progress, 1)
	opt.config.progress = progressChan2
	require.NoError(t, opt.Run(context.Background(), backend.RandomName))
	opt.Uniform("x", -1, 1)
	require.NoError(t, opt.Minimize(1))
	update := <-progressChan2
	assert.Zero(t, update.Iteration)
	assert.Zero(t, update.Iterations)
}

func TestOptimizeMaximize(t *testing.T) {
	opt := newTestOptimizer(t, t.TempDir())
	config := OptimizeConfig{Alg: backend.RandomName, Iterations: 4, Maximize: true}
	best, err := opt.Optimize(context.Background(), config, func(ctx context.Context, o *Optimizer) (float64, error) {
		return float64(o.RandInt("n", 0, 10)), nil
	})
	require.NoError(t, err)
	require.NotNil(t, best.Gain)
	for _, e := range opt.Data().Examples {
		assert.LessOrEqual(t, *e.Gain, *best.Gain)
	}
}

func TestOptimizeStops(t *testing.T) {
	t.Run("declaration error", func(t *testing.T) {
		opt := newTestOptimizer(t, t.TempDir())
		var calls int
		_, err := opt.Optimize(context.Background(), DefaultOptimizeConfig(), func(ctx context.Context, o *Optimizer) (float64, error) {
			calls++
			return o.Uniform("bad", 2, 1), nil
		})
		assert.ErrorIs(t, err, model.ErrInvalidParam)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		opt := newTestOptimizer(t, t.TempDir())
		ctx, cancel := context.WithCancel(context.Background())
		var calls int
		_, err := opt.Optimize(ctx, DefaultOptimizeConfig(), func(ctx context.Context, o *Optimizer) (float64, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return o.Uniform("x", 0, 1), nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 2, calls)
		assert.Len(t, opt.Data().Examples, 2)
	})

	t.Run("every evaluation fails", func(t *testing.T) {
		opt := newTestOptimizer(t, t.TempDir())
		config := OptimizeConfig{Iterations: 3}
		_, err := opt.Optimize(context.Background(), config, func(ctx context.Context, o *Optimizer) (float64, error) {
			o.RandBool("flag")
			return 0, errors.New("crashed")
		})
		assert.ErrorIs(t, err, model.ErrNoExamples)
	})
}
