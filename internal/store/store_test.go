package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalesfsp/hotrack/model"
)

func example(id string, g float64, values map[string]any) model.Example {
	return model.Example{
		RunID:     id,
		Values:    values,
		Gain:      &g,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseProtocol(t *testing.T) {
	for in, want := range map[string]Protocol{"": JSON, "json": JSON, "YAML": YAML, "yml": YAML} {
		got, err := ParseProtocol(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseProtocol("pickle")
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestPath(t *testing.T) {
	assert.Equal(t, "train_lr.hotrack.json", Path("train", "_lr", JSON))
	assert.Equal(t, YAML, ProtocolOf(Path("train", "", YAML)))
	assert.Equal(t, JSON, ProtocolOf("train.hotrack.json"))
}

func TestLoadMissingFile(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "sub", "x.hotrack.json"), JSON)
	require.NoError(t, err)

	data, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, data.Examples)
	assert.NotNil(t, data.Params)
}

func TestSaveAndLoad(t *testing.T) {
	for _, protocol := range []Protocol{JSON, YAML} {
		t.Run(string(protocol), func(t *testing.T) {
			s, err := New(filepath.Join(t.TempDir(), Path("train", "", protocol)), protocol)
			require.NoError(t, err)

			data := model.NewData()
			require.NoError(t, data.DefineParam("n", model.ParamSpec{Kind: model.KindRandInt, Args: []float64{1, 9}}))
			require.NoError(t, data.DefineParam("act", model.ParamSpec{Kind: model.KindChoice, Choices: []any{"relu", "tanh"}}))
			_, err = data.AddExample(example("a", 0.5, map[string]any{"n": 3, "act": "tanh"}))
			require.NoError(t, err)

			_, err = s.Save(data)
			require.NoError(t, err)

			loaded, err := s.Load()
			require.NoError(t, err)
			require.Len(t, loaded.Examples, 1)
			assert.True(t, loaded.Params["n"].Compatible(data.Params["n"]))
			assert.True(t, loaded.Params["act"].Compatible(data.Params["act"]))

			usable := loaded.Usable(data.Params)
			require.Len(t, usable, 1)
			assert.Equal(t, map[string]any{"n": 3, "act": "tanh"}, usable[0].Values)
			assert.Equal(t, 0.5, *usable[0].Gain)
		})
	}
}

func TestSaveMergesWithDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.hotrack.json")
	a, err := New(path, JSON)
	require.NoError(t, err)
	b, err := New(path, JSON)
	require.NoError(t, err)

	first := model.NewData()
	_, _ = first.AddExample(example("1", 1, nil))
	_, err = a.Save(first)
	require.NoError(t, err)

	// b never loaded "1" but must not drop it
	second := model.NewData()
	_, _ = second.AddExample(example("2", 2, nil))
	merged, err := b.Save(second)
	require.NoError(t, err)
	assert.Len(t, merged.Examples, 2)

	// saving the same example again is a no-op
	merged, err = a.Save(first)
	require.NoError(t, err)
	assert.Len(t, merged.Examples, 2)
}

func TestUpdateFailureWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.hotrack.json")
	s, err := New(path, JSON)
	require.NoError(t, err)

	first := model.NewData()
	_, _ = first.AddExample(example("1", 1, nil))
	_, err = s.Save(first)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Update(func(data *model.Data) error {
		data.Examples = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestConflictingParamIsRejected(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "x.hotrack.json"), JSON)
	require.NoError(t, err)

	d1 := model.NewData()
	require.NoError(t, d1.DefineParam("x", model.ParamSpec{Kind: model.KindUniform, Args: []float64{0, 1}}))
	_, err = s.Save(d1)
	require.NoError(t, err)

	d2 := model.NewData()
	require.NoError(t, d2.DefineParam("x", model.ParamSpec{Kind: model.KindUniform, Args: []float64{0, 2}}))
	_, err = s.Save(d2)
	assert.ErrorIs(t, err, model.ErrParamConflict)
}

func TestConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.hotrack.json")
	const writers = 16

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := New(path, JSON)
			if err != nil {
				errs <- err
				return
			}
			data := model.NewData()
			_, _ = data.AddExample(example(fmt.Sprint(i), float64(i), nil))
			_, err = s.Save(data)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	s, err := New(path, JSON)
	require.NoError(t, err)
	data, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, data.Examples, writers)
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.hotrack.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	s, err := New(path, JSON)
	require.NoError(t, err)

	_, err = s.Load()
	assert.Error(t, err)
	_, err = s.Save(model.NewData())
	assert.Error(t, err)
}
