// Package report renders optimizer data for humans and other tools:
// summaries, tables, text charts, CSV and SQLite exports.
package report

import (
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/thalesfsp/hotrack/model"
)

// Summary describes the rewards of a history. Rewards are gains when the
// history maximizes and losses otherwise.
type Summary struct {
	Count      int
	Maximizing bool
	Best       float64
	Mean       float64
	Median     float64
	StdDev     float64
	Min        float64
	Max        float64
}

// rewards returns the reward of every scored example, oriented by the
// direction of the history.
func rewards(data *model.Data) []float64 {
	maximizing := data.Maximizing()
	var out []float64
	for _, e := range data.Examples {
		obj, ok := e.Objective()
		if !ok {
			continue
		}
		out = append(out, orient(obj, maximizing))
	}
	return out
}

// orient turns an objective back into a reward.
func orient(objective float64, maximizing bool) float64 {
	if maximizing {
		return -objective
	}
	return objective
}

// Summarize computes the statistics of the rewards in data.
func Summarize(data *model.Data) (Summary, error) {
	values := rewards(data)
	if len(values) == 0 {
		return Summary{}, model.ErrNoExamples
	}
	s := Summary{Count: len(values), Maximizing: data.Maximizing()}

	var err error
	if s.Mean, err = stats.Mean(values); err != nil {
		return Summary{}, err
	}
	if s.Median, err = stats.Median(values); err != nil {
		return Summary{}, err
	}
	if s.StdDev, err = stats.StandardDeviation(values); err != nil {
		return Summary{}, err
	}
	if s.Min, err = stats.Min(values); err != nil {
		return Summary{}, err
	}
	if s.Max, err = stats.Max(values); err != nil {
		return Summary{}, err
	}
	s.Best = s.Min
	if s.Maximizing {
		s.Best = s.Max
	}
	return s, nil
}

// Write prints the summary.
func (s Summary) Write(w io.Writer) error {
	direction := "loss"
	if s.Maximizing {
		direction = "gain"
	}
	_, err := fmt.Fprintf(w,
		"runs: %d\nbest %s: %.6g\nmean: %.6g\nmedian: %.6g\nstddev: %.6g\nmin: %.6g\nmax: %.6g\n",
		s.Count, direction, s.Best, s.Mean, s.Median, s.StdDev, s.Min, s.Max)
	return err
}
