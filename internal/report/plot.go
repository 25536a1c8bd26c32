package report

import (
	"fmt"
	"io"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/thalesfsp/hotrack/model"
)

const (
	minPlotWidth  = 8
	minPlotHeight = 3
)

// PlotConvergence draws the best reward found so far after each run.
func PlotConvergence(w io.Writer, data *model.Data, width, height int) error {
	maximizing := data.Maximizing()
	var ys []float64
	for _, obj := range data.Convergence() {
		if math.IsInf(obj, 1) {
			// no scored run yet
			continue
		}
		ys = append(ys, orient(obj, maximizing))
	}
	return plot(w, "best so far", ys, width, height)
}

// PlotHistory draws the reward of each run.
func PlotHistory(w io.Writer, data *model.Data, width, height int) error {
	return plot(w, "reward per run", rewards(data), width, height)
}

// plot renders ys as a line chart under a title line.
func plot(w io.Writer, title string, ys []float64, width, height int) error {
	if len(ys) == 0 {
		return model.ErrNoExamples
	}
	runs := len(ys)
	if runs == 1 {
		// a single point still needs a line to draw
		ys = []float64{ys[0], ys[0]}
	}

	chart := asciigraph.Plot(ys,
		asciigraph.Width(max(width, minPlotWidth)),
		asciigraph.Height(max(height, minPlotHeight)),
		asciigraph.Precision(2),
		asciigraph.Caption(fmt.Sprintf("runs 1..%d", runs)),
	)
	_, err := fmt.Fprintf(w, "%s (%d runs)\n%s\n", title, runs, chart)
	return err
}
