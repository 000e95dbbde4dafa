package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/tabloss/losses"
	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// plotBreakdown saves a bar chart with one bar per target contribution.
// The image format follows the file extension.
func plotBreakdown(b losses.Breakdown, path string) error {
	if len(b.Targets) == 0 {
		return errors.ErrEmptyData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Loss breakdown (total %.4g)", b.Total)
	p.Y.Label.Text = "Contribution"

	values := make(plotter.Values, len(b.Targets))
	names := make([]string, len(b.Targets))
	for i, t := range b.Targets {
		values[i] = t.Contribution
		names[i] = fmt.Sprintf("%s[%d]", t.Kind, t.Target)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(len(b.Targets)) * vg.Centimeter * 1.5
	if width < 10*vg.Centimeter {
		width = 10 * vg.Centimeter
	}
	if err := p.Save(width, 8*vg.Centimeter, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
