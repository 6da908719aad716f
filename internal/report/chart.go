package report

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 3 * vg.Inch
)

// Chart renders a grouped bar chart PNG with one cluster per bucket and
// bars for systolic, diastolic and pulse.
func Chart(buckets []Bucket) ([]byte, error) {
	p := plot.New()
	p.Y.Label.Text = "mmHg / bpm"
	p.Y.Min = 0
	p.Legend.Top = true

	series := []struct {
		name string
		get  func(Bucket) float64
	}{
		{"Systolic", func(b Bucket) float64 { return b.Systolic }},
		{"Diastolic", func(b Bucket) float64 { return b.Diastolic }},
		{"Pulse", func(b Bucket) float64 { return b.Pulse }},
	}

	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
	}

	w := barWidth(len(buckets))
	for i, s := range series {
		values := make(plotter.Values, len(buckets))
		for j, b := range buckets {
			values[j] = s.get(b)
		}

		bars, err := plotter.NewBarChart(values, w)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s bars: %w", s.name, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = w * vg.Length(i-1)

		p.Add(bars)
		p.Legend.Add(s.name, bars)
	}
	p.NominalX(labels...)

	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create chart writer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

// barWidth narrows bars as the number of clusters grows so labels stay
// readable on a fixed-size canvas.
func barWidth(clusters int) vg.Length {
	if clusters < 1 {
		clusters = 1
	}
	w := (chartWidth - vg.Inch) / vg.Length(clusters*4)
	if w > vg.Points(18) {
		w = vg.Points(18)
	}
	if w < vg.Points(1) {
		w = vg.Points(1)
	}
	return w
}
