package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/shockwave.report/internal/flow"
)

// fdSamples is the sample count along the density axis of the
// fundamental diagram chart.
const fdSamples = 120

// FundamentalChart renders the triangular flow-density relation as an
// interactive HTML chart.
func FundamentalChart(d *flow.FundamentalDiagram, w io.Writer) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fundamental Diagram", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Fundamental Diagram",
			Subtitle: fmt.Sprintf("vf=%g m/s  w=%g m/s  kj=%g veh/m  qc=%.3g veh/s", d.FreeflowSpeed(), d.WaveSpeed(), d.JamDensity(), d.Capacity()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Density (veh/m)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Flow (veh/s)", NameLocation: "middle", NameGap: 40}),
	)

	xs := make([]string, 0, fdSamples+1)
	ys := make([]opts.LineData, 0, fdSamples+1)
	for i := 0; i <= fdSamples; i++ {
		k := d.JamDensity() * float64(i) / fdSamples
		s, err := d.State(k)
		if err != nil {
			return err
		}
		xs = append(xs, fmt.Sprintf("%.3f", k))
		ys = append(ys, opts.LineData{Value: s.Flow})
	}

	line.SetXAxis(xs)
	line.AddSeries("flow", ys, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	return line.Render(w)
}
