package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePlot writes the figure as a vector plot. The output format
// follows the file extension (.svg, .png, .pdf).
func SavePlot(fig *Figure, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Shockwave Diagram (%s)", fig.RunID)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Position (m)"
	p.X.Min, p.X.Max = fig.Viewport.MinTime, fig.Viewport.MaxTime
	p.Y.Min, p.Y.Max = fig.Viewport.MinPos, fig.Viewport.MaxPos

	// Regions first so interface lines draw on top of the fills.
	labels := map[string]bool{}
	for _, region := range fig.Polygons {
		pts := make(plotter.XYs, 0, len(region.Points))
		for _, q := range region.Points {
			pts = append(pts, plotter.XY{X: q.Time, Y: q.Pos})
		}
		poly, err := plotter.NewPolygon(pts)
		if err != nil {
			return fmt.Errorf("region %s: %w", region.State.Label, err)
		}
		poly.Color = labelColor(region.State.Label)
		poly.LineStyle.Width = 0
		p.Add(poly)
		if !labels[region.State.Label] {
			labels[region.State.Label] = true
			p.Legend.Add(region.State.Label, poly)
		}
	}

	for _, seg := range fig.Interfaces {
		line, err := plotter.NewLine(plotter.XYs{
			{X: seg.Start.Time, Y: seg.Start.Pos},
			{X: seg.End.Time, Y: seg.End.Pos},
		})
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 40, G: 40, B: 40, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
	}

	for _, seg := range fig.UserInterfaces {
		line, err := plotter.NewLine(plotter.XYs{
			{X: seg.Start.Time, Y: seg.Start.Pos},
			{X: seg.End.Time, Y: seg.End.Pos},
		})
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 200, G: 30, B: 30, A: 255}
		line.Width = vg.Points(2)
		p.Add(line)
	}

	for _, traj := range fig.Trajectories {
		pts := make(plotter.XYs, 0, len(traj))
		for _, q := range traj {
			pts = append(pts, plotter.XY{X: q.Time, Y: q.Pos})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 70, G: 110, B: 200, A: 255}
		line.Width = vg.Points(0.5)
		line.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(line)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// labelColor maps a state label to a stable fill color.
func labelColor(label string) color.Color {
	switch label {
	case "E":
		return color.RGBA{R: 245, G: 245, B: 245, A: 255}
	case "I":
		return color.RGBA{R: 190, G: 225, B: 190, A: 255}
	case "C":
		return color.RGBA{R: 250, G: 220, B: 160, A: 255}
	case "J":
		return color.RGBA{R: 235, G: 160, B: 160, A: 255}
	}

	// Derived states get a hue spread by label bytes.
	h := 0
	for _, c := range label {
		h = h*31 + int(c)
	}
	hue := float64(h%360) / 360.0
	r, g, b := hslToRGB(hue, 0.5, 0.8)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// hslToRGB converts HSL to RGB (0-255 range).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
