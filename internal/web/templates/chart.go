package templates

import (
	"strconv"

	"github.com/JonMunkholm/datasweeper/internal/table"
)

// Chart geometry, in SVG user units. chart.templ carries the same viewBox.
const (
	chartWidth  = 640
	chartHeight = 240
	chartPad    = 24
)

var seriesColors = [table.MaxChartSeries]string{"#2f6fde", "#e0823d"}

// chartPlot is a chart summary laid out for drawing. Coordinates are
// formatted attribute values.
type chartPlot struct {
	Left, Right, Zero string
	Bars              []chartBar
	Legend            []chartLegend
}

type chartBar struct {
	X, Y, Width, Height string
	Color               string
	Label               string
}

type chartLegend struct {
	Index string
	Name  string
}

// layoutChart places one bar per present value. Bars grow from the zero
// line, so negative values point down.
func layoutChart(c table.ChartSummary) chartPlot {
	hi, lo := c.Max(), c.Min()
	if hi == lo {
		hi = lo + 1
	}
	plotH := float64(chartHeight - 2*chartPad)
	y := func(v float64) float64 {
		return chartPad + (hi-v)/(hi-lo)*plotH
	}
	zero := y(0)

	groupW := float64(chartWidth-2*chartPad) / float64(max(len(c.Categories), 1))
	barW := groupW * 0.8 / float64(max(len(c.Series), 1))

	plot := chartPlot{
		Left:  ftoa(chartPad),
		Right: ftoa(chartWidth - chartPad),
		Zero:  ftoa(zero),
	}
	for si, s := range c.Series {
		color := seriesColors[si%len(seriesColors)]
		for i, v := range s.Values {
			if v == nil {
				continue
			}
			x := chartPad + float64(i)*groupW + groupW*0.1 + float64(si)*barW
			top, bottom := y(*v), zero
			if top > bottom {
				top, bottom = bottom, top
			}
			plot.Bars = append(plot.Bars, chartBar{
				X:      ftoa(x),
				Y:      ftoa(top),
				Width:  ftoa(barW),
				Height: ftoa(bottom - top),
				Color:  color,
				Label:  s.Name + " [" + strconv.Itoa(c.Categories[i]) + "]: " + strconv.FormatFloat(*v, 'f', -1, 64),
			})
		}
		plot.Legend = append(plot.Legend, chartLegend{Index: strconv.Itoa(si), Name: s.Name})
	}
	return plot
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) }
