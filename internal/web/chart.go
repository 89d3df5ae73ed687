package web

import (
	"strconv"
	"strings"

	"cryptonics/pkg/coingecko"
	"cryptonics/pkg/format"
)

const (
	chartWidth   = 800.0
	chartHeight  = 400.0
	chartPadLeft = 90.0
	chartPadTop  = 16.0
	chartPadBot  = 32.0
	chartXLabels = 8
	chartYLabels = 5

	colorUp   = "#10B981"
	colorDown = "#EF4444"
)

type AxisLabel struct {
	X, Y float64
	Text string
}

// ChartView is a pre-computed SVG line chart.
type ChartView struct {
	Width, Height float64
	Line          string
	Area          string
	Color         string
	Fill          string
	XLabels       []AxisLabel
	YLabels       []AxisLabel
	Empty         bool
}

// NewChartView projects price points into SVG coordinates. The line is green
// when the last price is at or above the first, red otherwise.
func NewChartView(prices []coingecko.ChartPoint, r coingecko.TimeRange, symbol string) ChartView {
	v := ChartView{Width: chartWidth, Height: chartHeight}
	if len(prices) == 0 {
		v.Empty = true
		return v
	}

	lo, hi := prices[0].Value, prices[0].Value
	for _, p := range prices {
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	plotW := chartWidth - chartPadLeft
	plotH := chartHeight - chartPadTop - chartPadBot
	step := 0.0
	if len(prices) > 1 {
		step = plotW / float64(len(prices)-1)
	}

	x := func(i int) float64 { return chartPadLeft + float64(i)*step }
	y := func(val float64) float64 { return chartPadTop + plotH - (val-lo)/span*plotH }

	var line strings.Builder
	for i, p := range prices {
		if i > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(coord(x(i)) + "," + coord(y(p.Value)))
	}
	v.Line = line.String()

	base := coord(chartPadTop + plotH)
	v.Area = coord(x(0)) + "," + base + " " + v.Line + " " + coord(x(len(prices)-1)) + "," + base

	if prices[len(prices)-1].Value >= prices[0].Value {
		v.Color, v.Fill = colorUp, "rgba(16, 185, 129, 0.1)"
	} else {
		v.Color, v.Fill = colorDown, "rgba(239, 68, 68, 0.1)"
	}

	layout := r.Meta().LabelLayout
	n := min(chartXLabels, len(prices))
	for k := 0; k < n; k++ {
		i := 0
		if n > 1 {
			i = k * (len(prices) - 1) / (n - 1)
		}
		v.XLabels = append(v.XLabels, AxisLabel{
			X:    x(i),
			Y:    chartHeight - 8,
			Text: prices[i].Time.UTC().Format(layout),
		})
	}

	for k := 0; k < chartYLabels; k++ {
		val := lo + span*float64(k)/float64(chartYLabels-1)
		v.YLabels = append(v.YLabels, AxisLabel{
			X:    chartPadLeft - 8,
			Y:    y(val),
			Text: format.Price(val, symbol),
		})
	}

	return v
}

func coord(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
