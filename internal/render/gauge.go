package render

import (
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/shopspring/decimal"

	"loan-risk/internal/scoring"
)

const (
	colorBackground = "#060c1b"
	colorText       = "#eceff4"
	colorLow        = "#34d399"
	colorMedium     = "#fbbf24"
	colorHigh       = "#f87171"
)

// palette resolves tier color tokens for renderers that cannot read CSS variables.
var palette = map[string]string{
	scoring.TierLow.ColorToken():    colorLow,
	scoring.TierMedium.ColorToken(): colorMedium,
	scoring.TierHigh.ColorToken():   colorHigh,
}

// ResolveColor maps a tier color token onto a concrete hex color.
func ResolveColor(token string) string {
	if hex, ok := palette[token]; ok {
		return hex
	}
	return colorText
}

// GaugeChart builds a standalone echarts gauge for the reading.
func GaugeChart(reading scoring.GaugeReading) *charts.Gauge {
	gauge := charts.NewGauge()
	gauge.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       "Default risk",
			Width:           "480px",
			Height:          "360px",
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      reading.TierLabel,
			Subtitle:   reading.DisplayText,
			Left:       "center",
			TitleStyle: &opts.TextStyle{Color: ResolveColor(reading.Color), FontSize: 18},
		}),
	)
	value := 0.0
	if !math.IsInf(reading.Percentage, 0) && !math.IsNaN(reading.Percentage) {
		value = decimal.NewFromFloat(reading.Percentage).Round(2).InexactFloat64()
	}
	gauge.AddSeries("Default probability", []opts.GaugeData{{Name: reading.TierLabel, Value: value}},
		charts.WithItemStyleOpts(opts.ItemStyle{Color: ResolveColor(reading.Color)}),
	)
	return gauge
}

// RenderGaugeChart writes the gauge chart page to w.
func RenderGaugeChart(w io.Writer, reading scoring.GaugeReading) error {
	return GaugeChart(reading).Render(w)
}
