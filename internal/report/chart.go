package report

import (
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// RenderEquityCurve writes an HTML line chart of the account's equity
// curve to w, grounded on the pack's go-echarts usage
// (shockley6668-brale/internal/analysis/visual/visual.go,
// m8u-tinkoff-invest-contest/charts.go) but simplified to a single
// line series since the replay core has no OHLC to chart, only equity
// samples.
func (r Report) RenderEquityCurve(w io.Writer) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  "1200px",
			Height: "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    r.AccountLabel + " equity curve",
			Subtitle: "final balance vs. initial balance",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	x := make([]string, len(r.EquityCurve))
	data := make([]opts.LineData, len(r.EquityCurve))
	for i, sample := range r.EquityCurve {
		x[i] = time.UnixMilli(sample.Time).UTC().Format("2006-01-02 15:04")
		f, _ := sample.Equity.Float64()
		data[i] = opts.LineData{Value: f}
	}
	line.SetXAxis(x).AddSeries("Equity", data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	return line.Render(w)
}
