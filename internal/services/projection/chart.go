package projection

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/rjmcleod/finch/internal/models"
)

// RenderChart renders the projection series as a PNG line chart.
// Three series: Income (blue solid), Expenses (gray dashed), and
// Net Cash Flow (green solid). Returns raw PNG bytes.
func (s *Service) RenderChart(series []models.ProjectionYear) ([]byte, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("need at least 2 projection years, got %d", len(series))
	}

	xValues := make([]float64, len(series))
	incomeY := make([]float64, len(series))
	expensesY := make([]float64, len(series))
	netY := make([]float64, len(series))

	for i, y := range series {
		xValues[i] = float64(y.Year)
		incomeY[i] = y.TotalIncome
		expensesY[i] = y.TotalExpenses
		netY[i] = y.NetCashFlow
	}

	incomeSeries := chart.ContinuousSeries{
		Name: "Income",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: incomeY,
	}

	expensesSeries := chart.ContinuousSeries{
		Name: "Expenses",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: expensesY,
	}

	netSeries := chart.ContinuousSeries{
		Name: "Net Cash Flow",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("16a34a"), // green-600
			StrokeWidth: 2.0,
		},
		XValues: xValues,
		YValues: netY,
	}

	width := s.config.Projection.ChartWidth
	height := s.config.Projection.ChartHeight
	if width <= 0 {
		width = 900
	}
	if height <= 0 {
		height = 400
	}

	graph := chart.Chart{
		Title:  "Cash Flow Forecast",
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%d", int(f))
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0fk", f/1000)
				}
				return ""
			},
		},
		Series: []chart.Series{
			incomeSeries,
			expensesSeries,
			netSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
