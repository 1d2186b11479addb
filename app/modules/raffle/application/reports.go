package raffleservice

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"github.com/xuri/excelize/v2"
)

const winnersSheet = "Winners"

// gweiPerEther converts prize amounts for display.
const gweiPerEther = 1e9

// ExportWinnersXLSX renders the winner history as a spreadsheet.
func (s *RaffleService) ExportWinnersXLSX(ctx context.Context, since time.Time, limit int) ([]byte, error) {
	winners, err := s.ListWinners(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	return buildWinnersWorkbook(winners)
}

func buildWinnersWorkbook(winners []WinnerRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), winnersSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{"Round", "Winner", "Prize (gwei)", "Prize (ether)", "Request ID", "Resolved At"}
	if err := f.SetSheetRow(winnersSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, w := range winners {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			w.RoundNumber,
			string(w.Winner),
			w.Prize,
			float64(w.Prize) / gweiPerEther,
			int64(w.RequestID),
			w.ResolvedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(winnersSheet, axis, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPrizeChart draws the prize of each resolved round over time as a PNG.
func (s *RaffleService) RenderPrizeChart(ctx context.Context, since time.Time, limit int) ([]byte, error) {
	winners, err := s.ListWinners(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	return renderPrizeChart(winners)
}

var (
	chartBackground = drawing.ColorFromHex("0f1a14")
	chartLine       = drawing.ColorFromHex("4caf50")
	chartAccent     = drawing.ColorFromHex("d4af37")
	chartText       = drawing.ColorFromHex("e8e8e8")
)

func renderPrizeChart(winners []WinnerRecord) ([]byte, error) {
	// A time series needs two distinct points to form a range.
	if len(winners) < 2 {
		return renderNoDataPlaceholder("Not enough rounds to chart")
	}

	// Winners arrive newest first.
	xValues := make([]time.Time, len(winners))
	yValues := make([]float64, len(winners))
	for i, w := range winners {
		j := len(winners) - 1 - i
		xValues[j] = w.ResolvedAt
		yValues[j] = float64(w.Prize) / gweiPerEther
	}
	if !xValues[0].Before(xValues[len(xValues)-1]) {
		return renderNoDataPlaceholder("Not enough rounds to chart")
	}

	graph := chart.Chart{
		Width:  800,
		Height: 400,
		Background: chart.Style{
			FillColor: chartBackground,
		},
		Canvas: chart.Style{
			FillColor: chartBackground,
		},
		XAxis: chart.XAxis{
			Name:           "Resolved",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02 15:04"),
			Style: chart.Style{
				FontColor: chartText,
			},
		},
		YAxis: chart.YAxis{
			Name: "Prize (ether)",
			Style: chart.Style{
				FontColor: chartText,
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Prize",
				XValues: xValues,
				YValues: yValues,
				Style: chart.Style{
					StrokeColor: chartLine,
					StrokeWidth: 2,
					DotWidth:    4,
					DotColor:    chartAccent,
				},
			},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder(msg string) ([]byte, error) {
	graph := chart.Chart{
		Width:  400,
		Height: 200,
		Background: chart.Style{
			FillColor: chartBackground,
		},
		Canvas: chart.Style{
			FillColor: chartBackground,
		},
		// Drawn in the background colour so the chart has a range to render.
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
				Style:   chart.Style{StrokeColor: chartBackground},
			},
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				r.SetFontColor(chartText)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
