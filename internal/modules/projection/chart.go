package projection

import (
	"fmt"
	"math"
	"strconv"

	charts "github.com/vicanso/go-charts/v2"
)

// RenderPNG draws series as a line chart and returns the PNG bytes.
func RenderPNG(series Series, title string) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("cannot render an empty projection")
	}

	labels := make([]string, len(series))
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for i, p := range series {
		labels[i] = strconv.Itoa(p.Year)
		yMin = math.Min(yMin, p.Value)
		yMax = math.Max(yMax, p.Value)
	}
	if yMax == yMin {
		// Flat series still needs a visible band.
		pad := math.Max(math.Abs(yMax)*0.05, 1)
		yMin -= pad
		yMax += pad
	}

	splitNum := len(labels)
	if splitNum > 10 {
		splitNum = 10
	}

	p, err := charts.LineRender(
		[][]float64{series.Values()},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}
