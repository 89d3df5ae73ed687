package coingecko

import (
	"math"
	"time"
)

// ParseChartPoints converts raw [timestamp_ms, value] rows into points.
// It safely skips incomplete or non-finite rows.
func ParseChartPoints(raw [][]float64) []ChartPoint {
	out := make([]ChartPoint, 0, len(raw))

	for _, row := range raw {
		if len(row) < 2 {
			continue // skip incomplete row
		}
		if math.IsNaN(row[1]) || math.IsInf(row[1], 0) {
			continue
		}

		out = append(out, ChartPoint{
			Time:  time.UnixMilli(int64(row[0])).UTC(),
			Value: row[1],
		})
	}
	return out
}

// ParseMarketChart converts the raw market chart body into ChartData.
func ParseMarketChart(resp MarketChartResponse) *ChartData {
	return &ChartData{
		Prices:       ParseChartPoints(resp.Prices),
		MarketCaps:   ParseChartPoints(resp.MarketCaps),
		TotalVolumes: ParseChartPoints(resp.TotalVolumes),
	}
}
