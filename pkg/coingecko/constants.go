package coingecko

import "fmt"

// TimeRange is the chart window requested by the coin detail view.
type TimeRange string

// TimeRangeMeta holds the upstream "days" value, the button label and the
// Go time layout used for chart axis labels.
type TimeRangeMeta struct {
	Days        string
	Label       string
	LabelLayout string
}

const (
	Range24H  TimeRange = "24h"
	Range7D   TimeRange = "7d"
	Range14D  TimeRange = "14d"
	Range30D  TimeRange = "30d"
	Range60D  TimeRange = "60d"
	Range200D TimeRange = "200d"
	Range1Y   TimeRange = "1y"
	RangeMax  TimeRange = "max"

	DefaultTimeRange = Range7D
)

const (
	layoutClock    = "15:04"
	layoutDay      = "Jan 2"
	layoutMonthYrs = "Jan 06"
)

var validTimeRanges = map[TimeRange]TimeRangeMeta{
	Range24H:  {Days: "1", Label: "24H", LabelLayout: layoutClock},
	Range7D:   {Days: "7", Label: "7D", LabelLayout: layoutDay},
	Range14D:  {Days: "14", Label: "14D", LabelLayout: layoutDay},
	Range30D:  {Days: "30", Label: "30D", LabelLayout: layoutMonthYrs},
	Range60D:  {Days: "60", Label: "60D", LabelLayout: layoutMonthYrs},
	Range200D: {Days: "200", Label: "200D", LabelLayout: layoutMonthYrs},
	Range1Y:   {Days: "365", Label: "1Y", LabelLayout: layoutMonthYrs},
	RangeMax:  {Days: "max", Label: "Max", LabelLayout: layoutMonthYrs},
}

// TimeRanges lists the ranges in button order.
var TimeRanges = []TimeRange{Range24H, Range7D, Range14D, Range30D, Range60D, Range200D, Range1Y, RangeMax}

// IsValid checks if the TimeRange is a valid predefined range
func (r TimeRange) IsValid() bool {
	_, ok := validTimeRanges[r]
	return ok
}

// Meta returns the range metadata, falling back to the default range.
func (r TimeRange) Meta() TimeRangeMeta {
	if meta, ok := validTimeRanges[r]; ok {
		return meta
	}
	return validTimeRanges[DefaultTimeRange]
}

// ParseTimeRange parses a string into a valid TimeRange
func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid time range: %q", s)
	}
	return r, nil
}
