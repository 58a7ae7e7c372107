package semester

import "sort"

// DailyViews is the view count of one day, identified as YYYYMMDD.
type DailyViews struct {
	Day   string `json:"day"`
	Views int64  `json:"views"`
}

// Series is a day-ordered sequence of daily view counts.
type Series []DailyViews

// Summary is the aggregate of a series over a semester.
type Summary struct {
	ViewsTotal    int64
	ViewsAvgDaily float64
	Series        Series
}

// Merge sums the views of identical days across all inputs and returns a
// single series sorted by day.
func Merge(inputs ...Series) Series {
	perDay := make(map[string]int64)
	for _, s := range inputs {
		for _, dv := range s {
			perDay[dv.Day] += dv.Views
		}
	}

	merged := make(Series, 0, len(perDay))
	for day, views := range perDay {
		merged = append(merged, DailyViews{Day: day, Views: views})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Day < merged[j].Day })
	return merged
}

// Aggregate computes the total and the daily average of the records. The
// average divides by the number of distinct days, or by one when empty.
func Aggregate(records Series) Summary {
	series := Merge(records)

	var total int64
	for _, dv := range series {
		total += dv.Views
	}

	days := len(series)
	if days < 1 {
		days = 1
	}
	return Summary{
		ViewsTotal:    total,
		ViewsAvgDaily: float64(total) / float64(days),
		Series:        series,
	}
}
