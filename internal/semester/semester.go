package semester

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned for a semester tag other than S1 or S2.
var ErrInvalidPeriod = errors.New("semester must be S1 or S2")

// Half identifies one of the two fixed half-year periods.
type Half string

const (
	S1 Half = "S1" // January to June
	S2 Half = "S2" // July to December
)

// Period is a (year, semester) pair.
type Period struct {
	Year int
	Half Half
}

// Parse validates a semester tag and returns the period.
func Parse(year int, tag string) (Period, error) {
	switch Half(tag) {
	case S1, S2:
		return Period{Year: year, Half: Half(tag)}, nil
	}
	return Period{}, fmt.Errorf("%w (got %q)", ErrInvalidPeriod, tag)
}

// Dates returns the inclusive start and end calendar dates of a semester.
func Dates(year int, tag string) (time.Time, time.Time, error) {
	p, err := Parse(year, tag)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := p.Dates()
	return start, end, nil
}

// Dates returns the inclusive start and end dates of the period, in UTC.
func (p Period) Dates() (time.Time, time.Time) {
	if p.Half == S2 {
		return time.Date(p.Year, time.July, 1, 0, 0, 0, 0, time.UTC),
			time.Date(p.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(p.Year, time.June, 30, 0, 0, 0, 0, time.UTC)
}

// Months returns the calendar months covered by the period.
func (p Period) Months() []int {
	first := 1
	if p.Half == S2 {
		first = 7
	}
	months := make([]int, 0, 6)
	for m := first; m < first+6; m++ {
		months = append(months, m)
	}
	return months
}

// String formats the period as "2024-S1".
func (p Period) String() string {
	return fmt.Sprintf("%d-%s", p.Year, p.Half)
}

// Periods lists every period from startYear S1 through endYear, stopping
// after S1 of the last year when endSemesterLastYear is S1.
func Periods(startYear, endYear int, endSemesterLastYear string) ([]Period, error) {
	last := Half(endSemesterLastYear)
	if last != S1 && last != S2 {
		return nil, fmt.Errorf("%w (got %q)", ErrInvalidPeriod, endSemesterLastYear)
	}

	var periods []Period
	for year := startYear; year <= endYear; year++ {
		for _, h := range []Half{S1, S2} {
			if year == endYear && last == S1 && h == S2 {
				continue
			}
			periods = append(periods, Period{Year: year, Half: h})
		}
	}
	return periods, nil
}
