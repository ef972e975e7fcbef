package analytics

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Window returns the start of the trend window ending at now and the
// date_trunc unit its buckets use.
func (p Period) Window(now time.Time) (time.Time, string, error) {
	switch p {
	case PeriodMonth:
		return now.AddDate(0, -1, 0), "day", nil
	case PeriodQuarter:
		return now.AddDate(0, -3, 0), "week", nil
	case PeriodYear:
		return now.AddDate(-1, 0, 0), "month", nil
	}
	return time.Time{}, "", shared.Invalid("period must be month, quarter or year")
}

// label fills the bucket name and calendar parts of a trend point from its
// truncated start time.
func label(pt *TrendPoint, unit string) {
	start := pt.Start
	pt.Year = start.Year()
	switch unit {
	case "day":
		pt.Month = int(start.Month())
		pt.Day = start.Day()
		pt.Bucket = start.Format("2006-01-02")
	case "week":
		year, week := start.ISOWeek()
		pt.Year = year
		pt.Week = week
		pt.Bucket = fmt.Sprintf("%d-W%02d", year, week)
	default:
		pt.Month = int(start.Month())
		pt.Bucket = start.Format("2006-01")
	}
}
