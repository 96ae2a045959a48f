package stats

import (
	"fmt"
	"time"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
)

const dateLayout = "02-01-2006"

// CurrentWindow derives the calendar window containing ts for the given
// granularity. Window bounds are half-open: Start is inclusive, End is
// exclusive and equals the start of the following window.
func CurrentWindow(ts time.Time, g domain.Granularity) (domain.PeriodWindow, error) {
	switch g {
	case domain.GranularityDay:
		start := truncateToDay(ts)
		return dayWindow(start), nil
	case domain.GranularityWeek:
		start := startOfISOWeek(ts)
		return weekWindow(start), nil
	case domain.GranularityMonth:
		start := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())
		return monthWindow(start), nil
	default:
		return domain.PeriodWindow{}, fmt.Errorf("unsupported granularity %q", g)
	}
}

// PreviousWindow derives the equal-length window immediately preceding
// current. The two windows are contiguous and never overlap.
func PreviousWindow(current domain.PeriodWindow, g domain.Granularity) (domain.PeriodWindow, error) {
	switch g {
	case domain.GranularityDay:
		return dayWindow(current.Start.AddDate(0, 0, -1)), nil
	case domain.GranularityWeek:
		return weekWindow(current.Start.AddDate(0, 0, -7)), nil
	case domain.GranularityMonth:
		// AddDate on the first of the month is safe from day clamping.
		return monthWindow(current.Start.AddDate(0, -1, 0)), nil
	default:
		return domain.PeriodWindow{}, fmt.Errorf("unsupported granularity %q", g)
	}
}

func dayWindow(start time.Time) domain.PeriodWindow {
	return domain.PeriodWindow{
		Start: start,
		End:   start.AddDate(0, 0, 1),
		Label: start.Format(dateLayout),
	}
}

func weekWindow(start time.Time) domain.PeriodWindow {
	end := start.AddDate(0, 0, 7)
	last := start.AddDate(0, 0, 6)
	return domain.PeriodWindow{
		Start: start,
		End:   end,
		Label: start.Format(dateLayout) + " to " + last.Format(dateLayout),
	}
}

func monthWindow(start time.Time) domain.PeriodWindow {
	return domain.PeriodWindow{
		Start: start,
		End:   start.AddDate(0, 1, 0),
		Label: fmt.Sprintf("%s %d", start.Month(), start.Year()),
	}
}

func truncateToDay(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}

// startOfISOWeek returns midnight of the Monday of ts's ISO week.
func startOfISOWeek(ts time.Time) time.Time {
	day := truncateToDay(ts)
	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday belongs to the week started six days earlier
	}
	return day.AddDate(0, 0, -offset)
}
