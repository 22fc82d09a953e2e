package planner

import (
	"fmt"
	"strings"
	"time"
)

// DayNames lists the days of a plan week, Monday first.
var DayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayOfWeek maps a day name, in any case, to 1..7. Three-letter
// abbreviations are accepted.
func DayOfWeek(name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return 0, false
	}
	for i, d := range DayNames {
		full := strings.ToLower(d)
		if name == full || (len(name) == 3 && strings.HasPrefix(full, name)) {
			return i + 1, true
		}
	}
	return 0, false
}

// WeekStart returns the Monday of the calendar week containing t's date,
// at UTC midnight.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	sinceMonday := (int(t.Weekday()) + 6) % 7
	return time.Date(y, m, d-sinceMonday, 0, 0, 0, 0, time.UTC)
}

// WeekEnd returns the Sunday of the week containing t, at UTC midnight.
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 6)
}

// NormalizeWeekStart truncates t to UTC midnight of its UTC date, so stored
// and computed week starts compare equal regardless of time zone.
func NormalizeWeekStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekDays returns the seven empty days starting at weekStart.
func WeekDays(weekStart time.Time) []DayMeals {
	days := make([]DayMeals, len(DayNames))
	for i, name := range DayNames {
		days[i] = DayMeals{
			Day:       name,
			DayOfWeek: i + 1,
			Date:      weekStart.AddDate(0, 0, i),
		}
	}
	return days
}

// PreviousWeek steps back seven days.
func PreviousWeek(weekStart time.Time) time.Time { return weekStart.AddDate(0, 0, -7) }

// NextWeek steps forward seven days.
func NextWeek(weekStart time.Time) time.Time { return weekStart.AddDate(0, 0, 7) }

// NextMonday returns the start of the week after the one containing now.
func NextMonday(now time.Time) time.Time { return NextWeek(WeekStart(now)) }

// IsCurrentWeek reports whether date falls in the same week as now.
func IsCurrentWeek(date, now time.Time) bool {
	return WeekStart(date).Equal(WeekStart(now))
}

// FormatWeekRange renders a week for display, e.g. "Nov 3 - Nov 9, 2025".
// The year is repeated only when the week spans two years.
func FormatWeekRange(weekStart time.Time) string {
	end := weekStart.AddDate(0, 0, 6)
	if weekStart.Year() == end.Year() {
		return fmt.Sprintf("%s - %s", weekStart.Format("Jan 2"), end.Format("Jan 2, 2006"))
	}
	return fmt.Sprintf("%s - %s", weekStart.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
}
