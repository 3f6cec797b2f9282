package scheduling

import (
	"strconv"
	"strings"
	"time"

	"github.com/ehr/booking/internal/platform/apperr"
)

const DateLayout = "2006-01-02"

// defaultDurationMinutes replaces a zero "00:00" duration.
const defaultDurationMinutes = 60

// ParseTimeOfDay parses "H:MM" or "HH:MM" with hours 0-23 and minutes 0-59.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := splitClock(s)
	if !ok || h > 23 {
		return 0, apperr.Validation("", "%q is not a valid HH:MM time", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// ParseDuration reads an "HH:MM" slot length. The literal "00:00" means one
// hour; any other value must be a positive number of minutes.
func ParseDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "00:00" {
		return defaultDurationMinutes, nil
	}
	h, m, ok := splitClock(s)
	if !ok {
		return 0, apperr.Validation("duration", "%q is not a valid HH:MM duration", s)
	}
	minutes := h*60 + m
	if minutes <= 0 {
		return 0, apperr.Validation("duration", "must be positive")
	}
	return minutes, nil
}

func splitClock(s string) (h, m int, ok bool) {
	hs, ms, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || len(hs) < 1 || len(hs) > 2 || len(ms) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 {
		return 0, 0, false
	}
	m, err = strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// GenerateSlotTimes lists the slot starts of one working day. Starting at
// workStart it steps by duration while the slot still ends by workEnd,
// skipping starts inside the closed interval [breakStart, breakEnd].
func GenerateSlotTimes(workStart, breakStart, breakEnd, workEnd TimeOfDay, duration int) ([]TimeOfDay, error) {
	if duration <= 0 {
		return nil, apperr.Validation("duration", "must be positive")
	}
	var out []TimeOfDay
	for t := workStart; t < workEnd && t+TimeOfDay(duration) <= workEnd; t += TimeOfDay(duration) {
		if t >= breakStart && t <= breakEnd {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// DateOf truncates t to its calendar date, as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatesForWeekday returns every date in [from, to) falling on weekday.
func DatesForWeekday(weekday time.Weekday, from, to time.Time) []time.Time {
	from, to = DateOf(from), DateOf(to)
	offset := (int(weekday) - int(from.Weekday()) + 7) % 7
	var out []time.Time
	for d := from.AddDate(0, 0, offset); d.Before(to); d = d.AddDate(0, 0, 7) {
		out = append(out, d)
	}
	return out
}

// GenerationWindow is the rolling range slots are materialized for: from
// today up to, not including, the first day of the month after next.
func GenerationWindow(today time.Time) (from, to time.Time) {
	from = DateOf(today)
	firstOfNext := time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return from, firstOfNext.AddDate(0, 1, 0)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps an English weekday name, in any case, to time.Weekday.
func ParseWeekday(label string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return 0, apperr.Validation("weekday", "%q is not a weekday", label)
	}
	return wd, nil
}

// WeekdayLabel is the stored form of a weekday, e.g. "Monday".
func WeekdayLabel(wd time.Weekday) string {
	return wd.String()
}
