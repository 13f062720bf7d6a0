package hours

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock instant within a day, in seconds since midnight.
type TimeOfDay int

// Interval is an open service window within a day. Start and End are both
// exclusive: an instant exactly on either bound is outside the window.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Policy describes when human agents are reachable: the open intervals that
// apply on every non-closed day, and the weekdays that are closed entirely.
type Policy struct {
	Intervals []Interval
	Closed    map[time.Weekday]bool
}

// IsOpen reports whether now falls inside an open window. It is a pure
// function of its inputs; the caller applies any clock offset before calling.
func (p Policy) IsOpen(now time.Time) bool {
	if p.Closed[now.Weekday()] {
		return false
	}
	tod := TimeOfDay(now.Hour()*3600 + now.Minute()*60 + now.Second())
	for _, iv := range p.Intervals {
		if tod > iv.Start && tod < iv.End {
			return true
		}
	}
	return false
}

// Validate checks that intervals are well-formed and non-overlapping.
func (p Policy) Validate() error {
	sorted := make([]Interval, len(p.Intervals))
	copy(sorted, p.Intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i, iv := range sorted {
		if iv.Start >= iv.End {
			return fmt.Errorf("interval %s-%s: start must precede end", iv.Start, iv.End)
		}
		if i > 0 && iv.Start < sorted[i-1].End {
			return fmt.Errorf("interval %s-%s overlaps %s-%s", iv.Start, iv.End, sorted[i-1].Start, sorted[i-1].End)
		}
	}
	return nil
}

// String renders the time of day as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/3600, int(t)%3600/60)
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS.
func ParseTimeOfDay(val string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(val), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", val)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time of day %q", val)
		}
		nums[i] = n
	}
	if nums[0] > 23 || nums[1] > 59 || nums[2] > 59 {
		return 0, fmt.Errorf("invalid time of day %q", val)
	}
	return TimeOfDay(nums[0]*3600 + nums[1]*60 + nums[2]), nil
}

// ParseIntervals parses a comma-separated list like "09:00-13:00,14:00-18:00".
func ParseIntervals(val string) ([]Interval, error) {
	var res []Interval
	for _, raw := range strings.Split(val, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		bounds := strings.Split(raw, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid interval %q", raw)
		}
		start, err := ParseTimeOfDay(bounds[0])
		if err != nil {
			return nil, err
		}
		end, err := ParseTimeOfDay(bounds[1])
		if err != nil {
			return nil, err
		}
		res = append(res, Interval{Start: start, End: end})
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("no intervals in %q", val)
	}
	return res, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekdays parses a comma-separated list of closed weekdays like "sat,sun".
func ParseWeekdays(val string) (map[time.Weekday]bool, error) {
	res := make(map[time.Weekday]bool)
	for _, raw := range strings.Split(val, ",") {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		day, ok := weekdayNames[raw]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", raw)
		}
		res[day] = true
	}
	return res, nil
}
