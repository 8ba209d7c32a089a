package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"threshold/internal/model"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// NormalizeLabel folds a label for duplicate detection.
func NormalizeLabel(s string) string {
	return strings.ToLower(NormalizeWhitespace(s))
}

var dayNames = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tues": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thur": 4, "thurs": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// ParseDays accepts "everyday", "weekdays", "weekends", or a comma list of
// day names or numbers 0 (Sunday) through 6.
func ParseDays(s string) (model.DaySet, error) {
	switch NormalizeLabel(s) {
	case "", "everyday", "daily", "all":
		return model.Everyday, nil
	case "weekdays":
		return model.Weekdays, nil
	case "weekends", "weekend":
		return model.Weekend, nil
	case "none":
		return 0, nil
	}
	var set model.DaySet
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if d, ok := dayNames[p]; ok {
			set = set.With(time.Weekday(d))
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 6 {
			return 0, fmt.Errorf("unknown day %q", p)
		}
		set = set.With(time.Weekday(n))
	}
	return set, nil
}
