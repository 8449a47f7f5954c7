package groupme

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errBadDate = errors.New(`date must be formatted as "MM/dd/yyyy" or "MM/dd/yyyy hh:mm:ss"`)

// epochToString renders an epoch second count as "MM/dd/yyyy h:mm:ss AM"
// in local time. The epoch and the rendered string denote the same instant.
func epochToString(epoch int64) string {
	t := time.Unix(epoch, 0)
	return fmt.Sprintf("%02d/%02d/%d %s", t.Month(), t.Day(), t.Year(), twelveHourTime(t.Hour(), t.Minute(), t.Second()))
}

// stringToEpoch parses "MM/dd/yyyy" or "MM/dd/yyyy hh:mm:ss" (24-hour clock)
// in local time and returns epoch seconds
func stringToEpoch(s string) (int64, error) {
	parts := strings.Split(s, " ")
	if len(parts) > 2 {
		return 0, errBadDate
	}

	dateComponents := strings.Split(parts[0], "/")
	if len(dateComponents) != 3 {
		return 0, errBadDate
	}

	month, err := strconv.Atoi(dateComponents[0])
	if err != nil {
		return 0, errBadDate
	}
	day, err := strconv.Atoi(dateComponents[1])
	if err != nil {
		return 0, errBadDate
	}
	year, err := strconv.Atoi(dateComponents[2])
	if err != nil {
		return 0, errBadDate
	}

	var hour, minute, second int
	if len(parts) == 2 {
		timeComponents := strings.Split(parts[1], ":")
		if len(timeComponents) != 3 {
			return 0, errBadDate
		}

		hour, err = strconv.Atoi(timeComponents[0])
		if err != nil {
			return 0, errBadDate
		}
		minute, err = strconv.Atoi(timeComponents[1])
		if err != nil {
			return 0, errBadDate
		}
		second, err = strconv.Atoi(timeComponents[2])
		if err != nil {
			return 0, errBadDate
		}
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local).Unix(), nil
}

// durationToSeconds converts a number with a unit suffix to seconds.
// Supported units: "min", "h", "d", "w", "m" (months), "y".
// Month and year spans are calendar based, counted back from now.
func durationToSeconds(number int64, unit string) (int64, error) {
	switch unit {
	case "min":
		return number * 60, nil
	case "h":
		return number * 3600, nil
	case "d":
		return number * 3600 * 24, nil
	case "w":
		return number * 3600 * 24 * 7, nil
	case "m":
		now := time.Now()
		return now.Unix() - now.AddDate(0, -int(number), 0).Unix(), nil
	case "y":
		now := time.Now()
		return now.Unix() - now.AddDate(-int(number), 0, 0).Unix(), nil
	default:
		return 0, fmt.Errorf("invalid duration unit %q", unit)
	}
}

// cutoffEpoch converts a bound given either as a date ("MM/dd/yyyy") or as a
// duration shorthand ("30min", "12h", "7d", "2w", "3m", "1y") into an
// absolute epoch cutoff
func cutoffEpoch(s string) (int64, error) {
	if strings.Contains(s, "/") {
		return stringToEpoch(s)
	}

	unit := s[len(s)-1:]
	numberPart := s[:len(s)-1]
	if strings.HasSuffix(s, "min") {
		unit = "min"
		numberPart = s[:len(s)-3]
	}

	number, err := strconv.ParseInt(numberPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	span, err := durationToSeconds(number, unit)
	if err != nil {
		return 0, err
	}

	return time.Now().Unix() - span, nil
}

// twelveHourTime converts 24-hour clock components to "h:mm:ss AM" form
func twelveHourTime(hour, minute, second int) string {
	hour = hour % 24

	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	if hour == 0 {
		hour = 12
	} else if hour > 12 {
		hour -= 12
	}

	return fmt.Sprintf("%d:%02d:%02d %s", hour, minute, second, suffix)
}
