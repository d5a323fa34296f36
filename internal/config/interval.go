package config

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

var errBadInterval = errors.New("invalid duration (use format like 30m, 120h or 5.00:00:00)")

// ParseInterval parses a Go duration ("90m", "120h") or a timespan in the
// form [d.]hh:mm[:ss[.fraction]] ("5.00:00:00", "00:30:00").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, errBadInterval
		}
		return d, nil
	}
	return parseTimespan(s)
}

func parseTimespan(s string) (time.Duration, error) {
	var days int
	clock := s
	if dot := strings.Index(s, "."); dot >= 0 && dot < strings.Index(s, ":") {
		n, err := strconv.Atoi(s[:dot])
		if err != nil || n < 0 {
			return 0, errBadInterval
		}
		days, clock = n, s[dot+1:]
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errBadInterval
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, errBadInterval
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, errBadInterval
	}

	var seconds float64
	if len(parts) == 3 {
		seconds, err = strconv.ParseFloat(parts[2], 64)
		if err != nil || seconds < 0 || seconds >= 60 {
			return 0, errBadInterval
		}
	}

	clockPart := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	if int64(days) > (math.MaxInt64-int64(clockPart))/int64(day) {
		return 0, errBadInterval
	}
	return time.Duration(days)*day + clockPart, nil
}
