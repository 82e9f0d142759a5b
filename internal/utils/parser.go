package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseSizeToMB converts strings like "10G", "500M", "1024" into Megabytes (int64).
// Default unit is MB if no suffix is provided. Kilobyte suffixes round down.
func ParseSizeToMB(sizeStr string) (int64, error) {
	s := strings.TrimSpace(strings.ToUpper(sizeStr))

	// Regex to separate number and unit
	re := regexp.MustCompile(`^(\d+)\s*(K|KB|G|GB|M|MB|T|TB)?$`)
	matches := re.FindStringSubmatch(s)

	if len(matches) < 2 {
		return 0, fmt.Errorf("invalid size format: %s (expected '10G', '500M', etc.)", sizeStr)
	}

	val, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", matches[1])
	}

	unit := matches[2]
	switch unit {
	case "K", "KB":
		return val / 1024, nil
	case "G", "GB":
		return val * 1024, nil
	case "T", "TB":
		return val * 1048576, nil
	case "M", "MB", "":
		return val, nil
	default:
		return 0, fmt.Errorf("unsupported unit: %s", unit)
	}
}

// ParseDuration parses a duration string supporting multiple formats:
//   - Go duration: "2h", "30m", "1h30m", "90s"
//   - SLURM walltime: "7-00:00:00" (days-hours:minutes:seconds)
//   - HH:MM:SS format: "02:00:00", "2:30:00", "00:30:00"
//   - H:MM format: "2:30" (interpreted as hours:minutes)
//
// Returns the duration in time.Duration format.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	var days int
	if idx := strings.Index(s, "-"); idx > 0 {
		d, err := strconv.Atoi(s[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid days: %s", s[:idx])
		}
		days = d
		s = s[idx+1:]
	}

	// Try HH:MM:SS or H:MM:SS or HH:MM format first
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		switch len(parts) {
		case 2:
			// H:MM or HH:MM format (hours:minutes)
			hours, err := strconv.Atoi(parts[0])
			if err != nil {
				return 0, fmt.Errorf("invalid hours: %s", parts[0])
			}
			minutes, err := strconv.Atoi(parts[1])
			if err != nil {
				return 0, fmt.Errorf("invalid minutes: %s", parts[1])
			}
			return time.Duration(days)*24*time.Hour +
				time.Duration(hours)*time.Hour +
				time.Duration(minutes)*time.Minute, nil
		case 3:
			// HH:MM:SS format
			hours, err := strconv.Atoi(parts[0])
			if err != nil {
				return 0, fmt.Errorf("invalid hours: %s", parts[0])
			}
			minutes, err := strconv.Atoi(parts[1])
			if err != nil {
				return 0, fmt.Errorf("invalid minutes: %s", parts[1])
			}
			seconds, err := strconv.Atoi(parts[2])
			if err != nil {
				return 0, fmt.Errorf("invalid seconds: %s", parts[2])
			}
			return time.Duration(days)*24*time.Hour +
				time.Duration(hours)*time.Hour +
				time.Duration(minutes)*time.Minute +
				time.Duration(seconds)*time.Second, nil
		default:
			return 0, fmt.Errorf("invalid time format: %s (use HH:MM:SS or D-HH:MM:SS)", s)
		}
	}

	if days > 0 {
		return 0, fmt.Errorf("invalid time format: %s (days require HH:MM:SS part)", s)
	}

	// Try Go duration format (2h, 30m, 1h30m, etc.)
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s (use '2h', '30m', '1h30m', or '02:00:00')", s)
	}
	return dur, nil
}

// FormatWalltime renders a duration as a scheduler walltime string.
// Durations of a day or more use the D-HH:MM:SS form, shorter ones HH:MM:SS.
func FormatWalltime(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	total := int64(d.Seconds())
	days := total / (24 * 3600)
	rem := total % (24 * 3600)
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	seconds := rem % 60
	if days > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// FormatPressure renders a back-pressure value for use in folder and file
// names. Whole numbers drop the decimal part ("2187"), fractional values
// keep it ("2187.5").
func FormatPressure(pressure float64) string {
	if pressure == float64(int64(pressure)) {
		return strconv.FormatInt(int64(pressure), 10)
	}
	return strconv.FormatFloat(pressure, 'f', -1, 64)
}
