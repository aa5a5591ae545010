package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// formatISODuration serializa una duración en formato ISO 8601.
//
// Solo emite días, horas, minutos y segundos, que es lo que la API del
// scheduler acepta.
func formatISODuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}

	negative := d < 0
	if negative {
		d = -d
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d.Seconds()

	out := "P"
	if negative {
		out = "-P"
	}
	if days > 0 {
		out += fmt.Sprintf("%dD", days)
	}
	if hours > 0 || minutes > 0 || seconds > 0 {
		out += "T"
		if hours > 0 {
			out += fmt.Sprintf("%dH", hours)
		}
		if minutes > 0 {
			out += fmt.Sprintf("%dM", minutes)
		}
		if seconds > 0 {
			out += fmt.Sprintf("%gS", seconds)
		}
	}
	if out == "P" || out == "-P" {
		out += "T0S"
	}
	return out
}

var isoDurationRe = regexp.MustCompile(
	`^(-)?P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// parseISODuration interpreta una duración ISO 8601 con días, horas,
// minutos y segundos.
func parseISODuration(s string) (time.Duration, error) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}

	var d time.Duration
	if m[2] != "" {
		days, _ := strconv.Atoi(m[2])
		d += time.Duration(days) * 24 * time.Hour
	}
	if m[3] != "" {
		hours, _ := strconv.Atoi(m[3])
		d += time.Duration(hours) * time.Hour
	}
	if m[4] != "" {
		minutes, _ := strconv.Atoi(m[4])
		d += time.Duration(minutes) * time.Minute
	}
	if m[5] != "" {
		seconds, _ := strconv.ParseFloat(m[5], 64)
		d += time.Duration(seconds * float64(time.Second))
	}
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}
