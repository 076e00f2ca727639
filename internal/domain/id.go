package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DayLayout   = "20060102"
	MonthLayout = "200601"
)

// UnitID = "<version>:<YYYYMMDD>"
func MakeUnitID(v Version, date time.Time) string {
	return fmt.Sprintf("%s:%s", v, date.UTC().Format(DayLayout))
}

type ParsedUnitID struct {
	Version Version
	Date    time.Time
}

func ParseUnitID(id string) (ParsedUnitID, error) {
	var out ParsedUnitID
	parts := strings.Split(id, ":")
	if len(parts) != 2 {
		return out, fmt.Errorf("invalid unit_id format: %s", id)
	}

	v, err := ParseVersion(parts[0])
	if err != nil {
		return out, fmt.Errorf("invalid version, err=%v", err)
	}

	d, err := time.Parse(DayLayout, parts[1])
	if err != nil {
		return out, fmt.Errorf("invalid date, err=%v", err)
	}

	out.Version = v
	out.Date = d

	return out, nil
}

// Inclusive list of UTC days between from and to
func DaysBetween(from, to time.Time) []time.Time {
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return nil
	}

	days := make([]time.Time, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	return days
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
