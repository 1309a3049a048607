package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/osbits/sitewatch/internal/config"
)

const rangeLayout = "2006-01-02T15:04"

type window interface {
	contains(t time.Time) bool
}

// rangeWindow is a fixed span; end is exclusive.
type rangeWindow struct {
	from, until time.Time
}

func (w rangeWindow) contains(t time.Time) bool {
	return !t.Before(w.from) && t.Before(w.until)
}

// cronWindow opens at every activation of the schedule and stays open for
// length.
type cronWindow struct {
	schedule cron.Schedule
	length   time.Duration
}

func (w cronWindow) contains(t time.Time) bool {
	opened := w.schedule.Next(t.Add(-w.length))
	return !opened.After(t)
}

func parseMaintenance(specs []config.MaintenanceSpec, loc *time.Location, length time.Duration) ([]window, error) {
	if length <= 0 {
		length = time.Hour
	}
	windows := make([]window, 0, len(specs))
	for _, spec := range specs {
		switch spec.Kind {
		case config.MaintenanceKindRange:
			w, err := parseRange(spec.Expr, loc)
			if err != nil {
				return nil, err
			}
			windows = append(windows, w)
		case config.MaintenanceKindCron:
			schedule, err := cron.ParseStandard(spec.Expr)
			if err != nil {
				return nil, fmt.Errorf("parse cron %q: %w", spec.Expr, err)
			}
			windows = append(windows, cronWindow{schedule: schedule, length: length})
		default:
			return nil, fmt.Errorf("unsupported maintenance kind %q", spec.Kind)
		}
	}
	return windows, nil
}

// parseRange reads "2025-01-01T00:00-2025-01-01T02:00". Both timestamps
// have the fixed width of rangeLayout.
func parseRange(expr string, loc *time.Location) (rangeWindow, error) {
	expr = strings.TrimSpace(expr)
	n := len(rangeLayout)
	if len(expr) != 2*n+1 || expr[n] != '-' {
		return rangeWindow{}, fmt.Errorf("invalid range %q", expr)
	}
	from, err := time.ParseInLocation(rangeLayout, expr[:n], loc)
	if err != nil {
		return rangeWindow{}, fmt.Errorf("parse range start: %w", err)
	}
	until, err := time.ParseInLocation(rangeLayout, expr[n+1:], loc)
	if err != nil {
		return rangeWindow{}, fmt.Errorf("parse range end: %w", err)
	}
	if !until.After(from) {
		return rangeWindow{}, fmt.Errorf("range %q ends before it starts", expr)
	}
	return rangeWindow{from: from, until: until}, nil
}
