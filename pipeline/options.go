package pipeline

import (
	"log/slog"
	"time"
)

type PopulateOption func(p *Populator)

// WithPopulateLogger specifies the logger for the populator
func WithPopulateLogger(l *slog.Logger) PopulateOption {
	return func(p *Populator) {
		p.logger = l
	}
}

type UpdateOption func(u *Updater)

// WithUpdateLogger specifies the logger for the updater
func WithUpdateLogger(l *slog.Logger) UpdateOption {
	return func(u *Updater) {
		u.logger = l
	}
}

// WithQueryInterval specifies how often the updater checks for a due day.
// Defaults to 1m, since updates land at daily granularity
func WithQueryInterval(q time.Duration) UpdateOption {
	return func(u *Updater) {
		u.queryInterval = q
	}
}

// WithClock specifies the updater's time source, used to decide when a
// scheduled day is due. Defaults to the wall clock
func WithClock(now func() time.Time) UpdateOption {
	return func(u *Updater) {
		u.now = now
	}
}
