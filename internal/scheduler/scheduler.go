package scheduler

import (
	"context"
	"time"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
)

type Client interface {
	// Start launches the three monitoring loops. They keep running
	// until ctx is cancelled; a failing pass is logged and the loop
	// continues.
	Start(ctx context.Context) error

	// RunRegularParsingNow triggers one bulk pass immediately,
	// outside the configured cadence.
	RunRegularParsingNow(ctx context.Context)
}

// ShouldRunRegularParsing fires when at least Interval whole calendar
// days passed since the last run's date and the clock has reached the
// configured time of day.
func ShouldRunRegularParsing(settings domain.RegularParsingSettings, now time.Time) bool {
	if !settings.Enabled || settings.Periodicity == nil {
		return false
	}

	if settings.LastRun != nil {
		if daysBetween(settings.LastRun.In(now.Location()), now) < settings.Periodicity.Interval {
			return false
		}
	}

	return !now.Before(settings.Periodicity.Time.On(now))
}

// ShouldRunMonitorAccounts fires once at least Periodicity minutes
// passed since the last run.
func ShouldRunMonitorAccounts(settings domain.MonitorAccountsSettings, now time.Time) bool {
	if !settings.Enabled || settings.Periodicity <= 0 {
		return false
	}

	if settings.LastRun != nil {
		elapsed := now.Sub(settings.LastRun.In(now.Location()))
		if elapsed < time.Duration(settings.Periodicity)*time.Minute {
			return false
		}
	}

	return true
}

// ShouldRunMonitorPosts is edge-triggered: it fires when the clock is
// within a minute of one of the configured times of day. After a run it
// stays silent until the day's latest configured time, so one day never
// double-fires on the same slot. A process down at the trigger moment
// misses that day's run; the spreadsheet history tolerates this.
func ShouldRunMonitorPosts(settings domain.MonitorPostsSettings, now time.Time) bool {
	if !settings.Enabled || len(settings.Periodicity) == 0 {
		return false
	}

	if settings.LastRun != nil {
		lastRun := settings.LastRun.In(now.Location())
		if sameDate(lastRun, now) {
			latest := settings.Periodicity[0]
			for _, t := range settings.Periodicity[1:] {
				if latest.Before(t) {
					latest = t
				}
			}
			if now.Before(latest.On(now)) {
				return false
			}
		}
	}

	for _, target := range settings.Periodicity {
		diff := target.On(now).Sub(now)
		if diff < 0 {
			diff = -diff
		}
		if diff <= time.Minute {
			return true
		}
	}

	return false
}

func daysBetween(from, to time.Time) int {
	fromDate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	toDate := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	return int(toDate.Sub(fromDate).Hours() / 24)
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
