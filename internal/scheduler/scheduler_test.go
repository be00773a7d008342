package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
)

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return loc
}

func TestShouldRunRegularParsing(t *testing.T) {
	loc := moscow(t)
	at := func(day, hour, minute int) time.Time {
		return time.Date(2025, 5, day, hour, minute, 0, 0, loc)
	}
	settings := func(interval int, lastRun *time.Time) domain.RegularParsingSettings {
		return domain.RegularParsingSettings{
			Enabled:     true,
			Periodicity: &domain.Periodicity{Interval: interval, Time: domain.NewTimeOfDay(10, 0)},
			LastRun:     lastRun,
		}
	}

	t.Run("disabled never fires", func(t *testing.T) {
		s := settings(1, nil)
		s.Enabled = false
		assert.False(t, ShouldRunRegularParsing(s, at(10, 12, 0)))
	})

	t.Run("no periodicity never fires", func(t *testing.T) {
		s := domain.RegularParsingSettings{Enabled: true}
		assert.False(t, ShouldRunRegularParsing(s, at(10, 12, 0)))
	})

	t.Run("first run waits for time of day", func(t *testing.T) {
		s := settings(1, nil)
		assert.False(t, ShouldRunRegularParsing(s, at(10, 9, 59)))
		assert.True(t, ShouldRunRegularParsing(s, at(10, 10, 0)))
	})

	t.Run("interval counts calendar days not elapsed hours", func(t *testing.T) {
		// Ran late in the evening; the next calendar day still counts
		// as one day passed.
		lastRun := at(9, 23, 50)
		s := settings(1, &lastRun)
		assert.True(t, ShouldRunRegularParsing(s, at(10, 10, 0)))
	})

	t.Run("same day never refires", func(t *testing.T) {
		lastRun := at(10, 10, 0)
		s := settings(1, &lastRun)
		assert.False(t, ShouldRunRegularParsing(s, at(10, 23, 59)))
	})

	t.Run("multi-day interval", func(t *testing.T) {
		lastRun := at(8, 10, 0)
		s := settings(3, &lastRun)
		assert.False(t, ShouldRunRegularParsing(s, at(10, 12, 0)))
		assert.True(t, ShouldRunRegularParsing(s, at(11, 10, 0)))
	})
}

func TestShouldRunMonitorAccounts(t *testing.T) {
	loc := moscow(t)
	base := time.Date(2025, 5, 10, 12, 0, 0, 0, loc)

	settings := domain.MonitorAccountsSettings{Enabled: true, Periodicity: 30}

	t.Run("first run fires immediately", func(t *testing.T) {
		assert.True(t, ShouldRunMonitorAccounts(settings, base))
	})

	t.Run("waits out the interval", func(t *testing.T) {
		lastRun := base.Add(-29 * time.Minute)
		s := settings
		s.LastRun = &lastRun
		assert.False(t, ShouldRunMonitorAccounts(s, base))

		lastRun = base.Add(-30 * time.Minute)
		s.LastRun = &lastRun
		assert.True(t, ShouldRunMonitorAccounts(s, base))
	})

	t.Run("zero periodicity never fires", func(t *testing.T) {
		s := settings
		s.Periodicity = 0
		assert.False(t, ShouldRunMonitorAccounts(s, base))
	})
}

func TestShouldRunMonitorPosts(t *testing.T) {
	loc := moscow(t)
	at := func(day, hour, minute, second int) time.Time {
		return time.Date(2025, 5, day, hour, minute, second, 0, loc)
	}

	settings := func(lastRun *time.Time) domain.MonitorPostsSettings {
		return domain.MonitorPostsSettings{
			Enabled:     true,
			Periodicity: []domain.TimeOfDay{domain.NewTimeOfDay(9, 0), domain.NewTimeOfDay(21, 0)},
			LastRun:     lastRun,
		}
	}

	t.Run("fires within a minute of a slot", func(t *testing.T) {
		s := settings(nil)
		assert.True(t, ShouldRunMonitorPosts(s, at(10, 9, 0, 30)))
		assert.True(t, ShouldRunMonitorPosts(s, at(10, 8, 59, 30)))
		assert.False(t, ShouldRunMonitorPosts(s, at(10, 9, 2, 0)))
		assert.False(t, ShouldRunMonitorPosts(s, at(10, 15, 0, 0)))
	})

	t.Run("same-day guard holds until the latest slot", func(t *testing.T) {
		lastRun := at(10, 9, 0, 10)
		s := settings(&lastRun)

		// A second poll moments later must not refire the morning slot.
		assert.False(t, ShouldRunMonitorPosts(s, at(10, 9, 0, 50)))

		// The evening slot on the same day still fires.
		assert.True(t, ShouldRunMonitorPosts(s, at(10, 21, 0, 20)))
	})

	t.Run("guard resets on the next day", func(t *testing.T) {
		lastRun := at(10, 21, 0, 10)
		s := settings(&lastRun)
		assert.True(t, ShouldRunMonitorPosts(s, at(11, 9, 0, 20)))
	})

	t.Run("empty schedule never fires", func(t *testing.T) {
		s := domain.MonitorPostsSettings{Enabled: true}
		assert.False(t, ShouldRunMonitorPosts(s, at(10, 9, 0, 0)))
	})
}

func TestDaysBetween(t *testing.T) {
	loc := moscow(t)

	from := time.Date(2025, 5, 9, 23, 59, 0, 0, loc)
	to := time.Date(2025, 5, 10, 0, 1, 0, 0, loc)
	assert.Equal(t, 1, daysBetween(from, to))

	sameDay := time.Date(2025, 5, 9, 1, 0, 0, 0, loc)
	assert.Equal(t, 0, daysBetween(sameDay, from))
}
