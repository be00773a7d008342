package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock HH:MM value, serialized as "15:04".
type TimeOfDay struct {
	Hour   int
	Minute int
}

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(text string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", text)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", text, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On anchors the clock value to the given date in its location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// Before reports whether t is earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Periodicity is the regular-parsing cadence: every Interval days at Time.
type Periodicity struct {
	Interval int       `json:"interval"`
	Time     TimeOfDay `json:"time"`
}

// RegularParsingSettings drives the scheduled bulk re-scrape of all accounts.
type RegularParsingSettings struct {
	Enabled     bool         `json:"enabled"`
	Periodicity *Periodicity `json:"periodicity,omitempty"`
	LastRun     *time.Time   `json:"last_run,omitempty"`
}

// MonitorAccountsSettings drives the URL-change and blocking detection loop.
// Periodicity is in minutes.
type MonitorAccountsSettings struct {
	Enabled          bool       `json:"enabled"`
	Periodicity      int        `json:"periodicity"`
	URLChangeEnabled bool       `json:"url_change_enabled"`
	BlockingEnabled  bool       `json:"blocking_enabled"`
	DTFEnabled       bool       `json:"dtf_enabled"`
	VCEnabled        bool       `json:"vc_enabled"`
	TenchatEnabled   bool       `json:"tenchat_enabled"`
	LastRun          *time.Time `json:"last_run,omitempty"`
}

// MonitorScope selects which accounts the post-deletion loop covers.
type MonitorScope string

const (
	// ScopeAll covers every tracked account.
	ScopeAll MonitorScope = "all"
	// ScopeBoth covers only accounts parsed in ModeBoth, whose post
	// history is present in both sinks.
	ScopeBoth MonitorScope = "both"
)

// MonitorPostsSettings drives the post-deletion detection loop, fired at
// fixed times of day.
type MonitorPostsSettings struct {
	Enabled        bool         `json:"enabled"`
	Periodicity    []TimeOfDay  `json:"periodicity"`
	Scope          MonitorScope `json:"scope,omitempty"`
	DTFEnabled     bool         `json:"dtf_enabled"`
	VCEnabled      bool         `json:"vc_enabled"`
	TenchatEnabled bool         `json:"tenchat_enabled"`
	LastRun        *time.Time   `json:"last_run,omitempty"`
}
