package domain

// ParseMode selects which sinks a tracked account is unloaded to.
type ParseMode string

const (
	// ModeSheet unloads only to the Google Sheets workbook.
	ModeSheet ParseMode = "табл"
	// ModeServer unloads only to the local file tree.
	ModeServer ParseMode = "серв"
	// ModeBoth unloads to both sinks.
	ModeBoth ParseMode = "оба"
)

func (m ParseMode) Valid() bool {
	switch m {
	case ModeSheet, ModeServer, ModeBoth:
		return true
	}
	return false
}

// Account is one tracked blog profile.
//
// UserID is the numeric subsite id and is only set for Osnova domains
// (dtf.ru, vc.ru); Tenchat profiles are addressed by username alone.
// LastPostID is the parsing checkpoint: posts with ids at or below it
// have already been processed. LastURL is the profile URL observed on
// the previous monitoring pass, used to detect handle changes.
type Account struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	Mode       ParseMode `json:"mode"`
	Domain     string    `json:"domain"`
	Username   string    `json:"username"`
	Name       string    `json:"name,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	LastPostID int64     `json:"last_post_id,omitempty"`
	LastURL    string    `json:"last_url,omitempty"`
	IsBlocked  bool      `json:"is_blocked"`
}

// DisplayName returns the resolved name when known, the handle otherwise.
func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Username
}
