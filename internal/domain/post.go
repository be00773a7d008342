package domain

import (
	"encoding/json"
	"time"
)

// Post is the normalized shape of one fetched article. It lives only
// within a single scrape cycle; history is reconstructed from prior
// spreadsheet rows, never stored locally.
type Post struct {
	ID          int64
	URL         string
	Title       string
	Views       int
	PublishedAt time.Time
	Author      string
	// Media references images attached to the post, to be downloaded
	// next to its data.json when unloading to the file tree.
	Media []MediaRef
	// Payload is the platform-specific post document as returned by
	// the remote API, written verbatim (sans redirect wrappers) to
	// data.json.
	Payload json.RawMessage
}

// MediaRef points at a downloadable media file belonging to a post.
type MediaRef struct {
	URL  string
	Name string
}

// AccountStats is the aggregate row written to the regular-parsing
// statistics sheet. Totals cover only the fetched window.
type AccountStats struct {
	URL        string
	Name       string
	TodayPosts int
	TodayViews int
	TotalPosts int
	TotalViews int
}

// ParseResult is the typed outcome of one account's scrape within a
// pass. A nil Err means success; Blocked marks the expected
// business-state outcome rather than a fault.
type ParseResult struct {
	Account Account
	Blocked bool
	Err     error
}

// AccountChange is one row of the account-change log sheet.
type AccountChange struct {
	URL        string
	Name       string
	Status     string
	CurrentURL string
}

// URLChange describes a detected handle/URL move.
type URLChange struct {
	AccountURL string
	OldURL     string
	NewURL     string
}

// DeletedPost is one row of the deleted-posts log sheet. Name is the
// resolved display name for the sheet; Username is the handle the
// digest groups by.
type DeletedPost struct {
	AccountURL string
	Name       string
	Username   string
	PostID     int64
	PostURL    string
}
