// Package report defines the common types produced by an analysis run.
package report

import (
	"errors"
	"time"
)

// Common errors returned by extraction packages.
var (
	ErrBadHandle   = errors.New("handle failed validation")
	ErrNotFound    = errors.New("page not found")
	ErrRateLimited = errors.New("rate limited")
)

// Data source tags recorded on extracted records.
const (
	SourceAPI      = "api"
	SourceScrape   = "scrape"
	SourceFallback = "fallback"
)

// UnknownHandle is stored in place of a handle that could not be resolved.
const UnknownHandle = "unknown"

// Timestamp layouts used throughout extracted records.
const (
	TimeLayout = "2006-01-02 15:04:05"
	DateLayout = "2006-01-02"
)

// Timestamp formats t in the layout extraction records carry.
func Timestamp(t time.Time) string {
	return t.Format(TimeLayout)
}

// Profile is the canonical record for one account. Exactly one is produced
// per analysis; a failed extraction yields a record with Source set to
// SourceFallback and Error describing what went wrong.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Profile struct {
	// Identity
	Handle      string `json:"username"`     // canonical handle, @-stripped
	DisplayName string `json:"display_name"` // defaults to handle if unresolved
	Bio         string `json:"bio"`

	// Statistics, always within [0, configured max]
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
	LikeCount      int64 `json:"likes"`
	VideoCount     int64 `json:"video_count"`

	// Flags
	Verified bool `json:"verified"`
	Private  bool `json:"private"`

	// Provenance
	Source      string `json:"data_source"` // SourceAPI, SourceScrape, or SourceFallback
	ExtractedAt string `json:"extraction_timestamp"`
	Error       string `json:"error,omitempty"` // set only on fallback records, <=200 chars
}

// Relationship is one entry in a followers or following list.
type Relationship struct {
	Handle         string `json:"username"`
	DisplayName    string `json:"display_name"`
	FollowerCount  int64  `json:"follower_count"`
	FollowingCount int64  `json:"following_count"`
}

// Contacts holds every contact signal mined for an account. Each slice is
// deduplicated by normalized value; an empty slice means none found, which
// is an expected outcome rather than an error.
type Contacts struct {
	Emails      []string `json:"emails"`
	Phones      []string `json:"phone_numbers"`
	SocialLinks []string `json:"social_links"`
	Websites    []string `json:"websites"`
	ExtractedAt string   `json:"extraction_timestamp"`
	Source      string   `json:"data_source"`
}

// TaggedUser is an account observed mentioning the target handle. Repeat
// sightings increment PostCount and advance LastTagged; there is never more
// than one entry per handle.
type TaggedUser struct {
	Handle      string `json:"username"`
	DisplayName string `json:"display_name"`
	PostCount   int    `json:"post_count"`
	LastTagged  string `json:"last_tagged"`
}

// Report is the complete result of one analysis run.
type Report struct {
	Profile   Profile        `json:"profile"`
	Followers []Relationship `json:"followers"`
	Following []Relationship `json:"following"`
	Contacts  Contacts       `json:"contacts"`
	Tagged    []TaggedUser   `json:"tagged_users"`
}
