// Package report merges a profile snapshot, its metric blocks, and the
// contact lookup into one serializable investigation report.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/analysis"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/lookup"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
)

// ErrMissingProfile is returned by Assemble when no profile is given.
var ErrMissingProfile = errors.New("report requires a profile")

// Report is the immutable result of one investigation. Optional blocks are
// omitted from JSON when absent.
//
//nolint:govet // fieldalignment: JSON field order is part of the output
type Report struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`

	Profile      Account                 `json:"profile"`
	Biography    string                  `json:"biography,omitempty"`
	Statistics   Statistics              `json:"statistics"`
	ExtendedData *profile.ExtendedFields `json:"extended_data,omitempty"`
	APIData      *lookup.Contact         `json:"api_data,omitempty"`

	UsernamePattern analysis.UsernamePattern `json:"username_pattern"`
	BioMentions     []string                 `json:"bio_mentions,omitempty"`
	SocialLinks     analysis.SocialLinks     `json:"social_links,omitempty"`
	ExternalURLs    []string                 `json:"external_urls,omitempty"`
	ProfilePicURL   string                   `json:"profile_pic_url,omitempty"`

	ContentTypes    analysis.ContentTypes      `json:"content_types,omitempty"`
	Engagement      *analysis.Engagement       `json:"engagement,omitempty"`
	PostingPatterns *analysis.PostingPattern   `json:"posting_patterns,omitempty"`
	Locations       []string                   `json:"locations,omitempty"`
	RecentPosts     []analysis.PostSummary     `json:"recent_posts,omitempty"`
	TopHashtags     []analysis.TokenCount      `json:"top_hashtags,omitempty"`
	TopMentions     []analysis.TokenCount      `json:"top_mentions,omitempty"`
	Activity        *analysis.ActivityTimeline `json:"activity,omitempty"`
}

// Account holds the identity fields of the profile.
type Account struct {
	FullName    string `json:"full_name,omitempty"`
	UserID      string `json:"user_id"`
	ExternalURL string `json:"external_url,omitempty"`
	IsPrivate   bool   `json:"is_private"`
	IsVerified  bool   `json:"is_verified"`
	IsBusiness  bool   `json:"is_business"`
}

// Statistics holds the account's audience counters.
type Statistics struct {
	FollowRatio *analysis.FollowRatio `json:"follow_ratio,omitempty"`
	Followers   int                   `json:"followers"`
	Following   int                   `json:"following"`
	Posts       int                   `json:"posts"`
}

// Option adjusts an assembled report.
type Option func(*Report)

// WithTimestamp sets the investigation time. The default is the current time.
func WithTimestamp(t time.Time) Option {
	return func(r *Report) { r.Timestamp = t }
}

// WithID sets the report ID. The default is a random UUID.
func WithID(id string) Option {
	return func(r *Report) { r.ID = id }
}

// Assemble builds a report. It does no validation beyond requiring p.
func Assemble(p *profile.Profile, b analysis.Blocks, lr *lookup.Result, opts ...Option) (*Report, error) {
	if p == nil {
		return nil, ErrMissingProfile
	}

	r := &Report{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Username:  p.Username,
		Profile: Account{
			FullName:    p.FullName,
			UserID:      p.UserID,
			ExternalURL: p.ExternalURL,
			IsPrivate:   p.IsPrivate,
			IsVerified:  p.IsVerified,
			IsBusiness:  p.IsBusiness,
		},
		Biography: p.Biography,
		Statistics: Statistics{
			Followers:   p.Followers,
			Following:   p.Following,
			Posts:       p.MediaCount,
			FollowRatio: b.FollowRatio,
		},
		ProfilePicURL: p.ProfilePicURL,

		UsernamePattern: b.UsernamePattern,
		BioMentions:     b.BioMentions,
		SocialLinks:     b.SocialLinks,
		ExternalURLs:    b.ExternalURLs,
		ContentTypes:    b.ContentTypes,
		Engagement:      b.Engagement,
		PostingPatterns: b.Posting,
		Locations:       b.Locations,
		RecentPosts:     b.RecentPosts,
		TopHashtags:     b.TopHashtags,
		TopMentions:     b.TopMentions,
		Activity:        b.Timeline,
	}
	if !p.Extended.IsEmpty() {
		r.ExtendedData = p.Extended
	}
	if lr != nil && lr.Err == nil && lr.Data != nil && !lr.Data.Empty() {
		r.APIData = lr.Data
	}

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Filename is the export name for the report, e.g.
// "janedoe_investigation_20240304_093000.json".
func (r *Report) Filename() string {
	return fmt.Sprintf("%s_investigation_%s.json", r.Username, r.Timestamp.Format("20060102_150405"))
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
