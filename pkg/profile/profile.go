// Package profile defines the Instagram profile and post snapshots shared by
// the provider, the analysis engine, and the report layer.
package profile

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the provider.
var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrProfileNotFound = errors.New("profile not found")
	ErrRateLimited     = errors.New("rate limited")
)

// TransportError reports a connection-level or unexpected upstream failure.
type TransportError struct {
	Err error
	URL string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MediaType is the upstream type tag of a post.
type MediaType string

// Known media types. Unknown upstream tags are carried through verbatim.
const (
	MediaImage    MediaType = "Image"
	MediaVideo    MediaType = "Video"
	MediaCarousel MediaType = "Carousel"
)

// Profile is an immutable snapshot of an Instagram account.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Profile struct {
	Username      string
	FullName      string
	UserID        string
	Biography     string
	ExternalURL   string
	ProfilePicURL string
	BioLinks      []string

	IsPrivate  bool
	IsVerified bool
	IsBusiness bool

	Followers  int
	Following  int
	MediaCount int

	// Extended is nil when the provider found none of the optional fields.
	Extended *ExtendedFields
}

// ExtendedFields holds optional account data that only some accounts expose.
type ExtendedFields struct {
	Category        string `json:"category,omitempty"`
	BusinessEmail   string `json:"business_email,omitempty"`
	BusinessPhone   string `json:"business_phone,omitempty"`
	PublicEmail     string `json:"public_email,omitempty"`
	PublicPhone     string `json:"public_phone,omitempty"`
	ReelsCount      int    `json:"reels,omitempty"`
	HighlightsCount int    `json:"highlights,omitempty"`
}

// IsEmpty reports whether no extended field is set.
func (e *ExtendedFields) IsEmpty() bool {
	return e == nil || *e == ExtendedFields{}
}

// Post is an immutable snapshot of a single post.
type Post struct {
	Timestamp  time.Time // local time of publication
	VideoViews *int      // nil unless the post is a video with a view count
	Shortcode  string
	Type       MediaType
	Caption    string
	Location   string
	Likes      int
	Comments   int
}
