package analysis

import (
	"time"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
)

// ContentTypes maps a media type tag to the number of posts of that type.
type ContentTypes map[string]int

// Locations returns the distinct location names tagged on the newest posts,
// in the order they first appear.
func Locations(posts []profile.Post) []string {
	var names []string
	for _, p := range window(posts, locationWindow) {
		names = append(names, p.Location)
	}
	return dedupe(names)
}

// ContentTypesOf tallies media types over the newest posts. It returns nil
// when there are no posts.
func ContentTypesOf(posts []profile.Post) ContentTypes {
	if len(posts) == 0 {
		return nil
	}
	types := ContentTypes{}
	for _, p := range window(posts, contentTypeWindow) {
		types[string(p.Type)]++
	}
	return types
}

// PostSummary is the per-post view kept in a report.
type PostSummary struct {
	Date       string   `json:"date"`
	Type       string   `json:"type"`
	Shortcode  string   `json:"shortcode,omitempty"`
	Location   string   `json:"location,omitempty"`
	Caption    string   `json:"caption,omitempty"`
	Hashtags   []string `json:"hashtags,omitempty"`
	Mentions   []string `json:"mentions,omitempty"`
	VideoViews *int     `json:"video_views,omitempty"`
	Likes      int      `json:"likes"`
	Comments   int      `json:"comments"`
}

// RecentPosts summarizes the newest posts.
func RecentPosts(posts []profile.Post) []PostSummary {
	recent := window(posts, recentPostWindow)
	if len(recent) == 0 {
		return nil
	}
	out := make([]PostSummary, len(recent))
	for i, p := range recent {
		tags, mentions := HashtagsAndMentions(p.Caption)
		out[i] = PostSummary{
			Date:       p.Timestamp.Format("2006-01-02 15:04"),
			Type:       string(p.Type),
			Shortcode:  p.Shortcode,
			Location:   p.Location,
			Caption:    p.Caption,
			Hashtags:   tags,
			Mentions:   mentions,
			VideoViews: p.VideoViews,
			Likes:      p.Likes,
			Comments:   p.Comments,
		}
	}
	return out
}

// Activity statuses derived from the age of the latest post.
const (
	StatusVeryActive = "very_active"
	StatusActive     = "active"
	StatusModerate   = "moderate"
	StatusInactive   = "inactive"
)

// ActivityTimeline describes the time span covered by the fetched posts.
type ActivityTimeline struct {
	Latest          time.Time `json:"latest_post"`
	Oldest          time.Time `json:"oldest_post"`
	Status          string    `json:"status"`
	DaysSinceLatest int       `json:"days_since_latest"`
	PostsPerMonth   float64   `json:"avg_posts_per_month,omitempty"`
	PostsPerWeek    float64   `json:"avg_posts_per_week,omitempty"`
}

const day = 24 * time.Hour

// Timeline finds the newest and oldest post and estimates posting frequency
// from the account's total media count. It returns nil when there are no posts.
func Timeline(p *profile.Profile, posts []profile.Post, now time.Time) *ActivityTimeline {
	if len(posts) == 0 {
		return nil
	}

	latest, oldest := posts[0].Timestamp, posts[0].Timestamp
	for _, post := range posts[1:] {
		if post.Timestamp.After(latest) {
			latest = post.Timestamp
		}
		if post.Timestamp.Before(oldest) {
			oldest = post.Timestamp
		}
	}

	t := &ActivityTimeline{
		Latest:          latest,
		Oldest:          oldest,
		DaysSinceLatest: int(now.Sub(latest) / day),
	}

	if spanDays := int(latest.Sub(oldest) / day); p.MediaCount > 0 && len(posts) > 1 && spanDays > 0 {
		t.PostsPerMonth = float64(p.MediaCount) / (float64(spanDays) / 30)
		t.PostsPerWeek = float64(p.MediaCount) / (float64(spanDays) / 7)
	}

	switch {
	case t.DaysSinceLatest <= 0:
		t.Status = StatusVeryActive
	case t.DaysSinceLatest <= 7:
		t.Status = StatusActive
	case t.DaysSinceLatest <= 30:
		t.Status = StatusModerate
	default:
		t.Status = StatusInactive
	}
	return t
}
