package analysis

import "github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"

// Engagement rating thresholds, in percent.
const (
	excellentRate = 5.0
	goodRate      = 2.0
)

// Engagement holds like and comment averages over the most recent posts.
type Engagement struct {
	Rating          string  `json:"rating"`
	AvgLikes        float64 `json:"avg_likes"`
	AvgComments     float64 `json:"avg_comments"`
	RatePercent     float64 `json:"engagement_rate"`
	TotalEngagement int     `json:"total_engagement"`
}

// EngagementRate averages likes and comments over the newest posts and relates
// them to the follower count. It returns nil when there are no posts or the
// account has no followers.
func EngagementRate(p *profile.Profile, posts []profile.Post) *Engagement {
	if len(posts) == 0 || p.Followers == 0 {
		return nil
	}

	recent := window(posts, engagementWindow)
	var likes, comments int
	for i := range recent {
		likes += recent[i].Likes
		comments += recent[i].Comments
	}

	n := float64(len(recent))
	e := &Engagement{
		AvgLikes:        float64(likes) / n,
		AvgComments:     float64(comments) / n,
		TotalEngagement: likes + comments,
	}
	e.RatePercent = 100 * (e.AvgLikes + e.AvgComments) / float64(p.Followers)
	e.Rating = rating(e.RatePercent)
	return e
}

func rating(rate float64) string {
	switch {
	case rate > excellentRate:
		return "excellent"
	case rate > goodRate:
		return "good"
	default:
		return "low"
	}
}

// FollowRatio relates the number of followed accounts to followers.
type FollowRatio struct {
	Signal string  `json:"signal,omitempty"`
	Ratio  float64 `json:"ratio"`
}

// FollowRatioOf returns nil for accounts without followers.
func FollowRatioOf(p *profile.Profile) *FollowRatio {
	if p.Followers == 0 {
		return nil
	}
	r := &FollowRatio{Ratio: float64(p.Following) / float64(p.Followers)}
	switch {
	case r.Ratio > 2:
		r.Signal = "engagement_farming"
	case r.Ratio < 0.5 && p.Followers > 1000:
		r.Signal = "strong_audience"
	}
	return r
}
