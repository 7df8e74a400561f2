// Package analysis derives metric blocks from a profile snapshot and its posts.
//
// Every analyzer is a pure function over immutable input. Analyze runs them
// all concurrently and joins the results:
//
//	blocks := analysis.Analyze(p, posts, time.Now())
//	fmt.Println(blocks.Engagement.RatePercent)
package analysis

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
)

// Window sizes applied over the newest-first post list.
const (
	engagementWindow  = 10
	locationWindow    = 20
	contentTypeWindow = 50
	recentPostWindow  = 10

	topHashtags = 15
	topMentions = 10
	topHours    = 5
	topDays     = 3
)

// Blocks collects the output of every analyzer. Nil fields are absent results.
//
//nolint:govet // fieldalignment: grouped by source for readability
type Blocks struct {
	UsernamePattern UsernamePattern
	FollowRatio     *FollowRatio
	BioMentions     []string
	SocialLinks     SocialLinks
	ExternalURLs    []string

	Engagement   *Engagement
	Posting      *PostingPattern
	ContentTypes ContentTypes
	Locations    []string
	RecentPosts  []PostSummary
	TopHashtags  []TokenCount
	TopMentions  []TokenCount
	Timeline     *ActivityTimeline
}

// Analyze runs all analyzers concurrently and waits for every one to finish.
// Each goroutine writes only its own field of the result.
func Analyze(p *profile.Profile, posts []profile.Post, now time.Time) Blocks {
	var b Blocks
	var g errgroup.Group

	g.Go(func() error {
		b.UsernamePattern = UsernamePatternOf(p.Username)
		return nil
	})
	g.Go(func() error {
		b.FollowRatio = FollowRatioOf(p)
		return nil
	})
	g.Go(func() error {
		b.BioMentions = BioMentions(p.Biography)
		return nil
	})
	g.Go(func() error {
		b.SocialLinks = ExtractSocialLinks(p.Biography + " " + p.ExternalURL)
		return nil
	})
	g.Go(func() error {
		b.ExternalURLs = ExternalURLs(p)
		return nil
	})
	g.Go(func() error {
		b.Engagement = EngagementRate(p, posts)
		return nil
	})
	g.Go(func() error {
		b.Posting = PostingPatterns(posts)
		return nil
	})
	g.Go(func() error {
		b.ContentTypes = ContentTypesOf(posts)
		return nil
	})
	g.Go(func() error {
		b.Locations = Locations(posts)
		return nil
	})
	g.Go(func() error {
		b.RecentPosts = RecentPosts(posts)
		return nil
	})
	g.Go(func() error {
		b.TopHashtags, b.TopMentions = CaptionTokens(posts)
		return nil
	})
	g.Go(func() error {
		b.Timeline = Timeline(p, posts, now)
		return nil
	})

	_ = g.Wait() //nolint:errcheck // analyzers never fail

	return b
}

// window returns the first n posts, or all of them when there are fewer.
func window(posts []profile.Post, n int) []profile.Post {
	if len(posts) > n {
		return posts[:n]
	}
	return posts
}
