package analysis

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
)

var base = time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC) // a Monday

func at(daysAgo, hour int) time.Time {
	d := base.AddDate(0, 0, -daysAgo)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

func TestUsernamePatternOf(t *testing.T) {
	tests := []struct {
		handle string
		want   UsernamePattern
	}{
		{
			handle: "john_doe.1990",
			want: UsernamePattern{
				HasNumbers: true, HasUnderscores: true, HasDots: true,
				Length: 13, AllLowercase: true, YearTokens: []string{"1990"},
			},
		},
		{
			handle: "JaneDoe",
			want:   UsernamePattern{Length: 7, YearTokens: []string{}},
		},
		{
			handle: "x2001y2001z1850",
			want: UsernamePattern{
				HasNumbers: true, Length: 15, AllLowercase: true,
				YearTokens: []string{"2001", "2001"},
			},
		},
		{
			handle: "12345",
			want:   UsernamePattern{HasNumbers: true, Length: 5, YearTokens: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			got := UsernamePatternOf(tt.handle)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("UsernamePatternOf(%q) mismatch (-want +got):\n%s", tt.handle, diff)
			}
		})
	}
}

func TestExtractSocialLinks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want SocialLinks
	}{
		{
			name: "tiktok and twitter",
			text: "check tiktok.com/@foo and twitter.com/bar",
			want: SocialLinks{"TikTok": {"foo"}, "Twitter/X": {"bar"}},
		},
		{
			name: "duplicates collapse",
			text: "t.me/chan https://T.ME/chan wa.me/15551234 discord.gg/abc",
			want: SocialLinks{"Telegram": {"chan"}, "WhatsApp": {"15551234"}, "Discord": {"abc"}},
		},
		{
			name: "youtube linkedin threads",
			text: "youtube.com/@creator linkedin.com/in/jane-doe threads.net/@jane.d snapchat.com/add/snappy",
			want: SocialLinks{
				"YouTube":  {"creator"},
				"LinkedIn": {"jane-doe"},
				"Threads":  {"jane.d"},
				"Snapchat": {"snappy"},
			},
		},
		{
			name: "nothing",
			text: "just a bio",
			want: SocialLinks{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSocialLinks(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractSocialLinks(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestPostingPatterns(t *testing.T) {
	if got := PostingPatterns(nil); got != nil {
		t.Errorf("PostingPatterns(nil) = %+v, want nil", got)
	}

	single := []profile.Post{{Timestamp: at(0, 14)}}
	got := PostingPatterns(single)
	if got == nil {
		t.Fatal("PostingPatterns(single) = nil")
	}
	if got.BusiestHour != (HourCount{Hour: 14, Count: 1}) {
		t.Errorf("BusiestHour = %+v, want {14 1}", got.BusiestHour)
	}
	if got.BusiestDay != (DayCount{Day: "Monday", Count: 1}) {
		t.Errorf("BusiestDay = %+v, want {Monday 1}", got.BusiestDay)
	}
}

func TestPostingPatternsTies(t *testing.T) {
	// Hours in input order: 5, 6, 6, 5, 7. Hours 5 and 6 tie; 5 occurs first.
	posts := []profile.Post{
		{Timestamp: at(0, 5)},
		{Timestamp: at(1, 6)},
		{Timestamp: at(2, 6)},
		{Timestamp: at(3, 5)},
		{Timestamp: at(4, 7)},
	}
	got := PostingPatterns(posts)

	if got.BusiestHour != (HourCount{Hour: 5, Count: 2}) {
		t.Errorf("BusiestHour = %+v, want {5 2}", got.BusiestHour)
	}
	if got.BusiestHour != got.Hours[0] || got.BusiestDay != got.Days[0] {
		t.Errorf("busiest %+v/%+v disagree with distribution heads %+v/%+v",
			got.BusiestHour, got.BusiestDay, got.Hours[0], got.Days[0])
	}
	wantHours := []HourCount{{Hour: 5, Count: 2}, {Hour: 6, Count: 2}, {Hour: 7, Count: 1}}
	if diff := cmp.Diff(wantHours, got.Hours); diff != "" {
		t.Errorf("Hours mismatch (-want +got):\n%s", diff)
	}
	wantDays := []DayCount{{Day: "Monday", Count: 1}, {Day: "Sunday", Count: 1}, {Day: "Saturday", Count: 1}}
	if diff := cmp.Diff(wantDays, got.Days); diff != "" {
		t.Errorf("Days mismatch (-want +got):\n%s", diff)
	}
}

func TestPostingPatternsTopFiveHours(t *testing.T) {
	var posts []profile.Post
	for h := range 8 {
		posts = append(posts, profile.Post{Timestamp: at(0, h)})
	}
	got := PostingPatterns(posts)
	if len(got.Hours) != 5 {
		t.Errorf("len(Hours) = %d, want 5", len(got.Hours))
	}
	if len(got.Days) != 1 {
		t.Errorf("len(Days) = %d, want 1", len(got.Days))
	}
}

func TestEngagementRate(t *testing.T) {
	tests := []struct {
		name    string
		profile profile.Profile
		posts   []profile.Post
		want    *Engagement
	}{
		{
			name:    "no posts",
			profile: profile.Profile{Followers: 100},
		},
		{
			name:    "no followers",
			profile: profile.Profile{},
			posts:   []profile.Post{{Likes: 10}},
		},
		{
			name:    "two posts",
			profile: profile.Profile{Followers: 100},
			posts:   []profile.Post{{Likes: 10, Comments: 2}, {Likes: 4, Comments: 0}},
			want: &Engagement{
				AvgLikes: 7, AvgComments: 1, RatePercent: 8,
				TotalEngagement: 16, Rating: "excellent",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EngagementRate(&tt.profile, tt.posts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("EngagementRate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEngagementRateWindow(t *testing.T) {
	posts := make([]profile.Post, 15)
	for i := range posts {
		posts[i].Likes = 1
	}
	// Posts beyond the tenth must not count.
	posts[12].Likes = 1000

	got := EngagementRate(&profile.Profile{Followers: 1000}, posts)
	if got.AvgLikes != 1 {
		t.Errorf("AvgLikes = %v, want 1", got.AvgLikes)
	}
	if got.TotalEngagement != 10 {
		t.Errorf("TotalEngagement = %d, want 10", got.TotalEngagement)
	}
	if got.RatePercent != 0.1 {
		t.Errorf("RatePercent = %v, want 0.1", got.RatePercent)
	}
	if got.Rating != "low" {
		t.Errorf("Rating = %q, want low", got.Rating)
	}
}

func TestLocations(t *testing.T) {
	posts := []profile.Post{{Location: "NYC"}, {Location: "NYC"}, {}, {Location: "LA"}}
	want := []string{"NYC", "LA"}
	if diff := cmp.Diff(want, Locations(posts)); diff != "" {
		t.Errorf("Locations() mismatch (-want +got):\n%s", diff)
	}

	var many []profile.Post
	for range 20 {
		many = append(many, profile.Post{Location: "Home"})
	}
	many = append(many, profile.Post{Location: "Beyond window"})
	if diff := cmp.Diff([]string{"Home"}, Locations(many)); diff != "" {
		t.Errorf("Locations(window) mismatch (-want +got):\n%s", diff)
	}
}

func TestContentTypesOf(t *testing.T) {
	if got := ContentTypesOf(nil); got != nil {
		t.Errorf("ContentTypesOf(nil) = %v, want nil", got)
	}

	var posts []profile.Post
	for i := range 60 {
		typ := profile.MediaImage
		if i%2 == 1 {
			typ = profile.MediaVideo
		}
		posts = append(posts, profile.Post{Type: typ})
	}
	posts[1].Type = profile.MediaCarousel

	want := ContentTypes{"Image": 25, "Video": 24, "Carousel": 1}
	if diff := cmp.Diff(want, ContentTypesOf(posts)); diff != "" {
		t.Errorf("ContentTypesOf() mismatch (-want +got):\n%s", diff)
	}
}

func TestHashtagsAndMentions(t *testing.T) {
	tags, mentions := HashtagsAndMentions("Sunset #beach #café with @jane.doe and @bob_1 #beach")
	if diff := cmp.Diff([]string{"beach", "café", "beach"}, tags); diff != "" {
		t.Errorf("hashtags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"jane.doe", "bob_1"}, mentions); diff != "" {
		t.Errorf("mentions mismatch (-want +got):\n%s", diff)
	}
}

func TestCaptionTokens(t *testing.T) {
	posts := []profile.Post{{Caption: "#a #b"}, {Caption: "#a"}}
	tags, mentions := CaptionTokens(posts)

	want := []TokenCount{{Token: "a", Count: 2}, {Token: "b", Count: 1}}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Errorf("top hashtags mismatch (-want +got):\n%s", diff)
	}
	if mentions != nil {
		t.Errorf("top mentions = %v, want nil", mentions)
	}
}

func TestTopTokensLimit(t *testing.T) {
	var tokens []string
	for _, c := range "abcdefghijklmnopq" {
		tokens = append(tokens, string(c))
	}
	tokens = append(tokens, "q")

	got := TopTokens(tokens, 15)
	if len(got) != 15 {
		t.Fatalf("len = %d, want 15", len(got))
	}
	if got[0] != (TokenCount{Token: "q", Count: 2}) {
		t.Errorf("got[0] = %+v, want {q 2}", got[0])
	}
	if got[1].Token != "a" || got[14].Token != "n" {
		t.Errorf("tie order = %q..%q, want a..n", got[1].Token, got[14].Token)
	}
}

func TestTimeline(t *testing.T) {
	if got := Timeline(&profile.Profile{}, nil, base); got != nil {
		t.Errorf("Timeline(nil) = %+v, want nil", got)
	}

	// Out of order on purpose: the newest post is not first.
	posts := []profile.Post{
		{Timestamp: at(10, 12)},
		{Timestamp: at(3, 12)},
		{Timestamp: at(213, 12)},
	}
	got := Timeline(&profile.Profile{MediaCount: 420}, posts, base)

	if !got.Latest.Equal(at(3, 12)) {
		t.Errorf("Latest = %v, want %v", got.Latest, at(3, 12))
	}
	if !got.Oldest.Equal(at(213, 12)) {
		t.Errorf("Oldest = %v, want %v", got.Oldest, at(213, 12))
	}
	if got.DaysSinceLatest != 2 {
		t.Errorf("DaysSinceLatest = %d, want 2", got.DaysSinceLatest)
	}
	if got.Status != StatusActive {
		t.Errorf("Status = %q, want %q", got.Status, StatusActive)
	}
	if got.PostsPerMonth != 60 {
		t.Errorf("PostsPerMonth = %v, want 60", got.PostsPerMonth)
	}
	if got.PostsPerWeek != 14 {
		t.Errorf("PostsPerWeek = %v, want 14", got.PostsPerWeek)
	}
}

func TestFollowRatioOf(t *testing.T) {
	tests := []struct {
		name string
		p    profile.Profile
		want *FollowRatio
	}{
		{name: "no followers", p: profile.Profile{Following: 10}},
		{name: "farming", p: profile.Profile{Followers: 10, Following: 50}, want: &FollowRatio{Ratio: 5, Signal: "engagement_farming"}},
		{name: "strong", p: profile.Profile{Followers: 4000, Following: 100}, want: &FollowRatio{Ratio: 0.025, Signal: "strong_audience"}},
		{name: "neutral", p: profile.Profile{Followers: 100, Following: 100}, want: &FollowRatio{Ratio: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FollowRatioOf(&tt.p)); diff != "" {
				t.Errorf("FollowRatioOf() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExternalURLs(t *testing.T) {
	tests := []struct {
		name string
		p    profile.Profile
		want []string
	}{
		{
			name: "bio links win",
			p: profile.Profile{
				BioLinks:    []string{"https://a.example", "https://b.example"},
				ExternalURL: "https://a.example",
				Biography:   "see https://c.example",
			},
			want: []string{"https://a.example", "https://b.example"},
		},
		{
			name: "external url and bio",
			p: profile.Profile{
				ExternalURL: "https://linktr.ee/jane",
				Biography:   "shop (https://shop.example/x) and https://linktr.ee/jane",
			},
			want: []string{"https://linktr.ee/jane", "https://shop.example/x"},
		},
		{name: "none", p: profile.Profile{Biography: "hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ExternalURLs(&tt.p)); diff != "" {
				t.Errorf("ExternalURLs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	p := &profile.Profile{
		Username:  "jane_2001",
		Followers: 500,
		Following: 20,
		Biography: "Hi @friend twitter.com/jane",
	}
	posts := []profile.Post{
		{Timestamp: at(0, 10), Likes: 50, Comments: 5, Type: profile.MediaImage, Caption: "#x @y", Location: "Paris"},
		{Timestamp: at(2, 18), Likes: 20, Comments: 1, Type: profile.MediaVideo, Caption: "#x"},
	}

	first := Analyze(p, posts, base)
	second := Analyze(p, posts, base)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Analyze() not idempotent (-first +second):\n%s", diff)
	}

	if first.Engagement == nil || first.Posting == nil || first.Timeline == nil {
		t.Fatalf("Analyze() missing blocks: %+v", first)
	}
	if diff := cmp.Diff([]string{"friend"}, first.BioMentions); diff != "" {
		t.Errorf("BioMentions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(SocialLinks{"Twitter/X": {"jane"}}, first.SocialLinks); diff != "" {
		t.Errorf("SocialLinks mismatch (-want +got):\n%s", diff)
	}
	if len(first.RecentPosts) != 2 {
		t.Errorf("len(RecentPosts) = %d, want 2", len(first.RecentPosts))
	}
}

func TestAnalyzeNoPosts(t *testing.T) {
	got := Analyze(&profile.Profile{Username: "private.acct", Followers: 10}, nil, base)
	if got.Engagement != nil || got.Posting != nil || got.ContentTypes != nil ||
		got.Locations != nil || got.RecentPosts != nil || got.Timeline != nil {
		t.Errorf("Analyze(no posts) produced post blocks: %+v", got)
	}
}
