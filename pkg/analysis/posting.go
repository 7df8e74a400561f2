package analysis

import "github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"

// HourCount is a posting hour (0-23) and the number of posts made in it.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DayCount is a weekday name and the number of posts made on it.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// PostingPattern summarizes when an account posts.
type PostingPattern struct {
	Hours       []HourCount `json:"hour_distribution"`
	Days        []DayCount  `json:"day_distribution"`
	BusiestHour HourCount   `json:"most_active_hour"`
	BusiestDay  DayCount    `json:"most_active_day"`
}

// PostingPatterns computes the hour-of-day and weekday distribution of posts.
// It returns nil when there are no posts.
func PostingPatterns(posts []profile.Post) *PostingPattern {
	if len(posts) == 0 {
		return nil
	}

	hours := make([]int, len(posts))
	days := make([]string, len(posts))
	for i := range posts {
		hours[i] = posts[i].Timestamp.Hour()
		days[i] = posts[i].Timestamp.Weekday().String()
	}

	pp := &PostingPattern{}
	for _, tc := range rank(hours, topHours) {
		pp.Hours = append(pp.Hours, HourCount{Hour: tc.value, Count: tc.count})
	}
	for _, tc := range rank(days, topDays) {
		pp.Days = append(pp.Days, DayCount{Day: tc.value, Count: tc.count})
	}
	// The busiest entries head the distributions: count desc, then first occurrence.
	pp.BusiestHour = pp.Hours[0]
	pp.BusiestDay = pp.Days[0]
	return pp
}
