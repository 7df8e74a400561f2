package analysis

import (
	"regexp"
	"slices"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
)

// TokenCount is a hashtag or mention and how often it was used.
type TokenCount struct {
	Token string `json:"name"`
	Count int    `json:"count"`
}

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// HashtagsAndMentions extracts hashtags and @mentions from a caption, without
// their prefixes, in order of appearance and with repeats kept.
func HashtagsAndMentions(caption string) (hashtags, mentions []string) {
	return submatches(hashtagPattern, caption), submatches(mentionPattern, caption)
}

// TopTokens returns the n most frequent tokens. Ties keep first-seen order.
func TopTokens(tokens []string, n int) []TokenCount {
	ranked := rank(tokens, n)
	if len(ranked) == 0 {
		return nil
	}
	out := make([]TokenCount, len(ranked))
	for i, r := range ranked {
		out[i] = TokenCount{Token: r.value, Count: r.count}
	}
	return out
}

// CaptionTokens aggregates hashtags and mentions over the recent-post window
// and returns the top hashtags and top mentions.
func CaptionTokens(posts []profile.Post) (hashtags, mentions []TokenCount) {
	var tags, users []string
	for _, p := range window(posts, recentPostWindow) {
		h, m := HashtagsAndMentions(p.Caption)
		tags = append(tags, h...)
		users = append(users, m...)
	}
	return TopTokens(tags, topHashtags), TopTokens(users, topMentions)
}

type ranked[T comparable] struct {
	value T
	count int
}

// rank counts values and orders them by count descending, then first occurrence.
func rank[T comparable](values []T, n int) []ranked[T] {
	idx := make(map[T]int, len(values))
	var out []ranked[T]
	for _, v := range values {
		j, ok := idx[v]
		if !ok {
			j = len(out)
			idx[v] = j
			out = append(out, ranked[T]{value: v})
		}
		out[j].count++
	}

	slices.SortStableFunc(out, func(a, b ranked[T]) int {
		return b.count - a.count
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
