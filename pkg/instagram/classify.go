package instagram

import (
	"regexp"
	"strings"
)

// RefKind says what an identifier points at.
type RefKind int

// Reference kinds.
const (
	RefProfile RefKind = iota
	RefPost
)

func (k RefKind) String() string {
	if k == RefPost {
		return "post"
	}
	return "profile"
}

// Reference is a parsed identifier: either a profile handle or a post shortcode.
type Reference struct {
	Handle    string
	Shortcode string
	Kind      RefKind
}

var (
	postPattern    = regexp.MustCompile(`(?i)(?:instagram\.com|instagr\.am)/(?:reels?|p|tv)/([A-Za-z0-9_-]+)`)
	storyPattern   = regexp.MustCompile(`(?i)(?:instagram\.com|instagr\.am)/stories/([a-zA-Z0-9._]+)`)
	profilePattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:instagram\.com|instagr\.am)/@?([a-zA-Z0-9._]+)/?`)
)

// systemPaths are first path segments that never name an account.
var systemPaths = map[string]bool{
	"p": true, "reel": true, "reels": true, "tv": true, "stories": true,
	"explore": true, "direct": true, "accounts": true,
	"about": true, "legal": true, "privacy": true,
	"terms": true, "api": true, "developer": true,
}

// Classify parses a raw handle, profile URL, story URL, or post/reel URL. It
// never fails: anything unrecognized is treated as a literal handle, and site
// pages such as /explore/ yield an empty handle.
func Classify(input string) Reference {
	input = strings.TrimSpace(input)

	if m := postPattern.FindStringSubmatch(input); m != nil {
		return Reference{Kind: RefPost, Shortcode: m[1]}
	}
	if m := storyPattern.FindStringSubmatch(input); m != nil && !strings.EqualFold(m[1], "highlights") {
		return Reference{Kind: RefProfile, Handle: m[1]}
	}
	if m := profilePattern.FindStringSubmatch(input); m != nil {
		if systemPaths[strings.ToLower(m[1])] {
			// A site page, not an account: leave the handle empty.
			return Reference{Kind: RefProfile}
		}
		return Reference{Kind: RefProfile, Handle: m[1]}
	}
	return Reference{Kind: RefProfile, Handle: strings.TrimSpace(strings.ReplaceAll(input, "@", ""))}
}
