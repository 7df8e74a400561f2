package analysis

import (
	"regexp"
	"slices"
	"strings"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
)

// SocialLinks maps a platform name to the sorted, de-duplicated handles found for it.
type SocialLinks map[string][]string

type socialPattern struct {
	re       *regexp.Regexp
	platform string
}

// socialPatterns is the fixed table of platforms scanned in bios and external URLs.
var socialPatterns = []socialPattern{
	{platform: "Twitter/X", re: regexp.MustCompile(`(?i)(?:twitter\.com|x\.com)/([a-zA-Z0-9_]+)`)},
	{platform: "TikTok", re: regexp.MustCompile(`(?i)tiktok\.com/@?([a-zA-Z0-9_.]+)`)},
	{platform: "YouTube", re: regexp.MustCompile(`(?i)youtube\.com/(?:c/|channel/|@)?([a-zA-Z0-9_-]+)`)},
	{platform: "Facebook", re: regexp.MustCompile(`(?i)facebook\.com/([a-zA-Z0-9.]+)`)},
	{platform: "LinkedIn", re: regexp.MustCompile(`(?i)linkedin\.com/in/([a-zA-Z0-9-]+)`)},
	{platform: "Snapchat", re: regexp.MustCompile(`(?i)snapchat\.com/add/([a-zA-Z0-9_.]+)`)},
	{platform: "Telegram", re: regexp.MustCompile(`(?i)t\.me/([a-zA-Z0-9_]+)`)},
	{platform: "WhatsApp", re: regexp.MustCompile(`(?i)wa\.me/(\d+)`)},
	{platform: "Discord", re: regexp.MustCompile(`(?i)discord\.gg/([a-zA-Z0-9]+)`)},
	{platform: "Threads", re: regexp.MustCompile(`(?i)threads\.net/@([a-zA-Z0-9_.]+)`)},
}

// ExtractSocialLinks finds handles on other platforms mentioned in text.
// A platform appears in the result only when at least one handle matched.
func ExtractSocialLinks(text string) SocialLinks {
	links := SocialLinks{}
	for _, sp := range socialPatterns {
		var handles []string
		for _, m := range sp.re.FindAllStringSubmatch(text, -1) {
			handles = append(handles, m[1])
		}
		if len(handles) == 0 {
			continue
		}
		slices.Sort(handles)
		links[sp.platform] = slices.Compact(handles)
	}
	return links
}

var (
	mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9._]+)`)
	bioURLPattern  = regexp.MustCompile(`https?://\S+`)
)

// BioMentions returns every @handle in a biography in order of appearance.
func BioMentions(bio string) []string {
	return submatches(mentionPattern, bio)
}

// ExternalURLs lists the links a profile advertises. Bio links reported by the
// provider take precedence; otherwise the external URL and any URLs written
// into the biography are used.
func ExternalURLs(p *profile.Profile) []string {
	var urls []string
	if len(p.BioLinks) > 0 {
		urls = append(urls, p.BioLinks...)
	} else {
		if p.ExternalURL != "" {
			urls = append(urls, p.ExternalURL)
		}
		for _, u := range bioURLPattern.FindAllString(p.Biography, -1) {
			urls = append(urls, trimURL(u))
		}
	}
	return dedupe(urls)
}

// trimURL strips trailing punctuation that commonly wraps links in prose.
func trimURL(s string) string {
	return strings.TrimRight(s, `"')]>.,!`)
}

func submatches(re *regexp.Regexp, s string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

// dedupe removes empty strings and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
