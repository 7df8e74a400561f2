// Package auth discovers an existing Instagram browser session so requests can
// be made as a logged-in user. It never logs in by itself.
package auth

import (
	"context"
	"maps"
)

// Domain is the cookie domain of an Instagram session.
const Domain = "instagram.com"

// SessionCookies are the cookies that make up a usable session.
var SessionCookies = []string{"sessionid", "csrftoken", "ds_user_id"}

// Source is a source of session cookies.
type Source interface {
	// Cookies returns session cookies, or nil if the source has none.
	Cookies(ctx context.Context) (map[string]string, error)
}

// Chain returns cookies from the first source that has any.
func Chain(ctx context.Context, sources ...Source) (map[string]string, error) {
	for _, src := range sources {
		cookies, err := src.Cookies(ctx)
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, nil //nolint:nilnil // no source had cookies, but this is not an error
}

// StaticSource provides cookies from a fixed map.
type StaticSource struct {
	cookies map[string]string
}

// NewStaticSource creates a cookie source from a map.
func NewStaticSource(cookies map[string]string) *StaticSource {
	return &StaticSource{cookies: cookies}
}

// Cookies returns a copy of the static cookies.
func (s *StaticSource) Cookies(context.Context) (map[string]string, error) {
	if len(s.cookies) == 0 {
		return nil, nil //nolint:nilnil // empty static source is not an error
	}
	return maps.Clone(s.cookies), nil
}
