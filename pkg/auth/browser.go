package auth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register all browser cookie stores
	"github.com/browserutils/kooky/browser/chrome"
	"github.com/browserutils/kooky/browser/firefox"
)

// BrowserSource reads the Instagram session from local browser cookie stores.
type BrowserSource struct {
	logger *slog.Logger
	home   string
}

// NewBrowserSource creates a browser cookie source.
func NewBrowserSource(logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	home, _ := os.UserHomeDir() //nolint:errcheck // empty home only skips the explicit profile scan
	return &BrowserSource{logger: logger, home: home}
}

// Cookies returns the session cookies of the first browser profile that has
// any. Unreadable stores are skipped, never fatal.
func (s *BrowserSource) Cookies(ctx context.Context) (map[string]string, error) {
	s.logger.DebugContext(ctx, "reading browser cookies", "domain", Domain)

	// Firefox forks and Chrome Canary are not auto-detected by kooky.
	if cookies := s.tryFirefoxProfiles(ctx); len(cookies) > 0 {
		return cookies, nil
	}
	if cookies := s.tryChromeCanary(ctx); len(cookies) > 0 {
		return cookies, nil
	}

	kookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(Domain))
	if err != nil && len(kookies) == 0 {
		s.logger.DebugContext(ctx, "failed to read browser cookies", "error", err)
		return nil, nil //nolint:nilnil // failed browser read is not a fatal error
	}
	return filterSession(ctx, s.logger, kookies), nil
}

func (s *BrowserSource) firefoxProfileGlobs() []string {
	if s.home == "" {
		return nil
	}
	return []string{
		filepath.Join(s.home, "Library", "Application Support", "zen", "Profiles", "*", "cookies.sqlite"),
		filepath.Join(s.home, "Library", "Application Support", "Firefox", "Profiles", "*", "cookies.sqlite"),
		filepath.Join(s.home, ".mozilla", "firefox", "*", "cookies.sqlite"),
		filepath.Join(s.home, ".zen", "*", "cookies.sqlite"),
	}
}

func (s *BrowserSource) tryFirefoxProfiles(ctx context.Context) map[string]string {
	for _, pattern := range s.firefoxProfileGlobs() {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, f := range matches {
			kookies, err := firefox.ReadCookies(ctx, f, kooky.Valid, kooky.DomainHasSuffix(Domain))
			if err != nil {
				s.logger.DebugContext(ctx, "failed to read Firefox cookies", "profile", filepath.Base(filepath.Dir(f)), "error", err)
				continue
			}
			if cookies := filterSession(ctx, s.logger, kookies); len(cookies) > 0 {
				s.logger.DebugContext(ctx, "found Firefox cookies", "profile", filepath.Base(filepath.Dir(f)))
				return cookies
			}
		}
	}
	return nil
}

func (s *BrowserSource) tryChromeCanary(ctx context.Context) map[string]string {
	if s.home == "" {
		return nil
	}
	canaryDir := filepath.Join(s.home, "Library", "Application Support", "Google", "Chrome Canary")

	for _, profile := range []string{"Default", "Profile 1", "Profile 2", "Profile 3"} {
		cookiesFile := filepath.Join(canaryDir, profile, "Cookies")
		if _, err := os.Stat(cookiesFile); err != nil {
			continue
		}

		kookies, err := chrome.ReadCookies(ctx, cookiesFile, kooky.Valid, kooky.DomainHasSuffix(Domain))
		if err != nil {
			if strings.Contains(err.Error(), "encryption") || strings.Contains(err.Error(), "decrypt") {
				s.logger.WarnContext(ctx, "Chrome Canary cookies exist but cannot be decrypted",
					"profile", profile,
					"hint", "use Firefox or set INSTAGRAM_SESSIONID")
			}
			continue
		}
		if cookies := filterSession(ctx, s.logger, kookies); len(cookies) > 0 {
			return cookies
		}
	}
	return nil
}

// filterSession keeps only the session cookies, and only when sessionid is
// among them.
func filterSession(ctx context.Context, logger *slog.Logger, kookies []*kooky.Cookie) map[string]string {
	cookies := make(map[string]string)
	for _, c := range kookies {
		for _, name := range SessionCookies {
			if c.Name == name && c.Value != "" {
				cookies[name] = c.Value
			}
		}
	}
	if cookies["sessionid"] == "" {
		return nil
	}

	var missing []string
	for _, name := range SessionCookies {
		if _, ok := cookies[name]; !ok {
			missing = append(missing, name)
		}
	}
	logger.InfoContext(ctx, "browser session found", "missing", missing)
	return cookies
}
