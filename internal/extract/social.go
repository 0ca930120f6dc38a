package extract

import (
	"regexp"
	"strings"
)

// Platform keys used in ContactInfo.SocialMedia
const (
	Twitter   = "twitter"
	LinkedIn  = "linkedin"
	Instagram = "instagram"
	Facebook  = "facebook"
)

type socialPattern struct {
	platform string
	re       *regexp.Regexp
	reserved map[string]bool
}

// \b before the host keeps "netflix.com/..." from matching x.com.
var socialPatterns = []socialPattern{
	{
		platform: Twitter,
		re:       regexp.MustCompile(`(?i)\b(?:twitter|x)\.com/@?([A-Za-z0-9_]{1,15})\b`),
		reserved: set("home", "share", "intent", "search", "hashtag", "i", "login", "signup", "explore", "settings", "messages", "notifications"),
	},
	{
		platform: LinkedIn,
		re:       regexp.MustCompile(`(?i)\blinkedin\.com/(?:in|company)/([A-Za-z0-9_-]+)`),
	},
	{
		platform: Instagram,
		re:       regexp.MustCompile(`(?i)\binstagram\.com/([A-Za-z0-9_.]+)`),
		reserved: set("p", "reel", "reels", "explore", "accounts", "stories", "tv", "direct"),
	},
	{
		platform: Facebook,
		re:       regexp.MustCompile(`(?i)\bfacebook\.com/([A-Za-z0-9_.]+)`),
		reserved: set("sharer", "sharer.php", "share", "share.php", "dialog", "plugins", "login", "login.php", "profile.php", "events", "watch", "groups"),
	},
}

// SocialHandles returns the first usable handle per platform found in text.
// Platforms with no match are absent from the map.
func SocialHandles(text string) map[string]string {
	out := make(map[string]string)
	for _, p := range socialPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			handle := strings.TrimRight(m[1], ".")
			if handle == "" || p.reserved[strings.ToLower(handle)] {
				continue
			}
			out[p.platform] = handle
			break
		}
	}
	return out
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
