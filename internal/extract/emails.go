// Package extract pulls contact details out of free text and HTML documents:
// email addresses (including common obfuscations), social media handles,
// website links and contact page links.
package extract

import (
	"regexp"
	"slices"
	"strings"
)

var (
	bracketAt  = regexp.MustCompile(`(?i)\s*[\[\(\{]\s*at\s*[\]\)\}]\s*`)
	bracketDot = regexp.MustCompile(`(?i)\s*[\[\(\{]\s*dot\s*[\]\)\}]\s*`)
	spacedAt   = regexp.MustCompile(`\s+AT\s+`)
	spacedDot  = regexp.MustCompile(`\s+DOT\s+`)

	plainEmail = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)

	// A label such as "business:" in front of an address tolerates spaces
	// around the @ and before a dot ("jane @ example . com").
	labelledEmail = regexp.MustCompile(`(?i)\b(?:contact|e-?mail|business|inquiries|collaborations?)\s*:\s*` +
		`([a-z0-9._%+-]+)\s*@\s*([a-z0-9-]+(?:(?:\s+\.\s*|\.)[a-z0-9-]+)+)`)

	validEmail = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9](?:[a-z0-9-]*[a-z0-9])?` +
		`(?:\.[a-z0-9](?:[a-z0-9-]*[a-z0-9])?)*\.[a-z]{2,24}$`)

	whitespace = regexp.MustCompile(`\s+`)
)

// File extensions that show up as the "TLD" of retina asset names such as
// logo@2x.png.
var assetSuffixes = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "svg": true, "webp": true,
	"avif": true, "bmp": true, "ico": true, "tiff": true, "css": true, "js": true,
	"mp4": true, "webm": true, "woff": true, "woff2": true,
}

const edgePunctuation = ".,;:!?'\"()[]{}<>`"

// Emails returns the distinct addresses found in text, lower-cased, in the
// order they first appear. Every returned address passes Normalize.
func Emails(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	text = deobfuscate(text)

	type candidate struct {
		pos  int
		addr string
	}
	var found []candidate

	for _, loc := range plainEmail.FindAllStringIndex(text, -1) {
		found = append(found, candidate{pos: loc[0], addr: text[loc[0]:loc[1]]})
	}
	for _, m := range labelledEmail.FindAllStringSubmatchIndex(text, -1) {
		local := text[m[2]:m[3]]
		domain := text[m[4]:m[5]]
		found = append(found, candidate{pos: m[2], addr: local + "@" + domain})
	}
	slices.SortStableFunc(found, func(a, b candidate) int { return a.pos - b.pos })

	var out []string
	seen := make(map[string]struct{}, len(found))
	for _, c := range found {
		addr, ok := Normalize(c.addr)
		if !ok {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// Normalize strips whitespace and surrounding punctuation, lower-cases the
// address and validates it. It rejects asset file names that merely look like
// addresses.
func Normalize(candidate string) (string, bool) {
	addr := whitespace.ReplaceAllString(candidate, "")
	addr = strings.Trim(addr, edgePunctuation)
	addr = strings.ToLower(addr)

	if len(addr) > 254 || !validEmail.MatchString(addr) {
		return "", false
	}
	local, domain, _ := strings.Cut(addr, "@")
	if len(local) > 64 || strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return "", false
	}
	tld := domain[strings.LastIndexByte(domain, '.')+1:]
	if assetSuffixes[tld] {
		return "", false
	}
	return addr, true
}

func deobfuscate(text string) string {
	text = bracketAt.ReplaceAllString(text, "@")
	text = bracketDot.ReplaceAllString(text, ".")
	text = spacedAt.ReplaceAllString(text, "@")
	text = spacedDot.ReplaceAllString(text, ".")
	return text
}
