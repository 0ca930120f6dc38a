package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var urlPattern = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")

const urlTrailing = ".,;:!?)'\""

// WebsiteURL returns the first http(s) URL in a channel description that does
// not point at YouTube or a social network profile, or "" when there is none.
func WebsiteURL(description string) string {
	for _, raw := range urlPattern.FindAllString(description, -1) {
		raw = strings.TrimRight(raw, urlTrailing)
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		if isPlatformHost(u.Hostname()) {
			continue
		}
		return raw
	}
	return ""
}

var platformHosts = []string{
	"youtube.com", "youtu.be",
	"twitter.com", "x.com", "instagram.com", "facebook.com", "linkedin.com", "tiktok.com",
}

func isPlatformHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range platformHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ContactLinks returns up to max absolute http(s) links whose href mentions
// "contact" or "about", resolved against base.
func ContactLinks(doc *goquery.Document, base *url.URL, max int) []string {
	if doc == nil || max <= 0 {
		return nil
	}
	var links []string
	seen := make(map[string]struct{})
	if base != nil {
		seen[stripFragment(base)] = struct{}{}
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		lower := strings.ToLower(href)
		if !strings.Contains(lower, "contact") && !strings.Contains(lower, "about") {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return true
		}
		abs := stripFragment(ref)
		if _, ok := seen[abs]; ok {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return len(links) < max
	})
	return links
}

func stripFragment(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return c.String()
}

// MailtoEmails returns the valid addresses referenced by mailto: links.
func MailtoEmails(doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if len(href) < 7 || !strings.EqualFold(href[:7], "mailto:") {
			return
		}
		target, _, _ := strings.Cut(href[7:], "?")
		if unescaped, err := url.PathUnescape(target); err == nil {
			target = unescaped
		}
		for _, part := range strings.Split(target, ",") {
			if addr, ok := Normalize(part); ok {
				out = append(out, addr)
			}
		}
	})
	return out
}

// Hrefs joins every link target in the document, for handle matching.
func Hrefs(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		b.WriteString(href)
		b.WriteByte('\n')
	})
	return b.String()
}

// PageText returns the visible text of the document, one space between text
// nodes, skipping script, style and noscript content.
func PageText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
