package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmails(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain",
			text: "Business inquiries: Jane.Doe@Example.com. Thanks!",
			want: []string{"jane.doe@example.com"},
		},
		{
			name: "bracket obfuscation",
			text: "reach me at jane [at] example [dot] com",
			want: []string{"jane@example.com"},
		},
		{
			name: "paren and brace obfuscation",
			text: "bob(at)mail(dot)org or carol {at} site {dot} io",
			want: []string{"bob@mail.org", "carol@site.io"},
		},
		{
			name: "spelled out uppercase",
			text: "write to press AT studio DOT tv",
			want: []string{"press@studio.tv"},
		},
		{
			name: "label with spaces",
			text: "business: jane @ example . com",
			want: []string{"jane@example.com"},
		},
		{
			name: "label does not swallow the next sentence",
			text: "Email: team@brand.co. Follow us!",
			want: []string{"team@brand.co"},
		},
		{
			name: "retina asset is not an address",
			text: `<img src="logo@2x.png"> hello@brand.com`,
			want: []string{"hello@brand.com"},
		},
		{
			name: "case-insensitive dedup keeps first",
			text: "A@x.com then a@X.com then b@x.com",
			want: []string{"a@x.com", "b@x.com"},
		},
		{
			name: "nothing",
			text: "no contact details here, look at the about page",
			want: nil,
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Emails(tt.text))
		})
	}
}

func TestEmailsHaveNoObfuscationArtifacts(t *testing.T) {
	text := "jane [at] example [dot] com, bob (at) x (dot) org, sam AT y DOT net, contact: kim @ z . io"
	got := Emails(text)
	require.Len(t, got, 4)
	for _, addr := range got {
		assert.NotContains(t, addr, "[")
		assert.NotContains(t, addr, "(")
		assert.NotContains(t, addr, " ")
		assert.NotContains(t, strings.ToLower(addr), "dot")
		_, ok := Normalize(addr)
		assert.True(t, ok, addr)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: " <Jane@Example.COM>, ", want: "jane@example.com", ok: true},
		{in: "icon@3x.webp", ok: false},
		{in: ".jane@example.com", want: "jane@example.com", ok: true},
		{in: "jane..doe@example.com", ok: false},
		{in: "jane@-example.com", ok: false},
		{in: "jane@example", ok: false},
		{in: "not an email", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSocialHandles(t *testing.T) {
	text := `Watch on netflix.com/title/123.
		Share: https://twitter.com/intent/tweet?text=hi
		Follow https://x.com/janedoe and https://www.instagram.com/p/abc then instagram.com/jane.doe
		https://linkedin.com/company/acme-inc https://facebook.com/sharer.php?u=1 https://facebook.com/JaneDoeOfficial`

	got := SocialHandles(text)
	assert.Equal(t, map[string]string{
		Twitter:   "janedoe",
		Instagram: "jane.doe",
		LinkedIn:  "acme-inc",
		Facebook:  "JaneDoeOfficial",
	}, got)
}

func TestSocialHandlesIgnoresLookalikeHosts(t *testing.T) {
	got := SocialHandles("stream on netflix.com/browse and box.com/files")
	assert.Empty(t, got)
}

func TestWebsiteURL(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want string
	}{
		{
			name: "skips youtube links",
			desc: "Subscribe https://youtube.com/@me and https://youtu.be/xyz. Site: https://janedoe.dev/links).",
			want: "https://janedoe.dev/links",
		},
		{
			name: "skips youtube subdomains",
			desc: "https://m.youtube.com/watch?v=1 http://shop.example.org",
			want: "http://shop.example.org",
		},
		{
			name: "skips social profiles",
			desc: "https://www.instagram.com/me https://x.com/me https://me.studio/",
			want: "https://me.studio/",
		},
		{
			name: "none",
			desc: "just text",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WebsiteURL(tt.desc))
		})
	}
}

const samplePage = `<html><head>
<style>.a{color:red}</style><script>var e = "hidden@script.com";</script>
</head><body>
<p>Email</p><p>hello@brand.com</p>
<a href="/contact#form">Contact</a>
<a href="/about-us">About</a>
<a href="https://brand.com/contact">Contact again</a>
<a href="mailto:Sales@Brand.com?subject=Hi">Sales</a>
<a href="javascript:about()">bad</a>
<a href="/team/contact">Team</a>
<a href="https://twitter.com/brand">tw</a>
</body></html>`

func parse(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestContactLinks(t *testing.T) {
	doc := parse(t, samplePage)
	base, _ := url.Parse("https://brand.com/")

	got := ContactLinks(doc, base, 3)
	assert.Equal(t, []string{
		"https://brand.com/contact",
		"https://brand.com/about-us",
		"https://brand.com/team/contact",
	}, got)

	assert.Len(t, ContactLinks(doc, base, 1), 1)
	assert.Nil(t, ContactLinks(doc, base, 0))
}

func TestPageTextSkipsScripts(t *testing.T) {
	doc := parse(t, samplePage)
	text := PageText(doc)

	assert.NotContains(t, text, "hidden@script.com")
	assert.NotContains(t, text, "color:red")
	assert.Equal(t, []string{"hello@brand.com"}, Emails(text))
}

func TestMailtoAndHrefs(t *testing.T) {
	doc := parse(t, samplePage)

	assert.Equal(t, []string{"sales@brand.com"}, MailtoEmails(doc))
	assert.Equal(t, "brand", SocialHandles(Hrefs(doc))[Twitter])
}
