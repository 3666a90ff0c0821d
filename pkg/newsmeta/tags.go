package newsmeta

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ascww/newsportal/pkg/newsapi"
)

// MaxDescription bounds og:description and twitter:description, in runes.
const MaxDescription = 200

// Defaults are used for every field that cannot be derived from an item.
type Defaults struct {
	Title       string
	Description string
	// Logo is resolved against the request origin unless it is absolute.
	Logo string
}

// Site carries the site-wide Open Graph values.
type Site struct {
	Name   string
	Locale string
}

// Tags are the social meta values computed for one request.
type Tags struct {
	Title       string
	Description string
	Image       string
	URL         string
}

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`[\s\x{000B}\p{Zs}\x{FEFF}\x{2028}\x{2029}]+`)
)

// ComputeTags derives the tags for page from item. A nil item yields the
// defaults; a partial item falls back per field.
func ComputeTags(item *newsapi.NewsItem, opts Options, page *url.URL) Tags {
	t := Tags{
		Title:       opts.Defaults.Title,
		Description: opts.Defaults.Description,
		Image:       logoURL(opts.Defaults.Logo, page),
		URL:         escapeURL(page.String()),
	}
	if item != nil {
		if item.Title != "" {
			t.Title = item.Title
		}
		if item.Description != "" {
			t.Description = item.Description
		}
		if p, ok := item.FirstImage(); ok {
			t.Image = newsapi.ImageURL(opts.ImageBaseURL, p)
		}
	}
	t.Image = escapeURL(t.Image)
	t.Description = CleanDescription(t.Description)
	return t
}

// CleanDescription strips markup from s and returns a single-line,
// attribute-safe string of at most MaxDescription runes.
func CleanDescription(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return escapeBounded(s, MaxDescription)
}

// escapeBounded escapes quotes and stray angle brackets, stopping before
// the output would exceed max runes. Entities are never cut.
func escapeBounded(s string, max int) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		piece := string(r)
		switch r {
		case '"':
			piece = "&quot;"
		case '<':
			piece = "&lt;"
		case '>':
			piece = "&gt;"
		}
		w := utf8.RuneCountInString(piece)
		if n+w > max {
			break
		}
		b.WriteString(piece)
		n += w
	}
	return b.String()
}

// escapeURL percent-encodes the bytes a browser would encode when
// serialising a URL: controls, space, quotes, angle brackets and backtick.
// Existing escapes are left alone, so the result is safe inside an attribute.
func escapeURL(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c <= ' ', c == 0x7f, c == '"', c == '\'', c == '<', c == '>', c == '`':
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func logoURL(logo string, page *url.URL) string {
	if u, err := url.Parse(logo); err == nil && u.IsAbs() {
		return logo
	}
	return origin(page) + logo
}

func origin(page *url.URL) string {
	return page.Scheme + "://" + page.Host
}

// Block renders the meta tags inserted before </head>.
func Block(t Tags, site Site) string {
	title := attr(t.Title)
	tags := []struct{ kind, key, value string }{
		{"property", "og:title", title},
		{"property", "og:description", t.Description},
		{"property", "og:image", t.Image},
		{"property", "og:image:secure_url", t.Image},
		{"property", "og:image:type", "image/jpeg"},
		{"property", "og:image:width", "1200"},
		{"property", "og:image:height", "630"},
		{"property", "og:image:alt", title},
		{"property", "og:url", t.URL},
		{"property", "og:type", "article"},
		{"property", "og:site_name", attr(site.Name)},
		{"property", "og:locale", site.Locale},
		{"name", "twitter:card", "summary_large_image"},
		{"name", "twitter:title", title},
		{"name", "twitter:description", t.Description},
		{"name", "twitter:image", t.Image},
	}

	var b strings.Builder
	b.WriteString("\n    <!-- Dynamic Social Tags -->\n")
	for _, tag := range tags {
		b.WriteString(`    <meta `)
		b.WriteString(tag.kind)
		b.WriteString(`="`)
		b.WriteString(tag.key)
		b.WriteString(`" content="`)
		b.WriteString(tag.value)
		b.WriteString("\" />\n")
	}
	b.WriteString("    ")
	return b.String()
}

// attr keeps echoed values from closing the content attribute early.
func attr(s string) string {
	return strings.ReplaceAll(s, `"`, "&quot;")
}
