package newsmeta

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

// Injector splices a title and a block of meta tags into an HTML page.
type Injector interface {
	Inject(page []byte, title, block string) ([]byte, error)
}

var (
	titleElement = regexp.MustCompile(`<title>.*?</title>`)
	headClose    = []byte("</head>")
)

// TextInjector patches the page as text. Only the first <title>...</title>
// on a single line and the first </head> are touched; a missing tag skips
// that step. The title is written as given.
type TextInjector struct{}

func (TextInjector) Inject(page []byte, title, block string) ([]byte, error) {
	out := page
	if loc := titleElement.FindIndex(out); loc != nil {
		var b bytes.Buffer
		b.Grow(len(out) + len(title))
		b.Write(out[:loc[0]])
		b.WriteString("<title>")
		b.WriteString(title)
		b.WriteString("</title>")
		b.Write(out[loc[1]:])
		out = b.Bytes()
	}
	if i := bytes.Index(out, headClose); i >= 0 {
		var b bytes.Buffer
		b.Grow(len(out) + len(block))
		b.Write(out[:i])
		b.WriteString(block)
		b.Write(out[i:])
		out = b.Bytes()
	}
	return out, nil
}

// DOMInjector parses the page with goquery, sets the text of the first
// <title> and appends the block to the first <head>. The document is
// re-serialised, so the output is normalised markup.
type DOMInjector struct{}

func (DOMInjector) Inject(page []byte, title, block string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("error parsing shell: %w", err)
	}

	if t := doc.Find("title").First(); t.Length() > 0 {
		t.SetText(title)
	}
	doc.Find("head").First().AppendHtml(block)

	html, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("error rendering shell: %w", err)
	}
	return []byte(html), nil
}
