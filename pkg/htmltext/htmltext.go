package htmltext

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Converter turns HTML email bodies into a plain-text fallback for
// transports that require both parts
type Converter struct {
	whitespaceRegex *regexp.Regexp
	newlineRegex    *regexp.Regexp
}

// NewConverter creates a new HTML to text converter
func NewConverter() *Converter {
	return &Converter{
		whitespaceRegex: regexp.MustCompile(`[^\S\n]+`),
		newlineRegex:    regexp.MustCompile(`\n{3,}`),
	}
}

// Convert strips tags from HTML and returns readable plain text. Invalid
// HTML falls back to a crude tag strip rather than an error.
func (c *Converter) Convert(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return c.stripTags(html)
	}

	doc.Find("script, style, head, meta, link").Remove()

	// Block elements become line breaks
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	text := doc.Text()
	text = c.whitespaceRegex.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	var cleanLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanLines = append(cleanLines, line)
		}
	}
	text = strings.Join(cleanLines, "\n")
	text = c.newlineRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

var tagRegex = regexp.MustCompile(`<[^>]*>`)

func (c *Converter) stripTags(html string) string {
	text := tagRegex.ReplaceAllString(html, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	return strings.TrimSpace(c.whitespaceRegex.ReplaceAllString(text, " "))
}
