package web

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// OwnText is the text of s's direct text children, whitespace collapsed.
func OwnText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
			b.WriteByte(' ')
		}
	})
	return CleanText(b.String())
}

func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Canonical strips the query and fragment of an absolute url.
func Canonical(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
