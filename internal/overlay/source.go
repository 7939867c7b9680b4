package overlay

import (
	"net/url"
	"regexp"
	"strings"
)

// Source is caption text recovered from an HTML fragment, typically what a
// browser puts on the clipboard when an image is copied from a page.
type Source struct {
	URL   string
	Title string
}

var (
	linkImgRe = regexp.MustCompile(`(?i)<a[^>]+href=["']([^"']+)["'][^>]*>[\s\S]*?<img`)
	imgSrcRe  = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)
	imgAltRe  = regexp.MustCompile(`(?i)<img[^>]+alt=["']([^"']+)["']`)
)

// ExtractSource finds the link wrapping an image (or the image's own src)
// and the image's alt text. Without alt text the title falls back to the
// URL's hostname. ok is false when the fragment has neither a link around an
// image nor an image.
func ExtractSource(html string) (Source, bool) {
	link := firstGroup(linkImgRe, html)
	src := firstGroup(imgSrcRe, html)
	if link == "" && src == "" {
		return Source{}, false
	}

	s := Source{URL: link, Title: firstGroup(imgAltRe, html)}
	if s.URL == "" {
		s.URL = src
	}
	if s.Title == "" && s.URL != "" {
		if u, err := url.Parse(s.URL); err == nil && u.Scheme != "" {
			s.Title = strings.ToLower(u.Hostname())
		}
	}
	return s, true
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
