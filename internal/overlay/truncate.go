package overlay

import (
	"net/url"
	"strings"
)

// DefaultURLMaxLen is the display budget, in characters, for the URL line.
const DefaultURLMaxLen = 40

const ellipsis = "…"

// TruncateURL shortens a URL for display to at most maxLen characters,
// ellipsis included. The scheme and port are dropped; the hostname is kept
// whole when it fits and the path and query are cut to the remaining budget.
// URLs without a host, such as mailto:, show only their path. Input without
// a scheme is cut as plain text.
func TruncateURL(raw string, maxLen int) string {
	if maxLen < 2 {
		maxLen = 2
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return truncateRunes(raw, maxLen)
	}

	host := []rune(displayHost(u))
	path := u.EscapedPath()
	if u.Opaque != "" {
		path = u.Opaque
	}
	if path == "" && specialSchemes[u.Scheme] {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	rest := []rune(path)

	if len(host)+len(rest) <= maxLen {
		return string(host) + path
	}
	if len(host) >= maxLen-1 {
		return string(host[:maxLen-1]) + ellipsis
	}
	remaining := maxLen - len(host) - 1
	return string(host) + string(rest[:remaining]) + ellipsis
}

// specialSchemes always carry at least a "/" path.
var specialSchemes = map[string]bool{
	"http": true, "https": true, "ws": true, "wss": true, "ftp": true, "file": true,
}

// displayHost is the lowercased host without its port. IPv6 literals keep
// their brackets.
func displayHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

func truncateRunes(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + ellipsis
}
