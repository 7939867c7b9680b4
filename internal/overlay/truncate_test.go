package overlay

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateURL(t *testing.T) {
	longHost := strings.Repeat("a", 45) + ".com"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short url kept", "https://example.com/a", "example.com/a"},
		{"empty path becomes slash", "https://example.com", "example.com/"},
		{"query kept", "https://example.com/search?q=go", "example.com/search?q=go"},
		{"host lowercased", "https://Example.COM/Path", "example.com/Path"},
		{"port dropped", "http://localhost:8080/x", "localhost/x"},
		{
			"path cut after full host",
			"https://ja.wikipedia.org/wiki/Tokyo_Tower_History",
			"ja.wikipedia.org/wiki/Tokyo_Tower_Histo…",
		},
		{"long host cut", "https://" + longHost + "/x", longHost[:39] + "…"},
		{"ipv6 keeps brackets", "http://[::1]:8080/status", "[::1]/status"},
		{"mailto shows address", "mailto:a@b.example", "a@b.example"},
		{"mailto with query", "mailto:a@b.example?subject=hi", "a@b.example?subject=hi"},
		{"file url has no host", "file:///tmp/x.png", "/tmp/x.png"},
		{"custom scheme empty path", "myapp://open", "open"},
		{"plain text short", "not a url", "not a url"},
		{
			"plain text cut",
			"this is not a url but it is definitely longer than forty characters",
			"this is not a url but it is definitely …",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateURL(tt.in, DefaultURLMaxLen))
		})
	}
}

func TestTruncateURL_ExactlyFortyVisibleCharacters(t *testing.T) {
	got := TruncateURL("https://ja.wikipedia.org/wiki/Tokyo_Tower_History", 40)
	assert.Equal(t, 40, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(got, "ja.wikipedia.org/"))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestTruncateURL_NeverExceedsBudget(t *testing.T) {
	inputs := []string{
		"https://example.com/" + strings.Repeat("x", 100),
		"https://例え.jp/" + strings.Repeat("パス", 30),
		strings.Repeat("ü", 80),
		"ftp://files.example.org/pub/" + strings.Repeat("y", 50) + "?a=1&b=2",
	}
	for _, in := range inputs {
		for _, n := range []int{10, 25, 40} {
			assert.LessOrEqual(t, utf8.RuneCountInString(TruncateURL(in, n)), n, "%q at %d", in, n)
		}
	}
}

func TestTruncateURL_TinyBudget(t *testing.T) {
	assert.Equal(t, "e…", TruncateURL("https://example.com/abc", 0))
}
