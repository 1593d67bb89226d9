package tools

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
	"gotest.tools/v3/assert"
)

func TestCleanHTML(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello world", "hello world"},
		{"tags become spaces", "<p>one</p><p>two</p>", "one two"},
		{"script dropped", "<div>keep<script>var x = 1;</script> this</div>", "keep this"},
		{"entities decoded", "fish &amp; chips", "fish & chips"},
		{"whitespace collapsed", "<b>a</b>\n\n\t <i>b</i>", "a b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanHTML(tc.in))
		})
	}
}

func TestReadableText(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Doc</title><style>p{}</style></head>
<body>
<header>Site header</header>
<nav><a href="/">Home</a></nav>
<main><h1>Solar power</h1><p>Panels convert <em>light</em> into electricity.</p><!-- hidden --></main>
<aside>Related</aside>
<form><input name="q"></form>
<footer>Copyright</footer>
<script>track()</script>
</body></html>`

	doc, err := html.Parse(strings.NewReader(page))
	assert.NilError(t, err)
	assert.Equal(t, "Doc Solar power Panels convert light into electricity.", ReadableText(doc))
}

func TestNormalizeWhitespace(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a b c", NormalizeWhitespace("  a \n b\t\tc  "))
	assert.Equal(t, "", NormalizeWhitespace(" \n "))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short text unchanged", "hello", 10, "hello"},
		{"cuts at last space", "hello brave new world", 13, "hello brave"},
		{"no space cuts hard", "abcdefghij", 4, "abcd"},
		{"counts runes", "héllo wörld", 8, "héllo"},
		{"zero max", "abc", 0, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Truncate(tc.in, tc.max))
		})
	}
}
