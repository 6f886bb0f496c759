package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	cases := map[string]string{
		"  Go Meetup  ":                      "Go Meetup",
		"<b>Bold</b> move":                   "Bold move",
		"<script>alert(1)</script>Launch":    "Launch",
		"Tom & Jerry":                        "Tom & Jerry",
		"a < b":                              "a < b",
		`say "hi" it's`:                      `say "hi" it's`,
		`<a href="javascript:x()">click</a>`: "click",
		"":                                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Text(in), "input %q", in)
	}
}

func TestText_EntityEncodedMarkup(t *testing.T) {
	cases := map[string]string{
		"&lt;script&gt;alert(1)&lt;/script&gt;":                 "",
		"&lt;img src=x onerror=alert(1)&gt;":                    "",
		"Launch &lt;b&gt;now&lt;/b&gt;":                         "Launch now",
		"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;": "",
	}
	for in, want := range cases {
		got := Text(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.NotContains(t, got, "<", "input %q", in)
	}
}

func TestText_Stable(t *testing.T) {
	in := strings.Repeat("&amp;", 20) + "lt;i&gt;x"
	out := Text(in)
	assert.NotContains(t, out, "<i>")
	assert.Equal(t, out, strings.TrimSpace(out))
}
