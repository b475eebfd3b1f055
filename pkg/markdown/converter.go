package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphRe = regexp.MustCompile(`<p>(.*?)</p>`)
	codeBlockRe = regexp.MustCompile(`<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	tagRe       = regexp.MustCompile(`</?([a-zA-Z]+)(?:\s[^>]*)?>`)
	tagNameRe   = regexp.MustCompile(`</?([a-zA-Z]+)`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
)

var supportedTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "a": true, "br": true,
}

// ToTelegramHTML renders markdown as Telegram-compatible HTML.
func ToTelegramHTML(src string) string {
	if src == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(src), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	html = paragraphRe.ReplaceAllString(html, "$1\n")
	html = codeBlockRe.ReplaceAllString(html, "<pre>$1</pre>")

	replacer := strings.NewReplacer(
		"<strong>", "<b>", "</strong>", "</b>",
		"<em>", "<i>", "</em>", "</i>",
		"<ul>", "", "</ul>", "",
		"<ol>", "", "</ol>", "",
		"<li>", "• ", "</li>", "\n",
	)
	html = replacer.Replace(html)

	// Strip anything Telegram's HTML parse mode does not support
	html = tagRe.ReplaceAllStringFunc(html, func(match string) string {
		if m := tagNameRe.FindStringSubmatch(match); len(m) > 1 && supportedTags[m[1]] {
			return match
		}
		return ""
	})

	html = newlinesRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
