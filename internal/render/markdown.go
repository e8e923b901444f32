// Package render prepares assistant text for the word-by-word reveal.
package render

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

const listClass = "list-disc list-inside space-y-1 my-2"

// lineChar is any character that does not end a line. \r, U+2028 and U+2029
// end a line here as well as \n.
const lineChar = `[^\r\n\x{2028}\x{2029}]`

var (
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	boldRe       = regexp.MustCompile(`\*\*(` + lineChar + `*?)\*\*`)
	italicRe     = regexp.MustCompile(`\*(` + lineChar + `*?)\*`)
	bulletRe     = regexp.MustCompile(`(?m)^\* (` + lineChar + `*)`)
	listRe       = regexp.MustCompile(`(?s)<li>.*</li>`)
)

// CollapseBlankLines squeezes runs of three or more newlines down to one blank line.
func CollapseBlankLines(text string) string {
	return blankLinesRe.ReplaceAllString(text, "\n\n")
}

// Markdown converts the small subset the assistant uses: bold, italic and "* "
// bullets. Everything from the first list item to the last is wrapped in a single
// <ul>. The input is not escaped.
func Markdown(text string) string {
	text = boldRe.ReplaceAllString(text, "<strong>${1}</strong>")
	text = italicRe.ReplaceAllString(text, "<em>${1}</em>")
	text = bulletRe.ReplaceAllString(text, "<li>${1}</li>")
	return listRe.ReplaceAllStringFunc(text, func(match string) string {
		return `<ul class="` + listClass + `">` + match + `</ul>`
	})
}

// RevealWords splits text into the units revealed one at a time. With html set,
// the markdown pass runs first and each unit may carry markup.
func RevealWords(text string, html bool) []string {
	text = CollapseBlankLines(text)
	if html {
		text = Markdown(text)
	}
	return strings.Split(text, " ")
}

// Reveal writes words to w one by one, pausing delay between them.
func Reveal(ctx context.Context, w io.Writer, words []string, delay time.Duration) error {
	for i, word := range words {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if _, err := fmt.Fprint(w, word+" "); err != nil {
			return err
		}
	}
	return nil
}
