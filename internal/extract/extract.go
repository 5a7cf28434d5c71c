// Package extract turns documents (HTML, markdown, plain text) into ordered
// paragraph lists suitable for synthesis and timeline estimation.
package extract

import (
	"fmt"
	"io"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/readalongapp/readalong-server/internal/timeline"
)

// minParagraphRunes filters boilerplate fragments (button labels, nav items)
// that survive the element filter. Headings are kept regardless.
const minParagraphRunes = 3

// blockTags are the elements treated as paragraph boundaries.
var blockTags = map[string]bool{
	"p": true, "li": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"td": true, "figcaption": true, "dd": true, "dt": true,
}

// skipTags subtrees never contribute readable text.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "button": true, "svg": true, "iframe": true,
}

// headingTags keep short text that minParagraphRunes would otherwise drop.
var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// FromHTML parses an HTML document and returns its readable paragraphs in
// document order.
func FromHTML(r io.Reader) ([]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var paragraphs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if blockTags[n.Data] {
				text := normalizeText(collectText(n))
				if text != "" && (headingTags[n.Data] || len([]rune(text)) >= minParagraphRunes) {
					paragraphs = append(paragraphs, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return paragraphs, nil
}

// MarkdownFromHTML converts an HTML document to markdown. Used when a client
// imports a page and wants the readable-text rendition stored alongside the
// paragraphs.
func MarkdownFromHTML(htmlSrc string) (string, error) {
	md, err := htmltomarkdown.ConvertString(htmlSrc)
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return md, nil
}

// FromMarkdown splits markdown into paragraphs on blank lines, stripping
// heading markers and list bullets so the text reads naturally aloud.
func FromMarkdown(md string) []string {
	var paragraphs []string
	for _, block := range splitBlocks(md) {
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = stripMarkdownPrefix(strings.TrimSpace(line))
		}
		text := normalizeText(strings.Join(lines, " "))
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs
}

// FromPlainText splits plain text into paragraphs on blank lines.
func FromPlainText(text string) []string {
	var paragraphs []string
	for _, block := range splitBlocks(text) {
		p := normalizeText(strings.ReplaceAll(block, "\n", " "))
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// WordCount returns the total word count across paragraphs, the same unit
// the timeline estimator allocates by.
func WordCount(paragraphs []string) int {
	total := 0
	for _, p := range paragraphs {
		total += timeline.WordCount(p)
	}
	return total
}

// splitBlocks splits text on runs of blank lines.
func splitBlocks(text string) []string {
	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// stripMarkdownPrefix removes heading, list, and quote markers from a line.
func stripMarkdownPrefix(line string) string {
	line = strings.TrimLeft(line, "#")
	line = strings.TrimPrefix(line, ">")
	trimmed := strings.TrimSpace(line)
	for _, bullet := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(trimmed, bullet) {
			return strings.TrimSpace(trimmed[len(bullet):])
		}
	}
	return trimmed
}

// collectText concatenates the text nodes under n, skipping excluded
// subtrees.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// normalizeText collapses whitespace and applies NFC so provider output and
// extracted text compare consistently during alignment.
func normalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
