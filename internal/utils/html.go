package utils

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

var skips = []string{
	"script", "style", "noscript", "svg", "iframe", "canvas", "nav", "footer", "form", "button", "input", "link", "meta",
}

// LooksLikeHTML reports whether raw is an HTML document rather than JSON or plain text.
func LooksLikeHTML(raw string) bool {
	head := strings.ToLower(strings.TrimSpace(raw))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") ||
		strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<body")
}

// HTMLText returns the visible text of an HTML page on a single line.
// Gateways in front of the completion API answer errors this way.
func HTMLText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}

	var title string
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteString(" ")
			return

		case html.ElementNode:
			tag := strings.ToLower(n.Data)
			if tag == "title" {
				if n.FirstChild != nil && title == "" {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
			if slices.Contains(skips, tag) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := strings.Join(strings.Fields(sb.String()), " ")
	if text == "" {
		return title
	}
	return text
}
