package knowledge

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(` {2,}`)
	contentClassPattern = regexp.MustCompile(`(?i)content|main|article|body`)
)

// boilerplate elements never contribute page text.
var boilerplate = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "noscript": true, "iframe": true,
}

// StripHTML returns the text of an HTML fragment, words separated by single spaces.
func StripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(textNodes(doc), " ")
}

// textNodes collects trimmed, non-empty text nodes in document order.
func textNodes(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// removeBoilerplate detaches navigation, scripts and similar elements from the tree.
func removeBoilerplate(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && boilerplate[c.Data] {
			n.RemoveChild(c)
		} else {
			removeBoilerplate(c)
		}
		c = next
	}
}

// findFirst returns the first element in document order matching pred.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func isTag(name string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == name }
}

// mainContent picks the most specific content container of the page.
func mainContent(doc *html.Node) *html.Node {
	preds := []func(*html.Node) bool{
		isTag("main"),
		isTag("article"),
		func(n *html.Node) bool { return n.Data == "div" && getAttr(n, "role") == "main" },
		func(n *html.Node) bool {
			if n.Data != "div" {
				return false
			}
			for _, class := range strings.Fields(getAttr(n, "class")) {
				if contentClassPattern.MatchString(class) {
					return true
				}
			}
			return false
		},
		isTag("body"),
	}
	for _, pred := range preds {
		if n := findFirst(doc, pred); n != nil {
			return n
		}
	}
	return nil
}

// pageTitle returns the trimmed text of the first <title> element.
func pageTitle(doc *html.Node) string {
	t := findFirst(doc, isTag("title"))
	if t == nil {
		return ""
	}
	return strings.Join(textNodes(t), "")
}

// cleanText collapses runs of blank lines and spaces.
func cleanText(s string) string {
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	return multiSpacePattern.ReplaceAllString(s, " ")
}
