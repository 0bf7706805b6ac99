package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
)

// Parse parses a full HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.NewParse("HTML", "", err)
	}
	return doc, nil
}

// Render serialises n to a string.
func Render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Body returns the <body> element of a parsed document. Documents that are
// not HTML pages (framesets, bare XML) have no body and yield ErrNoBody.
func Body(doc *html.Node) (*html.Node, error) {
	var body *html.Node
	Walk(doc, &WalkOptions{
		Pre: func(n *html.Node) bool {
			if body != nil {
				return false
			}
			if n.Type == html.ElementNode && n.DataAtom == atom.Body {
				body = n
				return false
			}
			return true
		},
	})
	if body == nil {
		return nil, &errors.UnsupportedError{Feature: "document", Reason: "no <body> element", Err: errors.ErrNoBody}
	}
	return body, nil
}

// FindByID returns the first element under root with the given id.
func FindByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	Walk(root, &WalkOptions{
		Pre: func(n *html.Node) bool {
			if found != nil {
				return false
			}
			if n.Type == html.ElementNode {
				if v, ok := Attr(n, "id"); ok && v == id {
					found = n
					return false
				}
			}
			return true
		},
	})
	return found
}

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the attribute key on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether n's class attribute contains class.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// NewElement creates a detached element with the given attributes,
// given as key/value pairs.
func NewElement(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// TextContent concatenates the text of every descendant text node.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	Walk(n, &WalkOptions{
		Pre: func(c *html.Node) bool {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
			return true
		},
	})
	return sb.String()
}

// Replace puts replacements where old is, in order, and detaches old.
func Replace(old *html.Node, replacements ...*html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	for _, r := range replacements {
		parent.InsertBefore(r, old)
	}
	parent.RemoveChild(old)
}

// Remove detaches n from its parent, if any.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
