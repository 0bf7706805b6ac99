// Package dom provides filtered traversal and small mutation helpers over
// golang.org/x/net/html node trees.
package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// A Filter reports whether the subtree rooted at n must be left out of a
// traversal. Filters never see the traversal root itself.
type Filter func(n *html.Node) bool

// WalkOptions is the set of parameters to [Walk].
type WalkOptions struct {
	// If Skip is not nil, nodes for which it returns true are not visited,
	// and neither are their descendants.
	Skip Filter
	// If Pre is not nil, it is called for each node before the node's children are traversed (pre-order).
	// If Pre returns false, no children are traversed, and Post is not called for that node.
	Pre func(n *html.Node) bool
	// If Post is not nil, it is called for each node after the node's children are traversed (post-order).
	// If Post returns false, traversal is terminated and Walk returns immediately.
	Post func(n *html.Node) bool
}

// Walk traverses the tree rooted at root in document order.
// The child list of a node is captured when the node is entered, so Pre may
// safely replace the node's children; later siblings are still visited.
func Walk(root *html.Node, opts *WalkOptions) {
	type walkFrame struct {
		node *html.Node
		post bool
	}

	stack := []walkFrame{{node: root}}
	var children []*html.Node
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if curr.post {
			if opts.Post != nil && !opts.Post(curr.node) {
				return
			}
			continue
		}

		if curr.node != root && opts.Skip != nil && opts.Skip(curr.node) {
			continue
		}
		if opts.Pre != nil && !opts.Pre(curr.node) {
			continue
		}
		curr.post = true
		stack = append(stack, curr)

		children = children[:0]
		for c := curr.node.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{node: children[i]})
		}
	}
}

// TextNodes returns the text nodes under root in document order, leaving out
// filtered subtrees. The result is a snapshot: callers may mutate the tree
// while iterating over it.
func TextNodes(root *html.Node, skip Filter) []*html.Node {
	var out []*html.Node
	Walk(root, &WalkOptions{
		Skip: skip,
		Pre: func(n *html.Node) bool {
			if n.Type == html.TextNode {
				out = append(out, n)
			}
			return true
		},
	})
	return out
}

// Elements returns the element nodes under root (root excluded) for which
// match returns true, leaving out filtered subtrees.
func Elements(root *html.Node, skip Filter, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(root, &WalkOptions{
		Skip: skip,
		Pre: func(n *html.Node) bool {
			if n != root && n.Type == html.ElementNode && match(n) {
				out = append(out, n)
			}
			return true
		},
	})
	return out
}

// AnyOf combines filters; a node is skipped if any filter skips it.
func AnyOf(filters ...Filter) Filter {
	return func(n *html.Node) bool {
		for _, f := range filters {
			if f != nil && f(n) {
				return true
			}
		}
		return false
	}
}

// SkipTags skips elements with any of the given tag atoms.
func SkipTags(tags ...atom.Atom) Filter {
	set := make(map[atom.Atom]bool, len(tags))
	for _, a := range tags {
		set[a] = true
	}
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && set[n.DataAtom]
	}
}

// SkipIDs skips elements whose id attribute is one of ids.
func SkipIDs(ids ...string) Filter {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		id, ok := Attr(n, "id")
		return ok && set[id]
	}
}

// SkipNonContent skips elements whose text never renders as page content
// or must not be rewritten: scripts, styles, templates and form text.
var SkipNonContent = SkipTags(atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Textarea)
