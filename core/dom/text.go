package dom

import (
	"regexp"
	"strings"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

var snapshotReplacer = bytereplacer.New(
	"\r\n", "\n",
	"\r", "\n",
	"\u00a0", " ",
)

// blockAtoms are elements that start a new line in rendered text.
var blockAtoms = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Details: true, atom.Dialog: true, atom.Div: true,
	atom.Dl: true, atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Summary: true,
	atom.Table: true, atom.Tr: true, atom.Ul: true, atom.Caption: true,
}

// cellAtoms are separated by a tab, like table cells in rendered text.
var cellAtoms = map[atom.Atom]bool{atom.Td: true, atom.Th: true}

// Snapshot returns an approximation of the rendered plain text of root,
// like a browser's innerText: filtered subtrees are left out, block
// elements are separated by newlines and whitespace outside <pre> is
// collapsed. Words in neighbouring blocks never run together.
func Snapshot(root *html.Node, skip Filter) string {
	var sb strings.Builder
	pre := 0
	sep := func(s string) {
		if sb.Len() == 0 {
			return
		}
		sb.WriteString(s)
	}
	Walk(root, &WalkOptions{
		Skip: AnyOf(SkipNonContent, skip),
		Pre: func(n *html.Node) bool {
			switch n.Type {
			case html.TextNode:
				text := n.Data
				if pre == 0 {
					text = whitespaceRE.ReplaceAllString(text, " ")
				}
				sb.WriteString(text)
			case html.ElementNode:
				if n.DataAtom == atom.Pre {
					pre++
				}
				if blockAtoms[n.DataAtom] {
					sep("\n")
				} else if cellAtoms[n.DataAtom] {
					sep("\t")
				}
			}
			return true
		},
		Post: func(n *html.Node) bool {
			if n.Type == html.ElementNode {
				if n.DataAtom == atom.Pre {
					pre--
				}
				if blockAtoms[n.DataAtom] {
					sep("\n")
				}
			}
			return true
		},
	})
	out := snapshotReplacer.Replace([]byte(sb.String()))
	return strings.TrimSpace(string(out))
}
