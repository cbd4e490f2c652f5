package query

import (
	"fmt"
	"strings"
)

// Node is a boolean expression tree node.
//
// This is a sealed interface: only Term, And, Or and Not implement it, so a
// type switch over those four variants is exhaustive.
type Node interface {
	node()
	String() string
}

// Term is a leaf holding the literal text of a word or phrase, including any
// field prefix such as @title:.
type Term struct {
	Raw string
}

// And matches when both sides match.
type And struct {
	Left  Node
	Right Node
}

// Or matches when either side matches.
type Or struct {
	Left  Node
	Right Node
}

// Not negates its operand.
type Not struct {
	Operand Node
}

func (Term) node() {}
func (And) node()  {}
func (Or) node()   {}
func (Not) node()  {}

func (t Term) String() string { return fmt.Sprintf("Term(%q)", t.Raw) }
func (a And) String() string  { return fmt.Sprintf("And(%s, %s)", a.Left, a.Right) }
func (o Or) String() string   { return fmt.Sprintf("Or(%s, %s)", o.Left, o.Right) }
func (n Not) String() string  { return fmt.Sprintf("Not(%s)", n.Operand) }

// Walk visits the tree depth-first, left before right. If fn returns false
// the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case And:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case Or:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case Not:
		Walk(v.Operand, fn)
	}
}

// Terms returns the leaves of the tree in left-to-right order.
func Terms(n Node) []Term {
	var terms []Term
	Walk(n, func(n Node) bool {
		if t, ok := n.(Term); ok {
			terms = append(terms, t)
		}
		return true
	})
	return terms
}

// Format renders the tree as an indented outline, one node per line.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n, 0)
	return b.String()
}

func format(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case nil:
		b.WriteString(indent + "<empty>\n")
	case Term:
		fmt.Fprintf(b, "%s%q\n", indent, v.Raw)
	case And:
		b.WriteString(indent + "AND\n")
		format(b, v.Left, depth+1)
		format(b, v.Right, depth+1)
	case Or:
		b.WriteString(indent + "OR\n")
		format(b, v.Left, depth+1)
		format(b, v.Right, depth+1)
	case Not:
		b.WriteString(indent + "NOT\n")
		format(b, v.Operand, depth+1)
	}
}
