package query

import (
	"fmt"
	"strings"
)

// Columns maps the compiler's logical fields to SQL expressions. The
// compiled fragment references these verbatim; values are always bound.
type Columns struct {
	Title   string
	Content string
	NoteID  string // correlates the tag subquery with the outer row
}

// DefaultColumns matches the notes table aliased as "n".
var DefaultColumns = Columns{
	Title:   "n.title",
	Content: "n.content",
	NoteID:  "n.id",
}

// Predicate is a WHERE-clause fragment with "?" placeholders and the values
// to bind to them, in placeholder order.
type Predicate struct {
	Fragment string `json:"fragment" yaml:"fragment"`
	Params   []any  `json:"params" yaml:"params"`
}

// Clone returns a copy whose Params can be appended to without aliasing.
func (p *Predicate) Clone() *Predicate {
	if p == nil {
		return nil
	}
	params := make([]any, len(p.Params))
	copy(params, p.Params)
	return &Predicate{Fragment: p.Fragment, Params: params}
}

// String renders the fragment followed by its bound values.
func (p *Predicate) String() string {
	if p == nil {
		return "<no filter>"
	}
	vals := make([]string, len(p.Params))
	for i, v := range p.Params {
		vals[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("%s [%s]", p.Fragment, strings.Join(vals, ", "))
}

// fieldHandler compiles the remainder of a term after its prefix.
type fieldHandler struct {
	prefix string
	build  func(c *Compiler, term string) Predicate
}

// fieldHandlers is checked in order; the first matching prefix wins.
// Unprefixed terms fall through to Compiler.anyField.
var fieldHandlers = []fieldHandler{
	{prefix: "@title:", build: (*Compiler).titleField},
	{prefix: "@body:", build: (*Compiler).bodyField},
	{prefix: "@tags:", build: (*Compiler).tagField},
}

// Compiler turns expression trees into predicates. The zero value uses
// DefaultColumns. A Compiler holds no per-call state and is safe for
// concurrent use.
type Compiler struct {
	Columns Columns
}

// NewCompiler returns a compiler for the given column mapping.
func NewCompiler(cols Columns) *Compiler {
	return &Compiler{Columns: cols}
}

func (c *Compiler) columns() Columns {
	if c == nil || c.Columns == (Columns{}) {
		return DefaultColumns
	}
	return c.Columns
}

// Compile converts n into a predicate. A nil node yields nil.
func (c *Compiler) Compile(n Node) *Predicate {
	if n == nil {
		return nil
	}
	p := c.compile(n)
	return &p
}

func (c *Compiler) compile(n Node) Predicate {
	switch v := n.(type) {
	case Term:
		return c.compileTerm(v.Raw)
	case And:
		return c.binary("AND", v.Left, v.Right)
	case Or:
		return c.binary("OR", v.Left, v.Right)
	case Not:
		inner := c.compile(v.Operand)
		return Predicate{
			Fragment: "NOT (" + inner.Fragment + ")",
			Params:   inner.Params,
		}
	default:
		// unreachable: Node is sealed
		panic(fmt.Sprintf("query: unknown node type %T", n))
	}
}

// binary emits the left side before the right so params stay in
// placeholder order.
func (c *Compiler) binary(op string, left, right Node) Predicate {
	l := c.compile(left)
	r := c.compile(right)
	params := make([]any, 0, len(l.Params)+len(r.Params))
	params = append(params, l.Params...)
	params = append(params, r.Params...)
	return Predicate{
		Fragment: "(" + l.Fragment + " " + op + " " + r.Fragment + ")",
		Params:   params,
	}
}

func (c *Compiler) compileTerm(raw string) Predicate {
	for _, h := range fieldHandlers {
		if strings.HasPrefix(raw, h.prefix) {
			return h.build(c, raw[len(h.prefix):])
		}
	}
	return c.anyField(raw)
}

func (c *Compiler) titleField(term string) Predicate {
	return Predicate{
		Fragment: c.columns().Title + " LIKE ?",
		Params:   []any{contains(term)},
	}
}

func (c *Compiler) bodyField(term string) Predicate {
	return Predicate{
		Fragment: c.columns().Content + " LIKE ?",
		Params:   []any{contains(term)},
	}
}

// tagField matches the tag name exactly; no wildcards.
func (c *Compiler) tagField(term string) Predicate {
	return Predicate{
		Fragment: "EXISTS (SELECT 1 FROM note_tags nt JOIN tags t ON nt.tag_id = t.id" +
			" WHERE nt.note_id = " + c.columns().NoteID + " AND t.name = ?)",
		Params: []any{term},
	}
}

func (c *Compiler) anyField(term string) Predicate {
	cols := c.columns()
	return Predicate{
		Fragment: "(" + cols.Title + " LIKE ? OR " + cols.Content + " LIKE ?)",
		Params:   []any{contains(term), contains(term)},
	}
}

func contains(term string) string {
	return "%" + term + "%"
}

// ParamCount returns how many values a term binds: one for a recognized
// field prefix, two for an unprefixed term.
func ParamCount(t Term) int {
	for _, h := range fieldHandlers {
		if strings.HasPrefix(t.Raw, h.prefix) {
			return 1
		}
	}
	return 2
}
