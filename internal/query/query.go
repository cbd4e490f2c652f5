// Package query compiles the note search language into SQL filters.
//
// The language supports bare words, quoted phrases, the field prefixes
// @title:, @body: and @tags:, the operators AND, OR and NOT (case-insensitive,
// with "-" as a prefix alias for NOT), and parentheses. Operands written side
// by side with no operator between them are joined with AND, so "a b" means
// "a AND b". An empty phrase "" is an operand that matches every note; a
// query made only of empty phrases applies no filter. Compilation runs in
// three stages, each a pure function:
//
//	Tokenize(string) -> []Token -> Parse -> Node -> Compiler.Compile -> *Predicate
//
// The resulting fragment is meant to be ANDed with the caller's own filters;
// its Params must be bound positionally in order.
package query

// Compile runs the full pipeline with DefaultColumns. It returns a nil
// predicate when the query contains nothing to filter on.
func Compile(raw string) (*Predicate, error) {
	node, err := Parse(Tokenize(raw))
	if err != nil {
		return nil, err
	}
	return (&Compiler{}).Compile(node), nil
}

// Explanation captures every stage of compiling a query.
type Explanation struct {
	Query     string     `json:"query" yaml:"query"`
	Tokens    []Token    `json:"tokens" yaml:"tokens"`
	Tree      string     `json:"tree,omitempty" yaml:"tree,omitempty"`
	Predicate *Predicate `json:"predicate,omitempty" yaml:"predicate,omitempty"`
}

// Explain compiles raw with c and records the intermediate stages.
func (c *Compiler) Explain(raw string) (*Explanation, error) {
	tokens := Tokenize(raw)
	exp := &Explanation{Query: raw, Tokens: tokens}

	node, err := Parse(tokens)
	if err != nil {
		return exp, err
	}
	if node != nil {
		exp.Tree = node.String()
	}
	exp.Predicate = c.Compile(node)
	return exp, nil
}
