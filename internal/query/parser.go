package query

// parser is a recursive-descent parser over an immutable token slice. It
// only advances an index, so the input can be shared and re-parsed freely.
type parser struct {
	tokens []Token
	pos    int
	depth  int // open parentheses
}

// Parse builds an expression tree from tokens. A sequence that is empty, or
// holds nothing but empty phrases, yields a nil Node and no error, meaning no
// filter applies. Elsewhere an empty phrase is an ordinary operand, Term(""),
// which matches every note.
//
// Precedence from tightest to loosest: NOT (or a leading "-"), AND, OR.
// Adjacent operands without an operator are joined with AND.
func Parse(tokens []Token) (Node, error) {
	if onlyEmptyPhrases(tokens) {
		return nil, nil
	}
	p := &parser{tokens: tokens}

	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if tok, ok := p.peek(); ok {
		// parseAnd consumes everything that can start an operand, so the
		// only thing that can be left over is an unmatched ")".
		return nil, mismatchedParen(p.pos, "unexpected "+tok.String()+" without matching (")
	}

	return expr, nil
}

func onlyEmptyPhrases(tokens []Token) bool {
	for _, t := range tokens {
		if t.Kind != TokenPhrase || t.Text != "" {
			return false
		}
	}
	return true
}

func (p *parser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

// parseOr handles OR chains (lowest precedence).
func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peek()
		if !ok || tok.Kind != TokenOr {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
}

// parseAnd handles explicit and implicit AND chains.
func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peek()
		if !ok {
			return left, nil
		}
		switch {
		case tok.Kind == TokenAnd:
			p.pos++
		case tok.isOperandStart():
			// implicit AND
		default:
			return left, nil
		}
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
}

// parseOperand handles parenthesized groups, negation and terms.
func (p *parser) parseOperand() (Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, unexpectedEnd(p.pos, "expected a search term")
	}

	switch tok.Kind {
	case TokenLParen:
		open := p.pos - 1
		p.depth++
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.Kind != TokenRParen {
			return nil, mismatchedParen(open, "missing ) for ( opened")
		}
		p.depth--
		return expr, nil

	case TokenRParen:
		if p.depth > 0 {
			// the group closed where an operand was required, e.g. "()"
			return nil, unexpectedEnd(p.pos-1, "expected a search term before )")
		}
		return nil, mismatchedParen(p.pos-1, "unexpected ) without matching (")

	case TokenNot, TokenMinus:
		operand, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return Not{Operand: operand}, nil

	default:
		// Words, phrases, and a stray AND/OR where an operand belongs are
		// all searched for literally.
		return Term{Raw: tok.Text}, nil
	}
}
