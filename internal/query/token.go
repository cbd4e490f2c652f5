package query

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenKind represents the type of a lexical token.
type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenPhrase
	TokenLParen
	TokenRParen
	TokenAnd
	TokenOr
	TokenNot
	TokenMinus // "-" prefix, alias for NOT in operand position
)

var tokenKindNames = map[TokenKind]string{
	TokenWord:   "WORD",
	TokenPhrase: "PHRASE",
	TokenLParen: "LPAREN",
	TokenRParen: "RPAREN",
	TokenAnd:    "AND",
	TokenOr:     "OR",
	TokenNot:    "NOT",
	TokenMinus:  "MINUS",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexical token. Text holds the literal content for words
// and phrases; phrases have their quotes stripped.
type Token struct {
	Kind TokenKind `json:"kind" yaml:"kind"`
	Text string    `json:"text" yaml:"text"`
}

func (t Token) String() string {
	switch t.Kind {
	case TokenWord:
		return t.Text
	case TokenPhrase:
		return fmt.Sprintf("%q", t.Text)
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenMinus:
		return "-"
	default:
		return t.Kind.String()
	}
}

// isOperandStart reports whether the token can begin an operand.
func (t Token) isOperandStart() bool {
	switch t.Kind {
	case TokenWord, TokenPhrase, TokenLParen, TokenNot, TokenMinus:
		return true
	}
	return false
}

// Tokenize splits a raw query into tokens. It never fails: an unterminated
// quote is closed at end of input.
//
// Quoting is resolved before anything else, so parentheses, whitespace and
// keywords inside quotes are literal. Text accumulated immediately before an
// opening quote (for example a field prefix like @title:) becomes part of the
// phrase.
func Tokenize(q string) []Token {
	var (
		tokens   []Token
		buf      strings.Builder
		inQuotes bool
		// prefix is the buffer content that preceded the opening quote
		prefix string
	)

	flushWord := func() {
		if buf.Len() == 0 {
			return
		}
		tokens = appendWord(tokens, strings.TrimSpace(buf.String()))
		buf.Reset()
	}

	for _, r := range q {
		if r == '"' {
			if !inQuotes {
				prefix = buf.String()
				buf.Reset()
				inQuotes = true
				continue
			}
			tokens = appendPhrase(tokens, prefix, buf.String())
			prefix = ""
			buf.Reset()
			inQuotes = false
			continue
		}

		if inQuotes {
			buf.WriteRune(r)
			continue
		}

		switch {
		case r == '(':
			flushWord()
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "("})
		case r == ')':
			flushWord()
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")"})
		case unicode.IsSpace(r):
			flushWord()
		default:
			buf.WriteRune(r)
		}
	}

	if inQuotes {
		tokens = appendPhrase(tokens, prefix, buf.String())
	} else {
		flushWord()
	}

	return tokens
}

// appendWord classifies a bare word and appends the resulting token(s).
// Every word starts at an operand boundary (start of input, whitespace, a
// paren or a closing quote), so a leading "-" is always a NOT alias; a "-"
// later in the word stays literal.
func appendWord(tokens []Token, word string) []Token {
	if word == "" {
		return tokens
	}

	switch strings.ToUpper(word) {
	case "AND":
		return append(tokens, Token{Kind: TokenAnd, Text: word})
	case "OR":
		return append(tokens, Token{Kind: TokenOr, Text: word})
	case "NOT":
		return append(tokens, Token{Kind: TokenNot, Text: word})
	}

	if word == "-" {
		return append(tokens, Token{Kind: TokenMinus, Text: "-"})
	}
	if strings.HasPrefix(word, "-") {
		tokens = append(tokens, Token{Kind: TokenMinus, Text: "-"})
		return append(tokens, Token{Kind: TokenWord, Text: word[1:]})
	}

	return append(tokens, Token{Kind: TokenWord, Text: word})
}

// appendPhrase emits a phrase token. The phrase is emitted even when empty.
func appendPhrase(tokens []Token, prefix, body string) []Token {
	prefix = strings.TrimLeftFunc(prefix, unicode.IsSpace)
	if strings.HasPrefix(prefix, "-") {
		tokens = append(tokens, Token{Kind: TokenMinus, Text: "-"})
		prefix = prefix[1:]
	}
	text := strings.TrimSpace(prefix + body)
	return append(tokens, Token{Kind: TokenPhrase, Text: text})
}
