package query

import "fmt"

// ErrorKind categorizes parse failures.
type ErrorKind string

const (
	// KindMismatchedParenthesis: an opening paren was never closed, or a
	// closing paren has no opener.
	KindMismatchedParenthesis ErrorKind = "MISMATCHED_PARENTHESIS"

	// KindUnexpectedEndOfInput: an operand was expected but the input ended.
	KindUnexpectedEndOfInput ErrorKind = "UNEXPECTED_END_OF_INPUT"
)

// Sentinels for errors.Is; a *ParseError matches the sentinel of its kind.
var (
	ErrMismatchedParenthesis = &ParseError{Kind: KindMismatchedParenthesis, Msg: "mismatched parenthesis"}
	ErrUnexpectedEndOfInput  = &ParseError{Kind: KindUnexpectedEndOfInput, Msg: "unexpected end of input"}
)

// ParseError is returned by Parse for malformed queries. Pos is the index of
// the offending token, or the token count when the input ended early.
type ParseError struct {
	Kind ErrorKind
	Pos  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (at token %d)", e.Msg, e.Pos)
}

// Is matches any ParseError of the same kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

func mismatchedParen(pos int, msg string) *ParseError {
	return &ParseError{Kind: KindMismatchedParenthesis, Pos: pos, Msg: msg}
}

func unexpectedEnd(pos int, msg string) *ParseError {
	return &ParseError{Kind: KindUnexpectedEndOfInput, Pos: pos, Msg: msg}
}
