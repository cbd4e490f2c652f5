package query

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tagExists = "EXISTS (SELECT 1 FROM note_tags nt JOIN tags t ON nt.tag_id = t.id WHERE nt.note_id = n.id AND t.name = ?)"

func TestCompile_Empty(t *testing.T) {
	pred, err := Compile("")
	require.NoError(t, err)
	assert.Nil(t, pred)

	assert.Nil(t, (&Compiler{}).Compile(nil))
}

func TestCompile_EmptyPhraseMatchesEverything(t *testing.T) {
	pred, err := Compile(`""`)
	require.NoError(t, err)
	assert.Nil(t, pred)

	pred, err = Compile(`foo AND ""`)
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, "((n.title LIKE ? OR n.content LIKE ?) AND (n.title LIKE ? OR n.content LIKE ?))", pred.Fragment)
	assert.Equal(t, []any{"%foo%", "%foo%", "%%", "%%"}, pred.Params)

	pred, err = Compile(`@tags:"" OR bar`)
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, []any{"", "%bar%", "%bar%"}, pred.Params)
}

func TestCompile_FieldPrefixes(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		fragment string
		params   []any
	}{
		{
			name:     "title",
			input:    "@title:plan",
			fragment: "n.title LIKE ?",
			params:   []any{"%plan%"},
		},
		{
			name:     "body",
			input:    "@body:draft",
			fragment: "n.content LIKE ?",
			params:   []any{"%draft%"},
		},
		{
			name:     "tags match exactly",
			input:    "@tags:work",
			fragment: tagExists,
			params:   []any{"work"},
		},
		{
			name:     "unprefixed searches title and content",
			input:    "foo",
			fragment: "(n.title LIKE ? OR n.content LIKE ?)",
			params:   []any{"%foo%", "%foo%"},
		},
		{
			name:     "unknown prefix falls back to substring match",
			input:    "@author:bob",
			fragment: "(n.title LIKE ? OR n.content LIKE ?)",
			params:   []any{"%@author:bob%", "%@author:bob%"},
		},
		{
			name:     "prefix is case sensitive",
			input:    "@TITLE:x",
			fragment: "(n.title LIKE ? OR n.content LIKE ?)",
			params:   []any{"%@TITLE:x%", "%@TITLE:x%"},
		},
		{
			name:     "minus negates",
			input:    "-foo",
			fragment: "NOT ((n.title LIKE ? OR n.content LIKE ?))",
			params:   []any{"%foo%", "%foo%"},
		},
		{
			name:     "quoted phrase under a prefix",
			input:    `@title:"project plan"`,
			fragment: "n.title LIKE ?",
			params:   []any{"%project plan%"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pred, err := Compile(tc.input)
			require.NoError(t, err)
			require.NotNil(t, pred)
			assert.Equal(t, tc.fragment, pred.Fragment)
			assert.Equal(t, tc.params, pred.Params)
		})
	}
}

func TestCompile_EndToEnd(t *testing.T) {
	pred, err := Compile(`@title:"project plan" AND -@tags:done`)
	require.NoError(t, err)

	assert.Equal(t, "(n.title LIKE ? AND NOT ("+tagExists+"))", pred.Fragment)
	assert.Equal(t, []any{"%project plan%", "done"}, pred.Params)
}

func TestCompile_NoInterpolation(t *testing.T) {
	dangerous := "'; DROP TABLE notes; --"
	pred, err := Compile(`"` + dangerous + `" OR @tags:x`)
	require.NoError(t, err)

	assert.NotContains(t, pred.Fragment, "DROP TABLE")
	assert.Contains(t, pred.Params, "%"+dangerous+"%")
	assert.Equal(t, strings.Count(pred.Fragment, "?"), len(pred.Params))
}

func TestCompile_CustomColumns(t *testing.T) {
	c := NewCompiler(Columns{Title: "title", Content: "body", NoteID: "notes.id"})
	node, err := Parse(Tokenize("x OR @tags:y"))
	require.NoError(t, err)

	pred := c.Compile(node)
	assert.Equal(t,
		"((title LIKE ? OR body LIKE ?) OR EXISTS (SELECT 1 FROM note_tags nt JOIN tags t ON nt.tag_id = t.id WHERE nt.note_id = notes.id AND t.name = ?))",
		pred.Fragment)
	assert.Equal(t, []any{"%x%", "%x%", "y"}, pred.Params)
}

func TestCompile_ParseErrorsPropagate(t *testing.T) {
	pred, err := Compile("(a AND b")
	assert.Nil(t, pred)
	assert.ErrorIs(t, err, ErrMismatchedParenthesis)
}

func TestPredicateClone(t *testing.T) {
	pred, err := Compile("foo")
	require.NoError(t, err)

	clone := pred.Clone()
	clone.Params[0] = "changed"
	_ = append(clone.Params, 1)

	assert.Equal(t, "%foo%", pred.Params[0])
	assert.Nil(t, (*Predicate)(nil).Clone())
}

func TestExplain(t *testing.T) {
	exp, err := (&Compiler{}).Explain("a -b")
	require.NoError(t, err)

	assert.Len(t, exp.Tokens, 3)
	assert.Equal(t, `And(Term("a"), Not(Term("b")))`, exp.Tree)
	require.NotNil(t, exp.Predicate)
	assert.Len(t, exp.Predicate.Params, 4)

	exp, err = (&Compiler{}).Explain("a AND")
	require.Error(t, err)
	assert.Len(t, exp.Tokens, 2)
	assert.Nil(t, exp.Predicate)
}

func TestCompile_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	testCases := []struct {
		name  string
		input string
	}{
		{"tags_exact", "@tags:work"},
		{"end_to_end", `@title:"project plan" AND -@tags:done`},
		{"grouped_or", "(go OR rust) AND NOT @body:draft"},
		{"precedence", "a OR b AND c"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pred, err := Compile(tc.input)
			require.NoError(t, err)
			g.Assert(t, tc.name, []byte(pred.String()+"\n"))
		})
	}
}
