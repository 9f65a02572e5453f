package parse

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gofin/zander/grammar"
	"github.com/gofin/zander/lalr"
	"github.com/gofin/zander/lex"
	"github.com/gofin/zander/lr0"
	"github.com/gofin/zander/table"
)

// fakeStream is a TokenStream over a fixed, pre-lexed slice of tokens, used
// so parser tests don't need a real Lexer wired up.
type fakeStream struct {
	toks []lex.Token
	pos  int
}

func newFakeStream(toks []lex.Token) *fakeStream {
	return &fakeStream{toks: toks}
}

func (f *fakeStream) Next() lex.Token {
	tok := f.Peek()
	if f.pos < len(f.toks) {
		f.pos++
	}
	return tok
}

func (f *fakeStream) Peek() lex.Token {
	if f.pos >= len(f.toks) {
		return lex.Token{Name: lex.EndOfText}
	}
	return f.toks[f.pos]
}

func (f *fakeStream) HasNext() bool {
	return f.pos < len(f.toks)
}

func tok(name, value string) lex.Token {
	return lex.Token{Name: name, Value: value}
}

func buildArithParser(t *testing.T) *Parser {
	t.Helper()
	g := grammar.New([]string{"PLUS", "TIMES", "NUMBER"})
	assert.NoError(t, g.SetPrecedence("PLUS", grammar.AssocLeft, 1))
	assert.NoError(t, g.SetPrecedence("TIMES", grammar.AssocLeft, 2))

	sum := func(symbols []interface{}, state interface{}) (interface{}, error) {
		return symbols[0].(int) + symbols[2].(int), nil
	}
	product := func(symbols []interface{}, state interface{}) (interface{}, error) {
		return symbols[0].(int) * symbols[2].(int), nil
	}
	passthrough := func(symbols []interface{}, state interface{}) (interface{}, error) {
		return symbols[0], nil
	}
	number := func(symbols []interface{}, state interface{}) (interface{}, error) {
		return strconv.Atoi(symbols[0].(lex.Token).Value)
	}

	_, err := g.AddProduction("expr", []string{"expr", "PLUS", "term"}, sum, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("expr", []string{"term"}, passthrough, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("term", []string{"term", "TIMES", "factor"}, product, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("term", []string{"factor"}, passthrough, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("factor", []string{"NUMBER"}, number, "")
	assert.NoError(t, err)

	assert.NoError(t, g.Build())
	col, err := lr0.Build(g)
	assert.NoError(t, err)
	look := lalr.Compute(g, col)
	tbl, _, err := table.Build(g, col, look)
	assert.NoError(t, err)

	return New(tbl)
}

func Test_Parse_respectsPrecedenceOverShape(t *testing.T) {
	p := buildArithParser(t)

	// "2 + 3 * 4" must parse as 2 + (3*4) = 14, not (2+3)*4 = 20, since
	// TIMES binds tighter than PLUS.
	stream := newFakeStream([]lex.Token{
		tok("NUMBER", "2"), tok("PLUS", ""), tok("NUMBER", "3"), tok("TIMES", ""), tok("NUMBER", "4"),
	})

	v, err := p.Parse(stream, nil)
	assert.NoError(t, err)
	assert.Equal(t, 14, v)
}

func Test_Parse_leftAssociativity(t *testing.T) {
	p := buildArithParser(t)

	// "10 + 2 + 3" must parse as (10+2)+3 = 15 under left associativity
	// (the only shape that matters here since + is also commutative/
	// associative arithmetically, but the grammar must not get stuck).
	stream := newFakeStream([]lex.Token{
		tok("NUMBER", "10"), tok("PLUS", ""), tok("NUMBER", "2"), tok("PLUS", ""), tok("NUMBER", "3"),
	})

	v, err := p.Parse(stream, nil)
	assert.NoError(t, err)
	assert.Equal(t, 15, v)
}

func Test_Parse_threadsStateThroughActions(t *testing.T) {
	g := grammar.New([]string{"NUMBER"})
	var seenState []interface{}
	number := func(symbols []interface{}, state interface{}) (interface{}, error) {
		seenState = append(seenState, state)
		return symbols[0], nil
	}
	_, err := g.AddProduction("expr", []string{"NUMBER"}, number, "")
	assert.NoError(t, err)
	assert.NoError(t, g.Build())
	col, err := lr0.Build(g)
	assert.NoError(t, err)
	look := lalr.Compute(g, col)
	tbl, _, err := table.Build(g, col, look)
	assert.NoError(t, err)

	p := New(tbl)
	type symtab struct{ name string }
	want := &symtab{name: "scope"}

	stream := newFakeStream([]lex.Token{tok("NUMBER", "5")})
	_, err = p.Parse(stream, want)
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{want}, seenState)
}

func Test_Parse_shiftedTerminalIsFullToken(t *testing.T) {
	// spec.md §8 scenario 1: terminals [VALUE], rule "main : VALUE";
	// the action must receive the full matched lex.Token, not just its
	// Value string, and the parser yields that Token back unchanged.
	g := grammar.New([]string{"VALUE"})
	identity := func(symbols []interface{}, state interface{}) (interface{}, error) {
		return symbols[0], nil
	}
	_, err := g.AddProduction("main", []string{"VALUE"}, identity, "")
	assert.NoError(t, err)
	assert.NoError(t, g.Build())
	col, err := lr0.Build(g)
	assert.NoError(t, err)
	look := lalr.Compute(g, col)
	tbl, _, err := table.Build(g, col, look)
	assert.NoError(t, err)

	p := New(tbl)
	want := tok("VALUE", "abc")
	stream := newFakeStream([]lex.Token{want})

	v, err := p.Parse(stream, nil)
	assert.NoError(t, err)
	assert.Equal(t, want, v)
}

func Test_Parse_rejectsUnexpectedToken(t *testing.T) {
	p := buildArithParser(t)

	stream := newFakeStream([]lex.Token{tok("PLUS", "")})
	_, err := p.Parse(stream, nil)
	assert.Error(t, err)
}

func Test_Parse_epsilonStartProduction(t *testing.T) {
	g := grammar.New([]string{"NUMBER"})
	_, err := g.AddProduction("main", nil, func(symbols []interface{}, state interface{}) (interface{}, error) {
		return "empty", nil
	}, "")
	assert.NoError(t, err)
	assert.NoError(t, g.Build())
	col, err := lr0.Build(g)
	assert.NoError(t, err)
	look := lalr.Compute(g, col)
	tbl, _, err := table.Build(g, col, look)
	assert.NoError(t, err)

	p := New(tbl)
	stream := newFakeStream(nil)
	v, err := p.Parse(stream, nil)
	assert.NoError(t, err)
	assert.Equal(t, "empty", v)
}
