package zander

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gofin/zander/grammar"
	"github.com/gofin/zander/lex"
)

func buildCalculator(t *testing.T) *Parser {
	t.Helper()

	pg, err := NewParserGenerator(
		[]string{"NUMBER", "PLUS", "MINUS", "TIMES"},
		WithPrecedence(
			PrecedenceDecl{Assoc: grammar.AssocLeft, Terms: []string{"PLUS", "MINUS"}},
			PrecedenceDecl{Assoc: grammar.AssocLeft, Terms: []string{"TIMES"}},
			PrecedenceDecl{Assoc: grammar.AssocRight, Terms: []string{"UMINUS"}},
		),
	)
	assert.NoError(t, err)

	sum := func(s []interface{}, state interface{}) (interface{}, error) {
		return s[0].(int) + s[2].(int), nil
	}
	diff := func(s []interface{}, state interface{}) (interface{}, error) {
		return s[0].(int) - s[2].(int), nil
	}
	product := func(s []interface{}, state interface{}) (interface{}, error) {
		return s[0].(int) * s[2].(int), nil
	}
	negate := func(s []interface{}, state interface{}) (interface{}, error) {
		return -s[1].(int), nil
	}
	passthrough := func(s []interface{}, state interface{}) (interface{}, error) {
		return s[0], nil
	}
	number := func(s []interface{}, state interface{}) (interface{}, error) {
		return strconv.Atoi(s[0].(lex.Token).Value)
	}

	assert.NoError(t, pg.Production("expr : expr PLUS term", sum))
	assert.NoError(t, pg.Production("expr : expr MINUS term", diff))
	assert.NoError(t, pg.Production("expr : term", passthrough))
	assert.NoError(t, pg.Production("term : term TIMES factor", product))
	assert.NoError(t, pg.Production("term : factor", passthrough))
	assert.NoError(t, pg.Production("factor : MINUS factor", negate, "UMINUS"))
	assert.NoError(t, pg.Production("factor : NUMBER", number))

	p, warnings, err := pg.Build()
	assert.NoError(t, err)
	assert.Empty(t, warnings)
	return p
}

func buildCalculatorLexer(t *testing.T) *lex.Template {
	t.Helper()
	lg := NewLexerGenerator()
	assert.NoError(t, lg.Ignore(lex.DefaultState, `\s+`))
	assert.NoError(t, lg.Add(lex.DefaultState, `[0-9]+`, lex.Emit("NUMBER")))
	assert.NoError(t, lg.Add(lex.DefaultState, `\+`, lex.Emit("PLUS")))
	assert.NoError(t, lg.Add(lex.DefaultState, `-`, lex.Emit("MINUS")))
	assert.NoError(t, lg.Add(lex.DefaultState, `\*`, lex.Emit("TIMES")))

	tmpl, err := lg.Build()
	assert.NoError(t, err)
	return tmpl
}

func Test_Calculator_precedenceAndAssociativity(t *testing.T) {
	p := buildCalculator(t)
	tmpl := buildCalculatorLexer(t)

	cases := []struct {
		input  string
		expect int
	}{
		{"2 + 3 * 4", 14},
		{"10 - 2 - 3", 5},
		{"-5 + 2", -3},
		{"3 * -2", -6},
	}

	for _, tc := range cases {
		stream, err := tmpl.Lex(strings.NewReader(tc.input))
		assert.NoError(t, err)

		v, err := p.Parse(stream, nil)
		assert.NoError(t, err, tc.input)
		assert.Equal(t, tc.expect, v, tc.input)
	}
}

func Test_ValuesListWithEpsilonTermination(t *testing.T) {
	pg, err := NewParserGenerator([]string{"NUMBER", "COMMA"})
	assert.NoError(t, err)

	var collected []int
	value := func(s []interface{}, state interface{}) (interface{}, error) {
		n, err := strconv.Atoi(s[0].(lex.Token).Value)
		if err != nil {
			return nil, err
		}
		collected = append(collected, n)
		return n, nil
	}
	rest := func(s []interface{}, state interface{}) (interface{}, error) { return nil, nil }
	none := func(s []interface{}, state interface{}) (interface{}, error) { return nil, nil }
	main := func(s []interface{}, state interface{}) (interface{}, error) { return nil, nil }

	assert.NoError(t, pg.Production("main : values", main))
	assert.NoError(t, pg.Production("values : NUMBER rest", value))
	assert.NoError(t, pg.Production("rest : COMMA NUMBER rest", rest))
	assert.NoError(t, pg.Production("rest : none", none))
	assert.NoError(t, pg.Production("none : ", none))

	p, _, err := pg.Build()
	assert.NoError(t, err)

	lg := NewLexerGenerator()
	assert.NoError(t, lg.Ignore(lex.DefaultState, `\s+`))
	assert.NoError(t, lg.Add(lex.DefaultState, `[0-9]+`, lex.Emit("NUMBER")))
	assert.NoError(t, lg.Add(lex.DefaultState, `,`, lex.Emit("COMMA")))
	tmpl, err := lg.Build()
	assert.NoError(t, err)

	stream, err := tmpl.Lex(strings.NewReader("1"))
	assert.NoError(t, err)

	_, err = p.Parse(stream, nil)
	assert.NoError(t, err)
	assert.Equal(t, []int{1}, collected)
}

func Test_Parse_pipeAlternativesProduceOneProductionEach(t *testing.T) {
	pg, err := NewParserGenerator([]string{"A", "B"})
	assert.NoError(t, err)

	noop := func(s []interface{}, state interface{}) (interface{}, error) { return nil, nil }
	assert.NoError(t, pg.Production("start : A | B", noop))

	p, _, err := pg.Build()
	assert.NoError(t, err)

	assert.Equal(t, 3, p.Grammar.NumProductions()) // augmented + 2 alternatives
}

func Test_Parse_missingErrorHandlerReturnsParsingError(t *testing.T) {
	p := buildCalculator(t)
	tmpl := buildCalculatorLexer(t)

	stream, err := tmpl.Lex(strings.NewReader("2 +"))
	assert.NoError(t, err)

	_, err = p.Parse(stream, nil)
	assert.Error(t, err)
}

func Test_ParserGenerator_errorHandlerMustAbort(t *testing.T) {
	pg, err := NewParserGenerator([]string{"NUMBER"})
	assert.NoError(t, err)
	noop := func(s []interface{}, state interface{}) (interface{}, error) { return nil, nil }
	assert.NoError(t, pg.Production("expr : NUMBER", noop))

	var handlerCalled bool
	pg.Error(func(err error) {
		handlerCalled = true
		// contract requires the handler to abort; returning normally (as
		// this test does) is a violation that must surface as an error.
	})

	p, _, err := pg.Build()
	assert.NoError(t, err)

	lg := NewLexerGenerator()
	assert.NoError(t, lg.Add(lex.DefaultState, `[0-9]+`, lex.Emit("NUMBER")))
	tmpl, err := lg.Build()
	assert.NoError(t, err)

	stream, err := tmpl.Lex(strings.NewReader(""))
	assert.NoError(t, err)

	_, err = p.Parse(stream, nil)
	assert.Error(t, err)
	assert.True(t, handlerCalled)
}
