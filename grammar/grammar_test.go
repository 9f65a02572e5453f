package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildExprGrammar(t *testing.T) *Grammar {
	t.Helper()
	g := New([]string{"NUMBER", "PLUS", "TIMES", "LPAREN", "RPAREN"})
	noop := func(symbols []interface{}, state interface{}) (interface{}, error) { return nil, nil }

	_, err := g.AddProduction("expr", []string{"expr", "PLUS", "term"}, noop, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("expr", []string{"term"}, noop, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("term", []string{"term", "TIMES", "factor"}, noop, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("term", []string{"factor"}, noop, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("factor", []string{"LPAREN", "expr", "RPAREN"}, noop, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("factor", []string{"NUMBER"}, noop, "")
	assert.NoError(t, err)

	assert.NoError(t, g.Build())
	return g
}

func Test_Grammar_AddProduction_rejectsTerminalAsName(t *testing.T) {
	g := New([]string{"NUMBER"})
	noop := func(symbols []interface{}, state interface{}) (interface{}, error) { return nil, nil }

	_, err := g.AddProduction("NUMBER", []string{"NUMBER"}, noop, "")
	assert.Error(t, err)
}

func Test_Grammar_AddProduction_unknownPrecedenceTag(t *testing.T) {
	g := New([]string{"PLUS"})
	noop := func(symbols []interface{}, state interface{}) (interface{}, error) { return nil, nil }

	_, err := g.AddProduction("expr", []string{"PLUS"}, noop, "NOPE")
	assert.Error(t, err)
}

func Test_Grammar_AddProduction_defaultPrecedenceFromRightmostTerminal(t *testing.T) {
	g := New([]string{"PLUS"})
	noop := func(symbols []interface{}, state interface{}) (interface{}, error) { return nil, nil }

	assert.NoError(t, g.SetPrecedence("PLUS", AssocLeft, 1))

	p, err := g.AddProduction("expr", []string{"expr", "PLUS", "expr"}, noop, "")
	assert.NoError(t, err)
	assert.Equal(t, Precedence{Assoc: AssocLeft, Level: 1}, p.Precedence)
}

func Test_Grammar_AddProduction_noTerminalOnRhsDefaultsToZero(t *testing.T) {
	g := New([]string{"PLUS"})
	noop := func(symbols []interface{}, state interface{}) (interface{}, error) { return nil, nil }

	p, err := g.AddProduction("expr", []string{"term"}, noop, "")
	assert.NoError(t, err)
	assert.Equal(t, Precedence{Assoc: AssocRight, Level: 0}, p.Precedence)
}

func Test_Grammar_SetPrecedence_rejectsDuplicate(t *testing.T) {
	g := New([]string{"PLUS"})
	assert.NoError(t, g.SetPrecedence("PLUS", AssocLeft, 1))
	assert.Error(t, g.SetPrecedence("PLUS", AssocRight, 2))
}

func Test_Grammar_SetStart_requiresAProduction(t *testing.T) {
	g := New([]string{"NUMBER"})
	assert.Error(t, g.SetStart())
}

func Test_Grammar_Build_setsUpAugmentedProduction(t *testing.T) {
	g := buildExprGrammar(t)

	aug := g.Productions()[0]
	assert.Equal(t, AugmentedGoal, aug.Name)
	assert.Equal(t, []string{"expr"}, aug.Rhs)
	assert.Equal(t, "expr", g.Start())
}

func Test_Grammar_First(t *testing.T) {
	g := buildExprGrammar(t)

	for _, name := range []string{"expr", "term", "factor"} {
		first := g.First(name)
		assert.ElementsMatch(t, []string{"NUMBER", "LPAREN"}, first, "FIRST(%s)", name)
	}
}

func Test_Grammar_Follow(t *testing.T) {
	g := buildExprGrammar(t)

	assert.ElementsMatch(t, []string{EndOfInput, "PLUS", "RPAREN"}, g.Follow("expr"))
	assert.ElementsMatch(t, []string{EndOfInput, "PLUS", "TIMES", "RPAREN"}, g.Follow("term"))
	assert.ElementsMatch(t, []string{EndOfInput, "PLUS", "TIMES", "RPAREN"}, g.Follow("factor"))
}

func Test_Grammar_UnusedTerminals(t *testing.T) {
	g := New([]string{"NUMBER", "PLUS", "UNUSED"})
	noop := func(symbols []interface{}, state interface{}) (interface{}, error) { return nil, nil }
	_, err := g.AddProduction("expr", []string{"NUMBER", "PLUS", "NUMBER"}, noop, "")
	assert.NoError(t, err)
	assert.NoError(t, g.Build())

	assert.Equal(t, []string{"UNUSED"}, g.UnusedTerminals())
}

func Test_Grammar_UnusedProductions(t *testing.T) {
	g := New([]string{"NUMBER"})
	noop := func(symbols []interface{}, state interface{}) (interface{}, error) { return nil, nil }
	_, err := g.AddProduction("expr", []string{"NUMBER"}, noop, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("dead", []string{"NUMBER"}, noop, "")
	assert.NoError(t, err)
	assert.NoError(t, g.Build())

	assert.Equal(t, []string{"dead"}, g.UnusedProductions())
}

func Test_Grammar_epsilonProduction(t *testing.T) {
	g := New([]string{"NUMBER", "COMMA"})
	noop := func(symbols []interface{}, state interface{}) (interface{}, error) { return nil, nil }

	_, err := g.AddProduction("values", []string{"NUMBER", "COMMA", "values"}, noop, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("values", []string{"NUMBER"}, noop, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("main", []string{"values"}, noop, "")
	assert.NoError(t, err)
	_, err = g.AddProduction("main", nil, noop, "")
	assert.NoError(t, err)

	assert.NoError(t, g.Build())
	assert.Contains(t, g.First("main"), Empty)
}

func Test_Production_Equal(t *testing.T) {
	noop := func(symbols []interface{}, state interface{}) (interface{}, error) { return nil, nil }
	g := New([]string{"NUMBER"})
	p1, err := g.AddProduction("expr", []string{"NUMBER"}, noop, "")
	assert.NoError(t, err)

	g2 := New([]string{"NUMBER"})
	p2, err := g2.AddProduction("expr", []string{"NUMBER"}, noop, "")
	assert.NoError(t, err)

	assert.True(t, p1.Equal(p2))
	assert.False(t, p1.Equal(nil))
}
