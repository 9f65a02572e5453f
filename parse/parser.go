// Package parse runs the shift/reduce driver loop over a built table.Table:
// the classic dragon-book LR-parsing algorithm (ictiobus/parse/lr.go's
// lrParser.Parse implements Algorithm 4.44 from the purple dragon book
// against a parse-tree-building table), adapted here to rply's direct
// callback model — every reduction invokes the matching production's
// grammar.Action immediately instead of building a parse tree — and backed
// by gods' array-backed stacks (as gorgo/lr/tables.go uses gods for its own
// table-construction bookkeeping) instead of a hand-rolled stack type.
package parse

import (
	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/gofin/zander/lex"
	"github.com/gofin/zander/table"
	"github.com/gofin/zander/zerr"
)

// Parser runs a built table.Table's shift/reduce automaton over a token
// stream, invoking each reduced production's semantic action as it fires.
type Parser struct {
	Table *table.Table
}

// New returns a Parser driven by t.
func New(t *table.Table) *Parser {
	return &Parser{Table: t}
}

// Parse consumes stream to either a single accepted semantic value or a
// *zerr.ParsingError (a *zerr.LexingError when the stream yields a
// lex.ErrorToken). state is passed unchanged to every production's
// Action as its second argument (symbols[i] holds the matched lex.Token for
// a terminal, or the prior reduction's value for a nonterminal); pass nil
// if the grammar's actions don't need it.
func (p *Parser) Parse(stream lex.TokenStream, state interface{}) (interface{}, error) {
	states := arraystack.New()
	states.Push(0)
	values := arraystack.New()

	var pushback []lex.Token
	pull := func() lex.Token {
		if n := len(pushback); n > 0 {
			tok := pushback[n-1]
			pushback = pushback[:n-1]
			return tok
		}
		return stream.Next()
	}

	tok := pull()

	for {
		topState, _ := states.Peek()
		st := topState.(int)

		if dr := p.Table.DefaultReduction[st]; dr >= 0 {
			if err := p.reduce(states, values, dr, state); err != nil {
				return nil, err
			}
			continue
		}

		if tok.Name == lex.ErrorToken {
			return nil, zerr.Lexing(zerr.SourcePosition(tok.Pos))
		}

		act, ok := p.Table.Action[st][tok.Name]
		if !ok {
			return nil, zerr.Parsing(zerr.SourcePosition(tok.Pos), tok.Name, tok.Value)
		}

		switch act.Kind {
		case table.ActionShift:
			values.Push(tok)
			states.Push(act.State)
			tok = pull()
		case table.ActionReduce:
			if err := p.reduce(states, values, act.Production, state); err != nil {
				return nil, err
			}
		case table.ActionAccept:
			v, _ := values.Pop()
			return v, nil
		default:
			return nil, zerr.Parsing(zerr.SourcePosition(tok.Pos), tok.Name, tok.Value)
		}
	}
}

// reduce pops the values and states for a production's right-hand side,
// invokes its semantic action, pushes the result, and follows the goto row
// back to a new state.
func (p *Parser) reduce(states, values *arraystack.Stack, prodNum int, state interface{}) error {
	prod := p.Table.Grammar.Productions()[prodNum]

	n := prod.Len()
	symbols := make([]interface{}, n)
	for i := n - 1; i >= 0; i-- {
		v, _ := values.Pop()
		symbols[i] = v
		states.Pop()
	}

	var result interface{}
	var err error
	if prod.Action != nil {
		result, err = prod.Action(symbols, state)
		if err != nil {
			return err
		}
	}
	values.Push(result)

	topState, _ := states.Peek()
	next, ok := p.Table.Goto[topState.(int)][prod.Name]
	if !ok {
		return zerr.Generatorf("no goto entry for state %d on %q; grammar is not LALR(1)", topState, prod.Name)
	}
	states.Push(next)
	return nil
}
