// Package zander is a combined lexer and LALR(1) parser-generator library:
// describe a grammar's terminals, precedence, and productions, call Build,
// and get back a ready-to-run parser (and, separately, a lexer to feed it).
// It is the fish to this repo's bison/buffalo namesakes in the examples this
// package descends from: a zander is a pike-perch, same family of idea, one
// rung further down river.
package zander

import (
	"strings"

	"github.com/google/uuid"

	"github.com/gofin/zander/grammar"
	"github.com/gofin/zander/lalr"
	"github.com/gofin/zander/lex"
	"github.com/gofin/zander/lr0"
	"github.com/gofin/zander/parse"
	"github.com/gofin/zander/table"
	"github.com/gofin/zander/zerr"
)

// Warning is re-exported so callers don't need to import zerr for the
// common case of inspecting Build's warning list.
type Warning = zerr.Warning

// PrecedenceDecl is one entry of the ordered precedence list passed to
// NewParserGenerator: every terminal in Terms shares Assoc and an implied
// level equal to the entry's 1-based position in the list (lower index
// binds looser, per spec.md §6's ParserGenerator API).
type PrecedenceDecl struct {
	Assoc grammar.Assoc
	Terms []string
}

// ParserGeneratorOption configures a ParserGenerator at construction time.
type ParserGeneratorOption func(*ParserGenerator)

// WithPrecedence declares the grammar's precedence table, lowest-binding
// level first.
func WithPrecedence(levels ...PrecedenceDecl) ParserGeneratorOption {
	return func(pg *ParserGenerator) {
		pg.precedence = levels
	}
}

// WithCacheID sets the identifier a table cache file is stored/loaded
// under. If never called, ParserGenerator assigns a fresh random one via
// uuid.NewRandom, which means no two Builds without an explicit cache ID
// will ever share a cache.
func WithCacheID(id string) ParserGeneratorOption {
	return func(pg *ParserGenerator) {
		pg.cacheID = id
	}
}

// ParserGenerator accumulates a grammar's terminals, precedence, and
// productions, then assembles them into a runnable Parser via Build.
type ParserGenerator struct {
	g          *grammar.Grammar
	precedence []PrecedenceDecl
	cacheID    string
	errHandler ErrorFunc
}

// ErrorFunc is the user-supplied handler for parse-time errors. Per
// spec.md §7 it must abort (by panicking or otherwise unwinding); returning
// normally is a contract violation, and Parser.Parse then returns a
// zerr.GeneratorError that wraps the original parse error.
type ErrorFunc func(err error)

// NewParserGenerator returns a ParserGenerator declaring exactly the given
// terminal names.
func NewParserGenerator(terminals []string, opts ...ParserGeneratorOption) (*ParserGenerator, error) {
	pg := &ParserGenerator{g: grammar.New(terminals)}
	for _, opt := range opts {
		opt(pg)
	}

	for level, decl := range pg.precedence {
		for _, term := range decl.Terms {
			if err := pg.g.SetPrecedence(term, decl.Assoc, level+1); err != nil {
				return nil, err
			}
		}
	}

	if pg.cacheID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return nil, zerr.WrapGenerator("generate cache id", err)
		}
		pg.cacheID = id.String()
	}

	return pg, nil
}

// CacheID returns the identifier this generator's table cache is keyed
// under, for callers that want to name the cache file themselves.
func (pg *ParserGenerator) CacheID() string {
	return pg.cacheID
}

// Error registers the parse-time error handler.
func (pg *ParserGenerator) Error(handler ErrorFunc) {
	pg.errHandler = handler
}

// Production registers one or more productions from a rule string of the
// form "lhs : sym sym ... | sym sym ...": the leading lhs, a literal ':',
// then one or more '|'-separated alternatives, each becoming its own
// Production sharing action. Grounded on spec.md §9's "Rule-string parser"
// note: split on whitespace, require ':' as the second token, split the
// remainder on '|'.
func (pg *ParserGenerator) Production(ruleString string, action grammar.Action, precedenceTag ...string) error {
	fields := strings.Fields(ruleString)
	if len(fields) < 2 || fields[1] != ":" {
		return zerr.Generatorf("malformed rule string %q: expected \"lhs : ...\"", ruleString)
	}
	lhs := fields[0]

	var explicitPrec string
	if len(precedenceTag) > 0 {
		explicitPrec = precedenceTag[0]
	}

	alts := splitAlternatives(fields[2:])
	if len(alts) == 0 {
		alts = [][]string{nil}
	}

	for _, rhs := range alts {
		if _, err := pg.g.AddProduction(lhs, rhs, action, explicitPrec); err != nil {
			return zerr.WrapGenerator("register production from "+ruleString, err)
		}
	}
	return nil
}

// splitAlternatives splits a rule string's symbol fields on the literal "|"
// separator into one slice of symbols per alternative.
func splitAlternatives(fields []string) [][]string {
	var alts [][]string
	var cur []string
	for _, f := range fields {
		if f == "|" {
			alts = append(alts, cur)
			cur = nil
			continue
		}
		cur = append(cur, f)
	}
	alts = append(alts, cur)
	return alts
}

// LexerGenerator is a thin rename of lex.Lexer at the package root, so
// callers building both halves of a grammar can do so through a single
// import of this package. Add/Ignore/SetStartState/Build behave exactly as
// documented on the lex package.
type LexerGenerator = lex.Lexer

// NewLexerGenerator returns an empty LexerGenerator.
func NewLexerGenerator() *LexerGenerator {
	return lex.NewLexer()
}

// Parser is the fully built, runnable product of ParserGenerator.Build: a
// grammar, its LALR(1) table, and the driver that runs it over a token
// stream.
type Parser struct {
	Grammar    *grammar.Grammar
	Table      *table.Table
	runtime    *parse.Parser
	errHandler ErrorFunc
}

// Parse runs the parser over stream, invoking semantic actions as
// productions reduce. state is passed unchanged to every action (see
// grammar.Action); pass nil if the grammar doesn't use it. A
// *zerr.ParsingError is returned if no error handler was registered and the
// input is rejected; if a handler was registered, it is invoked and its
// return (a contract violation per spec.md §7) is reported as the error
// instead.
func (p *Parser) Parse(stream lex.TokenStream, state interface{}) (interface{}, error) {
	v, err := p.runtime.Parse(stream, state)
	if err != nil {
		if p.errHandler != nil {
			p.errHandler(err)
			return nil, zerr.WrapGenerator("error handler returned instead of aborting", err)
		}
		return nil, err
	}
	return v, nil
}

// Build assembles the grammar (computing FIRST/FOLLOW), the LR(0)
// collection, the LALR(1) lookaheads, and the action/goto table, then
// returns a ready-to-run Parser along with every non-fatal warning
// (spec.md §6's build() contract). A GeneratorError aborts the whole
// pipeline; no partial Parser is returned on error.
func (pg *ParserGenerator) Build() (*Parser, []zerr.Warning, error) {
	if err := pg.g.Build(); err != nil {
		return nil, nil, err
	}

	col, err := lr0.Build(pg.g)
	if err != nil {
		return nil, nil, err
	}

	look := lalr.Compute(pg.g, col)

	t, warnings, err := table.Build(pg.g, col, look)
	if err != nil {
		return nil, nil, err
	}

	p := &Parser{
		Grammar: pg.g,
		Table:   t,
		runtime: parse.New(t),
	}
	p.errHandler = pg.errHandler

	return p, warnings, nil
}
