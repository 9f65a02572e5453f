package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/gofin/zander"
	"github.com/gofin/zander/grammar"
	"github.com/gofin/zander/lex"
)

// grammarFile is the on-disk shape of a .zgr grammar-description file: a
// TOML document naming a grammar's terminals (with their matching
// patterns), whitespace/comment patterns to discard, a precedence table,
// and productions declaratively, so a grammar and its lexer can both be
// described without writing Go. Modeled on tqw.FileInfo/tqw.WorldData's
// "read the whole file into a tagged struct, then toml.Unmarshal it"
// pattern.
type grammarFile struct {
	Format      string                `toml:"format"`
	Type        string                `toml:"type"`
	CacheID     string                `toml:"cache_id"`
	Terminals   []terminalFileEntry   `toml:"terminals"`
	Ignore      []ignoreFileEntry     `toml:"ignore"`
	Precedence  []precedenceFileEntry `toml:"precedence"`
	Productions []ruleFileEntry       `toml:"productions"`
}

type terminalFileEntry struct {
	Name    string `toml:"name"`
	Pattern string `toml:"pattern"`
}

type ignoreFileEntry struct {
	Pattern string `toml:"pattern"`
}

type precedenceFileEntry struct {
	Assoc     string   `toml:"assoc"`
	Terminals []string `toml:"terminals"`
}

type ruleFileEntry struct {
	Rule       string `toml:"rule"`
	Precedence string `toml:"precedence"`
}

// loadedGrammar is the pair of generators a .zgr file builds: a parser
// generator ready for Build, and a lexer generator whose rules were
// derived from the same file's terminal/ignore declarations.
type loadedGrammar struct {
	pg *zander.ParserGenerator
	lg *zander.LexerGenerator
}

// loadGrammarFile reads a .zgr file at path and builds both halves of a
// zander grammar from it. Every production is wired to a no-op action
// that passes its first symbol through unchanged (or nil for an empty
// right-hand side), since a .zgr file has no way to express Go callbacks;
// zanderc's interactive "parse" command exists precisely to let a user see
// what a grammar built this way actually does to a given input.
func loadGrammarFile(path string) (*loadedGrammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grammar file: %w", err)
	}

	var gf grammarFile
	if tomlErr := toml.Unmarshal(data, &gf); tomlErr != nil {
		return nil, fmt.Errorf("parse grammar file: %w", tomlErr)
	}

	var names []string
	for _, t := range gf.Terminals {
		names = append(names, t.Name)
	}

	var levels []zander.PrecedenceDecl
	for _, p := range gf.Precedence {
		assoc, err := parseAssoc(p.Assoc)
		if err != nil {
			return nil, err
		}
		levels = append(levels, zander.PrecedenceDecl{Assoc: assoc, Terms: p.Terminals})
	}

	opts := []zander.ParserGeneratorOption{zander.WithPrecedence(levels...)}
	if gf.CacheID != "" {
		opts = append(opts, zander.WithCacheID(gf.CacheID))
	}

	pg, err := zander.NewParserGenerator(names, opts...)
	if err != nil {
		return nil, err
	}

	noop := func(symbols []interface{}, state interface{}) (interface{}, error) {
		if len(symbols) == 0 {
			return nil, nil
		}
		return symbols[0], nil
	}

	for _, r := range gf.Productions {
		var tags []string
		if r.Precedence != "" {
			tags = []string{r.Precedence}
		}
		if err := pg.Production(r.Rule, noop, tags...); err != nil {
			return nil, err
		}
	}

	lg := zander.NewLexerGenerator()
	// Ignore rules are registered before terminals, whatever order the .zgr
	// file lists them in, so whitespace/comment skipping wins any
	// same-length tie against a terminal pattern.
	for _, ig := range gf.Ignore {
		if err := lg.Ignore(lex.DefaultState, ig.Pattern); err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", ig.Pattern, err)
		}
	}
	for _, t := range gf.Terminals {
		if err := lg.Add(lex.DefaultState, t.Pattern, lex.Emit(t.Name)); err != nil {
			return nil, fmt.Errorf("terminal %q pattern %q: %w", t.Name, t.Pattern, err)
		}
	}

	return &loadedGrammar{pg: pg, lg: lg}, nil
}

func parseAssoc(s string) (grammar.Assoc, error) {
	switch s {
	case "left":
		return grammar.AssocLeft, nil
	case "right":
		return grammar.AssocRight, nil
	case "nonassoc":
		return grammar.AssocNonAssoc, nil
	default:
		return grammar.AssocNone, fmt.Errorf("unknown associativity %q: must be left, right, or nonassoc", s)
	}
}
