// Package lex builds and runs a regex-driven, stateful lexer: rules are
// grouped by named state, compiled per-state into one alternation regex
// (GNU-lex-style longest-match-wins, ties broken by declaration order), and
// run over an input to produce a TokenStream. It is grounded on
// ictiobus/lex's lazyLex (lazy.go) and reader (reader.go), simplified to
// buffer the whole input up front rather than streaming it through a
// regexReader, and extended with a state stack (Push/Pop) alongside the
// teacher's plain state-swap.
package lex

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// SourcePosition is the location of a single byte offset in source text.
// Field-for-field identical to zerr.SourcePosition; kept separate so this
// package has no dependency on zerr.
type SourcePosition struct {
	Idx    int
	Lineno int
	Colno  int
}

func (p SourcePosition) String() string {
	return fmt.Sprintf("%d:%d", p.Lineno, p.Colno)
}

// Token is a lexeme read from source text, classified by rule name.
type Token struct {
	Name  string
	Value string
	Pos   SourcePosition
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Name, t.Value, t.Pos)
}

// TokenStream is a read-once, peekable sequence of tokens.
type TokenStream interface {
	// Next returns the next token and advances the stream.
	Next() Token
	// Peek returns the next token without advancing the stream.
	Peek() Token
	// HasNext reports whether the stream has any more tokens.
	HasNext() bool
}

// EndOfText is the token name produced once a stream is exhausted.
const EndOfText = "$end"

// ErrorToken is the token name produced when no rule matches at the current
// position; its Value holds a human-readable description of the failure.
const ErrorToken = "$error"

// DefaultState is the starting state of a Lexer that never calls
// SetStartState.
const DefaultState = "default"

type rule struct {
	src    string
	action Action
}

// Lexer is a lexer description under construction: named states, each with
// an ordered list of regex rules. Call Build to compile it into a Template
// that can Lex input.
type Lexer struct {
	rules      map[string][]rule
	startState string
}

// NewLexer returns an empty Lexer whose start state is DefaultState.
func NewLexer() *Lexer {
	return &Lexer{rules: map[string][]rule{}, startState: DefaultState}
}

// SetStartState sets the state the lexer begins in. Defaults to
// DefaultState.
func (lx *Lexer) SetStartState(state string) {
	lx.startState = state
}

// Add registers a rule in the given state: when pattern matches at the
// current position, action fires. pattern is a Go regular expression
// (without the leading ^ anchor; Build adds it). Rules within a state are
// tried together each step; the longest match wins, ties broken by the
// order Add was called.
func (lx *Lexer) Add(state, pattern string, action Action) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("lex: invalid pattern %q for state %q: %w", pattern, state, err)
	}
	lx.rules[state] = append(lx.rules[state], rule{src: pattern, action: action})
	return nil
}

// Ignore is shorthand for Add(state, pattern, Discard()).
func (lx *Lexer) Ignore(state, pattern string) error {
	return lx.Add(state, pattern, Discard())
}

// Template is a compiled, immutable lexer ready to scan input. Build a
// Template once per grammar and reuse it across many calls to Lex.
type Template struct {
	patterns map[string]*regexp.Regexp
	actions  map[string][]Action
	start    string
}

// Build compiles every state's rules into one alternation regex per state.
// It fails if a state was referenced by an action's target (Swap/Push) but
// never given any rules of its own, since such a state could never lex
// anything.
func (lx *Lexer) Build() (*Template, error) {
	t := &Template{
		patterns: map[string]*regexp.Regexp{},
		actions:  map[string][]Action{},
		start:    lx.startState,
	}

	referenced := map[string]bool{lx.startState: true}
	for state, rules := range lx.rules {
		var sb strings.Builder
		sb.WriteString("^(?:")
		acts := make([]Action, len(rules))
		for i, r := range rules {
			sb.WriteString("(")
			sb.WriteString(r.src)
			sb.WriteString(")")
			if i+1 < len(rules) {
				sb.WriteString("|")
			}
			acts[i] = r.action
			if r.action.op != stateNone {
				referenced[r.action.state] = true
			}
		}
		sb.WriteString(")")

		re, err := regexp.Compile(sb.String())
		if err != nil {
			return nil, fmt.Errorf("lex: composing rules for state %q: %w", state, err)
		}
		// Longest switches the engine from its default leftmost-first (Perl)
		// semantics to leftmost-longest: without it, the first alternative
		// that matches anything at all wins outright, even if a later
		// alternative would have matched more text. Longest is what makes
		// selectMatch's "longest match wins, ties go to declaration order"
		// rule true instead of aspirational.
		re.Longest()
		t.patterns[state] = re
		t.actions[state] = acts
	}

	for state := range referenced {
		if state == "" {
			continue
		}
		if _, ok := t.patterns[state]; !ok {
			return nil, fmt.Errorf("lex: state %q is targeted by a rule but has no rules of its own", state)
		}
	}

	return t, nil
}

// Lex reads all of input and returns a TokenStream over it. The input is
// read in full up front, but matching happens one token at a time as the
// stream's Next/Peek are called; lexing errors are surfaced as ErrorToken
// tokens from Next/Peek, not from Lex itself, matching ictiobus/lex's
// lazy-lexing contract.
func (t *Template) Lex(input io.Reader) (TokenStream, error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return nil, fmt.Errorf("lex: reading input: %w", err)
	}

	s := &stream{
		tmpl:  t,
		buf:   string(data),
		state: t.start,
		line:  1,
		col:   1,
	}
	return s, nil
}

// stream is the running instance of a Template over one input buffer.
type stream struct {
	tmpl  *Template
	buf   string
	pos   int
	state string
	stack []string

	line, col int
	done      bool
	panicMode bool

	peeked  *Token
	hasPeek bool
}

func (s *stream) HasNext() bool {
	return !s.done || s.hasPeek
}

func (s *stream) Peek() Token {
	if !s.hasPeek {
		s.peeked = new(Token)
		*s.peeked = s.next()
		s.hasPeek = true
	}
	return *s.peeked
}

func (s *stream) Next() Token {
	if s.hasPeek {
		s.hasPeek = false
		tok := *s.peeked
		s.peeked = nil
		return tok
	}
	return s.next()
}

func (s *stream) next() Token {
	if s.done {
		return s.endToken()
	}

	for {
		if s.pos >= len(s.buf) {
			s.done = true
			return s.endToken()
		}

		pat := s.tmpl.patterns[s.state]
		acts := s.tmpl.actions[s.state]
		if pat == nil {
			s.done = true
			return s.errorToken(s.curPos(), fmt.Sprintf("no rules defined for state %q", s.state))
		}

		loc := pat.FindStringSubmatchIndex(s.buf[s.pos:])
		if loc == nil {
			pos := s.curPos()
			s.advance(1)
			return s.errorToken(pos, fmt.Sprintf("unexpected input at %s", pos))
		}

		idx, lexeme := selectMatch(loc, s.buf[s.pos:])
		action := acts[idx]

		startPos := s.curPos()
		s.advance(len(lexeme))

		switch action.op {
		case stateSwap:
			s.state = action.state
		case statePush:
			s.stack = append(s.stack, s.state)
			s.state = action.state
		case statePop:
			if len(s.stack) == 0 {
				return s.errorToken(startPos, fmt.Sprintf("state stack underflow popping at %s", startPos))
			}
			s.state = s.stack[len(s.stack)-1]
			s.stack = s.stack[:len(s.stack)-1]
		}

		if action.emit {
			return Token{Name: action.tokenName, Value: lexeme, Pos: startPos}
		}
		// discarded (whitespace, comments, pure state transitions): keep
		// scanning from the new position without returning to the caller.
	}
}

func (s *stream) curPos() SourcePosition {
	return SourcePosition{Idx: s.pos, Lineno: s.line, Colno: s.col}
}

func (s *stream) advance(n int) {
	for _, r := range s.buf[s.pos : s.pos+n] {
		if r == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
	}
	s.pos += n
}

func (s *stream) endToken() Token {
	return Token{Name: EndOfText, Pos: s.curPos()}
}

func (s *stream) errorToken(pos SourcePosition, msg string) Token {
	s.done = true
	return Token{Name: ErrorToken, Value: msg, Pos: pos}
}

// selectMatch picks which of a combined alternation's sub-groups fired, GNU
// lex style: the longest matched text wins, and ties are broken in favor of
// whichever rule was declared first. loc is the index pairs returned by
// FindStringSubmatchIndex (group 0 first, then one pair per rule in
// declaration order); text is the buffer the match was found in, relative
// to the same offset loc is expressed in.
func selectMatch(loc []int, text string) (ruleIndex int, lexeme string) {
	type cand struct {
		idx   int
		runes int
		text  string
	}
	var cands []cand
	for i := 1; i*2 < len(loc); i++ {
		left, right := loc[i*2], loc[i*2+1]
		if left == -1 || right == -1 {
			continue
		}
		m := text[left:right]
		cands = append(cands, cand{idx: i - 1, runes: utf8.RuneCountInString(m), text: m})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].runes != cands[j].runes {
			return cands[i].runes > cands[j].runes
		}
		return cands[i].idx < cands[j].idx
	})

	best := cands[0]
	return best.idx, best.text
}
