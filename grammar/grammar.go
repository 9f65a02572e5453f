// Package grammar holds the declarative model of a context-free grammar: its
// terminals, productions, precedence declarations, and the derived FIRST and
// FOLLOW sets and LR items that the lr0 and lalr packages build on.
//
// Grammar and everything it produces is built once, at generator-build time.
// Nothing in this package is safe for concurrent mutation; once FIRST/FOLLOW
// and the LR item chains have been computed the structure is read-only.
package grammar

import (
	"fmt"
	"sort"

	"github.com/gofin/zander/internal/container"
	"github.com/gofin/zander/zerr"
)

// Reserved symbol names. These may never be declared as terminals or
// nonterminals by a caller.
const (
	EndOfInput    = "$end"
	ErrorTerminal = "error"
	AugmentedGoal = "S'"
	Empty         = "<empty>"
)

// Assoc is the associativity of a precedence group.
type Assoc int

const (
	// AssocNone is the zero value, meaning "no precedence declared". A
	// comparison between a production/terminal with AssocNone and anything
	// else never resolves in AssocNone's favor; see Precedence.Level.
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
	AssocNonAssoc
)

func (a Assoc) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	case AssocNonAssoc:
		return "nonassoc"
	default:
		return "none"
	}
}

// Precedence is an associativity plus a level. Level 0 (paired with
// AssocNone, or with AssocRight by the "no terminal on rhs" default) means
// "no precedence" and never wins a comparison against a declared level.
type Precedence struct {
	Assoc Assoc
	Level int
}

// Action is the semantic callback attached to a Production. It receives the
// slice of values popped from the parser's value stack for the production's
// right-hand side, in left-to-right order, plus whatever opaque state value
// the caller passed to parse.Parser.Parse (nil if none), and returns the
// value to push in their place. Each element of symbols is the matched
// lex.Token when the corresponding right-hand-side position is a terminal,
// or the prior action's returned value when it's a nonterminal. State is
// threaded through unchanged to every action invocation; it is a
// convenience for generators that want to accumulate results outside the
// value stack (a symbol table, an output buffer) without smuggling it
// through a closure.
type Action func(symbols []interface{}, state interface{}) (interface{}, error)

// Production is a single grammar rewrite rule `Name -> Rhs` with an attached
// semantic Action. Production 0 is always the synthesized augmented
// production `S' -> start`.
type Production struct {
	Number     int
	Name       string
	Rhs        []string
	Precedence Precedence
	Action     Action

	// uniqueSyms is Rhs with duplicates removed, preserving first-occurrence
	// order. lr0.Closure uses it to avoid rescanning the same nonterminal
	// twice in one production.
	uniqueSyms []string

	// items is the dot-advancing chain of LR(0) items for this production,
	// built once by buildItems. items[i] has the dot before Rhs[i].
	items []*Item

	// lastClosureID marks the closure pass (see lr0.Closure) under which
	// this production's item was last added to a closure, replacing an
	// auxiliary membership set with an O(1) field check.
	lastClosureID int
}

// Len returns the number of symbols on the right-hand side.
func (p *Production) Len() int {
	return len(p.Rhs)
}

// UniqueSyms returns Rhs with duplicate symbols removed, in first-occurrence
// order.
func (p *Production) UniqueSyms() []string {
	return p.uniqueSyms
}

// Item returns the LR(0) item for this production with the dot at position
// i (0 <= i <= Len()), or nil if i is out of range.
func (p *Production) Item(i int) *Item {
	if i < 0 || i >= len(p.items) {
		return nil
	}
	return p.items[i]
}

func (p *Production) String() string {
	return fmt.Sprintf("%s -> %v", p.Name, p.Rhs)
}

// Equal reports whether two productions have the same number, name, rhs,
// and precedence. Two productions from different Grammars with the same
// shape compare equal; Action and internal bookkeeping are not compared.
func (p *Production) Equal(o *Production) bool {
	if p == o {
		return true
	}
	if p == nil || o == nil {
		return false
	}
	if p.Number != o.Number || p.Name != o.Name || p.Precedence != o.Precedence {
		return false
	}
	if len(p.Rhs) != len(o.Rhs) {
		return false
	}
	for i := range p.Rhs {
		if p.Rhs[i] != o.Rhs[i] {
			return false
		}
	}
	return true
}

// Grammar is the full declarative model: terminals, nonterminals,
// productions, precedence table, and (once computed) FIRST/FOLLOW sets.
type Grammar struct {
	terminals    map[string]bool
	productions  []*Production // index 0 is always the augmented production, once SetStart is called
	prodsByName  map[string][]*Production
	precedence   map[string]Precedence
	start        string
	nextPrecLvl  int
	firstSets    map[string]*container.OrderedSet[string]
	followSets   map[string]*container.OrderedSet[string]
	startIsKnown bool
}

// New returns a Grammar declaring exactly the given terminal names, plus the
// reserved $end and error terminals.
func New(terminals []string) *Grammar {
	g := &Grammar{
		terminals:   map[string]bool{},
		prodsByName: map[string][]*Production{},
		precedence:  map[string]Precedence{},
		productions: []*Production{nil}, // slot 0 reserved for the augmented production
	}
	for _, t := range terminals {
		g.terminals[t] = true
	}
	g.terminals[ErrorTerminal] = true
	return g
}

// IsTerminal returns whether name was declared as a terminal (including the
// reserved error and $end terminals).
func (g *Grammar) IsTerminal(name string) bool {
	return g.terminals[name] || name == EndOfInput
}

// IsNonterminal returns whether name is the left-hand side of at least one
// production, appears on some production's right-hand side without being a
// declared terminal, or is the augmented goal symbol.
func (g *Grammar) IsNonterminal(name string) bool {
	if name == AugmentedGoal {
		return true
	}
	_, ok := g.prodsByName[name]
	return ok
}

// Terminals returns the declared terminal names in a stable, sorted order,
// excluding the reserved error terminal.
func (g *Grammar) Terminals() []string {
	names := make([]string, 0, len(g.terminals))
	for t := range g.terminals {
		if t == ErrorTerminal {
			continue
		}
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// SetPrecedence assigns an associativity and level to a terminal. Levels are
// assigned by the caller (zander.ParserGenerator) as 1-based positions in a
// precedence list; level 0 is reserved for "undeclared".
func (g *Grammar) SetPrecedence(term string, assoc Assoc, level int) error {
	if _, ok := g.precedence[term]; ok {
		return zerr.Generatorf("precedence already specified for %q", term)
	}
	if assoc != AssocLeft && assoc != AssocRight && assoc != AssocNonAssoc {
		return zerr.Generatorf("precedence must be one of left, right, nonassoc; not %v", assoc)
	}
	g.precedence[term] = Precedence{Assoc: assoc, Level: level}
	return nil
}

// PrecedenceOf returns the declared precedence of a terminal, or the zero
// Precedence{AssocNone, 0} if none was declared.
func (g *Grammar) PrecedenceOf(term string) Precedence {
	return g.precedence[term]
}

// rightmostTerminal returns the last terminal symbol in rhs, or "" if rhs
// contains no terminal.
func (g *Grammar) rightmostTerminal(rhs []string) string {
	for i := len(rhs) - 1; i >= 0; i-- {
		if g.IsTerminal(rhs[i]) {
			return rhs[i]
		}
	}
	return ""
}

// AddProduction registers one production `name -> rhs` with the given
// semantic action. If explicitPrec is non-empty it must name an
// already-declared precedence group (by terminal); otherwise the
// production's precedence defaults to that of the rightmost terminal in rhs,
// or Precedence{AssocRight, 0} if rhs has no terminal or the terminal has no
// declared precedence.
func (g *Grammar) AddProduction(name string, rhs []string, action Action, explicitPrec string) (*Production, error) {
	if g.terminals[name] {
		return nil, zerr.Generatorf("illegal rule name %q: already declared as a terminal", name)
	}

	var prec Precedence
	if explicitPrec != "" {
		p, ok := g.precedence[explicitPrec]
		if !ok {
			return nil, zerr.Generatorf("precedence %q doesn't exist", explicitPrec)
		}
		prec = p
	} else {
		precName := g.rightmostTerminal(rhs)
		if p, ok := g.precedence[precName]; ok {
			prec = p
		} else {
			prec = Precedence{Assoc: AssocRight, Level: 0}
		}
	}

	p := &Production{
		Number:     len(g.productions),
		Name:       name,
		Rhs:        append([]string(nil), rhs...),
		Precedence: prec,
		Action:     action,
	}
	p.uniqueSyms = uniqueInOrder(rhs)

	g.productions = append(g.productions, p)
	g.prodsByName[name] = append(g.prodsByName[name], p)

	// Ensure every nonterminal referenced in rhs has a (possibly empty)
	// productions-by-name entry, so UnusedProductions/IsNonterminal can see
	// it even before any of its own productions are registered.
	for _, s := range rhs {
		if !g.terminals[s] {
			if _, ok := g.prodsByName[s]; !ok {
				g.prodsByName[s] = nil
			}
		}
	}
	if _, ok := g.prodsByName[name]; !ok {
		g.prodsByName[name] = nil
	}

	return p, nil
}

// ProductionsFor returns the productions whose left-hand side is name, in
// registration order.
func (g *Grammar) ProductionsFor(name string) []*Production {
	return g.prodsByName[name]
}

// Productions returns every production, including index 0 (the augmented
// production) once SetStart has been called; before that, index 0 is nil.
func (g *Grammar) Productions() []*Production {
	return g.productions
}

// NumProductions returns len(Productions()), i.e. the number of productions
// including the augmented production.
func (g *Grammar) NumProductions() int {
	return len(g.productions)
}

// Start returns the declared start symbol (the name of production 1), once
// SetStart has been called.
func (g *Grammar) Start() string {
	return g.start
}

// SetStart synthesizes production 0 as `S' -> name-of-production-1`. It must
// be called exactly once, after at least one production has been added.
func (g *Grammar) SetStart() error {
	if len(g.productions) < 2 {
		return zerr.Generator("cannot set start symbol: no productions declared")
	}
	start := g.productions[1].Name
	aug := &Production{
		Number:     0,
		Name:       AugmentedGoal,
		Rhs:        []string{start},
		Precedence: Precedence{Assoc: AssocRight, Level: 0},
	}
	aug.uniqueSyms = []string{start}
	g.productions[0] = aug
	g.start = start
	g.startIsKnown = true
	return nil
}

// UnusedTerminals returns, in sorted order, every declared terminal (other
// than the reserved error terminal) that never appears on the right-hand
// side of any production.
func (g *Grammar) UnusedTerminals() []string {
	used := map[string]bool{}
	for _, p := range g.productions {
		if p == nil {
			continue
		}
		for _, s := range p.Rhs {
			used[s] = true
		}
	}
	var unused []string
	for _, t := range g.Terminals() {
		if !used[t] {
			unused = append(unused, t)
		}
	}
	return unused
}

// UnusedProductions returns, in sorted order, every nonterminal that never
// appears on the right-hand side of any production and is not the start
// symbol.
func (g *Grammar) UnusedProductions() []string {
	used := map[string]bool{}
	for _, p := range g.productions {
		if p == nil {
			continue
		}
		for _, s := range p.Rhs {
			used[s] = true
		}
	}
	var unused []string
	names := make([]string, 0, len(g.prodsByName))
	for n := range g.prodsByName {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if n == g.start {
			continue
		}
		if !used[n] {
			unused = append(unused, n)
		}
	}
	return unused
}

func uniqueInOrder(syms []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range syms {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// buildItems walks every production and constructs the dot-advancing chain
// of LR items, wiring each item's Before/After fields as spec.md §3
// describes. It must be called once, after SetStart, before any closure is
// computed.
func (g *Grammar) buildItems() {
	for _, p := range g.productions {
		if p == nil {
			continue
		}
		items := make([]*Item, p.Len()+1)
		for i := 0; i <= p.Len(); i++ {
			it := &Item{Production: p, Dot: i}
			if i > 0 {
				it.Before = p.Rhs[i-1]
			}
			if i < p.Len() {
				it.After = g.prodsByName[p.Rhs[i]]
			}
			items[i] = it
		}
		for i := 0; i < len(items); i++ {
			if i+1 < len(items) {
				items[i].Next = items[i+1]
			}
		}
		p.items = items
	}
}

// ComputeFirst computes FIRST(X) for every terminal and nonterminal X by
// fixpoint iteration, per spec.md §4.1. It must be called after SetStart.
func (g *Grammar) ComputeFirst() {
	g.firstSets = map[string]*container.OrderedSet[string]{}

	for t := range g.terminals {
		s := container.NewOrderedSet[string]()
		s.Add(t)
		g.firstSets[t] = s
	}
	endSet := container.NewOrderedSet[string]()
	endSet.Add(EndOfInput)
	g.firstSets[EndOfInput] = endSet

	names := make([]string, 0, len(g.prodsByName))
	for n := range g.prodsByName {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		g.firstSets[n] = container.NewOrderedSet[string]()
	}
	g.firstSets[AugmentedGoal] = container.NewOrderedSet[string]()

	changed := true
	for changed {
		changed = false
		for _, n := range names {
			for _, p := range g.prodsByName[n] {
				for _, f := range g.firstOfSequence(p.Rhs) {
					if g.firstSets[n].Add(f) {
						changed = true
					}
				}
			}
		}
	}
}

// firstOfSequence computes FIRST(beta) for a sequence of symbols per
// spec.md §4.1: FIRST of each symbol is appended in turn, stopping at the
// first symbol that does not derive epsilon, and <empty> is appended iff
// every symbol in beta derives epsilon.
func (g *Grammar) firstOfSequence(beta []string) []string {
	var result []string
	seen := map[string]bool{}
	allEmpty := true
	for _, x := range beta {
		xEmpty := false
		for _, f := range g.firstSets[x].Elements() {
			if f == Empty {
				xEmpty = true
				continue
			}
			if !seen[f] {
				seen[f] = true
				result = append(result, f)
			}
		}
		if !xEmpty {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		result = append(result, Empty)
	}
	return result
}

// First returns FIRST(x) as computed by ComputeFirst, in insertion order.
func (g *Grammar) First(x string) []string {
	if s, ok := g.firstSets[x]; ok {
		return s.Elements()
	}
	return nil
}

// ComputeFollow computes FOLLOW(A) for every nonterminal A by fixpoint
// iteration, per spec.md §4.1. It must be called after ComputeFirst.
func (g *Grammar) ComputeFollow() {
	g.followSets = map[string]*container.OrderedSet[string]{}

	names := make([]string, 0, len(g.prodsByName))
	for n := range g.prodsByName {
		names = append(names, n)
		g.followSets[n] = container.NewOrderedSet[string]()
	}
	g.followSets[AugmentedGoal] = container.NewOrderedSet[string]()
	g.followSets[g.start].Add(EndOfInput)

	added := true
	for added {
		added = false
		for _, p := range g.productions[1:] {
			for i, b := range p.Rhs {
				if !g.IsNonterminal(b) {
					continue
				}
				rest := p.Rhs[i+1:]
				fst := g.firstOfSequence(rest)
				hasEmpty := false
				for _, f := range fst {
					if f == Empty {
						hasEmpty = true
						continue
					}
					if g.followSets[b].Add(f) {
						added = true
					}
				}
				if hasEmpty || i == len(p.Rhs)-1 {
					for _, f := range g.followSets[p.Name].Elements() {
						if g.followSets[b].Add(f) {
							added = true
						}
					}
				}
			}
		}
	}
}

// Follow returns FOLLOW(a) as computed by ComputeFollow, in insertion order.
func (g *Grammar) Follow(a string) []string {
	if s, ok := g.followSets[a]; ok {
		return s.Elements()
	}
	return nil
}

// Build finalizes the grammar: it sets the start symbol, builds the LR item
// chains, and computes FIRST/FOLLOW. It is a convenience wrapper around
// SetStart/buildItems/ComputeFirst/ComputeFollow for callers (zander.ParserGenerator)
// that don't need to interleave those steps with anything else.
func (g *Grammar) Build() error {
	if !g.startIsKnown {
		if err := g.SetStart(); err != nil {
			return err
		}
	}
	g.buildItems()
	g.ComputeFirst()
	g.ComputeFollow()
	return nil
}
