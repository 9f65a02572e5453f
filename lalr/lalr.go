// Package lalr computes LALR(1) lookahead sets over an LR(0) collection
// using the DeRemer–Pennello algorithm: nullable nonterminals, nonterminal
// transitions, the direct-read/reads/includes/lookback relations, and the
// strongly-connected-component "digraph" fixpoint that ties them together.
// This is the hard part of spec.md (§4.3) and is grounded directly on
// rply/parsergenerator.py's add_lalr_lookaheads and its helpers, the
// original implementation this spec was distilled from.
package lalr

import (
	"github.com/gofin/zander/grammar"
	"github.com/gofin/zander/lr0"
)

// Transition names a nonterminal appearing immediately after a dot in some
// item of some LR(0) state: (state, A).
type Transition struct {
	State  int
	Symbol string
}

// Nullable returns the set of nonterminals that derive the empty string, by
// fixpoint over the grammar's productions.
func Nullable(g *grammar.Grammar) map[string]bool {
	nullable := map[string]bool{}
	for {
		changed := false
		for _, p := range g.Productions() {
			if p == nil {
				continue
			}
			if nullable[p.Name] {
				continue
			}
			if p.Len() == 0 {
				nullable[p.Name] = true
				changed = true
				continue
			}
			allNullable := true
			for _, s := range p.Rhs {
				if !nullable[s] {
					allNullable = false
					break
				}
			}
			if allNullable {
				nullable[p.Name] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return nullable
}

// NonterminalTransitions returns T = {(state, A) : some item in state has
// the dot immediately before nonterminal A}, in discovery order (state
// index order, then first-occurrence order within each state).
func NonterminalTransitions(g *grammar.Grammar, col *lr0.Collection) []Transition {
	var trans []Transition
	seen := map[Transition]bool{}
	for _, st := range col.States {
		for _, it := range st.Items {
			if it.AtEnd() {
				continue
			}
			sym := it.Production.Rhs[it.Dot]
			if !g.IsNonterminal(sym) {
				continue
			}
			t := Transition{st.ID, sym}
			if !seen[t] {
				seen[t] = true
				trans = append(trans, t)
			}
		}
	}
	return trans
}

// directRead computes DR(p,A): the terminals appearing immediately after the
// dot in goto(p,A), plus $end when (p,A) is the transition out of the
// initial state on the start symbol.
func directRead(g *grammar.Grammar, col *lr0.Collection, t Transition) []string {
	gid, ok := col.Goto(t.State, t.Symbol)
	if !ok {
		return nil
	}
	var terms []string
	seen := map[string]bool{}
	for _, it := range col.States[gid].Items {
		if it.AtEnd() {
			continue
		}
		a := it.Production.Rhs[it.Dot]
		if g.IsTerminal(a) && !seen[a] {
			seen[a] = true
			terms = append(terms, a)
		}
	}
	if t.State == 0 && t.Symbol == g.Start() {
		if !seen[grammar.EndOfInput] {
			terms = append(terms, grammar.EndOfInput)
		}
	}
	return terms
}

// reads computes the "reads" relation: (p,A) reads (r,B) iff goto(p,A)
// contains an item with the dot immediately before nullable nonterminal B,
// where r is the id of goto(p,A).
func reads(col *lr0.Collection, nullable map[string]bool, t Transition) []Transition {
	gid, ok := col.Goto(t.State, t.Symbol)
	if !ok {
		return nil
	}
	var rel []Transition
	for _, it := range col.States[gid].Items {
		if it.AtEnd() {
			continue
		}
		a := it.Production.Rhs[it.Dot]
		if nullable[a] {
			rel = append(rel, Transition{gid, a})
		}
	}
	return rel
}

// lookbackEntry associates a completed item r, living in state State, with
// the nonterminal transition whose Follow set becomes r's lookahead set at
// State.
type lookbackEntry struct {
	State int
	Item  *grammar.Item
}

// dotMarker is never equal to a real grammar symbol; markerSymbol returns it
// at the spliced-in dot position so a comparison against it always fails,
// matching rply's LRItem.prod (a copy of the production's Rhs with a literal
// "." inserted at the dot) reading as a mismatch there too.
const dotMarker = "\x00.\x00"

// markerSymbol reads rhs as if a dot had been spliced in at dotPos, indexing
// with idx the way rply's LRItem.prod does: positions before the splice are
// untouched, the splice position itself reads as dotMarker, and positions
// after it read one rhs slot earlier than idx. This lets computeLookbackIncludes
// mirror rply's compute_lookback_includes index arithmetic exactly instead of
// re-deriving it by hand.
func markerSymbol(rhs []string, dotPos, idx int) string {
	switch {
	case idx < dotPos:
		return rhs[idx]
	case idx == dotPos:
		return dotMarker
	default:
		return rhs[idx-1]
	}
}

// computeLookbackIncludes walks, for every nonterminal transition (state,N),
// every item in `state` headed by N, chasing the chain of transitions it
// induces to build the lookback relation (which completed items, in which
// states, take their lookaheads from this transition's Follow set) and the
// includes relation (which other transitions this one's Follow set must
// flow into).
func computeLookbackIncludes(g *grammar.Grammar, col *lr0.Collection, trans []Transition, nullable map[string]bool) (lookback map[Transition][]lookbackEntry, includes map[Transition][]Transition) {
	isTrans := map[Transition]bool{}
	for _, t := range trans {
		isTrans[t] = true
	}

	lookback = map[Transition][]lookbackEntry{}
	includes = map[Transition][]Transition{}

	for _, t := range trans {
		var lookb []lookbackEntry
		var incl []Transition

		for _, p := range col.States[t.State].Items {
			if p.Production.Name != t.Symbol {
				continue
			}

			origDot := p.Dot
			prodLen := p.Production.Len()

			lrIndex := origDot
			j := t.State
			ok := true
			for lrIndex < prodLen {
				sym := p.Production.Rhs[lrIndex]
				lrIndex++

				if isTrans[Transition{j, sym}] {
					includesHere := true
					for li := lrIndex; li < prodLen; li++ {
						s := p.Production.Rhs[li]
						if g.IsTerminal(s) || !nullable[s] {
							includesHere = false
							break
						}
					}
					if includesHere {
						incl = append(incl, Transition{j, sym})
					}
				}

				gid, gok := col.Goto(j, sym)
				if !gok {
					ok = false
					break
				}
				j = gid
			}
			if !ok {
				continue
			}

			for _, r := range col.States[j].Items {
				if r.Production.Name != p.Production.Name {
					continue
				}
				if r.Production.Len() != p.Production.Len() {
					continue
				}
				match := true
				for i := 0; i < r.Dot; i++ {
					if r.Production.Rhs[i] != markerSymbol(p.Production.Rhs, origDot, i+1) {
						match = false
						break
					}
				}
				if match {
					lookb = append(lookb, lookbackEntry{State: j, Item: r})
				}
			}
		}

		for _, inc := range incl {
			includes[inc] = append(includes[inc], t)
		}
		lookback[t] = lookb
	}

	return lookback, includes
}

// maxDepth is the depth Digraph assigns a node once its strongly connected
// component has been resolved and popped; depth 0 means unvisited.
const maxDepth = int(^uint(0) >> 1)

// Digraph implements the DeRemer–Pennello SCC traversal described in
// spec.md §4.3/§9: F(x) = FP(x) for each x in X, merged across every
// strongly connected component of the relation R, in a single depth-first
// pass with a stack keyed by x's first-visit depth.
func Digraph(x []Transition, r func(Transition) []Transition, fp func(Transition) []string) map[Transition][]string {
	n := map[Transition]int{}
	f := map[Transition][]string{}
	var stack []Transition

	var traverse func(Transition)
	traverse = func(t Transition) {
		stack = append(stack, t)
		d := len(stack)
		n[t] = d
		f[t] = append([]string(nil), fp(t)...)

		for _, y := range r(t) {
			if n[y] == 0 {
				traverse(y)
			}
			if n[y] < n[t] {
				n[t] = n[y]
			}
			f[t] = mergeUnique(f[t], f[y])
		}

		if n[t] == d {
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				n[top] = maxDepth
				f[top] = f[t]
				if top == t {
					break
				}
			}
		}
	}

	for _, t := range x {
		if n[t] == 0 {
			traverse(t)
		}
	}
	return f
}

func mergeUnique(dst, src []string) []string {
	seen := map[string]bool{}
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}

// Lookaheads is the end product of the LALR lookahead computation: for every
// completed item, in every state it can be reduced in, the set of terminals
// that validly follow.
type Lookaheads struct {
	Nullable map[string]bool
	Read     map[Transition][]string
	Follow   map[Transition][]string
	ByState  map[Transition][]lookbackEntry
}

// Compute runs the full DeRemer–Pennello pipeline of spec.md §4.3 and
// assigns the resulting Follow sets onto every completed grammar.Item's
// Lookaheads map, keyed by the id of the state each reduction occurs in.
func Compute(g *grammar.Grammar, col *lr0.Collection) *Lookaheads {
	nullable := Nullable(g)
	trans := NonterminalTransitions(g, col)

	readSets := Digraph(trans,
		func(t Transition) []Transition { return reads(col, nullable, t) },
		func(t Transition) []string { return directRead(g, col, t) },
	)

	lookback, includes := computeLookbackIncludes(g, col, trans, nullable)

	followSets := Digraph(trans,
		func(t Transition) []Transition { return includes[t] },
		func(t Transition) []string { return readSets[t] },
	)

	for t, entries := range lookback {
		follow := followSets[t]
		for _, e := range entries {
			if e.Item.Lookaheads == nil {
				e.Item.Lookaheads = map[int][]string{}
			}
			e.Item.Lookaheads[e.State] = mergeUnique(e.Item.Lookaheads[e.State], follow)
		}
	}

	return &Lookaheads{
		Nullable: nullable,
		Read:     readSets,
		Follow:   followSets,
		ByState:  lookback,
	}
}
