// Package lr0 builds the canonical collection of LR(0) item sets for a
// grammar: closure, goto, and the worklist that discovers every reachable
// state. This is the construction spec.md §4.2 describes; the LALR lookahead
// computation in package lalr and the table assembly in package table both
// operate on the Collection this package produces.
package lr0

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofin/zander/grammar"
)

// State is one item set (one parser state) in a canonical LR(0) collection.
// Kernel is the generating set of items — those present before closure
// expansion — and is what identifies the state: two states with equal
// kernels (as a set, independent of discovery order) are the same state.
// Items is the full closure, in the order closure expansion discovered them
// (kernel items first, in kernel order).
type State struct {
	ID     int
	Kernel []*grammar.Item
	Items  []*grammar.Item
}

// kernelKey returns a canonical, order-independent string identifying a
// kernel, used to detect that two differently-discovered kernels name the
// same LR(0) state.
func kernelKey(items []*grammar.Item) string {
	type pair struct {
		prod int
		dot  int
	}
	pairs := make([]pair, len(items))
	for i, it := range items {
		pairs[i] = pair{it.Production.Number, it.Dot}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].prod != pairs[j].prod {
			return pairs[i].prod < pairs[j].prod
		}
		return pairs[i].dot < pairs[j].dot
	})
	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "%d.%d|", p.prod, p.dot)
	}
	return sb.String()
}

// closureCounter generates per-call closure pass ids so Production.MarkClosure
// can do an O(1) "already added in this pass" check instead of a set lookup,
// per spec.md §9.
type closureCounter struct {
	next int
}

func (c *closureCounter) Closure(kernel []*grammar.Item) []*grammar.Item {
	c.next++
	id := c.next

	J := append([]*grammar.Item(nil), kernel...)
	for i := 0; i < len(J); i++ {
		for _, prod := range J[i].After {
			if !prod.MarkClosure(id) {
				continue
			}
			if next0 := prod.Item(0); next0 != nil {
				J = append(J, next0)
			}
		}
	}
	return J
}

// symbolsAfterDot returns, in first-occurrence order, every symbol that
// appears immediately after the dot in some item of the state.
func symbolsAfterDot(items []*grammar.Item) []string {
	var syms []string
	seen := map[string]bool{}
	for _, it := range items {
		if it.AtEnd() {
			continue
		}
		sym := it.Production.Rhs[it.Dot]
		if !seen[sym] {
			seen[sym] = true
			syms = append(syms, sym)
		}
	}
	return syms
}

// gotoKernel collects, in the order they occur in items, the advanced items
// (dot moved one position right) for every item in items whose next symbol
// is sym. This is the pre-closure kernel of goto(items, sym).
func gotoKernel(items []*grammar.Item, sym string) []*grammar.Item {
	var kernel []*grammar.Item
	for _, it := range items {
		n := it.Next
		if n != nil && n.Before == sym {
			kernel = append(kernel, n)
		}
	}
	return kernel
}

// Collection is the canonical collection of LR(0) states for a grammar,
// together with the goto function between them.
type Collection struct {
	States []*State

	// goto_ maps (state id, symbol) to the id of the successor state.
	goto_ map[gotoKey]int
}

type gotoKey struct {
	state int
	sym   string
}

// Goto returns the id of the state reached from state id `from` on symbol
// sym, and whether such a transition exists.
func (c *Collection) Goto(from int, sym string) (int, bool) {
	id, ok := c.goto_[gotoKey{from, sym}]
	return id, ok
}

// Build constructs the canonical collection of LR(0) item sets for g, per
// spec.md §4.2: seed with closure({S' -> .S}), then repeatedly compute goto
// for every symbol appearing after a dot in each discovered state, in
// insertion order, until no new states are found. g must already have had
// Grammar.Build (or SetStart + buildItems) called on it.
func Build(g *grammar.Grammar) (*Collection, error) {
	prods := g.Productions()
	if len(prods) == 0 || prods[0] == nil {
		return nil, fmt.Errorf("lr0: grammar has no augmented production; call Grammar.Build first")
	}

	cc := &closureCounter{}
	startItem := prods[0].Item(0)
	startKernel := []*grammar.Item{startItem}
	startItems := cc.Closure(startKernel)

	col := &Collection{goto_: map[gotoKey]int{}}
	s0 := &State{ID: 0, Kernel: startKernel, Items: startItems}
	col.States = append(col.States, s0)

	index := map[string]int{kernelKey(startKernel): 0}

	for i := 0; i < len(col.States); i++ {
		st := col.States[i]
		for _, sym := range symbolsAfterDot(st.Items) {
			kernel := gotoKernel(st.Items, sym)
			if len(kernel) == 0 {
				continue
			}
			key := kernelKey(kernel)
			idx, ok := index[key]
			if !ok {
				items := cc.Closure(kernel)
				ns := &State{ID: len(col.States), Kernel: kernel, Items: items}
				col.States = append(col.States, ns)
				idx = ns.ID
				index[key] = idx
			}
			col.goto_[gotoKey{i, sym}] = idx
		}
	}

	return col, nil
}
