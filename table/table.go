// Package table assembles the LALR(1) action/goto tables from an LR(0)
// collection and its computed lookaheads, resolving shift/reduce and
// reduce/reduce conflicts using declared precedence, exactly as spec.md §4.4
// describes. It also owns the grammar fingerprint and on-disk table cache
// of spec.md §4.6 (see cache.go).
package table

import (
	"fmt"

	"github.com/gofin/zander/grammar"
	"github.com/gofin/zander/lalr"
	"github.com/gofin/zander/lr0"
	"github.com/gofin/zander/zerr"
)

// ActionKind discriminates the four shapes an action-table cell can take.
type ActionKind int

const (
	// ActionError is the zero value: no entry, meaning "no action" to the
	// parser runtime. This is the representation of an omitted cell,
	// whether because no rule ever reaches it or because a nonassoc
	// conflict explicitly removed it (spec.md §9's first open question).
	ActionError ActionKind = iota
	ActionShift
	ActionReduce
	ActionAccept
)

// Action is one cell of the action table.
type Action struct {
	Kind       ActionKind
	State      int // target state, when Kind == ActionShift
	Production int // production number to reduce, when Kind == ActionReduce
}

func (a Action) String() string {
	switch a.Kind {
	case ActionShift:
		return fmt.Sprintf("shift %d", a.State)
	case ActionReduce:
		return fmt.Sprintf("reduce %d", a.Production)
	case ActionAccept:
		return "accept"
	default:
		return "error"
	}
}

// ConflictKind discriminates the two kinds of conflict spec.md §8 names.
type ConflictKind int

const (
	ConflictShiftReduce ConflictKind = iota
	ConflictReduceReduce
)

// Conflict records one conflict resolved during table assembly. Conflicts
// are never fatal (spec.md §7): they are always resolved deterministically
// and reported here only so Build's caller can turn them into warnings.
type Conflict struct {
	State      int
	Symbol     string
	Kind       ConflictKind
	// Resolution names which action the conflict was resolved to ("shift"
	// or "reduce"); for ConflictReduceReduce it is always "reduce" (the
	// earlier-numbered production).
	Resolution string
}

// Table is the immutable, built action/goto table pair that drives the
// parse.Parser runtime. Once Build returns, nothing in Table is mutated
// again.
type Table struct {
	Grammar *grammar.Grammar

	// Action[state][terminal] is the action to take.
	Action []map[string]Action

	// Goto[state][nonterminal] is the successor state.
	Goto []map[string]int

	// DefaultReduction[state] is the production number to reduce
	// unconditionally in that state, or -1 if the state has no default
	// reduction (spec.md §4.4's "Default reduction" rule).
	DefaultReduction []int

	ShiftReduceConflictCount  int
	ReduceReduceConflictCount int
	Conflicts                 []Conflict
}

type cellOwner struct {
	prod *grammar.Production
}

// Build assembles the action/goto tables for g from its LR(0) collection
// col and LALR lookaheads look, per spec.md §4.4.
func Build(g *grammar.Grammar, col *lr0.Collection, look *lalr.Lookaheads) (*Table, []zerr.Warning, error) {
	t := &Table{
		Grammar:          g,
		Action:           make([]map[string]Action, len(col.States)),
		Goto:             make([]map[string]int, len(col.States)),
		DefaultReduction: make([]int, len(col.States)),
	}

	for _, st := range col.States {
		action := map[string]Action{}
		owner := map[string]cellOwner{}
		blocked := map[string]bool{}

		for _, it := range st.Items {
			if it.AtEnd() {
				if it.Production.Name == grammar.AugmentedGoal {
					action[grammar.EndOfInput] = Action{Kind: ActionAccept}
					owner[grammar.EndOfInput] = cellOwner{prod: it.Production}
					continue
				}

				for _, a := range it.Lookaheads[st.ID] {
					if err := t.resolveReduce(st.ID, a, it.Production, action, owner, blocked); err != nil {
						return nil, nil, err
					}
				}
				continue
			}

			sym := it.Production.Rhs[it.Dot]
			if !g.IsTerminal(sym) {
				continue
			}
			j, ok := col.Goto(st.ID, sym)
			if !ok {
				continue
			}
			if err := t.resolveShift(st.ID, sym, j, it.Production, action, owner, blocked); err != nil {
				return nil, nil, err
			}
		}

		t.Action[st.ID] = action

		gotoRow := map[string]int{}
		for _, sym := range symbolsAfterDotNonterm(g, st.Items) {
			if j, ok := col.Goto(st.ID, sym); ok {
				gotoRow[sym] = j
			}
		}
		t.Goto[st.ID] = gotoRow

		t.DefaultReduction[st.ID] = defaultReductionFor(action)
	}

	var warnings []zerr.Warning
	for _, term := range g.UnusedTerminals() {
		warnings = append(warnings, zerr.UnusedTerminal(term))
	}
	for _, name := range g.UnusedProductions() {
		warnings = append(warnings, zerr.UnreachableProduction(name))
	}
	if t.ShiftReduceConflictCount > 0 {
		warnings = append(warnings, zerr.ShiftReduceConflicts(t.ShiftReduceConflictCount))
	}
	if t.ReduceReduceConflictCount > 0 {
		warnings = append(warnings, zerr.ReduceReduceConflicts(t.ReduceReduceConflictCount))
	}

	return t, warnings, nil
}

func symbolsAfterDotNonterm(g *grammar.Grammar, items []*grammar.Item) []string {
	var syms []string
	seen := map[string]bool{}
	for _, it := range items {
		if it.AtEnd() {
			continue
		}
		sym := it.Production.Rhs[it.Dot]
		if g.IsTerminal(sym) {
			continue
		}
		if !seen[sym] {
			seen[sym] = true
			syms = append(syms, sym)
		}
	}
	return syms
}

// resolveReduce installs a reduce(prod) action for terminal a in state st,
// resolving against any existing shift or reduce entry per spec.md §4.4's
// "Completed item" rules.
func (t *Table) resolveReduce(st int, a string, prod *grammar.Production, action map[string]Action, owner map[string]cellOwner, blocked map[string]bool) error {
	if blocked[a] {
		return nil
	}

	existing, has := action[a]
	if !has {
		action[a] = Action{Kind: ActionReduce, Production: prod.Number}
		owner[a] = cellOwner{prod: prod}
		return nil
	}

	switch existing.Kind {
	case ActionShift:
		// Mirrors rply's build_table exactly: the precedence compared against
		// the lookahead terminal's own declared precedence is whichever
		// production most recently claimed this action cell by shifting, not
		// necessarily prod (the production now being reduced). In the common
		// case of a self-recursive operator production these coincide; they
		// can differ when distinct precedence-tagged productions collide.
		sPrec := owner[a].prod.Precedence
		rPrec := t.Grammar.PrecedenceOf(a)
		switch {
		case sPrec.Level > rPrec.Level, sPrec.Level == rPrec.Level && rPrec.Assoc == grammar.AssocLeft:
			action[a] = Action{Kind: ActionReduce, Production: prod.Number}
			owner[a] = cellOwner{prod: prod}
			if sPrec.Level == 0 && rPrec.Level == 0 {
				t.recordConflict(st, a, ConflictShiftReduce, "reduce")
			}
		case sPrec.Level == rPrec.Level && rPrec.Assoc == grammar.AssocNonAssoc:
			delete(action, a)
			blocked[a] = true
		default:
			if rPrec.Level == 0 {
				t.recordConflict(st, a, ConflictShiftReduce, "shift")
			}
		}
	case ActionReduce:
		oldProd := owner[a].prod
		if oldProd.Number > prod.Number {
			action[a] = Action{Kind: ActionReduce, Production: prod.Number}
			owner[a] = cellOwner{prod: prod}
		}
		t.recordConflict(st, a, ConflictReduceReduce, "reduce")
	case ActionAccept:
		return zerr.Generatorf("accept/reduce conflict in state %d on %q", st, a)
	}
	return nil
}

// resolveShift installs a shift(toState) action for terminal a in state st,
// resolving against any existing reduce entry per spec.md §4.4's "Item with
// terminal after dot" rules. A collision between two distinct shift targets
// for the same terminal is a grammar bug and is fatal.
func (t *Table) resolveShift(st int, a string, toState int, prod *grammar.Production, action map[string]Action, owner map[string]cellOwner, blocked map[string]bool) error {
	if blocked[a] {
		return nil
	}

	existing, has := action[a]
	if !has {
		action[a] = Action{Kind: ActionShift, State: toState}
		owner[a] = cellOwner{prod: prod}
		return nil
	}

	switch existing.Kind {
	case ActionShift:
		if existing.State != toState {
			return zerr.Generatorf("shift/shift conflict in state %d on %q", st, a)
		}
	case ActionReduce:
		rProd := owner[a].prod
		rPrec := rProd.Precedence
		sPrec := t.Grammar.PrecedenceOf(a)
		switch {
		case sPrec.Level > rPrec.Level, sPrec.Level == rPrec.Level && sPrec.Assoc == grammar.AssocRight:
			action[a] = Action{Kind: ActionShift, State: toState}
			owner[a] = cellOwner{prod: prod}
			if rPrec.Level == 0 {
				t.recordConflict(st, a, ConflictShiftReduce, "shift")
			}
		case sPrec.Level == rPrec.Level && sPrec.Assoc == grammar.AssocNonAssoc:
			delete(action, a)
			blocked[a] = true
		default:
			if sPrec.Level == 0 && rPrec.Level == 0 {
				t.recordConflict(st, a, ConflictShiftReduce, "reduce")
			}
		}
	case ActionAccept:
		return zerr.Generatorf("accept/shift conflict in state %d on %q", st, a)
	}
	return nil
}

func (t *Table) recordConflict(state int, symbol string, kind ConflictKind, resolution string) {
	t.Conflicts = append(t.Conflicts, Conflict{State: state, Symbol: symbol, Kind: kind, Resolution: resolution})
	if kind == ConflictShiftReduce {
		t.ShiftReduceConflictCount++
	} else {
		t.ReduceReduceConflictCount++
	}
}

// defaultReductionFor returns the production number to reduce
// unconditionally for a state's action row, or -1 if the row is empty or
// contains anything other than a single repeated reduce action.
func defaultReductionFor(action map[string]Action) int {
	if len(action) == 0 {
		return -1
	}
	var prod int = -1
	for _, a := range action {
		if a.Kind != ActionReduce {
			return -1
		}
		if prod == -1 {
			prod = a.Production
		} else if prod != a.Production {
			return -1
		}
	}
	return prod
}
