package table

import (
	"fmt"
	"sort"

	"github.com/dekarrin/rosed"

	"github.com/gofin/zander/grammar"
)

// String renders t as a human-readable action/goto table: one row per
// state, one column per terminal's action and per nonterminal's goto,
// separated by a "|" column. Grounded directly on
// ictiobus/parse/lalr.go's lalr1Table.String(), adapted from that type's
// string-keyed DFA states to this package's int-indexed Table.
func (t *Table) String() string {
	terms := append(t.Grammar.Terminals(), grammar.EndOfInput)
	nonterms := t.nonterminalNames()

	var data [][]string

	headers := []string{"S", "|"}
	for _, term := range terms {
		headers = append(headers, fmt.Sprintf("A:%s", term))
	}
	headers = append(headers, "|")
	for _, nt := range nonterms {
		headers = append(headers, fmt.Sprintf("G:%s", nt))
	}
	data = append(data, headers)

	for state := range t.Action {
		row := []string{fmt.Sprintf("%d", state), "|"}
		for _, term := range terms {
			cell := ""
			if act, ok := t.Action[state][term]; ok {
				cell = act.String()
			}
			row = append(row, cell)
		}
		row = append(row, "|")
		for _, nt := range nonterms {
			cell := ""
			if gid, ok := t.Goto[state][nt]; ok {
				cell = fmt.Sprintf("%d", gid)
			}
			row = append(row, cell)
		}
		data = append(data, row)
	}

	return rosed.
		Edit("").
		InsertTableOpts(0, data, 10, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}

// nonterminalNames collects every nonterminal that has a goto column in any
// state, in stable sorted order.
func (t *Table) nonterminalNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, row := range t.Goto {
		for nt := range row {
			if !seen[nt] {
				seen[nt] = true
				names = append(names, nt)
			}
		}
	}
	sort.Strings(names)
	return names
}
