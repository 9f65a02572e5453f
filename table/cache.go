package table

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cnf/structhash"
	"github.com/dekarrin/rezi"

	"github.com/gofin/zander/grammar"
	"github.com/gofin/zander/zerr"
)

// precEntry and prodEntry are the ordered, exported-field shadow of a
// grammar's precedence declarations and productions, built fresh for every
// Fingerprint call so that structhash sees a stable shape regardless of how
// grammar.Grammar itself stores things internally.
type precEntry struct {
	Term  string
	Level int
	Assoc string
}

type prodEntry struct {
	Number int
	Name   string
	Rhs    []string
}

type fingerprintShape struct {
	Start       string
	Terminals   []string
	Precedence  []precEntry
	Productions []prodEntry
}

// Fingerprint computes a stable content hash of g's shape: start symbol,
// terminal set, precedence table, and productions, each put in a canonical
// order first so that two grammars built from differently-ordered but
// semantically identical declarations hash identically (spec.md §4.6,
// §9's "Hashing" invariant). It is grounded on gorgo/lr/earley's use of
// structhash.Hash over an anonymous struct to key its Earley item cache.
func Fingerprint(g *grammar.Grammar) string {
	terms := append([]string(nil), g.Terminals()...)
	sort.Strings(terms)

	var prec []precEntry
	for _, term := range terms {
		p := g.PrecedenceOf(term)
		if p.Level == 0 {
			continue
		}
		prec = append(prec, precEntry{Term: term, Level: p.Level, Assoc: p.Assoc.String()})
	}

	var prods []prodEntry
	for _, p := range g.Productions() {
		if p == nil {
			continue
		}
		prods = append(prods, prodEntry{Number: p.Number, Name: p.Name, Rhs: append([]string(nil), p.Rhs...)})
	}
	sort.Slice(prods, func(i, j int) bool { return prods[i].Number < prods[j].Number })

	shape := fingerprintShape{
		Start:       g.Start(),
		Terminals:   terms,
		Precedence:  prec,
		Productions: prods,
	}

	h, err := structhash.Hash(shape, 1)
	if err != nil {
		// structhash.Hash only fails on types it cannot reflect over; shape
		// is built entirely of exported strings, ints, and slices thereof,
		// so this is unreachable in practice.
		panic(err)
	}
	return h
}

// cachedTable is the on-disk shape persisted by SaveCache: the fingerprint
// the table was built from, plus every field of Table that isn't
// reconstructible from the fingerprint alone.
type cachedTable struct {
	Fingerprint               string
	Action                    []map[string]Action
	Goto                      []map[string]int
	DefaultReduction          []int
	ShiftReduceConflictCount  int
	ReduceReduceConflictCount int
	Conflicts                 []Conflict
}

// SaveCache writes t to path, tagged with its grammar's fingerprint, via a
// temp-file-then-rename so a reader never observes a half-written cache
// (spec.md §4.6). The grammar itself is not persisted: LoadCache re-attaches
// it from the caller's freshly-built grammar.Grammar after verifying the
// fingerprint matches.
func SaveCache(path string, t *Table) error {
	ct := cachedTable{
		Fingerprint:               Fingerprint(t.Grammar),
		Action:                    t.Action,
		Goto:                      t.Goto,
		DefaultReduction:          t.DefaultReduction,
		ShiftReduceConflictCount:  t.ShiftReduceConflictCount,
		ReduceReduceConflictCount: t.ReduceReduceConflictCount,
		Conflicts:                 t.Conflicts,
	}

	data, err := rezi.Enc(ct)
	if err != nil {
		return zerr.WrapGenerator("encode table cache", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".zander-cache-*")
	if err != nil {
		return zerr.WrapGenerator("create temp cache file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return zerr.WrapGenerator("write temp cache file", err)
	}
	if err := tmp.Close(); err != nil {
		return zerr.WrapGenerator("close temp cache file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return zerr.WrapGenerator("install cache file", err)
	}
	return nil
}

// LoadCache reads a table cache from path and reattaches it to g, rejecting
// the cache with zerr.ErrCacheStale if its stored fingerprint does not match
// Fingerprint(g) exactly (spec.md §4.6: any change to the grammar's
// terminals, precedence, or productions invalidates the cache).
func LoadCache(path string, g *grammar.Grammar) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.WrapGenerator("read cache file", err)
	}

	var ct cachedTable
	if _, err := rezi.Dec(data, &ct); err != nil {
		return nil, zerr.WrapGenerator("decode table cache", err)
	}

	want := Fingerprint(g)
	if ct.Fingerprint != want {
		return nil, zerr.ErrCacheStale
	}

	return &Table{
		Grammar:                   g,
		Action:                    ct.Action,
		Goto:                      ct.Goto,
		DefaultReduction:          ct.DefaultReduction,
		ShiftReduceConflictCount:  ct.ShiftReduceConflictCount,
		ReduceReduceConflictCount: ct.ReduceReduceConflictCount,
		Conflicts:                 ct.Conflicts,
	}, nil
}
