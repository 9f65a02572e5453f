/*
Zanderc builds a grammar and lexer described in a .zgr file and reports the
result: every warning raised during table assembly, and the resulting
state/conflict counts. With -i it then drops into an interactive session for
querying FIRST/FOLLOW sets, parsing sample input, and dumping the built
action/goto table against the built grammar.

Usage:

	zanderc [flags] FILE.zgr

The flags are:

	-v, --version
		Give the current version of zander and then exit.

	-i, --interactive
		After a successful build, start an interactive session for querying
		FIRST/FOLLOW sets of grammar symbols, parsing input lines, and
		dumping the action/goto table.

	-c, --cache FILE
		Save the built table to FILE after a successful build. The table is
		always rebuilt from the grammar file; FILE is never read.
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/gofin/zander"
	"github.com/gofin/zander/internal/version"
	"github.com/gofin/zander/lex"
	"github.com/gofin/zander/table"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitBuildError indicates the grammar file failed to load or build.
	ExitBuildError

	// ExitUsageError indicates the command line was malformed.
	ExitUsageError
)

var (
	returnCode      int     = ExitSuccess
	flagVersion     *bool   = pflag.BoolP("version", "v", false, "Gives the version info")
	flagInteractive *bool   = pflag.BoolP("interactive", "i", false, "Start an interactive FIRST/FOLLOW/parse session after building")
	flagCache       *string = pflag.StringP("cache", "c", "", "Save the built table to this file (never read back)")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	if pflag.NArg() != 1 {
		pterm.Error.Println("expected exactly one grammar file argument")
		returnCode = ExitUsageError
		return
	}
	path := pflag.Arg(0)

	loaded, err := loadGrammarFile(path)
	if err != nil {
		pterm.Error.Println(err.Error())
		returnCode = ExitBuildError
		return
	}

	p, warnings, err := loaded.pg.Build()
	if err != nil {
		pterm.Error.Println(err.Error())
		returnCode = ExitBuildError
		return
	}

	for _, w := range warnings {
		pterm.Warning.Println(w.String())
	}

	pterm.Info.Printfln("built %d states, %d shift/reduce, %d reduce/reduce conflicts",
		len(p.Table.Action), p.Table.ShiftReduceConflictCount, p.Table.ReduceReduceConflictCount)

	if *flagCache != "" {
		if err := table.SaveCache(*flagCache, p.Table); err != nil {
			pterm.Warning.Printfln("could not write cache: %s", err.Error())
		}
	}

	if *flagInteractive {
		tmpl, err := loaded.lg.Build()
		if err != nil {
			pterm.Error.Printfln("build lexer: %s", err.Error())
			returnCode = ExitBuildError
			return
		}
		runInspector(p, tmpl)
	}
}

// runInspector starts a readline-based loop accepting "first SYMBOL",
// "follow SYMBOL", and "parse INPUT..." queries against the built grammar
// and lexer, until "quit" or EOF.
func runInspector(p *zander.Parser, tmpl *lex.Template) {
	rl, err := readline.NewEx(&readline.Config{Prompt: "zanderc> "})
	if err != nil {
		pterm.Error.Printfln("create readline session: %s", err.Error())
		returnCode = ExitBuildError
		return
	}
	defer rl.Close()

	pterm.Info.Println("interactive inspector; commands: first SYMBOL, follow SYMBOL, parse INPUT, table, quit")

	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			return
		case "first":
			if len(fields) != 2 {
				pterm.Warning.Println("usage: first SYMBOL")
				continue
			}
			pterm.Println(strings.Join(p.Grammar.First(fields[1]), " "))
		case "follow":
			if len(fields) != 2 {
				pterm.Warning.Println("usage: follow SYMBOL")
				continue
			}
			pterm.Println(strings.Join(p.Grammar.Follow(fields[1]), " "))
		case "parse":
			if len(fields) < 2 {
				pterm.Warning.Println("usage: parse INPUT")
				continue
			}
			input := strings.Join(fields[1:], " ")
			stream, err := tmpl.Lex(strings.NewReader(input))
			if err != nil {
				pterm.Error.Printfln("lex: %s", err.Error())
				continue
			}
			v, err := p.Parse(stream, nil)
			if err != nil {
				pterm.Error.Printfln("parse: %s", err.Error())
				continue
			}
			pterm.Println(fmt.Sprintf("%v", v))
		case "table":
			pterm.Println(p.Table.String())
		default:
			pterm.Warning.Printfln("unknown command %q", fields[0])
		}
	}
}
