// Command pasc compiles one or more Pascal-like source files into inline
// x86-ish assembly listings. It tolerates unknown flags rather than
// defining any, and treats every non-flag-looking argument as an input
// path; with no arguments it falls back to a single default file.
package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bx-lang/pasc/pkg/config"
	"github.com/bx-lang/pasc/pkg/diag"
	"github.com/bx-lang/pasc/pkg/parser"
)

func main() {
	cfg := config.New()
	cfg.Color = term.IsTerminal(int(os.Stderr.Fd()))

	var files []string
	for _, a := range os.Args[1:] {
		if strings.HasPrefix(a, "-") {
			continue
		}
		files = append(files, a)
	}

	explicit := len(files) > 0
	if !explicit {
		files = []string{"code.txt"}
	}

	exitCode := 0
	for _, f := range files {
		if compileFile(f, cfg) != "good" && !explicit {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// compileFile compiles one input file, printing the required one-line
// report plus, on error, a caret-annotated source snippet. It returns
// "good", "bad" (parsed without a fatal error but left tokens unconsumed
// or groupings unbalanced), or "error" (a *diag.Error aborted parsing).
func compileFile(path string, cfg *config.Config) (status string) {
	status = "good"

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %s\n", path, err)
		return "error"
	}

	lst := parser.LstPathFor(path, cfg.OutDir)
	p, err := parser.New(path, data, lst, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %s\n", path, err)
		return "error"
	}

	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			e, ok := r.(*diag.Error)
			if !ok {
				panic(r)
			}
			status = "error"
			fmt.Fprintf(os.Stderr, "%s: error: %s\n", path, e.Message)
			if snippet := diag.SourceLine(p.Source(), e.Tok, cfg.Color); snippet != "" {
				fmt.Fprintln(os.Stderr, snippet)
			}
		}()
		p.Compile()
	}()
	if status == "error" {
		return status
	}

	produced, remaining := p.TokenCounts()
	consumed := produced - remaining
	grouping, block := p.Depths()

	for _, w := range p.Warnings() {
		diag.Warn(os.Stderr, w, cfg.Color, false)
	}

	if consumed != produced || grouping != 0 || block != 0 {
		fmt.Fprintf(os.Stderr, "%s: Bad code (parsed %d/%d tokens)\n", path, consumed, produced)
		return "bad"
	}
	fmt.Printf("%s: Good code (parsed %d/%d tokens)\n", path, consumed, produced)
	return "good"
}
