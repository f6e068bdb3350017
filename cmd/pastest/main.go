// Command pastest runs the compiler against a set of fixture sources and
// diffs each generated listing against a checked-in golden file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/bx-lang/pasc/pkg/config"
	"github.com/bx-lang/pasc/pkg/diag"
	"github.com/bx-lang/pasc/pkg/parser"
)

var (
	testFiles      = flag.String("test-files", "testdata/*.pas", "Glob pattern(s) for fixture sources to test (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate/refresh the golden listing for a given source file.")
	goldenDir      = flag.String("golden-dir", "", "Directory holding .golden files (defaults to each fixture's own directory).")
	verbose        = flag.Bool("v", false, "Print the full diff for every failing case, not just a one-line summary.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

type caseResult struct {
	File    string
	Status  string // PASS, FAIL, SKIP, ERROR
	Message string
	Diff    string
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *generateGolden != "" {
		generateOne(*generateGolden)
		return
	}
	runSuite()
}

func goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".golden"
	dir := *goldenDir
	if dir == "" {
		dir = filepath.Dir(sourceFile)
	}
	return filepath.Join(dir, name)
}

// hashSource returns the xxhash of a fixture's bytes, used to skip a case
// whose source is identical to one already compiled earlier in this run.
func hashSource(path string) (uint64, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, err
	}
	return xxhash.Sum64(data), data, nil
}

// compileToListing runs one fixture through the compiler, returning the
// text the driver would have printed to the .lst file and a status of
// "good", "bad", or "error" following the same classification cmd/pasc
// uses: a *diag.Error panic is "error", a clean parse that leaves tokens
// unconsumed or groupings unbalanced is "bad", anything else is "good".
func compileToListing(sourceFile string, data []byte) (listing, status, message string) {
	dir, err := os.MkdirTemp("", "pastest-*")
	if err != nil {
		return "", "error", err.Error()
	}
	defer os.RemoveAll(dir)
	lst := filepath.Join(dir, "out.lst")

	cfg := config.New()
	cfg.Color = false
	p, err := parser.New(sourceFile, data, lst, cfg)
	if err != nil {
		return "", "error", err.Error()
	}

	var compileErr *diag.Error
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
			compileErr = e
		}()
		p.Compile()
	}()

	raw, readErr := os.ReadFile(lst)
	if readErr == nil {
		listing = string(raw)
	}

	if compileErr != nil {
		return listing, "error", compileErr.Error()
	}

	produced, remaining := p.TokenCounts()
	grouping, block := p.Depths()
	if remaining != 0 || grouping != 0 || block != 0 {
		return listing, "bad", fmt.Sprintf("parsed %d/%d tokens, grouping=%d block=%d", produced-remaining, produced, grouping, block)
	}
	return listing, "good", ""
}

func generateOne(sourceFile string) {
	log.Printf("Generating golden listing for %s...\n", sourceFile)
	_, data, err := hashSource(sourceFile)
	if err != nil {
		log.Fatalf("%s[ERROR]%s could not read %s: %v\n", cRed, cNone, sourceFile, err)
	}
	listing, status, message := compileToListing(sourceFile, data)
	if status != "good" {
		log.Fatalf("%s[ERROR]%s %s did not compile cleanly (%s: %s); refusing to golden a failing fixture\n", cRed, cNone, sourceFile, status, message)
	}
	golden := goldenPath(sourceFile)
	if *goldenDir != "" {
		if err := os.MkdirAll(*goldenDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s creating %s: %v\n", cRed, cNone, *goldenDir, err)
		}
	}
	if err := os.WriteFile(golden, []byte(listing), 0644); err != nil {
		log.Fatalf("%s[ERROR]%s writing %s: %v\n", cRed, cNone, golden, err)
	}
	log.Printf("%s[SUCCESS]%s golden listing written to %s\n", cGreen, cNone, golden)
}

func runSuite() {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No fixture files matched the given pattern(s).")
		return
	}

	var results []caseResult
	seenHashes := make(map[uint64]string)
	for _, file := range files {
		hash, data, err := hashSource(file)
		if err != nil {
			results = append(results, caseResult{File: file, Status: "ERROR", Message: fmt.Sprintf("reading fixture: %v", err)})
			continue
		}
		if original, seen := seenHashes[hash]; seen {
			results = append(results, caseResult{File: file, Status: "SKIP", Message: fmt.Sprintf("content is identical to %s", original)})
			continue
		}
		seenHashes[hash] = file
		results = append(results, testOne(file, data))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	printSummary(results)
	if hasFailures(results) {
		os.Exit(1)
	}
}

func testOne(file string, data []byte) caseResult {
	golden := goldenPath(file)
	wantRaw, err := os.ReadFile(golden)
	if err != nil {
		return caseResult{File: file, Status: "SKIP", Message: fmt.Sprintf("no golden listing at %s (run -generate-golden)", golden)}
	}

	gotListing, status, message := compileToListing(file, data)
	if status != "good" {
		return caseResult{
			File:    file,
			Status:  "FAIL",
			Message: fmt.Sprintf("fixture did not compile cleanly (%s): %s", status, message),
			Diff:    cmp.Diff(string(wantRaw), gotListing),
		}
	}

	if gotListing == string(wantRaw) {
		return caseResult{File: file, Status: "PASS", Message: "listing matches golden"}
	}
	return caseResult{
		File:    file,
		Status:  "FAIL",
		Message: "listing mismatch",
		Diff:    cmp.Diff(string(wantRaw), gotListing),
	}
}

func printSummary(results []caseResult) {
	var passed, failed, skipped, errored int
	for _, r := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s...\n", r.File)
		switch r.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, r.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			if *verbose && r.Diff != "" {
				fmt.Println(formatDiff(r.Diff))
			}
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDiff(diff string) string {
	var b strings.Builder
	b.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		indented := "    " + line
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			b.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			b.WriteString(cGreen)
		}
		b.WriteString(indented)
		b.WriteString(cNone)
		b.WriteString("\n")
	}
	return b.String()
}

func hasFailures(results []caseResult) bool {
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var all []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				continue
			}
			if seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				all = append(all, abs)
				seen[abs] = true
			}
		}
	}
	return all, nil
}
