// Command sysytest is the golden-file harness for the compiler: it drives
// every testdata/*.sy fixture in-process through internal/build.Compile and
// diffs the emitted text against a co-located *.expected file.
//
// Grounded on the teacher's cmd/gtest/main.go: same flag surface (glob
// pattern, -generate-golden, -v), same JSON summary shape, same colorized
// PASS/FAIL/SKIP/ERROR reporting loop. Unlike gtest, there is no external
// reference compiler and no subprocess to exec — sysyc is compiled straight
// into this binary and driven as a library, so the whole "compile a
// reference binary and run it under a timeout" half of gtest has no
// counterpart here; what survives is the fixture-discovery and
// golden-comparison shape.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"sysyc/internal/build"
	"sysyc/internal/config"
)

var (
	testFiles      = flag.String("test-files", "testdata/*.sy", "Glob pattern(s) for fixtures to test (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate a .expected file for a given source fixture.")
	mode           = flag.String("mode", "riscv", "Pipeline stage to test: koopa or riscv.")
	outputJSON     = flag.String("output", ".sysytest_results.json", "Output file for the JSON test report.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

// FileResult is one fixture's outcome, mirroring gtest's FileTestResult
// shape without the runtime-execution fields it has no use for here.
type FileResult struct {
	File    string `json:"file"`
	Status  string `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string `json:"message,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	m := build.ModeRISCV
	if *mode == "koopa" {
		m = build.ModeKoopa
	} else if *mode != "riscv" {
		log.Fatalf("%s[ERROR]%s unknown -mode %q, want koopa or riscv\n", cRed, cNone, *mode)
	}

	if *generateGolden != "" {
		handleGenerateGolden(*generateGolden, m)
		return
	}

	handleRunTestSuite(m)
}

func goldenPath(sourceFile string) string {
	return strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + ".expected"
}

func compileFixture(sourceFile string, m build.Mode) (string, *FileResult) {
	source, err := os.ReadFile(sourceFile)
	if err != nil {
		return "", &FileResult{File: sourceFile, Status: "ERROR", Message: fmt.Sprintf("could not read fixture: %v", err)}
	}
	res, ferr := build.Compile(string(source), sourceFile, m, config.Default())
	if ferr != nil {
		return "", &FileResult{File: sourceFile, Status: "FAIL", Message: fmt.Sprintf("compile failed: %s: %s", ferr.Kind, ferr.Msg)}
	}
	return res.Text, nil
}

func handleGenerateGolden(sourceFile string, m build.Mode) {
	log.Printf("Generating golden file for %s...\n", sourceFile)
	text, ferr := compileFixture(sourceFile, m)
	if ferr != nil {
		log.Fatalf("%s[ERROR]%s %s\n", cRed, cNone, ferr.Message)
	}
	if err := os.WriteFile(goldenPath(sourceFile), []byte(text), 0644); err != nil {
		log.Fatalf("%s[ERROR]%s failed to write golden file: %v\n", cRed, cNone, err)
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenPath(sourceFile))
}

func handleRunTestSuite(m build.Mode) {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test fixtures found matching the pattern(s).")
		return
	}

	var results []*FileResult
	for _, file := range files {
		results = append(results, testFixture(file, m))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })

	printSummary(results)
	writeJSONReport(results)

	if hasFailures(results) {
		os.Exit(1)
	}
}

func testFixture(file string, m build.Mode) *FileResult {
	golden := goldenPath(file)
	if _, err := os.Stat(golden); os.IsNotExist(err) {
		return &FileResult{File: file, Status: "SKIP", Message: "no .expected golden file"}
	}

	got, ferr := compileFixture(file, m)
	if ferr != nil {
		wantData, _ := os.ReadFile(golden)
		if strings.HasPrefix(strings.TrimSpace(string(wantData)), "; compile error") {
			return &FileResult{File: file, Status: "PASS", Message: "compile failure as expected"}
		}
		return ferr
	}

	wantData, err := os.ReadFile(golden)
	if err != nil {
		return &FileResult{File: file, Status: "ERROR", Message: fmt.Sprintf("could not read golden file: %v", err)}
	}
	want := string(wantData)

	if got != want {
		return &FileResult{
			File:    file,
			Status:  "FAIL",
			Message: "output mismatch",
			Diff:    cmp.Diff(want, got),
		}
	}
	return &FileResult{File: file, Status: "PASS", Message: "output matches golden file"}
}

func printSummary(results []*FileResult) {
	var passed, failed, skipped, errored int
	for _, r := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case "PASS":
			passed++
			if *verbose {
				fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, r.Message)
			}
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			if r.Diff != "" {
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
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			b.WriteString(cRed)
		} else if strings.HasPrefix(trimmed, "+") {
			b.WriteString(cGreen)
		}
		b.WriteString("    " + line + cNone + "\n")
	}
	return b.String()
}

func writeJSONReport(results []*FileResult) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s failed to marshal results: %v\n", cRed, cNone, err)
		return
	}
	if err := os.WriteFile(*outputJSON, data, 0644); err != nil {
		log.Printf("%s[ERROR]%s failed to write %s: %v\n", cRed, cNone, *outputJSON, err)
		return
	}
	fmt.Printf("Full test report saved to %s\n", *outputJSON)
}

func hasFailures(results []*FileResult) bool {
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			abs, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[abs] {
				if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, file)
					seen[abs] = true
				}
			}
		}
	}
	return allFiles, nil
}
