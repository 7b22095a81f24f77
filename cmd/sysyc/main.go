// Command sysyc is the SysY-to-RISCV compiler CLI from spec.md §6.1:
// exactly five arguments, `<mode> ∈ {-koopa, -riscv}`, errors to stderr,
// non-zero exit on failure.
package main

import (
	"fmt"
	"os"

	"sysyc/internal/build"
	"sysyc/internal/config"
	"sysyc/internal/diag"
)

func main() {
	if len(os.Args) != 5 || os.Args[3] != "-o" {
		fmt.Fprintf(os.Stderr, "usage: %s <-koopa|-riscv> <input> -o <output>\n", os.Args[0])
		os.Exit(1)
	}

	modeFlag := os.Args[1]
	input := os.Args[2]
	output := os.Args[4]

	var mode build.Mode
	switch modeFlag {
	case "-koopa":
		mode = build.ModeKoopa
	case "-riscv":
		mode = build.ModeRISCV
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", modeFlag)
		os.Exit(1)
	}

	source, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.Verbose = os.Getenv("SYSYC_VERBOSE") != ""
	cfg.WarnShadow = os.Getenv("SYSYC_WSHADOW") != ""

	res, ferr := build.Compile(string(source), input, mode, cfg)
	if ferr != nil {
		diag.Report(ferr)
		os.Exit(1)
	}

	if cfg.WarnShadow {
		renamed := make([]build.Rename, len(res.Renames))
		copy(renamed, res.Renames)
		build.WarnShadow(renamed)
	}

	if err := os.WriteFile(output, []byte(res.Text), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
