// Package diag implements the error taxonomy and source-line reporting
// shared by every pass of the compiler (spec.md §7).
package diag

import (
	"fmt"
	"os"
	"strings"

	"github.com/goforj/godump"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"sysyc/internal/token"
)

// Kind identifies which of spec.md §7's error categories a Fatal belongs to.
type Kind int

const (
	ParseError Kind = iota
	ScopeError
	ConstEvalError
	ShapeError
	InvariantError
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "parse error"
	case ScopeError:
		return "scope error"
	case ConstEvalError:
		return "const-eval error"
	case ShapeError:
		return "shape error"
	case InvariantError:
		return "internal invariant violated"
	default:
		return "error"
	}
}

// Fatal is the single error type every pass raises; the driver formats it
// and exits. There is no recovery — the first Fatal aborts compilation.
type Fatal struct {
	Kind Kind
	Tok  token.Token
	Msg  string
}

func (f *Fatal) Error() string { return f.Msg }

// SourceFile records one input file's name and content for caret printing.
type SourceFile struct {
	Name    string
	Content []rune
}

var files []SourceFile

// SetSourceFiles registers the input files consulted by caret diagnostics.
func SetSourceFiles(fs []SourceFile) { files = fs }

func colorEnabled() bool {
	f := os.Stderr
	return term.IsTerminal(int(f.Fd())) || isatty.IsTerminal(f.Fd())
}

func locate(tok token.Token) (name string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(files) {
		return "<unknown>", tok.Line, tok.Column
	}
	return files[tok.FileIndex].Name, tok.Line, tok.Column
}

func printCaret(tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(files) || tok.Line == 0 {
		return
	}
	content := files[tok.FileIndex].Content
	line := tok.Line
	start := 0
	for i, r := range content {
		if line <= 1 {
			break
		}
		if r == '\n' {
			line--
			start = i + 1
		}
	}
	end := len(content)
	for i := start; i < len(content); i++ {
		if content[i] == '\n' {
			end = i
			break
		}
	}
	fmt.Fprintf(os.Stderr, "  %s\n", string(content[start:end]))
	pad := strings.Repeat(" ", max(0, tok.Column-1))
	mark := "^"
	if tok.Len > 1 {
		mark += strings.Repeat("~", tok.Len-1)
	}
	if colorEnabled() {
		fmt.Fprintf(os.Stderr, "  %s\033[32m%s\033[0m\n", pad, mark)
	} else {
		fmt.Fprintf(os.Stderr, "  %s%s\n", pad, mark)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Raise builds and panics with a *Fatal; every pass calls this instead of
// unwinding by hand, and the driver recovers it at the top level.
func Raise(kind Kind, tok token.Token, format string, args ...interface{}) {
	panic(&Fatal{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)})
}

// Report prints a *Fatal to stderr in "file:line:col: error: msg" form,
// with a source caret when position information is available.
func Report(f *Fatal) {
	name, line, col := locate(f.Tok)
	label := "error"
	color := "\033[31m"
	if f.Kind == InvariantError {
		label = "internal error"
	}
	if colorEnabled() {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s%s:\033[0m %s\n", name, line, col, color, label, f.Msg)
	} else {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s: %s\n", name, line, col, label, f.Msg)
	}
	printCaret(f.Tok)
	if f.Kind == InvariantError {
		fmt.Fprintln(os.Stderr, "--- internal state dump ---")
		godump.Dump(f)
	}
}
