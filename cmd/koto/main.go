// Command koto is a thin driver over internal/frontend, internal/compiler
// and internal/exec: run a script, optionally dump its disassembly, report
// parse/compile errors with a source-pointing diagnostic and runtime errors
// as a single message. Mirrors
// funxy's cmd/funxy in shape, not in surface syntax.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/compiler"
	"github.com/kotoscript/koto/internal/exec"
	"github.com/kotoscript/koto/internal/frontend"
	"github.com/kotoscript/koto/internal/modules"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("koto", flag.ContinueOnError)
	fs.SetOutput(stderr)
	eval := fs.String("eval", "", "evaluate the given source string instead of a file")
	showBytecode := fs.Bool("show-bytecode", false, "print the compiled chunk's disassembly before running")
	showAnnotated := fs.Bool("show-annotated", false, "print the compiled chunk's instructions with their source positions as YAML before running")
	runTests := fs.Bool("tests", false, "after the script completes, print a notice; no tests are collected or run")
	interactive := fs.Bool("i", false, "read the script from stdin even when stdin is a terminal")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var src string
	var sourcePath string
	switch {
	case *eval != "":
		src = *eval
		sourcePath = "<eval>"
	case fs.NArg() > 0:
		path := fs.Arg(0)
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		src = string(data)
		sourcePath = path
	default:
		if *interactive || !stdinIsTerminal(stdin) {
			data, err := io.ReadAll(bufio.NewReader(stdin))
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			src = string(data)
			sourcePath = "<stdin>"
		} else {
			fmt.Fprintln(stderr, "usage: koto [--eval SRC | --show-bytecode | --tests] [script.koto]")
			return 2
		}
	}

	block, err := frontend.Parse(src)
	if err != nil {
		reportDiagnostic(stderr, src, sourcePath, err)
		return 1
	}

	chunk, err := compiler.CompileMain(block, sourcePath)
	if err != nil {
		reportDiagnostic(stderr, src, sourcePath, err)
		return 1
	}

	if *showBytecode {
		printDisassembly(stdout, chunk, sourcePath)
	}
	if *showAnnotated {
		annotated, err := bytecode.DisassembleAnnotated(chunk)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprint(stdout, annotated)
	}

	vm := exec.New()
	vm.SetOutput(stdout)
	roots := []string{"."}
	if sourcePath != "<eval>" && sourcePath != "<stdin>" {
		roots = []string{filepath.Dir(sourcePath)}
	}
	vm.SetResolver(modules.NewFileLoader(roots...))

	if _, err := vm.Run(chunk); err != nil {
		fmt.Fprintf(stderr, "%s: runtime error: %s\n", sourcePath, err)
		return 1
	}

	if *runTests {
		return runChunkTests(stderr, vm, chunk)
	}
	return 0
}

// stdinIsTerminal reports whether stdin is an interactive terminal, used to
// decide whether running with no --eval/file argument should block waiting
// on piped input or print usage. Only an *os.File has a file descriptor
// isatty can inspect; anything else (a test's strings.Reader, an embedder's
// custom io.Reader) is treated as non-interactive piped input.
func stdinIsTerminal(stdin io.Reader) bool {
	f, ok := stdin.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

// runChunkTests is a placeholder hook for the --tests flag: a chunk whose
// top-level map literal carries @tests/@test NAME meta entries would have
// them invoked here, the way funxy's own `test` subcommand runs a module's
// declared tests after loading it. No test runner is wired yet since this
// frontend doesn't surface top-level @tests blocks outside of map literals.
func runChunkTests(stderr io.Writer, vm *exec.VM, chunk *bytecode.Chunk) int {
	fmt.Fprintln(stderr, "no top-level tests declared")
	return 0
}

// reportDiagnostic prints a caret-underlined span for any error carrying
// Line/Col (compiler.Error, frontend.Error), falling back to a bare message
// otherwise.
func reportDiagnostic(w io.Writer, src, sourcePath string, err error) {
	line, col, ok := errorSpan(err)
	if !ok {
		fmt.Fprintf(w, "%s: %s\n", sourcePath, err)
		return
	}
	lines := strings.Split(src, "\n")
	fmt.Fprintf(w, "%s:%d:%d: %s\n", sourcePath, line, col, err)
	if line-1 >= 0 && line-1 < len(lines) {
		srcLine := lines[line-1]
		fmt.Fprintln(w, srcLine)
		if col-1 >= 0 && col-1 <= len(srcLine) {
			fmt.Fprintln(w, strings.Repeat(" ", col-1)+"^")
		}
	}
}

func errorSpan(err error) (line, col int, ok bool) {
	switch e := err.(type) {
	case *compiler.Error:
		return e.Line, e.Col, true
	case *frontend.Error:
		return e.Line, e.Col, true
	}
	return 0, 0, false
}

// printDisassembly renders the chunk and reports its size in human units,
// grounded on funxy's own CLI-facing size reporting.
func printDisassembly(w io.Writer, chunk *bytecode.Chunk, name string) {
	fmt.Fprint(w, bytecode.Disassemble(chunk, name))
	fmt.Fprintf(w, "-- %s bytecode, %d constants --\n",
		humanize.Bytes(uint64(len(chunk.Bytes))),
		len(chunk.Constants.Ints)+len(chunk.Constants.Floats)+len(chunk.Constants.Strings))
}
