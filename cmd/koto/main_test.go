package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunEvalSimpleExpression(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--eval", "1 + 1"}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, stderr.String())
	}
}

func TestRunShowBytecodePrintsDisassembly(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--eval", "1 + 1", "--show-bytecode"}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, stderr.String())
	}
	if stdout.Len() == 0 {
		t.Fatalf("expected disassembly output on stdout")
	}
}

func TestRunParseErrorReportsDiagnostic(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--eval", "x = = 1"}, strings.NewReader(""), &stdout, &stderr)
	if code == 0 {
		t.Fatalf("expected a nonzero exit code for invalid syntax")
	}
	if stderr.Len() == 0 {
		t.Fatalf("expected a diagnostic on stderr")
	}
}

func TestRunNoInputReadsPipedStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader("1 + 1"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0 reading piped stdin, got %d (stderr: %s)", code, stderr.String())
	}
}
