// Package repl SPDX-License-Identifier: Apache-2.0
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"kansoc/internal/parser"
)

const PROMPT = ">> "

// Start reads contract source interactively: lines accumulate until a
// blank line, then the buffered snippet is parsed and its AST printed.
// Scan and parse errors are reported per snippet; the loop never exits
// on bad input.
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	var buf strings.Builder

	fmt.Fprint(out, PROMPT)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			buf.WriteString(line)
			buf.WriteString("\n")
			fmt.Fprint(out, ".. ")
			continue
		}
		source := buf.String()
		buf.Reset()
		if strings.TrimSpace(source) == "" {
			fmt.Fprint(out, PROMPT)
			continue
		}

		contract, parseErrors, scanErrors := parser.ParseSource("repl", source)
		for _, e := range scanErrors {
			fmt.Fprintf(out, "scan error at %d:%d: %s\n", e.Position.Line, e.Position.Column, e.Message)
		}
		for _, e := range parseErrors {
			fmt.Fprintf(out, "parse error at %d:%d: %s\n", e.Position.Line, e.Position.Column, e.Message)
		}
		if contract != nil && len(parseErrors) == 0 && len(scanErrors) == 0 {
			fmt.Fprintf(out, "%s\n", contract.String())
		}
		fmt.Fprint(out, PROMPT)
	}
}
