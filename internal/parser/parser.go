package parser

import (
	"fmt"
	"github.com/alecthomas/participle/v2"
	"kansoc/grammar"
	"os"
)

var parser = buildParser()

func buildParser() *participle.Parser[grammar.AST] {
	p, err := participle.Build[grammar.AST](
		participle.Lexer(grammar.KansoLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(3),
	)
	if err != nil {
		panic(fmt.Errorf("failed to build parser: %w", err))
	}

	return p
}

// ParseGrammarFile parses a .ka file straight through participle's
// generated grammar.AST, bypassing the scanner/recursive-descent front
// end that ParseSource (package.go) builds ast.Contract from. Kept
// distinct because semantic analysis and the LSP both key off
// ast.Contract. It reads the file and hands it to ParseGrammarSource,
// which is what cmd/kansoc's parse subcommand and the LSP's
// semantic-token walker call directly; that walker operates on raw
// grammar nodes rather than the resolved contract tree.
func ParseGrammarFile(path string) (*grammar.AST, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseGrammarSource(path, string(source))
}

func ParseGrammarSource(sourceName string, source string) (*grammar.AST, error) {
	ast, err := parser.ParseString(sourceName, source)
	return ast, err
}
