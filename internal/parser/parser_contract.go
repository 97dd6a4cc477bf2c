package parser

import "kansoc/internal/ast"

// ParseError is a recoverable syntax error with the token position it
// was reported at. The parser keeps going after recording one, so a
// single pass surfaces every problem in the file.
type ParseError struct {
	Message  string
	Position Position
}

// Parser is the recursive-descent front end over the scanner's token
// stream. It builds ast.Contract; expression parsing is delegated to
// the Pratt parser in parser_pratt.go.
type Parser struct {
	path    string
	tokens  []Token
	current int
	errors  []ParseError
}

func NewParser(path string, tokens []Token) *Parser {
	return &Parser{path: path, tokens: tokens}
}

func (p *Parser) Errors() []ParseError {
	return p.errors
}

// ParseContract parses a whole source file: leading comments, the
// `contract Name { ... }` header, and the item list (use declarations,
// attributed structs, functions).
func (p *Parser) ParseContract() *ast.Contract {
	var leading []ast.ContractItem
	for {
		if p.check(COMMENT) || p.check(BLOCK_COMMENT) {
			leading = append(leading, p.parseComment())
			continue
		}
		if p.check(DOC_COMMENT) {
			leading = append(leading, p.parseDocComment())
			continue
		}
		break
	}

	start := p.consume(CONTRACT, "expected 'contract' keyword")
	if start.Type == ILLEGAL {
		return nil
	}
	name, ok := p.consumeIdent("expected contract name")
	if !ok {
		return nil
	}
	p.consume(LEFT_BRACE, "expected '{' after contract name")

	var items []ast.ContractItem
	for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
		item := p.parseContractItem()
		if item != nil {
			items = append(items, item)
		}
	}
	end := p.consume(RIGHT_BRACE, "expected '}' to close contract")

	return &ast.Contract{
		Pos:             p.makePos(start),
		EndPos:          p.makeEndPos(end),
		LeadingComments: leading,
		Name:            name,
		Items:           items,
	}
}

func (p *Parser) parseContractItem() ast.ContractItem {
	if p.check(COMMENT) || p.check(BLOCK_COMMENT) {
		return p.parseComment()
	}

	// Doc comments and attributes may come in either order before the
	// declaration they annotate (`#[storage]` above or below `/// ...`).
	var doc *ast.DocComment
	var attr *ast.Attribute
	for {
		if p.check(DOC_COMMENT) {
			doc = p.parseDocComment()
			continue
		}
		if p.check(POUND) {
			attr = p.parseAttribute()
			continue
		}
		break
	}

	switch {
	case p.check(USE):
		return p.parseUse()
	case p.check(STRUCT):
		s := p.parseStructWithDoc(attr, doc)
		if s == nil {
			return nil
		}
		return s
	case p.check(EXT):
		p.advance()
		fn := p.parseFunctionWithDoc(attr, doc, true)
		if fn == nil {
			return nil
		}
		return fn
	case p.check(FN):
		fn := p.parseFunctionWithDoc(attr, doc, false)
		if fn == nil {
			return nil
		}
		return fn
	}

	tok := p.peek()
	p.errorAtCurrent("expected use, struct, or function declaration")
	p.advance()
	p.synchronize()
	return &ast.BadContractItem{Bad: ast.BadNode{
		Pos:     p.makePos(tok),
		EndPos:  p.makeEndPos(tok),
		Message: "unexpected token at contract level: " + tok.Lexeme,
	}}
}

func (p *Parser) parseFunctionWithDoc(attr *ast.Attribute, doc *ast.DocComment, external bool) *ast.Function {
	fn := p.parseFunction(attr, external)
	if fn != nil {
		fn.DocComment = doc
	}
	return fn
}

// parseAttribute parses `#[name]`.
func (p *Parser) parseAttribute() *ast.Attribute {
	start := p.consume(POUND, "expected '#'")
	p.consume(LEFT_BRACKET, "expected '[' after '#'")
	name, ok := p.consumeIdent("expected attribute name")
	if !ok {
		p.synchronize()
		return nil
	}
	end := p.consume(RIGHT_BRACKET, "expected ']' to close attribute")
	return &ast.Attribute{
		Pos:    p.makePos(start),
		EndPos: p.makeEndPos(end),
		Name:   name.Value,
	}
}

func (p *Parser) parseComment() *ast.Comment {
	tok := p.advance()
	return &ast.Comment{
		Pos:    p.makePos(tok),
		EndPos: p.makeEndPos(tok),
		Text:   tok.Lexeme,
	}
}

func (p *Parser) parseDocComment() *ast.DocComment {
	tok := p.advance()
	return &ast.DocComment{
		Pos:    p.makePos(tok),
		EndPos: p.makeEndPos(tok),
		Text:   tok.Lexeme,
	}
}

// parseVariableType parses a type position: a named (possibly generic)
// type, or a parenthesized tuple of them.
func (p *Parser) parseVariableType() *ast.VariableType {
	if p.match(LEFT_PAREN) {
		start := p.previous()
		var elements []*ast.VariableType
		for !p.check(RIGHT_PAREN) && !p.isAtEnd() {
			elements = append(elements, p.parseType())
			if !p.match(COMMA) {
				break
			}
		}
		end := p.consume(RIGHT_PAREN, "expected ')' to close tuple type")
		return &ast.VariableType{
			Pos:           p.makePos(start),
			EndPos:        p.makeEndPos(end),
			TupleElements: elements,
		}
	}
	return p.parseType()
}
