package grammar

// AST is the editor-facing parse root the LSP and the grammar-level
// parse path share. It has the same shape as Program; it stays a
// distinct type so the error-tolerant editor grammar can diverge from
// the batch compiler's grammar without touching Program's rules.
type AST struct {
	SourceElements []*SourceElement `@@*`
}

func (a *AST) String() string {
	p := Program{SourceElements: a.SourceElements}
	return p.String()
}

// ErrorNode captures a run of unexpected tokens so the editor grammar
// can keep parsing past a syntax error and surface it as a diagnostic
// instead of aborting the whole file.
type ErrorNode struct {
	Unexpected []string `(@("." | "," | ";" | @Ident))+`
}
