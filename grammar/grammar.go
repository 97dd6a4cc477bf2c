package grammar

// Program is the batch-compiler parse root: leading comments followed by
// one module block. The node shapes themselves live in shared.go, where
// the editor grammar (editor.go's AST) reuses them.
type Program struct {
	SourceElements []*SourceElement `@@*`
}

type SourceElement struct {
	Comment *Comment `  @@`
	Module  *Module  `| @@`
}

type Statement struct {
	Comment    *Comment    `  @@`
	AssertStmt *AssertStmt `| @@`
	LetStmt    *LetStmt    `| @@`
	ReturnStmt *ReturnStmt `| @@`
	AssignStmt *AssignStmt `| @@`
	ExprStmt   *ExprStmt   `| @@`
}
