package semantic

import (
	"fmt"
	"math/big"

	"kansoc/internal/ast"
	"kansoc/internal/stdlib"
)

func (a *Analyzer) findSimilarVariables(name string) []string {
	var similar []string

	// Check current scope and parent scopes
	for scope := a.symbols; scope != nil; scope = scope.parent {
		for varName := range scope.symbols {
			if levenshteinDistance(name, varName) <= 2 && len(varName) > 1 {
				similar = append(similar, varName)
			}
		}
	}

	return similar
}

func (a *Analyzer) findSimilarFunctions(name string) []string {
	var similar []string

	// Check local functions
	for funcName := range a.localFunctions {
		if levenshteinDistance(name, funcName) <= 2 && len(funcName) > 1 {
			similar = append(similar, funcName)
		}
	}

	// Check imported functions
	// TODO: Implement imported function lookup

	return similar
}

func (a *Analyzer) findPossibleImports(name string) []string {
	// This would check the standard library for functions with similar names
	// and suggest the appropriate import statements
	var imports []string

	// TODO: Implement standard library function lookup

	return imports
}

func (a *Analyzer) getStructFields(structName string) []string {
	var fields []string

	structDef := a.context.GetUserDefinedType(structName)
	if structDef != nil {
		for _, item := range structDef.Items {
			if field, ok := item.(*ast.StructField); ok {
				fields = append(fields, field.Name.Value)
			}
		}
	}

	return fields
}

// Simple Levenshtein distance for finding similar names
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}

	for i := 0; i < len(b); i++ {
		current := make([]int, len(a)+1)
		current[0] = i + 1

		for j := 0; j < len(a); j++ {
			cost := 0
			if a[j] != b[i] {
				cost = 1
			}
			current[j+1] = min3(
				current[j]+1,     // insertion
				previous[j+1]+1,  // deletion
				previous[j]+cost, // substitution
			)
		}
		previous = current
	}

	return previous[len(a)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// isNumericLiteral checks if a string represents a numeric literal
func (a *Analyzer) isNumericLiteral(value string) bool {
	if len(value) == 0 {
		return false
	}
	// Simple check: starts with digit
	return value[0] >= '0' && value[0] <= '9'
}

// convertASTTypeToTypeRef resolves an AST type annotation to its stdlib
// type reference, the same resolution used for declared variable types.
func (a *Analyzer) convertASTTypeToTypeRef(varType *ast.VariableType) *stdlib.TypeRef {
	return a.resolveVariableType(varType)
}

// getTypeMaxValue returns the maximum value representable by an unsigned
// numeric type, or nil for non-numeric types (which need no range check).
func (a *Analyzer) getTypeMaxValue(typeName string) *big.Int {
	var bits uint
	switch typeName {
	case "U8":
		bits = 8
	case "U16":
		bits = 16
	case "U32":
		bits = 32
	case "U64":
		bits = 64
	case "U128":
		bits = 128
	case "U256":
		bits = 256
	default:
		return nil
	}
	max := new(big.Int).Lsh(big.NewInt(1), bits)
	return max.Sub(max, big.NewInt(1))
}

func (a *Analyzer) addNumericOverflowError(value, typeName, maxValue, suggestion string, pos ast.Position) {
	message := fmt.Sprintf("numeric literal '%s' is too large for type '%s' (maximum is %s)", value, typeName, maxValue)
	if suggestion != "" {
		message += ", " + suggestion
	}
	a.addError(message, pos)
}

// storageAccess records one observed read or write of a storage struct
// field, collected for cross-checking against reads()/writes() clauses.
type storageAccess struct {
	Struct string
	Field  string
	Mode   string // "read" or "write"
	Pos    ast.Position
}

func (a *Analyzer) addStorageAccess(structName, fieldName, mode string, pos ast.Position) {
	a.storageAccesses = append(a.storageAccesses, storageAccess{
		Struct: structName,
		Field:  fieldName,
		Mode:   mode,
		Pos:    pos,
	})
}

// calleeName extracts a plain local-function name from a call's callee,
// or "" when the callee is module-qualified or not a simple identifier.
func (a *Analyzer) calleeName(call *ast.CallExpr) string {
	switch callee := call.Callee.(type) {
	case *ast.IdentExpr:
		return callee.Name
	case *ast.CalleePath:
		if len(callee.Parts) == 1 {
			return callee.Parts[0].Value
		}
	}
	return ""
}

// validateReturnValueUsage checks an expression consumed for its value:
// a call to a local void function cannot appear where a value is
// required, and when the expected type is known the callee's declared
// return type must be compatible with it.
func (a *Analyzer) validateReturnValueUsage(expr ast.Expr, required bool, expectedType *stdlib.TypeRef) {
	if expr == nil || !required {
		return
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return
	}
	name := a.calleeName(call)
	if name == "" {
		return
	}
	localFunc, exists := a.localFunctions[name]
	if !exists || localFunc == nil {
		return
	}
	if localFunc.Return == nil {
		a.addError(fmt.Sprintf("function '%s' does not return a value and cannot be used here", name), call.NodePos())
		return
	}
	if expectedType == nil {
		return
	}
	returnType := a.convertASTTypeToTypeRef(localFunc.Return)
	if returnType == nil {
		return
	}
	if !a.typesMatch(returnType, expectedType) && !a.isNumericPromotion(returnType, expectedType) {
		a.addError(fmt.Sprintf("function '%s' returns '%s' but expected '%s'",
			name, a.typeToString(returnType), a.typeToString(expectedType)), call.NodePos())
	}
}

// currentReturnType resolves the enclosing function's declared return
// type, nil for void functions or outside any function body.
func (a *Analyzer) currentReturnType() *stdlib.TypeRef {
	if a.currentFunction == nil || a.currentFunction.Return == nil {
		return nil
	}
	return a.convertASTTypeToTypeRef(a.currentFunction.Return)
}

// validateReturnStatement checks an explicit `return expr;` against the
// enclosing function's declared return type.
func (a *Analyzer) validateReturnStatement(ret *ast.ReturnStmt) {
	if ret.Value == nil {
		return
	}
	if a.currentFunction != nil && a.currentFunction.Return == nil {
		a.addError(fmt.Sprintf("void function '%s' cannot return a value", a.currentFunction.Name.Value), ret.NodePos())
		return
	}
	expected := a.currentReturnType()
	a.validateReturnValueUsage(ret.Value, true, expected)
	if expected == nil {
		return
	}
	actual := a.inferExpressionType(ret.Value)
	if actual == nil {
		return
	}
	if !a.typesMatch(actual, expected) && !a.isNumericPromotion(actual, expected) {
		a.addTypeMismatchError(a.typeToString(expected), a.typeToString(actual), ret.NodePos())
	}
}

// validateTailExpression checks a block's trailing expression (the
// Rust-style implicit return) against the declared return type.
func (a *Analyzer) validateTailExpression(tail *ast.ExprStmt) {
	if tail == nil || tail.Expr == nil {
		return
	}
	expected := a.currentReturnType()
	a.validateReturnValueUsage(tail.Expr, true, expected)
	if expected == nil {
		return
	}
	actual := a.inferExpressionType(tail.Expr)
	if actual == nil {
		return
	}
	if !a.typesMatch(actual, expected) && !a.isNumericPromotion(actual, expected) {
		a.addTypeMismatchError(a.typeToString(expected), a.typeToString(actual), tail.NodePos())
	}
}
