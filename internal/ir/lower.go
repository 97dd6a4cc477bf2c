package ir

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"kansoc/internal/ast"
	"kansoc/internal/compilererr"
	"kansoc/internal/semantic"
)

// Memory layout the lowering assumes: the first two words are keccak
// scratch for mapping-slot addressing, everything from abiBufferBase up
// is the ABI staging area for event data and return values. Nothing
// here persists across an external call, so the regions can be reused
// freely within a function.
const (
	hashScratchKey  = 0x00
	hashScratchSlot = 0x20
	abiBufferBase   = 0x80
)

// Build consumes a type-checked contract and produces the SSA context
// the optimizer runs on. This is the HIR boundary from the compile
// pipeline's point of view: everything above it (parser, semantic
// analysis) stays in the front end's own idiom, everything below speaks
// ir.Instruction. Built on the sealed-block phi construction this
// builder carries, so joins and loops resolve variables without any
// second renaming pass.
func (b *Builder) Build(contract *ast.Contract, reg *semantic.ContextRegistry) (*Context, error) {
	lw := &lowering{
		b:         b,
		reg:       reg,
		slots:     make(map[string]int),
		slotTypes: make(map[string]Type),
		events:    make(map[string]*eventDef),
		locals:    make(map[string]*ast.Function),
	}
	b.ctx.Contract = contract.Name.Value

	lw.collectStorageLayout(contract)
	lw.collectEvents(contract)
	for _, item := range contract.Items {
		if fn, ok := item.(*ast.Function); ok {
			lw.locals[fn.Name.Value] = fn
		}
	}

	for _, item := range contract.Items {
		fn, ok := item.(*ast.Function)
		if !ok {
			continue
		}
		if err := lw.lowerFunction(fn); err != nil {
			return nil, err
		}
	}
	return b.ctx, nil
}

type lowering struct {
	b         *Builder
	reg       *semantic.ContextRegistry
	slots     map[string]int
	slotTypes map[string]Type
	events    map[string]*eventDef
	locals    map[string]*ast.Function
}

type eventDef struct {
	name      string
	signature string
	fields    []eventField
}

type eventField struct {
	name    string
	typ     Type
	indexed bool
}

// collectStorageLayout assigns one slot per field of the #[storage]
// struct, in declaration order.
func (lw *lowering) collectStorageLayout(contract *ast.Contract) {
	for _, item := range contract.Items {
		structNode, ok := item.(*ast.Struct)
		if !ok || structNode.Attribute == nil || structNode.Attribute.Name != "storage" {
			continue
		}
		for _, si := range structNode.Items {
			field, ok := si.(*ast.StructField)
			if !ok {
				continue
			}
			slot := len(lw.b.ctx.Storage)
			typ := convertASTType(field.VariableType)
			lw.slots[field.Name.Value] = slot
			lw.slotTypes[field.Name.Value] = typ
			lw.b.ctx.Storage = append(lw.b.ctx.Storage, &StorageSlot{Slot: slot, Name: field.Name.Value, Type: typ})
		}
	}
}

// collectEvents records each #[event] struct's canonical ABI signature
// and field layout. Address-typed fields become indexed topics, the
// rest are ABI-encoded into the log's data section.
func (lw *lowering) collectEvents(contract *ast.Contract) {
	for _, item := range contract.Items {
		structNode, ok := item.(*ast.Struct)
		if !ok || structNode.Attribute == nil || structNode.Attribute.Name != "event" {
			continue
		}
		def := &eventDef{name: structNode.Name.Value}
		var abiTypes []string
		for _, si := range structNode.Items {
			field, ok := si.(*ast.StructField)
			if !ok {
				continue
			}
			typ := convertASTType(field.VariableType)
			_, isAddr := typ.(*AddressType)
			def.fields = append(def.fields, eventField{name: field.Name.Value, typ: typ, indexed: isAddr})
			abiTypes = append(abiTypes, abiTypeName(field.VariableType))
		}
		def.signature = fmt.Sprintf("%s(%s)", def.name, strings.Join(abiTypes, ","))
		lw.events[def.name] = def
		lw.b.ctx.EventSignatures = append(lw.b.ctx.EventSignatures, &EventSignature{
			Name:      def.name + "_sig",
			EventName: def.name,
			Signature: def.signature,
		})
	}
}

func (lw *lowering) lowerFunction(astFn *ast.Function) error {
	fn := &Function{
		Name:       astFn.Name.Value,
		External:   astFn.External,
		Create:     astFn.Attribute != nil && astFn.Attribute.Name == "create",
		ReturnType: convertASTType(astFn.Return),
		Reads:      clauseIdentifiers(astFn.Reads),
		Writes:     clauseIdentifiers(astFn.Writes),
	}
	for _, p := range astFn.Params {
		fn.Params = append(fn.Params, &Parameter{Name: p.Name.Value, Type: convertASTType(p.Type)})
	}

	lw.b.StartFunction(fn)

	if astFn.Body != nil {
		if err := lw.lowerBlock(astFn.Body); err != nil {
			return err
		}
	}
	// A body that falls off the end without a tail expression returns
	// void.
	if lw.b.currentBlock != nil {
		if err := lw.emitReturn(fn, nil); err != nil {
			return err
		}
	}
	lw.b.FinishFunction()
	return nil
}

// lowerBlock lowers a statement block. A trailing expression without a
// semicolon is an implicit return, matching the front end's Rust-style
// block-value convention.
func (lw *lowering) lowerBlock(block *ast.FunctionBlock) error {
	fn := lw.b.currentFunc
	for i, item := range block.Items {
		if lw.b.currentBlock == nil {
			return nil // the rest of the block is unreachable
		}
		if i == len(block.Items)-1 && block.TailExpr == nil {
			if exprStmt, ok := item.(*ast.ExprStmt); ok && !exprStmt.Semicolon {
				val, err := lw.lowerExpr(exprStmt.Expr)
				if err != nil {
					return err
				}
				return lw.emitReturn(fn, val)
			}
		}
		if err := lw.lowerStatement(item); err != nil {
			return err
		}
	}
	if block.TailExpr != nil && lw.b.currentBlock != nil {
		val, err := lw.lowerExpr(block.TailExpr.Expr)
		if err != nil {
			return err
		}
		return lw.emitReturn(fn, val)
	}
	return nil
}

func (lw *lowering) lowerStatement(item ast.FunctionBlockItem) error {
	switch s := item.(type) {
	case *ast.LetStmt:
		val, err := lw.lowerExpr(s.Expr)
		if err != nil {
			return err
		}
		bound, err := lw.asValue(val, s.Name.Value)
		if err != nil {
			return err
		}
		lw.b.WriteVariable(s.Name.Value, lw.b.currentBlock, bound)
		return nil
	case *ast.AssignStmt:
		return lw.lowerAssign(s)
	case *ast.RequireStmt:
		return lw.lowerRequire(s)
	case *ast.IfStmt:
		return lw.lowerIf(s)
	case *ast.ReturnStmt:
		var val Operand
		if s.Value != nil {
			var err error
			val, err = lw.lowerExpr(s.Value)
			if err != nil {
				return err
			}
		}
		return lw.emitReturn(lw.b.currentFunc, val)
	case *ast.ExprStmt:
		_, err := lw.lowerExpr(s.Expr)
		return err
	case *ast.Comment:
		return nil
	}
	return nil
}

func (lw *lowering) lowerAssign(s *ast.AssignStmt) error {
	rhs, err := lw.lowerExpr(s.Value)
	if err != nil {
		return err
	}

	if s.Operator != ast.ASSIGN {
		current, err := lw.lowerExpr(s.Target)
		if err != nil {
			return err
		}
		op, ok := compoundOpcode(s.Operator)
		if !ok {
			return &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "unsupported compound assignment operator"}
		}
		rhs, err = lw.b.Emit(op, []Operand{current, rhs}, operandType(current))
		if err != nil {
			return err
		}
	}

	switch target := s.Target.(type) {
	case *ast.IdentExpr:
		bound, err := lw.asValue(rhs, target.Name)
		if err != nil {
			return err
		}
		lw.b.WriteVariable(target.Name, lw.b.currentBlock, bound)
		return nil
	case *ast.FieldAccessExpr:
		slot, ok := lw.storageSlotOf(target)
		if !ok {
			return &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("assignment to unknown storage field %s", target.Field)}
		}
		_, err := lw.b.Emit(OpSStore, []Operand{U256FromUint64(uint64(slot)), rhs}, nil)
		return err
	case *ast.IndexExpr:
		addr, err := lw.mappingAddress(target)
		if err != nil {
			return err
		}
		_, err = lw.b.Emit(OpSStore, []Operand{addr, rhs}, nil)
		return err
	}
	return &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "unsupported assignment target"}
}

// lowerRequire branches on the condition: the satisfied path falls
// through, the failing path reverts with the error's 4-byte selector as
// return data (selector in the word's top bytes, revert length 4).
func (lw *lowering) lowerRequire(s *ast.RequireStmt) error {
	if len(s.Args) == 0 {
		return nil
	}
	cond, err := lw.lowerExpr(s.Args[0])
	if err != nil {
		return err
	}
	condVal, err := lw.asValue(cond, "require_cond")
	if err != nil {
		return err
	}

	var selector Operand
	if len(s.Args) > 1 {
		sel, err := lw.lowerExpr(s.Args[1])
		if err != nil {
			return err
		}
		selector = sel
	}

	src := lw.b.currentBlock
	okBlock := lw.b.CreateBlock("require_ok")
	failBlock := lw.b.CreateBlock("require_fail")
	if err := lw.b.Terminate(OpJnz, []Operand{condVal, Label{Name: okBlock.Label}, Label{Name: failBlock.Label}}); err != nil {
		return err
	}

	lw.b.AddPredecessor(failBlock, src)
	lw.b.SwitchToBlock(failBlock)
	lw.b.SealBlock(failBlock)
	if selector != nil {
		if _, err := lw.b.Emit(OpMStore, []Operand{U256FromUint64(hashScratchKey), selector}, nil); err != nil {
			return err
		}
		if err := lw.b.Terminate(OpRevert, []Operand{U256FromUint64(hashScratchKey), U256FromUint64(4)}); err != nil {
			return err
		}
	} else {
		if err := lw.b.Terminate(OpRevert, []Operand{U256FromUint64(0), U256FromUint64(0)}); err != nil {
			return err
		}
	}

	lw.b.AddPredecessor(okBlock, src)
	lw.b.SwitchToBlock(okBlock)
	lw.b.SealBlock(okBlock)
	_, err = lw.b.Emit(OpAssert, []Operand{condVal}, nil)
	return err
}

func (lw *lowering) lowerIf(s *ast.IfStmt) error {
	cond, err := lw.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	condVal, err := lw.asValue(cond, "if_cond")
	if err != nil {
		return err
	}

	src := lw.b.currentBlock
	thenBlock := lw.b.CreateBlock("then")
	joinBlock := lw.b.CreateBlock("endif")
	hasElse := s.Else != nil || s.ElseIf != nil

	elseTarget := joinBlock
	if hasElse {
		elseTarget = lw.b.CreateBlock("else")
	}
	if err := lw.b.Terminate(OpJnz, []Operand{condVal, Label{Name: thenBlock.Label}, Label{Name: elseTarget.Label}}); err != nil {
		return err
	}

	joinReachable := false

	lw.b.AddPredecessor(thenBlock, src)
	lw.b.SwitchToBlock(thenBlock)
	lw.b.SealBlock(thenBlock)
	if err := lw.lowerBlock(s.Then); err != nil {
		return err
	}
	if lw.b.currentBlock != nil {
		from := lw.b.currentBlock
		if err := lw.b.Terminate(OpJmp, []Operand{Label{Name: joinBlock.Label}}); err != nil {
			return err
		}
		lw.b.AddPredecessor(joinBlock, from)
		joinReachable = true
	}

	if hasElse {
		lw.b.AddPredecessor(elseTarget, src)
		lw.b.SwitchToBlock(elseTarget)
		lw.b.SealBlock(elseTarget)
		var err error
		if s.Else != nil {
			err = lw.lowerBlock(s.Else)
		} else {
			err = lw.lowerIf(s.ElseIf)
		}
		if err != nil {
			return err
		}
		if lw.b.currentBlock != nil {
			from := lw.b.currentBlock
			if err := lw.b.Terminate(OpJmp, []Operand{Label{Name: joinBlock.Label}}); err != nil {
				return err
			}
			lw.b.AddPredecessor(joinBlock, from)
			joinReachable = true
		}
	} else {
		lw.b.AddPredecessor(joinBlock, src)
		joinReachable = true
	}

	if !joinReachable {
		// Both arms terminated; nothing ever reaches the join block.
		lw.b.currentBlock = nil
		return nil
	}
	lw.b.SwitchToBlock(joinBlock)
	lw.b.SealBlock(joinBlock)
	return nil
}

// emitReturn lowers the function-exit convention: external and create
// functions hand their single word back through the ABI buffer
// (mstore + return), internal functions use the ret pseudo-terminator
// that inlining later rewires into a jmp.
func (lw *lowering) emitReturn(fn *Function, val Operand) error {
	if fn.External || fn.Create {
		if val == nil {
			return lw.b.Terminate(OpReturn, []Operand{U256FromUint64(0), U256FromUint64(0)})
		}
		if _, err := lw.b.Emit(OpMStore, []Operand{U256FromUint64(abiBufferBase), val}, nil); err != nil {
			return err
		}
		return lw.b.Terminate(OpReturn, []Operand{U256FromUint64(abiBufferBase), U256FromUint64(32)})
	}
	if val == nil {
		return lw.b.Terminate(OpRet, nil)
	}
	return lw.b.Terminate(OpRet, []Operand{val})
}

func (lw *lowering) lowerExpr(expr ast.Expr) (Operand, error) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return literalOperand(e.Value)
	case *ast.IdentExpr:
		switch e.Name {
		case "true":
			return U256FromUint64(1), nil
		case "false":
			return U256FromUint64(0), nil
		}
		return lw.b.ReadVariable(e.Name)
	case *ast.ParenExpr:
		return lw.lowerExpr(e.Value)
	case *ast.UnaryExpr:
		return lw.lowerUnary(e)
	case *ast.BinaryExpr:
		return lw.lowerBinary(e)
	case *ast.FieldAccessExpr:
		if slot, ok := lw.storageSlotOf(e); ok {
			return lw.b.Emit(OpSLoad, []Operand{U256FromUint64(uint64(slot))}, lw.storageValueType(e.Field))
		}
		// Module-qualified constant such as errors::SelfTransfer.
		if ident, ok := e.Target.(*ast.IdentExpr); ok && ident.Name != "State" {
			return errorSelectorWord(e.Field), nil
		}
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("unknown field access %s", e.Field)}
	case *ast.IndexExpr:
		addr, err := lw.mappingAddress(e)
		if err != nil {
			return nil, err
		}
		return lw.b.Emit(OpSLoad, []Operand{addr}, lw.keyedValueType(e))
	case *ast.CallExpr:
		return lw.lowerCall(e)
	case *ast.CalleePath:
		if len(e.Parts) > 0 {
			return errorSelectorWord(e.Parts[len(e.Parts)-1].Value), nil
		}
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "empty path expression"}
	case *ast.TupleExpr:
		// Tuples only appear as multi-key mapping indices, which
		// mappingAddress unpacks itself; as a bare value, take the first
		// element.
		if len(e.Elements) > 0 {
			return lw.lowerExpr(e.Elements[0])
		}
		return U256FromUint64(0), nil
	case *ast.StructLiteralExpr:
		// Event struct literals are consumed by emit(); a bare struct
		// literal evaluates its fields for effect.
		for _, f := range e.Fields {
			if f.Value != nil {
				if _, err := lw.lowerExpr(f.Value); err != nil {
					return nil, err
				}
			}
		}
		return U256FromUint64(0), nil
	}
	return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("unsupported expression %T", expr)}
}

func (lw *lowering) lowerUnary(e *ast.UnaryExpr) (Operand, error) {
	val, err := lw.lowerExpr(e.Value)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "!":
		return lw.b.Emit(OpIsZero, []Operand{val}, &BoolType{})
	case "-":
		return lw.b.Emit(OpSub, []Operand{U256FromUint64(0), val}, operandType(val))
	case "&":
		return val, nil // references are a front-end fiction; values are words
	}
	return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("unsupported unary operator %q", e.Op)}
}

// lowerBinary evaluates the deeper subtree first (Sethi-Ullman order);
// the stack scheduler benefits because the shallower side stays nearer
// the top.
func (lw *lowering) lowerBinary(e *ast.BinaryExpr) (Operand, error) {
	var left, right Operand
	var err error
	if sethiUllman(e.Left) >= sethiUllman(e.Right) {
		if left, err = lw.lowerExpr(e.Left); err != nil {
			return nil, err
		}
		if right, err = lw.lowerExpr(e.Right); err != nil {
			return nil, err
		}
	} else {
		if right, err = lw.lowerExpr(e.Right); err != nil {
			return nil, err
		}
		if left, err = lw.lowerExpr(e.Left); err != nil {
			return nil, err
		}
	}

	switch e.Op {
	case "+":
		return lw.b.Emit(OpAdd, []Operand{left, right}, operandType(left))
	case "-":
		return lw.b.Emit(OpSub, []Operand{left, right}, operandType(left))
	case "*":
		return lw.b.Emit(OpMul, []Operand{left, right}, operandType(left))
	case "/":
		return lw.b.Emit(OpDiv, []Operand{left, right}, operandType(left))
	case "%":
		return lw.b.Emit(OpMod, []Operand{left, right}, operandType(left))
	case "==":
		return lw.b.Emit(OpEq, []Operand{left, right}, &BoolType{})
	case "!=":
		eq, err := lw.b.Emit(OpEq, []Operand{left, right}, &BoolType{})
		if err != nil {
			return nil, err
		}
		return lw.b.Emit(OpIsZero, []Operand{eq}, &BoolType{})
	case "<":
		return lw.b.Emit(OpLt, []Operand{left, right}, &BoolType{})
	case ">":
		return lw.b.Emit(OpGt, []Operand{left, right}, &BoolType{})
	case "<=":
		gt, err := lw.b.Emit(OpGt, []Operand{left, right}, &BoolType{})
		if err != nil {
			return nil, err
		}
		return lw.b.Emit(OpIsZero, []Operand{gt}, &BoolType{})
	case ">=":
		lt, err := lw.b.Emit(OpLt, []Operand{left, right}, &BoolType{})
		if err != nil {
			return nil, err
		}
		return lw.b.Emit(OpIsZero, []Operand{lt}, &BoolType{})
	case "&&", "&":
		return lw.b.Emit(OpAnd, []Operand{left, right}, operandType(left))
	case "||", "|":
		return lw.b.Emit(OpOr, []Operand{left, right}, operandType(left))
	case "^":
		return lw.b.Emit(OpXor, []Operand{left, right}, operandType(left))
	case "<<":
		return lw.b.Emit(OpShl, []Operand{right, left}, operandType(left))
	case ">>":
		return lw.b.Emit(OpShr, []Operand{right, left}, operandType(left))
	}
	return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("unsupported binary operator %q", e.Op)}
}

func (lw *lowering) lowerCall(e *ast.CallExpr) (Operand, error) {
	name, module := lw.resolveCallee(e.Callee)

	if module == "std::evm" || module == "Evm" {
		switch name {
		case "sender":
			return lw.b.Emit(OpCaller, nil, &AddressType{})
		case "emit":
			return lw.lowerEmit(e)
		}
	}
	if module == "std::address" && name == "zero" {
		return U256FromUint64(0), nil
	}
	if module == "std::errors" || module == "errors" {
		// Error constructors lower to their selector word regardless of
		// arguments; the code argument is a diagnostic nicety.
		for _, arg := range e.Args {
			if _, err := lw.lowerExpr(arg); err != nil {
				return nil, err
			}
		}
		return errorSelectorWord(name), nil
	}

	if callee, ok := lw.locals[name]; ok && module == "" {
		operands := []Operand{Label{Name: name}}
		for _, arg := range e.Args {
			val, err := lw.lowerExpr(arg)
			if err != nil {
				return nil, err
			}
			operands = append(operands, val)
		}
		return lw.b.Emit(OpInvoke, operands, convertASTType(callee.Return))
	}

	return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("call to unknown function %s", name)}
}

// lowerEmit expands emit(Event { ... }) into mstores of the data fields
// plus a logN whose first topic is the event signature hash.
func (lw *lowering) lowerEmit(e *ast.CallExpr) (Operand, error) {
	if len(e.Args) == 0 {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "emit requires an event literal argument"}
	}
	structLit, ok := e.Args[0].(*ast.StructLiteralExpr)
	if !ok {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "emit argument must be an event struct literal"}
	}
	eventName := structLit.Name
	if structLit.Type != nil && len(structLit.Type.Parts) > 0 {
		eventName = structLit.Type.Parts[len(structLit.Type.Parts)-1].Value
	}
	def, ok := lw.events[eventName]
	if !ok {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("emit of undeclared event %s", eventName)}
	}

	fieldValues := make(map[string]Operand, len(structLit.Fields))
	for _, f := range structLit.Fields {
		if f.Value == nil {
			continue
		}
		val, err := lw.lowerExpr(f.Value)
		if err != nil {
			return nil, err
		}
		fieldValues[f.Name.Value] = val
	}

	topic0 := U256FromBytes(keccak256([]byte(def.signature)))
	topics := []Operand{topic0}
	var data []Operand
	for _, field := range def.fields {
		val, ok := fieldValues[field.name]
		if !ok {
			return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("event %s literal missing field %s", eventName, field.name)}
		}
		if field.indexed && len(topics) < 4 {
			topics = append(topics, val)
		} else {
			data = append(data, val)
		}
	}

	for i, val := range data {
		offset := uint64(abiBufferBase + 32*i)
		if _, err := lw.b.Emit(OpMStore, []Operand{U256FromUint64(offset), val}, nil); err != nil {
			return nil, err
		}
	}

	logOp := OpLog0 + Opcode(len(topics))
	operands := []Operand{U256FromUint64(abiBufferBase), U256FromUint64(uint64(32 * len(data)))}
	operands = append(operands, topics...)
	if _, err := lw.b.Emit(logOp, operands, nil); err != nil {
		return nil, err
	}
	return U256FromUint64(1), nil
}

// mappingAddress computes the storage address of a (possibly nested)
// mapping entry: each key is hashed with the accumulated slot word
// through the keccak scratch region, the target VM's canonical
// keccak256(key . slot) addressing.
func (lw *lowering) mappingAddress(e *ast.IndexExpr) (Operand, error) {
	fieldAccess, ok := e.Target.(*ast.FieldAccessExpr)
	if !ok {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: "index target must be a storage field"}
	}
	slot, ok := lw.storageSlotOf(fieldAccess)
	if !ok {
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("index into unknown storage field %s", fieldAccess.Field)}
	}

	var keys []Operand
	if tuple, ok := e.Index.(*ast.TupleExpr); ok {
		for _, elem := range tuple.Elements {
			val, err := lw.lowerExpr(elem)
			if err != nil {
				return nil, err
			}
			keys = append(keys, val)
		}
	} else {
		val, err := lw.lowerExpr(e.Index)
		if err != nil {
			return nil, err
		}
		keys = append(keys, val)
	}

	var addr Operand = U256FromUint64(uint64(slot))
	for _, key := range keys {
		if _, err := lw.b.Emit(OpMStore, []Operand{U256FromUint64(hashScratchKey), key}, nil); err != nil {
			return nil, err
		}
		if _, err := lw.b.Emit(OpMStore, []Operand{U256FromUint64(hashScratchSlot), addr}, nil); err != nil {
			return nil, err
		}
		hashed, err := lw.b.Emit(OpSha3, []Operand{U256FromUint64(hashScratchKey), U256FromUint64(64)}, &StorageAddrType{})
		if err != nil {
			return nil, err
		}
		addr = hashed
	}
	return addr, nil
}

func (lw *lowering) storageSlotOf(e *ast.FieldAccessExpr) (int, bool) {
	ident, ok := e.Target.(*ast.IdentExpr)
	if !ok || ident.Name != "State" {
		return 0, false
	}
	slot, ok := lw.slots[e.Field]
	return slot, ok
}

func (lw *lowering) storageValueType(field string) Type {
	if t, ok := lw.slotTypes[field]; ok {
		if _, isMap := t.(*SlotsType); !isMap {
			return t
		}
	}
	return &IntType{Bits: 256}
}

func (lw *lowering) keyedValueType(e *ast.IndexExpr) Type {
	if fieldAccess, ok := e.Target.(*ast.FieldAccessExpr); ok {
		if t, ok := lw.slotTypes[fieldAccess.Field]; ok {
			if slots, isMap := t.(*SlotsType); isMap {
				if _, nested := slots.ValueType.(*SlotsType); !nested {
					return slots.ValueType
				}
			}
		}
	}
	return &IntType{Bits: 256}
}

// asValue pins an operand to an SSA value so the variable-definition map
// (and later phi construction) always tracks values, never raw literals;
// SCCP folds the materializing store right back out.
func (lw *lowering) asValue(op Operand, name string) (*Value, error) {
	if v, ok := op.(*Value); ok {
		return v, nil
	}
	val, err := lw.b.Emit(OpStore, []Operand{op}, operandType(op))
	if err != nil {
		return nil, err
	}
	val.Name = name
	return val, nil
}

// resolveCallee classifies a call target: a bare identifier is looked
// up in the import registry, a path keeps its module prefix.
// Unresolved well-known names fall back to their std modules.
func (lw *lowering) resolveCallee(callee ast.Expr) (string, string) {
	switch c := callee.(type) {
	case *ast.IdentExpr:
		if lw.reg != nil && lw.reg.IsImportedFunction(c.Name) {
			if imported := lw.reg.GetImportedFunction(c.Name); imported != nil {
				return c.Name, imported.ModulePath
			}
		}
		if _, isLocal := lw.locals[c.Name]; !isLocal {
			switch c.Name {
			case "sender", "emit":
				return c.Name, "std::evm"
			case "zero":
				return c.Name, "std::address"
			}
		}
		return c.Name, ""
	case *ast.CalleePath:
		if len(c.Parts) == 1 {
			return lw.resolveCallee(&ast.IdentExpr{Name: c.Parts[0].Value})
		}
		parts := make([]string, len(c.Parts)-1)
		for i, ident := range c.Parts[:len(c.Parts)-1] {
			parts[i] = ident.Value
		}
		return c.Parts[len(c.Parts)-1].Value, strings.Join(parts, "::")
	case *ast.FieldAccessExpr:
		if ident, ok := c.Target.(*ast.IdentExpr); ok {
			return c.Field, ident.Name
		}
	}
	return "unknown", ""
}

// sethiUllman computes the minimum stack depth needed to evaluate an
// expression, used to order binary operand evaluation.
func sethiUllman(expr ast.Expr) int {
	switch e := expr.(type) {
	case *ast.LiteralExpr, *ast.IdentExpr, *ast.FieldAccessExpr:
		return 1
	case *ast.ParenExpr:
		return sethiUllman(e.Value)
	case *ast.UnaryExpr:
		return sethiUllman(e.Value)
	case *ast.IndexExpr:
		return sethiUllman(e.Index) + 1
	case *ast.CallExpr:
		max := 0
		for _, arg := range e.Args {
			if su := sethiUllman(arg); su > max {
				max = su
			}
		}
		return max + 1
	case *ast.BinaryExpr:
		left := sethiUllman(e.Left)
		right := sethiUllman(e.Right)
		if left == right {
			return left + 1
		}
		if left > right {
			return left
		}
		return right
	case *ast.TupleExpr:
		max := 1
		for _, elem := range e.Elements {
			if su := sethiUllman(elem); su > max {
				max = su
			}
		}
		return max
	}
	return 1
}

func compoundOpcode(op ast.AssignType) (Opcode, bool) {
	switch op {
	case ast.PLUS_ASSIGN:
		return OpAdd, true
	case ast.MINUS_ASSIGN:
		return OpSub, true
	case ast.STAR_ASSIGN:
		return OpMul, true
	case ast.SLASH_ASSIGN:
		return OpDiv, true
	case ast.PERCENT_ASSIGN:
		return OpMod, true
	}
	return OpInvalidOpcode, false
}

func literalOperand(raw string) (Operand, error) {
	s := strings.ReplaceAll(raw, "_", "")
	switch s {
	case "true":
		return U256FromUint64(1), nil
	case "false":
		return U256FromUint64(0), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if lit, ok := U256FromHex(s); ok {
			return lit, nil
		}
		return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("invalid hex literal %q", raw)}
	}
	if lit, ok := U256FromDecimal(s); ok {
		return lit, nil
	}
	return nil, &compilererr.IRError{Kind: compilererr.IRErrScopeViolation, Detail: fmt.Sprintf("invalid literal %q", raw)}
}

func operandType(op Operand) Type {
	if v, ok := op.(*Value); ok && v.Type != nil {
		return v.Type
	}
	return &IntType{Bits: 256}
}

func clauseIdentifiers(clause []ast.Ident) []string {
	var out []string
	for _, ident := range clause {
		out = append(out, ident.Value)
	}
	return out
}

func convertASTType(t *ast.VariableType) Type {
	if t == nil {
		return nil
	}
	if len(t.TupleElements) > 0 {
		elements := make([]Type, len(t.TupleElements))
		for i, elem := range t.TupleElements {
			elements[i] = convertASTType(elem)
		}
		return &TupleType{Elements: elements}
	}
	if t.Name.Value == "Slots" && len(t.Generics) == 2 {
		return &SlotsType{KeyType: convertASTType(t.Generics[0]), ValueType: convertASTType(t.Generics[1])}
	}
	switch t.Name.Value {
	case "U8":
		return &IntType{Bits: 8}
	case "U16":
		return &IntType{Bits: 16}
	case "U32":
		return &IntType{Bits: 32}
	case "U64":
		return &IntType{Bits: 64}
	case "U128":
		return &IntType{Bits: 128}
	case "U256":
		return &IntType{Bits: 256}
	case "Bool":
		return &BoolType{}
	case "Address":
		return &AddressType{}
	case "String":
		return &StringType{}
	}
	return &IntType{Bits: 256}
}

func abiTypeName(t *ast.VariableType) string {
	if t == nil {
		return "unknown"
	}
	switch t.Name.Value {
	case "Address":
		return "address"
	case "U256":
		return "uint256"
	case "U128":
		return "uint128"
	case "U64":
		return "uint64"
	case "U32":
		return "uint32"
	case "U16":
		return "uint16"
	case "U8":
		return "uint8"
	case "Bool":
		return "bool"
	case "String":
		return "string"
	}
	return "unknown"
}

// errorSelectorWord derives a custom-error selector the way the target
// ecosystem does: the first four bytes of keccak256("Name()"), left-
// aligned in the word so an mstore at the revert offset puts the
// selector in the return data's leading bytes.
func errorSelectorWord(name string) Literal {
	hash := keccak256([]byte(name + "()"))
	word := U256FromBytes(hash[:4])
	word.Value.Lsh(word.Value, 224)
	return word
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
