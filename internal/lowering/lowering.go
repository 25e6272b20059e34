// Package lowering turns one HIR-lowered, semantically-analyzed module into
// a mir.Program: typed SSA in basic-block form (spec.md §4.7). It consumes
// the semantic analyzer's expression-type map and symbol table rather than
// re-deriving types, and assumes the module has already passed analysis with
// no errors — it does not re-check anything sema already checked.
package lowering

import (
	"fmt"
	"strconv"

	"volta/internal/ast"
	"volta/internal/diagnostics"
	"volta/internal/lexer"
	"volta/internal/mir"
	"volta/internal/symbols"
	"volta/internal/types"
)

// mallocName is the single allocation entry point every heap-allocated
// aggregate (array or struct literal) calls through (spec.md §4.7).
const mallocName = "volta_gc_malloc"

// binding is what a name resolves to while lowering a function body: either
// a pointer to a stack/heap slot (isSlot) or a direct SSA value.
type binding struct {
	isSlot       bool
	slot         mir.Value
	slotElemType *types.Type // the type Loading the slot yields
	value        mir.Value

	// dims is non-nil only for a variable HIR flattened from a
	// multi-dimensional array annotation (spec.md §4.5); it is the original
	// dimension vector, used by flattenedIndex to compute a chained index's
	// combined row-major offset against the single flat backing array.
	dims []int
}

type loopFrame struct {
	continueLabel string
	endLabel      string
}

// Lowerer lowers one module's declarations into MIR functions. It is not
// safe for concurrent use; the driver runs one Lowerer per module.
type Lowerer struct {
	registry  *types.Registry
	table     *symbols.SymbolTable
	exprTypes map[ast.Expr]*types.Type
	diag      *diagnostics.Sink

	fn           *mir.Function
	block        *mir.BasicBlock
	scopes       []map[string]*binding
	blockCounter int
	localCounter int
	loopStack    []loopFrame
}

// New returns a Lowerer reading types from registry and table (as populated
// by a prior sema.Analyzer.Analyze call) and the per-expression types exprs.
func New(registry *types.Registry, table *symbols.SymbolTable, exprs map[ast.Expr]*types.Type, diag *diagnostics.Sink) *Lowerer {
	return &Lowerer{registry: registry, table: table, exprTypes: exprs, diag: diag}
}

// Lower lowers every top-level function, struct method and extern
// declaration of module into a fresh mir.Program. The program always starts
// with the volta_gc_malloc extern declaration; module merge dedupes it
// against the other modules' copies (spec.md §4.9).
func (l *Lowerer) Lower(module *ast.Program) *mir.Program {
	prog := &mir.Program{}
	prog.AddFunction(l.mallocDecl())
	for _, stmt := range module.Statements {
		switch v := stmt.(type) {
		case *ast.FnDecl:
			if v.Body == nil {
				prog.AddFunction(l.lowerExternFn(v))
			} else {
				prog.AddFunction(l.lowerFunction(v))
			}
		case *ast.StructDecl:
			for _, m := range v.Methods {
				prog.AddFunction(l.lowerFunction(m))
			}
		case *ast.ExternBlock:
			for _, decl := range v.Declarations {
				prog.AddFunction(l.lowerExternFn(decl))
			}
		}
	}
	return prog
}

func (l *Lowerer) mallocDecl() *mir.Function {
	voidPtr := l.registry.GetPointer(l.registry.GetPrimitive(types.Void))
	i64 := l.registry.GetPrimitive(types.I64)
	return &mir.Function{
		Name:       mallocName,
		ReturnType: voidPtr,
		IsExtern:   true,
		Params: []mir.FuncParam{
			{Value: mir.Value{Kind: mir.Param, Type: i64, Name: "size"}},
		},
	}
}

func (l *Lowerer) lowerExternFn(v *ast.FnDecl) *mir.Function {
	fn := &mir.Function{Name: v.Name, ReturnType: v.ReturnType, IsExtern: true}
	for _, p := range v.Params {
		fn.Params = append(fn.Params, l.lowerParamSig(p))
	}
	return fn
}

func (l *Lowerer) lowerParamSig(p ast.Param) mir.FuncParam {
	t := p.Type
	if p.IsRef || p.IsMutRef || isAggregate(p.Type) {
		t = l.registry.GetPointer(p.Type)
	}
	return mir.FuncParam{
		Value:    mir.Value{Kind: mir.Param, Type: t, Name: p.Name},
		IsRef:    p.IsRef,
		IsMutRef: p.IsMutRef,
	}
}

func methodName(receiver, method string) string { return receiver + "__" + method }

func (l *Lowerer) lowerFunction(v *ast.FnDecl) *mir.Function {
	name := v.Name
	if v.ReceiverStruct != "" {
		name = methodName(v.ReceiverStruct, v.Name)
	}
	l.fn = &mir.Function{Name: name, ReturnType: v.ReturnType}
	l.scopes = []map[string]*binding{{}}
	l.localCounter = 0
	l.blockCounter = 0
	l.loopStack = nil

	entry := l.fn.AddBlock("entry")
	l.block = entry

	if v.HasSelf {
		selfType := l.registry.GetPointer(l.registry.GetStruct(v.ReceiverStruct))
		pv := mir.Value{Kind: mir.Param, Type: selfType, Name: "self"}
		l.fn.Params = append(l.fn.Params, mir.FuncParam{Value: pv, IsRef: true, IsMutRef: v.HasMutSelf})
		l.bind("self", pv)
	}
	for _, p := range v.Params {
		fp := l.lowerParamSig(p)
		l.fn.Params = append(l.fn.Params, fp)
		switch {
		case (p.IsRef || p.IsMutRef) && isAggregate(p.Type):
			// callArg passes the caller's slot, which holds the aggregate pointer.
			l.bindSlot(p.Name, fp.Value, fp.Value.Type)
		case p.IsRef || p.IsMutRef:
			l.bindSlot(p.Name, fp.Value, p.Type)
		default:
			// A by-value aggregate arrives as its canonical pointer value.
			l.bind(p.Name, fp.Value)
		}
	}

	l.lowerStmts(v.Body)

	if !l.block.Terminated() {
		if isVoidType(v.ReturnType) {
			l.block.SetTerminator(mir.Terminator{Kind: mir.Return})
		} else {
			l.diag.Errorf(v.Pos.Line, v.Pos.Column, "function '%s' does not return a value on every path", name)
			l.block.SetTerminator(mir.Terminator{Kind: mir.Unreachable})
		}
	}
	return l.fn
}

// --- scope helpers ---

func (l *Lowerer) pushScope() { l.scopes = append(l.scopes, map[string]*binding{}) }
func (l *Lowerer) popScope()  { l.scopes = l.scopes[:len(l.scopes)-1] }

func (l *Lowerer) bind(name string, v mir.Value) {
	l.scopes[len(l.scopes)-1][name] = &binding{value: v}
}

func (l *Lowerer) bindSlot(name string, ptr mir.Value, elemType *types.Type) {
	l.bindSlotDims(name, ptr, elemType, nil)
}

func (l *Lowerer) bindSlotDims(name string, ptr mir.Value, elemType *types.Type, dims []int) {
	l.scopes[len(l.scopes)-1][name] = &binding{isSlot: true, slot: ptr, slotElemType: elemType, dims: dims}
}

func (l *Lowerer) resolve(name string) *binding {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if b, ok := l.scopes[i][name]; ok {
			return b
		}
	}
	panic("lowering: undefined variable '" + name + "' reached lowering (sema should have rejected this)")
}

func (l *Lowerer) nextBlockID() int {
	l.blockCounter++
	return l.blockCounter
}

func (l *Lowerer) newLocal(t *types.Type) mir.Value {
	l.localCounter++
	return mir.Value{Kind: mir.Local, Type: t, Name: strconv.Itoa(l.localCounter)}
}

// --- instruction emission helpers ---

func (l *Lowerer) emit(op mir.Opcode, resultType *types.Type, operands ...mir.Value) mir.Value {
	var result mir.Value
	if resultType != nil {
		result = l.newLocal(resultType)
	}
	l.block.Emit(mir.Instruction{Op: op, Result: result, Operands: operands})
	return result
}

func (l *Lowerer) emitAlloca(elemType *types.Type) mir.Value {
	result := l.newLocal(l.registry.GetPointer(elemType))
	l.block.Emit(mir.Instruction{Op: mir.Alloca, Result: result, AllocType: elemType})
	return result
}

func (l *Lowerer) emitStore(ptr, val mir.Value) {
	l.block.Emit(mir.Instruction{Op: mir.Store, Operands: []mir.Value{ptr, val}})
}

func (l *Lowerer) emitLoad(ptr mir.Value, elemType *types.Type) mir.Value {
	result := l.newLocal(elemType)
	l.block.Emit(mir.Instruction{Op: mir.Load, Result: result, Operands: []mir.Value{ptr}})
	return result
}

func (l *Lowerer) emitGEP(arrPtr, index mir.Value, elemType *types.Type) mir.Value {
	return l.emitGEPScaled(arrPtr, index, elemType, elemType)
}

// emitGEPScaled is emitGEP with the pointer arithmetic's scale type
// (scaleType) and the result pointer's pointee type (resultElemType) given
// independently: a flattened multi-dimensional index computes its offset in
// units of the array's scalar base type but the pointer it yields for a
// partial index names the sub-array type the remaining dimensions describe
// (spec.md §4.7).
func (l *Lowerer) emitGEPScaled(arrPtr, index mir.Value, scaleType, resultElemType *types.Type) mir.Value {
	result := l.newLocal(l.registry.GetPointer(resultElemType))
	l.block.Emit(mir.Instruction{Op: mir.GetElementPtr, Result: result, Operands: []mir.Value{arrPtr, index}, AllocType: scaleType})
	return result
}

func (l *Lowerer) emitGFP(structPtr mir.Value, fieldIndex int, fieldType *types.Type) mir.Value {
	result := l.newLocal(l.registry.GetPointer(fieldType))
	l.block.Emit(mir.Instruction{Op: mir.GetFieldPtr, Result: result, Operands: []mir.Value{structPtr}, AllocType: fieldType, FieldIndex: fieldIndex})
	return result
}

func (l *Lowerer) emitCall(name string, args []mir.Value, resultType *types.Type) mir.Value {
	var result mir.Value
	if resultType != nil && !isVoidType(resultType) {
		result = l.newLocal(resultType)
	}
	l.block.Emit(mir.Instruction{Op: mir.Call, Result: result, Operands: args, CallTarget: name})
	return result
}

func (l *Lowerer) emitConvert(op mir.Opcode, v mir.Value, to *types.Type) mir.Value {
	result := l.newLocal(to)
	l.block.Emit(mir.Instruction{Op: op, Result: result, Operands: []mir.Value{v}})
	return result
}

func (l *Lowerer) emitBitcast(v mir.Value, to *types.Type) mir.Value {
	if v.Type == to {
		return v
	}
	return l.emitConvert(mir.Bitcast, v, to)
}

// --- type helpers ---

func isAggregate(t *types.Type) bool {
	return t != nil && (t.Kind == types.KindStruct || t.Kind == types.KindArray)
}

func isVoidType(t *types.Type) bool {
	return t != nil && t.Kind == types.KindPrimitive && t.Primitive == types.Void
}

func bitWidth(k types.PrimitiveKind) int {
	switch k {
	case types.I8, types.U8:
		return 8
	case types.I16, types.U16:
		return 16
	case types.I32, types.U32, types.F32:
		return 32
	default:
		return 64
	}
}

// sizeOf computes a type's in-memory byte size for Alloca/malloc sizing
// (spec.md §4.7): bool is 1 byte, pointers (and str, represented as a
// pointer) are 8, a struct is the sum of its fields' sizes, and an array is
// its element size times its element count.
func (l *Lowerer) sizeOf(t *types.Type) int {
	switch t.Kind {
	case types.KindPrimitive:
		switch t.Primitive {
		case types.Bool:
			return 1
		case types.Void:
			return 0
		case types.String:
			return 8
		default:
			return bitWidth(t.Primitive) / 8
		}
	case types.KindPointer:
		return 8
	case types.KindStruct:
		total := 0
		for _, f := range t.Fields {
			total += l.sizeOf(f.Type)
		}
		return total
	case types.KindArray:
		return l.sizeOf(t.Element) * t.Size
	default:
		return 0
	}
}

// convertValue inserts the narrowest applicable conversion instruction to
// turn a from-typed value into a to-typed one, implementing the
// value-conversion widening rules sema already checked are legal
// (spec.md §4.6, §4.7): int widening and narrowing, float widening and
// narrowing, int-to-float, and float-to-int. Integers or floats of equal
// width, and every other pair of types, are returned unchanged: no Bitcast
// is emitted.
func (l *Lowerer) convertValue(v mir.Value, from, to *types.Type) mir.Value {
	if from == nil || to == nil || from == to {
		return v
	}
	switch {
	case from.IsInteger() && to.IsInteger():
		fw, tw := bitWidth(from.Primitive), bitWidth(to.Primitive)
		if fw == tw {
			return v
		}
		if fw > tw {
			return l.emitConvert(mir.Trunc, v, to)
		}
		if from.IsUnsigned() {
			return l.emitConvert(mir.ZExt, v, to)
		}
		return l.emitConvert(mir.SExt, v, to)
	case from.IsFloat() && to.IsFloat():
		fw, tw := bitWidth(from.Primitive), bitWidth(to.Primitive)
		if fw == tw {
			return v
		}
		if fw > tw {
			return l.emitConvert(mir.FPTrunc, v, to)
		}
		return l.emitConvert(mir.FPExt, v, to)
	case from.IsInteger() && to.IsFloat():
		if from.IsUnsigned() {
			return l.emitConvert(mir.UIToFP, v, to)
		}
		return l.emitConvert(mir.SIToFP, v, to)
	case from.IsFloat() && to.IsInteger():
		if to.IsUnsigned() {
			return l.emitConvert(mir.FPToUI, v, to)
		}
		return l.emitConvert(mir.FPToSI, v, to)
	default:
		return v
	}
}

func (l *Lowerer) widenToI64(v mir.Value, from *types.Type) mir.Value {
	return l.convertValue(v, from, l.registry.GetPrimitive(types.I64))
}

// --- statements ---

func (l *Lowerer) lowerStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		if l.block.Terminated() {
			break
		}
		l.lowerStmt(s)
	}
}

func (l *Lowerer) lowerStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.VarDecl:
		l.lowerVarDecl(v)
	case *ast.ReturnStmt:
		l.lowerReturn(v)
	case *ast.IfStmt:
		l.lowerIf(v)
	case *ast.WhileStmt:
		l.lowerWhile(v)
	case *ast.BlockStmt:
		l.pushScope()
		l.lowerStmts(v.Statements)
		l.popScope()
	case *ast.ExprStmt:
		l.lowerExpr(v.Expr)
	case *ast.BreakStmt:
		l.lowerBreak()
	case *ast.ContinueStmt:
		l.lowerContinue()
	case *ast.ForStmt:
		panic("lowering: ForStmt reached MIR lowering; HIR lowering should have desugared it")
	default:
		panic(fmt.Sprintf("lowering: unhandled statement %T", s))
	}
}

func (l *Lowerer) lowerVarDecl(v *ast.VarDecl) {
	t := v.Annotation
	if t == nil {
		t = l.exprTypes[v.Init]
	}
	var initVal mir.Value
	if v.Init != nil {
		initVal = l.lowerExpr(v.Init)
		initVal = l.convertValue(initVal, l.exprTypes[v.Init], t)
	}
	needsSlot := v.Mutable || isAggregate(t)
	if !needsSlot {
		l.bind(v.Name, initVal)
		return
	}
	allocType := t
	if isAggregate(t) {
		allocType = l.registry.GetPointer(t) // the slot holds the heap pointer
	}
	ptr := l.emitAlloca(allocType)
	if v.Init != nil {
		l.emitStore(ptr, initVal)
	}
	l.bindSlotDims(v.Name, ptr, allocType, v.Dims)
}

func (l *Lowerer) lowerReturn(v *ast.ReturnStmt) {
	if v.Value == nil {
		l.block.SetTerminator(mir.Terminator{Kind: mir.Return})
		return
	}
	val := l.lowerExpr(v.Value)
	val = l.convertValue(val, l.exprTypes[v.Value], l.fn.ReturnType)
	l.block.SetTerminator(mir.Terminator{Kind: mir.Return, Operands: []mir.Value{val}})
}

func (l *Lowerer) lowerIf(v *ast.IfStmt) {
	n := l.nextBlockID()
	thenLabel := fmt.Sprintf("if.then.%d", n)
	mergeLabel := fmt.Sprintf("if.merge.%d", n)
	hasElse := v.Else != nil
	elseLabel := mergeLabel
	if hasElse {
		elseLabel = fmt.Sprintf("if.else.%d", n)
	}

	cond := l.lowerExpr(v.Condition)
	l.block.SetTerminator(mir.Terminator{Kind: mir.CondBranch, Operands: []mir.Value{cond}, Targets: []string{thenLabel, elseLabel}})

	thenBlock := l.fn.AddBlock(thenLabel)
	l.block = thenBlock
	l.pushScope()
	l.lowerStmts(v.Then)
	l.popScope()
	thenTerminated := l.block.Terminated()
	if !thenTerminated {
		l.block.SetTerminator(mir.Terminator{Kind: mir.Branch, Targets: []string{mergeLabel}})
	}

	elseTerminated := false
	if hasElse {
		elseBlock := l.fn.AddBlock(elseLabel)
		l.block = elseBlock
		l.pushScope()
		l.lowerStmts(v.Else)
		l.popScope()
		elseTerminated = l.block.Terminated()
		if !elseTerminated {
			l.block.SetTerminator(mir.Terminator{Kind: mir.Branch, Targets: []string{mergeLabel}})
		}
	}

	if hasElse && thenTerminated && elseTerminated {
		// Both arms terminate (e.g. each ends in return): the merge block is
		// unreachable, so it is never created; l.block stays the terminated
		// else block, signalling lowerStmts' caller to stop emitting too.
		return
	}
	l.block = l.fn.AddBlock(mergeLabel)
}

func (l *Lowerer) lowerWhile(v *ast.WhileStmt) {
	n := l.nextBlockID()
	condLabel := fmt.Sprintf("while.cond.%d", n)
	bodyLabel := fmt.Sprintf("while.body.%d", n)
	endLabel := fmt.Sprintf("while.end.%d", n)

	l.block.SetTerminator(mir.Terminator{Kind: mir.Branch, Targets: []string{condLabel}})

	condBlock := l.fn.AddBlock(condLabel)
	l.block = condBlock
	cond := l.lowerExpr(v.Condition)
	l.block.SetTerminator(mir.Terminator{Kind: mir.CondBranch, Operands: []mir.Value{cond}, Targets: []string{bodyLabel, endLabel}})

	bodyBlock := l.fn.AddBlock(bodyLabel)
	l.block = bodyBlock

	// A desugared for-loop's step lives in Increment and must still run when
	// continue fires mid-body, so it gets its own jump target rather than
	// living inline at the tail of the body block.
	continueLabel := condLabel
	if v.Increment != nil {
		continueLabel = fmt.Sprintf("while.incr.%d", n)
	}
	l.loopStack = append(l.loopStack, loopFrame{continueLabel: continueLabel, endLabel: endLabel})
	l.pushScope()
	l.lowerStmts(v.Body)
	l.popScope()
	if !l.block.Terminated() {
		l.block.SetTerminator(mir.Terminator{Kind: mir.Branch, Targets: []string{continueLabel}})
	}

	if v.Increment != nil {
		incrBlock := l.fn.AddBlock(continueLabel)
		l.block = incrBlock
		l.lowerExpr(v.Increment)
		l.block.SetTerminator(mir.Terminator{Kind: mir.Branch, Targets: []string{condLabel}})
	}
	l.loopStack = l.loopStack[:len(l.loopStack)-1]

	l.block = l.fn.AddBlock(endLabel)
}

func (l *Lowerer) lowerBreak() {
	frame := l.loopStack[len(l.loopStack)-1]
	l.block.SetTerminator(mir.Terminator{Kind: mir.Branch, Targets: []string{frame.endLabel}})
}

func (l *Lowerer) lowerContinue() {
	frame := l.loopStack[len(l.loopStack)-1]
	l.block.SetTerminator(mir.Terminator{Kind: mir.Branch, Targets: []string{frame.continueLabel}})
}

// --- expressions ---

func (l *Lowerer) lowerExpr(e ast.Expr) mir.Value {
	switch v := e.(type) {
	case *ast.Literal:
		return l.lowerLiteral(v)
	case *ast.Variable:
		return l.lowerVariable(v)
	case *ast.Grouping:
		return l.lowerExpr(v.Inner)
	case *ast.Unary:
		return l.lowerUnary(v)
	case *ast.Binary:
		return l.lowerBinary(v)
	case *ast.Assignment:
		return l.lowerAssignment(v)
	case *ast.AddrOf:
		return l.lowerAddrOf(v)
	case *ast.IndexExpr:
		return l.lowerIndex(v)
	case *ast.FieldAccess:
		return l.lowerFieldAccess(v)
	case *ast.FnCall:
		return l.lowerFnCall(v)
	case *ast.StaticMethodCall:
		return l.lowerStaticMethodCall(v)
	case *ast.InstanceMethodCall:
		return l.lowerInstanceMethodCall(v)
	case *ast.ArrayLiteral:
		return l.lowerArrayLiteral(v)
	case *ast.StructLiteral:
		return l.lowerStructLiteral(v)
	case *ast.CompoundAssign, *ast.Increment, *ast.Decrement, *ast.Range:
		panic(fmt.Sprintf("lowering: %T reached MIR lowering; HIR lowering should have desugared it", e))
	default:
		panic(fmt.Sprintf("lowering: unhandled expression %T", e))
	}
}

func (l *Lowerer) lowerLiteral(v *ast.Literal) mir.Value {
	t := l.exprTypes[v]
	switch v.Token.Type {
	case lexer.Integer:
		n, _ := strconv.ParseInt(v.Token.Lexeme, 10, 64)
		return mir.Value{Kind: mir.Constant, Type: t, IntVal: n}
	case lexer.Float:
		f, _ := strconv.ParseFloat(v.Token.Lexeme, 64)
		return mir.Value{Kind: mir.Constant, Type: t, FloatVal: f}
	case lexer.True_:
		return mir.Value{Kind: mir.Constant, Type: t, BoolVal: true}
	case lexer.False_:
		return mir.Value{Kind: mir.Constant, Type: t, BoolVal: false}
	case lexer.String:
		return mir.Value{Kind: mir.Constant, Type: t, StringVal: v.Token.Lexeme}
	case lexer.Null:
		return mir.Value{Kind: mir.Constant, Type: t, IsNull: true}
	default:
		panic(fmt.Sprintf("lowering: unhandled literal token %v", v.Token.Type))
	}
}

func (l *Lowerer) lowerVariable(v *ast.Variable) mir.Value {
	b := l.resolve(v.Name)
	if b.isSlot {
		return l.emitLoad(b.slot, b.slotElemType)
	}
	return b.value
}

func (l *Lowerer) lowerUnary(v *ast.Unary) mir.Value {
	t := l.exprTypes[v]
	operand := l.lowerExpr(v.Operand)
	switch v.Op {
	case lexer.Minus:
		zero := mir.Value{Kind: mir.Constant, Type: t}
		op := mir.ISub
		if t.IsFloat() {
			op = mir.FSub
		}
		return l.emit(op, t, zero, operand)
	case lexer.Plus:
		return operand
	case lexer.Not:
		return l.emit(mir.Not, t, operand)
	default:
		panic(fmt.Sprintf("lowering: unhandled unary operator %v", v.Op))
	}
}

func (l *Lowerer) binaryOpcode(op lexer.TokenType, t *types.Type) mir.Opcode {
	isFloat := t.IsFloat()
	isUnsigned := t.IsUnsigned()
	switch op {
	case lexer.Plus:
		if isFloat {
			return mir.FAdd
		}
		return mir.IAdd
	case lexer.Minus:
		if isFloat {
			return mir.FSub
		}
		return mir.ISub
	case lexer.Mult:
		if isFloat {
			return mir.FMul
		}
		return mir.IMul
	case lexer.Div:
		if isFloat {
			return mir.FDiv
		}
		if isUnsigned {
			return mir.UDiv
		}
		return mir.IDiv
	case lexer.Modulo:
		if isUnsigned {
			return mir.URem
		}
		return mir.IRem
	case lexer.EqualEqual:
		if isFloat {
			return mir.FCmpEq
		}
		return mir.ICmpEq
	case lexer.NotEqual:
		if isFloat {
			return mir.FCmpNe
		}
		return mir.ICmpNe
	case lexer.LessThan:
		if isFloat {
			return mir.FCmpLt
		}
		if isUnsigned {
			return mir.ICmpULt
		}
		return mir.ICmpSLt
	case lexer.LessEqual:
		if isFloat {
			return mir.FCmpLe
		}
		if isUnsigned {
			return mir.ICmpULe
		}
		return mir.ICmpSLe
	case lexer.GreaterThan:
		if isFloat {
			return mir.FCmpGt
		}
		if isUnsigned {
			return mir.ICmpUGt
		}
		return mir.ICmpSGt
	case lexer.GreaterEqual:
		if isFloat {
			return mir.FCmpGe
		}
		if isUnsigned {
			return mir.ICmpUGe
		}
		return mir.ICmpSGe
	case lexer.And:
		return mir.And
	case lexer.Or:
		return mir.Or
	default:
		panic(fmt.Sprintf("lowering: unhandled binary operator %v", op))
	}
}

func (l *Lowerer) lowerBinary(v *ast.Binary) mir.Value {
	operandType := l.exprTypes[v.LHS]
	lhs := l.lowerExpr(v.LHS)
	rhs := l.lowerExpr(v.RHS)
	resultType := l.exprTypes[v]
	op := l.binaryOpcode(v.Op, operandType)
	return l.emit(op, resultType, lhs, rhs)
}

// lvaluePointer returns a pointer to the storage an assignment target (or a
// ref/mut-ref call argument) names, plus the type stored there.
func (l *Lowerer) lvaluePointer(e ast.Expr) (mir.Value, *types.Type) {
	switch v := e.(type) {
	case *ast.Variable:
		b := l.resolve(v.Name)
		if !b.isSlot {
			panic("lowering: assignment target '" + v.Name + "' has no slot")
		}
		return b.slot, b.slotElemType
	case *ast.IndexExpr:
		return l.indexPointer(v)
	case *ast.FieldAccess:
		return l.fieldPointer(v)
	default:
		panic(fmt.Sprintf("lowering: %T is not a valid assignment target", e))
	}
}

func (l *Lowerer) lowerAssignment(v *ast.Assignment) mir.Value {
	ptr, elemType := l.lvaluePointer(v.LHS)
	val := l.lowerExpr(v.Value)
	val = l.convertValue(val, l.exprTypes[v.Value], elemType)
	l.emitStore(ptr, val)
	return val
}

func (l *Lowerer) lowerAddrOf(v *ast.AddrOf) mir.Value {
	variable := v.Operand.(*ast.Variable)
	b := l.resolve(variable.Name)
	return b.slot
}

func (l *Lowerer) indexPointer(v *ast.IndexExpr) (mir.Value, *types.Type) {
	if rootPtr, offset, base, ok := l.flattenedIndex(v); ok {
		resultType := l.exprTypes[v]
		return l.emitGEPScaled(rootPtr, offset, base, resultType), resultType
	}
	arrType := l.exprTypes[v.Array]
	elemType := arrType.Element
	arrVal := l.lowerExpr(v.Array)
	idx := l.widenToI64(l.lowerExpr(v.Index), l.exprTypes[v.Index])
	return l.emitGEP(arrVal, idx, elemType), elemType
}

// flattenedIndex reports whether v chains index operations on a variable
// HIR flattened from a multi-dimensional array annotation (spec.md §4.5: a
// `let` of type `[[T;C];R]` becomes one `Array(T, R*C)` plus a recorded
// dimension vector). When it does, it walks the whole index chain from v
// down to that root variable and computes the combined row-major offset
// (spec.md §4.7: `Σ i_k × Π_{j>k} d_j`, in units of the array's scalar base
// type) in one pass, so the caller emits a single GetElementPtr against the
// flat backing array instead of per-level pointer chasing — the property
// spec.md's testable `m[i][j] == m[i*C+j]` depends on. ok is false for an
// ordinary (non-flattened) array, which callers handle with plain per-level
// chaining instead.
func (l *Lowerer) flattenedIndex(v *ast.IndexExpr) (rootPtr, offset mir.Value, base *types.Type, ok bool) {
	var chain []*ast.IndexExpr
	cur := ast.Expr(v)
	for {
		ie, isIndex := cur.(*ast.IndexExpr)
		if !isIndex {
			break
		}
		chain = append(chain, ie)
		cur = ie.Array
	}
	variable, isVar := cur.(*ast.Variable)
	if !isVar {
		return mir.Value{}, mir.Value{}, nil, false
	}
	b := l.resolve(variable.Name)
	if len(b.dims) == 0 {
		return mir.Value{}, mir.Value{}, nil, false
	}
	dims := b.dims
	if len(chain) > len(dims) {
		panic("lowering: too many indices on a flattened array (sema should have rejected this)")
	}

	// chain was collected outermost (v) first; reverse it so position k
	// lines up with dims[k] (the root-adjacent bracket is dims[0]'s index).
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	i64 := l.registry.GetPrimitive(types.I64)
	var total mir.Value
	for rank, ie := range chain {
		stride := 1
		for _, d := range dims[rank+1:] {
			stride *= d
		}
		term := l.widenToI64(l.lowerExpr(ie.Index), l.exprTypes[ie.Index])
		if stride != 1 {
			term = l.emit(mir.IMul, i64, term, l.i64Const(stride))
		}
		if rank == 0 {
			total = term
		} else {
			total = l.emit(mir.IAdd, i64, total, term)
		}
	}
	// slotElemType is Pointer(Array(base, total)) (arrays are always
	// pointer-represented; see lowerVarDecl), and HIR's flattening already
	// reduced the array's element type to the scalar base.
	return l.lowerVariable(variable), total, b.slotElemType.Pointee.Element, true
}

func (l *Lowerer) lowerIndex(v *ast.IndexExpr) mir.Value {
	ptr, elemType := l.indexPointer(v)
	if elemType.Kind == types.KindArray || elemType.Kind == types.KindStruct {
		return ptr
	}
	return l.emitLoad(ptr, elemType)
}

// structPointerOf lowers e and returns a pointer to its struct value. Every
// aggregate-typed MIR value is already represented as a pointer by
// convention (see lowerFieldAccess/lowerIndex), so this only needs to spill
// a genuinely by-value result (a Load of an embedded struct field) into a
// temporary Alloca+Store (spec.md §4.7 "promoting a struct value if
// necessary").
func (l *Lowerer) structPointerOf(e ast.Expr) mir.Value {
	val := l.lowerExpr(e)
	if val.Type.Kind == types.KindPointer {
		return val
	}
	ptr := l.emitAlloca(val.Type)
	l.emitStore(ptr, val)
	return ptr
}

func structTypeOf(t *types.Type) *types.Type {
	if t.Kind == types.KindPointer {
		return t.Pointee
	}
	return t
}

func (l *Lowerer) fieldPointer(v *ast.FieldAccess) (mir.Value, *types.Type) {
	objType := l.exprTypes[v.Object]
	objPtr := l.structPointerOf(v.Object)
	fieldType := structTypeOf(objType).Fields[v.FieldIndex].Type
	return l.emitGFP(objPtr, v.FieldIndex, fieldType), fieldType
}

// lowerFieldAccess loads a scalar field's value directly; an aggregate
// (struct or array) field instead yields its GetFieldPtr pointer, matching
// the same pointer-represents-an-aggregate convention lowerIndex uses.
func (l *Lowerer) lowerFieldAccess(v *ast.FieldAccess) mir.Value {
	ptr, fieldType := l.fieldPointer(v)
	if isAggregate(fieldType) {
		return ptr
	}
	return l.emitLoad(ptr, fieldType)
}

// callArg lowers one call argument against its parameter signature: ref and
// mut-ref parameters pass a pointer (materializing a temporary slot for an
// argument that doesn't already have one), aggregate parameters pass the
// already-pointer-represented aggregate value, and everything else passes a
// converted scalar value (spec.md §4.7).
func (l *Lowerer) callArg(argExpr ast.Expr, p symbols.ParamSig) mir.Value {
	if p.IsRef || p.IsMutRef {
		variable := argExpr.(*ast.Variable)
		b := l.resolve(variable.Name)
		if b.isSlot {
			return b.slot
		}
		tmp := l.emitAlloca(l.exprTypes[argExpr])
		l.emitStore(tmp, b.value)
		return tmp
	}
	val := l.lowerExpr(argExpr)
	if isAggregate(p.Type) {
		return val
	}
	return l.convertValue(val, l.exprTypes[argExpr], p.Type)
}

func (l *Lowerer) lowerArgs(args []ast.Expr, params []symbols.ParamSig) []mir.Value {
	out := make([]mir.Value, len(args))
	for i, a := range args {
		out[i] = l.callArg(a, params[i])
	}
	return out
}

func (l *Lowerer) callResultType(retType *types.Type) *types.Type {
	if isAggregate(retType) {
		return l.registry.GetPointer(retType)
	}
	return retType
}

func (l *Lowerer) lowerFnCall(v *ast.FnCall) mir.Value {
	sig, _ := l.table.LookupFunction(v.Name)
	args := l.lowerArgs(v.Args, sig.Params)
	return l.emitCall(v.Name, args, l.callResultType(sig.ReturnType))
}

func (l *Lowerer) lowerStaticMethodCall(v *ast.StaticMethodCall) mir.Value {
	sig, _ := l.table.LookupMethod(v.TypeName, v.MethodName)
	args := l.lowerArgs(v.Args, sig.Params)
	return l.emitCall(methodName(v.TypeName, v.MethodName), args, l.callResultType(sig.ReturnType))
}

func (l *Lowerer) lowerInstanceMethodCall(v *ast.InstanceMethodCall) mir.Value {
	objType := l.exprTypes[v.Object]
	structType := structTypeOf(objType)
	sig, _ := l.table.LookupMethod(structType.Name, v.MethodName)
	receiverPtr := l.structPointerOf(v.Object)
	args := append([]mir.Value{receiverPtr}, l.lowerArgs(v.Args, sig.Params)...)
	return l.emitCall(methodName(structType.Name, v.MethodName), args, l.callResultType(sig.ReturnType))
}

func (l *Lowerer) i64Const(n int) mir.Value {
	return mir.Value{Kind: mir.Constant, Type: l.registry.GetPrimitive(types.I64), IntVal: int64(n)}
}

func (l *Lowerer) allocateHeap(t *types.Type) mir.Value {
	size := l.sizeOf(t)
	raw := l.emitCall(mallocName, []mir.Value{l.i64Const(size)}, l.registry.GetPointer(l.registry.GetPrimitive(types.Void)))
	return l.emitBitcast(raw, l.registry.GetPointer(t))
}

func (l *Lowerer) lowerArrayLiteral(v *ast.ArrayLiteral) mir.Value {
	t := l.exprTypes[v]
	arrPtr := l.allocateHeap(t)
	l.writeArrayLiteral(arrPtr, flattenLeafType(t), 0, v)
	return arrPtr
}

// flattenLeafType descends through nested array kinds to the innermost
// non-array element type. A nested array literal's type is already
// contiguous, row-major storage at every level (the same layout a flattened
// declaration's annotation describes), so writing straight to this scalar
// base is always correct, flattened declaration or not.
func flattenLeafType(t *types.Type) *types.Type {
	for t.Kind == types.KindArray {
		t = t.Element
	}
	return t
}

// writeArrayLiteral writes lit's leaves into the flat buffer arrPtr (whose
// elements are of type base) starting at offset, recursing into a nested
// array literal instead of lowering it as its own sub-expression: the
// previous per-level approach heap-allocated each nested literal separately
// and stored the resulting pointer into the outer buffer, which is wrong
// for a value embedded inline in contiguous storage. Writing every leaf in
// row-major order against the single outer buffer (spec.md §4.7) is what
// makes `m[i][j] == m[i*C+j]` hold for a flattened declaration, and costs
// nothing extra for an ordinary nested (non-flattened) array type, since
// the physical layout is identical either way. Returns the offset just
// past the last leaf written.
func (l *Lowerer) writeArrayLiteral(arrPtr mir.Value, base *types.Type, offset int, lit *ast.ArrayLiteral) int {
	if lit.HasRepeat {
		nested, isNested := lit.RepeatValue.(*ast.ArrayLiteral)
		for i := 0; i < lit.RepeatCount; i++ {
			if isNested {
				offset = l.writeArrayLiteral(arrPtr, base, offset, nested)
				continue
			}
			val := l.lowerExpr(lit.RepeatValue)
			val = l.convertValue(val, l.exprTypes[lit.RepeatValue], base)
			ptr := l.emitGEP(arrPtr, l.i64Const(offset), base)
			l.emitStore(ptr, val)
			offset++
		}
		return offset
	}
	for _, el := range lit.Elements {
		if nested, isNested := el.(*ast.ArrayLiteral); isNested {
			offset = l.writeArrayLiteral(arrPtr, base, offset, nested)
			continue
		}
		val := l.lowerExpr(el)
		val = l.convertValue(val, l.exprTypes[el], base)
		ptr := l.emitGEP(arrPtr, l.i64Const(offset), base)
		l.emitStore(ptr, val)
		offset++
	}
	return offset
}

func (l *Lowerer) lowerStructLiteral(v *ast.StructLiteral) mir.Value {
	t := l.exprTypes[v]
	structPtr := l.allocateHeap(t)
	for i, name := range v.FieldNames {
		idx := t.FieldIndex(name)
		fieldType := t.Fields[idx].Type
		val := l.lowerExpr(v.FieldVals[i])
		val = l.convertValue(val, l.exprTypes[v.FieldVals[i]], fieldType)
		ptr := l.emitGFP(structPtr, idx, fieldType)
		l.emitStore(ptr, val)
	}
	return structPtr
}
