// Package sema implements the semantic analyzer: three cross-module
// sub-passes (register struct types, resolve unresolved types, build the
// function registry) followed by a per-module type-checking pass that
// builds the expression-type map later phases read from (spec.md §3.5,
// §4.6).
package sema

import (
	"volta/internal/ast"
	"volta/internal/diagnostics"
	"volta/internal/lexer"
	"volta/internal/symbols"
	"volta/internal/types"
)

// Analyzer runs semantic analysis over one or more already HIR-lowered
// modules that share a single type registry and function registry.
type Analyzer struct {
	registry *types.Registry
	diag     *diagnostics.Sink
	table    *symbols.SymbolTable

	exprTypes map[ast.Expr]*types.Type

	currentReturnType *types.Type
	loopDepth         int
}

// New returns an Analyzer with a fresh symbol table. Pass the same registry
// to every module of a build so struct and function names resolve across
// module boundaries.
func New(registry *types.Registry, diag *diagnostics.Sink) *Analyzer {
	return &Analyzer{
		registry:  registry,
		diag:      diag,
		table:     symbols.New(),
		exprTypes: make(map[ast.Expr]*types.Type),
	}
}

// Table exposes the shared function registry, e.g. for module merge to
// enumerate every declared signature.
func (a *Analyzer) Table() *symbols.SymbolTable { return a.table }

// ExprTypes returns the expression-identity to Type map built by the main
// pass. Its lifetime must outlive HIR-to-MIR lowering (spec.md §3.5).
func (a *Analyzer) ExprTypes() map[ast.Expr]*types.Type { return a.exprTypes }

// Analyze runs all three sub-passes across every module, then the main
// per-module pass, in the order spec.md §4.6 requires.
func (a *Analyzer) Analyze(modules []*ast.Program) {
	for _, m := range modules {
		a.registerStructs(m)
	}
	for _, m := range modules {
		a.resolveUnresolvedTypes(m)
	}
	for _, m := range modules {
		a.buildFunctionRegistry(m)
	}
	for _, m := range modules {
		a.analyzeModule(m)
	}
}

// --- sub-pass 1: register struct types ---

func (a *Analyzer) registerStructs(m *ast.Program) {
	for _, s := range m.Statements {
		if sd, ok := s.(*ast.StructDecl); ok {
			a.registry.RegisterStructStub(sd.Name)
		}
	}
	for _, s := range m.Statements {
		sd, ok := s.(*ast.StructDecl)
		if !ok {
			continue
		}
		fields := make([]types.Field, len(sd.Fields))
		for i, f := range sd.Fields {
			fields[i] = types.Field{Name: f.Name, Type: f.Type}
		}
		if _, err := a.registry.RegisterStruct(sd.Name, fields); err != nil {
			a.diag.Errorf(sd.Pos.Line, sd.Pos.Column, "%s", err)
		}
	}
}

// --- sub-pass 2: resolve unresolved types ---

func (a *Analyzer) resolveUnresolvedTypes(m *ast.Program) {
	for _, s := range m.Statements {
		switch v := s.(type) {
		case *ast.StructDecl:
			st := a.registry.GetStruct(v.Name)
			for i := range st.Fields {
				st.Fields[i].Type = a.resolveType(st.Fields[i].Type, v.Pos)
			}
			for _, method := range v.Methods {
				a.resolveFnSignature(method)
			}
		case *ast.FnDecl:
			a.resolveFnSignature(v)
		case *ast.ExternBlock:
			for _, decl := range v.Declarations {
				a.resolveFnSignature(decl)
			}
		}
	}
}

func (a *Analyzer) resolveFnSignature(fn *ast.FnDecl) {
	for i := range fn.Params {
		fn.Params[i].Type = a.resolveType(fn.Params[i].Type, fn.Pos)
	}
	fn.ReturnType = a.resolveType(fn.ReturnType, fn.Pos)
}

// resolveType walks t, replacing any Unresolved leaf (directly or nested
// inside a Pointer/Array) with the now-registered struct it names. An
// Unresolved name that is neither a primitive nor a struct is an error;
// resolveType returns t unchanged in that case so later phases see a
// well-formed (if wrong) tree instead of a nil type.
func (a *Analyzer) resolveType(t *types.Type, pos ast.Pos) *types.Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case types.KindUnresolved:
		if st := a.registry.GetStruct(t.UnresolvedName); st != nil {
			return st
		}
		a.diag.Errorf(pos.Line, pos.Column, "unknown type '%s'", t.UnresolvedName)
		return t
	case types.KindPointer:
		inner := a.resolveType(t.Pointee, pos)
		if inner == t.Pointee {
			return t
		}
		return a.registry.GetPointer(inner)
	case types.KindArray:
		inner := a.resolveType(t.Element, pos)
		if inner == t.Element {
			return t
		}
		resolved, err := a.registry.GetArray(inner, t.Size)
		if err != nil {
			a.diag.Errorf(pos.Line, pos.Column, "%s", err)
			return t
		}
		return resolved
	default:
		return t
	}
}

// --- sub-pass 3: build function registry ---

func (a *Analyzer) buildFunctionRegistry(m *ast.Program) {
	for _, s := range m.Statements {
		switch v := s.(type) {
		case *ast.FnDecl:
			a.registerFunction(v, "")
		case *ast.StructDecl:
			for _, method := range v.Methods {
				a.registerFunction(method, v.Name)
			}
		case *ast.ExternBlock:
			for _, decl := range v.Declarations {
				a.registerFunction(decl, "")
			}
		}
	}
}

func (a *Analyzer) registerFunction(fn *ast.FnDecl, receiver string) {
	params := make([]symbols.ParamSig, len(fn.Params))
	paramTypes := make([]*types.Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = symbols.ParamSig{Name: p.Name, Type: p.Type, IsRef: p.IsRef, IsMutRef: p.IsMutRef}
		paramTypes[i] = p.Type
	}
	sig := &symbols.FunctionSig{
		Name:           fn.Name,
		Params:         params,
		ReturnType:     fn.ReturnType,
		IsExtern:       fn.IsExtern,
		IsPublic:       fn.IsPublic,
		ReceiverStruct: receiver,
	}
	if err := a.table.DeclareFunction(sig); err != nil {
		a.diag.Errorf(fn.Pos.Line, fn.Pos.Column, "%s", err)
	}
	if receiver == "" {
		return
	}
	st := a.registry.GetStruct(receiver)
	if st == nil {
		return
	}
	st.Methods = append(st.Methods, types.MethodSignature{
		Name:       fn.Name,
		ParamTypes: paramTypes,
		ReturnType: fn.ReturnType,
		HasSelf:    fn.HasSelf,
		HasMutSelf: fn.HasMutSelf,
		IsPublic:   fn.IsPublic,
	})
}

// --- main pass ---

func (a *Analyzer) analyzeModule(m *ast.Program) {
	for _, s := range m.Statements {
		a.analyzeTopLevel(s)
	}
}

func (a *Analyzer) analyzeTopLevel(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.FnDecl:
		a.analyzeFnDecl(v, "")
	case *ast.StructDecl:
		for _, method := range v.Methods {
			a.analyzeFnDecl(method, v.Name)
		}
	case *ast.ExternBlock, *ast.ImportStmt:
		// no body to analyze
	}
}

func (a *Analyzer) analyzeFnDecl(fn *ast.FnDecl, receiver string) {
	if fn.Body == nil {
		return // extern declaration
	}
	a.table.PushScope()
	defer a.table.PopScope()

	if fn.HasSelf {
		selfType := a.registry.GetPointer(a.registry.GetStruct(receiver))
		a.declare(fn.Pos, "self", selfType, fn.HasMutSelf)
	}
	for _, p := range fn.Params {
		a.declare(fn.Pos, p.Name, p.Type, p.IsMutRef)
	}

	savedReturn := a.currentReturnType
	a.currentReturnType = fn.ReturnType
	a.analyzeStmts(fn.Body)
	a.currentReturnType = savedReturn
}

func (a *Analyzer) declare(pos ast.Pos, name string, t *types.Type, mutable bool) {
	a.declareDims(pos, name, t, mutable, nil)
}

func (a *Analyzer) declareDims(pos ast.Pos, name string, t *types.Type, mutable bool, dims []int) {
	if err := a.table.Declare(&symbols.Symbol{Name: name, Type: t, Mutable: mutable, Dims: dims}); err != nil {
		a.diag.Errorf(pos.Line, pos.Column, "%s", err)
	}
}

func (a *Analyzer) analyzeStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		a.analyzeStmt(s)
	}
}

func (a *Analyzer) analyzeStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.VarDecl:
		a.analyzeVarDecl(v)
	case *ast.ReturnStmt:
		a.analyzeReturn(v)
	case *ast.IfStmt:
		a.requireBool(a.analyzeExpr(v.Condition), v.Pos, "if condition")
		a.table.PushScope()
		a.analyzeStmts(v.Then)
		a.table.PopScope()
		if v.Else != nil {
			a.table.PushScope()
			a.analyzeStmts(v.Else)
			a.table.PopScope()
		}
	case *ast.WhileStmt:
		a.requireBool(a.analyzeExpr(v.Condition), v.Pos, "while condition")
		a.loopDepth++
		a.table.PushScope()
		a.analyzeStmts(v.Body)
		if v.Increment != nil {
			a.analyzeExpr(v.Increment)
		}
		a.table.PopScope()
		a.loopDepth--
	case *ast.BlockStmt:
		a.table.PushScope()
		a.analyzeStmts(v.Statements)
		a.table.PopScope()
	case *ast.ExprStmt:
		a.analyzeExpr(v.Expr)
	case *ast.BreakStmt:
		if a.loopDepth == 0 {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "'break' outside of a loop")
		}
	case *ast.ContinueStmt:
		if a.loopDepth == 0 {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "'continue' outside of a loop")
		}
	}
}

func (a *Analyzer) analyzeVarDecl(v *ast.VarDecl) {
	declared := v.Annotation

	// A multi-dimensional annotation was flattened to a single-dimension
	// Array by HIR (spec.md §4.5); the initializer literal, though, is
	// still naturally nested ([[1,2],[3,4]]). Type it against the
	// reconstructed nested shape rather than the flat one, so literal
	// typing and the declared storage type can disagree in shape without
	// that being a "cannot initialize" error.
	hint := declared
	if len(v.Dims) > 0 && declared != nil {
		hint = a.nestedArrayType(declared.Element, v.Dims)
	}

	var initType *types.Type
	if v.Init != nil {
		initType = a.analyzeExprHinted(v.Init, hint)
	}

	if declared == nil {
		declared = initType
	} else if initType != nil && initType != hint && !a.convertibleTo(initType, hint) {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "cannot initialize '%s' of type %s with a value of type %s", v.Name, hint, initType)
	}
	a.declareDims(v.Pos, v.Name, declared, v.Mutable, v.Dims)
}

func (a *Analyzer) analyzeReturn(v *ast.ReturnStmt) {
	isVoid := a.currentReturnType != nil && a.currentReturnType.Kind == types.KindPrimitive && a.currentReturnType.Primitive == types.Void
	if v.Value == nil {
		if !isVoid && a.currentReturnType != nil {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "missing return value in a function that returns %s", a.currentReturnType)
		}
		return
	}
	got := a.analyzeExprHinted(v.Value, a.currentReturnType)
	if got != nil && a.currentReturnType != nil && got != a.currentReturnType && !a.convertibleTo(got, a.currentReturnType) {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "return type mismatch: expected %s, got %s", a.currentReturnType, got)
	}
}

func (a *Analyzer) requireBool(t *types.Type, pos ast.Pos, what string) {
	if t == nil {
		return
	}
	if !(t.Kind == types.KindPrimitive && t.Primitive == types.Bool) {
		a.diag.Errorf(pos.Line, pos.Column, "%s must be bool, got %s", what, t)
	}
}

// --- expressions ---

func (a *Analyzer) analyzeExpr(e ast.Expr) *types.Type {
	return a.analyzeExprHinted(e, nil)
}

func (a *Analyzer) analyzeExprHinted(e ast.Expr, hint *types.Type) *types.Type {
	t := a.typeOf(e, hint)
	a.exprTypes[e] = t
	return t
}

func (a *Analyzer) typeOf(e ast.Expr, hint *types.Type) *types.Type {
	switch v := e.(type) {
	case *ast.Literal:
		return a.literalType(v, hint)
	case *ast.Variable:
		sym, ok := a.table.Resolve(v.Name)
		if !ok {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "undefined variable '%s'", v.Name)
			return nil
		}
		return sym.Type
	case *ast.Unary:
		return a.unaryType(v)
	case *ast.Binary:
		return a.binaryType(v)
	case *ast.Grouping:
		return a.analyzeExprHinted(v.Inner, hint)
	case *ast.Assignment:
		return a.assignmentType(v)
	case *ast.AddrOf:
		return a.addrOfType(v)
	case *ast.IndexExpr:
		return a.indexType(v)
	case *ast.FieldAccess:
		return a.fieldAccessType(v)
	case *ast.FnCall:
		return a.fnCallType(v)
	case *ast.StaticMethodCall:
		return a.staticMethodCallType(v)
	case *ast.InstanceMethodCall:
		return a.instanceMethodCallType(v)
	case *ast.ArrayLiteral:
		return a.arrayLiteralType(v, hint)
	case *ast.StructLiteral:
		return a.structLiteralType(v)
	default:
		return nil
	}
}

func (a *Analyzer) literalType(v *ast.Literal, hint *types.Type) *types.Type {
	switch v.Token.Type {
	case lexer.Integer:
		if hint != nil && hint.IsInteger() {
			return hint
		}
		return a.registry.GetPrimitive(types.I32)
	case lexer.Float:
		if hint != nil && hint.IsFloat() {
			return hint
		}
		return a.registry.GetPrimitive(types.F32)
	case lexer.True_, lexer.False_:
		return a.registry.GetPrimitive(types.Bool)
	case lexer.String:
		return a.registry.GetPrimitive(types.String)
	case lexer.Null:
		if hint != nil && hint.Kind == types.KindPointer {
			return hint
		}
		return a.registry.GetPointer(a.registry.GetOpaque())
	default:
		return nil
	}
}

func (a *Analyzer) unaryType(v *ast.Unary) *types.Type {
	operand := a.analyzeExpr(v.Operand)
	if operand == nil {
		return nil
	}
	switch v.Op {
	case lexer.Minus, lexer.Plus:
		if !(operand.IsSignedInt() || operand.IsFloat()) {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "unary '-' requires a signed integer or float operand, got %s", operand)
		}
		return operand
	case lexer.Not:
		a.requireBool(operand, v.Pos, "'not' operand")
		return a.registry.GetPrimitive(types.Bool)
	default:
		return operand
	}
}

func (a *Analyzer) binaryType(v *ast.Binary) *types.Type {
	lhs := a.analyzeExpr(v.LHS)
	rhs := a.analyzeExpr(v.RHS)
	if lhs == nil || rhs == nil {
		return nil
	}
	switch v.Op {
	case lexer.And, lexer.Or:
		a.requireBool(lhs, v.Pos, "logical operand")
		a.requireBool(rhs, v.Pos, "logical operand")
		return a.registry.GetPrimitive(types.Bool)
	case lexer.EqualEqual, lexer.NotEqual:
		if lhs != rhs {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "cannot compare %s with %s", lhs, rhs)
		}
		return a.registry.GetPrimitive(types.Bool)
	case lexer.LessThan, lexer.LessEqual, lexer.GreaterThan, lexer.GreaterEqual:
		if !lhs.IsNumeric() || !rhs.IsNumeric() || lhs != rhs {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "comparison requires two operands of the same numeric type, got %s and %s", lhs, rhs)
		}
		return a.registry.GetPrimitive(types.Bool)
	default: // arithmetic
		if !lhs.IsNumeric() || !rhs.IsNumeric() {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "arithmetic requires numeric operands, got %s and %s", lhs, rhs)
			return lhs
		}
		if lhs != rhs {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "mismatched operand types %s and %s", lhs, rhs)
		}
		return lhs
	}
}

func (a *Analyzer) assignmentType(v *ast.Assignment) *types.Type {
	lhsType := a.lvalueType(v.LHS)
	rhsType := a.analyzeExprHinted(v.Value, lhsType)
	if lhsType != nil && rhsType != nil && lhsType != rhsType && !a.convertibleTo(rhsType, lhsType) {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "cannot assign a value of type %s to a target of type %s", rhsType, lhsType)
	}
	return lhsType
}

// lvalueType checks the assignability rule ("LHS must be a mutable
// variable, a mutable array element, or a mutable struct field") and
// returns the target's type. It does not itself record an exprTypes entry
// for LHS beyond what analyzeExpr(LHS) would — callers that need the
// analyzed LHS node's type in exprTypes call analyzeExpr directly.
func (a *Analyzer) lvalueType(e ast.Expr) *types.Type {
	switch v := e.(type) {
	case *ast.Variable:
		sym, ok := a.table.Resolve(v.Name)
		if !ok {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "undefined variable '%s'", v.Name)
			return nil
		}
		if !sym.Mutable {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "cannot assign to immutable variable '%s'", v.Name)
		}
		a.exprTypes[e] = sym.Type
		return sym.Type
	case *ast.IndexExpr, *ast.FieldAccess:
		root := e
		for {
			if ix, ok := root.(*ast.IndexExpr); ok {
				root = ix.Array
			} else if fa, ok := root.(*ast.FieldAccess); ok {
				root = fa.Object
			} else {
				break
			}
		}
		if rv, ok := root.(*ast.Variable); ok {
			if sym, found := a.table.Resolve(rv.Name); found && !sym.Mutable {
				a.diag.Errorf(rv.Pos.Line, rv.Pos.Column, "cannot assign through immutable variable '%s'", rv.Name)
			}
		}
		return a.analyzeExpr(e)
	default:
		a.diag.Errorf(e.Position().Line, e.Position().Column, "invalid assignment target")
		return a.analyzeExpr(e)
	}
}

func (a *Analyzer) addrOfType(v *ast.AddrOf) *types.Type {
	varExpr, ok := v.Operand.(*ast.Variable)
	if !ok {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "'addrof' requires a mutable variable operand")
		return a.analyzeExpr(v.Operand)
	}
	sym, ok := a.table.Resolve(varExpr.Name)
	if !ok {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "undefined variable '%s'", varExpr.Name)
		return nil
	}
	if !sym.Mutable {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "'addrof' requires a mutable variable, '%s' is immutable", varExpr.Name)
	}
	a.exprTypes[varExpr] = sym.Type
	return a.registry.GetPointer(sym.Type)
}

func (a *Analyzer) indexType(v *ast.IndexExpr) *types.Type {
	arrType := a.analyzeExpr(v.Array)
	idxType := a.analyzeExpr(v.Index)
	if idxType != nil && !idxType.IsInteger() {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "array index must be an integer, got %s", idxType)
	}

	// A variable declared with a flattened multi-dimensional annotation
	// types each index level against the original dimension vector, not
	// against arrType.Element (which stays the single flat element type at
	// every depth; spec.md §4.5/§4.7).
	if dims, base, depth, ok := a.flattenedChain(v); ok {
		if depth > len(dims) {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "too many indices: array has %d dimension(s)", len(dims))
			return nil
		}
		if depth == len(dims) {
			return base
		}
		remaining := 1
		for _, d := range dims[depth:] {
			remaining *= d
		}
		sub, err := a.registry.GetArray(base, remaining)
		if err != nil {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "%s", err)
			return nil
		}
		return sub
	}

	if arrType == nil {
		return nil
	}
	if arrType.Kind != types.KindArray {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "cannot index into non-array type %s", arrType)
		return nil
	}
	return arrType.Element
}

// flattenedChain walks the Array chain down from v to find a root Variable
// declared with a flattened multi-dimensional annotation
// (symbols.Symbol.Dims), returning its original dimension vector, its
// scalar base element type, and how many index levels (including v itself)
// separate v from that root. ok is false for any ordinary, non-flattened
// indexing chain.
func (a *Analyzer) flattenedChain(v *ast.IndexExpr) (dims []int, base *types.Type, depth int, ok bool) {
	depth = 1
	cur := v.Array
	for {
		switch n := cur.(type) {
		case *ast.IndexExpr:
			depth++
			cur = n.Array
		case *ast.Variable:
			sym, found := a.table.Resolve(n.Name)
			if !found || len(sym.Dims) == 0 {
				return nil, nil, 0, false
			}
			return sym.Dims, sym.Type.Element, depth, true
		default:
			return nil, nil, 0, false
		}
	}
}

// nestedArrayType reconstructs Array(Array(...Array(base, dims[n-1])...),
// dims[0]) from a flattened declaration's original dimension vector, so the
// naturally-nested initializer literal a flattened annotation still accepts
// can be typed against its real shape.
func (a *Analyzer) nestedArrayType(base *types.Type, dims []int) *types.Type {
	t := base
	for i := len(dims) - 1; i >= 0; i-- {
		next, err := a.registry.GetArray(t, dims[i])
		if err != nil {
			return base
		}
		t = next
	}
	return t
}

func (a *Analyzer) fieldAccessType(v *ast.FieldAccess) *types.Type {
	objType := a.analyzeExpr(v.Object)
	if objType == nil {
		return nil
	}
	structType := objType
	if structType.Kind == types.KindPointer {
		structType = structType.Pointee
	}
	if structType == nil || structType.Kind != types.KindStruct {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "field access on non-struct type %s", objType)
		return nil
	}
	idx := structType.FieldIndex(v.FieldName)
	if idx < 0 {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "struct '%s' has no field '%s'", structType.Name, v.FieldName)
		return nil
	}
	v.FieldIndex = idx
	v.ResolvedStructName = structType.Name
	return structType.Fields[idx].Type
}

func (a *Analyzer) fnCallType(v *ast.FnCall) *types.Type {
	sig, ok := a.table.LookupFunction(v.Name)
	if !ok {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "call to undefined function '%s'", v.Name)
		for _, arg := range v.Args {
			a.analyzeExpr(arg)
		}
		return nil
	}
	a.checkArgs(v.Pos, sig.Params, v.Args)
	return sig.ReturnType
}

func (a *Analyzer) staticMethodCallType(v *ast.StaticMethodCall) *types.Type {
	sig, ok := a.table.LookupMethod(v.TypeName, v.MethodName)
	if !ok {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "'%s' has no static method '%s'", v.TypeName, v.MethodName)
		for _, arg := range v.Args {
			a.analyzeExpr(arg)
		}
		return nil
	}
	a.checkArgs(v.Pos, sig.Params, v.Args)
	return sig.ReturnType
}

func (a *Analyzer) instanceMethodCallType(v *ast.InstanceMethodCall) *types.Type {
	objType := a.analyzeExpr(v.Object)
	if objType == nil {
		for _, arg := range v.Args {
			a.analyzeExpr(arg)
		}
		return nil
	}
	structType := objType
	if structType.Kind == types.KindPointer {
		structType = structType.Pointee
	}
	if structType == nil || structType.Kind != types.KindStruct {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "method call on non-struct type %s", objType)
		for _, arg := range v.Args {
			a.analyzeExpr(arg)
		}
		return nil
	}
	sig, ok := a.table.LookupMethod(structType.Name, v.MethodName)
	if !ok {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "'%s' has no method '%s'", structType.Name, v.MethodName)
		for _, arg := range v.Args {
			a.analyzeExpr(arg)
		}
		return nil
	}
	if sig.ReceiverStruct != "" {
		if m := structType.Method(v.MethodName); m != nil && m.HasMutSelf {
			if variable, ok := v.Object.(*ast.Variable); ok {
				if sym, ok := a.table.Resolve(variable.Name); ok && !sym.Mutable {
					a.diag.Errorf(v.Pos.Line, v.Pos.Column, "method '%s' requires a mutable receiver", v.MethodName)
				}
			}
		}
	}
	a.checkArgs(v.Pos, sig.Params, v.Args)
	return sig.ReturnType
}

func (a *Analyzer) checkArgs(pos ast.Pos, params []symbols.ParamSig, args []ast.Expr) {
	if len(params) != len(args) {
		a.diag.Errorf(pos.Line, pos.Column, "expected %d argument(s), got %d", len(params), len(args))
	}
	n := len(params)
	if len(args) < n {
		n = len(args)
	}
	for i := 0; i < n; i++ {
		p := params[i]
		argType := a.analyzeExprHinted(args[i], p.Type)
		if p.IsMutRef || p.IsRef {
			if _, ok := args[i].(*ast.Variable); !ok {
				a.diag.Errorf(pos.Line, pos.Column, "argument %d to a ref parameter must be a variable", i+1)
			}
		}
		if p.IsMutRef {
			if variable, ok := args[i].(*ast.Variable); ok {
				if sym, ok := a.table.Resolve(variable.Name); ok && !sym.Mutable {
					a.diag.Errorf(pos.Line, pos.Column, "argument %d to a 'mut ref' parameter must be mutable", i+1)
				}
			}
		}
		if argType != nil && p.Type != nil && argType != p.Type && !a.convertibleTo(argType, p.Type) {
			a.diag.Errorf(pos.Line, pos.Column, "argument %d: cannot convert %s to %s", i+1, argType, p.Type)
		}
	}
	for i := n; i < len(args); i++ {
		a.analyzeExpr(args[i])
	}
}

func (a *Analyzer) arrayLiteralType(v *ast.ArrayLiteral, hint *types.Type) *types.Type {
	var elemHint *types.Type
	if hint != nil && hint.Kind == types.KindArray {
		elemHint = hint.Element
	}
	if v.HasRepeat {
		elemType := a.analyzeExprHinted(v.RepeatValue, elemHint)
		if elemType == nil {
			return nil
		}
		arr, err := a.registry.GetArray(elemType, v.RepeatCount)
		if err != nil {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "%s", err)
			return nil
		}
		return arr
	}
	if len(v.Elements) == 0 {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "cannot infer the element type of an empty array literal")
		return nil
	}
	elemType := a.analyzeExprHinted(v.Elements[0], elemHint)
	for _, el := range v.Elements[1:] {
		t := a.analyzeExprHinted(el, elemHint)
		if t != nil && elemType != nil && t != elemType {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "array literal elements must share a type, got %s and %s", elemType, t)
		}
	}
	if elemType == nil {
		return nil
	}
	arr, err := a.registry.GetArray(elemType, len(v.Elements))
	if err != nil {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "%s", err)
		return nil
	}
	return arr
}

func (a *Analyzer) structLiteralType(v *ast.StructLiteral) *types.Type {
	st := a.registry.GetStruct(v.StructName)
	if st == nil {
		a.diag.Errorf(v.Pos.Line, v.Pos.Column, "unknown struct '%s'", v.StructName)
		for _, fv := range v.FieldVals {
			a.analyzeExpr(fv)
		}
		return nil
	}
	for i, name := range v.FieldNames {
		idx := st.FieldIndex(name)
		if idx < 0 {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "struct '%s' has no field '%s'", v.StructName, name)
			a.analyzeExpr(v.FieldVals[i])
			continue
		}
		fieldType := st.Fields[idx].Type
		got := a.analyzeExprHinted(v.FieldVals[i], fieldType)
		if got != nil && fieldType != nil && got != fieldType && !a.convertibleTo(got, fieldType) {
			a.diag.Errorf(v.Pos.Line, v.Pos.Column, "field '%s' expects %s, got %s", name, fieldType, got)
		}
	}
	return st
}

// convertibleTo implements the numeric-widening rules for value conversions
// (spec.md §4.6): same-signedness integer widening, float widening, and
// integer-to-float widening of sufficient width. Narrower or cross-signedness
// conversions are not implicit.
func (a *Analyzer) convertibleTo(from, to *types.Type) bool {
	if from == to {
		return true
	}
	if from == nil || to == nil {
		return false
	}
	if from.IsInteger() && to.IsInteger() && from.IsUnsigned() == to.IsUnsigned() {
		return bitWidth(from.Primitive) <= bitWidth(to.Primitive)
	}
	if from.IsFloat() && to.IsFloat() {
		return bitWidth(from.Primitive) <= bitWidth(to.Primitive)
	}
	if from.IsInteger() && to.IsFloat() {
		return bitWidth(from.Primitive) <= bitWidth(to.Primitive)
	}
	return false
}

var primitiveBitWidth = map[types.PrimitiveKind]int{
	types.I8: 8, types.U8: 8,
	types.I16: 16, types.U16: 16,
	types.I32: 32, types.U32: 32, types.F32: 32,
	types.I64: 64, types.U64: 64, types.F64: 64,
}

func bitWidth(p types.PrimitiveKind) int { return primitiveBitWidth[p] }
