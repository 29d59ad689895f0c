package main

import (
	"github.com/pkg/errors"
)

// FuncSig is the signature collected during pass 1.
type FuncSig struct {
	Decl *FuncDecl
}

// Analyzer performs pass 1 (signature collection) and pass 2 (body
// checking, frame layout, literal coercion) per spec.md §4.3.
type Analyzer struct {
	sigs     map[string]*FuncSig
	loopDepth int
	curFunc  *FuncDecl
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{sigs: make(map[string]*FuncSig)}
}

// Analyze type-checks and annotates prog in place.
func (a *Analyzer) Analyze(prog *Program) error {
	for _, fn := range prog.Functions {
		if _, exists := a.sigs[fn.Name]; exists {
			return errors.Errorf("%d:%d: duplicate function definition %q", fn.Line, fn.Col, fn.Name)
		}
		a.sigs[fn.Name] = &FuncSig{Decl: fn}
	}
	for _, fn := range prog.Functions {
		if err := a.analyzeFunc(fn); err != nil {
			return err
		}
	}
	if prog.ScriptMode {
		root := newScope(nil)
		scriptFunc := &FuncDecl{Name: "__script__", Locals: make(map[string]*Symbol)}
		a.curFunc = scriptFunc
		fl := &FrameLayout{}
		for _, stmt := range prog.TopLevel {
			if err := a.checkStatement(stmt, root, TypeVoid, fl); err != nil {
				return err
			}
		}
		scriptFunc.FrameSize = fl.FinalSize()
		a.curFunc = nil
	}
	return nil
}

func (a *Analyzer) analyzeFunc(fn *FuncDecl) error {
	a.curFunc = fn
	fn.Locals = make(map[string]*Symbol)
	root := newScope(nil)
	fl := &FrameLayout{}
	for i, p := range fn.Params {
		// Parameters beyond what registers carry are not supported
		// (spec.md §3 invariants; §9 open question).
		if i >= 6 {
			return errors.Errorf("%d:%d: parameter %q: more than six parameters is not implemented", fn.Line, fn.Col, p.Name)
		}
		// Every parameter gets its own 8-byte frame slot, spilled there
		// by the prologue regardless of its declared width, so codegen
		// has one consistent rbp-relative home to load and store through.
		sym := &Symbol{Name: p.Name, Type: p.Type, Mutable: true, Offset: fl.Alloc(8), IsParam: true}
		if !root.Declare(sym) {
			return errors.Errorf("%d:%d: duplicate parameter %q", fn.Line, fn.Col, p.Name)
		}
		fn.Locals[p.Name] = sym
	}
	if err := a.checkBlock(fn.Body, root, fn.ReturnType, fl); err != nil {
		return err
	}
	fn.FrameSize = fl.FinalSize()
	a.curFunc = nil
	return nil
}

func (a *Analyzer) checkBlock(b *Block, parent *Scope, retType TypeTag, fl *FrameLayout) error {
	scope := newScope(parent)
	for _, stmt := range b.Statements {
		if err := a.checkStatement(stmt, scope, retType, fl); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) checkStatement(stmt Statement, scope *Scope, retType TypeTag, fl *FrameLayout) error {
	switch s := stmt.(type) {
	case *VarDecl:
		return a.checkVarDecl(s, scope, fl)
	case *AssignStmt:
		return a.checkAssign(s, scope)
	case *ReturnStmt:
		return a.checkReturn(s, scope, retType)
	case *WhenStmt:
		for _, arm := range s.Arms {
			if arm.Cond != nil {
				t, err := a.checkExpr(arm.Cond, scope)
				if err != nil {
					return err
				}
				if t != TypeBool {
					return errors.Errorf("%d:%d: when condition must be bool, got %s", s.Line, s.Col, t)
				}
			}
			if err := a.checkBlock(arm.Body, scope, retType, fl); err != nil {
				return err
			}
		}
		return nil
	case *WhileStmt:
		t, err := a.checkExpr(s.Cond, scope)
		if err != nil {
			return err
		}
		if t != TypeBool {
			return errors.Errorf("%d:%d: while condition must be bool, got %s", s.Line, s.Col, t)
		}
		a.loopDepth++
		err = a.checkBlock(s.Body, scope, retType, fl)
		a.loopDepth--
		return err
	case *BreakStmt:
		if a.loopDepth == 0 {
			return errors.Errorf("%d:%d: break outside of loop", s.Line, s.Col)
		}
		return nil
	case *ContinueStmt:
		if a.loopDepth == 0 {
			return errors.Errorf("%d:%d: continue outside of loop", s.Line, s.Col)
		}
		return nil
	case *WriteStmt:
		_, err := a.checkExpr(s.Value, scope)
		return err
	case *ExprStmt:
		_, err := a.checkExpr(s.Expr, scope)
		return err
	default:
		return errors.Errorf("internal: unhandled statement type %T", stmt)
	}
}

func (a *Analyzer) checkVarDecl(v *VarDecl, scope *Scope, fl *FrameLayout) error {
	if v.Value != nil {
		vt, err := a.checkExprTarget(v.Value, scope, v.Type)
		if err != nil {
			return err
		}
		if !coerceTo(v.Value, v.Type) {
			if vt != v.Type {
				return errors.Errorf("%d:%d: cannot assign %s to %s variable %q", v.Line, v.Col, vt, v.Type, v.Name)
			}
		}
	}
	sym := &Symbol{Name: v.Name, Type: v.Type, Mutable: true, Offset: fl.Alloc(v.Type.Size())}
	v.Offset = sym.Offset
	if !scope.Declare(sym) {
		return errors.Errorf("%d:%d: %q already declared in this scope", v.Line, v.Col, v.Name)
	}
	a.curFunc.Locals[v.Name] = sym
	return nil
}

func (a *Analyzer) checkAssign(s *AssignStmt, scope *Scope) error {
	sym, ok := scope.Lookup(s.Name)
	if !ok {
		return errors.Errorf("%d:%d: undefined variable %q", s.Line, s.Col, s.Name)
	}
	vt, err := a.checkExprTarget(s.Value, scope, sym.Type)
	if err != nil {
		return err
	}
	if !coerceTo(s.Value, sym.Type) && vt != sym.Type {
		return errors.Errorf("%d:%d: cannot assign %s to %s variable %q", s.Line, s.Col, vt, sym.Type, s.Name)
	}
	return nil
}

func (a *Analyzer) checkReturn(s *ReturnStmt, scope *Scope, retType TypeTag) error {
	if s.Value == nil {
		if retType != TypeVoid {
			return errors.Errorf("%d:%d: missing return value for function returning %s", s.Line, s.Col, retType)
		}
		return nil
	}
	if retType == TypeVoid {
		return errors.Errorf("%d:%d: return value in void function", s.Line, s.Col)
	}
	vt, err := a.checkExprTarget(s.Value, scope, retType)
	if err != nil {
		return err
	}
	if !coerceTo(s.Value, retType) && vt != retType {
		return errors.Errorf("%d:%d: return type %s does not match declared %s", s.Line, s.Col, vt, retType)
	}
	return nil
}

// checkExprTarget is checkExpr with a known target type, used wherever
// an input primitive's result type must be inferred from context
// (spec.md §4.3: "read/readln infer their result type from the
// assignment target").
func (a *Analyzer) checkExprTarget(e Expression, scope *Scope, target TypeTag) (TypeTag, error) {
	if in, ok := e.(*InputExpr); ok {
		return a.checkInput(in, target)
	}
	return a.checkExpr(e, scope)
}

// coerceTo implements literal coercion: an untyped i32 integer literal
// silently rewrites to the target integer type, or to bool for 0/1, per
// spec.md §4.3. Named values never coerce.
func coerceTo(e Expression, target TypeTag) bool {
	lit, ok := e.(*IntLit)
	if !ok {
		return false
	}
	if target.IsInteger() {
		lit.SetType(target)
		return true
	}
	if target == TypeBool && (lit.Value == 0 || lit.Value == 1) {
		lit.SetType(TypeBool)
		return true
	}
	return false
}

func (a *Analyzer) checkExpr(e Expression, scope *Scope) (TypeTag, error) {
	switch ex := e.(type) {
	case *IntLit:
		ex.SetType(TypeI32)
		return TypeI32, nil
	case *StringLit:
		ex.SetType(TypeStr)
		return TypeStr, nil
	case *BoolLit:
		ex.SetType(TypeBool)
		return TypeBool, nil
	case *Ident:
		sym, ok := scope.Lookup(ex.Name)
		if !ok {
			return TypeUnknown, errors.Errorf("%d:%d: undefined variable %q", ex.Line, ex.Col, ex.Name)
		}
		ex.SetType(sym.Type)
		return sym.Type, nil
	case *BinaryOp:
		return a.checkBinary(ex, scope)
	case *UnaryOp:
		return a.checkUnary(ex, scope)
	case *CallExpr:
		return a.checkCall(ex, scope)
	case *InputExpr:
		return a.checkInput(ex, TypeStr)
	default:
		return TypeUnknown, errors.Errorf("internal: unhandled expression type %T", e)
	}
}

func (a *Analyzer) checkBinary(b *BinaryOp, scope *Scope) (TypeTag, error) {
	lt, err := a.checkExpr(b.Left, scope)
	if err != nil {
		return TypeUnknown, err
	}
	rt, err := a.checkExpr(b.Right, scope)
	if err != nil {
		return TypeUnknown, err
	}

	switch b.Op {
	case TOK_PLUS, TOK_MINUS, TOK_STAR, TOK_SLASH, TOK_PERCENT, TOK_AMP, TOK_PIPE, TOK_CARET:
		if !unifyIntegers(b.Left, b.Right, lt, rt, &lt, &rt) || !lt.IsInteger() {
			return TypeUnknown, errors.Errorf("%d:%d: %s requires matching integer operands, got %s and %s", b.Line, b.Col, binOpSym(b.Op), lt, rt)
		}
		b.SetType(lt)
		return lt, nil
	case TOK_SHL, TOK_SHR:
		if !lt.IsInteger() || !rt.IsInteger() {
			return TypeUnknown, errors.Errorf("%d:%d: shift requires integer operands", b.Line, b.Col)
		}
		if lit, ok := b.Right.(*IntLit); ok && lit.Value < 0 {
			return TypeUnknown, errors.Errorf("%d:%d: shift amount must be non-negative", b.Line, b.Col)
		}
		b.SetType(lt)
		return lt, nil
	case TOK_EQ, TOK_NE, TOK_LT, TOK_LE, TOK_GT, TOK_GE:
		if lt == TypeBool && rt == TypeBool {
			b.SetType(TypeBool)
			return TypeBool, nil
		}
		if !unifyIntegers(b.Left, b.Right, lt, rt, &lt, &rt) || !lt.IsInteger() {
			return TypeUnknown, errors.Errorf("%d:%d: comparison requires matching integer or bool operands, got %s and %s", b.Line, b.Col, lt, rt)
		}
		b.SetType(TypeBool)
		return TypeBool, nil
	default:
		return TypeUnknown, errors.Errorf("internal: unhandled binary operator")
	}
}

// unifyIntegers applies literal coercion so that an i32-literal operand
// matches the other side's concrete integer type, mutating *lt/*rt to
// reflect the (possibly coerced) result.
func unifyIntegers(left, right Expression, lt, rt TypeTag, outL, outR *TypeTag) bool {
	if lt == rt {
		*outL, *outR = lt, rt
		return lt.IsInteger() || lt == TypeBool
	}
	if coerceTo(left, rt) {
		*outL, *outR = rt, rt
		return rt.IsInteger()
	}
	if coerceTo(right, lt) {
		*outL, *outR = lt, lt
		return lt.IsInteger()
	}
	return false
}

func (a *Analyzer) checkUnary(u *UnaryOp, scope *Scope) (TypeTag, error) {
	t, err := a.checkExpr(u.Operand, scope)
	if err != nil {
		return TypeUnknown, err
	}
	switch u.Op {
	case TOK_MINUS:
		if !t.IsSigned() {
			return TypeUnknown, errors.Errorf("%d:%d: unary '-' requires a signed integer, got %s", u.Line, u.Col, t)
		}
		u.SetType(t)
		return t, nil
	case TOK_BANG:
		if t != TypeBool {
			return TypeUnknown, errors.Errorf("%d:%d: unary '!' requires bool, got %s", u.Line, u.Col, t)
		}
		u.SetType(TypeBool)
		return TypeBool, nil
	case TOK_STAR:
		if t != TypePtr {
			return TypeUnknown, errors.Errorf("%d:%d: cannot dereference non-pointer type %s", u.Line, u.Col, t)
		}
		return TypeUnknown, errors.Errorf("%d:%d: pointer dereference is not implemented", u.Line, u.Col)
	default:
		return TypeUnknown, errors.Errorf("internal: unhandled unary operator")
	}
}

func (a *Analyzer) checkCall(c *CallExpr, scope *Scope) (TypeTag, error) {
	sig, ok := a.sigs[c.Name]
	if !ok {
		return TypeUnknown, errors.Errorf("%d:%d: undefined function %q", c.Line, c.Col, c.Name)
	}
	if len(c.Args) != len(sig.Decl.Params) {
		return TypeUnknown, errors.Errorf("%d:%d: %q expects %d argument(s), got %d", c.Line, c.Col, c.Name, len(sig.Decl.Params), len(c.Args))
	}
	for i, arg := range c.Args {
		want := sig.Decl.Params[i].Type
		at, err := a.checkExprTarget(arg, scope, want)
		if err != nil {
			return TypeUnknown, err
		}
		if !coerceTo(arg, want) && at != want {
			return TypeUnknown, errors.Errorf("%d:%d: argument %d to %q: expected %s, got %s", c.Line, c.Col, i+1, c.Name, want, at)
		}
	}
	if sig.Decl.ReturnType == TypeVoid {
		return TypeUnknown, errors.Errorf("%d:%d: %q has no return value and cannot be used in an expression", c.Line, c.Col, c.Name)
	}
	c.SetType(sig.Decl.ReturnType)
	return sig.Decl.ReturnType, nil
}

func (a *Analyzer) checkInput(r *InputExpr, target TypeTag) (TypeTag, error) {
	switch r.Kind {
	case InputReadchar:
		if target == TypeStr {
			return TypeUnknown, errors.Errorf("%d:%d: readchar() may not be assigned to str", r.Line, r.Col)
		}
		r.SetType(TypeI32)
		return TypeI32, nil
	case InputReadFailed:
		r.SetType(TypeBool)
		return TypeBool, nil
	default: // InputRead, InputReadln
		if target.IsInteger() {
			r.SetType(target)
			return target, nil
		}
		r.SetType(TypeStr)
		return TypeStr, nil
	}
}
