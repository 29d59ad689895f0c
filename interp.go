package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const maxCallDepth = 1000

// breakSignal/continueSignal/returnSignal mirror
// original_source/interpreter.py's BreakException/ContinueException/
// ReturnException: control flow unwinds the Go call stack the same way
// it unwinds the Python one, via a typed error the loop/call dispatch
// recognizes and swallows at the right boundary.
type breakSignal struct{}
type continueSignal struct{}
type returnSignal struct{ value interface{} }

func (breakSignal) Error() string    { return "break outside loop" }
func (continueSignal) Error() string { return "continue outside loop" }
func (returnSignal) Error() string   { return "return outside function" }

// Interpreter executes script-mode programs directly off the AST: the
// semantic reference implementation and differential-testing oracle for
// the compiled path (spec.md §4.7, §8).
type Interpreter struct {
	vars       map[string]interface{}
	funcs      map[string]*FuncDecl
	callDepth  int
	readFailed bool

	in  *bufio.Reader
	out io.Writer
}

// NewInterpreter builds an interpreter reading from in and writing to out.
func NewInterpreter(in io.Reader, out io.Writer) *Interpreter {
	return &Interpreter{
		vars:  make(map[string]interface{}),
		funcs: make(map[string]*FuncDecl),
		in:    bufio.NewReader(in),
		out:   out,
	}
}

// Run executes a script-mode program's top-level statements, returning
// its exit code: the value given at top level, or 0.
func (it *Interpreter) Run(prog *Program) (int, error) {
	if !prog.ScriptMode {
		return 0, errors.New("interpreter: program is not in script mode")
	}
	for _, fn := range prog.Functions {
		it.funcs[fn.Name] = fn
	}
	for _, stmt := range prog.TopLevel {
		if err := it.execStatement(stmt); err != nil {
			if ret, ok := err.(returnSignal); ok {
				if n, ok := ret.value.(int64); ok {
					return int(n), nil
				}
				return 0, nil
			}
			return 0, err
		}
	}
	return 0, nil
}

func (it *Interpreter) execBlock(b *Block) error {
	for _, s := range b.Statements {
		if err := it.execStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (it *Interpreter) execStatement(stmt Statement) error {
	switch s := stmt.(type) {
	case *VarDecl:
		var v interface{}
		if s.Value != nil {
			val, err := it.eval(s.Value)
			if err != nil {
				return err
			}
			v = val
		}
		it.vars[s.Name] = v
		return nil
	case *AssignStmt:
		val, err := it.eval(s.Value)
		if err != nil {
			return err
		}
		if _, ok := it.vars[s.Name]; !ok {
			return errors.Errorf("interpreter: undefined variable %q", s.Name)
		}
		it.vars[s.Name] = val
		return nil
	case *ReturnStmt:
		var v interface{}
		if s.Value != nil {
			val, err := it.eval(s.Value)
			if err != nil {
				return err
			}
			v = val
		}
		return returnSignal{value: v}
	case *WhenStmt:
		for _, arm := range s.Arms {
			if arm.Cond == nil {
				return it.execBlock(arm.Body)
			}
			cond, err := it.eval(arm.Cond)
			if err != nil {
				return err
			}
			if truthy(cond) {
				return it.execBlock(arm.Body)
			}
		}
		return nil
	case *WhileStmt:
		for {
			cond, err := it.eval(s.Cond)
			if err != nil {
				return err
			}
			if !truthy(cond) {
				return nil
			}
			err = it.execBlock(s.Body)
			if err == nil {
				continue
			}
			if _, ok := err.(breakSignal); ok {
				return nil
			}
			if _, ok := err.(continueSignal); ok {
				continue
			}
			return err
		}
	case *BreakStmt:
		return breakSignal{}
	case *ContinueStmt:
		return continueSignal{}
	case *WriteStmt:
		val, err := it.eval(s.Value)
		if err != nil {
			return err
		}
		fmt.Fprint(it.out, stringify(val))
		if s.Newline {
			fmt.Fprint(it.out, "\n")
		}
		return nil
	case *ExprStmt:
		_, err := it.eval(s.Expr)
		return err
	default:
		return errors.Errorf("interpreter: statement type %T not implemented", stmt)
	}
}

func truthy(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return x
	case int64:
		return fmt.Sprintf("%d", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func (it *Interpreter) eval(e Expression) (interface{}, error) {
	switch ex := e.(type) {
	case *IntLit:
		return ex.Value, nil
	case *StringLit:
		return ex.Value, nil
	case *BoolLit:
		return ex.Value, nil
	case *Ident:
		v, ok := it.vars[ex.Name]
		if !ok {
			return nil, errors.Errorf("interpreter: undefined variable %q", ex.Name)
		}
		return v, nil
	case *BinaryOp:
		return it.evalBinary(ex)
	case *UnaryOp:
		return it.evalUnary(ex)
	case *CallExpr:
		return it.evalCall(ex)
	case *InputExpr:
		return it.evalInput(ex)
	default:
		return nil, errors.Errorf("interpreter: expression type %T not implemented", e)
	}
}

func (it *Interpreter) evalBinary(b *BinaryOp) (interface{}, error) {
	left, err := it.eval(b.Left)
	if err != nil {
		return nil, err
	}
	right, err := it.eval(b.Right)
	if err != nil {
		return nil, err
	}

	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok && b.Op == TOK_PLUS {
			return ls + rs, nil
		}
	}

	li, lok := left.(int64)
	ri, rok := right.(int64)
	if lok && rok {
		switch b.Op {
		case TOK_PLUS:
			return li + ri, nil
		case TOK_MINUS:
			return li - ri, nil
		case TOK_STAR:
			return li * ri, nil
		case TOK_SLASH:
			if ri == 0 {
				return nil, errors.New("interpreter: division by zero")
			}
			return li / ri, nil
		case TOK_PERCENT:
			if ri == 0 {
				return nil, errors.New("interpreter: modulo by zero")
			}
			return li % ri, nil
		case TOK_AMP:
			return li & ri, nil
		case TOK_PIPE:
			return li | ri, nil
		case TOK_CARET:
			return li ^ ri, nil
		case TOK_SHL:
			return li << uint(ri), nil
		case TOK_SHR:
			return li >> uint(ri), nil
		case TOK_EQ:
			return li == ri, nil
		case TOK_NE:
			return li != ri, nil
		case TOK_LT:
			return li < ri, nil
		case TOK_LE:
			return li <= ri, nil
		case TOK_GT:
			return li > ri, nil
		case TOK_GE:
			return li >= ri, nil
		}
	}

	switch b.Op {
	case TOK_EQ:
		return left == right, nil
	case TOK_NE:
		return left != right, nil
	}
	return nil, errors.Errorf("interpreter: unsupported operand types for %s", binOpSym(b.Op))
}

func (it *Interpreter) evalUnary(u *UnaryOp) (interface{}, error) {
	v, err := it.eval(u.Operand)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case TOK_MINUS:
		n, ok := v.(int64)
		if !ok {
			return nil, errors.New("interpreter: unary - on non-integer")
		}
		return -n, nil
	case TOK_BANG:
		b, ok := v.(bool)
		if !ok {
			return nil, errors.New("interpreter: unary ! on non-bool")
		}
		return !b, nil
	default:
		return nil, errors.Errorf("interpreter: unary operator %v not implemented", u.Op)
	}
}

// evalCall dispatches a user function call, saving and restoring the
// full variable environment at the boundary (script mode has no
// parameters yet, matching spec.md §4.7 verbatim).
func (it *Interpreter) evalCall(call *CallExpr) (interface{}, error) {
	fn, ok := it.funcs[call.Name]
	if !ok {
		return nil, errors.Errorf("interpreter: undefined function %q", call.Name)
	}
	if it.callDepth >= maxCallDepth {
		return nil, errors.New("interpreter: stack overflow in script mode")
	}
	if len(call.Args) > 0 || len(fn.Params) > 0 {
		return nil, errors.New("interpreter: function parameters not supported in script mode")
	}

	saved := it.vars
	it.vars = make(map[string]interface{}, len(saved))
	for k, v := range saved {
		it.vars[k] = v
	}
	it.callDepth++
	defer func() {
		it.vars = saved
		it.callDepth--
	}()

	err := it.execBlock(fn.Body)
	if err == nil {
		return nil, nil
	}
	if ret, ok := err.(returnSignal); ok {
		return ret.value, nil
	}
	return nil, err
}

func (it *Interpreter) evalInput(in *InputExpr) (interface{}, error) {
	switch in.Kind {
	case InputRead:
		data, err := io.ReadAll(it.in)
		if err != nil || len(data) == 0 {
			it.readFailed = true
			return "", nil
		}
		it.readFailed = false
		return string(data), nil
	case InputReadln:
		line, err := it.in.ReadString('\n')
		if err != nil && line == "" {
			it.readFailed = true
			return "", nil
		}
		it.readFailed = false
		return strings.TrimRight(line, "\r\n"), nil
	case InputReadchar:
		b, err := it.in.ReadByte()
		if err != nil {
			it.readFailed = true
			return int64(-1), nil
		}
		it.readFailed = false
		return int64(b), nil
	case InputReadFailed:
		return it.readFailed, nil
	default:
		return nil, errors.Errorf("interpreter: input kind %v not implemented", in.Kind)
	}
}
