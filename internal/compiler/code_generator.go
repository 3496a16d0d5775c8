package compiler

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// compilationContext holds everything the code generation of one class needs. A fresh context is built per class,
// so nothing leaks from one compilation unit to the next.
type compilationContext struct {
	className   string
	class       *SymbolTable
	procedure   *SymbolTable
	subroutines map[string]*ClassFuncOrMethodAst
	current     *ClassFuncOrMethodAst

	ifCounter    int
	whileCounter int
	ifLabels     labelStack[int]
	whileLabels  labelStack[int]

	writer *VMWriter
}

func newCompilationContext(className string) *compilationContext {
	return &compilationContext{
		className:   className,
		class:       NewSymbolTable(),
		procedure:   NewSymbolTable(),
		subroutines: map[string]*ClassFuncOrMethodAst{},
		writer:      NewVMWriter(),
	}
}

// generateCode lowers one class to vm commands.
func generateCode(classAst *ClassAst) (*VMWriter, error) {
	ctx := newCompilationContext(classAst.ClassName)
	for _, variable := range classAst.ClassVariables {
		kind := FieldKind
		if variable.FieldTP == ClassFieldType {
			kind = StaticKind
		}
		if _, err := ctx.class.Define(variable.VariableName, variable.VariableType, kind); err != nil {
			return nil, atLine(err, variable.Line)
		}
	}
	for _, method := range classAst.ClassFuncOrMethod {
		if _, ok := ctx.subroutines[method.FuncName]; ok {
			return nil, makeSemanticErrorAt(method.Line, "duplicate funcName: %s at class %s", method.FuncName,
				classAst.ClassName)
		}
		ctx.subroutines[method.FuncName] = method
	}
	for _, method := range classAst.ClassFuncOrMethod {
		if err := ctx.generateMethodCode(method); err != nil {
			return nil, err
		}
	}
	return ctx.writer, nil
}

// generateMethodCode writes `function C.f nLocals`, the constructor or method prologue and the body.
func (ctx *compilationContext) generateMethodCode(method *ClassFuncOrMethodAst) error {
	ctx.current = method
	ctx.procedure.Reset()
	defer ctx.procedure.Reset()

	if err := ctx.writer.BeginFunction(ctx.className + "." + method.FuncName); err != nil {
		return atLine(err, method.Line)
	}
	if method.FuncTP == ClassMethodType {
		// The receiver is always argument 0.
		if _, err := ctx.procedure.Define("this", VariableType{TP: ClassVariableType, Name: ctx.className}, ArgumentKind); err != nil {
			return atLine(err, method.Line)
		}
	}
	for _, param := range method.Params {
		if _, err := ctx.procedure.Define(param.ParamName, param.ParamTP, ArgumentKind); err != nil {
			return atLine(err, method.Line)
		}
	}
	if err := ctx.writer.OpenBody(); err != nil {
		return atLine(err, method.Line)
	}
	for _, local := range method.Locals {
		if _, err := ctx.procedure.Define(local.VarName, local.VarType, LocalKind); err != nil {
			return atLine(err, local.Line)
		}
	}
	if err := ctx.writer.SetLocalCount(ctx.procedure.VarCount(LocalKind)); err != nil {
		return atLine(err, method.Line)
	}

	switch method.FuncTP {
	case ClassConstructorType:
		ctx.writer.WritePush(ConstVMSegment, ctx.class.VarCount(FieldKind))
		ctx.writer.WriteCall("Memory.alloc", 1)
		ctx.writer.WritePop(PointerVMSegment, 0)
	case ClassMethodType:
		ctx.writer.WritePush(ArgumentVMSegment, 0)
		ctx.writer.WritePop(PointerVMSegment, 0)
	}

	if err := ctx.generateStatementsCode(method.FuncBody); err != nil {
		return err
	}
	return atLine(ctx.writer.FinalizeFunction(), method.Line)
}

func (ctx *compilationContext) generateStatementsCode(statements []*StatementAst) error {
	for _, stm := range statements {
		if err := ctx.generateStatementCode(stm); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *compilationContext) generateStatementCode(statement *StatementAst) error {
	switch statement.StatementTP {
	case LetStatementTP:
		return ctx.generateLetStatementCode(statement.Statement.(*LetStatementAst))
	case IfStatementTP:
		return ctx.generateIfStatementCode(statement.Statement.(*IfStatementAst))
	case WhileStatementTP:
		return ctx.generateWhileStatementCode(statement.Statement.(*WhileStatementAst))
	case DoStatementTP:
		return ctx.generateDoStatementCode(statement.Statement.(*DoStatementAst))
	case ReturnStatementTP:
		return ctx.generateReturnStatementCode(statement.Statement.(*ReturnStatementAst))
	}
	return makeSemanticErrorAt(statement.Line, "unknown statement type %d", statement.StatementTP)
}

// For let statement: letVariable = expression.
// An array element is written through that 0, the value is parked in temp 0 while pointer 1 is rebound.
func (ctx *compilationContext) generateLetStatementCode(let *LetStatementAst) error {
	symbol, err := ctx.resolveVariable(let.LetVariable.VarName, let.LetVariable.Line)
	if err != nil {
		return err
	}
	if let.LetVariable.ArrayIndex == nil {
		if err = ctx.generateExpressionCode(let.Value); err != nil {
			return err
		}
		ctx.writer.WritePop(symbol.Kind.Segment(), symbol.Index)
		return nil
	}
	ctx.writer.WritePush(symbol.Kind.Segment(), symbol.Index)
	if err = ctx.generateExpressionCode(let.LetVariable.ArrayIndex); err != nil {
		return err
	}
	ctx.writer.WriteArithmetic(AddVMOperation)
	if err = ctx.generateExpressionCode(let.Value); err != nil {
		return err
	}
	ctx.writer.WritePop(TempVMSegment, 0)
	ctx.writer.WritePop(PointerVMSegment, 1)
	ctx.writer.WritePush(TempVMSegment, 0)
	ctx.writer.WritePop(ThatVMSegment, 0)
	return nil
}

// if (cond) {a} else {b}:
//
//	cond
//	if-goto IF_TRUEn
//	goto IF_FALSEn
//	label IF_TRUEn
//	a
//	goto IF_ENDn      (with else only)
//	label IF_FALSEn
//	b
//	label IF_ENDn     (with else only)
func (ctx *compilationContext) generateIfStatementCode(ifStatement *IfStatementAst) error {
	if err := ctx.generateExpressionCode(ifStatement.Condition); err != nil {
		return err
	}
	ctx.ifLabels.push(ctx.ifCounter)
	ctx.ifCounter++
	index, _ := ctx.ifLabels.peek()
	ctx.writer.WriteIf(labelName("IF_TRUE", index))
	ctx.writer.WriteGoto(labelName("IF_FALSE", index))
	ctx.writer.WriteLabel(labelName("IF_TRUE", index))
	if err := ctx.generateStatementsCode(ifStatement.IfTrueStatements); err != nil {
		return err
	}
	index, _ = ctx.ifLabels.peek()
	if !ifStatement.HasElse {
		ctx.ifLabels.pop()
		ctx.writer.WriteLabel(labelName("IF_FALSE", index))
		return nil
	}
	ctx.writer.WriteGoto(labelName("IF_END", index))
	ctx.writer.WriteLabel(labelName("IF_FALSE", index))
	if err := ctx.generateStatementsCode(ifStatement.ElseStatements); err != nil {
		return err
	}
	index, _ = ctx.ifLabels.pop()
	ctx.writer.WriteLabel(labelName("IF_END", index))
	return nil
}

// while (cond) {a}:
//
//	label WHILE_EXPn
//	cond
//	not
//	if-goto WHILE_ENDn
//	a
//	goto WHILE_EXPn
//	label WHILE_ENDn
func (ctx *compilationContext) generateWhileStatementCode(while *WhileStatementAst) error {
	ctx.whileLabels.push(ctx.whileCounter)
	ctx.whileCounter++
	index, _ := ctx.whileLabels.peek()
	ctx.writer.WriteLabel(labelName("WHILE_EXP", index))
	if err := ctx.generateExpressionCode(while.Condition); err != nil {
		return err
	}
	ctx.writer.WriteArithmetic(NotVMOperation)
	ctx.writer.WriteIf(labelName("WHILE_END", index))
	if err := ctx.generateStatementsCode(while.Statements); err != nil {
		return err
	}
	index, _ = ctx.whileLabels.pop()
	ctx.writer.WriteGoto(labelName("WHILE_EXP", index))
	ctx.writer.WriteLabel(labelName("WHILE_END", index))
	return nil
}

func labelName(prefix string, index int) string {
	return prefix + strconv.Itoa(index)
}

// The value of a do statement is always dropped.
func (ctx *compilationContext) generateDoStatementCode(do *DoStatementAst) error {
	if err := ctx.generateCallCode(do.Call); err != nil {
		return err
	}
	ctx.writer.WritePop(TempVMSegment, 0)
	return nil
}

// A bare return still leaves a value, the caller of a void subroutine drops it.
func (ctx *compilationContext) generateReturnStatementCode(ret *ReturnStatementAst) error {
	if ret.Return == nil {
		ctx.writer.WritePush(ConstVMSegment, 0)
	} else if err := ctx.generateExpressionCode(ret.Return); err != nil {
		return err
	}
	ctx.writer.WriteReturn()
	return nil
}

// Operators are applied strictly left to right.
func (ctx *compilationContext) generateExpressionCode(expr *ExpressionAst) error {
	if err := ctx.generateExpressionTermCode(expr.First); err != nil {
		return err
	}
	for _, opTerm := range expr.Rest {
		if err := ctx.generateExpressionTermCode(opTerm.Term); err != nil {
			return err
		}
		ctx.writer.WriteArithmetic(binaryOperation(opTerm.Op))
	}
	return nil
}

func binaryOperation(op *OpAst) VMOperation {
	switch op.Op {
	case AddOpTP:
		return AddVMOperation
	case MinusOpTP:
		return SubVMOperation
	case MultipleOpTP:
		return MulVMOperation
	case DivideOpTP:
		return DivVMOperation
	case AndOpTP:
		return AndVMOperation
	case OrOpTP:
		return OrVMOperation
	case LessOpTP:
		return LtVMOperation
	case GreaterOpTP:
		return GtVMOperation
	}
	return EqVMOperation
}

func (ctx *compilationContext) generateExpressionTermCode(term *ExpressionTerm) error {
	switch term.Type {
	case IntegerConstantTermType:
		value := term.Value.(int)
		if value > maxIntegerConstant {
			return makeSemanticErrorAt(term.Line, "integer constant %d out of range 0..%d", value, maxIntegerConstant)
		}
		ctx.writer.WritePush(ConstVMSegment, value)
	case StringConstantTermType:
		constant := term.Value.(string)
		for i := 0; i < len(constant); i++ {
			if constant[i] >= utf8.RuneSelf {
				return makeSemanticErrorAt(term.Line, "string constant %q has a non ascii character", constant)
			}
		}
		ctx.writer.WriteStringConstant(constant)
	case KeyWordConstantTrueTermType:
		ctx.writer.WritePush(ConstVMSegment, 1)
		ctx.writer.WriteArithmetic(NegVMOperation)
	case KeyWordConstantFalseTermType, KeyWordConstantNullTermType:
		ctx.writer.WritePush(ConstVMSegment, 0)
	case KeyWordConstantThisTermType:
		if ctx.current.FuncTP == ClassFuncType {
			return makeSemanticErrorAt(term.Line, "this used in function %s.%s", ctx.className, ctx.current.FuncName)
		}
		ctx.writer.WritePush(PointerVMSegment, 0)
	case VarNameExpressionTermType:
		variable := term.Value.(*VariableAst)
		symbol, err := ctx.resolveVariable(variable.VarName, variable.Line)
		if err != nil {
			return err
		}
		ctx.writer.WritePush(symbol.Kind.Segment(), symbol.Index)
	case ArrayIndexExpressionTermType:
		variable := term.Value.(*VariableAst)
		symbol, err := ctx.resolveVariable(variable.VarName, variable.Line)
		if err != nil {
			return err
		}
		ctx.writer.WritePush(symbol.Kind.Segment(), symbol.Index)
		if err = ctx.generateExpressionCode(variable.ArrayIndex); err != nil {
			return err
		}
		ctx.writer.WriteArithmetic(AddVMOperation)
		ctx.writer.WritePop(PointerVMSegment, 1)
		ctx.writer.WritePush(ThatVMSegment, 0)
	case SubRoutineCallTermType:
		return ctx.generateCallCode(term.Value.(*CallAst))
	case SubExpressionTermType:
		return ctx.generateExpressionCode(term.Value.(*ExpressionAst))
	case UnaryTermExpressionTermType:
		if err := ctx.generateExpressionTermCode(term.Value.(*ExpressionTerm)); err != nil {
			return err
		}
		if term.UnaryOp.Op == BooleanNegationOpTP {
			ctx.writer.WriteArithmetic(NotVMOperation)
		} else {
			ctx.writer.WriteArithmetic(NegVMOperation)
		}
	default:
		return makeSemanticErrorAt(term.Line, "unknown expression term type %d", term.Type)
	}
	return nil
}

// generateCallCode resolves the three call shapes:
//   - f(...) is a subroutine of the current class, a method gets pointer 0 as receiver.
//   - v.f(...) with v a variable pushes v as receiver and calls Type(v).f.
//   - C.f(...) otherwise is a function or constructor of class C.
func (ctx *compilationContext) generateCallCode(call *CallAst) error {
	var name string
	nArgs := len(call.Params)
	switch {
	case call.FuncProvider == "":
		callee, ok := ctx.subroutines[call.FuncName]
		if !ok {
			return makeSemanticErrorAt(call.Line, "cannot find subroutine %s in class %s", call.FuncName, ctx.className)
		}
		if callee.FuncTP == ClassMethodType {
			if ctx.current.FuncTP == ClassFuncType {
				return makeSemanticErrorAt(call.Line, "method %s.%s must be called by an object at function %s",
					ctx.className, call.FuncName, ctx.current.FuncName)
			}
			ctx.writer.WritePush(PointerVMSegment, 0)
			nArgs++
		}
		name = ctx.className + "." + call.FuncName
	default:
		symbol, isVariable, err := ctx.lookUpReceiver(call.FuncProvider, call.Line)
		if err != nil {
			return err
		}
		if isVariable {
			if symbol.Type.TP != ClassVariableType {
				return makeSemanticErrorAt(call.Line, "cannot call %s on %s of type %s", call.FuncName,
					call.FuncProvider, symbol.Type)
			}
			ctx.writer.WritePush(symbol.Kind.Segment(), symbol.Index)
			nArgs++
			name = symbol.Type.Name + "." + call.FuncName
		} else {
			name = call.FuncProvider + "." + call.FuncName
		}
	}
	for _, param := range call.Params {
		if err := ctx.generateExpressionCode(param); err != nil {
			return err
		}
	}
	ctx.writer.WriteCall(name, nArgs)
	return nil
}

// lookUpReceiver reports whether provider names a variable. A field is not reachable from a function.
func (ctx *compilationContext) lookUpReceiver(provider string, line int) (*Symbol, bool, error) {
	symbol, ok := lookUpVariable(ctx.procedure, ctx.class, provider)
	if !ok {
		return nil, false, nil
	}
	if symbol.Kind == FieldKind && ctx.current.FuncTP == ClassFuncType {
		return nil, false, makeSemanticErrorAt(line, "field %s used in function %s.%s", provider, ctx.className,
			ctx.current.FuncName)
	}
	return symbol, true, nil
}

func (ctx *compilationContext) resolveVariable(name string, line int) (*Symbol, error) {
	symbol, isVariable, err := ctx.lookUpReceiver(name, line)
	if err != nil {
		return nil, err
	}
	if !isVariable {
		return nil, makeSemanticErrorAt(line, "undeclared variable: %s at func: %s", name, ctx.current.FuncName)
	}
	return symbol, nil
}

// atLine fills in the line of a semantic error raised below the statement level.
func atLine(err error, line int) error {
	if se, ok := err.(*SemanticError); ok && se.Line == 0 {
		se.Line = line
	}
	return err
}

func makeSemanticErrorAt(line int, format string, args ...interface{}) error {
	return &SemanticError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
