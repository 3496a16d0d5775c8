package compiler

// Return analysis, run on the syntax tree before code generation. Name resolution errors are found by the code
// generator itself.

func (classAst *ClassAst) checkReturns() error {
	for _, method := range classAst.ClassFuncOrMethod {
		if err := classAst.checkMethodReturns(method); err != nil {
			return err
		}
	}
	return nil
}

func (classAst *ClassAst) checkMethodReturns(method *ClassFuncOrMethodAst) error {
	if method.FuncTP == ClassConstructorType &&
		(method.ReturnTP.TP != ClassVariableType || method.ReturnTP.Name != classAst.ClassName) {
		return makeSemanticErrorAt(method.Line, "constructor %s.%s must return %s, not %s", classAst.ClassName,
			method.FuncName, classAst.ClassName, method.ReturnTP)
	}
	if err := classAst.checkReturnStatements(method, method.FuncBody); err != nil {
		return err
	}
	if !alwaysReturns(method.FuncBody) {
		return makeSemanticErrorAt(method.Line, "%s %s.%s may end without a return statement", method.FuncTP,
			classAst.ClassName, method.FuncName)
	}
	return nil
}

// checkReturnStatements matches every return statement against the declared return type.
func (classAst *ClassAst) checkReturnStatements(method *ClassFuncOrMethodAst, statements []*StatementAst) error {
	for _, stm := range statements {
		var err error
		switch stm.StatementTP {
		case ReturnStatementTP:
			ret := stm.Statement.(*ReturnStatementAst)
			void := method.ReturnTP.TP == VoidVariableType
			if void && ret.Return != nil {
				err = makeSemanticErrorAt(stm.Line, "void %s.%s returns a value", classAst.ClassName, method.FuncName)
			} else if !void && ret.Return == nil {
				err = makeSemanticErrorAt(stm.Line, "%s.%s must return a %s value", classAst.ClassName,
					method.FuncName, method.ReturnTP)
			}
		case IfStatementTP:
			ifStatement := stm.Statement.(*IfStatementAst)
			err = classAst.checkReturnStatements(method, ifStatement.IfTrueStatements)
			if err == nil {
				err = classAst.checkReturnStatements(method, ifStatement.ElseStatements)
			}
		case WhileStatementTP:
			err = classAst.checkReturnStatements(method, stm.Statement.(*WhileStatementAst).Statements)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// alwaysReturns reports whether every path through statements ends in a return. A while body may run zero times,
// so it never counts.
func alwaysReturns(statements []*StatementAst) bool {
	for _, stm := range statements {
		switch stm.StatementTP {
		case ReturnStatementTP:
			return true
		case IfStatementTP:
			ifStatement := stm.Statement.(*IfStatementAst)
			if ifStatement.HasElse && alwaysReturns(ifStatement.IfTrueStatements) &&
				alwaysReturns(ifStatement.ElseStatements) {
				return true
			}
		}
	}
	return false
}
