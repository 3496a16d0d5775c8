package compiler

import (
	"fmt"
)

// SyntaxError reports the first token which doesn't fit the jack grammar.
type SyntaxError struct {
	File string
	Line int
	Near string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s:%d: %s near %q", e.File, e.Line, e.Msg, e.Near)
}

// Parser is a recursive descent parser building a ClassAst from the tokens of one jack file.
type Parser struct {
	file            string
	currentTokenPos int
	currentTokens   []*Token
}

func NewParser(file string, tokens []*Token) *Parser {
	return &Parser{file: file, currentTokens: tokens}
}

// Parse parses the whole token sequence as one class declaration.
func (parser *Parser) Parse() (*ClassAst, error) {
	classAst, err := parser.ParseClassDeclaration()
	if err != nil {
		return nil, err
	}
	// If still has remain tokens, return err
	if parser.hasRemainTokens() {
		return nil, parser.makeError(true, "unexpected token after class declaration")
	}
	return classAst, nil
}

// class Identifier {
//
// }
func (parser *Parser) ParseClassDeclaration() (*ClassAst, error) {
	classToken, match := parser.expectToken(ClassTP, true)
	if !match {
		return nil, parser.makeError(true, "expect class")
	}
	classNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true, "expect class name")
	}
	className := classNameToken.content

	classVariableAst, classFuncOrMethodAst, err := parser.ParseClassBody(className)
	if err != nil {
		return nil, err
	}

	return &ClassAst{
		ClassName:         className,
		ClassVariables:    classVariableAst,
		ClassFuncOrMethod: classFuncOrMethodAst,
		Line:              classToken.line,
	}, nil
}

// ClassBody can contains variable or method declaration.
// {
//    varDefs
//    methodDefs
// }
func (parser *Parser) ParseClassBody(className string) (vars []*ClassVariableAst, methods []*ClassFuncOrMethodAst, err error) {
	_, match := parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, nil, parser.makeError(true, "expect {")
	}
	for {
		token, err := parser.getCurrentToken()
		if err != nil {
			return nil, nil, err
		}
		switch token.tp {
		case StaticTP, FieldTP:
			// class variables must come before subroutines.
			if len(methods) > 0 {
				return nil, nil, parser.makeError(true, "class variable declared after subroutine")
			}
			variables, err := parser.ParseVariableDeclaration()
			if err != nil {
				return nil, nil, err
			}
			vars = append(vars, variables...)
		case ConstructorTP, FunctionTP, MethodTP:
			method, err := parser.ParseFuncOrMethodDeclaration(className)
			if err != nil {
				return nil, nil, err
			}
			methods = append(methods, method)
		case RightBraceTP:
			parser.stepForward()
			return vars, methods, nil
		default:
			return nil, nil, parser.makeError(true, "expect class variable or subroutine declaration")
		}
	}
}

// Var declaration like: [static|field] [boolean|char|int|className] varName [,varName]* ;
func (parser *Parser) ParseVariableDeclaration() (vars []*ClassVariableAst, err error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	fieldTp := ObjectFieldType
	if token.tp == StaticTP {
		fieldTp = ClassFieldType
	}
	parser.stepForward()
	varType, err := parser.ParseVariableType()
	if err != nil {
		return nil, err
	}
	names, err := parser.parseVarNameList()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		vars = append(vars, &ClassVariableAst{
			VariableName: name.content,
			FieldTP:      fieldTp,
			VariableType: varType,
			Line:         name.line,
		})
	}
	return vars, nil
}

// parseVarNameList parses varName [, varName]* ;
func (parser *Parser) parseVarNameList() (names []*Token, err error) {
	for {
		varNameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError(true, "expect variable name")
		}
		names = append(names, varNameToken)
		if _, match = parser.expectToken(CommaTP, true); !match {
			break
		}
	}
	_, match := parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(true, "expect ;")
	}
	return names, nil
}

func (parser *Parser) getCurrentToken() (*Token, error) {
	if !parser.hasRemainTokens() {
		return nil, parser.makeError(true, "unexpected end of file")
	}
	return parser.currentTokens[parser.currentTokenPos], nil
}

func (parser *Parser) ParseVariableType() (v VariableType, err error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return v, err
	}
	switch token.tp {
	case IntTP:
		v.TP = IntVariableType
	case CharTP:
		v.TP = CharVariableType
	case BooleanTP:
		v.TP = BooleanVariableType
	case IdentifierTP:
		v.TP, v.Name = ClassVariableType, token.content
	default:
		return v, parser.makeError(true, "expect a type")
	}
	parser.stepForward()
	return v, nil
}

// Method Declaration:
// [constructor|function|method] [void|int|boolean|char|className] methodName ( {[int|boolean|char|className] varName,...}* ) {
//   MethodBody
// }
//
// MethodBody:
//  * varDesc: var [int|boolean|char|className] varName [, varName, ...]* ;
//  * statements: LetStatement| IfStatement | WhileStatement | DoStatement | ReturnStatement
func (parser *Parser) ParseFuncOrMethodDeclaration(className string) (*ClassFuncOrMethodAst, error) {
	funcToken, _ := parser.getCurrentToken()
	funcTp, err := parser.parseFuncType()
	if err != nil {
		return nil, err
	}

	returnTp, err := parser.parseFuncReturnType()
	if err != nil {
		return nil, err
	}

	methodNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true, "expect subroutine name")
	}

	paramList, err := parser.parseFuncParamList()
	if err != nil {
		return nil, err
	}

	locals, methodBody, err := parser.parseFuncBody()
	if err != nil {
		return nil, err
	}

	return &ClassFuncOrMethodAst{
		FuncTP:   funcTp,
		FuncName: methodNameToken.content,
		ReturnTP: returnTp,
		Params:   paramList,
		Locals:   locals,
		FuncBody: methodBody,
		Line:     funcToken.line,
	}, nil
}

func (parser *Parser) parseFuncType() (funcTP FuncType, err error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return funcTP, err
	}
	switch token.tp {
	case ConstructorTP:
		funcTP = ClassConstructorType
	case FunctionTP:
		funcTP = ClassFuncType
	case MethodTP:
		funcTP = ClassMethodType
	default:
		return funcTP, parser.makeError(true, "expect constructor, function or method")
	}
	parser.stepForward()
	return funcTP, nil
}

func (parser *Parser) parseFuncReturnType() (retTP VariableType, err error) {
	if _, match := parser.expectToken(VoidTP, true); match {
		retTP.TP = VoidVariableType
		return retTP, nil
	}
	return parser.ParseVariableType()
}

func (parser *Parser) parseFuncParamList() (ast []*FuncParamAst, err error) {
	_, match := parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true, "expect (")
	}
	// Empty param list.
	_, match = parser.expectToken(RightParentThesesTP, true)
	if match {
		return nil, nil
	}
	for {
		varType, err := parser.ParseVariableType()
		if err != nil {
			return nil, err
		}
		token, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError(true, "expect parameter name")
		}
		ast = append(ast, &FuncParamAst{ParamTP: varType, ParamName: token.content})
		if _, match = parser.expectToken(CommaTP, true); !match {
			break
		}
	}
	_, match = parser.expectToken(RightParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true, "expect )")
	}
	return ast, nil
}

func (parser *Parser) stepForward() {
	parser.currentTokenPos++
}

func (parser *Parser) hasRemainTokens() bool {
	return parser.currentTokenPos < len(parser.currentTokens)
}

// {
//    varDecs
//    statements
// }
func (parser *Parser) parseFuncBody() (locals []*VarDeclareAst, ast []*StatementAst, err error) {
	_, match := parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, nil, parser.makeError(true, "expect {")
	}
	for {
		if _, match = parser.expectToken(VarTP, false); !match {
			break
		}
		vars, err := parser.parseVarDeclareStatement()
		if err != nil {
			return nil, nil, err
		}
		locals = append(locals, vars...)
	}
	ast, err = parser.parseStatements()
	if err != nil {
		return nil, nil, err
	}
	_, match = parser.expectToken(RightBraceTP, true)
	if !match {
		return nil, nil, parser.makeError(true, "expect }")
	}
	return locals, ast, nil
}

// var int a, b;
func (parser *Parser) parseVarDeclareStatement() (vars []*VarDeclareAst, err error) {
	_, match := parser.expectToken(VarTP, true)
	if !match {
		return nil, parser.makeError(true, "expect var")
	}
	varType, err := parser.ParseVariableType()
	if err != nil {
		return nil, err
	}
	names, err := parser.parseVarNameList()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		vars = append(vars, &VarDeclareAst{VarName: name.content, VarType: varType, Line: name.line})
	}
	return vars, nil
}

// parseStatements parses statements until the closing brace, which is left for the caller.
func (parser *Parser) parseStatements() (stms []*StatementAst, err error) {
	for parser.hasRemainTokens() {
		_, match := parser.expectToken(RightBraceTP, false)
		if match {
			break
		}
		statement, err := parser.parseStatement()
		if err != nil {
			return nil, err
		}
		stms = append(stms, statement)
	}
	return stms, nil
}

func (parser *Parser) parseStatement() (stm *StatementAst, err error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	switch token.tp {
	case LetTP:
		stm, err = parser.parseLetStatement()
	case DoTp:
		stm, err = parser.parseDoStatement()
	case IfTP:
		stm, err = parser.parseIfStatement()
	case WhileTP:
		stm, err = parser.parseWhileStatement()
	case ReturnTP:
		stm, err = parser.parseReturnStatement()
	case VarTP:
		return nil, parser.makeError(true, "var declaration must precede statements")
	default:
		return nil, parser.makeError(true, "expect a statement")
	}
	if err != nil {
		return nil, err
	}
	stm.Line = token.line
	return stm, nil
}

func (parser *Parser) parseLetStatement() (stm *StatementAst, err error) {
	_, match := parser.expectToken(LetTP, true)
	if !match {
		return nil, parser.makeError(true, "expect let")
	}

	letVariable, err := parser.parseLetVariableAst()
	if err != nil {
		return nil, err
	}

	_, match = parser.expectToken(EqualTP, true)
	if !match {
		return nil, parser.makeError(true, "expect =")
	}

	valueExpression, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}

	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(true, "expect ;")
	}

	return &StatementAst{
		StatementTP: LetStatementTP,
		Statement: &LetStatementAst{
			LetVariable: letVariable,
			Value:       valueExpression,
		},
	}, nil
}

// In let statement: we don't allow let this =
func (parser *Parser) parseLetVariableAst() (*VariableAst, error) {
	token, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true, "expect variable name")
	}
	var arrayIndexExpression *ExpressionAst
	var err error
	_, match = parser.expectToken(LeftSquareBracketTP, false)
	if match {
		arrayIndexExpression, err = parser.parseArrayIndexExpression()
		if err != nil {
			return nil, err
		}
	}
	return &VariableAst{
		VarName:    token.content,
		ArrayIndex: arrayIndexExpression,
		Line:       token.line,
	}, nil
}

func (parser *Parser) parseArrayIndexExpression() (*ExpressionAst, error) {
	_, match := parser.expectToken(LeftSquareBracketTP, true)
	if !match {
		return nil, parser.makeError(true, "expect [")
	}
	arrayIndexExpression, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightSquareBracketTP, true)
	if !match {
		return nil, parser.makeError(true, "expect ]")
	}
	return arrayIndexExpression, nil
}

func (parser *Parser) parseDoStatement() (stm *StatementAst, err error) {
	_, match := parser.expectToken(DoTp, true)
	if !match {
		return nil, parser.makeError(true, "expect do")
	}
	funcCall, err := parser.parseFuncCall()
	if err != nil {
		return nil, err
	}

	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(true, "expect ;")
	}

	return &StatementAst{
		StatementTP: DoStatementTP,
		Statement:   &DoStatementAst{Call: funcCall},
	}, nil
}

func (parser *Parser) parseFuncCall() (*CallAst, error) {
	token, _ := parser.getCurrentToken()
	funcProvider, funcName, err := parser.parseFuncCallProvider()
	if err != nil {
		return nil, err
	}
	_, match := parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true, "expect (")
	}
	// Because we don't know the type of this function.
	// So we cannot check whether we need to put this as
	// the parameter of this method.
	expressions, err := parser.parseExpressions()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true, "expect )")
	}
	return &CallAst{
		FuncProvider: funcProvider,
		FuncName:     funcName,
		Params:       expressions,
		Line:         token.line,
	}, nil
}

func (parser *Parser) parseFuncCallProvider() (funcProvider string, funcName string, err error) {
	token, match := parser.expectToken(IdentifierTP, true)
	if !match {
		err = parser.makeError(true, "expect subroutine name")
		return
	}
	funcName = token.content
	_, match = parser.expectToken(DotTP, true)
	if !match {
		return
	}
	funcNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		err = parser.makeError(true, "expect subroutine name")
		return
	}
	funcProvider = funcName
	funcName = funcNameToken.content
	return
}

// if (condition) { do something } else { do something }
func (parser *Parser) parseIfStatement() (stm *StatementAst, err error) {
	match := parser.expectTokens(IfTP, LeftParentThesesTP)
	if !match {
		return nil, parser.makeError(true, "expect (")
	}
	condition, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	match = parser.expectTokens(RightParentThesesTP, LeftBraceTP)
	if !match {
		return nil, parser.makeError(true, "expect ) {")
	}

	ifTrueStatements, err := parser.parseBlockTail()
	if err != nil {
		return nil, err
	}

	ifStatement := &IfStatementAst{
		Condition:        condition,
		IfTrueStatements: ifTrueStatements,
	}
	if _, match = parser.expectToken(ElseTP, true); match {
		if _, match = parser.expectToken(LeftBraceTP, true); !match {
			return nil, parser.makeError(true, "expect {")
		}
		ifStatement.HasElse = true
		ifStatement.ElseStatements, err = parser.parseBlockTail()
		if err != nil {
			return nil, err
		}
	}
	return &StatementAst{
		StatementTP: IfStatementTP,
		Statement:   ifStatement,
	}, nil
}

// parseBlockTail parses the statements after an opening brace and the closing brace.
func (parser *Parser) parseBlockTail() ([]*StatementAst, error) {
	statements, err := parser.parseStatements()
	if err != nil {
		return nil, err
	}
	_, match := parser.expectToken(RightBraceTP, true)
	if !match {
		return nil, parser.makeError(true, "expect }")
	}
	return statements, nil
}

func (parser *Parser) parseWhileStatement() (stm *StatementAst, err error) {
	match := parser.expectTokens(WhileTP, LeftParentThesesTP)
	if !match {
		return nil, parser.makeError(true, "expect (")
	}
	condition, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	match = parser.expectTokens(RightParentThesesTP, LeftBraceTP)
	if !match {
		return nil, parser.makeError(true, "expect ) {")
	}
	statements, err := parser.parseBlockTail()
	if err != nil {
		return nil, err
	}
	return &StatementAst{
		StatementTP: WhileStatementTP,
		Statement: &WhileStatementAst{
			Condition:  condition,
			Statements: statements,
		},
	}, nil
}

func (parser *Parser) parseReturnStatement() (stm *StatementAst, err error) {
	_, match := parser.expectToken(ReturnTP, true)
	if !match {
		return nil, parser.makeError(true, "expect return")
	}

	// If no expressions.
	_, match = parser.expectToken(SemiColonTP, true)
	if match {
		return &StatementAst{
			StatementTP: ReturnStatementTP,
			Statement:   &ReturnStatementAst{},
		}, nil
	}

	expression, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(true, "expect ;")
	}
	return &StatementAst{
		StatementTP: ReturnStatementTP,
		Statement:   &ReturnStatementAst{Return: expression},
	}, nil
}

func (parser *Parser) expectTokens(expectedTokenTPs ...TokenType) bool {
	for _, tokenType := range expectedTokenTPs {
		_, ok := parser.expectToken(tokenType, true)
		if !ok {
			return false
		}
	}
	return true
}

func (parser *Parser) expectToken(expectedTokenTp TokenType, walk bool) (*Token, bool) {
	if parser.currentTokenPos >= len(parser.currentTokens) || parser.currentTokens[parser.currentTokenPos].tp !=
		expectedTokenTp {
		return nil, false
	}
	token := parser.currentTokens[parser.currentTokenPos]
	if walk {
		parser.currentTokenPos++
	}
	return token, true
}

// makeError reports the token at the current position, or the one before it when useCurrentPos is false.
func (parser *Parser) makeError(useCurrentPos bool, msg string) error {
	currentPos := parser.currentTokenPos
	if !useCurrentPos {
		currentPos--
	}
	if len(parser.currentTokens) == 0 {
		return &SyntaxError{File: parser.file, Line: 1, Msg: msg}
	}
	if currentPos >= len(parser.currentTokens) {
		last := parser.currentTokens[len(parser.currentTokens)-1]
		return &SyntaxError{File: parser.file, Line: last.line, Near: "EOF", Msg: msg}
	}
	if currentPos < 0 {
		currentPos = 0
	}
	currentToken := parser.currentTokens[currentPos]
	return &SyntaxError{File: parser.file, Line: currentToken.line, Near: currentToken.content, Msg: msg}
}
