package compiler

import (
	"strconv"
)

// parseExpressions parses a possibly empty comma separated expression list, stopping before ')'.
func (parser *Parser) parseExpressions() (exprs []*ExpressionAst, err error) {
	if _, match := parser.expectToken(RightParentThesesTP, false); match {
		return nil, nil
	}
	for {
		expression, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expression)
		if _, match := parser.expectToken(CommaTP, true); !match {
			return exprs, nil
		}
	}
}

// parseExpression parses term (op term)*. Jack has no operator priority, so the pairs are kept in source order
// and evaluated from left to right: a + b * c means (a + b) * c.
func (parser *Parser) parseExpression() (ast *ExpressionAst, err error) {
	first, err := parser.parseExpressionTerm()
	if err != nil {
		return nil, err
	}
	ast = &ExpressionAst{First: first}
	for parser.matchOp() {
		op, err := parser.parseOpAst()
		if err != nil {
			return nil, err
		}
		exprTerm, err := parser.parseExpressionTerm()
		if err != nil {
			return nil, err
		}
		ast.Rest = append(ast.Rest, &OpTermAst{Op: op, Term: exprTerm})
	}
	return ast, nil
}

func (parser *Parser) parseExpressionTerm() (expr *ExpressionTerm, err error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	switch token.tp {
	case IntegerTP, StringTP, TrueTP, FalseTP, NullTP, ThisTP:
		expr, err = parser.parseConstantExpressionTerm()
	// When it's identifier, it can be a SubRoutine call or
	// VarName expression like: i
	case IdentifierTP:
		expr, err = parser.parseSubRoutineCallExpressionOrVarExpressionTerm()
	case LeftParentThesesTP:
		expr, err = parser.parseSubExpressionTerm()
	// An unary operation for negative.
	case MinusTP, BooleanNegativeTP:
		expr, err = parser.parseNegationExpressionTerm()
	default:
		return nil, parser.makeError(true, "expect an expression term")
	}
	if err != nil {
		return nil, err
	}
	expr.Line = token.line
	return expr, nil
}

func (parser *Parser) parseConstantExpressionTerm() (term *ExpressionTerm, err error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	term = new(ExpressionTerm)
	switch token.tp {
	case IntegerTP:
		value, err := strconv.Atoi(token.content)
		if err != nil {
			return nil, parser.makeError(true, "wrong integer format")
		}
		term.Type, term.Value = IntegerConstantTermType, value
	case StringTP:
		term.Type, term.Value = StringConstantTermType, token.content
	case TrueTP:
		term.Type = KeyWordConstantTrueTermType
	case FalseTP:
		term.Type = KeyWordConstantFalseTermType
	case NullTP:
		term.Type = KeyWordConstantNullTermType
	case ThisTP:
		term.Type = KeyWordConstantThisTermType
	default:
		return nil, parser.makeError(true, "expect a constant")
	}
	parser.stepForward()
	return term, nil
}

// Could be varName|varName[expression]|varName.funcName(...)|funcName(...).
func (parser *Parser) parseSubRoutineCallExpressionOrVarExpressionTerm() (*ExpressionTerm, error) {
	token, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true, "expect identifier")
	}
	variable := &VariableAst{VarName: token.content, Line: token.line}
	expr := &ExpressionTerm{Type: VarNameExpressionTermType, Value: variable}
	if !parser.hasRemainTokens() {
		return expr, nil
	}
	token2 := parser.currentTokens[parser.currentTokenPos]
	switch token2.tp {
	case LeftSquareBracketTP:
		// Should be an array index.
		indexAst, err := parser.parseArrayIndexExpression()
		if err != nil {
			return nil, err
		}
		variable.ArrayIndex = indexAst
		expr.Type = ArrayIndexExpressionTermType
	case DotTP, LeftParentThesesTP:
		// Should be a funcCall
		parser.currentTokenPos--
		callAst, err := parser.parseFuncCall()
		if err != nil {
			return nil, err
		}
		expr.Value, expr.Type = callAst, SubRoutineCallTermType
	}
	return expr, nil
}

func (parser *Parser) parseSubExpressionTerm() (*ExpressionTerm, error) {
	_, match := parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true, "expect (")
	}
	expr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(RightParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true, "expect )")
	}
	return &ExpressionTerm{
		Type:  SubExpressionTermType,
		Value: expr,
	}, nil
}

// Note: for expression 5 + -2 our compiler won't generate error, the unary op applies to the term right after it.
func (parser *Parser) parseNegationExpressionTerm() (*ExpressionTerm, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	var op *OpAst
	switch token.tp {
	case BooleanNegativeTP:
		op = &BooleanNegationOpAst
	case MinusTP:
		op = &NegationOpAst
	default:
		return nil, parser.makeError(true, "expect - or ~")
	}
	parser.stepForward()
	exprTerm, err := parser.parseExpressionTerm()
	if err != nil {
		return nil, err
	}
	return &ExpressionTerm{
		UnaryOp: op,
		Type:    UnaryTermExpressionTermType,
		Value:   exprTerm,
	}, nil
}

func (parser *Parser) parseOpAst() (*OpAst, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	op, ok := binaryOpMap[token.tp]
	if !ok {
		return nil, parser.makeError(true, "expect an operator")
	}
	parser.stepForward()
	return op, nil
}

func (parser *Parser) matchOp() bool {
	if !parser.hasRemainTokens() {
		return false
	}
	_, ok := binaryOpMap[parser.currentTokens[parser.currentTokenPos].tp]
	return ok
}
