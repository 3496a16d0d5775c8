package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseClass(t *testing.T, content string) *ClassAst {
	_, tokens := tokenize(content)
	classAst, err := NewParser("Test.jack", tokens).Parse()
	require.NoError(t, err)
	return classAst
}

func parseExpr(t *testing.T, content string) *ExpressionAst {
	_, tokens := tokenize(content)
	parser := NewParser("Test.jack", tokens)
	expr, err := parser.parseExpression()
	require.NoError(t, err, content)
	assert.False(t, parser.hasRemainTokens(), content)
	return expr
}

func TestParser_ParseClass(t *testing.T) {
	classAst := parseClass(t, `class Point {
  field int x, y;
  static Point origin;

  constructor Point new(int ax, int ay) {
    let x = ax;
    let y = ay;
    return this;
  }

  method int getX() { return x; }

  function void reset(Array a, boolean b) {
    var int i;
    var char c, d;
    if (b) { let a[i] = 0; } else { do Output.printInt(i); }
    while (i < 10) { let i = i + 1; }
    return;
  }
}`)
	assert.Equal(t, "Point", classAst.ClassName)
	require.Len(t, classAst.ClassVariables, 3)
	assert.Equal(t, "y", classAst.ClassVariables[1].VariableName)
	assert.Equal(t, ObjectFieldType, classAst.ClassVariables[1].FieldTP)
	assert.Equal(t, ClassFieldType, classAst.ClassVariables[2].FieldTP)
	assert.Equal(t, VariableType{TP: ClassVariableType, Name: "Point"}, classAst.ClassVariables[2].VariableType)

	require.Len(t, classAst.ClassFuncOrMethod, 3)
	constructor := classAst.ClassFuncOrMethod[0]
	assert.Equal(t, ClassConstructorType, constructor.FuncTP)
	assert.Equal(t, "new", constructor.FuncName)
	assert.Len(t, constructor.Params, 2)
	assert.Len(t, constructor.FuncBody, 3)
	assert.Equal(t, 5, constructor.Line)

	getX := classAst.ClassFuncOrMethod[1]
	assert.Equal(t, ClassMethodType, getX.FuncTP)
	assert.Equal(t, IntVariableType, getX.ReturnTP.TP)

	reset := classAst.ClassFuncOrMethod[2]
	assert.Equal(t, ClassFuncType, reset.FuncTP)
	assert.Equal(t, VoidVariableType, reset.ReturnTP.TP)
	require.Len(t, reset.Locals, 3)
	assert.Equal(t, "d", reset.Locals[2].VarName)
	assert.Equal(t, CharVariableType, reset.Locals[2].VarType.TP)
	require.Len(t, reset.FuncBody, 3)
	ifStatement := reset.FuncBody[0].Statement.(*IfStatementAst)
	assert.True(t, ifStatement.HasElse)
	let := ifStatement.IfTrueStatements[0].Statement.(*LetStatementAst)
	assert.Equal(t, "a", let.LetVariable.VarName)
	assert.NotNil(t, let.LetVariable.ArrayIndex)
	do := ifStatement.ElseStatements[0].Statement.(*DoStatementAst)
	assert.Equal(t, "Output", do.Call.FuncProvider)
	assert.Equal(t, "printInt", do.Call.FuncName)
	assert.Equal(t, WhileStatementTP, reset.FuncBody[1].StatementTP)
	assert.Nil(t, reset.FuncBody[2].Statement.(*ReturnStatementAst).Return)
	assert.Equal(t, 18, reset.FuncBody[2].Line)
}

func TestParser_ParseExpression(t *testing.T) {
	testData := []struct {
		Content string
		Rest    int
	}{
		{Content: "a + b", Rest: 1},
		{Content: "a + b * c", Rest: 2},
		{Content: "a * b + c * d", Rest: 3},
		{Content: "a[1 + e * f] * g + b * c", Rest: 3},
		{Content: "a.b(d, e * i) + c * f + g[h * i]", Rest: 3},
		{Content: "a.b(c[1] + d.e(f)) + g[i * j.l(m)] + h", Rest: 2},
		{Content: "b(c, e) + f", Rest: 1},
		{Content: "(a + b + (c * (a + (b)))) * c + (a * (a + b))", Rest: 2},
		{Content: "a = 1 & c = 2", Rest: 3},
		{Content: "i | j = 2 + 1 = 3 * 2 - 1 | 0 * 4 & h / 3 | 8 > 3 | 3 * 2 + 1 < 9", Rest: 16},
		{Content: "-x", Rest: 0},
		{Content: "~(a & b)", Rest: 0},
	}
	for _, data := range testData {
		expr := parseExpr(t, data.Content)
		assert.Len(t, expr.Rest, data.Rest, data.Content)
	}
}

func TestParser_ExpressionIsLeftAssociative(t *testing.T) {
	expr := parseExpr(t, "a + b * c")
	assert.Equal(t, VarNameExpressionTermType, expr.First.Type)
	assert.Equal(t, "a", expr.First.Value.(*VariableAst).VarName)
	require.Len(t, expr.Rest, 2)
	assert.Equal(t, AddOpTP, expr.Rest[0].Op.Op)
	assert.Equal(t, MultipleOpTP, expr.Rest[1].Op.Op)
	assert.Equal(t, "c", expr.Rest[1].Term.Value.(*VariableAst).VarName)
}

func TestParser_ExpressionTerms(t *testing.T) {
	testData := []struct {
		Content  string
		Expected ExpressionTermType
	}{
		{Content: "17", Expected: IntegerConstantTermType},
		{Content: `"s"`, Expected: StringConstantTermType},
		{Content: "true", Expected: KeyWordConstantTrueTermType},
		{Content: "false", Expected: KeyWordConstantFalseTermType},
		{Content: "null", Expected: KeyWordConstantNullTermType},
		{Content: "this", Expected: KeyWordConstantThisTermType},
		{Content: "v", Expected: VarNameExpressionTermType},
		{Content: "v[2]", Expected: ArrayIndexExpressionTermType},
		{Content: "f()", Expected: SubRoutineCallTermType},
		{Content: "v.f(1, 2)", Expected: SubRoutineCallTermType},
		{Content: "(1)", Expected: SubExpressionTermType},
		{Content: "-1", Expected: UnaryTermExpressionTermType},
	}
	for _, data := range testData {
		expr := parseExpr(t, data.Content)
		assert.Equal(t, data.Expected, expr.First.Type, data.Content)
	}
	call := parseExpr(t, "v.f(1, 2)").First.Value.(*CallAst)
	assert.Equal(t, "v", call.FuncProvider)
	assert.Len(t, call.Params, 2)
	unary := parseExpr(t, "~x").First
	assert.Equal(t, BooleanNegationOpTP, unary.UnaryOp.Op)
}

func TestParser_SyntaxErrors(t *testing.T) {
	testData := []struct {
		Content string
		Line    int
		Near    string
	}{
		{Content: "class {}", Line: 1, Near: "{"},
		{Content: "class A {\n  field int x\n}", Line: 3, Near: "}"},
		{Content: "class A {\n function void f() {\n  let x = ;\n }\n}", Line: 3, Near: ";"},
		{Content: "class A {\n function void f() {\n  return;\n  var int a;\n }\n}", Line: 4, Near: "var"},
		{Content: "class A {\n function void f() {}\n field int x;\n}", Line: 3, Near: "field"},
		{Content: "class A {\n function void f() {\n  if (x) { return; }", Line: 3, Near: "EOF"},
		{Content: "class A {} class B {}", Line: 1, Near: "class"},
		{Content: "class A {\n method int f(int) {}\n}", Line: 2, Near: ")"},
	}
	for _, data := range testData {
		_, tokens := tokenize(data.Content)
		_, err := NewParser("Test.jack", tokens).Parse()
		require.Error(t, err, data.Content)
		var syntaxErr *SyntaxError
		require.True(t, errors.As(err, &syntaxErr), data.Content)
		assert.Equal(t, data.Line, syntaxErr.Line, data.Content)
		assert.Equal(t, data.Near, syntaxErr.Near, data.Content)
		assert.Equal(t, "Test.jack", syntaxErr.File)
	}
}
