package compiler

// In this file, we defined all ast of jack programming language according to the jack grammar.
// Each jack file Xxx.jack holds exactly one class definition, there is no package declaration
// and dependency declaration.

type ClassAst struct {
	ClassName         string
	ClassVariables    []*ClassVariableAst
	ClassFuncOrMethod []*ClassFuncOrMethodAst
	Line              int
}

type ClassVariableAst struct {
	VariableName string
	FieldTP      FieldType
	VariableType VariableType
	Line         int
}

type FieldType int

const (
	ObjectFieldType FieldType = iota // field
	ClassFieldType                   // static
)

type VariableType struct {
	TP   VarType
	Name string
}

func (t VariableType) String() string {
	switch t.TP {
	case VoidVariableType:
		return "void"
	case IntVariableType:
		return "int"
	case CharVariableType:
		return "char"
	case BooleanVariableType:
		return "boolean"
	case ClassVariableType:
		return t.Name
	}
	return ""
}

type VarType int

const (
	VoidVariableType VarType = iota // This only be used for return type.
	IntVariableType
	CharVariableType
	BooleanVariableType
	ClassVariableType
)

type ClassFuncOrMethodAst struct {
	FuncTP   FuncType
	FuncName string
	ReturnTP VariableType
	Params   []*FuncParamAst
	Locals   []*VarDeclareAst
	FuncBody []*StatementAst
	Line     int
}

type FuncType int

const (
	ClassConstructorType FuncType = iota
	ClassMethodType
	ClassFuncType
)

func (tp FuncType) String() string {
	switch tp {
	case ClassConstructorType:
		return "constructor"
	case ClassMethodType:
		return "method"
	}
	return "function"
}

type FuncParamAst struct {
	ParamName string
	ParamTP   VariableType
}

// VarDeclareAst is one name of a `var type a, b;` declaration.
type VarDeclareAst struct {
	VarName string
	VarType VariableType
	Line    int
}

type StatementAst struct {
	StatementTP StatementType
	Statement   interface{}
	Line        int
}

type StatementType int

const (
	LetStatementTP StatementType = iota
	IfStatementTP
	WhileStatementTP
	DoStatementTP
	ReturnStatementTP
)

type LetStatementAst struct {
	LetVariable *VariableAst
	Value       *ExpressionAst
}

type VariableAst struct {
	VarName string
	// If this variable is a array reference, can allow a array index expression to
	// locate the array element.
	ArrayIndex *ExpressionAst
	Line       int
}

// ExpressionAst is term (op term)*. There is no operator priority in jack, the operators apply strictly from left
// to right, so the expression is kept as the first term followed by the (op, term) pairs in source order.
type ExpressionAst struct {
	First *ExpressionTerm
	Rest  []*OpTermAst
}

type OpTermAst struct {
	Op   *OpAst
	Term *ExpressionTerm
}

type ExpressionTerm struct {
	UnaryOp *OpAst
	Type    ExpressionTermType
	Value   interface{}
	Line    int
}

type ExpressionTermType int

const (
	// For constant value, the value in expression term is the value, for example:
	// * For 5, value is 5
	// * For "hello", value is "hello"
	IntegerConstantTermType ExpressionTermType = iota
	StringConstantTermType
	KeyWordConstantTrueTermType
	KeyWordConstantFalseTermType
	KeyWordConstantNullTermType
	KeyWordConstantThisTermType
	// For varName, value in expressionTerm is *VariableAst
	VarNameExpressionTermType
	// For varName[expr], value is *VariableAst with ArrayIndex set
	ArrayIndexExpressionTermType
	// For subRoutineCallExpression, value is *CallAst
	SubRoutineCallTermType
	// For (subExpression), value is *ExpressionAst
	SubExpressionTermType
	// For unaryTermExpression like -term, UnaryOp is set and value is *ExpressionTerm
	UnaryTermExpressionTermType
)

type OpAst struct {
	OpTP OpType
	Op   OpCode
	Name string
}

var (
	AddOpAst             = OpAst{OpTP: BinaryOPTP, Op: AddOpTP, Name: "+"}
	MinusOpAst           = OpAst{OpTP: BinaryOPTP, Op: MinusOpTP, Name: "-"}
	MultipleOpAst        = OpAst{OpTP: BinaryOPTP, Op: MultipleOpTP, Name: "*"}
	DivideOpAst          = OpAst{OpTP: BinaryOPTP, Op: DivideOpTP, Name: "/"}
	AndOpAst             = OpAst{OpTP: BinaryOPTP, Op: AndOpTP, Name: "&"}
	OrOpAst              = OpAst{OpTP: BinaryOPTP, Op: OrOpTP, Name: "|"}
	LessOpAst            = OpAst{OpTP: BinaryOPTP, Op: LessOpTP, Name: "<"}
	GreatOpAst           = OpAst{OpTP: BinaryOPTP, Op: GreaterOpTP, Name: ">"}
	EqualOpAst           = OpAst{OpTP: BinaryOPTP, Op: EqualOpTp, Name: "="}
	NegationOpAst        = OpAst{OpTP: UnaryOPTP, Op: NegationOpTP, Name: "-"}
	BooleanNegationOpAst = OpAst{OpTP: UnaryOPTP, Op: BooleanNegationOpTP, Name: "~"}
)

// binaryOpMap maps a binary operator token to its op.
var binaryOpMap = map[TokenType]*OpAst{
	AddTP:      &AddOpAst,
	MinusTP:    &MinusOpAst,
	MultiplyTP: &MultipleOpAst,
	DivideTP:   &DivideOpAst,
	AndTP:      &AndOpAst,
	OrTP:       &OrOpAst,
	LessTP:     &LessOpAst,
	GreaterTP:  &GreatOpAst,
	EqualTP:    &EqualOpAst,
}

func (op OpAst) String() string {
	return op.Name
}

type OpType int

const (
	UnaryOPTP OpType = iota
	BinaryOPTP
)

type OpCode int

const (
	AddOpTP OpCode = iota
	MinusOpTP
	MultipleOpTP
	DivideOpTP
	AndOpTP
	OrOpTP
	LessOpTP
	GreaterOpTP
	EqualOpTp

	// Unary Op
	NegationOpTP
	BooleanNegationOpTP
)

type IfStatementAst struct {
	Condition        *ExpressionAst
	IfTrueStatements []*StatementAst
	ElseStatements   []*StatementAst
	HasElse          bool
}

type WhileStatementAst struct {
	Condition  *ExpressionAst
	Statements []*StatementAst
}

type DoStatementAst struct {
	Call *CallAst
}

type CallAst struct {
	// We allow call like: Foo.m1(), where Foo is a class, or varName.
	// Also if just call m1(), then m1 is a subroutine of current Class.
	FuncProvider string
	FuncName     string
	Params       []*ExpressionAst
	Line         int
}

// ReturnStatementAst holds the returned value, nil for `return;`.
type ReturnStatementAst struct {
	Return *ExpressionAst
}
