package compiler

// Kind is the storage class of a named variable. Each kind is numbered independently inside its table.
type Kind int

const (
	StaticKind Kind = iota
	FieldKind
	ArgumentKind
	LocalKind
)

func (k Kind) String() string {
	switch k {
	case StaticKind:
		return "static"
	case FieldKind:
		return "field"
	case ArgumentKind:
		return "argument"
	}
	return "local"
}

// Segment is the vm memory segment a variable of this kind lives in.
func (k Kind) Segment() VMSegmentType {
	switch k {
	case StaticKind:
		return StaticVMSegment
	case FieldKind:
		return ThisVMSegment
	case ArgumentKind:
		return ArgumentVMSegment
	}
	return LocalVMSegment
}

type Symbol struct {
	Name  string
	Type  VariableType
	Kind  Kind
	Index int
}

// SymbolTable is one scope of variables: the class scope holds static and field, the procedure scope holds
// argument and local.
type SymbolTable struct {
	symbols  map[string]*Symbol
	counters [4]int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: map[string]*Symbol{}}
}

// Define registers name with the next free index of its kind.
func (table *SymbolTable) Define(name string, tp VariableType, kind Kind) (*Symbol, error) {
	if _, ok := table.symbols[name]; ok {
		return nil, makeSemanticError("duplicate variable name: %s", name)
	}
	symbol := &Symbol{Name: name, Type: tp, Kind: kind, Index: table.counters[kind]}
	table.counters[kind]++
	table.symbols[name] = symbol
	return symbol, nil
}

func (table *SymbolTable) LookUp(name string) (*Symbol, bool) {
	symbol, ok := table.symbols[name]
	return symbol, ok
}

func (table *SymbolTable) VarCount(kind Kind) int {
	return table.counters[kind]
}

func (table *SymbolTable) Reset() {
	table.symbols = map[string]*Symbol{}
	table.counters = [4]int{}
}

// lookUpVariable resolves name in procedure scope first, then class scope.
func lookUpVariable(procedure, class *SymbolTable, name string) (*Symbol, bool) {
	if symbol, ok := procedure.LookUp(name); ok {
		return symbol, true
	}
	return class.LookUp(name)
}
