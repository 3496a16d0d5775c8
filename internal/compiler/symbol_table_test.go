package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTable_Define(t *testing.T) {
	table := NewSymbolTable()
	intType := VariableType{TP: IntVariableType}
	testData := []struct {
		name          string
		kind          Kind
		expectedIndex int
	}{
		{name: "a", kind: FieldKind, expectedIndex: 0},
		{name: "b", kind: StaticKind, expectedIndex: 0},
		{name: "c", kind: FieldKind, expectedIndex: 1},
		{name: "d", kind: ArgumentKind, expectedIndex: 0},
		{name: "e", kind: LocalKind, expectedIndex: 0},
		{name: "f", kind: FieldKind, expectedIndex: 2},
	}
	for _, data := range testData {
		symbol, err := table.Define(data.name, intType, data.kind)
		require.NoError(t, err)
		assert.Equal(t, data.expectedIndex, symbol.Index, data.name)
	}
	assert.Equal(t, 3, table.VarCount(FieldKind))
	assert.Equal(t, 1, table.VarCount(StaticKind))
	assert.Equal(t, 1, table.VarCount(LocalKind))

	symbol, ok := table.LookUp("c")
	require.True(t, ok)
	assert.Equal(t, FieldKind, symbol.Kind)
	_, ok = table.LookUp("z")
	assert.False(t, ok)

	_, err := table.Define("a", intType, LocalKind)
	assert.Error(t, err)

	table.Reset()
	assert.Equal(t, 0, table.VarCount(FieldKind))
	_, ok = table.LookUp("a")
	assert.False(t, ok)
}

func TestKind_Segment(t *testing.T) {
	assert.Equal(t, StaticVMSegment, StaticKind.Segment())
	assert.Equal(t, ThisVMSegment, FieldKind.Segment())
	assert.Equal(t, ArgumentVMSegment, ArgumentKind.Segment())
	assert.Equal(t, LocalVMSegment, LocalKind.Segment())
	assert.Equal(t, "field", FieldKind.String())
}

func TestLookUpVariable_ProcedureFirst(t *testing.T) {
	class, procedure := NewSymbolTable(), NewSymbolTable()
	_, _ = class.Define("x", VariableType{TP: IntVariableType}, FieldKind)
	_, _ = class.Define("y", VariableType{TP: IntVariableType}, StaticKind)
	_, _ = procedure.Define("x", VariableType{TP: BooleanVariableType}, LocalKind)

	symbol, ok := lookUpVariable(procedure, class, "x")
	require.True(t, ok)
	assert.Equal(t, LocalKind, symbol.Kind)
	symbol, ok = lookUpVariable(procedure, class, "y")
	require.True(t, ok)
	assert.Equal(t, StaticKind, symbol.Kind)
	_, ok = lookUpVariable(procedure, class, "z")
	assert.False(t, ok)
}

func TestLabelStack(t *testing.T) {
	var s labelStack[int]
	_, ok := s.pop()
	assert.False(t, ok)
	s.push(1)
	s.push(2)
	top, ok := s.peek()
	assert.True(t, ok)
	assert.Equal(t, 2, top)
	assert.Equal(t, 2, s.len())
	top, _ = s.pop()
	assert.Equal(t, 2, top)
	top, _ = s.pop()
	assert.Equal(t, 1, top)
	assert.Equal(t, 0, s.len())
}
