package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainJack = `// Adds two numbers.
class Main {
  function void main() {
    do Output.printInt(1 + 2);
    return;
  }
}
`

func writeJack(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCompile_Directory(t *testing.T) {
	dir := t.TempDir()
	writeJack(t, dir, "Main.jack", mainJack)
	writeJack(t, dir, "Box.jack", "class Box {\n  field int v;\n  method int get() { return v; }\n}\n")
	writeJack(t, dir, "notes.txt", "ignored")

	units, err := Compile(dir, Options{EmitTokensXML: true})
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "Box", units[0].ClassName)
	assert.Equal(t, "Main", units[1].ClassName)

	vm, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	require.NoError(t, err)
	assert.Equal(t, "function Main.main 0\npush constant 1\npush constant 2\nadd\ncall Output.printInt 1\n"+
		"pop temp 0\npush constant 0\nreturn\n", string(vm))
	_, err = os.Stat(filepath.Join(dir, "Box.vm"))
	assert.NoError(t, err)
	tokensXML, err := os.ReadFile(filepath.Join(dir, "MainT.xml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(tokensXML), "<tokens>\n<keyword> class </keyword>\n"))
}

func TestCompile_SingleFileWithoutXML(t *testing.T) {
	dir := t.TempDir()
	path := writeJack(t, dir, "Main.jack", mainJack)
	units, err := Compile(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, units, 1)
	_, err = os.Stat(filepath.Join(dir, "Main.vm"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "MainT.xml"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompile_FailingUnitsAreAggregated(t *testing.T) {
	dir := t.TempDir()
	writeJack(t, dir, "A.jack", "class A {\n  function void f() {\n    let x = 1;\n    return;\n  }\n}\n")
	writeJack(t, dir, "B.jack", mainJack)
	writeJack(t, dir, "C.jack", "class C {\n  function void f( {\n  }\n}\n")

	units, err := Compile(dir, DefaultOptions())
	require.Error(t, err)
	require.Len(t, units, 1)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2)
	var semanticErr *SemanticError
	require.True(t, errors.As(merr.Errors[0], &semanticErr))
	assert.Equal(t, filepath.Join(dir, "A.jack"), semanticErr.File)
	var syntaxErr *SyntaxError
	require.True(t, errors.As(merr.Errors[1], &syntaxErr))
	assert.Equal(t, 2, syntaxErr.Line)

	_, err = os.Stat(filepath.Join(dir, "A.vm"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "C.vm"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "B.vm"))
	assert.NoError(t, err)
}

func TestCompile_NoSource(t *testing.T) {
	_, err := Compile(t.TempDir(), DefaultOptions())
	assert.Error(t, err)
	_, err = Compile(filepath.Join(t.TempDir(), "missing.jack"), DefaultOptions())
	assert.Error(t, err)
}

func TestCompile_NoPartialOutput(t *testing.T) {
	testData := []struct {
		blocked string
		missing string
	}{
		{blocked: "Main.vm", missing: "MainT.xml"},
		{blocked: "MainT.xml", missing: "Main.vm"},
	}
	for _, data := range testData {
		dir := t.TempDir()
		path := writeJack(t, dir, "Main.jack", mainJack)
		// a directory in the way makes the write of that output fail
		require.NoError(t, os.Mkdir(filepath.Join(dir, data.blocked), 0755))

		units, err := Compile(path, Options{EmitTokensXML: true})
		assert.Error(t, err, data.blocked)
		assert.Empty(t, units, data.blocked)
		_, err = os.Stat(filepath.Join(dir, data.missing))
		assert.True(t, os.IsNotExist(err), data.blocked)
	}
}

func TestCompileUnit_KeepsLexicalDiagnostics(t *testing.T) {
	unit, err := CompileUnit("Main.jack", strings.NewReader("class Main { # function void f() { return; } }"),
		DefaultOptions())
	require.NoError(t, err)
	require.Len(t, unit.Diagnostics, 1)
	assert.Equal(t, "#", unit.Diagnostics[0].Near)
	assert.Equal(t, "function Main.f 0\npush constant 0\nreturn\n", string(unit.VM))
}
