package vmtranslator

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaobogaga/hack/internal/assembler"
	"github.com/xiaobogaga/hack/internal/hackcpu"
)

const haltCode = "(END)\n@END\n0;JMP\n"

func translate(t *testing.T, code string, bootstrap bool) []byte {
	t.Helper()
	translator := NewVMTranslator(DefaultOptions())
	if bootstrap {
		translator.WriteBootstrap()
	}
	require.NoError(t, translator.Translate(strings.NewReader(code), "Test"))
	return translator.Bytes()
}

// execute translates code, assembles it and runs it until the halt loop. Without bootstrap the stack starts at 256
// and a halt loop is appended after the code.
func execute(t *testing.T, code string, bootstrap bool) *hackcpu.CPU {
	t.Helper()
	asm := translate(t, code, bootstrap)
	if !bootstrap {
		asm = append(asm, haltCode...)
	}
	words, err := assembler.New(assembler.DefaultOptions()).Assemble(bytes.NewReader(asm))
	require.NoError(t, err)
	c := hackcpu.NewCPU(words)
	if !bootstrap {
		c.RAM[hackcpu.SP] = 256
	}
	require.NoError(t, c.Run(1000000))
	return c
}

func TestVMTranslator_Push(t *testing.T) {
	lines := []string{
		"push argument 1",
		"push local 2",
		"push static 1",
		"push constant 32767",
		"push this 1",
		"push that 2",
		"push pointer 0",
		"push pointer 1",
		"push temp 0",
		"push temp 7",
		"PUSH Local 3 // keywords are case insensitive",
	}
	translator := NewVMTranslator(DefaultOptions())
	for _, l := range lines {
		assert.Nil(t, translator.parseLine(l), l)
	}
}

func TestVMTranslator_Pop(t *testing.T) {
	lines := []string{
		"pop argument 1",
		"pop local 2",
		"pop static 1",
		"pop this 1",
		"pop that 2",
		"pop pointer 1",
		"pop temp 7",
	}
	translator := NewVMTranslator(DefaultOptions())
	for _, l := range lines {
		assert.Nil(t, translator.parseLine(l), l)
	}
}

func TestVMTranslator_Errors(t *testing.T) {
	lines := []string{
		"pop constant 1",
		"push constant 32768",
		"push constant -1",
		"push temp 8",
		"push pointer 2",
		"push heap 1",
		"push local",
		"push local 1 2",
		"add 1",
		"jump",
		"label 1abc",
		"goto",
		"function Main.f",
		"function Main.f x",
		"call Main.f -1",
		"return 0",
	}
	for _, l := range lines {
		translator := NewVMTranslator(DefaultOptions())
		err := translator.Translate(strings.NewReader("\n"+l), "Main")
		var syntaxErr *SyntaxError
		if assert.True(t, errors.As(err, &syntaxErr), l) {
			assert.Equal(t, 2, syntaxErr.Line, l)
			assert.Equal(t, "Main", syntaxErr.File, l)
		}
	}
}

func TestVMTranslator_Labels(t *testing.T) {
	code := translate(t, `
function Main.f 0
label LOOP
goto LOOP
if-goto LOOP
push static 3
eq
lt
call Main.g 0
call Main.g 0
`, false)
	lines := Lines(code)
	assert.Contains(t, lines, "(Main.f$LOOP)")
	assert.Contains(t, lines, "@Main.f$LOOP")
	assert.Contains(t, lines, "@Test.3")
	assert.Contains(t, lines, "($cmp_true_0)")
	assert.Contains(t, lines, "($cmp_end_1)")
	assert.Contains(t, lines, "(Main.f$ret$0)")
	assert.Contains(t, lines, "(Main.f$ret$1)")
}

func TestVMTranslator_UserLabelsDontCollideWithGenerated(t *testing.T) {
	c := execute(t, `
function Sys.init 0
goto ret.1
label ret.0
push constant 1
pop temp 2
label ret.1
call Main.g 0
pop temp 0
push constant 5
push constant 5
eq
pop temp 1
label ret.2
push constant 0
return
function Main.g 0
push constant 9
return
`, true)
	assert.Equal(t, int16(9), c.Peek(5))
	assert.Equal(t, int16(-1), c.Peek(6))
	assert.Equal(t, int16(0), c.Peek(7))
}

func TestVMTranslator_RejectsDollarInNames(t *testing.T) {
	lines := []string{
		"label a$b",
		"goto $cmp_true_0",
		"if-goto $InfiniteLoop",
		"function Main$ret$0 0",
		"call Main.f$ret$0 0",
	}
	for _, l := range lines {
		translator := NewVMTranslator(DefaultOptions())
		err := translator.Translate(strings.NewReader(l), "Main")
		var syntaxErr *SyntaxError
		assert.True(t, errors.As(err, &syntaxErr), l)
	}
}

func TestVMTranslator_FileBaseMustBeASymbol(t *testing.T) {
	testData := []struct {
		fileBase string
		valid    bool
	}{
		{"Main", true},
		{"my_prog.v2", true},
		{"my-prog", false},
		{"2prog", false},
		{"a$b", false},
		{"", false},
	}
	for _, data := range testData {
		translator := NewVMTranslator(DefaultOptions())
		err := translator.Translate(strings.NewReader("push constant 1\npop static 0\n"), data.fileBase)
		if data.valid {
			assert.NoError(t, err, data.fileBase)
			continue
		}
		var syntaxErr *SyntaxError
		if assert.True(t, errors.As(err, &syntaxErr), data.fileBase) {
			assert.Equal(t, 0, syntaxErr.Line)
		}
		assert.Empty(t, translator.Bytes(), data.fileBase)
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "my-prog.vm"), []byte("push constant 1\npop static 0\n"), 0644))
	code, err := TranslateProgram(dir, DefaultOptions())
	assert.Nil(t, code)
	assert.Error(t, err)
}

func TestVMTranslator_AddOnCPU(t *testing.T) {
	c := execute(t, `
push constant 7
push constant 8
add
`, false)
	assert.Equal(t, int16(257), c.Peek(hackcpu.SP))
	assert.Equal(t, int16(15), c.Peek(256))
}

func TestVMTranslator_ArithmeticOnCPU(t *testing.T) {
	testData := []struct {
		code   string
		result int16
	}{
		{"push constant 10\npush constant 3\nsub", 7},
		{"push constant 3\npush constant 10\nsub", -7},
		{"push constant 5\nneg", -5},
		{"push constant 12\npush constant 10\nand", 8},
		{"push constant 12\npush constant 10\nor", 14},
		{"push constant 0\nnot", -1},
		{"push constant 4\npush constant 4\neq", -1},
		{"push constant 4\npush constant 5\neq", 0},
		{"push constant 5\npush constant 4\ngt", -1},
		{"push constant 4\npush constant 5\ngt", 0},
		{"push constant 4\npush constant 5\nlt", -1},
		{"push constant 5\npush constant 4\nlt", 0},
		{"push constant 5\nneg\npush constant 4\nlt", -1},
	}
	for _, data := range testData {
		c := execute(t, data.code, false)
		assert.Equal(t, int16(257), c.Peek(hackcpu.SP), data.code)
		assert.Equal(t, data.result, c.Peek(256), data.code)
	}
}

func TestVMTranslator_SegmentsOnCPU(t *testing.T) {
	c := execute(t, `
push constant 3000
pop pointer 0
push constant 4000
pop pointer 1
push constant 11
pop this 2
push constant 22
pop that 5
push constant 33
pop temp 6
push constant 44
pop static 0
push this 2
push that 5
add
push temp 6
add
push static 0
add
`, false)
	assert.Equal(t, int16(3000), c.Peek(hackcpu.THIS))
	assert.Equal(t, int16(4000), c.Peek(hackcpu.THAT))
	assert.Equal(t, int16(11), c.Peek(3002))
	assert.Equal(t, int16(22), c.Peek(4005))
	assert.Equal(t, int16(33), c.Peek(11))
	assert.Equal(t, int16(110), c.Peek(256))
	assert.Equal(t, int16(257), c.Peek(hackcpu.SP))
}

func TestVMTranslator_LoopOnCPU(t *testing.T) {
	// sum of 1..10 through label and if-goto
	c := execute(t, `
function Test.sum 0
push constant 0
pop temp 0
push constant 10
pop temp 1
label LOOP
push temp 0
push temp 1
add
pop temp 0
push temp 1
push constant 1
sub
pop temp 1
push temp 1
if-goto LOOP
`, false)
	assert.Equal(t, int16(55), c.Peek(5))
}

func TestVMTranslator_CallReturnOnCPU(t *testing.T) {
	c := execute(t, `
function Sys.init 1
push constant 3000
pop pointer 0
push constant 4000
pop pointer 1
push constant 11
push constant 4
call Math.sub2 2
pop local 0
call Sys.zero 0
pop temp 1
push local 0
pop temp 0
push pointer 0
pop temp 2
push pointer 1
pop temp 3
push local 0
return
function Math.sub2 2
push argument 0
push argument 1
sub
pop local 1
push constant 100
pop pointer 0
push constant 200
pop pointer 1
push local 1
return
function Sys.zero 0
push constant 42
return
`, true)
	// results of the two calls
	assert.Equal(t, int16(7), c.Peek(5))
	assert.Equal(t, int16(42), c.Peek(6))
	// the callee clobbered THIS and THAT, the caller sees its own
	assert.Equal(t, int16(3000), c.Peek(7))
	assert.Equal(t, int16(4000), c.Peek(8))
	// Sys.init returned into the bootstrap halt loop: the value replaced its argument slot
	assert.Equal(t, int16(257), c.Peek(hackcpu.SP))
	assert.Equal(t, int16(7), c.Peek(256))
	assert.Equal(t, int16(0), c.Peek(hackcpu.THIS))
	assert.Equal(t, int16(0), c.Peek(hackcpu.THAT))
}

func TestVMTranslator_CallRestoresCallerFrame(t *testing.T) {
	caller := NewVMTranslator(DefaultOptions())
	require.NoError(t, caller.Translate(strings.NewReader(`
push constant 11
push constant 4
call Math.sub2 2
`), "Caller"))
	callee := NewVMTranslator(DefaultOptions())
	require.NoError(t, callee.Translate(strings.NewReader(`
function Math.sub2 3
push argument 0
push argument 1
sub
pop local 2
push constant 100
pop pointer 0
push constant 200
pop pointer 1
push local 2
return
`), "Math"))
	asm := append(append(caller.Bytes(), haltCode...), callee.Bytes()...)
	words, err := assembler.New(assembler.DefaultOptions()).Assemble(bytes.NewReader(asm))
	require.NoError(t, err)

	c := hackcpu.NewCPU(words)
	frame := []struct {
		register int
		value    int16
	}{
		{hackcpu.SP, 310},
		{hackcpu.LCL, 300},
		{hackcpu.ARG, 290},
		{hackcpu.THIS, 3000},
		{hackcpu.THAT, 4000},
	}
	for _, r := range frame {
		c.Poke(r.register, r.value)
	}
	require.NoError(t, c.Run(100000))
	require.True(t, c.Halted)

	// two arguments were replaced by the return value
	assert.Equal(t, int16(311), c.Peek(hackcpu.SP))
	assert.Equal(t, int16(7), c.Peek(310))
	for _, r := range frame[1:] {
		assert.Equal(t, r.value, c.Peek(r.register), "register %d", r.register)
	}
}

func TestVMTranslator_RecursionOnCPU(t *testing.T) {
	c := execute(t, `
function Sys.init 0
push constant 10
call Main.fib 1
pop temp 0
push constant 0
return
function Main.fib 0
push argument 0
push constant 2
lt
if-goto BASE
push argument 0
push constant 1
sub
call Main.fib 1
push argument 0
push constant 2
sub
call Main.fib 1
add
return
label BASE
push argument 0
return
`, true)
	assert.Equal(t, int16(55), c.Peek(5))
}

func TestTranslateProgram(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sys.vm"), []byte(`
function Sys.init 0
push constant 5
pop static 0
call Main.main 0
pop temp 0
push constant 0
return
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Main.vm"), []byte(`
function Main.main 0
push constant 8
pop static 0
push constant 0
return
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	code, err := TranslateProgram(dir, DefaultOptions())
	require.NoError(t, err)
	lines := Lines(code)
	assert.Equal(t, "@256", lines[0])
	assert.Contains(t, lines, "@Main.0")
	assert.Contains(t, lines, "@Sys.0")
	assert.Less(t, strings.Index(string(code), "(Main.main)"), strings.Index(string(code), "(Sys.init)"))

	words, err := assembler.New(assembler.DefaultOptions()).Assemble(bytes.NewReader(code))
	require.NoError(t, err)
	c := hackcpu.NewCPU(words)
	require.NoError(t, c.Run(10000))
	assert.True(t, c.Halted)

	output, err := OutputPath(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, filepath.Base(dir)+".asm"), output)
}

func TestTranslateProgramBootstrapModes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Simple.vm")
	require.NoError(t, os.WriteFile(file, []byte("push constant 1\n"), 0644))

	code, err := TranslateProgram(file, DefaultOptions())
	require.NoError(t, err)
	assert.NotContains(t, string(code), haltLabel)

	opts := DefaultOptions()
	opts.Bootstrap = BootstrapAlways
	opts.EntryPoint = "Simple.main"
	opts.StackBase = 300
	code, err = TranslateProgram(file, opts)
	require.NoError(t, err)
	lines := Lines(code)
	assert.Equal(t, "@300", lines[0])
	assert.Contains(t, lines, "@Simple.main")

	opts.Bootstrap = BootstrapNever
	code, err = TranslateProgram(dir, opts)
	require.NoError(t, err)
	assert.NotContains(t, string(code), haltLabel)

	output, err := OutputPath(file)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Simple.asm"), output)
}

func TestTranslateProgramAggregatesErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.vm"), []byte("pop constant 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "B.vm"), []byte("push constant 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "C.vm"), []byte("push nowhere 1\n"), 0644))

	code, err := TranslateProgram(dir, DefaultOptions())
	assert.Nil(t, code)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2)
	var syntaxErr *SyntaxError
	require.True(t, errors.As(merr.Errors[0], &syntaxErr))
	assert.Equal(t, "A", syntaxErr.File)
	require.True(t, errors.As(merr.Errors[1], &syntaxErr))
	assert.Equal(t, "C", syntaxErr.File)
}

func TestParseBootstrapMode(t *testing.T) {
	testData := []struct {
		in   string
		mode BootstrapMode
	}{
		{"", BootstrapAuto},
		{"auto", BootstrapAuto},
		{"always", BootstrapAlways},
		{"on", BootstrapAlways},
		{"never", BootstrapNever},
		{"OFF", BootstrapNever},
	}
	for _, data := range testData {
		mode, err := ParseBootstrapMode(data.in)
		assert.NoError(t, err)
		assert.Equal(t, data.mode, mode)
	}
	_, err := ParseBootstrapMode("sometimes")
	assert.Error(t, err)
}
