package compiler

import (
	"bytes"
	"fmt"
	"strconv"
)

type VMSegmentType string

const (
	ConstVMSegment    VMSegmentType = "constant"
	ArgumentVMSegment VMSegmentType = "argument"
	LocalVMSegment    VMSegmentType = "local"
	StaticVMSegment   VMSegmentType = "static"
	ThisVMSegment     VMSegmentType = "this"
	ThatVMSegment     VMSegmentType = "that"
	PointerVMSegment  VMSegmentType = "pointer"
	TempVMSegment     VMSegmentType = "temp"
)

type VMOperation string

const (
	AddVMOperation VMOperation = "add"
	SubVMOperation VMOperation = "sub"
	NegVMOperation VMOperation = "neg"
	EqVMOperation  VMOperation = "eq"
	GtVMOperation  VMOperation = "gt"
	LtVMOperation  VMOperation = "lt"
	AndVMOperation VMOperation = "and"
	OrVMOperation  VMOperation = "or"
	NotVMOperation VMOperation = "not"
	MulVMOperation VMOperation = "mul"
	DivVMOperation VMOperation = "div"
)

// headerState tracks the `function` line of the subroutine being written. The local count is only known once
// every var declaration was seen, so the header is written as a placeholder first and patched at the end.
type headerState int

const (
	headerNone headerState = iota
	headerDeclared
	headerBodyOpen
	headerLocalCountKnown
	headerFinalized
)

func (s headerState) String() string {
	switch s {
	case headerDeclared:
		return "declared"
	case headerBodyOpen:
		return "bodyOpen"
	case headerLocalCountKnown:
		return "localCountKnown"
	case headerFinalized:
		return "finalized"
	}
	return "none"
}

const headerPlaceholder = "?"

// VMWriter buffers vm commands line by line.
type VMWriter struct {
	lines      []string
	header     int
	headerName string
	localCount int
	state      headerState
}

func NewVMWriter() *VMWriter {
	return &VMWriter{header: -1}
}

func (w *VMWriter) WriteCommand(command string) {
	w.lines = append(w.lines, command)
}

func (w *VMWriter) WritePush(segment VMSegmentType, index int) {
	w.WriteCommand(fmt.Sprintf("push %s %d", segment, index))
}

func (w *VMWriter) WritePop(segment VMSegmentType, index int) {
	w.WriteCommand(fmt.Sprintf("pop %s %d", segment, index))
}

// WriteStringConstant leaves a new String holding constant on the stack. appendChar returns the string itself,
// so the pointer stays on top between the calls.
func (w *VMWriter) WriteStringConstant(constant string) {
	w.WritePush(ConstVMSegment, len(constant))
	w.WriteCall("String.new", 1)
	for i := 0; i < len(constant); i++ {
		w.WritePush(ConstVMSegment, int(constant[i]))
		w.WriteCall("String.appendChar", 2)
	}
}

func (w *VMWriter) WriteArithmetic(operation VMOperation) {
	switch operation {
	case DivVMOperation:
		w.WriteCall("Math.divide", 2)
	case MulVMOperation:
		w.WriteCall("Math.multiply", 2)
	default:
		w.WriteCommand(string(operation))
	}
}

func (w *VMWriter) WriteLabel(label string) {
	w.WriteCommand("label " + label)
}

func (w *VMWriter) WriteGoto(label string) {
	w.WriteCommand("goto " + label)
}

func (w *VMWriter) WriteIf(label string) {
	w.WriteCommand("if-goto " + label)
}

func (w *VMWriter) WriteCall(name string, nArgs int) {
	w.WriteCommand("call " + name + " " + strconv.Itoa(nArgs))
}

func (w *VMWriter) WriteReturn() {
	w.WriteCommand("return")
}

// BeginFunction writes the placeholder header of name.
func (w *VMWriter) BeginFunction(name string) error {
	if w.state != headerNone && w.state != headerFinalized {
		return w.stateError("begin function " + name)
	}
	w.header, w.headerName, w.localCount = len(w.lines), name, 0
	w.WriteCommand("function " + name + " " + headerPlaceholder)
	w.state = headerDeclared
	return nil
}

func (w *VMWriter) OpenBody() error {
	if w.state != headerDeclared {
		return w.stateError("open body")
	}
	w.state = headerBodyOpen
	return nil
}

func (w *VMWriter) SetLocalCount(n int) error {
	if w.state != headerBodyOpen {
		return w.stateError("set local count")
	}
	w.localCount = n
	w.state = headerLocalCountKnown
	return nil
}

// FinalizeFunction rewrites the placeholder with the local count.
func (w *VMWriter) FinalizeFunction() error {
	if w.state != headerLocalCountKnown {
		return w.stateError("finalize")
	}
	w.lines[w.header] = "function " + w.headerName + " " + strconv.Itoa(w.localCount)
	w.state = headerFinalized
	return nil
}

func (w *VMWriter) stateError(action string) error {
	return makeSemanticError("can't %s while function header of %q is %s", action, w.headerName, w.state)
}

func (w *VMWriter) Lines() []string {
	return w.lines
}

func (w *VMWriter) Bytes() []byte {
	var buf bytes.Buffer
	for _, line := range w.lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
