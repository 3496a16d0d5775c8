package vmtranslator

import (
	"bytes"
	"fmt"
	"strconv"
)

// codeWriter emits hack assembler snippets for single vm commands. The stack grows upward from SP and SP always
// points at the next free slot, so the top most element lives at *(SP-1).
//
// R13, R14 and R15 are scratch registers: pop to a based segment keeps the target address in R13, call keeps the
// new ARG in R14, and return keeps the return value in R13, the caller's ARG in R14 and the return address in R15.
type codeWriter struct {
	output bytes.Buffer
}

func (cw *codeWriter) emit(lines ...string) {
	for _, line := range lines {
		cw.output.WriteString(line)
		cw.output.WriteByte('\n')
	}
}

func (cw *codeWriter) comment(format string, args ...interface{}) {
	cw.output.WriteString("// ")
	cw.output.WriteString(fmt.Sprintf(format, args...))
	cw.output.WriteByte('\n')
}

func (cw *codeWriter) label(name string) {
	cw.emit("(" + name + ")")
}

func at(symbol string) string {
	return "@" + symbol
}

func atInt(value int) string {
	return "@" + strconv.Itoa(value)
}

// pushD pushes the D register.
func (cw *codeWriter) pushD() {
	cw.emit("@SP", "A=M", "M=D", "@SP", "M=M+1")
}

// popD pops the top most element into the D register.
func (cw *codeWriter) popD() {
	cw.emit("@SP", "AM=M-1", "D=M")
}

// writePushBased handles local, argument, this and that: push *(*base+index).
func (cw *codeWriter) writePushBased(base string, index int) {
	cw.emit(atInt(index), "D=A", at(base), "A=M+D", "D=M")
	cw.pushD()
}

// writePopBased stores the top most element into *(*base+index).
func (cw *codeWriter) writePopBased(base string, index int) {
	cw.emit(atInt(index), "D=A", at(base), "D=M+D", "@R13", "M=D")
	cw.popD()
	cw.emit("@R13", "A=M", "M=D")
}

// writePushFixed handles temp, pointer and static, whose addresses are known at translation time.
func (cw *codeWriter) writePushFixed(symbol string) {
	cw.emit(at(symbol), "D=M")
	cw.pushD()
}

func (cw *codeWriter) writePopFixed(symbol string) {
	cw.popD()
	cw.emit(at(symbol), "M=D")
}

func (cw *codeWriter) writePushConstant(value int) {
	cw.emit(atInt(value), "D=A")
	cw.pushD()
}

// writeBinary pops y into D and leaves A pointing at x, then stores x op y in place.
func (cw *codeWriter) writeBinary(compute string) {
	cw.popD()
	cw.emit("A=A-1", "M="+compute)
}

func (cw *codeWriter) writeUnary(compute string) {
	cw.emit("@SP", "A=M-1", "M="+compute)
}

// writeCompare computes x - y and materializes true (-1) or false (0) through a branch.
func (cw *codeWriter) writeCompare(jump string, id int) {
	trueLabel := fmt.Sprintf("$cmp_true_%d", id)
	endLabel := fmt.Sprintf("$cmp_end_%d", id)
	cw.popD()
	cw.emit("A=A-1", "D=M-D", at(trueLabel), "D;"+jump)
	cw.emit("@SP", "A=M-1", "M=0", at(endLabel), "0;JMP")
	cw.label(trueLabel)
	cw.emit("@SP", "A=M-1", "M=-1")
	cw.label(endLabel)
}

func (cw *codeWriter) writeGoto(label string) {
	cw.emit(at(label), "0;JMP")
}

// writeIfGoto pops the top most element and jumps when it isn't zero.
func (cw *codeWriter) writeIfGoto(label string) {
	cw.popD()
	cw.emit(at(label), "D;JNE")
}

// writeFunction defines the entry label and pushes k zero locals.
func (cw *codeWriter) writeFunction(name string, k int) {
	cw.label(name)
	for i := 0; i < k; i++ {
		cw.emit("@SP", "A=M", "M=0", "@SP", "M=M+1")
	}
}

// writeCall saves the caller's frame and jumps to function. The frame pushed below the callee's locals is:
// return address, LCL, ARG, THIS, THAT.
func (cw *codeWriter) writeCall(function string, n int, returnLabel string) {
	// R14 = SP - n, the callee's ARG.
	cw.emit("@SP", "D=M", atInt(n), "D=D-A", "@R14", "M=D")
	cw.emit(at(returnLabel), "D=A")
	cw.pushD()
	for _, register := range []string{"LCL", "ARG", "THIS", "THAT"} {
		cw.emit(at(register), "D=M")
		cw.pushD()
	}
	cw.emit("@SP", "D=M", "@LCL", "M=D")
	cw.emit("@R14", "D=M", "@ARG", "M=D")
	cw.writeGoto(function)
	cw.label(returnLabel)
}

// writeReturn restores the caller's frame. The return address is read before the return value is stored at
// *ARG, since with zero arguments both share the same slot.
func (cw *codeWriter) writeReturn() {
	cw.popD()
	cw.emit("@R13", "M=D")
	cw.emit("@ARG", "D=M", "@R14", "M=D")
	cw.emit("@LCL", "D=M", "@SP", "M=D")
	for _, register := range []string{"THAT", "THIS", "ARG", "LCL"} {
		cw.popD()
		cw.emit(at(register), "M=D")
	}
	cw.popD()
	cw.emit("@R15", "M=D")
	cw.emit("@R14", "D=M+1", "@SP", "M=D")
	cw.emit("@R13", "D=M", "@R14", "A=M", "M=D")
	cw.emit("@R15", "A=M", "0;JMP")
}

// writeBootstrap sets SP and calls the entry function, then parks the cpu in a halt loop in case it returns.
func (cw *codeWriter) writeBootstrap(stackBase int, entry string, returnLabel string) {
	cw.comment("bootstrap")
	cw.emit(atInt(stackBase), "D=A", "@SP", "M=D")
	cw.writeCall(entry, 0, returnLabel)
	cw.label(haltLabel)
	cw.writeGoto(haltLabel)
}

const haltLabel = "$InfiniteLoop"
