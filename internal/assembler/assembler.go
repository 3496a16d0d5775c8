package assembler

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/xiaobogaga/hack/util"
)

// A two pass assembler which transforms hack assemble code into the hack binary code, aka the instructions
// supported by hack CPU.

// The most ambiguous instruction is the A instruction, A instruction is normally declared as @something, but it turns out
// it has many types:
// * @10(decimal value), put this value to the A register.
// * @label, put the instruction address of label to A register, note that the label can be used before declared.
// * @R[0-15], this is the predefined 16 registers R0-R15, each value is 0-15, and then put to A register.
// * @Variable, declare a variable by setting it's address (if not declared), and then put the data memory address of this variable to A register.
//
// Pass one parses every line into an arena of instruction records and binds each (label) to the address of the next
// real instruction. Symbolic A instructions stay unresolved in the arena until pass two walks it once, resolving them
// against the labels or allocating variables starting at address 16.

type InstructionType int

const (
	AInstructionConstant InstructionType = iota
	AInstructionSymbol
	CInstruction
)

func (tp InstructionType) String() string {
	switch tp {
	case AInstructionConstant:
		return "A(constant)"
	case AInstructionSymbol:
		return "A(symbol)"
	case CInstruction:
		return "C"
	}
	return "unknown"
}

// Instruction is one record of the arena. Symbol is set for symbolic A instructions and Resolved turns true once
// Value holds the final address.
type Instruction struct {
	Tp       InstructionType
	Line     int
	Source   string
	Symbol   string
	Value    int
	Resolved bool
	Word     uint16
}

func (instruction Instruction) String() string {
	return fmt.Sprintf("Instruction: {Tp: %s, Word: %s, Line: %d, Source: %s}", instruction.Tp,
		FormatWord(instruction.Word), instruction.Line, instruction.Source)
}

// SyntaxError reports the first malformed line of a unit.
type SyntaxError struct {
	Line    int
	Content string
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax err at line %d: %s near %q", e.Line, e.Msg, e.Content)
}

type Options struct {
	Logger logrus.FieldLogger
}

func DefaultOptions() Options {
	return Options{Logger: util.DiscardLogger()}
}

type Assembler struct {
	logger       logrus.FieldLogger
	line         int
	symbols      map[string]int
	variables    map[string]int
	nextVariable int
	instructions []Instruction
}

func New(opts Options) *Assembler {
	if opts.Logger == nil {
		opts.Logger = util.DiscardLogger()
	}
	asm := &Assembler{logger: opts.Logger}
	asm.reset()
	return asm
}

func (asm *Assembler) reset() {
	asm.line = 0
	asm.symbols = make(map[string]int, len(predefinedSymbols))
	for symbol, addr := range predefinedSymbols {
		asm.symbols[symbol] = addr
	}
	asm.variables = map[string]int{}
	asm.nextVariable = VariableBaseAddress
	asm.instructions = nil
}

// Assemble reads a whole unit of hack assemble code and returns one binary word per instruction in source order.
// Nothing is returned when any line fails.
func (asm *Assembler) Assemble(rd io.Reader) ([]uint16, error) {
	asm.reset()
	err := asm.collect(rd)
	if err != nil {
		return nil, err
	}
	err = asm.finalize()
	if err != nil {
		return nil, err
	}
	words := make([]uint16, 0, len(asm.instructions))
	for _, instruction := range asm.instructions {
		words = append(words, instruction.Word)
	}
	asm.logger.WithFields(logrus.Fields{
		"instructions": len(words),
		"variables":    len(asm.variables),
	}).Debug("assembler: finished")
	return words, nil
}

// Instructions exposes the arena of the last Assemble call.
func (asm *Assembler) Instructions() []Instruction {
	return asm.instructions
}

// LookUp returns the address bound to a predefined symbol, a label or a variable of the last unit.
func (asm *Assembler) LookUp(symbol string) (int, bool) {
	if addr, ok := asm.symbols[symbol]; ok {
		return addr, true
	}
	addr, ok := asm.variables[symbol]
	return addr, ok
}

// collect is pass one.
func (asm *Assembler) collect(rd io.Reader) error {
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		asm.line++
		line, hasRemainCharacter := asm.trimLine(scanner.Bytes())
		if !hasRemainCharacter {
			continue
		}
		err := asm.transformLine(line)
		if err != nil {
			return err
		}
	}
	return scanner.Err()
}

// finalize is pass two: every symbolic reference of the arena gets a concrete address.
func (asm *Assembler) finalize() error {
	for i := range asm.instructions {
		instruction := &asm.instructions[i]
		if instruction.Tp != AInstructionSymbol || instruction.Resolved {
			continue
		}
		addr, exist := asm.symbols[instruction.Symbol]
		if !exist {
			addr, exist = asm.variables[instruction.Symbol]
		}
		if !exist {
			if asm.nextVariable > MaxAddress {
				return asm.makeSyntaxErrAtLine(instruction.Line, instruction.Source, "out of variable memory")
			}
			addr = asm.nextVariable
			asm.variables[instruction.Symbol] = addr
			asm.nextVariable++
		}
		instruction.Value, instruction.Resolved = addr, true
		instruction.Word = uint16(addr)
	}
	return nil
}

// trimLine will remove space from line, also remove comments if it has, then return whether those line has other
// characters after trimmed. Blanks inside an instruction are dropped too, so "D = M ; JGT" reads as "D=M;JGT".
func (asm *Assembler) trimLine(line []byte) ([]byte, bool) {
	index := bytes.Index(line, []byte("//"))
	if index != -1 {
		line = line[:index]
	}
	trimmed := make([]byte, 0, len(line))
	for _, b := range line {
		if util.IsSpace(b) {
			continue
		}
		trimmed = append(trimmed, b)
	}
	if len(trimmed) == 0 {
		return nil, false
	}
	return trimmed, true
}

func (asm *Assembler) transformLine(line []byte) error {
	switch line[0] {
	case '@':
		return asm.transformACommand(line)
	case '(':
		return asm.transformLabelCommand(line)
	default:
		return asm.transformCCommand(line)
	}
}

func (asm *Assembler) transformACommand(line []byte) error {
	operand := string(line[1:])
	if len(operand) == 0 {
		return asm.makeSyntaxErr(line, "missing A instruction operand")
	}
	if util.IsNumber(operand[0]) {
		value, err := strconv.Atoi(operand)
		if err != nil {
			return asm.makeSyntaxErr(line, "wrong decimal value format")
		}
		if value > MaxAddress {
			return asm.makeSyntaxErr(line, fmt.Sprintf("constant %d out of range [0, %d]", value, MaxAddress))
		}
		asm.instructions = append(asm.instructions, Instruction{
			Tp:       AInstructionConstant,
			Line:     asm.line,
			Source:   string(line),
			Value:    value,
			Resolved: true,
			Word:     uint16(value),
		})
		return nil
	}
	if !util.IsSymbol(operand) {
		return asm.makeSyntaxErr(line, "wrong variable or label format")
	}
	// Put it to the arena as a placeholder, it will be resolved at finalize.
	asm.instructions = append(asm.instructions, Instruction{
		Tp:     AInstructionSymbol,
		Line:   asm.line,
		Source: string(line),
		Symbol: operand,
	})
	return nil
}

// transformLabelCommand binds (label) to the address of the next instruction. A label doesn't consume an address.
func (asm *Assembler) transformLabelCommand(line []byte) error {
	if line[len(line)-1] != ')' {
		return asm.makeSyntaxErr(line, "wrong label format")
	}
	label := string(line[1 : len(line)-1])
	if !util.IsSymbol(label) {
		return asm.makeSyntaxErr(line, "wrong label format")
	}
	if _, exist := predefinedSymbols[label]; exist {
		return asm.makeSyntaxErr(line, "label redefines a predefined symbol")
	}
	if _, exist := asm.symbols[label]; exist {
		return asm.makeSyntaxErr(line, "found duplicate label")
	}
	asm.symbols[label] = len(asm.instructions)
	return nil
}

// transformCCommand after we recognize the current command is a C command.
// A C command supports: dest=comp;jump where dest and jump are optional.
func (asm *Assembler) transformCCommand(line []byte) error {
	destCode, rest, err := asm.parseCCommandDestCode(line)
	if err != nil {
		return err
	}
	jumpCode, rest, err := asm.parseCCommandJumpCode(line, rest)
	if err != nil {
		return err
	}
	compCode, err := asm.parseCCommandCompCode(line, rest)
	if err != nil {
		return err
	}
	asm.instructions = append(asm.instructions, Instruction{
		Tp:       CInstruction,
		Line:     asm.line,
		Source:   string(line),
		Resolved: true,
		Word:     encodeC(compCode, destCode, jumpCode),
	})
	return nil
}

func (asm *Assembler) parseCCommandDestCode(line []byte) (uint16, []byte, error) {
	dest := bytes.IndexByte(line, '=')
	if dest == -1 {
		return destTable[""], line, nil
	}
	destCode, exist := destTable[string(line[:dest])]
	if !exist || dest == 0 {
		return 0, nil, asm.makeSyntaxErr(line, "wrong c command of dest code format")
	}
	return destCode, line[dest+1:], nil
}

func (asm *Assembler) parseCCommandJumpCode(line, rest []byte) (uint16, []byte, error) {
	comp := bytes.IndexByte(rest, ';')
	if comp == -1 {
		return jumpTable[""], rest, nil
	}
	jumpCode, exist := jumpTable[string(rest[comp+1:])]
	if !exist || comp+1 == len(rest) {
		return 0, nil, asm.makeSyntaxErr(line, "wrong c command of jump code format")
	}
	return jumpCode, rest[:comp], nil
}

func (asm *Assembler) parseCCommandCompCode(line, rest []byte) (uint16, error) {
	compCode, exist := compTable[string(rest)]
	if !exist {
		return 0, asm.makeSyntaxErr(line, "wrong c command of comp code format")
	}
	return compCode, nil
}

func (asm *Assembler) makeSyntaxErr(line []byte, msg string) error {
	return asm.makeSyntaxErrAtLine(asm.line, string(line), msg)
}

func (asm *Assembler) makeSyntaxErrAtLine(line int, content string, msg string) error {
	return &SyntaxError{Line: line, Content: content, Msg: msg}
}

// WriteBinary writes one sixteen character line per word.
func WriteBinary(w io.Writer, words []uint16) error {
	bf := bufio.NewWriter(w)
	for _, word := range words {
		if _, err := bf.WriteString(FormatWord(word) + "\n"); err != nil {
			return err
		}
	}
	return bf.Flush()
}

// ParseBinary reads back the text produced by WriteBinary.
func ParseBinary(rd io.Reader) ([]uint16, error) {
	var words []uint16
	scanner := bufio.NewScanner(rd)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		value, err := strconv.ParseUint(string(text), 2, 16)
		if err != nil || len(text) != 16 {
			return nil, &SyntaxError{Line: line, Content: string(text), Msg: "not a 16 bit binary word"}
		}
		words = append(words, uint16(value))
	}
	return words, scanner.Err()
}
