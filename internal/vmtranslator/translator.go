package vmtranslator

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/xiaobogaga/hack/util"
)

// A simple vm translator to transform vm language to hack assembler code.

// There are four kinds of vm commands, they are:
// * Arithmetic commands: add, sub, neg, eq, gt, lt, and, or, not.
// * Memory access commands: push segment index, pop segment index, where segment can be
//   argument, local, static, constant, this, that, pointer, temp.
// * Program flow commands: label name, if-goto name, goto name.
// * Function calling commands: function f k, call f n, return.
//
// Each command is transformed to the corresponding hack assembler code by the codeWriter. Labels are scoped by the
// enclosing function as f$label, statics by the file as File.index, and every comparison and call site gets a
// fresh label from counters shared by the whole output. Names in vm code can't contain '$', so the generated
// labels (f$ret$k, $cmp_true_k, $InfiniteLoop) never collide with a user label.

type KeyWordTP int

const (
	PushKeyWordTP KeyWordTP = iota
	PopKeyWordTP
	ArgumentKeyWordTP
	LocalKeyWordTP
	StaticKeyWordTP
	ConstantKeyWordTP
	ThisKeyWordTP
	ThatKeyWordTP
	PointerKeyWordTP
	TempKeyWordTP
	AddKeyWordTP
	SubKeyWordTP
	NegKeyWordTP
	EqKeyWordTP
	GtKeyWordTP
	LtKeyWordTP
	AndKeyWordTP
	OrKeyWordTP
	NotKeyWordTP
	LabelKeyWordTP
	IfGotoKeyWordTP
	GotoKeyWordTP
	FunctionKeyWordTP
	CallKeyWordTP
	ReturnKeyWordTP
)

var keyWordsMap = map[string]KeyWordTP{
	"PUSH":     PushKeyWordTP,
	"POP":      PopKeyWordTP,
	"ARGUMENT": ArgumentKeyWordTP,
	"LOCAL":    LocalKeyWordTP,
	"STATIC":   StaticKeyWordTP,
	"CONSTANT": ConstantKeyWordTP,
	"THIS":     ThisKeyWordTP,
	"THAT":     ThatKeyWordTP,
	"POINTER":  PointerKeyWordTP,
	"TEMP":     TempKeyWordTP,
	"ADD":      AddKeyWordTP,
	"SUB":      SubKeyWordTP,
	"NEG":      NegKeyWordTP,
	"EQ":       EqKeyWordTP,
	"GT":       GtKeyWordTP,
	"LT":       LtKeyWordTP,
	"AND":      AndKeyWordTP,
	"OR":       OrKeyWordTP,
	"NOT":      NotKeyWordTP,
	"LABEL":    LabelKeyWordTP,
	"IF-GOTO":  IfGotoKeyWordTP,
	"GOTO":     GotoKeyWordTP,
	"FUNCTION": FunctionKeyWordTP,
	"CALL":     CallKeyWordTP,
	"RETURN":   ReturnKeyWordTP,
}

// baseRegisters of the segments addressed through a pointer.
var baseRegisters = map[KeyWordTP]string{
	LocalKeyWordTP:    "LCL",
	ArgumentKeyWordTP: "ARG",
	ThisKeyWordTP:     "THIS",
	ThatKeyWordTP:     "THAT",
}

const (
	tempBase    = 5
	tempSize    = 8
	maxConstant = 1<<15 - 1
)

type BootstrapMode int

const (
	// BootstrapAuto writes the bootstrap code only when translating a directory.
	BootstrapAuto BootstrapMode = iota
	BootstrapAlways
	BootstrapNever
)

func ParseBootstrapMode(s string) (BootstrapMode, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return BootstrapAuto, nil
	case "always", "on", "true":
		return BootstrapAlways, nil
	case "never", "off", "false":
		return BootstrapNever, nil
	}
	return BootstrapAuto, fmt.Errorf("unknown bootstrap mode %q", s)
}

type Options struct {
	Bootstrap  BootstrapMode
	StackBase  int
	EntryPoint string
	Logger     logrus.FieldLogger
}

func DefaultOptions() Options {
	return Options{
		Bootstrap:  BootstrapAuto,
		StackBase:  256,
		EntryPoint: "Sys.init",
		Logger:     util.DiscardLogger(),
	}
}

// SyntaxError reports the first malformed command of a vm file.
type SyntaxError struct {
	File string
	Line int
	Near string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s:%d: %s near %q", e.File, e.Line, e.Msg, e.Near)
}

type VMTranslator struct {
	opts            Options
	logger          logrus.FieldLogger
	fileName        string
	lineCounter     int
	output          codeWriter
	compareID       int
	funcCallID      int
	currentFunction string
}

func NewVMTranslator(opts Options) *VMTranslator {
	defaults := DefaultOptions()
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}
	if opts.StackBase == 0 {
		opts.StackBase = defaults.StackBase
	}
	if opts.EntryPoint == "" {
		opts.EntryPoint = defaults.EntryPoint
	}
	return &VMTranslator{opts: opts, logger: opts.Logger}
}

// Bytes returns the assembler code written so far.
func (translator *VMTranslator) Bytes() []byte {
	return translator.output.output.Bytes()
}

// WriteBootstrap writes SP=StackBase followed by a call to the entry point. It must come before any file.
func (translator *VMTranslator) WriteBootstrap() {
	translator.output.writeBootstrap(translator.opts.StackBase, translator.opts.EntryPoint, translator.nextReturnLabel())
}

// TranslateProgram translates a single vm file or every vm file of a directory, in sorted order, into one
// assembler output. Every file is tried and all failures are reported together, nothing is returned if any
// file fails.
func TranslateProgram(path string, opts Options) ([]byte, error) {
	files, isDir, err := util.ListSourceFiles(path, ".vm")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .vm file found in %s", path)
	}
	translator := NewVMTranslator(opts)
	if opts.Bootstrap == BootstrapAlways || (opts.Bootstrap == BootstrapAuto && isDir) {
		translator.WriteBootstrap()
	}
	var result error
	for _, file := range files {
		err := translator.TranslateFile(file)
		if err != nil {
			translator.logger.WithField("file", file).WithError(err).Error("translator: failed")
			result = multierror.Append(result, err)
			continue
		}
		translator.logger.WithField("file", file).Debug("translator: translated")
	}
	if result != nil {
		return nil, result
	}
	return translator.Bytes(), nil
}

// OutputPath returns where the translation of path is saved by default: dir/dir.asm for a directory, Prog.asm
// next to Prog.vm for a file.
func OutputPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		clean := filepath.Clean(path)
		return filepath.Join(clean, filepath.Base(clean)+".asm"), nil
	}
	return util.SiblingPath(path, ".asm"), nil
}

func (translator *VMTranslator) TranslateFile(path string) error {
	rd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer rd.Close()
	return translator.Translate(rd, util.BaseName(path))
}

// Translate appends the translation of one vm unit. fileBase namespaces the unit's static segment.
func (translator *VMTranslator) Translate(rd io.Reader, fileBase string) error {
	translator.fileName = fileBase
	translator.lineCounter = 0
	translator.currentFunction = ""
	if !isName(fileBase) {
		return translator.makeError(fileBase, "file name can't prefix a static symbol")
	}
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		translator.lineCounter++
		err := translator.parseLine(scanner.Text())
		if err != nil {
			return err
		}
	}
	return scanner.Err()
}

// trimLine removes the comment and splits what remains into tokens.
func (translator *VMTranslator) trimLine(line string) []string {
	if index := strings.Index(line, "//"); index != -1 {
		line = line[:index]
	}
	return strings.Fields(line)
}

func (translator *VMTranslator) parseLine(line string) (err error) {
	tokens := translator.trimLine(line)
	if len(tokens) == 0 {
		return nil
	}
	keyWordTP, exist := keyWordsMap[strings.ToUpper(tokens[0])]
	if !exist {
		return translator.makeError(tokens[0], "unknown command")
	}
	translator.output.comment("%s", strings.Join(tokens, " "))
	args := tokens[1:]
	switch keyWordTP {
	case PushKeyWordTP:
		err = translator.parsePush(args)
	case PopKeyWordTP:
		err = translator.parsePop(args)
	case AddKeyWordTP:
		err = translator.parseArithmetic(args, func() { translator.output.writeBinary("D+M") })
	case SubKeyWordTP:
		err = translator.parseArithmetic(args, func() { translator.output.writeBinary("M-D") })
	case AndKeyWordTP:
		err = translator.parseArithmetic(args, func() { translator.output.writeBinary("D&M") })
	case OrKeyWordTP:
		err = translator.parseArithmetic(args, func() { translator.output.writeBinary("D|M") })
	case NegKeyWordTP:
		err = translator.parseArithmetic(args, func() { translator.output.writeUnary("-M") })
	case NotKeyWordTP:
		err = translator.parseArithmetic(args, func() { translator.output.writeUnary("!M") })
	case EqKeyWordTP:
		err = translator.parseArithmetic(args, func() { translator.writeCompare("JEQ") })
	case GtKeyWordTP:
		err = translator.parseArithmetic(args, func() { translator.writeCompare("JGT") })
	case LtKeyWordTP:
		err = translator.parseArithmetic(args, func() { translator.writeCompare("JLT") })
	case LabelKeyWordTP:
		err = translator.parseLabel(args)
	case IfGotoKeyWordTP:
		err = translator.parseIfGoto(args)
	case GotoKeyWordTP:
		err = translator.parseGoto(args)
	case FunctionKeyWordTP:
		err = translator.parseFunction(args)
	case CallKeyWordTP:
		err = translator.parseCall(args)
	case ReturnKeyWordTP:
		err = translator.parseReturn(args)
	default:
		err = translator.makeError(tokens[0], "not a command")
	}
	return err
}

func (translator *VMTranslator) parseSegmentAndIndex(args []string) (KeyWordTP, int, error) {
	if len(args) != 2 {
		return 0, 0, translator.makeError(strings.Join(args, " "), "expect a segment and an index")
	}
	segment, exist := keyWordsMap[strings.ToUpper(args[0])]
	if !exist || segment < ArgumentKeyWordTP || segment > TempKeyWordTP {
		return 0, 0, translator.makeError(args[0], "unknown segment")
	}
	index, err := translator.getIntegerValue(args[1])
	if err != nil {
		return 0, 0, err
	}
	switch segment {
	case TempKeyWordTP:
		if index >= tempSize {
			return 0, 0, translator.makeError(args[1], "temp index out of range [0, 7]")
		}
	case PointerKeyWordTP:
		if index > 1 {
			return 0, 0, translator.makeError(args[1], "pointer index must be 0 or 1")
		}
	case ConstantKeyWordTP:
		if index > maxConstant {
			return 0, 0, translator.makeError(args[1], "constant out of range [0, 32767]")
		}
	}
	return segment, index, nil
}

// fixedSymbol is the assembler symbol of temp, pointer and static entries.
func (translator *VMTranslator) fixedSymbol(segment KeyWordTP, index int) string {
	switch segment {
	case TempKeyWordTP:
		return "R" + strconv.Itoa(tempBase+index)
	case PointerKeyWordTP:
		if index == 0 {
			return "THIS"
		}
		return "THAT"
	}
	return translator.fileName + "." + strconv.Itoa(index)
}

func (translator *VMTranslator) parsePush(args []string) error {
	segment, index, err := translator.parseSegmentAndIndex(args)
	if err != nil {
		return err
	}
	if base, ok := baseRegisters[segment]; ok {
		translator.output.writePushBased(base, index)
		return nil
	}
	if segment == ConstantKeyWordTP {
		translator.output.writePushConstant(index)
		return nil
	}
	translator.output.writePushFixed(translator.fixedSymbol(segment, index))
	return nil
}

func (translator *VMTranslator) parsePop(args []string) error {
	segment, index, err := translator.parseSegmentAndIndex(args)
	if err != nil {
		return err
	}
	if base, ok := baseRegisters[segment]; ok {
		translator.output.writePopBased(base, index)
		return nil
	}
	if segment == ConstantKeyWordTP {
		return translator.makeError(args[0], "constant segment is push only")
	}
	translator.output.writePopFixed(translator.fixedSymbol(segment, index))
	return nil
}

func (translator *VMTranslator) parseArithmetic(args []string, write func()) error {
	if len(args) != 0 {
		return translator.makeError(args[0], "unexpected operand")
	}
	write()
	return nil
}

func (translator *VMTranslator) writeCompare(jump string) {
	translator.output.writeCompare(jump, translator.compareID)
	translator.compareID++
}

func (translator *VMTranslator) getIntegerValue(token string) (int, error) {
	ret, err := strconv.Atoi(token)
	if err != nil || ret < 0 {
		return -1, translator.makeError(token, "expect a non negative integer")
	}
	return ret, nil
}

func (translator *VMTranslator) parseLabelName(args []string) (string, error) {
	if len(args) != 1 {
		return "", translator.makeError(strings.Join(args, " "), "expect one label")
	}
	if !isName(args[0]) {
		return "", translator.makeError(args[0], "wrong label format")
	}
	return args[0], nil
}

// isName reports whether s is a label or function name of vm code: an assembler symbol without '$', which is
// kept for the labels the translator generates.
func isName(s string) bool {
	return util.IsSymbol(s) && !strings.Contains(s, "$")
}

// scope is the prefix of the labels a command defines: the enclosing function, or the file when a command
// comes before any function.
func (translator *VMTranslator) scope() string {
	if translator.currentFunction != "" {
		return translator.currentFunction
	}
	if translator.fileName != "" {
		return translator.fileName
	}
	return "bootstrap"
}

func (translator *VMTranslator) scopedLabel(label string) string {
	return translator.scope() + "$" + label
}

func (translator *VMTranslator) parseLabel(args []string) error {
	label, err := translator.parseLabelName(args)
	if err != nil {
		return err
	}
	translator.output.label(translator.scopedLabel(label))
	return nil
}

func (translator *VMTranslator) parseIfGoto(args []string) error {
	label, err := translator.parseLabelName(args)
	if err != nil {
		return err
	}
	translator.output.writeIfGoto(translator.scopedLabel(label))
	return nil
}

func (translator *VMTranslator) parseGoto(args []string) error {
	label, err := translator.parseLabelName(args)
	if err != nil {
		return err
	}
	translator.output.writeGoto(translator.scopedLabel(label))
	return nil
}

func (translator *VMTranslator) parseNameAndCount(args []string) (string, int, error) {
	if len(args) != 2 {
		return "", 0, translator.makeError(strings.Join(args, " "), "expect a function name and a count")
	}
	name, err := translator.parseLabelName(args[:1])
	if err != nil {
		return "", 0, err
	}
	count, err := translator.getIntegerValue(args[1])
	if err != nil {
		return "", 0, err
	}
	return name, count, nil
}

// function f k declares a function f which has k local variables.
func (translator *VMTranslator) parseFunction(args []string) error {
	name, k, err := translator.parseNameAndCount(args)
	if err != nil {
		return err
	}
	translator.currentFunction = name
	translator.output.writeFunction(name, k)
	return nil
}

// call f n calls f after n arguments have been pushed.
func (translator *VMTranslator) parseCall(args []string) error {
	name, n, err := translator.parseNameAndCount(args)
	if err != nil {
		return err
	}
	translator.output.writeCall(name, n, translator.nextReturnLabel())
	return nil
}

func (translator *VMTranslator) nextReturnLabel() string {
	label := fmt.Sprintf("%s$ret$%d", translator.scope(), translator.funcCallID)
	translator.funcCallID++
	return label
}

func (translator *VMTranslator) parseReturn(args []string) error {
	if len(args) != 0 {
		return translator.makeError(args[0], "unexpected operand")
	}
	translator.output.writeReturn()
	return nil
}

func (translator *VMTranslator) makeError(near string, msg string) error {
	return &SyntaxError{File: translator.fileName, Line: translator.lineCounter, Near: near, Msg: msg}
}

// Lines is a small helper used by callers that want the output without the comment lines.
func Lines(code []byte) []string {
	var lines []string
	for _, line := range bytes.Split(code, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || bytes.HasPrefix(line, []byte("//")) {
			continue
		}
		lines = append(lines, string(line))
	}
	return lines
}
