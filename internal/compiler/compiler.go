package compiler

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/xiaobogaga/hack/util"
)

// maxIntegerConstant is the largest literal a push constant can carry.
const maxIntegerConstant = 32767

// SemanticError reports a well formed program which still can't be compiled: an unresolved name, a duplicate
// declaration, an out of range constant, a misplaced return and so on.
type SemanticError struct {
	File string
	Line int
	Msg  string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("SemanticError: %s:%d: %s", e.File, e.Line, e.Msg)
}

func makeSemanticError(format string, args ...interface{}) *SemanticError {
	return &SemanticError{Msg: fmt.Sprintf(format, args...)}
}

type Options struct {
	// EmitTokensXML also saves the token stream of every unit as <Name>T.xml.
	EmitTokensXML bool
	Logger        logrus.FieldLogger
}

func DefaultOptions() Options {
	return Options{Logger: util.DiscardLogger()}
}

// Unit is the result of compiling one jack file.
type Unit struct {
	File        string
	ClassName   string
	VM          []byte
	Tokens      []*Token
	Diagnostics []*LexicalError
}

// CompileUnit compiles the class read from rd. file is only used in diagnostics. Lexical errors don't stop the
// compilation, they are kept in Unit.Diagnostics; the first syntax or semantic error aborts the unit.
func CompileUnit(file string, rd io.Reader, opts Options) (*Unit, error) {
	logger := opts.Logger
	if logger == nil {
		logger = util.DiscardLogger()
	}
	logger = logger.WithField("file", file)
	tokenizer, err := ReadTokenizer(file, rd, logger)
	if err != nil {
		return nil, err
	}
	tokens := tokenizer.Tokenize()
	logger.WithField("tokens", len(tokens)).Debug("compiler: tokenized")

	classAst, err := NewParser(file, tokens).Parse()
	if err != nil {
		return nil, err
	}
	logger.WithField("class", classAst.ClassName).Debug("compiler: parsed")

	if err = classAst.checkReturns(); err != nil {
		return nil, inFile(err, file)
	}
	writer, err := generateCode(classAst)
	if err != nil {
		return nil, inFile(err, file)
	}
	return &Unit{
		File:        file,
		ClassName:   classAst.ClassName,
		VM:          writer.Bytes(),
		Tokens:      tokens,
		Diagnostics: tokenizer.Diagnostics(),
	}, nil
}

func inFile(err error, file string) error {
	var se *SemanticError
	if errors.As(err, &se) && se.File == "" {
		se.File = file
	}
	return err
}

// Compile compiles path, a single .jack file or a directory of them. Every unit is saved as a .vm file next to
// its source. A failing unit doesn't stop the others, but nothing is written for it; all failures are returned
// together.
func Compile(path string, opts Options) ([]*Unit, error) {
	logger := opts.Logger
	if logger == nil {
		logger = util.DiscardLogger()
	}
	files, _, err := util.ListSourceFiles(path, ".jack")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .jack file found in %s", path)
	}
	logger.WithField("path", path).Debug("compiler: start")
	var (
		units  []*Unit
		result error
	)
	for _, file := range files {
		unit, err := compileFile(file, opts)
		if err != nil {
			logger.WithField("file", file).WithError(err).Error("compiler: failed")
			result = multierror.Append(result, err)
			continue
		}
		units = append(units, unit)
	}
	return units, result
}

func compileFile(file string, opts Options) (*Unit, error) {
	rd, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	unit, err := CompileUnit(file, rd, opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.DiscardLogger()
	}
	if base := util.BaseName(file); base != unit.ClassName {
		logger.WithFields(logrus.Fields{"file": file, "class": unit.ClassName}).
			Warn("compiler: class name differs from file name")
	}
	var tokensXML []byte
	if opts.EmitTokensXML {
		if tokensXML, err = TokensXML(unit.Tokens); err != nil {
			return nil, err
		}
	}
	// Both outputs of a unit are written or neither is.
	output := util.SiblingPath(file, ".vm")
	if err = util.WriteFileAtomic(output, unit.VM); err != nil {
		return nil, err
	}
	if tokensXML != nil {
		if err = util.WriteFileAtomic(util.SiblingPath(file, "T.xml"), tokensXML); err != nil {
			os.Remove(output)
			return nil, err
		}
	}
	logger.WithFields(logrus.Fields{"file": file, "output": output}).Info("compiler: compiled")
	return unit, nil
}
