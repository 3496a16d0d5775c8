// Package toolchain chains the compiler, the vm translator and the assembler in memory, turning a set of jack and
// vm sources into the binary words of one hack program.
package toolchain

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/xiaobogaga/hack/internal/assembler"
	"github.com/xiaobogaga/hack/internal/compiler"
	"github.com/xiaobogaga/hack/internal/vmtranslator"
	"github.com/xiaobogaga/hack/util"
)

// Source is one input file. The extension of Name (.jack or .vm) selects the first stage it enters.
type Source struct {
	Name    string
	Content string
}

type Options struct {
	// EntryPoint is called by the bootstrap code, Sys.init when empty.
	EntryPoint string
	Logger     logrus.FieldLogger
}

// Program holds every intermediate result of a build.
type Program struct {
	VM    map[string][]byte
	Asm   []byte
	Words []uint16
}

// Build compiles the jack sources, translates them together with the vm sources behind a bootstrap, and assembles
// the result. Units are processed in name order. All compile failures are reported together.
func Build(sources []Source, opts Options) (*Program, error) {
	logger := opts.Logger
	if logger == nil {
		logger = util.DiscardLogger()
	}
	sorted := append([]Source(nil), sources...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	program := &Program{VM: map[string][]byte{}}
	var result error
	for _, source := range sorted {
		base := util.BaseName(source.Name)
		switch filepath.Ext(source.Name) {
		case ".jack":
			unit, err := compiler.CompileUnit(source.Name, bytes.NewReader([]byte(source.Content)),
				compiler.Options{Logger: logger})
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			program.VM[base] = unit.VM
		case ".vm":
			program.VM[base] = []byte(source.Content)
		default:
			result = multierror.Append(result, fmt.Errorf("toolchain: unknown source type %s", source.Name))
		}
	}
	if result != nil {
		return nil, result
	}

	translator := vmtranslator.NewVMTranslator(vmtranslator.Options{
		Bootstrap:  vmtranslator.BootstrapAlways,
		EntryPoint: opts.EntryPoint,
		Logger:     logger,
	})
	translator.WriteBootstrap()
	units := make([]string, 0, len(program.VM))
	for name := range program.VM {
		units = append(units, name)
	}
	sort.Strings(units)
	for _, name := range units {
		if err := translator.Translate(bytes.NewReader(program.VM[name]), name); err != nil {
			return nil, err
		}
	}
	program.Asm = translator.Bytes()

	words, err := assembler.New(assembler.Options{Logger: logger}).Assemble(bytes.NewReader(program.Asm))
	if err != nil {
		return nil, err
	}
	program.Words = words
	logger.WithFields(logrus.Fields{"units": len(units), "words": len(words)}).Debug("toolchain: built")
	return program, nil
}
