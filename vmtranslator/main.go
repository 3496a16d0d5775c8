package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/xiaobogaga/hack/internal/vmtranslator"
	"github.com/xiaobogaga/hack/util"
)

// A simple program to translate hack vm codes to hack assembler.

var (
	path    = flag.String("path", "", "a .vm file or a directory of them, can also be given as argument")
	output  = flag.String("o", "", "the saved path, can also be given as second argument, dir/dir.asm or Prog.asm next to Prog.vm by default")
	verbose = flag.Bool("v", false, "whether print translate result")

	// auto writes the bootstrap code for a directory only.
	bootstrap = flag.String("bootstrap", "auto", "whether write bootstrap code: auto, always or never")
	entry     = flag.String("entry", "Sys.init", "the function called by the bootstrap code")
	stackBase = flag.Int("sp", 256, "the initial stack pointer set by the bootstrap code")
)

func main() {
	flag.Parse()
	logger := util.NewLogger("translator", *verbose)
	input, out, err := util.InputOutput(flag.Args(), *path, *output)
	if err != nil {
		logger.WithError(err).Fatal("translator: bad arguments")
	}
	if input == "" {
		input = "."
	}
	mode, err := vmtranslator.ParseBootstrapMode(*bootstrap)
	if err != nil {
		logger.WithError(err).Fatal("translator: bad -bootstrap")
	}
	opts := vmtranslator.Options{
		Bootstrap:  mode,
		StackBase:  *stackBase,
		EntryPoint: *entry,
		Logger:     logger,
	}
	if out == "" {
		if out, err = vmtranslator.OutputPath(input); err != nil {
			logger.WithError(err).Fatal("translator: bad path")
		}
	}
	code, err := vmtranslator.TranslateProgram(input, opts)
	if err != nil {
		logger.WithField("path", input).WithError(err).Error("translator: failed to translate program")
		os.Exit(1)
	}
	if *verbose {
		fmt.Print(string(code))
	}
	if err = util.WriteFileAtomic(out, code); err != nil {
		logger.WithField("output", out).WithError(err).Fatal("translator: failed to save")
	}
	logger.WithFields(logrus.Fields{"path": input, "output": out}).Info("translator: done")
}
