package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/xiaobogaga/hack/internal/assembler"
	"github.com/xiaobogaga/hack/util"
)

// a simple program accepts a input assemble code file supported by hack assemble language and transforms
// the content to the corresponding hack machine language.

var (
	inputPath  = flag.String("i", "", "the input hack assemble code file path, can also be given as argument")
	outputPath = flag.String("o", "", "the output hack binary code file path, can also be given as second argument, Prog.hack next to Prog.asm by default")
	verbose    = flag.Bool("v", false, "whether print all transformed binary code")
)

func main() {
	flag.Parse()
	logger := util.NewLogger("assembler", *verbose)
	input, output, err := util.InputOutput(flag.Args(), *inputPath, *outputPath)
	if err != nil || input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if output == "" {
		output = util.SiblingPath(input, ".hack")
	}

	f, err := os.Open(input)
	if err != nil {
		logger.WithError(err).Fatal("assembler: failed to open file")
	}
	defer f.Close()
	asm := assembler.New(assembler.Options{Logger: logger})
	words, err := asm.Assemble(f)
	if err != nil {
		logger.WithField("file", input).WithError(err).Fatal("assembler: failed to parse file")
	}
	if *verbose {
		for _, instruction := range asm.Instructions() {
			fmt.Println(instruction)
		}
	}
	var buf bytes.Buffer
	if err = assembler.WriteBinary(&buf, words); err != nil {
		logger.WithError(err).Fatal("assembler: failed to encode")
	}
	if err = util.WriteFileAtomic(output, buf.Bytes()); err != nil {
		logger.WithField("output", output).WithError(err).Fatal("assembler: failed to save")
	}
	logger.WithFields(logrus.Fields{"file": input, "output": output, "words": len(words)}).Info("assembler: done")
}
