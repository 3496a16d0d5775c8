package main

import (
	"flag"
	"os"

	"github.com/xiaobogaga/hack/internal/compiler"
	"github.com/xiaobogaga/hack/util"
)

var (
	path    = flag.String("path", ".", "the path of jack files needs to be compiled, can also be given as argument")
	emitXML = flag.Bool("xml", false, "whether also save the tokens of Xxx.jack as XxxT.xml")
	verbose = flag.Bool("v", false, "whether print debug logs")
)

func main() {
	flag.Parse()
	logger := util.NewLogger("compiler", *verbose)
	input := *path
	if flag.NArg() > 0 {
		input = flag.Arg(0)
	}
	// Lexical diagnostics are logged by the tokenizer as they are found.
	_, err := compiler.Compile(input, compiler.Options{EmitTokensXML: *emitXML, Logger: logger})
	if err != nil {
		logger.WithField("path", input).WithError(err).Error("compiler: failed")
		os.Exit(1)
	}
}
