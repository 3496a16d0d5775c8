package compiler

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/xiaobogaga/hack/util"
)

// A simple Tokenizer for jack.

// Jack language has those elements:
// * KeyWord: class, constructor, function, method, field, static, var, int, char, boolean, void, true,
// 			false, null, this, let, do, if, else, while, return.
// * Symbol: {, }, (, ), [, ], ., ,, ;, +, -, *, /, &, |, <, >, =, ~.
// * Constant: integer (0..32767), string ("xxx", no newline inside).
// * Identifier: letters, digits, underscore, not starting with a digit.
// * Comment: /* */, /** */, //.
//
// The tokenizer is lazy: Next produces one token at a time from the source and Reset starts the sequence over.
// An unrecognized character is a lexical error, it is recorded and logged, then skipped, and scanning continues.

type TokenType int

const (
	ClassTP              TokenType = iota // class
	ConstructorTP                         // constructor
	FunctionTP                            // function
	MethodTP                              // method
	FieldTP                               // field
	StaticTP                              // static
	VarTP                                 // var
	IntTP                                 // int
	CharTP                                // char
	BooleanTP                             // boolean
	VoidTP                                // void
	TrueTP                                // true
	FalseTP                               // false
	NullTP                                // null
	ThisTP                                // this
	LetTP                                 // let
	DoTp                                  // do
	IfTP                                  // if
	ElseTP                                // else
	WhileTP                               // while
	ReturnTP                              // return
	LeftBraceTP                           // {
	RightBraceTP                          // }
	LeftParentThesesTP                    // (
	RightParentThesesTP                   // )
	LeftSquareBracketTP                   // [
	RightSquareBracketTP                  // ]
	DotTP                                 // .
	CommaTP                               // ,
	SemiColonTP                           // ;
	AddTP                                 // +
	MinusTP                               // -
	MultiplyTP                            // *
	DivideTP                              // /
	AndTP                                 // &
	OrTP                                  // |
	GreaterTP                             // >
	LessTP                                // <
	EqualTP                               // =
	BooleanNegativeTP                     // ~
	IntegerTP                             // 1010
	StringTP                              // "xxx"
	IdentifierTP                          // varA
)

// keyWordTokenTPMap is the mapping from identifier to the corresponding TokenTP.
var keyWordTokenTPMap = map[string]TokenType{
	"class":       ClassTP,
	"constructor": ConstructorTP,
	"function":    FunctionTP,
	"method":      MethodTP,
	"field":       FieldTP,
	"static":      StaticTP,
	"var":         VarTP,
	"int":         IntTP,
	"char":        CharTP,
	"boolean":     BooleanTP,
	"void":        VoidTP,
	"true":        TrueTP,
	"false":       FalseTP,
	"null":        NullTP,
	"this":        ThisTP,
	"let":         LetTP,
	"do":          DoTp,
	"if":          IfTP,
	"else":        ElseTP,
	"while":       WhileTP,
	"return":      ReturnTP,
}

// simpleSymbolTokenTPMap is the mapping from simple symbol to the corresponding TokenTP.
var simpleSymbolTokenTPMap = map[byte]TokenType{
	'{': LeftBraceTP,
	'}': RightBraceTP,
	'(': LeftParentThesesTP,
	')': RightParentThesesTP,
	'[': LeftSquareBracketTP,
	']': RightSquareBracketTP,
	'.': DotTP,
	',': CommaTP,
	';': SemiColonTP,
	'+': AddTP,
	'-': MinusTP,
	'*': MultiplyTP,
	'/': DivideTP,
	'&': AndTP,
	'|': OrTP,
	'>': GreaterTP,
	'<': LessTP,
	'=': EqualTP,
	'~': BooleanNegativeTP,
}

// Category is the lexical element class of a token, as used by the token xml output.
func (tp TokenType) Category() string {
	switch {
	case tp <= ReturnTP:
		return "keyword"
	case tp <= BooleanNegativeTP:
		return "symbol"
	case tp == IntegerTP:
		return "integerConstant"
	case tp == StringTP:
		return "stringConstant"
	}
	return "identifier"
}

type Token struct {
	content  string
	line     int
	startPos int
	endPos   int
	tp       TokenType
}

func (t *Token) Type() TokenType {
	return t.tp
}

func (t *Token) Content() string {
	return t.content
}

func (t *Token) Line() int {
	return t.line
}

func (t *Token) String() string {
	return fmt.Sprintf("Token{%s %q line %d}", t.tp.Category(), t.content, t.line)
}

// LexicalError describes a character the tokenizer could not recognize.
type LexicalError struct {
	File string
	Line int
	Near string
	Msg  string
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("LexicalError: %s:%d: %s near %q", e.File, e.Line, e.Msg, e.Near)
}

type Tokenizer struct {
	source      []byte
	currentPos  int
	currentFile string
	currentLine int
	logger      logrus.FieldLogger
	diagnostics []*LexicalError
}

func NewTokenizer(file string, source []byte, logger logrus.FieldLogger) *Tokenizer {
	if logger == nil {
		logger = util.DiscardLogger()
	}
	return &Tokenizer{source: source, currentFile: file, currentLine: 1, logger: logger}
}

// ReadTokenizer reads the whole of rd as the source of a new tokenizer.
func ReadTokenizer(file string, rd io.Reader, logger logrus.FieldLogger) (*Tokenizer, error) {
	source, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	return NewTokenizer(file, source, logger), nil
}

// Reset restarts the token sequence from the beginning of the source.
func (tokenizer *Tokenizer) Reset() {
	tokenizer.currentPos, tokenizer.currentLine = 0, 1
	tokenizer.diagnostics = nil
}

// Diagnostics returns the lexical errors met so far.
func (tokenizer *Tokenizer) Diagnostics() []*LexicalError {
	return tokenizer.diagnostics
}

// Next returns the next token, or nil once the source is exhausted.
func (tokenizer *Tokenizer) Next() *Token {
	for {
		tokenizer.trimSpaceAndComments()
		if !tokenizer.hasRemainCharacters() {
			return nil
		}
		b := tokenizer.source[tokenizer.currentPos]
		switch {
		case b == '"':
			if token := tokenizer.tokenString(); token != nil {
				return token
			}
		case util.IsNumber(b):
			return tokenizer.tokenNumber()
		case util.IsLetterOrUnderscore(b):
			return tokenizer.toKeywordOrIdentifier()
		default:
			if tp, ok := simpleSymbolTokenTPMap[b]; ok {
				return tokenizer.tokenSimpleSymbol(tp)
			}
			tokenizer.recordError(string(b), "unrecognized character")
			tokenizer.currentPos++
		}
	}
}

// Tokenize drains the remaining sequence.
func (tokenizer *Tokenizer) Tokenize() []*Token {
	var tokens []*Token
	for token := tokenizer.Next(); token != nil; token = tokenizer.Next() {
		tokens = append(tokens, token)
	}
	return tokens
}

func (tokenizer *Tokenizer) hasRemainCharacters() bool {
	return tokenizer.currentPos < len(tokenizer.source)
}

func (tokenizer *Tokenizer) peek(offset int) byte {
	if tokenizer.currentPos+offset >= len(tokenizer.source) {
		return 0
	}
	return tokenizer.source[tokenizer.currentPos+offset]
}

// trimSpaceAndComments steps forward over blanks and comments, counting lines as it goes.
func (tokenizer *Tokenizer) trimSpaceAndComments() {
	for tokenizer.hasRemainCharacters() {
		b := tokenizer.source[tokenizer.currentPos]
		switch {
		case b == '\n':
			tokenizer.currentLine++
			tokenizer.currentPos++
		case util.IsSpace(b):
			tokenizer.currentPos++
		case b == '/' && tokenizer.peek(1) == '/':
			for tokenizer.hasRemainCharacters() && tokenizer.source[tokenizer.currentPos] != '\n' {
				tokenizer.currentPos++
			}
		case b == '/' && tokenizer.peek(1) == '*':
			tokenizer.skipMultipleLineComment()
		default:
			return
		}
	}
}

func (tokenizer *Tokenizer) skipMultipleLineComment() {
	startLine := tokenizer.currentLine
	tokenizer.currentPos += 2
	for tokenizer.hasRemainCharacters() {
		b := tokenizer.source[tokenizer.currentPos]
		if b == '*' && tokenizer.peek(1) == '/' {
			tokenizer.currentPos += 2
			return
		}
		if b == '\n' {
			tokenizer.currentLine++
		}
		tokenizer.currentPos++
	}
	tokenizer.diagnostics = append(tokenizer.diagnostics, &LexicalError{
		File: tokenizer.currentFile, Line: startLine, Near: "/*", Msg: "unterminated comment",
	})
	tokenizer.logger.WithFields(logrus.Fields{"file": tokenizer.currentFile, "line": startLine}).
		Warn("tokenizer: unterminated comment")
}

func (tokenizer *Tokenizer) recordError(near string, msg string) {
	err := &LexicalError{File: tokenizer.currentFile, Line: tokenizer.currentLine, Near: near, Msg: msg}
	tokenizer.diagnostics = append(tokenizer.diagnostics, err)
	tokenizer.logger.WithFields(logrus.Fields{
		"file": tokenizer.currentFile,
		"line": tokenizer.currentLine,
		"near": near,
	}).Warn("tokenizer: " + msg)
}

func (tokenizer *Tokenizer) newToken(tp TokenType, startPos, endPos int, content string) *Token {
	return &Token{
		content:  content,
		line:     tokenizer.currentLine,
		startPos: startPos,
		endPos:   endPos,
		tp:       tp,
	}
}

func (tokenizer *Tokenizer) tokenSimpleSymbol(tp TokenType) *Token {
	startPos := tokenizer.currentPos
	tokenizer.currentPos++
	return tokenizer.newToken(tp, startPos, tokenizer.currentPos, string(tokenizer.source[startPos]))
}

// tokenString looks forward for the closing quote on the same line. Without one the opening quote is a lexical
// error and is skipped.
func (tokenizer *Tokenizer) tokenString() *Token {
	startPos := tokenizer.currentPos
	for i := startPos + 1; i < len(tokenizer.source); i++ {
		switch tokenizer.source[i] {
		case '"':
			tokenizer.currentPos = i + 1
			return tokenizer.newToken(StringTP, startPos+1, i, string(tokenizer.source[startPos+1:i]))
		case '\n':
			i = len(tokenizer.source)
		}
	}
	tokenizer.recordError("\"", "unterminated string")
	tokenizer.currentPos++
	return nil
}

func (tokenizer *Tokenizer) tokenNumber() *Token {
	// Look forward to find a continuous number
	startPos := tokenizer.currentPos
	for tokenizer.hasRemainCharacters() && util.IsNumber(tokenizer.source[tokenizer.currentPos]) {
		tokenizer.currentPos++
	}
	return tokenizer.newToken(IntegerTP, startPos, tokenizer.currentPos,
		string(tokenizer.source[startPos:tokenizer.currentPos]))
}

func (tokenizer *Tokenizer) toKeywordOrIdentifier() *Token {
	// Look forward to find a continuous characters.
	startPos := tokenizer.currentPos
	for tokenizer.hasRemainCharacters() && util.IsLetterOrUnderscoreOrNumber(tokenizer.source[tokenizer.currentPos]) {
		tokenizer.currentPos++
	}
	content := string(tokenizer.source[startPos:tokenizer.currentPos])
	if keyWordTP, isKeyWord := keyWordTokenTPMap[content]; isKeyWord {
		return tokenizer.newToken(keyWordTP, startPos, tokenizer.currentPos, content)
	}
	return tokenizer.newToken(IdentifierTP, startPos, tokenizer.currentPos, content)
}
