package compiler

import (
	"bytes"
	"encoding/xml"
)

// TokensXML renders tokens in the <tokens> format of the syntax analyzer, one element per token named by its
// category: <keyword> class </keyword>.
func TokensXML(tokens []*Token) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	root := xml.StartElement{Name: xml.Name{Local: "tokens"}}
	newLine := xml.CharData("\n")
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	if err := enc.EncodeToken(newLine); err != nil {
		return nil, err
	}
	for _, token := range tokens {
		element := xml.StartElement{Name: xml.Name{Local: token.tp.Category()}}
		for _, t := range []xml.Token{element, xml.CharData(" " + token.content + " "), element.End(), newLine} {
			if err := enc.EncodeToken(t); err != nil {
				return nil, err
			}
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
