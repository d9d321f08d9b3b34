package compiler

import (
	"sabr/internal/lexer"
	"sabr/internal/token"
)

// tokenizeFragment re-tokenizes a braced block's inner text (e.g. a
// `defer { ... }` body), inheriting site's position and file index since the
// fragment has no independent source location of its own.
func tokenizeFragment(inner string, site token.Token) ([]token.Token, error) {
	lx := lexer.New([]byte(inner+" \n"), site.FileIndex, "", site.Origin, true, 0)
	toks, err := lx.Scan()
	if err != nil {
		return nil, &Error{Kind: InvalidIdentifier, Text: site.Text, Origin: site.Origin}
	}
	return toks, nil
}
