// Package preproc implements the compile-time meta-language that runs
// before bytecode generation: a stack-based directive dispatcher that
// consumes a token vector and produces a transformed one. Directives can
// push/pop a compile-time Value stack, define and expand macros/functions
// with their own scoping, splice in other files, and evaluate compile-time
// conditionals.
package preproc

import (
	"strings"

	"sabr/internal/lexer"
	"sabr/internal/loader"
	"sabr/internal/token"
)

// ErrorKind classifies preprocessing failures.
type ErrorKind int

const (
	UnknownDirective ErrorKind = iota
	TypeMismatch
	StackUnderflow
	UndefinedWord
	InclusionCycle
	MalformedToken
)

// Error is a preprocessing failure positioned at its triggering token.
type Error struct {
	Kind   ErrorKind
	Text   string
	Origin token.Position
	File   string
	Detail string
}

func (e *Error) Error() string {
	names := [...]string{"unknown directive", "type mismatch", "compile-time stack underflow",
		"undefined word", "inclusion cycle", "malformed token"}
	what := "preprocess error"
	if int(e.Kind) < len(names) {
		what = names[e.Kind]
	}
	if e.Detail != "" {
		return what + ": " + e.Detail + " (" + e.Text + " @ " + e.Origin.String() + " in " + e.File + ")"
	}
	return what + ": " + e.Text + " @ " + e.Origin.String() + " in " + e.File
}

// StopFlag mirrors `#break`/`#continue` unwinding a directive's own token
// iteration. Each local-dictionary-stack depth owns one: a function-style
// expansion (#def/#eval, is_func=true) gets a fresh frame that absorbs the
// flag; a macro-style expansion (#macro, is_func=false) shares the caller's
// frame, so `#break`/`#continue` set inside it are visible to — and abort —
// the enclosing iteration too.
type StopFlag int

const (
	StopNone StopFlag = iota
	StopBreak
	StopContinue
)

// Preprocessor holds all state needed across a single preprocessing run:
// the directive/def dictionaries, the compile-time Value stack, the stop
// flag stack, and the file loader used to resolve #import/#include.
type Preprocessor struct {
	ld       *loader.Loader
	tabWidth int

	global map[string]token.Word
	locals []map[string]token.Word

	values []token.Value
	stops  []StopFlag

	imported map[string]bool
	active   map[string]bool
}

// New creates a Preprocessor whose global dictionary is pre-populated with
// every built-in directive.
func New(ld *loader.Loader, tabWidth int) *Preprocessor {
	p := &Preprocessor{
		ld:       ld,
		tabWidth: tabWidth,
		global:   make(map[string]token.Word, len(directiveNames)),
		locals:   []map[string]token.Word{make(map[string]token.Word)},
		stops:    []StopFlag{StopNone},
		imported: make(map[string]bool),
		active:   make(map[string]bool),
	}
	for name, d := range directiveNames {
		p.global[name] = token.Word{Kind: token.WordPreprocKeyword, PreprocKeyword: int(d)}
	}
	return p
}

// Process runs the preprocessor over tokens and returns the transformed
// stream.
func (p *Preprocessor) Process(tokens []token.Token) ([]token.Token, error) {
	return p.run(tokens)
}

type cursor struct {
	toks []token.Token
	i    int
}

func (c *cursor) more() bool        { return c.i < len(c.toks) }
func (c *cursor) next() token.Token { t := c.toks[c.i]; c.i++; return t }

// lookup resolves a token's text against the top local dictionary first,
// falling back to the global directive dictionary.
func (p *Preprocessor) lookup(name string) (token.Word, bool) {
	if w, ok := p.topLocal()[name]; ok {
		return w, true
	}
	w, ok := p.global[name]
	return w, ok
}

func (p *Preprocessor) run(tokens []token.Token) ([]token.Token, error) {
	cur := &cursor{toks: tokens}
	var out []token.Token

	for cur.more() {
		t := cur.next()

		if word, ok := p.lookup(t.Text); ok {
			var err error
			switch word.Kind {
			case token.WordPreprocKeyword:
				out, err = p.dispatch(Directive(word.PreprocKeyword), cur, t, out)
			case token.WordPreprocDef:
				out, err = p.expand(word.Def, t, out)
			default:
				out = append(out, t)
			}
			if err != nil {
				return nil, err
			}
			if p.topStop() != StopNone {
				break
			}
			continue
		}

		if err := validateBraces(t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, nil
}

func validateBraces(t token.Token) error {
	if strings.HasPrefix(t.Text, "'") || strings.HasPrefix(t.Text, "\"") {
		return nil
	}
	balance := 0
	anyBrace := false
	for _, r := range t.Text {
		switch r {
		case '{':
			balance++
			anyBrace = true
		case '}':
			balance--
			anyBrace = true
		}
	}
	if balance != 0 {
		return &Error{Kind: MalformedToken, Text: t.Text, Origin: t.Origin, Detail: "unbalanced braces"}
	}
	if anyBrace && !strings.HasPrefix(t.Text, "{") {
		return &Error{Kind: MalformedToken, Text: t.Text, Origin: t.Origin, Detail: "brace must open the token"}
	}
	return nil
}

func (p *Preprocessor) topLocal() map[string]token.Word { return p.locals[len(p.locals)-1] }
func (p *Preprocessor) topStop() StopFlag               { return p.stops[len(p.stops)-1] }
func (p *Preprocessor) setStop(f StopFlag)              { p.stops[len(p.stops)-1] = f }

func (p *Preprocessor) pushScope() {
	p.locals = append(p.locals, make(map[string]token.Word))
	p.stops = append(p.stops, StopNone)
}

func (p *Preprocessor) popScope() {
	p.locals = p.locals[:len(p.locals)-1]
	p.stops = p.stops[:len(p.stops)-1]
}

func (p *Preprocessor) pushValue(v token.Value) { p.values = append(p.values, v) }

func (p *Preprocessor) popValue() (token.Value, error) {
	if len(p.values) == 0 {
		return token.Value{}, &Error{Kind: StackUnderflow, Text: "", Detail: "compile-time value stack is empty"}
	}
	v := p.values[len(p.values)-1]
	p.values = p.values[:len(p.values)-1]
	return v, nil
}

func (p *Preprocessor) expand(def token.PreprocDef, site token.Token, out []token.Token) ([]token.Token, error) {
	inner := stripBraces(def.Code.Text)
	lx := lexer.New([]byte(inner+" \n"), site.FileIndex, "", site.Origin, true, p.tabWidth)
	toks, err := lx.Scan()
	if err != nil {
		return nil, &Error{Kind: MalformedToken, Text: site.Text, Origin: site.Origin, Detail: err.Error()}
	}

	if def.IsFunc {
		p.pushScope()
	}
	result, err := p.run(toks)
	if def.IsFunc {
		p.popScope()
	}
	if err != nil {
		return nil, err
	}
	return append(out, result...), nil
}

func stripBraces(text string) string {
	if len(text) >= 2 && text[0] == '{' && text[len(text)-1] == '}' {
		return text[1 : len(text)-1]
	}
	return text
}

func unquote(text string) string {
	if len(text) >= 2 && (text[0] == '\'' || text[0] == '"') && text[len(text)-1] == text[0] {
		return text[1 : len(text)-1]
	}
	return text
}

func genToken(text string, site token.Token) token.Token {
	return token.Token{Text: text, Origin: site.Origin, FileIndex: site.FileIndex, Generated: true}
}

func boolValue(b bool) token.Value {
	if b {
		return token.FromInt(1)
	}
	return token.FromInt(0)
}
