package preproc

import (
	"strconv"

	"sabr/internal/lexer"
	"sabr/internal/token"
)

// dispatch executes one directive. cur is positioned just past the
// directive token itself (self), so argument-consuming directives (#def,
// #isdef, #eval, ...) pull their operands via cur.next().
func (p *Preprocessor) dispatch(d Directive, cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	switch d {
	case DDef, DMacro, DLDef, DLMacro:
		return p.dispatchDefine(d, cur, self, out)
	case DIsDef, DLIsDef:
		return p.dispatchIsDef(d, cur, self, out)
	case DUndef, DLUndef:
		return p.dispatchUndef(d, cur, self, out)
	case DGetDef, DLGetDef:
		return p.dispatchGetDef(d, cur, self, out)
	case DImport, DInclude:
		return p.dispatchInclude(d, cur, self, out)
	case DEval:
		return p.dispatchEval(cur, self, out)
	case DIf:
		return p.dispatchIf(cur, self, out)
	case DConcat:
		return p.dispatchConcat(cur, self, out)
	case DSubstr:
		return p.dispatchSubstr(cur, self, out)
	case DCompare:
		return p.dispatchCompare(cur, self, out)
	case DLen:
		return p.dispatchLen(cur, self, out)
	case DBreak:
		p.setStop(StopBreak)
		return out, nil
	case DContinue:
		p.setStop(StopContinue)
		return out, nil
	}

	if out2, err, handled := p.dispatchStack(d, out); handled {
		return out2, err
	}
	if out2, err, handled := p.dispatchArith(d, self, out); handled {
		return out2, err
	}
	return nil, &Error{Kind: UnknownDirective, Text: self.Text, Origin: self.Origin}
}

func (p *Preprocessor) dispatchDefine(d Directive, cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin, Detail: "missing name"}
	}
	name := cur.next()
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin, Detail: "missing body"}
	}
	body := cur.next()

	isFunc := d == DDef || d == DLDef
	local := d == DLDef || d == DLMacro
	word := token.Word{Kind: token.WordPreprocDef, Def: token.PreprocDef{Code: body, IsFunc: isFunc}}

	if local {
		p.topLocal()[name.Text] = word
	} else {
		p.global[name.Text] = word
	}
	return out, nil
}

func (p *Preprocessor) dispatchIsDef(d Directive, cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin, Detail: "missing name"}
	}
	name := cur.next()
	var found bool
	if d == DLIsDef {
		_, found = p.topLocal()[name.Text]
	} else {
		_, found = p.global[name.Text]
	}
	p.pushValue(boolValue(found))
	return out, nil
}

func (p *Preprocessor) dispatchUndef(d Directive, cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin, Detail: "missing name"}
	}
	name := cur.next()
	if d == DLUndef {
		delete(p.topLocal(), name.Text)
	} else {
		delete(p.global, name.Text)
	}
	return out, nil
}

func (p *Preprocessor) dispatchGetDef(d Directive, cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin, Detail: "missing name"}
	}
	name := cur.next()
	var word token.Word
	var found bool
	if d == DLGetDef {
		word, found = p.topLocal()[name.Text]
	} else {
		word, found = p.global[name.Text]
	}
	if !found || word.Kind != token.WordPreprocDef {
		return nil, &Error{Kind: UndefinedWord, Text: name.Text, Origin: name.Origin}
	}
	return append(out, genToken(word.Def.Code.Text, self)), nil
}

func (p *Preprocessor) dispatchInclude(d Directive, cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin, Detail: "missing path"}
	}
	pathTok := cur.next()
	path := unquote(pathTok.Text)

	canonical, err := p.ld.Canonical(path)
	if err != nil {
		return nil, &Error{Kind: MalformedToken, Text: pathTok.Text, Origin: pathTok.Origin, Detail: err.Error()}
	}

	if d == DImport && p.imported[canonical] {
		return out, nil
	}
	if p.active[canonical] {
		return nil, &Error{Kind: InclusionCycle, Text: path, Origin: pathTok.Origin}
	}

	idx, err := p.ld.Load(path)
	if err != nil {
		return nil, &Error{Kind: MalformedToken, Text: pathTok.Text, Origin: pathTok.Origin, Detail: err.Error()}
	}

	p.active[canonical] = true
	p.imported[canonical] = true

	text := p.ld.Text(idx)
	lx := lexer.New([]byte(text), uint32(idx), p.ld.Filename(idx), token.Position{Line: 1, Column: 1}, false, p.tabWidth)
	toks, err := lx.Scan()
	if err != nil {
		delete(p.active, canonical)
		return nil, &Error{Kind: MalformedToken, Text: pathTok.Text, Origin: pathTok.Origin, Detail: err.Error()}
	}

	result, err := p.run(toks)
	delete(p.active, canonical)
	if err != nil {
		return nil, err
	}
	return append(out, result...), nil
}

func (p *Preprocessor) dispatchEval(cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin, Detail: "missing body"}
	}
	body := cur.next()
	def := token.PreprocDef{Code: body, IsFunc: true}
	return p.expand(def, self, out)
}

func (p *Preprocessor) dispatchIf(cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin, Detail: "missing then-branch"}
	}
	thenTok := cur.next()
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin, Detail: "missing else-branch"}
	}
	elseTok := cur.next()

	v, err := p.popValue()
	if err != nil {
		return nil, err
	}

	branch := elseTok
	if v.Int() != 0 {
		branch = thenTok
	}

	inner := stripBraces(branch.Text)
	lx := lexer.New([]byte(inner+" \n"), self.FileIndex, "", self.Origin, true, p.tabWidth)
	toks, err := lx.Scan()
	if err != nil {
		return nil, &Error{Kind: MalformedToken, Text: branch.Text, Origin: branch.Origin, Detail: err.Error()}
	}
	result, err := p.run(toks)
	if err != nil {
		return nil, err
	}
	return append(out, result...), nil
}

func (p *Preprocessor) dispatchConcat(cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin}
	}
	a := unquote(cur.next().Text)
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin}
	}
	b := unquote(cur.next().Text)
	return append(out, genToken(`"`+a+b+`"`, self)), nil
}

func (p *Preprocessor) dispatchSubstr(cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin}
	}
	s := unquote(cur.next().Text)
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin}
	}
	startTok := cur.next()
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin}
	}
	lenTok := cur.next()

	start, err := strconv.Atoi(startTok.Text)
	if err != nil {
		return nil, &Error{Kind: TypeMismatch, Text: startTok.Text, Origin: startTok.Origin}
	}
	length, err := strconv.Atoi(lenTok.Text)
	if err != nil {
		return nil, &Error{Kind: TypeMismatch, Text: lenTok.Text, Origin: lenTok.Origin}
	}
	if start < 0 || length < 0 || start+length > len(s) {
		return nil, &Error{Kind: TypeMismatch, Text: s, Origin: self.Origin, Detail: "substring out of range"}
	}
	return append(out, genToken(`"`+s[start:start+length]+`"`, self)), nil
}

func (p *Preprocessor) dispatchCompare(cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin}
	}
	a := unquote(cur.next().Text)
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin}
	}
	b := unquote(cur.next().Text)

	var result int64
	switch {
	case a < b:
		result = -1
	case a > b:
		result = 1
	}
	p.pushValue(token.FromInt(result))
	return out, nil
}

func (p *Preprocessor) dispatchLen(cur *cursor, self token.Token, out []token.Token) ([]token.Token, error) {
	if !cur.more() {
		return nil, &Error{Kind: MalformedToken, Text: self.Text, Origin: self.Origin}
	}
	s := unquote(cur.next().Text)
	p.pushValue(token.FromInt(int64(len(s))))
	return out, nil
}
