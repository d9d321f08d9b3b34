package preproc

import (
	"strconv"

	"sabr/internal/token"
)

// dispatchArith implements the signed/unsigned/float arithmetic, bitwise,
// cast, and decimal-formatting directives. All but the format directives
// pop their operands from, and push their result back onto, the
// compile-time value stack.
func (p *Preprocessor) dispatchArith(d Directive, self token.Token, out []token.Token) ([]token.Token, error, bool) {
	pop2 := func() (token.Value, token.Value, error) {
		b, err := p.popValue()
		if err != nil {
			return token.Value{}, token.Value{}, err
		}
		a, err := p.popValue()
		if err != nil {
			return token.Value{}, token.Value{}, err
		}
		return a, b, nil
	}

	switch d {
	case DAdd, DSub, DMul, DDiv, DMod, DEqu, DNeq, DGrt, DGeq, DLst, DLeq:
		a, b, err := pop2()
		if err != nil {
			return nil, err, true
		}
		return p.pushSignedResult(d, a.Int(), b.Int(), out)
	case DUDiv, DUMod, DUGrt, DUGeq, DULst, DULeq:
		a, b, err := pop2()
		if err != nil {
			return nil, err, true
		}
		return p.pushUnsignedResult(d, a.Uint(), b.Uint(), out)
	case DFAdd, DFSub, DFMul, DFDiv, DFMod, DFGrt, DFGeq, DFLst, DFLeq:
		a, b, err := pop2()
		if err != nil {
			return nil, err, true
		}
		return p.pushFloatResult(d, a.Float(), b.Float(), out)
	case DAnd, DOr, DXor, DLsft, DRsft:
		a, b, err := pop2()
		if err != nil {
			return nil, err, true
		}
		return p.pushBitwiseResult(d, a.Uint(), b.Uint(), out)
	case DNot:
		a, err := p.popValue()
		if err != nil {
			return nil, err, true
		}
		p.pushValue(token.FromUint(^a.Uint()))
		return out, nil, true
	case DFtoI:
		a, err := p.popValue()
		if err != nil {
			return nil, err, true
		}
		p.pushValue(token.FromInt(int64(a.Float())))
		return out, nil, true
	case DItoF:
		a, err := p.popValue()
		if err != nil {
			return nil, err, true
		}
		p.pushValue(token.FromFloat(float64(a.Int())))
		return out, nil, true
	case DFmtI, DFmtU, DFmtF:
		a, err := p.popValue()
		if err != nil {
			return nil, err, true
		}
		return p.pushFormattedToken(d, a, self, out)
	}
	return out, nil, false
}

func (p *Preprocessor) pushSignedResult(d Directive, a, b int64, out []token.Token) ([]token.Token, error, bool) {
	switch d {
	case DAdd:
		p.pushValue(token.FromInt(a + b))
	case DSub:
		p.pushValue(token.FromInt(a - b))
	case DMul:
		p.pushValue(token.FromInt(a * b))
	case DDiv:
		if b == 0 {
			return nil, &Error{Kind: TypeMismatch, Detail: "division by zero"}, true
		}
		p.pushValue(token.FromInt(a / b))
	case DMod:
		if b == 0 {
			return nil, &Error{Kind: TypeMismatch, Detail: "division by zero"}, true
		}
		p.pushValue(token.FromInt(a % b))
	case DEqu:
		p.pushValue(boolValue(a == b))
	case DNeq:
		p.pushValue(boolValue(a != b))
	case DGrt:
		p.pushValue(boolValue(a > b))
	case DGeq:
		p.pushValue(boolValue(a >= b))
	case DLst:
		p.pushValue(boolValue(a < b))
	case DLeq:
		p.pushValue(boolValue(a <= b))
	}
	return out, nil, true
}

func (p *Preprocessor) pushUnsignedResult(d Directive, a, b uint64, out []token.Token) ([]token.Token, error, bool) {
	switch d {
	case DUDiv:
		if b == 0 {
			return nil, &Error{Kind: TypeMismatch, Detail: "division by zero"}, true
		}
		p.pushValue(token.FromUint(a / b))
	case DUMod:
		if b == 0 {
			return nil, &Error{Kind: TypeMismatch, Detail: "division by zero"}, true
		}
		p.pushValue(token.FromUint(a % b))
	case DUGrt:
		p.pushValue(boolValue(a > b))
	case DUGeq:
		p.pushValue(boolValue(a >= b))
	case DULst:
		p.pushValue(boolValue(a < b))
	case DULeq:
		p.pushValue(boolValue(a <= b))
	}
	return out, nil, true
}

func (p *Preprocessor) pushFloatResult(d Directive, a, b float64, out []token.Token) ([]token.Token, error, bool) {
	switch d {
	case DFAdd:
		p.pushValue(token.FromFloat(a + b))
	case DFSub:
		p.pushValue(token.FromFloat(a - b))
	case DFMul:
		p.pushValue(token.FromFloat(a * b))
	case DFDiv:
		p.pushValue(token.FromFloat(a / b))
	case DFMod:
		p.pushValue(token.FromFloat(floatMod(a, b)))
	case DFGrt:
		p.pushValue(boolValue(a > b))
	case DFGeq:
		p.pushValue(boolValue(a >= b))
	case DFLst:
		p.pushValue(boolValue(a < b))
	case DFLeq:
		p.pushValue(boolValue(a <= b))
	}
	return out, nil, true
}

func floatMod(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	quotient := a / b
	whole := float64(int64(quotient))
	return a - whole*b
}

func (p *Preprocessor) pushBitwiseResult(d Directive, a, b uint64, out []token.Token) ([]token.Token, error, bool) {
	switch d {
	case DAnd:
		p.pushValue(token.FromUint(a & b))
	case DOr:
		p.pushValue(token.FromUint(a | b))
	case DXor:
		p.pushValue(token.FromUint(a ^ b))
	case DLsft:
		p.pushValue(token.FromUint(a << b))
	case DRsft:
		p.pushValue(token.FromUint(a >> b))
	}
	return out, nil, true
}

func (p *Preprocessor) pushFormattedToken(d Directive, v token.Value, self token.Token, out []token.Token) ([]token.Token, error, bool) {
	var text string
	switch d {
	case DFmtI:
		text = strconv.FormatInt(v.Int(), 10)
	case DFmtU:
		text = strconv.FormatUint(v.Uint(), 10)
	case DFmtF:
		text = strconv.FormatFloat(v.Float(), 'g', -1, 64)
	}
	return append(out, genToken(text, self)), nil, true
}
