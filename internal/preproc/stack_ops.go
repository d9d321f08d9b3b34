package preproc

import (
	"strconv"

	"sabr/internal/token"
)

// dispatchStack implements the compile-time value-stack shuffle directives.
// handled is false when d isn't one of these, letting dispatch fall through
// to the next category.
func (p *Preprocessor) dispatchStack(d Directive, out []token.Token) ([]token.Token, error, bool) {
	vs := &p.values

	need := func(n int) error {
		if len(*vs) < n {
			return &Error{Kind: StackUnderflow, Detail: "need at least " + strconv.Itoa(n) + " values"}
		}
		return nil
	}

	switch d {
	case DDrop:
		if err := need(1); err != nil {
			return nil, err, true
		}
		*vs = (*vs)[:len(*vs)-1]
	case DNip:
		if err := need(2); err != nil {
			return nil, err, true
		}
		b := (*vs)[len(*vs)-1]
		*vs = (*vs)[:len(*vs)-2]
		*vs = append(*vs, b)
	case DDup:
		if err := need(1); err != nil {
			return nil, err, true
		}
		*vs = append(*vs, (*vs)[len(*vs)-1])
	case DOver:
		if err := need(2); err != nil {
			return nil, err, true
		}
		*vs = append(*vs, (*vs)[len(*vs)-2])
	case DTuck:
		if err := need(2); err != nil {
			return nil, err, true
		}
		a, b := (*vs)[len(*vs)-2], (*vs)[len(*vs)-1]
		*vs = (*vs)[:len(*vs)-2]
		*vs = append(*vs, b, a, b)
	case DSwap:
		if err := need(2); err != nil {
			return nil, err, true
		}
		n := len(*vs)
		(*vs)[n-1], (*vs)[n-2] = (*vs)[n-2], (*vs)[n-1]
	case DRot:
		if err := need(3); err != nil {
			return nil, err, true
		}
		n := len(*vs)
		a, b, c := (*vs)[n-3], (*vs)[n-2], (*vs)[n-1]
		(*vs)[n-3], (*vs)[n-2], (*vs)[n-1] = b, c, a
	case D2Drop:
		if err := need(2); err != nil {
			return nil, err, true
		}
		*vs = (*vs)[:len(*vs)-2]
	case D2Nip:
		if err := need(4); err != nil {
			return nil, err, true
		}
		n := len(*vs)
		c, d := (*vs)[n-2], (*vs)[n-1]
		*vs = (*vs)[:n-4]
		*vs = append(*vs, c, d)
	case D2Dup:
		if err := need(2); err != nil {
			return nil, err, true
		}
		n := len(*vs)
		*vs = append(*vs, (*vs)[n-2], (*vs)[n-1])
	case D2Over:
		if err := need(4); err != nil {
			return nil, err, true
		}
		n := len(*vs)
		*vs = append(*vs, (*vs)[n-4], (*vs)[n-3])
	case D2Tuck:
		if err := need(4); err != nil {
			return nil, err, true
		}
		n := len(*vs)
		a, b, c, d := (*vs)[n-4], (*vs)[n-3], (*vs)[n-2], (*vs)[n-1]
		*vs = (*vs)[:n-4]
		*vs = append(*vs, c, d, a, b, c, d)
	case D2Swap:
		if err := need(4); err != nil {
			return nil, err, true
		}
		n := len(*vs)
		a, b, c, d := (*vs)[n-4], (*vs)[n-3], (*vs)[n-2], (*vs)[n-1]
		(*vs)[n-4], (*vs)[n-3], (*vs)[n-2], (*vs)[n-1] = c, d, a, b
	case D2Rot:
		if err := need(6); err != nil {
			return nil, err, true
		}
		n := len(*vs)
		a, b, c, d, e, f := (*vs)[n-6], (*vs)[n-5], (*vs)[n-4], (*vs)[n-3], (*vs)[n-2], (*vs)[n-1]
		(*vs)[n-6], (*vs)[n-5], (*vs)[n-4], (*vs)[n-3], (*vs)[n-2], (*vs)[n-1] = c, d, e, f, a, b
	default:
		return out, nil, false
	}
	return out, nil, true
}
