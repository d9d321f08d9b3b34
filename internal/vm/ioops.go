package vm

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"sabr/internal/bytecode"
	"sabr/internal/token"
)

// stepIO implements the typed console primitives. GETC reads one raw rune;
// the other GETx read a single whitespace-delimited token from the input
// stream and parse it as the named type; PUTx format the popped value as that type and write it; SHOW
// is the untyped debug peek, printing the top of the data stack as a signed
// decimal without popping it.
func (v *VM) stepIO(op bytecode.Op) error {
	switch op {
	case bytecode.OpGetC:
		r, _, err := v.readRune()
		if err != nil {
			return err
		}
		v.data.Push(token.FromInt(int64(r)))
		return nil
	case bytecode.OpGetI:
		word, err := v.readToken()
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(word, 10, 64)
		if err != nil {
			return &Error{Kind: IOFailure, PC: v.pc, Op: op, Detail: err.Error()}
		}
		v.data.Push(token.FromInt(n))
		return nil
	case bytecode.OpGetU:
		word, err := v.readToken()
		if err != nil {
			return err
		}
		n, err := strconv.ParseUint(word, 10, 64)
		if err != nil {
			return &Error{Kind: IOFailure, PC: v.pc, Op: op, Detail: err.Error()}
		}
		v.data.Push(token.FromUint(n))
		return nil
	case bytecode.OpGetF:
		word, err := v.readToken()
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return &Error{Kind: IOFailure, PC: v.pc, Op: op, Detail: err.Error()}
		}
		v.data.Push(token.FromFloat(f))
		return nil
	case bytecode.OpGetS:
		word, err := v.readToken()
		if err != nil {
			return err
		}
		runes := []rune(word)
		vals := make([]token.Value, len(runes))
		for i, r := range runes {
			vals[i] = token.FromInt(int64(r))
		}
		addr, err := v.storeArray(vals)
		if err != nil {
			return err
		}
		v.data.Push(token.FromInt(addr))
		v.data.Push(token.FromInt(int64(len(vals))))
		return nil

	case bytecode.OpPutC:
		val, err := v.popData(op)
		if err != nil {
			return err
		}
		return v.write(string(rune(val.Int())))
	case bytecode.OpPutI:
		val, err := v.popData(op)
		if err != nil {
			return err
		}
		return v.write(strconv.FormatInt(val.Int(), 10))
	case bytecode.OpPutU:
		val, err := v.popData(op)
		if err != nil {
			return err
		}
		return v.write(strconv.FormatUint(val.Uint(), 10))
	case bytecode.OpPutF:
		val, err := v.popData(op)
		if err != nil {
			return err
		}
		return v.write(strconv.FormatFloat(val.Float(), 'g', -1, 64))
	case bytecode.OpPutS:
		length, err := v.popData(op)
		if err != nil {
			return err
		}
		addr, err := v.popData(op)
		if err != nil {
			return err
		}
		pool, base := v.poolFor(addr.Int())
		var sb strings.Builder
		for i := int64(0); i < length.Int(); i++ {
			cell, err := pool.fetch(base + int(i))
			if err != nil {
				return err
			}
			sb.WriteRune(rune(cell.Int()))
		}
		return v.write(sb.String())
	case bytecode.OpShow:
		val, ok := v.data.Peek()
		if !ok {
			return &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op}
		}
		return v.write(strconv.FormatInt(val.Int(), 10) + "\n")
	}
	return nil
}

func (v *VM) write(s string) error {
	if v.out == nil {
		return nil
	}
	_, err := v.out.WriteString(s)
	if err != nil {
		return &Error{Kind: IOFailure, PC: v.pc, Detail: err.Error()}
	}
	return nil
}

// readRune reads one rune off the input stream, wrapped as a VM Error.
func (v *VM) readRune() (rune, int, error) {
	r, size, err := v.readRuneRaw()
	if err != nil {
		return 0, 0, &Error{Kind: IOFailure, PC: v.pc, Detail: err.Error()}
	}
	return r, size, nil
}

func (v *VM) readRuneRaw() (rune, int, error) {
	if v.in == nil {
		return 0, 0, errors.New("no input stream registered")
	}
	return v.in.ReadRune()
}

// readToken skips leading whitespace, then reads runes up to (not
// including) the next whitespace or EOF.
func (v *VM) readToken() (string, error) {
	var sb strings.Builder
	seenContent := false
	for {
		r, _, err := v.readRuneRaw()
		if err != nil {
			if errors.Is(err, io.EOF) && seenContent {
				return sb.String(), nil
			}
			if errors.Is(err, io.EOF) {
				return "", &Error{Kind: IOFailure, PC: v.pc, Detail: io.EOF.Error()}
			}
			return "", &Error{Kind: IOFailure, PC: v.pc, Detail: err.Error()}
		}
		if isSpace(r) {
			if seenContent {
				return sb.String(), nil
			}
			continue
		}
		seenContent = true
		sb.WriteRune(r)
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
