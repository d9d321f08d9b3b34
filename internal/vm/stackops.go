package vm

import "sabr/internal/bytecode"

// stepStack implements the data-stack shuffle words and their T-prefixed
// (two-cell) variants, mirroring internal/preproc/stack_ops.go's shape but
// against the VM's runtime data stack.
func (v *VM) stepStack(op bytecode.Op) error {
	s := &v.data
	need := func(n int) error {
		if s.Len() < n {
			return &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "stack shuffle underflow"}
		}
		return nil
	}

	switch op {
	case bytecode.OpDrop:
		if err := need(1); err != nil {
			return err
		}
		s.vals = s.vals[:len(s.vals)-1]
	case bytecode.OpNip:
		if err := need(2); err != nil {
			return err
		}
		b := s.vals[len(s.vals)-1]
		s.vals = s.vals[:len(s.vals)-2]
		s.vals = append(s.vals, b)
	case bytecode.OpDup:
		if err := need(1); err != nil {
			return err
		}
		s.vals = append(s.vals, s.vals[len(s.vals)-1])
	case bytecode.OpOver:
		if err := need(2); err != nil {
			return err
		}
		s.vals = append(s.vals, s.vals[len(s.vals)-2])
	case bytecode.OpTuck:
		if err := need(2); err != nil {
			return err
		}
		n := len(s.vals)
		a, b := s.vals[n-2], s.vals[n-1]
		s.vals = s.vals[:n-2]
		s.vals = append(s.vals, b, a, b)
	case bytecode.OpSwap:
		if err := need(2); err != nil {
			return err
		}
		n := len(s.vals)
		s.vals[n-1], s.vals[n-2] = s.vals[n-2], s.vals[n-1]
	case bytecode.OpRot:
		if err := need(3); err != nil {
			return err
		}
		n := len(s.vals)
		a, b, c := s.vals[n-3], s.vals[n-2], s.vals[n-1]
		s.vals[n-3], s.vals[n-2], s.vals[n-1] = b, c, a

	case bytecode.OpTDrop:
		if err := need(2); err != nil {
			return err
		}
		s.vals = s.vals[:len(s.vals)-2]
	case bytecode.OpTNip:
		if err := need(4); err != nil {
			return err
		}
		n := len(s.vals)
		c, d := s.vals[n-2], s.vals[n-1]
		s.vals = s.vals[:n-4]
		s.vals = append(s.vals, c, d)
	case bytecode.OpTDup:
		if err := need(2); err != nil {
			return err
		}
		n := len(s.vals)
		s.vals = append(s.vals, s.vals[n-2], s.vals[n-1])
	case bytecode.OpTOver:
		if err := need(4); err != nil {
			return err
		}
		n := len(s.vals)
		s.vals = append(s.vals, s.vals[n-4], s.vals[n-3])
	case bytecode.OpTTuck:
		if err := need(4); err != nil {
			return err
		}
		n := len(s.vals)
		a, b, c, d := s.vals[n-4], s.vals[n-3], s.vals[n-2], s.vals[n-1]
		s.vals = s.vals[:n-4]
		s.vals = append(s.vals, c, d, a, b, c, d)
	case bytecode.OpTSwap:
		if err := need(4); err != nil {
			return err
		}
		n := len(s.vals)
		a, b, c, d := s.vals[n-4], s.vals[n-3], s.vals[n-2], s.vals[n-1]
		s.vals[n-4], s.vals[n-3], s.vals[n-2], s.vals[n-1] = c, d, a, b
	case bytecode.OpTRot:
		if err := need(6); err != nil {
			return err
		}
		n := len(s.vals)
		a, b, c, d, e, f := s.vals[n-6], s.vals[n-5], s.vals[n-4], s.vals[n-3], s.vals[n-2], s.vals[n-1]
		s.vals[n-6], s.vals[n-5], s.vals[n-4], s.vals[n-3], s.vals[n-2], s.vals[n-1] = c, d, e, f, a, b
	}
	return nil
}
