package ext

import "github.com/possible-fqz/basolver/sat"

// extension asserts at compile time that *Store satisfies the contract
// sat.Solver polls (spec §6.2): propagate/get_antecedents/
// resolve_conflict/simplify/push/pop/pop_reinit/gc.
var _ sat.Extension = (*Store)(nil)

// Clone implements spec §6.2's copy(new_solver) -> extension: a deep
// copy of every live constraint, suitable for portfolio solving or
// checkpoint/restore. Learned constraints and the reinit queue are
// copied too; the resolver scratchpad is not (it is reset on first use
// in the clone, same as a fresh Store).
func (s *Store) Clone() *Store {
	clone := NewStore()
	clone.nextID = s.nextID
	clone.Logger = s.Logger
	for idx, c := range s.byIdx {
		clone.byIdx[idx] = cloneConstraint(c)
	}
	clone.constraints = make([]*constraint, len(s.constraints))
	for i, c := range s.constraints {
		clone.constraints[i] = clone.byIdx[c.id]
	}
	clone.learned = make([]*constraint, len(s.learned))
	for i, c := range s.learned {
		clone.learned[i] = clone.byIdx[c.id]
	}
	clone.reinit = append([]int32(nil), s.reinit...)
	return clone
}

func cloneConstraint(c *constraint) *constraint {
	out := &constraint{header: c.header}
	switch c.tag {
	case tagCard:
		cc := *c.card
		cc.lits = append([]sat.Lit(nil), c.card.lits...)
		out.card = &cc
	case tagPB:
		pb := *c.pb
		pb.terms = append([]pbTerm(nil), c.pb.terms...)
		out.pb = &pb
	case tagXor:
		xc := *c.xor
		xc.lits = append([]sat.Lit(nil), c.xor.lits...)
		out.xor = &xc
	}
	return out
}

// Display implements spec §6.3's diagnostic form: "[L ==] a1*l1 + ... >= k"
// for pb, "l1 l2 ... >= k" for card, and "l1 x l2 x ..." for xor.
func (s *Store) Display(idx int32) string {
	c := s.byIdx[idx]
	if c == nil {
		return "<removed>"
	}
	return displayConstraint(c)
}
