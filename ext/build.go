package ext

import (
	"fmt"
	"strings"

	"github.com/possible-fqz/basolver/sat"
)

// AtLeast1 is the cardinality-DSL convenience constructor: at least one
// of lits must be true -- the extension-owned equivalent of a plain
// clause, useful when the caller wants an ext handle back (e.g. to
// reify it) rather than delegating straight to the core.
//
// Adapted from gophersat/solver/card.go's AtLeast1/AtMost1/Exactly1,
// generalized from raw int literals to sat.Lit and from a value type
// returned to the caller to a Store method that installs the
// constraint directly.
func (s *Store) AtLeast1(core sat.CDCLCore, reifier sat.Lit, lits []sat.Lit) int32 {
	return s.AddAtLeast(core, reifier, lits, 1, false)
}

// AtMost1 states that at most one of lits can be true: negate every
// literal and require at least len(lits)-1 of the negations.
func (s *Store) AtMost1(core sat.CDCLCore, reifier sat.Lit, lits []sat.Lit) int32 {
	neg := make([]sat.Lit, len(lits))
	for i, l := range lits {
		neg[i] = l.Negation()
	}
	return s.AddAtLeast(core, reifier, neg, len(lits)-1, false)
}

// Exactly1 returns the two cardinality constraints jointly stating
// that exactly one of lits is true.
func (s *Store) Exactly1(core sat.CDCLCore, lits []sat.Lit) (atLeast, atMost int32) {
	atLeast = s.AtLeast1(core, sat.LitNull, lits)
	atMost = s.AtMost1(core, sat.LitNull, lits)
	return
}

// GtEq states that sum(weights[i]*lits[i]) >= n, normalizing any
// negative weight by flipping its literal and folding the weight into
// n, mirroring gophersat/solver/pb.go's GtEq.
func (s *Store) GtEq(core sat.CDCLCore, lits []sat.Lit, weights []int, n int) int32 {
	if len(weights) != len(lits) {
		panic("ext: GtEq called with mismatched lits/weights lengths")
	}
	lits = append([]sat.Lit(nil), lits...)
	weights = append([]int(nil), weights...)
	for i := range weights {
		if weights[i] < 0 {
			weights[i] = -weights[i]
			n += weights[i]
			lits[i] = lits[i].Negation()
		}
	}
	return s.AddPBGe(core, sat.LitNull, lits, weights, n, false)
}

// LtEq states that sum(weights[i]*lits[i]) <= n: negate every literal
// and invert the bound against the total weight sum.
func (s *Store) LtEq(core sat.CDCLCore, lits []sat.Lit, weights []int, n int) int32 {
	sum := 0
	neg := make([]sat.Lit, len(lits))
	for i, l := range lits {
		neg[i] = l.Negation()
		sum += weights[i]
	}
	return s.GtEq(core, neg, weights, sum-n)
}

// Eq returns the (up to two) PB constraints jointly stating that
// sum(weights[i]*lits[i]) == n.
func (s *Store) Eq(core sat.CDCLCore, lits []sat.Lit, weights []int, n int) []int32 {
	var res []int32
	if idx := s.GtEq(core, append([]sat.Lit(nil), lits...), append([]int(nil), weights...), n); idx >= 0 {
		res = append(res, idx)
	}
	if idx := s.LtEq(core, lits, weights, n); idx >= 0 {
		res = append(res, idx)
	}
	return res
}

// displayConstraint implements spec §6.3's diagnostic form.
func displayConstraint(c *constraint) string {
	var b strings.Builder
	if c.reifier != sat.LitNull {
		fmt.Fprintf(&b, "%v == ", c.reifier)
	}
	switch c.tag {
	case tagCard:
		parts := make([]string, len(c.card.lits))
		for i, l := range c.card.lits {
			parts[i] = l.String()
		}
		fmt.Fprintf(&b, "%s >= %d", strings.Join(parts, " "), c.card.k)
	case tagPB:
		parts := make([]string, len(c.pb.terms))
		for i, t := range c.pb.terms {
			parts[i] = fmt.Sprintf("%d*%v", t.weight, t.lit)
		}
		fmt.Fprintf(&b, "%s >= %d", strings.Join(parts, " + "), c.pb.k)
	case tagXor:
		parts := make([]string, len(c.xor.lits))
		for i, l := range c.xor.lits {
			parts[i] = l.String()
		}
		b.WriteString(strings.Join(parts, " x "))
	}
	return b.String()
}
