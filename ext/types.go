// Package ext implements the extension solver named in spec §2: watched
// literal propagation for cardinality, pseudo-Boolean, and parity
// constraints, plus the generalized cutting-planes conflict resolver
// that drives learning over them. It is the component the spec's
// budget and attention are concentrated on.
//
// ext is driven by a sat.CDCLCore (the package out of scope per the
// spec, concretely implemented by sat.Solver) and never reaches into
// the core's internals beyond that interface.
package ext

import "github.com/possible-fqz/basolver/sat"

// constraintTag discriminates the three constraint families. A tagged
// union replaces the original's base-class/downcast design (spec §9):
// every entry point dispatches on tag instead of a virtual call.
type constraintTag int8

const (
	tagCard constraintTag = iota
	tagPB
	tagXor
)

func (t constraintTag) String() string {
	switch t {
	case tagCard:
		return "card"
	case tagPB:
		return "pb"
	case tagXor:
		return "xor"
	default:
		return "unknown"
	}
}

// header holds the fields common to every constraint variant (spec
// §3's "Constraint header"): a stable id, the discriminant tag, the
// optional reifying literal, size, and the flags/scores used by
// simplification and GC.
type header struct {
	id       int32
	tag      constraintTag
	reifier  sat.Lit // sat.LitNull if unreified
	size     int
	removed  bool
	learned  bool
	glue     int
	psm      int
	ref      int32 // external justification id, set once watched
}

// pbTerm is a single weighted literal in a pb constraint body.
type pbTerm struct {
	weight int
	lit    sat.Lit
}

// cardConstraint is `lits[0] + ... + lits[n-1] >= k` (spec §4.2).
type cardConstraint struct {
	header
	lits []sat.Lit
	k    int
}

// pbConstraint is `sum(terms[i].weight * terms[i].lit) >= k` (spec
// §4.3). slack/numWatch/maxSum are the Chai-Kuhlmann bookkeeping fields
// cached on the body per spec §3.
type pbConstraint struct {
	header
	terms    []pbTerm
	k        int
	slack    int
	numWatch int
	maxSum   int
}

// xorConstraint is `lits[0] xor ... xor lits[n-1]` (spec §4.4); parity
// true means an odd number of lits[i] are true.
type xorConstraint struct {
	header
	lits []sat.Lit
}

// constraint is the tagged union. Exactly one of card/pb/xor is
// non-nil, selected by header.tag.
type constraint struct {
	header
	card *cardConstraint
	pb   *pbConstraint
	xor  *xorConstraint
}

func (c *constraint) negatePolarity() {
	switch c.tag {
	case tagCard:
		negateCard(c.card)
	case tagPB:
		negatePB(c.pb)
	case tagXor:
		// xor has no polarity to flip: L <-> (l1 xor ... xor ln) has
		// no "negate the body" degree of freedom distinct from
		// flipping the reifier itself, which callers do directly.
	}
}

// bodySize returns the number of literals in the constraint body,
// independent of tag.
func (c *constraint) bodySize() int {
	switch c.tag {
	case tagCard:
		return len(c.card.lits)
	case tagPB:
		return len(c.pb.terms)
	case tagXor:
		return len(c.xor.lits)
	default:
		return 0
	}
}

// bodyLit returns the literal at body position i, independent of tag.
func (c *constraint) bodyLit(i int) sat.Lit {
	switch c.tag {
	case tagCard:
		return c.card.lits[i]
	case tagPB:
		return c.pb.terms[i].lit
	case tagXor:
		return c.xor.lits[i]
	default:
		panic("ext: bodyLit on constraint with unknown tag")
	}
}
