package sat

// Clause is a plain (non-cardinality, non-pb) disjunction of literals,
// two-watched on its first two positions. Unlike the teacher's merged
// solver.Clause, this type never carries cardinality or learned-pb
// fields -- those live in ext now -- so its only job is exactly what
// spec.md leaves in scope for the core: propagation over plain/binary/
// ternary clauses.
type Clause struct {
	lits     []Lit
	learnt   bool
	activity float64
}

// NewClause builds a clause from lits, placing lits[0] and lits[1] as
// the initial watched pair. The caller is responsible for deduplication
// and tautology checks before calling this; lits is copied as given.
func NewClause(lits []Lit, learnt bool) *Clause {
	return &Clause{lits: append([]Lit(nil), lits...), learnt: learnt}
}

// Len returns the number of literals in c.
func (c *Clause) Len() int { return len(c.lits) }

// Get returns the literal at position i.
func (c *Clause) Get(i int) Lit { return c.lits[i] }

// Set overwrites the literal at position i.
func (c *Clause) Set(i int, l Lit) { c.lits[i] = l }

func (c *Clause) swap(i, j int) { c.lits[i], c.lits[j] = c.lits[j], c.lits[i] }

// Propagate is invoked when falseLit (one of c's first two literals)
// has just become false; it first moves falseLit to position 1. On
// finding a non-false literal past the watched pair it swaps that
// literal into position 1 and returns (PropUndef, true), and the caller
// relocates the watch-list entry. Otherwise the watched pair stays and
// it returns movedWatch false with PropUndef (lits[0] already true),
// PropTrue (lits[0] must be propagated) or PropFalse (conflict).
//
// Grounded on rhartert/yass/internal/sat/clauses.go's Propagate, kept
// distinct from gophersat's merged simplifyClause/simplifyCardClause so
// that ext's resolver can dispatch to a clause reason independent of a
// card/pb reason kind (spec §4.5 step 2).
func (c *Clause) Propagate(core CDCLCore, falseLit Lit) (status PropStatus, movedWatch bool) {
	if c.lits[0] == falseLit {
		c.swap(0, 1)
	}
	if core.Value(c.lits[0]) == LTrue {
		return PropUndef, false
	}
	for i := 2; i < len(c.lits); i++ {
		if core.Value(c.lits[i]) != LFalse {
			c.swap(1, i)
			return PropUndef, true
		}
	}
	if core.Value(c.lits[0]) == LFalse {
		return PropFalse, false
	}
	return PropTrue, false
}
