package ext

import (
	"testing"

	"github.com/possible-fqz/basolver/sat"
)

func v(i int32) sat.Var { return sat.Var(i) }

func newTestCore(nbVars int, store *Store) *sat.Solver {
	return sat.New(nbVars, store)
}

// TestCardPropagationScenario implements spec §8 scenario 1: construct
// x1+x2+x3+x4 >= 3, assign x1=false (no propagation expected), then
// assign x2=false (expect x3=true, x4=true).
func TestCardPropagationScenario(t *testing.T) {
	store := NewStore()
	core := newTestCore(4, store)
	lits := []sat.Lit{v(0).Lit(), v(1).Lit(), v(2).Lit(), v(3).Lit()}
	idx := store.AddAtLeast(core, sat.LitNull, lits, 3, false)
	if idx < 0 {
		t.Fatalf("expected a real cardinality constraint, got degenerate clause")
	}

	core.PushDecision(v(0).SignedLit(true))
	if !core.Propagate() {
		t.Fatalf("unexpected conflict after x1=false")
	}
	if core.Value(v(2).Lit()) != sat.LUndef {
		t.Fatalf("x3 should not be propagated yet")
	}

	core.PushDecision(v(1).SignedLit(true))
	if !core.Propagate() {
		t.Fatalf("unexpected conflict after x2=false")
	}
	if core.Value(v(2).Lit()) != sat.LTrue {
		t.Errorf("expected x3=true, got %v", core.Value(v(2).Lit()))
	}
	if core.Value(v(3).Lit()) != sat.LTrue {
		t.Errorf("expected x4=true, got %v", core.Value(v(3).Lit()))
	}
}

// TestCardDegenerateToClause covers spec §4.1: k=1 unreified hands the
// disjunction straight to the core, returning no extension handle.
func TestCardDegenerateToClause(t *testing.T) {
	store := NewStore()
	core := newTestCore(2, store)
	idx := store.AddAtLeast(core, sat.LitNull, []sat.Lit{v(0).Lit(), v(1).Lit()}, 1, false)
	if idx != -1 {
		t.Fatalf("expected degenerate delegation to a plain clause, got idx %d", idx)
	}
}

// TestNegationInvolution implements spec §8 property P1 for card:
// negate(); negate() restores the original size, bound, and literal
// sequence.
func TestNegationInvolution(t *testing.T) {
	cc := &cardConstraint{
		header: header{size: 3},
		lits:   []sat.Lit{v(0).Lit(), v(1).SignedLit(true), v(2).Lit()},
		k:      2,
	}
	origLits := append([]sat.Lit(nil), cc.lits...)
	origK := cc.k
	negateCard(cc)
	negateCard(cc)
	if cc.k != origK {
		t.Errorf("k not restored: got %d, want %d", cc.k, origK)
	}
	for i, l := range cc.lits {
		if l != origLits[i] {
			t.Errorf("lit %d not restored: got %v, want %v", i, l, origLits[i])
		}
	}
}
