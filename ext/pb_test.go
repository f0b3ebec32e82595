package ext

import (
	"testing"

	"github.com/possible-fqz/basolver/sat"
)

// evalLit returns whether lit is satisfied under assign (unassigned vars
// default to false).
func evalLit(lit sat.Lit, assign map[sat.Var]bool) bool {
	val := assign[lit.Var()]
	if !lit.IsPositive() {
		val = !val
	}
	return val
}

func evalPBTerms(terms []pbTerm, k int, assign map[sat.Var]bool) bool {
	sum := 0
	for _, t := range terms {
		if evalLit(t.lit, assign) {
			sum += t.weight
		}
	}
	return sum >= k
}

func evalCardLits(lits []sat.Lit, k int, assign map[sat.Var]bool) bool {
	sum := 0
	for _, l := range lits {
		if evalLit(l, assign) {
			sum++
		}
	}
	return sum >= k
}

// TestRecompileEquivalence implements spec §8 property P3: consolidating
// opposite-polarity terms on the same variable (recompile) must not
// change the constraint's truth value under any total assignment, even
// when the result demotes to a cardinality constraint.
func TestRecompileEquivalence(t *testing.T) {
	origTerms := []pbTerm{
		{weight: 3, lit: v(0).SignedLit(false)},
		{weight: 2, lit: v(0).SignedLit(true)},
		{weight: 5, lit: v(1).SignedLit(false)},
		{weight: 1, lit: v(2).SignedLit(false)},
	}
	origK := 4

	p := &pbConstraint{
		header: header{tag: tagPB, size: len(origTerms)},
		terms:  append([]pbTerm(nil), origTerms...),
		k:      origK,
	}
	card := recompilePB(p)

	vars := []sat.Var{v(0), v(1), v(2)}
	for mask := 0; mask < 1<<len(vars); mask++ {
		assign := make(map[sat.Var]bool, len(vars))
		for i, vv := range vars {
			assign[vv] = mask&(1<<i) != 0
		}
		want := evalPBTerms(origTerms, origK, assign)
		var got bool
		if card != nil {
			got = evalCardLits(card.lits, card.k, assign)
		} else {
			got = evalPBTerms(p.terms, p.k, assign)
		}
		if got != want {
			t.Errorf("assignment %v: recompiled result = %v, original = %v", assign, got, want)
		}
	}
}

// TestRecompileAllUnitPromotesToCard covers the other recompile branch
// (spec §4.3.3): once every surviving weight is 1, recompile hands back
// a cardinality constraint instead of a pb.
func TestRecompileAllUnitPromotesToCard(t *testing.T) {
	p := &pbConstraint{
		header: header{tag: tagPB, size: 3},
		terms: []pbTerm{
			{weight: 1, lit: v(0).Lit()},
			{weight: 1, lit: v(1).Lit()},
			{weight: 1, lit: v(2).Lit()},
		},
		k: 2,
	}
	card := recompilePB(p)
	if card == nil {
		t.Fatalf("expected promotion to cardinality")
	}
	if card.k != 2 || len(card.lits) != 3 {
		t.Errorf("got k=%d, len(lits)=%d, want k=2, len=3", card.k, len(card.lits))
	}
}

// TestPBWatchGrowth implements spec §8 scenario 2: 5x1+4x2+3x3+2x4+x5>=7.
// Initially only the first two terms (weight 5+4=9) are watched, since
// their cumulative weight already exceeds k=7. Forcing x1 false must
// grow the watched prefix to include x3, x4 and x5 and, once the slack
// margin is tight enough, force x2 true.
func TestPBWatchGrowth(t *testing.T) {
	store := NewStore()
	core := newTestCore(5, store)
	lits := []sat.Lit{v(0).Lit(), v(1).Lit(), v(2).Lit(), v(3).Lit(), v(4).Lit()}
	weights := []int{5, 4, 3, 2, 1}
	idx := store.GtEq(core, lits, weights, 7)
	if idx < 0 {
		t.Fatalf("expected a real pb constraint, got degenerate delegation")
	}

	c := store.get(idx)
	if c.pb.numWatch != 2 {
		t.Fatalf("expected initial numWatch=2, got %d", c.pb.numWatch)
	}
	if c.pb.slack != 9 {
		t.Fatalf("expected initial slack=9, got %d", c.pb.slack)
	}

	core.PushDecision(v(0).SignedLit(true)) // x1 = false
	if !core.Propagate() {
		t.Fatalf("unexpected conflict after x1=false")
	}

	if c.pb.numWatch != 4 {
		t.Errorf("expected watch prefix grown to 4, got %d", c.pb.numWatch)
	}
	if core.Value(v(1).Lit()) != sat.LTrue {
		t.Errorf("expected x2 forced true, got %v", core.Value(v(1).Lit()))
	}
	if core.Value(v(2).Lit()) != sat.LUndef {
		t.Errorf("x3 should not be forced, got %v", core.Value(v(2).Lit()))
	}
	if core.Value(v(3).Lit()) != sat.LUndef {
		t.Errorf("x4 should not be forced, got %v", core.Value(v(3).Lit()))
	}
	if core.Value(v(4).Lit()) != sat.LUndef {
		t.Errorf("x5 should not be forced, got %v", core.Value(v(4).Lit()))
	}
}
