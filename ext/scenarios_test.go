package ext

import (
	"math"
	"testing"

	"github.com/possible-fqz/basolver/sat"
)

// TestXorPropagationScenario implements spec §8 scenario 3: x1 xor x2
// xor x3, decide x1=true and x2=true, expect x3 forced false.
func TestXorPropagationScenario(t *testing.T) {
	store := NewStore()
	core := newTestCore(3, store)
	lits := []sat.Lit{v(0).Lit(), v(1).Lit(), v(2).Lit()}
	idx := store.AddXor(core, sat.LitNull, lits, false)
	if idx < 0 {
		t.Fatalf("expected a real xor constraint")
	}

	core.PushDecision(v(0).Lit()) // x1 = true
	if !core.Propagate() {
		t.Fatalf("unexpected conflict after x1=true")
	}
	if core.Value(v(2).Lit()) != sat.LUndef {
		t.Fatalf("x3 should not be propagated with only x1 assigned")
	}

	core.PushDecision(v(1).Lit()) // x2 = true
	if !core.Propagate() {
		t.Fatalf("unexpected conflict after x1=true, x2=true")
	}
	if core.Value(v(2).Lit()) != sat.LFalse {
		t.Errorf("expected x3=false, got %v", core.Value(v(2).Lit()))
	}
}

// TestRootSubstitutionScenario implements spec §8 scenario 6: given
// x1+x2+x3>=2 and the discovery x2==x1, flushRoots substitutes x2 with
// x1, producing a duplicate positive occurrence of x1 that a
// unit-weight cardinality can no longer represent; the body is
// promoted to the equivalent weighted pb 2x1+x3>=2, and every
// satisfying assignment of the original constraint (under x2==x1)
// satisfies the promoted one and vice versa.
func TestRootSubstitutionScenario(t *testing.T) {
	store := NewStore()
	core := newTestCore(3, store)
	lits := []sat.Lit{v(0).Lit(), v(1).Lit(), v(2).Lit()}
	idx := store.AddAtLeast(core, sat.LitNull, lits, 2, false)
	if idx < 0 {
		t.Fatalf("expected a real cardinality constraint")
	}

	store.flushRoots(core, map[sat.Lit]sat.Lit{v(1).Lit(): v(0).Lit()})

	c := store.byIdx[idx]
	if c.tag != tagPB {
		t.Fatalf("expected promotion to a weighted pb after root substitution, got tag %v", c.tag)
	}
	weights := make(map[sat.Var]int, len(c.pb.terms))
	for _, term := range c.pb.terms {
		weights[term.lit.Var()] = term.weight
	}
	if weights[v(0)] != 2 {
		t.Errorf("expected x1's weight to double to 2, got %d", weights[v(0)])
	}
	if weights[v(2)] != 1 {
		t.Errorf("expected x3's weight to remain 1, got %d", weights[v(2)])
	}
	if c.pb.k != 2 {
		t.Errorf("expected k to remain 2, got %d", c.pb.k)
	}

	origLits := []sat.Lit{v(0).Lit(), v(0).Lit(), v(2).Lit()} // x2 substituted by x1
	for mask := 0; mask < 4; mask++ {
		x1 := mask&1 != 0
		x3 := mask&2 != 0
		assign := map[sat.Var]bool{v(0): x1, v(2): x3}
		want := evalCardLits(origLits, 2, assign)
		got := evalPBTerms(c.pb.terms, c.pb.k, assign)
		if want != got {
			t.Errorf("assignment x1=%v,x3=%v: original says %v, promoted pb says %v", x1, x3, want, got)
		}
	}
}

// twoCancellingPBs builds spec §8 scenario 4/5's pair of pb constraints
// over x = v(0), y = v(1): "w*x + y >= w" and "w*(¬x) + y >= w". With
// y decided false, the first forces x true and the second forces x
// false, producing a cutting-planes conflict whose antecedents' x/¬x
// terms cancel under resolution.
func twoCancellingPBs(store *Store, core sat.CDCLCore, w int) {
	x, y := v(0).Lit(), v(1).Lit()
	store.AddPBGe(core, sat.LitNull, []sat.Lit{x, y}, []int{w, 1}, w, false)
	store.AddPBGe(core, sat.LitNull, []sat.Lit{x.Negation(), y}, []int{w, 1}, w, false)
}

// TestCuttingPlaneConflictScenario implements spec §8 scenario 4: two
// pb constraints whose x/¬x terms cancel under resolution, leaving a
// single asserting literal blaming the decision (y).
func TestCuttingPlaneConflictScenario(t *testing.T) {
	store := NewStore()
	core := newTestCore(2, store)
	twoCancellingPBs(store, core, 2)

	core.PushDecision(v(1).SignedLit(true)) // y = false
	if core.Propagate() {
		t.Fatalf("expected a conflict: x is forced both true and false")
	}

	lemma, ok := store.ResolveConflict(core)
	if !ok {
		t.Fatalf("expected ResolveConflict to succeed")
	}
	if len(lemma) != 1 || lemma[0] != v(1).Lit() {
		t.Fatalf("expected the unit lemma {y}, got %v", lemma)
	}
}

// TestOverflowBailScenario implements spec §8 scenario 5: the same
// cancelling-pair shape as scenario 4, scaled so the resolution step
// recombining the two constraints' y terms overflows int32, forcing
// ResolveConflict to bail with no lemma instead of returning an
// unsound one.
func TestOverflowBailScenario(t *testing.T) {
	store := NewStore()
	core := newTestCore(2, store)
	twoCancellingPBs(store, core, math.MaxInt32)

	core.PushDecision(v(1).SignedLit(true)) // y = false
	if core.Propagate() {
		t.Fatalf("expected a conflict: x is forced both true and false")
	}

	lemma, ok := store.ResolveConflict(core)
	if ok {
		t.Fatalf("expected overflow to force a bail, got lemma %v", lemma)
	}
	if len(lemma) != 0 {
		t.Errorf("expected no lemma on overflow bail, got %v", lemma)
	}
}
