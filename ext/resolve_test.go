package ext

import (
	"math"
	"testing"

	"github.com/possible-fqz/basolver/sat"
)

// TestCutReducesGCD implements spec §4.5 step 3: coefficients sharing a
// common factor are divided down and the bound rounded up.
func TestCutReducesGCD(t *testing.T) {
	var r resolver
	r.reset()
	r.coeffs[v(0)] = 4
	r.coeffs[v(1)] = -2
	r.activeVars = []sat.Var{v(0), v(1)}
	r.bound = 6
	r.cut()
	if r.coeffs[v(0)] != 2 || r.coeffs[v(1)] != -1 {
		t.Fatalf("got coeffs v0=%d v1=%d, want v0=2 v1=-1", r.coeffs[v(0)], r.coeffs[v(1)])
	}
	if r.bound != 3 {
		t.Errorf("got bound=%d, want 3", r.bound)
	}
}

// TestCutBypassedOnUnitCoeff implements spec §4.5 step 3's bypass rule:
// any coefficient of magnitude 1 disables the cut entirely.
func TestCutBypassedOnUnitCoeff(t *testing.T) {
	var r resolver
	r.reset()
	r.coeffs[v(0)] = 1
	r.coeffs[v(1)] = 4
	r.activeVars = []sat.Var{v(0), v(1)}
	r.bound = 5
	r.cut()
	if r.coeffs[v(0)] != 1 || r.coeffs[v(1)] != 4 || r.bound != 5 {
		t.Errorf("cut should have been a no-op, got v0=%d v1=%d bound=%d", r.coeffs[v(0)], r.coeffs[v(1)], r.bound)
	}
}

// TestCutPreservesModels implements spec §8 property I6: any assignment
// satisfying the pre-cut inequality must also satisfy the post-cut one.
func TestCutPreservesModels(t *testing.T) {
	build := func() *resolver {
		var r resolver
		r.reset()
		r.coeffs[v(0)] = 4
		r.coeffs[v(1)] = -4
		r.coeffs[v(2)] = 2
		r.activeVars = []sat.Var{v(0), v(1), v(2)}
		r.bound = 5
		return &r
	}
	orig := build()
	cutR := build()
	cutR.cut()

	sumOf := func(r *resolver, assign [3]bool) int64 {
		var sum int64
		for i, vv := range r.activeVars {
			_ = i
			c := r.coeffs[vv]
			if c == 0 {
				continue
			}
			idx := int(vv)
			if c > 0 && assign[idx] {
				sum += c
			} else if c < 0 && !assign[idx] {
				sum += -c
			}
		}
		return sum
	}

	for mask := 0; mask < 8; mask++ {
		assign := [3]bool{mask&1 != 0, mask&2 != 0, mask&4 != 0}
		if sumOf(orig, assign) >= orig.bound {
			if sumOf(cutR, assign) < cutR.bound {
				t.Errorf("assignment %v satisfies original but not the cut inequality", assign)
			}
		}
	}
}

// TestOverflowDetection implements spec §4.5's overflow guard: a
// coefficient sum exceeding int32 range flips the overflow flag and
// further accumulation becomes a no-op.
func TestOverflowDetection(t *testing.T) {
	var r resolver
	r.reset()
	r.addLitCoeff(v(0), math.MaxInt32, true)
	r.addLitCoeff(v(0), 10, true)
	if !r.overflow {
		t.Fatalf("expected overflow to be flagged")
	}
}

// TestClauseAntecedentsExcludesHead covers the JustClause branch of
// resolveStep's antecedent lookup: the propagated literal's own position
// is excluded, every other clause literal is returned verbatim.
func TestClauseAntecedentsExcludesHead(t *testing.T) {
	store := NewStore()
	core := newTestCore(3, store)
	idx := core.MkClause([]sat.Lit{v(0).Lit(), v(1).Lit(), v(2).Lit()}, false)

	ante := store.clauseAntecedents(core, idx, v(0).Lit())
	if len(ante) != 2 {
		t.Fatalf("expected 2 antecedents, got %d", len(ante))
	}
	want := map[sat.Lit]bool{v(1).Lit(): true, v(2).Lit(): true}
	for _, l := range ante {
		if !want[l] {
			t.Errorf("unexpected antecedent literal %v", l)
		}
	}
}

// TestResolveConflictSoundness implements spec §8 property I5: a
// cardinality conflict (x1+x2+x3 >= 2, x1 false forces x2 true, then x3
// false leaves no way to reach the bound) produces an asserting lemma
// blaming only the two false decisions.
func TestResolveConflictSoundness(t *testing.T) {
	store := NewStore()
	core := newTestCore(3, store)
	lits := []sat.Lit{v(0).Lit(), v(1).Lit(), v(2).Lit()}
	idx := store.AddAtLeast(core, sat.LitNull, lits, 2, false)
	if idx < 0 {
		t.Fatalf("expected a real cardinality constraint")
	}

	core.PushDecision(v(0).SignedLit(true)) // x1 = false
	if !core.Propagate() {
		t.Fatalf("unexpected conflict after only x1=false")
	}
	if core.Value(v(1).Lit()) != sat.LTrue {
		t.Fatalf("expected x2 forced true after x1=false, got %v", core.Value(v(1).Lit()))
	}

	core.PushDecision(v(2).SignedLit(true)) // x3 = false
	if core.Propagate() {
		t.Fatalf("expected a conflict once x1 and x3 are both false")
	}

	lemma, ok := store.ResolveConflict(core)
	if !ok {
		t.Fatalf("expected ResolveConflict to succeed")
	}
	if len(lemma) == 0 {
		t.Fatalf("expected a non-empty lemma")
	}
	// The asserting (first-UIP) literal sits at index 0 and must blame
	// the decision that actually introduced the conflict level, x3.
	if lemma[0].Var() != v(2) {
		t.Errorf("expected the asserting literal to blame x3, got var %v", lemma[0].Var())
	}
}
