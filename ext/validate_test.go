package ext

import (
	"testing"

	"github.com/possible-fqz/basolver/sat"
)

// TestWellFormedDetectsDuplicate implements spec §8's I3: a constraint
// body mentioning the same variable twice is flagged.
func TestWellFormedDetectsDuplicate(t *testing.T) {
	store := NewStore()
	cc := &cardConstraint{
		header: header{tag: tagCard, size: 2},
		lits:   []sat.Lit{v(0).Lit(), v(0).Lit()},
		k:      1,
	}
	store.newIdx(&constraint{header: cc.header, card: cc}, false)

	if problems := store.WellFormed(); len(problems) == 0 {
		t.Fatalf("expected WellFormed to flag the duplicate variable")
	}
}

// TestCheckWatchCoverageCleanAfterInit implements I1: right after
// construction, a cardinality constraint's watched prefix is correctly
// registered on the core's watch lists.
func TestCheckWatchCoverageCleanAfterInit(t *testing.T) {
	store := NewStore()
	core := newTestCore(3, store)
	idx := store.AddAtLeast(core, sat.LitNull, []sat.Lit{v(0).Lit(), v(1).Lit(), v(2).Lit()}, 2, false)
	if idx < 0 {
		t.Fatalf("expected a real cardinality constraint")
	}
	if problems := store.CheckWatchCoverage(core); len(problems) != 0 {
		t.Errorf("unexpected watch coverage problems: %v", problems)
	}
}

// TestCheckReifierDoubleWatch implements I4: a reified constraint is
// watched on both polarities of its reifier regardless of the reifier's
// current truth value.
func TestCheckReifierDoubleWatch(t *testing.T) {
	store := NewStore()
	core := newTestCore(4, store)
	reifier := v(3).Lit()
	idx := store.AddAtLeast(core, reifier, []sat.Lit{v(0).Lit(), v(1).Lit(), v(2).Lit()}, 2, false)
	if idx < 0 {
		t.Fatalf("expected a real cardinality constraint")
	}
	if problems := store.CheckReifierDoubleWatch(core); len(problems) != 0 {
		t.Errorf("unexpected reifier double-watch problems: %v", problems)
	}
}

// TestCheckLemmaSoundUnitResolvent builds a conflict through two plain
// clauses, (x1 v x2) and (x1 v ~x2), with x1 decided false: x2 is forced
// both true and false, producing a unit lemma "x1" whose soundness
// CheckLemmaSound (I5) verifies directly.
func TestCheckLemmaSoundUnitResolvent(t *testing.T) {
	store := NewStore()
	core := newTestCore(2, store)
	core.MkClause([]sat.Lit{v(0).Lit(), v(1).Lit()}, false)
	core.MkClause([]sat.Lit{v(0).Lit(), v(1).SignedLit(true)}, false)

	core.PushDecision(v(0).SignedLit(true)) // x1 = false
	if core.Propagate() {
		t.Fatalf("expected a conflict once x2 is forced both ways")
	}

	lemma, ok := store.ResolveConflict(core)
	if !ok {
		t.Fatalf("expected ResolveConflict to succeed")
	}
	if len(lemma) != 1 || lemma[0].Var() != v(0) {
		t.Fatalf("expected a unit lemma over x1, got %v", lemma)
	}
	if problems := CheckLemmaSound(core, lemma); len(problems) != 0 {
		t.Errorf("unexpected lemma soundness problems: %v", problems)
	}
}
