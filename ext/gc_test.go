package ext

import (
	"testing"

	"github.com/possible-fqz/basolver/sat"
)

// TestGCPrunesWorseHalf implements spec §4.7: once the learned/problem
// ratio crosses the trigger, GC removes (roughly) the worse-scoring
// half of the learned constraints and leaves the rest.
func TestGCPrunesWorseHalf(t *testing.T) {
	store := NewStore()
	core := newTestCore(8, store)

	// one problem constraint, so the 2x trigger needs >=2 learned ones.
	if idx := store.AddAtLeast(core, sat.LitNull, []sat.Lit{v(0).Lit(), v(1).Lit()}, 2, false); idx < 0 {
		t.Fatalf("expected a real cardinality constraint, got degenerate clause")
	}

	var idxs []int32
	for i := int32(2); i < 8; i += 2 {
		idx := store.AddAtLeast(core, sat.LitNull, []sat.Lit{v(i).Lit(), v(i + 1).Lit()}, 2, true)
		if idx < 0 {
			t.Fatalf("expected a real cardinality constraint, got degenerate clause")
		}
		idxs = append(idxs, idx)
	}
	// give each learned constraint a distinct glue so GC's ranking is
	// deterministic: lower glue survives.
	for i, idx := range idxs {
		store.byIdx[idx].glue = i + 1
	}

	savedPhase := make([]sat.LBool, 8)
	before := len(store.learned)
	store.GC(core, savedPhase)

	if len(store.learned) >= before {
		t.Fatalf("expected GC to shrink the learned set: before=%d after=%d", before, len(store.learned))
	}
	for _, c := range store.learned {
		if c.glue > len(idxs)/2+1 {
			t.Errorf("expected only low-glue (better) learned constraints to survive, found glue %d", c.glue)
		}
	}
}
