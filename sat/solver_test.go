package sat

import "testing"

func lit(v int32, neg bool) Lit {
	return Var(v).SignedLit(neg)
}

func TestUnitPropagation(t *testing.T) {
	s := New(3, nil)
	// (x0) & (~x0 v x1) & (~x1 v x2)
	s.MkClause([]Lit{lit(0, false)}, false)
	s.MkClause([]Lit{lit(0, true), lit(1, false)}, false)
	s.MkClause([]Lit{lit(1, true), lit(2, false)}, false)
	if ok := s.Propagate(); !ok {
		t.Fatalf("expected no conflict")
	}
	for i, want := range []LBool{LTrue, LTrue, LTrue} {
		if got := s.Value(Var(i).Lit()); got != want {
			t.Errorf("var %d: got %v, want %v", i, got, want)
		}
	}
}

func TestConflictAtRoot(t *testing.T) {
	s := New(1, nil)
	s.MkClause([]Lit{lit(0, false)}, false)
	s.MkClause([]Lit{lit(0, true)}, false)
	if s.Propagate() {
		t.Fatalf("expected conflict")
	}
}

func TestSolveSimpleSat(t *testing.T) {
	s := New(2, nil)
	s.MkClause([]Lit{lit(0, false), lit(1, false)}, false)
	s.MkClause([]Lit{lit(0, true), lit(1, true)}, false)
	if status := s.Solve(); status != PropTrue {
		t.Fatalf("expected sat, got %v", status)
	}
	m := s.Model()
	if m[0] == m[1] {
		t.Errorf("expected x0 != x1, got %v %v", m[0], m[1])
	}
}

func TestBacktrackUnassigns(t *testing.T) {
	s := New(2, nil)
	s.PushDecision(lit(0, false))
	s.PushDecision(lit(1, false))
	if s.Value(lit(1, false)) != LTrue {
		t.Fatalf("expected x1 true after decision")
	}
	s.Backtrack(1)
	if s.Value(lit(1, false)) != LUndef {
		t.Errorf("expected x1 undef after backtrack, got %v", s.Value(lit(1, false)))
	}
	if s.Value(lit(0, false)) != LTrue {
		t.Errorf("expected x0 still true after partial backtrack")
	}
}
