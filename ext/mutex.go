package ext

import "github.com/possible-fqz/basolver/sat"

// FindMutexes implements the supplemental feature named in spec §6.2
// but never detailed in a component section: recognize at-most-one
// cliques from cardinality constraints of size k+1 (an "at-least-k
// among n=k+1" is logically "at most one literal is false", i.e. the
// negated literals form an at-most-one clique).
//
// Grounded directly on ba_solver.cpp's find_mutexes, since the
// distillation lists this entry point in the external contract table
// without designing it. Implementation reuses the watch registry's
// per-literal constraint list to avoid an extra pass over every
// constraint: for each lit in lits, only the cards already watching
// ~lit are candidates.
func (s *Store) FindMutexes(core sat.CDCLCore, lits []sat.Lit) [][]sat.Lit {
	var mutexes [][]sat.Lit
	seen := make(map[int32]bool)
	for _, l := range lits {
		wl := *core.GetWList(l)
		for _, we := range wl {
			if !we.IsExt || seen[we.ExtIdx] {
				continue
			}
			c := s.byIdx[we.ExtIdx]
			if c == nil || c.removed || c.tag != tagCard {
				continue
			}
			if c.card.k+1 != len(c.card.lits) {
				continue
			}
			seen[we.ExtIdx] = true
			clique := atMostOneClique(c.card, lits)
			if len(clique) >= 2 {
				mutexes = append(mutexes, clique)
			}
		}
	}
	return mutexes
}

// atMostOneClique returns the literals of cc's negated body that also
// appear (negated) in candidates, i.e. the subset of "at most one of
// these is true" that the caller actually cares about.
func atMostOneClique(cc *cardConstraint, candidates []sat.Lit) []sat.Lit {
	want := make(map[sat.Lit]bool, len(candidates))
	for _, l := range candidates {
		want[l] = true
	}
	var clique []sat.Lit
	for _, l := range cc.lits {
		neg := l.Negation()
		if want[neg] {
			clique = append(clique, neg)
		}
	}
	return clique
}
