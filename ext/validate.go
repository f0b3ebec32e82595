package ext

import "github.com/possible-fqz/basolver/sat"

// WellFormed implements spec §8's I3: each variable occurs at most once
// in any constraint body; every coefficient in a pb is <= k. Exported
// for use directly from _test.go files, the way rhartert/yass's tests
// call internal helpers in the same package rather than through a
// public API -- these checks are deliberately not run on every
// operation, since that would defeat the point of a fast watch scheme
// (the same trade-off gophersat makes, leaving such checks to tests).
func (s *Store) WellFormed() []string {
	var problems []string
	for _, c := range append(append([]*constraint{}, s.constraints...), s.learned...) {
		if c.removed {
			continue
		}
		seen := make(map[sat.Var]bool)
		n := c.bodySize()
		for i := 0; i < n; i++ {
			v := c.bodyLit(i).Var()
			if seen[v] {
				problems = append(problems, "duplicate variable in constraint body")
			}
			seen[v] = true
			if c.reifier != sat.LitNull && v == c.reifier.Var() {
				problems = append(problems, "reifier appears in its own body")
			}
		}
		if c.tag == tagPB {
			for _, t := range c.pb.terms {
				if t.weight > c.pb.k {
					problems = append(problems, "pb coefficient exceeds bound")
				}
			}
		}
	}
	return problems
}

// CheckWatchCoverage implements I1 (card) and I2 (pb): for every
// non-removed constraint with lit=null or value(lit)=true, the watched
// prefix's literals are each on the watch list of their negation, and
// for pb, slack matches the sum of watched-and-not-false weights and is
// >= k unless in conflict.
func (s *Store) CheckWatchCoverage(core sat.CDCLCore) []string {
	var problems []string
	for idx, c := range s.byIdx {
		if c.removed {
			continue
		}
		if c.reifier != sat.LitNull && core.Value(c.reifier) != sat.LTrue {
			continue
		}
		n := watchedPrefixLen(c)
		bodyN := c.bodySize()
		for i := 0; i < n && i < bodyN; i++ {
			lit := c.bodyLit(i)
			if !watchListContains(core, lit.Negation(), idx) {
				problems = append(problems, "watch coverage violated")
			}
		}
		if c.tag == tagPB {
			p := c.pb
			sum := 0
			for i := 0; i < p.numWatch; i++ {
				if core.Value(p.terms[i].lit) != sat.LFalse {
					sum += p.terms[i].weight
				}
			}
			if sum != p.slack {
				problems = append(problems, "pb slack bookkeeping diverged from watched weights")
			}
			if p.slack < p.k {
				if _, inConflict := core.Conflict(); !inConflict {
					problems = append(problems, "pb slack below k outside a conflict")
				}
			}
		}
	}
	return problems
}

func watchListContains(core sat.CDCLCore, lit sat.Lit, idx int32) bool {
	for _, we := range *core.GetWList(lit) {
		if we.IsExt && we.ExtIdx == idx {
			return true
		}
	}
	return false
}

// CheckReifierDoubleWatch implements I4: if lit != null_literal, both
// lit and ~lit appear in its watch list pointing back to the
// constraint.
func (s *Store) CheckReifierDoubleWatch(core sat.CDCLCore) []string {
	var problems []string
	for idx, c := range s.byIdx {
		if c.removed || c.reifier == sat.LitNull {
			continue
		}
		if !watchListContains(core, c.reifier, idx) || !watchListContains(core, c.reifier.Negation(), idx) {
			problems = append(problems, "reifier missing double watch")
		}
	}
	return problems
}

// CheckLemmaSound implements I5: after ResolveConflict returns a
// lemma, every literal in it is currently false, and exactly one is at
// the highest decision level among its literals (the asserting literal).
func CheckLemmaSound(core sat.CDCLCore, lemma []sat.Lit) []string {
	var problems []string
	atCur := 0
	cur := core.Lvl(lemma[0])
	for _, l := range lemma {
		if lv := core.Lvl(l); lv > cur {
			cur = lv
		}
	}
	for _, l := range lemma {
		if core.Value(l) != sat.LFalse {
			problems = append(problems, "lemma literal not false")
		}
		if core.Lvl(l) == cur {
			atCur++
		}
	}
	if atCur != 1 {
		problems = append(problems, "lemma does not have exactly one literal at the conflict level")
	}
	return problems
}
