package ext

import "github.com/possible-fqz/basolver/sat"

// negateCard applies De Morgan on `>= k`: negate every literal and set
// k <- n - k + 1 (spec §4.2.1). Used when the polarity the reifier
// settled on opposes the constraint's stored polarity.
func negateCard(c *cardConstraint) {
	for i, l := range c.lits {
		c.lits[i] = l.Negation()
	}
	c.k = len(c.lits) - c.k + 1
}

// initWatchCard implements spec §4.2.1. Precondition: the reifier, if
// any, already evaluates to isTrue.
//
// Grounded on gophersat/solver/watcher.go's simplifyCardClause (the
// in-place true/unbound/false partitioning shape) and cross-checked
// against ba_solver.cpp's card::init_watch for the "pick the false
// literal of maximum level" conflict tie-break spec.md leaves implicit.
func (s *Store) initWatchCard(core sat.CDCLCore, c *constraint, idx int32, isTrue bool) {
	cc := c.card
	if !isTrue {
		s.clearWatch(core, c, idx) // old watches (if any) are stale after negation
		negateCard(cc)
	}
	n := len(cc.lits)
	k := cc.k
	j := 0
	for i := 0; i < n; i++ {
		if core.Value(cc.lits[i]) != sat.LFalse {
			cc.lits[i], cc.lits[j] = cc.lits[j], cc.lits[i]
			j++
		}
	}
	if k == n {
		// every literal must be true
		for i := 0; i < n; i++ {
			if core.Value(cc.lits[i]) != sat.LTrue {
				if !core.Assign(cc.lits[i], sat.Justification{Kind: sat.JustExt, Idx: idx}) {
					core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
					return
				}
			}
		}
		return
	}
	if j < k {
		// conflict: pick the false literal of max level among [j, n)
		if j == n {
			// no false literal to blame: k exceeds the body size
			core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
			return
		}
		best := j
		bestLvl := core.Lvl(cc.lits[j])
		for i := j + 1; i < n; i++ {
			if lv := core.Lvl(cc.lits[i]); lv > bestLvl {
				bestLvl = lv
				best = i
			}
		}
		cc.lits[j], cc.lits[best] = cc.lits[best], cc.lits[j]
		core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
		return
	}
	if j == k {
		for i := 0; i < j; i++ {
			if !core.Assign(cc.lits[i], sat.Justification{Kind: sat.JustExt, Idx: idx}) {
				core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
				return
			}
		}
		return
	}
	// j > k: watch positions [0, k]
	watchCardPrefix(core, cc, idx, k)
}

func watchCardPrefix(core sat.CDCLCore, cc *cardConstraint, idx int32, k int) {
	for i := 0; i <= k && i < len(cc.lits); i++ {
		wl := core.GetWList(cc.lits[i].Negation())
		*wl = append(*wl, sat.WatchEntry{IsExt: true, ExtIdx: idx})
	}
}

// addAssignCard implements spec §4.2.2: aLit, one of the first k+1
// watched positions, just became false.
func (s *Store) addAssignCard(core sat.CDCLCore, c *constraint, idx int32, aLit sat.Lit) bool {
	cc := c.card
	n := len(cc.lits)
	k := cc.k
	pos := -1
	for i := 0; i <= k && i < n; i++ {
		if cc.lits[i] == aLit {
			pos = i
			break
		}
	}
	if pos < 0 {
		panic("ext: addAssignCard called with a literal outside the watched prefix")
	}
	for i := k + 1; i < n; i++ {
		if core.Value(cc.lits[i]) != sat.LFalse {
			cc.lits[pos], cc.lits[i] = cc.lits[i], cc.lits[pos]
			wl := core.GetWList(cc.lits[pos].Negation())
			*wl = append(*wl, sat.WatchEntry{IsExt: true, ExtIdx: idx})
			return false // drop the old watch on aLit; new one installed above
		}
	}
	// none found: positions [0,k) minus aLit must all be true
	if core.Value(cc.lits[k]) == sat.LFalse {
		core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
		return true
	}
	for i := 0; i < k; i++ {
		if cc.lits[i] == aLit {
			continue
		}
		if !core.Assign(cc.lits[i], sat.Justification{Kind: sat.JustExt, Idx: idx}) {
			core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
			return true
		}
	}
	if c.learned {
		recomputeGlueCard(core, c)
	}
	return true
}

// cardAntecedents appends the negation of every false body literal
// except lit itself (lit's own reason).
func cardAntecedents(cc *cardConstraint, lit sat.Lit, out []sat.Lit) []sat.Lit {
	for _, l := range cc.lits {
		if l == lit {
			continue
		}
		out = append(out, l.Negation())
	}
	return out
}

// recomputeGlueCard recomputes glue (distinct decision levels among the
// body) on successful fan-out propagation of a learned card, lowering
// the stored value if a smaller one is observable (spec §4.2.2
// "Glue update").
func recomputeGlueCard(core sat.CDCLCore, c *constraint) {
	seen := make(map[sat.Level]bool)
	for _, l := range c.card.lits {
		seen[core.Lvl(l)] = true
	}
	if g := len(seen); g < c.glue || c.glue == 0 {
		c.glue = g
	}
}
