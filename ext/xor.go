package ext

import "github.com/possible-fqz/basolver/sat"

// initWatchXor implements spec §4.4. Always watches positions 0 and 1.
// isTrue flips every literal's required parity target when the
// reifier settled false (xor has no body-negation degree of freedom
// distinct from the reifier, so this only affects the final forcing
// polarity, not the stored body).
func (s *Store) initWatchXor(core sat.CDCLCore, c *constraint, idx int32, isTrue bool) {
	xc := c.xor
	n := len(xc.lits)
	if n == 0 {
		return
	}
	j := 0
	for i := 0; i < n && j < 2; i++ {
		if core.Value(xc.lits[i]) == sat.LUndef {
			xc.lits[i], xc.lits[j] = xc.lits[j], xc.lits[i]
			j++
		}
	}
	switch j {
	case 2:
		watchXorPair(core, xc, idx)
	case 1:
		watchXorPair(core, xc, idx)
		forceXorLit(core, xc, idx, isTrue, 0)
	case 0:
		parity := xorParity(core, xc.lits)
		if parity == isTrue {
			return // already satisfied
		}
		best := 0
		bestLvl := core.Lvl(xc.lits[0])
		for i := 1; i < n; i++ {
			if lv := core.Lvl(xc.lits[i]); lv > bestLvl {
				bestLvl = lv
				best = i
			}
		}
		xc.lits[0], xc.lits[best] = xc.lits[best], xc.lits[0]
		watchXorPair(core, xc, idx)
		core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
	}
}

func watchXorPair(core sat.CDCLCore, xc *xorConstraint, idx int32) {
	for i := 0; i < 2 && i < len(xc.lits); i++ {
		l := xc.lits[i]
		wl := core.GetWList(l)
		*wl = append(*wl, sat.WatchEntry{IsExt: true, ExtIdx: idx})
		wl2 := core.GetWList(l.Negation())
		*wl2 = append(*wl2, sat.WatchEntry{IsExt: true, ExtIdx: idx})
	}
}

// forceXorLit propagates xc.lits[pos] with the polarity that makes the
// whole xor equal isTrue, given every other literal is already
// assigned.
func forceXorLit(core sat.CDCLCore, xc *xorConstraint, idx int32, isTrue bool, pos int) {
	parity := false
	for i, l := range xc.lits {
		if i == pos {
			continue
		}
		if core.Value(l) == sat.LTrue {
			parity = !parity
		}
	}
	want := isTrue != parity // need lits[pos] true iff this flips parity to isTrue
	target := xc.lits[pos]
	if !want {
		target = target.Negation()
	}
	if !core.Assign(target, sat.Justification{Kind: sat.JustExt, Idx: idx}) {
		core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
	}
}

func xorParity(core sat.CDCLCore, lits []sat.Lit) bool {
	parity := false
	for _, l := range lits {
		if core.Value(l) == sat.LTrue {
			parity = !parity
		}
	}
	return parity
}

// addAssignXor implements spec §4.4's add_assign: searches for another
// unassigned literal to take aLit's watched slot; failing that, forces
// the other watched literal per parity.
func (s *Store) addAssignXor(core sat.CDCLCore, c *constraint, idx int32, aLit sat.Lit) bool {
	xc := c.xor
	pos := -1
	if len(xc.lits) > 0 && xc.lits[0].Var() == aLit.Var() {
		pos = 0
	} else if len(xc.lits) > 1 && xc.lits[1].Var() == aLit.Var() {
		pos = 1
	}
	if pos < 0 {
		panic("ext: addAssignXor called with a literal outside the watched pair")
	}
	for i := 2; i < len(xc.lits); i++ {
		if core.Value(xc.lits[i]) == sat.LUndef {
			xc.lits[pos], xc.lits[i] = xc.lits[i], xc.lits[pos]
			l := xc.lits[pos]
			wl := core.GetWList(l)
			*wl = append(*wl, sat.WatchEntry{IsExt: true, ExtIdx: idx})
			wl2 := core.GetWList(l.Negation())
			*wl2 = append(*wl2, sat.WatchEntry{IsExt: true, ExtIdx: idx})
			return false
		}
	}
	other := 1 - pos
	if other >= len(xc.lits) {
		return true
	}
	if core.Value(xc.lits[other]) != sat.LUndef {
		// both watched slots resolved: check parity directly
		parity := xorParity(core, xc.lits)
		isTrue := c.reifier == sat.LitNull || core.Value(c.reifier) == sat.LTrue
		if parity != isTrue {
			core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
		}
		return true
	}
	isTrue := c.reifier == sat.LitNull || core.Value(c.reifier) == sat.LTrue
	forceXorLit(core, xc, idx, isTrue, other)
	return true
}

// getXorAntecedents implements spec §4.5 step 2's parity resolution:
// walk the trail doing parity resolution (a variable appearing an even
// number of times cancels) to obtain a clause-like antecedent set.
// Since every term of a well-formed xor is already a distinct
// variable, this reduces to "every other literal, in the polarity that
// makes it false", matching get_antecedents for card/pb.
func (s *Store) getXorAntecedents(core sat.CDCLCore, xc *xorConstraint, lit sat.Lit, out []sat.Lit) []sat.Lit {
	for _, l := range xc.lits {
		if l.Var() == lit.Var() {
			continue
		}
		if core.Value(l) == sat.LTrue {
			out = append(out, l.Negation())
		} else {
			out = append(out, l)
		}
	}
	return out
}
