package ext

import "github.com/possible-fqz/basolver/sat"

// negatePB applies De Morgan on a weighted `>= k`: `sum a_i*l_i >= k`
// becomes, negated, `sum a_i*~l_i >= maxSum - k + 1`.
func negatePB(p *pbConstraint) {
	for i, t := range p.terms {
		p.terms[i].lit = t.lit.Negation()
	}
	p.k = p.maxSum - p.k + 1
}

// initWatchPB implements spec §4.3.1: normalize polarity as in card,
// sweep the body moving non-false terms to the prefix, grow the
// watched prefix greedily while slack <= k.
//
// Grounded on ba_solver.cpp's pb::init_watch for the watch-growth loop
// shape, cross-checked against gophersat/solver/problem.go's
// simplifyPB for the Go-native true_val/slack accounting idiom.
func (s *Store) initWatchPB(core sat.CDCLCore, c *constraint, idx int32, isTrue bool) {
	p := c.pb
	if !isTrue {
		s.clearWatch(core, c, idx)
		negatePB(p)
	}
	n := len(p.terms)
	j := 0
	for i := 0; i < n; i++ {
		if core.Value(p.terms[i].lit) != sat.LFalse {
			p.terms[i], p.terms[j] = p.terms[j], p.terms[i]
			j++
		}
	}
	slack := 0
	w := 0
	for w < j && slack <= p.k {
		slack += p.terms[w].weight
		w++
	}
	p.numWatch = w
	p.slack = slack
	if slack < p.k {
		best := w // first false term, at position j (== w here since w==j)
		if best >= n {
			best = n - 1
		}
		bestLvl := core.Lvl(p.terms[best].lit)
		for i := j; i < n; i++ {
			if lv := core.Lvl(p.terms[i].lit); lv > bestLvl {
				bestLvl = lv
				best = i
			}
		}
		p.terms[j], p.terms[best] = p.terms[best], p.terms[j]
		if p.numWatch <= j {
			p.numWatch = j + 1
		}
		watchPBPrefix(core, p, idx)
		core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
		return
	}
	watchPBPrefix(core, p, idx)
	remaining := 0
	for i := w; i < j; i++ {
		remaining += p.terms[i].weight
	}
	if slack+remaining == p.k {
		for i := 0; i < w; i++ {
			if core.Value(p.terms[i].lit) == sat.LUndef {
				if !core.Assign(p.terms[i].lit, sat.Justification{Kind: sat.JustExt, Idx: idx}) {
					core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
					return
				}
			}
		}
	}
}

func watchPBPrefix(core sat.CDCLCore, p *pbConstraint, idx int32) {
	for i := 0; i < p.numWatch && i < len(p.terms); i++ {
		wl := core.GetWList(p.terms[i].lit.Negation())
		*wl = append(*wl, sat.WatchEntry{IsExt: true, ExtIdx: idx})
	}
}

// addAssignPB implements spec §4.3.2.
func (s *Store) addAssignPB(core sat.CDCLCore, c *constraint, idx int32, aLit sat.Lit) bool {
	p := c.pb
	pos := -1
	for i := 0; i < p.numWatch; i++ {
		if p.terms[i].lit == aLit {
			pos = i
			break
		}
	}
	if pos < 0 {
		panic("ext: addAssignPB called with a literal outside the watched prefix")
	}
	w := p.terms[pos].weight
	p.slack -= w

	aMax := 0
	for i := 0; i < p.numWatch; i++ {
		if core.Value(p.terms[i].lit) == sat.LUndef && p.terms[i].weight > aMax {
			aMax = p.terms[i].weight
		}
	}

	n := len(p.terms)
	for p.slack < p.k+aMax && p.numWatch < n {
		found := -1
		for i := p.numWatch; i < n; i++ {
			if core.Value(p.terms[i].lit) != sat.LFalse {
				found = i
				break
			}
		}
		if found < 0 {
			break
		}
		p.terms[p.numWatch], p.terms[found] = p.terms[found], p.terms[p.numWatch]
		term := p.terms[p.numWatch]
		p.slack += term.weight
		wl := core.GetWList(term.lit.Negation())
		*wl = append(*wl, sat.WatchEntry{IsExt: true, ExtIdx: idx})
		p.numWatch++
		if core.Value(term.lit) == sat.LUndef && term.weight > aMax {
			aMax = term.weight
		}
	}

	if p.slack < p.k {
		p.slack += w // restore
		core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
		return true
	}

	// swap aLit out of the watched prefix
	p.numWatch--
	p.terms[pos], p.terms[p.numWatch] = p.terms[p.numWatch], p.terms[pos]

	for i := 0; i < p.numWatch; i++ {
		t := p.terms[i]
		if core.Value(t.lit) == sat.LUndef && p.slack < p.k+t.weight {
			if !core.Assign(t.lit, sat.Justification{Kind: sat.JustExt, Idx: idx}) {
				core.SetConflict(sat.Justification{Kind: sat.JustExt, Idx: idx})
				return false
			}
		}
	}
	if c.learned {
		recomputeGluePB(core, c)
	}
	return false
}

func recomputeGluePB(core sat.CDCLCore, c *constraint) {
	seen := make(map[sat.Level]bool)
	for _, t := range c.pb.terms {
		seen[core.Lvl(t.lit)] = true
	}
	if g := len(seen); g < c.glue || c.glue == 0 {
		c.glue = g
	}
}

// pbAntecedents appends the negation of every false term's literal
// except lit's own.
func pbAntecedents(p *pbConstraint, lit sat.Lit, out []sat.Lit) []sat.Lit {
	for _, t := range p.terms {
		if t.lit == lit {
			continue
		}
		out = append(out, t.lit.Negation())
	}
	return out
}

// recompilePB implements spec §4.3.3: after simplification may have
// merged opposite polarities of the same variable, consolidate the
// body, possibly demoting to a cardinality constraint.
//
// Returns a *cardConstraint when the pb can be promoted/demoted to a
// cardinality, or nil if p remains a genuine pb (p is updated in
// place either way).
func recompilePB(p *pbConstraint) *cardConstraint {
	byVar := make(map[sat.Var][2]int) // [0]=weight on positive lit, [1]=weight on negative lit
	order := make([]sat.Var, 0, len(p.terms))
	for _, t := range p.terms {
		v := t.lit.Var()
		w := byVar[v]
		if _, seen := byVar[v]; !seen {
			order = append(order, v)
		}
		if t.lit.IsPositive() {
			w[0] += t.weight
		} else {
			w[1] += t.weight
		}
		byVar[v] = w
	}
	newTerms := make([]pbTerm, 0, len(order))
	maxSum := 0
	for _, v := range order {
		w := byVar[v]
		pos, neg := w[0], w[1]
		reduce := min(pos, neg)
		p.k -= reduce
		eff := pos - neg
		if eff == 0 {
			continue
		}
		var lit sat.Lit
		weight := eff
		if eff > 0 {
			lit = v.SignedLit(false)
		} else {
			lit = v.SignedLit(true)
			weight = -eff
		}
		newTerms = append(newTerms, pbTerm{weight: weight, lit: lit})
		maxSum += weight
	}
	p.terms = newTerms
	p.maxSum = maxSum
	p.size = len(newTerms)
	if p.k <= 0 {
		p.k = 0 // trivially true: caller removes the constraint
		return nil
	}
	allUnit := true
	for _, t := range p.terms {
		if t.weight != 1 {
			allUnit = false
			break
		}
	}
	allSameAsMax := true
	if len(p.terms) > 0 {
		a := p.terms[0].weight
		for _, t := range p.terms {
			if t.weight != a {
				allSameAsMax = false
				break
			}
		}
	}
	if allUnit {
		lits := make([]sat.Lit, len(p.terms))
		for i, t := range p.terms {
			lits[i] = t.lit
		}
		return &cardConstraint{
			header: header{tag: tagCard, reifier: p.reifier, size: len(lits)},
			lits:   lits,
			k:      p.k,
		}
	}
	if allSameAsMax && len(p.terms) > 0 {
		a := p.terms[0].weight
		k := (p.k + a - 1) / a // ceil(k/a)
		lits := make([]sat.Lit, len(p.terms))
		for i, t := range p.terms {
			lits[i] = t.lit
		}
		return &cardConstraint{
			header: header{tag: tagCard, reifier: p.reifier, size: len(lits)},
			lits:   lits,
			k:      k,
		}
	}
	return nil
}
