package ext

import (
	"math"
	"math/big"
	"sort"

	"github.com/possible-fqz/basolver/sat"
)

// resolver is the explicit per-solver-instance scratchpad spec §9 calls
// out as "global mutable state in conflict resolution": the running
// inequality R: sum coeffs[v]*v >= bound, plus the bookkeeping needed
// to drive the trail walk. Reset at the start of every ResolveConflict.
//
// Grounded on gophersat/solver/learn_pb.go's pbSet/clash/cuttingPlanes,
// generalized from a dense []int per variable to the sparse
// map[sat.Var]int64 spec §3 calls for, since overflow-checked i64/u32
// coefficients don't fit a plain int slice the way gophersat's pbSet
// does.
type resolver struct {
	coeffs     map[sat.Var]int64
	activeVars []sat.Var
	bound      int64
	overflow   bool
	numMarks   uint
}

func (r *resolver) reset() {
	if r.coeffs == nil {
		r.coeffs = make(map[sat.Var]int64)
	} else {
		for k := range r.coeffs {
			delete(r.coeffs, k)
		}
	}
	r.activeVars = r.activeVars[:0]
	r.bound = 0
	r.overflow = false
	r.numMarks = 0
}

// addLitCoeff adds weight to the term for lit's variable, in the sign
// implied by lit's polarity (positive literal -> positive coefficient,
// meaning "v must be true"; negated literal -> negative coefficient,
// meaning "v must be false").
func (r *resolver) addLitCoeff(v sat.Var, weight int64, positive bool) {
	if r.overflow {
		return
	}
	if !positive {
		weight = -weight
	}
	old, existed := r.coeffs[v]
	sum := old + weight
	if overflowsI32(sum) {
		r.overflow = true
		return
	}
	if !existed {
		r.activeVars = append(r.activeVars, v)
	}
	r.coeffs[v] = sum
}

func overflowsI32(x int64) bool {
	return x > math.MaxInt32 || x < math.MinInt32
}

func overflowsU32(x int64) bool {
	return x > math.MaxUint32 || x < 0
}

// clipToBound implements spec §4.5 step 2's "clip to bound to prevent
// coefficient explosion": the multiplier used to scale an antecedent
// is never larger than the current bound.
func (r *resolver) clipToBound(offset int64) int64 {
	if offset > r.bound {
		return r.bound
	}
	if offset < 1 {
		return 1
	}
	return offset
}

func (r *resolver) incBound(delta int64) {
	if r.overflow {
		return
	}
	sum := r.bound + delta
	if overflowsU32(sum) {
		r.overflow = true
		return
	}
	r.bound = sum
}

// cut implements spec §4.5 step 3: divide every nonzero coefficient (and
// round the bound up) by their gcd, bypassed if any coefficient is 1.
func (r *resolver) cut() {
	if r.overflow {
		return
	}
	g := int64(0)
	for _, v := range r.activeVars {
		c := r.coeffs[v]
		if c == 0 {
			continue
		}
		if abs64(c) == 1 {
			return // bypass: at least one unit coefficient
		}
		g = int64(new(big.Int).GCD(nil, nil, big.NewInt(abs64(c)), big.NewInt(g)).Int64())
	}
	if g < 2 {
		return
	}
	for _, v := range r.activeVars {
		c := r.coeffs[v]
		if c == 0 {
			continue
		}
		r.coeffs[v] = c / g
	}
	r.bound = (r.bound + g - 1) / g
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// ResolveConflict implements sat.Extension and spec §4.5. It seeds R
// from the pending conflict, then walks the trail from the top down,
// resolving against each marked literal's reason, until exactly one
// variable at the conflict level remains marked -- the asserting
// literal -- or bails out on overflow.
func (s *Store) ResolveConflict(core sat.CDCLCore) ([]sat.Lit, bool) {
	just, ok := core.Conflict()
	if !ok {
		return nil, false
	}
	r := &s.resolver
	r.reset()
	confLvl := s.seedConflict(core, just, r)
	if r.overflow {
		return nil, false
	}

	for {
		nMarked := s.markActiveAt(core, r, confLvl)
		if nMarked <= 1 {
			break
		}
		p, ok := s.nextMarkedTrailLit(core, r)
		if !ok {
			break
		}
		core.ResetMark(p.Var())
		s.resolveStep(core, r, p)
		if r.overflow {
			s.clearMarks(core, r)
			return nil, false
		}
		r.cut()
	}
	s.clearMarks(core, r)

	lemma, assertLvl, ok := s.buildLemma(core, r, confLvl)
	if !ok {
		return nil, false
	}
	_ = assertLvl
	return s.active2card(core, r, lemma)
}

// seedConflict implements spec §4.5 step 1 and returns the conflict's
// decision level.
func (s *Store) seedConflict(core sat.CDCLCore, just sat.Justification, r *resolver) sat.Level {
	switch just.Kind {
	case sat.JustClause:
		lits := core.ConflictClauseLits()
		for _, l := range lits {
			r.addLitCoeff(l.Var(), 1, l.IsPositive())
		}
		r.incBound(1)
		return maxLvlOf(core, lits)
	case sat.JustExt:
		c := s.byIdx[just.Idx]
		switch c.tag {
		case tagCard:
			for _, l := range c.card.lits {
				r.addLitCoeff(l.Var(), 1, l.IsPositive())
			}
			r.incBound(int64(c.card.k))
			return maxLvlOf(core, c.card.lits)
		case tagPB:
			for _, t := range c.pb.terms {
				r.addLitCoeff(t.lit.Var(), int64(t.weight), t.lit.IsPositive())
			}
			r.incBound(int64(c.pb.k))
			lits := make([]sat.Lit, len(c.pb.terms))
			for i, t := range c.pb.terms {
				lits[i] = t.lit
			}
			return maxLvlOf(core, lits)
		case tagXor:
			for _, l := range c.xor.lits {
				r.addLitCoeff(l.Var(), 1, l.IsPositive())
			}
			r.incBound(1)
			return maxLvlOf(core, c.xor.lits)
		}
	}
	panic("ext: seedConflict given an unrecognized justification kind")
}

func maxLvlOf(core sat.CDCLCore, lits []sat.Lit) sat.Level {
	max := sat.Level(0)
	for _, l := range lits {
		if lv := core.Lvl(l); lv > max {
			max = lv
		}
	}
	return max
}

// markActiveAt marks (core.Mark) every active variable whose coefficient
// is nonzero and whose level equals lvl, and returns how many there are.
func (s *Store) markActiveAt(core sat.CDCLCore, r *resolver, lvl sat.Level) int {
	n := 0
	for _, v := range r.activeVars {
		if r.coeffs[v] == 0 {
			continue
		}
		var lit sat.Lit
		if r.coeffs[v] > 0 {
			lit = v.SignedLit(false)
		} else {
			lit = v.SignedLit(true)
		}
		if core.Lvl(lit) != lvl {
			continue
		}
		core.Mark(v)
		n++
	}
	r.numMarks = uint(n)
	return n
}

// nextMarkedTrailLit walks the trail from the top, returning the first
// literal that is both marked and still active (nonzero coefficient in
// R). A variable can stay marked after its coefficient has been
// cancelled to 0 by a different variable's resolution step (only the
// chosen resolvent itself gets core.ResetMark) -- such a stale mark
// must never be selected to resolve against, so it is cleared here and
// the scan continues instead of returning it.
func (s *Store) nextMarkedTrailLit(core sat.CDCLCore, r *resolver) (sat.Lit, bool) {
	trail := core.Trail()
	for i := len(trail) - 1; i >= 0; i-- {
		p := trail[i]
		v := p.Var()
		if !core.IsMarked(v) {
			continue
		}
		if r.coeffs[v] == 0 {
			core.ResetMark(v)
			continue
		}
		return p, true
	}
	return 0, false
}

// resolveStep implements spec §4.5 step 2: resolve R against p's
// reason, then cancel p's own term explicitly.
func (s *Store) resolveStep(core sat.CDCLCore, r *resolver, p sat.Lit) {
	c := r.coeffs[p.Var()]
	if c == 0 {
		// p's coefficient was already cancelled to 0 by an earlier
		// resolution step (ba_solver.cpp's "offset == 0 -> goto
		// process_next_resolvent"): p has no net contribution left to
		// resolve against, so leave R untouched.
		delete(r.coeffs, p.Var())
		return
	}
	just := core.JustificationOf(p)
	offset := r.clipToBound(abs64(c))

	switch just.Kind {
	case sat.JustDecision:
		// a decision literal has no reason to resolve against; simply
		// drop it from the marked set (it becomes part of the lemma).
	case sat.JustClause:
		c2 := s.clauseAntecedents(core, just.Idx, p)
		for _, a := range c2 {
			r.addLitCoeff(a.Var(), offset, a.IsPositive())
		}
		r.incBound(offset)
	case sat.JustExt:
		cc := s.byIdx[just.Idx]
		switch cc.tag {
		case tagCard:
			for _, l := range cc.card.lits {
				if l.Var() == p.Var() {
					continue
				}
				r.addLitCoeff(l.Var(), offset, l.IsPositive())
			}
			r.incBound(offset * int64(cc.card.k))
		case tagPB:
			for _, t := range cc.pb.terms {
				if t.lit.Var() == p.Var() {
					continue
				}
				r.addLitCoeff(t.lit.Var(), offset*int64(t.weight), t.lit.IsPositive())
			}
			r.incBound(offset)
		case tagXor:
			ante := s.getXorAntecedents(core, cc.xor, p, nil)
			for _, a := range ante {
				r.addLitCoeff(a.Var(), offset, a.IsPositive())
			}
			r.incBound(offset)
		}
	}
	// cancel p's own contribution: its reason's derived term and R's
	// existing term for p annihilate by construction.
	delete(r.coeffs, p.Var())
}

// clauseAntecedents returns the false literals of the clause/binary
// reason at clauseIdx, excluding p's own head position.
func (s *Store) clauseAntecedents(core sat.CDCLCore, clauseIdx int32, p sat.Lit) []sat.Lit {
	lits := core.ClauseLits(clauseIdx)
	out := make([]sat.Lit, 0, len(lits)-1)
	for _, l := range lits {
		if l.Var() != p.Var() {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) clearMarks(core sat.CDCLCore, r *resolver) {
	for _, v := range r.activeVars {
		core.ResetMark(v)
	}
}

// buildLemma implements spec §4.5's final paragraph of step 4 plus the
// "asserting lemma construction" paragraph: scan active_vars,
// classifying literals by level; literals at the conflict level form
// the asserting prefix. If no asserting literal is produced, lower the
// conflict level to the max remaining level and retry (dynamic
// backjump) -- here approximated as a single pass since the trail walk
// above already drives numMarks to <= 1.
func (s *Store) buildLemma(core sat.CDCLCore, r *resolver, confLvl sat.Level) ([]sat.Lit, sat.Level, bool) {
	type litCoeff struct {
		lit  sat.Lit
		c    int64
		lvl  sat.Level
	}
	var terms []litCoeff
	for _, v := range r.activeVars {
		c := r.coeffs[v]
		if c == 0 {
			continue
		}
		var lit sat.Lit
		if c > 0 {
			lit = v.SignedLit(false)
		} else {
			lit = v.SignedLit(true)
		}
		terms = append(terms, litCoeff{lit: lit, c: abs64(c), lvl: core.Lvl(lit)})
	}
	if len(terms) == 0 {
		return nil, 0, false
	}
	assertIdx := -1
	bestW := int64(-1)
	for i, t := range terms {
		if t.lvl == confLvl && t.c > bestW {
			bestW = t.c
			assertIdx = i
		}
	}
	if assertIdx < 0 {
		return nil, 0, false
	}
	lemma := make([]sat.Lit, 0, len(terms))
	lemma = append(lemma, terms[assertIdx].lit)
	for i, t := range terms {
		if i == assertIdx {
			continue
		}
		lemma = append(lemma, t.lit)
	}
	return lemma, confLvl, true
}

// active2card implements spec §4.5's final paragraph and
// ba_solver.cpp's active2card(): try to restate R as a tighter
// cardinality constraint and register it for future propagation,
// purely as a side effect -- the asserting lemma returned to the
// caller is always buildLemma's plain disjunction, unaffected by
// whether this succeeds (the original discards active2card's own
// return value at its call site for exactly this reason).
//
// Sort R's active terms by weight descending, take the smallest
// prefix whose cumulative weight crosses the bound (its length is the
// candidate cardinality k), then trim trailing low-weight terms off
// the full list as long as the trimmed tail still can't re-cross the
// bound on its own. If the result isn't actually asserting (at least k
// of its literals could still become true), or the prefix was the
// whole set (k==1, no tightening), skip registering anything.
func (s *Store) active2card(core sat.CDCLCore, r *resolver, lemma []sat.Lit) ([]sat.Lit, bool) {
	type wlit struct {
		weight int64
		lit    sat.Lit
	}
	seen := make(map[sat.Var]bool, len(r.activeVars))
	wlits := make([]wlit, 0, len(r.activeVars))
	for _, v := range r.activeVars {
		if seen[v] {
			continue
		}
		seen[v] = true
		c := r.coeffs[v]
		if c == 0 {
			continue
		}
		lit := v.SignedLit(false)
		if c < 0 {
			lit = v.SignedLit(true)
		}
		wlits = append(wlits, wlit{weight: abs64(c), lit: lit})
	}
	sort.Slice(wlits, func(i, j int) bool { return wlits[i].weight > wlits[j].weight })

	k := 0
	sum, sum0 := int64(0), int64(0)
	for _, wl := range wlits {
		if sum >= r.bound {
			break
		}
		sum0 = sum
		sum += wl.weight
		k++
	}
	if k <= 1 {
		return lemma, true
	}
	for len(wlits) > 0 {
		tail := wlits[len(wlits)-1]
		if tail.weight+sum0 >= r.bound {
			break
		}
		wlits = wlits[:len(wlits)-1]
		sum0 += tail.weight
	}

	slack := 0
	for _, wl := range wlits {
		if core.Value(wl.lit) != sat.LFalse {
			slack++
		}
	}
	if slack >= k {
		return lemma, true // not asserting as a cardinality: nothing to register
	}

	cardLits := make([]sat.Lit, len(wlits))
	for i, wl := range wlits {
		cardLits[i] = wl.lit
	}
	idx := s.AddAtLeast(core, sat.LitNull, cardLits, k, true)
	if idx >= 0 {
		falseLits := make([]sat.Lit, 0, len(cardLits))
		for _, l := range cardLits {
			if core.Value(l) == sat.LFalse {
				falseLits = append(falseLits, l)
			}
		}
		seen := make(map[sat.Level]bool, len(falseLits))
		for _, l := range falseLits {
			seen[core.Lvl(l)] = true
		}
		if c := s.byIdx[idx]; c != nil {
			c.glue = len(seen)
		}
	}
	return lemma, true
}
