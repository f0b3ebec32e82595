package ext

import (
	"log"

	"github.com/possible-fqz/basolver/sat"
)

// Store owns every card/pb/xor constraint in two disjoint collections
// (spec §3 "Ownership"): constraints (problem) and learned (derived).
// Watches themselves live on the core's per-literal watch lists
// (core.GetWList), each entry tagged IsExt with ExtIdx keying into
// byIdx -- this mirrors gophersat.watcherList.wlist generalized
// from "points at a *Clause" to "points at any of the three tags".
type Store struct {
	constraints []*constraint // problem (non-learned) constraints
	learned     []*constraint
	nextID      int32

	// byIdx maps every constraint's stable int32 index, the
	// "ext_constraint_idx" of spec §9, to the constraint. Problem and
	// learned constraints draw indices from the same counter (nextID),
	// so every index is non-negative and none is reused.
	byIdx map[int32]*constraint

	// reinit is the queue of learned constraints (by idx) added at a
	// non-root level, awaiting PopReinit's call to init_watch after the
	// next backjump crosses their creation level (spec §4.1 lifecycle).
	reinit []int32

	// pushMark records, for each Push, the length of learned at that
	// point, so Pop(n) can discard constraints learned
	// since the n-th most recent snapshot (spec §5 "Backtracking pop").
	pushMark []int

	resolver resolver

	Logger *log.Logger
}

// NewStore creates an empty constraint store whose Logger starts as
// log.Default(), mirroring gophersat.Solver.Verbose gating fmt.Printf
// diagnostics via an optional logger instead.
func NewStore() *Store {
	return &Store{
		byIdx:  make(map[int32]*constraint),
		Logger: log.Default(),
	}
}

func (s *Store) newIdx(c *constraint, learned bool) int32 {
	idx := s.nextID
	s.nextID++
	c.id = idx
	s.byIdx[idx] = c
	if learned {
		s.learned = append(s.learned, c)
	} else {
		s.constraints = append(s.constraints, c)
	}
	return idx
}

func (s *Store) get(idx int32) *constraint {
	c := s.byIdx[idx]
	if c == nil {
		panic("ext: dangling constraint index accessed")
	}
	return c
}

// AddAtLeast implements spec §4.1's add_at_least. reifier may be
// sat.LitNull for an unreified ("asserted") constraint. Degenerate
// delegation: k=1 unreified hands the disjunction straight to the core
// as a plain clause and returns -1 (no extension constraint created).
func (s *Store) AddAtLeast(core sat.CDCLCore, reifier sat.Lit, lits []sat.Lit, k int, learned bool) int32 {
	if reifier == sat.LitNull && k == 1 {
		core.MkClause(append([]sat.Lit(nil), lits...), learned)
		return -1
	}
	cc := &cardConstraint{
		header: header{tag: tagCard, reifier: reifier, size: len(lits), learned: learned},
		lits:   append([]sat.Lit(nil), lits...),
		k:      k,
	}
	c := &constraint{header: cc.header, card: cc}
	idx := s.newIdx(c, learned)
	s.afterInsert(core, c, idx)
	return idx
}

// AddPBGe implements spec §4.1's add_pb_ge. Delegates to AddAtLeast
// when every weight is 1 or k==1; returns -1 without creating anything
// when k<=0 and unreified (trivially satisfied).
func (s *Store) AddPBGe(core sat.CDCLCore, reifier sat.Lit, lits []sat.Lit, weights []int, k int, learned bool) int32 {
	if len(lits) != len(weights) {
		panic("ext: AddPBGe called with mismatched lits/weights lengths")
	}
	if reifier == sat.LitNull && k <= 0 {
		return -1
	}
	allUnit := true
	for _, w := range weights {
		if w != 1 {
			allUnit = false
			break
		}
	}
	if allUnit || k == 1 {
		// k passes through unclamped, as add_pb_ge does: a k exceeding
		// len(lits) reaches initWatchCard's j < k branch and raises an
		// immediate conflict rather than being silently weakened to a
		// trivially-satisfiable "all literals true" constraint.
		return s.AddAtLeast(core, reifier, lits, k, learned)
	}
	terms := make([]pbTerm, len(lits))
	maxSum := 0
	for i, l := range lits {
		w := weights[i]
		if w > k {
			w = k // weights normalized so a_i <= k (spec §3)
		}
		terms[i] = pbTerm{weight: w, lit: l}
		maxSum += w
	}
	pb := &pbConstraint{
		header: header{tag: tagPB, reifier: reifier, size: len(terms), learned: learned},
		terms:  terms,
		k:      k,
		maxSum: maxSum,
	}
	c := &constraint{header: pb.header, pb: pb}
	idx := s.newIdx(c, learned)
	s.afterInsert(core, c, idx)
	return idx
}

// AddXor implements spec §4.1's add_xor.
func (s *Store) AddXor(core sat.CDCLCore, reifier sat.Lit, lits []sat.Lit, learned bool) int32 {
	xc := &xorConstraint{
		header: header{tag: tagXor, reifier: reifier, size: len(lits), learned: learned},
		lits:   append([]sat.Lit(nil), lits...),
	}
	c := &constraint{header: xc.header, xor: xc}
	idx := s.newIdx(c, learned)
	s.afterInsert(core, c, idx)
	return idx
}

// afterInsert implements the rest of spec §4.1: reifier double-watch
// and external marking, direct init_watch for unreified constraints,
// and reinit deferral for learned constraints added at non-root level.
func (s *Store) afterInsert(core sat.CDCLCore, c *constraint, idx int32) {
	if c.reifier != sat.LitNull {
		s.watchLit(core, c.reifier, idx)
		s.watchLit(core, c.reifier.Negation(), idx)
		core.SetExternal(c.reifier.Var())
		if core.Value(c.reifier) == sat.LUndef {
			return // constraint inert until the reifier is assigned
		}
	}
	if c.learned && !core.AtBaseLvl() {
		s.reinit = append(s.reinit, idx)
		return
	}
	isTrue := c.reifier == sat.LitNull || core.Value(c.reifier) == sat.LTrue
	s.initWatch(core, c, idx, isTrue)
}

// watchLit appends an external watch entry for idx onto lit's watch
// list, mirroring gophersat.watcherList.addClause's per-literal append.
func (s *Store) watchLit(core sat.CDCLCore, lit sat.Lit, idx int32) {
	wl := core.GetWList(lit)
	*wl = append(*wl, sat.WatchEntry{IsExt: true, ExtIdx: idx})
}

// clearWatch detaches idx's own body watches (not its reifier
// double-watch, which persists for the constraint's lifetime) from the
// core's watch lists ahead of recompilation or removal (spec §4.1).
func (s *Store) clearWatch(core sat.CDCLCore, c *constraint, idx int32) {
	n := watchedPrefixLen(c)
	for i := 0; i < n && i < c.bodySize(); i++ {
		s.unwatchLit(core, c.bodyLit(i).Negation(), idx)
		if c.tag == tagXor {
			// xor watches both polarities of each watched position
			// (spec §4.4: "always watch positions 0 and 1 (both
			// polarities)"), so both registrations need tearing down.
			s.unwatchLit(core, c.bodyLit(i), idx)
		}
	}
}

func (s *Store) unwatchLit(core sat.CDCLCore, lit sat.Lit, idx int32) {
	wl := core.GetWList(lit)
	for i, we := range *wl {
		if we.IsExt && we.ExtIdx == idx {
			(*wl)[i] = (*wl)[len(*wl)-1]
			*wl = (*wl)[:len(*wl)-1]
			return
		}
	}
}

// watchedPrefixLen returns how many leading body positions are
// currently watched, per-tag: card watches min(k+1, size); pb watches
// [0, numWatch); xor always watches exactly 2 (or fewer if size<2).
func watchedPrefixLen(c *constraint) int {
	switch c.tag {
	case tagCard:
		return min(c.card.k+1, len(c.card.lits))
	case tagPB:
		return c.pb.numWatch
	case tagXor:
		return min(2, len(c.xor.lits))
	default:
		return 0
	}
}

// nullifyTrackingLiteral detaches the reifier's own double-watch,
// called only from Remove (spec §4.1 "Removal").
func (s *Store) nullifyTrackingLiteral(core sat.CDCLCore, c *constraint, idx int32) {
	if c.reifier == sat.LitNull {
		return
	}
	s.unwatchLit(core, c.reifier, idx)
	s.unwatchLit(core, c.reifier.Negation(), idx)
}

// Remove lazily deletes idx: sets removed, detaches all watches, and
// leaves it to cleanupConstraints to sweep the slice later (spec §4.1).
func (s *Store) Remove(core sat.CDCLCore, idx int32) {
	c := s.get(idx)
	if c.removed {
		return
	}
	c.removed = true
	s.clearWatch(core, c, idx)
	s.nullifyTrackingLiteral(core, c, idx)
}

// cleanupConstraints sweeps removed constraints out of constraints and
// learned via swap-shrink, matching gophersat.Problem.updateStatus's
// in-place compaction. Pointer stability is not required (spec §3).
func (s *Store) cleanupConstraints() {
	s.constraints = compact(s.constraints)
	s.learned = compact(s.learned)
}

func compact(cs []*constraint) []*constraint {
	i := 0
	for i < len(cs) {
		if cs[i].removed {
			cs[i] = cs[len(cs)-1]
			cs = cs[:len(cs)-1]
			continue
		}
		i++
	}
	return cs
}

// Push implements sat.Extension: records the current length of learned
// for a later Pop.
func (s *Store) Push() {
	s.pushMark = append(s.pushMark, len(s.learned))
}

// Pop implements sat.Extension: discards every learned constraint
// added since the n-th most recent Push (spec §5 "Backtracking pop
// discards any learned constraints created after the snapshot").
func (s *Store) Pop(core sat.CDCLCore, n int) {
	for ; n > 0 && len(s.pushMark) > 0; n-- {
		mark := s.pushMark[len(s.pushMark)-1]
		s.pushMark = s.pushMark[:len(s.pushMark)-1]
		for i := len(s.learned) - 1; i >= mark; i-- {
			s.Remove(core, s.learned[i].id)
		}
		if mark < len(s.learned) {
			s.learned = s.learned[:mark]
		}
	}
	s.cleanupConstraints()
	s.rebuildReinit()
}

// rebuildReinit drops any reinit-queue entries whose constraint was
// removed by Pop, and dedups.
func (s *Store) rebuildReinit() {
	kept := s.reinit[:0]
	seen := make(map[int32]bool, len(s.reinit))
	for _, idx := range s.reinit {
		c, ok := s.byIdx[idx]
		if !ok || c.removed || seen[idx] {
			continue
		}
		seen[idx] = true
		kept = append(kept, idx)
	}
	s.reinit = kept
}

// PopReinit implements sat.Extension: re-establishes watches for
// constraints on the reinit queue after a backjump (spec §4.1
// lifecycle: "placed on a reinit queue and re-watched on the next
// backjump descent").
func (s *Store) PopReinit(core sat.CDCLCore) {
	if len(s.reinit) == 0 {
		return
	}
	pending := s.reinit
	s.reinit = nil
	for _, idx := range pending {
		c, ok := s.byIdx[idx]
		if !ok || c.removed {
			continue
		}
		isTrue := c.reifier == sat.LitNull || core.Value(c.reifier) == sat.LTrue
		if c.reifier != sat.LitNull && core.Value(c.reifier) == sat.LUndef {
			s.reinit = append(s.reinit, idx)
			continue
		}
		s.initWatch(core, c, idx, isTrue)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
