package sat

import (
	"fmt"
	"log"
)

// varInfo holds the per-variable bookkeeping the trail needs: current
// binding, decision level, justification, external/marked flags and the
// saved phase (the last value held, which firstUnassigned reuses as the
// polarity of a new decision).
type varInfo struct {
	value      LBool
	level      Level
	just       Justification
	external   bool
	marked     bool
	savedPhase LBool
}

// Stats mirrors gophersat's Stats struct: simple counters useful for
// diagnostics and benchmarking, not consumed by any solving logic.
type Stats struct {
	NbConflicts int
	NbPropagations int
	NbDecisions int
	NbRestarts  int
}

// Solver is the minimal CDCL collaborator named out of scope by the
// spec but needed concretely to drive and test ext: a trail, watch
// lists for plain/binary clauses, unit propagation, and a simple
// decision loop. Grounded on gophersat.Solver.unifyLiteral /
// propagateAndSearch and rhartert/yass/internal/sat.Solver.Propagate /
// enqueue, deliberately smaller than either (no LBD restarts, no clause
// DB GC for plain clauses -- those stay out of scope; its only job is
// to be a faithful driver for ext).
type Solver struct {
	vars    []varInfo
	trail   []Lit
	trailLim []int // trail index at the start of each decision level
	wlist   [][]WatchEntry
	clauses []*Clause

	ext Extension

	conflict     *Justification
	conflictLit  Lit

	Logger *log.Logger
	Stats  Stats
}

// New creates a solver over nbVars variables with no clauses yet. ext
// may be nil if the caller only wants plain-clause solving.
func New(nbVars int, ext Extension) *Solver {
	s := &Solver{
		vars:   make([]varInfo, nbVars),
		wlist:  make([][]WatchEntry, 2*nbVars),
		ext:    ext,
		Logger: log.Default(),
	}
	return s
}

// NumVars implements CDCLCore.
func (s *Solver) NumVars() int { return len(s.vars) }

// Value implements CDCLCore.
func (s *Solver) Value(lit Lit) LBool {
	v := s.vars[lit.Var()].value
	if v == LUndef {
		return LUndef
	}
	if lit.IsPositive() {
		return v
	}
	return v.Opposite()
}

// Lvl implements CDCLCore.
func (s *Solver) Lvl(lit Lit) Level {
	return s.vars[lit.Var()].level
}

// AtBaseLvl implements CDCLCore.
func (s *Solver) AtBaseLvl() bool { return len(s.trailLim) == 0 }

// IsExternal implements CDCLCore.
func (s *Solver) IsExternal(v Var) bool { return s.vars[v].external }

// SetExternal implements CDCLCore.
func (s *Solver) SetExternal(v Var) { s.vars[v].external = true }

// SetNonExternal implements CDCLCore.
func (s *Solver) SetNonExternal(v Var) { s.vars[v].external = false }

// Mark implements CDCLCore.
func (s *Solver) Mark(v Var) { s.vars[v].marked = true }

// IsMarked implements CDCLCore.
func (s *Solver) IsMarked(v Var) bool { return s.vars[v].marked }

// ResetMark implements CDCLCore.
func (s *Solver) ResetMark(v Var) { s.vars[v].marked = false }

// Trail implements CDCLCore.
func (s *Solver) Trail() []Lit { return s.trail }

// JustificationOf implements CDCLCore.
func (s *Solver) JustificationOf(lit Lit) Justification {
	return s.vars[lit.Var()].just
}

// GetWList implements CDCLCore.
func (s *Solver) GetWList(lit Lit) *[]WatchEntry {
	return &s.wlist[lit]
}

// CurLevel returns the current decision level.
func (s *Solver) CurLevel() Level { return Level(len(s.trailLim)) }

// GetMaxLvl implements CDCLCore: the highest level among js strictly
// below lit's own level (0 if none), used for the resolver's dynamic backjump
// when no asserting literal was produced at the conflict level.
func (s *Solver) GetMaxLvl(lit Lit, js []Lit) Level {
	max := Level(0)
	cur := s.Lvl(lit)
	for _, l := range js {
		lv := s.Lvl(l)
		if lv > max && lv < cur {
			max = lv
		}
	}
	return max
}

// Assign implements CDCLCore: enqueues lit as true. Returns false if
// lit was already false (a conflict), true otherwise (including the
// no-op case where lit was already true).
func (s *Solver) Assign(lit Lit, just Justification) bool {
	cur := s.Value(lit)
	if cur == LTrue {
		return true
	}
	if cur == LFalse {
		return false
	}
	v := lit.Var()
	if lit.IsPositive() {
		s.vars[v].value = LTrue
	} else {
		s.vars[v].value = LFalse
	}
	s.vars[v].level = s.CurLevel()
	s.vars[v].just = just
	s.vars[v].savedPhase = s.vars[v].value
	s.trail = append(s.trail, lit)
	s.Stats.NbPropagations++
	return true
}

// SetConflict implements CDCLCore.
func (s *Solver) SetConflict(just Justification) {
	j := just
	s.conflict = &j
}

// Conflict implements CDCLCore.
func (s *Solver) Conflict() (Justification, bool) {
	if s.conflict == nil {
		return Justification{}, false
	}
	return *s.conflict, true
}

// ConflictClauseLits implements CDCLCore.
func (s *Solver) ConflictClauseLits() []Lit {
	if s.conflict == nil || s.conflict.Kind != JustClause {
		panic("sat: ConflictClauseLits called without a pending clause conflict")
	}
	c := s.clauses[s.conflict.Idx]
	return append([]Lit(nil), c.lits...)
}

// ClauseLits implements CDCLCore.
func (s *Solver) ClauseLits(idx int32) []Lit {
	return append([]Lit(nil), s.clauses[idx].lits...)
}

// MkClause implements CDCLCore: registers a (possibly binary) clause
// and watches its first two literals, matching
// gophersat.Solver.AppendClause's shape.
func (s *Solver) MkClause(lits []Lit, learned bool) int32 {
	if len(lits) == 0 {
		panic("sat: MkClause called with empty literal list")
	}
	idx := int32(len(s.clauses))
	c := NewClause(lits, learned)
	s.clauses = append(s.clauses, c)
	if len(lits) == 1 {
		if !s.Assign(lits[0], Justification{Kind: JustClause, Idx: idx}) {
			s.SetConflict(Justification{Kind: JustClause, Idx: idx})
		}
		return idx
	}
	s.watchClause(idx, c)
	return idx
}

func (s *Solver) watchClause(idx int32, c *Clause) {
	w0 := c.Get(0).Negation()
	w1 := c.Get(1).Negation()
	s.wlist[w0] = append(s.wlist[w0], WatchEntry{ClauseIdx: idx, BinOther: c.Get(1)})
	s.wlist[w1] = append(s.wlist[w1], WatchEntry{ClauseIdx: idx, BinOther: c.Get(0)})
}

// AddClause adds a non-learned clause; it is MkClause(lits, false).
func (s *Solver) AddClause(lits []Lit) int32 { return s.MkClause(lits, false) }

// Propagate runs unit propagation to a fixed point. Each call walks the
// trail from its start, dispatching every assigned literal's watch list
// to either a plain clause or, if present, the registered Extension.
// Returns false on conflict, including a conflict already recorded via
// SetConflict before the call.
//
// Grounded on gophersat.Solver.unifyLiteral's dispatch loop and
// rhartert/yass/internal/sat.Solver.Propagate's guard-literal shape.
func (s *Solver) Propagate() bool {
	if s.conflict != nil {
		return false
	}
	qhead := 0
	for qhead < len(s.trail) {
		lit := s.trail[qhead]
		qhead++
		// Watchers for a watched literal m live at wlist[~m] (spec §3:
		// "a literal m appears in watch-list of ~m's watches"); lit,
		// the literal that just became true, equals ~m exactly, so the
		// lookup key is lit itself. falseLit (== m) is the watched
		// literal that just became false, passed on to handlers.
		falseLit := lit.Negation()
		entries := s.wlist[lit]
		keep := entries[:0]
		for i := 0; i < len(entries); i++ {
			we := entries[i]
			if we.IsExt {
				if s.ext == nil {
					panic("sat: external watch entry present with nil Extension")
				}
				if s.ext.Propagate(s, falseLit, we.ExtIdx) {
					keep = append(keep, we)
				}
				if s.conflict != nil {
					keep = append(keep, entries[i+1:]...)
					s.wlist[lit] = keep
					return false
				}
				continue
			}
			if s.Value(we.BinOther) == LTrue {
				keep = append(keep, we)
				continue
			}
			c := s.clauses[we.ClauseIdx]
			status, moved := c.Propagate(s, falseLit)
			switch status {
			case PropFalse:
				keep = append(keep, entries[i+1:]...)
				s.wlist[lit] = keep
				s.SetConflict(Justification{Kind: JustClause, Idx: we.ClauseIdx})
				return false
			case PropTrue:
				keep = append(keep, we)
				if !s.Assign(c.Get(0), Justification{Kind: JustClause, Idx: we.ClauseIdx}) {
					keep = append(keep, entries[i+1:]...)
					s.wlist[lit] = keep
					s.SetConflict(Justification{Kind: JustClause, Idx: we.ClauseIdx})
					return false
				}
			default: // PropUndef
				if moved {
					nw := c.Get(1).Negation()
					s.wlist[nw] = append(s.wlist[nw], WatchEntry{ClauseIdx: we.ClauseIdx, BinOther: c.Get(0)})
				} else {
					keep = append(keep, we)
				}
			}
		}
		s.wlist[lit] = keep
	}
	return true
}

// PushDecision starts a new decision level by assigning lit, decided
// (not forced). Returns false if lit was already false.
func (s *Solver) PushDecision(lit Lit) bool {
	s.trailLim = append(s.trailLim, len(s.trail))
	s.Stats.NbDecisions++
	if s.ext != nil {
		s.ext.Push()
	}
	return s.Assign(lit, Justification{Kind: JustDecision})
}

// Backtrack undoes the trail back to the given decision level,
// unassigning every variable bound since, then lets the extension
// re-establish watches for constraints deferred on the reinit queue.
func (s *Solver) Backtrack(level Level) {
	if level >= s.CurLevel() {
		return
	}
	lim := s.trailLim[level]
	for i := len(s.trail) - 1; i >= lim; i-- {
		v := s.trail[i].Var()
		s.vars[v].value = LUndef
		s.vars[v].level = 0
		s.vars[v].just = Justification{}
	}
	s.trail = s.trail[:lim]
	if s.ext != nil {
		s.ext.Pop(s, int(s.CurLevel()-level))
	}
	s.trailLim = s.trailLim[:level]
	s.conflict = nil
	if s.ext != nil {
		s.ext.PopReinit(s)
	}
}

// firstUnassigned is the minimal decision heuristic: lowest-index
// unbound variable, positive phase first unless a saved phase exists.
// Restart policy, VSIDS-style activity, and Luby sequencing are out of
// scope per spec §1 -- this exists purely so Solve can make progress
// on problems that don't fully propagate from unit facts.
func (s *Solver) firstUnassigned() (Lit, bool) {
	for i := range s.vars {
		if s.vars[i].value == LUndef {
			v := Var(i)
			phase := s.vars[i].savedPhase
			if phase == LFalse {
				return v.SignedLit(true), true
			}
			return v.SignedLit(false), true
		}
	}
	return 0, false
}

// Solve runs a simple DPLL-with-learning loop: propagate, and on
// conflict ask the extension (or fall back to trivial unsat-at-root)
// for a lemma, otherwise pick a decision literal. Returns PropTrue/
// PropFalse; PropUndef is never returned (the loop always terminates
// with a verdict on a finite variable set).
func (s *Solver) Solve() PropStatus {
	for {
		if ok := s.Propagate(); !ok {
			s.Stats.NbConflicts++
			if s.AtBaseLvl() {
				return PropFalse
			}
			if s.ext == nil {
				// No extension to learn a lemma: fall back to
				// chronological backtrack of the last decision with
				// the opposite phase, matching a minimal DPLL core.
				dec := s.trail[s.trailLim[s.CurLevel()-1]]
				s.Backtrack(s.CurLevel() - 1)
				s.Assign(dec.Negation(), Justification{Kind: JustDecision})
				continue
			}
			lemma, ok := s.ext.ResolveConflict(s)
			if !ok || len(lemma) == 0 {
				s.Backtrack(s.CurLevel() - 1)
				continue
			}
			level := s.backjumpLevel(lemma)
			s.Backtrack(level)
			idx := s.MkClause(lemma, true)
			if len(lemma) == 1 {
				continue
			}
			s.Assign(lemma[0], Justification{Kind: JustClause, Idx: idx})
			continue
		}
		lit, ok := s.firstUnassigned()
		if !ok {
			return PropTrue
		}
		if !s.PushDecision(lit) {
			panic(fmt.Sprintf("sat: decision literal %v already false after successful propagation", lit))
		}
	}
}

// backjumpLevel returns the second-highest decision level among a
// learned lemma's literals (the level to backtrack to so the lemma's
// first literal becomes unit), or 0 if the lemma is a unit clause.
func (s *Solver) backjumpLevel(lemma []Lit) Level {
	if len(lemma) == 1 {
		return 0
	}
	max := Level(0)
	for _, l := range lemma[1:] {
		if lv := s.Lvl(l); lv > max {
			max = lv
		}
	}
	return max
}

// Model returns the final boolean assignment, indexed by Var.
func (s *Solver) Model() []bool {
	res := make([]bool, len(s.vars))
	for i, vi := range s.vars {
		res[i] = vi.value == LTrue
	}
	return res
}
