package ext

import "github.com/possible-fqz/basolver/sat"

// initWatch dispatches to the per-tag init_watch routine (spec §4.2.1,
// §4.3.1, §4.4), the shared entry point called both from afterInsert
// (fresh constraints) and PopReinit (constraints deferred across a
// backjump). isTrue is the polarity the reifier (if any) currently
// holds, or true for an unreified constraint.
func (s *Store) initWatch(core sat.CDCLCore, c *constraint, idx int32, isTrue bool) {
	switch c.tag {
	case tagCard:
		s.initWatchCard(core, c, idx, isTrue)
	case tagPB:
		s.initWatchPB(core, c, idx, isTrue)
	case tagXor:
		s.initWatchXor(core, c, idx, isTrue)
	default:
		panic("ext: initWatch on constraint with unknown tag")
	}
}

// Propagate implements sat.Extension: falseLit just became false;
// extIdx names the constraint watching it. Dispatches by tag to
// add_assign (spec §4.2.2, §4.3.2, §4.4). A false return tells the core
// the watch entry at this slot should be dropped (the constraint has
// relocated its watch to another literal).
func (s *Store) Propagate(core sat.CDCLCore, falseLit sat.Lit, extIdx int32) bool {
	c := s.byIdx[extIdx]
	if c == nil || c.removed {
		return false
	}
	if c.reifier != sat.LitNull && falseLit.Var() == c.reifier.Var() {
		// The reifier itself became assigned: re-initialize rather
		// than add_assign (spec §3 "constraint is re-initialized
		// whenever the reifier becomes assigned").
		isTrue := core.Value(c.reifier) == sat.LTrue
		s.initWatch(core, c, extIdx, isTrue)
		return true
	}
	if c.reifier != sat.LitNull && core.Value(c.reifier) == sat.LFalse {
		return true // reifier false: constraint inert, drop nothing
	}
	switch c.tag {
	case tagCard:
		return s.addAssignCard(core, c, extIdx, falseLit)
	case tagPB:
		return s.addAssignPB(core, c, extIdx, falseLit)
	case tagXor:
		return s.addAssignXor(core, c, extIdx, falseLit)
	default:
		panic("ext: Propagate on constraint with unknown tag")
	}
}

// GetAntecedents implements sat.Extension: appends the reason lit was
// assigned via extIdx (all other body-or-xor-parity literals, negated)
// into out.
func (s *Store) GetAntecedents(core sat.CDCLCore, lit sat.Lit, extIdx int32, out []sat.Lit) []sat.Lit {
	c := s.byIdx[extIdx]
	if c == nil {
		panic("ext: GetAntecedents on dangling constraint index")
	}
	switch c.tag {
	case tagCard:
		return cardAntecedents(c.card, lit, out)
	case tagPB:
		return pbAntecedents(c.pb, lit, out)
	case tagXor:
		return s.getXorAntecedents(core, c.xor, lit, out)
	default:
		panic("ext: GetAntecedents on constraint with unknown tag")
	}
}
