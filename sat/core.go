package sat

// PropStatus is the in-band result of a propagation step: conflict,
// no-information, or propagated-true. This mirrors gophersat's
// solver.Status enum rather than returning an error -- unsatisfiability
// detected during propagation is the normal, expected result, not a
// failure of the call.
type PropStatus int8

const (
	// PropFalse means propagation produced a conflict.
	PropFalse PropStatus = iota
	// PropUndef means no information could be derived; watch stays.
	PropUndef
	// PropTrue means the literal was propagated.
	PropTrue
)

func (s PropStatus) String() string {
	switch s {
	case PropFalse:
		return "false"
	case PropTrue:
		return "true"
	default:
		return "undef"
	}
}

// Justification identifies the antecedent of an assignment: a decision,
// a native sat reason (a clause index), or an index into an extension's
// own constraint table carried verbatim. The Kind field tells which;
// extensions never need to interpret a native justification's payload.
type Justification struct {
	// Kind identifies who owns this justification: JustDecision for a
	// decision literal, JustClause for a plain/binary clause reason,
	// JustExt for a reason owned by an external constraint store.
	Kind JustKind
	// Idx is the clause index (JustClause) or external constraint index
	// (JustExt). Unused for JustDecision.
	Idx int32
}

// JustKind tags the owner of a Justification.
type JustKind int8

const (
	// JustDecision marks a literal assigned by the decision heuristic.
	JustDecision JustKind = iota
	// JustClause marks a literal propagated by a plain/binary clause.
	JustClause
	// JustExt marks a literal propagated by an external constraint
	// (card/pb/xor), identified by Justification.Idx.
	JustExt
)

// Extension is the contract the SAT core polls (spec §6.2): the set of
// entry points an extension solver (card/pb/xor propagation plus cutting
// planes conflict resolution) must expose back to the core.
type Extension interface {
	// Propagate is called when lit, a literal watched by an external
	// constraint, has just become false; extIdx is the index of the
	// constraint whose watch entry triggered the call (opaque to the
	// core). It returns whether the watch entry should be kept (true)
	// or dropped because the watch has moved elsewhere (false).
	Propagate(core CDCLCore, lit Lit, extIdx int32) bool
	// GetAntecedents appends the reason for lit (assigned via ext_idx)
	// as a clause-like disjunction of false literals into out.
	GetAntecedents(core CDCLCore, lit Lit, extIdx int32, out []Lit) []Lit
	// ResolveConflict runs the cutting-planes resolver against the
	// core's trail and returns a learned lemma, or ok=false if the
	// conflict could not be turned into a lemma (overflow, or the SAT
	// core's own clause conflict should be used instead).
	ResolveConflict(core CDCLCore) (lits []Lit, ok bool)
	// Simplify runs the root-level simplification pipeline.
	Simplify(core CDCLCore)
	// Push records a decision-level boundary for later Pop.
	Push()
	// Pop discards constraints learned since the n-th most recent Push.
	Pop(core CDCLCore, n int)
	// PopReinit re-establishes watches for constraints on the reinit
	// queue after a backjump.
	PopReinit(core CDCLCore)
	// GC runs learned-constraint garbage collection.
	GC(core CDCLCore, savedPhase []LBool)
}

// CDCLCore is the collaborator contract an extension solver is driven
// by (spec §6.1): trail/assignment access, marking, and the entry
// points an extension uses to feed information back (Assign,
// SetConflict, MkClause). sat.Solver implements this interface; it is
// the out-of-scope core concretely needed to drive and test ext.
type CDCLCore interface {
	// Value returns the current lifted assignment of lit.
	Value(lit Lit) LBool
	// Lvl returns the decision level at which lit's variable was
	// assigned (0 if unassigned).
	Lvl(lit Lit) Level
	// NumVars returns the number of variables known to the core.
	NumVars() int
	// AtBaseLvl reports whether the core is currently at decision
	// level 0.
	AtBaseLvl() bool
	// IsExternal reports whether v's elimination is forbidden because
	// an extension constraint still references it.
	IsExternal(v Var) bool
	// SetExternal marks v as referenced by an extension constraint.
	SetExternal(v Var)
	// SetNonExternal clears the external marker on v.
	SetNonExternal(v Var)
	// Mark flags v as visited during conflict analysis.
	Mark(v Var)
	// IsMarked reports whether v was flagged via Mark since the last
	// ResetMark.
	IsMarked(v Var) bool
	// ResetMark clears v's visited flag.
	ResetMark(v Var)
	// Assign enqueues lit as true with the given justification. It
	// must not be called re-entrantly from within Propagate.
	Assign(lit Lit, just Justification) bool
	// SetConflict records a conflicting justification for the core's
	// main loop to pick up.
	SetConflict(just Justification)
	// MkClause hands a (possibly degenerate) clause back to the native
	// clause database, e.g. when add_at_least/add_pb_ge degenerate to
	// k=1.
	MkClause(lits []Lit, learned bool) int32
	// GetWList returns the mutable watch-entry list for lit, so an
	// extension can append its own external-constraint watch records.
	GetWList(lit Lit) *[]WatchEntry
	// Trail returns the assignment trail in chronological order.
	Trail() []Lit
	// JustificationOf returns the justification recorded for lit's
	// variable.
	JustificationOf(lit Lit) Justification
	// GetMaxLvl returns the highest decision level among js that is
	// strictly below lit's own level (0 if none), used by the resolver's dynamic backjump to pick a new conflict
	// level when no asserting literal is produced at the current one.
	GetMaxLvl(lit Lit, js []Lit) Level
	// Conflict returns the justification most recently recorded via
	// SetConflict, and false if none is pending.
	Conflict() (Justification, bool)
	// ConflictClauseLits returns the full literal list of the plain
	// clause responsible for the pending conflict. Valid only when
	// Conflict returns a Justification with Kind == JustClause.
	ConflictClauseLits() []Lit
	// ClauseLits returns the full literal list of the clause at idx in
	// the core's clause database, for reconstructing a JustClause
	// antecedent during conflict resolution.
	ClauseLits(idx int32) []Lit
}

// WatchEntry is a single entry in a literal's watch list: either a
// native clause watch or an opaque reference to an external
// constraint, identified by (IsExt, ExtIdx).
type WatchEntry struct {
	// IsExt is true when this entry belongs to an extension (card/pb/
	// xor); false for a native clause watch.
	IsExt bool
	// ExtIdx is the external constraint index (meaningful iff IsExt).
	ExtIdx int32
	// BinOther is the clause's other watched literal at the time the
	// watch was installed (meaningful iff !IsExt); when it is true the
	// clause is skipped without being visited.
	BinOther Lit
	// ClauseIdx is the owning clause's index in the core's clause
	// database (meaningful iff !IsExt; set for binary and longer
	// clauses alike).
	ClauseIdx int32
}
