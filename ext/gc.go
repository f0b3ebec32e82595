package ext

import (
	"github.com/possible-fqz/basolver/sat"
	"github.com/rhartert/yagh"
)

// gcTriggerRatio is the spec §4.7 trigger: |learned| >= 2*|constraints|.
const gcTriggerRatio = 2

// computePSM counts how many of c's body literals agree with the saved
// phase (spec §4.7, glossary "PSM"), a heuristic used only to prioritize
// GC, never to decide propagation.
func computePSM(c *constraint, savedPhase []sat.LBool) int {
	n := 0
	bodyLen := c.bodySize()
	for i := 0; i < bodyLen; i++ {
		l := c.bodyLit(i)
		want := sat.LTrue
		if !l.IsPositive() {
			want = sat.LFalse
		}
		if int(l.Var()) < len(savedPhase) && savedPhase[l.Var()] == want {
			n++
		}
	}
	return n
}

// gcScore packs (glue, psm, size) into a single comparable key with
// glue dominant, matching spec's lexicographic ordering, letting a
// single priority-map ranking stand in for sort.Slice's multi-key
// comparator.
func gcScore(c *constraint) int64 {
	return int64(c.glue)<<40 | int64(c.psm)<<20 | int64(c.size)
}

// GC implements sat.Extension and spec §4.7: when triggered, update
// every learned constraint's psm, rank ascending by (glue, psm, size),
// and remove the worse half that is not pinned by the reinit queue.
//
// Ranking uses a yagh.IntMap[float64] keyed by learned-slice position,
// the same generic integer-keyed priority map
// rhartert/yass/internal/sat/ordering.go uses for variable-activity
// selection -- there ranking variables for decisions, here ranking
// constraints for removal -- letting GC pop the worst half without a
// full sort.Slice pass each time it runs.
func (s *Store) GC(core sat.CDCLCore, savedPhase []sat.LBool) {
	if len(s.learned) < gcTriggerRatio*len(s.constraints) {
		return
	}
	pinned := make(map[int32]bool, len(s.reinit))
	for _, idx := range s.reinit {
		pinned[idx] = true
	}

	heap := yagh.New[float64](len(s.learned))
	for i, c := range s.learned {
		if c.removed {
			continue
		}
		c.psm = computePSM(c, savedPhase)
		heap.Put(i, float64(gcScore(c)))
	}

	order := make([]int, 0, len(s.learned))
	for {
		item, ok := heap.Pop()
		if !ok {
			break
		}
		order = append(order, item.Elem) // ascending score: best-first
	}
	half := len(order) / 2
	for i := half; i < len(order); i++ {
		c := s.learned[order[i]]
		if pinned[c.id] {
			continue
		}
		s.Remove(core, c.id)
	}
	s.cleanupConstraints()
	s.rebuildReinit()
}
