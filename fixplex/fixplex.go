package fixplex

import (
	"fmt"
	"io"
)

// Var names a tableau variable by its dense index, matching
// fixplex.h's var_t.
type Var int

// varInfo is the per-variable bookkeeping of fixplex.h's var_info: its
// interval bound, current value, and (if basic) which row it is the
// base of.
type varInfo struct {
	Interval
	value   uint64
	isBase  bool
	baseRow int
}

// rowInfo is one tableau equation: baseCoeff*value(base) +
// sum(coeffs[v]*value(v)) == 0 (mod 2^64), matching fixplex.h's
// row_info generalized from a sparse_matrix row to a plain
// map[Var]uint64 -- this component needs only "decide feasibility",
// not a tuned sparse solver, so there is no backing matrix class to
// port.
type rowInfo struct {
	removed   bool
	base      Var
	baseCoeff uint64
	coeffs    map[Var]uint64
	value     uint64 // cached sum(coeffs[v]*value(v)) over non-base columns
}

// Tableau is a fixed-precision unsigned-integer simplex tableau
// (fixplex.h's fixplex<Ext>, narrowed to uint64_ext).
type Tableau struct {
	vars           []varInfo
	rows           []rowInfo
	toPatch        *varHeap
	blandThreshold int
	iterations     int
	infeasibleRow  int
	numPivots      int
}

// New creates an empty tableau.
func New() *Tableau {
	return &Tableau{toPatch: newVarHeap(16), blandThreshold: 1000, infeasibleRow: -1}
}

func (t *Tableau) ensureVar(v Var) {
	for Var(len(t.vars)) <= v {
		t.vars = append(t.vars, varInfo{Interval: Free(), baseRow: -1})
	}
	t.toPatch.ensure(int(v))
}

// SetBounds implements fixplex.h's set_bounds.
func (t *Tableau) SetBounds(v Var, lo, hi uint64) {
	t.ensureVar(v)
	t.vars[v].Interval = Interval{Lo: lo, Hi: hi}
	t.enqueueIfInfeasible(v)
}

// UnsetBounds implements fixplex.h's unset_bounds: lo=hi denotes free.
func (t *Tableau) UnsetBounds(v Var) {
	t.ensureVar(v)
	t.vars[v].Interval = Free()
}

// Value returns v's current value.
func (t *Tableau) Value(v Var) uint64 { return t.vars[v].value }

// Lo returns v's lower bound.
func (t *Tableau) Lo(v Var) uint64 { return t.vars[v].Lo }

// Hi returns v's upper bound.
func (t *Tableau) Hi(v Var) uint64 { return t.vars[v].Hi }

// NumVars returns the number of variables the tableau knows about.
func (t *Tableau) NumVars() int { return len(t.vars) }

func (t *Tableau) inBounds(v Var) bool {
	return t.vars[v].Contains(t.vars[v].value)
}

func (t *Tableau) enqueueIfInfeasible(v Var) {
	if t.vars[v].isBase && !t.inBounds(v) {
		t.toPatch.push(int(v))
	}
}

// AddRow implements fixplex.h's add_row: introduces base as a fresh
// basic variable defined by the row equation over vars/coeffs, and
// returns the new row's index.
func (t *Tableau) AddRow(base Var, vars []Var, coeffs []uint64) int {
	if len(vars) != len(coeffs) {
		panic("fixplex: AddRow called with mismatched vars/coeffs lengths")
	}
	t.ensureVar(base)
	row := rowInfo{base: base, baseCoeff: 1, coeffs: make(map[Var]uint64, len(vars))}
	for i, v := range vars {
		t.ensureVar(v)
		if v == base {
			row.baseCoeff += coeffs[i]
			continue
		}
		row.coeffs[v] += coeffs[i]
	}
	idx := len(t.rows)
	t.rows = append(t.rows, row)
	t.vars[base].isBase = true
	t.vars[base].baseRow = idx
	t.recomputeRowValue(idx)
	t.enqueueIfInfeasible(base)
	return idx
}

// recomputeRowValue recomputes a row's cached nonbase-column sum and
// the derived value of its base variable.
func (t *Tableau) recomputeRowValue(idx int) {
	row := &t.rows[idx]
	var sum uint64
	for v, c := range row.coeffs {
		sum += c * t.vars[v].value
	}
	row.value = sum
	t.vars[row.base].value = solveFor(sum, row.baseCoeff)
}

// solveFor returns x such that coeff*x + nonBaseSum == 0 (mod 2^64),
// requiring coeff to be odd (the only invertible residues mod 2^n).
func solveFor(nonBaseSum, coeff uint64) uint64 {
	return (0 - nonBaseSum) * modInverseOdd(coeff)
}

// modInverseOdd returns x's multiplicative inverse mod 2^64, via
// Newton's iteration inv_{k+1} = inv_k*(2 - x*inv_k), which doubles
// the number of correct low bits each round; x must be odd.
func modInverseOdd(x uint64) uint64 {
	if x&1 == 0 {
		panic("fixplex: modInverseOdd called with an even (non-invertible) coefficient")
	}
	inv := x
	for i := 0; i < 6; i++ {
		inv = inv * (2 - x*inv)
	}
	return inv
}

// GetInfeasibleRow implements fixplex.h's get_infeasible_row: the row
// index make_feasible gave up on, or -1 if none.
func (t *Tableau) GetInfeasibleRow() int { return t.infeasibleRow }

// PropagateBounds implements fixplex.h's propagate_bounds: for every
// row, estimate the base variable's forced range from the bounds of
// its non-base columns via interval arithmetic, and intersect it into
// the base's own bound. Returns false the moment a row's forced range
// doesn't intersect the base's declared bound (a cheap, sound
// unsat-detection pass distinct from make_feasible's pivoting).
func (t *Tableau) PropagateBounds() bool {
	for idx := range t.rows {
		row := &t.rows[idx]
		if row.removed {
			continue
		}
		if row.baseCoeff&1 == 0 {
			continue // base coefficient not invertible: no precise estimate to propagate
		}
		estimate := Interval{Lo: 0, Hi: 1} // the zero interval
		for v, c := range row.coeffs {
			estimate = estimate.Add(t.vars[v].Interval.MulScalar(c))
		}
		estimate = estimate.Neg().MulScalar(modInverseOdd(row.baseCoeff))
		tightened := t.vars[row.base].Interval.Intersect(estimate)
		if tightened.IsEmpty() {
			t.infeasibleRow = idx
			return false
		}
		t.vars[row.base].Interval = tightened
		t.enqueueIfInfeasible(row.base)
	}
	return true
}

// MakeFeasible implements fixplex.h's make_feasible: repeatedly pops
// the smallest-index infeasible basic variable (Bland's rule -- this
// port runs Bland's rule unconditionally rather than switching
// strategies the way the original's pivot_strategy_t does, since no
// implementation body survives for the greatest/least-error variants
// to ground a faithful port against) and pivots it into bounds.
// Returns true when every basic variable ends up within bounds, false
// when some row has no usable pivot column (GetInfeasibleRow names
// it).
func (t *Tableau) MakeFeasible() bool {
	t.infeasibleRow = -1
	for !t.toPatch.empty() {
		v := Var(t.toPatch.popMin())
		if !t.vars[v].isBase || t.inBounds(v) {
			continue
		}
		if !t.makeVarFeasible(v) {
			return false
		}
		t.iterations++
	}
	return true
}

// makeVarFeasible pivots x_i (currently basic and out of bounds) so
// that some other variable takes over its row, with x_i settling at
// its own lower bound (always in-bounds for x_i, per interval
// semantics) as the new non-base value.
func (t *Tableau) makeVarFeasible(xi Var) bool {
	rowIdx := t.vars[xi].baseRow
	row := &t.rows[rowIdx]
	xj, ok := t.selectPivotColumn(row)
	if !ok {
		t.infeasibleRow = rowIdx
		return false
	}
	t.pivot(rowIdx, xj, t.vars[xi].Lo)
	return true
}

// selectPivotColumn implements fixplex.h's select_pivot_core narrowed
// to Bland's rule: the smallest-index non-base column whose
// coefficient is odd (and therefore invertible mod 2^64). A row with
// no odd-coefficient column is parity-infeasible (fixplex.h's
// is_parity_infeasible_row) and cannot be pivoted out of.
func (t *Tableau) selectPivotColumn(row *rowInfo) (Var, bool) {
	best := Var(-1)
	for v, c := range row.coeffs {
		if c&1 == 0 {
			continue
		}
		if best == -1 || v < best {
			best = v
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// pivot rewrites rowIdx so that xj becomes its base variable in place
// of the old one, which settles at leavingValue as a non-base
// variable, then eliminates xj from every other row that references
// it as a non-base column (Gauss-Jordan), keeping the invariant that
// a basic variable appears in exactly its own row.
func (t *Tableau) pivot(rowIdx int, xj Var, leavingValue uint64) {
	row := &t.rows[rowIdx]
	xi := row.base
	aj := row.coeffs[xj]
	inv := modInverseOdd(aj)

	newCoeffs := make(map[Var]uint64, len(row.coeffs))
	newCoeffs[xi] = inv * row.baseCoeff
	for v, c := range row.coeffs {
		if v == xj {
			continue
		}
		newCoeffs[v] = inv * c
	}

	t.vars[xi].isBase = false
	t.vars[xi].baseRow = -1
	t.vars[xi].value = leavingValue

	row.base = xj
	row.baseCoeff = 1
	row.coeffs = newCoeffs
	t.vars[xj].isBase = true
	t.vars[xj].baseRow = rowIdx

	t.recomputeRowValue(rowIdx)
	t.numPivots++
	t.enqueueIfInfeasible(xj)

	for other := range t.rows {
		if other == rowIdx || t.rows[other].removed {
			continue
		}
		c2, has := t.rows[other].coeffs[xj]
		if !has {
			continue
		}
		delete(t.rows[other].coeffs, xj)
		for v, nc := range newCoeffs {
			t.rows[other].coeffs[v] -= c2 * nc
		}
		t.recomputeRowValue(other)
		t.enqueueIfInfeasible(t.rows[other].base)
	}
}

// DelRow implements fixplex.h's del_row(var_t base_var): removes the
// row basic on v. v itself reverts to an ordinary non-base variable;
// its bounds and current value are left as they were.
func (t *Tableau) DelRow(base Var) {
	if !t.vars[base].isBase {
		return
	}
	idx := t.vars[base].baseRow
	t.rows[idx].removed = true
	t.vars[base].isBase = false
	t.vars[base].baseRow = -1
}

// Reset implements fixplex.h's reset: clears every row and variable,
// returning the tableau to its zero value.
func (t *Tableau) Reset() {
	t.vars = nil
	t.rows = nil
	t.toPatch.clear()
	t.infeasibleRow = -1
	t.numPivots = 0
	t.iterations = 0
}

// Display writes a human-readable dump of every live row, mirroring
// fixplex.h's display/display_row.
func (t *Tableau) Display(w io.Writer) {
	for idx, row := range t.rows {
		if row.removed {
			continue
		}
		fmt.Fprintf(w, "row %d: %d*v%d", idx, row.baseCoeff, row.base)
		for v, c := range row.coeffs {
			fmt.Fprintf(w, " + %d*v%d", c, v)
		}
		fmt.Fprintf(w, " == 0 (mod 2^64), v%d=%d\n", row.base, t.vars[row.base].value)
	}
}
