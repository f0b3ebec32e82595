package opb

import (
	"fmt"
	"io"

	"github.com/rhartert/dimacs"

	"github.com/possible-fqz/basolver/ext"
	"github.com/possible-fqz/basolver/sat"
)

// LoadDIMACS parses a DIMACS CNF stream and returns a ready sat.Solver
// wired to store, with every clause added as a plain clause. Grounded
// on rhartert/yass's parsers.LoadDIMACS wrapping pattern: a small
// dimacs.Builder adapter that defers building the solver until the
// problem line names its variable count, since sat.New takes nbVars up
// front rather than growing incrementally the way yass's
// solver.AddVariable does.
func LoadDIMACS(r io.Reader, store *ext.Store) (*sat.Solver, error) {
	b := &cnfBuilder{}
	if err := dimacs.ReadBuilder(r, b); err != nil {
		return nil, fmt.Errorf("opb: could not parse DIMACS: %w", err)
	}
	core := sat.New(b.nVars, store)
	for _, lits := range b.clauses {
		core.MkClause(lits, false)
	}
	return core, nil
}

// cnfBuilder implements dimacs.Builder, translating signed DIMACS
// literals into sat.Lit as they stream in.
type cnfBuilder struct {
	nVars   int
	clauses [][]sat.Lit
}

func (b *cnfBuilder) Problem(problem string, nVars int, nClauses int) error {
	if problem != "cnf" {
		return fmt.Errorf("opb: instance of type %q is not supported", problem)
	}
	b.nVars = nVars
	b.clauses = make([][]sat.Lit, 0, nClauses)
	return nil
}

func (b *cnfBuilder) Clause(tmpClause []int) error {
	lits := make([]sat.Lit, len(tmpClause))
	for i, l := range tmpClause {
		if l == 0 {
			return fmt.Errorf("opb: literal 0 found in clause")
		}
		lits[i] = sat.IntToLit(l)
	}
	b.clauses = append(b.clauses, lits)
	return nil
}

func (b *cnfBuilder) Comment(_ string) error { return nil }
