// Package opb parses the OPB pseudo-Boolean format (see
// http://www.cril.univ-artois.fr/PB16/format.pdf) into the ext package's
// cardinality/PB constraint store. Grounded on
// crillab-gophersat/solver/parser_pb.go, the only OPB parser in the
// retrieval pack, adapted to emit ext.Store constraints instead of
// gophersat's merged Clause type.
package opb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/possible-fqz/basolver/ext"
	"github.com/possible-fqz/basolver/sat"
)

// term is one weighted literal of a linear constraint, as written in
// the file: lit is a signed 1-based variable reference (negative means
// the negated literal, as in DIMACS), before any Var/Lit translation.
type term struct {
	weight int
	lit    int
}

// constrSpec is one linear constraint as parsed, still in the file's
// signed-int literal representation. op is ">=" or "=".
type constrSpec struct {
	terms []term
	op    string
	rhs   int
}

// Problem is a parsed OPB instance: every linear constraint plus the
// (optional) objective line, ready to be instantiated against a fresh
// sat.Solver + ext.Store pair via Build.
type Problem struct {
	NbVars int

	// MinWeights/MinLits hold the optional "min:" objective row
	// verbatim (signed literals, untranslated); basolver's CDCL core
	// has no objective-driven search loop (optimization is out of
	// scope, spec §1's Non-goals), so these are carried for a caller
	// that wants to report the objective value of a found model, not
	// consumed internally.
	MinWeights []int
	MinLits    []int

	constrs []constrSpec
}

// ParseOPB reads an OPB-format instance.
func ParseOPB(r io.Reader) (*Problem, error) {
	scanner := bufio.NewScanner(r)
	var pb Problem
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '*' {
			continue
		}
		if err := pb.parseLine(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("opb: could not parse: %w", err)
	}
	return &pb, nil
}

func (pb *Problem) parseLine(line string) error {
	if line[len(line)-1] != ';' {
		return fmt.Errorf("opb: line %q does not end with a semicolon", line)
	}
	fields := strings.Fields(line[:len(line)-1])
	if len(fields) == 0 {
		return fmt.Errorf("opb: empty constraint line")
	}
	if fields[0] == "min:" {
		weights, lits, err := pb.parseTerms(fields[1:], line)
		if err != nil {
			return err
		}
		pb.MinWeights = weights
		pb.MinLits = lits
		return nil
	}
	return pb.parseConstrLine(fields, line)
}

func (pb *Problem) parseConstrLine(fields []string, line string) error {
	if len(fields) < 3 {
		return fmt.Errorf("opb: invalid constraint syntax %q", line)
	}
	operator := fields[len(fields)-2]
	if operator != ">=" && operator != "=" {
		return fmt.Errorf("opb: invalid operator %q in %q: expected \">=\" or \"=\"", operator, line)
	}
	rhs, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return fmt.Errorf("opb: invalid bound %q in %q: %w", fields[len(fields)-1], line, err)
	}
	weights, lits, err := pb.parseTerms(fields[:len(fields)-2], line)
	if err != nil {
		return err
	}
	terms := make([]term, len(lits))
	for i := range lits {
		terms[i] = term{weight: weights[i], lit: lits[i]}
	}
	pb.constrs = append(pb.constrs, constrSpec{terms: terms, op: operator, rhs: rhs})
	return nil
}

// parseTerms reads a sequence of [weight] "x<id>"|"~x<id>" tokens,
// tracking the highest variable id seen so the caller knows how many
// variables the final sat.Solver needs.
func (pb *Problem) parseTerms(fields []string, line string) (weights []int, lits []int, err error) {
	weights = make([]int, 0, len(fields)/2)
	lits = make([]int, 0, len(fields)/2)
	i := 0
	for i < len(fields) {
		var varTok string
		w, werr := strconv.Atoi(fields[i])
		if werr != nil {
			varTok = fields[i]
			weights = append(weights, 1)
		} else {
			weights = append(weights, w)
			i++
			if i >= len(fields) {
				return nil, nil, fmt.Errorf("opb: weight with no variable in %q", line)
			}
			varTok = fields[i]
		}
		if !strings.HasPrefix(varTok, "x") && !strings.HasPrefix(varTok, "~x") {
			return nil, nil, fmt.Errorf("opb: invalid variable token %q in %q", varTok, line)
		}
		negated := varTok[0] == '~'
		numStr := varTok[1:]
		if negated {
			numStr = varTok[2:]
		}
		id, err := strconv.Atoi(numStr)
		if err != nil {
			return nil, nil, fmt.Errorf("opb: invalid variable id %q in %q: %w", varTok, line, err)
		}
		if id > pb.NbVars {
			pb.NbVars = id
		}
		if negated {
			lits = append(lits, -id)
		} else {
			lits = append(lits, id)
		}
		i++
	}
	return weights, lits, nil
}

// Build instantiates a fresh sat.Solver over store with every parsed
// constraint loaded. Returns an error if a constraint is trivially
// unsatisfiable (its maximum achievable weighted sum falls short of its
// bound), mirroring parser_pb.go's pb.Status = Unsat short-circuit.
func (pb *Problem) Build(store *ext.Store) (*sat.Solver, error) {
	core := sat.New(pb.NbVars, store)
	for _, cs := range pb.constrs {
		switch cs.op {
		case ">=":
			if err := addGtEq(core, store, cs.terms, cs.rhs); err != nil {
				return nil, err
			}
		case "=":
			ge, le := splitEq(cs.terms, cs.rhs)
			if err := addGtEq(core, store, ge.terms, ge.rhs); err != nil {
				return nil, err
			}
			if err := addGtEq(core, store, le.terms, le.rhs); err != nil {
				return nil, err
			}
		}
	}
	return core, nil
}

// addGtEq normalizes terms (flipping negative weights so the lit they
// attach to is negated instead, per GtEq in solver/pb.go: w*lit ==
// |w|*~lit - |w|, so moving the constant to rhs raises k by |w|) then
// adds the resulting non-negative-weight PB constraint to store.
func addGtEq(core sat.CDCLCore, store *ext.Store, terms []term, rhs int) error {
	lits := make([]sat.Lit, len(terms))
	weights := make([]int, len(terms))
	sum := 0
	for i, tm := range terms {
		w, l := tm.weight, tm.lit
		if w < 0 {
			w = -w
			l = -l
			rhs += w
		}
		weights[i] = w
		lits[i] = sat.IntToLit(l)
		sum += w
	}
	if sum < rhs {
		return fmt.Errorf("opb: constraint is trivially unsatisfiable: max achievable %d < bound %d", sum, rhs)
	}
	store.AddPBGe(core, sat.LitNull, lits, weights, rhs, false)
	return nil
}

// splitEq turns "sum == rhs" into the pair of inequalities ">= rhs" and
// "<= rhs" (the latter expressed as a >= over negated terms), mirroring
// solver/pb.go's Eq built from GtEq + LtEq.
func splitEq(terms []term, rhs int) (ge, le constrSpec) {
	geTerms := append([]term(nil), terms...)
	leTerms := make([]term, len(terms))
	sum := 0
	for i, tm := range terms {
		leTerms[i] = term{weight: tm.weight, lit: -tm.lit}
		sum += tm.weight
	}
	return constrSpec{terms: geTerms, rhs: rhs}, constrSpec{terms: leTerms, rhs: sum - rhs}
}
