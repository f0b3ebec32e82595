// Command basolver loads a DIMACS CNF or OPB pseudo-Boolean instance
// and reports its satisfiability, driving the ext extension solver on
// top of the minimal sat core.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/possible-fqz/basolver/ext"
	"github.com/possible-fqz/basolver/opb"
	"github.com/possible-fqz/basolver/sat"
)

func main() {
	var verbose bool
	flag.BoolVar(&verbose, "verbose", false, "sets verbose mode on")
	flag.Parse()
	if len(flag.Args()) != 1 {
		fmt.Fprintf(os.Stderr, "Syntax: %s [options] (file.cnf|file.opb)\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Args()[0]
	fmt.Printf("c solving %s\n", path)

	core, err := load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not parse problem: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		fmt.Printf("c nb variables: %d\n", core.NumVars())
	}
	solve(core, verbose)
}

func load(path string) (*sat.Solver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	defer f.Close()

	store := ext.NewStore()
	switch {
	case strings.HasSuffix(path, ".cnf"):
		return opb.LoadDIMACS(f, store)
	case strings.HasSuffix(path, ".opb"):
		pb, err := opb.ParseOPB(f)
		if err != nil {
			return nil, fmt.Errorf("could not parse OPB file %q: %w", path, err)
		}
		return pb.Build(store)
	default:
		return nil, fmt.Errorf("invalid file format for %q: expected .cnf or .opb", path)
	}
}

func solve(core *sat.Solver, verbose bool) {
	status := core.Solve()
	if verbose {
		fmt.Printf("c nb conflicts: %d\n", core.Stats.NbConflicts)
	}
	switch status {
	case sat.PropFalse:
		fmt.Println("s UNSATISFIABLE")
	case sat.PropTrue:
		fmt.Println("s SATISFIABLE")
		printModel(core.Model())
	default:
		fmt.Println("s INDETERMINATE")
	}
}

func printModel(model []bool) {
	var sb strings.Builder
	sb.WriteString("v")
	for i, val := range model {
		if val {
			fmt.Fprintf(&sb, " %d", i+1)
		} else {
			fmt.Fprintf(&sb, " -%d", i+1)
		}
	}
	sb.WriteString(" 0")
	fmt.Println(sb.String())
}
