package opb

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/possible-fqz/basolver/ext"
	"github.com/possible-fqz/basolver/sat"
)

func TestParseOPBSimpleGtEq(t *testing.T) {
	src := "* comment line\n" +
		"min: 1 x1 2 x2;\n" +
		"+1 x1 +1 x2 +1 x3 >= 2;\n"
	pb, err := ParseOPB(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if pb.NbVars != 3 {
		t.Fatalf("expected 3 vars, got %d", pb.NbVars)
	}
	if len(pb.constrs) != 1 {
		t.Fatalf("expected 1 constraint, got %d", len(pb.constrs))
	}
	if len(pb.MinLits) != 2 {
		t.Errorf("expected 2 objective terms, got %d", len(pb.MinLits))
	}
}

func TestParseOPBNegatedLiteral(t *testing.T) {
	src := "2 x1 +3 ~x2 >= 2;\n"
	pb, err := ParseOPB(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if pb.NbVars != 2 {
		t.Fatalf("expected 2 vars, got %d", pb.NbVars)
	}
	want := []term{{weight: 2, lit: 1}, {weight: 3, lit: -2}}
	if diff := cmp.Diff(want, pb.constrs[0].terms, cmp.AllowUnexported(term{})); diff != "" {
		t.Errorf("ParseOPB(): term mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOPBRejectsBadOperator(t *testing.T) {
	if _, err := ParseOPB(strings.NewReader("x1 > 1;\n")); err == nil {
		t.Errorf("expected an error for an unsupported operator")
	}
}

func TestParseOPBRejectsMissingSemicolon(t *testing.T) {
	if _, err := ParseOPB(strings.NewReader("x1 >= 1\n")); err == nil {
		t.Errorf("expected an error for a missing semicolon")
	}
}

func TestBuildAddsPBConstraint(t *testing.T) {
	src := "1 x1 1 x2 1 x3 >= 2;\n"
	pb, err := ParseOPB(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	store := ext.NewStore()
	core, err := pb.Build(store)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if core.NumVars() != 3 {
		t.Errorf("expected 3 vars wired into the solver, got %d", core.NumVars())
	}
}

func TestBuildDetectsTriviallyUnsat(t *testing.T) {
	src := "1 x1 1 x2 >= 5;\n"
	pb, err := ParseOPB(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	store := ext.NewStore()
	if _, err := pb.Build(store); err == nil {
		t.Errorf("expected a trivially-unsatisfiable constraint to be rejected")
	}
}

func TestBuildNegativeWeightNormalization(t *testing.T) {
	// -2 x1 + 3 x2 >= 1  ==  2*~x1 + 3*x2 >= 3 (k raised by |−2|), which
	// is satisfiable (e.g. x1=false, x2=true gives 2+3=5 >= 3) and
	// should build without error.
	src := "-2 x1 +3 x2 >= 1;\n"
	pb, err := ParseOPB(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	store := ext.NewStore()
	if _, err := pb.Build(store); err != nil {
		t.Errorf("unexpected build error after weight normalization: %v", err)
	}
}

var _ sat.Extension = (*ext.Store)(nil)
