package main

import (
	"math"
	"strings"
	"testing"
)

func TestParseQASMBell(t *testing.T) {
	qasm := `OPENQASM 2.0;
include "qelib1.inc";

qreg q[2];
creg c[2];

h q[0];
cx q[0], q[1];
barrier q[0], q[1];
measure q[0] -> c[0];
measure q[1] -> c[1];`

	c, err := ParseQASM(qasm)
	if err != nil {
		t.Fatalf("ParseQASM error: %v", err)
	}
	if c.NumQubits() != 2 || c.NumCbits() != 2 {
		t.Fatalf("registers: got q=%d c=%d, want 2/2", c.NumQubits(), c.NumCbits())
	}

	gates := c.Gates()
	if len(gates) != 2 {
		t.Fatalf("expected 2 gates (barrier dropped), got %d", len(gates))
	}
	if gates[0].Type != "H" || gates[0].Target() != 0 {
		t.Errorf("gate 0: expected H on q[0], got %s on %v", gates[0].Type, gates[0].Qubits)
	}
	if gates[1].Type != "CX" || gates[1].Target() != 1 || gates[1].Controls()[0] != 0 {
		t.Errorf("gate 1: expected CX q[0]->q[1], got %s on %v", gates[1].Type, gates[1].Qubits)
	}

	meas := c.Measurements()
	if len(meas) != 2 || meas[1] != (Measurement{Qubit: 1, Cbit: 1}) {
		t.Errorf("measurements: got %v", meas)
	}
}

func TestParseWholeRegisterMeasure(t *testing.T) {
	qasm := `OPENQASM 2.0;
qreg q[3];
creg c[3];
x q[2]; // flip the top qubit
measure q -> c;`

	c, err := ParseQASM(qasm)
	if err != nil {
		t.Fatalf("ParseQASM error: %v", err)
	}
	if got := len(c.Measurements()); got != 3 {
		t.Fatalf("expected 3 measurements, got %d", got)
	}
}

func TestParseQASMErrors(t *testing.T) {
	tests := []struct {
		name string
		qasm string
		want string
	}{
		{"no qreg", "h q[0];", "before qreg"},
		{"empty", "OPENQASM 2.0;\nqreg q[1];", "no operations"},
		{"conditional", "qreg q[2];\ncreg c[2];\nif(c==1) x q[1];", "line 3"},
		{"unknown gate", "qreg q[1];\nfoo q[0];", "unsupported statement"},
		{"bad operand", "qreg q[1];\nh r[0];", "bad operand"},
		{"out of range", "qreg q[1];\nh q[3];", "out of range"},
		{"bad param", "qreg q[1];\nrx(tau) q[0];", "bad parameter"},
		{"missing param", "qreg q[1];\nrx q[0];", "takes 1 parameters"},
		{"two qregs", "qreg q[1];\nqreg r[1];", "only one qreg"},
		{"gate after measure", "qreg q[1];\ncreg c[1];\nmeasure q[0] -> c[0];\nx q[0];", "after it was measured"},
		{"reset", "qreg q[1];\nreset q[0];", "unsupported statement"},
		{"wide creg", "qreg q[1];\ncreg c[64];\nmeasure q[0] -> c[0];", "exceeds the limit"},
		{"wide creg first", "creg c[63];\nqreg q[1];\nmeasure q[0] -> c[0];", "exceeds the limit"},
		{"huge register", "qreg q[99999999999999999999];\nh q[0];", "out of range"},
	}

	for _, tt := range tests {
		_, err := ParseQASM(tt.qasm)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.want)
		}
	}
}

func TestRoundTripQASM(t *testing.T) {
	c, err := NewBuilder(3, 3).
		H(0).
		Gate("ccx", nil, 0, 1, 2).
		Gate("SWAP", nil, 0, 2).
		Gate("sdg", nil, 1).
		Measure([]int{0, 1, 2}, []int{2, 1, 0}).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	qasm := c.QASM()
	c2, err := ParseQASM(qasm)
	if err != nil {
		t.Fatalf("re-parse error: %v\n%s", err, qasm)
	}
	if c2.QASM() != qasm {
		t.Errorf("round trip changed QASM:\n%s\nvs\n%s", qasm, c2.QASM())
	}
	if got := c2.Measurements()[0]; got != (Measurement{Qubit: 0, Cbit: 2}) {
		t.Errorf("measurement 0: got %+v", got)
	}
}

func TestParseParamExpr(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		// Plain numbers
		{"1.5707", 1.5707, true},
		{"3.14", 3.14, true},
		{"-0.5", -0.5, true},
		{"0", 0, true},
		{"42", 42, true},
		{"3e-2", 0.03, true},

		// Pi constant
		{"pi", math.Pi, true},
		{"PI", math.Pi, true},
		{"Pi", math.Pi, true},

		// Pi fractions
		{"pi/2", math.Pi / 2, true},
		{"pi/4", math.Pi / 4, true},
		{"pi/3", math.Pi / 3, true},
		{"pi/8", math.Pi / 8, true},

		// Coefficients
		{"2pi", 2 * math.Pi, true},
		{"2*pi", 2 * math.Pi, true},
		{"3pi/4", 3 * math.Pi / 4, true},
		{"3*pi/4", 3 * math.Pi / 4, true},
		{"2*pi/3", 2 * math.Pi / 3, true},

		// Negative
		{"-pi", -math.Pi, true},
		{"-pi/2", -math.Pi / 2, true},
		{"-3*pi/4", -3 * math.Pi / 4, true},
		{"-2pi", -2 * math.Pi, true},

		// Whitespace
		{" pi ", math.Pi, true},
		{" pi / 2 ", math.Pi / 2, true},
		{" 3 * pi / 4 ", 3 * math.Pi / 4, true},

		// Invalid
		{"", 0, false},
		{"abc", 0, false},
		{"pi/0", 0, false},
		{"pi/-2", 0, false},
		{"--pi", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseParamExpr(tt.input)
		if ok != tt.ok {
			t.Errorf("parseParamExpr(%q): ok=%v, want ok=%v", tt.input, ok, tt.ok)
			continue
		}
		if ok && math.Abs(got-tt.want) > 1e-10 {
			t.Errorf("parseParamExpr(%q) = %g, want %g", tt.input, got, tt.want)
		}
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{math.Pi, "pi"},
		{math.Pi / 2, "pi/2"},
		{math.Pi / 4, "pi/4"},
		{math.Pi / 3, "pi/3"},
		{3 * math.Pi / 4, "3*pi/4"},
		{-math.Pi, "-pi"},
		{-math.Pi / 2, "-pi/2"},
		{2 * math.Pi, "2*pi"},
		{1.5, "1.5"},
		{0, "0"},
		{0.01, "0.01"},
	}

	for _, tt := range tests {
		got := formatParam(tt.input)
		if got != tt.want {
			t.Errorf("formatParam(%g) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPiParamQASMRoundTrip(t *testing.T) {
	c, err := NewBuilder(2, 0).
		Gate("RX", []float64{math.Pi / 2}, 0).
		Gate("RY", []float64{3 * math.Pi / 4}, 1).
		Gate("RZ", []float64{-math.Pi}, 0).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	qasm := c.QASM()
	for _, want := range []string{"rx(pi/2) q[0];", "ry(3*pi/4) q[1];", "rz(-pi) q[0];"} {
		if !strings.Contains(qasm, want) {
			t.Errorf("expected %q in QASM, got:\n%s", want, qasm)
		}
	}
	if strings.Contains(qasm, "creg") {
		t.Errorf("no creg expected for a circuit without classical bits:\n%s", qasm)
	}

	c2, err := ParseQASM(qasm)
	if err != nil {
		t.Fatalf("ParseQASM error: %v", err)
	}
	gates := c2.Gates()
	if len(gates) != 3 {
		t.Fatalf("pi round-trip: expected 3 gates, got %d", len(gates))
	}

	tolerance := 1e-10
	want := []float64{math.Pi / 2, 3 * math.Pi / 4, -math.Pi}
	for i, g := range gates {
		if math.Abs(g.Params[0]-want[i]) > tolerance {
			t.Errorf("gate %d param: got %g, want %g", i, g.Params[0], want[i])
		}
	}
}
