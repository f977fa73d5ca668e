package main

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Pre-compiled regexps for QASM parsing.
var (
	regRegex     = regexp.MustCompile(`^(qreg|creg)\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	measureRegex = regexp.MustCompile(`^measure\s+(\w+)(?:\s*\[\s*(\d+)\s*\])?\s*->\s*(\w+)(?:\s*\[\s*(\d+)\s*\])?$`)
	gateRegex    = regexp.MustCompile(`^(\w+)\s*(?:\(([^)]*)\))?\s+(.+)$`)
	operandRegex = regexp.MustCompile(`^(\w+)\s*\[\s*(\d+)\s*\]$`)
)

// MaxCbits bounds the classical register. Every one of its 2^n outcomes is
// enumerated when results are summarised.
const MaxCbits = MaxSimQubits

// Gate is one operation on the circuit. For controlled gates the controls
// come first in Qubits and the target is last.
type Gate struct {
	Type   string
	Qubits []int
	Params []float64
}

// Target returns the qubit the gate acts on.
func (g Gate) Target() int {
	return g.Qubits[len(g.Qubits)-1]
}

// Controls returns the control qubits, empty for single-qubit gates.
func (g Gate) Controls() []int {
	return g.Qubits[:len(g.Qubits)-1]
}

func (g Gate) clone() Gate {
	return Gate{Type: g.Type, Qubits: slices.Clone(g.Qubits), Params: slices.Clone(g.Params)}
}

// Measurement maps a qubit onto a classical bit.
type Measurement struct {
	Qubit int
	Cbit  int
}

// Circuit is a built, immutable circuit description.
type Circuit struct {
	numQubits    int
	numCbits     int
	gates        []Gate
	measurements []Measurement
}

// NumQubits returns the size of the quantum register.
func (c *Circuit) NumQubits() int { return c.numQubits }

// NumCbits returns the size of the classical register.
func (c *Circuit) NumCbits() int { return c.numCbits }

// Gates returns a copy of the gate sequence.
func (c *Circuit) Gates() []Gate {
	out := make([]Gate, len(c.gates))
	for i, g := range c.gates {
		out[i] = g.clone()
	}
	return out
}

// Measurements returns a copy of the qubit to classical bit mapping.
func (c *Circuit) Measurements() []Measurement {
	return slices.Clone(c.measurements)
}

// Builder accumulates gates and measurements. The first invalid call is
// remembered and reported by Build.
type Builder struct {
	numQubits    int
	numCbits     int
	gates        []Gate
	measurements []Measurement
	measured     map[int]bool
	err          error
}

// NewBuilder starts a circuit over numQubits qubits and numCbits classical bits.
func NewBuilder(numQubits, numCbits int) *Builder {
	b := &Builder{numQubits: numQubits, numCbits: numCbits, measured: make(map[int]bool)}
	if numQubits <= 0 {
		b.err = errors.Newf("circuit needs at least one qubit, got %d", numQubits)
	}
	if numCbits < 0 || numCbits > MaxCbits {
		b.err = errors.Newf("classical register size %d outside 0..%d", numCbits, MaxCbits)
	}
	return b
}

// H appends a Hadamard gate.
func (b *Builder) H(q int) *Builder { return b.Gate("H", nil, q) }

// X appends a Pauli-X gate.
func (b *Builder) X(q int) *Builder { return b.Gate("X", nil, q) }

// CX appends a CNOT gate.
func (b *Builder) CX(control, target int) *Builder { return b.Gate("CX", nil, control, target) }

// Gate appends a gate of any catalog type.
func (b *Builder) Gate(gateType string, params []float64, qubits ...int) *Builder {
	if b.err != nil {
		return b
	}
	spec, t, ok := lookupGate(gateType)
	if !ok {
		b.err = errors.Newf("unsupported gate %q", gateType)
		return b
	}
	if len(qubits) != spec.qubits {
		b.err = errors.Newf("gate %s (%s) takes %d qubits, got %d", t, spec.name, spec.qubits, len(qubits))
		return b
	}
	if len(params) != spec.params {
		b.err = errors.Newf("gate %s (%s) takes %d parameters, got %d", t, spec.name, spec.params, len(params))
		return b
	}
	seen := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		if err := b.checkQubit(q); err != nil {
			b.err = errors.Wrapf(err, "gate %s", t)
			return b
		}
		if seen[q] {
			b.err = errors.Newf("gate %s uses qubit %d twice", t, q)
			return b
		}
		if b.measured[q] {
			b.err = errors.Newf("gate %s on qubit %d after it was measured", t, q)
			return b
		}
		seen[q] = true
	}
	b.gates = append(b.gates, Gate{Type: t, Qubits: slices.Clone(qubits), Params: slices.Clone(params)})
	return b
}

// Measure maps qubits[i] onto cbits[i].
func (b *Builder) Measure(qubits, cbits []int) *Builder {
	if b.err != nil {
		return b
	}
	if len(qubits) != len(cbits) {
		b.err = errors.Newf("measure: %d qubits but %d classical bits", len(qubits), len(cbits))
		return b
	}
	for i, q := range qubits {
		if err := b.checkQubit(q); err != nil {
			b.err = errors.Wrap(err, "measure")
			return b
		}
		cb := cbits[i]
		if cb < 0 || cb >= b.numCbits {
			b.err = errors.Newf("measure: classical bit %d out of range [0,%d)", cb, b.numCbits)
			return b
		}
		for _, m := range b.measurements {
			if m.Cbit == cb {
				b.err = errors.Newf("measure: classical bit %d written twice", cb)
				return b
			}
		}
		b.measured[q] = true
		b.measurements = append(b.measurements, Measurement{Qubit: q, Cbit: cb})
	}
	return b
}

func (b *Builder) checkQubit(q int) error {
	if q < 0 || q >= b.numQubits {
		return errors.Newf("qubit %d out of range [0,%d)", q, b.numQubits)
	}
	return nil
}

// Build returns the finished circuit.
func (b *Builder) Build() (*Circuit, error) {
	if b.err != nil {
		return nil, b.err
	}
	c := &Circuit{
		numQubits:    b.numQubits,
		numCbits:     b.numCbits,
		gates:        make([]Gate, len(b.gates)),
		measurements: slices.Clone(b.measurements),
	}
	for i, g := range b.gates {
		c.gates[i] = g.clone()
	}
	return c, nil
}

// BuildTestCircuit returns the fixed experiment layout: a Hadamard on qubit 0,
// a CNOT chain 0→1→…→n-1 and every qubit measured into the classical bit of
// the same index. With two qubits this is a Bell pair.
func BuildTestCircuit(numQubits int) (*Circuit, error) {
	b := NewBuilder(numQubits, numQubits)
	b.H(0)
	for q := 1; q < numQubits; q++ {
		b.CX(q-1, q)
	}
	all := make([]int, numQubits)
	for i := range all {
		all[i] = i
	}
	return b.Measure(all, all).Build()
}

// QASM generates OpenQASM 2.0 for the circuit.
func (c *Circuit) QASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", c.numQubits)
	if c.numCbits > 0 {
		fmt.Fprintf(&sb, "creg c[%d];\n", c.numCbits)
	}
	sb.WriteString("\n")

	for _, g := range c.gates {
		spec := gateCatalog[g.Type]
		sb.WriteString(spec.qasm)
		if len(g.Params) > 0 {
			ps := make([]string, len(g.Params))
			for i, p := range g.Params {
				ps[i] = formatParam(p)
			}
			fmt.Fprintf(&sb, "(%s)", strings.Join(ps, ", "))
		}
		ops := make([]string, len(g.Qubits))
		for i, q := range g.Qubits {
			ops[i] = fmt.Sprintf("q[%d]", q)
		}
		fmt.Fprintf(&sb, " %s;\n", strings.Join(ops, ", "))
	}
	for _, m := range c.measurements {
		fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", m.Qubit, m.Cbit)
	}
	return sb.String()
}

// ParseQASM reads the OpenQASM 2.0 subset that QASM emits: one qreg, at most
// one creg, catalog gates, barriers and measurements. Anything else is an error.
func ParseQASM(qasm string) (*Circuit, error) {
	var (
		b          *Builder
		qreg, creg string
		numCbits   = -1
		ops        int
	)

	for lineNo, line := range strings.Split(qasm, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		for _, stmt := range strings.Split(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if strings.HasPrefix(stmt, "OPENQASM") || strings.HasPrefix(stmt, "include") {
				continue
			}
			if m := regRegex.FindStringSubmatch(stmt); m != nil {
				n, err := strconv.Atoi(m[3])
				if err != nil {
					return nil, errors.Newf("line %d: register size %s out of range", lineNo+1, m[3])
				}
				if m[1] == "qreg" {
					if qreg != "" {
						return nil, errors.Newf("line %d: only one qreg is supported", lineNo+1)
					}
					qreg = m[2]
					b = NewBuilder(n, max(numCbits, 0))
				} else {
					if creg != "" {
						return nil, errors.Newf("line %d: only one creg is supported", lineNo+1)
					}
					if n > MaxCbits {
						return nil, errors.Newf("line %d: creg %s[%d] exceeds the limit of %d bits", lineNo+1, m[2], n, MaxCbits)
					}
					creg, numCbits = m[2], n
					if b != nil {
						b.numCbits = n
					}
				}
				continue
			}
			if b == nil {
				return nil, errors.Newf("line %d: %q before qreg declaration", lineNo+1, stmt)
			}
			ops++
			if err := parseStatement(b, stmt, qreg, creg); err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo+1)
			}
		}
	}
	if b == nil {
		return nil, errors.New("no qreg declaration")
	}
	if ops == 0 {
		return nil, errors.New("circuit has no operations")
	}
	return b.Build()
}

func parseStatement(b *Builder, stmt, qreg, creg string) error {
	if strings.HasPrefix(stmt, "barrier") {
		return nil
	}
	if strings.HasPrefix(stmt, "measure") {
		m := measureRegex.FindStringSubmatch(stmt)
		if m == nil {
			return errors.Newf("malformed measurement %q", stmt)
		}
		if m[1] != qreg || m[3] != creg {
			return errors.Newf("unknown register in %q", stmt)
		}
		// Whole-register form: measure q -> c;
		if m[2] == "" && m[4] == "" {
			n := min(b.numQubits, b.numCbits)
			idx := make([]int, n)
			for i := range idx {
				idx[i] = i
			}
			b.Measure(idx, idx)
			return b.err
		}
		if m[2] == "" || m[4] == "" {
			return errors.Newf("mixed register and bit measurement %q", stmt)
		}
		q, _ := strconv.Atoi(m[2])
		cb, _ := strconv.Atoi(m[4])
		b.Measure([]int{q}, []int{cb})
		return b.err
	}

	m := gateRegex.FindStringSubmatch(stmt)
	if m == nil {
		return errors.Newf("unsupported statement %q", stmt)
	}
	if _, _, ok := lookupGate(m[1]); !ok {
		return errors.Newf("unsupported statement %q", stmt)
	}

	var params []float64
	if strings.TrimSpace(m[2]) != "" {
		for _, p := range strings.Split(m[2], ",") {
			v, ok := parseParamExpr(p)
			if !ok {
				return errors.Newf("bad parameter %q in %q", strings.TrimSpace(p), stmt)
			}
			params = append(params, v)
		}
	}

	var qubits []int
	for _, op := range strings.Split(m[3], ",") {
		om := operandRegex.FindStringSubmatch(strings.TrimSpace(op))
		if om == nil || om[1] != qreg {
			return errors.Newf("bad operand %q in %q", strings.TrimSpace(op), stmt)
		}
		q, _ := strconv.Atoi(om[2])
		qubits = append(qubits, q)
	}
	b.Gate(m[1], params, qubits...)
	return b.err
}
