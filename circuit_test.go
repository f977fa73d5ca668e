package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTestCircuit(t *testing.T) {
	c, err := BuildTestCircuit(2)
	require.NoError(t, err)

	assert.Equal(t, 2, c.NumQubits())
	assert.Equal(t, 2, c.NumCbits())
	assert.Equal(t, []Gate{
		{Type: "H", Qubits: []int{0}},
		{Type: "CX", Qubits: []int{0, 1}},
	}, c.Gates())
	assert.Equal(t, []Measurement{{0, 0}, {1, 1}}, c.Measurements())
}

func TestBuildTestCircuitChain(t *testing.T) {
	c, err := BuildTestCircuit(4)
	require.NoError(t, err)

	gates := c.Gates()
	require.Len(t, gates, 4)
	for i, g := range gates[1:] {
		assert.Equal(t, "CX", g.Type)
		assert.Equal(t, []int{i}, g.Controls())
		assert.Equal(t, i+1, g.Target())
	}
	assert.Len(t, c.Measurements(), 4)

	_, err = BuildTestCircuit(0)
	assert.Error(t, err)
}

func TestCircuitIsImmutable(t *testing.T) {
	c, err := BuildTestCircuit(2)
	require.NoError(t, err)

	g := c.Gates()
	g[1].Qubits[0] = 1
	m := c.Measurements()
	m[0].Cbit = 1

	assert.Equal(t, []int{0, 1}, c.Gates()[1].Qubits)
	assert.Equal(t, 0, c.Measurements()[0].Cbit)
}

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Builder
	}{
		{"no qubits", func() *Builder { return NewBuilder(0, 0) }},
		{"negative cbits", func() *Builder { return NewBuilder(1, -1) }},
		{"unknown gate", func() *Builder { return NewBuilder(1, 0).Gate("foo", nil, 0) }},
		{"wrong arity", func() *Builder { return NewBuilder(2, 0).Gate("CX", nil, 0) }},
		{"missing param", func() *Builder { return NewBuilder(1, 0).Gate("RZ", nil, 0) }},
		{"extra param", func() *Builder { return NewBuilder(1, 0).Gate("H", []float64{1}, 0) }},
		{"qubit out of range", func() *Builder { return NewBuilder(2, 0).H(2) }},
		{"negative qubit", func() *Builder { return NewBuilder(2, 0).X(-1) }},
		{"repeated operand", func() *Builder { return NewBuilder(2, 0).CX(1, 1) }},
		{"cbit out of range", func() *Builder { return NewBuilder(2, 1).Measure([]int{0, 1}, []int{0, 1}) }},
		{"length mismatch", func() *Builder { return NewBuilder(2, 2).Measure([]int{0, 1}, []int{0}) }},
		{"cbit reused", func() *Builder { return NewBuilder(2, 2).Measure([]int{0, 1}, []int{0, 0}) }},
		{"gate after measure", func() *Builder { return NewBuilder(1, 1).Measure([]int{0}, []int{0}).X(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.build().Build()
			assert.Error(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestBuilderKeepsFirstError(t *testing.T) {
	_, err := NewBuilder(1, 0).H(5).Gate("foo", nil, 0).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qubit 5")
}

func TestBuilderArityErrorsNameTheGate(t *testing.T) {
	_, err := NewBuilder(2, 0).Gate("cx", nil, 0).Build()
	assert.ErrorContains(t, err, "gate CX (CNOT) takes 2 qubits, got 1")

	_, err = NewBuilder(1, 0).Gate("rz", nil, 0).Build()
	assert.ErrorContains(t, err, "gate RZ (Rotate Z) takes 1 parameters, got 0")
}

func TestBuilderBoundsClassicalRegister(t *testing.T) {
	_, err := NewBuilder(1, MaxCbits+1).H(0).Build()
	assert.ErrorContains(t, err, "classical register size")

	c, err := NewBuilder(1, MaxCbits).H(0).Measure([]int{0}, []int{MaxCbits - 1}).Build()
	require.NoError(t, err)
	assert.Equal(t, MaxCbits, c.NumCbits())
}

func TestGateAliases(t *testing.T) {
	c, err := NewBuilder(3, 0).
		Gate("cnot", nil, 0, 1).
		Gate("Toffoli", nil, 0, 1, 2).
		Gate("i", nil, 2).
		Build()
	require.NoError(t, err)

	var types []string
	for _, g := range c.Gates() {
		types = append(types, g.Type)
	}
	assert.Equal(t, []string{"CX", "CCX", "ID"}, types)
	assert.True(t, isParameterizedGate("u1"))
	assert.False(t, isParameterizedGate("cx"))
	assert.False(t, isParameterizedGate("bogus"))
}

func TestCircuitQASM(t *testing.T) {
	c, err := BuildTestCircuit(2)
	require.NoError(t, err)

	want := `OPENQASM 2.0;
include "qelib1.inc";

qreg q[2];
creg c[2];

h q[0];
cx q[0], q[1];
measure q[0] -> c[0];
measure q[1] -> c[1];
`
	assert.Equal(t, want, c.QASM())
}
