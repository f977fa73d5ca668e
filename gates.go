package main

import "strings"

// gateSpec describes one supported gate.
type gateSpec struct {
	name   string // display name
	qasm   string // OpenQASM 2.0 mnemonic
	qubits int    // number of qubit operands, controls first
	params int    // number of angle parameters
	symbol string // label drawn in the target box
}

// gateCatalog lists every gate the builder, the QASM reader and the local
// simulator understand, keyed by upper-case type.
var gateCatalog = map[string]gateSpec{
	"ID":   {name: "Identity", qasm: "id", qubits: 1, symbol: "I"},
	"H":    {name: "Hadamard", qasm: "h", qubits: 1, symbol: "H"},
	"X":    {name: "Pauli-X (NOT)", qasm: "x", qubits: 1, symbol: "X"},
	"Y":    {name: "Pauli-Y", qasm: "y", qubits: 1, symbol: "Y"},
	"Z":    {name: "Pauli-Z", qasm: "z", qubits: 1, symbol: "Z"},
	"S":    {name: "Phase (S)", qasm: "s", qubits: 1, symbol: "S"},
	"SDG":  {name: "Phase Dagger (S†)", qasm: "sdg", qubits: 1, symbol: "S†"},
	"T":    {name: "T Gate", qasm: "t", qubits: 1, symbol: "T"},
	"TDG":  {name: "T Dagger (T†)", qasm: "tdg", qubits: 1, symbol: "T†"},
	"RX":   {name: "Rotate X", qasm: "rx", qubits: 1, params: 1, symbol: "RX"},
	"RY":   {name: "Rotate Y", qasm: "ry", qubits: 1, params: 1, symbol: "RY"},
	"RZ":   {name: "Rotate Z", qasm: "rz", qubits: 1, params: 1, symbol: "RZ"},
	"P":    {name: "Phase Shift", qasm: "p", qubits: 1, params: 1, symbol: "P"},
	"U1":   {name: "Universal U1", qasm: "u1", qubits: 1, params: 1, symbol: "U1"},
	"CX":   {name: "CNOT", qasm: "cx", qubits: 2, symbol: "⊕"},
	"CZ":   {name: "Controlled-Z", qasm: "cz", qubits: 2, symbol: "●"},
	"SWAP": {name: "SWAP", qasm: "swap", qubits: 2, symbol: "×"},
	"CCX":  {name: "Toffoli (CCX)", qasm: "ccx", qubits: 3, symbol: "⊕"},
}

// lookupGate returns the catalog entry for a gate type, case-insensitively.
// "CNOT" and "TOFFOLI" are accepted as aliases.
func lookupGate(gateType string) (gateSpec, string, bool) {
	t := strings.ToUpper(gateType)
	switch t {
	case "CNOT":
		t = "CX"
	case "TOFFOLI":
		t = "CCX"
	case "I":
		t = "ID"
	}
	spec, ok := gateCatalog[t]
	return spec, t, ok
}

// isParameterizedGate returns true if the gate type takes angle parameters.
func isParameterizedGate(gateType string) bool {
	spec, _, ok := lookupGate(gateType)
	return ok && spec.params > 0
}
