package main

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"
)

// Universe returns every bitstring of width numBits in lexicographic order.
// numBits must be in 1..MaxCbits.
func Universe(numBits int) ([]string, error) {
	if numBits <= 0 || numBits > MaxCbits {
		return nil, errors.Newf("bit width %d outside 1..%d", numBits, MaxCbits)
	}
	n := 1 << numBits
	out := make([]string, n)
	buf := make([]byte, numBits)
	for i := 0; i < n; i++ {
		for b := 0; b < numBits; b++ {
			if i&(1<<(numBits-1-b)) != 0 {
				buf[b] = '1'
			} else {
				buf[b] = '0'
			}
		}
		out[i] = string(buf)
	}
	return out, nil
}

// Table holds one row of counts per trial. Columns are every bitstring seen
// in any trial; a row missing a column reads as zero.
type Table struct {
	rows    []map[string]int
	columns []string
}

// NewTable builds a table from the counts of each run.
func NewTable(runs []map[string]int) *Table {
	t := &Table{}
	for _, r := range runs {
		t.Add(r)
	}
	return t
}

// Add appends one trial.
func (t *Table) Add(counts map[string]int) {
	row := make(map[string]int, len(counts))
	for k, v := range counts {
		row[k] = v
		if !slices.Contains(t.columns, k) {
			t.columns = append(t.columns, k)
		}
	}
	slices.SortFunc(t.columns, strings.Compare)
	t.rows = append(t.rows, row)
}

// Len returns the number of trials.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns the observed bitstrings, sorted.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Cell returns the count of bitstring in trial i, zero when absent.
func (t *Table) Cell(i int, bitstring string) int { return t.rows[i][bitstring] }

// Column returns one value per trial for bitstring.
func (t *Table) Column(bitstring string) []float64 {
	col := make([]float64, len(t.rows))
	for i, r := range t.rows {
		col[i] = float64(r[bitstring])
	}
	return col
}

// Averages maps every bitstring of universe to its mean count across trials.
func (t *Table) Averages(universe []string) map[string]float64 {
	avg := make(map[string]float64, len(universe))
	for _, b := range universe {
		if len(t.rows) == 0 {
			avg[b] = 0
			continue
		}
		avg[b] = stat.Mean(t.Column(b), nil)
	}
	return avg
}

// ErrorRate is the fraction of shots that missed every expected outcome:
// 1 - Σ avg[e] / shots.
func ErrorRate(averages map[string]float64, expected []string, shots int) (float64, error) {
	if shots <= 0 {
		return 0, errors.Newf("shots must be positive, got %d", shots)
	}
	hit := 0.0
	for _, e := range expected {
		hit += averages[e]
	}
	return 1 - hit/float64(shots), nil
}

// Summary is the aggregated outcome of all trials.
type Summary struct {
	Trials    int
	Shots     int
	Universe  []string
	Averages  map[string]float64
	Expected  []string
	ErrorRate float64
}

// IsExpected reports whether bitstring is one of the expected outcomes.
func (s *Summary) IsExpected(bitstring string) bool {
	return slices.Contains(s.Expected, bitstring)
}

// Summarize averages t over the full numBits universe and scores it against expected.
func Summarize(t *Table, numBits int, expected []string, shots int) (*Summary, error) {
	universe, err := Universe(numBits)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(expected))
	exp := make([]string, 0, len(expected))
	for _, e := range expected {
		if len(e) != numBits || strings.Trim(e, "01") != "" {
			return nil, errors.Newf("expected outcome %q is not a %d-bit string", e, numBits)
		}
		if !seen[e] {
			seen[e] = true
			exp = append(exp, e)
		}
	}

	avg := t.Averages(universe)
	rate, err := ErrorRate(avg, exp, shots)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Trials:    t.Len(),
		Shots:     shots,
		Universe:  universe,
		Averages:  avg,
		Expected:  exp,
		ErrorRate: rate,
	}, nil
}

// DefaultExpectedOutcomes returns the all-zeros and all-ones bitstrings, the
// ideal outcomes of the built-in entangling circuit.
func DefaultExpectedOutcomes(numBits int) []string {
	return []string{strings.Repeat("0", numBits), strings.Repeat("1", numBits)}
}
