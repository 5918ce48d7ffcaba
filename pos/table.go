package pos

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Table is a dense row-major matrix. Row i of a probability table is the
// distribution conditioned on state i.
type Table struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func NewTable(rows, cols int) Table {
	return Table{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}
}

func (t Table) At(i, j int) float64 {
	return t.Data[i*t.Cols+j]
}

// Row shares memory with the table.
func (t Table) Row(i int) []float64 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

func (t Table) Clone() Table {
	c := NewTable(t.Rows, t.Cols)
	copy(c.Data, t.Data)
	return c
}

func (t Table) valid() bool {
	return t.Rows >= 0 && t.Cols >= 0 && len(t.Data) == t.Rows*t.Cols
}

func (t Table) inc(i, j int) {
	t.Data[i*t.Cols+j]++
}

// normalizeRows scales every row to sum to one. Rows summing to zero stay zero.
func (t Table) normalizeRows() {
	for i := 0; i < t.Rows; i++ {
		row := t.Row(i)
		sum := floats.Sum(row)
		if sum == 0 {
			continue
		}
		floats.Scale(1/sum, row)
	}
}

// distributionTolerance bounds the rounding error of a normalized row sum.
const distributionTolerance = 1e-6

// checkDistribution fails unless every entry is in [0, 1] and the row sums
// to one. An all-zero row is accepted when allowZero is set.
func checkDistribution(row []float64, allowZero bool) error {
	for j, p := range row {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: entry %d is %v", ErrInvalidDistribution, j, p)
		}
	}
	sum := floats.Sum(row)
	if sum == 0 && allowZero {
		return nil
	}
	if math.Abs(sum-1) > distributionTolerance {
		return fmt.Errorf("%w: sums to %v", ErrInvalidDistribution, sum)
	}
	return nil
}

// checkRows applies checkDistribution to every row. Unused states have all-zero rows.
func (t Table) checkRows(name string) error {
	for i := 0; i < t.Rows; i++ {
		if err := checkDistribution(t.Row(i), true); err != nil {
			return fmt.Errorf("%s row %d: %w", name, i, err)
		}
	}
	return nil
}

// minPositive returns the smallest strictly positive entry.
func (t Table) minPositive() (float64, bool) {
	min := math.Inf(1)
	for _, v := range t.Data {
		if v > 0 && v < min {
			min = v
		}
	}
	return min, !math.IsInf(min, 1)
}

// floored returns a copy where every zero entry is replaced by half of the
// smallest positive entry. A table without positive entries becomes all ones,
// which turns into a uniform zero score in log-space.
func (t Table) floored() Table {
	c := t.Clone()
	floor, ok := t.minPositive()
	if !ok {
		for i := range c.Data {
			c.Data[i] = 1
		}
		return c
	}
	floor /= 2
	for i, v := range c.Data {
		if v == 0 {
			c.Data[i] = floor
		}
	}
	return c
}

// logTable returns the element-wise natural logarithm.
func (t Table) logTable() Table {
	c := NewTable(t.Rows, t.Cols)
	for i, v := range t.Data {
		c.Data[i] = math.Log(v)
	}
	return c
}

// stabilize floors and takes the logarithm, leaving t untouched.
func (t Table) stabilize() Table {
	return t.floored().logTable()
}
