package timing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"justapengu.in/raceiq/pkg/laptime"
)

type Kind uint8

const (
	KindText Kind = iota
	KindNumber
	KindFlag
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindFlag:
		return "flag"
	default:
		return "text"
	}
}

type Column struct {
	Name string
	Kind Kind

	text    []string
	numbers []float64
	flags   []bool
}

// Cell renders a single value the way it is written to CSV. Missing numbers
// render as an empty string.
func (c *Column) Cell(row int) string {
	switch c.Kind {
	case KindNumber:
		v := c.numbers[row]

		if math.IsNaN(v) {
			return ""
		}

		return strconv.FormatFloat(v, 'f', -1, 64)
	case KindFlag:
		return strconv.FormatBool(c.flags[row])
	default:
		return c.text[row]
	}
}

func (c *Column) grow(n int) {
	switch c.Kind {
	case KindNumber:
		for i := 0; i < n; i++ {
			c.numbers = append(c.numbers, math.NaN())
		}
	case KindFlag:
		c.flags = append(c.flags, make([]bool, n)...)
	default:
		c.text = append(c.text, make([]string, n)...)
	}
}

func (c *Column) toText(rows int) {
	if c.Kind == KindText {
		return
	}

	text := make([]string, rows)

	for i := range text {
		text[i] = c.Cell(i)
	}

	c.Kind = KindText
	c.text = text
	c.numbers = nil
	c.flags = nil
}

// Table is an ordered set of equally long, named columns. Columns keep the
// names they had in the source file; derived columns are added next to them.
// A Table is owned by one pipeline run and is not safe for concurrent use.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

func NewTable(rows int) *Table {
	return &Table{
		index: make(map[string]int),
		rows:  rows,
	}
}

// NewTextTable builds a table from a header and rows of raw strings. Short
// rows are padded with empty cells.
func NewTextTable(header []string, rows [][]string) *Table {
	t := NewTable(len(rows))

	for col, name := range header {
		values := make([]string, len(rows))

		for i, row := range rows {
			if col < len(row) {
				values[i] = row[col]
			}
		}

		t.SetText(name, values)
	}

	return t
}

func (t *Table) Len() int {
	return t.rows
}

func (t *Table) Names() []string {
	names := make([]string, len(t.columns))

	for i, c := range t.columns {
		names[i] = c.Name
	}

	return names
}

func (t *Table) Has(name string) bool {
	_, ok := t.index[name]

	return ok
}

func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]

	if !ok {
		return nil, false
	}

	return t.columns[i], true
}

// Text returns the values of a text column. It returns false when the column
// is absent or holds another kind.
func (t *Table) Text(name string) ([]string, bool) {
	c, ok := t.Column(name)

	if !ok || c.Kind != KindText {
		return nil, false
	}

	return c.text, true
}

func (t *Table) Numbers(name string) ([]float64, bool) {
	c, ok := t.Column(name)

	if !ok || c.Kind != KindNumber {
		return nil, false
	}

	return c.numbers, true
}

func (t *Table) Flags(name string) ([]bool, bool) {
	c, ok := t.Column(name)

	if !ok || c.Kind != KindFlag {
		return nil, false
	}

	return c.flags, true
}

// NumbersOf returns a numeric view of any column: number columns are returned
// as-is, text columns are parsed with laptime.Parse without modifying the
// table. Absent columns and flag columns return false.
func (t *Table) NumbersOf(name string) ([]float64, bool) {
	c, ok := t.Column(name)

	if !ok {
		return nil, false
	}

	switch c.Kind {
	case KindNumber:
		return c.numbers, true
	case KindText:
		out := make([]float64, len(c.text))

		for i, s := range c.text {
			out[i], _ = laptime.Parse(s)
		}

		return out, true
	default:
		return nil, false
	}
}

func (t *Table) SetText(name string, values []string) {
	t.set(&Column{Name: name, Kind: KindText, text: values}, len(values))
}

func (t *Table) SetNumbers(name string, values []float64) {
	t.set(&Column{Name: name, Kind: KindNumber, numbers: values}, len(values))
}

func (t *Table) SetFlags(name string, values []bool) {
	t.set(&Column{Name: name, Kind: KindFlag, flags: values}, len(values))
}

// set replaces a column in place, or appends it when the name is new.
func (t *Table) set(c *Column, n int) {
	if n != t.rows {
		panic(fmt.Sprintf("timing: column %q has %d values, table has %d rows", c.Name, n, t.rows))
	}

	if i, ok := t.index[c.Name]; ok {
		t.columns[i] = c
		return
	}

	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
}

// Drop removes the named columns and returns how many existed.
func (t *Table) Drop(names ...string) int {
	drop := make(map[string]bool, len(names))

	for _, name := range names {
		drop[name] = true
	}

	kept := t.columns[:0]
	dropped := 0

	for _, c := range t.columns {
		if drop[c.Name] {
			dropped++
			continue
		}

		kept = append(kept, c)
	}

	t.columns = kept
	t.index = make(map[string]int, len(kept))

	for i, c := range kept {
		t.index[c.Name] = i
	}

	return dropped
}

// Reorder permutes the rows so that new row i is old row perm[i].
func (t *Table) Reorder(perm []int) {
	if len(perm) != t.rows {
		panic(fmt.Sprintf("timing: permutation of %d rows applied to table of %d rows", len(perm), t.rows))
	}

	for _, c := range t.columns {
		switch c.Kind {
		case KindNumber:
			out := make([]float64, len(perm))

			for i, p := range perm {
				out[i] = c.numbers[p]
			}

			c.numbers = out
		case KindFlag:
			out := make([]bool, len(perm))

			for i, p := range perm {
				out[i] = c.flags[p]
			}

			c.flags = out
		default:
			out := make([]string, len(perm))

			for i, p := range perm {
				out[i] = c.text[p]
			}

			c.text = out
		}
	}
}

// Append adds the rows of other below the rows of t. The resulting column set
// is the union of both, in first-seen order; cells a side did not have are
// missing. Columns whose kinds disagree fall back to text.
func (t *Table) Append(other *Table) {
	before := t.rows

	for _, oc := range other.columns {
		c, ok := t.Column(oc.Name)

		if !ok {
			c = &Column{Name: oc.Name, Kind: oc.Kind}
			c.grow(before)
			t.index[c.Name] = len(t.columns)
			t.columns = append(t.columns, c)
		}

		if c.Kind != oc.Kind {
			c.toText(before)
			oc = copyAsText(oc, other.rows)
		}

		switch c.Kind {
		case KindNumber:
			c.numbers = append(c.numbers, oc.numbers...)
		case KindFlag:
			c.flags = append(c.flags, oc.flags...)
		default:
			c.text = append(c.text, oc.text...)
		}
	}

	for _, c := range t.columns {
		if !other.Has(c.Name) {
			c.grow(other.rows)
		}
	}

	t.rows += other.rows
}

func copyAsText(c *Column, rows int) *Column {
	cp := *c
	cp.toText(rows)

	return &cp
}

// Records renders the requested columns, header first. Names the table does
// not have are skipped.
func (t *Table) Records(names []string) [][]string {
	var cols []*Column

	for _, name := range names {
		if c, ok := t.Column(name); ok {
			cols = append(cols, c)
		}
	}

	records := make([][]string, 0, t.rows+1)
	header := make([]string, len(cols))

	for i, c := range cols {
		header[i] = c.Name
	}

	records = append(records, header)

	for row := 0; row < t.rows; row++ {
		record := make([]string, len(cols))

		for i, c := range cols {
			record[i] = c.Cell(row)
		}

		records = append(records, record)
	}

	return records
}

func (t *Table) String() string {
	kinds := make([]string, len(t.columns))

	for i, c := range t.columns {
		kinds[i] = fmt.Sprintf("%s(%s)", c.Name, c.Kind)
	}

	return fmt.Sprintf("Table{rows: %d, columns: [%s]}", t.rows, strings.Join(kinds, ", "))
}

// missingText reports whether a raw cell carries no information.
func missingText(s string) bool {
	return laptime.IsPlaceholder(s)
}
