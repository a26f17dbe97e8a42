package dataset

import (
	"fmt"

	"civicprofile/domain/core"
)

// Column is a named, immutable sequence of values
type Column struct {
	name   string
	values []Value
}

// NewColumn copies values so the caller cannot mutate the column afterwards
func NewColumn(name string, values []Value) Column {
	vs := make([]Value, len(values))
	copy(vs, values)
	return Column{name: name, values: vs}
}

// Name returns the column name
func (c Column) Name() string { return c.name }

// Len returns the number of entries
func (c Column) Len() int { return len(c.values) }

// Value returns the entry at row i
func (c Column) Value(i int) Value { return c.values[i] }

// Values returns a copy of the entries
func (c Column) Values() []Value {
	vs := make([]Value, len(c.values))
	copy(vs, c.values)
	return vs
}

// MissingCount counts entries equal to the missing marker
func (c Column) MissingCount() int {
	n := 0
	for _, v := range c.values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// Dataset is an ordered collection of row-aligned columns. It is never
// mutated after construction and is safe to share between goroutines.
type Dataset struct {
	name    string
	columns []Column
	index   map[string]int
	rows    int
}

// New validates column names and lengths and builds a Dataset
func New(name string, columns ...Column) (*Dataset, error) {
	ds := &Dataset{
		name:    name,
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	copy(ds.columns, columns)

	for i, col := range columns {
		if _, dup := ds.index[col.name]; dup {
			return nil, fmt.Errorf("%w: %q", core.ErrDuplicateName, col.name)
		}
		ds.index[col.name] = i
		if i == 0 {
			ds.rows = col.Len()
		} else if col.Len() != ds.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, expected %d", core.ErrRaggedColumns, col.name, col.Len(), ds.rows)
		}
	}
	return ds, nil
}

// Name returns the dataset name
func (d *Dataset) Name() string { return d.name }

// RowCount returns the fixed number of rows
func (d *Dataset) RowCount() int { return d.rows }

// ColumnCount returns the number of columns
func (d *Dataset) ColumnCount() int { return len(d.columns) }

// ColumnNames returns column names in dataset order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.name
	}
	return names
}

// Columns returns the columns in dataset order
func (d *Dataset) Columns() []Column {
	cols := make([]Column, len(d.columns))
	copy(cols, d.columns)
	return cols
}

// Column looks up a column by name, returning a schema error when absent
func (d *Dataset) Column(name string) (Column, error) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, core.NewSchemaError(name)
	}
	return d.columns[i], nil
}

// Row returns a read-only view of row i
func (d *Dataset) Row(i int) Row {
	return Row{ds: d, idx: i}
}

// Row is a read-only view over one row of a Dataset
type Row struct {
	ds  *Dataset
	idx int
}

// Index returns the row position
func (r Row) Index() int { return r.idx }

// Get returns the value in the named column, or the missing marker when the
// column does not exist
func (r Row) Get(column string) Value {
	i, ok := r.ds.index[column]
	if !ok {
		return Missing()
	}
	return r.ds.columns[i].values[r.idx]
}

// Builder accumulates rows for a fixed header and produces a Dataset
type Builder struct {
	name    string
	headers []string
	values  [][]Value
}

// NewBuilder creates a row-oriented builder
func NewBuilder(name string, headers []string) *Builder {
	h := make([]string, len(headers))
	copy(h, headers)
	return &Builder{
		name:    name,
		headers: h,
		values:  make([][]Value, len(headers)),
	}
}

// Headers returns the builder's column names
func (b *Builder) Headers() []string {
	h := make([]string, len(b.headers))
	copy(h, b.headers)
	return h
}

// AppendRow adds one row. Short rows are padded with the missing marker and
// extra cells are dropped.
func (b *Builder) AppendRow(row []Value) {
	for j := range b.headers {
		v := Missing()
		if j < len(row) {
			v = row[j]
		}
		b.values[j] = append(b.values[j], v)
	}
}

// Build produces the immutable Dataset
func (b *Builder) Build() (*Dataset, error) {
	cols := make([]Column, len(b.headers))
	for j, h := range b.headers {
		cols[j] = Column{name: h, values: b.values[j]}
	}
	ds, err := New(b.name, cols...)
	if err != nil {
		return nil, err
	}
	b.values = make([][]Value, len(b.headers))
	return ds, nil
}
