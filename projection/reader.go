package projection

// Reader is a forward-only, read-once cursor over a Table.
type Reader struct {
	table  *Table
	pos    int
	closed bool
}

// Next advances to the next row. It returns false once the rows are
// exhausted or the reader is closed, and closes the reader in that case.
func (r *Reader) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	if r.pos >= len(r.table.Rows) {
		r.Close()
		return false
	}
	return true
}

// Close releases the reader. Further calls to Next return false.
func (r *Reader) Close() {
	r.closed = true
}

// Closed reports whether the reader has been closed or exhausted.
func (r *Reader) Closed() bool {
	return r.closed
}

// Columns returns the table's column descriptors.
func (r *Reader) Columns() []Column {
	return r.table.Columns
}

// Ordinal returns the position of the named column, or -1.
func (r *Reader) Ordinal(name string) int {
	for i, c := range r.table.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Values returns the current row. It is nil before the first Next and after
// the reader is closed.
func (r *Reader) Values() []any {
	if r.closed || r.pos < 0 {
		return nil
	}
	return r.table.Rows[r.pos]
}

// Value returns the cell at column position i of the current row.
func (r *Reader) Value(i int) any {
	row := r.Values()
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// Lookup returns the cell of the named column in the current row.
func (r *Reader) Lookup(name string) (any, bool) {
	i := r.Ordinal(name)
	if i == -1 || r.Values() == nil {
		return nil, false
	}
	return r.Value(i), true
}

// Count returns the number of rows read so far.
func (r *Reader) Count() int {
	if r.pos < 0 {
		return 0
	}
	if r.pos == len(r.table.Rows) {
		return r.pos
	}
	return r.pos + 1
}
