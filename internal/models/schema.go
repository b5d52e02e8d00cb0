package models

// ColumnDescriptor describes a single column of a warehouse table.
type ColumnDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// SchemaDescriptor is an immutable snapshot of a table schema captured
// during discovery. Refreshed only by re-running schema analysis.
type SchemaDescriptor struct {
	Dataset string             `json:"dataset"`
	Table   string             `json:"table"`
	Columns []ColumnDescriptor `json:"columns"`
}

// Column returns the descriptor for the named column, or nil if absent.
func (s SchemaDescriptor) Column(name string) *ColumnDescriptor {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

// HasColumn reports whether the schema contains the named column.
func (s SchemaDescriptor) HasColumn(name string) bool {
	return s.Column(name) != nil
}

// ColumnNames returns the column names in declaration order.
func (s SchemaDescriptor) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// TableRef identifies a table within a dataset.
type TableRef struct {
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
}

// String renders the reference as dataset.table.
func (r TableRef) String() string {
	if r.Dataset == "" {
		return r.Table
	}
	return r.Dataset + "." + r.Table
}
