package connector

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/mkessler/mapgate-go/internal/models"
)

// MemoryConnector is an in-process warehouse fixture. It backs the test
// suite and offline runs where no database is configured.
type MemoryConnector struct {
	mu       sync.RWMutex
	schemas  map[string]map[string]models.SchemaDescriptor // dataset -> table -> schema
	rows     map[string][]map[string]any                   // dataset.table -> rows
	executed []string

	// ExecuteErr, when set, is returned by Execute. Lets tests exercise the
	// failure and timeout paths.
	ExecuteErr error
}

// NewMemoryConnector creates an empty fixture.
func NewMemoryConnector() *MemoryConnector {
	return &MemoryConnector{
		schemas: make(map[string]map[string]models.SchemaDescriptor),
		rows:    make(map[string][]map[string]any),
	}
}

// AddSchema registers a table schema, creating its dataset as needed.
func (m *MemoryConnector) AddSchema(s models.SchemaDescriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tables, ok := m.schemas[s.Dataset]
	if !ok {
		tables = make(map[string]models.SchemaDescriptor)
		m.schemas[s.Dataset] = tables
	}
	tables[s.Table] = s
}

// AddRows registers sample rows for a table.
func (m *MemoryConnector) AddRows(dataset, table string, rows []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[dataset+"."+table] = rows
}

// Executed returns the statements run so far, in order.
func (m *MemoryConnector) Executed() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.executed))
	copy(out, m.executed)
	return out
}

func (m *MemoryConnector) ListDatasets(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.schemas))
	for d := range m.schemas {
		names = append(names, d)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryConnector) ListTables(ctx context.Context, dataset string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tables, ok := m.schemas[dataset]
	if !ok {
		return nil, &Error{Op: "list_tables", Err: errors.New("unknown dataset " + dataset)}
	}
	names := make([]string, 0, len(tables))
	for t := range tables {
		names = append(names, t)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryConnector) GetSchema(ctx context.Context, dataset, table string) (models.SchemaDescriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tables, ok := m.schemas[dataset]
	if !ok {
		return models.SchemaDescriptor{}, &Error{Op: "get_schema", Err: errors.New("unknown dataset " + dataset)}
	}
	s, ok := tables[table]
	if !ok {
		return models.SchemaDescriptor{}, &Error{Op: "get_schema", Err: errors.New("unknown table " + table)}
	}
	return s, nil
}

func (m *MemoryConnector) SampleRows(ctx context.Context, dataset, table string, n int) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.rows[dataset+"."+table]
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	out := make([]map[string]any, len(rows))
	copy(out, rows)
	return out, nil
}

func (m *MemoryConnector) Execute(ctx context.Context, statement string, dryRun bool) (ExecResult, error) {
	if err := ctx.Err(); err != nil {
		return ExecResult{}, &Error{Op: "execute", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ExecuteErr != nil {
		return ExecResult{}, &Error{Op: "execute", Err: m.ExecuteErr}
	}
	if dryRun {
		return ExecResult{DryRun: true}, nil
	}
	m.executed = append(m.executed, statement)
	return ExecResult{RowsAffected: 1}, nil
}
