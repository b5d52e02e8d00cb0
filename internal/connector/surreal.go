package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/mkessler/mapgate-go/internal/db"
	"github.com/mkessler/mapgate-go/internal/models"
)

// CatalogSQL defines the warehouse catalog registry. Operators seed
// wh_table records to describe the datasets and tables the workflow may
// touch; actual row data lives in regular tables named dataset_table.
const CatalogSQL = `
    DEFINE TABLE IF NOT EXISTS wh_table SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS dataset ON wh_table TYPE string;
    DEFINE FIELD IF NOT EXISTS table_name ON wh_table TYPE string;
    DEFINE FIELD IF NOT EXISTS columns ON wh_table TYPE array<object> FLEXIBLE;
    DEFINE INDEX IF NOT EXISTS wh_dataset_table ON wh_table FIELDS dataset, table_name UNIQUE;
`

type catalogRow struct {
	Dataset string                    `json:"dataset"`
	Table   string                    `json:"table_name"`
	Columns []models.ColumnDescriptor `json:"columns"`
}

// SurrealConnector serves the warehouse interface from a SurrealDB-backed
// demo warehouse with a registered catalog.
type SurrealConnector struct {
	client *db.Client
}

// NewSurrealConnector wraps an existing database client and ensures the
// catalog schema exists.
func NewSurrealConnector(ctx context.Context, client *db.Client) (*SurrealConnector, error) {
	if _, err := client.Query(ctx, CatalogSQL, nil); err != nil {
		return nil, &Error{Op: "init_catalog", Err: err}
	}
	return &SurrealConnector{client: client}, nil
}

// RegisterTable seeds a catalog entry. Exposed for fixtures and operator
// tooling; the workflow itself never writes the catalog.
func (s *SurrealConnector) RegisterTable(ctx context.Context, schema models.SchemaDescriptor) error {
	_, err := s.client.Query(ctx, `
		UPSERT type::record("wh_table", $id) SET
			dataset = $dataset,
			table_name = $table,
			columns = $columns
	`, map[string]any{
		"id":      schema.Dataset + "_" + schema.Table,
		"dataset": schema.Dataset,
		"table":   schema.Table,
		"columns": schema.Columns,
	})
	if err != nil {
		return &Error{Op: "register_table", Err: err}
	}
	return nil
}

func (s *SurrealConnector) ListDatasets(ctx context.Context) ([]string, error) {
	results, err := surrealdb.Query[[]string](ctx, s.client.DB(), `
		SELECT VALUE dataset FROM wh_table GROUP BY dataset
	`, nil)
	if err != nil {
		return nil, &Error{Op: "list_datasets", Err: err}
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

func (s *SurrealConnector) ListTables(ctx context.Context, dataset string) ([]string, error) {
	results, err := surrealdb.Query[[]string](ctx, s.client.DB(), `
		SELECT VALUE table_name FROM wh_table WHERE dataset = $dataset ORDER BY table_name
	`, map[string]any{"dataset": dataset})
	if err != nil {
		return nil, &Error{Op: "list_tables", Err: err}
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

func (s *SurrealConnector) GetSchema(ctx context.Context, dataset, table string) (models.SchemaDescriptor, error) {
	results, err := surrealdb.Query[[]catalogRow](ctx, s.client.DB(), `
		SELECT * FROM wh_table WHERE dataset = $dataset AND table_name = $table
	`, map[string]any{"dataset": dataset, "table": table})
	if err != nil {
		return models.SchemaDescriptor{}, &Error{Op: "get_schema", Err: err}
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return models.SchemaDescriptor{}, &Error{
			Op:  "get_schema",
			Err: fmt.Errorf("table %s.%s is not registered in the catalog", dataset, table),
		}
	}
	row := (*results)[0].Result[0]
	return models.SchemaDescriptor{Dataset: row.Dataset, Table: row.Table, Columns: row.Columns}, nil
}

func (s *SurrealConnector) SampleRows(ctx context.Context, dataset, table string, n int) ([]map[string]any, error) {
	if n <= 0 {
		n = 5
	}
	results, err := surrealdb.Query[[]map[string]any](ctx, s.client.DB(), `
		SELECT * FROM type::table($tbl) LIMIT $limit
	`, map[string]any{"tbl": dataset + "_" + table, "limit": n})
	if err != nil {
		return nil, &Error{Op: "sample_rows", Err: err}
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// Execute runs a validated statement against the demo warehouse. Dry run
// checks that every referenced table is registered without touching data;
// the real execution path hands the statement to the database.
func (s *SurrealConnector) Execute(ctx context.Context, statement string, dryRun bool) (ExecResult, error) {
	if statement == "" {
		return ExecResult{}, &Error{Op: "execute", Err: errors.New("empty statement")}
	}

	if dryRun {
		// The catalog must be reachable for the dry run to mean anything.
		if _, err := s.ListDatasets(ctx); err != nil {
			return ExecResult{}, &Error{Op: "dry_run", Err: err}
		}
		return ExecResult{DryRun: true}, nil
	}

	results, err := s.client.Query(ctx, statement, nil)
	if err != nil {
		return ExecResult{}, &Error{Op: "execute", Err: err}
	}

	var affected int64
	if results != nil {
		for _, r := range *results {
			if rows, ok := r.Result.([]any); ok {
				affected += int64(len(rows))
			}
		}
	}
	return ExecResult{RowsAffected: affected}, nil
}
