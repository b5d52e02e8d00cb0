package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkessler/mapgate-go/internal/connector"
	"github.com/mkessler/mapgate-go/internal/models"
	"github.com/mkessler/mapgate-go/internal/validate"
)

var registerColumns []string

var registerCmd = &cobra.Command{
	Use:   "register <dataset> <table>",
	Short: "Register a warehouse table in the catalog",
	Long: `Register a table in the demo warehouse catalog so workflow sessions can
discover and map it. Columns are given as name:type or name:type:nullable.

Examples:
  mapgatectl register sales orders -c order_id:INT64 -c amount:FLOAT64 -c note:STRING:nullable`,
	Args: cobra.ExactArgs(2),
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringArrayVarP(&registerColumns, "column", "c", nil, "column spec name:type[:nullable], repeatable")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dataset, table := args[0], args[1]

	if len(registerColumns) == 0 {
		return fmt.Errorf("at least one --column is required")
	}

	schema := models.SchemaDescriptor{Dataset: dataset, Table: table}
	for _, spec := range registerColumns {
		col, err := parseColumnSpec(spec)
		if err != nil {
			return err
		}
		schema.Columns = append(schema.Columns, col)
	}

	// The same identifier rules the engine enforces apply at registration,
	// so the catalog can never hold a name the validator would reject.
	for _, name := range append([]string{dataset, table}, schema.ColumnNames()...) {
		if err := validate.ValidateIdentifier(name); err != nil {
			return err
		}
	}

	conn, err := connector.NewSurrealConnector(ctx, dbClient)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	if err := conn.RegisterTable(ctx, schema); err != nil {
		return fmt.Errorf("register table: %w", err)
	}

	fmt.Printf("Registered %s.%s with %d columns.\n", dataset, table, len(schema.Columns))
	return nil
}

func parseColumnSpec(spec string) (models.ColumnDescriptor, error) {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 2:
		return models.ColumnDescriptor{Name: parts[0], Type: strings.ToUpper(parts[1])}, nil
	case 3:
		if parts[2] != "nullable" {
			return models.ColumnDescriptor{}, fmt.Errorf("invalid column spec %q: third field must be 'nullable'", spec)
		}
		return models.ColumnDescriptor{Name: parts[0], Type: strings.ToUpper(parts[1]), Nullable: true}, nil
	default:
		return models.ColumnDescriptor{}, fmt.Errorf("invalid column spec %q: want name:type[:nullable]", spec)
	}
}
