package validate

import (
	"errors"
	"testing"

	"github.com/mkessler/mapgate-go/internal/models"
)

func testSchemas() []models.SchemaDescriptor {
	return []models.SchemaDescriptor{
		{
			Dataset: "sales",
			Table:   "orders",
			Columns: []models.ColumnDescriptor{
				{Name: "order_id", Type: "INT64"},
				{Name: "amount", Type: "FLOAT64"},
				{Name: "note", Type: "STRING", Nullable: true},
			},
		},
		{
			Dataset: "dw",
			Table:   "fact_orders",
			Columns: []models.ColumnDescriptor{
				{Name: "order_id", Type: "INT64"},
				{Name: "amount_usd", Type: "FLOAT64"},
				{Name: "note", Type: "STRING", Nullable: true},
			},
		},
	}
}

func TestValidateStatementAccepts(t *testing.T) {
	tests := []struct {
		name string
		stmt string
	}{
		{
			"plain select",
			"SELECT order_id, amount FROM orders",
		},
		{
			"qualified table path",
			"SELECT order_id FROM sales.orders",
		},
		{
			"generated insert shape",
			"INSERT INTO `dw.fact_orders`\nSELECT\n  order_id AS order_id,\n  CAST(amount AS FLOAT64) AS amount_usd,\n  NULL AS note\nFROM `sales.orders`",
		},
		{
			"table alias",
			"SELECT o.order_id FROM orders o WHERE o.amount > 100",
		},
		{
			"line comment stripped",
			"SELECT order_id FROM orders -- trailing note",
		},
		{
			"allow-listed functions",
			"SELECT COALESCE(note, 'none'), ROUND(amount) FROM orders",
		},
		{
			"generated merge shape",
			"MERGE `dw.fact_orders` AS tgt\nUSING (\n  SELECT\n  order_id AS order_id,\n  amount AS amount_usd\n  FROM `sales.orders`\n) AS src\nON tgt.order_id = src.order_id\nWHEN MATCHED THEN\n  UPDATE SET tgt.amount_usd = src.amount_usd\nWHEN NOT MATCHED THEN\n  INSERT (order_id, amount_usd)\n  VALUES (src.order_id, src.amount_usd)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStatement(tt.stmt, testSchemas()); err != nil {
				t.Errorf("ValidateStatement() = %v, want nil", err)
			}
		})
	}
}

func TestValidateStatementRejects(t *testing.T) {
	tests := []struct {
		name         string
		stmt         string
		hallucinated bool
	}{
		{"empty statement", "", false},
		{"ddl verb", "DROP TABLE orders", false},
		{"update verb", "UPDATE orders SET amount = 0", false},
		{"delete verb", "DELETE FROM orders", false},
		{"multiple commands", "SELECT order_id FROM orders; DROP TABLE orders", false},
		{"forbidden keyword mid-statement", "SELECT order_id FROM orders WHERE truncate = 1", false},
		{"unknown function", "SELECT sleep(10) FROM orders", false},
		{"template placeholder", "SELECT {source} FROM orders", false},
		{"unterminated string", "SELECT 'abc FROM orders", false},
		{"unterminated comment", "SELECT order_id FROM orders /* oops", false},
		{"unbalanced parens", "SELECT CAST(amount AS FLOAT64 FROM orders", false},
		{"unknown column", "SELECT shipping_cost FROM orders", true},
		{"unknown table", "SELECT order_id FROM refunds", true},
		{"unknown dataset", "SELECT order_id FROM finance.orders", true},
		{"unknown qualified column", "SELECT o.shipping_cost FROM orders o", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStatement(tt.stmt, testSchemas())
			if err == nil {
				t.Fatalf("ValidateStatement(%q) = nil, want error", tt.stmt)
			}

			var halluc *HallucinatedReferenceError
			if got := errors.As(err, &halluc); got != tt.hallucinated {
				t.Errorf("hallucinated reference error = %v, want %v (err: %v)", got, tt.hallucinated, err)
			}
			if !tt.hallucinated {
				var unsafe *UnsafeStatementError
				if !errors.As(err, &unsafe) {
					t.Errorf("error type = %T, want *UnsafeStatementError", err)
				}
			}
		})
	}
}

func TestValidateCandidate(t *testing.T) {
	schemas := testSchemas()
	source, target := schemas[0], schemas[1]

	tests := []struct {
		name      string
		candidate models.MappingCandidate
		wantErr   bool
	}{
		{
			"valid mapping",
			models.MappingCandidate{SourceColumn: "amount", TargetColumn: "amount_usd"},
			false,
		},
		{
			"unmapped candidate is legal",
			models.MappingCandidate{TargetColumn: "note"},
			false,
		},
		{
			"hallucinated source column",
			models.MappingCandidate{SourceColumn: "discount", TargetColumn: "amount_usd"},
			true,
		},
		{
			"hallucinated target column",
			models.MappingCandidate{SourceColumn: "amount", TargetColumn: "total"},
			true,
		},
		{
			"invalid target identifier",
			models.MappingCandidate{SourceColumn: "amount", TargetColumn: "amount;--"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidate(tt.candidate, source, target)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCandidate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
