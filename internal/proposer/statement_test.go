package proposer

import (
	"strings"
	"testing"
	"time"

	"github.com/mkessler/mapgate-go/internal/models"
	"github.com/mkessler/mapgate-go/internal/validate"
)

func buildFixtures() (models.SchemaDescriptor, models.SchemaDescriptor, []models.ApprovedMapping) {
	source := models.SchemaDescriptor{
		Dataset: "sales",
		Table:   "orders",
		Columns: []models.ColumnDescriptor{
			{Name: "order_id", Type: "INT64"},
			{Name: "amount", Type: "FLOAT64"},
			{Name: "note", Type: "STRING", Nullable: true},
		},
	}
	target := models.SchemaDescriptor{
		Dataset: "dw",
		Table:   "fact_orders",
		Columns: []models.ColumnDescriptor{
			{Name: "order_id", Type: "INT64"},
			{Name: "amount_usd", Type: "FLOAT64"},
			{Name: "note", Type: "STRING", Nullable: true},
		},
	}
	now := time.Now().UTC()
	approved := []models.ApprovedMapping{
		{
			MappingCandidate: models.MappingCandidate{SourceColumn: "order_id", TargetColumn: "order_id"},
			Outcome:          models.OutcomeAutoApproved,
			DecidedAt:        now,
		},
		{
			MappingCandidate: models.MappingCandidate{
				SourceColumn: "amount",
				TargetColumn: "amount_usd",
				Transform:    "CAST({source} AS FLOAT64)",
			},
			Outcome:   models.OutcomeHumanApproved,
			DecidedAt: now,
		},
		{
			MappingCandidate: models.MappingCandidate{SourceColumn: "note", TargetColumn: "note"},
			Outcome:          models.OutcomeRejected,
			DecidedAt:        now,
		},
	}
	return source, target, approved
}

func TestBuildStatements(t *testing.T) {
	source, target, approved := buildFixtures()
	stmt := BuildStatements(source, target, approved)

	wantInInsert := []string{
		"INSERT INTO `dw.fact_orders`",
		"order_id AS order_id",
		"CAST(amount AS FLOAT64) AS amount_usd",
		"NULL AS note", // rejected mappings contribute NULL
		"FROM `sales.orders`",
	}
	for _, want := range wantInInsert {
		if !strings.Contains(stmt.Insert, want) {
			t.Errorf("insert missing %q:\n%s", want, stmt.Insert)
		}
	}

	// The merge variant is keyed on the first mapped target column.
	wantInMerge := []string{
		"MERGE `dw.fact_orders` AS tgt",
		"ON tgt.order_id = src.order_id",
		"UPDATE SET tgt.order_id = src.order_id, tgt.amount_usd = src.amount_usd",
		"INSERT (order_id, amount_usd, note)",
	}
	for _, want := range wantInMerge {
		if !strings.Contains(stmt.Merge, want) {
			t.Errorf("merge missing %q:\n%s", want, stmt.Merge)
		}
	}

	if stmt.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

// Every statement the builder emits must clear the guardrail validator; the
// two are developed against the same grammar.
func TestBuildStatementsPassValidation(t *testing.T) {
	source, target, approved := buildFixtures()
	stmt := BuildStatements(source, target, approved)
	schemas := []models.SchemaDescriptor{source, target}

	if err := validate.ValidateStatement(stmt.Insert, schemas); err != nil {
		t.Errorf("insert fails validation: %v\n%s", err, stmt.Insert)
	}
	if err := validate.ValidateStatement(stmt.Merge, schemas); err != nil {
		t.Errorf("merge fails validation: %v\n%s", err, stmt.Merge)
	}
}

func TestBuildStatementsNothingMapped(t *testing.T) {
	source, target, _ := buildFixtures()
	stmt := BuildStatements(source, target, nil)

	if stmt.Merge != "" {
		t.Errorf("merge = %q, want empty when nothing is mapped", stmt.Merge)
	}
	for _, col := range target.Columns {
		if !strings.Contains(stmt.Insert, "NULL AS "+col.Name) {
			t.Errorf("insert missing NULL for %s:\n%s", col.Name, stmt.Insert)
		}
	}
}
