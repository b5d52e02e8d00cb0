package proposer

import (
	"context"
	"testing"

	"github.com/mkessler/mapgate-go/internal/models"
)

func TestMatchScore(t *testing.T) {
	tests := []struct {
		name string
		src  string
		tgt  string
		want float64
	}{
		{"exact", "order_id", "order_id", confidenceExact},
		{"exact ignoring case", "Order_ID", "order_id", confidenceExact},
		{"partial containment", "amount", "amount_usd", confidencePartial},
		{"partial reversed", "customer_name", "customer", confidencePartial},
		{"prefix normalization", "src_order_id", "tgt_order_id", confidenceSimilar},
		{"shared suffix stripped", "stg_customer_key", "dim_customer_key", confidenceSimilar},
		{"no match", "amount", "region", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := matchScore(tt.src, tt.tgt)
			if got != tt.want {
				t.Errorf("matchScore(%q, %q) = %v, want %v", tt.src, tt.tgt, got, tt.want)
			}
		})
	}
}

func TestHeuristicProposeMappings(t *testing.T) {
	source := models.SchemaDescriptor{
		Dataset: "sales",
		Table:   "orders",
		Columns: []models.ColumnDescriptor{
			{Name: "order_id", Type: "INT64"},
			{Name: "amount", Type: "FLOAT64"},
			{Name: "customer_name", Type: "STRING"},
		},
	}
	target := models.SchemaDescriptor{
		Dataset: "dw",
		Table:   "fact_orders",
		Columns: []models.ColumnDescriptor{
			{Name: "order_id", Type: "STRING"},
			{Name: "amount_usd", Type: "FLOAT64"},
			{Name: "discount", Type: "FLOAT64"},
		},
	}

	candidates, err := NewHeuristicProposer().ProposeMappings(context.Background(), source, target)
	if err != nil {
		t.Fatalf("ProposeMappings() error = %v", err)
	}
	if len(candidates) != len(target.Columns) {
		t.Fatalf("got %d candidates, want one per target column (%d)", len(candidates), len(target.Columns))
	}

	byTarget := map[string]models.MappingCandidate{}
	for _, c := range candidates {
		byTarget[c.TargetColumn] = c
	}

	// Exact name match with a type mismatch costs the cast penalty.
	orderID := byTarget["order_id"]
	if orderID.SourceColumn != "order_id" {
		t.Errorf("order_id mapped from %q, want order_id", orderID.SourceColumn)
	}
	if want := confidenceExact - castPenalty; orderID.Confidence != want {
		t.Errorf("order_id confidence = %v, want %v", orderID.Confidence, want)
	}
	if orderID.Transform != "CAST({source} AS STRING)" {
		t.Errorf("order_id transform = %q", orderID.Transform)
	}

	// Partial name match, same type, no transform.
	amount := byTarget["amount_usd"]
	if amount.SourceColumn != "amount" || amount.Confidence != confidencePartial {
		t.Errorf("amount_usd = %+v, want amount at %v", amount, confidencePartial)
	}
	if amount.Transform != "" {
		t.Errorf("amount_usd transform = %q, want none", amount.Transform)
	}

	// No plausible source: reported unmapped, never dropped.
	discount := byTarget["discount"]
	if discount.Mapped() || discount.Confidence != 0 {
		t.Errorf("discount = %+v, want unmapped with confidence 0", discount)
	}
}
