package policy

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Decision
	}{
		{"well above threshold", 0.95, AutoApprove},
		{"just above threshold", 0.80001, AutoApprove},
		{"exactly auto-approve boundary", 0.80, NeedsReview},
		{"middle of review band", 0.55, NeedsReview},
		{"exactly reject boundary", 0.40, NeedsReview},
		{"just below reject boundary", 0.39999, Reject},
		{"well below threshold", 0.10, Reject},
		{"zero", 0, Reject},
		{"one", 1, AutoApprove},
		{"negative score", -0.1, Reject},
		{"score above one", 1.5, Reject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.score); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.score, got, tt.want)
			}
		})
	}
}

func TestWorst(t *testing.T) {
	tests := []struct {
		name      string
		decisions []Decision
		want      Decision
	}{
		{"empty batch", nil, AutoApprove},
		{"all auto", []Decision{AutoApprove, AutoApprove}, AutoApprove},
		{"review dominates auto", []Decision{AutoApprove, NeedsReview}, NeedsReview},
		{"reject dominates all", []Decision{AutoApprove, NeedsReview, Reject}, Reject},
		{"single reject", []Decision{Reject}, Reject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Worst(tt.decisions); got != tt.want {
				t.Errorf("Worst(%v) = %v, want %v", tt.decisions, got, tt.want)
			}
		})
	}
}

func TestRationale(t *testing.T) {
	// Every decision must come with a non-empty explanation.
	for _, score := range []float64{0.9, 0.5, 0.1, -1, 2} {
		d := Classify(score)
		if Rationale(d, score) == "" {
			t.Errorf("Rationale(%v, %v) is empty", d, score)
		}
	}

	if got := Rationale(Reject, 1.5); got != "confidence score outside [0,1], proposal rejected" {
		t.Errorf("out-of-range rationale = %q", got)
	}
}
