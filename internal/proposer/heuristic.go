package proposer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkessler/mapgate-go/internal/models"
)

// Name-match confidence tiers. A needed type cast costs a tenth because the
// cast itself is a source of silent data loss.
const (
	confidenceExact   = 0.95
	confidencePartial = 0.75
	confidenceSimilar = 0.60
	castPenalty       = 0.10
)

// HeuristicProposer suggests mappings by column-name similarity and type
// compatibility. It is the default proposer and the fallback when no LLM is
// configured.
type HeuristicProposer struct{}

// NewHeuristicProposer creates the deterministic proposer.
func NewHeuristicProposer() *HeuristicProposer {
	return &HeuristicProposer{}
}

// ProposeMappings implements Proposer. One candidate per target column, best
// source match wins; targets without any plausible source come back unmapped
// with confidence 0.
func (p *HeuristicProposer) ProposeMappings(ctx context.Context, source, target models.SchemaDescriptor) ([]models.MappingCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]models.MappingCandidate, 0, len(target.Columns))
	for _, tgt := range target.Columns {
		best := models.MappingCandidate{
			TargetColumn: tgt.Name,
			TargetType:   tgt.Type,
			Rationale:    "no source column with a similar name",
		}

		for _, src := range source.Columns {
			score, rationale := matchScore(src.Name, tgt.Name)
			if score == 0 {
				continue
			}

			transform := ""
			if !strings.EqualFold(src.Type, tgt.Type) {
				score -= castPenalty
				transform = fmt.Sprintf("CAST({source} AS %s)", tgt.Type)
				rationale += fmt.Sprintf(", cast %s to %s required", src.Type, tgt.Type)
			}

			if score > best.Confidence {
				best.SourceColumn = src.Name
				best.SourceType = src.Type
				best.Transform = transform
				best.Confidence = score
				best.Rationale = rationale
			}
		}

		candidates = append(candidates, best)
	}
	return candidates, nil
}

// GenerateStatement implements Proposer via the deterministic builder.
func (p *HeuristicProposer) GenerateStatement(ctx context.Context, source, target models.SchemaDescriptor, approved []models.ApprovedMapping) (models.Statement, error) {
	if err := ctx.Err(); err != nil {
		return models.Statement{}, err
	}
	return BuildStatements(source, target, approved), nil
}

func matchScore(src, tgt string) (float64, string) {
	s, t := strings.ToLower(src), strings.ToLower(tgt)
	switch {
	case s == t:
		return confidenceExact, "exact name match"
	case strings.Contains(s, t) || strings.Contains(t, s):
		return confidencePartial, "partial name match"
	case similarNames(s, t):
		return confidenceSimilar, "name match after prefix/suffix normalization"
	}
	return 0, ""
}

// Common warehouse naming affixes stripped before comparing.
var (
	namePrefixes = []string{"src_", "tgt_", "dim_", "fact_", "stg_"}
	nameSuffixes = []string{"_id", "_key", "_code", "_date", "_amt", "_amount"}
)

// similarNames reports whether two lowercased column names match after
// stripping common prefixes and shared suffixes.
func similarNames(a, b string) bool {
	for _, p := range namePrefixes {
		a = strings.TrimPrefix(a, p)
		b = strings.TrimPrefix(b, p)
	}
	for _, s := range nameSuffixes {
		if strings.HasSuffix(a, s) && strings.HasSuffix(b, s) {
			a = strings.TrimSuffix(a, s)
			b = strings.TrimSuffix(b, s)
		}
	}
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
