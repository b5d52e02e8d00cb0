package proposer

import (
	"fmt"
	"strings"
	"time"

	"github.com/mkessler/mapgate-go/internal/models"
)

// sourcePlaceholder is the slot in a transform expression that gets replaced
// with the source column reference.
const sourcePlaceholder = "{source}"

// BuildStatements deterministically renders the INSERT and MERGE forms for
// an approved mapping set. Rejected mappings contribute NULL for their
// target column, same as targets that were never mapped.
func BuildStatements(source, target models.SchemaDescriptor, approved []models.ApprovedMapping) models.Statement {
	bySource := make(map[string]models.ApprovedMapping, len(approved))
	for _, m := range approved {
		if m.Outcome != models.OutcomeRejected && m.Mapped() {
			bySource[m.TargetColumn] = m
		}
	}

	var selectCols []string
	var targetCols []string
	var mappedTargets []string
	for _, col := range target.Columns {
		targetCols = append(targetCols, col.Name)
		m, ok := bySource[col.Name]
		if !ok {
			selectCols = append(selectCols, "  NULL AS "+col.Name)
			continue
		}
		expr := m.SourceColumn
		if m.Transform != "" {
			expr = strings.ReplaceAll(m.Transform, sourcePlaceholder, m.SourceColumn)
		}
		selectCols = append(selectCols, "  "+expr+" AS "+col.Name)
		mappedTargets = append(mappedTargets, col.Name)
	}

	selectClause := strings.Join(selectCols, ",\n")

	insert := fmt.Sprintf("INSERT INTO %s\nSELECT\n%s\nFROM %s",
		quoteRef(target), selectClause, quoteRef(source))

	return models.Statement{
		Insert:      insert,
		Merge:       buildMerge(source, target, selectClause, targetCols, mappedTargets),
		GeneratedAt: time.Now().UTC(),
	}
}

// buildMerge renders the incremental MERGE variant, keyed on the first
// mapped target column. Empty when nothing is mapped.
func buildMerge(source, target models.SchemaDescriptor, selectClause string, targetCols, mappedTargets []string) string {
	if len(mappedTargets) == 0 {
		return ""
	}
	key := mappedTargets[0]

	var updates []string
	for _, col := range mappedTargets {
		updates = append(updates, fmt.Sprintf("tgt.%s = src.%s", col, col))
	}
	var insertVals []string
	for _, col := range targetCols {
		insertVals = append(insertVals, "src."+col)
	}

	return fmt.Sprintf(`MERGE %s AS tgt
USING (
  SELECT
%s
  FROM %s
) AS src
ON tgt.%s = src.%s
WHEN MATCHED THEN
  UPDATE SET %s
WHEN NOT MATCHED THEN
  INSERT (%s)
  VALUES (%s)`,
		quoteRef(target), selectClause, quoteRef(source),
		key, key,
		strings.Join(updates, ", "),
		strings.Join(targetCols, ", "),
		strings.Join(insertVals, ", "))
}

func quoteRef(s models.SchemaDescriptor) string {
	if s.Dataset == "" {
		return "`" + s.Table + "`"
	}
	return "`" + s.Dataset + "." + s.Table + "`"
}
