package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mkessler/mapgate-go/internal/metrics"
	"github.com/mkessler/mapgate-go/internal/models"
	"github.com/mkessler/mapgate-go/internal/validate"
)

// Catalog is the result of warehouse discovery.
type Catalog struct {
	Datasets []DatasetCatalog `json:"datasets"`
}

// DatasetCatalog lists the tables of one dataset.
type DatasetCatalog struct {
	Name   string   `json:"name"`
	Tables []string `json:"tables"`
}

// SchemaAnalysis is the result of capturing source and target schemas.
type SchemaAnalysis struct {
	Source        models.SchemaDescriptor `json:"source"`
	Target        models.SchemaDescriptor `json:"target"`
	SourceSamples []map[string]any        `json:"source_samples,omitempty"`
}

// sampleRowCount is how many source rows AnalyzeSchemas captures to give
// reviewers concrete values next to the declared types.
const sampleRowCount = 5

// Discover lists the warehouse catalog. Read-only: it never transitions the
// session, and is legal from any stage, terminal included.
func (o *Orchestrator) Discover(ctx context.Context, sessionID string) (Catalog, error) {
	sess, err := o.EnsureSession(ctx, sessionID)
	if err != nil {
		return Catalog{}, err
	}

	start := time.Now()
	datasets, err := o.conn.ListDatasets(ctx)
	if err != nil {
		o.metrics.RecordFailure(metrics.OpConnector)
		return Catalog{}, err
	}

	catalog := Catalog{Datasets: make([]DatasetCatalog, 0, len(datasets))}
	for _, ds := range datasets {
		tables, err := o.conn.ListTables(ctx, ds)
		if err != nil {
			o.metrics.RecordFailure(metrics.OpConnector)
			return Catalog{}, err
		}
		catalog.Datasets = append(catalog.Datasets, DatasetCatalog{Name: ds, Tables: tables})
	}
	o.metrics.RecordTiming(metrics.OpConnector, time.Since(start))

	if err := o.appendAudit(ctx, models.AuditEvent{
		SessionID: sess.ID,
		Component: componentOrchestrator,
		Action:    models.ActionCatalogListed,
		Risk:      models.RiskLow,
		Context:   map[string]any{"datasets": len(catalog.Datasets)},
	}); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

// AnalyzeSchemas captures the source and target schemas into session state
// and advances the session to schema_analyzed. Re-running replaces the
// captured schemas, which is how a reviewer retargets a session before any
// mappings exist.
func (o *Orchestrator) AnalyzeSchemas(ctx context.Context, sessionID string, source, target models.TableRef) (SchemaAnalysis, error) {
	sess, err := o.EnsureSession(ctx, sessionID)
	if err != nil {
		return SchemaAnalysis{}, err
	}

	var analysis SchemaAnalysis
	err = o.withTransition(sess.ID, func() error {
		stage, _ := o.currentStage(sess.ID)
		if err := requireStage("analyze_schemas", stage,
			models.StageDiscovery, models.StageSchemaAnalyzed); err != nil {
			return err
		}

		for _, name := range []string{source.Dataset, source.Table, target.Dataset, target.Table} {
			if err := validate.ValidateIdentifier(name); err != nil {
				return o.guardrailBlock(ctx, sess.ID, models.ActionIdentifierBlocked, err,
					map[string]any{"operation": "analyze_schemas"})
			}
		}

		start := time.Now()
		sourceSchema, err := o.conn.GetSchema(ctx, source.Dataset, source.Table)
		if err != nil {
			o.metrics.RecordFailure(metrics.OpConnector)
			return err
		}
		targetSchema, err := o.conn.GetSchema(ctx, target.Dataset, target.Table)
		if err != nil {
			o.metrics.RecordFailure(metrics.OpConnector)
			return err
		}

		// Sampling is best-effort context for the reviewer, never a gate.
		samples, err := o.conn.SampleRows(ctx, source.Dataset, source.Table, sampleRowCount)
		if err != nil {
			o.logger.Warn("row sampling failed", "session_id", sess.ID, "error", err)
			samples = nil
		}
		o.metrics.RecordTiming(metrics.OpConnector, time.Since(start))

		if err := o.appendAudit(ctx, models.AuditEvent{
			SessionID: sess.ID,
			Component: componentOrchestrator,
			Action:    models.ActionSchemasAnalyzed,
			Risk:      models.RiskLow,
			Context: map[string]any{
				"source":         source.String(),
				"target":         target.String(),
				"source_columns": len(sourceSchema.Columns),
				"target_columns": len(targetSchema.Columns),
			},
		}); err != nil {
			return err
		}

		o.store.Put(sess.ID, models.KeySourceSchema, sourceSchema)
		o.store.Put(sess.ID, models.KeyTargetSchema, targetSchema)
		o.setStage(ctx, sess.ID, models.StageSchemaAnalyzed)

		analysis = SchemaAnalysis{Source: sourceSchema, Target: targetSchema, SourceSamples: samples}
		return nil
	})
	if err != nil {
		return SchemaAnalysis{}, err
	}
	return analysis, nil
}

// schemasFromState loads the captured schema pair, converting a missing key
// into an ArtifactError.
func (o *Orchestrator) schemasFromState(sessionID string) (source, target models.SchemaDescriptor, err error) {
	src, err := o.store.Get(sessionID, models.KeySourceSchema)
	if err != nil {
		return source, target, &ArtifactError{Key: models.KeySourceSchema, Err: err}
	}
	tgt, err := o.store.Get(sessionID, models.KeyTargetSchema)
	if err != nil {
		return source, target, &ArtifactError{Key: models.KeyTargetSchema, Err: err}
	}

	source, ok := src.(models.SchemaDescriptor)
	if !ok {
		return source, target, &ArtifactError{Key: models.KeySourceSchema, Err: errors.New("unexpected artifact type")}
	}
	target, ok = tgt.(models.SchemaDescriptor)
	if !ok {
		return source, target, &ArtifactError{Key: models.KeyTargetSchema, Err: errors.New("unexpected artifact type")}
	}
	return source, target, nil
}
