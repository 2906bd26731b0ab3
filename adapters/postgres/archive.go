// Package postgres holds the write-only archive sink for completed
// experiment results. The engine never reads archived rows back; the
// table exists for offline analysis and record keeping.
package postgres

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"gosplit/domain/experiment"
	"gosplit/internal/errors"
)

// ResultArchive implements ports.ResultArchive over PostgreSQL.
type ResultArchive struct {
	db *sqlx.DB
}

// NewResultArchive creates an archive over an open connection.
func NewResultArchive(db *sqlx.DB) *ResultArchive {
	return &ResultArchive{db: db}
}

// EnsureSchema creates the archive table when it does not exist.
func (a *ResultArchive) EnsureSchema(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS experiment_result_archive (
			experiment_id   TEXT NOT NULL,
			experiment_name TEXT NOT NULL,
			variant_id      TEXT NOT NULL,
			variant_name    TEXT NOT NULL,
			participants    INTEGER NOT NULL,
			metrics         JSONB,
			sample_size     INTEGER NOT NULL,
			duration_ms     BIGINT NOT NULL,
			confidence      DOUBLE PRECISION NOT NULL,
			significant     BOOLEAN NOT NULL,
			is_winner       BOOLEAN NOT NULL,
			archived_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (experiment_id, variant_id)
		)`)
	return errors.Wrap(err, "failed to ensure archive schema")
}

// ArchiveResult writes one row per variant inside a transaction.
func (a *ResultArchive) ArchiveResult(ctx context.Context, exp *experiment.Experiment, result *experiment.Result) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin archive transaction")
	}
	defer tx.Rollback()

	for _, vr := range result.Variants {
		metricsJSON, _ := json.Marshal(vr.Metrics)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO experiment_result_archive (
				experiment_id, experiment_name, variant_id, variant_name,
				participants, metrics, sample_size, duration_ms,
				confidence, significant, is_winner
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (experiment_id, variant_id) DO UPDATE SET
				participants = EXCLUDED.participants,
				metrics      = EXCLUDED.metrics,
				sample_size  = EXCLUDED.sample_size,
				duration_ms  = EXCLUDED.duration_ms,
				confidence   = EXCLUDED.confidence,
				significant  = EXCLUDED.significant,
				is_winner    = EXCLUDED.is_winner,
				archived_at  = NOW()`,
			result.ExperimentID.String(), exp.Name, vr.VariantID.String(), vr.Name,
			vr.Participants, metricsJSON, result.SampleSize, result.Duration.Milliseconds(),
			result.Confidence, result.Significant, vr.VariantID == result.Winner)
		if err != nil {
			return errors.Wrapf(err, "failed to archive variant %s", vr.VariantID)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit archive transaction")
}
