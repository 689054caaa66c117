package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"degpredict/domain/core"
	"degpredict/domain/deg"
	"degpredict/domain/prediction"
	"degpredict/domain/run"
	apperrors "degpredict/internal/errors"
	"degpredict/ports"
)

// createdAtLayout is fixed width so text ordering matches time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRepository implements ports.RunRepository over sqlx.
type RunRepository struct {
	db *sqlx.DB
}

var _ ports.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a repository; the schema must already exist.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

type predictionRow struct {
	Position         int             `db:"position"`
	Gene             string          `db:"gene"`
	Pathway          string          `db:"pathway"`
	ProxyRegulation  string          `db:"proxy_regulation"`
	ProxyLog2FC      sql.NullFloat64 `db:"proxy_log2fc"`
	Expressed        bool            `db:"expressed"`
	SignalingChange  string          `db:"signaling_change"`
	TranscriptChange string          `db:"transcript_change"`
	Confidence       string          `db:"confidence"`
	Rationale        string          `db:"rationale"`
	RuleKey          string          `db:"rule_key"`
}

// SaveRun stores the manifest and its predictions in one transaction.
// Predictions keep their slice order.
func (r *RunRepository) SaveRun(ctx context.Context, m run.Manifest, records []prediction.Record) error {
	if err := m.Validate(); err != nil {
		return err
	}
	manifest, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO runs (id, accession, created_at, rule_variant, target_tissue, fingerprint,
			feature_count, panel_size, upregulated, downregulated, manifest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), m.RunID.String(), m.Accession, m.CreatedAt.UTC().Format(createdAtLayout),
		m.Fingerprint.RuleVariant, m.Fingerprint.TargetTissue, m.Fingerprint.Hash.String(),
		m.FeatureCount, m.PanelSize, m.DEG.Upregulated, m.DEG.Downregulated, string(manifest))
	if err != nil {
		return apperrors.DatabaseError(fmt.Sprintf("failed to insert run %s", m.RunID), err)
	}

	stmt, err := tx.PreparexContext(ctx, r.db.Rebind(`
		INSERT INTO predictions (run_id, position, gene, pathway, proxy_regulation, proxy_log2fc,
			expressed, signaling_change, transcript_change, confidence, rationale, rule_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		var fc sql.NullFloat64
		if rec.ProxyLog2FC != nil {
			fc = sql.NullFloat64{Float64: *rec.ProxyLog2FC, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, m.RunID.String(), i, rec.Gene, rec.Pathway,
			string(rec.ProxyRegulation), fc, rec.Expressed, string(rec.SignalingChange),
			string(rec.TranscriptChange), string(rec.Confidence), rec.Rationale, rec.RuleKey); err != nil {
			return apperrors.DatabaseError(fmt.Sprintf("failed to insert prediction %s", rec.Gene), err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the newest runs first. limit <= 0 means no limit.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	query := `SELECT manifest FROM runs ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var raw []string
	if err := r.db.SelectContext(ctx, &raw, r.db.Rebind(query), args...); err != nil {
		return nil, apperrors.DatabaseError("failed to list runs", err)
	}
	out := make([]run.Manifest, 0, len(raw))
	for _, s := range raw {
		var m run.Manifest
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, fmt.Errorf("failed to decode manifest: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// GetRun loads one manifest.
func (r *RunRepository) GetRun(ctx context.Context, id core.RunID) (*run.Manifest, error) {
	var raw string
	err := r.db.GetContext(ctx, &raw, r.db.Rebind(`SELECT manifest FROM runs WHERE id = ?`), id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.WithCode(apperrors.CodeNotFound, fmt.Errorf("%w: %s", core.ErrRunNotFound, id))
	}
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load run", err)
	}
	var m run.Manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// GetPredictions returns a run's records in persisted order.
func (r *RunRepository) GetPredictions(ctx context.Context, id core.RunID) ([]prediction.Record, error) {
	if _, err := r.GetRun(ctx, id); err != nil {
		return nil, err
	}
	var rows []predictionRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT position, gene, pathway, proxy_regulation, proxy_log2fc, expressed,
			signaling_change, transcript_change, confidence, rationale, rule_key
		FROM predictions
		WHERE run_id = ?
		ORDER BY position
	`), id.String())
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load predictions", err)
	}

	out := make([]prediction.Record, len(rows))
	for i, row := range rows {
		rec := prediction.Record{
			Gene:             row.Gene,
			Pathway:          row.Pathway,
			ProxyRegulation:  deg.Regulation(row.ProxyRegulation),
			Expressed:        row.Expressed,
			SignalingChange:  prediction.SignalingChange(row.SignalingChange),
			TranscriptChange: prediction.TranscriptChange(row.TranscriptChange),
			Confidence:       prediction.Confidence(row.Confidence),
			Rationale:        row.Rationale,
			RuleKey:          row.RuleKey,
		}
		if row.ProxyLog2FC.Valid {
			v := row.ProxyLog2FC.Float64
			rec.ProxyLog2FC = &v
		}
		out[i] = rec
	}
	return out, nil
}
