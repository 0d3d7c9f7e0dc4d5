// Package journal keeps a local audit trail of finalized sessions at the
// gate, so receipts survive backend outages and disputes can be checked
// on-site.
package journal

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"parkgate/internal/models"
)

// Recorder upserts finalized sessions into the gate_receipts table:
//
//	gate_receipts(session_id PK, status, region_code, plate_text,
//	              amount_cents, currency, started_at, ended_at, recorded_at)
type Recorder struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecorder returns a Postgres-backed recorder.
func NewRecorder(db *sql.DB, logger *zap.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Record writes one finalized session. Idempotent per session id: a repeated
// record of the same session updates in place.
func (r *Recorder) Record(ctx context.Context, s *models.Session) error {
	const query = `
		INSERT INTO gate_receipts (session_id, status, region_code, plate_text, amount_cents, currency, started_at, ended_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			status = EXCLUDED.status,
			amount_cents = EXCLUDED.amount_cents,
			ended_at = EXCLUDED.ended_at,
			recorded_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Status,
		s.Vehicle.RegionCode,
		s.Vehicle.PlateText,
		s.AmountCharged,
		s.Currency(),
		s.StartedAt,
		s.EndedAt,
	)
	if err != nil {
		return err
	}
	r.logger.Debug("receipt recorded", zap.Int64("session_id", s.ID), zap.String("status", s.Status))
	return nil
}
