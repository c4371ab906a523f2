package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

// DeliveryLogStore is the Postgres-backed implementation of
// store.DeliveryLogStore (SPEC_FULL.md §4's durable run log).
type DeliveryLogStore struct {
	db *sqlx.DB
}

func NewDeliveryLogStore(db *sqlx.DB) *DeliveryLogStore {
	return &DeliveryLogStore{db: db}
}

type deliveryRow struct {
	ID          uuid.UUID `db:"id"`
	JobID       uuid.UUID `db:"job_id"`
	AttemptedAt time.Time `db:"attempted_at"`
	Outcome     string    `db:"outcome"`
	ErrorClass  *string   `db:"error_class"`
	HTTPStatus  *int      `db:"http_status"`
	DurationMS  int64     `db:"duration_ms"`
	BodyExcerpt string    `db:"body_excerpt"`
	ArchiveKey  *string   `db:"archive_key"`
}

func (r *deliveryRow) toRecord() store.DeliveryRecord {
	return store.DeliveryRecord{
		ID:          r.ID,
		JobID:       r.JobID,
		AttemptedAt: r.AttemptedAt,
		Outcome:     store.DeliveryOutcome(r.Outcome),
		ErrorClass:  derefStr(r.ErrorClass),
		HTTPStatus:  derefIntVal(r.HTTPStatus),
		DurationMS:  r.DurationMS,
		BodyExcerpt: r.BodyExcerpt,
		ArchiveKey:  derefStr(r.ArchiveKey),
	}
}

const insertDeliveryQuery = `
INSERT INTO delivery_log (id, job_id, attempted_at, outcome, error_class, http_status, duration_ms, body_excerpt, archive_key)
VALUES (:id, :job_id, :attempted_at, :outcome, :error_class, :http_status, :duration_ms, :body_excerpt, :archive_key)
`

func (s *DeliveryLogStore) Record(ctx context.Context, rec store.DeliveryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	row := deliveryRow{
		ID:          rec.ID,
		JobID:       rec.JobID,
		AttemptedAt: rec.AttemptedAt,
		Outcome:     string(rec.Outcome),
		ErrorClass:  &rec.ErrorClass,
		HTTPStatus:  nilInt(rec.HTTPStatus),
		DurationMS:  rec.DurationMS,
		BodyExcerpt: rec.BodyExcerpt,
		ArchiveKey:  &rec.ArchiveKey,
	}
	_, err := s.db.NamedExecContext(ctx, insertDeliveryQuery, row)
	return err
}

func (s *DeliveryLogStore) ListForJob(ctx context.Context, jobID uuid.UUID, limit int) ([]store.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []deliveryRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM delivery_log WHERE job_id = $1 ORDER BY attempted_at DESC LIMIT $2`,
		jobID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]store.DeliveryRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toRecord()
	}
	return out, nil
}

var _ store.DeliveryLogStore = (*DeliveryLogStore)(nil)
